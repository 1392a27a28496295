// Package money carries monetary values across JSON boundaries as plain numbers.
package money

import (
	"bytes"
	"fmt"

	"github.com/shopspring/decimal"
)

// Amount is a decimal that marshals as an unquoted number with two decimal places.
// It unmarshals from either a JSON number or a numeric string.
type Amount struct {
	decimal.Decimal
}

func New(d decimal.Decimal) Amount {
	return Amount{Decimal: d}
}

// Ptr converts an optional decimal.
func Ptr(d *decimal.Decimal) *Amount {
	if d == nil {
		return nil
	}
	a := New(*d)
	return &a
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.StringFixed(2)), nil
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return fmt.Errorf("amount must not be null")
	}
	return a.Decimal.UnmarshalJSON(data)
}

// DecimalPtr returns the optional value as a decimal pointer.
func (a *Amount) DecimalPtr() *decimal.Decimal {
	if a == nil {
		return nil
	}
	d := a.Decimal
	return &d
}
