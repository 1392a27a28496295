//go:build property
// +build property

package pricing_test

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"

	"github.com/localborga/milling-orders/internal/domains/pricing"
)

// Property: with the default tariff every whole-kilogram weight in range costs 3.00 per kg.
func TestCustomMillingIsLinear(t *testing.T) {
	engine := pricing.MustEngine(pricing.DefaultConfig())
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("price = 3.00 * weight", prop.ForAll(
		func(kg int64) bool {
			amount, err := engine.PriceCustomMilling(decimal.NewFromInt(kg))
			if err != nil {
				return false
			}
			return amount.Equal(decimal.RequireFromString("3.00").Mul(decimal.NewFromInt(kg)))
		},
		gen.Int64Range(5, 50),
	))

	properties.Property("out of range weights are rejected", prop.ForAll(
		func(kg int64) bool {
			_, err := engine.PriceCustomMilling(decimal.NewFromInt(kg))
			return err != nil
		},
		gen.OneGenOf(gen.Int64Range(-100, 4), gen.Int64Range(51, 1000)),
	))

	properties.Property("shelf price scales with quantity", prop.ForAll(
		func(cents int64, qty int) bool {
			unit := decimal.New(cents, -2)
			amount, err := engine.PriceShelf(unit, qty)
			if err != nil {
				return false
			}
			return amount.Equal(unit.Mul(decimal.NewFromInt(int64(qty))))
		},
		gen.Int64Range(0, 100000),
		gen.IntRange(1, 100),
	))

	properties.TestingRun(t)
}
