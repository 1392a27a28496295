// Package pricing computes the price of a single cart line.
package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// LineType distinguishes stackable shelf items from one-off milling requests.
type LineType string

const (
	// Shelf is a pre-stocked catalog product bought by quantity.
	Shelf LineType = "SHELF"
	// CustomMilling is a production request priced by weight.
	CustomMilling LineType = "CUSTOM_MILLING"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrInvalidWeight   = errors.New("weight is outside the accepted range")
	ErrUnknownLineType = errors.New("unknown cart line type")
	ErrInvalidPrice    = errors.New("unit price must not be negative")
)

// Config holds the custom milling tariff.
type Config struct {
	BaseRate          decimal.Decimal
	ReferenceWeightKg decimal.Decimal
	MinWeightKg       decimal.Decimal
	MaxWeightKg       decimal.Decimal
	// WeightStepKg, when positive, requires weights to be a multiple of it.
	WeightStepKg decimal.Decimal
}

// DefaultConfig mirrors the storefront tariff: 15.00 per 5 kg, 5 to 50 kg.
func DefaultConfig() Config {
	return Config{
		BaseRate:          decimal.RequireFromString("15.00"),
		ReferenceWeightKg: decimal.NewFromInt(5),
		MinWeightKg:       decimal.NewFromInt(5),
		MaxWeightKg:       decimal.NewFromInt(50),
	}
}

// Validate rejects tariffs that cannot price anything.
func (c Config) Validate() error {
	if !c.BaseRate.IsPositive() {
		return fmt.Errorf("pricing base rate must be positive, got %s", c.BaseRate)
	}
	if !c.ReferenceWeightKg.IsPositive() {
		return fmt.Errorf("pricing reference weight must be positive, got %s", c.ReferenceWeightKg)
	}
	if c.MinWeightKg.IsNegative() || c.MaxWeightKg.LessThan(c.MinWeightKg) {
		return fmt.Errorf("pricing weight bounds [%s, %s] are invalid", c.MinWeightKg, c.MaxWeightKg)
	}
	if c.WeightStepKg.IsNegative() {
		return fmt.Errorf("pricing weight step must not be negative, got %s", c.WeightStepKg)
	}
	return nil
}

// LineRequest is the input of a single price computation.
type LineRequest struct {
	Type      LineType
	UnitPrice decimal.Decimal
	Quantity  int
	WeightKg  decimal.Decimal
}

// Engine prices cart lines. The zero value is not usable; build it with NewEngine.
type Engine struct {
	cfg Config
}

// NewEngine validates the tariff and returns an Engine.
func NewEngine(cfg Config) (Engine, error) {
	if err := cfg.Validate(); err != nil {
		return Engine{}, err
	}
	return Engine{cfg: cfg}, nil
}

// MustEngine is NewEngine for static configurations.
func MustEngine(cfg Config) Engine {
	e, err := NewEngine(cfg)
	if err != nil {
		panic(err)
	}
	return e
}

// Config returns the tariff the engine was built with.
func (e Engine) Config() Config {
	return e.cfg
}

// Price returns the amount owed for the line.
func (e Engine) Price(req LineRequest) (decimal.Decimal, error) {
	switch req.Type {
	case Shelf:
		return e.PriceShelf(req.UnitPrice, req.Quantity)
	case CustomMilling:
		return e.PriceCustomMilling(req.WeightKg)
	default:
		return decimal.Zero, fmt.Errorf("%w: %q", ErrUnknownLineType, req.Type)
	}
}

// PriceShelf multiplies the catalog unit price by the quantity.
func (e Engine) PriceShelf(unitPrice decimal.Decimal, quantity int) (decimal.Decimal, error) {
	if quantity < 1 {
		return decimal.Zero, fmt.Errorf("%w: got %d", ErrInvalidQuantity, quantity)
	}
	if unitPrice.IsNegative() {
		return decimal.Zero, ErrInvalidPrice
	}
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Round(2), nil
}

// PriceCustomMilling prices a milling request proportionally to its weight.
// Rounding is half-up to cents; amounts are never negative so Round matches half-up.
func (e Engine) PriceCustomMilling(weightKg decimal.Decimal) (decimal.Decimal, error) {
	if err := e.ValidateWeight(weightKg); err != nil {
		return decimal.Zero, err
	}
	amount := e.cfg.BaseRate.Mul(weightKg).Div(e.cfg.ReferenceWeightKg)
	return amount.Round(2), nil
}

// ValidateWeight checks a milling weight against the configured bounds.
func (e Engine) ValidateWeight(weightKg decimal.Decimal) error {
	if !weightKg.IsPositive() {
		return fmt.Errorf("%w: %s kg must be greater than zero", ErrInvalidWeight, weightKg)
	}
	if weightKg.LessThan(e.cfg.MinWeightKg) || weightKg.GreaterThan(e.cfg.MaxWeightKg) {
		return fmt.Errorf("%w: %s kg not in [%s, %s]", ErrInvalidWeight, weightKg, e.cfg.MinWeightKg, e.cfg.MaxWeightKg)
	}
	if e.cfg.WeightStepKg.IsPositive() && !weightKg.Mod(e.cfg.WeightStepKg).IsZero() {
		return fmt.Errorf("%w: %s kg is not a multiple of %s kg", ErrInvalidWeight, weightKg, e.cfg.WeightStepKg)
	}
	return nil
}
