package mapper

import (
	"strings"

	"github.com/shopspring/decimal"

	cartapp "github.com/localborga/milling-orders/internal/domains/cart/application"
	"github.com/localborga/milling-orders/internal/domains/cart/domain"
	ordermapper "github.com/localborga/milling-orders/internal/domains/orders/adapters/http/mapper"
	"github.com/localborga/milling-orders/internal/domains/pricing"
	"github.com/localborga/milling-orders/internal/shared/money"
)

// LineRequest is one requested cart line. Shelf lines name a product; custom lines describe milling.
type LineRequest struct {
	Type        string        `json:"type" binding:"required"`
	ProductID   int64         `json:"productId,omitempty"`
	Quantity    int           `json:"quantity,omitempty"`
	ItemName    string        `json:"itemName,omitempty"`
	Style       string        `json:"millingStyle,omitempty"`
	WeightKg    *money.Amount `json:"weightKg,omitempty"`
	Texture     string        `json:"texture,omitempty"`
	Instruction string        `json:"instruction,omitempty"`
}

// CartRequest is the body of POST /cart/quote and POST /checkout.
type CartRequest struct {
	Lines []LineRequest `json:"lines" binding:"required,dive"`
}

type MillingConfig struct {
	Style       string       `json:"millingStyle,omitempty"`
	WeightKg    money.Amount `json:"weightKg"`
	Texture     string       `json:"texture,omitempty"`
	Instruction string       `json:"instruction,omitempty"`
}

type Line struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Name      string         `json:"name"`
	UnitPrice money.Amount   `json:"price"`
	Quantity  int            `json:"quantity"`
	LineTotal money.Amount   `json:"lineTotal"`
	ProductID int64          `json:"productId,omitempty"`
	Config    *MillingConfig `json:"config,omitempty"`
}

// Quote is the server-priced cart.
type Quote struct {
	Lines []Line       `json:"lines"`
	Total money.Amount `json:"total"`
	Count int          `json:"count"`
}

// CheckoutResponse lists the orders created from a cart.
type CheckoutResponse struct {
	Orders []ordermapper.Order `json:"orders"`
	Total  money.Amount        `json:"total"`
}

func ToLineRequests(req CartRequest) []cartapp.LineRequest {
	out := make([]cartapp.LineRequest, 0, len(req.Lines))
	for _, line := range req.Lines {
		weight := decimal.Zero
		if line.WeightKg != nil {
			weight = line.WeightKg.Decimal
		}
		out = append(out, cartapp.LineRequest{
			Type:         pricing.LineType(strings.ToUpper(strings.TrimSpace(line.Type))),
			ProductID:    line.ProductID,
			Quantity:     line.Quantity,
			ItemName:     line.ItemName,
			MillingStyle: line.Style,
			Texture:      line.Texture,
			Instruction:  line.Instruction,
			WeightKg:     weight,
		})
	}
	return out
}

func FromCart(cart domain.Cart) Quote {
	lines := cart.Lines()
	out := Quote{Lines: make([]Line, 0, len(lines)), Total: money.New(cart.Total()), Count: cart.Count()}
	for _, l := range lines {
		line := Line{
			ID:        l.ID,
			Type:      string(l.Type),
			Name:      l.Name,
			UnitPrice: money.New(l.UnitPrice),
			Quantity:  l.Quantity,
			LineTotal: money.New(l.Total()),
			ProductID: l.ProductID,
		}
		if l.Milling != nil {
			line.Config = &MillingConfig{
				Style:       l.Milling.Style,
				WeightKg:    money.New(l.Milling.WeightKg),
				Texture:     l.Milling.Texture,
				Instruction: l.Milling.Instruction,
			}
		}
		out.Lines = append(out.Lines, line)
	}
	return out
}

func FromCheckout(result *cartapp.CheckoutResult) CheckoutResponse {
	return CheckoutResponse{Orders: ordermapper.FromOrders(result.Orders), Total: money.New(result.Total)}
}
