// Package application prices carts on the server and turns them into orders.
package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/localborga/milling-orders/internal/domains/cart/domain"
	catalogports "github.com/localborga/milling-orders/internal/domains/catalog/ports"
	orderdomain "github.com/localborga/milling-orders/internal/domains/orders/domain"
	orderports "github.com/localborga/milling-orders/internal/domains/orders/ports"
	"github.com/localborga/milling-orders/internal/domains/pricing"
)

var (
	// ErrInvalidInput wraps every client mistake in a cart request.
	ErrInvalidInput = errors.New("invalid cart input")
	ErrEmptyCart    = errors.New("cart is empty")
)

// LineRequest is what a client may say about a line. Prices always come from the server.
type LineRequest struct {
	Type         pricing.LineType
	ProductID    int64
	Quantity     int
	ItemName     string
	MillingStyle string
	Texture      string
	Instruction  string
	WeightKg     decimal.Decimal
}

// CheckoutResult lists the orders created for a cart, one per line. Key is the checkout's
// idempotency key, issued by the server when the client sent none.
type CheckoutResult struct {
	Key    string
	Orders []*orderdomain.Order
	Total  decimal.Decimal
}

// PartialCheckoutError reports a checkout that stopped at a line after placing the lines
// before it. Retrying with Key replays Placed and resumes at the failed line.
type PartialCheckoutError struct {
	Key    string
	Placed []*orderdomain.Order
	Line   string
	Err    error
}

func (e *PartialCheckoutError) Error() string {
	return fmt.Sprintf("place order for %q after %d placed: %v", e.Line, len(e.Placed), e.Err)
}

func (e *PartialCheckoutError) Unwrap() error { return e.Err }

type Service struct {
	catalog catalogports.Service
	engine  pricing.Engine
	orders  orderports.WorkflowOrchestrator
	newKey  func() string
}

func NewService(catalog catalogports.Service, engine pricing.Engine, orders orderports.WorkflowOrchestrator) *Service {
	return &Service{catalog: catalog, engine: engine, orders: orders, newKey: uuid.NewString}
}

// Quote prices every requested line and aggregates them into a cart.
func (s *Service) Quote(ctx context.Context, requests []LineRequest) (domain.Cart, error) {
	cart := domain.New()
	for i, req := range requests {
		line, err := s.priceLine(ctx, req)
		if err != nil {
			return domain.Cart{}, fmt.Errorf("line %d: %w", i, err)
		}
		next, err := cart.Add(line)
		if err != nil {
			return domain.Cart{}, fmt.Errorf("%w: line %d: %w", ErrInvalidInput, i, err)
		}
		cart = next
	}
	return cart, nil
}

// Checkout quotes the cart and places one order per line. Each line gets a key derived from the
// checkout key, so a retried checkout replays the orders that already went through. A failure
// after the first line is a *PartialCheckoutError.
func (s *Service) Checkout(ctx context.Context, requests []LineRequest, idempotencyKey string) (*CheckoutResult, error) {
	if len(requests) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, ErrEmptyCart)
	}
	if s.orders == nil {
		return nil, errors.New("cart checkout has no order placement configured")
	}
	cart, err := s.Quote(ctx, requests)
	if err != nil {
		return nil, err
	}
	key := strings.TrimSpace(idempotencyKey)
	if key == "" {
		key = s.newKey()
	}
	result := &CheckoutResult{Key: key, Total: cart.Total()}
	for i, line := range cart.Lines() {
		order, err := s.orders.PlaceOrder(ctx, orderports.PlaceOrderInput{
			Draft:          draftFromLine(line),
			IdempotencyKey: fmt.Sprintf("%s#%d", key, i),
		})
		if err != nil {
			if len(result.Orders) == 0 {
				return nil, fmt.Errorf("place order for %q: %w", line.Name, err)
			}
			return nil, &PartialCheckoutError{Key: key, Placed: result.Orders, Line: line.Name, Err: err}
		}
		result.Orders = append(result.Orders, order)
	}
	return result, nil
}

func (s *Service) priceLine(ctx context.Context, req LineRequest) (domain.Line, error) {
	switch req.Type {
	case pricing.Shelf:
		product, err := s.catalog.GetProduct(ctx, req.ProductID)
		if err != nil {
			if errors.Is(err, catalogports.ErrNotFound) {
				return domain.Line{}, fmt.Errorf("%w: product %d: %w", ErrInvalidInput, req.ProductID, err)
			}
			return domain.Line{}, err
		}
		if _, err := s.engine.PriceShelf(product.UnitPrice, req.Quantity); err != nil {
			return domain.Line{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		return domain.Line{
			Type:      domain.Shelf,
			Name:      product.Name,
			UnitPrice: product.UnitPrice,
			Quantity:  req.Quantity,
			ProductID: product.ID,
		}, nil
	case pricing.CustomMilling:
		price, err := s.engine.PriceCustomMilling(req.WeightKg)
		if err != nil {
			return domain.Line{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		return domain.Line{
			Type:      domain.CustomMilling,
			Name:      req.ItemName,
			UnitPrice: price,
			Quantity:  1,
			Milling: &domain.MillingConfig{
				Style:       strings.TrimSpace(req.MillingStyle),
				WeightKg:    req.WeightKg,
				Texture:     strings.TrimSpace(req.Texture),
				Instruction: strings.TrimSpace(req.Instruction),
			},
		}, nil
	default:
		return domain.Line{}, fmt.Errorf("%w: %w: %q", ErrInvalidInput, pricing.ErrUnknownLineType, req.Type)
	}
}

func draftFromLine(line domain.Line) orderdomain.Draft {
	total := line.Total()
	draft := orderdomain.Draft{ItemName: line.Name, TotalPrice: &total}
	if line.Milling != nil {
		weight := line.Milling.WeightKg
		draft.WeightKg = &weight
		if line.Milling.Style != "" {
			style := line.Milling.Style
			draft.MillingStyle = &style
		}
	}
	return draft
}
