package notify

import (
	"context"
	"errors"

	"github.com/localborga/milling-orders/internal/domains/orders/domain"
	"github.com/localborga/milling-orders/internal/domains/orders/ports"
)

// Fanout publishes to every target and joins their failures. One failing target never
// prevents delivery to the others.
type Fanout []ports.Publisher

func NewFanout(targets ...ports.Publisher) Fanout {
	out := make(Fanout, 0, len(targets))
	for _, t := range targets {
		if t != nil {
			out = append(out, t)
		}
	}
	return out
}

func (f Fanout) Publish(ctx context.Context, event domain.StatusChanged) error {
	var errs []error
	for _, target := range f {
		if err := target.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ ports.Publisher = Fanout(nil)
