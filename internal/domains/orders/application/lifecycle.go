package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/localborga/milling-orders/internal/domains/orders/domain"
)

// TransitionStatus moves an order to target and broadcasts the change.
//
// Transitions for the same id never interleave: the in-process lock orders local callers and
// the store's compare-and-set rejects a writer that lost a race with another replica. The
// store commit is the source of truth:
// a failed commit publishes nothing, and a failed publish does not undo the commit.
func (s *Service) TransitionStatus(ctx context.Context, id int64, target domain.Status) (*domain.Order, error) {
	if !target.IsValid() {
		return nil, mapError(fmt.Errorf("%w: %q", domain.ErrInvalidStatus, target))
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	unlock, err := s.orderLocks.Lock(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	defer unlock()

	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err)
	}
	event, err := order.TransitionTo(target, s.now())
	if err != nil {
		return nil, mapError(err)
	}
	updated, err := s.repo.UpdateStatus(ctx, id, event.PreviousStatus, target)
	if err != nil {
		return nil, mapStoreError(err)
	}
	event.ItemName = updated.ItemName
	s.publish(ctx, event)
	return updated, nil
}

// publish never fails the caller; the subscriber side re-reads through Track.
func (s *Service) publish(ctx context.Context, event domain.StatusChanged) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "status event not delivered",
			slog.Int64("order.id", event.OrderID),
			slog.String("order.status", event.Status.String()),
			slog.String("error", err.Error()))
	}
}
