package application

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ordermemory "github.com/localborga/milling-orders/internal/domains/orders/adapters/memory"
	"github.com/localborga/milling-orders/internal/domains/orders/adapters/notify"
	"github.com/localborga/milling-orders/internal/domains/orders/domain"
	"github.com/localborga/milling-orders/internal/domains/orders/ports"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.StatusChanged
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event domain.StatusChanged) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) published() []domain.StatusChanged {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.StatusChanged(nil), p.events...)
}

// failingRepo fails UpdateStatus while delegating everything else.
type failingRepo struct {
	*ordermemory.Repository
	updateErr error
}

func (f *failingRepo) UpdateStatus(ctx context.Context, id int64, from, to domain.Status) (*domain.Order, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return f.Repository.UpdateStatus(ctx, id, from, to)
}

// lockstepRepo holds every GetByID until all expected readers have loaded the order, so
// separate services act on the same stale status.
type lockstepRepo struct {
	ports.Repository
	reads sync.WaitGroup
}

func (r *lockstepRepo) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	order, err := r.Repository.GetByID(ctx, id)
	r.reads.Done()
	r.reads.Wait()
	return order, err
}

// unrecordedKeys never manages to store an idempotency record.
type unrecordedKeys struct {
	*ordermemory.IdempotencyStore
}

func (unrecordedKeys) Save(context.Context, ports.IdempotencyRecord) (*ports.IdempotencyRecord, error) {
	return nil, errors.New("connection reset")
}

func gariDraft() domain.Draft {
	weight := decimal.NewFromInt(20)
	price := decimal.RequireFromString("60.00")
	style := "fine"
	return domain.Draft{ItemName: "Gari", MillingStyle: &style, WeightKg: &weight, TotalPrice: &price}
}

func placeGari(t *testing.T, svc *Service) *domain.Order {
	t.Helper()
	order, err := svc.PlaceOrder(context.Background(), ports.PlaceOrderInput{Draft: gariDraft()})
	require.NoError(t, err)
	return order
}

func TestPlaceOrder_PersistsPending(t *testing.T) {
	svc := NewService(ordermemory.NewRepository())

	order := placeGari(t, svc)
	require.Equal(t, int64(1), order.ID)
	require.Equal(t, domain.StatusPending, order.Status)
	require.Equal(t, "60.00", order.TotalPrice.StringFixed(2))
	require.False(t, order.CreatedAt.IsZero())

	second := placeGari(t, svc)
	require.Greater(t, second.ID, order.ID)
}

func TestPlaceOrder_InvalidInput(t *testing.T) {
	svc := NewService(ordermemory.NewRepository())

	_, err := svc.PlaceOrder(context.Background(), ports.PlaceOrderInput{})
	require.ErrorIs(t, err, ErrInvalidInput)
	require.ErrorIs(t, err, domain.ErrItemNameRequired)

	_, err = svc.PlaceOrder(context.Background(), ports.PlaceOrderInput{Draft: domain.Draft{ItemName: "Gari"}})
	require.ErrorIs(t, err, ErrInvalidInput)
	require.ErrorIs(t, err, domain.ErrTotalPriceRequired)
}

func TestListOrders_NewestFirst(t *testing.T) {
	svc := NewService(ordermemory.NewRepository())
	first := placeGari(t, svc)
	second := placeGari(t, svc)

	orders, err := svc.ListOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 2)
	require.Equal(t, second.ID, orders[0].ID)
	require.Equal(t, first.ID, orders[1].ID)
}

func TestTransitionStatus_ReadYourWrites(t *testing.T) {
	cases := [][]domain.Status{
		{domain.StatusMilling},
		{domain.StatusCompleted},
		{domain.StatusMilling, domain.StatusCompleted},
	}
	for _, path := range cases {
		svc := NewService(ordermemory.NewRepository())
		order := placeGari(t, svc)
		for _, target := range path {
			updated, err := svc.TransitionStatus(context.Background(), order.ID, target)
			require.NoError(t, err)
			require.Equal(t, target, updated.Status)

			snapshot, err := svc.Track(context.Background(), order.ID)
			require.NoError(t, err)
			require.Equal(t, target, snapshot.Status)
		}
	}
}

func TestTransitionStatus_IllegalLeavesStatusUnchanged(t *testing.T) {
	publisher := &recordingPublisher{}
	svc := NewService(ordermemory.NewRepository(), WithPublisher(publisher))
	order := placeGari(t, svc)

	_, err := svc.TransitionStatus(context.Background(), order.ID, domain.StatusPending)
	require.ErrorIs(t, err, ErrIllegalTransition)

	_, err = svc.TransitionStatus(context.Background(), order.ID, domain.StatusMilling)
	require.NoError(t, err)
	_, err = svc.TransitionStatus(context.Background(), order.ID, domain.StatusPending)
	require.ErrorIs(t, err, ErrIllegalTransition)
	_, err = svc.TransitionStatus(context.Background(), order.ID, domain.StatusCompleted)
	require.NoError(t, err)

	for _, target := range []domain.Status{domain.StatusPending, domain.StatusMilling, domain.StatusCompleted} {
		_, err = svc.TransitionStatus(context.Background(), order.ID, target)
		require.ErrorIs(t, err, ErrIllegalTransition)
	}

	snapshot, err := svc.Track(context.Background(), order.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusCompleted, snapshot.Status)
	require.Len(t, publisher.published(), 2)
}

func TestTransitionStatus_InvalidTarget(t *testing.T) {
	svc := NewService(ordermemory.NewRepository())
	order := placeGari(t, svc)

	_, err := svc.TransitionStatus(context.Background(), order.ID, domain.Status("shipped"))
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestTransitionStatus_NotFound(t *testing.T) {
	publisher := &recordingPublisher{}
	svc := NewService(ordermemory.NewRepository(), WithPublisher(publisher))

	_, err := svc.TransitionStatus(context.Background(), 42, domain.StatusMilling)
	require.ErrorIs(t, err, ErrOrderNotFound)
	require.Empty(t, publisher.published())
}

func TestTransitionStatus_StoreFailurePublishesNothing(t *testing.T) {
	repo := &failingRepo{Repository: ordermemory.NewRepository()}
	publisher := &recordingPublisher{}
	svc := NewService(repo, WithPublisher(publisher))
	order := placeGari(t, svc)

	repo.updateErr = errors.New("connection reset")
	_, err := svc.TransitionStatus(context.Background(), order.ID, domain.StatusMilling)
	require.ErrorIs(t, err, ErrStoreUnavailable)
	require.Empty(t, publisher.published())

	snapshot, err := svc.Track(context.Background(), order.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, snapshot.Status)
}

func TestTransitionStatus_PublishFailureStillCommits(t *testing.T) {
	publisher := &recordingPublisher{err: ports.ErrBusUnavailable}
	svc := NewService(ordermemory.NewRepository(), WithPublisher(publisher))
	order := placeGari(t, svc)

	updated, err := svc.TransitionStatus(context.Background(), order.ID, domain.StatusMilling)
	require.NoError(t, err)
	require.Equal(t, domain.StatusMilling, updated.Status)

	events := publisher.published()
	require.Len(t, events, 1)
	require.Equal(t, domain.StatusPending, events[0].PreviousStatus)
	require.Equal(t, "Gari", events[0].ItemName)
}

func TestTransitionStatus_SerializedPerOrder(t *testing.T) {
	publisher := &recordingPublisher{}
	svc := NewService(ordermemory.NewRepository(), WithPublisher(publisher))
	order := placeGari(t, svc)

	var succeeded atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.TransitionStatus(context.Background(), order.ID, domain.StatusMilling); err == nil {
				succeeded.Add(1)
			} else {
				assert.ErrorIs(t, err, ErrIllegalTransition)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), succeeded.Load())
	require.Len(t, publisher.published(), 1)
	require.Zero(t, svc.orderLocks.size())
}

func TestTrack_UnknownOrder(t *testing.T) {
	svc := NewService(ordermemory.NewRepository())
	_, err := svc.Track(context.Background(), 99)
	require.ErrorIs(t, err, ErrOrderNotFound)
}

func TestPlaceOrder_IdempotentReplay(t *testing.T) {
	repo := ordermemory.NewRepository()
	svc := NewService(repo, WithIdempotencyStore(ordermemory.NewIdempotencyStore()))

	input := ports.PlaceOrderInput{Draft: gariDraft(), IdempotencyKey: "checkout-1"}
	first, err := svc.PlaceOrder(context.Background(), input)
	require.NoError(t, err)
	again, err := svc.PlaceOrder(context.Background(), input)
	require.NoError(t, err)
	require.Equal(t, first.ID, again.ID)

	orders, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 1)
}

func TestPlaceOrder_IdempotencyConflict(t *testing.T) {
	svc := NewService(ordermemory.NewRepository(), WithIdempotencyStore(ordermemory.NewIdempotencyStore()))

	_, err := svc.PlaceOrder(context.Background(), ports.PlaceOrderInput{Draft: gariDraft(), IdempotencyKey: "k"})
	require.NoError(t, err)

	other := gariDraft()
	other.ItemName = "Hausa Koko Mix"
	_, err = svc.PlaceOrder(context.Background(), ports.PlaceOrderInput{Draft: other, IdempotencyKey: "k"})
	require.ErrorIs(t, err, ports.ErrIdempotencyConflict)
}

func TestPlaceOrder_KeyRecordFailureKeepsPlacedOrder(t *testing.T) {
	repo := ordermemory.NewRepository()
	svc := NewService(repo, WithIdempotencyStore(unrecordedKeys{ordermemory.NewIdempotencyStore()}))

	order, err := svc.PlaceOrder(context.Background(), ports.PlaceOrderInput{Draft: gariDraft(), IdempotencyKey: "checkout-9"})
	require.NoError(t, err)
	require.NotNil(t, order)
	require.Equal(t, domain.StatusPending, order.Status)

	orders, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 1)
	require.Equal(t, order.ID, orders[0].ID)
}

func TestPlaceOrder_ConcurrentSameKeyCreatesOnce(t *testing.T) {
	repo := ordermemory.NewRepository()
	svc := NewService(repo, WithIdempotencyStore(ordermemory.NewIdempotencyStore()))

	ids := make([]int64, 8)
	var wg sync.WaitGroup
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			order, err := svc.PlaceOrder(context.Background(), ports.PlaceOrderInput{Draft: gariDraft(), IdempotencyKey: "same"})
			if err == nil {
				ids[i] = order.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		require.Equal(t, ids[0], id)
	}
	orders, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 1)
}

func TestKeyedMutex_RespectsContext(t *testing.T) {
	locks := newKeyedMutex[int64]()
	unlock, err := locks.Lock(context.Background(), 1)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = locks.Lock(ctx, 1)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	other, err := locks.Lock(context.Background(), 2)
	require.NoError(t, err)
	other()

	unlock()
	unlock()
	require.Zero(t, locks.size())
}

func TestEndToEnd_GariOrderTrackedAfterMissedEvent(t *testing.T) {
	ctx := context.Background()
	bus := notify.NewBus()
	svc := NewService(ordermemory.NewRepository(), WithPublisher(bus))

	order := placeGari(t, svc)
	require.Equal(t, domain.StatusPending, order.Status)

	watcher, err := bus.Subscribe(ctx)
	require.NoError(t, err)
	defer watcher.Close()
	dropped, err := bus.Subscribe(ctx)
	require.NoError(t, err)

	_, err = svc.TransitionStatus(ctx, order.ID, domain.StatusMilling)
	require.NoError(t, err)

	select {
	case ev := <-watcher.Events():
		require.Equal(t, order.ID, ev.OrderID)
		require.Equal(t, domain.StatusMilling, ev.Status)
	case <-time.After(time.Second):
		t.Fatal("connected subscriber missed the milling event")
	}

	// The second client disconnects without reading the milling event.
	dropped.Close()

	_, err = svc.TransitionStatus(ctx, order.ID, domain.StatusCompleted)
	require.NoError(t, err)

	snapshot, err := svc.Track(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusCompleted, snapshot.Status)
	require.Equal(t, "Gari", snapshot.ItemName)
	require.Equal(t, "20", snapshot.WeightKg.String())
}

func TestTransitionStatus_ReplicasCannotBothCommit(t *testing.T) {
	shared := ordermemory.NewRepository()
	order := placeGari(t, NewService(shared))

	repo := &lockstepRepo{Repository: shared}
	repo.reads.Add(2)
	replicaA := NewService(repo)
	replicaB := NewService(repo)

	targets := []domain.Status{domain.StatusCompleted, domain.StatusMilling}
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i, svc := range []*Service{replicaA, replicaB} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.TransitionStatus(context.Background(), order.ID, targets[i])
		}()
	}
	wg.Wait()

	winner := -1
	for i, err := range errs {
		if err == nil {
			require.Equal(t, -1, winner, "both replicas committed")
			winner = i
			continue
		}
		require.ErrorIs(t, err, ErrIllegalTransition)
	}
	require.NotEqual(t, -1, winner)

	stored, err := shared.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	require.Equal(t, targets[winner], stored.Status)
}
