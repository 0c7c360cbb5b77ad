package order

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryOrderRepo struct {
	orders map[int64]PurchaseOrder
	events map[int64][]NegotiationEvent
	nextID int64
}

type memoryOrderTx struct {
	repo *memoryOrderRepo
}

func newMemoryOrderRepo() *memoryOrderRepo {
	return &memoryOrderRepo{
		orders: make(map[int64]PurchaseOrder),
		events: make(map[int64][]NegotiationEvent),
	}
}

func (r *memoryOrderRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryOrderTx{repo: r})
}

func (r *memoryOrderRepo) GetOrder(ctx context.Context, id int64) (PurchaseOrder, error) {
	po, ok := r.orders[id]
	if !ok {
		return PurchaseOrder{}, ErrNotFound
	}
	return po, nil
}

func (r *memoryOrderRepo) GetLedger(ctx context.Context, orderID int64) ([]NegotiationEvent, error) {
	return append([]NegotiationEvent(nil), r.events[orderID]...), nil
}

func (r *memoryOrderRepo) LatestOfferAmounts(ctx context.Context, orderIDs []int64) (map[int64]float64, error) {
	out := make(map[int64]float64)
	for _, id := range orderIDs {
		if last := LatestOffer(r.events[id]); last != nil && last.Amount != nil {
			out[id] = *last.Amount
		}
	}
	return out, nil
}

func (r *memoryOrderRepo) ListOrders(ctx context.Context, filters ListFilters) ([]PurchaseOrder, error) {
	var out []PurchaseOrder
	for _, po := range r.orders {
		if filters.VendorID > 0 && po.VendorID != filters.VendorID {
			continue
		}
		if filters.Status != "" && po.Status != filters.Status {
			continue
		}
		out = append(out, po)
	}
	return out, nil
}

func (tx *memoryOrderTx) CreateOrder(ctx context.Context, po PurchaseOrder) (int64, error) {
	tx.repo.nextID++
	po.ID = tx.repo.nextID
	po.Items = nil // items arrive through InsertItem, as in the SQL repository
	tx.repo.orders[po.ID] = po
	return po.ID, nil
}

func (tx *memoryOrderTx) InsertItem(ctx context.Context, orderID int64, position int, item Item) error {
	po := tx.repo.orders[orderID]
	po.Items = append(po.Items, item)
	tx.repo.orders[orderID] = po
	return nil
}

func (tx *memoryOrderTx) UpdateStatus(ctx context.Context, id int64, from, to Status, at time.Time) error {
	po, ok := tx.repo.orders[id]
	if !ok {
		return ErrNotFound
	}
	if po.Status != from {
		return ErrInvalidTransition
	}
	po.Status = to
	po.UpdatedAt = &at
	tx.repo.orders[id] = po
	return nil
}

func (tx *memoryOrderTx) SetFinalAmount(ctx context.Context, id int64, amount float64) error {
	po := tx.repo.orders[id]
	po.FinalAmount = &amount
	tx.repo.orders[id] = po
	return nil
}

func (tx *memoryOrderTx) LedgerForUpdate(ctx context.Context, orderID int64) ([]NegotiationEvent, error) {
	if _, ok := tx.repo.orders[orderID]; !ok {
		return nil, ErrNotFound
	}
	return append([]NegotiationEvent(nil), tx.repo.events[orderID]...), nil
}

func (tx *memoryOrderTx) InsertEvent(ctx context.Context, ev NegotiationEvent) error {
	tx.repo.nextID++
	ev.ID = tx.repo.nextID
	tx.repo.events[ev.OrderID] = append(tx.repo.events[ev.OrderID], ev)
	return nil
}

type tickingClock struct {
	at time.Time
}

func (c *tickingClock) now() time.Time {
	c.at = c.at.Add(time.Second)
	return c.at
}

func newTestService(repo *memoryOrderRepo) (*Service, *tickingClock) {
	clock := &tickingClock{at: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	svc := NewService(repo, nil, nil, nil).WithClock(clock.now)
	return svc, clock
}

func mustCreateSent(t *testing.T, svc *Service, total float64) PurchaseOrder {
	t.Helper()
	ctx := context.Background()
	po, err := svc.CreateOrder(ctx, CreateOrderInput{
		ProjectID:   1,
		VendorID:    7,
		TotalAmount: total,
		Items:       []Item{{MaterialName: "Cement", Quantity: 100, Unit: "bags"}},
	})
	require.NoError(t, err)
	po, err = svc.Dispatch(ctx, po.ID, 42)
	require.NoError(t, err)
	require.Equal(t, StatusSent, po.Status)
	return po
}

func TestCreateOrderValidation(t *testing.T) {
	svc, _ := newTestService(newMemoryOrderRepo())
	ctx := context.Background()

	_, err := svc.CreateOrder(ctx, CreateOrderInput{ProjectID: 1, VendorID: 1, TotalAmount: 10})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateOrder(ctx, CreateOrderInput{
		ProjectID: 1, VendorID: 1, TotalAmount: -5,
		Items: []Item{{MaterialName: "Sand", Quantity: 1, Unit: "ton"}},
	})
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestAskingAmountBeforeNegotiation(t *testing.T) {
	repo := newMemoryOrderRepo()
	svc, _ := newTestService(repo)
	po := mustCreateSent(t, svc, 50000)

	asking, err := svc.CurrentAsking(context.Background(), po.ID)
	require.NoError(t, err)
	require.Equal(t, 50000.0, asking)
	require.Equal(t, "new", Display(po.Status).Bucket)
}

func TestCounterOfferMovesOrderIntoNegotiation(t *testing.T) {
	repo := newMemoryOrderRepo()
	svc, _ := newTestService(repo)
	po := mustCreateSent(t, svc, 50000)
	ctx := context.Background()

	ev, err := svc.AppendOffer(ctx, po.ID, ActorVendor, 45000, "can do it cheaper")
	require.NoError(t, err)
	require.Equal(t, KindOffer, ev.Kind)

	got, err := repo.GetOrder(ctx, po.ID)
	require.NoError(t, err)
	require.Equal(t, StatusInNegotiation, got.Status)

	asking, err := svc.CurrentAsking(ctx, po.ID)
	require.NoError(t, err)
	require.Equal(t, 45000.0, asking)

	accepted, err := svc.Accept(ctx, po.ID, ActorOwner)
	require.NoError(t, err)
	require.Equal(t, StatusAccepted, accepted.Status)
	require.NotNil(t, accepted.FinalAmount)
	require.Equal(t, 45000.0, *accepted.FinalAmount)
}

func TestDirectAcceptFixesOriginalQuote(t *testing.T) {
	repo := newMemoryOrderRepo()
	svc, _ := newTestService(repo)
	po := mustCreateSent(t, svc, 82000)

	accepted, err := svc.Accept(context.Background(), po.ID, ActorVendor)
	require.NoError(t, err)
	require.Equal(t, StatusAccepted, accepted.Status)
	require.Equal(t, 82000.0, *accepted.FinalAmount)
}

func TestSelfAcceptanceRejected(t *testing.T) {
	repo := newMemoryOrderRepo()
	svc, _ := newTestService(repo)
	po := mustCreateSent(t, svc, 50000)
	ctx := context.Background()

	_, err := svc.AppendOffer(ctx, po.ID, ActorVendor, 45000, "")
	require.NoError(t, err)
	_, err = svc.AppendOffer(ctx, po.ID, ActorOwner, 40000, "")
	require.NoError(t, err)

	// owner made the last counter; only the vendor can accept it
	_, err = svc.Accept(ctx, po.ID, ActorOwner)
	require.ErrorIs(t, err, ErrSelfAcceptance)

	accepted, err := svc.Accept(ctx, po.ID, ActorVendor)
	require.NoError(t, err)
	require.Equal(t, 40000.0, *accepted.FinalAmount)

	// accepting an already-accepted order is not a legal transition
	_, err = svc.Accept(ctx, po.ID, ActorOwner)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestStaleCounterOfferLosesRace(t *testing.T) {
	repo := newMemoryOrderRepo()
	svc, clock := newTestService(repo)
	po := mustCreateSent(t, svc, 50000)
	ctx := context.Background()

	_, err := svc.AppendOffer(ctx, po.ID, ActorVendor, 48000, "")
	require.NoError(t, err)

	// a submission stamped before the committed counter lost the race
	clock.at = clock.at.Add(-time.Hour)
	_, err = svc.AppendOffer(ctx, po.ID, ActorOwner, 47000, "")
	require.ErrorIs(t, err, ErrStaleNegotiation)
}

func TestVendorOnlyRespondsToSentOrders(t *testing.T) {
	repo := newMemoryOrderRepo()
	svc, _ := newTestService(repo)
	po := mustCreateSent(t, svc, 50000)
	ctx := context.Background()

	_, err := svc.AppendOffer(ctx, po.ID, ActorOwner, 40000, "")
	require.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.Reject(ctx, po.ID, ActorOwner)
	require.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.Reject(ctx, po.ID, ActorVendor)
	require.NoError(t, err)
}

func TestFulfillmentFlow(t *testing.T) {
	repo := newMemoryOrderRepo()
	svc, _ := newTestService(repo)
	po := mustCreateSent(t, svc, 61000)
	ctx := context.Background()

	_, err := svc.Accept(ctx, po.ID, ActorVendor)
	require.NoError(t, err)

	// vendor cannot start work; that is the owner's call
	_, err = svc.Transition(ctx, po.ID, EventBeginWork, ActorVendor, 0)
	require.ErrorIs(t, err, ErrInvalidTransition)

	steps := []struct {
		event Event
		actor Actor
		want  Status
	}{
		{EventBeginWork, ActorOwner, StatusInProgress},
		{EventShip, ActorVendor, StatusShipped},
		{EventDeliver, ActorVendor, StatusDelivered},
		{EventClose, ActorOwner, StatusCompleted},
	}
	for _, step := range steps {
		got, err := svc.Transition(ctx, po.ID, step.event, step.actor, 0)
		require.NoError(t, err)
		require.Equal(t, step.want, got.Status)
	}

	// completed is terminal
	_, err = svc.Transition(ctx, po.ID, EventShip, ActorVendor, 0)
	require.ErrorIs(t, err, ErrInvalidTransition)

	// fulfillment transitions are pure status changes, no ledger amounts
	ledger, err := repo.GetLedger(ctx, po.ID)
	require.NoError(t, err)
	require.Len(t, ledger, 1)
	require.Equal(t, KindAccept, ledger[0].Kind)
}

func TestMessageEventKeepsStatus(t *testing.T) {
	repo := newMemoryOrderRepo()
	svc, _ := newTestService(repo)
	po := mustCreateSent(t, svc, 30000)
	ctx := context.Background()

	ev, err := svc.AppendNegotiationEvent(ctx, po.ID, ActorVendor, KindMessage, nil, "delivery window?")
	require.NoError(t, err)
	require.Equal(t, KindMessage, ev.Kind)

	got, err := repo.GetOrder(ctx, po.ID)
	require.NoError(t, err)
	require.Equal(t, StatusSent, got.Status)
}

func TestNegativeOfferRejected(t *testing.T) {
	repo := newMemoryOrderRepo()
	svc, _ := newTestService(repo)
	po := mustCreateSent(t, svc, 30000)

	_, err := svc.AppendOffer(context.Background(), po.ID, ActorVendor, -1, "")
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestAskingAmountsFollowLatestCounter(t *testing.T) {
	repo := newMemoryOrderRepo()
	svc, _ := newTestService(repo)
	ctx := context.Background()

	countered := mustCreateSent(t, svc, 50000)
	untouched := mustCreateSent(t, svc, 30000)

	_, err := svc.AppendOffer(ctx, countered.ID, ActorVendor, 45000, "")
	require.NoError(t, err)

	orders, err := svc.List(ctx, ListFilters{})
	require.NoError(t, err)
	asking, err := svc.AskingAmounts(ctx, orders)
	require.NoError(t, err)
	require.Equal(t, 45000.0, asking[countered.ID])
	require.Equal(t, 30000.0, asking[untouched.ID])
}

// staleReadRepo serves a fixed pre-transition snapshot from GetOrder while
// the underlying store has already moved on.
type staleReadRepo struct {
	*memoryOrderRepo
	stale PurchaseOrder
}

func (r *staleReadRepo) GetOrder(ctx context.Context, id int64) (PurchaseOrder, error) {
	if id == r.stale.ID {
		return r.stale, nil
	}
	return r.memoryOrderRepo.GetOrder(ctx, id)
}

func TestFulfillmentTransitionFailsWhenStatusMovedOn(t *testing.T) {
	repo := newMemoryOrderRepo()
	svc, _ := newTestService(repo)
	po := mustCreateSent(t, svc, 61000)
	ctx := context.Background()

	_, err := svc.Accept(ctx, po.ID, ActorVendor)
	require.NoError(t, err)
	inProgress, err := svc.Transition(ctx, po.ID, EventBeginWork, ActorOwner, 0)
	require.NoError(t, err)
	_, err = svc.Transition(ctx, po.ID, EventShip, ActorVendor, 0)
	require.NoError(t, err)

	// a second ship validated against the in_progress snapshot must not
	// commit against the now-shipped row
	staleSvc := NewService(&staleReadRepo{memoryOrderRepo: repo, stale: inProgress}, nil, nil, nil)
	_, err = staleSvc.Transition(ctx, po.ID, EventShip, ActorVendor, 0)
	require.ErrorIs(t, err, ErrInvalidTransition)

	got, err := repo.GetOrder(ctx, po.ID)
	require.NoError(t, err)
	require.Equal(t, StatusShipped, got.Status)
}

func TestUnknownOrderPropagates(t *testing.T) {
	svc, _ := newTestService(newMemoryOrderRepo())
	_, err := svc.Accept(context.Background(), 999, ActorVendor)
	require.ErrorIs(t, err, ErrNotFound)
}
