package order

import (
	"context"
	"fmt"
	"time"

	"github.com/brickline-erp/brickline/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetOrder(ctx context.Context, id int64) (PurchaseOrder, error)
	GetLedger(ctx context.Context, orderID int64) ([]NegotiationEvent, error)
	ListOrders(ctx context.Context, filters ListFilters) ([]PurchaseOrder, error)
	LatestOfferAmounts(ctx context.Context, orderIDs []int64) (map[int64]float64, error)
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// ViewInvalidator is notified after every committed mutation so cached
// dashboard aggregations rebuild from fresh data.
type ViewInvalidator interface {
	Bump(ctx context.Context) error
}

// NegotiationMetrics counts committed ledger appends by kind.
type NegotiationMetrics interface {
	NegotiationEvent(kind string)
}

// Service is the single authority for order lifecycle mutations. Every UI
// action lands here, is validated against the transition table and the
// negotiation ledger, and returns the authoritative post-state.
type Service struct {
	repo        RepositoryPort
	audit       AuditPort
	idempotency *shared.IdempotencyStore
	views       ViewInvalidator
	metrics     NegotiationMetrics
	now         func() time.Time
}

// NewService constructs an order service.
func NewService(repo RepositoryPort, audit AuditPort, idem *shared.IdempotencyStore, views ViewInvalidator) *Service {
	return &Service{
		repo:        repo,
		audit:       audit,
		idempotency: idem,
		views:       views,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the service clock.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithMetrics attaches negotiation counters.
func (s *Service) WithMetrics(m NegotiationMetrics) *Service {
	s.metrics = m
	return s
}

// CreateOrderInput describes a draft order payload.
type CreateOrderInput struct {
	Number      string
	ProjectID   int64
	VendorID    int64
	Items       []Item
	TotalAmount float64
}

// CreateOrder persists a draft order with its line items.
func (s *Service) CreateOrder(ctx context.Context, input CreateOrderInput) (PurchaseOrder, error) {
	if len(input.Items) == 0 {
		return PurchaseOrder{}, fmt.Errorf("%w: minimal 1 item", ErrValidation)
	}
	if input.TotalAmount < 0 {
		return PurchaseOrder{}, ErrInvalidAmount
	}
	if input.Number == "" {
		input.Number = generateNumber("PO")
	}
	po := PurchaseOrder{
		Number:      input.Number,
		ProjectID:   input.ProjectID,
		VendorID:    input.VendorID,
		Status:      StatusDraft,
		Items:       input.Items,
		TotalAmount: input.TotalAmount,
		CreatedAt:   s.now(),
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.CreateOrder(ctx, po)
		if err != nil {
			return err
		}
		for i, item := range input.Items {
			if item.MaterialName == "" || item.Quantity <= 0 {
				return ErrValidation
			}
			if err := tx.InsertItem(ctx, id, i, item); err != nil {
				return err
			}
		}
		po.ID = id
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	s.recordAudit(ctx, "ORDER_CREATE", po.ID, map[string]any{"number": po.Number, "total": po.TotalAmount})
	s.bumpViews(ctx)
	return po, nil
}

// Dispatch sends a draft order to its vendor. Idempotent per order: a retried
// dispatch of an already-sent order reports the conflict instead of failing
// half way.
func (s *Service) Dispatch(ctx context.Context, orderID int64, actorID int64) (PurchaseOrder, error) {
	if s.idempotency != nil {
		key := fmt.Sprintf("ORDER_DISPATCH:%d", orderID)
		if err := s.idempotency.CheckAndInsert(ctx, key, "order.dispatch"); err != nil {
			return PurchaseOrder{}, err
		}
	}
	return s.Transition(ctx, orderID, EventDispatch, ActorOwner, actorID)
}

// Transition applies a lifecycle event to an order. Negotiation events record
// a ledger entry; fulfillment events (begin_work/ship/deliver/close) are pure
// status changes. The returned order is the committed post-state.
func (s *Service) Transition(ctx context.Context, orderID int64, event Event, actor Actor, actorID int64) (PurchaseOrder, error) {
	po, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return PurchaseOrder{}, err
	}
	ledger, err := s.repo.GetLedger(ctx, orderID)
	if err != nil {
		return PurchaseOrder{}, err
	}

	next, err := NextStatus(po.Status, event, actor)
	if err != nil {
		return PurchaseOrder{}, err
	}
	if event == EventAccept {
		if err := GuardAccept(ledger, actor); err != nil {
			return PurchaseOrder{}, err
		}
	}

	at := s.now()
	var final *float64
	if event == EventAccept {
		amount := AcceptedAmount(po, ledger)
		final = &amount
	}

	kind, hasEvent := NegotiationEventFor(event, ledger)
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if hasEvent {
			ev := NegotiationEvent{OrderID: orderID, Actor: actor, Kind: kind, At: at}
			if final != nil {
				ev.Amount = final
			}
			if err := s.appendLocked(ctx, tx, po.Status, ev); err != nil {
				return err
			}
		}
		if err := tx.UpdateStatus(ctx, orderID, po.Status, next, at); err != nil {
			return err
		}
		if final != nil {
			if err := tx.SetFinalAmount(ctx, orderID, *final); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, err
	}

	po.Status = next
	po.UpdatedAt = &at
	if final != nil {
		po.FinalAmount = final
	}
	if hasEvent {
		s.countEvent(kind)
	}
	s.recordAudit(ctx, "ORDER_"+auditSuffix(event), orderID, map[string]any{
		"number": po.Number,
		"actor":  string(actor),
		"status": string(next),
	})
	s.bumpViews(ctx)
	return po, nil
}

// AppendNegotiationEvent records an offer, counter-offer or message on the
// order's ledger. Offers and counter-offers move a sent order into
// negotiation; accept/reject kinds delegate to Transition so the status
// machine stays the single authority.
func (s *Service) AppendNegotiationEvent(ctx context.Context, orderID int64, actor Actor, kind EventKind, amount *float64, message string) (NegotiationEvent, error) {
	switch kind {
	case KindAccept:
		po, err := s.Transition(ctx, orderID, EventAccept, actor, 0)
		if err != nil {
			return NegotiationEvent{}, err
		}
		return NegotiationEvent{OrderID: orderID, Actor: actor, Kind: KindAccept, Amount: po.FinalAmount, At: *po.UpdatedAt}, nil
	case KindReject:
		po, err := s.Transition(ctx, orderID, EventReject, actor, 0)
		if err != nil {
			return NegotiationEvent{}, err
		}
		return NegotiationEvent{OrderID: orderID, Actor: actor, Kind: KindReject, At: *po.UpdatedAt}, nil
	case KindOffer, KindCounterOffer, KindMessage:
		// handled below
	default:
		return NegotiationEvent{}, ErrValidation
	}

	po, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return NegotiationEvent{}, err
	}
	ledger, err := s.repo.GetLedger(ctx, orderID)
	if err != nil {
		return NegotiationEvent{}, err
	}

	ev := NegotiationEvent{OrderID: orderID, Actor: actor, Kind: kind, Amount: amount, Message: message, At: s.now()}
	if kind != KindMessage {
		resolved, ok := NegotiationEventFor(EventCounter, ledger)
		if !ok {
			return NegotiationEvent{}, ErrValidation
		}
		ev.Kind = resolved
		if _, err := NextStatus(po.Status, EventCounter, actor); err != nil {
			return NegotiationEvent{}, err
		}
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := s.appendLocked(ctx, tx, po.Status, ev); err != nil {
			return err
		}
		if kind != KindMessage && po.Status == StatusSent {
			if err := tx.UpdateStatus(ctx, orderID, StatusSent, StatusInNegotiation, ev.At); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return NegotiationEvent{}, err
	}

	s.countEvent(ev.Kind)
	s.recordAudit(ctx, "ORDER_NEGOTIATION_EVENT", orderID, map[string]any{
		"kind":  string(ev.Kind),
		"actor": string(actor),
	})
	s.bumpViews(ctx)
	return ev, nil
}

// AppendOffer is the documented entry point for offer/counter-offer actions.
func (s *Service) AppendOffer(ctx context.Context, orderID int64, actor Actor, amount float64, message string) (NegotiationEvent, error) {
	return s.AppendNegotiationEvent(ctx, orderID, actor, KindCounterOffer, &amount, message)
}

// Accept closes the negotiation in favour of the outstanding offer.
func (s *Service) Accept(ctx context.Context, orderID int64, actor Actor) (PurchaseOrder, error) {
	return s.Transition(ctx, orderID, EventAccept, actor, 0)
}

// Reject terminates the order.
func (s *Service) Reject(ctx context.Context, orderID int64, actor Actor) (PurchaseOrder, error) {
	return s.Transition(ctx, orderID, EventReject, actor, 0)
}

// CurrentAsking returns the amount currently on the table for an order.
func (s *Service) CurrentAsking(ctx context.Context, orderID int64) (float64, error) {
	po, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return 0, err
	}
	ledger, err := s.repo.GetLedger(ctx, orderID)
	if err != nil {
		return 0, err
	}
	return CurrentAskingAmount(po, ledger), nil
}

// Get returns an order with its negotiation ledger.
func (s *Service) Get(ctx context.Context, orderID int64) (PurchaseOrder, []NegotiationEvent, error) {
	po, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return PurchaseOrder{}, nil, err
	}
	ledger, err := s.repo.GetLedger(ctx, orderID)
	if err != nil {
		return PurchaseOrder{}, nil, err
	}
	return po, ledger, nil
}

// ListFilters narrows order listings.
type ListFilters struct {
	VendorID  int64
	ProjectID int64
	Status    Status
	Bucket    string
	Search    string
}

// List returns orders matching the filters.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]PurchaseOrder, error) {
	if filters.Bucket != "" && filters.Status == "" {
		// display buckets are resolved back to stored statuses here, not in SQL
		if filters.Bucket == "new" {
			filters.Status = StatusSent
		} else {
			filters.Status = Status(filters.Bucket)
		}
	}
	return s.repo.ListOrders(ctx, filters)
}

// AskingAmounts resolves the current asking amount for a batch of orders
// in one query: the latest offer where one exists, the original quote
// otherwise. List screens use this instead of loading every ledger.
func (s *Service) AskingAmounts(ctx context.Context, orders []PurchaseOrder) (map[int64]float64, error) {
	out := make(map[int64]float64, len(orders))
	ids := make([]int64, 0, len(orders))
	for _, po := range orders {
		out[po.ID] = po.TotalAmount
		ids = append(ids, po.ID)
	}
	offers, err := s.repo.LatestOfferAmounts(ctx, ids)
	if err != nil {
		return nil, err
	}
	for id, amount := range offers {
		out[id] = amount
	}
	return out, nil
}

// appendLocked re-reads the latest committed ledger timestamp inside the
// transaction before validating the append. Two racing submissions both pass
// the optimistic check outside the tx; only the first commit wins, the second
// observes the newer timestamp and fails with ErrStaleNegotiation.
func (s *Service) appendLocked(ctx context.Context, tx TxRepository, status Status, ev NegotiationEvent) error {
	committed, err := tx.LedgerForUpdate(ctx, ev.OrderID)
	if err != nil {
		return err
	}
	if err := ValidateAppend(status, committed, ev); err != nil {
		return err
	}
	return tx.InsertEvent(ctx, ev)
}

func (s *Service) recordAudit(ctx context.Context, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{Action: action, Entity: "order", EntityID: fmt.Sprintf("%d", entityID), Meta: meta})
}

func (s *Service) countEvent(kind EventKind) {
	if s.metrics == nil {
		return
	}
	s.metrics.NegotiationEvent(string(kind))
}

func (s *Service) bumpViews(ctx context.Context) {
	if s.views == nil {
		return
	}
	_ = s.views.Bump(ctx)
}

func auditSuffix(event Event) string {
	switch event {
	case EventDispatch:
		return "DISPATCH"
	case EventCounter:
		return "COUNTER"
	case EventAccept:
		return "ACCEPT"
	case EventReject:
		return "REJECT"
	case EventBeginWork:
		return "BEGIN_WORK"
	case EventShip:
		return "SHIP"
	case EventDeliver:
		return "DELIVER"
	case EventClose:
		return "CLOSE"
	}
	return "TRANSITION"
}

func generateNumber(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
