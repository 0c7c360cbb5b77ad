package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	CreateOrder(ctx context.Context, po PurchaseOrder) (int64, error)
	InsertItem(ctx context.Context, orderID int64, position int, item Item) error
	UpdateStatus(ctx context.Context, id int64, from, to Status, at time.Time) error
	SetFinalAmount(ctx context.Context, id int64, amount float64) error
	LedgerForUpdate(ctx context.Context, orderID int64) ([]NegotiationEvent, error)
	InsertEvent(ctx context.Context, ev NegotiationEvent) error
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps callback in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	if err := fn(ctx, &txRepo{tx: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

const orderColumns = `o.id, o.number, o.project_id, o.vendor_id, o.status, o.total_amount, o.final_amount, o.created_at, o.updated_at`

// GetOrder returns an order with its items.
func (r *Repository) GetOrder(ctx context.Context, id int64) (PurchaseOrder, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM purchase_orders o WHERE o.id = $1`, id)
	po, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseOrder{}, ErrNotFound
		}
		return PurchaseOrder{}, err
	}
	items, err := r.orderItems(ctx, id)
	if err != nil {
		return PurchaseOrder{}, err
	}
	po.Items = items
	return po, nil
}

func (r *Repository) orderItems(ctx context.Context, orderID int64) ([]Item, error) {
	rows, err := r.pool.Query(ctx, `SELECT material_name, quantity, unit
FROM purchase_order_items WHERE order_id = $1 ORDER BY position ASC`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Item
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.MaterialName, &item.Quantity, &item.Unit); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// LatestOfferAmounts returns the most recent offer/counter_offer amount per
// order, keyed by order id. Orders without an offer are absent from the map.
func (r *Repository) LatestOfferAmounts(ctx context.Context, orderIDs []int64) (map[int64]float64, error) {
	out := make(map[int64]float64, len(orderIDs))
	if len(orderIDs) == 0 {
		return out, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT ON (order_id) order_id, amount
FROM negotiation_events
WHERE order_id = ANY($1) AND kind IN ('offer', 'counter_offer') AND amount IS NOT NULL
ORDER BY order_id, occurred_at DESC, id DESC`, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var orderID int64
		var amount float64
		if err := rows.Scan(&orderID, &amount); err != nil {
			return nil, err
		}
		out[orderID] = amount
	}
	return out, rows.Err()
}

// GetLedger returns the order's negotiation events in append order.
func (r *Repository) GetLedger(ctx context.Context, orderID int64) ([]NegotiationEvent, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, order_id, actor, kind, amount, message, occurred_at
FROM negotiation_events WHERE order_id = $1 ORDER BY occurred_at ASC, id ASC`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

// ListOrders returns orders matching the filters, most recently updated first.
func (r *Repository) ListOrders(ctx context.Context, filters ListFilters) ([]PurchaseOrder, error) {
	sql := `SELECT ` + orderColumns + ` FROM purchase_orders o WHERE 1=1`
	args := []any{}
	argNum := 1
	if filters.VendorID > 0 {
		sql += ` AND o.vendor_id = $` + itoa(argNum)
		args = append(args, filters.VendorID)
		argNum++
	}
	if filters.ProjectID > 0 {
		sql += ` AND o.project_id = $` + itoa(argNum)
		args = append(args, filters.ProjectID)
		argNum++
	}
	if filters.Status != "" {
		sql += ` AND o.status = $` + itoa(argNum)
		args = append(args, string(filters.Status))
		argNum++
	}
	if filters.Search != "" {
		sql += ` AND o.number ILIKE $` + itoa(argNum)
		args = append(args, "%"+filters.Search+"%")
		argNum++
	}
	sql += ` ORDER BY COALESCE(o.updated_at, o.created_at) DESC`

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []PurchaseOrder
	for rows.Next() {
		po, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, po)
	}
	return orders, rows.Err()
}

func (tx *txRepo) CreateOrder(ctx context.Context, po PurchaseOrder) (int64, error) {
	var id int64
	err := tx.tx.QueryRow(ctx, `INSERT INTO purchase_orders (number, project_id, vendor_id, status, total_amount, created_at)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		po.Number, po.ProjectID, po.VendorID, string(po.Status), po.TotalAmount, po.CreatedAt).Scan(&id)
	return id, err
}

func (tx *txRepo) InsertItem(ctx context.Context, orderID int64, position int, item Item) error {
	_, err := tx.tx.Exec(ctx, `INSERT INTO purchase_order_items (order_id, position, material_name, quantity, unit)
VALUES ($1, $2, $3, $4, $5)`, orderID, position, item.MaterialName, item.Quantity, item.Unit)
	return err
}

// UpdateStatus commits a transition only when the stored status still matches
// the one the transition was validated against. Zero affected rows means the
// order moved on since the pre-transaction read.
func (tx *txRepo) UpdateStatus(ctx context.Context, id int64, from, to Status, at time.Time) error {
	tag, err := tx.tx.Exec(ctx, `UPDATE purchase_orders SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
		string(to), at, id, string(from))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidTransition
	}
	return nil
}

func (tx *txRepo) SetFinalAmount(ctx context.Context, id int64, amount float64) error {
	_, err := tx.tx.Exec(ctx, `UPDATE purchase_orders SET final_amount = $1 WHERE id = $2`, amount, id)
	return err
}

// LedgerForUpdate locks the order row and re-reads its committed events so
// the stale-write check runs against state no concurrent writer can change
// under us.
func (tx *txRepo) LedgerForUpdate(ctx context.Context, orderID int64) ([]NegotiationEvent, error) {
	var locked int64
	if err := tx.tx.QueryRow(ctx, `SELECT id FROM purchase_orders WHERE id = $1 FOR UPDATE`, orderID).Scan(&locked); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	rows, err := tx.tx.Query(ctx, `SELECT id, order_id, actor, kind, amount, message, occurred_at
FROM negotiation_events WHERE order_id = $1 ORDER BY occurred_at ASC, id ASC`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (tx *txRepo) InsertEvent(ctx context.Context, ev NegotiationEvent) error {
	_, err := tx.tx.Exec(ctx, `INSERT INTO negotiation_events (order_id, actor, kind, amount, message, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6)`, ev.OrderID, string(ev.Actor), string(ev.Kind), ev.Amount, ev.Message, ev.At)
	return err
}

func scanOrder(row pgx.Row) (PurchaseOrder, error) {
	var po PurchaseOrder
	var status string
	if err := row.Scan(&po.ID, &po.Number, &po.ProjectID, &po.VendorID, &status,
		&po.TotalAmount, &po.FinalAmount, &po.CreatedAt, &po.UpdatedAt); err != nil {
		return PurchaseOrder{}, err
	}
	po.Status = Status(status)
	return po, nil
}

func scanEvents(rows pgx.Rows) ([]NegotiationEvent, error) {
	var events []NegotiationEvent
	for rows.Next() {
		var ev NegotiationEvent
		var actor, kind string
		if err := rows.Scan(&ev.ID, &ev.OrderID, &actor, &kind, &ev.Amount, &ev.Message, &ev.At); err != nil {
			return nil, err
		}
		ev.Actor = Actor(actor)
		ev.Kind = EventKind(kind)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// itoa converts int to string for dynamic query building.
func itoa(i int) string {
	return fmt.Sprintf("%d", i)
}
