package invoice

import (
	"context"
	"errors"

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
	CreateInvoice(ctx context.Context, inv Invoice) (int64, error)
	UpdateStatus(ctx context.Context, id int64, status Status) error
	InsertAttachment(ctx context.Context, invoiceID int64, att Attachment) error
	DeleteAttachment(ctx context.Context, invoiceID int64, attachmentID string) error
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

const invoiceColumns = `i.id, i.number, i.vendor_id, i.project_id, i.order_id, i.status, i.total_amount, i.amount, i.due_at, i.created_at`

// GetInvoice fetches an invoice with its attachments.
func (r *Repository) GetInvoice(ctx context.Context, id int64) (Invoice, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM vendor_invoices i WHERE i.id = $1`, id)
	inv, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, ErrNotFound
		}
		return Invoice{}, err
	}
	atts, err := r.attachments(ctx, id)
	if err != nil {
		return Invoice{}, err
	}
	inv.Attachments = atts
	return inv, nil
}

// ListByVendor returns a vendor's invoices, newest first.
func (r *Repository) ListByVendor(ctx context.Context, vendorID int64) ([]Invoice, error) {
	return r.list(ctx, `SELECT `+invoiceColumns+` FROM vendor_invoices i WHERE i.vendor_id = $1 ORDER BY i.created_at DESC`, vendorID)
}

// ListByOrder returns invoices referencing a purchase order.
func (r *Repository) ListByOrder(ctx context.Context, orderID int64) ([]Invoice, error) {
	return r.list(ctx, `SELECT `+invoiceColumns+` FROM vendor_invoices i WHERE i.order_id = $1`, orderID)
}

func (r *Repository) list(ctx context.Context, sql string, args ...any) ([]Invoice, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var invoices []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

func (r *Repository) attachments(ctx context.Context, invoiceID int64) ([]Attachment, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, filename, url, mime_type, size
FROM invoice_attachments WHERE invoice_id = $1`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var atts []Attachment
	for rows.Next() {
		var att Attachment
		if err := rows.Scan(&att.ID, &att.Filename, &att.URL, &att.MimeType, &att.Size); err != nil {
			return nil, err
		}
		atts = append(atts, att)
	}
	return atts, rows.Err()
}

func (tx *txRepo) CreateInvoice(ctx context.Context, inv Invoice) (int64, error) {
	var id int64
	err := tx.tx.QueryRow(ctx, `INSERT INTO vendor_invoices (number, vendor_id, project_id, order_id, status, total_amount, due_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		inv.Number, inv.VendorID, inv.ProjectID, inv.OrderID, string(inv.Status), inv.TotalAmount, inv.DueAt, inv.CreatedAt).Scan(&id)
	return id, err
}

func (tx *txRepo) UpdateStatus(ctx context.Context, id int64, status Status) error {
	tag, err := tx.tx.Exec(ctx, `UPDATE vendor_invoices SET status = $1 WHERE id = $2`, string(status), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (tx *txRepo) InsertAttachment(ctx context.Context, invoiceID int64, att Attachment) error {
	_, err := tx.tx.Exec(ctx, `INSERT INTO invoice_attachments (id, invoice_id, filename, url, mime_type, size)
VALUES ($1, $2, $3, $4, $5, $6)`, att.ID, invoiceID, att.Filename, att.URL, att.MimeType, att.Size)
	return err
}

func (tx *txRepo) DeleteAttachment(ctx context.Context, invoiceID int64, attachmentID string) error {
	_, err := tx.tx.Exec(ctx, `DELETE FROM invoice_attachments WHERE invoice_id = $1 AND id = $2`, invoiceID, attachmentID)
	return err
}

func scanInvoice(row pgx.Row) (Invoice, error) {
	var inv Invoice
	var status string
	if err := row.Scan(&inv.ID, &inv.Number, &inv.VendorID, &inv.ProjectID, &inv.OrderID,
		&status, &inv.TotalAmount, &inv.Amount, &inv.DueAt, &inv.CreatedAt); err != nil {
		return Invoice{}, err
	}
	inv.Status = Status(status)
	return inv, nil
}
