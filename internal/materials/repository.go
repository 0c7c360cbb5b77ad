package materials

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
	CreateRequest(ctx context.Context, req Request) (int64, error)
	InsertLine(ctx context.Context, requestID int64, position int, line Line) error
	UpdateStatus(ctx context.Context, id int64, status RequestStatus, at time.Time) error
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

const requestColumns = `r.id, r.number, r.project_id, r.requested_by, r.status, r.priority, r.required_by, r.note, r.created_at, r.decided_at`

// GetRequest fetches a request with its lines.
func (r *Repository) GetRequest(ctx context.Context, id int64) (Request, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+requestColumns+` FROM material_requests r WHERE r.id = $1`, id)
	req, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Request{}, ErrNotFound
		}
		return Request{}, err
	}
	lines, err := r.lines(ctx, id)
	if err != nil {
		return Request{}, err
	}
	req.Lines = lines
	return req, nil
}

// ListRequests returns requests matching the filter. Urgent requests come
// first, then newer ones.
func (r *Repository) ListRequests(ctx context.Context, filter ListFilter) ([]Request, error) {
	sql := `SELECT ` + requestColumns + ` FROM material_requests r WHERE 1=1`
	var args []any
	idx := 1
	if filter.ProjectID != 0 {
		sql += ` AND r.project_id = $` + itoa(idx)
		args = append(args, filter.ProjectID)
		idx++
	}
	if filter.Status != "" {
		sql += ` AND r.status = $` + itoa(idx)
		args = append(args, string(filter.Status))
		idx++
	}
	if filter.Priority != "" {
		sql += ` AND r.priority = $` + itoa(idx)
		args = append(args, string(filter.Priority))
		idx++
	}
	sql += ` ORDER BY CASE r.priority WHEN 'urgent' THEN 0 WHEN 'high' THEN 1 WHEN 'medium' THEN 2 ELSE 3 END, r.created_at DESC`

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var requests []Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

func (r *Repository) lines(ctx context.Context, requestID int64) ([]Line, error) {
	rows, err := r.pool.Query(ctx, `SELECT name, quantity, unit, category
FROM material_request_lines WHERE request_id = $1 ORDER BY position`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []Line
	for rows.Next() {
		var line Line
		if err := rows.Scan(&line.Name, &line.Quantity, &line.Unit, &line.Category); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func (tx *txRepo) CreateRequest(ctx context.Context, req Request) (int64, error) {
	var id int64
	err := tx.tx.QueryRow(ctx, `INSERT INTO material_requests (number, project_id, requested_by, status, priority, required_by, note, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		req.Number, req.ProjectID, req.RequestedBy, string(req.Status), string(req.Priority), req.RequiredBy, req.Note, req.CreatedAt).Scan(&id)
	return id, err
}

func (tx *txRepo) InsertLine(ctx context.Context, requestID int64, position int, line Line) error {
	_, err := tx.tx.Exec(ctx, `INSERT INTO material_request_lines (request_id, position, name, quantity, unit, category)
VALUES ($1, $2, $3, $4, $5, $6)`, requestID, position, line.Name, line.Quantity, line.Unit, line.Category)
	return err
}

func (tx *txRepo) UpdateStatus(ctx context.Context, id int64, status RequestStatus, at time.Time) error {
	tag, err := tx.tx.Exec(ctx, `UPDATE material_requests SET status = $1, decided_at = $2 WHERE id = $3`, string(status), at, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanRequest(row pgx.Row) (Request, error) {
	var req Request
	var status, priority string
	if err := row.Scan(&req.ID, &req.Number, &req.ProjectID, &req.RequestedBy,
		&status, &priority, &req.RequiredBy, &req.Note, &req.CreatedAt, &req.DecidedAt); err != nil {
		return Request{}, err
	}
	req.Status = RequestStatus(status)
	req.Priority = Priority(priority)
	return req, nil
}

func itoa(i int) string {
	return fmt.Sprintf("%d", i)
}
