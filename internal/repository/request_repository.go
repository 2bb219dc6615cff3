package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/trexoil/edenlivingweb-sub000/internal/model"
)

// ListFilter narrows ListRequests. Zero values mean "no constraint".
// The engine fills ResidentID or Department from the actor's identity
// before the filter ever reaches SQL, so residents only see their own
// requests and base staff only their department's.
type ListFilter struct {
	ResidentID uint64 // restrict to one resident's requests
	Department string // restrict to one department's queue
	Status     string // restrict to one lifecycle status
	Type       string // restrict to one service type
	Priority   string // restrict to one priority
}

// RequestRepo provides data access to the service_requests table.
// Status changes go through guarded UPDATE statements (WHERE status IN
// ...) so that an illegal transition observed concurrently matches no
// rows instead of overwriting someone else's transition.
type RequestRepo struct {
	db *sql.DB
}

// NewRequestRepo returns a RequestRepo bound to the provided database.
func NewRequestRepo(db *sql.DB) *RequestRepo { return &RequestRepo{db: db} }

const requestCols = `id, resident_id, type, title, description, priority, status,
	department_assigned, assigned_to, estimated_cost, actual_cost, auto_approved,
	approval_reason, scheduled_date, invoice_id, created_at, started_at, completed_at`

type rowScanner interface{ Scan(dest ...interface{}) error }

func scanRequest(row rowScanner) (*model.ServiceRequest, error) {
	var q model.ServiceRequest
	err := row.Scan(&q.ID, &q.ResidentID, &q.Type, &q.Title, &q.Description,
		&q.Priority, &q.Status, &q.DepartmentAssigned, &q.AssignedTo,
		&q.EstimatedCost, &q.ActualCost, &q.AutoApproved, &q.ApprovalReason,
		&q.ScheduledDate, &q.InvoiceID, &q.CreatedAt, &q.StartedAt, &q.CompletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// Create inserts a service request and populates ID and CreatedAt.
func (r *RequestRepo) Create(ctx context.Context, q *model.ServiceRequest) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO service_requests
		 (resident_id, type, title, description, priority, status, department_assigned,
		  estimated_cost, auto_approved, approval_reason, scheduled_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		q.ResidentID, q.Type, q.Title, q.Description, q.Priority, q.Status,
		q.DepartmentAssigned, q.EstimatedCost, q.AutoApproved, q.ApprovalReason,
		q.ScheduledDate)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	q.ID = uint64(id)
	q.CreatedAt = time.Now().UTC()
	return nil
}

// GetByID fetches a service request by primary key.
func (r *RequestRepo) GetByID(ctx context.Context, id uint64) (*model.ServiceRequest, error) {
	return scanRequest(r.db.QueryRowContext(ctx,
		`SELECT `+requestCols+` FROM service_requests WHERE id = ?`, id))
}

// GetByIDTx fetches a request inside a transaction with a row lock so
// the caller can make a transition decision that stays valid until
// commit.
func (r *RequestRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.ServiceRequest, error) {
	return scanRequest(tx.QueryRowContext(ctx,
		`SELECT `+requestCols+` FROM service_requests WHERE id = ? FOR UPDATE`, id))
}

// UpdateStatus moves a request from one of the expected statuses to a
// new one. It returns ErrConflict when the row was not in any of the
// expected statuses, leaving the row untouched.
func (r *RequestRepo) UpdateStatus(ctx context.Context, id uint64, from []string, to string) error {
	return r.updateStatus(ctx, r.db, id, from, to)
}

// UpdateStatusTx is UpdateStatus within an existing transaction.
func (r *RequestRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, from []string, to string) error {
	return r.updateStatus(ctx, tx, id, from, to)
}

func (r *RequestRepo) updateStatus(ctx context.Context, ex execer, id uint64, from []string, to string) error {
	query := `UPDATE service_requests SET status = ? WHERE id = ? AND status IN (`
	args := make([]interface{}, 0, len(from)+2)
	args = append(args, to, id)
	for i, s := range from {
		if i > 0 {
			query += ","
		}
		query += "?"
		args = append(args, s)
	}
	query += ")"
	res, err := ex.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// StartTx marks a request in_progress within a transaction: sets the
// status, the started_at timestamp and the acting staff member. The
// status guard mirrors the start-token rule (assigned or processing).
func (r *RequestRepo) StartTx(ctx context.Context, tx *sql.Tx, id, staffID uint64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE service_requests
		 SET status = ?, started_at = UTC_TIMESTAMP(), assigned_to = ?
		 WHERE id = ? AND status IN (?, ?)`,
		model.StatusInProgress, staffID, id, model.StatusAssigned, model.StatusProcessing)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// CompleteTx marks an in_progress request completed within a
// transaction, stamping completed_at and seeding actual_cost from the
// estimate when staff never recorded one.
func (r *RequestRepo) CompleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE service_requests
		 SET status = ?, completed_at = UTC_TIMESTAMP(),
			 actual_cost = COALESCE(actual_cost, estimated_cost)
		 WHERE id = ? AND status = ?`,
		model.StatusCompleted, id, model.StatusInProgress)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// SetActualCost records the staff-entered final cost prior to
// completion.
func (r *RequestRepo) SetActualCost(ctx context.Context, id uint64, cost decimal.Decimal) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE service_requests SET actual_cost = ? WHERE id = ?`, cost, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkInvoicedTx stamps the invoice reference and advances completed →
// invoiced within a transaction.
func (r *RequestRepo) MarkInvoicedTx(ctx context.Context, tx *sql.Tx, id, invoiceID uint64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE service_requests SET status = ?, invoice_id = ? WHERE id = ? AND status = ?`,
		model.StatusInvoiced, invoiceID, id, model.StatusCompleted)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// List returns requests matching the filter, newest first.
func (r *RequestRepo) List(ctx context.Context, f ListFilter) ([]model.ServiceRequest, error) {
	query := `SELECT ` + requestCols + ` FROM service_requests WHERE 1=1`
	args := make([]interface{}, 0, 5)
	if f.ResidentID != 0 {
		query += ` AND resident_id = ?`
		args = append(args, f.ResidentID)
	}
	if f.Department != "" {
		query += ` AND department_assigned = ?`
		args = append(args, f.Department)
	}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, f.Status)
	}
	if f.Type != "" {
		query += ` AND type = ?`
		args = append(args, f.Type)
	}
	if f.Priority != "" {
		query += ` AND priority = ?`
		args = append(args, f.Priority)
	}
	query += ` ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.ServiceRequest
	for rows.Next() {
		q, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
