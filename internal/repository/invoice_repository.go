package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/trexoil/edenlivingweb-sub000/internal/model"
)

// InvoiceRepo provides data access to the service_invoices table. The
// table carries unique keys on service_request_id and order_id, which
// is what makes invoice creation idempotent: a retried insert for the
// same target hits the key and the caller is handed the existing row
// instead of producing a duplicate charge.
type InvoiceRepo struct {
	db *sql.DB
}

// NewInvoiceRepo returns an InvoiceRepo bound to the provided database.
func NewInvoiceRepo(db *sql.DB) *InvoiceRepo { return &InvoiceRepo{db: db} }

const invoiceCols = `id, invoice_number, service_request_id, order_id, resident_id,
	amount, tax_amount, total_amount, status, description, due_date, created_at`

func scanInvoice(row rowScanner) (*model.ServiceInvoice, error) {
	var inv model.ServiceInvoice
	err := row.Scan(&inv.ID, &inv.InvoiceNumber, &inv.ServiceRequestID, &inv.OrderID,
		&inv.ResidentID, &inv.Amount, &inv.TaxAmount, &inv.TotalAmount,
		&inv.Status, &inv.Description, &inv.DueDate, &inv.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// CreateTx inserts a draft invoice within a transaction and populates
// its ID. A duplicate-key failure on the target column is surfaced as
// ErrConflict so the engine can fall back to the existing invoice
// without charging twice.
func (r *InvoiceRepo) CreateTx(ctx context.Context, tx *sql.Tx, inv *model.ServiceInvoice) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO service_invoices
		 (invoice_number, service_request_id, order_id, resident_id,
		  amount, tax_amount, total_amount, status, description, due_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.InvoiceNumber, inv.ServiceRequestID, inv.OrderID, inv.ResidentID,
		inv.Amount, inv.TaxAmount, inv.TotalAmount, inv.Status, inv.Description,
		inv.DueDate.UTC())
	if err != nil {
		if isDuplicateKey(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	inv.ID = uint64(id)
	return nil
}

// GetByID fetches an invoice by primary key.
func (r *InvoiceRepo) GetByID(ctx context.Context, id uint64) (*model.ServiceInvoice, error) {
	return scanInvoice(r.db.QueryRowContext(ctx,
		`SELECT `+invoiceCols+` FROM service_invoices WHERE id = ?`, id))
}

// GetByRequestID fetches the invoice for a service request, if any.
func (r *InvoiceRepo) GetByRequestID(ctx context.Context, requestID uint64) (*model.ServiceInvoice, error) {
	return scanInvoice(r.db.QueryRowContext(ctx,
		`SELECT `+invoiceCols+` FROM service_invoices WHERE service_request_id = ?`, requestID))
}

// GetByOrderID fetches the invoice for a food order, if any.
func (r *InvoiceRepo) GetByOrderID(ctx context.Context, orderID uint64) (*model.ServiceInvoice, error) {
	return scanInvoice(r.db.QueryRowContext(ctx,
		`SELECT `+invoiceCols+` FROM service_invoices WHERE order_id = ?`, orderID))
}

// UpdateStatus moves an invoice from one of the expected statuses to a
// new one, returning ErrConflict when the invoice is not in any of
// them.
func (r *InvoiceRepo) UpdateStatus(ctx context.Context, id uint64, from []string, to string) error {
	query := `UPDATE service_invoices SET status = ? WHERE id = ? AND status IN (`
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
	res, err := r.db.ExecContext(ctx, query, args...)
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

// ListByResident returns a resident's invoices, newest first.
func (r *InvoiceRepo) ListByResident(ctx context.Context, residentID uint64) ([]model.ServiceInvoice, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+invoiceCols+` FROM service_invoices WHERE resident_id = ? ORDER BY created_at DESC`,
		residentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.ServiceInvoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
