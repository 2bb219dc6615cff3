package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/trexoil/edenlivingweb-sub000/internal/model"
)

// OrderRepo provides data access to the food_orders table. Restaurant
// orders follow the short lifecycle (submitted → completed → invoiced)
// so the repo carries far fewer guarded updates than RequestRepo.
type OrderRepo struct {
	db *sql.DB
}

// NewOrderRepo returns an OrderRepo bound to the provided database.
func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

const orderCols = `id, resident_id, items, total_cost, status, invoice_id, created_at, completed_at`

func scanOrder(row rowScanner) (*model.FoodOrder, error) {
	var o model.FoodOrder
	err := row.Scan(&o.ID, &o.ResidentID, &o.Items, &o.TotalCost,
		&o.Status, &o.InvoiceID, &o.CreatedAt, &o.CompletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// Create inserts a food order in submitted state and populates its ID.
func (r *OrderRepo) Create(ctx context.Context, o *model.FoodOrder) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO food_orders (resident_id, items, total_cost, status) VALUES (?, ?, ?, ?)`,
		o.ResidentID, o.Items, o.TotalCost, o.Status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	o.ID = uint64(id)
	return nil
}

// GetByID fetches a food order by primary key.
func (r *OrderRepo) GetByID(ctx context.Context, id uint64) (*model.FoodOrder, error) {
	return scanOrder(r.db.QueryRowContext(ctx,
		`SELECT `+orderCols+` FROM food_orders WHERE id = ?`, id))
}

// ListByResident returns a resident's orders, newest first.
func (r *OrderRepo) ListByResident(ctx context.Context, residentID uint64) ([]model.FoodOrder, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+orderCols+` FROM food_orders WHERE resident_id = ? ORDER BY created_at DESC`,
		residentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.FoodOrder
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CompleteTx marks a submitted order completed within a transaction.
// Returns ErrConflict when the order is not in submitted state.
func (r *OrderRepo) CompleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE food_orders SET status = ?, completed_at = UTC_TIMESTAMP() WHERE id = ? AND status = ?`,
		model.OrderCompleted, id, model.OrderSubmitted)
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

// MarkInvoicedTx stamps the invoice reference and advances completed →
// invoiced within a transaction.
func (r *OrderRepo) MarkInvoicedTx(ctx context.Context, tx *sql.Tx, id, invoiceID uint64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE food_orders SET status = ?, invoice_id = ? WHERE id = ? AND status = ?`,
		model.OrderInvoiced, invoiceID, id, model.OrderCompleted)
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

// Cancel moves a submitted order to cancelled.
func (r *OrderRepo) Cancel(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE food_orders SET status = ? WHERE id = ? AND status = ?`,
		model.OrderCancelled, id, model.OrderSubmitted)
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
