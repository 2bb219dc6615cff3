package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/trexoil/edenlivingweb-sub000/internal/model"
)

// ResidentRepo provides data access to the resident_accounts table,
// including the credit-ledger operations. Balance mutations never go
// through read-modify-write in application code: both increment and
// decrement are single UPDATE statements so concurrent completions for
// the same resident cannot lose updates.
type ResidentRepo struct {
	db *sql.DB
}

// NewResidentRepo returns a ResidentRepo bound to the provided database.
func NewResidentRepo(db *sql.DB) *ResidentRepo { return &ResidentRepo{db: db} }

const residentCols = `id, user_id, full_name, unit, credit_limit, current_balance, created_at, updated_at`

func scanResident(row *sql.Row) (*model.ResidentAccount, error) {
	var a model.ResidentAccount
	err := row.Scan(&a.ID, &a.UserID, &a.FullName, &a.Unit,
		&a.CreditLimit, &a.CurrentBalance, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create inserts a resident account and populates its ID.
func (r *ResidentRepo) Create(ctx context.Context, a *model.ResidentAccount) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO resident_accounts (user_id, full_name, unit, credit_limit, current_balance)
		 VALUES (?, ?, ?, ?, ?)`,
		a.UserID, a.FullName, a.Unit, a.CreditLimit, a.CurrentBalance)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	return nil
}

// GetByID fetches a resident account by primary key.
func (r *ResidentRepo) GetByID(ctx context.Context, id uint64) (*model.ResidentAccount, error) {
	return scanResident(r.db.QueryRowContext(ctx,
		`SELECT `+residentCols+` FROM resident_accounts WHERE id = ?`, id))
}

// GetByUserID fetches the resident account backing a login user.
func (r *ResidentRepo) GetByUserID(ctx context.Context, userID uint64) (*model.ResidentAccount, error) {
	return scanResident(r.db.QueryRowContext(ctx,
		`SELECT `+residentCols+` FROM resident_accounts WHERE user_id = ?`, userID))
}

// IncrementBalance atomically adds amount to the resident's
// current_balance. The addition happens inside the database so two
// concurrent completions for the same resident are both reflected.
// A negative amount is rejected with ErrInvalidArgument; a missing
// resident with ErrNotFound.
func (r *ResidentRepo) IncrementBalance(ctx context.Context, residentID uint64, amount decimal.Decimal) error {
	return incrementBalance(ctx, r.db, residentID, amount)
}

// IncrementBalanceTx is IncrementBalance inside an existing
// transaction, used when the charge must commit together with the
// invoice row.
func (r *ResidentRepo) IncrementBalanceTx(ctx context.Context, tx *sql.Tx, residentID uint64, amount decimal.Decimal) error {
	return incrementBalance(ctx, tx, residentID, amount)
}

// execer abstracts *sql.DB and *sql.Tx for shared statement helpers.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func incrementBalance(ctx context.Context, ex execer, residentID uint64, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrInvalidArgument
	}
	res, err := ex.ExecContext(ctx,
		`UPDATE resident_accounts SET current_balance = current_balance + ? WHERE id = ?`,
		amount, residentID)
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

// DecrementBalance atomically subtracts amount from current_balance,
// clamping the result at zero. Used only when reversing the charge of
// a cancelled, previously-sent invoice.
func (r *ResidentRepo) DecrementBalance(ctx context.Context, residentID uint64, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrInvalidArgument
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE resident_accounts SET current_balance = GREATEST(current_balance - ?, 0) WHERE id = ?`,
		amount, residentID)
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
