package repository

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"

	"github.com/trexoil/edenlivingweb-sub000/internal/model"
)

// ActionTokenRepo provides data access to the action_tokens table.
// Tokens authorize exactly one lifecycle transition each; the consume
// path is a single conditional UPDATE so that under concurrent scan
// attempts exactly one caller wins and every other caller gets a
// typed error.
type ActionTokenRepo struct {
	db *sql.DB
}

// NewActionTokenRepo returns an ActionTokenRepo bound to the provided database.
func NewActionTokenRepo(db *sql.DB) *ActionTokenRepo { return &ActionTokenRepo{db: db} }

// NewTokenValue generates the random hex value stored in
// action_tokens.token_value. 32 bytes of crypto/rand yields a 64
// character string.
func NewTokenValue() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Issue inserts a token row and populates its ID. Exactly one of
// t.ServiceRequestID and t.OrderID must be set; the engine validates
// this before calling.
func (r *ActionTokenRepo) Issue(ctx context.Context, t *model.ActionToken) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO action_tokens (token_value, service_request_id, order_id, action_type, expires_at)
		 VALUES (?, ?, ?, ?, ?)`,
		t.TokenValue, t.ServiceRequestID, t.OrderID, t.ActionType, t.ExpiresAt.UTC())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

const tokenCols = `id, token_value, service_request_id, order_id, action_type, expires_at, is_used, used_by, used_at, created_at`

func scanToken(row *sql.Row) (*model.ActionToken, error) {
	var t model.ActionToken
	err := row.Scan(&t.ID, &t.TokenValue, &t.ServiceRequestID, &t.OrderID,
		&t.ActionType, &t.ExpiresAt, &t.IsUsed, &t.UsedBy, &t.UsedAt, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetByValue fetches a token by its scan value regardless of state.
// Callers use this for the pre-consume authorization checks; the
// consume itself re-checks everything atomically.
func (r *ActionTokenRepo) GetByValue(ctx context.Context, tokenValue string) (*model.ActionToken, error) {
	return scanToken(r.db.QueryRowContext(ctx,
		`SELECT `+tokenCols+` FROM action_tokens WHERE token_value = ?`, tokenValue))
}

// ConsumeTx atomically flips is_used false→true for an unexpired token
// within the provided transaction and returns the consumed token. The
// guard lives in the WHERE clause, so under concurrent scans at most
// one transaction sees RowsAffected == 1. When the update matches no
// row, a follow-up read classifies the failure: missing value →
// ErrNotFound, already consumed → ErrTokenAlreadyUsed, past expiry →
// ErrTokenExpired.
//
// The caller must commit the transaction together with the status
// transition the token authorizes; a token must never end up consumed
// without its transition having taken effect.
func (r *ActionTokenRepo) ConsumeTx(ctx context.Context, tx *sql.Tx, tokenValue string, actorID uint64) (*model.ActionToken, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE action_tokens
		 SET is_used = 1, used_by = ?, used_at = UTC_TIMESTAMP()
		 WHERE token_value = ? AND is_used = 0 AND expires_at > UTC_TIMESTAMP()`,
		actorID, tokenValue)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, r.classifyConsumeFailure(ctx, tx, tokenValue)
	}
	return scanToken(tx.QueryRowContext(ctx,
		`SELECT `+tokenCols+` FROM action_tokens WHERE token_value = ?`, tokenValue))
}

// classifyConsumeFailure reads the token row after a failed consume to
// decide which sentinel to return. Reading inside the same transaction
// keeps the classification consistent with the failed update.
func (r *ActionTokenRepo) classifyConsumeFailure(ctx context.Context, tx *sql.Tx, tokenValue string) error {
	var isUsed bool
	var expiresAt time.Time
	err := tx.QueryRowContext(ctx,
		`SELECT is_used, expires_at FROM action_tokens WHERE token_value = ?`,
		tokenValue).Scan(&isUsed, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if isUsed {
		return ErrTokenAlreadyUsed
	}
	if !expiresAt.After(time.Now().UTC()) {
		return ErrTokenExpired
	}
	// Row exists, unused and unexpired yet the guarded update matched
	// nothing: another transaction holds the row lock or consumed it
	// after our read. Surface as a retryable conflict.
	return ErrConflict
}
