package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ResidentAccount models a row in the `resident_accounts` table.  It
// carries the credit standing used by the approval rule and mutated by
// the billing engine.  CurrentBalance is the amount the resident owes;
// it only ever moves through the ledger operations on the repository
// (atomic increment on invoicing, clamped decrement on invoice
// cancellation), never through plain field writes.
//
// Fields:
//  ID             – primary key identifier.
//  UserID         – login account backing this resident.
//  FullName       – display name.
//  Unit           – unit/room label within the facility.
//  CreditLimit    – maximum credit extended, >= 0.
//  CurrentBalance – outstanding amount owed, >= 0.
//  CreatedAt      – creation timestamp.
//  UpdatedAt      – last modification timestamp.
type ResidentAccount struct {
	ID             uint64          // resident_accounts.id
	UserID         uint64          // resident_accounts.user_id
	FullName       string          // resident_accounts.full_name
	Unit           string          // resident_accounts.unit
	CreditLimit    decimal.Decimal // resident_accounts.credit_limit
	CurrentBalance decimal.Decimal // resident_accounts.current_balance
	CreatedAt      time.Time       // resident_accounts.created_at
	UpdatedAt      time.Time       // resident_accounts.updated_at
}

// AvailableCredit returns credit_limit - current_balance.  The result
// may be negative: residents can go over limit, which only blocks
// auto-approval of new requests, never service delivery.
func (a *ResidentAccount) AvailableCredit() decimal.Decimal {
	return a.CreditLimit.Sub(a.CurrentBalance)
}
