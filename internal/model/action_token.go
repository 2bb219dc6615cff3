package model

import "time"

// Action types a token may authorize.  A start token moves a request
// into in_progress; a completion token moves a request (or food order)
// into completed.
const (
	ActionStart      = "start"
	ActionCompletion = "completion"
)

// ActionToken models a row in the `action_tokens` table.  Each token
// is a single-use, expiring credential that binds one physical scan to
// one lifecycle transition.  Exactly one of ServiceRequestID and
// OrderID is set.  A token flips is_used false→true exactly once; the
// flip happens in the same transaction as the status transition it
// authorizes.
//
// Fields:
//  ID               – primary key identifier.
//  TokenValue       – 64-char hex value presented by the scanner.
//  ServiceRequestID – target request (nullable, XOR with OrderID).
//  OrderID          – target food order (nullable, XOR with ServiceRequestID).
//  ActionType       – start or completion.
//  ExpiresAt        – expiry timestamp (UTC).
//  IsUsed           – whether the token has been consumed.
//  UsedBy           – user who consumed it (nullable).
//  UsedAt           – consumption timestamp (nullable).
//  CreatedAt        – creation timestamp.
type ActionToken struct {
	ID               uint64     // action_tokens.id
	TokenValue       string     // action_tokens.token_value
	ServiceRequestID *uint64    // action_tokens.service_request_id (nullable)
	OrderID          *uint64    // action_tokens.order_id (nullable)
	ActionType       string     // action_tokens.action_type
	ExpiresAt        time.Time  // action_tokens.expires_at
	IsUsed           bool       // action_tokens.is_used
	UsedBy           *uint64    // action_tokens.used_by (nullable)
	UsedAt           *time.Time // action_tokens.used_at (nullable)
	CreatedAt        time.Time  // action_tokens.created_at
}

// Expired reports whether the token expiry has passed at the given
// instant.  Comparisons are done in UTC.
func (t *ActionToken) Expired(now time.Time) bool {
	return !t.ExpiresAt.After(now.UTC())
}
