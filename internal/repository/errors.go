// Package repository defines the MySQL persistence layer together with
// the sentinel error values reused across repositories. These
// sentinels allow higher layers such as the lifecycle engine and the
// HTTP handlers to distinguish between failure scenarios with
// errors.Is, for example telling an already-scanned token apart from
// an expired one so staff tooling can show the right message.
package repository

import (
	"errors"
	"strings"
)

// ErrNotFound is returned when a resident, request, order, token or
// invoice row does not exist. Handlers should translate this into an
// HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrTokenAlreadyUsed is returned when consuming an action token that
// has already been consumed, including when a concurrent scan won the
// race by a single row.
var ErrTokenAlreadyUsed = errors.New("token already used")

// ErrTokenExpired is returned when consuming an action token whose
// expiry has passed.
var ErrTokenExpired = errors.New("token expired")

// ErrConflict is returned when a conditional update matched no rows
// because the row's state changed underneath the caller, such as a
// status transition guarded by a WHERE status IN (...) clause.
// Handlers should translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrInvalidArgument is returned for arguments the store refuses to
// persist, such as a negative ledger amount.
var ErrInvalidArgument = errors.New("invalid argument")

// ErrStoreUnavailable wraps transient infrastructure failures so
// callers can retry. The lifecycle engine relies on the idempotency of
// invoice creation and the single-use token contract to make those
// retries safe.
var ErrStoreUnavailable = errors.New("store unavailable")

// isDuplicateKey reports whether err is a MySQL duplicate-key error
// (error number 1062). Matching on the message keeps the driver
// dependency out of the check.
func isDuplicateKey(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "1062")
}
