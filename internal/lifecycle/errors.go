package lifecycle

import (
	"errors"
	"fmt"

	"github.com/trexoil/edenlivingweb-sub000/internal/repository"
)

// Engine-level error kinds. Store-level kinds (not found, token
// already used, token expired, conflict) come from the repository
// package; the engine wraps both sets with human-readable reasons so a
// rejected scan can tell staff why instead of a generic failure.
var (
	// ErrInvalidState is returned when a transition is not legal from
	// the target's current status.
	ErrInvalidState = errors.New("invalid state")

	// ErrUnauthorized is returned when the actor's role or department
	// does not permit the action.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidArgument is returned for rejected input values such as
	// an unknown service type or priority. Shared with the repository
	// layer so negative ledger amounts classify identically.
	ErrInvalidArgument = repository.ErrInvalidArgument
)

// reasonf wraps kind with a formatted reason while keeping errors.Is
// classification intact.
func reasonf(kind error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{kind}, args...)...)
}
