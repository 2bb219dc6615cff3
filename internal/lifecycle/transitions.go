package lifecycle

import "github.com/trexoil/edenlivingweb-sub000/internal/model"

// allowedTransitions is the full transition table for service
// requests. The key is the current status; the value lists every
// status directly reachable from it. Anything not in this table is an
// illegal transition and fails with ErrInvalidState, leaving the row
// unchanged.
var allowedTransitions = map[string][]string{
	model.StatusPending: {
		model.StatusAutoApproved,
		model.StatusManualReview,
		model.StatusCancelled,
	},
	model.StatusAutoApproved: {
		model.StatusAssigned,
		model.StatusCancelled,
	},
	model.StatusManualReview: {
		model.StatusAssigned,
		model.StatusCancelled,
	},
	model.StatusAssigned: {
		model.StatusProcessing,
		model.StatusInProgress,
		model.StatusCancelled,
	},
	model.StatusProcessing: {
		model.StatusAssigned,
		model.StatusInProgress,
		model.StatusCancelled,
	},
	model.StatusInProgress: {
		model.StatusProcessing,
		model.StatusCompleted,
		model.StatusCancelled,
	},
	model.StatusCompleted: {
		model.StatusInvoiced,
	},
	model.StatusInvoiced:  {}, // terminal
	model.StatusCancelled: {}, // terminal
}

// CanTransition reports whether a request may move from one status to
// another.
func CanTransition(from, to string) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// startFromStatuses are the statuses a start-token scan may act on.
var startFromStatuses = []string{model.StatusAssigned, model.StatusProcessing}

// completionFromStatus is the only request status a completion-token
// scan may act on. Food orders complete from submitted instead.
const completionFromStatus = model.StatusInProgress

// cancellableStatuses are the pre-completion statuses an authorized
// admin may cancel from. Residents are limited to requests still
// awaiting review; see Engine.CancelRequest.
var cancellableStatuses = []string{
	model.StatusPending,
	model.StatusAutoApproved,
	model.StatusManualReview,
	model.StatusAssigned,
	model.StatusProcessing,
	model.StatusInProgress,
}
