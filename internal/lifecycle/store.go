package lifecycle

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/trexoil/edenlivingweb-sub000/internal/model"
	"github.com/trexoil/edenlivingweb-sub000/internal/repository"
)

// Store is the persistence contract the engine runs against. The
// MySQL implementation lives in the repository package; tests use an
// in-memory fake honoring the same atomicity guarantees.
//
// Contracts the engine relies on:
//   - The three Consume* methods mark the token used and apply the
//     status transition as one atomic unit. Under concurrent calls for
//     the same token exactly one succeeds; the losers see
//     repository.ErrTokenAlreadyUsed (or ErrTokenExpired/ErrNotFound).
//     A guarded transition that matches no rows fails the whole unit
//     with repository.ErrConflict and the token stays unused.
//   - CreditBalanceAdd is an atomic in-store addition; concurrent adds
//     for the same resident must all be reflected.
//   - CreateInvoiceCharged inserts the invoice, marks the target
//     invoiced and adds the total to the resident's balance in one
//     unit, exactly once per target: when an invoice already exists it
//     returns the existing row with created == false and performs no
//     further charge.
type Store interface {
	ResidentByID(ctx context.Context, id uint64) (*model.ResidentAccount, error)
	ResidentByUserID(ctx context.Context, userID uint64) (*model.ResidentAccount, error)
	CreditBalanceAdd(ctx context.Context, residentID uint64, amount decimal.Decimal) error
	CreditBalanceSubtract(ctx context.Context, residentID uint64, amount decimal.Decimal) error

	CreateRequest(ctx context.Context, q *model.ServiceRequest) error
	RequestByID(ctx context.Context, id uint64) (*model.ServiceRequest, error)
	ListRequests(ctx context.Context, f repository.ListFilter) ([]model.ServiceRequest, error)
	UpdateRequestStatus(ctx context.Context, id uint64, from []string, to string) error
	SetRequestActualCost(ctx context.Context, id uint64, cost decimal.Decimal) error

	CreateOrder(ctx context.Context, o *model.FoodOrder) error
	OrderByID(ctx context.Context, id uint64) (*model.FoodOrder, error)
	ListOrdersByResident(ctx context.Context, residentID uint64) ([]model.FoodOrder, error)
	CancelOrder(ctx context.Context, id uint64) error

	IssueToken(ctx context.Context, t *model.ActionToken) error
	TokenByValue(ctx context.Context, tokenValue string) (*model.ActionToken, error)

	ConsumeStartToken(ctx context.Context, tokenValue string, actorID, requestID uint64) (*model.ActionToken, error)
	ConsumeRequestCompletionToken(ctx context.Context, tokenValue string, actorID, requestID uint64) (*model.ActionToken, error)
	ConsumeOrderCompletionToken(ctx context.Context, tokenValue string, actorID, orderID uint64) (*model.ActionToken, error)

	CreateInvoiceCharged(ctx context.Context, inv *model.ServiceInvoice) (existing *model.ServiceInvoice, created bool, err error)
	InvoiceByID(ctx context.Context, id uint64) (*model.ServiceInvoice, error)
	InvoiceByRequestID(ctx context.Context, requestID uint64) (*model.ServiceInvoice, error)
	InvoiceByOrderID(ctx context.Context, orderID uint64) (*model.ServiceInvoice, error)
	UpdateInvoiceStatus(ctx context.Context, id uint64, from []string, to string) error
}

// Notifier dispatches lifecycle events to interested parties.
// Implementations must be fire-and-forget safe: the engine logs and
// swallows every error a Notifier returns.
type Notifier interface {
	Notify(ctx context.Context, ev ServiceEvent)
}

// ServiceEvent mirrors the wire event published to the broker. It is
// declared here so the engine and its tests carry no broker dependency;
// the publisher adapts it to the queue payload.
type ServiceEvent struct {
	Kind        string
	RequestID   uint64
	OrderID     uint64
	ResidentID  uint64
	ServiceType string
	Priority    string
	Department  string
	Status      string
	TotalAmount string
}
