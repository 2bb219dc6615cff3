package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/trexoil/edenlivingweb-sub000/internal/model"
)

// Store bundles the per-entity repositories behind the persistence
// contract the lifecycle engine runs against. Single-entity calls
// delegate straight to the repos; the multi-entity atomic units (token
// consume + status transition, invoice + charge) each run in one
// database transaction so a crash can never leave half the unit
// applied.
type Store struct {
	db          *sql.DB
	Residents   *ResidentRepo
	Requests    *RequestRepo
	Orders      *OrderRepo
	Tokens      *ActionTokenRepo
	Invoices    *InvoiceRepo
	Departments *DepartmentRepo
}

// NewStore constructs a Store and its repositories over one database
// handle.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:          db,
		Residents:   NewResidentRepo(db),
		Requests:    NewRequestRepo(db),
		Orders:      NewOrderRepo(db),
		Tokens:      NewActionTokenRepo(db),
		Invoices:    NewInvoiceRepo(db),
		Departments: NewDepartmentRepo(db),
	}
}

func (s *Store) ResidentByID(ctx context.Context, id uint64) (*model.ResidentAccount, error) {
	return s.Residents.GetByID(ctx, id)
}

func (s *Store) ResidentByUserID(ctx context.Context, userID uint64) (*model.ResidentAccount, error) {
	return s.Residents.GetByUserID(ctx, userID)
}

func (s *Store) CreditBalanceAdd(ctx context.Context, residentID uint64, amount decimal.Decimal) error {
	return s.Residents.IncrementBalance(ctx, residentID, amount)
}

func (s *Store) CreditBalanceSubtract(ctx context.Context, residentID uint64, amount decimal.Decimal) error {
	return s.Residents.DecrementBalance(ctx, residentID, amount)
}

func (s *Store) CreateRequest(ctx context.Context, q *model.ServiceRequest) error {
	return s.Requests.Create(ctx, q)
}

func (s *Store) RequestByID(ctx context.Context, id uint64) (*model.ServiceRequest, error) {
	return s.Requests.GetByID(ctx, id)
}

func (s *Store) ListRequests(ctx context.Context, f ListFilter) ([]model.ServiceRequest, error) {
	return s.Requests.List(ctx, f)
}

func (s *Store) UpdateRequestStatus(ctx context.Context, id uint64, from []string, to string) error {
	return s.Requests.UpdateStatus(ctx, id, from, to)
}

func (s *Store) SetRequestActualCost(ctx context.Context, id uint64, cost decimal.Decimal) error {
	return s.Requests.SetActualCost(ctx, id, cost)
}

func (s *Store) CreateOrder(ctx context.Context, o *model.FoodOrder) error {
	return s.Orders.Create(ctx, o)
}

func (s *Store) OrderByID(ctx context.Context, id uint64) (*model.FoodOrder, error) {
	return s.Orders.GetByID(ctx, id)
}

func (s *Store) ListOrdersByResident(ctx context.Context, residentID uint64) ([]model.FoodOrder, error) {
	return s.Orders.ListByResident(ctx, residentID)
}

func (s *Store) CancelOrder(ctx context.Context, id uint64) error {
	return s.Orders.Cancel(ctx, id)
}

func (s *Store) IssueToken(ctx context.Context, t *model.ActionToken) error {
	return s.Tokens.Issue(ctx, t)
}

func (s *Store) TokenByValue(ctx context.Context, tokenValue string) (*model.ActionToken, error) {
	return s.Tokens.GetByValue(ctx, tokenValue)
}

// withTx runs fn inside a transaction, rolling back on error.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// consumeBoundToken consumes the token within tx and verifies it is
// bound to the expected target. A binding mismatch aborts the unit.
func (s *Store) consumeBoundToken(ctx context.Context, tx *sql.Tx, tokenValue string, actorID uint64, requestID, orderID *uint64) (*model.ActionToken, error) {
	tok, err := s.Tokens.ConsumeTx(ctx, tx, tokenValue, actorID)
	if err != nil {
		return nil, err
	}
	if requestID != nil && (tok.ServiceRequestID == nil || *tok.ServiceRequestID != *requestID) {
		return nil, ErrConflict
	}
	if orderID != nil && (tok.OrderID == nil || *tok.OrderID != *orderID) {
		return nil, ErrConflict
	}
	return tok, nil
}

// ConsumeStartToken atomically marks the token used and moves the
// request to in_progress, stamping started_at and the acting staff
// member. Either both effects commit or neither does.
func (s *Store) ConsumeStartToken(ctx context.Context, tokenValue string, actorID, requestID uint64) (*model.ActionToken, error) {
	var tok *model.ActionToken
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		tok, err = s.consumeBoundToken(ctx, tx, tokenValue, actorID, &requestID, nil)
		if err != nil {
			return err
		}
		return s.Requests.StartTx(ctx, tx, requestID, actorID)
	})
	if err != nil {
		return nil, err
	}
	return tok, nil
}

// ConsumeRequestCompletionToken atomically marks the token used and
// moves the request to completed, stamping completed_at and seeding
// actual_cost from the estimate when unset.
func (s *Store) ConsumeRequestCompletionToken(ctx context.Context, tokenValue string, actorID, requestID uint64) (*model.ActionToken, error) {
	var tok *model.ActionToken
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		tok, err = s.consumeBoundToken(ctx, tx, tokenValue, actorID, &requestID, nil)
		if err != nil {
			return err
		}
		return s.Requests.CompleteTx(ctx, tx, requestID)
	})
	if err != nil {
		return nil, err
	}
	return tok, nil
}

// ConsumeOrderCompletionToken atomically marks the token used and
// moves the food order to completed.
func (s *Store) ConsumeOrderCompletionToken(ctx context.Context, tokenValue string, actorID, orderID uint64) (*model.ActionToken, error) {
	var tok *model.ActionToken
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		tok, err = s.consumeBoundToken(ctx, tx, tokenValue, actorID, nil, &orderID)
		if err != nil {
			return err
		}
		return s.Orders.CompleteTx(ctx, tx, orderID)
	})
	if err != nil {
		return nil, err
	}
	return tok, nil
}

// CreateInvoiceCharged inserts the draft invoice, marks its target
// invoiced and adds the total to the resident's balance, all in one
// transaction. When an invoice already exists for the target (unique
// key on the target column) nothing is written and the existing
// invoice is returned with created == false, which is what makes the
// completion path safe to retry without double-charging.
func (s *Store) CreateInvoiceCharged(ctx context.Context, inv *model.ServiceInvoice) (*model.ServiceInvoice, bool, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.Invoices.CreateTx(ctx, tx, inv); err != nil {
			return err
		}
		if inv.ServiceRequestID != nil {
			if err := s.Requests.MarkInvoicedTx(ctx, tx, *inv.ServiceRequestID, inv.ID); err != nil {
				return err
			}
		} else if inv.OrderID != nil {
			if err := s.Orders.MarkInvoicedTx(ctx, tx, *inv.OrderID, inv.ID); err != nil {
				return err
			}
		}
		return s.Residents.IncrementBalanceTx(ctx, tx, inv.ResidentID, inv.TotalAmount)
	})
	if err == nil {
		return inv, true, nil
	}
	if !errors.Is(err, ErrConflict) {
		return nil, false, err
	}
	// Duplicate insert or target already invoiced: hand back the
	// existing invoice, charged exactly once by whoever created it.
	var existing *model.ServiceInvoice
	var lookupErr error
	switch {
	case inv.ServiceRequestID != nil:
		existing, lookupErr = s.Invoices.GetByRequestID(ctx, *inv.ServiceRequestID)
	case inv.OrderID != nil:
		existing, lookupErr = s.Invoices.GetByOrderID(ctx, *inv.OrderID)
	default:
		return nil, false, ErrConflict
	}
	if lookupErr != nil {
		return nil, false, lookupErr
	}
	return existing, false, nil
}

func (s *Store) InvoiceByID(ctx context.Context, id uint64) (*model.ServiceInvoice, error) {
	return s.Invoices.GetByID(ctx, id)
}

func (s *Store) InvoiceByRequestID(ctx context.Context, requestID uint64) (*model.ServiceInvoice, error) {
	return s.Invoices.GetByRequestID(ctx, requestID)
}

func (s *Store) InvoiceByOrderID(ctx context.Context, orderID uint64) (*model.ServiceInvoice, error) {
	return s.Invoices.GetByOrderID(ctx, orderID)
}

func (s *Store) UpdateInvoiceStatus(ctx context.Context, id uint64, from []string, to string) error {
	return s.Invoices.UpdateStatus(ctx, id, from, to)
}
