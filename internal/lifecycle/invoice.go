package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/trexoil/edenlivingweb-sub000/internal/model"
	"github.com/trexoil/edenlivingweb-sub000/internal/pricing"
	"github.com/trexoil/edenlivingweb-sub000/internal/repository"
)

// invoiceDueWindow is how long a resident has to settle an invoice.
const invoiceDueWindow = 30 * 24 * time.Hour

// invoiceRequest generates the invoice for a completed service request
// and charges the resident's ledger, exactly once. The total is seeded
// from actual_cost (falling back to the estimate), both of which are
// tax-inclusive; the pre-tax amount is backed out for the breakdown.
// Creation, the request's completed → invoiced transition and the
// ledger increment commit as one unit in the store; a retry that finds
// an existing invoice returns it without charging again.
func (e *Engine) invoiceRequest(ctx context.Context, requestID uint64) (*model.ServiceInvoice, error) {
	q, err := e.store.RequestByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if q.InvoiceID != nil {
		return e.store.InvoiceByRequestID(ctx, requestID)
	}

	total := q.EstimatedCost
	if q.ActualCost != nil {
		total = *q.ActualCost
	}
	amount := total.Div(decimal.NewFromInt(1).Add(pricing.TaxRate)).Round(2)
	tax := total.Sub(amount)

	cost := pricing.Lookup(q.Type)
	inv := &model.ServiceInvoice{
		InvoiceNumber:    "INV-" + uuid.NewString(),
		ServiceRequestID: &q.ID,
		ResidentID:       q.ResidentID,
		Amount:           amount,
		TaxAmount:        tax,
		TotalAmount:      total,
		Status:           model.InvoiceDraft,
		Description: fmt.Sprintf(
			"%s service (request #%d): base fee RM %s, materials RM %s, labor RM %s; SST RM %s",
			q.Type, q.ID, cost.BaseFee.StringFixed(2), cost.Materials.StringFixed(2),
			cost.Labor.StringFixed(2), tax.StringFixed(2)),
		DueDate: time.Now().UTC().Add(invoiceDueWindow),
	}
	existing, _, err := e.store.CreateInvoiceCharged(ctx, inv)
	if err != nil {
		return nil, err
	}
	return existing, nil
}

// invoiceOrder generates the invoice for a completed food order. Order
// totals are recorded pre-tax, so SST is added on top.
func (e *Engine) invoiceOrder(ctx context.Context, orderID uint64) (*model.ServiceInvoice, error) {
	o, err := e.store.OrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.InvoiceID != nil {
		return e.store.InvoiceByOrderID(ctx, orderID)
	}
	inv := &model.ServiceInvoice{
		InvoiceNumber: "INV-" + uuid.NewString(),
		OrderID:       &o.ID,
		ResidentID:    o.ResidentID,
		Amount:        o.TotalCost,
		TaxAmount:     pricing.Tax(o.TotalCost),
		TotalAmount:   pricing.WithTax(o.TotalCost),
		Status:        model.InvoiceDraft,
		Description:   fmt.Sprintf("restaurant order #%d: %s", o.ID, o.Items),
		DueDate:       time.Now().UTC().Add(invoiceDueWindow),
	}
	existing, _, err := e.store.CreateInvoiceCharged(ctx, inv)
	if err != nil {
		return nil, err
	}
	return existing, nil
}

// RetryInvoicing is the reconciling retry for requests that completed
// but were never invoiced, for example because the store failed midway
// through the completion scan. It is idempotent: an already-invoiced
// request returns its existing invoice unchanged.
func (e *Engine) RetryInvoicing(ctx context.Context, requestID uint64) (*model.ServiceInvoice, error) {
	q, err := e.store.RequestByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	switch q.Status {
	case model.StatusInvoiced:
		return e.store.InvoiceByRequestID(ctx, requestID)
	case model.StatusCompleted:
		return e.invoiceRequest(ctx, requestID)
	default:
		return nil, reasonf(ErrInvalidState, "request must be completed to invoice (current status %s)", q.Status)
	}
}

// MarkInvoiceSent moves a draft invoice to sent. Only facility roles
// may send invoices.
func (e *Engine) MarkInvoiceSent(ctx context.Context, actor model.Actor, invoiceID uint64) error {
	if !model.FacilityWide(actor.Role) {
		return reasonf(ErrUnauthorized, "role %s cannot send invoices", actor.Role)
	}
	if err := e.store.UpdateInvoiceStatus(ctx, invoiceID,
		[]string{model.InvoiceDraft}, model.InvoiceSent); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return reasonf(ErrInvalidState, "only draft invoices can be sent")
		}
		return err
	}
	return nil
}

// CancelInvoice cancels a draft or sent invoice. When the invoice had
// already been sent the resident's ledger charge is reversed, clamped
// at zero by the store.
func (e *Engine) CancelInvoice(ctx context.Context, actor model.Actor, invoiceID uint64, reason string) error {
	if !model.FacilityWide(actor.Role) {
		return reasonf(ErrUnauthorized, "role %s cannot cancel invoices", actor.Role)
	}
	inv, err := e.store.InvoiceByID(ctx, invoiceID)
	if err != nil {
		return err
	}
	if inv.Status == model.InvoiceCancelled {
		return reasonf(ErrInvalidState, "invoice is already cancelled")
	}
	wasSent := inv.Status == model.InvoiceSent
	if err := e.store.UpdateInvoiceStatus(ctx, invoiceID,
		[]string{model.InvoiceDraft, model.InvoiceSent}, model.InvoiceCancelled); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return reasonf(ErrInvalidState, "invoice cannot be cancelled from status %s", inv.Status)
		}
		return err
	}
	if wasSent {
		if err := e.store.CreditBalanceSubtract(ctx, inv.ResidentID, inv.TotalAmount); err != nil {
			return err
		}
	}
	return nil
}

// InvoiceForRequest exposes the invoice lookup for handlers.
func (e *Engine) InvoiceForRequest(ctx context.Context, requestID uint64) (*model.ServiceInvoice, error) {
	return e.store.InvoiceByRequestID(ctx, requestID)
}
