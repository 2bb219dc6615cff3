package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice statuses.
const (
	InvoiceDraft     = "draft"
	InvoiceSent      = "sent"
	InvoiceCancelled = "cancelled"
)

// ServiceInvoice models a row in the `service_invoices` table.  One
// invoice exists per completed service request or food order; the
// unique key on the target id is what makes invoice generation safe to
// retry.  Cancelling a sent invoice reverses the ledger charge.
//
// Fields:
//  ID               – primary key identifier.
//  InvoiceNumber    – external reference ("INV-" + uuid).
//  ServiceRequestID – originating request (nullable, XOR with OrderID).
//  OrderID          – originating food order (nullable).
//  ResidentID       – resident charged.
//  Amount           – pre-tax subtotal.
//  TaxAmount        – SST portion.
//  TotalAmount      – Amount + TaxAmount; the value added to the ledger.
//  Status           – draft, sent or cancelled.
//  Description      – human-readable cost breakdown.
//  DueDate          – creation time + 30 days.
//  CreatedAt        – creation timestamp.
type ServiceInvoice struct {
	ID               uint64          // service_invoices.id
	InvoiceNumber    string          // service_invoices.invoice_number
	ServiceRequestID *uint64         // service_invoices.service_request_id (nullable)
	OrderID          *uint64         // service_invoices.order_id (nullable)
	ResidentID       uint64          // service_invoices.resident_id
	Amount           decimal.Decimal // service_invoices.amount
	TaxAmount        decimal.Decimal // service_invoices.tax_amount
	TotalAmount      decimal.Decimal // service_invoices.total_amount
	Status           string          // service_invoices.status
	Description      string          // service_invoices.description
	DueDate          time.Time       // service_invoices.due_date
	CreatedAt        time.Time       // service_invoices.created_at
}
