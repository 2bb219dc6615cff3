package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Food order statuses.  Restaurant orders skip the assignment stages of
// a service request: a single completion-token scan moves them from
// submitted straight to completed, after which they are invoiced the
// same way.
const (
	OrderSubmitted = "submitted"
	OrderCompleted = "completed"
	OrderInvoiced  = "invoiced"
	OrderCancelled = "cancelled"
)

// FoodOrder models a row in the `food_orders` table.
//
// Fields:
//  ID          – primary key identifier.
//  ResidentID  – resident who placed the order.
//  Items       – free-form description of the ordered items.
//  TotalCost   – order total captured at submission.
//  Status      – submitted, completed, invoiced or cancelled.
//  InvoiceID   – set once invoiced (nullable).
//  CreatedAt   – submission timestamp.
//  CompletedAt – delivery scan timestamp (nullable).
type FoodOrder struct {
	ID          uint64          // food_orders.id
	ResidentID  uint64          // food_orders.resident_id
	Items       string          // food_orders.items
	TotalCost   decimal.Decimal // food_orders.total_cost
	Status      string          // food_orders.status
	InvoiceID   *uint64         // food_orders.invoice_id (nullable)
	CreatedAt   time.Time       // food_orders.created_at
	CompletedAt *time.Time      // food_orders.completed_at (nullable)
}
