package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Service types offered to residents.  The set is fixed: the billing
// engine has a pricing row and a department route for each of these and
// nothing else.  Unknown values are rejected at the API boundary.
const (
	ServiceMeal           = "meal"
	ServiceLaundry        = "laundry"
	ServiceHousekeeping   = "housekeeping"
	ServiceTransportation = "transportation"
	ServiceMaintenance    = "maintenance"
	ServiceHomeCare       = "home_care"
	ServiceMedical        = "medical"
)

// ServiceTypes lists every valid service type.  Used for input
// validation and for iterating the pricing table in tests.
var ServiceTypes = []string{
	ServiceMeal,
	ServiceLaundry,
	ServiceHousekeeping,
	ServiceTransportation,
	ServiceMaintenance,
	ServiceHomeCare,
	ServiceMedical,
}

// ValidServiceType reports whether t is one of the seven fixed types.
func ValidServiceType(t string) bool {
	for _, s := range ServiceTypes {
		if s == t {
			return true
		}
	}
	return false
}

// Request priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// ValidPriority reports whether p is a known priority value.
func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Service request lifecycle statuses.  The allowed transitions between
// them live in the lifecycle package; this file only names the values
// stored in service_requests.status.
const (
	StatusPending      = "pending"
	StatusAutoApproved = "auto_approved"
	StatusManualReview = "manual_review"
	StatusAssigned     = "assigned"
	StatusProcessing   = "processing"
	StatusInProgress   = "in_progress"
	StatusCompleted    = "completed"
	StatusInvoiced     = "invoiced"
	StatusCancelled    = "cancelled"
)

// ServiceRequest models a row in the `service_requests` table.  A
// request is created by a resident, routed to a department, advanced by
// staff token scans and finally billed.  Requests are never deleted;
// they terminate in completed, invoiced or cancelled.
//
// Fields:
//  ID                 – primary key identifier.
//  ResidentID         – owning resident account.
//  Type               – one of the seven fixed service types.
//  Title              – short summary entered by the resident.
//  Description        – free-form detail text.
//  Priority           – low/medium/high/urgent.
//  Status             – current lifecycle status.
//  DepartmentAssigned – department derived from Type at creation.
//  AssignedTo         – staff user who started the service (nullable).
//  EstimatedCost      – pricing-table estimate captured at creation.
//  ActualCost         – final cost, seeded from the estimate on
//                       completion when staff never overrode it (nullable).
//  AutoApproved       – whether the credit rule approved it without review.
//  ApprovalReason     – human-readable audit string for the decision.
//  ScheduledDate      – optional date requested by the resident.
//  InvoiceID          – set once the request has been invoiced (nullable).
//  CreatedAt          – creation timestamp.
//  StartedAt          – when a start token was scanned (nullable).
//  CompletedAt        – when a completion token was scanned (nullable).
type ServiceRequest struct {
	ID                 uint64           // service_requests.id
	ResidentID         uint64           // service_requests.resident_id
	Type               string           // service_requests.type
	Title              string           // service_requests.title
	Description        string           // service_requests.description
	Priority           string           // service_requests.priority
	Status             string           // service_requests.status
	DepartmentAssigned string           // service_requests.department_assigned
	AssignedTo         *uint64          // service_requests.assigned_to (nullable)
	EstimatedCost      decimal.Decimal  // service_requests.estimated_cost
	ActualCost         *decimal.Decimal // service_requests.actual_cost (nullable)
	AutoApproved       bool             // service_requests.auto_approved
	ApprovalReason     string           // service_requests.approval_reason
	ScheduledDate      *time.Time       // service_requests.scheduled_date (nullable)
	InvoiceID          *uint64          // service_requests.invoice_id (nullable)
	CreatedAt          time.Time        // service_requests.created_at
	StartedAt          *time.Time       // service_requests.started_at (nullable)
	CompletedAt        *time.Time       // service_requests.completed_at (nullable)
}

// Terminal reports whether the request can no longer change status.
func (r *ServiceRequest) Terminal() bool {
	return r.Status == StatusInvoiced || r.Status == StatusCancelled
}
