package handler

// dto.go defines the JSON response shapes and the translation from
// domain error kinds to HTTP statuses. Model structs carry no json
// tags, so every handler maps through these views; money fields are
// rendered as fixed two-decimal strings.

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/trexoil/edenlivingweb-sub000/internal/lifecycle"
	"github.com/trexoil/edenlivingweb-sub000/internal/model"
	"github.com/trexoil/edenlivingweb-sub000/internal/repository"
)

// requestView is the JSON rendering of a service request.
type requestView struct {
	ID             uint64     `json:"id"`
	ResidentID     uint64     `json:"resident_id"`
	Type           string     `json:"type"`
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	Priority       string     `json:"priority"`
	Status         string     `json:"status"`
	Department     string     `json:"department"`
	AssignedTo     *uint64    `json:"assigned_to,omitempty"`
	EstimatedCost  string     `json:"estimated_cost"`
	ActualCost     *string    `json:"actual_cost,omitempty"`
	AutoApproved   bool       `json:"auto_approved"`
	ApprovalReason string     `json:"approval_reason,omitempty"`
	ScheduledDate  *time.Time `json:"scheduled_date,omitempty"`
	InvoiceID      *uint64    `json:"invoice_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

func viewRequest(q *model.ServiceRequest) requestView {
	v := requestView{
		ID:             q.ID,
		ResidentID:     q.ResidentID,
		Type:           q.Type,
		Title:          q.Title,
		Description:    q.Description,
		Priority:       q.Priority,
		Status:         q.Status,
		Department:     q.DepartmentAssigned,
		AssignedTo:     q.AssignedTo,
		EstimatedCost:  q.EstimatedCost.StringFixed(2),
		AutoApproved:   q.AutoApproved,
		ApprovalReason: q.ApprovalReason,
		ScheduledDate:  q.ScheduledDate,
		InvoiceID:      q.InvoiceID,
		CreatedAt:      q.CreatedAt,
		StartedAt:      q.StartedAt,
		CompletedAt:    q.CompletedAt,
	}
	if q.ActualCost != nil {
		s := q.ActualCost.StringFixed(2)
		v.ActualCost = &s
	}
	return v
}

func viewRequests(qs []model.ServiceRequest) []requestView {
	out := make([]requestView, 0, len(qs))
	for i := range qs {
		out = append(out, viewRequest(&qs[i]))
	}
	return out
}

// orderView is the JSON rendering of a food order.
type orderView struct {
	ID          uint64     `json:"id"`
	ResidentID  uint64     `json:"resident_id"`
	Items       string     `json:"items"`
	TotalCost   string     `json:"total_cost"`
	Status      string     `json:"status"`
	InvoiceID   *uint64    `json:"invoice_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func viewOrder(o *model.FoodOrder) orderView {
	return orderView{
		ID:          o.ID,
		ResidentID:  o.ResidentID,
		Items:       o.Items,
		TotalCost:   o.TotalCost.StringFixed(2),
		Status:      o.Status,
		InvoiceID:   o.InvoiceID,
		CreatedAt:   o.CreatedAt,
		CompletedAt: o.CompletedAt,
	}
}

// invoiceView is the JSON rendering of an invoice.
type invoiceView struct {
	ID               uint64    `json:"id"`
	InvoiceNumber    string    `json:"invoice_number"`
	ServiceRequestID *uint64   `json:"service_request_id,omitempty"`
	OrderID          *uint64   `json:"order_id,omitempty"`
	ResidentID       uint64    `json:"resident_id"`
	Amount           string    `json:"amount"`
	TaxAmount        string    `json:"tax_amount"`
	TotalAmount      string    `json:"total_amount"`
	Status           string    `json:"status"`
	Description      string    `json:"description"`
	DueDate          time.Time `json:"due_date"`
	CreatedAt        time.Time `json:"created_at"`
}

func viewInvoice(inv *model.ServiceInvoice) invoiceView {
	return invoiceView{
		ID:               inv.ID,
		InvoiceNumber:    inv.InvoiceNumber,
		ServiceRequestID: inv.ServiceRequestID,
		OrderID:          inv.OrderID,
		ResidentID:       inv.ResidentID,
		Amount:           inv.Amount.StringFixed(2),
		TaxAmount:        inv.TaxAmount.StringFixed(2),
		TotalAmount:      inv.TotalAmount.StringFixed(2),
		Status:           inv.Status,
		Description:      inv.Description,
		DueDate:          inv.DueDate,
		CreatedAt:        inv.CreatedAt,
	}
}

// departmentView is the JSON rendering of a department.
type departmentView struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	NotifyEmail string `json:"notify_email"`
}

// tokenView exposes a freshly issued action token. The raw value is
// shown exactly once, at issuance.
type tokenView struct {
	Token      string    `json:"token"`
	ActionType string    `json:"action_type"`
	ExpiresAt  time.Time `json:"expires_at"`
}

func viewToken(t *model.ActionToken) tokenView {
	return tokenView{Token: t.TokenValue, ActionType: t.ActionType, ExpiresAt: t.ExpiresAt}
}

// parseMoney parses a positive decimal string from a request body.
func parseMoney(s string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return decimal.Decimal{}, false
	}
	return d, true
}

// writeDomainErr translates a lifecycle/repository error into the HTTP
// response the API contract promises. Unknown errors become 500 with a
// generic message so internals never leak.
func writeDomainErr(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	msg := "internal error"
	switch {
	case errors.Is(err, repository.ErrNotFound):
		status, msg = http.StatusNotFound, "not found"
	case errors.Is(err, lifecycle.ErrUnauthorized):
		status, msg = http.StatusForbidden, err.Error()
	case errors.Is(err, lifecycle.ErrInvalidArgument):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, repository.ErrTokenExpired):
		status, msg = http.StatusGone, "token expired"
	case errors.Is(err, repository.ErrTokenAlreadyUsed):
		status, msg = http.StatusConflict, "token already used"
	case errors.Is(err, lifecycle.ErrInvalidState):
		status, msg = http.StatusConflict, err.Error()
	case errors.Is(err, repository.ErrConflict):
		status, msg = http.StatusConflict, "conflicting update"
	case errors.Is(err, repository.ErrStoreUnavailable):
		status, msg = http.StatusServiceUnavailable, "store unavailable"
	}
	return c.JSON(status, echo.Map{"error": msg})
}
