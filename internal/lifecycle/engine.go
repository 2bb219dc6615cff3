// Package lifecycle implements the service request lifecycle and
// billing engine: approval classification, department routing, the
// transition state machine driven by single-use action tokens, and
// invoice generation with exactly-once ledger charging.
package lifecycle

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/trexoil/edenlivingweb-sub000/internal/model"
	"github.com/trexoil/edenlivingweb-sub000/internal/pricing"
	"github.com/trexoil/edenlivingweb-sub000/internal/repository"
)

// DefaultTokenTTL is how long an issued action token stays scannable.
const DefaultTokenTTL = 24 * time.Hour

// Engine coordinates every lifecycle transition. All methods are safe
// for concurrent use from multiple goroutines, processes or machines:
// the engine keeps no state of its own and relies on the Store's
// atomicity contracts for every race-sensitive step.
type Engine struct {
	store    Store
	notifier Notifier // may be nil; notifications are best-effort
	tokenTTL time.Duration
}

// New constructs an Engine. notifier may be nil, in which case events
// are simply dropped. A non-positive tokenTTL falls back to
// DefaultTokenTTL.
func New(store Store, notifier Notifier, tokenTTL time.Duration) *Engine {
	if tokenTTL <= 0 {
		tokenTTL = DefaultTokenTTL
	}
	return &Engine{store: store, notifier: notifier, tokenTTL: tokenTTL}
}

// CreateRequestInput is the validated, closed input for CreateRequest.
// Unknown type or priority values are rejected with ErrInvalidArgument
// rather than silently accepted.
type CreateRequestInput struct {
	Type          string
	Title         string
	Description   string
	Priority      string
	ScheduledDate *time.Time
}

// CreateRequest submits a new service request on behalf of a resident.
// The engine computes the estimated cost, classifies the request
// against the resident's available credit, routes it to a department,
// and persists it. Auto-approved requests are immediately advanced to
// assigned and a start token is issued so the department has an
// actionable item; manual_review requests wait for an admin to call
// AssignRequest.
func (e *Engine) CreateRequest(ctx context.Context, actor model.Actor, in CreateRequestInput) (*model.ServiceRequest, error) {
	if actor.Role != model.RoleResident || actor.ResidentID == 0 {
		return nil, reasonf(ErrUnauthorized, "only residents can submit service requests")
	}
	if !model.ValidServiceType(in.Type) {
		return nil, reasonf(ErrInvalidArgument, "unknown service type %q", in.Type)
	}
	if !model.ValidPriority(in.Priority) {
		return nil, reasonf(ErrInvalidArgument, "unknown priority %q", in.Priority)
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, reasonf(ErrInvalidArgument, "title is required")
	}

	resident, err := e.store.ResidentByID(ctx, actor.ResidentID)
	if err != nil {
		return nil, err
	}

	estimate := pricing.Estimate(in.Type)
	autoApproved, reason := Classify(resident.AvailableCredit(), estimate)

	q := &model.ServiceRequest{
		ResidentID:         resident.ID,
		Type:               in.Type,
		Title:              strings.TrimSpace(in.Title),
		Description:        in.Description,
		Priority:           in.Priority,
		Status:             model.StatusManualReview,
		DepartmentAssigned: DepartmentFor(in.Type),
		EstimatedCost:      estimate,
		AutoApproved:       autoApproved,
		ApprovalReason:     reason,
		ScheduledDate:      in.ScheduledDate,
	}
	if autoApproved {
		q.Status = model.StatusAutoApproved
	}
	if err := e.store.CreateRequest(ctx, q); err != nil {
		return nil, err
	}

	if autoApproved {
		// Terminal side effect of creation: the department gets an
		// actionable item right away.
		if err := e.store.UpdateRequestStatus(ctx, q.ID,
			[]string{model.StatusAutoApproved}, model.StatusAssigned); err != nil {
			return nil, err
		}
		q.Status = model.StatusAssigned
		if _, err := e.issueToken(ctx, &q.ID, nil, model.ActionStart); err != nil {
			// Staff can re-issue through IssueStartToken; creation stands.
			log.Printf("lifecycle: start token issuance failed for request %d: %v", q.ID, err)
		}
		e.notify(ctx, ServiceEvent{
			Kind: EventAssigned, RequestID: q.ID, ResidentID: q.ResidentID,
			ServiceType: q.Type, Priority: q.Priority,
			Department: q.DepartmentAssigned, Status: q.Status,
		})
	} else {
		e.notify(ctx, ServiceEvent{
			Kind: EventManualReview, RequestID: q.ID, ResidentID: q.ResidentID,
			ServiceType: q.Type, Priority: q.Priority,
			Department: q.DepartmentAssigned, Status: q.Status,
		})
	}
	return q, nil
}

// AssignRequest moves a manual_review request to assigned. Only
// facility-wide roles may assign; the transition also issues a start
// token for the department.
func (e *Engine) AssignRequest(ctx context.Context, actor model.Actor, requestID uint64) (*model.ServiceRequest, error) {
	if !model.FacilityWide(actor.Role) {
		return nil, reasonf(ErrUnauthorized, "role %s cannot assign requests", actor.Role)
	}
	q, err := e.store.RequestByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := e.store.UpdateRequestStatus(ctx, requestID,
		[]string{model.StatusManualReview, model.StatusAutoApproved}, model.StatusAssigned); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, reasonf(ErrInvalidState, "request must be awaiting review to assign (current status %s)", q.Status)
		}
		return nil, err
	}
	q.Status = model.StatusAssigned
	if _, err := e.issueToken(ctx, &q.ID, nil, model.ActionStart); err != nil {
		log.Printf("lifecycle: start token issuance failed for request %d: %v", q.ID, err)
	}
	e.notify(ctx, ServiceEvent{
		Kind: EventAssigned, RequestID: q.ID, ResidentID: q.ResidentID,
		ServiceType: q.Type, Priority: q.Priority,
		Department: q.DepartmentAssigned, Status: q.Status,
	})
	return q, nil
}

// IssueStartToken issues a start token for an assigned (or processing)
// request to a staff member of the matching department.
func (e *Engine) IssueStartToken(ctx context.Context, actor model.Actor, requestID uint64) (*model.ActionToken, error) {
	q, err := e.store.RequestByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := e.authorizeDepartment(actor, q.DepartmentAssigned); err != nil {
		return nil, err
	}
	if q.Status != model.StatusAssigned && q.Status != model.StatusProcessing {
		return nil, reasonf(ErrInvalidState, "service must be assigned or processing to issue a start token (current status %s)", q.Status)
	}
	return e.issueToken(ctx, &requestID, nil, model.ActionStart)
}

// IssueCompletionToken issues a completion token for an in_progress
// request.
func (e *Engine) IssueCompletionToken(ctx context.Context, actor model.Actor, requestID uint64) (*model.ActionToken, error) {
	q, err := e.store.RequestByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := e.authorizeDepartment(actor, q.DepartmentAssigned); err != nil {
		return nil, err
	}
	if q.Status != model.StatusInProgress {
		return nil, reasonf(ErrInvalidState, "service must be in progress to issue a completion token (current status %s)", q.Status)
	}
	return e.issueToken(ctx, &requestID, nil, model.ActionCompletion)
}

// IssueOrderCompletionToken issues a completion token for a submitted
// food order. Orders always belong to the kitchen.
func (e *Engine) IssueOrderCompletionToken(ctx context.Context, actor model.Actor, orderID uint64) (*model.ActionToken, error) {
	o, err := e.store.OrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := e.authorizeDepartment(actor, model.DeptKitchen); err != nil {
		return nil, err
	}
	if o.Status != model.OrderSubmitted {
		return nil, reasonf(ErrInvalidState, "order must be submitted to issue a completion token (current status %s)", o.Status)
	}
	return e.issueToken(ctx, nil, &orderID, model.ActionCompletion)
}

func (e *Engine) issueToken(ctx context.Context, requestID, orderID *uint64, actionType string) (*model.ActionToken, error) {
	value, err := repository.NewTokenValue()
	if err != nil {
		return nil, err
	}
	t := &model.ActionToken{
		TokenValue:       value,
		ServiceRequestID: requestID,
		OrderID:          orderID,
		ActionType:       actionType,
		ExpiresAt:        time.Now().UTC().Add(e.tokenTTL),
	}
	if err := e.store.IssueToken(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// ScanResult describes the outcome of a successful token scan.
type ScanResult struct {
	NewStatus  string // status of the target after the transition
	RequestID  uint64 // set when the token targeted a service request
	OrderID    uint64 // set when the token targeted a food order
	ActionType string // start or completion
	InvoiceID  uint64 // set when a completion scan was invoiced synchronously
}

// ScanToken consumes a single-use action token presented by a staff
// member and applies the lifecycle transition it authorizes. The token
// flip and the status transition commit as one atomic unit: a token is
// never marked used without its transition having taken effect, and
// vice versa. On a completion scan the engine synchronously invoices
// the service; invoice failure does not roll back the completed status
// (the service was physically rendered) and is recovered by
// RetryInvoicing.
func (e *Engine) ScanToken(ctx context.Context, actor model.Actor, tokenValue string) (*ScanResult, error) {
	if !model.StaffSide(actor.Role) {
		return nil, reasonf(ErrUnauthorized, "role %s cannot scan action tokens", actor.Role)
	}
	tok, err := e.store.TokenByValue(ctx, tokenValue)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, reasonf(repository.ErrNotFound, "unknown token")
		}
		return nil, err
	}
	if tok.IsUsed {
		return nil, reasonf(repository.ErrTokenAlreadyUsed, "token was already scanned")
	}
	if tok.Expired(time.Now()) {
		return nil, reasonf(repository.ErrTokenExpired, "token expired at %s", tok.ExpiresAt.Format(time.RFC3339))
	}
	if tok.OrderID != nil {
		return e.scanOrderToken(ctx, actor, tok)
	}
	if tok.ServiceRequestID != nil {
		return e.scanRequestToken(ctx, actor, tok)
	}
	return nil, reasonf(ErrInvalidArgument, "token is bound to no target")
}

func (e *Engine) scanRequestToken(ctx context.Context, actor model.Actor, tok *model.ActionToken) (*ScanResult, error) {
	requestID := *tok.ServiceRequestID
	q, err := e.store.RequestByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := e.authorizeDepartment(actor, q.DepartmentAssigned); err != nil {
		return nil, err
	}

	switch tok.ActionType {
	case model.ActionStart:
		if q.Status != model.StatusAssigned && q.Status != model.StatusProcessing {
			return nil, reasonf(ErrInvalidState, "service must be assigned or processing to start (current status %s)", q.Status)
		}
		if _, err := e.store.ConsumeStartToken(ctx, tok.TokenValue, actor.UserID, requestID); err != nil {
			return nil, e.mapConsumeErr(err)
		}
		return &ScanResult{NewStatus: model.StatusInProgress, RequestID: requestID, ActionType: tok.ActionType}, nil

	case model.ActionCompletion:
		if q.Status != completionFromStatus {
			return nil, reasonf(ErrInvalidState, "service must be in progress to complete (current status %s)", q.Status)
		}
		if _, err := e.store.ConsumeRequestCompletionToken(ctx, tok.TokenValue, actor.UserID, requestID); err != nil {
			return nil, e.mapConsumeErr(err)
		}
		res := &ScanResult{NewStatus: model.StatusCompleted, RequestID: requestID, ActionType: tok.ActionType}
		inv, err := e.invoiceRequest(ctx, requestID)
		if err != nil {
			// The service was rendered; invoicing retries out-of-band.
			log.Printf("lifecycle: invoicing failed for completed request %d: %v", requestID, err)
		} else {
			res.NewStatus = model.StatusInvoiced
			res.InvoiceID = inv.ID
		}
		e.notifyCompleted(ctx, q, inv)
		return res, nil

	default:
		return nil, reasonf(ErrInvalidArgument, "unknown action type %q", tok.ActionType)
	}
}

func (e *Engine) scanOrderToken(ctx context.Context, actor model.Actor, tok *model.ActionToken) (*ScanResult, error) {
	orderID := *tok.OrderID
	o, err := e.store.OrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := e.authorizeDepartment(actor, model.DeptKitchen); err != nil {
		return nil, err
	}
	if tok.ActionType != model.ActionCompletion {
		return nil, reasonf(ErrInvalidState, "orders complete in a single scan; %s tokens are not valid for orders", tok.ActionType)
	}
	if o.Status != model.OrderSubmitted {
		return nil, reasonf(ErrInvalidState, "order must be submitted to complete (current status %s)", o.Status)
	}
	if _, err := e.store.ConsumeOrderCompletionToken(ctx, tok.TokenValue, actor.UserID, orderID); err != nil {
		return nil, e.mapConsumeErr(err)
	}
	res := &ScanResult{NewStatus: model.OrderCompleted, OrderID: orderID, ActionType: tok.ActionType}
	inv, err := e.invoiceOrder(ctx, orderID)
	if err != nil {
		log.Printf("lifecycle: invoicing failed for completed order %d: %v", orderID, err)
	} else {
		res.NewStatus = model.OrderInvoiced
		res.InvoiceID = inv.ID
	}
	total := ""
	if inv != nil {
		total = inv.TotalAmount.StringFixed(2)
	}
	e.notify(ctx, ServiceEvent{
		Kind: EventCompleted, OrderID: orderID, ResidentID: o.ResidentID,
		ServiceType: model.ServiceMeal, Department: model.DeptKitchen,
		Status: res.NewStatus, TotalAmount: total,
	})
	return res, nil
}

// mapConsumeErr translates store-level consume failures into the error
// kinds callers distinguish. A guarded-transition conflict means the
// target's status changed between the pre-check and the atomic unit.
func (e *Engine) mapConsumeErr(err error) error {
	if errors.Is(err, repository.ErrConflict) {
		return reasonf(ErrInvalidState, "target status changed during scan; re-read and retry")
	}
	return err
}

// UpdateRequestStatusManual applies a staff-side manual status edit.
// Only the assigned ⇄ processing shuffle (and in_progress →
// processing) is editable by hand: entering in_progress or completed
// requires a token scan, and cancellation has its own path.
func (e *Engine) UpdateRequestStatusManual(ctx context.Context, actor model.Actor, requestID uint64, to string) error {
	q, err := e.store.RequestByID(ctx, requestID)
	if err != nil {
		return err
	}
	if err := e.authorizeDepartment(actor, q.DepartmentAssigned); err != nil {
		return err
	}
	if to != model.StatusAssigned && to != model.StatusProcessing {
		return reasonf(ErrInvalidArgument, "status %q is not manually settable", to)
	}
	if !CanTransition(q.Status, to) {
		return reasonf(ErrInvalidState, "cannot move request from %s to %s", q.Status, to)
	}
	if err := e.store.UpdateRequestStatus(ctx, requestID, []string{q.Status}, to); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return reasonf(ErrInvalidState, "request status changed underneath the edit")
		}
		return err
	}
	return nil
}

// SetActualCost records the staff-entered final cost for an
// in_progress request, overriding the estimate at invoicing time.
func (e *Engine) SetActualCost(ctx context.Context, actor model.Actor, requestID uint64, cost decimal.Decimal) error {
	if cost.IsNegative() || cost.IsZero() {
		return reasonf(ErrInvalidArgument, "actual cost must be positive")
	}
	q, err := e.store.RequestByID(ctx, requestID)
	if err != nil {
		return err
	}
	if err := e.authorizeDepartment(actor, q.DepartmentAssigned); err != nil {
		return err
	}
	if q.Status != model.StatusInProgress {
		return reasonf(ErrInvalidState, "actual cost can only be set while the service is in progress (current status %s)", q.Status)
	}
	return e.store.SetRequestActualCost(ctx, requestID, cost)
}

// CancelRequest moves a pre-completion request to cancelled. Residents
// may cancel their own requests while still awaiting review; facility
// roles may cancel any pre-completed request. Cancellation has no
// ledger or invoice effect.
func (e *Engine) CancelRequest(ctx context.Context, actor model.Actor, requestID uint64, reason string) error {
	q, err := e.store.RequestByID(ctx, requestID)
	if err != nil {
		return err
	}
	var from []string
	switch {
	case actor.Role == model.RoleResident:
		if q.ResidentID != actor.ResidentID {
			return reasonf(ErrUnauthorized, "request belongs to another resident")
		}
		from = []string{model.StatusPending, model.StatusManualReview}
	case model.FacilityWide(actor.Role):
		from = cancellableStatuses
	default:
		return reasonf(ErrUnauthorized, "role %s cannot cancel requests", actor.Role)
	}
	if err := e.store.UpdateRequestStatus(ctx, requestID, from, model.StatusCancelled); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return reasonf(ErrInvalidState, "request cannot be cancelled from status %s", q.Status)
		}
		return err
	}
	log.Printf("lifecycle: request %d cancelled by user %d: %s", requestID, actor.UserID, reason)
	return nil
}

// ListRequests returns requests visible to the actor. Residents see
// only their own; base staff see their department's queue; facility
// roles see everything the filter allows.
func (e *Engine) ListRequests(ctx context.Context, actor model.Actor, f repository.ListFilter) ([]model.ServiceRequest, error) {
	switch {
	case actor.Role == model.RoleResident:
		f.ResidentID = actor.ResidentID
		f.Department = ""
	case actor.Role == model.RoleStaff:
		f.Department = actor.Department
	case model.FacilityWide(actor.Role):
		// unrestricted
	default:
		return nil, reasonf(ErrUnauthorized, "role %s cannot list requests", actor.Role)
	}
	if f.Status != "" && !validStatus(f.Status) {
		return nil, reasonf(ErrInvalidArgument, "unknown status %q", f.Status)
	}
	if f.Type != "" && !model.ValidServiceType(f.Type) {
		return nil, reasonf(ErrInvalidArgument, "unknown service type %q", f.Type)
	}
	if f.Priority != "" && !model.ValidPriority(f.Priority) {
		return nil, reasonf(ErrInvalidArgument, "unknown priority %q", f.Priority)
	}
	return e.store.ListRequests(ctx, f)
}

// GetRequest returns a single request, applying the same visibility
// rule as ListRequests. A request outside the actor's scope reads as
// not found rather than forbidden.
func (e *Engine) GetRequest(ctx context.Context, actor model.Actor, requestID uint64) (*model.ServiceRequest, error) {
	q, err := e.store.RequestByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	switch {
	case actor.Role == model.RoleResident:
		if q.ResidentID != actor.ResidentID {
			return nil, repository.ErrNotFound
		}
	case actor.Role == model.RoleStaff:
		if q.DepartmentAssigned != actor.Department {
			return nil, repository.ErrNotFound
		}
	case model.FacilityWide(actor.Role):
		// unrestricted
	default:
		return nil, reasonf(ErrUnauthorized, "role %s cannot view requests", actor.Role)
	}
	return q, nil
}

func validStatus(s string) bool {
	_, ok := allowedTransitions[s]
	return ok
}

// SubmitOrderInput is the validated input for SubmitOrder.
type SubmitOrderInput struct {
	Items     string
	TotalCost decimal.Decimal
}

// SubmitOrder places a restaurant order for a resident. Orders take
// the short lifecycle: a completion token is issued immediately and a
// single scan moves the order to completed and invoiced.
func (e *Engine) SubmitOrder(ctx context.Context, actor model.Actor, in SubmitOrderInput) (*model.FoodOrder, error) {
	if actor.Role != model.RoleResident || actor.ResidentID == 0 {
		return nil, reasonf(ErrUnauthorized, "only residents can place orders")
	}
	if strings.TrimSpace(in.Items) == "" {
		return nil, reasonf(ErrInvalidArgument, "items are required")
	}
	if in.TotalCost.IsNegative() || in.TotalCost.IsZero() {
		return nil, reasonf(ErrInvalidArgument, "total cost must be positive")
	}
	o := &model.FoodOrder{
		ResidentID: actor.ResidentID,
		Items:      strings.TrimSpace(in.Items),
		TotalCost:  in.TotalCost.Round(2),
		Status:     model.OrderSubmitted,
	}
	if err := e.store.CreateOrder(ctx, o); err != nil {
		return nil, err
	}
	if _, err := e.issueToken(ctx, nil, &o.ID, model.ActionCompletion); err != nil {
		log.Printf("lifecycle: completion token issuance failed for order %d: %v", o.ID, err)
	}
	return o, nil
}

// authorizeDepartment enforces the department rule for token-scoped
// actions: base staff must match the target's department, facility
// roles bypass the check, everyone else is rejected.
func (e *Engine) authorizeDepartment(actor model.Actor, department string) error {
	if model.FacilityWide(actor.Role) {
		return nil
	}
	if actor.Role != model.RoleStaff {
		return reasonf(ErrUnauthorized, "role %s cannot act on service requests", actor.Role)
	}
	if actor.Department != department {
		return reasonf(ErrUnauthorized, "staff department %s does not match request department %s", actor.Department, department)
	}
	return nil
}

func (e *Engine) notifyCompleted(ctx context.Context, q *model.ServiceRequest, inv *model.ServiceInvoice) {
	ev := ServiceEvent{
		Kind: EventCompleted, RequestID: q.ID, ResidentID: q.ResidentID,
		ServiceType: q.Type, Priority: q.Priority,
		Department: q.DepartmentAssigned, Status: model.StatusCompleted,
	}
	if inv != nil {
		ev.Status = model.StatusInvoiced
		ev.TotalAmount = inv.TotalAmount.StringFixed(2)
	}
	e.notify(ctx, ev)
}

// notify dispatches an event when a notifier is configured. Notifier
// implementations swallow their own errors; a nil notifier drops the
// event.
func (e *Engine) notify(ctx context.Context, ev ServiceEvent) {
	if e.notifier == nil {
		return
	}
	e.notifier.Notify(ctx, ev)
}

// Event kind aliases re-exported for callers of the Notifier interface.
const (
	EventAssigned     = "assigned"
	EventManualReview = "manual_review"
	EventCompleted    = "completed"
)
