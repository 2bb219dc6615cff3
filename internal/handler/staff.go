package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trexoil/edenlivingweb-sub000/internal/lifecycle"
	"github.com/trexoil/edenlivingweb-sub000/internal/middleware"
	"github.com/trexoil/edenlivingweb-sub000/internal/repository"
)

// StaffHandler exposes the staff-facing surface: the department queue,
// action token issuance and the scan endpoint that drives lifecycle
// transitions on the floor.
type StaffHandler struct {
	Engine *lifecycle.Engine
	Store  *repository.Store
}

// Departments lists the facility departments and their notification
// targets.
func (h *StaffHandler) Departments(c echo.Context) error {
	depts, err := h.Store.Departments.List(c.Request().Context())
	if err != nil {
		return writeDomainErr(c, err)
	}
	views := make([]departmentView, 0, len(depts))
	for _, d := range depts {
		views = append(views, departmentView{ID: d.ID, Name: d.Name, NotifyEmail: d.NotifyEmail})
	}
	return c.JSON(http.StatusOK, echo.Map{"departments": views})
}

// DepartmentRequests returns the request queue for the caller's
// department (everything, for facility-wide roles). Accepts the same
// query filters as the resident listing.
func (h *StaffHandler) DepartmentRequests(c echo.Context) error {
	f := repository.ListFilter{
		Status:   c.QueryParam("status"),
		Type:     c.QueryParam("type"),
		Priority: c.QueryParam("priority"),
	}
	qs, err := h.Engine.ListRequests(c.Request().Context(), middleware.Actor(c), f)
	if err != nil {
		return writeDomainErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"requests": viewRequests(qs)})
}

// IssueStartToken mints a start token for a request in the caller's
// department.
func (h *StaffHandler) IssueStartToken(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	tok, err := h.Engine.IssueStartToken(c.Request().Context(), middleware.Actor(c), id)
	if err != nil {
		return writeDomainErr(c, err)
	}
	return c.JSON(http.StatusCreated, viewToken(tok))
}

// IssueCompletionToken mints a completion token for an in-progress
// request in the caller's department.
func (h *StaffHandler) IssueCompletionToken(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	tok, err := h.Engine.IssueCompletionToken(c.Request().Context(), middleware.Actor(c), id)
	if err != nil {
		return writeDomainErr(c, err)
	}
	return c.JSON(http.StatusCreated, viewToken(tok))
}

// IssueOrderCompletionToken mints a completion token for a submitted
// food order (kitchen scope).
func (h *StaffHandler) IssueOrderCompletionToken(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	tok, err := h.Engine.IssueOrderCompletionToken(c.Request().Context(), middleware.Actor(c), id)
	if err != nil {
		return writeDomainErr(c, err)
	}
	return c.JSON(http.StatusCreated, viewToken(tok))
}

// scanReq carries the raw token value presented by the scanner.
type scanReq struct {
	Token string `json:"token"`
}

// Scan consumes an action token and applies the transition it
// authorizes. The response reports the new status of the target and,
// for completion scans, the invoice generated.
func (h *StaffHandler) Scan(c echo.Context) error {
	var req scanReq
	if err := c.Bind(&req); err != nil || req.Token == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token required"})
	}
	res, err := h.Engine.ScanToken(c.Request().Context(), middleware.Actor(c), req.Token)
	if err != nil {
		return writeDomainErr(c, err)
	}
	out := echo.Map{
		"action_type": res.ActionType,
		"new_status":  res.NewStatus,
	}
	if res.RequestID != 0 {
		out["request_id"] = res.RequestID
	}
	if res.OrderID != 0 {
		out["order_id"] = res.OrderID
	}
	if res.InvoiceID != 0 {
		out["invoice_id"] = res.InvoiceID
	}
	return c.JSON(http.StatusOK, out)
}

// statusReq is the JSON body for the manual status edit.
type statusReq struct {
	Status string `json:"status"`
}

// UpdateStatus performs the narrow manual status edits allowed without
// a token (assigned/processing shuffling while work is queued).
func (h *StaffHandler) UpdateStatus(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req statusReq
	if err := c.Bind(&req); err != nil || req.Status == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "status required"})
	}
	if err := h.Engine.UpdateRequestStatusManual(c.Request().Context(), middleware.Actor(c), id, req.Status); err != nil {
		return writeDomainErr(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// costReq is the JSON body for recording the final cost.
type costReq struct {
	ActualCost string `json:"actual_cost"`
}

// SetActualCost records the tax-inclusive final cost of an in-progress
// request, overriding the estimate the invoice would otherwise use.
func (h *StaffHandler) SetActualCost(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req costReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid json"})
	}
	cost, ok := parseMoney(req.ActualCost)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "actual_cost must be a decimal amount"})
	}
	if err := h.Engine.SetActualCost(c.Request().Context(), middleware.Actor(c), id, cost); err != nil {
		return writeDomainErr(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
