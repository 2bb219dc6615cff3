package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trexoil/edenlivingweb-sub000/internal/lifecycle"
	"github.com/trexoil/edenlivingweb-sub000/internal/middleware"
	"github.com/trexoil/edenlivingweb-sub000/internal/repository"
)

// ResidentHandler exposes the resident-facing surface: submitting and
// tracking service requests, placing restaurant orders and reading
// invoices. All lifecycle rules live in the engine; the handler only
// binds JSON and translates errors.
type ResidentHandler struct {
	Engine *lifecycle.Engine
	Store  *repository.Store
}

// createRequestReq is the JSON body for POST /v1/requests.
type createRequestReq struct {
	Type          string     `json:"type"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Priority      string     `json:"priority"`
	ScheduledDate *time.Time `json:"scheduled_date"`
}

// CreateRequest submits a new service request for the authenticated
// resident. The response carries the approval outcome so clients can
// show whether the request is queued for review.
func (h *ResidentHandler) CreateRequest(c echo.Context) error {
	var req createRequestReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid json"})
	}
	q, err := h.Engine.CreateRequest(c.Request().Context(), middleware.Actor(c), lifecycle.CreateRequestInput{
		Type:          req.Type,
		Title:         req.Title,
		Description:   req.Description,
		Priority:      req.Priority,
		ScheduledDate: req.ScheduledDate,
	})
	if err != nil {
		return writeDomainErr(c, err)
	}
	return c.JSON(http.StatusCreated, viewRequest(q))
}

// ListRequests returns the requests visible to the caller, optionally
// narrowed by status, type or priority query parameters.
func (h *ResidentHandler) ListRequests(c echo.Context) error {
	f := repository.ListFilter{
		Status:   c.QueryParam("status"),
		Type:     c.QueryParam("type"),
		Priority: c.QueryParam("priority"),
	}
	if rid := c.QueryParam("resident_id"); rid != "" {
		if n, err := strconv.ParseUint(rid, 10, 64); err == nil {
			f.ResidentID = n
		}
	}
	qs, err := h.Engine.ListRequests(c.Request().Context(), middleware.Actor(c), f)
	if err != nil {
		return writeDomainErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"requests": viewRequests(qs)})
}

// GetRequest returns a single request within the caller's visibility.
func (h *ResidentHandler) GetRequest(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	q, err := h.Engine.GetRequest(c.Request().Context(), middleware.Actor(c), id)
	if err != nil {
		return writeDomainErr(c, err)
	}
	return c.JSON(http.StatusOK, viewRequest(q))
}

// cancelReq optionally carries a reason for the audit log.
type cancelReq struct {
	Reason string `json:"reason"`
}

// CancelRequest cancels a request the caller is allowed to cancel.
func (h *ResidentHandler) CancelRequest(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req cancelReq
	_ = c.Bind(&req) // body is optional
	if err := h.Engine.CancelRequest(c.Request().Context(), middleware.Actor(c), id, req.Reason); err != nil {
		return writeDomainErr(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// submitOrderReq is the JSON body for POST /v1/orders.
type submitOrderReq struct {
	Items     string `json:"items"`
	TotalCost string `json:"total_cost"`
}

// SubmitOrder places a restaurant order for the authenticated resident.
func (h *ResidentHandler) SubmitOrder(c echo.Context) error {
	var req submitOrderReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid json"})
	}
	total, ok := parseMoney(req.TotalCost)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "total_cost must be a decimal amount"})
	}
	o, err := h.Engine.SubmitOrder(c.Request().Context(), middleware.Actor(c), lifecycle.SubmitOrderInput{
		Items:     req.Items,
		TotalCost: total,
	})
	if err != nil {
		return writeDomainErr(c, err)
	}
	return c.JSON(http.StatusCreated, viewOrder(o))
}

// ListOrders returns the authenticated resident's orders, newest first.
func (h *ResidentHandler) ListOrders(c echo.Context) error {
	actor := middleware.Actor(c)
	if actor.ResidentID == 0 {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "resident account required"})
	}
	orders, err := h.Store.ListOrdersByResident(c.Request().Context(), actor.ResidentID)
	if err != nil {
		return writeDomainErr(c, err)
	}
	views := make([]orderView, 0, len(orders))
	for i := range orders {
		views = append(views, viewOrder(&orders[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"orders": views})
}

// ListInvoices returns the authenticated resident's invoices together
// with their current credit standing.
func (h *ResidentHandler) ListInvoices(c echo.Context) error {
	actor := middleware.Actor(c)
	if actor.ResidentID == 0 {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "resident account required"})
	}
	ctx := c.Request().Context()
	invoices, err := h.Store.Invoices.ListByResident(ctx, actor.ResidentID)
	if err != nil {
		return writeDomainErr(c, err)
	}
	acct, err := h.Store.ResidentByID(ctx, actor.ResidentID)
	if err != nil {
		return writeDomainErr(c, err)
	}
	views := make([]invoiceView, 0, len(invoices))
	for i := range invoices {
		views = append(views, viewInvoice(&invoices[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"invoices":         views,
		"current_balance":  acct.CurrentBalance.StringFixed(2),
		"credit_limit":     acct.CreditLimit.StringFixed(2),
		"available_credit": acct.AvailableCredit().StringFixed(2),
	})
}

// paramID parses a numeric path parameter.
func paramID(c echo.Context, name string) (uint64, bool) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return n, true
}
