package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trexoil/edenlivingweb-sub000/internal/lifecycle"
	"github.com/trexoil/edenlivingweb-sub000/internal/middleware"
)

// AdminHandler exposes the facility administration surface: assigning
// reviewed requests, reconciling missed invoices and managing invoice
// state.
type AdminHandler struct {
	Engine *lifecycle.Engine
}

// Assign approves a request awaiting review (or re-routes an
// auto-approved one) and moves it to assigned, issuing a fresh start
// token for the department.
func (h *AdminHandler) Assign(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	q, err := h.Engine.AssignRequest(c.Request().Context(), middleware.Actor(c), id)
	if err != nil {
		return writeDomainErr(c, err)
	}
	return c.JSON(http.StatusOK, viewRequest(q))
}

// RetryInvoice re-runs invoice generation for a completed request whose
// invoicing failed. Safe to call repeatedly.
func (h *AdminHandler) RetryInvoice(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	inv, err := h.Engine.RetryInvoicing(c.Request().Context(), id)
	if err != nil {
		return writeDomainErr(c, err)
	}
	return c.JSON(http.StatusOK, viewInvoice(inv))
}

// SendInvoice moves a draft invoice to sent.
func (h *AdminHandler) SendInvoice(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if err := h.Engine.MarkInvoiceSent(c.Request().Context(), middleware.Actor(c), id); err != nil {
		return writeDomainErr(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// CancelInvoice voids an invoice, reversing the ledger charge when it
// had already been sent.
func (h *AdminHandler) CancelInvoice(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req cancelReq
	_ = c.Bind(&req) // body is optional
	if err := h.Engine.CancelInvoice(c.Request().Context(), middleware.Actor(c), id, req.Reason); err != nil {
		return writeDomainErr(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
