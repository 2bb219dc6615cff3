package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/trexoil/edenlivingweb-sub000/internal/handler"    // import the handlers that implement business logic
	"github.com/trexoil/edenlivingweb-sub000/internal/middleware" // import middleware for JWT authentication and role enforcement
	"github.com/trexoil/edenlivingweb-sub000/internal/model"      // role name constants
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Map the GET request at path "/healthz" to the Health handler.  This
	// endpoint can be used by load balancers or monitoring systems to verify
	// that the service is up and running.
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication-related routes.
// Unauthenticated operations live under /v1/auth; every protected
// endpoint elsewhere relies on the JWTAuth middleware with the same
// secret.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler) {
	g := e.Group("/v1/auth")
	// Register a POST endpoint to handle user registration at /v1/auth/register.
	g.POST("/register", a.Register)
	// Register a POST endpoint to handle user login at /v1/auth/login.
	g.POST("/login", a.Login)
	// Refresh rotates the refresh token and returns a new pair.
	g.POST("/refresh", a.Refresh)
	// Logout revokes the presented refresh token.  No JWT is required;
	// possession of the refresh token is the credential.
	g.POST("/logout", a.Logout)
}

// RegisterResident registers the resident-facing endpoints under /v1.
// Requests, orders and invoices are all scoped to the authenticated
// identity by the lifecycle engine, so the only gate here is a valid
// token; listing endpoints stay open to staff roles too since the
// engine narrows what each role sees.
func RegisterResident(e *echo.Echo, h *handler.ResidentHandler, jwtSecret string) {
	g := e.Group("/v1")
	g.Use(middleware.JWTAuth(jwtSecret))

	// Request submission and cancellation are resident actions; reads go
	// through the engine's visibility rule and are shared with staff.
	g.POST("/requests", h.CreateRequest, middleware.RequireRole(model.RoleResident))
	g.GET("/requests", h.ListRequests)
	g.GET("/requests/:id", h.GetRequest)
	g.DELETE("/requests/:id", h.CancelRequest)

	g.POST("/orders", h.SubmitOrder, middleware.RequireRole(model.RoleResident))
	g.GET("/orders", h.ListOrders, middleware.RequireRole(model.RoleResident))
	g.GET("/invoices", h.ListInvoices, middleware.RequireRole(model.RoleResident))
}

// RegisterStaff registers the staff surface: the department queue,
// token issuance and the scan endpoint.  Facility-wide roles share the
// same endpoints; the engine applies the department rule.
func RegisterStaff(e *echo.Echo, h *handler.StaffHandler, jwtSecret string) {
	staffSide := middleware.RequireRole(
		model.RoleStaff, model.RoleAdmin, model.RoleSiteAdmin, model.RoleSuperadmin)

	g := e.Group("/v1")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(staffSide)

	g.GET("/departments", h.Departments)
	g.GET("/department/requests", h.DepartmentRequests)
	g.POST("/requests/:id/tokens/start", h.IssueStartToken)
	g.POST("/requests/:id/tokens/completion", h.IssueCompletionToken)
	g.POST("/orders/:id/tokens/completion", h.IssueOrderCompletionToken)
	g.POST("/scan", h.Scan)
	g.PATCH("/requests/:id/status", h.UpdateStatus)
	g.PATCH("/requests/:id/cost", h.SetActualCost)
}

// RegisterAdmin registers the facility administration surface.  Only
// facility-wide roles pass the gate; the engine re-checks on every
// operation.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, jwtSecret string) {
	g := e.Group("/v1/admin")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole(model.RoleAdmin, model.RoleSiteAdmin, model.RoleSuperadmin))

	g.POST("/requests/:id/assign", h.Assign)
	g.POST("/requests/:id/invoice", h.RetryInvoice)
	g.POST("/invoices/:id/send", h.SendInvoice)
	g.DELETE("/invoices/:id", h.CancelInvoice)
}
