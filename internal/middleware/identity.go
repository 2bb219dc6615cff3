package middleware

// identity.go defines helpers shared across middleware and handlers for
// reading the authenticated identity out of the Echo context. JWTAuth stores
// the normalized claims; Actor reassembles them into the model type the
// lifecycle engine authorizes against.

import (
	"github.com/labstack/echo/v4"

	"github.com/trexoil/edenlivingweb-sub000/internal/model"
)

// Actor builds the acting identity from the context values set by JWTAuth.
// Fields are zero-valued when the corresponding claim was absent, e.g.
// Department for residents and ResidentID for staff.
func Actor(c echo.Context) model.Actor {
	return model.Actor{
		UserID:     ctxUint64(c, "user_id"),
		Role:       ctxString(c, "role"),
		Department: ctxString(c, "department"),
		ResidentID: ctxUint64(c, "resident_id"),
	}
}

func ctxString(c echo.Context, key string) string {
	if v, ok := c.Get(key).(string); ok {
		return v
	}
	return ""
}

func ctxUint64(c echo.Context, key string) uint64 {
	if v, ok := c.Get(key).(uint64); ok {
		return v
	}
	return 0
}
