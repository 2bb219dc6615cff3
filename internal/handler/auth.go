package handler // handler contains HTTP endpoint implementations

import (
	"database/sql" // used to detect sql.ErrNoRows from repository lookups
	"errors"       // errors.Is for sentinel comparisons
	"net/http"     // HTTP status code constants
	"strings"      // string trimming and normalization

	"github.com/labstack/echo/v4"    // web framework
	"github.com/shopspring/decimal"  // decimal arithmetic for the starting credit limit
	"golang.org/x/crypto/bcrypt"     // bcrypt cost bounds

	"github.com/trexoil/edenlivingweb-sub000/internal/config"
	"github.com/trexoil/edenlivingweb-sub000/internal/model"
	"github.com/trexoil/edenlivingweb-sub000/internal/repository"
	"github.com/trexoil/edenlivingweb-sub000/internal/utils"
)

// AuthHandler bundles the dependencies required by authentication
// endpoints.  Users persists accounts, Residents creates the credit
// ledger row backing each resident login, Tokens manages refresh
// tokens and Cfg supplies secrets and TTLs.
type AuthHandler struct {
	Users     *repository.UserRepo
	Residents *repository.ResidentRepo
	Tokens    *repository.RefreshTokenRepo
	Cfg       config.Config
}

// registerReq defines the expected JSON body for registration.
// Role defaults to resident.  Residents supply full_name and unit for
// their ledger account; staff registrations supply the department they
// work in.  Facility roles (admin, site_admin, superadmin) are seeded
// out of band and cannot self-register.
type registerReq struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	Role       string `json:"role"`
	FullName   string `json:"full_name"`
	Unit       string `json:"unit"`
	Department string `json:"department"`
}

// loginReq defines the expected JSON body for login.
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// refreshReq carries the raw refresh token for rotation and logout.
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

// Register creates a new account.  For residents it also opens the
// resident_accounts ledger row with the configured starting credit
// limit and a zero balance.  On success it returns 201 Created with
// the new user id; duplicate emails produce 409 Conflict.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid json"})
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "valid email required"})
	}
	if len(req.Password) < 8 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password must be at least 8 characters"})
	}

	role := strings.TrimSpace(req.Role)
	if role == "" {
		role = model.RoleResident
	}
	switch role {
	case model.RoleResident:
		if strings.TrimSpace(req.FullName) == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "full_name required for residents"})
		}
	case model.RoleStaff:
		if !model.ValidDepartment(req.Department) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown department"})
		}
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "role must be resident or staff"})
	}

	// Clamp bcrypt cost into the library's supported range.
	cost := h.Cfg.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	dept := ""
	if role == model.RoleStaff {
		dept = req.Department
	}
	id, err := h.Users.Create(c.Request().Context(), req.Email, req.Password, role, dept, cost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already registered"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create user"})
	}

	if role == model.RoleResident {
		limit, err := decimal.NewFromString(h.Cfg.DefaultCreditLimit)
		if err != nil {
			limit = decimal.NewFromInt(1000)
		}
		acct := &model.ResidentAccount{
			UserID:         id,
			FullName:       strings.TrimSpace(req.FullName),
			Unit:           strings.TrimSpace(req.Unit),
			CreditLimit:    limit,
			CurrentBalance: decimal.Zero,
		}
		if err := h.Residents.Create(c.Request().Context(), acct); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create resident account"})
		}
		return c.JSON(http.StatusCreated, echo.Map{"id": id, "role": role, "resident_account_id": acct.ID})
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id, "role": role})
}

// Login verifies credentials and returns a token pair.  The access
// token carries the role, department and resident account id claims
// the protected routes authorize against.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid json"})
	}

	u, err := h.Users.GetByEmail(c.Request().Context(), req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
	}
	if !u.IsActive || !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	return h.issuePair(c, u)
}

// Refresh rotates a refresh token: the presented token is revoked and
// a brand new pair is returned.  Invalid, expired or revoked tokens
// all map to 401 so callers cannot probe token state.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}

	hash := utils.HashRefreshRaw(req.RefreshToken)
	userID, err := h.Tokens.ValidateRefresh(c.Request().Context(), hash)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
	}
	u, err := h.Users.GetByID(c.Request().Context(), userID)
	if err != nil || !u.IsActive {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
	}
	// Rotation: revoke before issuing the replacement.
	if err := h.Tokens.RevokeByHash(c.Request().Context(), hash); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not rotate token"})
	}

	return h.issuePair(c, u)
}

// Logout revokes the presented refresh token.  The response is 204
// regardless of whether the token was previously valid.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}
	hash := utils.HashRefreshRaw(req.RefreshToken)
	_ = h.Tokens.RevokeByHash(c.Request().Context(), hash)
	return c.NoContent(http.StatusNoContent)
}

// issuePair builds the identity claims for u, signs an access token,
// mints and stores a refresh token, and writes the pair to the client.
func (h *AuthHandler) issuePair(c echo.Context, u model.User) error {
	id := utils.Identity{UserID: u.ID, Role: u.Role, Department: u.Department}
	if u.Role == model.RoleResident {
		acct, err := h.Residents.GetByUserID(c.Request().Context(), u.ID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "resident account missing"})
		}
		id.ResidentID = acct.ID
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, id, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not sign token"})
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not mint refresh token"})
	}
	if err := h.Tokens.StoreRefresh(c.Request().Context(), u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not store refresh token"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"access_token":  access.Token,
		"expires_at":    access.Exp,
		"refresh_token": refresh.Raw,
		"role":          u.Role,
	})
}
