package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/retail-pos-core/internal/engine"
	"github.com/iliyamo/retail-pos-core/internal/middleware"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Engine *engine.AuthEngine
}

func NewAuthHandler(e *engine.AuthEngine) *AuthHandler { return &AuthHandler{Engine: e} }

// ----- DTOs -----

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}
type changePasswordReq struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type authResp struct {
	User               engine.UserProfile `json:"user"`
	Access             tokenPart          `json:"access"`
	Refresh            tokenPart          `json:"refresh"`
	MustChangePassword bool               `json:"must_change_password"`
}

// Login verifies credentials and returns a token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ip := c.RealIP()
	ua := c.Request().UserAgent()
	var ipPtr, uaPtr *string
	if ip != "" {
		ipPtr = &ip
	}
	if ua != "" {
		uaPtr = &ua
	}

	res, err := h.Engine.Login(ctx, req.Username, req.Password, ipPtr, uaPtr)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, authResp{
		User:               res.User,
		Access:             tokenPart{Token: res.Access.Token, Expires: res.Access.Exp},
		Refresh:            tokenPart{Token: res.Refresh.Raw, Expires: res.Refresh.Exp},
		MustChangePassword: res.MustChangePassword,
	})
}

// Refresh exchanges a refresh token for a new pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := h.Engine.Refresh(ctx, strings.TrimSpace(req.RefreshToken))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, authResp{
		User:               res.User,
		Access:             tokenPart{Token: res.Access.Token, Expires: res.Access.Exp},
		Refresh:            tokenPart{Token: res.Refresh.Raw, Expires: res.Refresh.Exp},
		MustChangePassword: res.MustChangePassword,
	})
}

// Logout deactivates the caller's session. Always 204: the engine
// guarantees logout never fails outward.
func (h *AuthHandler) Logout(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	raw := ""
	if auth := c.Request().Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		raw = strings.TrimPrefix(auth, "Bearer ")
	}
	var userID *uint64
	if p, ok := middleware.ProfileFrom(c); ok {
		userID = &p.ID
	}
	h.Engine.Logout(ctx, raw, userID)
	return c.NoContent(http.StatusNoContent)
}

// ChangePassword rotates the authenticated user's password.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	p, ok := middleware.ProfileFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req changePasswordReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "current_password/new_password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Engine.ChangePassword(ctx, p.ID, req.CurrentPassword, req.NewPassword); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c echo.Context) error {
	p, ok := middleware.ProfileFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	return c.JSON(http.StatusOK, p)
}
