package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/iliyamo/park-passes/internal/config"
	"github.com/iliyamo/park-passes/internal/middleware"
	"github.com/iliyamo/park-passes/internal/model"
	"github.com/iliyamo/park-passes/internal/repository"
	"github.com/iliyamo/park-passes/internal/utils"
)

// UserStore is the account storage used by the auth endpoints.
type UserStore interface {
	Create(ctx context.Context, email, password string, cost int) (uint64, error)
	CreateWithRole(ctx context.Context, email, password, role string, retailerGroupID *uint64, cost int) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// TokenStore keeps hashed refresh tokens.
type TokenStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string, now time.Time) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  UserStore
	Tokens TokenStore
}

func NewAuthHandler(cfg config.Config, u UserStore, t TokenStore) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t}
}

// ----- DTOs -----

type registerReq struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type createUserReq struct {
	Email           string  `json:"email" validate:"required,email,max=254"`
	Password        string  `json:"password" validate:"required,min=8,max=72"`
	Role            string  `json:"role" validate:"required,oneof=STAFF RETAILER CUSTOMER"`
	RetailerGroupID *uint64 `json:"retailer_group_id" validate:"required_if=Role RETAILER"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

func (r *registerReq) normalize()   { r.Email = normalizeEmail(r.Email) }
func (r *createUserReq) normalize() { r.Email = normalizeEmail(r.Email) }
func (r *loginReq) normalize()      { r.Email = normalizeEmail(r.Email) }

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type userPart struct {
	ID              uint64  `json:"id"`
	Email           string  `json:"email"`
	Role            string  `json:"role"`
	RetailerGroupID *uint64 `json:"retailer_group_id,omitempty"`
}

type authResp struct {
	User    userPart  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

// issue creates a token pair for u and stores the refresh hash.
func (h *AuthHandler) issue(ctx context.Context, u model.User) (authResp, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, u.RetailerGroupID, h.Cfg.AccessTTLMin)
	if err != nil {
		return authResp{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return authResp{}, err
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return authResp{}, err
	}
	return authResp{
		User:    userPart{ID: u.ID, Email: u.Email, Role: u.Role, RetailerGroupID: u.RetailerGroupID},
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
	}, nil
}

// Register: create a customer account and return tokens immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	email := req.Email

	ctx, cancel := reqCtx(c)
	defer cancel()

	uid, err := h.Users.Create(ctx, email, req.Password, h.Cfg.BcryptCost)
	if errors.Is(err, repository.ErrEmailExists) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
	}
	if err != nil {
		return fail(c, err)
	}
	resp, err := h.issue(ctx, model.User{ID: uid, Email: email, Role: model.RoleCustomer})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, resp)
}

// CreateUser lets staff open staff and retailer accounts.
func (h *AuthHandler) CreateUser(c echo.Context) error {
	var req createUserReq
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	if req.Role != model.RoleRetailer {
		req.RetailerGroupID = nil
	}
	email := req.Email

	ctx, cancel := reqCtx(c)
	defer cancel()

	uid, err := h.Users.CreateWithRole(ctx, email, req.Password, req.Role, req.RetailerGroupID, h.Cfg.BcryptCost)
	if errors.Is(err, repository.ErrEmailExists) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
	}
	if err != nil {
		return fail(c, err)
	}
	log.WithFields(log.Fields{"user_id": uid, "role": req.Role}).Info("user created")
	return c.JSON(http.StatusCreated, userPart{ID: uid, Email: email, Role: req.Role, RetailerGroupID: req.RetailerGroupID})
}

// Login: verify and return new pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if err != nil {
		return fail(c, err)
	}
	if !u.IsActive || !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	resp, err := h.issue(ctx, u)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Refresh: validate by hash, revoke old, issue new.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := reqCtx(c)
	defer cancel()

	userID, err := h.Tokens.ValidateRefresh(ctx, hash, time.Now().UTC())
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	}
	if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
		return fail(c, err)
	}
	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		return fail(c, err)
	}
	resp, err := h.issue(ctx, u)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Logout revokes one refresh token when given in the body; otherwise an
// authenticated caller is logged out of every session.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	refreshToken := strings.TrimSpace(req.RefreshToken)

	ctx, cancel := reqCtx(c)
	defer cancel()

	if refreshToken != "" {
		hash := utils.HashRefreshRaw(refreshToken)
		if _, err := h.Tokens.ValidateRefresh(ctx, hash, time.Now().UTC()); err != nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
		}
		if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
			return fail(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
	id := middleware.IdentityFrom(c)
	if !id.Authenticated() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "provide Authorization header or refresh_token"})
	}
	if err := h.Tokens.RevokeAllForUser(ctx, id.UserID); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Me: simple protected endpoint.
func (h *AuthHandler) Me(c echo.Context) error {
	id := middleware.IdentityFrom(c)
	return c.JSON(http.StatusOK, echo.Map{
		"user_id":           id.UserID,
		"role":              id.Role,
		"retailer_group_id": id.RetailerGroupID,
	})
}
