package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking/internal/config"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/repository"
	"github.com/iliyamo/cinema-booking/internal/utils"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  UserStore
	Tokens TokenStore
	Log    *zap.Logger
}

func NewAuthHandler(cfg config.Config, u UserStore, t TokenStore, log *zap.Logger) *AuthHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, Log: log}
}

// ----- DTOs -----

type registerReq struct {
	Username string `json:"username" validate:"required,max=45"`
	Email    string `json:"email" validate:"required,email,max=100"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}
type loginReq struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

// userResponse is the public view of an account.
type userResponse struct {
	ID        uint64     `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Role      model.Role `json:"role"`
	CreatedAt time.Time  `json:"created_at"`
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role, CreatedAt: u.CreatedAt}
}

type authResp struct {
	User    userResponse `json:"user"`
	Access  tokenPart    `json:"access"`
	Refresh tokenPart    `json:"refresh"`
}

// Register creates a USER account and returns a token pair.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	u := &model.User{Username: req.Username, Email: req.Email, Role: model.RoleUser}
	if err := h.Users.Create(ctx, u, req.Password, h.Cfg.BcryptCost); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return errJSON(c, http.StatusConflict, "username or email already exists")
		}
		return err
	}
	resp, err := h.issue(c, u)
	if err != nil {
		return err
	}
	h.Log.Info("user registered", zap.Uint64("user_id", u.ID))
	return c.JSON(http.StatusCreated, resp)
}

// Login verifies username and password and returns a new pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return errJSON(c, http.StatusUnauthorized, "invalid credentials")
		}
		return err
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return errJSON(c, http.StatusUnauthorized, "invalid credentials")
	}
	resp, err := h.issue(c, u)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// Refresh validates a refresh token by hash, revokes it and issues a new
// pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return errJSON(c, http.StatusBadRequest, "refresh_token required")
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := reqCtx(c)
	defer cancel()

	userID, err := h.Tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidRefresh) {
			return errJSON(c, http.StatusUnauthorized, "invalid refresh")
		}
		return err
	}
	if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
		return err
	}
	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return errJSON(c, http.StatusUnauthorized, "invalid refresh")
		}
		return err
	}
	resp, err := h.issue(c, u)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// Logout revokes one refresh token when the body carries it, or every
// token of the authenticated caller otherwise.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	raw := strings.TrimSpace(req.RefreshToken)

	ctx, cancel := reqCtx(c)
	defer cancel()

	if raw != "" {
		hash := utils.HashRefreshRaw(raw)
		if _, err := h.Tokens.ValidateRefresh(ctx, hash); err != nil {
			if errors.Is(err, repository.ErrInvalidRefresh) {
				return errJSON(c, http.StatusUnauthorized, "invalid refresh token")
			}
			return err
		}
		if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	}

	a, err := actor(c)
	if err != nil {
		return errJSON(c, http.StatusBadRequest, "provide Authorization header or refresh_token")
	}
	if err := h.Tokens.RevokeAllForUser(ctx, a.ID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the authenticated account.
func (h *AuthHandler) Me(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, a.ID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return errJSON(c, http.StatusNotFound, "user not found")
		}
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(u))
}

func (h *AuthHandler) issue(c echo.Context, u *model.User) (authResp, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTL())
	if err != nil {
		return authResp{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTL())
	if err != nil {
		return authResp{}, err
	}
	if err := h.Tokens.StoreRefresh(c.Request().Context(), u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return authResp{}, err
	}
	return authResp{
		User:    toUserResponse(u),
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
	}, nil
}
