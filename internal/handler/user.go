package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/repository"
)

// UserHandler is the admin account console.
type UserHandler struct {
	Users      UserStore
	BcryptCost int
}

func NewUserHandler(u UserStore, bcryptCost int) *UserHandler {
	return &UserHandler{Users: u, BcryptCost: bcryptCost}
}

type userReq struct {
	Username string `json:"username" validate:"required,max=45"`
	Email    string `json:"email" validate:"required,email,max=100"`
	Password string `json:"password" validate:"omitempty,min=8,max=72"`
	Role     string `json:"role" validate:"omitempty,oneof=USER ADMIN user admin"`
}

func (r userReq) role() model.Role {
	if role, ok := model.ParseRole(r.Role); ok {
		return role
	}
	return model.RoleUser
}

func (h *UserHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	users, err := h.Users.List(ctx)
	if err != nil {
		return err
	}
	out := make([]userResponse, 0, len(users))
	for i := range users {
		out = append(out, toUserResponse(&users[i]))
	}
	return c.JSON(http.StatusOK, out)
}

func (h *UserHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return errJSON(c, http.StatusNotFound, "user not found")
		}
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(u))
}

// Create adds an account with any role.  A password is mandatory here.
func (h *UserHandler) Create(c echo.Context) error {
	var req userReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if req.Password == "" {
		return errJSON(c, http.StatusBadRequest, "password is required.")
	}
	u := &model.User{Username: req.Username, Email: req.Email, Role: req.role()}

	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Users.Create(ctx, u, req.Password, h.BcryptCost); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return errJSON(c, http.StatusConflict, "username or email already exists")
		}
		return err
	}
	c.Response().Header().Set(echo.HeaderLocation, "/v1/users/"+strconv.FormatUint(u.ID, 10))
	return c.JSON(http.StatusCreated, toUserResponse(u))
}

// Update edits an account.  An empty password keeps the current one.
func (h *UserHandler) Update(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req userReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return errJSON(c, http.StatusNotFound, "user not found")
		}
		return err
	}
	u.Username = req.Username
	u.Email = req.Email
	if req.Role != "" {
		u.Role = req.role()
	}
	if err := h.Users.Update(ctx, u, req.Password, h.BcryptCost); err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailExists):
			return errJSON(c, http.StatusConflict, "username or email already exists")
		case errors.Is(err, repository.ErrUserNotFound):
			return errJSON(c, http.StatusNotFound, "user not found")
		}
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(u))
}

func (h *UserHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Users.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			return errJSON(c, http.StatusNotFound, "user not found")
		case errors.Is(err, repository.ErrConflict):
			return conflict(c, "User has existing bookings", "Cannot delete user. It has existing bookings.")
		}
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
