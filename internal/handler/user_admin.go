package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/avetos/rental-backoffice/internal/config"
	"github.com/avetos/rental-backoffice/internal/model"
	"github.com/avetos/rental-backoffice/internal/repository"
)

// UserAdminHandler is the admin-only surface for managing staff
// accounts.  Registration is closed after bootstrap, so every account
// beyond the first comes through here.
type UserAdminHandler struct {
	Cfg    config.Config
	Users  *repository.UserRepo
	Tokens *repository.TokenRepo
}

func NewUserAdminHandler(cfg config.Config, u *repository.UserRepo, t *repository.TokenRepo) *UserAdminHandler {
	return &UserAdminHandler{Cfg: cfg, Users: u, Tokens: t}
}

type userCreateReq struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type userUpdateReq struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

func (h *UserAdminHandler) Create(c echo.Context) error {
	var req userCreateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FullName = strings.TrimSpace(req.FullName)
	req.Role = strings.ToLower(strings.TrimSpace(req.Role))
	if req.Email == "" || req.Password == "" || req.FullName == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "full_name/email/password required"})
	}
	if !model.ValidRole(req.Role) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid, err := h.Users.Create(ctx, req.FullName, req.Email, req.Password, req.Role, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		}
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, userPart{ID: uid, FullName: req.FullName, Email: req.Email, Role: req.Role})
}

func (h *UserAdminHandler) Update(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req userUpdateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FullName = strings.TrimSpace(req.FullName)
	req.Role = strings.ToLower(strings.TrimSpace(req.Role))
	if req.Email == "" || req.FullName == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "full_name/email required"})
	}
	if !model.ValidRole(req.Role) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.Update(ctx, id, req.FullName, req.Email, req.Role); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		}
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, userPart{ID: id, FullName: req.FullName, Email: req.Email, Role: req.Role})
}

// SetActive disables or re-enables an account.  Disabling also revokes
// every refresh token so open sessions die with it.
func (h *UserAdminHandler) SetActive(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req struct {
		Active bool `json:"active"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.SetActive(ctx, id, req.Active); err != nil {
		return writeServiceError(c, err)
	}
	if !req.Active {
		_ = h.Tokens.RevokeAllForUser(ctx, id)
	}
	return c.NoContent(http.StatusNoContent)
}

// ResetPassword sets a new password and revokes existing sessions.
func (h *UserAdminHandler) ResetPassword(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req struct {
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.SetPassword(ctx, id, req.Password, h.Cfg.BcryptCost); err != nil {
		return writeServiceError(c, err)
	}
	_ = h.Tokens.RevokeAllForUser(ctx, id)
	return c.NoContent(http.StatusNoContent)
}

func (h *UserAdminHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	users, err := h.Users.List(ctx)
	if err != nil {
		return writeServiceError(c, err)
	}
	out := make([]userPart, 0, len(users))
	for _, u := range users {
		out = append(out, userPart{ID: u.ID, FullName: u.FullName, Email: u.Email, Role: u.Role})
	}
	return c.JSON(http.StatusOK, out)
}
