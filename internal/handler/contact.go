package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/avetos/rental-backoffice/internal/model"
	"github.com/avetos/rental-backoffice/internal/repository"
)

// ContactHandler manages the people attached to a client.
type ContactHandler struct {
	Contacts *repository.ContactRepo
	Clients  *repository.ClientRepo
}

func NewContactHandler(ct *repository.ContactRepo, cl *repository.ClientRepo) *ContactHandler {
	return &ContactHandler{Contacts: ct, Clients: cl}
}

type contactReq struct {
	Name     string  `json:"name"`
	Email    *string `json:"email"`
	Phone    *string `json:"phone"`
	Position *string `json:"position"`
}

// Create adds a contact under /clients/:id/contacts.
func (h *ContactHandler) Create(c echo.Context) error {
	clientID, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid client id"})
	}
	var req contactReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Clients.GetByID(ctx, clientID); err != nil {
		return writeServiceError(c, err)
	}

	ct := model.Contact{
		ClientID: clientID, Name: req.Name,
		Email: req.Email, Phone: req.Phone, Position: req.Position,
	}
	id, err := h.Contacts.Create(ctx, ct)
	if err != nil {
		return writeServiceError(c, err)
	}
	ct.ID = id
	return c.JSON(http.StatusCreated, ct)
}

func (h *ContactHandler) Update(c echo.Context) error {
	id, ok := paramID(c, "contact_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid contact id"})
	}
	var req contactReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ct, err := h.Contacts.GetByID(ctx, id)
	if err != nil {
		return writeServiceError(c, err)
	}
	ct.Name, ct.Email, ct.Phone, ct.Position = req.Name, req.Email, req.Phone, req.Position
	if err := h.Contacts.Update(ctx, ct); err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, ct)
}

// SetPrimary marks one contact as the client's primary, clearing any
// sibling that held the flag.
func (h *ContactHandler) SetPrimary(c echo.Context) error {
	id, ok := paramID(c, "contact_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid contact id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Contacts.SetPrimary(ctx, id); err != nil {
		return writeServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *ContactHandler) ListByClient(c echo.Context) error {
	clientID, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid client id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	contacts, err := h.Contacts.ListByClient(ctx, clientID)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, contacts)
}

func (h *ContactHandler) Delete(c echo.Context) error {
	id, ok := paramID(c, "contact_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid contact id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Contacts.Delete(ctx, id); err != nil {
		return writeServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
