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

// ClientHandler covers clients and their contacts.
type ClientHandler struct {
	Clients  *repository.ClientRepo
	Contacts *repository.ContactRepo
}

func NewClientHandler(cl *repository.ClientRepo, ct *repository.ContactRepo) *ClientHandler {
	return &ClientHandler{Clients: cl, Contacts: ct}
}

type clientReq struct {
	Name    string  `json:"name"`
	TaxID   *string `json:"tax_id"`
	Email   *string `json:"email"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
}

func (h *ClientHandler) Create(c echo.Context) error {
	var req clientReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	cl := model.Client{
		Name: req.Name, TaxID: req.TaxID, Email: req.Email,
		Phone: req.Phone, Address: req.Address, Active: true,
	}
	id, err := h.Clients.Create(ctx, cl)
	if err != nil {
		return writeServiceError(c, err)
	}
	cl.ID = id
	return c.JSON(http.StatusCreated, cl)
}

func (h *ClientHandler) Update(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req clientReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	cl, err := h.Clients.GetByID(ctx, id)
	if err != nil {
		return writeServiceError(c, err)
	}
	cl.Name, cl.TaxID, cl.Email, cl.Phone, cl.Address = req.Name, req.TaxID, req.Email, req.Phone, req.Address
	if err := h.Clients.Update(ctx, cl); err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, cl)
}

func (h *ClientHandler) Get(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	cl, err := h.Clients.GetByID(ctx, id)
	if err != nil {
		return writeServiceError(c, err)
	}
	contacts, err := h.Contacts.ListByClient(ctx, id)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"client": cl, "contacts": contacts})
}

func (h *ClientHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	clients, err := h.Clients.List(ctx)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, clients)
}

// Delete removes a client and its contacts; refused while quotations
// or events still reference it.
func (h *ClientHandler) Delete(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Clients.Delete(ctx, id); err != nil {
		return writeServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
