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

// SupplierHandler manages equipment vendors.
type SupplierHandler struct {
	Suppliers *repository.SupplierRepo
}

func NewSupplierHandler(sp *repository.SupplierRepo) *SupplierHandler {
	return &SupplierHandler{Suppliers: sp}
}

type supplierReq struct {
	Name    string  `json:"name"`
	TaxID   *string `json:"tax_id"`
	Email   *string `json:"email"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
	Notes   *string `json:"notes"`
}

func (h *SupplierHandler) Create(c echo.Context) error {
	var req supplierReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	sp := model.Supplier{
		Name: req.Name, TaxID: req.TaxID, Email: req.Email,
		Phone: req.Phone, Address: req.Address, Notes: req.Notes, Active: true,
	}
	id, err := h.Suppliers.Create(ctx, sp)
	if err != nil {
		return writeServiceError(c, err)
	}
	sp.ID = id
	return c.JSON(http.StatusCreated, sp)
}

func (h *SupplierHandler) Update(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req supplierReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	sp, err := h.Suppliers.GetByID(ctx, id)
	if err != nil {
		return writeServiceError(c, err)
	}
	sp.Name, sp.TaxID, sp.Email, sp.Phone, sp.Address, sp.Notes =
		req.Name, req.TaxID, req.Email, req.Phone, req.Address, req.Notes
	if err := h.Suppliers.Update(ctx, sp); err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, sp)
}

func (h *SupplierHandler) SetActive(c echo.Context) error {
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

	if err := h.Suppliers.SetActive(ctx, id, req.Active); err != nil {
		return writeServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *SupplierHandler) Get(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	sp, err := h.Suppliers.GetByID(ctx, id)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, sp)
}

func (h *SupplierHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	suppliers, err := h.Suppliers.List(ctx)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, suppliers)
}

func (h *SupplierHandler) Delete(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Suppliers.Delete(ctx, id); err != nil {
		return writeServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
