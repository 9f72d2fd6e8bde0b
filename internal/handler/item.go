package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/avetos/rental-backoffice/internal/model"
	"github.com/avetos/rental-backoffice/internal/repository"
	"github.com/avetos/rental-backoffice/internal/service"
)

// ItemHandler exposes the rental catalog: items, bundle composition,
// physical assets and availability previews.
type ItemHandler struct {
	Items     *repository.ItemRepo
	Quotation *service.QuotationService
}

func NewItemHandler(items *repository.ItemRepo, qs *service.QuotationService) *ItemHandler {
	return &ItemHandler{Items: items, Quotation: qs}
}

type itemReq struct {
	SKU              string  `json:"sku"`
	Name             string  `json:"name"`
	ItemType         string  `json:"item_type"`
	Unit             string  `json:"unit"`
	DefaultRate      float64 `json:"default_rate"`
	TaxRate          float64 `json:"tax_rate"`
	RentableCapacity *int    `json:"rentable_capacity"`
	SupplierID       *uint64 `json:"supplier_id"`
}

func (r itemReq) validate() (model.Item, string) {
	r.SKU = strings.TrimSpace(r.SKU)
	r.Name = strings.TrimSpace(r.Name)
	r.ItemType = strings.ToLower(strings.TrimSpace(r.ItemType))
	if r.SKU == "" || r.Name == "" {
		return model.Item{}, "sku and name are required"
	}
	if !model.ValidItemType(r.ItemType) {
		return model.Item{}, "invalid item_type"
	}
	if r.DefaultRate < 0 {
		return model.Item{}, "default_rate must not be negative"
	}
	if r.TaxRate < 0 || r.TaxRate > 100 {
		return model.Item{}, "tax_rate must be between 0 and 100"
	}
	if r.RentableCapacity != nil {
		if *r.RentableCapacity < 0 {
			return model.Item{}, "rentable_capacity must not be negative"
		}
		if r.ItemType != model.ItemTypeRentable {
			return model.Item{}, "rentable_capacity only applies to rentable items"
		}
	}
	unit := strings.TrimSpace(r.Unit)
	if unit == "" {
		unit = "unit"
	}
	if r.SupplierID != nil && *r.SupplierID == 0 {
		return model.Item{}, "supplier_id must not be zero"
	}
	return model.Item{
		SKU:              r.SKU,
		Name:             r.Name,
		ItemType:         r.ItemType,
		Unit:             unit,
		DefaultRate:      r.DefaultRate,
		TaxRate:          r.TaxRate,
		RentableCapacity: r.RentableCapacity,
		SupplierID:       r.SupplierID,
		Active:           true,
	}, ""
}

func (h *ItemHandler) Create(c echo.Context) error {
	var req itemReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	it, msg := req.validate()
	if msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Items.Create(ctx, it)
	if err != nil {
		return writeServiceError(c, err)
	}
	it.ID = id
	return c.JSON(http.StatusCreated, it)
}

func (h *ItemHandler) Update(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req itemReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	it, msg := req.validate()
	if msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	it.ID = id

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	current, err := h.Items.GetByID(ctx, id)
	if err != nil {
		return writeServiceError(c, err)
	}
	// Changing the type of an item would invalidate line snapshots and
	// bundle composition downstream.
	if current.ItemType != it.ItemType {
		return c.JSON(http.StatusConflict, echo.Map{"error": "item_type cannot change"})
	}
	it.Active = current.Active
	if err := h.Items.Update(ctx, it); err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, it)
}

// SetActive toggles soft deactivation; inactive items cannot enter new
// quotation lines but stay referenced by old ones.
func (h *ItemHandler) SetActive(c echo.Context) error {
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

	if err := h.Items.SetActive(ctx, id, req.Active); err != nil {
		return writeServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *ItemHandler) Get(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	it, err := h.Items.GetByID(ctx, id)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, it)
}

func (h *ItemHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	activeOnly := c.QueryParam("active") == "true"
	items, err := h.Items.List(ctx, activeOnly)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, items)
}

// ----- bundle components -----

type componentReq struct {
	Components []struct {
		ComponentID uint64  `json:"component_id"`
		Quantity    float64 `json:"quantity"`
	} `json:"components"`
}

// SetComponents replaces a bundle's component list.
func (h *ItemHandler) SetComponents(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req componentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	it, err := h.Items.GetByID(ctx, id)
	if err != nil {
		return writeServiceError(c, err)
	}
	if it.ItemType != model.ItemTypeBundle {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "components only apply to bundles"})
	}

	comps := make([]model.BundleComponent, 0, len(req.Components))
	for _, rc := range req.Components {
		if rc.ComponentID == 0 || rc.Quantity <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "component_id and positive quantity required"})
		}
		if rc.ComponentID == id {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "a bundle cannot contain itself"})
		}
		comp, err := h.Items.GetByID(ctx, rc.ComponentID)
		if err != nil {
			return writeServiceError(c, err)
		}
		if comp.ItemType == model.ItemTypeBundle {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "bundles cannot nest bundles"})
		}
		comps = append(comps, model.BundleComponent{
			BundleID:    id,
			ComponentID: rc.ComponentID,
			Quantity:    rc.Quantity,
		})
	}

	if err := h.Items.SetComponents(ctx, id, comps); err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, comps)
}

func (h *ItemHandler) GetComponents(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	comps, err := h.Items.Components(ctx, id)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, comps)
}

// ----- inventory balances -----

// GetStock returns the warehouse balance of a consumable item.
func (h *ItemHandler) GetStock(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	b, err := h.Items.Balance(ctx, id)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// SetStock records new on-hand and reorder levels for a consumable
// item.  Rentable items are rejected: their availability derives from
// reservations, not a counter.
func (h *ItemHandler) SetStock(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req struct {
		OnHand   float64 `json:"on_hand"`
		MinLevel float64 `json:"min_level"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.OnHand < 0 || req.MinLevel < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "on_hand and min_level must not be negative"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	it, err := h.Items.GetByID(ctx, id)
	if err != nil {
		return writeServiceError(c, err)
	}
	if it.ItemType != model.ItemTypeConsumable {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "stock only applies to consumable items"})
	}

	if err := h.Items.SetBalance(ctx, id, req.OnHand, req.MinLevel); err != nil {
		return writeServiceError(c, err)
	}
	b, err := h.Items.Balance(ctx, id)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// ----- assets -----

// AddAsset registers one physical unit of a rentable item.  Capacity
// falls back to the count of active assets when rentable_capacity is
// not set on the item.
func (h *ItemHandler) AddAsset(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req struct {
		SerialNo string `json:"serial_no"`
	}
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.SerialNo) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "serial_no required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	it, err := h.Items.GetByID(ctx, id)
	if err != nil {
		return writeServiceError(c, err)
	}
	if it.ItemType != model.ItemTypeRentable {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "assets only apply to rentable items"})
	}

	assetID, err := h.Items.AddAsset(ctx, id, strings.TrimSpace(req.SerialNo), true)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": assetID})
}

func (h *ItemHandler) SetAssetActive(c echo.Context) error {
	assetID, ok := paramID(c, "asset_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid asset_id"})
	}
	var req struct {
		Active bool `json:"active"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Items.SetAssetActive(ctx, assetID, req.Active); err != nil {
		return writeServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *ItemHandler) ListAssets(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	assets, err := h.Items.ListAssets(ctx, id)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, assets)
}

// Availability previews free stock for an item and window, e.g.
// GET /v1/items/7/availability?start=2026-09-01T08:00:00Z&end=2026-09-03T08:00:00Z
func (h *ItemHandler) Availability(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	start, okS := parseTimeParam(c.QueryParam("start"))
	end, okE := parseTimeParam(c.QueryParam("end"))
	if !okS || !okE {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start and end query params required (RFC 3339)"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	av, err := h.Quotation.CheckAvailability(ctx, id, start, end)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, av)
}
