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

// EventHandler manages the events quotations attach to.  An event's
// window is the default reservation window for every rentable line of
// a quotation linked to it.
type EventHandler struct {
	Events  *repository.EventRepo
	Clients *repository.ClientRepo
}

func NewEventHandler(ev *repository.EventRepo, cl *repository.ClientRepo) *EventHandler {
	return &EventHandler{Events: ev, Clients: cl}
}

type eventReq struct {
	Name     string     `json:"name"`
	ClientID *uint64    `json:"client_id"`
	Venue    *string    `json:"venue"`
	StartAt  *time.Time `json:"start_at"`
	EndAt    *time.Time `json:"end_at"`
	Timezone string     `json:"timezone"`
}

func (h *EventHandler) validate(ctx context.Context, req eventReq) (model.Event, string) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return model.Event{}, "name required"
	}
	if req.StartAt == nil || req.EndAt == nil {
		return model.Event{}, "start_at and end_at required"
	}
	if !req.EndAt.After(*req.StartAt) {
		return model.Event{}, "end_at must be after start_at"
	}
	tz := strings.TrimSpace(req.Timezone)
	if tz == "" {
		tz = "America/Tegucigalpa"
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return model.Event{}, "unknown timezone"
	}
	if req.ClientID != nil {
		if _, err := h.Clients.GetByID(ctx, *req.ClientID); err != nil {
			return model.Event{}, "client does not exist"
		}
	}
	return model.Event{
		Name:     name,
		ClientID: req.ClientID,
		Venue:    req.Venue,
		StartAt:  req.StartAt.UTC(),
		EndAt:    req.EndAt.UTC(),
		Timezone: tz,
	}, ""
}

func (h *EventHandler) Create(c echo.Context) error {
	var req eventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ev, msg := h.validate(ctx, req)
	if msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	id, err := h.Events.Create(ctx, ev)
	if err != nil {
		return writeServiceError(c, err)
	}
	ev.ID = id
	return c.JSON(http.StatusCreated, ev)
}

func (h *EventHandler) Update(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req eventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ev, msg := h.validate(ctx, req)
	if msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	ev.ID = id
	if err := h.Events.Update(ctx, ev); err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, ev)
}

func (h *EventHandler) Get(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ev, err := h.Events.GetByID(ctx, id)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, ev)
}

func (h *EventHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	events, err := h.Events.List(ctx, 0)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, events)
}

// Delete refuses while quotations still reference the event.
func (h *EventHandler) Delete(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Events.Delete(ctx, id); err != nil {
		return writeServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
