package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/avetos/rental-backoffice/internal/queue"
	"github.com/avetos/rental-backoffice/internal/repository"
	"github.com/avetos/rental-backoffice/internal/service"
)

// QuotationHandler is the HTTP surface of the quotation workflow:
// drafting, pricing, the status machine and acceptance.
type QuotationHandler struct {
	Quotation    *service.QuotationService
	Quotes       *repository.QuotationRepo
	Reservations *repository.ReservationRepo
}

func NewQuotationHandler(qs *service.QuotationService, qr *repository.QuotationRepo, rr *repository.ReservationRepo) *QuotationHandler {
	return &QuotationHandler{Quotation: qs, Quotes: qr, Reservations: rr}
}

func (h *QuotationHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var in service.QuotationInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if in.OwnerID == 0 {
		in.OwnerID = uid
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	q, err := h.Quotation.Create(ctx, in)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, q)
}

// Get returns the header, its lines and the status history.
func (h *QuotationHandler) Get(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	q, err := h.Quotes.GetByID(ctx, id)
	if err != nil {
		return writeServiceError(c, err)
	}
	lines, err := h.Quotes.LinesByQuotation(ctx, id)
	if err != nil {
		return writeServiceError(c, err)
	}
	history, err := h.Quotes.ListHistory(ctx, id)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"quotation": q,
		"lines":     lines,
		"history":   history,
	})
}

func (h *QuotationHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	limit := 0
	if s := c.QueryParam("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			limit = n
		}
	}
	quotes, err := h.Quotes.List(ctx, limit)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, quotes)
}

func (h *QuotationHandler) UpdateHeader(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var in service.HeaderInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	q, err := h.Quotation.UpdateHeader(ctx, id, in)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, q)
}

func (h *QuotationHandler) Delete(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Quotation.Delete(ctx, id); err != nil {
		return writeServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ----- lines -----

func (h *QuotationHandler) AddLine(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var in service.LineInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	totals, err := h.Quotation.AddLine(ctx, id, in)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"totals": totals})
}

func (h *QuotationHandler) UpdateLine(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	lineID, ok := paramID(c, "line_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid line_id"})
	}
	var in service.LineInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	totals, err := h.Quotation.UpdateLine(ctx, id, lineID, in)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"totals": totals})
}

func (h *QuotationHandler) DeleteLine(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	lineID, ok := paramID(c, "line_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid line_id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	totals, err := h.Quotation.DeleteLine(ctx, id, lineID)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"totals": totals})
}

// ----- status machine -----

type statusReq struct {
	Status string  `json:"status"`
	Note   *string `json:"note"`
}

func (h *QuotationHandler) SetStatus(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req statusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	status := strings.ToLower(strings.TrimSpace(req.Status))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	q, err := h.Quotation.SetStatus(ctx, id, status, uid, req.Note)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, q)
}

// Accept runs the reservation-committing acceptance and, on success,
// publishes a QuotationAcceptedEvent.  Publishing is best effort; a
// broker outage never rolls back an accepted quotation.
func (h *QuotationHandler) Accept(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req struct {
		Note *string `json:"note"`
	}
	_ = c.Bind(&req)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	res, err := h.Quotation.Accept(ctx, id, uid, req.Note)
	if err != nil {
		return writeServiceError(c, err)
	}

	acceptedAt := ""
	if res.Quotation.AcceptedAt != nil {
		acceptedAt = res.Quotation.AcceptedAt.UTC().Format(time.RFC3339)
	}
	go func(ev queue.QuotationAcceptedEvent) {
		pubCtx, pubCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer pubCancel()
		_ = queue.PublishQuotationAccepted(pubCtx, ev)
	}(queue.QuotationAcceptedEvent{
		QuotationID:      res.Quotation.ID,
		QuoteNumber:      res.Quotation.QuoteNumber,
		PublicRef:        res.Quotation.PublicRef,
		ClientID:         res.Quotation.ClientID,
		EventID:          res.Quotation.EventID,
		Currency:         res.Quotation.Currency,
		Total:            res.Quotation.Total,
		DepositDue:       res.Quotation.DepositDue,
		ReservationCount: len(res.Reservations),
		AcceptedBy:       uid,
		AcceptedAt:       acceptedAt,
	})

	return c.JSON(http.StatusOK, res)
}

// Preview answers the "would acceptance succeed" question without
// committing anything.
func (h *QuotationHandler) Preview(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	shortfalls, err := h.Quotation.PreviewAcceptance(ctx, id)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"ok":         len(shortfalls) == 0,
		"shortfalls": shortfalls,
	})
}

func (h *QuotationHandler) History(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	history, err := h.Quotation.History(ctx, id)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, history)
}

func (h *QuotationHandler) ListReservations(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Quotes.GetByID(ctx, id); err != nil {
		return writeServiceError(c, err)
	}
	res, err := h.Reservations.ListByQuotation(ctx, id)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
