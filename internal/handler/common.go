package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/avetos/rental-backoffice/internal/repository"
	"github.com/avetos/rental-backoffice/internal/service"
)

// getUserID extracts the authenticated user id stored in the context by
// the JWT middleware.  JWT numeric claims decode as float64.
func getUserID(c echo.Context) (uint64, error) {
	switch t := c.Get("user_id").(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// paramID parses a numeric path parameter.
func paramID(c echo.Context, name string) (uint64, bool) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return n, true
}

// parseTimeParam parses a query-string timestamp; RFC 3339 first, then
// the storage layout.
func parseTimeParam(s string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), true
	}
	if t, err := repository.ParseDBTime(s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// writeServiceError maps service and repository errors onto HTTP
// responses.  Capacity failures answer 409 with the full shortfall
// list so the client can show the user what is missing.
func writeServiceError(c echo.Context, err error) error {
	var ve *service.ValidationError
	if errors.As(err, &ve) {
		body := echo.Map{"error": ve.Msg}
		if len(ve.LineIDs) > 0 {
			body["line_ids"] = ve.LineIDs
		}
		return c.JSON(http.StatusBadRequest, body)
	}
	var ce *service.ConflictError
	if errors.As(err, &ce) {
		return c.JSON(http.StatusConflict, echo.Map{
			"error": ce.Error(),
			"from":  ce.From,
			"to":    ce.To,
		})
	}
	var capErr *service.CapacityError
	if errors.As(err, &capErr) {
		return c.JSON(http.StatusConflict, echo.Map{
			"error":      "insufficient availability",
			"shortfalls": capErr.Shortfalls,
		})
	}
	switch {
	case errors.Is(err, repository.ErrItemNotFound),
		errors.Is(err, repository.ErrClientNotFound),
		errors.Is(err, repository.ErrContactNotFound),
		errors.Is(err, repository.ErrSupplierNotFound),
		errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, repository.ErrEventNotFound),
		errors.Is(err, repository.ErrQuotationNotFound),
		errors.Is(err, repository.ErrLineNotFound),
		errors.Is(err, repository.ErrBalanceNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	}
	c.Logger().Errorf("internal error: %v", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
