package handler // HTTP handlers for the bill-splitting API

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/splitbill/split-the-bill/internal/service"
)

// getUserID extracts the authenticated user's ID placed into the context
// by the JWT middleware.
func getUserID(c echo.Context) (int64, error) {
	if v, ok := c.Get("user_id").(int64); ok && v > 0 {
		return v, nil
	}
	return 0, errors.New("no authenticated user in context")
}

// pathID parses a positive integer path parameter.
func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid " + name)
	}
	return id, nil
}

// serviceError renders a domain error with the matching HTTP status.
// Anything without a kind is an internal error and keeps its detail out
// of the response.
func serviceError(c echo.Context, err error) error {
	switch service.KindOf(err) {
	case service.KindNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case service.KindInvalidInput, service.KindBusinessRule:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case service.KindNotAuthorized:
		return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
	case service.KindInvalidState, service.KindConflict:
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	default:
		c.Logger().Error(err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
