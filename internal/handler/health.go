package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health is the endpoint load balancers and monitors poll to verify the
// service is up. Plain "ok" with a 200.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
