package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/splitbill/split-the-bill/internal/money"
	"github.com/splitbill/split-the-bill/internal/service"
)

// ItemHandler exposes bill itemization.
type ItemHandler struct {
	Items *service.ItemService
}

func NewItemHandler(items *service.ItemService) *ItemHandler {
	return &ItemHandler{Items: items}
}

// AddItem handles POST /v1/bills/:id/items. Price arrives in decimal
// units; assigned_to optionally points at a registered participant.
func (h *ItemHandler) AddItem(c echo.Context) error {
	billID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	var body struct {
		Name       string  `json:"name"`
		Price      float64 `json:"price"`
		Count      int     `json:"count"`
		AssignedTo *int64  `json:"assigned_to"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	price, err := money.ToMinorUnits(body.Price)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid price"})
	}

	item, err := h.Items.AddItem(c.Request().Context(), billID, body.Name, price, body.Count, body.AssignedTo)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusCreated, itemResponse(item))
}

// DeleteItem handles DELETE /v1/bills/:id/items/:itemId. Owner only.
func (h *ItemHandler) DeleteItem(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	billID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	itemID, err := pathID(c, "itemId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	if err := h.Items.DeleteItem(c.Request().Context(), billID, itemID, userID); err != nil {
		return serviceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
