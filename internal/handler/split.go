package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/splitbill/split-the-bill/internal/money"
	"github.com/splitbill/split-the-bill/internal/service"
)

// SplitHandler exposes the allocation operations.
type SplitHandler struct {
	Splits *service.SplitService
}

func NewSplitHandler(splits *service.SplitService) *SplitHandler {
	return &SplitHandler{Splits: splits}
}

// SplitEqually handles POST /v1/bills/:id/split/equal.
func (h *SplitHandler) SplitEqually(c echo.Context) error {
	billID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	bill, err := h.Splits.SplitEqually(c.Request().Context(), billID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, billResponse(bill))
}

// SplitRemainder handles POST /v1/bills/:id/split/remainder with a list
// of participant IDs sharing what is left unallocated.
func (h *SplitHandler) SplitRemainder(c echo.Context) error {
	billID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	var body struct {
		ParticipantIDs []int64 `json:"participant_ids"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	bill, err := h.Splits.SplitRemainder(c.Request().Context(), billID, body.ParticipantIDs)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, billResponse(bill))
}

// AssignAmount handles PUT /v1/bills/:id/participants/:participantId/amount.
// The amount arrives in decimal units and replaces the current allocation.
func (h *SplitHandler) AssignAmount(c echo.Context) error {
	billID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	participantID, err := pathID(c, "participantId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	var body struct {
		Amount float64 `json:"amount"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	amount, err := money.ToMinorUnits(body.Amount)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid amount"})
	}

	bill, err := h.Splits.AssignAmount(c.Request().Context(), billID, participantID, amount)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, billResponse(bill))
}
