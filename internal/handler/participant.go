package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/splitbill/split-the-bill/internal/service"
)

// ParticipantHandler exposes the participant lifecycle: seating, joining,
// removal, payment confirmation and bill closure.
type ParticipantHandler struct {
	Participants *service.ParticipantService
}

func NewParticipantHandler(participants *service.ParticipantService) *ParticipantHandler {
	return &ParticipantHandler{Participants: participants}
}

// AddParticipant handles POST /v1/bills/:id/participants with either a
// user_id or a guest_name in the body.
func (h *ParticipantHandler) AddParticipant(c echo.Context) error {
	billID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	var body struct {
		UserID    *int64 `json:"user_id"`
		GuestName string `json:"guest_name"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	seat, err := h.Participants.Add(c.Request().Context(), billID, body.UserID, body.GuestName)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusCreated, participantResponse(service.ParticipantView{Participant: seat}))
}

// Join handles POST /v1/bills/:id/join, seating the requesting user.
// Joining twice is a no-op returning the existing seat.
func (h *ParticipantHandler) Join(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	billID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	seat, err := h.Participants.Join(c.Request().Context(), billID, userID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, participantResponse(service.ParticipantView{Participant: seat}))
}

// RemoveParticipant handles DELETE /v1/bills/:id/participants/:participantId.
func (h *ParticipantHandler) RemoveParticipant(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	billID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	participantID, err := pathID(c, "participantId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	if err := h.Participants.Remove(c.Request().Context(), billID, participantID, userID); err != nil {
		return serviceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// SetPaid handles PATCH /v1/bills/:id/participants/:participantId/paid.
func (h *ParticipantHandler) SetPaid(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	billID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	participantID, err := pathID(c, "participantId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	var body struct {
		IsPaid bool `json:"is_paid"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	seat, err := h.Participants.SetPaid(c.Request().Context(), billID, participantID, body.IsPaid, userID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, participantResponse(service.ParticipantView{Participant: seat}))
}

// CloseBill handles POST /v1/bills/:id/close. Owner only.
func (h *ParticipantHandler) CloseBill(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	billID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	bill, err := h.Participants.Close(c.Request().Context(), billID, userID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, billResponse(bill))
}
