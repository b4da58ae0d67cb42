package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/splitbill/split-the-bill/internal/notify"
	"github.com/splitbill/split-the-bill/internal/service"
)

// EventsHandler adapts hub subscriptions to a server-sent events stream.
type EventsHandler struct {
	Hub   *notify.Hub
	Bills *service.BillService
}

func NewEventsHandler(hub *notify.Hub, bills *service.BillService) *EventsHandler {
	return &EventsHandler{Hub: hub, Bills: bills}
}

// Subscribe handles GET /v1/bills/:id/events. Each hub message becomes
// one data frame; the keep-alive sentinel is written as an SSE comment so
// clients see traffic without receiving an event. The subscription is
// closed on every way out of the loop.
func (h *EventsHandler) Subscribe(c echo.Context) error {
	billID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	// Subscribing to a bill that does not exist would hang forever.
	if _, err := h.Bills.Get(c.Request().Context(), billID); err != nil {
		return serviceError(c, err)
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	// Tell nginx-style proxies not to buffer the stream.
	res.Header().Set("X-Accel-Buffering", "no")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	sub := h.Hub.Subscribe(billID)
	defer sub.Close()

	ctx := c.Request().Context()
	for {
		msg, err := sub.Receive(ctx)
		if err != nil {
			// Client went away; the deferred Close deregisters the queue.
			return nil
		}
		if msg == notify.KeepAlive {
			if _, err := fmt.Fprint(res, msg+"\n\n"); err != nil {
				return nil
			}
		} else {
			if _, err := fmt.Fprintf(res, "data: %s\n\n", msg); err != nil {
				return nil
			}
		}
		res.Flush()
	}
}
