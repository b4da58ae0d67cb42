package router // wires HTTP routes to their handlers

import (
	"github.com/labstack/echo/v4"

	"github.com/splitbill/split-the-bill/internal/handler"
	"github.com/splitbill/split-the-bill/internal/middleware"
)

// RegisterRoutes registers routes that require no authentication.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the Telegram login endpoints under /v1/auth.
// Both exchange a verified Telegram payload for an access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler) {
	g := e.Group("/v1/auth")
	g.POST("/telegram", a.LoginWebApp)
	g.POST("/telegram/widget", a.LoginWidget)
}

// RegisterAPI registers the bill API under /v1 behind JWT authentication.
// The events stream lives outside the group: EventSource clients cannot
// set an Authorization header.
func RegisterAPI(e *echo.Echo, jwtSecret string,
	users *handler.UserHandler,
	bills *handler.BillHandler,
	participants *handler.ParticipantHandler,
	splits *handler.SplitHandler,
	items *handler.ItemHandler,
	events *handler.EventsHandler,
) {
	e.GET("/v1/bills/:id/events", events.Subscribe)

	api := e.Group("/v1")
	api.Use(middleware.JWTAuth(jwtSecret))

	api.GET("/me", users.Me)
	api.GET("/users/:id", users.GetUser)

	api.POST("/bills", bills.CreateBill)
	api.GET("/bills", bills.ListBills)
	api.GET("/bills/:id", bills.GetBill)
	api.POST("/bills/:id/reactions", bills.React)
	api.POST("/bills/:id/close", participants.CloseBill)

	api.POST("/bills/:id/participants", participants.AddParticipant)
	api.POST("/bills/:id/join", participants.Join)
	api.DELETE("/bills/:id/participants/:participantId", participants.RemoveParticipant)
	api.PATCH("/bills/:id/participants/:participantId/paid", participants.SetPaid)

	api.POST("/bills/:id/split/equal", splits.SplitEqually)
	api.POST("/bills/:id/split/remainder", splits.SplitRemainder)
	api.PUT("/bills/:id/participants/:participantId/amount", splits.AssignAmount)

	api.POST("/bills/:id/items", items.AddItem)
	api.DELETE("/bills/:id/items/:itemId", items.DeleteItem)
}
