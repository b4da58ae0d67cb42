package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/splitbill/split-the-bill/internal/auth"
	"github.com/splitbill/split-the-bill/internal/service"
	"github.com/splitbill/split-the-bill/internal/utils"
)

// AuthHandler exchanges a verified Telegram login payload for a JWT
// access token, upserting the user record on the way.
type AuthHandler struct {
	Users        *service.UserService
	BotToken     string
	JWTSecret    string
	AccessTTLMin int
}

func NewAuthHandler(users *service.UserService, botToken, jwtSecret string, accessTTLMin int) *AuthHandler {
	return &AuthHandler{Users: users, BotToken: botToken, JWTSecret: jwtSecret, AccessTTLMin: accessTTLMin}
}

// LoginWebApp handles POST /v1/auth/telegram.  The body carries the raw
// initData query string from window.Telegram.WebApp.
func (h *AuthHandler) LoginWebApp(c echo.Context) error {
	var body struct {
		InitData string `json:"init_data"`
	}
	if err := c.Bind(&body); err != nil || body.InitData == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "init_data is required"})
	}

	tgUser, err := auth.VerifyWebAppInitData(body.InitData, h.BotToken)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "telegram verification failed"})
	}
	return h.issue(c, tgUser)
}

// LoginWidget handles POST /v1/auth/telegram/widget with the flat
// key/value payload produced by the Telegram Login Widget.
func (h *AuthHandler) LoginWidget(c echo.Context) error {
	var fields map[string]string
	if err := c.Bind(&fields); err != nil || len(fields) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	tgUser, err := auth.VerifyWidgetData(fields, h.BotToken)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "telegram verification failed"})
	}
	return h.issue(c, tgUser)
}

func (h *AuthHandler) issue(c echo.Context, tgUser *auth.TelegramUser) error {
	username := tgUser.Username
	if username == "" {
		username = tgUser.FirstName
	}
	user, err := h.Users.CreateOrUpdate(c.Request().Context(), tgUser.ID, username, tgUser.PhotoURL)
	if err != nil {
		return serviceError(c, err)
	}

	token, err := utils.NewAccessToken(h.JWTSecret, user.ID, user.TelegramID, h.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to issue token"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"access_token": token.Token,
		"expires_at":   token.Exp,
		"user":         userResponse(user),
	})
}
