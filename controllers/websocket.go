package controllers

import (
	"strings"

	"tutortrack_go/config"
	"tutortrack_go/database"
	"tutortrack_go/middleware"
	"tutortrack_go/models"
	"tutortrack_go/services"
	"tutortrack_go/services/websocket"

	"github.com/gofiber/fiber/v2"
	fiberws "github.com/gofiber/websocket/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/sirupsen/logrus"
)

type WebSocketController struct {
	hub      *websocket.Hub
	sessions *services.SessionManager
}

func NewWebSocketController(hub *websocket.Hub, sessions *services.SessionManager) *WebSocketController {
	return &WebSocketController{hub: hub, sessions: sessions}
}

// validateJWT validates the token passed as a query parameter, since
// browsers cannot set headers on websocket upgrade requests.
func (wsc *WebSocketController) validateJWT(tokenString string) (*models.User, error) {
	tokenString = strings.TrimPrefix(tokenString, "Bearer ")

	claims := &middleware.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(config.AppConfig.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, services.E(services.KindUnauthenticated, "invalid token")
	}

	var user models.User
	if err := database.DB.Where("id = ? AND status = ?", claims.UserID, "active").First(&user).Error; err != nil {
		return nil, services.E(services.KindUnauthenticated, "user not found")
	}
	return &user, nil
}

// WebSocketHandler upgrades the connection and registers the client with the
// hub. Connecting also starts the user's change-feed session so live updates
// begin flowing before the first REST read.
func (wsc *WebSocketController) WebSocketHandler() fiber.Handler {
	return fiberws.New(func(c *fiberws.Conn) {
		tokenString := c.Query("token")
		if tokenString == "" {
			c.Close()
			return
		}

		user, err := wsc.validateJWT(tokenString)
		if err != nil {
			logrus.WithError(err).Warn("websocket: rejected connection")
			c.Close()
			return
		}

		wsc.sessions.Start(*user)
		wsc.hub.ServeFiberWS(c, user.ID)
	})
}

// GetWebSocketStats returns the number of connected clients.
func (wsc *WebSocketController) GetWebSocketStats(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"connected_clients": wsc.hub.GetClientCount(),
	})
}
