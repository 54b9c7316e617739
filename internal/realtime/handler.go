package realtime

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/yocodex/backend/internal/database"
	"github.com/yocodex/backend/internal/logger"
	"github.com/yocodex/backend/internal/models"
	"go.uber.org/zap"
)

// Handler handles WebSocket HTTP upgrade requests
type Handler struct {
	hub       *Hub
	jwtSecret []byte
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, jwtSecret []byte) *Handler {
	return &Handler{
		hub:       hub,
		jwtSecret: jwtSecret,
	}
}

// Hub returns the hub this handler registers clients with
func (h *Handler) Hub() *Hub {
	return h.hub
}

// HandleWebSocket upgrades the connection and joins the authenticated
// user's channel. Auth is a JWT in ?token=... or the bearer header.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	user, err := h.authenticateRequest(c)
	if err != nil {
		logger.Log.Warn("WebSocket auth failed", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "authentication_failed",
			"message": err.Error(),
		})
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
		CompressionMode:    websocket.CompressionContextTakeover,
	})
	if err != nil {
		logger.Log.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	client := NewClient(h.hub, conn, user.ID, user.Username)
	client.RemoteAddr = c.ClientIP()

	h.hub.Register(client)

	_ = client.Send(NewMessage(MessageTypeSystem, SystemPayload{
		Event: "connected",
		Data: map[string]interface{}{
			"user_id":     user.ID,
			"username":    user.Username,
			"server_time": time.Now().UTC().UnixMilli(),
		},
	}))

	go client.WritePump()
	client.ReadPump() // blocks until the client disconnects
}

// HandleMetrics exposes hub statistics
func (h *Handler) HandleMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, h.hub.GetMetrics())
}

// authenticateRequest extracts and validates the JWT token
func (h *Handler) authenticateRequest(c *gin.Context) (*models.User, error) {
	tokenString := c.Query("token")

	if auth := c.GetHeader("Authorization"); auth != "" {
		if strings.HasPrefix(auth, "Bearer ") {
			tokenString = strings.TrimPrefix(auth, "Bearer ")
		} else {
			tokenString = auth
		}
	}

	if tokenString == "" {
		return nil, fmt.Errorf("no token provided")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return h.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	userID, ok := claims["user_id"].(string)
	if !ok {
		return nil, fmt.Errorf("invalid user_id in token")
	}

	var user models.User
	if err := database.DB.Where("id = ?", userID).First(&user).Error; err != nil {
		return nil, fmt.Errorf("user not found: %w", err)
	}

	return &user, nil
}
