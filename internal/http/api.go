package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"referral-hub/internal/domain"
	"referral-hub/internal/service"
)

// Handler wires HTTP routes to the current-user service.
type Handler struct {
	users       service.UserService
	allowOrigin string
	logger      *logrus.Logger
}

// NewHandler builds the API handler. An empty allowOrigin permits any origin.
func NewHandler(users service.UserService, allowOrigin string, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
	}
	if allowOrigin == "" {
		allowOrigin = "*"
	}
	return &Handler{
		users:       users,
		allowOrigin: allowOrigin,
		logger:      logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware(h.allowOrigin))

	api := router.Group("/api")
	{
		api.GET("/user", h.getUser)
		api.PUT("/user", h.putUser)
		api.PATCH("/user", h.patchUser)
		api.DELETE("/user", h.deleteUser)
		api.GET("/user/events", h.streamUser)
		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})
	}
}

// corsMiddleware lets a browser UI on allowOrigin call the API and answers
// preflight requests itself.
func corsMiddleware(allowOrigin string) gin.HandlerFunc {
	headers := map[string]string{
		"Access-Control-Allow-Origin":  allowOrigin,
		"Access-Control-Allow-Methods": "GET, PUT, PATCH, DELETE, OPTIONS",
		"Access-Control-Allow-Headers": "Content-Type, Accept, Last-Event-ID",
	}
	return func(c *gin.Context) {
		for name, value := range headers {
			c.Header(name, value)
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (h *Handler) getUser(c *gin.Context) {
	c.JSON(http.StatusOK, h.users.Current(c.Request.Context()))
}

func (h *Handler) putUser(c *gin.Context) {
	user, err := readUser(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, h.users.Replace(c.Request.Context(), user))
}

func (h *Handler) patchUser(c *gin.Context) {
	patch, err := readUser(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.Patch(c.Request.Context(), patch)
	if err != nil {
		if errors.Is(err, service.ErrEmptyPatch) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *Handler) deleteUser(c *gin.Context) {
	h.users.Clear(c.Request.Context())
	c.Status(http.StatusNoContent)
}

// streamUser sends the current user as a server-sent event and then one
// event per change until the client goes away. Observers must not block the
// writer, so a slow client only receives the latest pending value.
func (h *Handler) streamUser(c *gin.Context) {
	ctx := c.Request.Context()
	logger := h.logger.WithField("stream_id", uuid.NewString())

	updates := make(chan []byte, 1)
	unsubscribe := h.users.Watch(ctx, func(user *domain.User) {
		payload, err := json.Marshal(user)
		if err != nil {
			logger.Warnf("encode user event: %v", err)
			return
		}
		offerLatest(updates, payload)
	})
	defer unsubscribe()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	logger.Info("user stream opened")
	defer logger.Info("user stream closed")

	for {
		select {
		case <-ctx.Done():
			return
		case payload := <-updates:
			c.SSEvent("user", string(payload))
			c.Writer.Flush()
		}
	}
}

func offerLatest(ch chan []byte, payload []byte) {
	for {
		select {
		case ch <- payload:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// readUser decodes the request body as a user or JSON null.
func readUser(c *gin.Context) (*domain.User, error) {
	body, err := c.GetRawData()
	if err != nil {
		return nil, err
	}
	var user *domain.User
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, err
	}
	return user, nil
}
