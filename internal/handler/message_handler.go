package handler

import (
	"io"
	"net/http"

	"securechat/backend/internal/auth"
	"securechat/backend/internal/hub"
	"securechat/backend/internal/service"

	"github.com/gin-gonic/gin"
)

// MessageHandler exposes message exchange and the realtime event stream.
type MessageHandler struct {
	messages *service.MessageService
	hub      *hub.Hub
}

func NewMessageHandler(messages *service.MessageService, h *hub.Hub) *MessageHandler {
	return &MessageHandler{messages: messages, hub: h}
}

// SendMessage godoc
// @Summary      Send an encrypted message
// @Description  Persists the ciphertext and pushes it to the receiver's live channel if connected.
// @Tags         messages
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body service.SendMessageRequest true "Message"
// @Success      201  {object}  service.MessageResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /messages [post]
func (h *MessageHandler) SendMessage(c *gin.Context) {
	var req service.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	message, err := h.messages.SendMessage(c.Request.Context(), auth.CurrentUserID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, message)
}

// GetConversation godoc
// @Summary      Get conversation history with a user
// @Description  Returns all messages between the caller and the named user, oldest first.
// @Tags         messages
// @Produce      json
// @Security     BearerAuth
// @Param        username path string true "Other user's username"
// @Success      200  {array}  service.MessageResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /messages/{username} [get]
func (h *MessageHandler) GetConversation(c *gin.Context) {
	messages, err := h.messages.GetConversation(c.Request.Context(), auth.CurrentUserID(c), c.Param("username"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, messages)
}

// Events godoc
// @Summary      Subscribe to realtime events
// @Description  Server-sent event stream carrying message notifications for the authenticated user.
// @Tags         messages
// @Produce      text/event-stream
// @Security     BearerAuth
// @Success      200
// @Router       /events [get]
func (h *MessageHandler) Events(c *gin.Context) {
	userID := auth.CurrentUserID(c)

	client := h.hub.Register(userID)
	defer h.hub.Unregister(userID, client)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case payload, ok := <-client:
			if !ok {
				// Replaced by a newer connection.
				return false
			}
			c.SSEvent("message", string(payload))
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
