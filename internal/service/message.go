package service

import (
	"context"

	"securechat/backend/internal/hub"
	"securechat/backend/internal/models"
	"securechat/backend/pkg/apperr"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SendMessageRequest carries a client's send-message call. The content is
// opaque ciphertext; the server never sees plaintext.
type SendMessageRequest struct {
	ReceiverUsername string             `json:"receiver_username" binding:"required"`
	EncryptedContent string             `json:"encrypted_content" binding:"required"`
	Type             models.MessageType `json:"message_type" binding:"required"`
	FileURL          string             `json:"file_url"`
	OriginalFilename string             `json:"original_filename"`
	Nonce            string             `json:"nonce"`
}

// MessageResponse is the wire shape of a persisted message, both in REST
// responses and in realtime events.
type MessageResponse struct {
	ID               uuid.UUID          `json:"id"`
	SenderUsername   string             `json:"sender_username"`
	ReceiverUsername string             `json:"receiver_username"`
	EncryptedContent string             `json:"encrypted_content"`
	Type             models.MessageType `json:"message_type"`
	FileURL          string             `json:"file_url,omitempty"`
	OriginalFilename string             `json:"original_filename,omitempty"`
	Nonce            string             `json:"nonce,omitempty"`
	Timestamp        int64              `json:"timestamp"`
}

// MessageService gates message creation and retrieval through the
// relationship engine, persists messages and fans out realtime notifications.
type MessageService struct {
	db            *gorm.DB
	users         *UserService
	relationships *RelationshipService
	hub           *hub.Hub
}

func NewMessageService(db *gorm.DB, users *UserService, relationships *RelationshipService, h *hub.Hub) *MessageService {
	return &MessageService{
		db:            db,
		users:         users,
		relationships: relationships,
		hub:           h,
	}
}

// SendMessage validates the relationship, persists the message, and pushes a
// realtime notification to the receiver if connected. A message is never
// persisted for an unauthorized pair, and a persisted message is never rolled
// back because delivery failed: the receiver can always fetch history.
func (s *MessageService) SendMessage(ctx context.Context, senderID uuid.UUID, req SendMessageRequest) (*MessageResponse, error) {
	sender, err := s.users.FindByID(ctx, senderID)
	if err != nil {
		return nil, err
	}
	receiver, err := s.users.FindByUsername(ctx, req.ReceiverUsername)
	if err != nil {
		return nil, err
	}
	if sender.ID == receiver.ID {
		return nil, apperr.ErrSelfMessage
	}

	switch req.Type {
	case models.MessageTypeText:
	case models.MessageTypeFile:
		if req.FileURL == "" || req.OriginalFilename == "" {
			return nil, apperr.ErrFileFieldsMissing
		}
	default:
		return nil, apperr.InvalidArg("unknown message type")
	}

	message := models.Message{
		SenderID:         sender.ID,
		ReceiverID:       receiver.ID,
		EncryptedContent: req.EncryptedContent,
		Type:             req.Type,
		FileURL:          req.FileURL,
		OriginalFilename: req.OriginalFilename,
		Nonce:            req.Nonce,
	}

	// The gate check and persistence hold the pair's exclusion scope so a
	// concurrent block or unfriend cannot slip in between them. A message is
	// never persisted for a pair that fails the check.
	err = s.relationships.WithPairLock(sender.ID, receiver.ID, func() error {
		if err := s.relationships.CheckAuthorized(ctx, sender.ID, receiver.ID); err != nil {
			logrus.WithFields(logrus.Fields{
				"sender":   sender.Username,
				"receiver": receiver.Username,
			}).Warn("message send denied by relationship gate")
			return err
		}
		if err := s.db.WithContext(ctx).Create(&message).Error; err != nil {
			logrus.WithError(err).Error("failed to persist message")
			return apperr.Internal("failed to send message")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	response := toMessageResponse(&message, sender.Username, receiver.Username)

	// Delivery happens only after durable persistence and holds no locks.
	// A receiver without a live channel just fetches history later.
	if delivered := s.hub.Deliver(receiver.ID, hub.Event{Type: "message", Payload: response}); delivered {
		logrus.WithFields(logrus.Fields{
			"message_id": message.ID,
			"receiver":   receiver.Username,
		}).Debug("realtime notification delivered")
	} else {
		logrus.WithFields(logrus.Fields{
			"message_id": message.ID,
			"receiver":   receiver.Username,
		}).Debug("receiver not connected, skipping realtime delivery")
	}

	return response, nil
}

// GetConversation returns the full message history between the caller and the
// named peer, oldest first. The same relationship gate applies as for sending.
func (s *MessageService) GetConversation(ctx context.Context, userID uuid.UUID, otherUsername string) ([]MessageResponse, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	other, err := s.users.FindByUsername(ctx, otherUsername)
	if err != nil {
		return nil, err
	}

	if err := s.relationships.CheckAuthorized(ctx, user.ID, other.ID); err != nil {
		return nil, err
	}

	var messages []models.Message
	err = s.db.WithContext(ctx).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			user.ID, other.ID, other.ID, user.ID).
		Order("created_at ASC").
		Find(&messages).Error
	if err != nil {
		logrus.WithError(err).Error("failed to load conversation")
		return nil, apperr.Internal("failed to load conversation")
	}

	usernames := map[uuid.UUID]string{user.ID: user.Username, other.ID: other.Username}
	result := make([]MessageResponse, 0, len(messages))
	for i := range messages {
		m := &messages[i]
		result = append(result, *toMessageResponse(m, usernames[m.SenderID], usernames[m.ReceiverID]))
	}
	return result, nil
}

func toMessageResponse(m *models.Message, senderUsername, receiverUsername string) *MessageResponse {
	return &MessageResponse{
		ID:               m.ID,
		SenderUsername:   senderUsername,
		ReceiverUsername: receiverUsername,
		EncryptedContent: m.EncryptedContent,
		Type:             m.Type,
		FileURL:          m.FileURL,
		OriginalFilename: m.OriginalFilename,
		Nonce:            m.Nonce,
		Timestamp:        m.CreatedAt.UnixMilli(),
	}
}
