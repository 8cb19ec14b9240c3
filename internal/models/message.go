package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MessageType string

const (
	MessageTypeText MessageType = "TEXT"
	MessageTypeFile MessageType = "FILE"
)

// Message is one end-to-end-encrypted message between two users. The content
// is opaque ciphertext produced client-side; the server stores and relays it
// without ever seeing plaintext. Messages are immutable once created and are
// only deleted in bulk when the two users unfriend.
type Message struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	SenderID   uuid.UUID `gorm:"type:uuid;not null;index"`
	ReceiverID uuid.UUID `gorm:"type:uuid;not null;index"`

	EncryptedContent string      `gorm:"type:text;not null"`
	Type             MessageType `gorm:"type:varchar(20);not null;default:'TEXT'"`

	// Set only for FILE messages: an opaque handle into the external blob
	// store plus the name to display. The server never inspects file bytes.
	FileURL          string `gorm:"type:text"`
	OriginalFilename string `gorm:"size:255"`

	// Nonce used by the client-side cipher, opaque to the server.
	Nonce string `gorm:"type:text"`

	// CreatedAt is assigned by the server on persistence and is the sort key
	// for conversation history.
	CreatedAt time.Time `gorm:"index"`

	Sender   User `gorm:"foreignKey:SenderID;references:ID;constraint:OnDelete:CASCADE;"`
	Receiver User `gorm:"foreignKey:ReceiverID;references:ID;constraint:OnDelete:CASCADE;"`
}

// BeforeCreate assigns the UUID primary key.
func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
