package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents a registered user in the system.
// The server never sees plaintext messages; it only stores the public key
// material clients need to encrypt for each other.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Username     string    `gorm:"size:255;unique;not null"`
	Nickname     string    `gorm:"size:255;not null"`
	PasswordHash string    `gorm:"size:255;not null"`

	// Client-generated public keys, uploaded after registration and until
	// then absent.
	Ed25519PublicKey string `gorm:"type:text"`
	X25519PublicKey  string `gorm:"type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// BeforeCreate assigns the UUID primary key.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
