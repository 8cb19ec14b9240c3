package models

import (
	"time"

	"github.com/google/uuid"
)

// FriendshipStatus defines the state of a relationship between two users.
type FriendshipStatus string

const (
	// StatusPending means a friend request has been sent but not yet answered.
	StatusPending FriendshipStatus = "PENDING"

	// StatusAccepted means the friend request was accepted, and the users are
	// now friends. Messaging is only allowed in this state.
	StatusAccepted FriendshipStatus = "ACCEPTED"

	// StatusDeclined is never stored: a declined request is deleted. The
	// value only appears on the transient row returned to the caller.
	StatusDeclined FriendshipStatus = "DECLINED"

	// StatusBlocked means one of the two users blocked the other. ActionUserID
	// records who, and only that user may unblock.
	StatusBlocked FriendshipStatus = "BLOCKED"
)

// Friendship is the single authoritative record of the relationship between
// two users. The primary key is a composite of (RequesterID, AddresseeID),
// fixed at creation time and never reordered by later status changes; at most
// one row may exist per unordered pair, so every lookup that does not know
// the original direction must check both orderings.
type Friendship struct {
	RequesterID uuid.UUID        `gorm:"type:uuid;primaryKey"`
	AddresseeID uuid.UUID        `gorm:"type:uuid;primaryKey"`
	Status      FriendshipStatus `gorm:"type:varchar(20);not null"`

	// ActionUserID is the user who most recently changed Status. NULL after
	// an unblock.
	ActionUserID *uuid.UUID `gorm:"type:uuid"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Requester User `gorm:"foreignKey:RequesterID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Addressee User `gorm:"foreignKey:AddresseeID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

// Peer returns the other side of the relationship as seen from userID.
func (f *Friendship) Peer(userID uuid.UUID) User {
	if f.RequesterID == userID {
		return f.Addressee
	}
	return f.Requester
}

// BlockedBy reports whether userID is the one who placed the current block.
func (f *Friendship) BlockedBy(userID uuid.UUID) bool {
	return f.Status == StatusBlocked && f.ActionUserID != nil && *f.ActionUserID == userID
}
