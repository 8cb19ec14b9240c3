package service

import (
	"context"
	"errors"
	"time"

	"securechat/backend/internal/models"
	"securechat/backend/pkg/apperr"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// RelationshipService is the sole authority on whether two users may exchange
// messages and on all relationship state transitions. No other component
// writes friendship rows.
type RelationshipService struct {
	db    *gorm.DB
	users *UserService
	locks *pairLocker
}

func NewRelationshipService(db *gorm.DB, users *UserService) *RelationshipService {
	return &RelationshipService{
		db:    db,
		users: users,
		locks: newPairLocker(),
	}
}

// FriendStatus is one entry of a user's friend list: the peer with the
// relationship status and the key material a client needs to encrypt for them.
type FriendStatus struct {
	UserID           uuid.UUID               `json:"user_id"`
	Username         string                  `json:"username"`
	Nickname         string                  `json:"nickname"`
	Status           models.FriendshipStatus `json:"status"`
	Ed25519PublicKey string                  `json:"ed25519_public_key,omitempty"`
	X25519PublicKey  string                  `json:"x25519_public_key,omitempty"`
}

// PendingRequest is one incoming, not yet answered friend request.
type PendingRequest struct {
	RequesterID uuid.UUID `json:"requester_id"`
	Username    string    `json:"username"`
	Nickname    string    `json:"nickname"`
	SentAt      time.Time `json:"sent_at"`
}

// SendRequest creates a PENDING relationship from requester to addressee.
// Any pre-existing relationship between the pair, in either direction,
// rejects the request with a status-specific error.
func (s *RelationshipService) SendRequest(ctx context.Context, requesterID, addresseeID uuid.UUID) (*models.Friendship, error) {
	if requesterID == addresseeID {
		return nil, apperr.ErrSelfRequest
	}

	requester, err := s.users.FindByID(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	addressee, err := s.users.FindByID(ctx, addresseeID)
	if err != nil {
		return nil, err
	}

	s.locks.Lock(requesterID, addresseeID)
	defer s.locks.Unlock(requesterID, addresseeID)

	existing, err := s.findBetween(ctx, requesterID, addresseeID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		logrus.WithFields(logrus.Fields{
			"requester": requester.Username,
			"addressee": addressee.Username,
			"status":    existing.Status,
		}).Warn("friend request rejected, relationship already exists")

		switch existing.Status {
		case models.StatusBlocked:
			if existing.BlockedBy(requesterID) {
				return nil, apperr.ErrYouBlockedThem
			}
			return nil, apperr.ErrBlockedByOther
		case models.StatusAccepted:
			return nil, apperr.ErrAlreadyFriends
		default:
			return nil, apperr.ErrRequestAlreadyExists
		}
	}

	friendship := models.Friendship{
		RequesterID:  requesterID,
		AddresseeID:  addresseeID,
		Status:       models.StatusPending,
		ActionUserID: &requesterID,
	}
	if err := s.db.WithContext(ctx).Create(&friendship).Error; err != nil {
		logrus.WithError(err).Error("failed to create friend request")
		return nil, apperr.Internal("failed to create friend request")
	}

	logrus.WithFields(logrus.Fields{
		"requester": requester.Username,
		"addressee": addressee.Username,
	}).Info("friend request created")
	return &friendship, nil
}

// AcceptRequest marks the PENDING request from requester to caller as
// ACCEPTED. The lookup is by the exact stored key: only the original
// addressee may accept, and the caller must be that addressee.
func (s *RelationshipService) AcceptRequest(ctx context.Context, requesterID, addresseeID, callerID uuid.UUID) (*models.Friendship, error) {
	s.locks.Lock(requesterID, addresseeID)
	defer s.locks.Unlock(requesterID, addresseeID)

	friendship, err := s.findExact(ctx, requesterID, addresseeID)
	if err != nil {
		return nil, err
	}
	if friendship == nil {
		return nil, apperr.ErrRequestNotFound
	}
	if friendship.Status != models.StatusPending {
		return nil, apperr.ErrRequestNotPending
	}
	if callerID != friendship.AddresseeID {
		return nil, apperr.ErrNotRequestAddressee
	}

	friendship.Status = models.StatusAccepted
	friendship.ActionUserID = &addresseeID
	if err := s.save(ctx, friendship); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"requester_id": requesterID,
		"addressee_id": addresseeID,
	}).Info("friend request accepted")
	return friendship, nil
}

// DeclineRequest removes the PENDING request from requester to caller. The
// row is deleted outright; the returned value carries DECLINED only for
// caller reporting. A later request between the pair starts from scratch.
func (s *RelationshipService) DeclineRequest(ctx context.Context, requesterID, addresseeID, callerID uuid.UUID) (*models.Friendship, error) {
	s.locks.Lock(requesterID, addresseeID)
	defer s.locks.Unlock(requesterID, addresseeID)

	friendship, err := s.findExact(ctx, requesterID, addresseeID)
	if err != nil {
		return nil, err
	}
	if friendship == nil {
		return nil, apperr.ErrRequestNotFound
	}
	if friendship.Status != models.StatusPending {
		return nil, apperr.ErrRequestNotPending
	}
	if callerID != friendship.AddresseeID {
		return nil, apperr.ErrNotRequestAddressee
	}

	if err := s.delete(ctx, friendship); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"requester_id": requesterID,
		"addressee_id": addresseeID,
	}).Info("friend request declined and removed")

	friendship.Status = models.StatusDeclined
	return friendship, nil
}

// Unfriend removes an ACCEPTED relationship and purges the whole conversation
// between the pair. Message purge and row deletion happen in one transaction:
// either both survive a crash or neither does.
func (s *RelationshipService) Unfriend(ctx context.Context, userID, friendID uuid.UUID) (*models.Friendship, error) {
	s.locks.Lock(userID, friendID)
	defer s.locks.Unlock(userID, friendID)

	friendship, err := s.findBetween(ctx, userID, friendID)
	if err != nil {
		return nil, err
	}
	if friendship == nil {
		return nil, apperr.ErrRelationNotFound
	}
	if friendship.Status != models.StatusAccepted {
		return nil, apperr.ErrNotFriends
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
				userID, friendID, friendID, userID).
			Delete(&models.Message{}).Error; err != nil {
			return err
		}
		return tx.
			Where("requester_id = ? AND addressee_id = ?", friendship.RequesterID, friendship.AddresseeID).
			Delete(&models.Friendship{}).Error
	})
	if err != nil {
		logrus.WithError(err).Error("failed to unfriend")
		return nil, apperr.Internal("failed to unfriend")
	}

	logrus.WithFields(logrus.Fields{
		"user_id":   userID,
		"friend_id": friendID,
	}).Info("unfriended, conversation history purged")
	return friendship, nil
}

// BlockUser sets the relationship to BLOCKED with the blocker as action user.
// An existing row is reused regardless of its status or direction; a missing
// one is created with a deterministic ordering so that repeated block/unblock
// cycles never produce duplicate rows. Blocking an already-blocked-by-you
// pair is a no-op success.
func (s *RelationshipService) BlockUser(ctx context.Context, blockerID, blockedID uuid.UUID) (*models.Friendship, error) {
	if blockerID == blockedID {
		return nil, apperr.InvalidArg("you cannot block yourself")
	}
	if _, err := s.users.FindByID(ctx, blockedID); err != nil {
		return nil, err
	}

	s.locks.Lock(blockerID, blockedID)
	defer s.locks.Unlock(blockerID, blockedID)

	friendship, err := s.findBetween(ctx, blockerID, blockedID)
	if err != nil {
		return nil, err
	}
	isNew := friendship == nil
	if isNew {
		pair := canonicalPair(blockerID, blockedID)
		friendship = &models.Friendship{
			RequesterID: pair.Low,
			AddresseeID: pair.High,
		}
	} else if friendship.BlockedBy(blockerID) {
		return friendship, nil
	}

	friendship.Status = models.StatusBlocked
	friendship.ActionUserID = &blockerID
	if isNew {
		if err := s.db.WithContext(ctx).Create(friendship).Error; err != nil {
			logrus.WithError(err).Error("failed to create block relationship")
			return nil, apperr.Internal("failed to block user")
		}
	} else if err := s.save(ctx, friendship); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"blocker_id": blockerID,
		"blocked_id": blockedID,
	}).Info("user blocked")
	return friendship, nil
}

// UnblockUser lifts a block. Only the user who placed the block may lift it,
// and doing so restores the friendship to ACCEPTED rather than returning the
// pair to stranger status; the action user is cleared.
func (s *RelationshipService) UnblockUser(ctx context.Context, callerID, blockedID uuid.UUID) (*models.Friendship, error) {
	s.locks.Lock(callerID, blockedID)
	defer s.locks.Unlock(callerID, blockedID)

	friendship, err := s.findBetween(ctx, callerID, blockedID)
	if err != nil {
		return nil, err
	}
	if friendship == nil {
		return nil, apperr.ErrRelationNotFound
	}
	if friendship.Status != models.StatusBlocked {
		return nil, apperr.ErrNotBlocked
	}
	if !friendship.BlockedBy(callerID) {
		logrus.WithFields(logrus.Fields{
			"caller_id":  callerID,
			"blocked_id": blockedID,
		}).Warn("unblock refused, caller is not the original blocker")
		return nil, apperr.ErrNotBlocker
	}

	friendship.Status = models.StatusAccepted
	friendship.ActionUserID = nil
	if err := s.saveWithNullAction(ctx, friendship); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"caller_id":  callerID,
		"blocked_id": blockedID,
	}).Info("user unblocked, friendship restored")
	return friendship, nil
}

// CheckAuthorized is the authorization gate for messaging: nil only when the
// pair is ACCEPTED. Every denial carries the reason the caller may see.
func (s *RelationshipService) CheckAuthorized(ctx context.Context, callerID, peerID uuid.UUID) error {
	friendship, err := s.findBetween(ctx, callerID, peerID)
	if err != nil {
		return err
	}
	if friendship == nil {
		return apperr.NotAuthorized("you are not friends with this user")
	}

	switch friendship.Status {
	case models.StatusAccepted:
		return nil
	case models.StatusBlocked:
		if friendship.BlockedBy(callerID) {
			return apperr.NotAuthorized("you have blocked this user, unblock them to interact")
		}
		return apperr.NotAuthorized("you cannot interact with this user as you have been blocked")
	default:
		return apperr.NotAuthorized("you are not friends with this user")
	}
}

// ListFriends returns the user's accepted and blocked peers with nickname and
// public keys, so a client can render state and encrypt future messages.
func (s *RelationshipService) ListFriends(ctx context.Context, userID uuid.UUID) ([]FriendStatus, error) {
	var friendships []models.Friendship
	err := s.db.WithContext(ctx).
		Preload("Requester").
		Preload("Addressee").
		Where("(requester_id = ? OR addressee_id = ?) AND status IN ?",
			userID, userID, []models.FriendshipStatus{models.StatusAccepted, models.StatusBlocked}).
		Find(&friendships).Error
	if err != nil {
		logrus.WithError(err).Error("failed to list friends")
		return nil, apperr.Internal("failed to list friends")
	}

	result := make([]FriendStatus, 0, len(friendships))
	for _, f := range friendships {
		peer := f.Peer(userID)
		result = append(result, FriendStatus{
			UserID:           peer.ID,
			Username:         peer.Username,
			Nickname:         peer.Nickname,
			Status:           f.Status,
			Ed25519PublicKey: peer.Ed25519PublicKey,
			X25519PublicKey:  peer.X25519PublicKey,
		})
	}
	return result, nil
}

// ListPendingIncoming returns all friend requests awaiting the user's answer.
func (s *RelationshipService) ListPendingIncoming(ctx context.Context, userID uuid.UUID) ([]PendingRequest, error) {
	var friendships []models.Friendship
	err := s.db.WithContext(ctx).
		Preload("Requester").
		Where("addressee_id = ? AND status = ?", userID, models.StatusPending).
		Find(&friendships).Error
	if err != nil {
		logrus.WithError(err).Error("failed to list pending requests")
		return nil, apperr.Internal("failed to list pending requests")
	}

	result := make([]PendingRequest, 0, len(friendships))
	for _, f := range friendships {
		result = append(result, PendingRequest{
			RequesterID: f.RequesterID,
			Username:    f.Requester.Username,
			Nickname:    f.Requester.Nickname,
			SentAt:      f.CreatedAt,
		})
	}
	return result, nil
}

// WithPairLock runs fn while holding the mutual-exclusion scope for the
// unordered pair {a, b}. The messaging service uses it so that the
// authorization check and message persistence cannot interleave with a
// relationship mutation on the same pair.
func (s *RelationshipService) WithPairLock(a, b uuid.UUID, fn func() error) error {
	s.locks.Lock(a, b)
	defer s.locks.Unlock(a, b)
	return fn()
}

// findBetween looks up the relationship between two users regardless of who
// created it, checking both physical orderings of the composite key.
func (s *RelationshipService) findBetween(ctx context.Context, userA, userB uuid.UUID) (*models.Friendship, error) {
	var friendship models.Friendship
	err := s.db.WithContext(ctx).
		Where("(requester_id = ? AND addressee_id = ?) OR (requester_id = ? AND addressee_id = ?)",
			userA, userB, userB, userA).
		First(&friendship).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		logrus.WithError(err).Error("failed to look up relationship")
		return nil, apperr.Internal("internal server error")
	}
	return &friendship, nil
}

// findExact looks up the relationship by the exact stored (requester,
// addressee) key.
func (s *RelationshipService) findExact(ctx context.Context, requesterID, addresseeID uuid.UUID) (*models.Friendship, error) {
	var friendship models.Friendship
	err := s.db.WithContext(ctx).
		Where("requester_id = ? AND addressee_id = ?", requesterID, addresseeID).
		First(&friendship).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		logrus.WithError(err).Error("failed to look up relationship")
		return nil, apperr.Internal("internal server error")
	}
	return &friendship, nil
}

func (s *RelationshipService) save(ctx context.Context, friendship *models.Friendship) error {
	if err := s.db.WithContext(ctx).Save(friendship).Error; err != nil {
		logrus.WithError(err).Error("failed to save relationship")
		return apperr.Internal("failed to save relationship")
	}
	return nil
}

// saveWithNullAction persists a row whose action user was cleared. Save would
// skip the zero value, so the column is written explicitly.
func (s *RelationshipService) saveWithNullAction(ctx context.Context, friendship *models.Friendship) error {
	err := s.db.WithContext(ctx).Model(friendship).
		Where("requester_id = ? AND addressee_id = ?", friendship.RequesterID, friendship.AddresseeID).
		Updates(map[string]interface{}{
			"status":         friendship.Status,
			"action_user_id": nil,
		}).Error
	if err != nil {
		logrus.WithError(err).Error("failed to save relationship")
		return apperr.Internal("failed to save relationship")
	}
	return nil
}

func (s *RelationshipService) delete(ctx context.Context, friendship *models.Friendship) error {
	err := s.db.WithContext(ctx).
		Where("requester_id = ? AND addressee_id = ?", friendship.RequesterID, friendship.AddresseeID).
		Delete(&models.Friendship{}).Error
	if err != nil {
		logrus.WithError(err).Error("failed to delete relationship")
		return apperr.Internal("failed to delete relationship")
	}
	return nil
}
