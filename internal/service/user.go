package service

import (
	"context"
	"errors"

	"securechat/backend/internal/models"
	"securechat/backend/pkg/apperr"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserService owns user records: registration, credential verification and
// the public key material clients exchange for end-to-end encryption.
type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// Register creates a new user with a bcrypt-hashed password. The username is
// immutable once taken.
func (s *UserService) Register(ctx context.Context, username, nickname, password string) (*models.User, error) {
	var existing models.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&existing).Error
	if err == nil {
		return nil, apperr.ErrUsernameTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		logrus.WithError(err).Error("failed to check username availability")
		return nil, apperr.Internal("internal server error")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		logrus.WithError(err).Error("failed to hash password")
		return nil, apperr.Internal("internal server error")
	}

	user := models.User{
		Username:     username,
		Nickname:     nickname,
		PasswordHash: string(hashedPassword),
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		logrus.WithError(err).Error("failed to create user")
		return nil, apperr.Internal("failed to create user")
	}

	logrus.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"username": user.Username,
	}).Info("user registered")
	return &user, nil
}

// Authenticate verifies a username/password pair and returns the identity on
// success. The error is deliberately identical for an unknown username and a
// wrong password.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.FindByUsername(ctx, username)
	if err != nil {
		return nil, apperr.Unauthenticated("invalid username or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperr.Unauthenticated("invalid username or password")
	}

	return user, nil
}

// FindByID resolves a user by ID.
func (s *UserService) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrUserNotFound
	}
	if err != nil {
		logrus.WithError(err).Error("failed to load user by id")
		return nil, apperr.Internal("internal server error")
	}
	return &user, nil
}

// FindByUsername resolves a user by username.
func (s *UserService) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrUserNotFound
	}
	if err != nil {
		logrus.WithError(err).Error("failed to load user by username")
		return nil, apperr.Internal("internal server error")
	}
	return &user, nil
}

// UpdateNickname changes the user's display name. Usernames never change.
func (s *UserService) UpdateNickname(ctx context.Context, userID uuid.UUID, nickname string) error {
	if nickname == "" {
		return apperr.InvalidArg("nickname cannot be empty")
	}
	result := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("nickname", nickname)
	if result.Error != nil {
		logrus.WithError(result.Error).Error("failed to update nickname")
		return apperr.Internal("failed to update nickname")
	}
	if result.RowsAffected == 0 {
		return apperr.ErrUserNotFound
	}
	return nil
}

// UploadKeys stores the user's public key material. Either key may be set
// independently; empty fields leave the stored value untouched.
func (s *UserService) UploadKeys(ctx context.Context, userID uuid.UUID, ed25519Key, x25519Key string) error {
	if ed25519Key == "" && x25519Key == "" {
		return apperr.InvalidArg("at least one public key must be provided")
	}

	updates := map[string]interface{}{}
	if ed25519Key != "" {
		updates["ed25519_public_key"] = ed25519Key
	}
	if x25519Key != "" {
		updates["x25519_public_key"] = x25519Key
	}

	result := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(updates)
	if result.Error != nil {
		logrus.WithError(result.Error).Error("failed to store public keys")
		return apperr.Internal("failed to store public keys")
	}
	if result.RowsAffected == 0 {
		return apperr.ErrUserNotFound
	}

	logrus.WithField("user_id", userID).Info("public keys updated")
	return nil
}
