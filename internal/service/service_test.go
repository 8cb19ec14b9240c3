package service

import (
	"context"
	"testing"

	"securechat/backend/internal/database"
	"securechat/backend/internal/hub"
	"securechat/backend/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	return db
}

type testEnv struct {
	db            *gorm.DB
	hub           *hub.Hub
	users         *UserService
	relationships *RelationshipService
	messages      *MessageService
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	db := setupTestDB(t)
	h := hub.New()
	users := NewUserService(db)
	relationships := NewRelationshipService(db, users)
	messages := NewMessageService(db, users, relationships, h)

	return &testEnv{
		db:            db,
		hub:           h,
		users:         users,
		relationships: relationships,
		messages:      messages,
	}
}

func (e *testEnv) register(t *testing.T, username string) *models.User {
	t.Helper()

	user, err := e.users.Register(context.Background(), username, username, "password123")
	require.NoError(t, err)
	return user
}

// befriend runs the full request/accept round trip between two users.
func (e *testEnv) befriend(t *testing.T, a, b *models.User) {
	t.Helper()

	ctx := context.Background()
	_, err := e.relationships.SendRequest(ctx, a.ID, b.ID)
	require.NoError(t, err)
	_, err = e.relationships.AcceptRequest(ctx, a.ID, b.ID, b.ID)
	require.NoError(t, err)
}

// friendshipCount returns how many relationship rows exist for the unordered
// pair, in either direction. The single-row invariant says it is never > 1.
func (e *testEnv) friendshipCount(t *testing.T, a, b *models.User) int64 {
	t.Helper()

	var count int64
	err := e.db.Model(&models.Friendship{}).
		Where("(requester_id = ? AND addressee_id = ?) OR (requester_id = ? AND addressee_id = ?)",
			a.ID, b.ID, b.ID, a.ID).
		Count(&count).Error
	require.NoError(t, err)
	return count
}

func (e *testEnv) messageCount(t *testing.T, a, b *models.User) int64 {
	t.Helper()

	var count int64
	err := e.db.Model(&models.Message{}).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			a.ID, b.ID, b.ID, a.ID).
		Count(&count).Error
	require.NoError(t, err)
	return count
}
