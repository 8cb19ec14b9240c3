package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"securechat/backend/internal/models"
	"securechat/backend/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func textMessage(receiver, ciphertext string) SendMessageRequest {
	return SendMessageRequest{
		ReceiverUsername: receiver,
		EncryptedContent: ciphertext,
		Type:             models.MessageTypeText,
		Nonce:            "bm9uY2U=",
	}
}

func TestSendMessageRequiresFriendship(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")

	_, err := env.messages.SendMessage(ctx, alice.ID, textMessage("bob", "Zm9v"))
	require.Error(t, err)
	assert.EqualValues(t, 0, env.messageCount(t, alice, bob))
}

func TestSendMessageToSelf(t *testing.T) {
	env := setupEnv(t)
	alice := env.register(t, "alice")

	_, err := env.messages.SendMessage(context.Background(), alice.ID, textMessage("alice", "Zm9v"))
	assert.ErrorIs(t, err, apperr.ErrSelfMessage)
}

func TestSendMessageUnknownReceiver(t *testing.T) {
	env := setupEnv(t)
	alice := env.register(t, "alice")

	_, err := env.messages.SendMessage(context.Background(), alice.ID, textMessage("nobody", "Zm9v"))
	assert.ErrorIs(t, err, apperr.ErrUserNotFound)
}

func TestSendTextMessage(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	env.befriend(t, alice, bob)

	sent, err := env.messages.SendMessage(ctx, alice.ID, textMessage("bob", "Zm9v"))
	require.NoError(t, err)

	assert.Equal(t, "alice", sent.SenderUsername)
	assert.Equal(t, "bob", sent.ReceiverUsername)
	assert.Equal(t, "Zm9v", sent.EncryptedContent)
	assert.Equal(t, models.MessageTypeText, sent.Type)
	assert.NotZero(t, sent.Timestamp)
	assert.EqualValues(t, 1, env.messageCount(t, alice, bob))
}

func TestSendFileMessageValidation(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	env.befriend(t, alice, bob)

	req := textMessage("bob", "Zm9v")
	req.Type = models.MessageTypeFile

	_, err := env.messages.SendMessage(ctx, alice.ID, req)
	assert.ErrorIs(t, err, apperr.ErrFileFieldsMissing)

	req.FileURL = "blob://abc123"
	_, err = env.messages.SendMessage(ctx, alice.ID, req)
	assert.ErrorIs(t, err, apperr.ErrFileFieldsMissing)

	req.OriginalFilename = "report.pdf"
	sent, err := env.messages.SendMessage(ctx, alice.ID, req)
	require.NoError(t, err)
	assert.Equal(t, "blob://abc123", sent.FileURL)
	assert.Equal(t, "report.pdf", sent.OriginalFilename)
}

func TestSendMessageUnknownType(t *testing.T) {
	env := setupEnv(t)
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	env.befriend(t, alice, bob)

	req := textMessage("bob", "Zm9v")
	req.Type = "VOICE"
	_, err := env.messages.SendMessage(context.Background(), alice.ID, req)
	require.Error(t, err)
}

// Blocking cuts messaging in both directions with direction-specific reasons;
// unblocking by the blocker restores both.
func TestBlockGatesMessaging(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	env.befriend(t, alice, bob)

	_, err := env.relationships.BlockUser(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	_, err = env.messages.SendMessage(ctx, bob.ID, textMessage("alice", "Zm9v"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blocked")

	_, err = env.messages.SendMessage(ctx, alice.ID, textMessage("bob", "Zm9v"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "you have blocked")

	assert.EqualValues(t, 0, env.messageCount(t, alice, bob))

	_, err = env.relationships.UnblockUser(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	_, err = env.messages.SendMessage(ctx, alice.ID, textMessage("bob", "Zm9v"))
	require.NoError(t, err)
	_, err = env.messages.SendMessage(ctx, bob.ID, textMessage("alice", "YmFy"))
	require.NoError(t, err)
}

func TestGetConversationOrdering(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	env.befriend(t, alice, bob)

	ciphertexts := []string{"bTE=", "bTI=", "bTM=", "bTQ="}
	for i, ct := range ciphertexts {
		sender := alice.ID
		if i%2 == 1 {
			sender = bob.ID
		}
		receiver := "bob"
		if i%2 == 1 {
			receiver = "alice"
		}
		_, err := env.messages.SendMessage(ctx, sender, textMessage(receiver, ct))
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}

	conversation, err := env.messages.GetConversation(ctx, alice.ID, "bob")
	require.NoError(t, err)
	require.Len(t, conversation, len(ciphertexts))

	for i, msg := range conversation {
		assert.Equal(t, ciphertexts[i], msg.EncryptedContent)
	}
	for i := 1; i < len(conversation); i++ {
		assert.LessOrEqual(t, conversation[i-1].Timestamp, conversation[i].Timestamp)
	}

	// The other side sees the identical history.
	mirror, err := env.messages.GetConversation(ctx, bob.ID, "alice")
	require.NoError(t, err)
	require.Len(t, mirror, len(ciphertexts))
	assert.Equal(t, conversation[0].ID, mirror[0].ID)
}

func TestGetConversationRequiresFriendship(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	env.register(t, "bob")

	_, err := env.messages.GetConversation(ctx, alice.ID, "bob")
	require.Error(t, err)
}

// Unfriend purges the conversation; a later getConversation is a denial, not
// an empty success.
func TestUnfriendPurgesConversation(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	env.befriend(t, alice, bob)

	_, err := env.messages.SendMessage(ctx, alice.ID, textMessage("bob", "Zm9v"))
	require.NoError(t, err)
	_, err = env.messages.SendMessage(ctx, bob.ID, textMessage("alice", "YmFy"))
	require.NoError(t, err)
	require.EqualValues(t, 2, env.messageCount(t, alice, bob))

	_, err = env.relationships.Unfriend(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	assert.EqualValues(t, 0, env.messageCount(t, alice, bob))
	_, err = env.messages.GetConversation(ctx, alice.ID, "bob")
	require.Error(t, err)
}

// A connected receiver gets exactly one realtime notification per send; an
// offline receiver does not fail the send.
func TestSendMessageRealtimeDelivery(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	env.befriend(t, alice, bob)

	// Offline receiver: send still succeeds.
	_, err := env.messages.SendMessage(ctx, alice.ID, textMessage("bob", "b2ZmbGluZQ=="))
	require.NoError(t, err)

	client := env.hub.Register(bob.ID)
	defer env.hub.Unregister(bob.ID, client)

	sent, err := env.messages.SendMessage(ctx, alice.ID, textMessage("bob", "Zm9v"))
	require.NoError(t, err)

	select {
	case payload := <-client:
		var event struct {
			Type    string          `json:"type"`
			Payload MessageResponse `json:"payload"`
		}
		require.NoError(t, json.Unmarshal(payload, &event))
		assert.Equal(t, "message", event.Type)
		assert.Equal(t, sent.ID, event.Payload.ID)
		assert.Equal(t, "Zm9v", event.Payload.EncryptedContent)
	case <-time.After(time.Second):
		t.Fatal("expected a realtime notification")
	}

	// Exactly one notification for one send.
	select {
	case extra := <-client:
		t.Fatalf("unexpected extra notification: %s", extra)
	default:
	}
}
