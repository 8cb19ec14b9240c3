package handler

import (
	"net/http"

	"securechat/backend/internal/auth"
	"securechat/backend/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// UserResponse is a user's own profile.
type UserResponse struct {
	ID               uuid.UUID `json:"id"`
	Username         string    `json:"username"`
	Nickname         string    `json:"nickname"`
	Ed25519PublicKey string    `json:"ed25519_public_key,omitempty"`
	X25519PublicKey  string    `json:"x25519_public_key,omitempty"`
}

// UpdateNicknameInput defines the nickname change request.
type UpdateNicknameInput struct {
	Nickname string `json:"nickname" binding:"required" example:"Alice B."`
}

// UploadKeysInput carries client-generated public key material. Either field
// may be omitted to leave the stored key untouched.
type UploadKeysInput struct {
	Ed25519PublicKey string `json:"ed25519_public_key"`
	X25519PublicKey  string `json:"x25519_public_key"`
}

// PublicKeysResponse is the key material another user needs to encrypt for a peer.
type PublicKeysResponse struct {
	Username         string `json:"username"`
	Ed25519PublicKey string `json:"ed25519_public_key,omitempty"`
	X25519PublicKey  string `json:"x25519_public_key,omitempty"`
}

// UserHandler exposes profile and public key endpoints.
type UserHandler struct {
	users *service.UserService
}

func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// GetMe godoc
// @Summary      Get own profile
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  UserResponse
// @Failure      401  {object}  ErrorResponse
// @Router       /users/me [get]
func (h *UserHandler) GetMe(c *gin.Context) {
	user, err := h.users.FindByID(c.Request.Context(), auth.CurrentUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, UserResponse{
		ID:               user.ID,
		Username:         user.Username,
		Nickname:         user.Nickname,
		Ed25519PublicKey: user.Ed25519PublicKey,
		X25519PublicKey:  user.X25519PublicKey,
	})
}

// UpdateNickname godoc
// @Summary      Change own nickname
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body UpdateNicknameInput true "New nickname"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  ErrorResponse
// @Router       /users/me/nickname [put]
func (h *UserHandler) UpdateNickname(c *gin.Context) {
	var input UpdateNicknameInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.users.UpdateNickname(c.Request.Context(), auth.CurrentUserID(c), input.Nickname); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Nickname updated"})
}

// UploadKeys godoc
// @Summary      Upload own public keys
// @Description  Stores client-generated Ed25519/X25519 public keys. The server never holds private keys.
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body UploadKeysInput true "Public keys"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  ErrorResponse
// @Router       /users/me/keys [put]
func (h *UserHandler) UploadKeys(c *gin.Context) {
	var input UploadKeysInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.users.UploadKeys(c.Request.Context(), auth.CurrentUserID(c), input.Ed25519PublicKey, input.X25519PublicKey); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Public keys updated"})
}

// GetUserKeys godoc
// @Summary      Get a user's public keys
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        username path string true "Username"
// @Success      200  {object}  PublicKeysResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /users/{username}/keys [get]
func (h *UserHandler) GetUserKeys(c *gin.Context) {
	user, err := h.users.FindByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, PublicKeysResponse{
		Username:         user.Username,
		Ed25519PublicKey: user.Ed25519PublicKey,
		X25519PublicKey:  user.X25519PublicKey,
	})
}
