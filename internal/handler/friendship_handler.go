package handler

import (
	"net/http"

	"securechat/backend/internal/auth"
	"securechat/backend/internal/service"

	"github.com/gin-gonic/gin"
)

// FriendRequestInput names the other party of a friendship operation.
type FriendRequestInput struct {
	Username string `json:"username" binding:"required" example:"bob"`
}

// FriendshipResponse reports the outcome of a friendship mutation.
type FriendshipResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

// FriendshipHandler exposes the relationship state machine over HTTP.
type FriendshipHandler struct {
	users         *service.UserService
	relationships *service.RelationshipService
}

func NewFriendshipHandler(users *service.UserService, relationships *service.RelationshipService) *FriendshipHandler {
	return &FriendshipHandler{users: users, relationships: relationships}
}

// SendRequest godoc
// @Summary      Send friend request
// @Tags         friendships
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body FriendRequestInput true "Addressee"
// @Success      201  {object}  FriendshipResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /friendships/requests [post]
func (h *FriendshipHandler) SendRequest(c *gin.Context) {
	var input FriendRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	addressee, err := h.users.FindByUsername(c.Request.Context(), input.Username)
	if err != nil {
		writeError(c, err)
		return
	}

	friendship, err := h.relationships.SendRequest(c.Request.Context(), auth.CurrentUserID(c), addressee.ID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, FriendshipResponse{
		Message: "Friend request sent to " + input.Username,
		Status:  string(friendship.Status),
	})
}

// AcceptRequest godoc
// @Summary      Accept a pending friend request
// @Tags         friendships
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body FriendRequestInput true "Requester"
// @Success      200  {object}  FriendshipResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /friendships/requests/accept [put]
func (h *FriendshipHandler) AcceptRequest(c *gin.Context) {
	var input FriendRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	requester, err := h.users.FindByUsername(c.Request.Context(), input.Username)
	if err != nil {
		writeError(c, err)
		return
	}

	callerID := auth.CurrentUserID(c)
	friendship, err := h.relationships.AcceptRequest(c.Request.Context(), requester.ID, callerID, callerID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, FriendshipResponse{
		Message: "Friend request from " + input.Username + " accepted",
		Status:  string(friendship.Status),
	})
}

// DeclineRequest godoc
// @Summary      Decline a pending friend request
// @Tags         friendships
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body FriendRequestInput true "Requester"
// @Success      200  {object}  FriendshipResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /friendships/requests/decline [put]
func (h *FriendshipHandler) DeclineRequest(c *gin.Context) {
	var input FriendRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	requester, err := h.users.FindByUsername(c.Request.Context(), input.Username)
	if err != nil {
		writeError(c, err)
		return
	}

	callerID := auth.CurrentUserID(c)
	friendship, err := h.relationships.DeclineRequest(c.Request.Context(), requester.ID, callerID, callerID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, FriendshipResponse{
		Message: "Friend request from " + input.Username + " declined",
		Status:  string(friendship.Status),
	})
}

// ListPending godoc
// @Summary      List incoming pending friend requests
// @Tags         friendships
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  service.PendingRequest
// @Router       /friendships/requests/pending [get]
func (h *FriendshipHandler) ListPending(c *gin.Context) {
	pending, err := h.relationships.ListPendingIncoming(c.Request.Context(), auth.CurrentUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, pending)
}

// ListFriends godoc
// @Summary      List friends and blocked users
// @Description  Returns accepted and blocked peers with nickname and public keys.
// @Tags         friendships
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  service.FriendStatus
// @Router       /friendships [get]
func (h *FriendshipHandler) ListFriends(c *gin.Context) {
	friends, err := h.relationships.ListFriends(c.Request.Context(), auth.CurrentUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, friends)
}

// Unfriend godoc
// @Summary      Remove a friend
// @Description  Deletes the friendship and purges the whole conversation history.
// @Tags         friendships
// @Produce      json
// @Security     BearerAuth
// @Param        username path string true "Friend's username"
// @Success      200  {object}  FriendshipResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /friendships/{username} [delete]
func (h *FriendshipHandler) Unfriend(c *gin.Context) {
	friend, err := h.users.FindByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		writeError(c, err)
		return
	}

	if _, err := h.relationships.Unfriend(c.Request.Context(), auth.CurrentUserID(c), friend.ID); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, FriendshipResponse{
		Message: "Unfriended " + friend.Username,
		Status:  "REMOVED",
	})
}

// Block godoc
// @Summary      Block a user
// @Tags         friendships
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body FriendRequestInput true "User to block"
// @Success      200  {object}  FriendshipResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /friendships/block [post]
func (h *FriendshipHandler) Block(c *gin.Context) {
	var input FriendRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	blocked, err := h.users.FindByUsername(c.Request.Context(), input.Username)
	if err != nil {
		writeError(c, err)
		return
	}

	friendship, err := h.relationships.BlockUser(c.Request.Context(), auth.CurrentUserID(c), blocked.ID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, FriendshipResponse{
		Message: "Blocked " + input.Username,
		Status:  string(friendship.Status),
	})
}

// Unblock godoc
// @Summary      Unblock a user
// @Description  Only the original blocker may unblock; friendship is restored.
// @Tags         friendships
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body FriendRequestInput true "User to unblock"
// @Success      200  {object}  FriendshipResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /friendships/unblock [post]
func (h *FriendshipHandler) Unblock(c *gin.Context) {
	var input FriendRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	blocked, err := h.users.FindByUsername(c.Request.Context(), input.Username)
	if err != nil {
		writeError(c, err)
		return
	}

	friendship, err := h.relationships.UnblockUser(c.Request.Context(), auth.CurrentUserID(c), blocked.ID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, FriendshipResponse{
		Message: "Unblocked " + input.Username,
		Status:  string(friendship.Status),
	})
}
