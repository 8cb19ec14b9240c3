package apperr

var (
	// Identity errors
	ErrUserNotFound  = NotFound("user not found")
	ErrUsernameTaken = AlreadyExists("username is already taken")

	// Relationship errors
	ErrSelfRequest          = InvalidArg("you cannot send a friend request to yourself")
	ErrRequestNotFound      = NotFound("friend request not found")
	ErrRelationNotFound     = NotFound("no relationship record found")
	ErrRequestNotPending    = InvalidState("this friend request is not pending")
	ErrNotRequestAddressee  = Forbidden("you are not the addressee of this request")
	ErrAlreadyFriends       = Conflict("you are already friends")
	ErrRequestAlreadyExists = Conflict("a friend request already exists between you two")
	ErrBlockedByOther       = Conflict("you are blocked by this user")
	ErrYouBlockedThem       = Conflict("you have blocked this user; unblock them first")
	ErrNotFriends           = InvalidState("you can only unfriend someone who is currently your friend")
	ErrNotBlocked           = InvalidState("this user is not blocked")
	ErrNotBlocker           = Forbidden("only the user who initiated the block can unblock")

	// Messaging errors
	ErrSelfMessage       = InvalidArg("sender and receiver cannot be the same person")
	ErrFileFieldsMissing = InvalidArg("file message must contain file_url and original_filename")
)

// NotAuthorized wraps a messaging-gate denial with the relationship reason so
// the client can render the right message.
func NotAuthorized(reason string) error {
	return New(CodePermissionDenied, reason)
}
