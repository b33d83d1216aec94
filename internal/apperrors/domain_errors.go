package apperrors

var (
	ErrSelfConnection       = InvalidArg("cannot send a connection request to yourself")
	ErrAlreadyConnected     = AlreadyExists("users are already connected")
	ErrRequestPending       = AlreadyExists("a connection request is already pending")
	ErrConnectionBlocked    = Forbidden("connection is blocked")
	ErrNoPendingRequest     = NotFound("no pending connection request from this user")
	ErrSelfConversation     = InvalidArg("cannot open a conversation with yourself")
	ErrConversationNotFound = NotFound("conversation not found")
	ErrEmptyContent         = InvalidArg("message content cannot be empty")
	ErrNotPrincipal         = Forbidden("principal does not match the acting user")
)
