package errors

var (
	// Domain errors — raised inside the store transaction so that a
	// failed operation never leaves partial state behind.
	ErrOwnerNotFound   = New(CodeOwnerNotFound, "owner does not exist")
	ErrMessageNotFound = New(CodeMessageNotFound, "message does not exist")
	ErrDuplicateReply  = New(CodeDuplicateReply, "message already has a reply")

	ErrMissingOwnerID     = BadRequest("owner id is required")
	ErrMissingContent     = BadRequest("message content is required")
	ErrMissingMessageID   = BadRequest("message id is required")
	ErrMissingReply       = BadRequest("reply content is required")
	ErrCredentialMismatch = Unauthorized("credential does not match owner")
)
