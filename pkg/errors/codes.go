package errors

type Code string

const (
	CodeUnknown         Code = "UNKNOWN"
	CodeBadRequest      Code = "BAD_REQUEST"
	CodeUnauthorized    Code = "UNAUTHORIZED"
	CodeOwnerNotFound   Code = "OWNER_NOT_FOUND"
	CodeMessageNotFound Code = "MESSAGE_NOT_FOUND"
	CodeDuplicateReply  Code = "DUPLICATE_REPLY"
	CodeInternal        Code = "INTERNAL"
)
