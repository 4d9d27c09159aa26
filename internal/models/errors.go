package models

import "errors"

// Sentinel errors for the messaging engine. Handlers map these to HTTP
// status codes; services wrap them with context via fmt.Errorf("%w").
var (
	ErrUnauthorized   = errors.New("not authorized for this conversation")
	ErrNotOwner       = errors.New("only the sender can modify a message")
	ErrAlreadyDeleted = errors.New("message is already deleted")
	ErrNotFound       = errors.New("resource not found")
	ErrRateLimited    = errors.New("too many attempts, try again later")
	ErrMalformed      = errors.New("malformed record")
	ErrTransient      = errors.New("store temporarily unavailable")
)
