package chat

import "errors"

var (
	ErrNotConnected   = errors.New("chat session is not connected")
	ErrNoUserSelected = errors.New("no user selected")
	ErrReasonRequired = errors.New("a reason is required")
	ErrBanRejected    = errors.New("ban rejected by server")
	ErrStaleRoom      = errors.New("room is no longer active")

	// errSessionClosed marks a reply that arrived after the session it was
	// issued for was torn down.
	errSessionClosed = errors.New("chat session closed")
)
