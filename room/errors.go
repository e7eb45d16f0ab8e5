package room

import "errors"

// Domain error taxonomy. All are terminal: the caller gets the failure
// synchronously and nothing is retried internally. Storage failures are
// wrapped driver errors, never one of these.
var (
	ErrValidation    = errors.New("validation failed")
	ErrPhase         = errors.New("operation not allowed in current phase")
	ErrNotAllReady   = errors.New("not all players are ready")
	ErrRoomFull      = errors.New("room is full")
	ErrDuplicateCode = errors.New("room code already in use")
	ErrNotFound      = errors.New("not found")
	ErrNotHost       = errors.New("only the host may perform this action")
)
