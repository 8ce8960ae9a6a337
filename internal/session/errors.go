package session

import "errors"

var (
	ErrInvalidPhase     = errors.New("session: operation not valid in current phase")
	ErrNotAuthenticated = errors.New("session: identity required")
	ErrSessionNotFound  = errors.New("session: not found")
)
