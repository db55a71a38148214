package service

import "errors"

var (
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrNoSession          = errors.New("no session")
	ErrTaskNotFound       = errors.New("task not found")
	ErrOAuthState         = errors.New("oauth state mismatch")
)

// ValidationError carries a message that can be shown to the user as is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
