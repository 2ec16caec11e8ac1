package domain

import "errors"

// Error kinds. Every error the core returns to a caller unwraps to one of
// these; anything else is treated as internal.
var (
	ErrValidation     = errors.New("validation failed")
	ErrConflict       = errors.New("conflict")
	ErrAuthentication = errors.New("authentication failed")
	ErrNotFound       = errors.New("not found")
)

// Error carries a user-facing message together with its kind.
type Error struct {
	kind    error
	message string
}

func (e *Error) Error() string { return e.message }

func (e *Error) Unwrap() error { return e.kind }

func Validation(msg string) error     { return &Error{kind: ErrValidation, message: msg} }
func Conflict(msg string) error       { return &Error{kind: ErrConflict, message: msg} }
func Authentication(msg string) error { return &Error{kind: ErrAuthentication, message: msg} }
func NotFound(msg string) error       { return &Error{kind: ErrNotFound, message: msg} }

// Credential and session errors
var (
	ErrInvalidCredentials   = Authentication("Email or password incorrect")
	ErrTokenMissing         = Authentication("Token missing")
	ErrPleaseAuthenticate   = Authentication("Please authenticate")
	ErrInvalidRefreshToken  = Authentication("Invalid refresh token")
	ErrRefreshTokenNotFound = NotFound("Refresh Token not found")
)

// Resource errors
var (
	ErrUserNotFound   = NotFound("User not found")
	ErrTaskNotFound   = NotFound("Task not found")
	ErrAvatarNotFound = NotFound("Avatar not found")
	ErrEmailInUse     = Conflict("Email already in use")
)

// Message returns the user-facing message of err if it is a domain error.
func Message(err error) (string, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.message, true
	}
	return "", false
}
