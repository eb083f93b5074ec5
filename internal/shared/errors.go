package shared

import "errors"

var (
	// ErrNotFound indicates resource not found. Owner-scoped lookups return
	// it for missing and foreign rows alike.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates sign-in failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)

// UserSafeMessage converts an error into a string safe to show to users.
// Internal failures collapse into a generic message.
func UserSafeMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "The requested record could not be found."
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid email/password combination"
	default:
		return "Something went wrong. Please try again."
	}
}
