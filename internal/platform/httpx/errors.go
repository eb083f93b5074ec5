package httpx

import (
	"errors"
	"net/http"

	"github.com/dowesd/dowesd/internal/shared"
)

// RespondError maps domain errors to JSON responses. Only the JSON surface
// (the descriptions endpoint) uses this; the HTML surface redirects instead.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", "")
	case errors.Is(err, shared.ErrInvalidCredentials):
		Problem(w, http.StatusUnauthorized, "Unauthorized", "")
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
