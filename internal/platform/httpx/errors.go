package httpx

import (
	"errors"
	"net/http"

	"github.com/lumina-dist/lumina/internal/shared"
)

// RespondError is the fallback mapping for errors a handler has no
// dedicated response for.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrInvalidCredentials):
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
