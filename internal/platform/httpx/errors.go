package httpx

import (
	"errors"
	"net/http"

	"github.com/leajer/leajer/internal/shared"
)

// RespondError maps the dashboard error taxonomy to HTTP responses using
// RFC7807. Authentication failures are 401 so the view layer can prompt
// for re-login; repository failures are 502 because the gateway itself is
// healthy, its collaborator is not.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrSessionExpired):
		Problem(w, http.StatusUnauthorized, "Session Expired", "please sign in again")
	case shared.IsAuthentication(err):
		Problem(w, http.StatusUnauthorized, "Authentication Failed", err.Error())
	case errors.Is(err, shared.ErrPermissionDenied):
		Problem(w, http.StatusForbidden, "Permission Denied", err.Error())
	case errors.Is(err, shared.ErrInvalidStatus), errors.Is(err, shared.ErrInvalidPage):
		Problem(w, http.StatusBadRequest, "Invalid Input", err.Error())
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrMutationInFlight):
		Problem(w, http.StatusConflict, "Save In Progress", err.Error())
	case errors.Is(err, shared.ErrPersistence):
		Problem(w, http.StatusBadGateway, "Repository Error", "the request store could not complete the call")
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
