package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"s3bridge/internal/domain"
)

// httpStatusFromDomainError maps domain errors to HTTP status codes.
func httpStatusFromDomainError(err error) int {
	var missingAuth *domain.MissingAuthArtifactsError
	var missingService *domain.MissingServiceParameterError
	var unknownService *domain.UnknownServiceError
	var notAuthorized *domain.NotAuthorizedError
	var denied *domain.DeniedError

	switch {
	case errors.As(err, &missingAuth):
		return http.StatusUnauthorized
	case errors.As(err, &missingService), errors.As(err, &unknownService):
		return http.StatusBadRequest
	case errors.As(err, &notAuthorized), errors.As(err, &denied):
		return http.StatusForbidden
	default:
		// Exchange failures and anything unexpected. Error detail is
		// surfaced, stack traces and secret material never are.
		return http.StatusInternalServerError
	}
}

// writeError renders a structured JSON error body for a domain error.
func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatusFromDomainError(err))
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
