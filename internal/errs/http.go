package errs

import (
	"errors"
	"net/http"
)

// Status maps an error to the HTTP status and public error code sent to
// clients. Unknown errors are internal.
func Status(err error) (int, string) {
	var (
		notFound   *NotFoundError
		exists     *AlreadyExistsError
		validation *ValidationError
		unauth     *UnauthorizedError
		malformed  *MalformedReplyError
		external   *ExternalServiceError
	)
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound, "not_found"
	case errors.As(err, &exists):
		return http.StatusConflict, "already_exists"
	case errors.As(err, &validation):
		return http.StatusBadRequest, "invalid_input"
	case errors.As(err, &unauth):
		return http.StatusUnauthorized, "unauthorized"
	case errors.As(err, &malformed):
		return http.StatusBadGateway, "malformed_reply"
	case errors.As(err, &external):
		if external.Transient {
			return http.StatusServiceUnavailable, "service_unavailable"
		}
		return http.StatusBadGateway, "service_unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
