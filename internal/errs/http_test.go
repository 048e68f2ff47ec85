package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatus(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", NewNotFoundError("x"), http.StatusNotFound, "not_found"},
		{"exists", NewAlreadyExistsError("x"), http.StatusConflict, "already_exists"},
		{"validation", NewValidationError("x"), http.StatusBadRequest, "invalid_input"},
		{"wrapped validation", fmt.Errorf("ctx: %w", NewValidationError("x")), http.StatusBadRequest, "invalid_input"},
		{"unauthorized", NewUnauthorizedError("x"), http.StatusUnauthorized, "unauthorized"},
		{"malformed", NewMalformedReplyError("x"), http.StatusBadGateway, "malformed_reply"},
		{"transient", NewExternalServiceError("llm", "x", true, nil), http.StatusServiceUnavailable, "service_unavailable"},
		{"permanent", NewExternalServiceError("llm", "x", false, nil), http.StatusBadGateway, "service_unavailable"},
		{"database", NewDatabaseError("read", "x", errors.New("boom")), http.StatusInternalServerError, "internal_error"},
		{"plain", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, code := Status(tc.err)
			if status != tc.status || code != tc.code {
				t.Fatalf("got %d %q, want %d %q", status, code, tc.status, tc.code)
			}
		})
	}
}
