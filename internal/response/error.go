package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aprendu/aprendu-backend/internal/errs"
	"github.com/aprendu/aprendu-backend/pkg/logger"
)

type ErrorResponse struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func (h *responseHandler) WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	h.writeError(w, r, status, ErrorResponse{Code: code, Message: message})
}

func (h *responseHandler) writeError(w http.ResponseWriter, r *http.Request, status int, body ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		// Use context logger if encoding fails
		log := logger.FromContext(r.Context())
		log.Error("failed to encode error response", "error", err, "status", status, "code", body.Code)
	}
}

func (h *responseHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	status, code := errs.Status(err)

	var (
		validation *errs.ValidationError
		database   *errs.DatabaseError
		external   *errs.ExternalServiceError
		encryption *errs.EncryptionError
		syntax     *json.SyntaxError
		typeErr    *json.UnmarshalTypeError
	)
	switch {
	case errors.As(err, &validation):
		log.Warn("validation failed", "error", validation.Message, "fields", validation.Fields)
		h.writeError(w, r, status, ErrorResponse{Code: code, Message: validation.Message, Fields: validation.Fields})

	case errors.As(err, &syntax), errors.As(err, &typeErr):
		log.Warn("malformed request body", "error", err)
		h.WriteError(w, r, http.StatusBadRequest, "invalid_input", "request body is not valid JSON for this endpoint")

	case errors.As(err, &database):
		log.Error("database error",
			"operation", database.Operation,
			"error", database.Message,
			"cause", database.Err)
		h.WriteError(w, r, status, code, "An error occurred")

	case errors.As(err, &external):
		level := slog.LevelError
		if external.Transient {
			level = slog.LevelWarn
		}
		log.Log(r.Context(), level, "external service error",
			"service", external.Service,
			"transient", external.Transient,
			"error", external.Message,
			"cause", external.Err)
		h.WriteError(w, r, status, code, "Service temporarily unavailable")

	case errors.As(err, &encryption):
		log.Error("encryption error", "error", encryption.Message, "cause", encryption.Err)
		h.WriteError(w, r, status, code, "An error occurred")

	case status == http.StatusInternalServerError:
		log.Error("unexpected error",
			"error", err,
			"type", fmt.Sprintf("%T", err))
		h.WriteError(w, r, status, code, "An unexpected error occurred")

	default:
		log.Warn("request failed", "code", code, "error", err)
		h.WriteError(w, r, status, code, err.Error())
	}
}
