package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aprendu/aprendu-backend/internal/errs"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads a JSON request body into v. Syntax and type errors are
// returned as is for the response handler to map.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(v)

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return errs.NewValidationError("request body too large")
	}
	return err
}
