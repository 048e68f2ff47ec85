package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aprendu/aprendu-backend/internal/middleware"
	"github.com/aprendu/aprendu-backend/internal/models"
	"github.com/aprendu/aprendu-backend/internal/validation"
	"github.com/aprendu/aprendu-backend/pkg/helpers"
	"github.com/aprendu/aprendu-backend/pkg/logger"
)

type stubResponseHandler struct {
	writeSuccessCalled bool
	writeSuccessStatus int
	writeSuccessData   any

	handleErrorCalled bool
	handleError       error

	errorWriteCalled bool
	errorWriteStatus int
	errorWriteCode   string
}

func (s *stubResponseHandler) WriteSuccess(w http.ResponseWriter, r *http.Request, status int, data any) {
	s.writeSuccessCalled = true
	s.writeSuccessStatus = status
	s.writeSuccessData = data

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"success":true}`))
}

func (s *stubResponseHandler) WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	s.errorWriteCalled = true
	s.errorWriteStatus = status
	s.errorWriteCode = code
	w.WriteHeader(status)
}

func (s *stubResponseHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	s.handleErrorCalled = true
	s.handleError = err
	w.WriteHeader(http.StatusInternalServerError)
}

func newTestDeps(resp *stubResponseHandler) *Deps {
	return &Deps{
		Log:             slog.New(logger.NewTestHandler(slog.LevelInfo)),
		ResponseHandler: resp,
		Validator:       validation.New(),
	}
}

// withIdentity injects the authenticated uid and role into the request context.
func withIdentity(r *http.Request, uid string, role models.Role) *http.Request {
	ctx := context.WithValue(helpers.TestCtx(), middleware.UIDKey, uid)
	ctx = context.WithValue(ctx, middleware.RoleKey, role)
	return r.WithContext(ctx)
}

// withChiParams injects chi URL parameters given as key/value pairs.
func withChiParams(r *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}
