package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aprendu/aprendu-backend/internal/dto"
	"github.com/aprendu/aprendu-backend/internal/errs"
	"github.com/aprendu/aprendu-backend/internal/middleware"
	"github.com/aprendu/aprendu-backend/internal/models"
	"github.com/aprendu/aprendu-backend/internal/response"
	"github.com/aprendu/aprendu-backend/pkg/logger"
)

type aiService interface {
	Query(ctx context.Context, uid string, role models.Role, sessionID, message string) (dto.AIQueryResponse, error)
	QueryStream(ctx context.Context, uid string, role models.Role, sessionID, message string, onDelta func(string) error) (dto.AIQueryResponse, error)
}

type aiHandlers struct {
	ResponseHandler response.ResponseHandler
	Validator       structValidator
	AISvc           aiService
}

func NewAIHandlers(deps *Deps) *aiHandlers {
	return &aiHandlers{
		ResponseHandler: deps.ResponseHandler,
		Validator:       deps.Validator,
		AISvc:           deps.AISvc,
	}
}

func (h *aiHandlers) AIRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/query", h.Query)
	r.Post("/stream", h.Stream)
	return r
}

func (h *aiHandlers) decode(w http.ResponseWriter, r *http.Request) (dto.AIQueryRequest, error) {
	var body dto.AIQueryRequest
	if err := decodeJSON(w, r, &body); err != nil {
		return body, err
	}
	if err := h.Validator.Struct(body); err != nil {
		return body, err
	}
	return body, nil
}

func (h *aiHandlers) Query(w http.ResponseWriter, r *http.Request) {
	body, err := h.decode(w, r)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	ctx := r.Context()
	resp, err := h.AISvc.Query(ctx, middleware.UID(ctx), middleware.Role(ctx), body.SessionID, body.Message)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, resp)
}

type streamEvent struct {
	Text    string               `json:"text,omitempty"`
	Result  *dto.AIQueryResponse `json:"result,omitempty"`
	Code    string               `json:"code,omitempty"`
	Message string               `json:"message,omitempty"`
}

// Stream answers over server-sent events: "delta" events carry raw model text,
// then a single "result" or "error" event closes the stream.
func (h *aiHandlers) Stream(w http.ResponseWriter, r *http.Request) {
	body, err := h.decode(w, r)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.ResponseHandler.WriteError(w, r, http.StatusInternalServerError, "streaming_unsupported", "streaming is not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	send := func(event string, payload streamEvent) error {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, raw); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	resp, err := h.AISvc.QueryStream(ctx, middleware.UID(ctx), middleware.Role(ctx), body.SessionID, body.Message, func(delta string) error {
		return send("delta", streamEvent{Text: delta})
	})
	if err != nil {
		status, code := errs.Status(err)
		logger.FromContext(ctx).Error("ai stream failed", "error", err)
		msg := err.Error()
		if status == http.StatusInternalServerError {
			msg = "internal server error"
		}
		_ = send("error", streamEvent{Code: code, Message: msg})
		return
	}
	_ = send("result", streamEvent{Result: &resp})
}
