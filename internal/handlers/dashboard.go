package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aprendu/aprendu-backend/internal/dto"
	"github.com/aprendu/aprendu-backend/internal/middleware"
	"github.com/aprendu/aprendu-backend/internal/models"
	"github.com/aprendu/aprendu-backend/internal/response"
)

type dashboardService interface {
	GetState(ctx context.Context, uid, sessionID string) (dto.DashboardState, error)
	CreateDashboard(ctx context.Context, uid, sessionID string, d models.Dashboard) (dto.DashboardState, error)
	ApplyPatch(ctx context.Context, uid, sessionID string, ops []models.PatchOperation) (dto.DashboardState, error)
	UpdateWidget(ctx context.Context, uid, sessionID, widgetID string, partial map[string]any) (dto.DashboardState, error)
	AddWidget(ctx context.Context, uid, sessionID string, w models.Widget) (dto.DashboardState, error)
	RemoveWidget(ctx context.Context, uid, sessionID, widgetID string) (dto.DashboardState, error)
	ClearDashboard(ctx context.Context, uid, sessionID string) (dto.DashboardState, error)
	UpdateFilters(ctx context.Context, uid, sessionID string, partial models.Filters) (dto.DashboardState, error)
	ToggleViewMode(ctx context.Context, uid, sessionID string) (dto.DashboardState, error)
	AxesSimilarity(ctx context.Context, uid, sessionID string, candidate models.Axes) (float64, error)
	History(ctx context.Context, uid, sessionID string) ([]models.Dashboard, error)
	SaveDashboard(ctx context.Context, uid, sessionID, title string) (*models.SavedDashboard, error)
	ListSaved(ctx context.Context, uid string) ([]*models.SavedDashboard, error)
	LoadSaved(ctx context.Context, uid, sessionID, savedID string) (dto.DashboardState, error)
	DeleteSaved(ctx context.Context, uid, savedID string) error
}

type dashboardHandlers struct {
	ResponseHandler response.ResponseHandler
	Validator       structValidator
	DashboardSvc    dashboardService
}

func NewDashboardHandlers(deps *Deps) *dashboardHandlers {
	return &dashboardHandlers{
		ResponseHandler: deps.ResponseHandler,
		Validator:       deps.Validator,
		DashboardSvc:    deps.DashboardSvc,
	}
}

// DashboardRoutes is mounted under /sessions/{sessionId}/dashboard.
func (h *dashboardHandlers) DashboardRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.GetState)
	r.Post("/", h.CreateDashboard)
	r.Delete("/", h.ClearDashboard)
	r.Post("/patch", h.ApplyPatch)
	r.Post("/widgets", h.AddWidget)
	r.Patch("/widgets/{widgetId}", h.UpdateWidget)
	r.Delete("/widgets/{widgetId}", h.RemoveWidget)
	r.Put("/filters", h.UpdateFilters)
	r.Post("/view-mode", h.ToggleViewMode)
	r.Post("/similarity", h.AxesSimilarity)
	r.Get("/history", h.History)
	r.Post("/save", h.SaveDashboard)
	return r
}

// SavedRoutes is mounted under /saved-dashboards.
func (h *dashboardHandlers) SavedRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListSaved)
	r.Delete("/{dashboardId}", h.DeleteSaved)
	return r
}

func (h *dashboardHandlers) GetState(w http.ResponseWriter, r *http.Request) {
	state, err := h.DashboardSvc.GetState(r.Context(), middleware.UID(r.Context()), chi.URLParam(r, "sessionId"))
	h.writeState(w, r, state, err)
}

func (h *dashboardHandlers) CreateDashboard(w http.ResponseWriter, r *http.Request) {
	var d models.Dashboard
	if err := decodeJSON(w, r, &d); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	state, err := h.DashboardSvc.CreateDashboard(r.Context(), middleware.UID(r.Context()), chi.URLParam(r, "sessionId"), d)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusCreated, state)
}

func (h *dashboardHandlers) ClearDashboard(w http.ResponseWriter, r *http.Request) {
	state, err := h.DashboardSvc.ClearDashboard(r.Context(), middleware.UID(r.Context()), chi.URLParam(r, "sessionId"))
	h.writeState(w, r, state, err)
}

func (h *dashboardHandlers) ApplyPatch(w http.ResponseWriter, r *http.Request) {
	var req dto.PatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	state, err := h.DashboardSvc.ApplyPatch(r.Context(), middleware.UID(r.Context()), chi.URLParam(r, "sessionId"), req.Patches)
	h.writeState(w, r, state, err)
}

func (h *dashboardHandlers) AddWidget(w http.ResponseWriter, r *http.Request) {
	var widget models.Widget
	if err := decodeJSON(w, r, &widget); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	state, err := h.DashboardSvc.AddWidget(r.Context(), middleware.UID(r.Context()), chi.URLParam(r, "sessionId"), widget)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusCreated, state)
}

func (h *dashboardHandlers) UpdateWidget(w http.ResponseWriter, r *http.Request) {
	var partial map[string]any
	if err := decodeJSON(w, r, &partial); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	uid := middleware.UID(r.Context())
	state, err := h.DashboardSvc.UpdateWidget(r.Context(), uid, chi.URLParam(r, "sessionId"), chi.URLParam(r, "widgetId"), partial)
	h.writeState(w, r, state, err)
}

func (h *dashboardHandlers) RemoveWidget(w http.ResponseWriter, r *http.Request) {
	uid := middleware.UID(r.Context())
	state, err := h.DashboardSvc.RemoveWidget(r.Context(), uid, chi.URLParam(r, "sessionId"), chi.URLParam(r, "widgetId"))
	h.writeState(w, r, state, err)
}

func (h *dashboardHandlers) UpdateFilters(w http.ResponseWriter, r *http.Request) {
	var req dto.FiltersRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	state, err := h.DashboardSvc.UpdateFilters(r.Context(), middleware.UID(r.Context()), chi.URLParam(r, "sessionId"), req.Filters)
	h.writeState(w, r, state, err)
}

func (h *dashboardHandlers) ToggleViewMode(w http.ResponseWriter, r *http.Request) {
	state, err := h.DashboardSvc.ToggleViewMode(r.Context(), middleware.UID(r.Context()), chi.URLParam(r, "sessionId"))
	h.writeState(w, r, state, err)
}

func (h *dashboardHandlers) AxesSimilarity(w http.ResponseWriter, r *http.Request) {
	var req dto.SimilarityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	score, err := h.DashboardSvc.AxesSimilarity(r.Context(), middleware.UID(r.Context()), chi.URLParam(r, "sessionId"), req.Axes)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, dto.SimilarityResponse{Similarity: score})
}

func (h *dashboardHandlers) History(w http.ResponseWriter, r *http.Request) {
	dashboards, err := h.DashboardSvc.History(r.Context(), middleware.UID(r.Context()), chi.URLParam(r, "sessionId"))
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, dto.HistoryResponse{Dashboards: dashboards})
}

func (h *dashboardHandlers) SaveDashboard(w http.ResponseWriter, r *http.Request) {
	var req dto.SaveDashboardRequest
	// the body is optional
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	saved, err := h.DashboardSvc.SaveDashboard(r.Context(), middleware.UID(r.Context()), chi.URLParam(r, "sessionId"), req.Title)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusCreated, saved)
}

func (h *dashboardHandlers) ListSaved(w http.ResponseWriter, r *http.Request) {
	saved, err := h.DashboardSvc.ListSaved(r.Context(), middleware.UID(r.Context()))
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	if saved == nil {
		saved = []*models.SavedDashboard{}
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, saved)
}

func (h *dashboardHandlers) LoadSaved(w http.ResponseWriter, r *http.Request) {
	uid := middleware.UID(r.Context())
	state, err := h.DashboardSvc.LoadSaved(r.Context(), uid, chi.URLParam(r, "sessionId"), chi.URLParam(r, "dashboardId"))
	h.writeState(w, r, state, err)
}

func (h *dashboardHandlers) DeleteSaved(w http.ResponseWriter, r *http.Request) {
	if err := h.DashboardSvc.DeleteSaved(r.Context(), middleware.UID(r.Context()), chi.URLParam(r, "dashboardId")); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, nil)
}

// GetWidgetTypes returns the catalog of widget types and the data shape each one renders.
func (h *dashboardHandlers) GetWidgetTypes(w http.ResponseWriter, r *http.Request) {
	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, dto.WidgetCatalog())
}

func (h *dashboardHandlers) writeState(w http.ResponseWriter, r *http.Request, state dto.DashboardState, err error) {
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, state)
}
