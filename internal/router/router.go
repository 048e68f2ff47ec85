package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/aprendu/aprendu-backend/internal/handlers"
	"github.com/aprendu/aprendu-backend/internal/middleware"
)

// NewRouter wires every route. auth guards everything except the health check.
func NewRouter(deps *handlers.Deps, auth func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewLoggerMiddleware(deps.Log).LoggerMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	dh := handlers.NewDashboardHandlers(deps)
	aih := handlers.NewAIHandlers(deps)

	r.Group(func(r chi.Router) {
		r.Use(auth)

		r.Route("/sessions/{sessionId}", func(r chi.Router) {
			r.Mount("/dashboard", dh.DashboardRoutes())
			r.Post("/saved-dashboards/{dashboardId}/load", dh.LoadSaved)
		})
		r.Mount("/saved-dashboards", dh.SavedRoutes())
		r.Mount("/ai", aih.AIRoutes())
		r.Get("/widget-types", dh.GetWidgetTypes)
	})
	return r
}
