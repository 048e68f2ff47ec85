package handlers

import (
	"log/slog"

	"github.com/aprendu/aprendu-backend/internal/response"
)

type structValidator interface {
	Struct(s any) error
}

type Deps struct {
	Log             *slog.Logger
	ResponseHandler response.ResponseHandler
	Validator       structValidator
	DashboardSvc    dashboardService
	AISvc           aiService
}
