package dto

import "github.com/aprendu/aprendu-backend/internal/models"

// DashboardState is the snapshot returned by every session dashboard operation.
type DashboardState struct {
	Active      *models.Dashboard `json:"active"`
	Filters     models.Filters    `json:"filters"`
	HistorySize int               `json:"historySize"`
}

// --- Request types ---

type PatchRequest struct {
	Patches []models.PatchOperation `json:"patches" validate:"required,dive"`
}

type FiltersRequest struct {
	Filters models.Filters `json:"filters" validate:"required"`
}

type SimilarityRequest struct {
	Axes models.Axes `json:"axes"`
}

type SaveDashboardRequest struct {
	Title string `json:"title" validate:"omitempty,max=200"`
}

// --- Response types ---

type SimilarityResponse struct {
	Similarity float64 `json:"similarity"`
}

type HistoryResponse struct {
	Dashboards []models.Dashboard `json:"dashboards"`
}

// WidgetTypeInfo describes one entry of the widget catalog.
type WidgetTypeInfo struct {
	Type        models.WidgetType `json:"type"`
	Shape       models.DataShape  `json:"shape"`
	Description string            `json:"description"`
}

// WidgetCatalog lists every widget type the renderer understands.
func WidgetCatalog() []WidgetTypeInfo {
	descriptions := map[models.WidgetType]string{
		models.WidgetRankedTable:   "ordered table of entities with typed columns",
		models.WidgetKPIGrid:       "grid of headline indicators",
		models.WidgetHeatmapRegion: "indicator intensity per region",
		models.WidgetTimeSeries:    "indicator evolution over periods",
		models.WidgetStatusSLA:     "deadline and compliance status per entity",
		models.WidgetDistribution:  "distribution of an indicator across buckets",
	}

	out := make([]WidgetTypeInfo, 0, len(models.WidgetTypes))
	for _, t := range models.WidgetTypes {
		out = append(out, WidgetTypeInfo{
			Type:        t,
			Shape:       models.Widget{Type: t}.Shape(),
			Description: descriptions[t],
		})
	}
	return out
}
