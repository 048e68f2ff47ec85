// Package registry holds the dashboard currently shown to a user session: at
// most one active dashboard, the dashboards it replaced, and the global
// filters that apply to the next one.
//
// A Registry is plain in-memory UI state. Every operation is total: degenerate
// input (no active dashboard, unknown widget id, an empty or unusable patch
// list) leaves the registry unchanged instead of failing. A Registry is not
// safe for concurrent use; callers serialise writes.
package registry

import "github.com/aprendu/aprendu-backend/internal/models"

// Registry is the dashboard state of one session.
type Registry struct {
	// active is replaced, never modified in place, so values handed out or
	// pushed to history stay frozen.
	active       *models.Dashboard
	history      []models.Dashboard
	filters      models.Filters
	historyLimit int
}

// New returns an empty registry. historyLimit > 0 caps how many replaced
// dashboards are kept (oldest dropped first); 0 keeps all of them.
func New(historyLimit int) *Registry {
	return &Registry{
		filters:      models.Filters{},
		historyLimit: historyLimit,
	}
}

// Reset drops the active dashboard, history and filters.
func (r *Registry) Reset() {
	r.active = nil
	r.history = nil
	r.filters = models.Filters{}
}

// ActiveDashboard returns a copy of the active dashboard, if there is one.
func (r *Registry) ActiveDashboard() (models.Dashboard, bool) {
	if r.active == nil {
		return models.Dashboard{}, false
	}
	return r.active.Clone(), true
}

// History returns copies of the replaced dashboards, oldest first.
func (r *Registry) History() []models.Dashboard {
	out := make([]models.Dashboard, len(r.history))
	for i, d := range r.history {
		out[i] = d.Clone()
	}
	return out
}

// HistoryLen reports how many replaced dashboards are kept.
func (r *Registry) HistoryLen() int {
	return len(r.history)
}

// Filters returns a copy of the registry-level filters.
func (r *Registry) Filters() models.Filters {
	return r.filters.Clone()
}

// CreateDashboard makes cfg the active dashboard, pushing the previous one (if
// any) onto history. The registry filters are left untouched.
func (r *Registry) CreateDashboard(cfg models.Dashboard) {
	if r.active != nil {
		r.history = append(r.history, r.active.Clone())
		if r.historyLimit > 0 && len(r.history) > r.historyLimit {
			r.history = append([]models.Dashboard(nil), r.history[len(r.history)-r.historyLimit:]...)
		}
	}
	next := cfg.Clone()
	r.active = &next
}

// ApplyPatch applies ops in order to the active dashboard and reports whether
// the active dashboard was replaced. The batch is all-or-nothing: if the
// patched tree no longer describes a dashboard, nothing changes.
func (r *Registry) ApplyPatch(ops []models.PatchOperation) bool {
	if r.active == nil || len(ops) == 0 {
		return false
	}
	next, err := Patch(*r.active, ops)
	if err != nil {
		return false
	}
	r.active = &next
	return true
}

// UpdateWidget shallow-merges partial into every widget whose id matches. An
// unknown id, or a merge that no longer describes a widget, is a no-op.
func (r *Registry) UpdateWidget(widgetID string, partial map[string]any) {
	if r.active == nil || len(partial) == 0 {
		return
	}
	next, err := MergeWidget(*r.active, widgetID, partial)
	if err != nil {
		return
	}
	r.active = &next
}

// AddWidget appends w to the active dashboard.
func (r *Registry) AddWidget(w models.Widget) {
	if r.active == nil {
		return
	}
	widgets := make([]models.Widget, 0, len(r.active.Widgets)+1)
	widgets = append(widgets, r.active.Widgets...)
	widgets = append(widgets, w.Clone())
	next := *r.active
	next.Widgets = widgets
	r.active = &next
}

// RemoveWidget drops every widget with the given id from the active dashboard.
func (r *Registry) RemoveWidget(widgetID string) {
	if r.active == nil || r.active.WidgetIndex(widgetID) < 0 {
		return
	}
	widgets := make([]models.Widget, 0, len(r.active.Widgets))
	for _, w := range r.active.Widgets {
		if w.ID != widgetID {
			widgets = append(widgets, w)
		}
	}
	next := *r.active
	next.Widgets = widgets
	r.active = &next
}

// ClearDashboard dismisses the active dashboard. History and filters stay.
func (r *Registry) ClearDashboard() {
	r.active = nil
}

// UpdateFilters merges partial into the registry filters and, when a
// dashboard is active, into that dashboard's own filters as well. The two
// maps are only reconciled here; they may drift apart between calls.
func (r *Registry) UpdateFilters(partial models.Filters) {
	r.filters = r.filters.Merge(partial)
	if r.active == nil {
		return
	}
	next := *r.active
	next.Filters = next.Filters.Merge(partial)
	r.active = &next
}

// ToggleViewMode flips the active dashboard between executive and
// operational. Any other value becomes executive.
func (r *Registry) ToggleViewMode() {
	if r.active == nil {
		return
	}
	next := *r.active
	if next.ViewMode == models.ViewExecutive {
		next.ViewMode = models.ViewOperational
	} else {
		next.ViewMode = models.ViewExecutive
	}
	r.active = &next
}

// CalculateAxesSimilarity compares candidate against the active dashboard's
// axes. It is 0 when nothing is active.
func (r *Registry) CalculateAxesSimilarity(candidate models.Axes) float64 {
	if r.active == nil {
		return 0
	}
	return AxesSimilarity(r.active.Axes, candidate)
}
