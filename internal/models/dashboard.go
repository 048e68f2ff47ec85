package models

import "time"

// Intent classifies why a dashboard was generated.
type Intent string

const (
	IntentPerformanceComparison Intent = "performance_comparison"
	IntentComplianceDelay       Intent = "compliance_delay"
	IntentTrendMonitoring       Intent = "trend_monitoring"
	IntentEquityGap             Intent = "equity_gap"
	IntentInterventionTargeting Intent = "intervention_targeting"
	IntentGeneralQuery          Intent = "general_query"
)

var Intents = []Intent{
	IntentPerformanceComparison,
	IntentComplianceDelay,
	IntentTrendMonitoring,
	IntentEquityGap,
	IntentInterventionTargeting,
	IntentGeneralQuery,
}

// ViewMode toggles the level of rendering detail. It never affects stored data.
type ViewMode string

const (
	ViewExecutive   ViewMode = "executive"
	ViewOperational ViewMode = "operational"
)

// Filters maps a filter dimension (region, period, discipline, ...) to its
// value. Any subset of keys may be present.
type Filters map[string]string

// Axes are the semantic dimensions used to compare the subject matter of two
// dashboards. They are never rendered. An empty string means the axis is absent.
type Axes struct {
	Entity string `firestore:"entity,omitempty" json:"entity,omitempty"`
	Time   string `firestore:"time,omitempty" json:"time,omitempty"`
	Metric string `firestore:"metric,omitempty" json:"metric,omitempty"`
	Region string `firestore:"region,omitempty" json:"region,omitempty"`
}

// Values returns the four recognised axes in a fixed order.
func (a Axes) Values() [4]string {
	return [4]string{a.Entity, a.Time, a.Metric, a.Region}
}

// Dashboard is the full description of one AI-generated analytical view.
type Dashboard struct {
	ID        string    `firestore:"id" json:"id" validate:"required"`
	Title     string    `firestore:"title" json:"title"`
	Subtitle  string    `firestore:"subtitle,omitempty" json:"subtitle,omitempty"`
	CreatedAt time.Time `firestore:"createdAt" json:"createdAt"`
	Intent    Intent    `firestore:"intent" json:"intent" validate:"required,intent"`
	ViewMode  ViewMode  `firestore:"viewMode" json:"viewMode" validate:"required,oneof=executive operational"`
	Filters   Filters   `firestore:"filters,omitempty" json:"filters,omitempty"`
	Widgets   []Widget  `firestore:"widgets" json:"widgets" validate:"unique=ID,dive"`
	Axes      Axes      `firestore:"axes" json:"axes"`
}

// Clone returns a deep copy that shares no mutable state with d.
func (d Dashboard) Clone() Dashboard {
	out := d
	out.Filters = d.Filters.Clone()
	if d.Widgets != nil {
		out.Widgets = make([]Widget, len(d.Widgets))
		for i, w := range d.Widgets {
			out.Widgets[i] = w.Clone()
		}
	}
	return out
}

// WidgetIndex returns the position of the widget with the given id, or -1.
func (d Dashboard) WidgetIndex(id string) int {
	for i, w := range d.Widgets {
		if w.ID == id {
			return i
		}
	}
	return -1
}

func (f Filters) Clone() Filters {
	return Filters(cloneStringMap(f))
}

// Merge returns a new Filters with partial applied over f.
func (f Filters) Merge(partial Filters) Filters {
	out := make(Filters, len(f)+len(partial))
	for k, v := range f {
		out[k] = v
	}
	for k, v := range partial {
		out[k] = v
	}
	return out
}

// IsIntent reports whether i is one of the known intents.
func IsIntent(i Intent) bool {
	for _, known := range Intents {
		if i == known {
			return true
		}
	}
	return false
}
