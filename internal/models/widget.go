package models

// WidgetType is the closed set of visual units a dashboard can render.
type WidgetType string

const (
	WidgetRankedTable   WidgetType = "RankedTable"
	WidgetKPIGrid       WidgetType = "KPIGrid"
	WidgetHeatmapRegion WidgetType = "HeatmapRegion"
	WidgetTimeSeries    WidgetType = "TimeSeries"
	WidgetStatusSLA     WidgetType = "StatusSLA"
	WidgetDistribution  WidgetType = "Distribution"
)

var WidgetTypes = []WidgetType{
	WidgetRankedTable,
	WidgetKPIGrid,
	WidgetHeatmapRegion,
	WidgetTimeSeries,
	WidgetStatusSLA,
	WidgetDistribution,
}

// ColumnType tags how a tabular cell is rendered.
type ColumnType string

const (
	ColumnText     ColumnType = "text"
	ColumnNumber   ColumnType = "number"
	ColumnBadge    ColumnType = "badge"
	ColumnProgress ColumnType = "progress"
	ColumnTrend    ColumnType = "trend"
)

// WidgetViewMode is a per-widget rendering override, independent of the
// dashboard-level ViewMode.
type WidgetViewMode string

const (
	WidgetViewTable WidgetViewMode = "table"
	WidgetViewChart WidgetViewMode = "chart"
	WidgetViewCards WidgetViewMode = "cards"
)

// DataShape names which WidgetData field a widget type populates by convention.
type DataShape string

const (
	ShapeRows   DataShape = "rows"
	ShapeValue  DataShape = "value"
	ShapeSeries DataShape = "series"
)

// Widget is one chart/table/KPI unit inside a dashboard. IDs must be unique
// within the owning dashboard for update-by-id to be unambiguous.
type Widget struct {
	ID       string         `firestore:"id" json:"id" validate:"required"`
	Type     WidgetType     `firestore:"type" json:"type" validate:"required,widget_type"`
	Title    string         `firestore:"title" json:"title"`
	Subtitle string         `firestore:"subtitle,omitempty" json:"subtitle,omitempty"`
	Columns  []Column       `firestore:"columns,omitempty" json:"columns,omitempty" validate:"dive"`
	Data     WidgetData     `firestore:"data" json:"data"`
	ViewMode WidgetViewMode `firestore:"viewMode,omitempty" json:"viewMode,omitempty" validate:"omitempty,oneof=table chart cards"`
	Limit    int            `firestore:"limit,omitempty" json:"limit,omitempty" validate:"gte=0"`
}

// Column describes one column of a tabular widget.
type Column struct {
	Key    string            `firestore:"key" json:"key" validate:"required"`
	Label  string            `firestore:"label" json:"label"`
	Type   ColumnType        `firestore:"type" json:"type" validate:"required,oneof=text number badge progress trend"`
	Badges map[string]string `firestore:"badges,omitempty" json:"badges,omitempty"`
}

// WidgetData is the variant payload of a widget. Exactly one field is
// populated per widget type by convention; see Widget.Shape.
type WidgetData struct {
	Rows   []map[string]any `firestore:"rows,omitempty" json:"rows,omitempty"`
	Value  any              `firestore:"value,omitempty" json:"value,omitempty"`
	Series []SeriesPoint    `firestore:"series,omitempty" json:"series,omitempty"`
}

// SeriesPoint is one entry of a time-indexed series.
type SeriesPoint struct {
	Period string  `firestore:"period" json:"period"`
	Value  float64 `firestore:"value" json:"value"`
	Label  string  `firestore:"label,omitempty" json:"label,omitempty"`
}

// Shape returns the payload shape conventionally used by the widget's type.
func (w Widget) Shape() DataShape {
	switch w.Type {
	case WidgetTimeSeries:
		return ShapeSeries
	case WidgetKPIGrid:
		if len(w.Data.Rows) > 0 {
			return ShapeRows
		}
		return ShapeValue
	default:
		return ShapeRows
	}
}

// Populated reports which payload fields actually hold data.
func (d WidgetData) Populated() []DataShape {
	var out []DataShape
	if len(d.Rows) > 0 {
		out = append(out, ShapeRows)
	}
	if d.Value != nil {
		out = append(out, ShapeValue)
	}
	if len(d.Series) > 0 {
		out = append(out, ShapeSeries)
	}
	return out
}

func (w Widget) Clone() Widget {
	out := w
	if w.Columns != nil {
		out.Columns = make([]Column, len(w.Columns))
		for i, c := range w.Columns {
			out.Columns[i] = c.Clone()
		}
	}
	out.Data = w.Data.Clone()
	return out
}

func (c Column) Clone() Column {
	out := c
	out.Badges = cloneStringMap(c.Badges)
	return out
}

func (d WidgetData) Clone() WidgetData {
	out := WidgetData{Value: CloneValue(d.Value)}
	if d.Rows != nil {
		out.Rows = make([]map[string]any, len(d.Rows))
		for i, row := range d.Rows {
			out.Rows[i], _ = CloneValue(row).(map[string]any)
		}
	}
	if d.Series != nil {
		out.Series = append([]SeriesPoint(nil), d.Series...)
	}
	return out
}

// IsWidgetType reports whether t is one of the known widget types.
func IsWidgetType(t WidgetType) bool {
	for _, known := range WidgetTypes {
		if t == known {
			return true
		}
	}
	return false
}
