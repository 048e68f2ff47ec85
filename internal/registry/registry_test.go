package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aprendu/aprendu-backend/internal/models"
)

var created = time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

func kpiDashboard(id string) models.Dashboard {
	return models.Dashboard{
		ID:        id,
		Title:     "Escolas por proficiência",
		Subtitle:  "Rede estadual",
		CreatedAt: created,
		Intent:    models.IntentPerformanceComparison,
		ViewMode:  models.ViewExecutive,
		Filters:   models.Filters{"period": "2025-1"},
		Widgets: []models.Widget{
			{ID: "w1", Type: models.WidgetKPIGrid, Title: "Matrículas", Data: models.WidgetData{Value: 450.0}},
			{
				ID:    "w2",
				Type:  models.WidgetRankedTable,
				Title: "Ranking",
				Columns: []models.Column{
					{Key: "school", Label: "Escola", Type: models.ColumnText},
					{Key: "status", Label: "Status", Type: models.ColumnBadge, Badges: map[string]string{"ok": "green"}},
				},
				Data: models.WidgetData{Rows: []map[string]any{{"school": "EE Norte", "status": "ok"}}},
			},
		},
		Axes: models.Axes{Entity: "school"},
	}
}

func TestCreateThenRead(t *testing.T) {
	r := New(0)
	d := kpiDashboard("d1")
	r.CreateDashboard(d)

	active, ok := r.ActiveDashboard()
	require.True(t, ok)
	assert.Equal(t, d, active)
	assert.Equal(t, 0, r.HistoryLen())
}

func TestCreateDoesNotAliasCallerValue(t *testing.T) {
	r := New(0)
	d := kpiDashboard("d1")
	r.CreateDashboard(d)
	d.Widgets[0].Title = "changed"
	d.Filters["period"] = "changed"

	active, _ := r.ActiveDashboard()
	assert.Equal(t, "Matrículas", active.Widgets[0].Title)
	assert.Equal(t, "2025-1", active.Filters["period"])
}

func TestCreatePushesHistoryOnce(t *testing.T) {
	r := New(0)
	d1, d2 := kpiDashboard("d1"), kpiDashboard("d2")
	r.CreateDashboard(d1)
	r.CreateDashboard(d2)

	history := r.History()
	require.Len(t, history, 1)
	assert.Equal(t, d1, history[0])
	active, _ := r.ActiveDashboard()
	assert.Equal(t, d2, active)
}

func TestCreateLeavesRegistryFiltersAlone(t *testing.T) {
	r := New(0)
	r.UpdateFilters(models.Filters{"region": "Norte"})
	r.CreateDashboard(kpiDashboard("d1"))

	assert.Equal(t, models.Filters{"region": "Norte"}, r.Filters())
	active, _ := r.ActiveDashboard()
	assert.Equal(t, models.Filters{"period": "2025-1"}, active.Filters)
}

func TestHistoryLimitDropsOldest(t *testing.T) {
	r := New(2)
	for _, id := range []string{"d1", "d2", "d3", "d4"} {
		r.CreateDashboard(kpiDashboard(id))
	}
	history := r.History()
	require.Len(t, history, 2)
	assert.Equal(t, "d2", history[0].ID)
	assert.Equal(t, "d3", history[1].ID)
}

func TestHistoryEntriesAreFrozen(t *testing.T) {
	r := New(0)
	r.CreateDashboard(kpiDashboard("d1"))
	r.CreateDashboard(kpiDashboard("d2"))
	r.ApplyPatch([]models.PatchOperation{{Op: models.PatchReplace, Path: "/title", Value: "patched"}})
	r.UpdateWidget("w1", map[string]any{"title": "patched"})
	r.UpdateFilters(models.Filters{"region": "Sul"})

	history := r.History()
	history[0].Title = "mutated copy"

	assert.Equal(t, kpiDashboard("d1"), r.History()[0])
}

func TestApplyPatchReplacesNestedValue(t *testing.T) {
	r := New(0)
	d := kpiDashboard("d1")
	r.CreateDashboard(d)

	ok := r.ApplyPatch([]models.PatchOperation{{Op: models.PatchReplace, Path: "/widgets/0/data/value", Value: 500}})
	require.True(t, ok)

	active, _ := r.ActiveDashboard()
	assert.Equal(t, 500.0, active.Widgets[0].Data.Value)

	want := kpiDashboard("d1")
	want.Widgets[0].Data.Value = 500.0
	assert.Equal(t, want, active)
}

func TestApplyPatchDoesNotMutatePrevious(t *testing.T) {
	r := New(0)
	r.CreateDashboard(kpiDashboard("d1"))
	before, _ := r.ActiveDashboard()
	snapshot := before.Clone()

	r.ApplyPatch([]models.PatchOperation{
		{Op: models.PatchReplace, Path: "/widgets/1/data/rows/0/status", Value: "late"},
		{Op: models.PatchAdd, Path: "/filters/region", Value: "Norte"},
	})

	assert.Equal(t, snapshot, before)
	after, _ := r.ActiveDashboard()
	assert.Equal(t, "late", after.Widgets[1].Data.Rows[0]["status"])
	assert.Equal(t, "Norte", after.Filters["region"])
	assert.NotEqual(t, before, after)
}

func TestApplyPatchIsIdempotentForReplace(t *testing.T) {
	ops := []models.PatchOperation{{Op: models.PatchReplace, Path: "/title", Value: "Novo"}}

	once := New(0)
	once.CreateDashboard(kpiDashboard("d1"))
	once.ApplyPatch(ops)

	twice := New(0)
	twice.CreateDashboard(kpiDashboard("d1"))
	twice.ApplyPatch(ops)
	twice.ApplyPatch(ops)

	a, _ := once.ActiveDashboard()
	b, _ := twice.ActiveDashboard()
	assert.Equal(t, a, b)
}

func TestApplyPatchWithoutActiveIsNoop(t *testing.T) {
	r := New(0)
	r.CreateDashboard(kpiDashboard("d1"))
	r.ClearDashboard()

	ok := r.ApplyPatch([]models.PatchOperation{{Op: models.PatchReplace, Path: "/title", Value: "x"}})
	assert.False(t, ok)
	_, active := r.ActiveDashboard()
	assert.False(t, active)
}

func TestApplyPatchRejectsInvalidBatch(t *testing.T) {
	r := New(0)
	r.CreateDashboard(kpiDashboard("d1"))

	cases := map[string][]models.PatchOperation{
		"unknown field": {{Op: models.PatchAdd, Path: "/owner", Value: "x"}},
		"type mismatch": {{Op: models.PatchReplace, Path: "/widgets", Value: "x"}},
		"scalar root":   {{Op: models.PatchReplace, Path: "/", Value: 3}},
		"partial batch": {
			{Op: models.PatchReplace, Path: "/title", Value: "ok"},
			{Op: models.PatchReplace, Path: "/createdAt", Value: "not a time"},
		},
	}
	for name, ops := range cases {
		t.Run(name, func(t *testing.T) {
			assert.False(t, r.ApplyPatch(ops))
			active, _ := r.ActiveDashboard()
			assert.Equal(t, kpiDashboard("d1"), active)
		})
	}
}

func TestApplyPatchOutOfRangeIndexIsNoop(t *testing.T) {
	r := New(0)
	r.CreateDashboard(kpiDashboard("d1"))

	for _, path := range []string{"/widgets/99999999999999/title", "/widgets/5/title", "/widgets/3"} {
		t.Run(path, func(t *testing.T) {
			require.NotPanics(t, func() {
				r.ApplyPatch([]models.PatchOperation{{Op: models.PatchReplace, Path: path, Value: map[string]any{"title": "x"}}})
			})
			active, _ := r.ActiveDashboard()
			require.Len(t, active.Widgets, 2)
			assert.Equal(t, "Matrículas", active.Widgets[0].Title)
			assert.Equal(t, "Ranking", active.Widgets[1].Title)
		})
	}
}

func TestPatchReportsRejectedOp(t *testing.T) {
	ops := []models.PatchOperation{
		{Op: models.PatchReplace, Path: "/title", Value: "ok"},
		{Op: models.PatchAdd, Path: "/widgets/0/data/meta/source", Value: "censo"},
		{Op: models.PatchReplace, Path: "/subtitle", Value: "ok"},
	}

	_, err := Patch(kpiDashboard("d1"), ops)

	var opErr *OpError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, 1, opErr.Index)
	assert.Equal(t, "/widgets/0/data/meta/source", opErr.Op.Path)
	assert.Contains(t, err.Error(), "patch 1")

	_, err = Patch(kpiDashboard("d1"), []models.PatchOperation{{Op: models.PatchReplace, Path: "/", Value: 3}})
	assert.ErrorIs(t, err, ErrNotADashboard)
}

func TestApplyPatchRootReplace(t *testing.T) {
	r := New(0)
	r.CreateDashboard(kpiDashboard("d1"))
	replacement := kpiDashboard("d9")
	replacement.Widgets = nil

	require.True(t, r.ApplyPatch([]models.PatchOperation{{Op: models.PatchReplace, Path: "", Value: replacement}}))
	active, _ := r.ActiveDashboard()
	assert.Equal(t, "d9", active.ID)
	assert.Empty(t, active.Widgets)
	assert.Equal(t, 0, r.HistoryLen(), "patches never push history")
}

func TestApplyPatchRemoveWidgetByIndex(t *testing.T) {
	r := New(0)
	r.CreateDashboard(kpiDashboard("d1"))

	require.True(t, r.ApplyPatch([]models.PatchOperation{{Op: models.PatchRemove, Path: "/widgets/0"}}))
	active, _ := r.ActiveDashboard()
	require.Len(t, active.Widgets, 1)
	assert.Equal(t, "w2", active.Widgets[0].ID)
}

func TestUpdateWidgetMergesFields(t *testing.T) {
	r := New(0)
	r.CreateDashboard(kpiDashboard("d1"))

	r.UpdateWidget("w2", map[string]any{"viewMode": "chart", "limit": 5})

	active, _ := r.ActiveDashboard()
	assert.Equal(t, models.WidgetViewChart, active.Widgets[1].ViewMode)
	assert.Equal(t, 5, active.Widgets[1].Limit)
	assert.Equal(t, "Ranking", active.Widgets[1].Title)
	assert.Equal(t, kpiDashboard("d1").Widgets[0], active.Widgets[0])
}

func TestUpdateWidgetUnknownIDIsNoop(t *testing.T) {
	r := New(0)
	r.CreateDashboard(kpiDashboard("d1"))

	r.UpdateWidget("nonexistent-id", map[string]any{"title": "x"})

	active, _ := r.ActiveDashboard()
	assert.Equal(t, kpiDashboard("d1").Widgets, active.Widgets)
}

func TestUpdateWidgetInvalidMergeIsNoop(t *testing.T) {
	r := New(0)
	r.CreateDashboard(kpiDashboard("d1"))

	r.UpdateWidget("w1", map[string]any{"limit": "many"})

	active, _ := r.ActiveDashboard()
	assert.Equal(t, kpiDashboard("d1"), active)
}

func TestMergeWidgetRejectsNonFieldKeys(t *testing.T) {
	cases := map[string]map[string]any{
		"nested path": {"data/value": 1},
		"empty key":   {"": map[string]any{"title": "x"}},
	}
	for name, partial := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := MergeWidget(kpiDashboard("d1"), "w1", partial)
			assert.Error(t, err)
		})
	}

	_, err := MergeWidget(kpiDashboard("d1"), "nope", map[string]any{"title": "x"})
	assert.ErrorIs(t, err, ErrWidgetNotFound)
}

func TestAddAndRemoveWidget(t *testing.T) {
	r := New(0)
	r.AddWidget(models.Widget{ID: "ignored"})
	_, ok := r.ActiveDashboard()
	assert.False(t, ok)

	r.CreateDashboard(kpiDashboard("d1"))
	r.AddWidget(models.Widget{ID: "w3", Type: models.WidgetTimeSeries, Data: models.WidgetData{Series: []models.SeriesPoint{{Period: "2025-01", Value: 0.8}}}})
	active, _ := r.ActiveDashboard()
	require.Len(t, active.Widgets, 3)
	assert.Equal(t, "w3", active.Widgets[2].ID)

	r.RemoveWidget("w1")
	r.RemoveWidget("missing")
	active, _ = r.ActiveDashboard()
	require.Len(t, active.Widgets, 2)
	assert.Equal(t, "w2", active.Widgets[0].ID)
	assert.Equal(t, "w3", active.Widgets[1].ID)
}

func TestClearKeepsHistoryAndFilters(t *testing.T) {
	r := New(0)
	r.CreateDashboard(kpiDashboard("d1"))
	r.CreateDashboard(kpiDashboard("d2"))
	r.UpdateFilters(models.Filters{"region": "Norte"})

	r.ClearDashboard()

	_, ok := r.ActiveDashboard()
	assert.False(t, ok)
	assert.Equal(t, 1, r.HistoryLen())
	assert.Equal(t, models.Filters{"region": "Norte"}, r.Filters())
}

func TestUpdateFiltersSyncsBothTargets(t *testing.T) {
	r := New(0)
	r.CreateDashboard(kpiDashboard("d1"))

	r.UpdateFilters(models.Filters{"region": "Norte"})

	assert.Equal(t, "Norte", r.Filters()["region"])
	active, _ := r.ActiveDashboard()
	assert.Equal(t, "Norte", active.Filters["region"])
	assert.Equal(t, "2025-1", active.Filters["period"])
}

func TestUpdateFiltersWithoutActive(t *testing.T) {
	r := New(0)
	r.UpdateFilters(models.Filters{"discipline": "math"})
	r.UpdateFilters(models.Filters{"region": "Sul"})
	assert.Equal(t, models.Filters{"discipline": "math", "region": "Sul"}, r.Filters())
}

func TestToggleViewMode(t *testing.T) {
	r := New(0)
	r.ToggleViewMode()

	r.CreateDashboard(kpiDashboard("d1"))
	r.ToggleViewMode()
	active, _ := r.ActiveDashboard()
	assert.Equal(t, models.ViewOperational, active.ViewMode)

	r.ToggleViewMode()
	active, _ = r.ActiveDashboard()
	assert.Equal(t, models.ViewExecutive, active.ViewMode)
}

func TestReset(t *testing.T) {
	r := New(0)
	r.CreateDashboard(kpiDashboard("d1"))
	r.CreateDashboard(kpiDashboard("d2"))
	r.UpdateFilters(models.Filters{"region": "Sul"})

	r.Reset()

	_, ok := r.ActiveDashboard()
	assert.False(t, ok)
	assert.Zero(t, r.HistoryLen())
	assert.Empty(t, r.Filters())
}
