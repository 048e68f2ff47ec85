package validation

import (
	"errors"
	"testing"

	"github.com/aprendu/aprendu-backend/internal/dto"
	"github.com/aprendu/aprendu-backend/internal/errs"
	"github.com/aprendu/aprendu-backend/internal/models"
)

func validDashboard() models.Dashboard {
	return models.Dashboard{
		ID:       "d1",
		Title:    "Desempenho por escola",
		Intent:   models.IntentPerformanceComparison,
		ViewMode: models.ViewExecutive,
		Widgets: []models.Widget{
			{ID: "w1", Type: models.WidgetRankedTable, Columns: []models.Column{{Key: "school", Type: models.ColumnText}}},
			{ID: "w2", Type: models.WidgetKPIGrid},
		},
	}
}

func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	var vErr *errs.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %T (%v)", err, err)
	}
	return vErr.Fields
}

func TestStructAcceptsValidDashboard(t *testing.T) {
	if err := New().Struct(validDashboard()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStructRejectsUnknownWidgetType(t *testing.T) {
	d := validDashboard()
	d.Widgets[1].Type = "PieChart"

	fields := fieldsOf(t, New().Struct(d))
	msg, ok := fields["widgets[1].type"]
	if !ok {
		t.Fatalf("expected widgets[1].type in %v", fields)
	}
	if msg == "" {
		t.Error("expected translated message")
	}
}

func TestStructRejectsUnknownIntent(t *testing.T) {
	d := validDashboard()
	d.Intent = "gossip"

	fields := fieldsOf(t, New().Struct(d))
	if _, ok := fields["intent"]; !ok {
		t.Fatalf("expected intent in %v", fields)
	}
}

func TestStructRejectsDuplicateWidgetIDs(t *testing.T) {
	d := validDashboard()
	d.Widgets[1].ID = "w1"

	fields := fieldsOf(t, New().Struct(d))
	if _, ok := fields["widgets"]; !ok {
		t.Fatalf("expected widgets in %v", fields)
	}
}

func TestStructRejectsBadColumnAndViewMode(t *testing.T) {
	d := validDashboard()
	d.ViewMode = "compact"
	d.Widgets[0].Columns[0].Type = "sparkline"

	fields := fieldsOf(t, New().Struct(d))
	for _, key := range []string{"viewMode", "widgets[0].columns[0].type"} {
		if _, ok := fields[key]; !ok {
			t.Errorf("expected %s in %v", key, fields)
		}
	}
}

func TestStructRejectsUnknownPatchOp(t *testing.T) {
	req := dto.PatchRequest{Patches: []models.PatchOperation{{Op: "move", Path: "/title"}}}

	fields := fieldsOf(t, New().Struct(req))
	if _, ok := fields["patches[0].op"]; !ok {
		t.Fatalf("expected patches[0].op in %v", fields)
	}
}
