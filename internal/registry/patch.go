package registry

import (
	"errors"
	"fmt"

	"github.com/aprendu/aprendu-backend/internal/jsonpatch"
	"github.com/aprendu/aprendu-backend/internal/models"
)

var (
	ErrNotADashboard  = errors.New("patched document is not a dashboard object")
	ErrWidgetNotFound = errors.New("widget not found")
)

// OpError names the operation after which a batch stopped describing a
// dashboard.
type OpError struct {
	Index int
	Op    models.PatchOperation
	Err   error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("patch %d (%s %s): %v", e.Index, e.Op.Op, e.Op.Path, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// Patch returns d with ops applied. d is left untouched. A rejected batch
// returns an *OpError; ApplyPatch discards it.
//
// The dashboard goes through its JSON form, so the result is JSON-equal to the
// input outside the patched paths rather than identical: numbers inside
// untyped widget data come back as float64, CreatedAt loses its monotonic
// clock reading, and empty Filters become nil.
func Patch(d models.Dashboard, ops []models.PatchOperation) (models.Dashboard, error) {
	tree, err := jsonpatch.ToTree(d)
	if err != nil {
		return models.Dashboard{}, fmt.Errorf("encode dashboard: %w", err)
	}
	normalized, err := normalizeOps(ops)
	if err != nil {
		return models.Dashboard{}, err
	}
	out, err := decodeDashboard(jsonpatch.Apply(tree, normalized))
	if err != nil {
		i := firstRejected(tree, normalized)
		return models.Dashboard{}, &OpError{Index: i, Op: ops[i], Err: err}
	}
	return out, nil
}

func decodeDashboard(tree any) (models.Dashboard, error) {
	if _, ok := tree.(map[string]any); !ok {
		return models.Dashboard{}, ErrNotADashboard
	}
	var out models.Dashboard
	if err := jsonpatch.FromTree(tree, &out); err != nil {
		return models.Dashboard{}, err
	}
	return out, nil
}

// firstRejected replays ops one at a time and returns the index of the first
// one after which the tree no longer decodes.
func firstRejected(tree any, ops []models.PatchOperation) int {
	for i := range ops {
		tree = jsonpatch.Apply(tree, ops[i:i+1])
		if _, err := decodeDashboard(tree); err != nil {
			return i
		}
	}
	return len(ops) - 1
}

// MergeWidget returns d with partial shallow-merged into every widget whose id
// matches. Keys are top-level widget fields; anything else, including nested
// paths such as "data/value", is rejected.
func MergeWidget(d models.Dashboard, widgetID string, partial map[string]any) (models.Dashboard, error) {
	widgets := make([]models.Widget, len(d.Widgets))
	found := false
	for i, w := range d.Widgets {
		widgets[i] = w
		if w.ID != widgetID {
			continue
		}
		merged, err := mergeWidget(w, partial)
		if err != nil {
			return models.Dashboard{}, fmt.Errorf("widget %s: %w", widgetID, err)
		}
		widgets[i] = merged
		found = true
	}
	if !found {
		return models.Dashboard{}, ErrWidgetNotFound
	}
	d.Widgets = widgets
	return d, nil
}

// normalizeOps turns typed patch values (structs, typed slices) into generic
// JSON so later operations can descend into them.
func normalizeOps(ops []models.PatchOperation) ([]models.PatchOperation, error) {
	out := make([]models.PatchOperation, len(ops))
	for i, op := range ops {
		out[i] = op
		if op.Op == models.PatchRemove || op.Value == nil {
			continue
		}
		v, err := jsonpatch.ToTree(op.Value)
		if err != nil {
			return nil, fmt.Errorf("patch %d (%s %s): %w", i, op.Op, op.Path, err)
		}
		out[i].Value = v
	}
	return out, nil
}

func mergeWidget(w models.Widget, partial map[string]any) (models.Widget, error) {
	tree, err := jsonpatch.ToTree(w)
	if err != nil {
		return models.Widget{}, err
	}
	fields, _ := tree.(map[string]any)
	for k, v := range partial {
		nv, err := jsonpatch.ToTree(v)
		if err != nil {
			return models.Widget{}, err
		}
		fields[k] = nv
	}
	var out models.Widget
	if err := jsonpatch.FromTree(fields, &out); err != nil {
		return models.Widget{}, err
	}
	return out, nil
}
