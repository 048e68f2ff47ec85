package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aprendu/aprendu-backend/internal/models"
)

const dashboardJSON = `{
  "id": "d1",
  "title": "Frequência por escola",
  "intent": "trend_monitoring",
  "viewMode": "executive",
  "axes": {"entity": "school", "metric": "attendance"},
  "widgets": [
    {"id": "w1", "type": "KPIGrid", "title": "KPIs"},
    {"id": "w2", "type": "RankedTable", "title": "Ranking"}
  ]
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// run executes the root command with fresh flag values.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	color.NoColor = true
	for _, c := range rootCmd.Commands() {
		resetFlags(c)
	}

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func resetFlags(c *cobra.Command) {
	c.Flags().VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})
}

func TestApplyJSONPatches(t *testing.T) {
	d := writeFile(t, "d.json", dashboardJSON)
	p := writeFile(t, "p.json", `[
		{"op": "replace", "path": "/title", "value": "Presença"},
		{"op": "remove", "path": "/widgets/0"}
	]`)

	stdout, stderr, err := run(t, "apply", "--dashboard", d, "--patches", p)
	require.NoError(t, err)
	assert.Contains(t, stderr, "2 operation(s) applied")

	var out models.Dashboard
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, "Presença", out.Title)
	require.Len(t, out.Widgets, 1)
	assert.Equal(t, "w2", out.Widgets[0].ID)
}

func TestApplyYAMLPatchesWrappedInObject(t *testing.T) {
	d := writeFile(t, "d.json", dashboardJSON)
	p := writeFile(t, "p.yaml", `patches:
  - op: add
    path: /filters/regiao
    value: Norte
  - op: replace
    path: /widgets/1/title
    value: Top escolas
`)

	stdout, _, err := run(t, "apply", "--dashboard", d, "--patches", p)
	require.NoError(t, err)

	var out models.Dashboard
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, "Norte", out.Filters["regiao"])
	assert.Equal(t, "Top escolas", out.Widgets[1].Title)
}

func TestApplyYAMLOutput(t *testing.T) {
	d := writeFile(t, "d.json", dashboardJSON)
	p := writeFile(t, "p.json", `[]`)

	stdout, _, err := run(t, "apply", "--dashboard", d, "--patches", p, "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, stdout, "title: Frequência por escola")
}

func TestApplyRejectsInvalidResult(t *testing.T) {
	d := writeFile(t, "d.json", dashboardJSON)
	p := writeFile(t, "p.json", `[{"op": "replace", "path": "/widgets", "value": "not-a-list"}]`)

	_, _, err := run(t, "apply", "--dashboard", d, "--patches", p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "patch rejected")
}

func TestApplyStrictCatchesBadWidgetType(t *testing.T) {
	d := writeFile(t, "d.json", dashboardJSON)
	p := writeFile(t, "p.json", `[{"op": "replace", "path": "/widgets/0/type", "value": "PieChart"}]`)

	_, stderr, err := run(t, "apply", "--dashboard", d, "--patches", p, "--strict")
	require.Error(t, err)
	assert.Contains(t, stderr, "widgets[0].type")
}

func TestApplyRequiresFlags(t *testing.T) {
	_, _, err := run(t, "apply")
	require.Error(t, err)
}

func TestSimilarity(t *testing.T) {
	current := writeFile(t, "a.json", dashboardJSON)
	candidate := writeFile(t, "b.yaml", `id: d2
intent: equity_gap
viewMode: executive
axes:
  entity: school
  metric: grades
`)

	stdout, _, err := run(t, "similarity", "--current", current, "--candidate", candidate)
	require.NoError(t, err)
	assert.Contains(t, stdout, "similarity: 0.50")
}

func TestValidate(t *testing.T) {
	valid := writeFile(t, "ok.json", dashboardJSON)
	stdout, _, err := run(t, "validate", "--dashboard", valid)
	require.NoError(t, err)
	assert.Contains(t, stdout, "is valid (2 widgets)")

	invalid := writeFile(t, "bad.json", `{"id": "d1", "intent": "gossip", "viewMode": "executive", "widgets": []}`)
	_, stderr, err := run(t, "validate", "--dashboard", invalid)
	require.Error(t, err)
	assert.Contains(t, stderr, "intent")
}

func TestReadPatchesRejectsObjectWithoutPatches(t *testing.T) {
	p := writeFile(t, "p.json", `{"ops": []}`)
	_, err := readPatches(p)
	require.Error(t, err)
}
