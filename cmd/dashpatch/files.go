package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/aprendu/aprendu-backend/internal/models"
)

var (
	red   = color.New(color.FgRed, color.Bold).SprintFunc()
	green = color.New(color.FgGreen).SprintFunc()
	cyan  = color.New(color.FgCyan, color.Bold).SprintFunc()
)

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// readDocument decodes a JSON or YAML file into dst. YAML goes through a
// generic tree so the json tags on models apply to both formats.
func readDocument(path string, dst any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if isYAML(path) {
		var tree any
		if err := yaml.Unmarshal(raw, &tree); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if raw, err = json.Marshal(tree); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func readDashboard(path string) (models.Dashboard, error) {
	var d models.Dashboard
	err := readDocument(path, &d)
	return d, err
}

// readPatches accepts either a bare list of operations or {"patches": [...]}.
func readPatches(path string) ([]models.PatchOperation, error) {
	var tree any
	if err := readDocument(path, &tree); err != nil {
		return nil, err
	}
	if obj, ok := tree.(map[string]any); ok {
		list, found := obj["patches"]
		if !found {
			return nil, fmt.Errorf("%s: expected a list of operations or a \"patches\" field", path)
		}
		tree = list
	}

	raw, err := json.Marshal(tree)
	if err != nil {
		return nil, err
	}
	var ops []models.PatchOperation
	if err := json.Unmarshal(raw, &ops); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ops, nil
}

func writeDocument(cmd interface{ OutOrStdout() io.Writer }, v any, asYAML bool) error {
	out := cmd.OutOrStdout()
	if asYAML {
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var tree any
		if err := json.Unmarshal(raw, &tree); err != nil {
			return err
		}
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(tree); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
