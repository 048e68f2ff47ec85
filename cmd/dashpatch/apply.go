package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aprendu/aprendu-backend/internal/registry"
	"github.com/aprendu/aprendu-backend/internal/validation"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply a patch list to a dashboard and print the result",
	Long: `Load a dashboard, apply the operations from a JSON or YAML patch file
through a fresh registry and print the patched dashboard. A batch that would
leave an invalid dashboard is rejected as a whole.`,
	Example: `  dashpatch apply --dashboard d.json --patches p.yaml
  dashpatch apply --dashboard d.json --patches p.json --output yaml --strict`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dashboardPath, _ := cmd.Flags().GetString("dashboard")
		patchesPath, _ := cmd.Flags().GetString("patches")
		output, _ := cmd.Flags().GetString("output")
		strict, _ := cmd.Flags().GetBool("strict")

		d, err := readDashboard(dashboardPath)
		if err != nil {
			return err
		}
		ops, err := readPatches(patchesPath)
		if err != nil {
			return err
		}

		reg := registry.New(0)
		reg.CreateDashboard(d)
		if !reg.ApplyPatch(ops) && len(ops) > 0 {
			if _, err := registry.Patch(d, ops); err != nil {
				return fmt.Errorf("patch rejected: %w", err)
			}
			return errors.New("patch rejected")
		}
		patched, _ := reg.ActiveDashboard()

		if strict {
			if err := validation.New().Struct(patched); err != nil {
				printValidation(cmd, err)
				return errors.New("patched dashboard is invalid")
			}
		}

		fmt.Fprintf(cmd.ErrOrStderr(), "%s %d operation(s) applied\n", green("✓"), len(ops))
		return writeDocument(cmd, patched, output == "yaml")
	},
}

func init() {
	applyCmd.Flags().String("dashboard", "", "dashboard file (json or yaml)")
	applyCmd.Flags().String("patches", "", "patch list file (json or yaml)")
	applyCmd.Flags().StringP("output", "o", "json", "output format: json or yaml")
	applyCmd.Flags().Bool("strict", false, "validate the patched dashboard")
	_ = applyCmd.MarkFlagRequired("dashboard")
	_ = applyCmd.MarkFlagRequired("patches")
	rootCmd.AddCommand(applyCmd)
}
