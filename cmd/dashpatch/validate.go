package main

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/aprendu/aprendu-backend/internal/errs"
	"github.com/aprendu/aprendu-backend/internal/validation"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a dashboard file against the API's input rules",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("dashboard")

		d, err := readDashboard(path)
		if err != nil {
			return err
		}
		if err := validation.New().Struct(d); err != nil {
			printValidation(cmd, err)
			return errors.New("dashboard is invalid")
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s %s is valid (%d widgets)\n", green("✓"), path, len(d.Widgets))
		return nil
	},
}

func printValidation(cmd *cobra.Command, err error) {
	out := cmd.ErrOrStderr()
	var vErr *errs.ValidationError
	if !errors.As(err, &vErr) || len(vErr.Fields) == 0 {
		fmt.Fprintf(out, "%s %v\n", red("✗"), err)
		return
	}

	fields := make([]string, 0, len(vErr.Fields))
	for f := range vErr.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		fmt.Fprintf(out, "%s %s: %s\n", red("✗"), f, vErr.Fields[f])
	}
}

func init() {
	validateCmd.Flags().String("dashboard", "", "dashboard file (json or yaml)")
	_ = validateCmd.MarkFlagRequired("dashboard")
	rootCmd.AddCommand(validateCmd)
}
