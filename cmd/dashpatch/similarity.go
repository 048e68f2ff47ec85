package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aprendu/aprendu-backend/internal/registry"
)

var similarityCmd = &cobra.Command{
	Use:   "similarity",
	Short: "Score how close two dashboards are in subject matter",
	Long: `Compare the entity, time, metric and region axes of two dashboards. The
score is the share of axes defined on either side that both sides agree on.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		currentPath, _ := cmd.Flags().GetString("current")
		candidatePath, _ := cmd.Flags().GetString("candidate")

		current, err := readDashboard(currentPath)
		if err != nil {
			return err
		}
		candidate, err := readDashboard(candidatePath)
		if err != nil {
			return err
		}

		reg := registry.New(0)
		reg.CreateDashboard(current)
		score := reg.CalculateAxesSimilarity(candidate.Axes)

		fmt.Fprintf(cmd.OutOrStdout(), "%s %.2f\n", cyan("similarity:"), score)
		return nil
	},
}

func init() {
	similarityCmd.Flags().String("current", "", "active dashboard file (json or yaml)")
	similarityCmd.Flags().String("candidate", "", "candidate dashboard file (json or yaml)")
	_ = similarityCmd.MarkFlagRequired("current")
	_ = similarityCmd.MarkFlagRequired("candidate")
	rootCmd.AddCommand(similarityCmd)
}
