package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "dashpatch",
	Short: "Offline dashboard reconciliation tool",
	Long: `dashpatch applies JSON patch lists to dashboard documents, scores axis
similarity between two dashboards and validates dashboard files, using the
same reconciler as the API.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", red("Error:"), err)
		os.Exit(1)
	}
}
