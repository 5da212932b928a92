package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JosueCoro/mobicorp/internal/app"
)

var (
	compareAllLimit  int
	compareAllOffset int
	compareAllDryRun bool
)

var compareAllCmd = &cobra.Command{
	Use:   "compare-all",
	Short: "Run market comparisons for a page of catalog products",
	RunE: func(cmd *cobra.Command, args []string) error {
		if compareAllLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}
		if compareAllOffset < 0 {
			return fmt.Errorf("--offset cannot be negative")
		}

		opts := app.CompareAllOptions{
			Limit:  compareAllLimit,
			Offset: compareAllOffset,
			DryRun: compareAllDryRun,
		}

		return getApp().CompareAll(cmd.Context(), opts)
	},
}

func init() {
	compareAllCmd.Flags().IntVar(&compareAllLimit, "limit", 100, "Number of products to compare")
	compareAllCmd.Flags().IntVar(&compareAllOffset, "offset", 0, "Number of products to skip")
	compareAllCmd.Flags().BoolVar(&compareAllDryRun, "dry-run", false, "Run without writing to storage")
}
