package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/JosueCoro/mobicorp/internal/app"
)

var (
	sweepCategory int
	sweepMin      int
	sweepMax      int
	sweepDelay    float64
	sweepFull     bool
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Sweep a catalog category across a price range",
	RunE: func(cmd *cobra.Command, args []string) error {
		if sweepDelay < 0 {
			return fmt.Errorf("--delay cannot be negative")
		}

		delay := time.Duration(sweepDelay * float64(time.Second))

		if sweepFull {
			return getApp().FullSweep(cmd.Context(), sweepCategory, app.SweepOptions{Delay: delay})
		}

		opts := app.SweepOptions{
			CategoryID: sweepCategory,
			MinPrice:   sweepMin,
			MaxPrice:   sweepMax,
			Delay:      delay,
		}

		return getApp().Sweep(cmd.Context(), opts)
	},
}

func init() {
	sweepCmd.Flags().IntVar(&sweepCategory, "category", 0, "Catalog category id (1-4)")
	sweepCmd.Flags().IntVar(&sweepMin, "min", 0, "Lower price bound (inclusive)")
	sweepCmd.Flags().IntVar(&sweepMax, "max", 0, "Upper price bound (inclusive)")
	sweepCmd.Flags().Float64Var(&sweepDelay, "delay", 0.3, "Pause between price points in seconds")
	sweepCmd.Flags().BoolVar(&sweepFull, "full", false, "Sweep the entire configured price range")
	_ = sweepCmd.MarkFlagRequired("category")
}
