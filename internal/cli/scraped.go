package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JosueCoro/mobicorp/internal/app"
)

var (
	scrapedLimit     int
	scrapedOffset    int
	scrapedCategoria string
	scrapedPrecioMin float64
	scrapedPrecioMax float64
)

var scrapedCmd = &cobra.Command{
	Use:   "scraped",
	Short: "Display stored scraped catalog items",
	RunE: func(cmd *cobra.Command, args []string) error {
		if scrapedLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}

		opts := app.ScrapedOptions{
			Limit:     scrapedLimit,
			Offset:    scrapedOffset,
			Categoria: scrapedCategoria,
			PrecioMin: scrapedPrecioMin,
			PrecioMax: scrapedPrecioMax,
		}

		return getApp().Scraped(cmd.Context(), opts)
	},
}

func init() {
	scrapedCmd.Flags().IntVar(&scrapedLimit, "limit", 100, "Number of items to display")
	scrapedCmd.Flags().IntVar(&scrapedOffset, "offset", 0, "Number of items to skip")
	scrapedCmd.Flags().StringVar(&scrapedCategoria, "categoria", "", "Filter by category substring")
	scrapedCmd.Flags().Float64Var(&scrapedPrecioMin, "precio-min", 0, "Minimum price filter")
	scrapedCmd.Flags().Float64Var(&scrapedPrecioMax, "precio-max", 0, "Maximum price filter")
}
