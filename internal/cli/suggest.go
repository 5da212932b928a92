package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var suggestProduct int64

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Suggest a price for a product from market data",
	RunE: func(cmd *cobra.Command, args []string) error {
		if suggestProduct <= 0 {
			return fmt.Errorf("--product must be greater than zero")
		}
		return getApp().Suggest(cmd.Context(), suggestProduct)
	},
}

func init() {
	suggestCmd.Flags().Int64Var(&suggestProduct, "product", 0, "Catalog product id")
	_ = suggestCmd.MarkFlagRequired("product")
}
