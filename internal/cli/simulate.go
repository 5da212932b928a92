package cli

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	simulateCatalog float64
	simulateMarket  float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "模拟一次价格偏差并触发告警",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateCatalog <= 0 || simulateMarket <= 0 {
			return errors.New("--catalog 与 --market 必须大于 0")
		}

		catalog := decimal.NewFromFloat(simulateCatalog)
		marketAvg := decimal.NewFromFloat(simulateMarket)
		return getApp().SimulateAlert(cmd.Context(), catalog, marketAvg)
	},
}

func init() {
	simulateCmd.Flags().Float64Var(&simulateCatalog, "catalog", 0, "Precio registrado en el catálogo")
	simulateCmd.Flags().Float64Var(&simulateMarket, "market", 0, "Promedio de mercado simulado")
}
