package cli

import (
	"github.com/spf13/cobra"

	"pricewatch/internal/app"
)

var (
	exportProductID int64
	exportCSVPath   string
	exportPNGPath   string
	exportMaxPoints int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a product's price history as CSV and/or PNG",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ExportOptions{
			ProductID: exportProductID,
			CSVPath:   exportCSVPath,
			PNGPath:   exportPNGPath,
			MaxPoints: exportMaxPoints,
		}
		return getApp().Export(cmd.Context(), opts)
	},
}

func init() {
	exportCmd.Flags().Int64Var(&exportProductID, "product", 0, "Product id to export")
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "Write price history CSV to this path")
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "Render price history chart to this path")
	exportCmd.Flags().IntVar(&exportMaxPoints, "max-points", 0, "Override export.max_data_points")
	_ = exportCmd.MarkFlagRequired("product")
}
