package cli

import (
	"github.com/spf13/cobra"

	"pricewatch/internal/app"
)

var (
	ingestProductsOnly bool
	ingestRatesOnly    bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Pull the product and rate feeds once",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.IngestOptions{
			Products: !ingestRatesOnly,
			Rates:    !ingestProductsOnly,
		}
		return getApp().Ingest(cmd.Context(), opts)
	},
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestProductsOnly, "products-only", false, "Only ingest the product feed")
	ingestCmd.Flags().BoolVar(&ingestRatesOnly, "rates-only", false, "Only ingest the rate feed")
	ingestCmd.MarkFlagsMutuallyExclusive("products-only", "rates-only")
}
