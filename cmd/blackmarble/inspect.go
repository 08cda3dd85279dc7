package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/robert-malhotra/blackmarble/internal/product"
	"github.com/robert-malhotra/blackmarble/internal/temporal"
	"github.com/robert-malhotra/blackmarble/internal/tiles"
)

func newTilesCmd(a *app) *cobra.Command {
	var regionArg, nameField string

	cmd := &cobra.Command{
		Use:   "tiles --region REGION",
		Short: "Print the grid tiles covering a region.",
		Long: `tiles prints the Black Marble tiles whose 10 degree cells overlap the
region, one per line with the cell bounds. REGION is a GeoJSON or shapefile
path, a "west,south,east,north" box or a WKT polygon.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := loadRegion(regionArg, nameField)
			if err != nil {
				return err
			}
			ts, err := tiles.Resolve(r)
			if err != nil {
				return err
			}
			a.logger.Debug("resolved tiles", "count", len(ts), "zones", len(r.Zones))

			out := cmd.OutOrStdout()
			for _, t := range ts {
				b := t.BBox()
				fmt.Fprintf(out, "%s\t%g,%g,%g,%g\n", t.ID(), b[0], b[1], b[2], b[3])
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&regionArg, "region", "", "region file, bbox or WKT")
	cmd.Flags().StringVar(&nameField, "name-field", "", "property naming each zone in region files")
	cmd.MarkFlagRequired("region")
	return cmd
}

func newPeriodsCmd(a *app) *cobra.Command {
	var productArg string

	cmd := &cobra.Command{
		Use:   "periods --product PRODUCT DATE...",
		Short: "Print the timestamps a product publishes for the given dates.",
		Long: `periods expands dates (2006-01-02, 2006-01, 2006 or inclusive ranges
A..B) into the ordered, de-duplicated timestamps of the product. Daily
products give one day each, VNP46A3 one month, VNP46A4 one year.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := product.Parse(productArg)
			if err != nil {
				return err
			}
			periods, err := temporal.ExpandStrings(p, args)
			if err != nil {
				return err
			}
			a.logger.Debug("expanded periods", "product", p, "count", len(periods))

			out := cmd.OutOrStdout()
			for _, period := range periods {
				fmt.Fprintf(out, "%s\t%s\n", period.Key(), period.Date())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&productArg, "product", "", "product identifier, e.g. VNP46A2")
	cmd.MarkFlagRequired("product")
	return cmd
}
