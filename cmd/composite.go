package main

import (
	"fmt"
	"math"
	"time"

	"github.com/harvest-ai/nni-research-cli/internal/indexes"
	"github.com/harvest-ai/nni-research-cli/internal/sentinel"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"
)

// finiteMean averages the non-NaN values and reports how many were masked.
func finiteMean(values []float64) (float64, int) {
	valid := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			valid = append(valid, v)
		}
	}
	if len(valid) == 0 {
		return math.NaN(), len(values)
	}
	return stat.Mean(valid, nil), len(values) - len(valid)
}

// newCompositeCmd downloads one composite and prints band and index summaries, a quick check of
// the imagery credentials and window before running predictions.
func newCompositeCmd(settingsPath *string) *cobra.Command {
	var farm, fieldID, polygonJSON string

	cmd := &cobra.Command{
		Use:   "composite",
		Short: "Download a composite for a field and summarize its bands",
	}
	request := addRequestFlags(cmd, settingsPath)
	cmd.Flags().StringVar(&polygonJSON, "polygon", "", "field polygon as a JSON list of [lon, lat] pairs")
	cmd.Flags().StringVar(&farm, "farm", "", "farm name under data/geojsons")
	cmd.Flags().StringVar(&fieldID, "field", "", "field_id inside the farm GeoJSON")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		field, err := fieldFromFlags(polygonJSON, farm, fieldID)
		if err != nil {
			return err
		}
		_, params, err := request.params(cmd)
		if err != nil {
			return err
		}

		start := time.Now()
		composite, err := sentinel.NewProcessAPIProvider().Composite(cmd.Context(), field.Polygon, params.Composite)
		if err != nil {
			return err
		}
		fmt.Printf("Composite %dx%d downloaded in %v\n", composite.Width, composite.Height, time.Since(start))
		for _, band := range sentinel.Bands {
			mean, masked := finiteMean(composite.Bands[band])
			fmt.Printf("  %-8s mean %.4f  masked %d\n", band, mean, masked)
		}

		raster, err := indexes.ComputeRaster(cmd.Context(), composite)
		if err != nil {
			return err
		}
		for _, name := range []string{"NDVI", "NDRE", "CI-REG", "MTCI"} {
			layer, ok := raster.Layer(name)
			if !ok {
				continue
			}
			mean, _ := finiteMean(layer)
			fmt.Printf("  %-8s mean %.4f\n", name, mean)
		}
		return nil
	}
	return cmd
}
