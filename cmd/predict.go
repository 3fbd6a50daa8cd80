package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/harvest-ai/nni-research-cli/internal/delivery"
	"github.com/harvest-ai/nni-research-cli/internal/errs"
	"github.com/harvest-ai/nni-research-cli/internal/grid"
	"github.com/harvest-ai/nni-research-cli/internal/sentinel"
	"github.com/harvest-ai/nni-research-cli/output"
	"github.com/spf13/cobra"
)

// fieldFromFlags resolves either an inline polygon or a farm field.
func fieldFromFlags(polygonJSON, farm, fieldID string) (sentinel.Field, error) {
	if polygonJSON != "" {
		var coords [][]float64
		if err := json.Unmarshal([]byte(polygonJSON), &coords); err != nil {
			return sentinel.Field{}, errs.Validationf("polygon must be a JSON list of [lon, lat] pairs: %v", err)
		}
		polygon, err := grid.NewPolygon(coords)
		if err != nil {
			return sentinel.Field{}, err
		}
		return sentinel.Field{Farm: "inline", ID: "polygon", Polygon: polygon}, nil
	}
	if farm == "" || fieldID == "" {
		return sentinel.Field{}, errs.Validationf("use --polygon or both --farm and --field")
	}
	polygon, err := sentinel.GetFieldPolygon(farm, fieldID)
	if err != nil {
		return sentinel.Field{}, err
	}
	return sentinel.Field{Farm: farm, ID: fieldID, Polygon: polygon}, nil
}

func newPredictCmd(settingsPath *string) *cobra.Command {
	var (
		polygonJSON, farm, fieldID, out string
		printJSON                      bool
	)

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict the NNI grid of one field",
		Example: `  nni predict --farm wheat_north --field 3
  nni predict --polygon '[[5.1,52.0],[5.2,52.0],[5.2,52.1],[5.1,52.0]]' --json`,
	}
	request := addRequestFlags(cmd, settingsPath)
	cmd.Flags().StringVar(&polygonJSON, "polygon", "", "field polygon as a JSON list of [lon, lat] pairs")
	cmd.Flags().StringVar(&farm, "farm", "", "farm name under data/geojsons")
	cmd.Flags().StringVar(&fieldID, "field", "", "field_id inside the farm GeoJSON")
	cmd.Flags().StringVar(&out, "out", "", "base path of the result files, defaults to data/result/<farm>_<field>_<end>")
	cmd.Flags().BoolVar(&printJSON, "json", false, "print the {lon, lat, pred, meta} envelope instead of writing files")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		field, err := fieldFromFlags(polygonJSON, farm, fieldID)
		if err != nil {
			return err
		}
		settings, params, err := request.params(cmd)
		if err != nil {
			return err
		}
		engine, err := loadEngine()
		if err != nil {
			return fmt.Errorf("failed to load model: %w", err)
		}

		result, err := newPipeline(settings).EvaluateField(cmd.Context(), field, params, engine, delivery.DryMatterFromSettings(settings))
		if err != nil {
			return err
		}

		if printJSON {
			return output.WriteEnvelope(os.Stdout, result.Result)
		}
		if out == "" {
			out = output.ResultPath(fmt.Sprintf("%s_%s_%s", field.Farm, field.ID, settings.Imagery.DateEnd), "")
		}
		if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
			return err
		}
		paths, err := output.SaveAll(result.Result, out)
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Println(p)
		}
		return nil
	}
	return cmd
}
