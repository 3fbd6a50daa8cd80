package output

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/harvest-ai/nni-research-cli/internal/ml"
	"github.com/harvest-ai/nni-research-cli/internal/properties"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Nitrogen status classes by NNI.
const (
	ClassDeficient = "deficient"
	ClassLow       = "low"
	ClassOptimal   = "optimal"
	ClassExcess    = "excess"
	ClassUnknown   = "unknown"
)

func NNIClass(nni float64) string {
	switch {
	case math.IsNaN(nni) || math.IsInf(nni, 0):
		return ClassUnknown
	case nni < 0.8:
		return ClassDeficient
	case nni < 0.95:
		return ClassLow
	case nni <= 1.05:
		return ClassOptimal
	default:
		return ClassExcess
	}
}

// ResultPath returns ROOT_PATH/data/result/<name><ext>.
func ResultPath(name, ext string) string {
	return filepath.Join(properties.RootPath(), "data", "result", name+ext)
}

// finite maps NaN and Inf to nil so they encode as JSON null.
func finite(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

// CreatePredictionGeoJSON writes one point feature per grid cell with its PNC, NNI and class.
func CreatePredictionGeoJSON(result *ml.InferenceResult, outputPath string) (string, error) {
	if !strings.HasSuffix(outputPath, ".geojson") {
		outputPath += ".geojson"
	}

	fc := geojson.NewFeatureCollection()
	for i, row := range result.LonLatPred {
		feature := geojson.NewFeature(orb.Point{row[0], row[1]})
		feature.Properties["pnc"] = finite(row[2])
		feature.Properties["nni"] = finite(result.Predictions[i])
		feature.Properties["class"] = NNIClass(result.Predictions[i])
		fc.Append(feature)
	}

	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("error encoding GeoJSON: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return "", fmt.Errorf("error creating result directory: %w", err)
	}
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return "", fmt.Errorf("error creating GeoJSON file: %w", err)
	}
	return outputPath, nil
}
