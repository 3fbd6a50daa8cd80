package output

import (
	"fmt"
	"os"

	"github.com/harvest-ai/nni-research-cli/internal/ml"
	log "github.com/sirupsen/logrus"
)

// SaveAll writes the GeoJSON, CSV, PNG map and JSON envelope of one result next to basePath.
// The PNG is skipped for a result without cells.
func SaveAll(result *ml.InferenceResult, basePath string) ([]string, error) {
	var paths []string

	path, err := CreatePredictionGeoJSON(result, basePath)
	if err != nil {
		return paths, err
	}
	paths = append(paths, path)

	path, err = CreatePredictionCSV(result, basePath)
	if err != nil {
		return paths, err
	}
	paths = append(paths, path)

	if len(result.LonLatPred) > 0 {
		path, err = CreateNNIImage(result, basePath)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}

	envelopePath := basePath + ".json"
	file, err := os.Create(envelopePath)
	if err != nil {
		return paths, fmt.Errorf("error creating envelope file: %w", err)
	}
	defer file.Close()
	if err := WriteEnvelope(file, result); err != nil {
		return paths, fmt.Errorf("error writing envelope file: %w", err)
	}
	paths = append(paths, envelopePath)

	log.WithField("files", len(paths)).Debug("[Output] results written")
	return paths, nil
}
