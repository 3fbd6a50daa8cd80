package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/harvest-ai/nni-research-cli/internal/ml"
)

type PredictionRow struct {
	Longitude float64 `csv:"lon"`
	Latitude  float64 `csv:"lat"`
	PNC       float64 `csv:"pnc"`
	NNI       float64 `csv:"nni"`
	Class     string  `csv:"class"`
}

func PredictionRows(result *ml.InferenceResult) []PredictionRow {
	rows := make([]PredictionRow, len(result.LonLatPred))
	for i, r := range result.LonLatPred {
		rows[i] = PredictionRow{
			Longitude: r[0],
			Latitude:  r[1],
			PNC:       r[2],
			NNI:       result.Predictions[i],
			Class:     NNIClass(result.Predictions[i]),
		}
	}
	return rows
}

func CreatePredictionCSV(result *ml.InferenceResult, outputPath string) (string, error) {
	if !strings.HasSuffix(outputPath, ".csv") {
		outputPath += ".csv"
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return "", fmt.Errorf("error creating result directory: %w", err)
	}

	file, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("error creating CSV file: %w", err)
	}
	defer file.Close()

	rows := PredictionRows(result)
	if err := gocsv.MarshalFile(&rows, file); err != nil {
		return "", fmt.Errorf("error writing CSV file: %w", err)
	}
	return outputPath, nil
}
