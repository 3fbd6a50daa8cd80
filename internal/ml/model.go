package ml

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/harvest-ai/nni-research-cli/internal/errs"
	"github.com/harvest-ai/nni-research-cli/internal/indexes"
	"gonum.org/v1/gonum/mat"
)

// Table is the N x 43 feature block handed to a model, columns in canonical index order.
type Table struct {
	Columns []string
	Data    *mat.Dense
}

func (t Table) Rows() int {
	if t.Data == nil {
		return 0
	}
	r, _ := t.Data.Dims()
	return r
}

// RegressionModel predicts plant nitrogen concentration (%N) per row. Implementations must be safe
// for concurrent use.
type RegressionModel interface {
	Predict(ctx context.Context, table Table) ([]float64, error)
}

// CanonicalFeatureName resolves an index name or its positional alias VI.k (1-based) to the
// canonical index name.
func CanonicalFeatureName(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if _, ok := indexes.Position(name); ok {
		return name, true
	}
	if rest, ok := strings.CutPrefix(strings.ToUpper(name), "VI."); ok {
		k, err := strconv.Atoi(rest)
		if err == nil && k >= 1 && k <= indexes.Count {
			return indexes.Names[k-1], true
		}
	}
	return "", false
}

// TrainingMeans maps every canonical index name to its training set mean. Read-only once loaded.
type TrainingMeans map[string]float64

func (m TrainingMeans) Validate() error {
	var missing []string
	for _, name := range indexes.Names {
		if _, ok := m[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return errs.Validationf("training means are missing %d features: %s", len(missing), strings.Join(missing, ", "))
	}
	return nil
}

// Vector returns the means in canonical order.
func (m TrainingMeans) Vector() [indexes.Count]float64 {
	var v [indexes.Count]float64
	for i, name := range indexes.Names {
		v[i] = m[name]
	}
	return v
}

type featureMean struct {
	Feature string  `csv:"feature"`
	Mean    float64 `csv:"mean"`
}

// LoadTrainingMeans reads a JSON object or a feature,mean CSV file.
func LoadTrainingMeans(path string) (TrainingMeans, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open training means: %w", err)
	}
	defer file.Close()

	raw := map[string]float64{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		var rows []featureMean
		if err := gocsv.UnmarshalFile(file, &rows); err != nil {
			return nil, fmt.Errorf("failed to read training means csv: %w", err)
		}
		for _, row := range rows {
			raw[row.Feature] = row.Mean
		}
	case ".json":
		if err := json.NewDecoder(file).Decode(&raw); err != nil {
			return nil, fmt.Errorf("failed to read training means json: %w", err)
		}
	default:
		return nil, errs.Validationf("unsupported training means format %q, use .json or .csv", filepath.Ext(path))
	}

	means, err := NewTrainingMeans(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return means, nil
}

// NewTrainingMeans canonicalizes feature names and checks every index has a mean.
func NewTrainingMeans(raw map[string]float64) (TrainingMeans, error) {
	means := make(TrainingMeans, len(raw))
	for name, v := range raw {
		canonical, ok := CanonicalFeatureName(name)
		if !ok {
			return nil, errs.Validationf("unknown feature %q in training means", name)
		}
		means[canonical] = v
	}
	if err := means.Validate(); err != nil {
		return nil, err
	}
	return means, nil
}

// LoadModel opens a model by kind: "linear" reads a ridge artifact from disk, "grpc" connects to a
// model server at location.
func LoadModel(kind, location string) (RegressionModel, error) {
	switch strings.ToLower(kind) {
	case "linear":
		return LoadLinearModel(location)
	case "grpc":
		return DialModel(location)
	}
	return nil, errs.Validationf("unknown model kind %q, use 'linear' or 'grpc'", kind)
}
