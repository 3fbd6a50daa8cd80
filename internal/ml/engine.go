package ml

import (
	"context"
	"fmt"
	"math"

	"github.com/harvest-ai/nni-research-cli/internal/dataset"
	"github.com/harvest-ai/nni-research-cli/internal/errs"
	"github.com/harvest-ai/nni-research-cli/internal/indexes"
	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
)

// Wheat critical nitrogen curve Nc = a * DM^-b, DM in t/ha.
const (
	NcA = 5.35
	NcB = 0.442

	DefaultDryMatter = 18.16
	FeatureSlice     = "X[:, 2:45]"
)

// Metadata describes one inference run. NaNAfterImpute counts values left non-finite because their
// training mean is not finite.
type Metadata struct {
	N              int    `json:"n"`
	FeaturesUsed   int    `json:"features_used"`
	NaNCount       int    `json:"nan_count"`
	InputShape     [2]int `json:"input_shape"`
	FeatureSlice   string `json:"feature_slice"`
	NaNAfterImpute int    `json:"nan_after_impute"`
	NonFiniteNNI   int    `json:"non_finite_nni"`
}

// InferenceResult holds one NNI per row. LonLatPred carries the raw PNC prediction, not the NNI.
type InferenceResult struct {
	Predictions []float64
	LonLatPred  [][3]float64
	Meta        Metadata
}

// Validate checks the matrix has at least 45 columns and slices the 43 feature columns out of m. The returned
// features are a copy and may be imputed in place. Features is nil when m has no rows.
func Validate(m *dataset.FeatureMatrix) ([]float64, []float64, *mat.Dense, error) {
	if m == nil {
		return nil, nil, nil, &errs.ShapeError{Reason: "no feature matrix"}
	}
	rows, cols := m.Dims()
	if cols < dataset.Width {
		return nil, nil, nil, &errs.ShapeError{Rows: rows, Cols: cols, Reason: fmt.Sprintf("expected at least %d columns (lon, lat + %d indices)", dataset.Width, indexes.Count)}
	}
	if !canonicalLayout(m.Columns()) {
		log.WithField("columns", cols).Debug("[Inference] non canonical column labels, slicing by position")
	}
	if rows == 0 {
		return []float64{}, []float64{}, nil, nil
	}

	dense := m.Dense()
	lon := mat.Col(nil, dataset.LonColumn, dense)
	lat := mat.Col(nil, dataset.LatColumn, dense)
	features := mat.DenseCopyOf(dense.Slice(0, rows, dataset.FirstIndexColumn, dataset.Width))
	return lon, lat, features, nil
}

// canonicalLayout reports whether columns are labelled lon, lat and the indices in order. Labels
// are informational only: columns are always read by position.
func canonicalLayout(columns []string) bool {
	if columns[dataset.LonColumn] != "lon" || columns[dataset.LatColumn] != "lat" {
		return false
	}
	for k, name := range indexes.Names {
		if canonical, ok := CanonicalFeatureName(columns[dataset.FirstIndexColumn+k]); !ok || canonical != name {
			return false
		}
	}
	return true
}

// Impute replaces non-finite features with the training mean of their column and returns how many
// values were replaced.
func Impute(features *mat.Dense, means TrainingMeans) int {
	if features == nil {
		return 0
	}
	vector := means.Vector()
	rows, _ := features.Dims()
	count := 0
	for k := range indexes.Names {
		for i := 0; i < rows; i++ {
			if v := features.At(i, k); math.IsNaN(v) || math.IsInf(v, 0) {
				features.Set(i, k, vector[k])
				count++
			}
		}
	}
	return count
}

// NcWheat is the critical nitrogen concentration (%N) at dm t/ha. Non-positive or non-finite dry
// matter yields NaN.
func NcWheat(dm float64) float64 {
	if !(dm > 0) || math.IsInf(dm, 0) {
		return math.NaN()
	}
	return NcA * math.Pow(dm, -NcB)
}

// DryMatter supplies the biomass for each prediction.
type DryMatter interface {
	valuesFor(n int) ([]float64, error)
}

type ConstantDryMatter float64

func (d ConstantDryMatter) valuesFor(n int) ([]float64, error) {
	values := make([]float64, n)
	for i := range values {
		values[i] = float64(d)
	}
	return values, nil
}

type PerSampleDryMatter []float64

func (d PerSampleDryMatter) valuesFor(n int) ([]float64, error) {
	if len(d) != n {
		return nil, errs.Validationf("dry matter has %d values for %d predictions", len(d), n)
	}
	return d, nil
}

// Normalize turns PNC predictions into NNI = PNC / Nc(DM).
func Normalize(pnc []float64, dm DryMatter) ([]float64, error) {
	if dm == nil {
		dm = ConstantDryMatter(DefaultDryMatter)
	}
	values, err := dm.valuesFor(len(pnc))
	if err != nil {
		return nil, err
	}
	nni := make([]float64, len(pnc))
	for i, p := range pnc {
		nni[i] = p / NcWheat(values[i])
	}
	return nni, nil
}

// Engine holds the loaded model and training means. Both are read-only, so one Engine serves
// concurrent requests.
type Engine struct {
	model RegressionModel
	means TrainingMeans
}

func NewEngine(model RegressionModel, means TrainingMeans) (*Engine, error) {
	if model == nil {
		return nil, errs.Validationf("no regression model")
	}
	if err := means.Validate(); err != nil {
		return nil, err
	}
	return &Engine{model: model, means: means}, nil
}

// Predict runs the model over an imputed N x 43 block.
func (e *Engine) Predict(ctx context.Context, features *mat.Dense) ([]float64, error) {
	if features == nil {
		return []float64{}, nil
	}
	rows, cols := features.Dims()
	if cols != indexes.Count {
		return nil, &errs.ShapeError{Rows: rows, Cols: cols, Reason: fmt.Sprintf("expected %d feature columns", indexes.Count)}
	}

	preds, err := e.model.Predict(ctx, Table{Columns: indexes.Names[:], Data: features})
	if err != nil {
		return nil, fmt.Errorf("model prediction failed: %w", err)
	}
	if len(preds) != rows {
		return nil, &errs.InferenceCountMismatch{Got: len(preds), Want: rows}
	}
	return preds, nil
}

func (e *Engine) Infer(ctx context.Context, m *dataset.FeatureMatrix, dm DryMatter) (*InferenceResult, error) {
	lon, lat, features, err := Validate(m)
	if err != nil {
		return nil, err
	}
	rows, cols := m.Dims()

	nanCount := Impute(features, e.means)
	nanAfter := 0
	if features != nil {
		nanAfter = countNonFinite(features.RawMatrix().Data)
	}

	pnc, err := e.Predict(ctx, features)
	if err != nil {
		return nil, err
	}
	nni, err := Normalize(pnc, dm)
	if err != nil {
		return nil, err
	}

	lonLatPred := make([][3]float64, rows)
	for i := range lonLatPred {
		lonLatPred[i] = [3]float64{lon[i], lat[i], pnc[i]}
	}

	meta := Metadata{
		N:              rows,
		FeaturesUsed:   indexes.Count,
		NaNCount:       nanCount,
		InputShape:     [2]int{rows, cols},
		FeatureSlice:   FeatureSlice,
		NaNAfterImpute: nanAfter,
		NonFiniteNNI:   countNonFinite(nni),
	}
	entry := log.WithFields(log.Fields{"n": rows, "nan_count": nanCount, "non_finite_nni": meta.NonFiniteNNI})
	if nanAfter > 0 || meta.NonFiniteNNI > 0 {
		entry.Warnf("[Inference] %v: %d features without a finite training mean", errs.ErrNumericDegeneracy, nanAfter)
	} else {
		entry.Debug("[Inference] done")
	}

	return &InferenceResult{Predictions: nni, LonLatPred: lonLatPred, Meta: meta}, nil
}

// Infer validates, imputes, predicts and normalizes m in one call.
func Infer(ctx context.Context, m *dataset.FeatureMatrix, model RegressionModel, means TrainingMeans, dm DryMatter) (*InferenceResult, error) {
	engine, err := NewEngine(model, means)
	if err != nil {
		return nil, err
	}
	return engine.Infer(ctx, m, dm)
}

func countNonFinite(values []float64) int {
	count := 0
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			count++
		}
	}
	return count
}
