package ml

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/harvest-ai/nni-research-cli/internal/errs"
	"gonum.org/v1/gonum/mat"
)

// LinearModel is a standardized ridge pipeline exported as JSON:
//
//	pred = intercept + sum_j coef[j] * (x[j] - scaler_mean[j]) / scaler_scale[j]
type LinearModel struct {
	Features    []string  `json:"features"`
	ScalerMean  []float64 `json:"scaler_mean"`
	ScalerScale []float64 `json:"scaler_scale"`
	Coef        []float64 `json:"coef"`
	Intercept   float64   `json:"intercept"`

	// folded scaler: pred = bias + sum weights[name] * x[name]
	weights map[string]float64
	bias    float64
}

func LoadLinearModel(path string) (*LinearModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model artifact: %w", err)
	}
	var m LinearModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse model artifact %s: %w", path, err)
	}
	if err := m.Init(); err != nil {
		return nil, fmt.Errorf("model artifact %s: %w", path, err)
	}
	return &m, nil
}

// Init validates the artifact and folds the scaler into the coefficients. It must run before Predict.
func (m *LinearModel) Init() error {
	n := len(m.Features)
	if n == 0 || len(m.Coef) != n {
		return errs.Validationf("model has %d features and %d coefficients", n, len(m.Coef))
	}
	if m.ScalerMean == nil {
		m.ScalerMean = make([]float64, n)
	}
	if m.ScalerScale == nil {
		m.ScalerScale = make([]float64, n)
		for i := range m.ScalerScale {
			m.ScalerScale[i] = 1
		}
	}
	if len(m.ScalerMean) != n || len(m.ScalerScale) != n {
		return errs.Validationf("scaler has %d means and %d scales for %d features", len(m.ScalerMean), len(m.ScalerScale), n)
	}

	m.weights = make(map[string]float64, n)
	m.bias = m.Intercept
	for j, name := range m.Features {
		canonical, ok := CanonicalFeatureName(name)
		if !ok {
			return errs.Validationf("model uses unknown feature %q", name)
		}
		scale := m.ScalerScale[j]
		// zero variance features are left unscaled
		if scale == 0 {
			scale = 1
		}
		w := m.Coef[j] / scale
		m.weights[canonical] += w
		m.bias -= w * m.ScalerMean[j]
	}
	return nil
}

func (m *LinearModel) Predict(ctx context.Context, table Table) ([]float64, error) {
	if m.weights == nil {
		return nil, errs.Inconsistencyf("linear model used before Init")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows := table.Rows()
	if rows == 0 {
		return []float64{}, nil
	}
	_, cols := table.Data.Dims()
	if cols != len(table.Columns) {
		return nil, &errs.ShapeError{Rows: rows, Cols: cols, Reason: fmt.Sprintf("%d column names", len(table.Columns))}
	}

	weights := mat.NewVecDense(cols, nil)
	matched := 0
	for j, name := range table.Columns {
		canonical, ok := CanonicalFeatureName(name)
		if !ok {
			continue
		}
		if w, ok := m.weights[canonical]; ok {
			weights.SetVec(j, w)
			matched++
		}
	}
	if matched != len(m.weights) {
		return nil, errs.Validationf("table provides %d of the %d model features", matched, len(m.weights))
	}

	var out mat.VecDense
	out.MulVec(table.Data, weights)
	preds := make([]float64, rows)
	for i := range preds {
		preds[i] = out.AtVec(i) + m.bias
	}
	return preds, nil
}
