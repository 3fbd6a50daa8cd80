package delivery

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/harvest-ai/nni-research-cli/internal/cache"
	"github.com/harvest-ai/nni-research-cli/internal/dataset"
	"github.com/harvest-ai/nni-research-cli/internal/errs"
	"github.com/harvest-ai/nni-research-cli/internal/indexes"
	"github.com/harvest-ai/nni-research-cli/internal/ml"
	"github.com/harvest-ai/nni-research-cli/internal/sentinel"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testBands = map[sentinel.Band]float64{
	sentinel.BandBlue:    0.05,
	sentinel.BandGreen:   0.08,
	sentinel.BandRed:     0.04,
	sentinel.BandNIR:     0.4,
	sentinel.BandRedEdge: 0.15,
}

// uniformProvider returns a 10x10 constant composite over the polygon bound. Polygons starting
// east of failWestOf fail.
type uniformProvider struct {
	calls      atomic.Int32
	failWestOf float64
}

func (u *uniformProvider) Composite(_ context.Context, polygon orb.Polygon, params sentinel.CompositeParams) (*sentinel.Composite, error) {
	u.calls.Add(1)
	bound := polygon.Bound()
	if u.failWestOf != 0 && bound.Min.X() >= u.failWestOf {
		return nil, &errs.ProviderError{Op: "fake composite", Params: params.Describe(), Err: errors.New("no scenes")}
	}
	return sentinel.NewUniformComposite(10, 10, sentinel.GeoTransformForBound(bound, 10, 10), testBands), nil
}

func square(minX, minY, size float64) orb.Polygon {
	return orb.Polygon{orb.Ring{
		{minX, minY}, {minX + size, minY}, {minX + size, minY + size}, {minX, minY + size}, {minX, minY},
	}}
}

func testParams() ExtractParams {
	return ExtractParams{
		Composite: sentinel.CompositeParams{
			DateStart:   time.Date(2024, 8, 10, 0, 0, 0, 0, time.UTC),
			DateEnd:     time.Date(2024, 9, 29, 0, 0, 0, 0, time.UTC),
			MaxCloudPct: 40,
			RedEdge:     "B5",
			Strategy:    "median",
		},
		CellSizeM: 112000,
	}
}

// ndviEngine predicts PNC = 2 + NDVI.
func ndviEngine(t *testing.T) *ml.Engine {
	t.Helper()
	model := &ml.LinearModel{Intercept: 2}
	means := ml.TrainingMeans{}
	for _, name := range indexes.Names {
		model.Features = append(model.Features, name)
		coef := 0.0
		if name == "NDVI" {
			coef = 1
		}
		model.Coef = append(model.Coef, coef)
		means[name] = 0.5
	}
	require.NoError(t, model.Init())

	engine, err := ml.NewEngine(model, means)
	require.NoError(t, err)
	return engine
}

func TestEvaluateFieldUnitSquare(t *testing.T) {
	provider := &uniformProvider{}
	pipeline := NewPipeline(provider, nil)
	field := sentinel.Field{Farm: "test", ID: "1", Polygon: square(0, 0, 1)}

	result, err := pipeline.EvaluateField(context.Background(), field, testParams(), ndviEngine(t), ml.ConstantDryMatter(ml.DefaultDryMatter))
	require.NoError(t, err)

	require.Equal(t, 1, result.Matrix.Rows())
	_, cols := result.Matrix.Dims()
	assert.Equal(t, dataset.Width, cols)

	require.Len(t, result.Result.Predictions, 1)
	nni := result.Result.Predictions[0]
	assert.False(t, math.IsNaN(nni) || math.IsInf(nni, 0))

	ndvi := (0.4 - 0.04) / (0.44 + indexes.Epsilon)
	pnc := 2 + ndvi
	assert.InDelta(t, pnc, result.Result.LonLatPred[0][2], 1e-9)
	assert.InDelta(t, pnc/ml.NcWheat(ml.DefaultDryMatter), nni, 1e-9)
	// one cell slightly larger than the square, anchored at its south west corner
	assert.InDelta(t, 0.5, result.Result.LonLatPred[0][0], 0.05)
	assert.InDelta(t, 0.5, result.Result.LonLatPred[0][1], 0.05)
	assert.Equal(t, 0, result.Result.Meta.NaNCount)
	assert.Equal(t, int32(1), provider.calls.Load())
}

func TestExtractFeaturesUsesCache(t *testing.T) {
	provider := &uniformProvider{}
	pipeline := NewPipeline(provider, cache.NewFileCache[*dataset.FeatureMatrix](t.TempDir()))

	first, err := pipeline.ExtractFeatures(context.Background(), square(0, 0, 1), testParams())
	require.NoError(t, err)
	second, err := pipeline.ExtractFeatures(context.Background(), square(0, 0, 1), testParams())
	require.NoError(t, err)

	assert.Equal(t, int32(1), provider.calls.Load())
	assert.Equal(t, first.RawRows(), second.RawRows())

	// alias of the same strategy hits the same entry
	params := testParams()
	params.Composite.Strategy = "MEDIAN"
	_, err = pipeline.ExtractFeatures(context.Background(), square(0, 0, 1), params)
	require.NoError(t, err)
	assert.Equal(t, int32(1), provider.calls.Load())

	params.CellSizeM = 56000
	_, err = pipeline.ExtractFeatures(context.Background(), square(0, 0, 1), params)
	require.NoError(t, err)
	assert.Equal(t, int32(2), provider.calls.Load())
}

func TestExtractFeaturesRejectsBadInput(t *testing.T) {
	provider := &uniformProvider{}
	pipeline := NewPipeline(provider, nil)

	params := testParams()
	params.Composite.Strategy = "mean"
	_, err := pipeline.ExtractFeatures(context.Background(), square(0, 0, 1), params)
	require.ErrorIs(t, err, errs.ErrValidation)
	assert.Contains(t, err.Error(), `"mean"`)

	params = testParams()
	params.CellSizeM = 0
	_, err = pipeline.ExtractFeatures(context.Background(), square(0, 0, 1), params)
	require.ErrorIs(t, err, errs.ErrValidation)

	_, err = pipeline.ExtractFeatures(context.Background(), orb.Polygon{}, testParams())
	require.ErrorIs(t, err, errs.ErrValidation)

	assert.Equal(t, int32(0), provider.calls.Load())
}

func TestExtractFeaturesZeroAreaPolygon(t *testing.T) {
	provider := &uniformProvider{}
	pipeline := NewPipeline(provider, nil)

	line := orb.Polygon{orb.Ring{{0, 0}, {1, 0}, {2, 0}, {0, 0}}}
	matrix, err := pipeline.ExtractFeatures(context.Background(), line, testParams())
	require.NoError(t, err)
	rows, _ := matrix.Dims()
	assert.Equal(t, 0, rows)
	assert.Equal(t, int32(0), provider.calls.Load())
}

func TestEvaluateFieldProviderFailure(t *testing.T) {
	pipeline := NewPipeline(&uniformProvider{failWestOf: 10}, nil)
	field := sentinel.Field{ID: "7", Polygon: square(20, 0, 1)}

	_, err := pipeline.EvaluateField(context.Background(), field, testParams(), ndviEngine(t), nil)
	require.ErrorIs(t, err, errs.ErrProvider)

	var providerErr *errs.ProviderError
	require.ErrorAs(t, err, &providerErr)
	assert.Equal(t, "median", providerErr.Params["composite"])
	assert.Contains(t, err.Error(), "field 7")
}

func TestEvaluateFieldsCollectsFailures(t *testing.T) {
	pipeline := NewPipeline(&uniformProvider{failWestOf: 10}, nil)
	fields := []sentinel.Field{
		{ID: "1", Polygon: square(0, 0, 1)},
		{ID: "2", Polygon: square(20, 0, 1)},
		{ID: "3", Polygon: square(2, 0, 1)},
	}

	result := pipeline.EvaluateFields(context.Background(), fields, testParams(), ndviEngine(t), nil, 2)

	require.Len(t, result.Fields, 2)
	assert.Equal(t, "1", result.Fields[0].Field.ID)
	assert.Equal(t, "3", result.Fields[1].Field.ID)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "2", result.Failures[0].FieldID)
	assert.ErrorIs(t, &result.Failures[0], errs.ErrProvider)
}

func TestEvaluateFieldsCancelled(t *testing.T) {
	provider := &uniformProvider{}
	pipeline := NewPipeline(provider, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := pipeline.EvaluateFields(ctx, []sentinel.Field{{ID: "1", Polygon: square(0, 0, 1)}}, testParams(), ndviEngine(t), nil, 0)

	assert.Empty(t, result.Fields)
	require.Len(t, result.Failures, 1)
	assert.ErrorIs(t, result.Failures[0].Err, context.Canceled)
	assert.Equal(t, int32(0), provider.calls.Load())
}

func TestEvaluateFarm(t *testing.T) {
	root := t.TempDir()
	t.Setenv("ROOT_PATH", root)
	dir := filepath.Join(root, "data", "geojsons")
	require.NoError(t, os.MkdirAll(dir, 0755))
	farm := `{"type":"FeatureCollection","features":[
{"type":"Feature","properties":{"field_id":"b"},"geometry":{"type":"Polygon","coordinates":[[[2,0],[3,0],[3,1],[2,1],[2,0]]]}},
{"type":"Feature","properties":{"field_id":"a"},"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1],[0,0]]]}}
]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wheat.geojson"), []byte(farm), 0644))

	pipeline := NewPipeline(&uniformProvider{}, nil)
	result, err := pipeline.EvaluateFarm(context.Background(), "wheat", testParams(), ndviEngine(t), nil, 4)
	require.NoError(t, err)

	assert.Equal(t, "wheat", result.Farm)
	assert.Empty(t, result.Failures)
	require.Len(t, result.Fields, 2)
	assert.Equal(t, "a", result.Fields[0].Field.ID)
	assert.Equal(t, "b", result.Fields[1].Field.ID)

	_, err = pipeline.EvaluateFarm(context.Background(), "missing", testParams(), ndviEngine(t), nil, 4)
	require.Error(t, err)
}
