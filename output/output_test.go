package output

import (
	"bytes"
	"encoding/json"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gocarina/gocsv"
	"github.com/harvest-ai/nni-research-cli/internal/ml"
	"github.com/harvest-ai/nni-research-cli/internal/properties"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sampleResult is a 2x2 grid, the north east cell without a prediction.
func sampleResult() *ml.InferenceResult {
	return &ml.InferenceResult{
		Predictions: []float64{0.5, 0.9, 1.0, math.NaN()},
		LonLatPred: [][3]float64{
			{10.0, 45.0, 1.1},
			{10.1, 45.0, 2.0},
			{10.0, 45.1, 2.2},
			{10.1, 45.1, math.NaN()},
		},
		Meta: ml.Metadata{N: 4, FeaturesUsed: 43, InputShape: [2]int{4, 45}, FeatureSlice: ml.FeatureSlice, NonFiniteNNI: 1},
	}
}

func TestNNIClass(t *testing.T) {
	tests := []struct {
		nni  float64
		want string
	}{
		{0.5, ClassDeficient},
		{0.8, ClassLow},
		{0.95, ClassOptimal},
		{1.05, ClassOptimal},
		{1.3, ClassExcess},
		{math.NaN(), ClassUnknown},
		{math.Inf(1), ClassUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NNIClass(tt.nni), "nni %v", tt.nni)
	}
}

func TestCreatePredictionGeoJSON(t *testing.T) {
	path, err := CreatePredictionGeoJSON(sampleResult(), filepath.Join(t.TempDir(), "field"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, ".geojson"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	fc, err := geojson.UnmarshalFeatureCollection(data)
	require.NoError(t, err)
	require.Len(t, fc.Features, 4)

	assert.Equal(t, orb.Point{10.1, 45.0}, fc.Features[1].Geometry)
	assert.Equal(t, 0.9, fc.Features[1].Properties["nni"])
	assert.Equal(t, ClassLow, fc.Features[1].Properties["class"])
	assert.Nil(t, fc.Features[3].Properties["nni"])
	assert.Nil(t, fc.Features[3].Properties["pnc"])
	assert.Equal(t, ClassUnknown, fc.Features[3].Properties["class"])
}

func TestCreatePredictionCSV(t *testing.T) {
	path, err := CreatePredictionCSV(sampleResult(), filepath.Join(t.TempDir(), "out", "field.csv"))
	require.NoError(t, err)

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	var rows []PredictionRow
	require.NoError(t, gocsv.UnmarshalFile(file, &rows))
	require.Len(t, rows, 4)
	assert.Equal(t, 10.0, rows[0].Longitude)
	assert.Equal(t, 2.2, rows[2].PNC)
	assert.Equal(t, ClassDeficient, rows[0].Class)
	assert.True(t, math.IsNaN(rows[3].NNI))
}

func TestWriteEnvelope(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteEnvelope(&buf, sampleResult()))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, []interface{}{10.0, 10.1, 10.0, 10.1}, decoded["lon"])
	assert.Equal(t, []interface{}{0.5, 0.9, 1.0, nil}, decoded["pred"])

	meta := decoded["meta"].(map[string]interface{})
	assert.Equal(t, 4.0, meta["n"])
	assert.Equal(t, "X[:, 2:45]", meta["feature_slice"])
	assert.Equal(t, 1.0, meta["non_finite_nni"])
}

func TestCreateNNIImage(t *testing.T) {
	path, err := CreateNNIImage(sampleResult(), filepath.Join(t.TempDir(), "field"))
	require.NoError(t, err)

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()
	img, err := png.Decode(file)
	require.NoError(t, err)

	bounds := img.Bounds()
	assert.Equal(t, 140, bounds.Dx())
	assert.Equal(t, 2*cellPixels+10+len(legendClasses)*legendSpacing, bounds.Dy())

	// south west cell sits bottom left of the map
	r, g, b, _ := img.At(cellPixels/2, cellPixels+cellPixels/2).RGBA()
	want := properties.NNIColorMap[ClassDeficient]
	assert.Equal(t, []uint32{uint32(want.R), uint32(want.G), uint32(want.B)}, []uint32{r >> 8, g >> 8, b >> 8})

	// north east cell has no prediction
	r, g, b, _ = img.At(cellPixels+cellPixels/2, cellPixels/2).RGBA()
	want = properties.NNIColorMap[ClassUnknown]
	assert.Equal(t, []uint32{uint32(want.R), uint32(want.G), uint32(want.B)}, []uint32{r >> 8, g >> 8, b >> 8})

	_, err = CreateNNIImage(&ml.InferenceResult{}, filepath.Join(t.TempDir(), "empty"))
	require.Error(t, err)
}

func TestSaveAll(t *testing.T) {
	base := filepath.Join(t.TempDir(), "farm", "field_1")
	paths, err := SaveAll(sampleResult(), base)
	require.NoError(t, err)
	assert.Equal(t, []string{base + ".geojson", base + ".csv", base + ".png", base + ".json"}, paths)
	for _, p := range paths {
		assert.FileExists(t, p)
	}

	empty := &ml.InferenceResult{Predictions: []float64{}, LonLatPred: [][3]float64{}}
	paths, err = SaveAll(empty, filepath.Join(t.TempDir(), "empty"))
	require.NoError(t, err)
	assert.Len(t, paths, 3)
}
