package cache

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/harvest-ai/nni-research-cli/internal/dataset"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileCacheStoresFeatureMatrices(t *testing.T) {
	fc := NewFileCache[*dataset.FeatureMatrix](t.TempDir())

	row := make([]float64, dataset.Width)
	row[0], row[1] = 37.61, 55.75
	row[5] = math.NaN()
	m, err := dataset.FromRows([][]float64{row}, nil)
	require.NoError(t, err)

	_, ok := fc.Get("missing")
	assert.False(t, ok)

	require.NoError(t, fc.Set("field", m))
	got, ok := fc.Get("field")
	require.True(t, ok)
	assert.Equal(t, m.Columns(), got.Columns())
	assert.Equal(t, 37.61, got.At(0, 0))
	assert.True(t, math.IsNaN(got.At(0, 5)))
}

func TestFileCacheRejectsTamperedEntries(t *testing.T) {
	dir := t.TempDir()
	fc := NewFileCache[map[string]int](dir)
	require.NoError(t, fc.Set("k", map[string]int{"a": 1}))

	path := filepath.Join(dir, "k.json")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	tampered := []byte(string(data[:len(data)/2]) + "x" + string(data[len(data)/2+1:]))
	require.NoError(t, os.WriteFile(path, tampered, 0644))

	_, ok := fc.Get("k")
	assert.False(t, ok)
}

func TestFileCacheMaxAge(t *testing.T) {
	fc := NewFileCache[string](t.TempDir())
	require.NoError(t, fc.Set("k", "v"))

	fc.MaxAge = time.Hour
	got, ok := fc.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", got)

	fc.MaxAge = time.Nanosecond
	time.Sleep(time.Millisecond)
	_, ok = fc.Get("k")
	assert.False(t, ok)
}

func TestPolygonKey(t *testing.T) {
	a := orb.Polygon{{{0, 0}, {0, 1}, {1, 1}, {0, 0}}}
	b := orb.Polygon{{{0, 0}, {0, 2}, {1, 1}, {0, 0}}}

	assert.Equal(t, PolygonKey(a, "median", 20), PolygonKey(a, "median", 20))
	assert.NotEqual(t, PolygonKey(a, "median", 20), PolygonKey(b, "median", 20))
	assert.NotEqual(t, PolygonKey(a, "median", 20), PolygonKey(a, "median", 10))
	assert.Len(t, PolygonKey(a), 40)
}
