package dataset

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/harvest-ai/nni-research-cli/internal/errs"
	"github.com/harvest-ai/nni-research-cli/internal/grid"
	"github.com/harvest-ai/nni-research-cli/internal/indexes"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cellWith(lon, lat, v float64) grid.Cell {
	cell := grid.Cell{Centroid: orb.Point{lon, lat}, Pixels: 1}
	for k := range cell.Values {
		cell.Values[k] = v + float64(k)
	}
	return cell
}

func TestColumnsLayout(t *testing.T) {
	require.Len(t, Columns, 45)
	assert.Equal(t, "lon", Columns[LonColumn])
	assert.Equal(t, "lat", Columns[LatColumn])
	assert.Equal(t, "BNDVI", Columns[FirstIndexColumn])
	assert.Equal(t, "WDRVI", Columns[Width-1])
}

func TestBuildFeatureMatrixFromCells(t *testing.T) {
	cells := []grid.Cell{cellWith(10.1, 45.2, 0), cellWith(10.2, 45.3, 100)}

	m, err := BuildFeatureMatrix(RowsFromCells(cells))
	require.NoError(t, err)

	rows, cols := m.Dims()
	assert.Equal(t, 2, rows)
	assert.Equal(t, 45, cols)
	assert.Equal(t, Columns, m.Columns())

	assert.Equal(t, 10.2, m.At(1, LonColumn))
	assert.Equal(t, 45.3, m.At(1, LatColumn))
	assert.Equal(t, 100.0, m.At(1, FirstIndexColumn))
	assert.Equal(t, 142.0, m.At(1, Width-1))
	assert.Equal(t, []float64{10.1, 10.2}, m.Column(LonColumn))
}

func TestRowsFromCellsCopiesValues(t *testing.T) {
	cells := []grid.Cell{cellWith(0, 0, 1)}
	rows := RowsFromCells(cells)
	cells[0].Values[0] = 99
	assert.Equal(t, 1.0, rows[0].Indexes[0])
	assert.Len(t, rows[0].Indexes, indexes.Count)
}

func TestBuildFeatureMatrixRejectsShortIndexVector(t *testing.T) {
	rows := []FeatureRow{{Longitude: 1, Latitude: 2, Indexes: make([]float64, indexes.Count-1)}}
	_, err := BuildFeatureMatrix(rows)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrInternalConsistency)
}

func TestBuildFeatureMatrixEmpty(t *testing.T) {
	m, err := BuildFeatureMatrix(nil)
	require.NoError(t, err)
	rows, cols := m.Dims()
	assert.Equal(t, 0, rows)
	assert.Equal(t, Width, cols)
	assert.Nil(t, m.Dense())
	assert.Empty(t, m.RawRows())
	assert.Nil(t, m.Column(0))
}

func TestFromRowsRejectsRaggedRows(t *testing.T) {
	_, err := FromRows([][]float64{{1, 2, 3}, {1, 2}}, []string{"a", "b", "c"})
	var shapeErr *errs.ShapeError
	require.ErrorAs(t, err, &shapeErr)
	assert.Equal(t, 3, shapeErr.Cols)
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestFromRowsDefaultsToCanonicalColumns(t *testing.T) {
	row := make([]float64, Width)
	m, err := FromRows([][]float64{row}, nil)
	require.NoError(t, err)
	assert.Equal(t, Columns, m.Columns())

	_, err = FromRows([][]float64{{1, 2}}, nil)
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestFeatureMatrixJSONKeepsMissingValues(t *testing.T) {
	cell := cellWith(1, 2, 0)
	cell.Values[3] = math.NaN()
	m, err := BuildFeatureMatrix(RowsFromCells([]grid.Cell{cell}))
	require.NoError(t, err)

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Contains(t, string(data), "null")

	var decoded FeatureMatrix
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, Columns, decoded.Columns())
	assert.True(t, math.IsNaN(decoded.At(0, FirstIndexColumn+3)))
	assert.Equal(t, 4.0, decoded.At(0, FirstIndexColumn+4))
	assert.Equal(t, 1.0, decoded.At(0, LonColumn))
}
