// Package dataset assembles sampled grid cells into the feature matrix consumed by the model.
package dataset

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/harvest-ai/nni-research-cli/internal/errs"
	"github.com/harvest-ai/nni-research-cli/internal/grid"
	"github.com/harvest-ai/nni-research-cli/internal/indexes"
	"gonum.org/v1/gonum/mat"
)

const (
	LonColumn        = 0
	LatColumn        = 1
	FirstIndexColumn = 2
	// Width is the column count of a feature matrix: lon, lat and every index.
	Width = FirstIndexColumn + indexes.Count
)

// Columns is the canonical column layout.
var Columns = append([]string{"lon", "lat"}, indexes.Names[:]...)

type FeatureRow struct {
	Longitude float64
	Latitude  float64
	Indexes   []float64
}

// FeatureMatrix is an N x 45 (or wider) numeric table. N may be zero, in which case Dense is nil.
type FeatureMatrix struct {
	columns []string
	data    *mat.Dense
}

func RowsFromCells(cells []grid.Cell) []FeatureRow {
	rows := make([]FeatureRow, len(cells))
	for i, cell := range cells {
		values := make([]float64, indexes.Count)
		copy(values, cell.Values[:])
		rows[i] = FeatureRow{Longitude: cell.Centroid.X(), Latitude: cell.Centroid.Y(), Indexes: values}
	}
	return rows
}

func BuildFeatureMatrix(rows []FeatureRow) (*FeatureMatrix, error) {
	if len(rows) == 0 {
		return &FeatureMatrix{columns: Columns}, nil
	}

	data := make([]float64, 0, len(rows)*Width)
	for i, row := range rows {
		if len(row.Indexes) != indexes.Count {
			return nil, errs.Inconsistencyf("row %d has %d index values, expected %d", i, len(row.Indexes), indexes.Count)
		}
		data = append(data, row.Longitude, row.Latitude)
		data = append(data, row.Indexes...)
	}
	return &FeatureMatrix{columns: Columns, data: mat.NewDense(len(rows), Width, data)}, nil
}

// FromRows builds a matrix from raw rows. A nil columns slice means the canonical layout.
func FromRows(rows [][]float64, columns []string) (*FeatureMatrix, error) {
	if columns == nil {
		columns = Columns
	}
	if len(columns) == 0 {
		return nil, &errs.ShapeError{Rows: len(rows), Cols: 0, Reason: "no columns"}
	}

	data := make([]float64, 0, len(rows)*len(columns))
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, &errs.ShapeError{
				Rows:   len(rows),
				Cols:   len(columns),
				Reason: fmt.Sprintf("row %d has %d values", i, len(row)),
			}
		}
		data = append(data, row...)
	}

	m := &FeatureMatrix{columns: append([]string(nil), columns...)}
	if len(rows) > 0 {
		m.data = mat.NewDense(len(rows), len(columns), data)
	}
	return m, nil
}

func (m *FeatureMatrix) Dims() (int, int) {
	if m.data == nil {
		return 0, len(m.columns)
	}
	return m.data.Dims()
}

func (m *FeatureMatrix) Rows() int {
	r, _ := m.Dims()
	return r
}

func (m *FeatureMatrix) Columns() []string {
	return append([]string(nil), m.columns...)
}

// Dense exposes the backing matrix. It is nil for an empty matrix and must not be mutated.
func (m *FeatureMatrix) Dense() *mat.Dense {
	return m.data
}

func (m *FeatureMatrix) At(i, j int) float64 {
	return m.data.At(i, j)
}

func (m *FeatureMatrix) Row(i int) []float64 {
	return mat.Row(nil, i, m.data)
}

// Column returns a copy of column j, or nil for an empty matrix.
func (m *FeatureMatrix) Column(j int) []float64 {
	if m.data == nil {
		return nil
	}
	return mat.Col(nil, j, m.data)
}

func (m *FeatureMatrix) RawRows() [][]float64 {
	rows := make([][]float64, m.Rows())
	for i := range rows {
		rows[i] = m.Row(i)
	}
	return rows
}

type featureMatrixJSON struct {
	Columns []string     `json:"columns"`
	Rows    [][]*float64 `json:"rows"`
}

// MarshalJSON writes non-finite values as null.
func (m *FeatureMatrix) MarshalJSON() ([]byte, error) {
	out := featureMatrixJSON{Columns: m.columns, Rows: make([][]*float64, m.Rows())}
	for i := range out.Rows {
		row := m.Row(i)
		out.Rows[i] = make([]*float64, len(row))
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			out.Rows[i][j] = &row[j]
		}
	}
	return json.Marshal(out)
}

func (m *FeatureMatrix) UnmarshalJSON(data []byte) error {
	var in featureMatrixJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	rows := make([][]float64, len(in.Rows))
	for i, row := range in.Rows {
		rows[i] = make([]float64, len(row))
		for j, v := range row {
			if v == nil {
				rows[i][j] = math.NaN()
				continue
			}
			rows[i][j] = *v
		}
	}
	parsed, err := FromRows(rows, in.Columns)
	if err != nil {
		return err
	}
	*m = *parsed
	return nil
}
