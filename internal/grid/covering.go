package grid

import (
	"math"

	"github.com/harvest-ai/nni-research-cli/internal/errs"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Provider tiles a polygon with square ground cells.
type Provider interface {
	CoveringGrid(polygon orb.Polygon, cellSizeM float64) ([]orb.Bound, error)
}

// Planar tiles in lon/lat, converting the cell size to degrees at the polygon's mid latitude.
// The grid is anchored at the south-west corner of the polygon bound and keeps every cell that
// overlaps the polygon with positive area.
type Planar struct{}

func (Planar) CoveringGrid(polygon orb.Polygon, cellSizeM float64) ([]orb.Bound, error) {
	if cellSizeM <= 0 || math.IsNaN(cellSizeM) || math.IsInf(cellSizeM, 0) {
		return nil, errs.Validationf("cell size must be positive, got %v", cellSizeM)
	}
	if degenerate(polygon) {
		return nil, nil
	}

	bound := polygon.Bound()
	stepLon, stepLat, err := CellSizeDegrees(cellSizeM, (bound.Min.Y()+bound.Max.Y())/2)
	if err != nil {
		return nil, err
	}

	cols := steps(bound.Max.X()-bound.Min.X(), stepLon)
	rows := steps(bound.Max.Y()-bound.Min.Y(), stepLat)

	var cells []orb.Bound
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			sw := orb.Point{bound.Min.X() + float64(col)*stepLon, bound.Min.Y() + float64(row)*stepLat}
			cell := orb.Bound{Min: sw, Max: orb.Point{sw.X() + stepLon, sw.Y() + stepLat}}
			if intersects(polygon, cell) {
				cells = append(cells, cell)
			}
		}
	}
	return cells, nil
}

// CellSizeDegrees converts a ground distance to degrees of longitude and latitude at lat.
func CellSizeDegrees(meters, lat float64) (float64, float64, error) {
	phi := lat * math.Pi / 180
	metersPerDegLat := 111132.92 - 559.82*math.Cos(2*phi)
	metersPerDegLon := 111412.84 * math.Cos(phi)
	if metersPerDegLon < 1 {
		return 0, 0, errs.Validationf("latitude %v is too close to a pole for a planar grid", lat)
	}
	return meters / metersPerDegLon, meters / metersPerDegLat, nil
}

func steps(extent, step float64) int {
	n := int(math.Ceil(extent/step - 1e-9))
	if n < 1 {
		return 1
	}
	return n
}

func degenerate(polygon orb.Polygon) bool {
	return len(polygon) == 0 || len(polygon[0]) < 4 || math.Abs(planar.Area(polygon)) == 0
}

// intersects reports whether cell and polygon share a positive area. Contact along an edge or at
// a corner does not count. Overlaps thinner than a billionth of the cell are ignored so cells
// sharing an edge with the polygon are not kept on rounding noise.
func intersects(polygon orb.Polygon, cell orb.Bound) bool {
	eps := 1e-9 * math.Max(cell.Max.X()-cell.Min.X(), cell.Max.Y()-cell.Min.Y())
	inner := orb.Bound{
		Min: orb.Point{cell.Min.X() + eps, cell.Min.Y() + eps},
		Max: orb.Point{cell.Max.X() - eps, cell.Max.Y() - eps},
	}
	for _, ring := range polygon {
		for i := 0; i+1 < len(ring); i++ {
			if crossesInterior(ring[i], ring[i+1], inner) {
				return true
			}
		}
	}
	// no boundary inside the cell: it lies wholly inside or wholly outside
	return planar.PolygonContains(polygon, cell.Center())
}

// crossesInterior clips segment ab to box and reports whether any of it runs through the open
// interior of box.
func crossesInterior(a, b orb.Point, box orb.Bound) bool {
	dx, dy := b.X()-a.X(), b.Y()-a.Y()
	t0, t1 := 0.0, 1.0
	clip := func(p, q float64) bool {
		if p == 0 {
			return q >= 0
		}
		r := q / p
		if p < 0 {
			if r > t1 {
				return false
			}
			t0 = math.Max(t0, r)
		} else {
			if r < t0 {
				return false
			}
			t1 = math.Min(t1, r)
		}
		return true
	}
	if !clip(-dx, a.X()-box.Min.X()) || !clip(dx, box.Max.X()-a.X()) ||
		!clip(-dy, a.Y()-box.Min.Y()) || !clip(dy, box.Max.Y()-a.Y()) {
		return false
	}
	if t1 <= t0 {
		return false
	}
	t := (t0 + t1) / 2
	x, y := a.X()+t*dx, a.Y()+t*dy
	return x > box.Min.X() && x < box.Max.X() && y > box.Min.Y() && y < box.Max.Y()
}
