package grid

import (
	"math"

	"github.com/harvest-ai/nni-research-cli/internal/errs"
	"github.com/paulmach/orb"
)

// NewPolygon builds a field boundary from [lon, lat] pairs. The ring is closed when the caller
// left it open.
func NewPolygon(coords [][]float64) (orb.Polygon, error) {
	ring := make(orb.Ring, 0, len(coords)+1)
	distinct := make(map[orb.Point]struct{}, len(coords))
	for i, c := range coords {
		if len(c) != 2 {
			return nil, errs.Validationf("point %d must be [lon, lat], got %d values", i, len(c))
		}
		lon, lat := c[0], c[1]
		if math.IsNaN(lon) || math.IsNaN(lat) || lon < -180 || lon > 180 || lat < -90 || lat > 90 {
			return nil, errs.Validationf("point %d (%v, %v) is out of lon/lat range", i, lon, lat)
		}
		p := orb.Point{lon, lat}
		distinct[p] = struct{}{}
		ring = append(ring, p)
	}
	if len(distinct) < 3 {
		return nil, errs.Validationf("polygon needs at least 3 distinct points, got %d", len(distinct))
	}
	if !ring.Closed() {
		ring = append(ring, ring[0])
	}
	return orb.Polygon{ring}, nil
}
