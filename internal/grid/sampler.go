package grid

import (
	"math"

	"github.com/harvest-ai/nni-research-cli/internal/errs"
	"github.com/harvest-ai/nni-research-cli/internal/indexes"
	"github.com/harvest-ai/nni-research-cli/internal/sentinel"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
)

// Cell is one grid cell with its mean index values. Values are NaN when no valid pixel fell in
// the part of the cell covered by the polygon.
type Cell struct {
	Bound    orb.Bound
	Centroid orb.Point
	Values   [indexes.Count]float64
	// Pixels is the number of raster pixels that were averaged.
	Pixels int
}

type Sampler struct {
	Provider Provider
}

func NewSampler(provider Provider) *Sampler {
	if provider == nil {
		provider = Planar{}
	}
	return &Sampler{Provider: provider}
}

// Sample reduces the raster to per-cell means over the covering grid of polygon.
func (s *Sampler) Sample(raster *indexes.Raster, polygon orb.Polygon, cellSizeM float64) ([]Cell, error) {
	if raster == nil || raster.Width <= 0 || raster.Height <= 0 {
		return nil, errs.Validationf("index raster is empty")
	}
	if raster.GeoTransform[1] == 0 || raster.GeoTransform[5] == 0 {
		return nil, errs.Validationf("index raster has a degenerate geotransform %v", raster.GeoTransform)
	}

	bounds, err := s.Provider.CoveringGrid(polygon, cellSizeM)
	if err != nil {
		return nil, err
	}

	cells := make([]Cell, 0, len(bounds))
	empty := 0
	for _, bound := range bounds {
		cell := sampleCell(raster, polygon, bound)
		if cell.Pixels == 0 {
			empty++
		}
		cells = append(cells, cell)
	}

	log.WithFields(log.Fields{"cells": len(cells), "empty_cells": empty}).Debug("[Grid] sampled index raster")
	return cells, nil
}

func sampleCell(raster *indexes.Raster, polygon orb.Polygon, bound orb.Bound) Cell {
	cell := Cell{Bound: bound, Centroid: bound.Center()}

	var offsets []int
	colMin, colMax, rowMin, rowMax := pixelWindow(raster, bound)
	for row := rowMin; row <= rowMax; row++ {
		for col := colMin; col <= colMax; col++ {
			lon, lat := sentinel.PixelCenter(raster.GeoTransform, col, row)
			if !inHalfOpen(bound, lon, lat) || !planar.PolygonContains(polygon, orb.Point{lon, lat}) {
				continue
			}
			offsets = append(offsets, row*raster.Width+col)
		}
	}

	// cells smaller than a pixel sample the pixel under their centroid
	if len(offsets) == 0 && planar.PolygonContains(polygon, cell.Centroid) {
		col, row, ok := sentinel.PixelAt(raster.GeoTransform, raster.Width, raster.Height, cell.Centroid.X(), cell.Centroid.Y())
		if ok {
			offsets = append(offsets, row*raster.Width+col)
		}
	}

	values := make([]float64, 0, len(offsets))
	for k, layer := range raster.Layers {
		values = values[:0]
		for _, offset := range offsets {
			if v := layer[offset]; !math.IsNaN(v) {
				values = append(values, v)
			}
		}
		if len(values) == 0 {
			cell.Values[k] = math.NaN()
			continue
		}
		cell.Values[k] = stat.Mean(values, nil)
	}

	for _, offset := range offsets {
		if !math.IsNaN(raster.Layers[0][offset]) {
			cell.Pixels++
		}
	}
	return cell
}

// pixelWindow returns the inclusive pixel range overlapping bound, clamped to the raster.
func pixelWindow(raster *indexes.Raster, bound orb.Bound) (int, int, int, int) {
	gt := raster.GeoTransform
	c0 := int(math.Floor((bound.Min.X() - gt[0]) / gt[1]))
	c1 := int(math.Floor((bound.Max.X() - gt[0]) / gt[1]))
	r0 := int(math.Floor((bound.Max.Y() - gt[3]) / gt[5]))
	r1 := int(math.Floor((bound.Min.Y() - gt[3]) / gt[5]))
	if c0 > c1 {
		c0, c1 = c1, c0
	}
	if r0 > r1 {
		r0, r1 = r1, r0
	}
	return clamp(c0, raster.Width), clamp(c1, raster.Width), clamp(r0, raster.Height), clamp(r1, raster.Height)
}

func clamp(v, size int) int {
	return max(0, min(v, size-1))
}

func inHalfOpen(b orb.Bound, lon, lat float64) bool {
	return lon >= b.Min.X() && lon < b.Max.X() && lat >= b.Min.Y() && lat < b.Max.Y()
}
