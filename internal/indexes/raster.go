package indexes

import (
	"context"
	"runtime"

	"github.com/harvest-ai/nni-research-cli/internal/sentinel"
	"golang.org/x/sync/errgroup"
)

const rowsPerBlock = 64

// Raster is the 43 layer index stack, co-registered with the composite it came from.
type Raster struct {
	Width        int
	Height       int
	GeoTransform [6]float64
	Layers       [Count][]float64
}

func NewRaster(width, height int, geoTransform [6]float64) *Raster {
	r := &Raster{Width: width, Height: height, GeoTransform: geoTransform}
	for i := range r.Layers {
		r.Layers[i] = make([]float64, width*height)
	}
	return r
}

func (r *Raster) Layer(name string) ([]float64, bool) {
	i, ok := positions[name]
	if !ok {
		return nil, false
	}
	return r.Layers[i], true
}

// At returns the index vector of pixel (x, y).
func (r *Raster) At(x, y int) [Count]float64 {
	var values [Count]float64
	offset := y*r.Width + x
	for i := range r.Layers {
		values[i] = r.Layers[i][offset]
	}
	return values
}

// ComputeRaster evaluates every index over the composite. Row blocks run concurrently and write
// disjoint ranges, so the output does not depend on scheduling.
func ComputeRaster(ctx context.Context, c *sentinel.Composite) (*Raster, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	r := NewRaster(c.Width, c.Height, c.GeoTransform)
	blue, green, red := c.Bands[sentinel.BandBlue], c.Bands[sentinel.BandGreen], c.Bands[sentinel.BandRed]
	nir, redEdge := c.Bands[sentinel.BandNIR], c.Bands[sentinel.BandRedEdge]

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for start := 0; start < c.Height; start += rowsPerBlock {
		end := min(start+rowsPerBlock, c.Height)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for i := start * c.Width; i < end*c.Width; i++ {
				values := Compute(Bands{Blue: blue[i], Green: green[i], Red: red[i], NIR: nir[i], RedEdge: redEdge[i]})
				for k := range values {
					r.Layers[k][i] = values[k]
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return r, nil
}
