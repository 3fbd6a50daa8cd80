package sentinel

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/harvest-ai/nni-research-cli/internal/errs"
	"github.com/paulmach/orb"
)

// ScaleFactor converts Sentinel-2 L2A digital numbers to surface reflectance.
const ScaleFactor = 10000.0

type Band string

const (
	BandBlue    Band = "Blue"
	BandGreen   Band = "Green"
	BandRed     Band = "Red"
	BandNIR     Band = "NIR"
	BandRedEdge Band = "RedEdge"
)

// Bands lists the composite bands in the order the provider returns them.
var Bands = []Band{BandBlue, BandGreen, BandRed, BandNIR, BandRedEdge}

type RedEdgeBand string

const (
	RedEdgeB5 RedEdgeBand = "B5"
	RedEdgeB6 RedEdgeBand = "B6"
	RedEdgeB7 RedEdgeBand = "B7"
)

func ParseRedEdgeBand(s string) (RedEdgeBand, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "B5", "B05":
		return RedEdgeB5, nil
	case "B6", "B06":
		return RedEdgeB6, nil
	case "B7", "B07":
		return RedEdgeB7, nil
	}
	return "", errs.Validationf("unsupported red edge band %q, use B5, B6 or B7", s)
}

// sentinelHubName is the band identifier used by the Process API evalscript.
func (r RedEdgeBand) sentinelHubName() string {
	return "B0" + strings.TrimPrefix(string(r), "B")
}

type CompositeStrategy string

const (
	CompositeMedian            CompositeStrategy = "median"
	CompositeLeastCloudyMosaic CompositeStrategy = "least_cloudy_mosaic"
)

// ParseCompositeStrategy accepts the two supported compositing strategies and their aliases.
func ParseCompositeStrategy(s string) (CompositeStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "median":
		return CompositeMedian, nil
	case "least_cloudy_mosaic", "least-cloudy-mosaic", "least_cloudy":
		return CompositeLeastCloudyMosaic, nil
	}
	return "", errs.Validationf("unknown composite %q, use 'median' or 'least_cloudy_mosaic'", s)
}

type CompositeParams struct {
	DateStart   time.Time
	DateEnd     time.Time
	MaxCloudPct float64
	RedEdge     RedEdgeBand
	Strategy    CompositeStrategy
}

// Normalized validates the parameters and resolves strategy and band aliases.
func (p CompositeParams) Normalized() (CompositeParams, error) {
	strategy, err := ParseCompositeStrategy(string(p.Strategy))
	if err != nil {
		return p, err
	}
	redEdge, err := ParseRedEdgeBand(string(p.RedEdge))
	if err != nil {
		return p, err
	}
	if p.DateEnd.Before(p.DateStart) {
		return p, errs.Validationf("date range end %s is before start %s", p.DateEnd.Format("2006-01-02"), p.DateStart.Format("2006-01-02"))
	}
	if p.MaxCloudPct < 0 || p.MaxCloudPct > 100 {
		return p, errs.Validationf("max cloud percentage %.1f out of [0, 100]", p.MaxCloudPct)
	}
	p.Strategy = strategy
	p.RedEdge = redEdge
	return p, nil
}

// Describe renders the parameters for logs and provider error reports.
func (p CompositeParams) Describe() map[string]string {
	return map[string]string{
		"date_start":    p.DateStart.Format("2006-01-02"),
		"date_end":      p.DateEnd.Format("2006-01-02"),
		"max_cloud_pct": fmt.Sprintf("%g", p.MaxCloudPct),
		"rededge_band":  string(p.RedEdge),
		"composite":     string(p.Strategy),
	}
}

// CompositeProvider builds a cloud-masked composite over a polygon. Masking and mosaicking are the
// provider's business; masked pixels come back as NaN.
type CompositeProvider interface {
	Composite(ctx context.Context, polygon orb.Polygon, params CompositeParams) (*Composite, error)
}

// Composite is a north-up reflectance raster. GeoTransform follows the GDAL convention.
type Composite struct {
	Width        int
	Height       int
	GeoTransform [6]float64
	Bands        map[Band][]float64
}

func NewComposite(width, height int, geoTransform [6]float64) *Composite {
	c := &Composite{
		Width:        width,
		Height:       height,
		GeoTransform: geoTransform,
		Bands:        make(map[Band][]float64, len(Bands)),
	}
	for _, b := range Bands {
		c.Bands[b] = make([]float64, width*height)
	}
	return c
}

// NewUniformComposite fills every band with a constant reflectance.
func NewUniformComposite(width, height int, geoTransform [6]float64, values map[Band]float64) *Composite {
	c := NewComposite(width, height, geoTransform)
	for band, v := range values {
		data := c.Bands[band]
		for i := range data {
			data[i] = v
		}
	}
	return c
}

// GeoTransformForBound returns a north-up transform covering bound with width x height pixels.
func GeoTransformForBound(bound orb.Bound, width, height int) [6]float64 {
	return [6]float64{
		bound.Min.X(),
		(bound.Max.X() - bound.Min.X()) / float64(width),
		0,
		bound.Max.Y(),
		0,
		-(bound.Max.Y() - bound.Min.Y()) / float64(height),
	}
}

func (c *Composite) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return errs.Validationf("composite has invalid size %dx%d", c.Width, c.Height)
	}
	if c.GeoTransform[1] == 0 || c.GeoTransform[5] == 0 {
		return errs.Validationf("composite has a degenerate geotransform %v", c.GeoTransform)
	}
	for _, b := range Bands {
		data, ok := c.Bands[b]
		if !ok {
			return errs.Validationf("composite is missing band %s", b)
		}
		if len(data) != c.Width*c.Height {
			return errs.Validationf("band %s has %d values, expected %d", b, len(data), c.Width*c.Height)
		}
	}
	return nil
}

// PixelCenter converts pixel coordinates to the lon/lat of the pixel center.
func (c *Composite) PixelCenter(x, y int) (float64, float64) {
	return PixelCenter(c.GeoTransform, x, y)
}

func PixelCenter(gt [6]float64, x, y int) (float64, float64) {
	lon := gt[0] + gt[1]*(float64(x)+0.5) + gt[2]*(float64(y)+0.5)
	lat := gt[3] + gt[4]*(float64(x)+0.5) + gt[5]*(float64(y)+0.5)
	return lon, lat
}

// PixelAt returns the pixel holding lon/lat for a north-up transform.
func PixelAt(gt [6]float64, width, height int, lon, lat float64) (int, int, bool) {
	col := int(math.Floor((lon - gt[0]) / gt[1]))
	row := int(math.Floor((lat - gt[3]) / gt[5]))
	if col < 0 || col >= width || row < 0 || row >= height {
		return 0, 0, false
	}
	return col, row, true
}
