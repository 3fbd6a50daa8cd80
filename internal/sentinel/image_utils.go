package sentinel

import (
	"fmt"
	"math"
	"os"
	"sync"

	"github.com/airbusgeo/godal"
	"github.com/harvest-ai/nni-research-cli/internal/utils"
)

var registerDrivers sync.Once

// DecodeGeoTIFF reads a five band Process API response (Blue, Green, Red, NIR, RedEdge in
// digital numbers) into a reflectance composite. Nodata and non-finite pixels become NaN.
func DecodeGeoTIFF(data []byte) (*Composite, error) {
	registerDrivers.Do(godal.RegisterAll)

	tmp, err := os.CreateTemp("", "composite-*.tif")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary image file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to close temporary image file: %w", err)
	}

	var composite *Composite
	utils.ExecuteWithMutex(func() {
		composite, err = readComposite(tmp.Name())
	})
	if err != nil {
		return nil, err
	}
	return composite, nil
}

func readComposite(path string) (*Composite, error) {
	ds, err := godal.Open(path, godal.ErrLogger(func(ec godal.ErrorCategory, code int, msg string) error {
		if ec == godal.CE_Warning {
			return nil
		}
		return fmt.Errorf("gdal: %s", msg)
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to open TIFF file: %w", err)
	}
	defer ds.Close()

	structure := ds.Structure()
	if structure.NBands < len(Bands) {
		return nil, fmt.Errorf("image has %d bands, expected %d", structure.NBands, len(Bands))
	}

	geoTransform, err := ds.GeoTransform()
	if err != nil {
		return nil, fmt.Errorf("failed to get GeoTransform: %w", err)
	}

	width, height := structure.SizeX, structure.SizeY
	composite := NewComposite(width, height, geoTransform)
	rasterBands := ds.Bands()
	for i, band := range Bands {
		data := composite.Bands[band]
		if err := rasterBands[i].Read(0, 0, data, width, height); err != nil {
			return nil, fmt.Errorf("failed to read band %s: %w", band, err)
		}
		nodata, hasNodata := rasterBands[i].NoData()
		for j, v := range data {
			if (hasNodata && v == nodata) || math.IsNaN(v) || math.IsInf(v, 0) {
				data[j] = math.NaN()
				continue
			}
			data[j] = v / ScaleFactor
		}
	}
	return composite, nil
}
