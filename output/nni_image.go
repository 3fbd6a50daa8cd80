package output

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fogleman/gg"
	"github.com/harvest-ai/nni-research-cli/internal/ml"
	"github.com/harvest-ai/nni-research-cli/internal/properties"
)

const (
	cellPixels    = 12
	legendSpacing = 20
)

var legendClasses = []string{ClassDeficient, ClassLow, ClassOptimal, ClassExcess, ClassUnknown}

// gridIndex assigns every distinct coordinate its rank. Coordinates are rounded so cell centroids
// on the same row or column collapse to one key.
func gridIndex(values []float64, descending bool) map[int64]int {
	keys := make([]int64, 0, len(values))
	seen := make(map[int64]bool, len(values))
	for _, v := range values {
		k := int64(math.Round(v * 1e9))
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if descending {
			return keys[i] > keys[j]
		}
		return keys[i] < keys[j]
	})
	index := make(map[int64]int, len(keys))
	for i, k := range keys {
		index[k] = i
	}
	return index
}

// CreateNNIImage draws one square per grid cell colored by nitrogen class, north up, with a
// legend under the map.
func CreateNNIImage(result *ml.InferenceResult, outputPath string) (string, error) {
	if len(result.LonLatPred) == 0 {
		return "", fmt.Errorf("no cells to draw")
	}
	if !strings.HasSuffix(outputPath, ".png") {
		outputPath += ".png"
	}

	lons := make([]float64, len(result.LonLatPred))
	lats := make([]float64, len(result.LonLatPred))
	for i, row := range result.LonLatPred {
		lons[i], lats[i] = row[0], row[1]
	}
	cols := gridIndex(lons, false)
	rows := gridIndex(lats, true)

	width := max(len(cols)*cellPixels, 140)
	height := len(rows) * cellPixels
	totalHeight := height + 10 + len(legendClasses)*legendSpacing

	dc := gg.NewContext(width, totalHeight)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	for i, row := range result.LonLatPred {
		x := cols[int64(math.Round(row[0]*1e9))] * cellPixels
		y := rows[int64(math.Round(row[1]*1e9))] * cellPixels
		c := properties.NNIColorMap[NNIClass(result.Predictions[i])]
		dc.SetRGB255(int(c.R), int(c.G), int(c.B))
		dc.DrawRectangle(float64(x), float64(y), cellPixels, cellPixels)
		dc.Fill()
	}

	legendX := 10
	for i, class := range legendClasses {
		y := height + 10 + i*legendSpacing
		c := properties.NNIColorMap[class]
		dc.SetRGB255(int(c.R), int(c.G), int(c.B))
		dc.DrawRectangle(float64(legendX), float64(y), 15, 15)
		dc.Fill()

		dc.SetRGB(0, 0, 0)
		dc.DrawRectangle(float64(legendX), float64(y), 15, 15)
		dc.SetLineWidth(1)
		dc.Stroke()

		dc.DrawStringAnchored(class, float64(legendX+20), float64(y+7), 0, 0.5)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return "", fmt.Errorf("error creating result directory: %w", err)
	}
	if err := dc.SavePNG(outputPath); err != nil {
		return "", fmt.Errorf("failed to save image: %w", err)
	}
	return outputPath, nil
}
