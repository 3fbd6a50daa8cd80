package sentinel

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/harvest-ai/nni-research-cli/internal/properties"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

const fieldIDProperty = "field_id"

type Field struct {
	Farm    string
	ID      string
	Polygon orb.Polygon
}

func FarmPath(farm string) string {
	return fmt.Sprintf("%s/data/geojsons/%s.geojson", properties.RootPath(), farm)
}

// LoadFarm reads every field of a farm GeoJSON feature collection. Multipolygon fields keep their
// largest part.
func LoadFarm(path string) ([]Field, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read farm file: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse farm file %s: %w", path, err)
	}

	farm := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	fields := make([]Field, 0, len(fc.Features))
	seen := make(map[string]bool, len(fc.Features))
	for i, feature := range fc.Features {
		id, ok := feature.Properties[fieldIDProperty]
		if !ok || id == nil {
			return nil, fmt.Errorf("feature %d of %s has no %s property", i, farm, fieldIDProperty)
		}
		fieldID := formatFieldID(id)
		if seen[fieldID] {
			return nil, fmt.Errorf("duplicated field %s in farm %s", fieldID, farm)
		}
		seen[fieldID] = true

		polygon, err := fieldPolygon(feature.Geometry)
		if err != nil {
			return nil, fmt.Errorf("field %s of farm %s: %w", fieldID, farm, err)
		}
		fields = append(fields, Field{Farm: farm, ID: fieldID, Polygon: polygon})
	}

	sort.Slice(fields, func(i, j int) bool { return fields[i].ID < fields[j].ID })
	return fields, nil
}

func GetFieldPolygon(farm, field string) (orb.Polygon, error) {
	fields, err := LoadFarm(FarmPath(farm))
	if err != nil {
		return nil, err
	}
	for _, f := range fields {
		if f.ID == field {
			return f.Polygon, nil
		}
	}
	return nil, fmt.Errorf("geometry not found for farm %s and field %s", farm, field)
}

// ListFarms returns the farm names found under data/geojsons.
func ListFarms() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(properties.RootPath(), "data", "geojsons"))
	if err != nil {
		return nil, fmt.Errorf("failed to list farms: %w", err)
	}
	var farms []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".geojson" {
			continue
		}
		farms = append(farms, strings.TrimSuffix(entry.Name(), ".geojson"))
	}
	return farms, nil
}

func fieldPolygon(g orb.Geometry) (orb.Polygon, error) {
	switch geom := g.(type) {
	case orb.Polygon:
		return geom, nil
	case orb.MultiPolygon:
		if len(geom) == 0 {
			return nil, fmt.Errorf("empty multipolygon")
		}
		largest, largestArea := geom[0], -1.0
		for _, p := range geom {
			if area := math.Abs(planar.Area(p)); area > largestArea {
				largest, largestArea = p, area
			}
		}
		return largest, nil
	case nil:
		return nil, fmt.Errorf("missing geometry")
	}
	return nil, fmt.Errorf("unsupported geometry %s", g.GeoJSONType())
}

// field ids are often numeric in exported shapefiles; 3.0 and "3" name the same field.
func formatFieldID(v interface{}) string {
	if f, ok := v.(float64); ok && f == math.Trunc(f) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprint(v)
}
