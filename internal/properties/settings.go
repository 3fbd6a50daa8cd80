package properties

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Settings holds the pipeline request defaults read from config.yaml.
type Settings struct {
	Imagery struct {
		// DateStart and DateEnd bound the compositing window, YYYY-MM-DD.
		DateStart   string  `yaml:"dateStart"`
		DateEnd     string  `yaml:"dateEnd"`
		MaxCloudPct float64 `yaml:"maxCloudPct"`
		// RedEdgeBand is one of B5, B6, B7.
		RedEdgeBand string `yaml:"redEdgeBand"`
		// Composite is "median" or "least_cloudy_mosaic".
		Composite string `yaml:"composite"`
	} `yaml:"imagery"`

	Grid struct {
		CellSizeM float64 `yaml:"cellSizeM"`
	} `yaml:"grid"`

	Inference struct {
		// DryMatter is the biomass in t/ha fed to the wheat critical-N curve.
		DryMatter float64 `yaml:"dryMatter"`
	} `yaml:"inference"`

	Processing struct {
		// Workers bounds how many fields of a farm are evaluated at once.
		Workers int `yaml:"workers"`
		// CacheFeatures keeps extracted feature matrices under data/features.
		CacheFeatures bool `yaml:"cacheFeatures"`
	} `yaml:"processing"`
}

func DefaultSettings() *Settings {
	s := &Settings{}

	s.Imagery.DateStart = "2024-08-10"
	s.Imagery.DateEnd = "2024-09-29"
	s.Imagery.MaxCloudPct = 40
	s.Imagery.RedEdgeBand = "B5"
	s.Imagery.Composite = "median"

	s.Grid.CellSizeM = 20

	s.Inference.DryMatter = 18.16

	s.Processing.Workers = 4
	s.Processing.CacheFeatures = true

	return s
}

// LoadSettings reads a YAML settings file on top of the defaults.
// A missing file yields the defaults.
func LoadSettings(path string) (*Settings, error) {
	s := DefaultSettings()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading settings file: %w", err)
	}

	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("error parsing settings file: %w", err)
	}

	return s, nil
}

func SaveSettings(s *Settings, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating settings directory: %w", err)
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("error marshaling settings: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing settings file: %w", err)
	}

	return nil
}
