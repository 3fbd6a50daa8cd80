package main

import (
	"github.com/harvest-ai/nni-research-cli/internal/delivery"
	"github.com/harvest-ai/nni-research-cli/internal/properties"
	"github.com/spf13/cobra"
)

// requestFlags override the configured request defaults for one run. Only flags the user set are
// applied.
type requestFlags struct {
	start, end  string
	maxCloud    float64
	redEdge     string
	composite   string
	cellSize    float64
	dryMatter   float64
	workers     int
	settingsRef *string
}

func addRequestFlags(cmd *cobra.Command, settingsPath *string) *requestFlags {
	f := &requestFlags{settingsRef: settingsPath}
	defaults := properties.DefaultSettings()

	flags := cmd.Flags()
	flags.StringVar(&f.start, "start", defaults.Imagery.DateStart, "composite window start (YYYY-MM-DD)")
	flags.StringVar(&f.end, "end", defaults.Imagery.DateEnd, "composite window end (YYYY-MM-DD)")
	flags.Float64Var(&f.maxCloud, "max-cloud", defaults.Imagery.MaxCloudPct, "maximum scene cloud cover in percent")
	flags.StringVar(&f.redEdge, "rededge", defaults.Imagery.RedEdgeBand, "red edge band: B5, B6 or B7")
	flags.StringVar(&f.composite, "composite", defaults.Imagery.Composite, "median or least_cloudy_mosaic")
	flags.Float64Var(&f.cellSize, "cell-size", defaults.Grid.CellSizeM, "grid cell size in meters")
	flags.Float64Var(&f.dryMatter, "dm", defaults.Inference.DryMatter, "dry matter in t/ha for the critical N curve")
	flags.IntVar(&f.workers, "workers", defaults.Processing.Workers, "fields evaluated at once")
	return f
}

func (f *requestFlags) settings(cmd *cobra.Command) (*properties.Settings, error) {
	s, err := properties.LoadSettings(*f.settingsRef)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("start") {
		s.Imagery.DateStart = f.start
	}
	if flags.Changed("end") {
		s.Imagery.DateEnd = f.end
	}
	if flags.Changed("max-cloud") {
		s.Imagery.MaxCloudPct = f.maxCloud
	}
	if flags.Changed("rededge") {
		s.Imagery.RedEdgeBand = f.redEdge
	}
	if flags.Changed("composite") {
		s.Imagery.Composite = f.composite
	}
	if flags.Changed("cell-size") {
		s.Grid.CellSizeM = f.cellSize
	}
	if flags.Changed("dm") {
		s.Inference.DryMatter = f.dryMatter
	}
	if flags.Changed("workers") {
		s.Processing.Workers = f.workers
	}
	return s, nil
}

func (f *requestFlags) params(cmd *cobra.Command) (*properties.Settings, delivery.ExtractParams, error) {
	s, err := f.settings(cmd)
	if err != nil {
		return nil, delivery.ExtractParams{}, err
	}
	params, err := delivery.ParamsFromSettings(s)
	return s, params, err
}
