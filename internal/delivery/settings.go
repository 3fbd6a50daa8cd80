package delivery

import (
	"time"

	"github.com/harvest-ai/nni-research-cli/internal/errs"
	"github.com/harvest-ai/nni-research-cli/internal/ml"
	"github.com/harvest-ai/nni-research-cli/internal/properties"
	"github.com/harvest-ai/nni-research-cli/internal/sentinel"
)

const dateLayout = "2006-01-02"

// ParamsFromSettings turns the configured request defaults into validated extraction parameters.
func ParamsFromSettings(s *properties.Settings) (ExtractParams, error) {
	start, err := time.Parse(dateLayout, s.Imagery.DateStart)
	if err != nil {
		return ExtractParams{}, errs.Validationf("invalid start date %q, use YYYY-MM-DD", s.Imagery.DateStart)
	}
	end, err := time.Parse(dateLayout, s.Imagery.DateEnd)
	if err != nil {
		return ExtractParams{}, errs.Validationf("invalid end date %q, use YYYY-MM-DD", s.Imagery.DateEnd)
	}

	composite, err := sentinel.CompositeParams{
		DateStart:   start,
		DateEnd:     end,
		MaxCloudPct: s.Imagery.MaxCloudPct,
		RedEdge:     sentinel.RedEdgeBand(s.Imagery.RedEdgeBand),
		Strategy:    sentinel.CompositeStrategy(s.Imagery.Composite),
	}.Normalized()
	if err != nil {
		return ExtractParams{}, err
	}
	return ExtractParams{Composite: composite, CellSizeM: s.Grid.CellSizeM}, nil
}

// DryMatterFromSettings returns the configured constant biomass. A non-positive value is passed
// through and yields NaN NNI rather than falling back to the default.
func DryMatterFromSettings(s *properties.Settings) ml.DryMatter {
	return ml.ConstantDryMatter(s.Inference.DryMatter)
}
