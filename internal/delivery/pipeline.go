// Package delivery chains imagery, indices, grid sampling and inference into the per-field
// operations the CLI exposes.
package delivery

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/harvest-ai/nni-research-cli/internal/cache"
	"github.com/harvest-ai/nni-research-cli/internal/dataset"
	"github.com/harvest-ai/nni-research-cli/internal/errs"
	"github.com/harvest-ai/nni-research-cli/internal/grid"
	"github.com/harvest-ai/nni-research-cli/internal/indexes"
	"github.com/harvest-ai/nni-research-cli/internal/ml"
	"github.com/harvest-ai/nni-research-cli/internal/sentinel"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	log "github.com/sirupsen/logrus"
)

type ExtractParams struct {
	Composite sentinel.CompositeParams
	CellSizeM float64
}

// Pipeline turns a field polygon into a feature matrix. Cache is optional.
type Pipeline struct {
	Provider sentinel.CompositeProvider
	Sampler  *grid.Sampler
	Cache    cache.CacheService[*dataset.FeatureMatrix]
}

func NewPipeline(provider sentinel.CompositeProvider, featureCache cache.CacheService[*dataset.FeatureMatrix]) *Pipeline {
	return &Pipeline{
		Provider: provider,
		Sampler:  grid.NewSampler(nil),
		Cache:    featureCache,
	}
}

// FieldResult is the outcome of evaluating one field.
type FieldResult struct {
	Field  sentinel.Field
	Matrix *dataset.FeatureMatrix
	Result *ml.InferenceResult
}

func (p *Pipeline) ExtractFeatures(ctx context.Context, polygon orb.Polygon, params ExtractParams) (*dataset.FeatureMatrix, error) {
	if len(polygon) == 0 || len(polygon[0]) < 4 {
		return nil, errs.Validationf("polygon needs a closed outer ring with at least 3 vertices")
	}
	if params.CellSizeM <= 0 || math.IsNaN(params.CellSizeM) || math.IsInf(params.CellSizeM, 0) {
		return nil, errs.Validationf("cell size must be a positive number of meters, got %v", params.CellSizeM)
	}
	composite, err := params.Composite.Normalized()
	if err != nil {
		return nil, err
	}
	params.Composite = composite
	if planar.Area(polygon) == 0 {
		log.Debug("[Pipeline] zero-area polygon, skipping composite")
		return dataset.BuildFeatureMatrix(nil)
	}

	key := cache.PolygonKey(polygon, composite.Describe(), params.CellSizeM)
	if p.Cache != nil {
		if matrix, ok := p.Cache.Get(key); ok && matrix != nil {
			return matrix, nil
		}
	}

	start := time.Now()
	image, err := p.Provider.Composite(ctx, polygon, composite)
	if err != nil {
		return nil, err
	}
	log.WithField("took", time.Since(start)).Debug("[Pipeline] composite ready")

	start = time.Now()
	raster, err := indexes.ComputeRaster(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("failed to compute vegetation indices: %w", err)
	}
	log.WithField("took", time.Since(start)).Debug("[Pipeline] indices computed")

	sampler := p.Sampler
	if sampler == nil {
		sampler = grid.NewSampler(nil)
	}
	cells, err := sampler.Sample(raster, polygon, params.CellSizeM)
	if err != nil {
		return nil, err
	}

	matrix, err := dataset.BuildFeatureMatrix(dataset.RowsFromCells(cells))
	if err != nil {
		return nil, err
	}

	if p.Cache != nil {
		if err := p.Cache.Set(key, matrix); err != nil {
			log.WithError(err).Warn("[Pipeline] failed to cache feature matrix")
		}
	}
	return matrix, nil
}

// EvaluateField extracts the field's features and runs inference over them.
func (p *Pipeline) EvaluateField(ctx context.Context, field sentinel.Field, params ExtractParams, engine *ml.Engine, dm ml.DryMatter) (*FieldResult, error) {
	matrix, err := p.ExtractFeatures(ctx, field.Polygon, params)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", field.ID, err)
	}
	result, err := engine.Infer(ctx, matrix, dm)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", field.ID, err)
	}
	log.WithFields(log.Fields{"farm": field.Farm, "field": field.ID, "cells": matrix.Rows(), "nan_count": result.Meta.NaNCount}).
		Info("[Pipeline] field evaluated")
	return &FieldResult{Field: field, Matrix: matrix, Result: result}, nil
}
