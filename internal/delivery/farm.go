package delivery

import (
	"context"
	"fmt"
	"sync"

	"github.com/gammazero/workerpool"
	"github.com/harvest-ai/nni-research-cli/internal/ml"
	"github.com/harvest-ai/nni-research-cli/internal/sentinel"
	"github.com/schollz/progressbar/v3"
	log "github.com/sirupsen/logrus"
)

type FieldError struct {
	FieldID string
	Err     error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %s: %v", e.FieldID, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// FarmResult keeps successful fields in field ID order. A failed field lands in Failures and
// never aborts its siblings.
type FarmResult struct {
	Farm     string
	Fields   []FieldResult
	Failures []FieldError
}

// EvaluateFarm evaluates every field of data/geojsons/<farm>.geojson.
func (p *Pipeline) EvaluateFarm(ctx context.Context, farm string, params ExtractParams, engine *ml.Engine, dm ml.DryMatter, workers int) (*FarmResult, error) {
	fields, err := sentinel.LoadFarm(sentinel.FarmPath(farm))
	if err != nil {
		return nil, err
	}
	result := p.EvaluateFields(ctx, fields, params, engine, dm, workers)
	result.Farm = farm
	return result, nil
}

func (p *Pipeline) EvaluateFields(ctx context.Context, fields []sentinel.Field, params ExtractParams, engine *ml.Engine, dm ml.DryMatter, workers int) *FarmResult {
	if workers < 1 {
		workers = 1
	}

	var (
		mu          sync.Mutex
		results     = make([]*FieldResult, len(fields))
		failures    = make([]error, len(fields))
		progressBar = progressbar.Default(int64(len(fields)), "Evaluating fields")
	)

	wp := workerpool.New(workers)
	for i, field := range fields {
		wp.Submit(func() {
			var (
				res *FieldResult
				err error
			)
			if err = ctx.Err(); err == nil {
				res, err = p.EvaluateField(ctx, field, params, engine, dm)
			}

			mu.Lock()
			results[i] = res
			failures[i] = err
			progressBar.Add(1)
			mu.Unlock()
		})
	}
	wp.StopWait()

	out := &FarmResult{}
	for i, field := range fields {
		if failures[i] != nil {
			log.WithField("field", field.ID).WithError(failures[i]).Warn("[Pipeline] field failed")
			out.Failures = append(out.Failures, FieldError{FieldID: field.ID, Err: failures[i]})
			continue
		}
		out.Fields = append(out.Fields, *results[i])
	}
	return out
}
