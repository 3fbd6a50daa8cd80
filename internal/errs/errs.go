// Package errs defines the error kinds surfaced by the NNI pipeline.
//
// Every error returned by the pipeline packages wraps one of the sentinel kinds below, so callers
// can map failures with errors.Is without knowing the concrete type.
package errs

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrValidation marks malformed input: polygon, matrix shape, compositing strategy.
	ErrValidation = errors.New("validation error")
	// ErrProvider marks an imagery or grid acquisition failure.
	ErrProvider = errors.New("provider error")
	// ErrInternalConsistency marks a broken contract between pipeline stages.
	ErrInternalConsistency = errors.New("internal consistency error")
	// ErrNumericDegeneracy marks non-finite values that were propagated instead of clamped.
	ErrNumericDegeneracy = errors.New("numeric degeneracy")
)

func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func Inconsistencyf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInternalConsistency, fmt.Sprintf(format, args...))
}

// ShapeError reports a feature matrix that does not satisfy the column contract.
type ShapeError struct {
	Rows   int
	Cols   int
	Reason string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("shape error: matrix %dx%d: %s", e.Rows, e.Cols, e.Reason)
}

func (e *ShapeError) Is(target error) bool {
	return target == ErrValidation
}

// InferenceCountMismatch reports a model that returned a different number of predictions than rows.
type InferenceCountMismatch struct {
	Got  int
	Want int
}

func (e *InferenceCountMismatch) Error() string {
	return fmt.Sprintf("model returned %d predictions, expected %d", e.Got, e.Want)
}

func (e *InferenceCountMismatch) Is(target error) bool {
	return target == ErrInternalConsistency
}

// ProviderError wraps a failed call to an external imagery or grid provider together with the
// request parameters that triggered it.
type ProviderError struct {
	Op     string
	Params map[string]string
	Err    error
}

func (e *ProviderError) Error() string {
	keys := make([]string, 0, len(e.Params))
	for k := range e.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+e.Params[k])
	}
	return fmt.Sprintf("%s failed [%s]: %v", e.Op, strings.Join(parts, " "), e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func (e *ProviderError) Is(target error) bool {
	return target == ErrProvider
}
