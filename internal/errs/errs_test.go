package errs

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKinds(t *testing.T) {
	assert.ErrorIs(t, Validationf("bad %s", "polygon"), ErrValidation)
	assert.ErrorIs(t, Inconsistencyf("lost %d rows", 2), ErrInternalConsistency)
	assert.ErrorIs(t, &ShapeError{Rows: 1, Cols: 44}, ErrValidation)
	assert.ErrorIs(t, &InferenceCountMismatch{Got: 1, Want: 2}, ErrInternalConsistency)
	assert.NotErrorIs(t, &InferenceCountMismatch{}, ErrValidation)
}

func TestProviderError(t *testing.T) {
	err := fmt.Errorf("field 3: %w", &ProviderError{
		Op:     "sentinel composite",
		Params: map[string]string{"date_start": "2024-08-10", "composite": "median"},
		Err:    io.ErrUnexpectedEOF,
	})

	assert.ErrorIs(t, err, ErrProvider)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	var providerErr *ProviderError
	assert.True(t, errors.As(err, &providerErr))
	assert.Equal(t, "sentinel composite failed [composite=median date_start=2024-08-10]: unexpected EOF", providerErr.Error())
}
