package main

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/harvest-ai/nni-research-cli/internal/errs"
	"github.com/harvest-ai/nni-research-cli/internal/sentinel"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldFromFlagsPolygon(t *testing.T) {
	field, err := fieldFromFlags(`[[0,0],[1,0],[1,1]]`, "", "")
	require.NoError(t, err)
	assert.Equal(t, "inline", field.Farm)
	require.Len(t, field.Polygon, 1)
	assert.Len(t, field.Polygon[0], 4)

	_, err = fieldFromFlags(`[[0,0],[1,0]]`, "", "")
	require.ErrorIs(t, err, errs.ErrValidation)

	_, err = fieldFromFlags(`not json`, "", "")
	require.ErrorIs(t, err, errs.ErrValidation)

	_, err = fieldFromFlags("", "farm", "")
	require.ErrorIs(t, err, errs.ErrValidation)
}

func TestRequestFlagsOverrideSettings(t *testing.T) {
	settingsPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(settingsPath, []byte("grid:\n  cellSizeM: 30\n"), 0644))

	cmd := &cobra.Command{Use: "test"}
	request := addRequestFlags(cmd, &settingsPath)
	require.NoError(t, cmd.ParseFlags([]string{"--composite", "least-cloudy-mosaic", "--dm", "9.5"}))

	s, params, err := request.params(cmd)
	require.NoError(t, err)
	assert.Equal(t, 30.0, s.Grid.CellSizeM)
	assert.Equal(t, 30.0, params.CellSizeM)
	assert.Equal(t, 9.5, s.Inference.DryMatter)
	assert.Equal(t, "2024-08-10", s.Imagery.DateStart)
	assert.Equal(t, sentinel.CompositeLeastCloudyMosaic, params.Composite.Strategy)

	require.NoError(t, cmd.ParseFlags([]string{"--rededge", "B9"}))
	_, _, err = request.params(cmd)
	require.ErrorIs(t, err, errs.ErrValidation)
}

func TestFiniteMean(t *testing.T) {
	mean, masked := finiteMean([]float64{1, math.NaN(), 3})
	assert.Equal(t, 2.0, mean)
	assert.Equal(t, 1, masked)

	mean, masked = finiteMean([]float64{math.NaN()})
	assert.True(t, math.IsNaN(mean))
	assert.Equal(t, 1, masked)
}
