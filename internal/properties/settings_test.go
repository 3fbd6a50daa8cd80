package properties

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettingsMissingFileReturnsDefaults(t *testing.T) {
	s, err := LoadSettings(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), s)
}

func TestLoadSettingsOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "imagery:\n  composite: least_cloudy_mosaic\n  redEdgeBand: B6\ngrid:\n  cellSizeM: 10\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	s, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, "least_cloudy_mosaic", s.Imagery.Composite)
	assert.Equal(t, "B6", s.Imagery.RedEdgeBand)
	assert.Equal(t, 10.0, s.Grid.CellSizeM)
	// untouched keys keep their defaults
	assert.Equal(t, 18.16, s.Inference.DryMatter)
	assert.Equal(t, "2024-08-10", s.Imagery.DateStart)
}

func TestSaveSettingsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	s := DefaultSettings()
	s.Processing.Workers = 9

	require.NoError(t, SaveSettings(s, path))

	loaded, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, 9, loaded.Processing.Workers)
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, splitList(""))
	assert.Equal(t, []string{"a", "b"}, splitList("a, b"))
}
