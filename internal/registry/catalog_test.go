package registry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCatalogFile(t *testing.T, modes []Mode) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "modes.json")
	data, err := json.MarshalIndent(modes, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func testCatalogModes() []Mode {
	return []Mode{
		{ID: "guitar-tuner", Name: "Guitar Tuner", Description: "Chromatic tuner with waveform display", Category: "music", SmartName: "tuner", Featured: true, Downloads: 10, Rating: 4.8},
		{ID: "running-coach", Name: "Running Coach", Description: "Cadence and fatigue tracking", Category: "fitness", SmartName: "runner", Downloads: 3, Rating: 4.2},
		{ID: "door-guard", Name: "Door Guard", Description: "Entry monitoring and alerts", Category: "security", SmartName: "door", Featured: true, Downloads: 7, Rating: 4.5},
	}
}

func TestLoadCatalogMissingFileIsEmpty(t *testing.T) {
	c, err := LoadCatalog(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.List(CatalogFilter{}))
}

func TestCatalogFilters(t *testing.T) {
	c, err := LoadCatalog(writeCatalogFile(t, testCatalogModes()))
	require.NoError(t, err)

	tests := []struct {
		name     string
		filter   CatalogFilter
		expected []string
	}{
		{"no filter", CatalogFilter{}, []string{"guitar-tuner", "running-coach", "door-guard"}},
		{"by category", CatalogFilter{Category: "music"}, []string{"guitar-tuner"}},
		{"featured only", CatalogFilter{Featured: true}, []string{"guitar-tuner", "door-guard"}},
		{"search name case-insensitive", CatalogFilter{Search: "GUITAR"}, []string{"guitar-tuner"}},
		{"search description", CatalogFilter{Search: "fatigue"}, []string{"running-coach"}},
		{"search no hit", CatalogFilter{Search: "sailing"}, nil},
		{"category and featured", CatalogFilter{Category: "fitness", Featured: true}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, m := range c.List(tt.filter) {
				got = append(got, m.ID)
			}
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestCatalogGet(t *testing.T) {
	c, err := LoadCatalog(writeCatalogFile(t, testCatalogModes()))
	require.NoError(t, err)

	mode, err := c.Get("door-guard")
	require.NoError(t, err)
	assert.Equal(t, "door", mode.SmartName)

	_, err = c.Get("nope")
	var nfErr *NotFoundError
	require.ErrorAs(t, err, &nfErr)
}

func TestIncrementDownloadsPersists(t *testing.T) {
	path := writeCatalogFile(t, testCatalogModes())
	c, err := LoadCatalog(path)
	require.NoError(t, err)

	mode, err := c.IncrementDownloads("guitar-tuner")
	require.NoError(t, err)
	assert.Equal(t, 11, mode.Downloads)

	// Write-through: a fresh load from disk sees the bump.
	reloaded, err := LoadCatalog(path)
	require.NoError(t, err)
	again, err := reloaded.Get("guitar-tuner")
	require.NoError(t, err)
	assert.Equal(t, 11, again.Downloads)
}
