package registry

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLibrary(t *testing.T) *Library {
	t.Helper()
	l, err := LoadLibrary(filepath.Join(t.TempDir(), "my_modes.json"))
	require.NoError(t, err)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	step := 0
	l.now = func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Second)
	}
	return l
}

func TestUpsertCreatesDraft(t *testing.T) {
	l := newTestLibrary(t)

	mode, err := l.Upsert("Guitar Tuner", "tuner", "build me a guitar tuner", "tuner_module.h", "tuner_widget.jsx")
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, mode.Status)
	assert.Equal(t, 1, mode.Version)
	assert.Equal(t, 0, mode.ActivationCount)
	assert.NotEmpty(t, mode.ID)
	assert.NotNil(t, mode.Tags)
}

func TestUpsertSameSmartNameBumpsVersion(t *testing.T) {
	l := newTestLibrary(t)

	first, err := l.Upsert("Guitar Tuner", "tuner", "build me a guitar tuner", "tuner_module.h", "")
	require.NoError(t, err)

	second, err := l.Upsert("Guitar Tuner v2", "tuner", "better guitar tuner", "tuner_module.h", "tuner_widget.jsx")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.Equal(t, 2, second.Version)
	assert.Greater(t, second.LastModified.Unix(), first.LastModified.Unix()-1)

	modes, _ := l.List(LibraryFilter{})
	assert.Len(t, modes, 1)
}

func TestActivateSingleActiveInvariant(t *testing.T) {
	l := newTestLibrary(t)
	a, err := l.Upsert("Tuner", "tuner", "tuner", "tuner_module.h", "")
	require.NoError(t, err)
	b, err := l.Upsert("Runner", "runner", "runner", "runner_module.h", "")
	require.NoError(t, err)

	_, err = l.Activate(a.ID)
	require.NoError(t, err)
	activated, err := l.Activate(b.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, activated.Status)
	assert.Equal(t, 1, activated.ActivationCount)
	require.NotNil(t, activated.LastActivated)

	// Activating B demoted A back to draft.
	demoted, err := l.Get(a.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, demoted.Status)

	active := 0
	modes, _ := l.List(LibraryFilter{})
	for _, m := range modes {
		if m.Status == StatusActive {
			active++
		}
	}
	assert.Equal(t, 1, active)
}

func TestActivatePreservesFavorite(t *testing.T) {
	l := newTestLibrary(t)
	fav, err := l.Upsert("Tuner", "tuner", "tuner", "tuner_module.h", "")
	require.NoError(t, err)
	other, err := l.Upsert("Runner", "runner", "runner", "runner_module.h", "")
	require.NoError(t, err)

	_, err = l.Update(fav.ID, SavedModeUpdate{Status: StatusFavorite})
	require.NoError(t, err)
	got, err := l.Activate(fav.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFavorite, got.Status, "favorites keep their status on activation")
	assert.Equal(t, 1, got.ActivationCount)

	_, err = l.Activate(other.ID)
	require.NoError(t, err)
	kept, err := l.Get(fav.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFavorite, kept.Status, "activating another mode must not demote a favorite")
}

func TestSoftDeleteHiddenByDefault(t *testing.T) {
	l := newTestLibrary(t)
	mode, err := l.Upsert("Tuner", "tuner", "tuner", "tuner_module.h", "")
	require.NoError(t, err)

	_, err = l.Delete(mode.ID, false)
	require.NoError(t, err)

	visible, counts := l.List(LibraryFilter{})
	assert.Empty(t, visible)
	assert.Equal(t, 1, counts.Trash)

	trashed, _ := l.List(LibraryFilter{Status: StatusTrash})
	require.Len(t, trashed, 1)
	assert.Equal(t, mode.ID, trashed[0].ID)
	assert.NotNil(t, trashed[0].TrashedAt)

	// The mode is still addressable by id.
	_, err = l.Get(mode.ID)
	assert.NoError(t, err)
}

func TestPermanentDeleteRemoves(t *testing.T) {
	l := newTestLibrary(t)
	mode, err := l.Upsert("Tuner", "tuner", "tuner", "tuner_module.h", "")
	require.NoError(t, err)

	_, err = l.Delete(mode.ID, true)
	require.NoError(t, err)

	_, err = l.Get(mode.ID)
	var nfErr *NotFoundError
	require.ErrorAs(t, err, &nfErr)

	trashed, _ := l.List(LibraryFilter{Status: StatusTrash})
	assert.Empty(t, trashed)
}

func TestListCountsAndSearch(t *testing.T) {
	l := newTestLibrary(t)
	a, _ := l.Upsert("Guitar Tuner", "tuner", "a chromatic guitar tuner", "tuner_module.h", "")
	b, _ := l.Upsert("Running Coach", "runner", "track my running cadence", "runner_module.h", "")
	c, _ := l.Upsert("Door Guard", "door", "watch the front door", "door_module.h", "")

	_, err := l.Update(a.ID, SavedModeUpdate{Status: StatusFavorite})
	require.NoError(t, err)
	_, err = l.Activate(b.ID)
	require.NoError(t, err)
	_, err = l.Delete(c.ID, false)
	require.NoError(t, err)

	modes, counts := l.List(LibraryFilter{})
	assert.Len(t, modes, 2)
	assert.Equal(t, 3, counts.All)
	assert.Equal(t, 0, counts.Drafts)
	assert.Equal(t, 1, counts.Active)
	assert.Equal(t, 1, counts.Favorites)
	assert.Equal(t, 1, counts.Trash)

	byPrompt, _ := l.List(LibraryFilter{Search: "cadence"})
	require.Len(t, byPrompt, 1)
	assert.Equal(t, b.ID, byPrompt[0].ID)

	byName, _ := l.List(LibraryFilter{Search: "guitar"})
	require.Len(t, byName, 1)
	assert.Equal(t, a.ID, byName[0].ID)
}

func TestFindBySmartName(t *testing.T) {
	l := newTestLibrary(t)
	mode, err := l.Upsert("Guitar Tuner", "tuner", "tuner", "tuner_module.h", "")
	require.NoError(t, err)

	found, ok := l.FindBySmartName("tuner")
	require.True(t, ok)
	assert.Equal(t, mode.ID, found.ID)

	_, ok = l.FindBySmartName("missing")
	assert.False(t, ok)
}

func TestLibraryWriteThrough(t *testing.T) {
	path := filepath.Join(t.TempDir(), "my_modes.json")
	l, err := LoadLibrary(path)
	require.NoError(t, err)

	mode, err := l.Upsert("Guitar Tuner", "tuner", "tuner", "tuner_module.h", "")
	require.NoError(t, err)
	_, err = l.Activate(mode.ID)
	require.NoError(t, err)

	reloaded, err := LoadLibrary(path)
	require.NoError(t, err)
	got, err := reloaded.Get(mode.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, got.Status)
	assert.Equal(t, 1, got.ActivationCount)
}
