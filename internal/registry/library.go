package registry

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/apex/log"
)

// Library is the user's saved-mode collection. Every mutation runs under the
// lock and persists the whole collection back to the backing file before
// returning, so concurrent activations cannot lose updates.
type Library struct {
	mu    sync.Mutex
	path  string
	modes []SavedMode

	// now is replaceable for tests.
	now func() time.Time
}

// LibraryFilter narrows a library listing. Trash is hidden unless asked for
// explicitly via Status.
type LibraryFilter struct {
	Status string
	Search string
}

// SavedModeUpdate carries the mutable fields of a PUT update; nil/empty
// fields are left untouched.
type SavedModeUpdate struct {
	Status string
	Name   string
	Tags   []string
}

// LoadLibrary opens the my-modes file. A missing file yields an empty
// library.
func LoadLibrary(path string) (*Library, error) {
	l := &Library{path: path, now: time.Now}
	if err := loadCollection(path, &l.modes); err != nil {
		return nil, err
	}
	if len(l.modes) > 0 {
		log.WithField("count", len(l.modes)).Info("loaded saved modes")
	}
	return l, nil
}

// List returns entries passing the filter plus per-status counts over the
// whole library.
func (l *Library) List(filter LibraryFilter) ([]SavedMode, StatusCounts) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []SavedMode
	search := strings.ToLower(filter.Search)
	for _, m := range l.modes {
		if filter.Status == "" && m.Status == StatusTrash {
			continue
		}
		if filter.Status != "" && m.Status != filter.Status {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(m.Name), search) &&
			!strings.Contains(strings.ToLower(m.OriginalPrompt), search) {
			continue
		}
		out = append(out, m)
	}
	return out, l.counts()
}

// counts aggregates statuses. Caller must hold the lock.
func (l *Library) counts() StatusCounts {
	var c StatusCounts
	for _, m := range l.modes {
		switch m.Status {
		case StatusDraft:
			c.Drafts++
		case StatusActive:
			c.Active++
		case StatusFavorite:
			c.Favorites++
		case StatusTrash:
			c.Trash++
		}
		if m.Status != StatusTrash {
			c.All++
		}
	}
	return c
}

// Get returns the entry with the given id.
func (l *Library) Get(id string) (SavedMode, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if i := l.index(id); i >= 0 {
		return l.modes[i], nil
	}
	return SavedMode{}, &NotFoundError{Kind: "mode", ID: id}
}

// FindBySmartName returns the entry generated under the given smart name.
func (l *Library) FindBySmartName(smartName string) (SavedMode, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, m := range l.modes {
		if m.SmartName == smartName {
			return m, true
		}
	}
	return SavedMode{}, false
}

// Upsert records a successful generation. Regenerating an existing smart
// name reuses the entry id and creation time and bumps the version; a new
// smart name starts at version 1 in draft.
func (l *Library) Upsert(name, smartName, originalPrompt, cppFile, widgetFile string) (SavedMode, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	mode := SavedMode{
		ID:             fmt.Sprintf("mode-%d", now.UnixMilli()),
		Name:           name,
		SmartName:      smartName,
		OriginalPrompt: originalPrompt,
		Version:        1,
		Status:         StatusDraft,
		CreatedAt:      now,
		LastModified:   now,
		CppFile:        cppFile,
		WidgetFile:     widgetFile,
		Tags:           []string{},
	}

	replaced := false
	for i, existing := range l.modes {
		if existing.SmartName != smartName {
			continue
		}
		mode.ID = existing.ID
		mode.Version = existing.Version + 1
		mode.CreatedAt = existing.CreatedAt
		mode.ActivationCount = existing.ActivationCount
		l.modes[i] = mode
		replaced = true
		break
	}
	if !replaced {
		l.modes = append(l.modes, mode)
	}

	if err := saveCollection(l.path, l.modes); err != nil {
		return SavedMode{}, err
	}
	return mode, nil
}

// Update applies a PUT-style partial update and bumps lastModified.
func (l *Library) Update(id string, update SavedModeUpdate) (SavedMode, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.index(id)
	if i < 0 {
		return SavedMode{}, &NotFoundError{Kind: "mode", ID: id}
	}

	if update.Status != "" {
		l.modes[i].Status = update.Status
	}
	if update.Name != "" {
		l.modes[i].Name = update.Name
	}
	if update.Tags != nil {
		l.modes[i].Tags = update.Tags
	}
	l.modes[i].LastModified = l.now()

	if err := saveCollection(l.path, l.modes); err != nil {
		return SavedMode{}, err
	}
	return l.modes[i], nil
}

// Delete soft-deletes by default (status -> trash with a timestamp);
// permanent removes the entry outright.
func (l *Library) Delete(id string, permanent bool) (SavedMode, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.index(id)
	if i < 0 {
		return SavedMode{}, &NotFoundError{Kind: "mode", ID: id}
	}

	if permanent {
		deleted := l.modes[i]
		l.modes = append(l.modes[:i], l.modes[i+1:]...)
		if err := saveCollection(l.path, l.modes); err != nil {
			return SavedMode{}, err
		}
		return deleted, nil
	}

	now := l.now()
	l.modes[i].Status = StatusTrash
	l.modes[i].TrashedAt = &now
	if err := saveCollection(l.path, l.modes); err != nil {
		return SavedMode{}, err
	}
	return l.modes[i], nil
}

// Activate marks the entry active and demotes any previously active entry
// to draft. Favorites keep their favorite status when activated; at most one
// entry is ever active.
func (l *Library) Activate(id string) (SavedMode, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	target := l.index(id)
	if target < 0 {
		return SavedMode{}, &NotFoundError{Kind: "mode", ID: id}
	}

	now := l.now()
	for i := range l.modes {
		if i == target {
			if l.modes[i].Status != StatusFavorite {
				l.modes[i].Status = StatusActive
			}
			l.modes[i].ActivationCount++
			l.modes[i].LastActivated = &now
		} else if l.modes[i].Status == StatusActive {
			l.modes[i].Status = StatusDraft
		}
	}

	if err := saveCollection(l.path, l.modes); err != nil {
		return SavedMode{}, err
	}
	return l.modes[target], nil
}

// TouchActivation bumps the activation bookkeeping for an entry activated
// through the catalog path, without changing its status.
func (l *Library) TouchActivation(id string) (SavedMode, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.index(id)
	if i < 0 {
		return SavedMode{}, &NotFoundError{Kind: "mode", ID: id}
	}

	now := l.now()
	l.modes[i].ActivationCount++
	l.modes[i].LastActivated = &now
	if err := saveCollection(l.path, l.modes); err != nil {
		return SavedMode{}, err
	}
	return l.modes[i], nil
}

// index returns the position of id, or -1. Caller must hold the lock.
func (l *Library) index(id string) int {
	for i, m := range l.modes {
		if m.ID == id {
			return i
		}
	}
	return -1
}
