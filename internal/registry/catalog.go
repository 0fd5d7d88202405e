package registry

import (
	"strings"
	"sync"

	"github.com/apex/log"
)

// Catalog is the curated mode collection, read from its JSON file at startup
// and persisted write-through when downloads are bumped on activation.
type Catalog struct {
	mu    sync.Mutex
	path  string
	modes []Mode
}

// CatalogFilter narrows a catalog listing.
type CatalogFilter struct {
	Category string
	Featured bool
	Search   string
}

// LoadCatalog opens the catalog file. A missing file yields an empty
// catalog.
func LoadCatalog(path string) (*Catalog, error) {
	c := &Catalog{path: path}
	if err := loadCollection(path, &c.modes); err != nil {
		return nil, err
	}
	if len(c.modes) == 0 {
		log.WithField("path", path).Warn("no catalog file found, starting with empty library")
	} else {
		log.WithField("count", len(c.modes)).Info("loaded verified modes")
	}
	return c, nil
}

// List returns the modes passing the filter.
func (c *Catalog) List(filter CatalogFilter) []Mode {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []Mode
	search := strings.ToLower(filter.Search)
	for _, m := range c.modes {
		if filter.Category != "" && m.Category != filter.Category {
			continue
		}
		if filter.Featured && !m.Featured {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(m.Name), search) &&
			!strings.Contains(strings.ToLower(m.Description), search) {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Get returns the catalog entry with the given id.
func (c *Catalog) Get(id string) (Mode, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, m := range c.modes {
		if m.ID == id {
			return m, nil
		}
	}
	return Mode{}, &NotFoundError{Kind: "mode", ID: id}
}

// IncrementDownloads bumps the download counter on activation and persists
// the catalog.
func (c *Catalog) IncrementDownloads(id string) (Mode, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.modes {
		if c.modes[i].ID == id {
			c.modes[i].Downloads++
			if err := saveCollection(c.path, c.modes); err != nil {
				return Mode{}, err
			}
			return c.modes[i], nil
		}
	}
	return Mode{}, &NotFoundError{Kind: "mode", ID: id}
}

// Len reports the number of catalog entries.
func (c *Catalog) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.modes)
}
