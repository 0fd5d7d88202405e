// Package registry holds the two mode collections: the curated catalog and
// the user's my-modes library. Both sit behind store types that serialize
// every read-modify-write and persist the full collection back to their JSON
// file synchronously after each mutation.
package registry

import "time"

// Catalog categories. The catalog file is the source of truth for entries;
// this list is the fixed category vocabulary reported to clients.
var Categories = []string{"fitness", "music", "home", "security", "hobby"}

// Mode is a curated catalog entry. Immutable at runtime except Downloads.
type Mode struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	SmartName   string  `json:"smartName"`
	Featured    bool    `json:"featured"`
	Downloads   int     `json:"downloads"`
	Rating      float64 `json:"rating"`
}

// SavedMode lifecycle states.
const (
	StatusDraft    = "draft"
	StatusActive   = "active"
	StatusFavorite = "favorite"
	StatusTrash    = "trash"
)

// SavedMode is a user-library entry tying a prompt to its generated
// artifacts. Regenerations of the same smart name reuse the entry and bump
// Version; CreatedAt is preserved from the first generation.
type SavedMode struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	SmartName       string     `json:"smartName"`
	OriginalPrompt  string     `json:"originalPrompt"`
	Version         int        `json:"version"`
	Status          string     `json:"status"`
	CreatedAt       time.Time  `json:"createdAt"`
	LastModified    time.Time  `json:"lastModified"`
	LastActivated   *time.Time `json:"lastActivated,omitempty"`
	TrashedAt       *time.Time `json:"trashedAt,omitempty"`
	CppFile         string     `json:"cppFile"`
	WidgetFile      string     `json:"widgetFile"`
	ActivationCount int        `json:"activationCount"`
	Tags            []string   `json:"tags"`
}

// StatusCounts aggregates library entries per status for listings.
type StatusCounts struct {
	All       int `json:"all"`
	Drafts    int `json:"drafts"`
	Active    int `json:"active"`
	Favorites int `json:"favorites"`
	Trash     int `json:"trash"`
}
