package server

import (
	"encoding/json"
	"net/http"

	"github.com/uadlabs/forge/internal/registry"
)

// UpdateMyModeRequest is the body of PUT /api/my-modes/{id}. Omitted fields
// are left untouched.
type UpdateMyModeRequest struct {
	Status string   `json:"status"`
	Name   string   `json:"name"`
	Tags   []string `json:"tags"`
}

// handleListMyModes lists the user library with optional status/search
// filters. Trash is hidden unless requested explicitly.
func (s *Server) handleListMyModes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := registry.LibraryFilter{
		Status: q.Get("status"),
		Search: q.Get("search"),
	}

	modes, counts := s.library.List(filter)
	if modes == nil {
		modes = []registry.SavedMode{}
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"modes":  modes,
		"total":  len(modes),
		"counts": counts,
	})
}

// handleGetMyMode returns a single library entry.
func (s *Server) handleGetMyMode(w http.ResponseWriter, r *http.Request) {
	mode, err := s.library.Get(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), "Mode not found")
		return
	}
	s.jsonResponse(w, http.StatusOK, mode)
}

// handleUpdateMyMode applies a partial update to a library entry.
func (s *Server) handleUpdateMyMode(w http.ResponseWriter, r *http.Request) {
	var req UpdateMyModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	mode, err := s.library.Update(r.PathValue("id"), registry.SavedModeUpdate{
		Status: req.Status,
		Name:   req.Name,
		Tags:   req.Tags,
	})
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"success": true,
		"mode":    mode,
	})
}

// handleDeleteMyMode moves a library entry to trash, or removes it for good
// with ?permanent=true.
func (s *Server) handleDeleteMyMode(w http.ResponseWriter, r *http.Request) {
	permanent := r.URL.Query().Get("permanent") == "true"

	mode, err := s.library.Delete(r.PathValue("id"), permanent)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	message := "Mode moved to trash"
	if permanent {
		message = "Mode permanently deleted"
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"success": true,
		"message": message,
		"mode":    mode,
	})
}

// handleActivateMyMode marks a library entry active (demoting the previous
// active entry) without rebuilding: the build path is the modes activate
// endpoint.
func (s *Server) handleActivateMyMode(w http.ResponseWriter, r *http.Request) {
	mode, err := s.library.Activate(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"success": true,
		"mode":    mode,
	})
}
