package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/apex/log"

	"github.com/uadlabs/forge/internal/generation"
	"github.com/uadlabs/forge/internal/registry"
)

// GenerateWidgetResponse is the body returned by POST /api/widgets/generate.
type GenerateWidgetResponse struct {
	Success    bool                `json:"success"`
	SmartName  string              `json:"smart_name"`
	WidgetPath string              `json:"widget_path"`
	SavedMode  *registry.SavedMode `json:"saved_mode,omitempty"`
}

// handleGenerateWidget generates a dashboard widget synchronously. Widgets
// are small enough that the request waits for the result.
func (s *Server) handleGenerateWidget(w http.ResponseWriter, r *http.Request) {
	var req generation.WidgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "device_type is required")
		return
	}

	result, saved, err := s.runner.GenerateWidget(r.Context(), req)
	if err != nil {
		log.WithField("device_type", req.DeviceType).WithError(err).Error("widget generation failed")
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, GenerateWidgetResponse{
		Success:    true,
		SmartName:  result.SmartName,
		WidgetPath: result.Path,
		SavedMode:  saved,
	})
}

// handleGetWidget serves a generated widget file by device type. Lookup is
// lenient: exact name, lowercased name, then a case-insensitive directory
// scan, so clients do not have to know the normalized smart name.
func (s *Server) handleGetWidget(w http.ResponseWriter, r *http.Request) {
	deviceType := r.PathValue("type")

	candidates := []string{
		deviceType + "_view.jsx",
		strings.ToLower(deviceType) + "_view.jsx",
	}
	for _, name := range candidates {
		path := filepath.Join(s.widgetsDir, name)
		if _, err := os.Stat(path); err == nil {
			w.Header().Set("Content-Type", "application/javascript")
			http.ServeFile(w, r, path)
			return
		}
	}

	// Fall back to scanning the directory case-insensitively.
	want := strings.ToLower(deviceType) + "_view.jsx"
	if entries, err := os.ReadDir(s.widgetsDir); err == nil {
		for _, entry := range entries {
			if strings.ToLower(entry.Name()) == want {
				w.Header().Set("Content-Type", "application/javascript")
				http.ServeFile(w, r, filepath.Join(s.widgetsDir, entry.Name()))
				return
			}
		}
	}

	s.jsonResponse(w, http.StatusNotFound, map[string]any{
		"error":     "Widget not found",
		"requested": deviceType,
	})
}
