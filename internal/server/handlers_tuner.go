package server

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"

	"github.com/apex/log"

	"github.com/uadlabs/forge/internal/tuner"
)

// UpdateParametersRequest is the body of POST /api/modes/{smartName}/parameters.
type UpdateParametersRequest struct {
	Updates map[string]string `json:"updates" validate:"required"`
}

// handleGetParameters extracts the tunable declarations from a generated
// module's source.
func (s *Server) handleGetParameters(w http.ResponseWriter, r *http.Request) {
	smartName := r.PathValue("smartName")
	sourcePath := filepath.Join(s.modulesDir, smartName+"_module.h")

	content, err := os.ReadFile(sourcePath)
	if err != nil {
		s.errorResponse(w, http.StatusNotFound, "Module file not found")
		return
	}

	params, err := tuner.Extract(string(content))
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, params)
}

// handleUpdateParameters rewrites parameter values in the module source and
// queues a compile-only job so the change reaches the device.
func (s *Server) handleUpdateParameters(w http.ResponseWriter, r *http.Request) {
	smartName := r.PathValue("smartName")
	sourcePath := filepath.Join(s.modulesDir, smartName+"_module.h")

	var req UpdateParametersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(req.Updates) == 0 {
		s.errorResponse(w, http.StatusBadRequest, "updates is required")
		return
	}

	content, err := os.ReadFile(sourcePath)
	if err != nil {
		s.errorResponse(w, http.StatusNotFound, "Module file not found")
		return
	}

	updated, changed := tuner.Apply(string(content), req.Updates)
	if err := os.WriteFile(sourcePath, []byte(updated), 0o644); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Could not write module file")
		return
	}

	job := s.jobs.CreateBuild(smartName, smartName)
	s.pool.Submit(func() {
		if err := s.runner.Rebuild(context.Background(), job.ID, sourcePath, smartName); err != nil {
			log.WithField("job_id", job.ID).WithError(err).Error("rebuild job failed")
		}
	})

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Parameters updated & compiling",
		"job_id":  job.ID,
		"changed": changed,
	})
}
