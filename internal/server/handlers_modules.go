package server

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"

	"github.com/apex/log"

	"github.com/uadlabs/forge/internal/pipeline"
)

// GenerateModuleRequest is the body of POST /api/modules/generate.
type GenerateModuleRequest struct {
	DeviceType      string          `json:"device_type" validate:"required"`
	Features        []string        `json:"features"`
	HardwareProfile json.RawMessage `json:"hardware_profile"`
	UserProfile     json.RawMessage `json:"user_profile"`
}

// GenerateModuleResponse acknowledges an accepted generation job.
type GenerateModuleResponse struct {
	Success bool   `json:"success"`
	JobID   string `json:"job_id"`
}

// ModuleCheckResponse reports whether a compiled module is available.
type ModuleCheckResponse struct {
	UpdateAvailable bool   `json:"update_available"`
	Version         string `json:"version"`
	DeviceType      string `json:"device_type"`
	Size            int64  `json:"size"`
}

// handleGenerateModule accepts a generation job and runs it on the worker
// pool. The response returns immediately; clients poll the status endpoint.
func (s *Server) handleGenerateModule(w http.ResponseWriter, r *http.Request) {
	var req GenerateModuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "device_type is required")
		return
	}

	job := s.jobs.Create(req.DeviceType)
	opts := pipeline.RunOptions{
		DeviceType:      req.DeviceType,
		Features:        req.Features,
		HardwareProfile: req.HardwareProfile,
		UserProfile:     req.UserProfile,
	}

	s.pool.Submit(func() {
		// Detached from the request context: the job outlives the response.
		if err := s.runner.RunJob(context.Background(), job.ID, opts); err != nil {
			log.WithField("job_id", job.ID).WithError(err).Error("generation job failed")
		}
	})

	s.jsonResponse(w, http.StatusOK, GenerateModuleResponse{Success: true, JobID: job.ID})
}

// handleJobStatus returns the state of a job by id.
func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := r.URL.Query().Get("job_id")
	if jobID == "" {
		s.errorResponse(w, http.StatusBadRequest, "job_id is required")
		return
	}

	job, err := s.jobs.Get(jobID)
	if err != nil {
		s.errorResponse(w, http.StatusNotFound, "Job not found")
		return
	}

	s.jsonResponse(w, http.StatusOK, job)
}

// handleCheckModule reports whether a compiled binary exists for a device.
func (s *Server) handleCheckModule(w http.ResponseWriter, r *http.Request) {
	deviceType := r.URL.Query().Get("device_type")
	modulePath := filepath.Join(s.compiledDir, deviceType+"_module.bin")

	resp := ModuleCheckResponse{
		Version:    "1.0.0",
		DeviceType: deviceType,
	}
	if info, err := os.Stat(modulePath); err == nil {
		resp.UpdateAvailable = true
		resp.Size = info.Size()
	}

	s.jsonResponse(w, http.StatusOK, resp)
}

// handleDownloadModule serves a compiled binary.
func (s *Server) handleDownloadModule(w http.ResponseWriter, r *http.Request) {
	deviceType := r.URL.Query().Get("device_type")
	modulePath := filepath.Join(s.compiledDir, deviceType+"_module.bin")

	if _, err := os.Stat(modulePath); err != nil {
		s.errorResponse(w, http.StatusNotFound, "Module not found")
		return
	}

	http.ServeFile(w, r, modulePath)
}
