package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/apex/log"

	"github.com/uadlabs/forge/internal/build"
	"github.com/uadlabs/forge/internal/generation"
	"github.com/uadlabs/forge/internal/registry"
)

// ActivateModeRequest is the body of POST /api/modes/activate.
type ActivateModeRequest struct {
	ModeID string `json:"modeId" validate:"required"`
}

// handleListModes lists the curated catalog with optional filters.
func (s *Server) handleListModes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := registry.CatalogFilter{
		Category: q.Get("category"),
		Featured: q.Get("featured") == "true",
		Search:   q.Get("search"),
	}

	modes := s.catalog.List(filter)
	if modes == nil {
		modes = []registry.Mode{}
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"modes":      modes,
		"total":      len(modes),
		"categories": registry.Categories,
	})
}

// handleGetMode returns a single catalog entry.
func (s *Server) handleGetMode(w http.ResponseWriter, r *http.Request) {
	mode, err := s.catalog.Get(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), "Mode not found")
		return
	}
	s.jsonResponse(w, http.StatusOK, mode)
}

// handleFeasibility runs the wizard's feasibility check. On any failure the
// client still gets a verdict it can render, marked not possible.
func (s *Server) handleFeasibility(w http.ResponseWriter, r *http.Request) {
	var req generation.FeasibilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "deviceName and purpose are required")
		return
	}

	verdict, err := s.wizard.Feasibility(r.Context(), req)
	if err != nil {
		log.WithField("device_name", req.DeviceName).WithError(err).Error("feasibility check failed")
		s.jsonResponse(w, http.StatusInternalServerError, generation.FeasibilityVerdict{
			Possible:  false,
			Reasoning: "AI Analysis Failed",
		})
		return
	}

	s.jsonResponse(w, http.StatusOK, verdict)
}

// UseCasesRequest is the body of POST /api/modes/use-cases.
type UseCasesRequest struct {
	DeviceName string `json:"deviceName" validate:"required"`
	Purpose    string `json:"purpose" validate:"required"`
}

// handleUseCases generates example use-case stories for a proposed device.
func (s *Server) handleUseCases(w http.ResponseWriter, r *http.Request) {
	var req UseCasesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "deviceName and purpose are required")
		return
	}

	useCases, err := s.wizard.UseCases(r.Context(), req.DeviceName, req.Purpose)
	if err != nil {
		log.WithField("device_name", req.DeviceName).WithError(err).Error("use case generation failed")
		s.jsonResponse(w, http.StatusInternalServerError, map[string]any{
			"use_cases": []generation.UseCase{},
		})
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{"use_cases": useCases})
}

// handleActivateMode resolves a mode to its generated source and runs a real
// build to install it on the device. The id resolves in order: catalog id,
// library id, then smart name (exact, then library lookup).
func (s *Server) handleActivateMode(w http.ResponseWriter, r *http.Request) {
	var req ActivateModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "modeId is required")
		return
	}

	if req.ModeID == "default" || req.ModeID == "reset" {
		s.activateDefaultBundle(w, r)
		return
	}

	smartName, onSuccess, ok := s.resolveMode(req.ModeID)
	if !ok {
		s.errorResponse(w, http.StatusNotFound, "Mode not found")
		return
	}

	sourcePath := filepath.Join(s.modulesDir, smartName+"_module.h")
	if _, err := os.Stat(sourcePath); err != nil {
		s.errorResponse(w, http.StatusNotFound, "Source code not found")
		return
	}

	binPath, err := s.runner.Compiler.CompileAndFlash(r.Context(), sourcePath, smartName)
	if err != nil {
		s.buildFailureResponse(w, err)
		return
	}

	onSuccess()

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"success":   true,
		"smartName": smartName,
		"binPath":   binPath,
		"message":   "Mode activated",
	})
}

// activateDefaultBundle restores factory firmware by compiling the default
// bundle source.
func (s *Server) activateDefaultBundle(w http.ResponseWriter, r *http.Request) {
	if _, err := os.Stat(s.defaultBundle); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Default bundle file missing")
		return
	}

	binPath, err := s.runner.Compiler.CompileAndFlash(r.Context(), s.defaultBundle, "default")
	if err != nil {
		s.buildFailureResponse(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"success": true,
		"binPath": binPath,
		"message": "Reset to Default Bundle",
	})
}

// resolveMode maps an activation id to the smart name to build and the
// bookkeeping to run after a successful build.
func (s *Server) resolveMode(modeID string) (smartName string, onSuccess func(), ok bool) {
	if mode, err := s.catalog.Get(modeID); err == nil {
		return mode.SmartName, func() {
			if _, err := s.catalog.IncrementDownloads(mode.ID); err != nil {
				log.WithField("mode_id", mode.ID).WithError(err).Warn("could not bump downloads")
			}
		}, true
	}

	if saved, err := s.library.Get(modeID); err == nil {
		return saved.SmartName, s.touchLibraryMode(saved.ID), true
	}

	if saved, found := s.library.FindBySmartName(modeID); found {
		return saved.SmartName, s.touchLibraryMode(saved.ID), true
	}

	return "", nil, false
}

func (s *Server) touchLibraryMode(id string) func() {
	return func() {
		if _, err := s.library.TouchActivation(id); err != nil {
			log.WithField("mode_id", id).WithError(err).Warn("could not record activation")
		}
	}
}

// buildFailureResponse surfaces a failed build with the compiler's output
// tail so clients can show a diagnostic.
func (s *Server) buildFailureResponse(w http.ResponseWriter, err error) {
	details := err.Error()
	var buildErr *build.BuildError
	if errors.As(err, &buildErr) && buildErr.Output != "" {
		details = build.Tail(buildErr.Output, build.OutputTailBytes)
	}
	s.jsonResponse(w, http.StatusInternalServerError, map[string]any{
		"error":   "Build Failed",
		"details": details,
	})
}
