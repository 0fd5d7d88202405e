package generation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/uadlabs/forge/internal/llm"
	"github.com/uadlabs/forge/internal/prompts"
	"github.com/uadlabs/forge/internal/schemas"
)

// Wizard answers pre-generation questions: is the project feasible on the
// target hardware, and what could it be used for. Both answers are strict
// JSON validated against embedded schemas before anyone trusts them.
type Wizard struct {
	Client llm.Client
}

// FeasibilityRequest describes the proposed project.
type FeasibilityRequest struct {
	DeviceName  string          `json:"deviceName" validate:"required"`
	Purpose     string          `json:"purpose" validate:"required"`
	Hardware    json.RawMessage `json:"hardware"`
	Refinements string          `json:"refinements"`
}

// FeasibilityVerdict is the engineer-style assessment of the project.
type FeasibilityVerdict struct {
	Possible        bool     `json:"possible"`
	Difficulty      string   `json:"difficulty"`
	Reasoning       string   `json:"reasoning"`
	MissingHardware []string `json:"missing_hardware,omitempty"`
	Warnings        []string `json:"warnings,omitempty"`
}

// UseCase is one suggested user story for the device.
type UseCase struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon,omitempty"`
}

// Feasibility asks whether the project can be built on the available
// hardware.
func (w *Wizard) Feasibility(ctx context.Context, req FeasibilityRequest) (*FeasibilityVerdict, error) {
	refinements := ""
	if req.Refinements != "" {
		refinements = "REFINEMENTS: " + req.Refinements
	}

	prompt := prompts.Format(prompts.MustGet("wizard.json", "feasibility"), map[string]string{
		"DeviceName":  req.DeviceName,
		"Purpose":     req.Purpose,
		"Refinements": refinements,
		"Hardware":    rawJSONOrDefault(req.Hardware, "{}"),
	})

	text, err := w.Client.GenerateJSON(ctx, prompt, llm.TierStandard)
	if err != nil {
		return nil, &APICallError{Message: "feasibility analysis failed", Cause: err}
	}

	if err := schemas.ValidateFeasibility(text); err != nil {
		return nil, fmt.Errorf("feasibility verdict rejected: %w", err)
	}

	var verdict FeasibilityVerdict
	if err := json.Unmarshal([]byte(text), &verdict); err != nil {
		return nil, fmt.Errorf("failed to decode feasibility verdict: %w", err)
	}
	return &verdict, nil
}

// UseCases asks for three distinct user stories for the device.
func (w *Wizard) UseCases(ctx context.Context, deviceName, purpose string) ([]UseCase, error) {
	prompt := prompts.Format(prompts.MustGet("wizard.json", "use-cases"), map[string]string{
		"DeviceName": deviceName,
		"Purpose":    purpose,
	})

	text, err := w.Client.GenerateJSON(ctx, prompt, llm.TierStandard)
	if err != nil {
		return nil, &APICallError{Message: "use-case suggestion failed", Cause: err}
	}

	if err := schemas.ValidateUseCases(text); err != nil {
		return nil, fmt.Errorf("use-case suggestions rejected: %w", err)
	}

	var payload struct {
		UseCases []UseCase `json:"use_cases"`
	}
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return nil, fmt.Errorf("failed to decode use-case suggestions: %w", err)
	}
	return payload.UseCases, nil
}
