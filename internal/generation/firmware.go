// Package generation turns device descriptions into firmware modules and
// dashboard widgets via the LLM client, with a verification pass for C++
// output and a deterministic fallback when the provider is unavailable.
package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/apex/log"

	"github.com/uadlabs/forge/internal/llm"
	"github.com/uadlabs/forge/internal/naming"
	"github.com/uadlabs/forge/internal/prompts"
)

// FirmwareGenerator produces ESP32 C++ modules under OutputDir.
type FirmwareGenerator struct {
	Client    llm.Client
	OutputDir string
}

// FirmwareRequest carries the user's device description into generation.
type FirmwareRequest struct {
	DeviceType      string          `json:"device_type" validate:"required"`
	Features        []string        `json:"features"`
	HardwareProfile json.RawMessage `json:"hardware_profile"`
	UserProfile     json.RawMessage `json:"user_profile"`
}

// FirmwareResult describes a generated module artifact.
type FirmwareResult struct {
	SmartName string
	ClassName string
	Path      string
	Bytes     int
	Fallback  bool
	Verified  bool
}

// Generate runs the full firmware path: prompt, generate, normalize, verify,
// write. Provider exhaustion does not fail the request; a deterministic
// skeleton module is emitted instead so the build pipeline always has input.
func (g *FirmwareGenerator) Generate(ctx context.Context, req FirmwareRequest) (*FirmwareResult, error) {
	smartName := naming.SmartName(req.DeviceType)
	safeType := naming.Capitalize(smartName)
	className := safeType + "Module"
	guardName := strings.ToUpper(safeType)

	logger := log.WithField("smart_name", smartName)

	result := &FirmwareResult{SmartName: smartName, ClassName: className}

	code, err := g.generateCode(ctx, req, className, guardName)
	if err != nil {
		var genErr *llm.GenerationError
		if !errors.As(err, &genErr) {
			return nil, &APICallError{Message: "firmware generation failed", Cause: err}
		}
		logger.WithError(err).Warn("provider exhausted, using fallback module")
		code, err = fallbackModule(req.DeviceType, className, guardName)
		if err != nil {
			return nil, &APICallError{Message: "fallback generation failed", Cause: err}
		}
		result.Fallback = true
	}

	if !result.Fallback {
		fixed, verified := verifyAndFix(ctx, g.Client, code, className)
		code = fixed
		result.Verified = verified
	}

	path := filepath.Join(g.OutputDir, smartName+"_module.h")
	if err := os.MkdirAll(g.OutputDir, 0o755); err != nil {
		return nil, &WriteError{Path: g.OutputDir, Cause: err}
	}
	if err := os.WriteFile(path, []byte(code), 0o644); err != nil {
		return nil, &WriteError{Path: path, Cause: err}
	}

	result.Path = path
	result.Bytes = len(code)
	logger.WithField("bytes", result.Bytes).Info("firmware module written")
	return result, nil
}

// generateCode builds the module prompt and asks the advanced tier for code.
func (g *FirmwareGenerator) generateCode(ctx context.Context, req FirmwareRequest, className, guardName string) (string, error) {
	prompt := prompts.Format(prompts.MustGet("firmware.json", "generate-module"), map[string]string{
		"DeviceType":      req.DeviceType,
		"HardwareProfile": rawJSONOrDefault(req.HardwareProfile, "{}"),
		"Features":        featureList(req.Features),
		"ClassName":       className,
		"GuardName":       guardName,
	})

	text, err := g.Client.GenerateContent(ctx, prompt, llm.TierAdvanced)
	if err != nil {
		return "", err
	}
	return llm.CleanCodeBlock(text, "cpp", "c"), nil
}

func featureList(features []string) string {
	if len(features) == 0 {
		return "standard telemetry"
	}
	return strings.Join(features, ", ")
}

func rawJSONOrDefault(raw json.RawMessage, def string) string {
	if len(raw) == 0 {
		return def
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}
