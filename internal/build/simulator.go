package build

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/apex/log"
)

// placeholderBinary is the simulated artifact content.
const placeholderBinary = "BINARY_DATA_PLACEHOLDER"

// Simulator stands in for the real toolchain during generation jobs on
// deployments without PlatformIO installed: it waits out a fixed compile
// delay and writes a placeholder binary under the smart name.
type Simulator struct {
	ArtifactDir string
	Delay       time.Duration
}

// CompileAndFlash writes the placeholder artifact after the configured
// delay. It honors context cancellation during the wait.
func (s *Simulator) CompileAndFlash(ctx context.Context, candidateSourcePath, smartName string) (string, error) {
	if s.Delay > 0 {
		select {
		case <-time.After(s.Delay):
		case <-ctx.Done():
			return "", &BuildError{SmartName: smartName, Cause: ctx.Err()}
		}
	}

	if err := os.MkdirAll(s.ArtifactDir, 0o755); err != nil {
		return "", &BuildError{SmartName: smartName, Cause: err}
	}
	binPath := filepath.Join(s.ArtifactDir, smartName+"_module.bin")
	if err := os.WriteFile(binPath, []byte(placeholderBinary), 0o644); err != nil {
		return "", &BuildError{SmartName: smartName, Cause: err}
	}

	log.WithField("smart_name", smartName).WithField("path", binPath).
		Debug("simulated compilation finished")
	return binPath, nil
}
