// Package build runs candidate firmware sources through the external
// toolchain. The active-firmware slot is a process-wide critical section: it
// is backed up before every build and restored on any failure, so it always
// holds either the previous good source or the new good source.
package build

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/apex/log"
)

const (
	// DefaultTimeout bounds a single toolchain invocation. The toolchain
	// itself has no timeout of its own, so a stuck build would otherwise
	// block its job forever.
	DefaultTimeout = 10 * time.Minute

	// OutputTailBytes is how much captured compiler output is kept on a
	// failed build, for the diagnostic surfaced to the caller.
	OutputTailBytes = 500
)

// Compiler turns a candidate firmware source into a binary artifact keyed by
// smart name.
type Compiler interface {
	CompileAndFlash(ctx context.Context, candidateSourcePath, smartName string) (string, error)
}

// Pipeline drives the real embedded toolchain (PlatformIO).
type Pipeline struct {
	// ProjectRoot is the firmware project the toolchain compiles.
	ProjectRoot string
	// CurrentModulePath is the active-firmware slot inside the project.
	// A relative path is resolved against ProjectRoot.
	CurrentModulePath string
	// Command is the toolchain invocation, argv style.
	Command []string
	// OutputBinary is the toolchain's produced binary, relative to
	// ProjectRoot.
	OutputBinary string
	// ArtifactDir receives the per-mode binary copies.
	ArtifactDir string
	// Timeout bounds one toolchain run; zero means DefaultTimeout.
	Timeout time.Duration

	// mu serializes builds: concurrent invocations would race on the
	// slot/backup pair and break the restore invariant.
	mu sync.Mutex
}

// CompileAndFlash installs the candidate into the active-firmware slot, runs
// the toolchain, and on success copies the produced binary into the artifact
// store under a smart-name-derived filename.
//
// On any failure after the slot was touched, the previous content is
// restored if a backup was made. A failed build with no prior slot content
// leaves the candidate in place; there is nothing to restore to.
func (p *Pipeline) CompileAndFlash(ctx context.Context, candidateSourcePath, smartName string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	logger := log.WithField("smart_name", smartName)
	logger.WithField("source", candidateSourcePath).Info("starting build pipeline")

	if len(p.Command) == 0 {
		return "", &BuildError{SmartName: smartName, Cause: fmt.Errorf("no toolchain command configured")}
	}
	if _, err := exec.LookPath(p.Command[0]); err != nil {
		return "", &BuildError{
			SmartName: smartName,
			Cause:     fmt.Errorf("toolchain %q not found in PATH: %w", p.Command[0], err),
		}
	}

	slotPath := p.slotPath()
	backupPath := slotPath + ".bak"

	// 1. Back up the active slot if it holds anything.
	backupCreated := false
	if _, err := os.Stat(slotPath); err == nil {
		if err := copyFile(slotPath, backupPath); err != nil {
			logger.WithError(err).Warn("could not back up active module")
		} else {
			backupCreated = true
		}
	}

	restore := func() {
		if !backupCreated {
			return
		}
		logger.Info("restoring previous module")
		if err := copyFile(backupPath, slotPath); err != nil {
			logger.WithError(err).Error("failed to restore module backup")
		}
	}

	// 2. Install the candidate into the slot.
	candidate, err := os.ReadFile(candidateSourcePath)
	if err != nil {
		return "", &BuildError{SmartName: smartName, Cause: fmt.Errorf("read candidate source: %w", err)}
	}
	if err := os.WriteFile(slotPath, candidate, 0o644); err != nil {
		restore()
		return "", &BuildError{SmartName: smartName, Cause: fmt.Errorf("install candidate source: %w", err)}
	}

	// 3. Run the toolchain with combined output captured.
	timeout := p.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, p.Command[0], p.Command[1:]...)
	cmd.Dir = p.ProjectRoot

	var output strings.Builder
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Run(); err != nil {
		// 4. Toolchain failure: put the previous source back, surface
		// the output tail.
		restore()
		tail := Tail(output.String(), OutputTailBytes)
		logger.WithError(err).Error("compilation failed")
		return "", &BuildError{SmartName: smartName, Output: tail, Cause: err}
	}

	logger.Info("compilation successful")

	// 5. Copy the produced binary into the artifact store.
	builtBin := filepath.Join(p.ProjectRoot, p.OutputBinary)
	destBin := filepath.Join(p.ArtifactDir, smartName+"_firmware.bin")
	if _, err := os.Stat(builtBin); err == nil {
		if err := copyFile(builtBin, destBin); err != nil {
			return "", &BuildError{SmartName: smartName, Cause: fmt.Errorf("copy artifact: %w", err)}
		}
	} else {
		logger.WithField("path", builtBin).Warn("toolchain reported success but produced no binary")
	}

	return destBin, nil
}

// slotPath anchors a relative CurrentModulePath at ProjectRoot, so the slot
// the candidate is installed into is the file the toolchain compiles
// regardless of the process working directory.
func (p *Pipeline) slotPath() string {
	if filepath.IsAbs(p.CurrentModulePath) {
		return p.CurrentModulePath
	}
	return filepath.Join(p.ProjectRoot, p.CurrentModulePath)
}

// Tail returns the last n bytes of s.
func Tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}
