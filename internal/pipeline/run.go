// Package pipeline orchestrates generation jobs end to end: smart naming,
// concurrent firmware and widget generation, library registration, and the
// compile stage, with job status transitions recorded along the way.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/apex/log"
	"golang.org/x/sync/errgroup"

	"github.com/uadlabs/forge/internal/build"
	"github.com/uadlabs/forge/internal/generation"
	"github.com/uadlabs/forge/internal/jobs"
	"github.com/uadlabs/forge/internal/registry"
)

// Runner wires the stages of a generation job together. All fields are
// required except Library, which may be nil to skip auto-registration.
type Runner struct {
	Jobs     *jobs.Store
	Firmware *generation.FirmwareGenerator
	Widget   *generation.WidgetGenerator
	Library  *registry.Library
	Compiler build.Compiler
}

// RunOptions holds the inputs of one generation job.
type RunOptions struct {
	DeviceType      string
	Features        []string
	HardwareProfile json.RawMessage
	UserProfile     json.RawMessage

	// Widget branch inputs. The branch runs only when WithWidget is set.
	WithWidget  bool
	Description string
	DataFields  []string
}

// RunJob executes a generation job to its terminal state. Errors are recorded
// on the job; the returned error mirrors the job's failure for callers that
// run synchronously.
func (r *Runner) RunJob(ctx context.Context, jobID string, opts RunOptions) error {
	logger := log.WithFields(log.Fields{
		"job_id":      jobID,
		"device_type": opts.DeviceType,
	})
	logger.Info("generation job started")

	firmwareResult, widgetResult, err := r.generate(ctx, opts)
	if err != nil {
		logger.WithError(err).Error("generation job failed")
		return r.fail(jobID, err)
	}

	if r.Library != nil {
		widgetFile := ""
		if widgetResult != nil {
			widgetFile = widgetResult.Path
		} else if existing, ok := r.Library.FindBySmartName(firmwareResult.SmartName); ok {
			// Firmware-only regeneration must not drop a widget the mode
			// already has.
			widgetFile = existing.WidgetFile
		}
		prompt := opts.Description
		if prompt == "" {
			prompt = opts.DeviceType
		}
		saved, err := r.Library.Upsert(opts.DeviceType, firmwareResult.SmartName, prompt, firmwareResult.Path, widgetFile)
		if err != nil {
			logger.WithError(err).Warn("could not register mode in library")
		} else {
			logger.WithField("mode_id", saved.ID).Info("mode registered")
		}
	}

	if err := r.Jobs.MarkCompiling(jobID, firmwareResult.SmartName); err != nil {
		return err
	}

	binPath, err := r.Compiler.CompileAndFlash(ctx, firmwareResult.Path, firmwareResult.SmartName)
	if err != nil {
		logger.WithError(err).Error("compile stage failed")
		return r.fail(jobID, err)
	}

	if err := r.Jobs.Complete(jobID, binPath); err != nil {
		return err
	}
	logger.WithField("path", binPath).Info("generation job completed")
	return nil
}

// generate runs the firmware branch and, when requested, the widget branch
// concurrently. The firmware result is always required; the widget branch
// failing fails the job too since the caller asked for it.
func (r *Runner) generate(ctx context.Context, opts RunOptions) (*generation.FirmwareResult, *generation.WidgetResult, error) {
	g, gCtx := errgroup.WithContext(ctx)

	var firmwareResult *generation.FirmwareResult
	var widgetResult *generation.WidgetResult

	g.Go(func() error {
		result, err := r.Firmware.Generate(gCtx, generation.FirmwareRequest{
			DeviceType:      opts.DeviceType,
			Features:        opts.Features,
			HardwareProfile: opts.HardwareProfile,
			UserProfile:     opts.UserProfile,
		})
		if err != nil {
			return fmt.Errorf("firmware branch failed: %w", err)
		}
		firmwareResult = result
		return nil
	})

	if opts.WithWidget {
		g.Go(func() error {
			result, err := r.Widget.Generate(gCtx, generation.WidgetRequest{
				DeviceType:  opts.DeviceType,
				Description: opts.Description,
				DataFields:  opts.DataFields,
			})
			if err != nil {
				return fmt.Errorf("widget branch failed: %w", err)
			}
			widgetResult = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return firmwareResult, widgetResult, nil
}

// GenerateWidget runs the synchronous widget path used by the widget
// endpoint: generate, then register (or refresh) the mode in the library.
func (r *Runner) GenerateWidget(ctx context.Context, req generation.WidgetRequest) (*generation.WidgetResult, *registry.SavedMode, error) {
	result, err := r.Widget.Generate(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	if r.Library == nil {
		return result, nil, nil
	}

	prompt := req.Description
	if prompt == "" {
		prompt = "Custom mode generated by AI"
	}
	cppFile := ""
	if existing, ok := r.Library.FindBySmartName(result.SmartName); ok {
		cppFile = existing.CppFile
	}
	saved, err := r.Library.Upsert(req.DeviceType, result.SmartName, prompt, cppFile, result.Path)
	if err != nil {
		return nil, nil, err
	}
	return result, &saved, nil
}

// Rebuild runs a compile-only job for an already generated module, used after
// parameter tuning. The job starts in the compiling state.
func (r *Runner) Rebuild(ctx context.Context, jobID, modulePath, smartName string) error {
	logger := log.WithFields(log.Fields{
		"job_id":     jobID,
		"smart_name": smartName,
	})
	logger.Info("rebuild started")

	binPath, err := r.Compiler.CompileAndFlash(ctx, modulePath, smartName)
	if err != nil {
		logger.WithError(err).Error("rebuild failed")
		return r.fail(jobID, err)
	}

	if err := r.Jobs.Complete(jobID, binPath); err != nil {
		return err
	}
	logger.WithField("path", binPath).Info("rebuild completed")
	return nil
}

func (r *Runner) fail(jobID string, cause error) error {
	if err := r.Jobs.Fail(jobID, cause.Error()); err != nil {
		log.WithField("job_id", jobID).WithError(err).Error("could not record job failure")
	}
	return cause
}
