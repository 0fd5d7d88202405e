package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uadlabs/forge/internal/build"
	"github.com/uadlabs/forge/internal/generation"
	"github.com/uadlabs/forge/internal/jobs"
	"github.com/uadlabs/forge/internal/llm"
	"github.com/uadlabs/forge/internal/registry"
)

// scriptedClient returns canned responses per call, shared across branches.
type scriptedClient struct {
	response string
	err      error
}

func (s *scriptedClient) GenerateContent(context.Context, string, llm.ModelTier) (string, error) {
	return s.response, s.err
}

func (s *scriptedClient) GenerateJSON(context.Context, string, llm.ModelTier) (string, error) {
	return s.response, s.err
}

func (s *scriptedClient) GetModel(llm.ModelTier) string { return "fake-model" }
func (s *scriptedClient) Close() error                  { return nil }

// failingCompiler always rejects the candidate.
type failingCompiler struct{}

func (failingCompiler) CompileAndFlash(context.Context, string, string) (string, error) {
	return "", &build.BuildError{SmartName: "tuner", Output: "undefined reference"}
}

func newTestRunner(t *testing.T, client llm.Client) *Runner {
	t.Helper()
	dir := t.TempDir()
	library, err := registry.LoadLibrary(filepath.Join(dir, "my_modes.json"))
	require.NoError(t, err)
	return &Runner{
		Jobs:     jobs.NewStore(),
		Firmware: &generation.FirmwareGenerator{Client: client, OutputDir: filepath.Join(dir, "generated_modules")},
		Widget:   &generation.WidgetGenerator{Client: client, OutputDir: filepath.Join(dir, "generated_widgets")},
		Library:  library,
		Compiler: &build.Simulator{ArtifactDir: filepath.Join(dir, "compiled_modules"), Delay: time.Millisecond},
	}
}

func TestRunJobCompletes(t *testing.T) {
	client := &scriptedClient{response: "class TunerModule { public: void init(); };"}
	r := newTestRunner(t, client)

	jobID := r.Jobs.Create("guitar helper").ID
	err := r.RunJob(context.Background(), jobID, RunOptions{DeviceType: "guitar helper"})
	require.NoError(t, err)

	job, err := r.Jobs.Get(jobID)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusCompleted, job.Status)
	assert.Equal(t, "tuner", job.SmartName)
	assert.NotEmpty(t, job.Path)

	// Generation registered the mode in the library.
	saved, ok := r.Library.FindBySmartName("tuner")
	require.True(t, ok)
	assert.Equal(t, "guitar helper", saved.Name)
	assert.NotEmpty(t, saved.CppFile)
}

func TestRunJobWithWidgetBranch(t *testing.T) {
	client := &scriptedClient{response: "const TunerView = () => null; export default TunerView;"}
	r := newTestRunner(t, client)

	jobID := r.Jobs.Create("guitar helper").ID
	err := r.RunJob(context.Background(), jobID, RunOptions{
		DeviceType:  "guitar helper",
		WithWidget:  true,
		Description: "shows current pitch",
	})
	require.NoError(t, err)

	saved, ok := r.Library.FindBySmartName("tuner")
	require.True(t, ok)
	assert.NotEmpty(t, saved.WidgetFile)
	assert.Equal(t, "shows current pitch", saved.OriginalPrompt)
}

func TestRunJobPreservesWidgetFile(t *testing.T) {
	// Mirror of the widget refresh path: regenerating firmware alone must
	// not drop the widget the mode already has.
	client := &scriptedClient{response: "const TunerView = () => null; export default TunerView;"}
	r := newTestRunner(t, client)

	_, saved, err := r.GenerateWidget(context.Background(), generation.WidgetRequest{
		DeviceType:  "guitar helper",
		Description: "shows current pitch",
	})
	require.NoError(t, err)
	require.NotEmpty(t, saved.WidgetFile)
	widgetFile := saved.WidgetFile

	jobID := r.Jobs.Create("guitar helper").ID
	err = r.RunJob(context.Background(), jobID, RunOptions{DeviceType: "guitar helper"})
	require.NoError(t, err)

	refreshed, ok := r.Library.FindBySmartName("tuner")
	require.True(t, ok)
	assert.Equal(t, widgetFile, refreshed.WidgetFile)
	assert.NotEmpty(t, refreshed.CppFile)
}

func TestRunJobCompileFailureFailsJob(t *testing.T) {
	client := &scriptedClient{response: "class TunerModule {};"}
	r := newTestRunner(t, client)
	r.Compiler = failingCompiler{}

	jobID := r.Jobs.Create("guitar helper").ID
	err := r.RunJob(context.Background(), jobID, RunOptions{DeviceType: "guitar helper"})

	var buildErr *build.BuildError
	require.ErrorAs(t, err, &buildErr)

	job, getErr := r.Jobs.Get(jobID)
	require.NoError(t, getErr)
	assert.Equal(t, jobs.StatusFailed, job.Status)
	assert.Contains(t, job.Error, "undefined reference")
}

func TestRunJobGenerationFailureFailsJob(t *testing.T) {
	// A non-retryable client error has no fallback and must fail the job
	// while it is still in the generating state.
	client := &scriptedClient{err: errors.New("api key rejected")}
	r := newTestRunner(t, client)

	jobID := r.Jobs.Create("guitar helper").ID
	err := r.RunJob(context.Background(), jobID, RunOptions{DeviceType: "guitar helper"})
	require.Error(t, err)

	job, getErr := r.Jobs.Get(jobID)
	require.NoError(t, getErr)
	assert.Equal(t, jobs.StatusFailed, job.Status)
}

func TestRunJobFallbackStillCompletes(t *testing.T) {
	client := &scriptedClient{err: &llm.GenerationError{Attempts: 3, Cause: errors.New("overloaded")}}
	r := newTestRunner(t, client)

	jobID := r.Jobs.Create("running buddy").ID
	err := r.RunJob(context.Background(), jobID, RunOptions{DeviceType: "running buddy"})
	require.NoError(t, err, "fallback firmware keeps the job alive")

	job, getErr := r.Jobs.Get(jobID)
	require.NoError(t, getErr)
	assert.Equal(t, jobs.StatusCompleted, job.Status)
	assert.Equal(t, "runner", job.SmartName)
}

func TestGenerateWidgetRegistersMode(t *testing.T) {
	client := &scriptedClient{response: "const DoorView = () => null; export default DoorView;"}
	r := newTestRunner(t, client)

	result, saved, err := r.GenerateWidget(context.Background(), generation.WidgetRequest{
		DeviceType:  "door sensor",
		Description: "entry monitoring",
	})
	require.NoError(t, err)
	require.NotNil(t, saved)

	assert.Equal(t, "door", result.SmartName)
	assert.Equal(t, saved.WidgetFile, result.Path)
	assert.Equal(t, "entry monitoring", saved.OriginalPrompt)
}

func TestGenerateWidgetPreservesCppFile(t *testing.T) {
	client := &scriptedClient{response: "const DoorView = () => null; export default DoorView;"}
	r := newTestRunner(t, client)

	_, err := r.Library.Upsert("door sensor", "door", "entry monitoring", "generated_modules/door_module.h", "")
	require.NoError(t, err)

	_, saved, err := r.GenerateWidget(context.Background(), generation.WidgetRequest{DeviceType: "door sensor"})
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, "generated_modules/door_module.h", saved.CppFile, "widget refresh keeps the firmware file")
	assert.Equal(t, 2, saved.Version)
}

func TestRebuildCompletesBuildJob(t *testing.T) {
	r := newTestRunner(t, &scriptedClient{})

	jobID := r.Jobs.CreateBuild("guitar helper", "tuner").ID
	err := r.Rebuild(context.Background(), jobID, "generated_modules/tuner_module.h", "tuner")
	require.NoError(t, err)

	job, getErr := r.Jobs.Get(jobID)
	require.NoError(t, getErr)
	assert.Equal(t, jobs.StatusCompleted, job.Status)
	assert.NotEmpty(t, job.Path)
}

func TestRebuildFailure(t *testing.T) {
	r := newTestRunner(t, &scriptedClient{})
	r.Compiler = failingCompiler{}

	jobID := r.Jobs.CreateBuild("guitar helper", "tuner").ID
	err := r.Rebuild(context.Background(), jobID, "generated_modules/tuner_module.h", "tuner")
	require.Error(t, err)

	job, getErr := r.Jobs.Get(jobID)
	require.NoError(t, getErr)
	assert.Equal(t, jobs.StatusFailed, job.Status)
}
