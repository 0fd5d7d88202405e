package generation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uadlabs/forge/internal/llm"
)

// fakeClient scripts one response (or error) per call, in order.
type fakeClient struct {
	responses []string
	errs      []error
	prompts   []string
}

func (f *fakeClient) next() (string, error) {
	i := len(f.prompts) - 1
	var resp string
	var err error
	if i < len(f.responses) {
		resp = f.responses[i]
	}
	if i < len(f.errs) {
		err = f.errs[i]
	}
	return resp, err
}

func (f *fakeClient) GenerateContent(_ context.Context, prompt string, _ llm.ModelTier) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.next()
}

func (f *fakeClient) GenerateJSON(_ context.Context, prompt string, _ llm.ModelTier) (string, error) {
	f.prompts = append(f.prompts, prompt)
	resp, err := f.next()
	return llm.CleanJSONBlock(resp), err
}

func (f *fakeClient) GetModel(llm.ModelTier) string { return "fake-model" }
func (f *fakeClient) Close() error                  { return nil }

func TestFirmwareGenerate(t *testing.T) {
	generated := "```cpp\nclass TunerModule { public: void init(); };\n```"
	verified := "class TunerModule { public: void init(); void update(); };"
	client := &fakeClient{responses: []string{generated, verified}}

	gen := &FirmwareGenerator{Client: client, OutputDir: t.TempDir()}
	result, err := gen.Generate(context.Background(), FirmwareRequest{
		DeviceType: "guitar helper",
		Features:   []string{"pitch detection"},
	})
	require.NoError(t, err)

	assert.Equal(t, "tuner", result.SmartName)
	assert.Equal(t, "TunerModule", result.ClassName)
	assert.False(t, result.Fallback)
	assert.True(t, result.Verified)
	assert.Equal(t, filepath.Join(gen.OutputDir, "tuner_module.h"), result.Path)

	data, err := os.ReadFile(result.Path)
	require.NoError(t, err)
	assert.Equal(t, verified, string(data), "verified code wins over the raw generation")

	// Generation prompt carries the device context; review prompt carries the code.
	require.Len(t, client.prompts, 2)
	assert.Contains(t, client.prompts[0], "guitar helper")
	assert.Contains(t, client.prompts[0], "pitch detection")
	assert.Contains(t, client.prompts[0], "TUNER_MODULE_H")
	assert.Contains(t, client.prompts[1], "TunerModule")
}

func TestFirmwareGenerateFallbackOnExhaustion(t *testing.T) {
	genErr := &llm.GenerationError{Attempts: 3, Cause: errors.New("model overloaded")}
	client := &fakeClient{errs: []error{genErr}}

	gen := &FirmwareGenerator{Client: client, OutputDir: t.TempDir()}
	result, err := gen.Generate(context.Background(), FirmwareRequest{DeviceType: "running buddy"})
	require.NoError(t, err, "fallback must absorb provider exhaustion")

	assert.True(t, result.Fallback)
	assert.False(t, result.Verified, "fallback output skips the review pass")
	assert.Equal(t, "runner", result.SmartName)

	data, err := os.ReadFile(result.Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "#ifndef RUNNER_MODULE_H")
	assert.Contains(t, string(data), "class RunnerModule")
	assert.Contains(t, string(data), "getTelemetry()")

	// Only the generation call happened; no review of the skeleton.
	assert.Len(t, client.prompts, 1)
}

func TestFirmwareGenerateNonRetryableError(t *testing.T) {
	client := &fakeClient{errs: []error{errors.New("context canceled")}}

	gen := &FirmwareGenerator{Client: client, OutputDir: t.TempDir()}
	_, err := gen.Generate(context.Background(), FirmwareRequest{DeviceType: "tracker"})

	var apiErr *APICallError
	require.ErrorAs(t, err, &apiErr)
}

func TestFirmwareVerificationFailureKeepsOriginal(t *testing.T) {
	original := "class DoorModule { public: void init(); };"
	client := &fakeClient{
		responses: []string{original},
		errs:      []error{nil, errors.New("review model down")},
	}

	gen := &FirmwareGenerator{Client: client, OutputDir: t.TempDir()}
	result, err := gen.Generate(context.Background(), FirmwareRequest{DeviceType: "door sensor"})
	require.NoError(t, err)

	assert.False(t, result.Verified)
	data, err := os.ReadFile(result.Path)
	require.NoError(t, err)
	assert.Equal(t, original, string(data))
}

func TestFallbackModuleDeterministic(t *testing.T) {
	a, err := fallbackModule("guitar helper", "TunerModule", "TUNER")
	require.NoError(t, err)
	b, err := fallbackModule("guitar helper", "TunerModule", "TUNER")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := fallbackModule("door sensor", "DoorModule", "DOOR")
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
	assert.Contains(t, c, "DOOR_MODULE_H")
}
