package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/uadlabs/forge/internal/build"
	"github.com/uadlabs/forge/internal/generation"
	"github.com/uadlabs/forge/internal/jobs"
	"github.com/uadlabs/forge/internal/llm"
	"github.com/uadlabs/forge/internal/observability"
	"github.com/uadlabs/forge/internal/pipeline"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a firmware module from a device description",
	Long:  `Runs one generation job end-to-end from the command line: AI firmware generation, optional dashboard widget, and a simulated compile. Useful for trying out prompts without the server.`,
	RunE:  runGenerate,
}

var (
	generateDeviceType  string
	generateFeatures    []string
	generateWithWidget  bool
	generateDescription string
	generateOutputDir   string
	generateAPIKey      string
)

func init() {
	generateCmd.Flags().StringVarP(&generateDeviceType, "device-type", "d", "", "Device description, e.g. \"guitar helper\" (required)")
	generateCmd.Flags().StringSliceVarP(&generateFeatures, "feature", "f", nil, "Requested feature (repeatable)")
	generateCmd.Flags().BoolVarP(&generateWithWidget, "widget", "w", false, "Also generate a dashboard widget")
	generateCmd.Flags().StringVar(&generateDescription, "description", "", "Widget description")
	generateCmd.Flags().StringVarP(&generateOutputDir, "output", "o", ".", "Output directory for generated artifacts")
	generateCmd.Flags().StringVar(&generateAPIKey, "api-key", "", "Gemini API Key (optional, defaults to GEMINI_API_KEY env var)")

	if err := generateCmd.MarkFlagRequired("device-type"); err != nil {
		panic(fmt.Sprintf("failed to mark device-type flag as required: %v", err))
	}

	rootCmd.AddCommand(generateCmd)
}

func runGenerate(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	client, err := newAIClient(ctx, generateAPIKey)
	if err != nil {
		return err
	}
	defer client.Close()

	runner := &pipeline.Runner{
		Jobs: jobs.NewStore(),
		Firmware: &generation.FirmwareGenerator{
			Client:    client,
			OutputDir: generateOutputDir,
		},
		Widget: &generation.WidgetGenerator{
			Client:    client,
			OutputDir: generateOutputDir,
		},
		Compiler: &build.Simulator{ArtifactDir: generateOutputDir},
	}

	job := runner.Jobs.Create(generateDeviceType)
	err = runner.RunJob(ctx, job.ID, pipeline.RunOptions{
		DeviceType:  generateDeviceType,
		Features:    generateFeatures,
		WithWidget:  generateWithWidget,
		Description: generateDescription,
	})

	final, getErr := runner.Jobs.Get(job.ID)
	if getErr == nil {
		observability.NewPrinter(os.Stdout).PrintJob(final)
	}
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}
	return nil
}

// newAIClient resolves the API key and opens the model client shared by the
// one-shot commands.
func newAIClient(ctx context.Context, apiKey string) (llm.Client, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY not set (set the environment variable or use --api-key)")
	}
	client, err := llm.NewClient(ctx, nil, apiKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create AI client: %w", err)
	}
	return client, nil
}
