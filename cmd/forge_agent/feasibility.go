package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/uadlabs/forge/internal/generation"
	"github.com/uadlabs/forge/internal/observability"
)

var feasibilityCmd = &cobra.Command{
	Use:   "feasibility",
	Short: "Check whether a device idea is buildable",
	Long:  `Asks the AI wizard whether the described device can be built on the supported hardware, and prints the verdict together with example use cases.`,
	RunE:  runFeasibility,
}

var (
	feasibilityDeviceName string
	feasibilityPurpose    string
	feasibilityAPIKey     string
	feasibilityUseCases   bool
)

func init() {
	feasibilityCmd.Flags().StringVarP(&feasibilityDeviceName, "name", "n", "", "Device name (required)")
	feasibilityCmd.Flags().StringVarP(&feasibilityPurpose, "purpose", "p", "", "What the device should do (required)")
	feasibilityCmd.Flags().BoolVar(&feasibilityUseCases, "use-cases", false, "Also generate example use cases")
	feasibilityCmd.Flags().StringVar(&feasibilityAPIKey, "api-key", "", "Gemini API Key (optional, defaults to GEMINI_API_KEY env var)")

	if err := feasibilityCmd.MarkFlagRequired("name"); err != nil {
		panic(fmt.Sprintf("failed to mark name flag as required: %v", err))
	}
	if err := feasibilityCmd.MarkFlagRequired("purpose"); err != nil {
		panic(fmt.Sprintf("failed to mark purpose flag as required: %v", err))
	}

	rootCmd.AddCommand(feasibilityCmd)
}

func runFeasibility(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	client, err := newAIClient(ctx, feasibilityAPIKey)
	if err != nil {
		return err
	}
	defer client.Close()

	wizard := &generation.Wizard{Client: client}
	printer := observability.NewPrinter(os.Stdout)

	verdict, err := wizard.Feasibility(ctx, generation.FeasibilityRequest{
		DeviceName: feasibilityDeviceName,
		Purpose:    feasibilityPurpose,
	})
	if err != nil {
		return fmt.Errorf("feasibility check failed: %w", err)
	}
	printer.PrintVerdict(verdict)

	if feasibilityUseCases {
		cases, err := wizard.UseCases(ctx, feasibilityDeviceName, feasibilityPurpose)
		if err != nil {
			return fmt.Errorf("use case generation failed: %w", err)
		}
		printer.PrintUseCases(cases)
	}

	return nil
}
