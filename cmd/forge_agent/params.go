package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/uadlabs/forge/internal/observability"
	"github.com/uadlabs/forge/internal/tuner"
)

var paramsCmd = &cobra.Command{
	Use:   "params <module.h>",
	Short: "List the tunable parameters in a generated module",
	Args:  cobra.ExactArgs(1),
	RunE:  runParams,
}

func init() {
	rootCmd.AddCommand(paramsCmd)
}

func runParams(_ *cobra.Command, args []string) error {
	content, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read module file: %w", err)
	}

	params, err := tuner.Extract(string(content))
	if err != nil {
		return err
	}

	observability.NewPrinter(os.Stdout).PrintParameters(params)
	return nil
}
