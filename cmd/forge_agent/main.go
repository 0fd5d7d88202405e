// Package main provides the entry point for the device forge agent.
package main

import (
	"fmt"
	"os"

	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootVerbose bool

var rootCmd = &cobra.Command{
	Use:   "forge_agent",
	Short: "AI device mode generation and build server",
	Long:  "Forge generates device firmware modules and dashboard widgets from natural-language descriptions, compiles them through the embedded toolchain, and serves them to devices via REST API.",
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		log.SetHandler(cli.New(os.Stderr))
		if rootVerbose {
			log.SetLevel(log.DebugLevel)
		}
	},
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	rootCmd.PersistentFlags().BoolVarP(&rootVerbose, "verbose", "v", false, "Print detailed debug information")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
