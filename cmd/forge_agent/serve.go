package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/uadlabs/forge/internal/build"
	"github.com/uadlabs/forge/internal/config"
	"github.com/uadlabs/forge/internal/generation"
	"github.com/uadlabs/forge/internal/jobs"
	"github.com/uadlabs/forge/internal/llm"
	"github.com/uadlabs/forge/internal/pipeline"
	"github.com/uadlabs/forge/internal/registry"
	"github.com/uadlabs/forge/internal/server"
)

var (
	serveConfigPath string
	servePort       int
	serveWorkers    int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes REST endpoints for mode generation, builds, the mode catalog, and the my-modes library.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Path to config.json file (values can be overridden by environment)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides config)")
	serveCmd.Flags().IntVar(&serveWorkers, "workers", 0, "Concurrent generation jobs (0 = default)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := loadServeConfig(cmd)
	if err != nil {
		return err
	}

	if err := cfg.EnsureDirs(); err != nil {
		return fmt.Errorf("failed to create data directories: %w", err)
	}

	catalog, err := registry.LoadCatalog(cfg.CatalogPath())
	if err != nil {
		return fmt.Errorf("failed to load mode catalog: %w", err)
	}
	library, err := registry.LoadLibrary(cfg.LibraryPath())
	if err != nil {
		return fmt.Errorf("failed to load my-modes library: %w", err)
	}

	client, err := llm.NewClient(ctx, nil, cfg.APIKey)
	if err != nil {
		return fmt.Errorf("failed to create AI client: %w", err)
	}
	defer client.Close()

	runner := &pipeline.Runner{
		Jobs: jobs.NewStore(),
		Firmware: &generation.FirmwareGenerator{
			Client:    client,
			OutputDir: cfg.GeneratedModulesDir,
		},
		Widget: &generation.WidgetGenerator{
			Client:             client,
			OutputDir:          cfg.GeneratedWidgetsDir,
			TailwindConfigPath: cfg.TailwindConfig,
		},
		Library:  library,
		Compiler: newCompiler(cfg),
	}

	srv := server.New(server.Config{
		Port:                cfg.Port,
		Jobs:                runner.Jobs,
		Catalog:             catalog,
		Library:             library,
		Runner:              runner,
		Wizard:              &generation.Wizard{Client: client},
		GeneratedModulesDir: cfg.GeneratedModulesDir,
		CompiledModulesDir:  cfg.CompiledModulesDir,
		GeneratedWidgetsDir: cfg.GeneratedWidgetsDir,
		DefaultBundlePath:   cfg.DefaultBundle,
		Workers:             serveWorkers,
	})

	return srv.Start()
}

// loadServeConfig resolves the effective configuration: file, then
// environment, then explicit flags.
func loadServeConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if serveConfigPath != "" {
		loaded, err := config.LoadConfig(serveConfigPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	cfg.ApplyEnv()
	if cmd.Flags().Changed("port") {
		cfg.Port = servePort
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newCompiler builds the compile stage from the toolchain settings: the
// placeholder simulator unless real builds are switched on.
func newCompiler(cfg *config.Config) build.Compiler {
	if cfg.Toolchain.SimulateEnabled() {
		return &build.Simulator{
			ArtifactDir: cfg.CompiledModulesDir,
			Delay:       time.Duration(cfg.Toolchain.SimulateDelayMs) * time.Millisecond,
		}
	}
	return &build.Pipeline{
		ProjectRoot:       cfg.Toolchain.ProjectRoot,
		CurrentModulePath: cfg.Toolchain.CurrentModulePath,
		Command:           cfg.Toolchain.BuildCommand(),
		OutputBinary:      cfg.Toolchain.OutputBinary(),
		ArtifactDir:       cfg.CompiledModulesDir,
		Timeout:           time.Duration(cfg.Toolchain.TimeoutSeconds) * time.Second,
	}
}
