package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/profvis/pkg/config"
	"github.com/profvis/pkg/selfprof"
	"github.com/profvis/pkg/telemetry"
	"github.com/profvis/pkg/utils"
)

var (
	// Global flags
	verbose    bool
	configPath string

	// Self-profiling flags
	selfprofDir      string
	selfprofProfiles string

	cfg               *config.Config
	logger            utils.Logger = &utils.NullLogger{}
	shutdownTelemetry telemetry.ShutdownFunc
	selfprofSession   *selfprof.Session
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "profvis",
	Short: "Render sampled call-stack profiles",
	Long: `profvis turns sampled call-stack profiles into flame graph blocks,
per-line source timings and per-function totals.

Input may be a render message (JSON), folded stacks or a pprof profile,
optionally gzip or zstd compressed.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded

		if logger, err = newLogger(cfg.Log, verbose); err != nil {
			return err
		}

		shutdownTelemetry, err = telemetry.Init(cmd.Context(), cfg.TracingConfig(Version))
		if err != nil {
			return fmt.Errorf("failed to init telemetry: %w", err)
		}

		if selfprofDir != "" {
			profiles, err := selfprof.ParseProfileTypes(selfprofProfiles)
			if err != nil {
				return err
			}
			selfprofSession, err = selfprof.Start(selfprof.Config{Dir: selfprofDir, Profiles: profiles})
			if err != nil {
				return err
			}
			logger.Debug("Self-profiling into %s", selfprofDir)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if selfprofSession != nil {
			files, err := selfprofSession.Stop()
			if err != nil {
				logger.Warn("Failed to write self profiles: %v", err)
			}
			for _, f := range files {
				logger.Info("Self profile written: %s", f)
			}
		}
		if shutdownTelemetry != nil {
			if err := shutdownTelemetry(context.Background()); err != nil {
				logger.Warn("Failed to flush telemetry: %v", err)
			}
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ./config.yaml when present)")
	rootCmd.PersistentFlags().StringVar(&selfprofDir, "selfprof-dir", "", "Write pprof profiles of this process to the directory")
	rootCmd.PersistentFlags().StringVar(&selfprofProfiles, "selfprof-profiles", "cpu,heap", "Comma-separated self profile types: cpu,heap,goroutine,block,mutex,allocs")

	binName := BinName()
	rootCmd.Example = `  # Render a folded-stack file
  ` + binName + ` render ./cpu.folded

  # Render several pprof profiles with compressed outputs and an HTML code table
  ` + binName + ` render --compression zstd --table html ./a.pb.gz ./b.pb.gz

  # Convert a pprof profile into a render message
  ` + binName + ` import ./cpu.pb.gz -o cpu.json

  # Serve the HTTP API
  ` + binName + ` serve --addr :9090`
}

// newLogger builds the logger from the log section; verbose forces debug.
func newLogger(lc config.LogConfig, verbose bool) (utils.Logger, error) {
	level := utils.ParseLogLevel(lc.Level)
	if verbose {
		level = utils.LevelDebug
	}
	if lc.OutputPath != "" {
		l, err := utils.NewFileLogger(level, lc.OutputPath)
		if err != nil {
			return nil, err
		}
		return l, nil
	}
	return utils.NewDefaultLogger(level, os.Stderr), nil
}

// BinName returns the base name of the current executable
func BinName() string {
	return filepath.Base(os.Args[0])
}
