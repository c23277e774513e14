package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/findata/internal/app"
	"github.com/ternarybob/findata/internal/common"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	configFiles  configPaths // Multiple -config flags supported
	dataDir      = flag.String("data-dir", "", "Artifact directory (overrides config)")
	catalogDir   = flag.String("catalog", "", "Catalog directory (overrides config)")
	startFrom    = flag.String("start-from", "", "Skip companies whose CVM code sorts before this value")
	runOnce      = flag.Bool("once", false, "Run a single extraction even when the scheduler is enabled")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	defer common.RecoverWithCrashFile()

	flag.Parse()

	version := common.LoadVersionFromFile()
	if *showVersion || *showVersionV {
		fmt.Printf("findata version %s\n", common.GetFullVersion())
		os.Exit(0)
	}

	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		if _, err := os.Stat("findata.toml"); err == nil {
			configFiles = append(configFiles, "findata.toml")
		}
	}

	// Startup order: defaults -> files -> env -> flags, then logger, then banner
	config, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		arbor.NewLogger().Fatal().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration files")
		os.Exit(1)
	}
	common.ApplyFlagOverrides(config, *dataDir, *catalogDir, *startFrom)
	common.InstallCrashHandler(common.LogDir(config))

	if err := config.Validate(); err != nil {
		arbor.NewLogger().Fatal().Err(err).Msg("Invalid configuration")
		os.Exit(1)
	}

	logger := common.InitLogger(config)
	common.PrintBanner(version)

	logger.Info().
		Strs("config_files", configFiles).
		Str("log_level", config.Logging.Level).
		Str("log_file", common.GetLogFilePath(logger)).
		Msg("Application configuration loaded")

	application, err := app.New(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
		os.Exit(1)
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !config.Scheduler.Enabled || *runOnce {
		stats, err := application.RunOnce(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("Extraction run failed")
			stop()
			os.Exit(1)
		}
		logger.Info().
			Str("run_id", stats.RunID).
			Int("companies", stats.Companies).
			Int("filings", stats.Filings).
			Int("extracted", stats.Extracted).
			Int("skipped", stats.Skipped).
			Int("absent", stats.Absent).
			Int("faults", stats.Faults).
			Dur("duration", stats.Duration).
			Msg("Extraction finished")
		return
	}

	if err := application.StartScheduler(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start scheduler")
		os.Exit(1)
	}

	logger.Info().Str("schedule", config.Scheduler.Schedule).Msg("Scheduler running - Press Ctrl+C to stop")

	<-ctx.Done()
	logger.Info().Msg("Interrupt signal received, shutting down")
}
