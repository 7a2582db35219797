// Package main is the CLI entry point for usagemon.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eliteGoblin/focusd/usage_mon/internal/config"
	"github.com/eliteGoblin/focusd/usage_mon/internal/domain"
	"github.com/eliteGoblin/focusd/usage_mon/internal/infra"
	"github.com/eliteGoblin/focusd/usage_mon/internal/policy"
	"github.com/eliteGoblin/focusd/usage_mon/internal/usecase"
)

var (
	// Version info (set via ldflags)
	Version   = "0.1.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "usagemon",
	Short: "Application usage monitor",
	Long: `usagemon reports how long each application has been in the foreground,
using the macOS knowledge database (or the process table elsewhere).

It can also watch usage in the background and warn when daily limits
are reached or apps are used during bedtime.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Prints version, commit, and build time. Use --json for machine-readable output.`,
	Run:   runVersion,
}

var (
	configPath string
	jsonOutput bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.config/usagemon/config.yml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	rootCmd.PersistentFlags().String("source", "", "Usage source: knowledge or process")
	rootCmd.PersistentFlags().String("knowledge-db", "", "Path to knowledgeC.db")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-file", "", "Log file")

	rootCmd.AddCommand(versionCmd)
}

// app holds the wired components shared by the commands.
type app struct {
	cfg         *config.Config
	mode        *infra.ExecModeConfig
	logger      *zap.Logger
	categorizer *policy.Registry
	service     *usecase.Service
}

// newApp loads configuration and wires the service for cmd.
func newApp(cmd *cobra.Command) (*app, error) {
	mode := infra.DetectExecMode()
	cfg, err := config.Load(configPath, mode, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger := createLogger(cfg)
	categorizer := policy.NewRegistry()

	backend, source := newSource(cfg, logger)
	registry := infra.NewBundleRegistry(cfg.AppDirs, cfg.SystemAppDirs, &infra.RealCommandRunner{}, logger)

	logger.Debug("usagemon configured",
		zap.String("mode", string(mode.Mode)),
		zap.String("source", cfg.Source),
		zap.String("config", cfg.ConfigPath))

	return &app{
		cfg:         cfg,
		mode:        mode,
		logger:      logger,
		categorizer: categorizer,
		service:     usecase.NewService(backend, source, registry, categorizer, cfg.PackageID, logger),
	}, nil
}

func (a *app) close() {
	_ = a.logger.Sync()
}

// newSource picks the usage source and its permission backend.
func newSource(cfg *config.Config, logger *zap.Logger) (domain.PermissionBackend, domain.UsageSource) {
	if cfg.Source == config.SourceProcess {
		return infra.StaticPermissionBackend{Mode: domain.ModeAllowed},
			infra.NewProcessSource(infra.GopsutilLister{}, logger)
	}
	return infra.NewFileAccessBackend(cfg.KnowledgeDB, &infra.RealCommandRunner{}),
		infra.NewKnowledgeStore(cfg.KnowledgeDB, infra.DetectPlatform(), logger)
}

func createLogger(cfg *config.Config) *zap.Logger {
	zc := zap.NewProductionConfig()
	if level, err := zap.ParseAtomicLevel(cfg.LogLevel); err == nil {
		zc.Level = level
	}
	zc.OutputPaths = []string{cfg.LogFile}
	zc.ErrorOutputPaths = []string{cfg.LogFile}
	zc.EncoderConfig.TimeKey = "time"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0755); err == nil {
		if logger, err := zc.Build(); err == nil {
			return logger
		}
	}
	// Fallback to stderr if file logging fails
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	logger, err := zc.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// withCode prefixes err with its stable error code.
func withCode(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("[%s] %w", domain.CodeOf(err), err)
}

func runVersion(cmd *cobra.Command, args []string) {
	if jsonOutput {
		_ = printJSON(map[string]string{
			"version":    Version,
			"commit":     Commit,
			"build_time": BuildTime,
		})
	} else {
		fmt.Printf("usagemon %s (commit: %s, built: %s)\n",
			Version, Commit, BuildTime)
	}
}
