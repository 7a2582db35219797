package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/usage_mon/internal/daemon"
	"github.com/eliteGoblin/focusd/usage_mon/internal/infra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch usage and warn on limits and bedtime",
	Long: `Runs in the foreground, polling the current app and today's usage.
Alerts are written to the log when a daily limit is reached or an app is
used during bedtime.`,
	RunE: runWatch,
}

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Manage the launchd job that runs `usagemon watch`",
}

var agentInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install and load the launchd job (LaunchDaemon under sudo)",
	RunE:  runAgentInstall,
}

var agentUninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Unload and remove the launchd job",
	RunE:  runAgentUninstall,
}

var agentStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show launchd job status",
	RunE:  runAgentStatus,
}

func init() {
	agentCmd.AddCommand(agentInstallCmd)
	agentCmd.AddCommand(agentUninstallCmd)
	agentCmd.AddCommand(agentStatusCmd)

	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(agentCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	usagePolicy, err := a.cfg.UsagePolicy()
	if err != nil {
		return err
	}

	watcher := daemon.NewWatcher(
		daemon.WatcherConfig{
			PollInterval:       a.cfg.PollInterval,
			LimitCheckInterval: a.cfg.LimitCheckInterval,
		},
		a.service,
		usagePolicy,
		a.categorizer,
		daemon.NewLogAlertSink(a.logger),
		a.logger,
	)

	// Set up graceful shutdown
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Watching usage (log: %s). Press Ctrl+C to stop.\n", a.cfg.LogFile)
	if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	a.logger.Info("received shutdown signal")
	return nil
}

func newLaunchd(a *app) *infra.LaunchdManager {
	return infra.NewLaunchdManager(a.mode, &infra.RealCommandRunner{})
}

func runAgentInstall(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	m := newLaunchd(a)
	if err := m.Install(execPath, a.cfg.ConfigPath); err != nil {
		return fmt.Errorf("failed to install launchd job: %w", err)
	}
	a.logger.Info("launchd job installed",
		zap.String("plist", m.PlistPath()),
		zap.String("mode", string(m.Mode())))
	fmt.Printf("Installed %s (%s)\n", m.PlistPath(), m.Mode())
	return nil
}

func runAgentUninstall(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	m := newLaunchd(a)
	if err := m.Uninstall(); err != nil {
		return fmt.Errorf("failed to uninstall launchd job: %w", err)
	}
	fmt.Printf("Removed %s\n", m.PlistPath())
	return nil
}

func runAgentStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	m := newLaunchd(a)
	status := map[string]any{
		"mode":      string(m.Mode()),
		"plist":     m.PlistPath(),
		"installed": m.IsInstalled(),
		"loaded":    m.IsLoaded(),
	}
	if jsonOutput {
		return printJSON(status)
	}

	fmt.Println("\n=== usagemon agent ===")
	fmt.Printf("Execution mode: %s\n", a.mode.Mode)
	fmt.Printf("Plist path: %s\n", m.PlistPath())
	fmt.Printf("Installed: %v\n", status["installed"])
	fmt.Printf("Loaded: %v\n", status["loaded"])
	fmt.Println("======================")
	return nil
}
