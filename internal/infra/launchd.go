package infra

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"text/template"
)

// LaunchdLabel identifies the watch daemon to launchd.
const LaunchdLabel = "com.focusd.usagemon"

// plistTemplate runs `usagemon watch` at load. User agents restart only on
// crash; system daemons are always kept alive.
const plistTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>{{.Label}}</string>

    <key>ProgramArguments</key>
    <array>
        <string>{{.ExecutablePath}}</string>
        <string>watch</string>
{{- if .ConfigPath}}
        <string>--config</string>
        <string>{{.ConfigPath}}</string>
{{- end}}
    </array>

    <key>RunAtLoad</key>
    <true/>

    <key>KeepAlive</key>
{{- if .System}}
    <true/>
{{- else}}
    <dict>
        <key>Crashed</key>
        <true/>
    </dict>
{{- end}}

    <key>StandardOutPath</key>
    <string>{{.LogPath}}</string>

    <key>StandardErrorPath</key>
    <string>{{.ErrorLogPath}}</string>
{{- if not .System}}

    <key>ProcessType</key>
    <string>Background</string>
{{- end}}

    <key>ThrottleInterval</key>
    <integer>10</integer>
</dict>
</plist>
`

type plistConfig struct {
	Label          string
	ExecutablePath string
	ConfigPath     string
	LogPath        string
	ErrorLogPath   string
	System         bool
}

// LaunchdManager installs the watch daemon as a LaunchAgent (user mode)
// or LaunchDaemon (system mode).
type LaunchdManager struct {
	mode      ExecMode
	plistPath string
	logPath   string
	runner    CommandRunner
}

// NewLaunchdManager creates a launchd manager based on execution mode.
func NewLaunchdManager(config *ExecModeConfig, runner CommandRunner) *LaunchdManager {
	plistDir := filepath.Join(GetRealUserHome(), "Library", "LaunchAgents")
	if config.Mode == ExecModeSystem {
		plistDir = "/Library/LaunchDaemons"
	}
	return NewLaunchdManagerAt(config.Mode, filepath.Join(plistDir, LaunchdLabel+".plist"), config.LogPath, runner)
}

// NewLaunchdManagerAt creates a manager writing plistPath (for testing).
func NewLaunchdManagerAt(mode ExecMode, plistPath, logPath string, runner CommandRunner) *LaunchdManager {
	return &LaunchdManager{
		mode:      mode,
		plistPath: plistPath,
		logPath:   logPath,
		runner:    runner,
	}
}

// generatePlistContent creates plist content for the given exec path.
func (m *LaunchdManager) generatePlistContent(execPath, configPath string) ([]byte, error) {
	config := plistConfig{
		Label:          LaunchdLabel,
		ExecutablePath: execPath,
		ConfigPath:     configPath,
		LogPath:        m.logPath,
		ErrorLogPath:   m.logPath + ".err",
		System:         m.mode == ExecModeSystem,
	}

	tmpl, err := template.New("plist").Parse(plistTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse plist template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, config); err != nil {
		return nil, fmt.Errorf("failed to execute plist template: %w", err)
	}
	return buf.Bytes(), nil
}

// Install writes and loads the plist. An installed plist with different
// content is replaced.
func (m *LaunchdManager) Install(execPath, configPath string) error {
	if err := os.MkdirAll(filepath.Dir(m.plistPath), 0755); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(m.logPath), 0755); err != nil {
		return err
	}

	content, err := m.generatePlistContent(execPath, configPath)
	if err != nil {
		return fmt.Errorf("failed to generate plist content: %w", err)
	}

	if current, err := os.ReadFile(m.plistPath); err == nil {
		if bytes.Equal(current, content) {
			return nil
		}
		// Unload first (ignore errors if not loaded)
		_ = m.runner.Run("launchctl", "unload", m.plistPath)
	}

	if err := os.WriteFile(m.plistPath, content, 0644); err != nil {
		return err
	}
	return m.runner.Run("launchctl", "load", m.plistPath)
}

// Uninstall unloads and removes the plist.
func (m *LaunchdManager) Uninstall() error {
	_ = m.runner.Run("launchctl", "unload", m.plistPath)

	if err := os.Remove(m.plistPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// IsInstalled checks if plist is installed.
func (m *LaunchdManager) IsInstalled() bool {
	_, err := os.Stat(m.plistPath)
	return err == nil
}

// IsLoaded asks launchctl whether the label is loaded.
func (m *LaunchdManager) IsLoaded() bool {
	return m.runner.Run("launchctl", "list", LaunchdLabel) == nil
}

// PlistPath returns the plist file path.
func (m *LaunchdManager) PlistPath() string {
	return m.plistPath
}

// Mode returns the execution mode.
func (m *LaunchdManager) Mode() ExecMode {
	return m.mode
}
