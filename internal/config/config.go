// Package config loads usagemon settings from file, environment and flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/eliteGoblin/focusd/usage_mon/internal/domain"
	"github.com/eliteGoblin/focusd/usage_mon/internal/infra"
	"github.com/eliteGoblin/focusd/usage_mon/internal/policy"
	"github.com/eliteGoblin/focusd/usage_mon/internal/usecase"
)

// Usage sources.
const (
	SourceKnowledge = "knowledge"
	SourceProcess   = "process"
)

const (
	defaultPollInterval       = 30 * time.Second
	defaultLimitCheckInterval = 5 * time.Minute
	defaultLogLevel           = "info"
)

// AppLimit is a daily limit for one package.
type AppLimit struct {
	Package string        `mapstructure:"package"`
	Limit   time.Duration `mapstructure:"limit"`
}

// Config holds all usagemon settings.
type Config struct {
	Source             string                   `mapstructure:"source"`
	KnowledgeDB        string                   `mapstructure:"knowledge-db"`
	AppDirs            []string                 `mapstructure:"app-dirs"`
	SystemAppDirs      []string                 `mapstructure:"system-app-dirs"`
	PackageID          string                   `mapstructure:"package-id"`
	LogFile            string                   `mapstructure:"log-file"`
	LogLevel           string                   `mapstructure:"log-level"`
	PollInterval       time.Duration            `mapstructure:"poll-interval"`
	LimitCheckInterval time.Duration            `mapstructure:"limit-check-interval"`
	CategoryLimits     map[string]time.Duration `mapstructure:"category-limits"`
	AppLimits          []AppLimit               `mapstructure:"app-limits"`
	BedtimeStart       string                   `mapstructure:"bedtime-start"`
	BedtimeEnd         string                   `mapstructure:"bedtime-end"`

	ConfigPath string `mapstructure:"-"` // Empty when no file was read
}

// DefaultConfigPath returns ~/.config/usagemon/config.yml for the real user.
func DefaultConfigPath() string {
	return filepath.Join(infra.GetRealUserHome(), ".config", "usagemon", "config.yml")
}

// Load reads configPath (or the default path), USAGEMON_* environment
// variables and any changed flags in flags, in increasing precedence.
// A missing file at the default path is not an error; a missing configPath
// is. Path defaults come from mode.
func Load(configPath string, mode *infra.ExecModeConfig, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("USAGEMON")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("source", SourceKnowledge)
	v.SetDefault("knowledge-db", mode.KnowledgeDBPath)
	v.SetDefault("app-dirs", mode.UserAppDirs)
	v.SetDefault("system-app-dirs", mode.SystemAppDirs)
	v.SetDefault("package-id", usecase.DefaultPackageID)
	v.SetDefault("log-file", mode.LogPath)
	v.SetDefault("log-level", defaultLogLevel)
	v.SetDefault("poll-interval", defaultPollInterval)
	v.SetDefault("limit-check-interval", defaultLimitCheckInterval)
	v.SetDefault("category-limits", map[string]time.Duration{
		string(domain.CategorySocial): policy.DefaultSocialLimit,
		string(domain.CategoryGames):  policy.DefaultGamesLimit,
	})
	v.SetDefault("bedtime-start", policy.DefaultBedtime.Start.String())
	v.SetDefault("bedtime-end", policy.DefaultBedtime.End.String())

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			if isConfigKey(f.Name) {
				if err := v.BindPFlag(f.Name, f); err != nil && bindErr == nil {
					bindErr = err
				}
			}
		})
		if bindErr != nil {
			return nil, bindErr
		}
	}

	explicit := configPath != ""
	if !explicit {
		configPath = DefaultConfigPath()
	}
	v.SetConfigFile(configPath)

	loaded := true
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		missing := errors.As(err, &configFileNotFound) || errors.Is(err, fs.ErrNotExist)
		if explicit || !missing {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		loaded = false
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if loaded {
		cfg.ConfigPath = v.ConfigFileUsed()
	}

	home := infra.GetRealUserHome()
	cfg.KnowledgeDB = expandHome(home, cfg.KnowledgeDB)
	cfg.LogFile = expandHome(home, cfg.LogFile)
	for i, d := range cfg.AppDirs {
		cfg.AppDirs[i] = expandHome(home, d)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// configKeys are the settings a command-line flag may override.
var configKeys = map[string]bool{
	"source":       true,
	"knowledge-db": true,
	"log-level":    true,
	"log-file":     true,
}

func isConfigKey(name string) bool {
	return configKeys[name]
}

// Validate checks enumerations and intervals.
func (c *Config) Validate() error {
	switch c.Source {
	case SourceKnowledge, SourceProcess:
	default:
		return fmt.Errorf("invalid source %q: want %s or %s", c.Source, SourceKnowledge, SourceProcess)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("invalid poll-interval: %s", c.PollInterval)
	}
	if c.LimitCheckInterval <= 0 {
		return fmt.Errorf("invalid limit-check-interval: %s", c.LimitCheckInterval)
	}
	for name := range c.CategoryLimits {
		if _, ok := domain.ParseCategory(name); !ok {
			return fmt.Errorf("unknown category in category-limits: %q", name)
		}
	}
	for _, l := range c.AppLimits {
		if l.Package == "" {
			return errors.New("app-limits entry without package")
		}
	}
	if _, err := policy.ParseBedtime(c.BedtimeStart, c.BedtimeEnd); err != nil {
		return fmt.Errorf("invalid bedtime: %w", err)
	}
	return nil
}

// UsagePolicy builds the limit policy described by the config.
func (c *Config) UsagePolicy() (policy.UsagePolicy, error) {
	bedtime, err := policy.ParseBedtime(c.BedtimeStart, c.BedtimeEnd)
	if err != nil {
		return policy.UsagePolicy{}, err
	}

	p := policy.UsagePolicy{
		CategoryLimits: make(map[domain.Category]time.Duration, len(c.CategoryLimits)),
		AppLimits:      make(map[string]time.Duration, len(c.AppLimits)),
		Bedtime:        bedtime,
	}
	for name, limit := range c.CategoryLimits {
		category, _ := domain.ParseCategory(name)
		p.CategoryLimits[category] = limit
	}
	for _, l := range c.AppLimits {
		p.AppLimits[l.Package] = l.Limit
	}
	return p, nil
}

func expandHome(home, path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
