package runtimeconfig

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrDefaultLocaleRequired indicates a missing default locale.
var ErrDefaultLocaleRequired = errors.New("documents config: default locale is required")

// ErrStorageDriverUnknown indicates an unrecognized storage driver.
var ErrStorageDriverUnknown = errors.New("documents config: storage driver is invalid")

// ErrStorageDSNRequired indicates a database driver configured without a DSN.
var ErrStorageDSNRequired = errors.New("documents config: storage dsn is required for database drivers")

// ErrCommandsCronRequiresRepair ensures cron wiring only runs when the repair feature is enabled.
var ErrCommandsCronRequiresRepair = errors.New("documents config: command cron auto-registration requires repair to be enabled")

var ErrLoggingProviderRequired = errors.New("documents config: logging provider is required when logging feature is enabled")
var ErrLoggingProviderUnknown = errors.New("documents config: logging provider is invalid")
var ErrLoggingLevelInvalid = errors.New("documents config: logging level is invalid")
var ErrLoggingFormatInvalid = errors.New("documents config: logging format is invalid")

// Config aggregates feature flags and adapter bindings for the documents module.
// Fields intentionally use simple types so host applications can extend them later.
type Config struct {
	Enabled       bool
	DefaultLocale string
	I18N          I18NConfig
	Storage       StorageConfig
	Cache         CacheConfig
	Features      Features
	Commands      CommandsConfig
	Logging       LoggingConfig
}

// I18NConfig lists the locales the engine accepts for localized documents.
type I18NConfig struct {
	Enabled bool
	Locales []string
}

// StorageConfig selects the storage backend.
type StorageConfig struct {
	// Driver is one of "memory", "sqlite", or "postgres".
	Driver string
	DSN    string
}

// CacheConfig captures repository cache behaviour.
type CacheConfig struct {
	Enabled    bool
	DefaultTTL time.Duration
}

// Features toggles module functionality.
type Features struct {
	Repair bool
	Events bool
	Logger bool
}

// CommandsConfig captures optional command-layer behaviour.
type CommandsConfig struct {
	Enabled          bool
	AutoRegisterCron bool
	RepairSweepCron  string
}

// LoggingConfig captures provider-specific options for runtime logging.
type LoggingConfig struct {
	Provider  string
	Level     string
	Format    string
	AddSource bool
	Focus     []string
}

// DefaultConfig returns opinionated defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:       true,
		DefaultLocale: "en",
		I18N: I18NConfig{
			Enabled: true,
			Locales: []string{"en"},
		},
		Storage: StorageConfig{
			Driver: "memory",
		},
		Cache: CacheConfig{
			Enabled:    true,
			DefaultTTL: time.Minute,
		},
		Features: Features{},
		Commands: CommandsConfig{
			RepairSweepCron: "@daily",
		},
		Logging: LoggingConfig{
			Provider: "gologger",
			Level:    "info",
			Format:   "json",
		},
	}
}

// Validate performs high-level consistency checks.
func (cfg Config) Validate() error {
	if strings.TrimSpace(cfg.DefaultLocale) == "" {
		return ErrDefaultLocaleRequired
	}

	driver := strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	switch driver {
	case "", "memory":
	case "sqlite", "postgres":
		if strings.TrimSpace(cfg.Storage.DSN) == "" {
			return fmt.Errorf("%w: %s", ErrStorageDSNRequired, driver)
		}
	default:
		return fmt.Errorf("%w: %s", ErrStorageDriverUnknown, cfg.Storage.Driver)
	}

	if cfg.Commands.AutoRegisterCron && !cfg.Features.Repair {
		return ErrCommandsCronRequiresRepair
	}

	if cfg.Features.Logger {
		provider := strings.ToLower(strings.TrimSpace(cfg.Logging.Provider))
		if provider == "" {
			return ErrLoggingProviderRequired
		}
		if !isSupportedProvider(provider) {
			return fmt.Errorf("%w: %s", ErrLoggingProviderUnknown, provider)
		}
		if level := strings.TrimSpace(cfg.Logging.Level); level != "" && !isSupportedLevel(level) {
			return fmt.Errorf("%w: %s", ErrLoggingLevelInvalid, level)
		}
		if provider == "gologger" {
			if format := strings.TrimSpace(cfg.Logging.Format); format != "" && !isSupportedFormat(format) {
				return fmt.Errorf("%w: %s", ErrLoggingFormatInvalid, format)
			}
		}
	}
	return nil
}

func isSupportedProvider(provider string) bool {
	switch provider {
	case "noop", "gologger":
		return true
	default:
		return false
	}
}

func isSupportedLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal":
		return true
	default:
		return false
	}
}

func isSupportedFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json", "console", "pretty":
		return true
	default:
		return false
	}
}
