package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/snapbridge/internal/logfields"
)

// DefaultPath is the configuration file looked up when --config is not given.
const DefaultPath = "snapbridge.yaml"

// Config is the root configuration for both the host and the page side.
type Config struct {
	Origins OriginsConfig `yaml:"origins"`
	Host    HostConfig    `yaml:"host"`
	Page    PageConfig    `yaml:"page"`
	Logging LoggingConfig `yaml:"logging"`
}

// OriginsConfig holds the identifiers of the two cooperating snaps.
type OriginsConfig struct {
	State   string `yaml:"state"`
	Encrypt string `yaml:"encrypt"`
}

// HostConfig configures the wallet host runtime.
type HostConfig struct {
	GatewayAddr        string        `yaml:"gateway_addr"`
	AdminAddr          string        `yaml:"admin_addr"`
	MaxConnections     int           `yaml:"max_connections"`
	InterPluginTimeout time.Duration `yaml:"inter_plugin_timeout"`
	PageOrigin         string        `yaml:"page_origin"`
	Storage            StorageConfig `yaml:"storage"`
	Journal            JournalConfig `yaml:"journal"`
	Dialogs            DialogsConfig `yaml:"dialogs"`
}

// StorageBackend selects where snap state documents are persisted.
type StorageBackend string

const (
	StorageMemory StorageBackend = "memory"
	StorageSQLite StorageBackend = "sqlite"
	StorageNATS   StorageBackend = "nats"
)

// StorageConfig configures the snap state backend.
type StorageConfig struct {
	Backend    StorageBackend `yaml:"backend"`
	SQLitePath string         `yaml:"sqlite_path,omitempty"`
	NATSURL    string         `yaml:"nats_url,omitempty"`
	NATSBucket string         `yaml:"nats_bucket,omitempty"`
}

// JournalConfig configures the RPC call journal. An empty path disables it.
type JournalConfig struct {
	Path string `yaml:"path,omitempty"`
}

// DialogMode selects how confirmation dialogs are answered by a headless host.
type DialogMode string

const (
	DialogAuto   DialogMode = "auto"
	DialogReject DialogMode = "reject"
)

// DialogsConfig configures the dialog presenter.
type DialogsConfig struct {
	Mode    DialogMode `yaml:"mode"`
	History int        `yaml:"history"`
}

// PageConfig configures the page-side connection controller.
type PageConfig struct {
	// Gateway is the host gateway the page connects to; defaults to host.gateway_addr.
	Gateway        string        `yaml:"gateway"`
	ResyncInterval time.Duration `yaml:"resync_interval"`
	ErrorTimeout   time.Duration `yaml:"error_timeout"`
}

// Load reads a configuration file, expands ${ENV} references, applies
// defaults and environment overrides, and validates the result.
func Load(configPath string) (*Config, error) {
	if err := loadEnvFiles(); err != nil {
		slog.Debug("No .env file loaded", logfields.Error(err))
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := parse(data)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault behaves like Load but falls back to the built-in defaults
// (still honoring environment overrides) when the file does not exist.
func LoadOrDefault(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if envErr := loadEnvFiles(); envErr != nil {
			slog.Debug("No .env file loaded", logfields.Error(envErr))
		}
		cfg := &Config{}
		if err := finalize(cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return Load(configPath)
}

// Default returns a configuration with every default applied and no
// environment overrides.
func Default() *Config {
	cfg := &Config{}
	_ = NewDefaultApplier().ApplyDefaults(cfg)
	return cfg
}

func parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := finalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func finalize(cfg *Config) error {
	applyEnvOverrides(cfg)
	normalizeEnums(cfg)
	if err := NewDefaultApplier().ApplyDefaults(cfg); err != nil {
		return fmt.Errorf("failed to apply defaults: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// Init writes an example configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	example := Default()
	example.Host.Storage = StorageConfig{
		Backend:    StorageSQLite,
		SQLitePath: "./snapbridge-state.db",
	}
	example.Host.Journal.Path = "./snapbridge-journal.db"

	data, err := yaml.Marshal(example)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
