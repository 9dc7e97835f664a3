package config

import "time"

// Default values used when the configuration leaves a field empty.
const (
	DefaultStateOrigin        = "local:http://localhost:9090"
	DefaultEncryptOrigin      = "local:http://localhost:8080"
	DefaultGatewayAddr        = "127.0.0.1:8545"
	DefaultAdminAddr          = "127.0.0.1:8546"
	DefaultPageOrigin         = "http://localhost:8000"
	DefaultMaxConnections     = 64
	DefaultInterPluginTimeout = 30 * time.Second
	DefaultNATSBucket         = "snap_state"
	DefaultDialogHistory      = 50
	DefaultResyncInterval     = 30 * time.Second
	DefaultErrorTimeout       = 10 * time.Second
)

// DefaultApplier applies defaults for a specific configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config) error
	Domain() string
}

// OriginsDefaultApplier fills in the local development origins.
type OriginsDefaultApplier struct{}

func (o *OriginsDefaultApplier) Domain() string { return "origins" }

func (o *OriginsDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Origins.State == "" {
		cfg.Origins.State = DefaultStateOrigin
	}
	if cfg.Origins.Encrypt == "" {
		cfg.Origins.Encrypt = DefaultEncryptOrigin
	}
	return nil
}

// HostDefaultApplier handles host runtime defaults.
type HostDefaultApplier struct{}

func (h *HostDefaultApplier) Domain() string { return "host" }

func (h *HostDefaultApplier) ApplyDefaults(cfg *Config) error {
	hc := &cfg.Host
	if hc.GatewayAddr == "" {
		hc.GatewayAddr = DefaultGatewayAddr
	}
	if hc.AdminAddr == "" {
		hc.AdminAddr = DefaultAdminAddr
	}
	if hc.MaxConnections <= 0 {
		hc.MaxConnections = DefaultMaxConnections
	}
	if hc.InterPluginTimeout <= 0 {
		hc.InterPluginTimeout = DefaultInterPluginTimeout
	}
	if hc.PageOrigin == "" {
		hc.PageOrigin = DefaultPageOrigin
	}
	if hc.Storage.Backend == "" {
		hc.Storage.Backend = StorageMemory
	}
	if hc.Storage.Backend == StorageSQLite && hc.Storage.SQLitePath == "" {
		hc.Storage.SQLitePath = "./snapbridge-state.db"
	}
	if hc.Storage.Backend == StorageNATS && hc.Storage.NATSBucket == "" {
		hc.Storage.NATSBucket = DefaultNATSBucket
	}
	if hc.Dialogs.Mode == "" {
		hc.Dialogs.Mode = DialogAuto
	}
	if hc.Dialogs.History <= 0 {
		hc.Dialogs.History = DefaultDialogHistory
	}
	return nil
}

// PageDefaultApplier handles page-side defaults. It runs after the host
// applier so the gateway can default to the host's listen address.
type PageDefaultApplier struct{}

func (p *PageDefaultApplier) Domain() string { return "page" }

func (p *PageDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Page.Gateway == "" {
		cfg.Page.Gateway = cfg.Host.GatewayAddr
	}
	if cfg.Page.ResyncInterval <= 0 {
		cfg.Page.ResyncInterval = DefaultResyncInterval
	}
	if cfg.Page.ErrorTimeout <= 0 {
		cfg.Page.ErrorTimeout = DefaultErrorTimeout
	}
	return nil
}

// LoggingDefaultApplier handles logging defaults.
type LoggingDefaultApplier struct{}

func (l *LoggingDefaultApplier) Domain() string { return "logging" }

func (l *LoggingDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = LogLevelInfo
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = LogFormatText
	}
	return nil
}

// CompositeApplier runs a fixed sequence of domain appliers.
type CompositeApplier struct {
	appliers []DefaultApplier
}

// NewDefaultApplier returns the applier chain in dependency order.
func NewDefaultApplier() *CompositeApplier {
	return &CompositeApplier{appliers: []DefaultApplier{
		&OriginsDefaultApplier{},
		&HostDefaultApplier{},
		&PageDefaultApplier{},
		&LoggingDefaultApplier{},
	}}
}

func (c *CompositeApplier) ApplyDefaults(cfg *Config) error {
	for _, a := range c.appliers {
		if err := a.ApplyDefaults(cfg); err != nil {
			return err
		}
	}
	return nil
}
