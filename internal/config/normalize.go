package config

import "git.home.luguber.info/inful/snapbridge/internal/foundation"

var (
	storageBackends = foundation.NewNormalizer(map[string]StorageBackend{
		"memory":    StorageMemory,
		"mem":       StorageMemory,
		"sqlite":    StorageSQLite,
		"sqlite3":   StorageSQLite,
		"nats":      StorageNATS,
		"jetstream": StorageNATS,
	}, "")
	dialogModes = foundation.NewNormalizer(map[string]DialogMode{
		"auto":    DialogAuto,
		"approve": DialogAuto,
		"reject":  DialogReject,
		"deny":    DialogReject,
	}, "")
	logFormats = foundation.NewNormalizer(map[string]LogFormat{
		"text": LogFormatText,
		"json": LogFormatJSON,
	}, "")
)

// normalizeEnums canonicalizes enum-like fields. Unknown spellings are left
// alone so Validate can name them.
func normalizeEnums(cfg *Config) {
	if v := storageBackends.Normalize(string(cfg.Host.Storage.Backend)); v != "" {
		cfg.Host.Storage.Backend = v
	}
	if v := dialogModes.Normalize(string(cfg.Host.Dialogs.Mode)); v != "" {
		cfg.Host.Dialogs.Mode = v
	}
	if v := logFormats.Normalize(string(cfg.Logging.Format)); v != "" {
		cfg.Logging.Format = v
	}
	if v := NormalizeLogLevel(string(cfg.Logging.Level)); v != "" {
		cfg.Logging.Level = v
	}
}
