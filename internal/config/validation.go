package config

import (
	"fmt"
	"net"
	"strings"

	foundationerrors "git.home.luguber.info/inful/snapbridge/internal/foundation/errors"
)

// Validate checks a fully defaulted configuration.
func Validate(cfg *Config) error {
	return newConfigurationValidator(cfg).validate()
}

type configurationValidator struct {
	config *Config
}

func newConfigurationValidator(config *Config) *configurationValidator {
	return &configurationValidator{config: config}
}

func (cv *configurationValidator) validate() error {
	if err := cv.validateOrigins(); err != nil {
		return err
	}
	if err := cv.validateHost(); err != nil {
		return err
	}
	if err := cv.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (cv *configurationValidator) validateOrigins() error {
	for name, origin := range map[string]string{
		"origins.state":   cv.config.Origins.State,
		"origins.encrypt": cv.config.Origins.Encrypt,
	} {
		if err := ValidateOrigin(origin); err != nil {
			return foundationerrors.ValidationError(fmt.Sprintf("%s: %v", name, err)).
				WithContext("field", name).
				WithContext("value", origin).
				Build()
		}
	}
	if cv.config.Origins.State == cv.config.Origins.Encrypt {
		return foundationerrors.ValidationError("origins.state and origins.encrypt must differ").Build()
	}
	return nil
}

func (cv *configurationValidator) validateHost() error {
	hc := cv.config.Host
	for name, addr := range map[string]string{
		"host.gateway_addr": hc.GatewayAddr,
		"host.admin_addr":   hc.AdminAddr,
		"page.gateway":      cv.config.Page.Gateway,
	} {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return foundationerrors.ValidationError(fmt.Sprintf("%s: invalid address %q", name, addr)).
				WithCause(err).
				Build()
		}
	}

	switch hc.Storage.Backend {
	case StorageMemory:
	case StorageSQLite:
		if hc.Storage.SQLitePath == "" {
			return foundationerrors.ValidationError("host.storage.sqlite_path is required for the sqlite backend").Build()
		}
	case StorageNATS:
		if hc.Storage.NATSURL == "" {
			return foundationerrors.ValidationError("host.storage.nats_url is required for the nats backend").Build()
		}
	default:
		return foundationerrors.ValidationError(fmt.Sprintf("unsupported storage backend: %s", hc.Storage.Backend)).Build()
	}

	switch hc.Dialogs.Mode {
	case DialogAuto, DialogReject:
	default:
		return foundationerrors.ValidationError(fmt.Sprintf("unsupported dialog mode: %s", hc.Dialogs.Mode)).Build()
	}
	return nil
}

func (cv *configurationValidator) validateLogging() error {
	if NormalizeLogLevel(string(cv.config.Logging.Level)) == "" {
		return foundationerrors.ValidationError(fmt.Sprintf("unsupported log level: %s", cv.config.Logging.Level)).Build()
	}
	switch cv.config.Logging.Format {
	case LogFormatText, LogFormatJSON:
	default:
		return foundationerrors.ValidationError(fmt.Sprintf("unsupported log format: %s", cv.config.Logging.Format)).Build()
	}
	return nil
}

// ValidateOrigin checks the scheme:host[:port] shape of a snap origin,
// e.g. "local:http://localhost:9090" or "npm:@acme/state-snap".
func ValidateOrigin(origin string) error {
	if origin == "" {
		return fmt.Errorf("origin is empty")
	}
	if strings.ContainsAny(origin, " \t\n") {
		return fmt.Errorf("origin %q contains whitespace", origin)
	}
	scheme, rest, ok := strings.Cut(origin, ":")
	if !ok || scheme == "" || rest == "" {
		return fmt.Errorf("origin %q must have the form scheme:host[:port]", origin)
	}
	return nil
}
