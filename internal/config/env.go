package config

import (
	"errors"
	"os"

	"github.com/joho/godotenv"
)

// Environment variables that override the snap origins.
const (
	EnvStateOrigin   = "SNAP_STATE_ORIGIN"
	EnvEncryptOrigin = "SNAP_ENCRYPT_ORIGIN"
)

var envFiles = []string{".env", ".env.local"}

// loadEnvFiles loads .env and .env.local when present. Variables already set
// in the process environment win.
func loadEnvFiles() error {
	var present []string
	for _, name := range envFiles {
		if _, err := os.Stat(name); err == nil {
			present = append(present, name)
		}
	}
	if len(present) == 0 {
		return errors.New("no .env file found")
	}
	return godotenv.Load(present...)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvStateOrigin); v != "" {
		cfg.Origins.State = v
	}
	if v := os.Getenv(EnvEncryptOrigin); v != "" {
		cfg.Origins.Encrypt = v
	}
}
