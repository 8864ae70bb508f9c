package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// AppConfig holds all application configuration loaded from environment
// variables. These are populated at startup by the LoadConfig function.
var (
	// PoolMode selects the ledger backing. Only "sim" (in-memory ledgers) is
	// currently implemented; anything else halts at startup.
	PoolMode string

	// AdminAccounts is the allow-list of caller identities the permission
	// gate accepts for administrative operations.
	AdminAccounts []string

	// WebPort is the HTTP API listen port.
	WebPort string

	// SnapshotInterval is how often a full pool snapshot is persisted.
	SnapshotInterval time.Duration

	// PersistenceEnabled controls whether receipts and snapshots are written
	// to PostgreSQL. Set POOL_DB=off to run without a database.
	PersistenceEnabled bool
)

// LoadConfig loads configuration from environment variables and sets the
// global config vars. POOL_MODE and POOL_ADMINS are required; the rest have
// defaults.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	PoolMode, err = getEnv("POOL_MODE")
	if err != nil {
		return err
	}

	admins, err := getEnv("POOL_ADMINS")
	if err != nil {
		return err
	}
	AdminAccounts = nil
	for _, admin := range strings.Split(admins, ",") {
		admin = strings.TrimSpace(admin)
		if admin != "" {
			AdminAccounts = append(AdminAccounts, admin)
		}
	}
	if len(AdminAccounts) == 0 {
		return errors.New("environment variable POOL_ADMINS must list at least one admin identity")
	}

	WebPort = getEnvWithDefault("WEB_PORT", "8080")

	intervalSeconds, err := getEnvAsIntWithDefault("SNAPSHOT_INTERVAL_SECONDS", 300)
	if err != nil {
		return err
	}
	if intervalSeconds <= 0 {
		return errors.New("environment variable SNAPSHOT_INTERVAL_SECONDS must be positive")
	}
	SnapshotInterval = time.Duration(intervalSeconds) * time.Second

	PersistenceEnabled = getEnvWithDefault("POOL_DB", "on") != "off"

	log.Debug().
		Str("PoolMode", PoolMode).
		Strs("AdminAccounts", AdminAccounts).
		Str("WebPort", WebPort).
		Dur("SnapshotInterval", SnapshotInterval).
		Bool("PersistenceEnabled", PersistenceEnabled).
		Msg("Configuration loaded successfully.")

	return nil
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// getEnvWithDefault retrieves a string environment variable, falling back to
// the default when unset or empty.
func getEnvWithDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntWithDefault retrieves an environment variable as an int,
// falling back to the default when unset. Returns error if set but invalid.
func getEnvAsIntWithDefault(key string, defaultValue int) (int, error) {
	valueStr, exists := os.LookupEnv(key)
	if !exists || valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid int, got: " + valueStr)
	}
	return value, nil
}
