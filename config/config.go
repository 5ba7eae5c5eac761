// Package config loads the kudosd node configuration from the
// environment, optionally seeded from a .env file.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

const (
	// DatabaseSchemePostgres is the postgres database scheme identifier.
	DatabaseSchemePostgres = "postgres"

	FormatConsole = "console"
	FormatJSON    = "json"
)

// Environment variables read by Load.
const (
	EnvGRPCAddr          = "KUDOS_GRPC_ADDR"
	EnvMetricsAddr       = "KUDOS_METRICS_ADDR"
	EnvLogLevel          = "KUDOS_LOG_LEVEL"
	EnvLogFormat         = "KUDOS_LOG_FORMAT"
	EnvSnapshotChunkSize = "KUDOS_SNAPSHOT_CHUNK_SIZE"
	EnvGenesisFile       = "KUDOS_GENESIS_FILE"
	EnvLockDiagnostics   = "KUDOS_LOCK_DIAGNOSTICS"
	EnvDatabaseURL       = "DATABASE_URL"
)

type Config struct {
	GRPCAddr          string
	MetricsAddr       string // empty disables the metrics endpoint
	LogLevel          string
	LogFormat         string // console or json
	SnapshotChunkSize int
	GenesisFile       string
	LockDiagnostics   bool   // report locks held or awaited too long
	DBDialect         string // postgres only; empty disables the archive
	DBDsn             string // DSN string passed to the GORM driver
}

// Default returns the configuration used for unset variables.
func Default() Config {
	return Config{
		GRPCAddr:          "127.0.0.1:26658",
		MetricsAddr:       "127.0.0.1:9464",
		LogLevel:          "info",
		LogFormat:         FormatConsole,
		SnapshotChunkSize: 64 * 1024,
	}
}

// LoadDotEnv loads path into the environment if it exists. Variables
// already set take precedence.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load reads the configuration from the process environment.
func Load() (Config, error) {
	return FromLookup(os.LookupEnv)
}

// FromLookup reads the configuration through lookup and reports every
// invalid value at once.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	get := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	get(EnvGRPCAddr, &cfg.GRPCAddr)
	get(EnvLogLevel, &cfg.LogLevel)
	get(EnvLogFormat, &cfg.LogFormat)
	get(EnvGenesisFile, &cfg.GenesisFile)
	if v, ok := lookup(EnvMetricsAddr); ok {
		// set-but-empty disables metrics
		cfg.MetricsAddr = strings.TrimSpace(v)
	}

	var result *multierror.Error
	if v, ok := lookup(EnvSnapshotChunkSize); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", EnvSnapshotChunkSize, err))
		} else {
			cfg.SnapshotChunkSize = n
		}
	}
	if v, ok := lookup(EnvLockDiagnostics); ok && v != "" {
		on, err := strconv.ParseBool(v)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", EnvLockDiagnostics, err))
		} else {
			cfg.LockDiagnostics = on
		}
	}
	if v, ok := lookup(EnvDatabaseURL); ok && strings.TrimSpace(v) != "" {
		dialect, dsn, err := parseDatabaseURL(strings.TrimSpace(v))
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", EnvDatabaseURL, err))
		} else {
			cfg.DBDialect, cfg.DBDsn = dialect, dsn
		}
	}
	if err := cfg.Validate(); err != nil {
		result = multierror.Append(result, err)
	}
	return cfg, result.ErrorOrNil()
}

// Validate checks field values.
func (c Config) Validate() error {
	var result *multierror.Error
	if c.GRPCAddr == "" {
		result = multierror.Append(result, fmt.Errorf("grpc address is required"))
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel)); err != nil {
		result = multierror.Append(result, fmt.Errorf("log level %q: %w", c.LogLevel, err))
	}
	if c.LogFormat != FormatConsole && c.LogFormat != FormatJSON {
		result = multierror.Append(result, fmt.Errorf("log format %q: want %s or %s", c.LogFormat, FormatConsole, FormatJSON))
	}
	if c.SnapshotChunkSize <= 0 {
		result = multierror.Append(result, fmt.Errorf("snapshot chunk size must be positive, got %d", c.SnapshotChunkSize))
	}
	return result.ErrorOrNil()
}

// ArchiveEnabled reports whether a database is configured.
func (c Config) ArchiveEnabled() bool { return c.DBDsn != "" }

// parseDatabaseURL interprets DATABASE_URL and returns (dialect, dsn).
// Supported schemes: postgres, postgresql.
func parseDatabaseURL(databaseURL string) (string, string, error) {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", "", err
	}
	switch strings.ToLower(u.Scheme) {
	case DatabaseSchemePostgres, "postgresql":
		// the GORM postgres driver accepts URL DSNs as-is
		return DatabaseSchemePostgres, databaseURL, nil
	default:
		return "", "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
}

func (c Config) String() string {
	return fmt.Sprintf("grpc=%s metrics=%s log=%s/%s db=%s dsn=%s",
		c.GRPCAddr, c.MetricsAddr, c.LogLevel, c.LogFormat, c.DBDialect, maskDSN(c.DBDsn))
}

// maskDSN hides the password of a postgres DSN.
func maskDSN(dsn string) string {
	if dsn == "" {
		return ""
	}
	if u, err := url.Parse(dsn); err == nil && u.Scheme != "" {
		if u.User != nil {
			u.User = url.User(u.User.Username())
		}
		return u.String()
	}
	parts := strings.Fields(dsn)
	for i, p := range parts {
		if strings.HasPrefix(strings.ToLower(p), "password=") {
			parts[i] = "password=***"
		}
	}
	return strings.Join(parts, " ")
}
