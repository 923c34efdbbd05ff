// Package config loads tracker settings from flags, TRACKER_* environment
// variables and an optional tracker.yaml, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Viper keys.
const (
	KeyPort            = "port"
	KeySessionSecret   = "session_secret"
	KeySessionTTL      = "session_ttl"
	KeyCredentials     = "credentials"
	KeyCredentialsFile = "credentials_file"
	KeySpreadsheetID   = "spreadsheet_id"
	KeyBackend         = "backend"
	KeyDB              = "db"
	KeyCache           = "cache"
	KeyCacheTTL        = "cache_ttl"
	KeyRedisAddr       = "redis_addr"
	KeyAllowedOrigins  = "allowed_origins"
	KeyLogLevel        = "log_level"
)

// Backends and cache kinds.
const (
	BackendSheets = "sheets"
	BackendSQLite = "sqlite"

	CacheMemory = "memory"
	CacheRedis  = "redis"
)

const (
	envPrefix      = "TRACKER"
	configFileName = "tracker"
	configFileType = "yaml"
)

// Config holds the resolved process settings.
type Config struct {
	Port            string
	SessionSecret   string
	SessionTTL      time.Duration
	Credentials     string
	CredentialsFile string
	SpreadsheetID   string
	Backend         string
	DBPath          string
	Cache           string
	CacheTTL        time.Duration
	RedisAddr       string
	AllowedOrigins  []string
	LogLevel        string
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyPort, "8080")
	v.SetDefault(KeySessionTTL, 12*time.Hour)
	v.SetDefault(KeyBackend, BackendSQLite)
	v.SetDefault(KeyDB, "./tracker.db")
	v.SetDefault(KeyCache, CacheMemory)
	v.SetDefault(KeyCacheTTL, 30*time.Second)
	v.SetDefault(KeyAllowedOrigins, []string{"http://localhost:3000", "http://localhost:5173"})
	v.SetDefault(KeyLogLevel, "info")
}

// New returns a viper instance with defaults, environment binding and the
// config file search path set. configFile overrides the search.
func New(configFile string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(configFileName)
		v.SetConfigType(configFileType)
		v.AddConfigPath(".")
	}
	return v
}

// Load reads the config file, if any, and resolves the Config. A missing
// tracker.yaml is not an error. Callers validate what they need.
func Load(v *viper.Viper) (Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := Config{
		Port:            v.GetString(KeyPort),
		SessionSecret:   v.GetString(KeySessionSecret),
		SessionTTL:      v.GetDuration(KeySessionTTL),
		Credentials:     v.GetString(KeyCredentials),
		CredentialsFile: v.GetString(KeyCredentialsFile),
		SpreadsheetID:   v.GetString(KeySpreadsheetID),
		Backend:         strings.ToLower(v.GetString(KeyBackend)),
		DBPath:          v.GetString(KeyDB),
		Cache:           strings.ToLower(v.GetString(KeyCache)),
		CacheTTL:        v.GetDuration(KeyCacheTTL),
		RedisAddr:       v.GetString(KeyRedisAddr),
		AllowedOrigins:  splitOrigins(v.GetStringSlice(KeyAllowedOrigins)),
		LogLevel:        v.GetString(KeyLogLevel),
	}
	return cfg, nil
}

// Validate checks the combinations the server cannot start without.
func (c Config) Validate() error {
	var errs []error
	if c.SessionSecret == "" {
		errs = append(errs, fmt.Errorf("%s is required", KeySessionSecret))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", KeySessionTTL))
	}
	errs = append(errs, c.storageErrors()...)

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ValidateStorage checks only the backend and cache settings.
func (c Config) ValidateStorage() error {
	if err := errors.Join(c.storageErrors()...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c Config) storageErrors() []error {
	var errs []error
	switch c.Backend {
	case BackendSheets:
		if c.SpreadsheetID == "" {
			errs = append(errs, fmt.Errorf("%s is required for the sheets backend", KeySpreadsheetID))
		}
		if c.Credentials == "" && c.CredentialsFile == "" {
			errs = append(errs, fmt.Errorf("%s or %s is required for the sheets backend", KeyCredentials, KeyCredentialsFile))
		}
	case BackendSQLite:
		if c.DBPath == "" {
			errs = append(errs, fmt.Errorf("%s is required for the sqlite backend", KeyDB))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown %s %q", KeyBackend, c.Backend))
	}

	switch c.Cache {
	case CacheMemory:
	case CacheRedis:
		if c.RedisAddr == "" {
			errs = append(errs, fmt.Errorf("%s is required for the redis cache", KeyRedisAddr))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown %s %q", KeyCache, c.Cache))
	}
	return errs
}

// splitOrigins accepts both list values and a comma-separated env string.
func splitOrigins(in []string) []string {
	var out []string
	for _, s := range in {
		for _, o := range strings.Split(s, ",") {
			if o = strings.TrimSpace(o); o != "" {
				out = append(out, o)
			}
		}
	}
	return out
}
