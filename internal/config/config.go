package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"carteira/internal/log"
)

// EnvPrefix namespaces every setting in the environment, e.g. CARTEIRA_PORT.
const EnvPrefix = "CARTEIRA"

// Backends accepted by DataBackend.
var validBackends = []string{"memory", "sqlite", "sheets"}

type Config struct {
	// HTTP server
	Port            string
	ShutdownTimeout time.Duration
	DefaultUser     string

	// Storage
	DataBackend  string
	SQLiteDBPath string
	SeedFile     string

	// AMQP; an empty URL disables change events.
	AMQPURL        string
	AMQPExchange   string
	AMQPQueue      string
	AMQPAlertQueue string

	// Google Sheets (read-only source)
	GoogleSpreadsheetID   string
	GoogleCredentialsFile string
	GoogleCredentialsJSON string

	// Metrics
	Timezone string
	CacheSize int
	CacheTTL  time.Duration

	// Rate limiting, per client IP
	RateLimitRPS   float64
	RateLimitBurst int

	LogLevel  string
	LogFormat string
}

// keys maps each viper key to the unprefixed variable names it also answers
// to, kept for deployments that predate the prefix.
var keys = map[string][]string{
	"port":                    {"PORT"},
	"shutdown_timeout":        nil,
	"default_user":            nil,
	"data_backend":            {"DATA_BACKEND"},
	"sqlite_db_path":          {"SQLITE_DB_PATH"},
	"seed_file":               nil,
	"amqp_url":                {"AMQP_URL"},
	"amqp_exchange":           {"AMQP_EXCHANGE"},
	"amqp_queue":              {"AMQP_QUEUE"},
	"amqp_alert_queue":        nil,
	"google_spreadsheet_id":   {"GOOGLE_SPREADSHEET_ID"},
	"google_credentials_file": {"GOOGLE_APPLICATION_CREDENTIALS"},
	"google_credentials_json": nil,
	"timezone":                nil,
	"cache_size":              nil,
	"cache_ttl":               nil,
	"rate_limit_rps":          nil,
	"rate_limit_burst":        nil,
	"log_level":               {"LOG_LEVEL"},
	"log_format":              nil,
}

// SetDefaults registers every key with its default value.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("port", "8081")
	v.SetDefault("shutdown_timeout", 10*time.Second)
	v.SetDefault("default_user", "default")

	v.SetDefault("data_backend", "memory")
	v.SetDefault("sqlite_db_path", "./data/carteira.db")
	v.SetDefault("seed_file", "")

	v.SetDefault("amqp_url", "")
	v.SetDefault("amqp_exchange", "carteira")
	v.SetDefault("amqp_queue", "data_changed")
	v.SetDefault("amqp_alert_queue", "budget_alerts")

	v.SetDefault("google_spreadsheet_id", "")
	v.SetDefault("google_credentials_file", "")
	v.SetDefault("google_credentials_json", "")

	v.SetDefault("timezone", "Local")
	v.SetDefault("cache_size", 256)
	v.SetDefault("cache_ttl", 5*time.Minute)

	v.SetDefault("rate_limit_rps", 10.0)
	v.SetDefault("rate_limit_burst", 20)

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
}

// Load reads configuration from the environment and, when configFile is
// set, from that YAML file. Environment variables win over the file.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if v == nil {
		v = viper.New()
	}
	SetDefaults(v)

	for key, legacy := range keys {
		names := append([]string{EnvPrefix + "_" + strings.ToUpper(key)}, legacy...)
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config %s: %w", configFile, err)
			}
		}
	}

	return &Config{
		Port:            v.GetString("port"),
		ShutdownTimeout: v.GetDuration("shutdown_timeout"),
		DefaultUser:     v.GetString("default_user"),

		DataBackend:  strings.ToLower(v.GetString("data_backend")),
		SQLiteDBPath: v.GetString("sqlite_db_path"),
		SeedFile:     v.GetString("seed_file"),

		AMQPURL:        v.GetString("amqp_url"),
		AMQPExchange:   v.GetString("amqp_exchange"),
		AMQPQueue:      v.GetString("amqp_queue"),
		AMQPAlertQueue: v.GetString("amqp_alert_queue"),

		GoogleSpreadsheetID:   v.GetString("google_spreadsheet_id"),
		GoogleCredentialsFile: v.GetString("google_credentials_file"),
		GoogleCredentialsJSON: v.GetString("google_credentials_json"),

		Timezone:  v.GetString("timezone"),
		CacheSize: v.GetInt("cache_size"),
		CacheTTL:  v.GetDuration("cache_ttl"),

		RateLimitRPS:   v.GetFloat64("rate_limit_rps"),
		RateLimitBurst: v.GetInt("rate_limit_burst"),

		LogLevel:  v.GetString("log_level"),
		LogFormat: strings.ToLower(v.GetString("log_format")),
	}, nil
}

// Location resolves Timezone; "Local" and "" mean the process timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// EventsEnabled reports whether an AMQP broker is configured.
func (c *Config) EventsEnabled() bool {
	return c.AMQPURL != ""
}

// Validate checks every setting and reports all problems at once.
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errs = append(errs, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errs = append(errs, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					errs = append(errs, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.AMQPURL != "" {
		if parsed, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsed.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.DataBackend == "sheets" {
		if c.GoogleSpreadsheetID == "" {
			errs = append(errs, "Google Spreadsheet ID is required when using sheets backend")
		}
		hasFile := c.GoogleCredentialsFile != ""
		if !hasFile && c.GoogleCredentialsJSON == "" {
			errs = append(errs, "either google_credentials_file or google_credentials_json must be provided for sheets backend")
		}
		if hasFile {
			if _, err := os.Stat(c.GoogleCredentialsFile); os.IsNotExist(err) {
				errs = append(errs, fmt.Sprintf("Google credentials file does not exist: %s", c.GoogleCredentialsFile))
			}
		}
	}

	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}

	if c.CacheSize < 1 {
		errs = append(errs, fmt.Sprintf("invalid cache size %d: must be at least 1", c.CacheSize))
	}
	if c.CacheTTL < time.Second {
		errs = append(errs, fmt.Sprintf("invalid cache TTL %v: must be at least 1 second", c.CacheTTL))
	}

	if c.RateLimitRPS <= 0 {
		errs = append(errs, fmt.Sprintf("invalid rate limit %v: must be positive", c.RateLimitRPS))
	}
	if c.RateLimitBurst < 1 {
		errs = append(errs, fmt.Sprintf("invalid rate limit burst %d: must be at least 1", c.RateLimitBurst))
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err.Error())
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Sprintf("invalid log format '%s': must be text or json", c.LogFormat))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}
