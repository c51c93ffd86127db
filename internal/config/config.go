// Package config provides configuration management using Viper
package config

import (
	"fmt"
	"log"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// Environment types
const (
	Development = "development"
	Production  = "production"
	Test        = "test"
)

// LogLevel represents the logging level for the application
type LogLevel string

// Available log levels
const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Geolocation providers
const (
	GeoProviderHTTP    = "http"
	GeoProviderMaxMind = "maxmind"
	GeoProviderNone    = "none"
)

// Config holds all configuration parameters for the application
type Config struct {
	// Application settings
	AppName     string   `mapstructure:"appname"`
	AppPort     string   `mapstructure:"appport"`
	Environment string   `mapstructure:"environment"`
	LogLevel    LogLevel `mapstructure:"loglevel"`
	PrivateKey  string   `mapstructure:"privatekey"`
	BaseURL     string   `mapstructure:"baseurl"`

	// File paths
	DatabasePath          string `mapstructure:"storagepath"`
	DatabaseName          string `mapstructure:"-"` // Derived from other settings
	PublicDirectory       string `mapstructure:"publicdir"`
	PublicAssetsUrlPrefix string `mapstructure:"publicassetsurlprefix"`

	// Logging settings
	LogsDirectory    string `mapstructure:"logsdir"`
	LogsMaxSizeInMb  int    `mapstructure:"logsmaxsizeinmb"`
	LogsMaxBackups   int    `mapstructure:"logsmaxbackups"`
	LogsMaxAgeInDays int    `mapstructure:"logsmaxageindays"`
	TrackingLogFile  string `mapstructure:"trackinglogfile"`

	// Database settings
	DatabaseMaxOpenConns int `mapstructure:"dbmaxopenconns"`
	DatabaseMaxIdleConns int `mapstructure:"dbmaxidleconns"`

	// Geolocation
	GeoProvider      string `mapstructure:"geoprovider"`
	GeoLookupURL     string `mapstructure:"geolookupurl"`
	GeoDBPath        string `mapstructure:"geodbpath"`
	GeoTimeoutMillis int    `mapstructure:"geotimeoutmillis"`

	// Click tracking and redirects
	TrackingTimeoutMillis int    `mapstructure:"trackingtimeoutmillis"`
	RedirectDelaySeconds  int    `mapstructure:"redirectdelayseconds"`
	DefaultLandingSlug    string `mapstructure:"defaultlandingslug"`

	// Job scheduling settings
	JobIntervalSeconds int `mapstructure:"jobintervalseconds"`
}

var (
	cfg  *Config
	once sync.Once
)

// GetConfig returns the application configuration
func GetConfig() *Config {
	once.Do(func() {
		v := viper.New()

		v.SetDefault("appname", "linkbio")
		v.SetDefault("appport", "3000")
		v.SetDefault("environment", Development)
		v.SetDefault("loglevel", string(LogLevelDebug))
		v.SetDefault("privatekey", "88888888888888888888888888888888")
		v.SetDefault("baseurl", "http://localhost:3000")
		v.SetDefault("storagepath", "storage")
		v.SetDefault("publicdir", "web/public")
		v.SetDefault("publicassetsurlprefix", "/assets")
		v.SetDefault("logsdir", "logs")
		v.SetDefault("logsmaxsizeinmb", 20)
		v.SetDefault("logsmaxbackups", 10)
		v.SetDefault("logsmaxageindays", 30)
		v.SetDefault("trackinglogfile", "")
		v.SetDefault("dbmaxopenconns", 0)
		v.SetDefault("dbmaxidleconns", 0)
		v.SetDefault("geoprovider", GeoProviderHTTP)
		v.SetDefault("geolookupurl", "http://ip-api.com/json/%s?fields=status,message,country,countryCode,regionName,region,city")
		v.SetDefault("geodbpath", "storage/GeoLite2-City.mmdb")
		v.SetDefault("geotimeoutmillis", 3000)
		v.SetDefault("trackingtimeoutmillis", 5000)
		v.SetDefault("redirectdelayseconds", 3)
		v.SetDefault("defaultlandingslug", "home")
		v.SetDefault("jobintervalseconds", 600)

		v.BindEnv("appname", "LINKBIO_APP_NAME")
		v.BindEnv("appport", "LINKBIO_APP_PORT")
		v.BindEnv("environment", "LINKBIO_ENV")
		v.BindEnv("loglevel", "LINKBIO_LOG_LEVEL")
		v.BindEnv("privatekey", "LINKBIO_PRIVATE_KEY")
		v.BindEnv("baseurl", "LINKBIO_BASE_URL")
		v.BindEnv("storagepath", "LINKBIO_STORAGE_PATH")
		v.BindEnv("publicdir", "LINKBIO_PUBLIC_DIR")
		v.BindEnv("publicassetsurlprefix", "LINKBIO_PUBLIC_ASSETS_URL_PREFIX")
		v.BindEnv("logsdir", "LINKBIO_LOGS_DIR")
		v.BindEnv("logsmaxsizeinmb", "LINKBIO_LOGS_MAX_SIZE_IN_MB")
		v.BindEnv("logsmaxbackups", "LINKBIO_LOGS_MAX_BACKUPS")
		v.BindEnv("logsmaxageindays", "LINKBIO_LOGS_MAX_AGE_IN_DAYS")
		v.BindEnv("trackinglogfile", "LINKBIO_TRACKING_LOG_FILE")
		v.BindEnv("dbmaxopenconns", "LINKBIO_DB_MAX_OPEN_CONNS")
		v.BindEnv("dbmaxidleconns", "LINKBIO_DB_MAX_IDLE_CONNS")
		v.BindEnv("geoprovider", "LINKBIO_GEO_PROVIDER")
		v.BindEnv("geolookupurl", "LINKBIO_GEO_LOOKUP_URL")
		v.BindEnv("geodbpath", "LINKBIO_GEO_DB_PATH")
		v.BindEnv("geotimeoutmillis", "LINKBIO_GEO_TIMEOUT_MILLIS")
		v.BindEnv("trackingtimeoutmillis", "LINKBIO_TRACKING_TIMEOUT_MILLIS")
		v.BindEnv("redirectdelayseconds", "LINKBIO_REDIRECT_DELAY_SECONDS")
		v.BindEnv("defaultlandingslug", "LINKBIO_DEFAULT_LANDING_SLUG")
		v.BindEnv("jobintervalseconds", "LINKBIO_JOB_INTERVAL_SECONDS")

		cfg = &Config{}
		if err := v.Unmarshal(cfg); err != nil {
			log.Fatalf("config: failed to unmarshal configuration: %v", err)
		}

		if err := cfg.validate(); err != nil {
			log.Fatalf("config: invalid configuration: %v", err)
		}

		cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
		cfg.DatabaseName = cfg.GetDatabasePath()

		defaultKey := "88888888888888888888888888888888"
		if cfg.IsProduction() && cfg.PrivateKey == defaultKey {
			log.Fatal("Production requires a unique LINKBIO_PRIVATE_KEY (cannot use default)")
		}
	})
	return cfg
}

// validate checks the configuration for errors
func (c *Config) validate() error {
	validEnvs := map[string]bool{
		Development: true,
		Production:  true,
		Test:        true,
	}
	if !validEnvs[c.Environment] {
		return fmt.Errorf("invalid environment: %s", c.Environment)
	}

	validProviders := map[string]bool{
		GeoProviderHTTP:    true,
		GeoProviderMaxMind: true,
		GeoProviderNone:    true,
	}
	if !validProviders[c.GeoProvider] {
		return fmt.Errorf("invalid geo provider: %s", c.GeoProvider)
	}

	if _, err := url.ParseRequestURI(c.BaseURL); err != nil {
		return fmt.Errorf("invalid base url %q: %w", c.BaseURL, err)
	}

	if c.RedirectDelaySeconds < 0 {
		return fmt.Errorf("redirect delay must not be negative: %d", c.RedirectDelaySeconds)
	}

	return nil
}

// GetDatabasePath returns the appropriate database path based on environment
func (c *Config) GetDatabasePath() string {
	if c.DatabaseName == "" {
		c.DatabaseName = filepath.Join(c.DatabasePath,
			fmt.Sprintf("%s-%s.db", c.AppName, c.Environment))
	}
	return c.DatabaseName
}

// ShortURL builds the public short URL for a slug.
func (c *Config) ShortURL(slug string) string {
	return c.BaseURL + "/r/" + slug
}

// GetGeoTimeout bounds a single geolocation attempt.
func (c *Config) GetGeoTimeout() time.Duration {
	if c.GeoTimeoutMillis <= 0 {
		return 3 * time.Second
	}
	return time.Duration(c.GeoTimeoutMillis) * time.Millisecond
}

// GetTrackingTimeout bounds one fire-and-forget click recording.
func (c *Config) GetTrackingTimeout() time.Duration {
	if c.TrackingTimeoutMillis <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.TrackingTimeoutMillis) * time.Millisecond
}

// GetRedirectDelay returns the cosmetic countdown shown before a redirect.
func (c *Config) GetRedirectDelay() time.Duration {
	return time.Duration(c.RedirectDelaySeconds) * time.Second
}

// IsDevelopment returns true if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}

// IsProduction returns true if the environment is production
func (c *Config) IsProduction() bool {
	return c.Environment == Production
}

// IsTest returns true if the environment is test
func (c *Config) IsTest() bool {
	return c.Environment == Test
}

// GetPort returns the HTTP server port (implements cartridge.Config interface).
func (c *Config) GetPort() string {
	return c.AppPort
}

// GetPublicDirectory returns the path to public/static assets (implements cartridge.Config interface).
func (c *Config) GetPublicDirectory() string {
	return c.PublicDirectory
}

// GetAssetsPrefix returns the URL prefix for static assets (implements cartridge.Config interface).
func (c *Config) GetAssetsPrefix() string {
	return c.PublicAssetsUrlPrefix
}

// GetAppName returns the application name (implements cartridge.FactoryConfig interface).
func (c *Config) GetAppName() string {
	return c.AppName
}

// DatabaseDSN returns the database connection string (implements cartridge.FactoryConfig interface).
func (c *Config) DatabaseDSN() string {
	return c.GetDatabasePath()
}

// GetSessionSecret returns the session encryption key (implements cartridge.FactoryConfig interface).
func (c *Config) GetSessionSecret() string {
	return c.PrivateKey
}

// GetMaxOpenConns returns the appropriate MaxOpenConns value based on environment.
// Test uses a single connection, everything else 10.
func (c *Config) GetMaxOpenConns() int {
	if c.DatabaseMaxOpenConns > 0 {
		return c.DatabaseMaxOpenConns
	}

	if c.Environment == Test {
		return 1
	}

	return 10
}

// GetMaxIdleConns returns the appropriate MaxIdleConns value based on environment
func (c *Config) GetMaxIdleConns() int {
	if c.DatabaseMaxIdleConns > 0 {
		return c.DatabaseMaxIdleConns
	}

	if c.Environment == Test {
		return 1
	}

	return 5
}

// GetLogLevel returns the log level as a string (implements cartridge.LogConfigProvider).
func (c *Config) GetLogLevel() string {
	return string(c.LogLevel)
}

// GetLogDirectory returns the logs directory (implements cartridge.LogConfigProvider).
func (c *Config) GetLogDirectory() string {
	return c.LogsDirectory
}

// GetLogMaxSizeMB returns the max log file size in MB (implements cartridge.LogConfigProvider).
func (c *Config) GetLogMaxSizeMB() int {
	return c.LogsMaxSizeInMb
}

// GetLogMaxBackups returns the max number of log backups (implements cartridge.LogConfigProvider).
func (c *Config) GetLogMaxBackups() int {
	return c.LogsMaxBackups
}

// GetLogMaxAgeDays returns the max age in days for log files (implements cartridge.LogConfigProvider).
func (c *Config) GetLogMaxAgeDays() int {
	return c.LogsMaxAgeInDays
}

// Reset clears the cached configuration; intended for tests.
func Reset() {
	once = sync.Once{}
	cfg = nil
}
