package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/fireshield/firewatch/internal/core/domain"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig       `mapstructure:"server"`
	Database   DatabaseConfig     `mapstructure:"database"`
	NATS       NATSConfig         `mapstructure:"nats"`
	Valkey     ValkeyConfig       `mapstructure:"valkey"`
	Telemetry  TelemetryConfig    `mapstructure:"telemetry"`
	Log        LogConfig          `mapstructure:"log"`
	Risk       domain.Thresholds  `mapstructure:"risk"`
	Feed       FeedConfig         `mapstructure:"feed"`
	SMS        SMSConfig          `mapstructure:"sms"`
	Temporal   TemporalConfig     `mapstructure:"temporal"`
	SafePlaces []domain.SafePlace `mapstructure:"safe_places"`
}

type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	AllowOrigins string `mapstructure:"allow_origins"`
	OpenAPIPath  string `mapstructure:"openapi_path"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// FeedConfig controls where hotspots come from and which of them are kept.
type FeedConfig struct {
	// Sources are FIRMS CSV file paths or http(s) URLs.
	Sources        []string      `mapstructure:"sources"`
	Region         domain.Bounds `mapstructure:"region"`
	PollInterval   int           `mapstructure:"poll_interval"` // seconds
	FetchTimeout   int           `mapstructure:"fetch_timeout"` // seconds
	MaxConcurrency int           `mapstructure:"max_concurrency"`
}

// SMSConfig configures the Twilio-compatible gateway. Credentials have no
// defaults and must come from the environment or the config file.
type SMSConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	AccountSID string `mapstructure:"account_sid"`
	AuthToken  string `mapstructure:"auth_token"`
	From       string `mapstructure:"from"`
	Recipient  string `mapstructure:"recipient"`
	Timeout    int    `mapstructure:"timeout"` // seconds
}

// Enabled reports whether enough is configured to send messages.
func (s SMSConfig) Enabled() bool {
	return s.AccountSID != "" && s.AuthToken != "" && s.From != "" && s.Recipient != ""
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
	Enabled   bool   `mapstructure:"enabled"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()
	setDefaults(v, service)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: FIREWATCH_RISK_HIGH_KM → risk.high_km
	v.SetEnvPrefix("FIREWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Keys without a default are invisible to AutomaticEnv during Unmarshal.
	for _, key := range []string{"sms.account_sid", "sms.auth_token", "sms.from", "sms.recipient"} {
		_ = v.BindEnv(key)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, service string) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.allow_origins", "http://localhost:3000, http://localhost:5173")
	v.SetDefault("server.openapi_path", "api/openapi.yaml")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "firewatch")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "firewatch")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("risk.high_km", 3.0)
	v.SetDefault("risk.moderate_km", 5.0)
	v.SetDefault("risk.pushout_km", 3.0)

	v.SetDefault("feed.sources", []string{"./data/MODIS_C6_1_USA_contiguous_and_Hawaii_24h.csv"})
	v.SetDefault("feed.region.min_lat", 40.0)
	v.SetDefault("feed.region.max_lat", 79.0)
	v.SetDefault("feed.region.min_lon", -150.0)
	v.SetDefault("feed.region.max_lon", -49.0)
	v.SetDefault("feed.poll_interval", 300)
	v.SetDefault("feed.fetch_timeout", 30)
	v.SetDefault("feed.max_concurrency", 4)

	v.SetDefault("sms.base_url", "https://api.twilio.com")
	v.SetDefault("sms.timeout", 10)

	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "firewatch-alerts")
	v.SetDefault("temporal.enabled", false)
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if c.Database.User == "" {
		errs = append(errs, "database.user is required")
	}
	if c.Database.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if err := c.Risk.Validate(); err != nil {
		errs = append(errs, "risk: "+err.Error())
	}
	r := c.Feed.Region
	if r.MinLat < -90 || r.MaxLat > 90 || r.MinLat > r.MaxLat {
		errs = append(errs, fmt.Sprintf("feed.region latitude range [%v, %v] is invalid", r.MinLat, r.MaxLat))
	}
	if r.MinLon < -180 || r.MaxLon > 180 || r.MinLon > r.MaxLon {
		errs = append(errs, fmt.Sprintf("feed.region longitude range [%v, %v] is invalid", r.MinLon, r.MaxLon))
	}
	if c.Feed.PollInterval <= 0 {
		errs = append(errs, "feed.poll_interval must be positive")
	}
	if c.Feed.MaxConcurrency <= 0 {
		errs = append(errs, "feed.max_concurrency must be positive")
	}
	for i, p := range c.SafePlaces {
		if p.Name == "" {
			errs = append(errs, fmt.Sprintf("safe_places[%d].name is required", i))
		}
		if err := p.Location.Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("safe_places[%d]: %v", i, err))
		}
	}
	if c.Temporal.Enabled && c.Temporal.TaskQueue == "" {
		errs = append(errs, "temporal.task_queue is required when temporal is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
