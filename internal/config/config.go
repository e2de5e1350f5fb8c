package config

import (
	"errors"
	"fmt"
	"os"

	"rentacar/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	API        APIConfig        `yaml:"api"`
	Identity   IdentityConfig   `yaml:"identity"`
	Booking    BookingConfig    `yaml:"booking"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	Google     GoogleConfig     `yaml:"google"`
	Exports    ExportConfig     `yaml:"exports"`
	Telegram   TelegramConfig   `yaml:"telegram"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	HTTP      APIHTTPConfig      `yaml:"http"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// IdentityConfig configures bearer-token parsing. Sessions without a valid
// token stay anonymous; nothing here makes authentication mandatory.
type IdentityConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

type BookingConfig struct {
	HorizonDays     int `yaml:"horizon_days"`
	DraftTTLSeconds int `yaml:"draft_ttl_seconds"`
}

// CatalogConfig points to the YAML seed loaded into the catalog at startup.
type CatalogConfig struct {
	SeedPath string `yaml:"seed_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool   `yaml:"prometheus_enabled"`
	PrometheusPort    int    `yaml:"prometheus_port"`
	LogLevel          string `yaml:"log_level"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type GoogleConfig struct {
	GoogleCredentialsFile string `yaml:"credentials_file"`
	BookingSpreadSheetID  string `yaml:"bookings_spreadsheet_id"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

// TelegramConfig configures optional manager notifications.
type TelegramConfig struct {
	BotToken      string `yaml:"bot_token"`
	ManagerChatID int64  `yaml:"manager_chat_id"`
	Debug         bool   `yaml:"debug"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional; variables referenced from the YAML may come from
	// the process environment instead.
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}
	if c.Booking.HorizonDays < 0 {
		return errors.New("booking horizon_days cannot be negative")
	}
	if c.Telegram.BotToken != "" && c.Telegram.ManagerChatID == 0 {
		return errors.New("telegram manager_chat_id is required when bot_token is set")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	// auth enabled by default when API is enabled
	if !c.API.Auth.Enabled {
		c.API.Auth.Enabled = true
	}
	if !c.API.HTTP.Enabled && c.API.Enabled {
		c.API.HTTP.Enabled = true
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.API.RateLimit.RPS == 0 {
		c.API.RateLimit.RPS = models.RateLimitRPS
	}

	if c.Booking.HorizonDays == 0 {
		c.Booking.HorizonDays = models.DefaultHorizonDays
	}
	if c.Booking.DraftTTLSeconds == 0 {
		c.Booking.DraftTTLSeconds = models.DefaultDraftTTL
	}
}
