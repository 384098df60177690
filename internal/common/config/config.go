package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Platform PlatformConfig `json:"platform"`
	Sync     SyncConfig     `json:"sync"`
	Consul   ConsulConfig   `json:"consul"`
	Jaeger   JaegerConfig   `json:"jaeger"`
	Log      LogConfig      `json:"log"`
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Name     string `json:"name"`
	Host     string `json:"host"`
	HTTPPort int    `json:"http_port"`
}

// DatabaseConfig describes the MySQL connection.
type DatabaseConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	MaxIdle  int    `json:"max_idle"`
	MaxOpen  int    `json:"max_open"`
}

// PlatformConfig holds credentials and paging knobs for the external
// ride-hailing platform API.
type PlatformConfig struct {
	BaseURL        string `json:"base_url"`
	ClientID       string `json:"client_id"`
	APIKey         string `json:"api_key"`
	ParkID         string `json:"park_id"`
	PageSize       int    `json:"page_size"`
	MaxPages       int    `json:"max_pages"` // hard ceiling per pagination loop
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// Validate reports missing credentials. Called before any fetch so a
// misconfigured deployment fails the run without touching the network.
func (p PlatformConfig) Validate() error {
	if p.ClientID == "" || p.APIKey == "" {
		return fmt.Errorf("platform client_id/api_key not configured")
	}
	if p.ParkID == "" {
		return fmt.Errorf("platform park_id not configured")
	}
	return nil
}

// SyncConfig tunes the daily reconciliation run.
type SyncConfig struct {
	Hour             int    `json:"hour"`              // local hour for the automatic run
	ObjectiveMinutes int    `json:"objective_minutes"` // daily activity target, overridable in fleet settings
	Timezone         string `json:"timezone"`          // fleet civil timezone, e.g. Africa/Abidjan
	Workers          int    `json:"workers"`           // per-driver pipeline parallelism
	WorkRuleFilter   string `json:"work_rule_filter"`  // restrict the roster to this platform work rule, empty = all
}

// ConsulConfig locates the Consul agent.
type ConsulConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// JaegerConfig configures tracing.
type JaegerConfig struct {
	Endpoint string  `json:"endpoint"`
	Sampler  float64 `json:"sampler"` // 0.0-1.0
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
	Output string `json:"output"` // stdout, file
	Path   string `json:"path"`
}

var (
	globalConfig *Config
	configOnce   sync.Once
)

// LoadConfig loads the JSON config file, falling back to dev defaults when
// the file does not exist.
func LoadConfig(configPath string) (*Config, error) {
	var err error
	configOnce.Do(func() {
		globalConfig = &Config{}
		if _, statErr := os.Stat(configPath); os.IsNotExist(statErr) {
			logrus.Warnf("Config file not found: %s, using default config", configPath)
			globalConfig = defaultConfig()
			return
		}

		data, readErr := os.ReadFile(configPath)
		if readErr != nil {
			err = fmt.Errorf("failed to read config file: %w", readErr)
			return
		}
		if unmarshalErr := json.Unmarshal(data, globalConfig); unmarshalErr != nil {
			err = fmt.Errorf("failed to parse config file: %w", unmarshalErr)
			return
		}
	})

	if err != nil {
		return nil, err
	}
	return globalConfig, nil
}

// GetConfig returns the loaded config, or defaults when nothing was loaded.
func GetConfig() *Config {
	if globalConfig == nil {
		return defaultConfig()
	}
	return globalConfig
}

// defaultConfig is the dev-environment fallback.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Name:     "sync-service",
			Host:     "0.0.0.0",
			HTTPPort: 8080,
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     3306,
			User:     "root",
			Password: "root",
			Database: "moovfleet",
			MaxIdle:  10,
			MaxOpen:  100,
		},
		Platform: PlatformConfig{
			BaseURL:        "https://fleet-api.example.com",
			PageSize:       100,
			MaxPages:       50,
			TimeoutSeconds: 30,
		},
		Sync: SyncConfig{
			Hour:             4,
			ObjectiveMinutes: 480,
			Timezone:         "Africa/Abidjan",
			Workers:          4,
		},
		Consul: ConsulConfig{
			Host: "localhost",
			Port: 8500,
		},
		Jaeger: JaegerConfig{
			Endpoint: "localhost:6831",
			Sampler:  1.0,
		},
		Log: LogConfig{
			Level:  "debug",
			Format: "text",
			Output: "stdout",
			Path:   "logs/app.log",
		},
	}
}
