package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/micro-ha/mikrotik-monitor/internal/model"
)

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	ClientRouterOS  = "routeros"
	ClientSimulated = "simulated"
)

const (
	defaultHTTPAddr       = ":8099"
	defaultDBPath         = "/data/mikrotik_monitor.db"
	defaultFrontendDist   = "/app/frontend/dist"
	defaultPollInterval   = 5 * time.Second
	defaultSystemInterval = 15 * time.Second
	defaultTickTimeout    = 20 * time.Second
	defaultDialTimeout    = 10 * time.Second
	defaultLogLimit       = 100
	defaultHubQueueSize   = 64
)

// Config stores runtime settings. Values come from defaults, then an
// optional YAML file, then environment variables.
type Config struct {
	HTTPAddr       string              `yaml:"http_addr"`
	DBDriver       string              `yaml:"db_driver"`
	DBPath         string              `yaml:"db_path"`
	DatabaseURL    string              `yaml:"database_url"`
	FrontendDist   string              `yaml:"frontend_dist"`
	OUIFile        string              `yaml:"oui_file"`
	LogLevel       string              `yaml:"log_level"`
	ClientMode     string              `yaml:"client_mode"`
	PollInterval   time.Duration       `yaml:"poll_interval"`
	SystemInterval time.Duration       `yaml:"system_interval"`
	TickTimeout    time.Duration       `yaml:"tick_timeout"`
	DialTimeout    time.Duration       `yaml:"dial_timeout"`
	LogLimit       int                 `yaml:"log_limit"`
	HubQueueSize   int                 `yaml:"hub_queue_size"`
	Thresholds     model.Thresholds    `yaml:"thresholds"`
	Devices        []model.DeviceInput `yaml:"devices"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		HTTPAddr:       defaultHTTPAddr,
		DBDriver:       DriverSQLite,
		DBPath:         defaultDBPath,
		FrontendDist:   defaultFrontendDist,
		LogLevel:       "info",
		ClientMode:     ClientRouterOS,
		PollInterval:   defaultPollInterval,
		SystemInterval: defaultSystemInterval,
		TickTimeout:    defaultTickTimeout,
		DialTimeout:    defaultDialTimeout,
		LogLimit:       defaultLogLimit,
		HubQueueSize:   defaultHubQueueSize,
		Thresholds:     model.DefaultThresholds(),
	}
}

// Load builds Config from the YAML file at path (skipped when empty) and
// the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path = strings.TrimSpace(path); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		decoder := yaml.NewDecoder(bytes.NewReader(raw))
		decoder.KnownFields(true)
		if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects unsupported drivers and modes.
func (c Config) Validate() error {
	switch c.DBDriver {
	case DriverMemory, DriverSQLite:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("database_url is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported db_driver %q", c.DBDriver)
	}
	switch c.ClientMode {
	case ClientRouterOS, ClientSimulated:
	default:
		return fmt.Errorf("unsupported client_mode %q", c.ClientMode)
	}
	return nil
}

// DBDir returns the target directory for DBPath.
func (c Config) DBDir() string {
	return filepath.Dir(c.DBPath)
}

func (c *Config) applyEnv() {
	c.HTTPAddr = getenv("HTTP_ADDR", c.HTTPAddr)
	c.DBDriver = getenv("DB_DRIVER", c.DBDriver)
	c.DBPath = getenv("DB_PATH", c.DBPath)
	c.DatabaseURL = getenv("DATABASE_URL", c.DatabaseURL)
	c.FrontendDist = getenv("FRONTEND_DIST", c.FrontendDist)
	c.OUIFile = getenv("OUI_FILE", c.OUIFile)
	c.LogLevel = getenv("LOG_LEVEL", c.LogLevel)
	c.ClientMode = getenv("CLIENT_MODE", c.ClientMode)
	c.PollInterval = parseDuration("POLL_INTERVAL", c.PollInterval)
	c.SystemInterval = parseDuration("SYSTEM_INTERVAL", c.SystemInterval)
	c.TickTimeout = parseDuration("TICK_TIMEOUT", c.TickTimeout)
	c.DialTimeout = parseDuration("DIAL_TIMEOUT", c.DialTimeout)
	c.LogLimit = parseInt("LOG_LIMIT", c.LogLimit)
	c.HubQueueSize = parseInt("HUB_QUEUE_SIZE", c.HubQueueSize)
	c.Thresholds.TemperatureCelsius = parseFloat("TEMPERATURE_THRESHOLD", c.Thresholds.TemperatureCelsius)
	c.Thresholds.MemoryUsedPercent = parseInt("MEMORY_THRESHOLD", c.Thresholds.MemoryUsedPercent)
	c.Thresholds.TrafficBitsPerSecond = parseFloat("TRAFFIC_THRESHOLD", c.Thresholds.TrafficBitsPerSecond)
}

func (c *Config) normalize() {
	c.DBDriver = strings.ToLower(strings.TrimSpace(c.DBDriver))
	c.ClientMode = strings.ToLower(strings.TrimSpace(c.ClientMode))
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.SystemInterval <= 0 {
		c.SystemInterval = defaultSystemInterval
	}
	if c.TickTimeout <= 0 {
		c.TickTimeout = defaultTickTimeout
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = defaultDialTimeout
	}
	if c.LogLimit <= 0 {
		c.LogLimit = defaultLogLimit
	}
	if c.HubQueueSize <= 0 {
		c.HubQueueSize = defaultHubQueueSize
	}
	c.Thresholds = c.Thresholds.Normalize()
}

func getenv(key string, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func parseDuration(key string, fallback time.Duration) time.Duration {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func parseInt(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func parseFloat(key string, fallback float64) float64 {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
