package appconfig

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/template"
	"time"
	_ "time/tzdata"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v2"
)

// Session store backends.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// Bounds of the map polling intervals.
const (
	MinPollInterval = 5 * time.Second
	MaxPollInterval = 30 * time.Second
)

// Config holds all configuration details
type Config struct {
	Host     string         `yaml:"host"`
	BasePath string         `yaml:"basePath"`
	Backend  BackendConfig  `yaml:"backend"`
	Session  SessionConfig  `yaml:"session"`
	Redis    RedisConfig    `yaml:"redis"`
	Database DatabaseConfig `yaml:"database"`
	Pulsar   PulsarConfig   `yaml:"pulsar"`
	AWS      AWSConfig      `yaml:"aws"`
	Map      MapConfig      `yaml:"map"`
	Console  ConsoleConfig  `yaml:"console"`
	Login    LoginConfig    `yaml:"login"`
}

// BackendConfig points at the CRASH backend API, including its versioned prefix.
type BackendConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// SessionConfig defines where console sessions are kept and how the cookie looks
type SessionConfig struct {
	Store      string        `yaml:"store"`
	CookieName string        `yaml:"cookieName"`
	Secure     bool          `yaml:"secure"`
	TTL        time.Duration `yaml:"ttl"`
}

// RedisConfig defines the redis session store connection
type RedisConfig struct {
	Addr           string `yaml:"addr"`
	Password       string `yaml:"password"`
	PasswordSecret string `yaml:"passwordSecret"`
	DB             int    `yaml:"db"`
}

// DatabaseConfig defines the database connection details
type DatabaseConfig struct {
	Driver     string `yaml:"driver"`
	Source     string `yaml:"source"`
	SecretName string `yaml:"secretName"`
}

// PulsarConfig defines the audit event topic. An empty URL disables publishing.
type PulsarConfig struct {
	URL           string `yaml:"url"`
	TopicProducer string `yaml:"topicProducer"`
}

type AWSConfig struct {
	Region string `yaml:"region"`
}

// MapConfig controls the live map polling and focus behaviour
type MapConfig struct {
	PollInterval       time.Duration `yaml:"pollInterval"`
	CheckpointInterval time.Duration `yaml:"checkpointInterval"`
	FocusDistanceKm    float64       `yaml:"focusDistanceKm"`
	TileURL            string        `yaml:"tileURL"`
	DefaultLatitude    float64       `yaml:"defaultLatitude"`
	DefaultLongitude   float64       `yaml:"defaultLongitude"`
	DefaultZoom        int           `yaml:"defaultZoom"`
}

type ConsoleConfig struct {
	Timezone string `yaml:"timezone"`
}

// LoginConfig throttles login attempts per client address
type LoginConfig struct {
	RatePerMinute int `yaml:"ratePerMinute"`
	Burst         int `yaml:"burst"`
}

// LoadConfig loads and parses the configuration from a given file path
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		err := errors.New("config file path is required")
		log.Error().Err(err).Msg("config file not provided")
		return nil, err
	}

	// Parse the template file
	tmpl, err := template.ParseFiles(path)
	if err != nil {
		log.Error().Err(err).Msg("error parsing config file template")
		return nil, err
	}

	// Create a map of environment variables
	envVars := loadEnvVars()

	// Execute the template with environment variables
	var buf bytes.Buffer
	err = tmpl.Execute(&buf, envVars)
	if err != nil {
		log.Error().Err(err).Msg("error executing config file template")
		return nil, err
	}

	// Load and unmarshal the YAML
	var config Config
	if err := yaml.Unmarshal(buf.Bytes(), &config); err != nil {
		log.Error().Err(err).Msg("failed to unmarshal config YAML")
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.BasePath == "" {
		c.BasePath = "/"
	}
	if c.Backend.Timeout == 0 {
		c.Backend.Timeout = 15 * time.Second
	}
	c.Backend.URL = strings.TrimRight(c.Backend.URL, "/")

	if c.Session.Store == "" {
		c.Session.Store = StoreMemory
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = "crash_console_session"
	}
	if c.Session.TTL == 0 {
		c.Session.TTL = 24 * time.Hour
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "127.0.0.1:6379"
	}

	c.Map.PollInterval = clampInterval(c.Map.PollInterval, 10*time.Second)
	c.Map.CheckpointInterval = clampInterval(c.Map.CheckpointInterval, 30*time.Second)
	if c.Map.FocusDistanceKm <= 0 {
		c.Map.FocusDistanceKm = 5
	}
	if c.Map.TileURL == "" {
		c.Map.TileURL = "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"
	}
	if c.Map.DefaultLatitude == 0 && c.Map.DefaultLongitude == 0 {
		// Metro Manila
		c.Map.DefaultLatitude = 14.5995
		c.Map.DefaultLongitude = 120.9842
	}
	if c.Map.DefaultZoom == 0 {
		c.Map.DefaultZoom = 12
	}

	if c.Console.Timezone == "" {
		c.Console.Timezone = "Asia/Manila"
	}
	if c.Login.RatePerMinute == 0 {
		c.Login.RatePerMinute = 10
	}
	if c.Login.Burst == 0 {
		c.Login.Burst = 5
	}
}

// Validate checks the settings that have no sensible default.
func (c *Config) Validate() error {
	if c.Backend.URL == "" {
		return errors.New("backend.url is required")
	}
	switch c.Session.Store {
	case StoreMemory, StoreRedis, StorePostgres:
	default:
		return fmt.Errorf("unknown session store %q", c.Session.Store)
	}
	if _, err := time.LoadLocation(c.Console.Timezone); err != nil {
		return fmt.Errorf("console.timezone: %w", err)
	}
	return nil
}

// Location returns the timezone naive form times are entered in.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Console.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func clampInterval(d, fallback time.Duration) time.Duration {
	if d == 0 {
		d = fallback
	}
	if d < MinPollInterval {
		return MinPollInterval
	}
	if d > MaxPollInterval {
		return MaxPollInterval
	}
	return d
}

// loadEnvVars loads environment variables into a map
func loadEnvVars() map[string]string {
	envVars := make(map[string]string)
	for _, env := range os.Environ() {
		kv := strings.SplitN(env, "=", 2)
		if len(kv) == 2 {
			envVars[kv[0]] = kv[1]
		}
	}
	return envVars
}
