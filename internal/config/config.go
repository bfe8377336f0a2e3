package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535

	// DefaultPollInterval matches the cadence the mission backend is tuned for.
	DefaultPollInterval = 2 * time.Second
)

// Environment variables that override values from the YAML file.
const (
	EnvBackendURL       = "MISSION_BACKEND_URL"
	EnvDatabasePassword = "DATABASE_PASSWORD"
	EnvRabbitMQPassword = "RABBITMQ_PASSWORD"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Backend  BackendConfig  `yaml:"backend"`
	Database DatabaseConfig `yaml:"database"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Logging  LoggingConfig  `yaml:"logging"`
	App      AppConfig      `yaml:"app"`
	Archive  ArchiveConfig  `yaml:"archive"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes"`
	// UploadDir holds spooled uploads until they are sent to the backend.
	UploadDir       string        `yaml:"upload_dir"`
	CORSAllowOrigin string        `yaml:"cors_allow_origin"`
}

// BackendConfig points the job controller at the remote processing pipeline.
type BackendConfig struct {
	BaseURL        string        `yaml:"base_url"`
	UploadPath     string        `yaml:"upload_path"`
	StatusPath     string        `yaml:"status_path"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	// PollDeadline bounds a single job's poll cycle; zero polls indefinitely.
	PollDeadline time.Duration `yaml:"poll_deadline"`
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// RabbitMQConfig holds RabbitMQ connection and exchange/queue configuration
type RabbitMQConfig struct {
	Enabled    bool             `yaml:"enabled"`
	Host       string           `yaml:"host"`
	Port       int              `yaml:"port"`
	User       string           `yaml:"user"`
	Password   string           `yaml:"password"`
	VHost      string           `yaml:"vhost"`
	Exchange   ExchangeConfig   `yaml:"exchange"`
	Queue      QueueConfig      `yaml:"queue"`
	RoutingKey string           `yaml:"routing_key"`
	Connection ConnectionConfig `yaml:"connection"`
	Publish    PublishConfig    `yaml:"publish"`
	Consumer   ConsumerConfig   `yaml:"consumer"`
}

// ExchangeConfig holds RabbitMQ exchange configuration
type ExchangeConfig struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
}

// QueueConfig holds RabbitMQ queue configuration
type QueueConfig struct {
	Name       string `yaml:"name"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
	Exclusive  bool   `yaml:"exclusive"`
}

// ConnectionConfig holds RabbitMQ connection settings
type ConnectionConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	Heartbeat         time.Duration `yaml:"heartbeat"`
	ConnectionTimeout time.Duration `yaml:"connection_timeout"`
}

// PublishConfig holds RabbitMQ publish retry settings
type PublishConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
	Timeout           time.Duration `yaml:"timeout"`
}

// ConsumerConfig holds RabbitMQ consumer settings
type ConsumerConfig struct {
	PrefetchCount int `yaml:"prefetch_count"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	Output       string `yaml:"output"`
	EnableCaller bool   `yaml:"enable_caller"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// ArchiveConfig holds archive worker configuration
type ArchiveConfig struct {
	Concurrency     int           `yaml:"concurrency"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Load reads and parses the configuration file, then applies environment
// overrides and defaults.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.ApplyEnv()
	config.ApplyDefaults()
	return &config, nil
}

// ApplyEnv overrides secrets and the backend location from the environment.
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvBackendURL)); v != "" {
		c.Backend.BaseURL = v
	}
	if v := os.Getenv(EnvDatabasePassword); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv(EnvRabbitMQPassword); v != "" {
		c.RabbitMQ.Password = v
	}
}

// ApplyDefaults fills unset values with their defaults.
func (c *Config) ApplyDefaults() {
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Server.MaxUploadBytes <= 0 {
		c.Server.MaxUploadBytes = 2 << 30
	}
	if c.Server.UploadDir == "" {
		c.Server.UploadDir = filepath.Join(os.TempDir(), "mission-control", "uploads")
	}

	if c.Backend.UploadPath == "" {
		c.Backend.UploadPath = "/upload"
	}
	if c.Backend.StatusPath == "" {
		c.Backend.StatusPath = "/status/{job_id}"
	}
	if c.Backend.PollInterval <= 0 {
		c.Backend.PollInterval = DefaultPollInterval
	}

	if c.RabbitMQ.Exchange.Type == "" {
		c.RabbitMQ.Exchange.Type = "direct"
	}
	if c.RabbitMQ.Publish.Timeout <= 0 {
		c.RabbitMQ.Publish.Timeout = 5 * time.Second
	}
	if c.RabbitMQ.Consumer.PrefetchCount <= 0 {
		c.RabbitMQ.Consumer.PrefetchCount = 1
	}

	if c.Archive.Concurrency <= 0 {
		c.Archive.Concurrency = 1
	}
	if c.Archive.WriteTimeout <= 0 {
		c.Archive.WriteTimeout = 10 * time.Second
	}
	if c.Archive.ShutdownTimeout <= 0 {
		c.Archive.ShutdownTimeout = 30 * time.Second
	}
}

// ValidateControlConfig checks the settings the control service depends on.
func (c *Config) ValidateControlConfig() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	if err := c.Backend.Validate(); err != nil {
		return err
	}

	if c.Database.Enabled {
		if err := c.Database.Validate(); err != nil {
			return err
		}
	}

	if c.RabbitMQ.Enabled {
		if err := c.RabbitMQ.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// ValidateArchiveConfig checks the settings the archive worker depends on.
// The worker cannot run without both the queue and the database.
func (c *Config) ValidateArchiveConfig() error {
	if err := c.Database.Validate(); err != nil {
		return err
	}

	if err := c.RabbitMQ.Validate(); err != nil {
		return err
	}

	if c.Archive.Concurrency <= 0 {
		return errors.New("archive concurrency must be greater than 0")
	}

	return nil
}

// Validate checks the backend location and poll cadence.
func (b BackendConfig) Validate() error {
	if strings.TrimSpace(b.BaseURL) == "" {
		return errors.New("backend base_url is required")
	}
	u, err := url.Parse(b.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid backend base_url: %q", b.BaseURL)
	}
	if !strings.Contains(b.StatusPath, "{job_id}") {
		return fmt.Errorf("backend status_path must contain {job_id}: %q", b.StatusPath)
	}
	if b.PollInterval <= 0 {
		return errors.New("backend poll_interval must be greater than 0")
	}
	if b.PollDeadline < 0 {
		return errors.New("backend poll_deadline must not be negative")
	}
	return nil
}

// Validate checks the PostgreSQL connection settings.
func (d DatabaseConfig) Validate() error {
	if d.Host == "" {
		return errors.New("database host is required")
	}

	if d.Port < MinPort || d.Port > MaxPort {
		return fmt.Errorf("invalid database port: %d (must be between %d and %d)", d.Port, MinPort, MaxPort)
	}

	if d.Database == "" {
		return errors.New("database name is required")
	}

	return nil
}

// Validate checks the RabbitMQ connection and topology settings.
func (r RabbitMQConfig) Validate() error {
	if r.Host == "" {
		return errors.New("rabbitmq host is required")
	}

	if r.Port < MinPort || r.Port > MaxPort {
		return fmt.Errorf("invalid rabbitmq port: %d (must be between %d and %d)", r.Port, MinPort, MaxPort)
	}

	if r.Exchange.Name == "" {
		return errors.New("rabbitmq exchange name is required")
	}

	if r.Queue.Name == "" {
		return errors.New("rabbitmq queue name is required")
	}

	return nil
}
