package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
)

// Config represents the complete application configuration. Secrets
// (Dropbox credentials, API key) are deliberately absent: those come
// from the environment, not from a file that ends up in version control.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Extractor ExtractorConfig `yaml:"extractor"`
	Renderer  RendererConfig  `yaml:"renderer"`
	Dropbox   DropboxConfig   `yaml:"dropbox"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Jobs      JobsConfig      `yaml:"jobs"`
	RabbitMQ  RabbitMQConfig  `yaml:"rabbitmq"`
	Logging   LoggingConfig   `yaml:"logging"`
	App       AppConfig       `yaml:"app"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// ExtractorConfig holds article extraction settings
type ExtractorConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

// RendererConfig holds PDF rendering settings
type RendererConfig struct {
	OutputDir        string        `yaml:"output_dir"`
	PageSize         string        `yaml:"page_size"`
	Margin           float64       `yaml:"margin"`
	MaxArticleLength int           `yaml:"max_article_length"`
	Timeout          time.Duration `yaml:"timeout"`
}

// DropboxConfig holds non-secret Dropbox settings
type DropboxConfig struct {
	FolderPath string        `yaml:"folder_path"`
	Timeout    time.Duration `yaml:"timeout"`
}

// PipelineConfig bounds concurrent pipeline executions
type PipelineConfig struct {
	MaxConcurrent int `yaml:"max_concurrent"`
}

// JobsConfig controls job retention
type JobsConfig struct {
	MaxAge          time.Duration `yaml:"max_age"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// RabbitMQConfig holds the optional event publisher configuration
type RabbitMQConfig struct {
	Enabled    bool             `yaml:"enabled"`
	Host       string           `yaml:"host"`
	Port       int              `yaml:"port"`
	User       string           `yaml:"user"`
	Password   string           `yaml:"password"`
	VHost      string           `yaml:"vhost"`
	Exchange   ExchangeConfig   `yaml:"exchange"`
	RoutingKey string           `yaml:"routing_key"`
	Connection ConnectionConfig `yaml:"connection"`
	Publish    PublishConfig    `yaml:"publish"`
}

// ExchangeConfig holds RabbitMQ exchange configuration
type ExchangeConfig struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	Durable bool   `yaml:"durable"`
}

// ConnectionConfig holds RabbitMQ connection settings
type ConnectionConfig struct {
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryInterval time.Duration `yaml:"retry_interval"`
	Heartbeat     time.Duration `yaml:"heartbeat"`
}

// PublishConfig holds RabbitMQ publish retry settings
type PublishConfig struct {
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryInterval time.Duration `yaml:"retry_interval"`
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

// Load reads and parses the configuration file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	if c.Renderer.OutputDir == "" {
		return fmt.Errorf("renderer output_dir is required")
	}

	switch c.Renderer.PageSize {
	case "", "A4", "Letter":
	default:
		return fmt.Errorf("invalid renderer page_size: %s (must be A4 or Letter)", c.Renderer.PageSize)
	}

	if c.Pipeline.MaxConcurrent <= 0 {
		return fmt.Errorf("pipeline max_concurrent must be greater than 0")
	}

	if c.Jobs.MaxAge <= 0 {
		return fmt.Errorf("jobs max_age must be greater than 0")
	}

	if c.Jobs.CleanupInterval <= 0 {
		return fmt.Errorf("jobs cleanup_interval must be greater than 0")
	}

	if c.RabbitMQ.Enabled {
		if c.RabbitMQ.Host == "" {
			return fmt.Errorf("rabbitmq host is required when rabbitmq is enabled")
		}
		if c.RabbitMQ.Port < MinPort || c.RabbitMQ.Port > MaxPort {
			return fmt.Errorf("invalid rabbitmq port: %d (must be between %d and %d)", c.RabbitMQ.Port, MinPort, MaxPort)
		}
		if c.RabbitMQ.Exchange.Name == "" {
			return fmt.Errorf("rabbitmq exchange name is required when rabbitmq is enabled")
		}
	}

	return nil
}
