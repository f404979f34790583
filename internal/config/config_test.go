package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		filePath  string
		wantErr   bool
		errString string
	}{
		{
			name:     "valid config file",
			filePath: "testdata/valid_config.yaml",
			wantErr:  false,
		},
		{
			name:      "non-existent file",
			filePath:  "testdata/nonexistent.yaml",
			wantErr:   true,
			errString: "failed to read config file",
		},
		{
			name:      "malformed yaml",
			filePath:  "testdata/malformed.yaml",
			wantErr:   true,
			errString: "failed to parse config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(tt.filePath)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
				assert.Nil(t, cfg)
			} else {
				require.NoError(t, err)
				require.NotNil(t, cfg)

				// Verify some key fields are populated
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 5*time.Minute, cfg.Server.WriteTimeout)
				assert.Equal(t, "/tmp/paperflow", cfg.Renderer.OutputDir)
				assert.Equal(t, "A4", cfg.Renderer.PageSize)
				assert.Equal(t, 4, cfg.Pipeline.MaxConcurrent)
				assert.Equal(t, 24*time.Hour, cfg.Jobs.MaxAge)
				assert.Equal(t, time.Hour, cfg.Jobs.CleanupInterval)
				assert.Equal(t, "/PaperFlow", cfg.Dropbox.FolderPath)
				assert.Equal(t, "paperflow_events", cfg.RabbitMQ.Exchange.Name)
				assert.Equal(t, "paperflow", cfg.App.Name)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server: ServerConfig{Port: 8080},
			Renderer: RendererConfig{
				OutputDir: "/tmp/paperflow",
				PageSize:  "A4",
			},
			Pipeline: PipelineConfig{MaxConcurrent: 4},
			Jobs: JobsConfig{
				MaxAge:          24 * time.Hour,
				CleanupInterval: time.Hour,
			},
		}
	}

	tests := []struct {
		name      string
		mutate    func(*Config)
		wantErr   bool
		errString string
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "letter page size",
			mutate:  func(c *Config) { c.Renderer.PageSize = "Letter" },
			wantErr: false,
		},
		{
			name:    "empty page size defaults later",
			mutate:  func(c *Config) { c.Renderer.PageSize = "" },
			wantErr: false,
		},
		{
			name:      "port too low",
			mutate:    func(c *Config) { c.Server.Port = 0 },
			wantErr:   true,
			errString: "invalid server port",
		},
		{
			name:      "port too high",
			mutate:    func(c *Config) { c.Server.Port = 70000 },
			wantErr:   true,
			errString: "invalid server port",
		},
		{
			name:      "missing output dir",
			mutate:    func(c *Config) { c.Renderer.OutputDir = "" },
			wantErr:   true,
			errString: "output_dir is required",
		},
		{
			name:      "unsupported page size",
			mutate:    func(c *Config) { c.Renderer.PageSize = "Legal" },
			wantErr:   true,
			errString: "invalid renderer page_size",
		},
		{
			name:      "zero max concurrent",
			mutate:    func(c *Config) { c.Pipeline.MaxConcurrent = 0 },
			wantErr:   true,
			errString: "max_concurrent must be greater than 0",
		},
		{
			name:      "zero max age",
			mutate:    func(c *Config) { c.Jobs.MaxAge = 0 },
			wantErr:   true,
			errString: "max_age must be greater than 0",
		},
		{
			name:      "zero cleanup interval",
			mutate:    func(c *Config) { c.Jobs.CleanupInterval = 0 },
			wantErr:   true,
			errString: "cleanup_interval must be greater than 0",
		},
		{
			name: "rabbitmq enabled without host",
			mutate: func(c *Config) {
				c.RabbitMQ.Enabled = true
				c.RabbitMQ.Port = 5672
				c.RabbitMQ.Exchange.Name = "paperflow_events"
			},
			wantErr:   true,
			errString: "rabbitmq host is required",
		},
		{
			name: "rabbitmq enabled with bad port",
			mutate: func(c *Config) {
				c.RabbitMQ.Enabled = true
				c.RabbitMQ.Host = "localhost"
				c.RabbitMQ.Exchange.Name = "paperflow_events"
			},
			wantErr:   true,
			errString: "invalid rabbitmq port",
		},
		{
			name: "rabbitmq enabled without exchange",
			mutate: func(c *Config) {
				c.RabbitMQ.Enabled = true
				c.RabbitMQ.Host = "localhost"
				c.RabbitMQ.Port = 5672
			},
			wantErr:   true,
			errString: "exchange name is required",
		},
		{
			name: "rabbitmq fully configured",
			mutate: func(c *Config) {
				c.RabbitMQ.Enabled = true
				c.RabbitMQ.Host = "localhost"
				c.RabbitMQ.Port = 5672
				c.RabbitMQ.Exchange.Name = "paperflow_events"
			},
			wantErr: false,
		},
		{
			name: "rabbitmq disabled skips its checks",
			mutate: func(c *Config) {
				c.RabbitMQ.Enabled = false
				c.RabbitMQ.Host = ""
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
