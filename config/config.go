package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	coremetrics "github.com/kilianp07/foodredist/core/metrics"
	"github.com/kilianp07/foodredist/core/pipeline"
	"github.com/kilianp07/foodredist/infra/logger"
	"github.com/kilianp07/foodredist/infra/monitoring"
	"github.com/kilianp07/foodredist/infra/mqtt"
	"github.com/kilianp07/foodredist/infra/sqlstore"
)

// EnvPrefix marks environment overrides. Nested keys are separated by a
// double underscore: FOODREDIST_DATABASE__DSN sets database.dsn.
const EnvPrefix = "FOODREDIST_"

// Source types.
const (
	SourceDatabase = "database"
	SourceFile     = "file"
)

type Config struct {
	Engine   pipeline.Config         `json:"engine"`
	Database sqlstore.Config         `json:"database"`
	Source   SourceConfig            `json:"source"`
	Metrics  coremetrics.Config      `json:"metrics"`
	Logging  logger.Config           `json:"logging"`
	MQTT     mqtt.Config             `json:"mqtt"`
	Sentry   monitoring.SentryConfig `json:"sentry"`
	HTTP     HTTPConfig              `json:"http"`
}

// SourceConfig selects where the surplus and charity snapshots come from.
type SourceConfig struct {
	// Type is "database" (default) or "file".
	Type string `json:"type" validate:"omitempty,oneof=database file"`
	// Path of the snapshot file when Type is "file".
	Path string `json:"path" validate:"required_if=Type file"`
}

// HTTPConfig configures the API server started by `serve`.
type HTTPConfig struct {
	Addr string `json:"addr"`
	// Token, when set, must be sent as "Authorization: Bearer <token>" on
	// every /api route.
	Token string `json:"token"`
}

// SetDefaults fills every unset section.
func (c *Config) SetDefaults() {
	c.Engine.SetDefaults()
	c.Database.SetDefaults()
	if c.Source.Type == "" {
		c.Source.Type = SourceDatabase
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.MQTT.Enabled() {
		c.MQTT.SetDefaults()
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the struct tags of every section.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := c.Engine.Location(); err != nil {
		return err
	}
	return nil
}

// Load reads the file at path, applies FOODREDIST_ environment overrides,
// defaults and validation. An empty path uses the environment alone.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		var parser koanf.Parser
		switch ext := strings.ToLower(filepath.Ext(path)); ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}
