package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/deepakkuma24/atrocore/internal/formatter"
	"github.com/deepakkuma24/atrocore/internal/schema"
)

// Config holds all configuration for schemasync.
// Values come from an optional YAML file; environment variables override them.
type Config struct {
	// DatabaseURL is the live database to introspect (postgres://, mysql:// or sqlite://).
	// Empty means an offline build.
	DatabaseURL string `yaml:"database_url" env:"SCHEMASYNC_DATABASE_URL" env-default:""`

	// Dialect is used for offline builds. Ignored when DatabaseURL is set.
	Dialect string `yaml:"dialect" env:"SCHEMASYNC_DIALECT" env-default:"mysql"`

	// MaxIndexKeyLength overrides the offline key length limit. 0 means the dialect default.
	MaxIndexKeyLength int `yaml:"max_index_key_length" env:"SCHEMASYNC_MAX_INDEX_KEY_LENGTH" env-default:"0"`

	// SchemaName is the database schema to introspect (PostgreSQL; MySQL defaults to the DSN database).
	SchemaName string `yaml:"schema_name" env:"SCHEMASYNC_SCHEMA_NAME" env-default:""`

	// Charset of string columns; utf8mb4 or empty selects the wide collation.
	Charset string `yaml:"charset" env:"SCHEMASYNC_CHARSET" env-default:"utf8mb4"`

	Metadata MetadataConfig `yaml:"metadata"`
	Output   OutputConfig   `yaml:"output"`
	Log      LogConfig      `yaml:"log"`
}

// MetadataConfig locates the entity definitions and custom table fragments
type MetadataConfig struct {
	Dir          string `yaml:"dir" env:"SCHEMASYNC_METADATA_DIR" env-default:"metadata"`
	FragmentsDir string `yaml:"fragments_dir" env:"SCHEMASYNC_FRAGMENTS_DIR" env-default:""`
}

// OutputConfig controls how the built schema is written
type OutputConfig struct {
	Format string `yaml:"format" env:"SCHEMASYNC_FORMAT" env-default:"text"`
	Dir    string `yaml:"dir" env:"SCHEMASYNC_OUTPUT_DIR" env-default:""`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level       string `yaml:"level" env:"SCHEMASYNC_LOG_LEVEL" env-default:"info"`
	Development bool   `yaml:"development" env:"SCHEMASYNC_LOG_DEVELOPMENT" env-default:"false"`
}

// Load reads configuration from path with environment variable overrides.
// A missing or empty path reads the environment only.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(path); path != "" && err == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if _, ok := schema.ParseDialect(c.Dialect); !ok {
		return fmt.Errorf("invalid dialect %q", c.Dialect)
	}
	switch c.Output.Format {
	case formatter.FormatText, formatter.FormatMarkdown, formatter.FormatYAML:
	default:
		return fmt.Errorf("invalid output format %q", c.Output.Format)
	}
	if c.MaxIndexKeyLength < 0 {
		return fmt.Errorf("max_index_key_length must not be negative")
	}
	return nil
}
