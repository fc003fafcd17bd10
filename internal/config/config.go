// Package config loads chatflow runtime configuration.
//
// Values are layered with koanf. Precedence, highest first:
// flags, CHATFLOW_* environment variables, .env file, config file, defaults.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/flowgraph/chatflow/pkg/serialization"
	"github.com/flowgraph/chatflow/pkg/validation"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "CHATFLOW_"

// Default values.
const (
	DefaultConfigFile  = "chatflow.yaml"
	DefaultEnvFile     = ".env"
	DefaultAddr        = ":8080"
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "json"
	DefaultBackend     = BackendMemory
	DefaultTable       = "flow_versions"
	DefaultCodec       = "msgpack"
	DefaultCompression = "zstd"
	DefaultFlowID      = "main"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Config is the complete runtime configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server" json:"server"`
	Log           LogConfig           `koanf:"log" json:"log"`
	Flow          FlowConfig          `koanf:"flow" json:"flow"`
	Storage       StorageConfig       `koanf:"storage" json:"storage"`
	Serialization SerializationConfig `koanf:"serialization" json:"serialization"`
	History       HistoryConfig       `koanf:"history" json:"history"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr           string   `koanf:"addr" json:"addr" validate:"required"`
	AllowedOrigins []string `koanf:"allowed_origins" json:"allowed_origins"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `koanf:"level" json:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" json:"format" validate:"oneof=json console"`
}

// FlowConfig identifies the flow served by this process.
type FlowConfig struct {
	ID string `koanf:"id" json:"id" validate:"required,node_id"`
}

// StorageConfig selects where saved versions are archived.
type StorageConfig struct {
	Backend string `koanf:"backend" json:"backend" validate:"oneof=memory sqlite postgres"`
	DSN     string `koanf:"dsn" json:"dsn" validate:"required_unless=Backend memory"`
	Table   string `koanf:"table" json:"table" validate:"required,sql_ident,max=63"`
}

// SerializationConfig selects the snapshot encoding pipeline.
type SerializationConfig struct {
	Codec       string `koanf:"codec" json:"codec" validate:"oneof=msgpack json"`
	Compression string `koanf:"compression" json:"compression" validate:"oneof=none gzip zstd"`
	EncryptKey  string `koanf:"encrypt_key" json:"encrypt_key" validate:"omitempty,len=32"`
}

// HistoryConfig bounds in-memory version history.
type HistoryConfig struct {
	// MaxVersions keeps only the newest N versions; 0 keeps all.
	MaxVersions int `koanf:"max_versions" json:"max_versions" validate:"min=0"`
}

// Options control where Load looks for configuration.
type Options struct {
	// File is an explicit config file. When empty, DefaultConfigFile is
	// used if it exists.
	File string
	// EnvFile is a dotenv file. When empty, DefaultEnvFile is used if it exists.
	EnvFile string
	// Flags are command-line flags; only flags set by the user are applied.
	Flags *pflag.FlagSet
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"addr":         "server.addr",
	"log-level":    "log.level",
	"log-format":   "log.format",
	"flow-id":      "flow.id",
	"backend":      "storage.backend",
	"dsn":          "storage.dsn",
	"table":        "storage.table",
	"codec":        "serialization.codec",
	"compression":  "serialization.compression",
	"max-versions": "history.max_versions",
}

// Defaults returns the default configuration as flat koanf keys.
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"server.addr":               DefaultAddr,
		"log.level":                 DefaultLogLevel,
		"log.format":                DefaultLogFormat,
		"flow.id":                   DefaultFlowID,
		"storage.backend":           DefaultBackend,
		"storage.dsn":               "",
		"storage.table":             DefaultTable,
		"serialization.codec":       DefaultCodec,
		"serialization.compression": DefaultCompression,
		"serialization.encrypt_key": "",
		"history.max_versions":      0,
	}
}

// Load builds a validated Config from defaults, config file, dotenv file,
// environment and flags.
func Load(opts Options) (*Config, error) {
	k := koanf.New(".")

	// 1. Load defaults
	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Load config file
	if path := findFile(opts.File, DefaultConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	} else if opts.File != "" {
		return nil, fmt.Errorf("config file %s not found", opts.File)
	}

	// 3. Load dotenv file into the process environment; real env vars win
	if path := findFile(opts.EnvFile, DefaultEnvFile); path != "" {
		if err := godotenv.Load(path); err != nil {
			return nil, fmt.Errorf("error reading env file %s: %w", path, err)
		}
	}

	// 4. Load environment variables
	// Transform: CHATFLOW_HISTORY_MAX_VERSIONS -> history.max_versions
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 5. Load flags (highest priority)
	if opts.Flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(opts.Flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(opts.Flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every field constraint.
func (c *Config) Validate() error {
	if err := validation.ValidateWithPlayground(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Serializer builds the snapshot serializer described by the config.
func (c SerializationConfig) Serializer() (*serialization.Serializer, error) {
	return serialization.FromNames(c.Codec, c.Compression, []byte(c.EncryptKey))
}

// envKey maps CHATFLOW_SECTION_KEY to section.key. Only the first
// underscore separates the section, so keys may contain underscores.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.Replace(s, "_", ".", 1)
}

// findFile returns explicit if it exists, else fallback if it exists.
func findFile(explicit, fallback string) string {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit
		}
		return ""
	}
	if _, err := os.Stat(fallback); err == nil {
		return fallback
	}
	return ""
}
