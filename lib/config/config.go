// Package config loads codec, limit, transport and logging settings from a
// TOML file, with environment overrides.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/thebagchi/asner/lib/asn"
	"github.com/thebagchi/asner/lib/compress"
)

const (
	EnvLogLevel = "ASNER_LOG_LEVEL"
	EnvRules    = "ASNER_RULES"
)

type Codec struct {
	// Rules is one of "ber", "aper" or "uper".
	Rules string
}

type Limits struct {
	MaxArraySize   uint64
	MaxStringSize  uint64
	MaxMessageSize uint64
}

type Transport struct {
	TPKT        bool
	Compression string
}

type Log struct {
	Level string
}

type Config struct {
	Codec     Codec
	Limits    Limits
	Transport Transport
	Log       Log
}

type fileConfig struct {
	Codec struct {
		Rules string `toml:"rules"`
	} `toml:"codec"`
	Limits struct {
		MaxArraySize   uint64 `toml:"max_array_size"`
		MaxStringSize  uint64 `toml:"max_string_size"`
		MaxMessageSize uint64 `toml:"max_message_size"`
	} `toml:"limits"`
	Transport struct {
		TPKT        bool   `toml:"tpkt"`
		Compression string `toml:"compression"`
	} `toml:"transport"`
	Log struct {
		Level string `toml:"level"`
	} `toml:"log"`
}

func Default() Config {
	limits := asn.DefaultLimits()
	return Config{
		Codec: Codec{Rules: "ber"},
		Limits: Limits{
			MaxArraySize:   limits.MaxArraySize,
			MaxStringSize:  limits.MaxStringSize,
			MaxMessageSize: limits.MaxMessageSize,
		},
		Transport: Transport{Compression: "none"},
		Log:       Log{Level: "info"},
	}
}

// Load reads path over the defaults. Keys missing from the file keep their
// default value.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("load config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("codec", "rules") {
		cfg.Codec.Rules = normalize(raw.Codec.Rules)
	}
	if meta.IsDefined("limits", "max_array_size") {
		cfg.Limits.MaxArraySize = raw.Limits.MaxArraySize
	}
	if meta.IsDefined("limits", "max_string_size") {
		cfg.Limits.MaxStringSize = raw.Limits.MaxStringSize
	}
	if meta.IsDefined("limits", "max_message_size") {
		cfg.Limits.MaxMessageSize = raw.Limits.MaxMessageSize
	}
	if meta.IsDefined("transport", "tpkt") {
		cfg.Transport.TPKT = raw.Transport.TPKT
	}
	if meta.IsDefined("transport", "compression") {
		cfg.Transport.Compression = normalize(raw.Transport.Compression)
	}
	if meta.IsDefined("log", "level") {
		cfg.Log.Level = normalize(raw.Log.Level)
	}

	return cfg, cfg.Validate()
}

// ApplyEnv overrides the log level and the codec rules from the
// environment.
func (c *Config) ApplyEnv() error {
	if v, ok := os.LookupEnv(EnvLogLevel); ok {
		c.Log.Level = normalize(v)
	}
	if v, ok := os.LookupEnv(EnvRules); ok {
		c.Codec.Rules = normalize(v)
	}
	return c.Validate()
}

func (c Config) Validate() error {
	switch c.Codec.Rules {
	case "ber", "aper", "uper":
	default:
		return fmt.Errorf("config: codec rules %q: want ber, aper or uper", c.Codec.Rules)
	}
	if c.Limits.MaxArraySize == 0 || c.Limits.MaxStringSize == 0 || c.Limits.MaxMessageSize == 0 {
		return fmt.Errorf("config: decode limits must be positive")
	}
	if c.Limits.MaxStringSize > c.Limits.MaxMessageSize {
		return fmt.Errorf("config: max_string_size %d exceeds max_message_size %d",
			c.Limits.MaxStringSize, c.Limits.MaxMessageSize)
	}
	if _, err := c.CompressionType(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	switch c.Log.Level {
	case "trace", "debug", "info", "warn", "error", "disabled":
	default:
		return fmt.Errorf("config: log level %q", c.Log.Level)
	}
	return nil
}

// DecodeLimits returns the limits to build decoders with.
func (c Config) DecodeLimits() asn.Limits {
	return asn.Limits{
		MaxArraySize:   c.Limits.MaxArraySize,
		MaxStringSize:  c.Limits.MaxStringSize,
		MaxMessageSize: c.Limits.MaxMessageSize,
	}
}

func (c Config) CompressionType() (compress.Type, error) {
	return compress.ParseType(c.Transport.Compression)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
