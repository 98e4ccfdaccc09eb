// Package config loads lanegrid settings from TOML or YAML files.
//
// Every layout constant, parser setting and store option can be set in a
// file; keys that are absent keep their defaults. The format is chosen by
// extension (.toml, .yaml, .yml).
//
//	[parse]
//	action_prefix = "Step"
//	multi_delimiters = [";"]
//
//	[layout]
//	column_x = 100
//
//	[store]
//	backend = "redis"
//	redis_addr = "redis:6379"
package config

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/lanegrid/pkg/errors"
	"github.com/matzehuels/lanegrid/pkg/layout"
	"github.com/matzehuels/lanegrid/pkg/rows"
	"github.com/matzehuels/lanegrid/pkg/session"
)

// Parse holds the row parser settings.
type Parse struct {
	Comma           string   `json:"comma" toml:"comma" yaml:"comma"`
	MultiDelimiters []string `json:"multi_delimiters" toml:"multi_delimiters" yaml:"multi_delimiters"`
	ActionPrefix    string   `json:"action_prefix" toml:"action_prefix" yaml:"action_prefix"`
	HeaderScanRows  int      `json:"header_scan_rows" toml:"header_scan_rows" yaml:"header_scan_rows"`
	Sheet           string   `json:"sheet" toml:"sheet" yaml:"sheet"`
}

// Server holds the HTTP API settings.
type Server struct {
	Addr         string `json:"addr" toml:"addr" yaml:"addr"`
	MaxUploadMiB int    `json:"max_upload_mib" toml:"max_upload_mib" yaml:"max_upload_mib"`
}

// Cache holds the artifact cache settings. An empty Dir means the user
// cache directory.
type Cache struct {
	Disabled bool   `json:"disabled" toml:"disabled" yaml:"disabled"`
	Dir      string `json:"dir" toml:"dir" yaml:"dir"`
	TTL      string `json:"ttl" toml:"ttl" yaml:"ttl"`
}

// Config is the full configuration.
type Config struct {
	Parse  Parse          `json:"parse" toml:"parse" yaml:"parse"`
	Layout layout.Options `json:"layout" toml:"layout" yaml:"layout"`
	Store  session.Config `json:"store" toml:"store" yaml:"store"`
	Server Server         `json:"server" toml:"server" yaml:"server"`
	Cache  Cache          `json:"cache" toml:"cache" yaml:"cache"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Parse: Parse{
			Comma:           string(rows.DefaultComma),
			MultiDelimiters: slices.Clone(rows.DefaultMultiDelimiters),
			ActionPrefix:    rows.DefaultActionPrefix,
			HeaderScanRows:  rows.DefaultHeaderScanRows,
		},
		Layout: layout.DefaultOptions(),
		Store:  session.DefaultConfig(),
		Server: Server{Addr: ":8080", MaxUploadMiB: 32},
		Cache:  Cache{TTL: "168h"},
	}
}

// DefaultPath returns ~/.config/lanegrid/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeIO, err, "get home dir")
	}
	return filepath.Join(home, ".config", "lanegrid", "config.toml"), nil
}

// Load reads path on top of the defaults and validates the result.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeIO, err, "read config %s", path)
	}
	return Decode(data, filepath.Ext(path))
}

// LoadOrDefault is Load, except that a missing file yields Default.
func LoadOrDefault(path string) (Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}

// Decode parses data in the format named by ext (".toml", ".yaml", ".yml").
func Decode(data []byte, ext string) (Config, error) {
	cfg := Default()
	switch strings.ToLower(ext) {
	case ".toml":
		md, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&cfg)
		if err != nil {
			return Config{}, errors.Wrap(errors.ErrCodeParse, err, "decode TOML config")
		}
		if keys := md.Undecoded(); len(keys) > 0 {
			return Config{}, errors.New(errors.ErrCodeInvalidInput, "unknown config key %q", keys[0].String())
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && err != io.EOF {
			return Config{}, errors.Wrap(errors.ErrCodeParse, err, "decode YAML config")
		}
	default:
		return Config{}, errors.New(errors.ErrCodeInvalidFmt, "unsupported config format %q", ext)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that cannot be used as given.
func (c Config) Validate() error {
	if utf8.RuneCountInString(c.Parse.Comma) != 1 {
		return errors.New(errors.ErrCodeInvalidInput, "parse.comma must be one character, got %q", c.Parse.Comma)
	}
	if c.Cache.TTL != "" {
		if _, err := time.ParseDuration(c.Cache.TTL); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "cache.ttl")
		}
	}
	switch c.Store.Backend {
	case session.BackendMemory, session.BackendFile, session.BackendRedis, session.BackendMongo, "":
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown store backend %q", c.Store.Backend)
	}
	return c.Layout.WithDefaults().Validate()
}

// RowOptions converts the parse section for the rows package.
func (c Config) RowOptions() rows.Options {
	comma, _ := utf8.DecodeRuneInString(c.Parse.Comma)
	return rows.Options{
		Comma:           comma,
		MultiDelimiters: c.Parse.MultiDelimiters,
		ActionPrefix:    c.Parse.ActionPrefix,
		HeaderScanRows:  c.Parse.HeaderScanRows,
		Sheet:           c.Parse.Sheet,
	}
}

// CacheTTL returns the parsed cache TTL; zero means no expiry.
func (c Config) CacheTTL() time.Duration {
	d, _ := time.ParseDuration(c.Cache.TTL)
	return d
}

// CacheDir returns the artifact cache directory.
func (c Config) CacheDir() (string, error) {
	if c.Cache.Dir != "" {
		return c.Cache.Dir, nil
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeIO, err, "get cache dir")
	}
	return filepath.Join(dir, "lanegrid"), nil
}

// Encode writes c as TOML.
func (c Config) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode config")
	}
	return buf.Bytes(), nil
}
