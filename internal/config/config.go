// Package config loads the formwizard configuration from an optional YAML
// file overlaid with FORMWIZARD_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formwizard/internal/logging"
)

// EnvPrefix prefixes every environment override: server.addr is read from
// FORMWIZARD_SERVER_ADDR.
const EnvPrefix = "FORMWIZARD"

// Config is the full application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Session SessionConfig `mapstructure:"session" yaml:"session"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
	Forms   FormsConfig   `mapstructure:"forms" yaml:"forms"`
	Theme   ThemeConfig   `mapstructure:"theme" yaml:"theme"`
}

type ServerConfig struct {
	Addr          string        `mapstructure:"addr" yaml:"addr"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownGrace time.Duration `mapstructure:"shutdown_grace" yaml:"shutdown_grace"`
}

type SessionConfig struct {
	TTL           time.Duration `mapstructure:"ttl" yaml:"ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval" yaml:"sweep_interval"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// FormsConfig points at a directory of definitions replacing the embedded
// catalog, and at the locale used for labels.
type FormsConfig struct {
	Dir    string `mapstructure:"dir" yaml:"dir"`
	Locale string `mapstructure:"locale" yaml:"locale"`
}

// ThemeConfig mirrors a go-theme manifest reduced to what the HTML surface
// reads.
type ThemeConfig struct {
	Name       string            `mapstructure:"name" yaml:"name"`
	Variant    string            `mapstructure:"variant" yaml:"variant"`
	Stylesheet string            `mapstructure:"stylesheet" yaml:"stylesheet"`
	Tokens     map[string]string `mapstructure:"tokens" yaml:"tokens"`
}

func defaults() map[string]any {
	return map[string]any{
		"server": map[string]any{
			"addr":           ":8080",
			"read_timeout":   "10s",
			"write_timeout":  "10s",
			"shutdown_grace": "15s",
		},
		"session": map[string]any{
			"ttl":            "30m",
			"sweep_interval": "1m",
		},
		"log": map[string]any{
			"level":  "info",
			"format": "text",
		},
		"forms": map[string]any{
			"dir":    "",
			"locale": "",
		},
		"theme": map[string]any{
			"name":       "",
			"variant":    "",
			"stylesheet": "",
			"tokens":     map[string]any{},
		},
	}
}

// Default returns the configuration used when no file or environment
// overrides exist.
func Default() Config {
	cfg, err := decode(defaults())
	if err != nil {
		panic(fmt.Sprintf("config: defaults do not decode: %v", err))
	}
	return cfg
}

// Load reads path (skipped when empty) and applies environment overrides
// looked up through lookup (os.LookupEnv when nil).
func Load(path string, lookup func(string) (string, bool)) (Config, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	raw := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		var file map[string]any
		if err := yaml.Unmarshal(data, &file); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
		merge(raw, file)
	}

	applyEnv(raw, lookup)

	cfg, err := decode(raw)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Server.Addr) == "" {
		errs = append(errs, errors.New("config: server.addr is required"))
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, errors.New("config: session.ttl must be positive"))
	}
	if c.Session.SweepInterval <= 0 {
		errs = append(errs, errors.New("config: session.sweep_interval must be positive"))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("config: log.level: %w", err))
	}
	if _, err := logging.ParseFormat(c.Log.Format); err != nil {
		errs = append(errs, fmt.Errorf("config: log.format: %w", err))
	}
	return errors.Join(errs...)
}

func decode(raw map[string]any) (Config, error) {
	var cfg Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
	})
	if err != nil {
		return Config{}, fmt.Errorf("config: build decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	return cfg, nil
}

// merge copies src onto dst, descending into nested maps.
func merge(dst, src map[string]any) {
	for key, value := range src {
		nested, ok := value.(map[string]any)
		if existing, isMap := dst[key].(map[string]any); ok && isMap {
			merge(existing, nested)
			continue
		}
		dst[key] = value
	}
}

// applyEnv overrides every scalar leaf of raw from the environment. Map
// valued sections such as theme.tokens are left to the file.
func applyEnv(raw map[string]any, lookup func(string) (string, bool)) {
	for _, path := range leafPaths(raw, "") {
		key := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(path, ".", "_"))
		value, ok := lookup(key)
		if !ok {
			continue
		}
		setPath(raw, strings.Split(path, "."), value)
	}
}

func leafPaths(node map[string]any, prefix string) []string {
	var out []string
	for key, value := range node {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		if nested, ok := value.(map[string]any); ok {
			if len(nested) > 0 && path != "theme.tokens" {
				out = append(out, leafPaths(nested, path)...)
			}
			continue
		}
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}

func setPath(node map[string]any, segments []string, value string) {
	for _, segment := range segments[:len(segments)-1] {
		next, ok := node[segment].(map[string]any)
		if !ok {
			next = make(map[string]any)
			node[segment] = next
		}
		node = next
	}
	node[segments[len(segments)-1]] = value
}
