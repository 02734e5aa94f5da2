// Package config loads and validates adminlog.yaml.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/modoterra/adminlog/pkg/core"
)

// Config represents an adminlog.yaml (or adminlog.toml) file. The client
// section configures the console, the daemon section configures adminlogd.
type Config struct {
	Version  int          `yaml:"version" toml:"version"`
	Client   ClientConfig `yaml:"client,omitempty" toml:"client,omitempty"`
	Daemon   DaemonConfig `yaml:"daemon,omitempty" toml:"daemon,omitempty"`
	FilePath string       `yaml:"-" toml:"-"`
}

// ClientConfig points the console at a module's admin socket.
type ClientConfig struct {
	URL           string            `yaml:"url" toml:"url"`                                       // ws:// or wss:// admin endpoint
	Origin        string            `yaml:"origin" toml:"origin"`                                 // scheme://host[:port]
	ServicePrefix string            `yaml:"service_prefix" toml:"service_prefix"`                 // e.g. /svc
	Locale        string            `yaml:"locale,omitempty" toml:"locale,omitempty"`             // defaults to $LANG
	PageSize      int               `yaml:"page_size,omitempty" toml:"page_size,omitempty"`       // rows per page
	AutoRefresh   string            `yaml:"auto_refresh,omitempty" toml:"auto_refresh,omitempty"` // cron spec, e.g. "@every 30s"
	Headers       map[string]string `yaml:"headers,omitempty" toml:"headers,omitempty"`           // extra handshake headers
}

// DaemonConfig configures the admin protocol backend.
type DaemonConfig struct {
	Listen        string       `yaml:"listen" toml:"listen"`
	ServicePrefix string       `yaml:"service_prefix" toml:"service_prefix"`
	AdminPath     string       `yaml:"admin_path" toml:"admin_path"`
	Module        ModuleConfig `yaml:"module" toml:"module"`
	Records       string       `yaml:"records" toml:"records"`
	Retention     string       `yaml:"retention,omitempty" toml:"retention,omitempty"`   // Go duration, default 8760h
	L10nDir       string       `yaml:"l10n_dir,omitempty" toml:"l10n_dir,omitempty"`     // directory of <locale>.json files
	RateLimit     float64      `yaml:"rate_limit,omitempty" toml:"rate_limit,omitempty"` // commands per second per session, 0 = unlimited
	RateBurst     int          `yaml:"rate_burst,omitempty" toml:"rate_burst,omitempty"`
	Watch         string       `yaml:"watch,omitempty" toml:"watch,omitempty"` // poll interval for pushing changed records, "" disables
}

// ModuleConfig is the identity the daemon reports in moduleInfo.
type ModuleConfig struct {
	Name            string `yaml:"name" toml:"name"`
	Version         string `yaml:"version,omitempty" toml:"version,omitempty"`
	Summary         string `yaml:"summary,omitempty" toml:"summary,omitempty"`
	ServiceURI      string `yaml:"service_uri" toml:"service_uri"`
	AdminServiceURI string `yaml:"admin_service_uri" toml:"admin_service_uri"`
}

// DefaultRetention keeps one year of records.
const DefaultRetention = 365 * 24 * time.Hour

// Configured reports whether the section has been filled in.
func (c ClientConfig) Configured() bool { return c.URL != "" }

// Configured reports whether the section has been filled in.
func (d DaemonConfig) Configured() bool { return d.Listen != "" }

// ModuleInfo converts the module section to its wire form.
func (m ModuleConfig) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		Name:            m.Name,
		Version:         m.Version,
		Summary:         m.Summary,
		ServiceURI:      m.ServiceURI,
		AdminServiceURI: m.AdminServiceURI,
	}
}

// RetentionDuration parses Retention, falling back to DefaultRetention.
func (d DaemonConfig) RetentionDuration() (time.Duration, error) {
	if d.Retention == "" {
		return DefaultRetention, nil
	}
	dur, err := time.ParseDuration(d.Retention)
	if err != nil {
		return 0, fmt.Errorf("retention: %w", err)
	}
	return dur, nil
}

// WatchInterval parses Watch. Zero means records are not watched.
func (d DaemonConfig) WatchInterval() (time.Duration, error) {
	if d.Watch == "" {
		return 0, nil
	}
	dur, err := time.ParseDuration(d.Watch)
	if err != nil {
		return 0, fmt.Errorf("watch: %w", err)
	}
	return dur, nil
}

// Load reads and parses a config file. Files ending in .toml are decoded as
// TOML, anything else as YAML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	parse := Parse
	if isTOML(path) {
		parse = ParseTOML
	}
	c, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	c.FilePath = path
	return c, nil
}

// Parse decodes YAML and expands ${origin}, ${prefix} and environment
// variables in the string fields.
func Parse(data []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	interpolate(&c)
	return &c, nil
}

// ParseTOML is Parse for TOML input.
func ParseTOML(data []byte) (*Config, error) {
	var c Config
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	interpolate(&c)
	return &c, nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// placeholder matches ${name}. A bare $ is literal.
var placeholder = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

func expand(s string, lookup func(string) string) string {
	return placeholder.ReplaceAllStringFunc(s, func(m string) string {
		return lookup(m[2 : len(m)-1])
	})
}

func interpolate(c *Config) {
	client := func(s string) string {
		return expand(s, func(key string) string {
			switch key {
			case "origin":
				return c.Client.Origin
			case "prefix":
				return c.Client.ServicePrefix
			default:
				return os.Getenv(key)
			}
		})
	}
	c.Client.URL = client(c.Client.URL)
	c.Client.Locale = client(c.Client.Locale)
	for k, v := range c.Client.Headers {
		c.Client.Headers[k] = client(v)
	}

	daemon := func(s string) string {
		return expand(s, func(key string) string {
			if key == "prefix" {
				return c.Daemon.ServicePrefix
			}
			return os.Getenv(key)
		})
	}
	c.Daemon.AdminPath = daemon(c.Daemon.AdminPath)
	c.Daemon.Records = daemon(c.Daemon.Records)
	c.Daemon.L10nDir = daemon(c.Daemon.L10nDir)
}

// Save writes the config to path, as TOML when path ends in .toml.
func Save(c *Config, path string) error {
	marshal := yaml.Marshal
	if isTOML(path) {
		marshal = toml.Marshal
	}
	data, err := marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Default returns a config for a module served from localhost.
func Default() *Config {
	return &Config{
		Version: 1,
		Client: ClientConfig{
			URL:           "ws://localhost:9980${prefix}/admin/ws",
			Origin:        "http://localhost:9980",
			ServicePrefix: "/svc",
			PageSize:      10,
		},
		Daemon: DaemonConfig{
			Listen:        "127.0.0.1:9980",
			ServicePrefix: "/svc",
			AdminPath:     "${prefix}/admin/ws",
			Module: ModuleConfig{
				Name:            "mergeodf",
				Summary:         "ODF report generator",
				ServiceURI:      "/lool/mergeodf/",
				AdminServiceURI: "/lool/mergeodf/admin/",
			},
			Records:   "/var/lib/adminlog/records.jsonl",
			Retention: "8760h",
			RateLimit: 5,
			RateBurst: 10,
		},
	}
}
