// Package config loads warden's YAML configuration file, grounded on the
// teacher's flag-driven defaults (executor/options.go, cmd/goru/run.go)
// restated as a declarative file so server/CLI/MCP entrypoints share one
// source of defaults instead of re-declaring flags three times.
package config

import (
	"os"
	"time"

	"github.com/goccy/go-yaml"
)

// Config is the top-level shape of a warden.yaml file. Every field has a
// sandbox.Options-compatible default; an absent or empty path means "use
// compiled-in defaults" rather than an error.
type Config struct {
	Origin       string        `yaml:"origin"`
	MaxMemoryMiB uint          `yaml:"maxMemoryMiB"`
	Timeout      time.Duration `yaml:"timeout"`
	Mounts       map[string]string `yaml:"mounts"`
	HTTP         HTTPConfig    `yaml:"http"`
	Server       ServerConfig  `yaml:"server"`
}

type HTTPConfig struct {
	Enabled      bool     `yaml:"enabled"`
	AllowedHosts []string `yaml:"allowedHosts"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
	// ReportDB, if set, mirrors every session's report into a SQLite
	// database at this path (report.OpenSQLiteSink) so runs survive process
	// exit. Empty means in-memory only.
	ReportDB string `yaml:"reportDB"`
}

func defaults() Config {
	return Config{
		Origin:       "file:///",
		MaxMemoryMiB: 64,
		Timeout:      10 * time.Second,
		Server:       ServerConfig{Addr: ":8787"},
	}
}

// Load reads and parses the YAML file at path, merging it over defaults().
// An empty path returns defaults() unchanged.
func Load(path string) (Config, error) {
	cfg := defaults()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
