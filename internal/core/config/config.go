package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aevon-lab/activity-archive/internal/archive"
	"github.com/aevon-lab/activity-archive/internal/core/window"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "ARCHIVE_"

// Source types accepted by source.type.
const (
	SourcePostgres = "postgres"
	SourceHTTP     = "http"
	SourceFile     = "file"
)

// Config represents the top-level configuration of the archive service.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Source    SourceConfig    `koanf:"source"`
	Archive   ArchiveConfig   `koanf:"archive"`
	Ingestion IngestionConfig `koanf:"ingestion"`
}

type ServerConfig struct {
	Port          int    `koanf:"port"`
	Host          string `koanf:"host"`
	MaxBodySizeMB int    `koanf:"max_body_size_mb"`
	Mode          string `koanf:"mode"` // debug | release
}

type DatabaseConfig struct {
	DSN          string `koanf:"dsn"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
	AutoMigrate  bool   `koanf:"auto_migrate"`
}

// SourceConfig selects where archive windows are fetched from.
type SourceConfig struct {
	Type      string            `koanf:"type"`
	URL       string            `koanf:"url"`  // http
	Path      string            `koanf:"path"` // file
	Delay     string            `koanf:"delay"`
	Timeout   string            `koanf:"timeout"`
	RateLimit float64           `koanf:"rate_limit"` // requests per second
	Burst     int               `koanf:"burst"`
	Headers   map[string]string `koanf:"headers"`
}

type ArchiveConfig struct {
	Epoch             string   `koanf:"epoch"`
	CoarseStep        string   `koanf:"coarse_step"`
	FastSteps         []string `koanf:"fast_steps"`
	Threshold         int      `koanf:"threshold"`
	RecentHorizon     string   `koanf:"recent_horizon"`
	CoarseConcurrency int      `koanf:"coarse_concurrency"`
	PageSize          int      `koanf:"page_size"`
	Kinds             []string `koanf:"kinds"`
	SubjectIDs        []int64  `koanf:"subject_ids"`
	LoadOnStart       bool     `koanf:"load_on_start"`
}

type IngestionConfig struct {
	Enabled   bool `koanf:"enabled"`
	ListLimit int  `koanf:"list_limit"`
}

// NeedsDatabase reports whether any enabled component reads or writes Postgres.
func (c *Config) NeedsDatabase() bool {
	return c.Source.Type == SourcePostgres || c.Ingestion.Enabled
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d (must be 1-65535)", c.Server.Port)
	}
	if strings.TrimSpace(c.Server.Host) == "" {
		return fmt.Errorf("server.host is required")
	}
	if c.Server.MaxBodySizeMB <= 0 {
		return fmt.Errorf("server.max_body_size_mb must be > 0")
	}
	if c.Server.Mode != "debug" && c.Server.Mode != "release" {
		return fmt.Errorf("invalid server.mode %q (must be debug or release)", c.Server.Mode)
	}

	if c.NeedsDatabase() {
		if strings.TrimSpace(c.Database.DSN) == "" {
			return fmt.Errorf("database.dsn is required")
		}
		if c.Database.MaxOpenConns <= 0 {
			return fmt.Errorf("database.max_open_conns must be > 0")
		}
		if c.Database.MaxIdleConns <= 0 {
			return fmt.Errorf("database.max_idle_conns must be > 0")
		}
	}

	switch c.Source.Type {
	case SourcePostgres:
	case SourceHTTP:
		u, err := url.Parse(c.Source.URL)
		if err != nil || u.Host == "" {
			return fmt.Errorf("source.url %q must be an absolute http(s) URL", c.Source.URL)
		}
	case SourceFile:
		if strings.TrimSpace(c.Source.Path) == "" {
			return fmt.Errorf("source.path is required for source.type file")
		}
	default:
		return fmt.Errorf("unsupported source.type %q (must be postgres, http or file)", c.Source.Type)
	}
	if _, err := parseOptionalDuration("source.timeout", c.Source.Timeout); err != nil {
		return err
	}
	if _, err := parseOptionalDuration("source.delay", c.Source.Delay); err != nil {
		return err
	}
	if c.Source.RateLimit < 0 {
		return fmt.Errorf("source.rate_limit must be >= 0")
	}

	if _, err := c.Archive.Options(); err != nil {
		return err
	}
	if c.Ingestion.ListLimit <= 0 {
		return fmt.Errorf("ingestion.list_limit must be > 0")
	}
	return nil
}

// Options converts the archive section into controller options.
func (c ArchiveConfig) Options() (archive.Options, error) {
	opts := archive.Options{
		Threshold:         c.Threshold,
		CoarseConcurrency: c.CoarseConcurrency,
		PageSize:          c.PageSize,
		FastSteps:         []window.Step{},
	}

	epoch, err := time.Parse(time.RFC3339, c.Epoch)
	if err != nil {
		return opts, fmt.Errorf("invalid archive.epoch %q: %w", c.Epoch, err)
	}
	opts.Epoch = epoch.UTC()

	if opts.CoarseStep, err = window.ParseStep(c.CoarseStep); err != nil {
		return opts, fmt.Errorf("invalid archive.coarse_step: %w", err)
	}
	for _, s := range c.FastSteps {
		step, err := window.ParseStep(strings.TrimSpace(s))
		if err != nil {
			return opts, fmt.Errorf("invalid archive.fast_steps: %w", err)
		}
		opts.FastSteps = append(opts.FastSteps, step)
	}

	if opts.RecentHorizon, err = parseOptionalDuration("archive.recent_horizon", c.RecentHorizon); err != nil {
		return opts, err
	}
	if opts.RecentHorizon < 0 {
		return opts, fmt.Errorf("archive.recent_horizon must be >= 0")
	}
	if c.Threshold <= 0 {
		return opts, fmt.Errorf("archive.threshold must be > 0")
	}
	if c.CoarseConcurrency <= 0 {
		return opts, fmt.Errorf("archive.coarse_concurrency must be > 0")
	}
	if c.PageSize <= 0 {
		return opts, fmt.Errorf("archive.page_size must be > 0")
	}
	for _, id := range c.SubjectIDs {
		if id <= 0 {
			return opts, fmt.Errorf("archive.subject_ids must be positive, got %d", id)
		}
	}
	return opts, nil
}

func (c SourceConfig) TimeoutDuration() time.Duration {
	d, _ := parseOptionalDuration("source.timeout", c.Timeout)
	return d
}

func (c SourceConfig) DelayDuration() time.Duration {
	d, _ := parseOptionalDuration("source.delay", c.Delay)
	return d
}

func parseOptionalDuration(key, raw string) (time.Duration, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}

// listKeys are split on commas when they come from the environment.
var listKeys = map[string]bool{
	"archive.fast_steps":  true,
	"archive.kinds":       true,
	"archive.subject_ids": true,
}

// Load parses config from defaults, the optional YAML file and ARCHIVE_*
// environment variables, in that order, then validates it.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"server.port":                8080,
		"server.host":                "0.0.0.0",
		"server.max_body_size_mb":    1,
		"server.mode":                "release",
		"database.dsn":               "",
		"database.max_open_conns":    25,
		"database.max_idle_conns":    25,
		"database.auto_migrate":      true,
		"source.type":                SourcePostgres,
		"source.timeout":             "30s",
		"source.rate_limit":          10.0,
		"source.burst":               5,
		"archive.epoch":              "2015-01-01T00:00:00Z",
		"archive.coarse_step":        "1y",
		"archive.fast_steps":         []string{"1mo", "1w"},
		"archive.threshold":          archive.DefaultThreshold,
		"archive.recent_horizon":     "0s",
		"archive.coarse_concurrency": 1,
		"archive.page_size":          archive.DefaultPageSize,
		"archive.load_on_start":      false,
		"ingestion.enabled":          true,
		"ingestion.list_limit":       100,
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// ARCHIVE_SOURCE__RATE_LIMIT=2 overrides source.rate_limit
	if err := k.Load(env.ProviderWithValue(envPrefix, ".", func(s, v string) (string, interface{}) {
		key := strings.Replace(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".", -1)
		if listKeys[key] {
			return key, strings.Split(v, ",")
		}
		return key, v
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
