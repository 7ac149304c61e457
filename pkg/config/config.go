// Package config loads celldl.toml.
//
// Every key is optional; missing keys keep the pipeline defaults. Flags
// given on the command line take precedence over the file, and size
// attributes on a document's root take precedence over both.
//
//	[diagram]
//	width = 1000
//	height = 600
//
//	[layout]
//	potential_offset = 20
//	flow_offset = 40
//	transporter_width = 40
//	line_spacing = 4
//	waypoint_gap = 10
//	node_radius = 10
//
//	[render]
//	formats = ["svg"]
//	labels = true
//	output_dir = "out"
//
//	[cache]
//	backend = "file"          # "file", "redis" or "none"
//	dir = "~/.cache/celldl"
//	prefix = ""
//
//	[cache.redis]
//	addr = "localhost:6379"
//
//	[serve]
//	addr = ":8080"
//	max_body = 1048576
//	timeout = "30s"
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/celldl/pkg/cache"
	"github.com/matzehuels/celldl/pkg/errors"
	"github.com/matzehuels/celldl/pkg/pipeline"
)

// DefaultFile is the config file looked up in the working directory.
const DefaultFile = "celldl.toml"

// Cache backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendNone  = "none"
)

// Config is the content of a config file.
type Config struct {
	Diagram DiagramConfig `toml:"diagram"`
	Layout  LayoutConfig  `toml:"layout"`
	Render  RenderConfig  `toml:"render"`
	Cache   CacheConfig   `toml:"cache"`
	Serve   ServeConfig   `toml:"serve"`
}

// DiagramConfig is the [diagram] section.
type DiagramConfig struct {
	Width  float64 `toml:"width"`
	Height float64 `toml:"height"`
}

// LayoutConfig is the [layout] section.
type LayoutConfig struct {
	PotentialOffset  float64 `toml:"potential_offset"`
	FlowOffset       float64 `toml:"flow_offset"`
	TransporterWidth float64 `toml:"transporter_width"`
	LineSpacing      float64 `toml:"line_spacing"`
	WaypointGap      float64 `toml:"waypoint_gap"`
	NodeRadius       float64 `toml:"node_radius"`
}

// RenderConfig is the [render] section.
type RenderConfig struct {
	Formats   []string `toml:"formats"`
	Labels    *bool    `toml:"labels"`
	OutputDir string   `toml:"output_dir"`
}

// CacheConfig is the [cache] section.
type CacheConfig struct {
	Backend string            `toml:"backend"`
	Dir     string            `toml:"dir"`
	Prefix  string            `toml:"prefix"`
	Redis   cache.RedisConfig `toml:"redis"`
}

// ServeConfig is the [serve] section.
type ServeConfig struct {
	Addr    string        `toml:"addr"`
	MaxBody int64         `toml:"max_body"`
	Timeout time.Duration `toml:"timeout"`
}

// Default values for the [serve] section.
const (
	DefaultAddr    = ":8080"
	DefaultMaxBody = 1 << 20
	DefaultTimeout = 30 * time.Second
)

// Default returns the configuration used when there is no file.
func Default() Config {
	return Config{
		Cache: CacheConfig{Backend: BackendFile},
		Serve: ServeConfig{Addr: DefaultAddr, MaxBody: DefaultMaxBody, Timeout: DefaultTimeout},
	}
}

// Load reads the config file at path. An empty path means [DefaultFile],
// which may be absent; an explicit path must exist. Unknown keys are an
// error.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) && !explicit {
		return cfg, nil
	}
	if err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidInput, err, "read config")
	}
	if err := Parse(string(data), &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML text over cfg and validates the result.
func Parse(text string, cfg *Config) error {
	md, err := toml.Decode(text, cfg)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return errors.New(errors.ErrCodeInvalidInput, "unknown config keys: %s", strings.Join(keys, ", "))
	}
	return cfg.Validate()
}

// Validate checks values that the pipeline does not check itself.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case "", BackendFile, BackendRedis, BackendNone:
	default:
		return errors.New(errors.ErrCodeInvalidInput, "cache.backend must be one of: file, redis, none; got %q", c.Cache.Backend)
	}
	if c.Cache.Backend == BackendRedis && c.Cache.Redis.Addr == "" {
		return errors.New(errors.ErrCodeInvalidInput, "cache.redis.addr is required for the redis backend")
	}
	if c.Serve.MaxBody < 0 || c.Serve.Timeout < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "serve.max_body and serve.timeout must not be negative")
	}
	return pipeline.ValidateFormats(c.Render.Formats)
}

// PipelineOptions returns the pipeline options the file describes.
func (c *Config) PipelineOptions() pipeline.Options {
	opts := pipeline.Options{
		Width:            c.Diagram.Width,
		Height:           c.Diagram.Height,
		PotentialOffset:  c.Layout.PotentialOffset,
		FlowOffset:       c.Layout.FlowOffset,
		TransporterWidth: c.Layout.TransporterWidth,
		LineSpacing:      c.Layout.LineSpacing,
		WaypointGap:      c.Layout.WaypointGap,
		NodeRadius:       c.Layout.NodeRadius,
		Formats:          slices.Clone(c.Render.Formats),
	}
	if c.Render.Labels != nil {
		opts.NoLabels = !*c.Render.Labels
	}
	return opts
}

// CacheDir returns the directory of the file backend, expanding a leading
// "~/".
func (c *Config) CacheDir() (string, error) {
	dir := c.Cache.Dir
	if dir == "" {
		return cache.DefaultDir()
	}
	if rest, ok := strings.CutPrefix(dir, "~/"); ok {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, rest)
	}
	return dir, nil
}

// OpenCache opens the configured cache backend and its keyer. disabled
// forces the null cache.
func (c *Config) OpenCache(ctx context.Context, disabled bool) (cache.Cache, cache.Keyer, error) {
	keyer := cache.NewDefaultKeyer()
	if c.Cache.Prefix != "" {
		keyer = cache.NewScopedKeyer(keyer, c.Cache.Prefix)
	}
	if disabled {
		return cache.NewNullCache(), keyer, nil
	}

	switch c.Cache.Backend {
	case BackendNone:
		return cache.NewNullCache(), keyer, nil
	case BackendRedis:
		rc, err := cache.NewRedisCache(ctx, c.Cache.Redis)
		if err != nil {
			return nil, nil, err
		}
		return rc, keyer, nil
	default:
		dir, err := c.CacheDir()
		if err != nil {
			return nil, nil, fmt.Errorf("cache dir: %w", err)
		}
		fc, err := cache.NewFileCache(dir)
		if err != nil {
			return nil, nil, fmt.Errorf("open cache: %w", err)
		}
		return fc, keyer, nil
	}
}
