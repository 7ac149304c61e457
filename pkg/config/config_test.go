package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/matzehuels/celldl/pkg/cache"
	"github.com/matzehuels/celldl/pkg/errors"
	"github.com/matzehuels/celldl/pkg/pipeline"
)

const sample = `
[diagram]
width = 800

[layout]
flow_offset = 30
node_radius = 6

[render]
formats = ["svg", "json"]
labels = false

[cache]
backend = "none"
prefix = "lab:"

[serve]
addr = ":9000"
timeout = "5s"
`

func TestParse(t *testing.T) {
	cfg := Default()
	if err := Parse(sample, &cfg); err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	want := Default()
	want.Diagram.Width = 800
	want.Layout.FlowOffset = 30
	want.Layout.NodeRadius = 6
	labels := false
	want.Render = RenderConfig{Formats: []string{"svg", "json"}, Labels: &labels}
	want.Cache.Backend = BackendNone
	want.Cache.Prefix = "lab:"
	want.Serve.Addr = ":9000"
	want.Serve.Timeout = 5 * time.Second
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"syntax", "[diagram\nwidth = 1"},
		{"unknown key", "[diagram]\ndepth = 3"},
		{"unknown backend", "[cache]\nbackend = \"memcached\""},
		{"redis without addr", "[cache]\nbackend = \"redis\""},
		{"bad format", "[render]\nformats = [\"png\"]"},
		{"negative body", "[serve]\nmax_body = -1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			if err := Parse(tt.text, &cfg); !errors.Is(err, errors.ErrCodeInvalidInput) {
				t.Errorf("Parse() error = %v, want invalid input", err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.toml")
	if err := os.WriteFile(path, []byte(sample), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Diagram.Width != 800 {
		t.Errorf("Width = %v, want 800", cfg.Diagram.Width)
	}

	if _, err := Load(filepath.Join(dir, "missing.toml")); err == nil {
		t.Error("Load() of a missing explicit file should fail")
	}
}

func TestLoadDefaultFileAbsent(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("Load(\"\") mismatch (-want +got):\n%s", diff)
	}
}

func TestPipelineOptions(t *testing.T) {
	cfg := Default()
	if err := Parse(sample, &cfg); err != nil {
		t.Fatal(err)
	}
	got := cfg.PipelineOptions()
	want := pipeline.Options{
		Width:      800,
		FlowOffset: 30,
		NodeRadius: 6,
		Formats:    []string{"svg", "json"},
		NoLabels:   true,
	}
	if diff := cmp.Diff(want, got, cmpopts.IgnoreUnexported(pipeline.Options{}), cmpopts.IgnoreFields(pipeline.Options{}, "Logger")); diff != "" {
		t.Errorf("PipelineOptions() mismatch (-want +got):\n%s", diff)
	}
}

func TestCacheDir(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	cfg := Config{Cache: CacheConfig{Dir: "~/artifacts"}}
	dir, err := cfg.CacheDir()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(home, "artifacts"); dir != want {
		t.Errorf("CacheDir() = %q, want %q", dir, want)
	}
}

func TestOpenCache(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	cfg := Config{Cache: CacheConfig{Backend: BackendFile, Dir: dir, Prefix: "p:"}}
	c, keyer, err := cfg.OpenCache(ctx, false)
	if err != nil {
		t.Fatalf("OpenCache() error: %v", err)
	}
	fc, ok := c.(*cache.FileCache)
	if !ok || fc.Dir() != dir {
		t.Errorf("OpenCache() = %T, want file cache in %s", c, dir)
	}
	if key := keyer.ArtifactKey("h", cache.ArtifactKeyOpts{}); key[:2] != "p:" {
		t.Errorf("keyer not scoped: %s", key)
	}

	c, _, err = cfg.OpenCache(ctx, true)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.(cache.NullCache); !ok {
		t.Errorf("disabled cache = %T, want NullCache", c)
	}
}
