package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/celldl/pkg/cache"
	"github.com/matzehuels/celldl/pkg/diagram"
	"github.com/matzehuels/celldl/pkg/document"
	"github.com/matzehuels/celldl/pkg/observability"
	"github.com/matzehuels/celldl/pkg/resolve"
	"github.com/matzehuels/celldl/pkg/route"
)

// Runner encapsulates pipeline execution with caching.
// Both the CLI and the render server use it.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete parse → resolve → route → render pipeline.
// When every requested artifact is cached the document is not laid out
// and the result carries artifacts only.
func (r *Runner) Execute(ctx context.Context, doc []byte, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	docHash := cache.Hash(doc)

	if !opts.Refresh {
		if artifacts, ok := r.cached(ctx, docHash, opts); ok {
			r.Logger.Info("rendered outputs from cache", "formats", opts.Formats)
			return &Result{
				DocHash:   docHash,
				Artifacts: artifacts,
				CacheInfo: CacheInfo{RenderHit: true},
			}, nil
		}
	}

	result, err := r.layout(ctx, doc, docHash, opts)
	if err != nil {
		return nil, err
	}

	// Stage 4: Render
	hooks := observability.Pipeline()
	hooks.OnRenderStart(ctx, opts.Formats)
	renderStart := time.Now()
	artifacts, err := Render(result.Diagram, result.Layout, result.Routes, opts)
	result.Stats.RenderTime = time.Since(renderStart)
	hooks.OnRenderComplete(ctx, opts.Formats, result.Stats.RenderTime, err)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"duration", result.Stats.RenderTime)

	for format, data := range artifacts {
		key := r.Keyer.ArtifactKey(docHash, opts.ArtifactKeyOpts(format))
		if err := r.Cache.Set(ctx, key, data, cache.TTLArtifact); err != nil {
			r.Logger.Warn("cache write failed", "format", format, "err", err)
			continue
		}
		observability.Cache().OnCacheSet(ctx, "artifact", len(data))
	}
	return result, nil
}

// Layout parses, resolves and routes a document without rendering it.
func (r *Runner) Layout(ctx context.Context, doc []byte, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	return r.layout(ctx, doc, cache.Hash(doc), opts)
}

func (r *Runner) layout(ctx context.Context, doc []byte, docHash string, opts Options) (*Result, error) {
	hooks := observability.Pipeline()
	result := &Result{
		DocHash:   docHash,
		Artifacts: make(map[string][]byte),
	}

	// Stage 1: Parse
	hooks.OnParseStart(ctx, docHash)
	parseStart := time.Now()
	d, err := document.Parse(doc, opts.DocumentOptions())
	result.Stats.ParseTime = time.Since(parseStart)
	if err != nil {
		hooks.OnParseComplete(ctx, docHash, 0, result.Stats.ParseTime, err)
		return nil, fmt.Errorf("parse: %w", err)
	}
	result.Diagram = d
	result.Stats.ElementCount = len(d.Elements())
	hooks.OnParseComplete(ctx, docHash, result.Stats.ElementCount, result.Stats.ParseTime, nil)

	r.Logger.Info("parsed document",
		"elements", result.Stats.ElementCount,
		"size", fmt.Sprintf("%gx%g", d.Width, d.Height),
		"duration", result.Stats.ParseTime)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Stage 2: Resolve
	hooks.OnResolveStart(ctx, result.Stats.ElementCount)
	resolveStart := time.Now()
	l, err := resolve.Resolve(d, opts.ResolveOptions())
	result.Stats.ResolveTime = time.Since(resolveStart)
	hooks.OnResolveComplete(ctx, result.Stats.ResolveTime, err)
	if err != nil {
		return nil, fmt.Errorf("resolve: %w", err)
	}
	result.Layout = l
	result.Stats.PositionedCount = len(l.Order)

	r.Logger.Info("resolved positions",
		"positioned", result.Stats.PositionedCount,
		"compartments", len(l.Sizes)-1,
		"duration", result.Stats.ResolveTime)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Stage 3: Route
	fluxes := len(d.OfKind(diagram.KindFlux))
	hooks.OnRouteStart(ctx, fluxes)
	routeStart := time.Now()
	routes, err := route.Route(d, l, opts.RouteOptions())
	result.Stats.RouteTime = time.Since(routeStart)
	if err != nil {
		hooks.OnRouteComplete(ctx, 0, result.Stats.RouteTime, err)
		return nil, fmt.Errorf("route: %w", err)
	}
	result.Routes = routes
	result.Stats.LineCount = len(routes.Lines)
	hooks.OnRouteComplete(ctx, result.Stats.LineCount, result.Stats.RouteTime, nil)

	r.Logger.Info("routed bond graph",
		"fluxes", fluxes,
		"lines", result.Stats.LineCount,
		"duration", result.Stats.RouteTime)

	return result, nil
}

// cached returns every requested artifact from the cache, or false if any
// is missing.
func (r *Runner) cached(ctx context.Context, docHash string, opts Options) (map[string][]byte, bool) {
	artifacts := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		key := r.Keyer.ArtifactKey(docHash, opts.ArtifactKeyOpts(format))
		data, hit, err := r.Cache.Get(ctx, key)
		if err != nil {
			r.Logger.Warn("cache read failed", "format", format, "err", err)
		}
		if err != nil || !hit {
			observability.Cache().OnCacheMiss(ctx, "artifact")
			return nil, false
		}
		observability.Cache().OnCacheHit(ctx, "artifact")
		artifacts[format] = data
	}
	return artifacts, true
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
