// Package pipeline runs a CellDL document through the whole engine.
//
// This package implements the parse → resolve → route → render pipeline
// used by every command of the CLI and by the render server. By
// centralizing it, caching, logging and option defaults behave the same
// everywhere.
//
// # Architecture
//
// The pipeline consists of four stages:
//
//  1. Parse: read the CellDL XML into a diagram
//  2. Resolve: compute pixel positions and compartment sizes
//  3. Route: compute the point sequences of every flux line
//  4. Render: serialize to SVG, JSON or Graphviz DOT
//
// Rendered artifacts are cached by the SHA-256 of the document and the
// options that affect them, so an unchanged document is not laid out twice.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, doc, pipeline.Options{
//	    Formats: []string{"svg", "json"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg := result.Artifacts["svg"]
//
// [Runner.Layout] stops after routing, for callers that want the geometry
// rather than a serialization.
package pipeline

import (
	"io"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/celldl/pkg/cache"
	"github.com/matzehuels/celldl/pkg/diagram"
	"github.com/matzehuels/celldl/pkg/document"
	"github.com/matzehuels/celldl/pkg/errors"
	"github.com/matzehuels/celldl/pkg/resolve"
	"github.com/matzehuels/celldl/pkg/route"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and Server
// =============================================================================

const (
	// DefaultWidth is the diagram width when neither the document nor the
	// options give one.
	DefaultWidth = document.DefaultWidth

	// DefaultHeight is the diagram height when neither the document nor
	// the options give one.
	DefaultHeight = document.DefaultHeight

	// DefaultPotentialOffset is the default gap between a potential and
	// its quantity.
	DefaultPotentialOffset = resolve.DefaultPotentialOffset

	// DefaultFlowOffset is the default distance of a flow from the element
	// it is placed against.
	DefaultFlowOffset = resolve.DefaultFlowOffset

	// DefaultTransporterWidth is the default spread of lines through one
	// transporter.
	DefaultTransporterWidth = route.DefaultTransporterWidth

	// DefaultLineSpacing is the default gap between parallel flux lines.
	DefaultLineSpacing = route.DefaultLineSpacing

	// DefaultWaypointGap is the default distance of a transporter waypoint
	// past the compartment boundary.
	DefaultWaypointGap = route.DefaultWaypointGap

	// DefaultNodeRadius is the default glyph radius of potentials and flows.
	DefaultNodeRadius = route.DefaultNodeRadius
)

// Format constants for output formats.
const (
	FormatSVG  = "svg"
	FormatJSON = "json"
	FormatDOT  = "dot"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatSVG:  true,
	FormatJSON: true,
	FormatDOT:  true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for the pipeline.
// This struct supports JSON serialization for server requests.
type Options struct {
	// Diagram options. Document attributes take precedence.
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`

	// Resolve options
	PotentialOffset float64 `json:"potential_offset,omitempty"`
	FlowOffset      float64 `json:"flow_offset,omitempty"`

	// Route options
	TransporterWidth float64 `json:"transporter_width,omitempty"`
	LineSpacing      float64 `json:"line_spacing,omitempty"`
	WaypointGap      float64 `json:"waypoint_gap,omitempty"`
	NodeRadius       float64 `json:"node_radius,omitempty"`

	// Render options
	Formats  []string `json:"formats,omitempty"`
	NoLabels bool     `json:"no_labels,omitempty"`
	Refresh  bool     `json:"refresh,omitempty"` // Bypass cached artifacts

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// DocHash is the SHA-256 of the document bytes.
	DocHash string

	// Diagram, Layout and Routes are nil when every artifact came from
	// the cache.
	Diagram *diagram.Diagram
	Layout  *resolve.Layout
	Routes  *route.Routes

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	ElementCount    int
	PositionedCount int
	LineCount       int
	ParseTime       time.Duration
	ResolveTime     time.Duration
	RouteTime       time.Duration
	RenderTime      time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	RenderHit bool // Whether all artifacts came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidInput, "invalid format: %q (must be one of: %s)",
			format, strings.Join(formatNames(), ", "))
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

func formatNames() []string {
	names := make([]string, 0, len(ValidFormats))
	for f := range ValidFormats {
		names = append(names, f)
	}
	slices.Sort(names)
	return names
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks the options and applies defaults.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	for name, v := range map[string]float64{
		"width":             o.Width,
		"height":            o.Height,
		"potential_offset":  o.PotentialOffset,
		"flow_offset":       o.FlowOffset,
		"transporter_width": o.TransporterWidth,
		"line_spacing":      o.LineSpacing,
		"waypoint_gap":      o.WaypointGap,
		"node_radius":       o.NodeRadius,
	} {
		if v < 0 {
			return errors.New(errors.ErrCodeInvalidInput, "%s must not be negative, got %g", name, v)
		}
	}
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	o.SetDefaults()
	o.validated = true
	return nil
}

// SetDefaults fills zero fields with their defaults.
func (o *Options) SetDefaults() {
	if o.Width == 0 {
		o.Width = DefaultWidth
	}
	if o.Height == 0 {
		o.Height = DefaultHeight
	}
	if o.PotentialOffset == 0 {
		o.PotentialOffset = DefaultPotentialOffset
	}
	if o.FlowOffset == 0 {
		o.FlowOffset = DefaultFlowOffset
	}
	if o.TransporterWidth == 0 {
		o.TransporterWidth = DefaultTransporterWidth
	}
	if o.LineSpacing == 0 {
		o.LineSpacing = DefaultLineSpacing
	}
	if o.WaypointGap == 0 {
		o.WaypointGap = DefaultWaypointGap
	}
	if o.NodeRadius == 0 {
		o.NodeRadius = DefaultNodeRadius
	}
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// DocumentOptions returns the options for [document.Parse].
func (o *Options) DocumentOptions() document.Options {
	return document.Options{Width: o.Width, Height: o.Height}
}

// ResolveOptions returns the options for [resolve.Resolve].
func (o *Options) ResolveOptions() resolve.Options {
	return resolve.Options{
		PotentialOffset: o.PotentialOffset,
		FlowOffset:      o.FlowOffset,
		Logger:          o.Logger,
	}
}

// RouteOptions returns the options for [route.Route].
func (o *Options) RouteOptions() route.Options {
	return route.Options{
		TransporterWidth: o.TransporterWidth,
		LineSpacing:      o.LineSpacing,
		WaypointGap:      o.WaypointGap,
		NodeRadius:       o.NodeRadius,
		Logger:           o.Logger,
	}
}

// ArtifactKeyOpts returns cache key options for artifact rendering.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{
		Format:           format,
		Width:            o.Width,
		Height:           o.Height,
		PotentialOffset:  o.PotentialOffset,
		FlowOffset:       o.FlowOffset,
		TransporterWidth: o.TransporterWidth,
		LineSpacing:      o.LineSpacing,
		WaypointGap:      o.WaypointGap,
		NodeRadius:       o.NodeRadius,
		Labels:           !o.NoLabels,
	}
}
