// Package route draws the lines of a bond graph once every position has
// been resolved.
//
// Each flux becomes one polyline per destination potential and per unit of
// its count. A line leaves the source potential, follows its line-start
// segments, passes the flow node (and, for a transporter-bound flow, a
// waypoint just across the transporter's boundary), then follows its
// line-end segments into the destination. Lines sharing a transporter are
// spread along the boundary by [FanOut], and both ends are clipped at the
// edge of the node glyphs.
//
// Coordinates are SVG pixels: y grows downwards. Segment bearings are in
// degrees with 0 along +x and 90 pointing up.
package route

import (
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/matzehuels/celldl/pkg/diagram"
	"github.com/matzehuels/celldl/pkg/errors"
	"github.com/matzehuels/celldl/pkg/geom"
	"github.com/matzehuels/celldl/pkg/resolve"
)

const (
	// DefaultTransporterWidth is the pixel width across which lines through
	// one transporter are spread.
	DefaultTransporterWidth = 40.0

	// DefaultLineSpacing is the gap between the parallel lines of a flux
	// with a count above one.
	DefaultLineSpacing = 4.0

	// DefaultWaypointGap is how far past a transporter's boundary the
	// waypoint of a bound flow sits.
	DefaultWaypointGap = 10.0

	// DefaultNodeRadius is the radius of potential and flow glyphs, used
	// when the element has no `radius` style.
	DefaultNodeRadius = 10.0
)

// Options configures routing.
type Options struct {
	TransporterWidth float64 `json:"transporter_width,omitempty"`
	LineSpacing      float64 `json:"line_spacing,omitempty"`
	WaypointGap      float64 `json:"waypoint_gap,omitempty"`
	NodeRadius       float64 `json:"node_radius,omitempty"`

	// Logger receives debug output. Nil discards it.
	Logger *log.Logger `json:"-"`
}

// SetDefaults fills zero fields with their defaults.
func (o *Options) SetDefaults() {
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
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
}

// Line is one drawn stroke of a flux.
type Line struct {
	Flux   diagram.Handle // the flux drawn
	Target diagram.Handle // destination potential
	Index  int            // 0..count-1 among the parallel strokes
	Points []r2.Vec
}

// Routes is the result of routing a diagram.
type Routes struct {
	// Offsets holds the fan-out offset of every flux through a transporter.
	Offsets map[diagram.Handle]float64

	// Widths holds the pixel width of every transporter, the span its
	// fluxes are spread across.
	Widths map[diagram.Handle]float64

	Lines []Line
}

// LinesOf returns the lines drawn for flux h.
func (r *Routes) LinesOf(h diagram.Handle) []Line {
	var out []Line
	for _, ln := range r.Lines {
		if ln.Flux == h {
			out = append(out, ln)
		}
	}
	return out
}

// Route computes the lines of every flux of d. Any line that cannot be
// computed fails the whole call with an ErrCodeGeometry error.
func Route(d *diagram.Diagram, l *resolve.Layout, opts Options) (*Routes, error) {
	opts.SetDefaults()

	offsets, err := FanOut(d, l, opts)
	if err != nil {
		return nil, err
	}
	widths := make(map[diagram.Handle]float64)
	for _, tr := range d.OfKind(diagram.KindTransporter) {
		if widths[tr.Handle], err = TransporterWidth(tr, l, opts); err != nil {
			return nil, err
		}
	}
	r := &router{diagram: d, layout: l, opts: opts, offsets: offsets}

	routes := &Routes{Offsets: offsets, Widths: widths}
	for _, flux := range d.OfKind(diagram.KindFlux) {
		lines, err := r.flux(flux)
		if err != nil {
			return nil, err
		}
		routes.Lines = append(routes.Lines, lines...)
	}
	opts.Logger.Debug("routed", "fluxes", len(d.OfKind(diagram.KindFlux)), "lines", len(routes.Lines))
	return routes, nil
}

type router struct {
	diagram *diagram.Diagram
	layout  *resolve.Layout
	opts    Options
	offsets map[diagram.Handle]float64
}

func (r *router) coord(e *diagram.Element, h diagram.Handle) (r2.Vec, error) {
	pts, err := coords(r.diagram, r.layout, e, []diagram.Handle{h})
	if err != nil {
		return r2.Vec{}, err
	}
	return pts[0], nil
}

func (r *router) flux(e *diagram.Element) ([]Line, error) {
	src, err := r.coord(e, e.From)
	if err != nil {
		return nil, err
	}
	middle, err := r.middle(e, src)
	if err != nil {
		return nil, err
	}
	start, err := r.segments(e, src, e.LineStart)
	if err != nil {
		return nil, err
	}

	var lines []Line
	for _, to := range e.To {
		dst, err := r.coord(e, to)
		if err != nil {
			return nil, err
		}
		end, err := r.segments(e, dst, e.LineEnd)
		if err != nil {
			return nil, err
		}

		path := make([]r2.Vec, 0, len(start)+len(middle)+len(end)+2)
		path = append(path, src)
		path = append(path, start...)
		path = append(path, middle...)
		for i := len(end) - 1; i >= 0; i-- {
			path = append(path, end[i])
		}
		path = append(path, dst)

		for i, off := range strands(e.Count, r.opts.LineSpacing) {
			pts := geom.Trim(geom.Offset(path, off), r.radius(e.From), r.radius(to))
			lines = append(lines, Line{Flux: e.Handle, Target: to, Index: i, Points: pts})
		}
	}
	return lines, nil
}

// middle returns the points a flux passes around its flow node, with the
// flux's fan-out offset applied.
func (r *router) middle(e *diagram.Element, src r2.Vec) ([]r2.Vec, error) {
	d := r.diagram
	flow := d.Element(e.Flow)
	fp, err := r.coord(e, flow.Handle)
	if err != nil {
		return nil, err
	}
	if flow.Transporter == diagram.None {
		return []r2.Vec{fp}, nil
	}

	tr := d.Element(flow.Transporter)
	tp, err := r.coord(e, tr.Handle)
	if err != nil {
		return nil, err
	}
	bnd := tr.Position.Boundary
	normal, tangent := bnd.Side.Normal(), bnd.Side.Tangent()

	flowSide := side(normal, tp, fp)
	if flowSide == 0 {
		return nil, errors.New(errors.ErrCodeGeometry, "%s lies on the boundary of %s, side is undetermined", flow, tr).
			WithElement(e.Key())
	}
	waypoint := normal.Set(tp, normal.Of(tp)-flowSide*r.opts.WaypointGap)

	shift := tangent.Set(r2.Vec{}, r.offsets[e.Handle])
	fp = r2.Add(fp, shift)
	waypoint = r2.Add(waypoint, shift)

	if side(normal, tp, src) == flowSide {
		return []r2.Vec{fp, waypoint}, nil
	}
	return []r2.Vec{waypoint, fp}, nil
}

// segments walks route from p and returns the end point of each segment.
func (r *router) segments(e *diagram.Element, p r2.Vec, route []diagram.Segment) ([]r2.Vec, error) {
	if len(route) == 0 {
		return nil, nil
	}
	conv := r.layout.Converter(e)
	out := make([]r2.Vec, 0, len(route))
	for i, seg := range route {
		deps, err := coords(r.diagram, r.layout, e, seg.Deps)
		if err != nil {
			return nil, err
		}
		target := geom.Centroid(deps)
		if seg.From != nil {
			target = r2.Add(target, conv.PixelPair(*seg.From, false))
		}
		next, ok := geom.Advance(p, seg.Angle, seg.Until, seg.Until.Of(target))
		if !ok {
			return nil, errors.New(errors.ErrCodeGeometry, "segment %d at %g degrees never reaches %s = %g",
				i+1, seg.Angle, seg.Until, seg.Until.Of(target)).WithElement(e.Key())
		}
		if seg.Offset != nil {
			next = r2.Add(next, conv.PixelPair(*seg.Offset, false))
		}
		out = append(out, next)
		p = next
	}
	return out, nil
}

// radius is the clipping radius of the glyph of h.
func (r *router) radius(h diagram.Handle) float64 {
	text, ok := r.diagram.Element(h).Style["radius"]
	if !ok {
		return r.opts.NodeRadius
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(text), "px"), 64)
	if err != nil || v < 0 {
		r.opts.Logger.Warn("ignoring radius style", "element", r.diagram.Element(h).Key(), "value", text)
		return r.opts.NodeRadius
	}
	return v
}

// strands returns the offsets of n parallel strokes spaced by spacing.
func strands(n int, spacing float64) []float64 {
	if n < 1 {
		n = 1
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = (float64(i) - float64(n-1)/2) * spacing
	}
	return out
}
