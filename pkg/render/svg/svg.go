package svg

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/matzehuels/celldl/pkg/diagram"
	"github.com/matzehuels/celldl/pkg/resolve"
	"github.com/matzehuels/celldl/pkg/route"
	"github.com/matzehuels/celldl/pkg/units"
)

const (
	transporterDepth = 12.0
	quantityWidth    = 36.0
	quantityHeight   = 24.0
	labelSize        = 12.0
)

const defs = `  <defs>
    <marker id="arrow" viewBox="0 0 10 10" refX="9" refY="5" markerWidth="6" markerHeight="6" orient="auto-start-reverse">
      <path d="M 0 0 L 10 5 L 0 10 z" fill="#333"/>
    </marker>
  </defs>
`

// defaults are the fill and stroke of each element kind when the element's
// style does not set them.
var defaults = map[diagram.Kind][2]string{
	diagram.KindCompartment: {"#f4f8fb", "#5b7a99"},
	diagram.KindTransporter: {"#ffd27f", "#a06b00"},
	diagram.KindQuantity:    {"#ffffff", "#333333"},
	diagram.KindPotential:   {"#cfe8cf", "#2e6b2e"},
	diagram.KindFlow:        {"#f5c6c6", "#8b2e2e"},
}

// Option configures SVG rendering via [RenderSVG].
type Option func(*renderer)

type renderer struct {
	routes           *route.Routes
	nodeRadius       float64
	transporterWidth float64
	labels           bool
}

// WithRoutes draws the flux lines of r.
func WithRoutes(r *route.Routes) Option { return func(s *renderer) { s.routes = r } }

// WithNodeRadius sets the glyph radius of potentials and flows.
func WithNodeRadius(v float64) Option { return func(s *renderer) { s.nodeRadius = v } }

// WithTransporterWidth sets the length of transporter glyphs along their
// side. Widths resolved by routing take precedence.
func WithTransporterWidth(v float64) Option { return func(s *renderer) { s.transporterWidth = v } }

// WithoutLabels omits element labels.
func WithoutLabels() Option { return func(s *renderer) { s.labels = false } }

// RenderSVG draws a resolved diagram. Compartments are drawn first so that
// nested compartments stack in document order, then flux lines, then the
// node glyphs and finally their labels.
func RenderSVG(d *diagram.Diagram, l *resolve.Layout, opts ...Option) []byte {
	r := renderer{
		nodeRadius:       route.DefaultNodeRadius,
		transporterWidth: route.DefaultTransporterWidth,
		labels:           true,
	}
	for _, opt := range opts {
		opt(&r)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.1f %.1f" width="%.0f" height="%.0f">`+"\n",
		d.Width, d.Height, d.Width, d.Height)
	buf.WriteString(defs)

	for _, e := range d.OfKind(diagram.KindCompartment) {
		r.compartment(&buf, e, l)
	}
	if r.routes != nil {
		for _, ln := range r.routes.Lines {
			r.line(&buf, d, ln)
		}
	}
	for _, kind := range []diagram.Kind{diagram.KindTransporter, diagram.KindQuantity, diagram.KindPotential, diagram.KindFlow} {
		for _, e := range d.OfKind(kind) {
			r.node(&buf, e, l)
		}
	}
	if r.labels {
		for _, e := range d.Elements() {
			r.label(&buf, e, l)
		}
	}

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func (r *renderer) compartment(buf *bytes.Buffer, e *diagram.Element, l *resolve.Layout) {
	p, ok := l.Coord(e.Handle)
	size, sized := l.Sizes[e.Handle]
	if !ok || !sized {
		return
	}
	fmt.Fprintf(buf, `  <rect id="%s" class="%s" x="%.2f" y="%.2f" width="%.2f" height="%.2f" rx="8" %s/>`+"\n",
		escape(e.Key()), classes(e), p.X, p.Y, size.W, size.H, paint(e))
}

func (r *renderer) node(buf *bytes.Buffer, e *diagram.Element, l *resolve.Layout) {
	p, ok := l.Coord(e.Handle)
	if !ok {
		return
	}
	switch e.Kind {
	case diagram.KindTransporter:
		w, h := r.transporterWidth, transporterDepth
		if r.routes != nil {
			if v, ok := r.routes.Widths[e.Handle]; ok {
				w = v
			}
		}
		if e.Position.Boundary != nil && e.Position.Boundary.Side.Tangent() == units.Y {
			w, h = h, w
		}
		fmt.Fprintf(buf, `  <rect id="%s" class="%s" x="%.2f" y="%.2f" width="%.2f" height="%.2f" rx="%.2f" %s/>`+"\n",
			escape(e.Key()), classes(e), p.X-w/2, p.Y-h/2, w, h, min(w, h)/2, paint(e))
	case diagram.KindQuantity:
		fmt.Fprintf(buf, `  <rect id="%s" class="%s" x="%.2f" y="%.2f" width="%.2f" height="%.2f" rx="4" %s/>`+"\n",
			escape(e.Key()), classes(e), p.X-quantityWidth/2, p.Y-quantityHeight/2, quantityWidth, quantityHeight, paint(e))
	default:
		fmt.Fprintf(buf, `  <circle id="%s" class="%s" cx="%.2f" cy="%.2f" r="%.2f" %s/>`+"\n",
			escape(e.Key()), classes(e), p.X, p.Y, r.radius(e), paint(e))
	}
}

func (r *renderer) line(buf *bytes.Buffer, d *diagram.Diagram, ln route.Line) {
	if len(ln.Points) < 2 {
		return
	}
	flux := d.Element(ln.Flux)
	stroke := flux.Style["stroke"]
	if stroke == "" {
		stroke = "#333"
	}
	fmt.Fprintf(buf, `  <path class="flux" data-flux="%s" data-target="%s" d="%s" fill="none" stroke="%s" stroke-width="1.5" stroke-linejoin="miter" marker-end="url(#arrow)"/>`+"\n",
		escape(flux.Key()), escape(d.Element(ln.Target).Key()), PathData(ln.Points), escape(stroke))
}

func (r *renderer) label(buf *bytes.Buffer, e *diagram.Element, l *resolve.Layout) {
	text := e.Label
	if text == "" {
		text = e.ID
	}
	p, ok := l.Coord(e.Handle)
	if text == "" || !ok || e.Kind == diagram.KindTransporter {
		return
	}
	anchor := "middle"
	if e.Kind == diagram.KindCompartment {
		p = r2.Add(p, r2.Vec{X: 6, Y: labelSize + 4})
		anchor = "start"
	} else {
		p.Y += labelSize / 3
	}
	fmt.Fprintf(buf, `  <text x="%.2f" y="%.2f" text-anchor="%s" font-family="sans-serif" font-size="%.0f">%s</text>`+"\n",
		p.X, p.Y, anchor, labelSize, escape(text))
}

func (r *renderer) radius(e *diagram.Element) float64 {
	if text, ok := e.Style["radius"]; ok {
		if v, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(text), "px"), 64); err == nil && v >= 0 {
			return v
		}
	}
	return r.nodeRadius
}

// PathData formats points as SVG path data.
func PathData(points []r2.Vec) string {
	var sb strings.Builder
	for i, p := range points {
		if i == 0 {
			sb.WriteString("M")
		} else {
			sb.WriteString(" L")
		}
		fmt.Fprintf(&sb, "%.2f,%.2f", p.X, p.Y)
	}
	return sb.String()
}

func paint(e *diagram.Element) string {
	fill, stroke := defaults[e.Kind][0], defaults[e.Kind][1]
	if v, ok := e.Style["fill"]; ok {
		fill = v
	}
	if v, ok := e.Style["stroke"]; ok {
		stroke = v
	}
	return fmt.Sprintf(`fill="%s" stroke="%s"`, escape(fill), escape(stroke))
}

func classes(e *diagram.Element) string {
	if c := e.Style["class"]; c != "" {
		return e.Kind.String() + " " + escape(c)
	}
	return e.Kind.String()
}

func escape(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
