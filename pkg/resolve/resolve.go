// Package resolve turns the symbolic positions of a diagram into pixel
// coordinates.
//
// [Resolve] builds the dependency graph of all positioned elements (see
// [Graph]), orders it topologically and walks the order once. Each element
// is resolved against the unit converter of its container; when a
// compartment is resolved its pixel size is computed and a converter scoped
// to it is installed for its contents, which the dependency order
// guarantees come later in the walk.
//
// Resolution is a pure function of the diagram: it never mutates the
// diagram and returns a fresh [Layout]. A failure of any kind returns no
// layout at all.
package resolve

import (
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/matzehuels/celldl/pkg/constraint"
	"github.com/matzehuels/celldl/pkg/dag"
	"github.com/matzehuels/celldl/pkg/diagram"
	"github.com/matzehuels/celldl/pkg/errors"
	"github.com/matzehuels/celldl/pkg/geom"
	"github.com/matzehuels/celldl/pkg/units"
)

const (
	// DefaultPotentialOffset is the gap, in pixels, between a potential and
	// its quantity when a clause gives no offset.
	DefaultPotentialOffset = 20.0

	// DefaultFlowOffset is the distance, in pixels, of a flow from the
	// element it is placed against when a clause gives no offset.
	DefaultFlowOffset = 40.0
)

// Options configures a resolution.
type Options struct {
	PotentialOffset float64 `json:"potential_offset,omitempty"`
	FlowOffset      float64 `json:"flow_offset,omitempty"`

	// Logger receives debug output. Nil discards it.
	Logger *log.Logger `json:"-"`
}

// SetDefaults fills zero fields with their defaults.
func (o *Options) SetDefaults() {
	if o.PotentialOffset == 0 {
		o.PotentialOffset = DefaultPotentialOffset
	}
	if o.FlowOffset == 0 {
		o.FlowOffset = DefaultFlowOffset
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
}

// defaultOffset is the offset used by a lone clause without one.
func (o Options) defaultOffset(k diagram.Kind) units.Length {
	if k == diagram.KindFlow {
		return units.Px(o.FlowOffset)
	}
	return units.Px(o.PotentialOffset)
}

// Graph returns the dependency graph of d's positioned elements, keyed by
// [diagram.Element.Key]. There is an edge from each dependency to the
// element that refers to it, and from each compartment to every positioned
// element it contains. The graph's metadata carries the diagram size.
func Graph(d *diagram.Diagram) (*dag.DAG, error) {
	g := dag.New(dag.Metadata{"width": d.Width, "height": d.Height})
	for _, e := range d.Elements() {
		if !e.Positioned() {
			continue
		}
		if err := g.AddNode(dag.Node{ID: e.Key(), Meta: dag.Metadata{"kind": e.Kind.String()}}); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "add node").WithElement(e.Key())
		}
	}

	for _, e := range d.Elements() {
		if !e.Positioned() {
			continue
		}
		if e.Container != diagram.Root {
			if err := addEdge(g, d.Element(e.Container), e, "container"); err != nil {
				return nil, err
			}
		}
		for _, h := range e.Position.Deps() {
			if err := addEdge(g, d.Element(h), e, "position"); err != nil {
				return nil, err
			}
		}
	}
	return g, nil
}

func addEdge(g *dag.DAG, from, to *diagram.Element, kind string) error {
	if !from.Positioned() {
		return errors.New(errors.ErrCodeStructure, "depends on %s, which has no position", from).
			WithElement(to.Key()).WithText(to.Position.Text)
	}
	if err := g.AddEdge(dag.Edge{From: from.Key(), To: to.Key(), Meta: dag.Metadata{"kind": kind}}); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "add edge").WithElement(to.Key())
	}
	return nil
}

// Resolve computes the pixel position of every positioned element of d,
// and the pixel size and unit converter of every compartment.
func Resolve(d *diagram.Diagram, opts Options) (*Layout, error) {
	opts.SetDefaults()
	logger := opts.Logger

	g, err := Graph(d)
	if err != nil {
		return nil, err
	}
	order, err := g.TopologicalOrder()
	if err != nil {
		var cycle *dag.CycleError
		if stderrors.As(err, &cycle) {
			parts := make([]string, len(cycle.Cycles))
			for i, c := range cycle.Cycles {
				parts[i] = strings.Join(c, ", ")
			}
			return nil, errors.Wrap(errors.ErrCodeCycle, err, "cyclic dependency between %s", strings.Join(parts, "; "))
		}
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "order dependencies")
	}
	logger.Debug("dependency order", "elements", len(order), "edges", g.EdgeCount())

	r := &resolver{
		diagram: d,
		layout:  newLayout(d.Size()),
		opts:    opts,
	}
	for _, key := range order {
		e, ok := d.Lookup(key)
		if !ok {
			e = r.byKey(key)
		}
		if err := r.resolve(e); err != nil {
			return nil, err
		}
	}
	return r.layout, nil
}

type resolver struct {
	diagram *diagram.Diagram
	layout  *Layout
	opts    Options
	keys    map[string]*diagram.Element
}

// byKey finds anonymous elements by their generated key.
func (r *resolver) byKey(key string) *diagram.Element {
	if r.keys == nil {
		r.keys = make(map[string]*diagram.Element)
		for _, e := range r.diagram.Elements() {
			r.keys[e.Key()] = e
		}
	}
	return r.keys[key]
}

func (r *resolver) resolve(e *diagram.Element) error {
	if _, done := r.layout.Coords[e.Handle]; done {
		return nil
	}
	conv := r.layout.Converter(e)

	var v r2.Vec
	switch pos := e.Position; {
	case pos.Coords != nil:
		v = conv.PixelPair(*pos.Coords, true)
	case pos.Boundary != nil:
		var err error
		if v, err = r.boundary(e); err != nil {
			return err
		}
	default:
		v = r.relative(e, conv)
	}
	r.layout.place(e.Handle, v)

	if e.Kind == diagram.KindCompartment {
		size := conv.PixelSize(*e.Size)
		if size.W <= 0 || size.H <= 0 {
			return errors.New(errors.ErrCodeGeometry, "compartment size %gx%g is not positive", size.W, size.H).
				WithElement(e.Key())
		}
		r.layout.Sizes[e.Handle] = size
		r.layout.Converters[e.Handle] = conv.Scoped(size, v)
		r.opts.Logger.Debug("compartment frame", "element", e.Key(), "converter", r.layout.Converters[e.Handle])
	}
	return nil
}

// relative resolves a position made of 1-2 clauses.
func (r *resolver) relative(e *diagram.Element, conv *units.Converter) r2.Vec {
	clauses := e.Position.Clauses
	n := len(clauses)

	var v r2.Vec
	for _, c := range clauses {
		centre := geom.Centroid(r.layout.points(c.Deps))
		if c.Direction == constraint.Centre {
			return centre
		}
		if n == 1 {
			v = centre
		}

		dirAxis, _ := c.Direction.Axis()
		axis := c.Axis(n)
		if c.Offset == nil && n > 1 {
			// Alignment with the dependencies on the other axis.
			v = axis.Set(v, axis.Of(centre))
			continue
		}
		offset := r.opts.defaultOffset(e.Kind)
		if c.Offset != nil {
			offset = *c.Offset
		}
		delta := c.Direction.Sign() * conv.Pixels(offset, dirAxis, false)
		v = axis.Set(v, axis.Of(centre)+delta)
	}
	return v
}

// boundary resolves a transporter against its compartment's frame. The
// normal coordinate sits on the side, with bottom and right at 100% of the
// compartment. The tangent coordinate is the offset from the compartment
// origin, or from the centre of the listed siblings.
func (r *resolver) boundary(e *diagram.Element) (r2.Vec, error) {
	b := e.Position.Boundary
	conv, ok := r.layout.Converters[e.Container]
	if !ok || e.Container == diagram.Root {
		return r2.Vec{}, errors.New(errors.ErrCodeStructure, "transporter is not inside a resolved compartment").
			WithElement(e.Key()).WithText(e.Position.Text)
	}
	origin := conv.Offset()
	size := conv.Local()

	normal, tangent := b.Side.Normal(), b.Side.Tangent()
	var v r2.Vec
	n := normal.Of(origin)
	if b.Side.Far() {
		n += conv.Pixels(units.Percent(100, normal), normal, false)
	}
	v = normal.Set(v, n)

	base := tangent.Of(origin)
	if len(b.Siblings) > 0 {
		base = tangent.Of(geom.Centroid(r.layout.points(b.Siblings)))
	}
	v = tangent.Set(v, base+conv.Pixels(b.Offset, tangent, false))

	if t := tangent.Of(v) - tangent.Of(origin); t < -geom.Epsilon || t > size.Along(tangent)+geom.Epsilon {
		r.opts.Logger.Warn("transporter outside its boundary", "element", e.Key(), "offset", fmt.Sprintf("%.4g", t))
	}
	return v, nil
}
