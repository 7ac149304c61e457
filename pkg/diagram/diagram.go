package diagram

import (
	"slices"
	"strings"

	"github.com/matzehuels/celldl/pkg/constraint"
	"github.com/matzehuels/celldl/pkg/errors"
	"github.com/matzehuels/celldl/pkg/units"
)

// Spec describes one element as read from a document. Structural links
// (Container, Flow) are handles returned by earlier [Builder.Add] calls;
// cross references (Quantity, Transporter, From, To) are element ids,
// bound when the diagram is built.
type Spec struct {
	ID        string
	Kind      Kind
	Container Handle // Root for top-level elements
	Label     string
	Style     map[string]string

	Pos  string
	Size string

	Quantity    string // potentials
	Transporter string // flows
	Flow        Handle // fluxes: the owning flow
	From        string // fluxes
	To          []string
	Count       int
	LineStart   string
	LineEnd     string
}

// Diagram is the element tree and id index of one document. It is
// read-only once built.
type Diagram struct {
	Width, Height float64

	elements []*Element
	index    map[string]Handle
}

// Root returns the diagram element.
func (d *Diagram) Root() *Element { return d.elements[Root] }

// Element returns the element for h.
func (d *Diagram) Element(h Handle) *Element { return d.elements[h] }

// Len returns the number of elements, the diagram element included.
func (d *Diagram) Len() int { return len(d.elements) }

// Lookup finds an element by id.
func (d *Diagram) Lookup(id string) (*Element, bool) {
	h, ok := d.index[id]
	if !ok {
		return nil, false
	}
	return d.elements[h], true
}

// Elements returns every element except the diagram itself, in the order
// they were added.
func (d *Diagram) Elements() []*Element { return d.elements[1:] }

// OfKind returns the elements of kind k in the order they were added.
func (d *Diagram) OfKind(k Kind) []*Element {
	var out []*Element
	for _, e := range d.elements[1:] {
		if e.Kind == k {
			out = append(out, e)
		}
	}
	return out
}

// Size returns the diagram's pixel size.
func (d *Diagram) Size() units.Size { return units.Size{W: d.Width, H: d.Height} }

// Builder assembles a Diagram. Attribute text is parsed as elements are
// added; references are bound and defaults applied by Build.
type Builder struct {
	diagram  *Diagram
	specs    []Spec
	building bool
}

// NewBuilder starts a diagram of the given pixel size.
func NewBuilder(width, height float64) *Builder {
	root := &Element{
		Handle:      Root,
		Kind:        KindDiagram,
		Container:   Root,
		Quantity:    None,
		Potential:   None,
		Transporter: None,
		Flow:        None,
		From:        None,
	}
	return &Builder{
		diagram: &Diagram{
			Width:    width,
			Height:   height,
			elements: []*Element{root},
			index:    make(map[string]Handle),
		},
		specs: []Spec{{Kind: KindDiagram}},
	}
}

// Add parses s and appends it to the diagram. Syntax errors in s's
// attribute text, duplicate ids and misplaced elements are reported here.
func (b *Builder) Add(s Spec) (Handle, error) {
	d := b.diagram
	h := Handle(len(d.elements))
	e := &Element{
		Handle:      h,
		ID:          s.ID,
		Kind:        s.Kind,
		Container:   s.Container,
		Label:       s.Label,
		Style:       s.Style,
		Quantity:    None,
		Potential:   None,
		Transporter: None,
		Flow:        None,
		From:        None,
		Count:       s.Count,
	}
	if e.Label == "" {
		e.Label = s.ID
	}
	structural := func(format string, args ...any) error {
		return errors.New(errors.ErrCodeStructure, format, args...).WithElement(e.Key())
	}

	if s.Kind == KindDiagram || int(s.Kind) >= len(kindNames) {
		return None, structural("cannot add element of kind %s", s.Kind)
	}
	if s.ID != "" {
		if strings.ContainsRune(s.ID, '@') {
			return None, structural("id %q must not contain '@'", s.ID)
		}
		if _, dup := d.index[s.ID]; dup {
			return None, structural("duplicate id %q", s.ID)
		}
	}
	if err := b.place(e, s); err != nil {
		return None, err
	}
	if err := b.parse(e, s); err != nil {
		return None, err
	}

	d.elements = append(d.elements, e)
	b.specs = append(b.specs, s)
	if s.ID != "" {
		d.index[s.ID] = h
	}
	b.link(e)
	return h, nil
}

// place checks the structural parent of e.
func (b *Builder) place(e *Element, s Spec) error {
	d := b.diagram
	valid := func(h Handle) bool { return h >= 0 && int(h) < len(d.elements) }
	structural := func(format string, args ...any) error {
		return errors.New(errors.ErrCodeStructure, format, args...).WithElement(e.Key())
	}

	switch s.Kind {
	case KindFlux:
		if !valid(s.Flow) || d.elements[s.Flow].Kind != KindFlow {
			return structural("flux must belong to a flow")
		}
		e.Flow = s.Flow
		e.Container = d.elements[s.Flow].Container
		return nil
	case KindPotential, KindFlow:
		// Containers follow the bound quantity or transporter; see bindLinks.
		e.Container = Root
		return nil
	}

	if !valid(s.Container) {
		return structural("unknown container")
	}
	parent := d.elements[s.Container].Kind
	if s.Kind == KindTransporter && parent != KindCompartment {
		return structural("transporter must be inside a compartment, not %s", parent)
	}
	if parent != KindDiagram && parent != KindCompartment {
		return structural("%s cannot contain %s", parent, s.Kind)
	}
	return nil
}

// parse parses the attribute text of s into e.
func (b *Builder) parse(e *Element, s Spec) error {
	annotate := func(err error, text string) error {
		return errors.Annotate(err, e.Key(), text)
	}

	if s.Size != "" {
		if s.Kind != KindCompartment {
			return errors.New(errors.ErrCodeStructure, "%s cannot have a size", s.Kind).WithElement(e.Key())
		}
		size, err := constraint.ParseSize(s.Size)
		if err != nil {
			return annotate(err, s.Size)
		}
		e.Size = &size
	}

	switch {
	case s.Kind == KindCompartment && (s.Pos == "" || s.Size == ""):
		return errors.New(errors.ErrCodeStructure, "compartment requires a position and a size").WithElement(e.Key())
	case s.Kind == KindTransporter && s.Pos == "":
		return errors.New(errors.ErrCodeStructure, "transporter requires a boundary position").WithElement(e.Key())
	}

	if s.Pos != "" {
		if !s.Kind.Positionable() {
			return errors.New(errors.ErrCodeStructure, "%s cannot have a position", s.Kind).WithElement(e.Key())
		}
		e.Position.Text = s.Pos
	}

	if s.Kind == KindFlux {
		if s.Count < 0 {
			return errors.New(errors.ErrCodeStructure, "negative count %d", s.Count).WithElement(e.Key())
		}
		if e.Count == 0 {
			e.Count = 1
		}
		for _, text := range []string{s.LineStart, s.LineEnd} {
			if _, err := constraint.ParseRoute(text); err != nil {
				return annotate(err, text)
			}
		}
	} else if s.LineStart != "" || s.LineEnd != "" {
		return errors.New(errors.ErrCodeStructure, "%s cannot have a routed line", s.Kind).WithElement(e.Key())
	}

	switch s.Kind {
	case KindTransporter:
		if s.Pos != "" {
			if _, err := constraint.ParseBoundary(s.Pos); err != nil {
				return annotate(err, s.Pos)
			}
		}
	case KindCompartment:
		if s.Pos != "" {
			pos, err := constraint.ParsePosition(s.Pos)
			if err != nil {
				return annotate(err, s.Pos)
			}
			if !pos.IsLiteral() {
				return errors.New(errors.ErrCodeStructure, "compartment position must be a coordinate pair").
					WithElement(e.Key()).WithText(s.Pos)
			}
		}
	default:
		if s.Pos != "" {
			if _, err := constraint.ParsePosition(s.Pos); err != nil {
				return annotate(err, s.Pos)
			}
		}
	}
	return nil
}

// link records e with its structural parent.
func (b *Builder) link(e *Element) {
	d := b.diagram
	switch e.Kind {
	case KindFlux:
		flow := d.elements[e.Flow]
		flow.Fluxes = append(flow.Fluxes, e.Handle)
	case KindTransporter:
		parent := d.elements[e.Container]
		parent.Transporters = append(parent.Transporters, e.Handle)
	case KindCompartment, KindQuantity:
		parent := d.elements[e.Container]
		parent.Components = append(parent.Components, e.Handle)
	}
}

// Build binds every reference, applies default positions and returns the
// finished diagram. The builder must not be used afterwards.
func (b *Builder) Build() (*Diagram, error) {
	if b.building {
		return nil, errors.New(errors.ErrCodeInternal, "builder already used")
	}
	b.building = true

	d := b.diagram
	for h := Handle(1); int(h) < len(d.elements); h++ {
		if err := b.bindLinks(d.elements[h], b.specs[h]); err != nil {
			return nil, err
		}
	}
	for h := Handle(1); int(h) < len(d.elements); h++ {
		if err := b.bindPosition(d.elements[h], b.specs[h]); err != nil {
			return nil, err
		}
	}
	for h := Handle(1); int(h) < len(d.elements); h++ {
		b.applyDefaults(d.elements[h])
	}
	return d, nil
}

// ref looks up id, which must name an element of one of kinds (any
// positionable kind when kinds is empty).
func (b *Builder) ref(e *Element, id, text string, kinds ...Kind) (Handle, error) {
	h, ok := b.diagram.index[id]
	if !ok {
		return None, errors.New(errors.ErrCodeReference, "unknown element %q", id).
			WithElement(e.Key()).WithText(text)
	}
	kind := b.diagram.elements[h].Kind
	if len(kinds) == 0 && !kind.Positionable() || len(kinds) > 0 && !slices.Contains(kinds, kind) {
		return None, errors.New(errors.ErrCodeStructure, "%q is a %s", id, kind).
			WithElement(e.Key()).WithText(text)
	}
	return h, nil
}

func (b *Builder) refs(e *Element, ids []string, text string) ([]Handle, error) {
	hs := make([]Handle, 0, len(ids))
	for _, id := range ids {
		h, err := b.ref(e, id, text)
		if err != nil {
			return nil, err
		}
		hs = append(hs, h)
	}
	return hs, nil
}

// bindLinks resolves the bond-graph links of e.
func (b *Builder) bindLinks(e *Element, s Spec) error {
	d := b.diagram
	structural := func(format string, args ...any) error {
		return errors.New(errors.ErrCodeStructure, format, args...).WithElement(e.Key())
	}

	switch e.Kind {
	case KindPotential:
		if s.Quantity == "" {
			return structural("potential requires a quantity")
		}
		q, err := b.ref(e, s.Quantity, s.Quantity, KindQuantity)
		if err != nil {
			return err
		}
		quantity := d.elements[q]
		if quantity.Potential != None {
			return structural("quantity %q already has potential %s", s.Quantity, d.elements[quantity.Potential].Key())
		}
		e.Quantity = q
		quantity.Potential = e.Handle
		e.Container = quantity.Container

	case KindFlow:
		if s.Transporter == "" {
			return nil
		}
		t, err := b.ref(e, s.Transporter, s.Transporter, KindTransporter)
		if err != nil {
			return err
		}
		e.Transporter = t
		e.Container = d.elements[t].Container

	case KindFlux:
		if s.From == "" || len(s.To) == 0 {
			return structural("flux requires 'from' and 'to' potentials")
		}
		from, err := b.ref(e, s.From, s.From, KindPotential)
		if err != nil {
			return err
		}
		e.From = from
		for _, id := range s.To {
			to, err := b.ref(e, id, id, KindPotential)
			if err != nil {
				return err
			}
			e.To = append(e.To, to)
		}
		e.Container = d.elements[e.Flow].Container
	}
	return nil
}

// bindPosition resolves the references of e's position and routed lines.
func (b *Builder) bindPosition(e *Element, s Spec) error {
	if e.Kind == KindFlux {
		var err error
		if e.LineStart, err = b.bindRoute(e, s.LineStart); err != nil {
			return err
		}
		e.LineEnd, err = b.bindRoute(e, s.LineEnd)
		return err
	}
	if s.Pos == "" {
		return nil
	}

	if e.Kind == KindTransporter {
		return b.bindBoundary(e, s.Pos)
	}

	// Already validated by Add.
	pos, _ := constraint.ParsePosition(s.Pos)
	if pos.IsLiteral() {
		coords := *pos.Coords
		e.Position.Coords = &coords
		return nil
	}

	for _, c := range pos.Clauses {
		deps, err := b.refs(e, c.Refs, s.Pos)
		if err != nil {
			return err
		}
		if len(deps) == 0 {
			dep := b.defaultDependency(e)
			if dep == None {
				return errors.New(errors.ErrCodeStructure, "%q has no dependency and %s has no default", c.Direction, e.Kind).
					WithElement(e.Key()).WithText(s.Pos)
			}
			deps = []Handle{dep}
		}
		e.Position.Clauses = append(e.Position.Clauses, Clause{
			Offset:    c.Offset,
			Direction: c.Direction,
			Deps:      deps,
		})
	}
	return nil
}

func (b *Builder) bindBoundary(e *Element, text string) error {
	d := b.diagram
	// Already validated by Add.
	bnd, _ := constraint.ParseBoundary(text)

	boundary := &Boundary{Side: bnd.Side, Offset: units.Percent(0, bnd.Side.Tangent())}
	if bnd.Offset != nil {
		boundary.Offset = *bnd.Offset
	}
	for _, id := range bnd.Refs {
		h, err := b.ref(e, id, text, KindTransporter)
		if err != nil {
			return err
		}
		sibling := d.elements[h]
		sibBnd, _ := constraint.ParseBoundary(b.specs[h].Pos)
		if sibling.Container != e.Container || sibBnd.Side != bnd.Side {
			return errors.New(errors.ErrCodeStructure, "%q is not on the %s side of the same compartment", id, bnd.Side).
				WithElement(e.Key()).WithText(text)
		}
		boundary.Siblings = append(boundary.Siblings, h)
	}
	e.Position.Boundary = boundary
	return nil
}

func (b *Builder) bindRoute(e *Element, text string) ([]Segment, error) {
	// Already validated by Add.
	parsed, _ := constraint.ParseRoute(text)
	var segments []Segment
	for _, seg := range parsed {
		deps, err := b.refs(e, seg.Refs, text)
		if err != nil {
			return nil, err
		}
		segments = append(segments, Segment{
			Angle:  seg.Angle,
			Until:  seg.Until,
			From:   seg.From,
			Deps:   deps,
			Offset: seg.Offset,
		})
	}
	return segments, nil
}

// defaultDependency is the element a clause without references refers to.
func (b *Builder) defaultDependency(e *Element) Handle {
	switch e.Kind {
	case KindPotential:
		return e.Quantity
	case KindQuantity:
		return e.Potential
	case KindFlow:
		return e.Transporter
	}
	return None
}

// applyDefaults gives unpositioned elements their implied position.
func (b *Builder) applyDefaults(e *Element) {
	d := b.diagram
	if b.specs[e.Handle].Pos != "" {
		return
	}

	switch e.Kind {
	case KindPotential:
		quantity := d.elements[e.Quantity]
		if b.specs[e.Quantity].Pos != "" && !slices.Contains(quantity.Position.Deps(), e.Handle) {
			e.Position.Clauses = []Clause{{Direction: constraint.Left, Deps: []Handle{e.Quantity}}}
		}
	case KindQuantity:
		if e.Potential == None || b.specs[e.Potential].Pos == "" {
			return
		}
		if !slices.Contains(d.elements[e.Potential].Position.Deps(), e.Handle) {
			e.Position.Clauses = []Clause{{Direction: constraint.Right, Deps: []Handle{e.Potential}}}
		}
	case KindFlow:
		if e.Transporter != None {
			side := d.elements[e.Transporter].Position.Boundary.Side
			e.Position.Clauses = []Clause{{Direction: side.Outward(), Deps: []Handle{e.Transporter}}}
			return
		}
		var deps []Handle
		for _, fh := range e.Fluxes {
			flux := d.elements[fh]
			for _, p := range append([]Handle{flux.From}, flux.To...) {
				if !slices.Contains(deps, p) {
					deps = append(deps, p)
				}
			}
		}
		if len(deps) > 0 {
			e.Position.Clauses = []Clause{{Direction: constraint.Centre, Deps: deps}}
		}
	}
}
