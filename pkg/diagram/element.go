package diagram

import (
	"fmt"
	"slices"

	"github.com/matzehuels/celldl/pkg/constraint"
	"github.com/matzehuels/celldl/pkg/units"
)

// Kind tags the variant of an Element.
type Kind int

const (
	KindDiagram Kind = iota
	KindCompartment
	KindQuantity
	KindTransporter
	KindPotential
	KindFlow
	KindFlux
)

var kindNames = [...]string{
	KindDiagram:     "diagram",
	KindCompartment: "compartment",
	KindQuantity:    "quantity",
	KindTransporter: "transporter",
	KindPotential:   "potential",
	KindFlow:        "flow",
	KindFlux:        "flux",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Positionable reports whether elements of kind k can carry a position.
func (k Kind) Positionable() bool {
	return k != KindDiagram && k != KindFlux
}

// Handle identifies an element within its Diagram.
type Handle int

const (
	// None marks an absent link.
	None Handle = -1
	// Root is the handle of the diagram element itself.
	Root Handle = 0
)

// Clause is a relational constraint whose references are bound to handles.
type Clause struct {
	Offset    *units.Length
	Direction constraint.Direction
	Deps      []Handle
}

// Axis is the coordinate this clause fixes in a position of n clauses.
func (c Clause) Axis(n int) units.Axis {
	return constraint.Clause{Offset: c.Offset, Direction: c.Direction}.Axis(n)
}

// Boundary places a transporter on a side of its compartment. The offset
// runs along the side, measured from the compartment origin or, when
// Siblings is set, from the centroid of those transporters.
type Boundary struct {
	Side     constraint.Side
	Offset   units.Length
	Siblings []Handle
}

// Position is an unresolved position. Exactly one of Coords, Clauses and
// Boundary is set for a positioned element; all are empty otherwise.
type Position struct {
	Coords   *units.Pair
	Clauses  []Clause
	Boundary *Boundary
	Text     string // source text, empty for defaulted positions
}

// IsSet reports whether the position has anything to resolve.
func (p Position) IsSet() bool {
	return p.Coords != nil || len(p.Clauses) > 0 || p.Boundary != nil
}

// Deps returns every element the position refers to, without duplicates,
// in first-mention order.
func (p Position) Deps() []Handle {
	var deps []Handle
	add := func(hs []Handle) {
		for _, h := range hs {
			if !slices.Contains(deps, h) {
				deps = append(deps, h)
			}
		}
	}
	for _, c := range p.Clauses {
		add(c.Deps)
	}
	if p.Boundary != nil {
		add(p.Boundary.Siblings)
	}
	return deps
}

// Segment is a routed-line leg with its references bound to handles.
type Segment struct {
	Angle  float64
	Until  units.Axis
	From   *units.Pair
	Deps   []Handle
	Offset *units.Pair
}

// Element is one entity of a diagram. Which link fields are meaningful
// depends on Kind; unused handles are None.
type Element struct {
	Handle    Handle
	ID        string
	Kind      Kind
	Container Handle
	Label     string
	Style     map[string]string

	Position Position
	Size     *units.Pair // compartments

	Components   []Handle // compartments and the diagram: contained elements
	Transporters []Handle // compartments

	Quantity  Handle // potentials
	Potential Handle // quantities

	Transporter Handle   // flows, None when unbound
	Fluxes      []Handle // flows

	Flow      Handle   // fluxes
	From      Handle   // fluxes
	To        []Handle // fluxes
	Count     int      // fluxes, number of parallel lines
	LineStart []Segment
	LineEnd   []Segment
}

// Key returns the element id, or a generated key for anonymous elements.
// Generated keys contain '@', which [Builder.Add] rejects in ids.
func (e *Element) Key() string {
	if e.ID != "" {
		return e.ID
	}
	return fmt.Sprintf("%s@%d", e.Kind, e.Handle)
}

func (e *Element) String() string {
	if e.ID != "" {
		return fmt.Sprintf("%s(%s)", e.Kind, e.ID)
	}
	return e.Key()
}

// Positioned reports whether the element takes part in position resolution.
func (e *Element) Positioned() bool { return e.Position.IsSet() }
