package resolve

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/matzehuels/celldl/pkg/diagram"
	"github.com/matzehuels/celldl/pkg/units"
)

// Layout holds the resolved pixel geometry of a diagram.
//
// Coords has an entry for every positioned element. Sizes and Converters
// have one for every compartment, plus the diagram root whose converter
// spans the whole canvas. Order is the sequence in which elements were
// resolved.
type Layout struct {
	Coords     map[diagram.Handle]r2.Vec
	Sizes      map[diagram.Handle]units.Size
	Converters map[diagram.Handle]*units.Converter
	Order      []diagram.Handle
}

func newLayout(global units.Size) *Layout {
	return &Layout{
		Coords:     make(map[diagram.Handle]r2.Vec),
		Sizes:      map[diagram.Handle]units.Size{diagram.Root: global},
		Converters: map[diagram.Handle]*units.Converter{diagram.Root: units.NewConverter(global, global, r2.Vec{})},
	}
}

// Coord returns the resolved position of h.
func (l *Layout) Coord(h diagram.Handle) (r2.Vec, bool) {
	v, ok := l.Coords[h]
	return v, ok
}

// Converter returns the unit converter of the frame that contains e.
func (l *Layout) Converter(e *diagram.Element) *units.Converter {
	if c, ok := l.Converters[e.Container]; ok {
		return c
	}
	return l.Converters[diagram.Root]
}

// place records the coordinates of h. An element is placed once; later
// calls leave the first result in place and report false.
func (l *Layout) place(h diagram.Handle, v r2.Vec) bool {
	if _, done := l.Coords[h]; done {
		return false
	}
	l.Coords[h] = v
	l.Order = append(l.Order, h)
	return true
}

// points returns the resolved coordinates of hs, skipping unresolved ones.
func (l *Layout) points(hs []diagram.Handle) []r2.Vec {
	pts := make([]r2.Vec, 0, len(hs))
	for _, h := range hs {
		if v, ok := l.Coords[h]; ok {
			pts = append(pts, v)
		}
	}
	return pts
}
