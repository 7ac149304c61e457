// Package units converts symbolic diagram lengths into pixels.
//
// A [Length] is a value tagged with a [Unit]: plain pixels, a percentage of
// the enclosing container's width or height (local units), or a percentage
// of the whole diagram's width or height (global units). A [Converter] knows
// the pixel size of the diagram, the pixel size of the current container and
// the container's pixel origin, and turns lengths into pixels.
//
// Each compartment gets its own Converter once its position and size are
// known; see [Converter.Scoped].
package units

import (
	"fmt"
	"strconv"

	"gonum.org/v1/gonum/spatial/r2"
)

// Axis selects the horizontal or vertical coordinate.
type Axis int

const (
	X Axis = iota
	Y
)

// Other returns the orthogonal axis.
func (a Axis) Other() Axis { return 1 - a }

func (a Axis) String() string {
	if a == X {
		return "x"
	}
	return "y"
}

// Of returns the component of v on axis a.
func (a Axis) Of(v r2.Vec) float64 {
	if a == X {
		return v.X
	}
	return v.Y
}

// Set returns v with its component on axis a replaced by value.
func (a Axis) Set(v r2.Vec, value float64) r2.Vec {
	if a == X {
		v.X = value
	} else {
		v.Y = value
	}
	return v
}

// Unit is the unit tag of a Length.
type Unit int

const (
	Pixels  Unit = iota // absolute pixels
	LocalX              // percent of the container's width
	LocalY              // percent of the container's height
	GlobalX             // percent of the diagram's width
	GlobalY             // percent of the diagram's height
)

var unitSuffix = map[Unit]string{
	Pixels:  "px",
	LocalX:  "%x",
	LocalY:  "%y",
	GlobalX: "vw",
	GlobalY: "vh",
}

func (u Unit) String() string { return unitSuffix[u] }

// IsLocal reports whether u is relative to the enclosing container.
func (u Unit) IsLocal() bool { return u == LocalX || u == LocalY }

// IsGlobal reports whether u is relative to the whole diagram.
func (u Unit) IsGlobal() bool { return u == GlobalX || u == GlobalY }

// Local returns the local percentage unit for axis a.
func Local(a Axis) Unit {
	if a == X {
		return LocalX
	}
	return LocalY
}

// Length is an immutable value with a unit tag.
type Length struct {
	Value float64
	Unit  Unit
}

// Px is shorthand for a pixel length.
func Px(v float64) Length { return Length{Value: v, Unit: Pixels} }

// Percent is shorthand for a local percentage along axis a.
func Percent(v float64, a Axis) Length { return Length{Value: v, Unit: Local(a)} }

func (l Length) String() string {
	return strconv.FormatFloat(l.Value, 'g', -1, 64) + l.Unit.String()
}

// Pair is an (x, y) pair of lengths.
type Pair [2]Length

func (p Pair) String() string { return fmt.Sprintf("(%s, %s)", p[0], p[1]) }

// Size is a pixel width and height.
type Size struct {
	W, H float64
}

// Along returns the extent of s on axis a.
func (s Size) Along(a Axis) float64 {
	if a == X {
		return s.W
	}
	return s.H
}

// Vec returns s as a vector (W, H).
func (s Size) Vec() r2.Vec { return r2.Vec{X: s.W, Y: s.H} }

// Converter turns Lengths into pixels for one coordinate frame.
// The zero value is not usable - use NewConverter.
type Converter struct {
	global Size
	local  Size
	offset r2.Vec
}

// NewConverter creates a converter for a container of pixel size local whose
// origin is at offset, inside a diagram of pixel size global.
func NewConverter(global, local Size, offset r2.Vec) *Converter {
	return &Converter{global: global, local: local, offset: offset}
}

// Scoped returns a converter for a nested container. The diagram size is
// inherited; the receiver is not modified.
func (c *Converter) Scoped(local Size, offset r2.Vec) *Converter {
	return NewConverter(c.global, local, offset)
}

// Global returns the diagram's pixel size.
func (c *Converter) Global() Size { return c.global }

// Local returns the container's pixel size.
func (c *Converter) Local() Size { return c.local }

// Offset returns the container's pixel origin.
func (c *Converter) Offset() r2.Vec { return c.offset }

// Pixels converts l to pixels for a coordinate on axis.
//
// Local units scale by the container's width or height (chosen by the unit)
// and, when addOffset is set, add the container's origin on axis. Global
// units scale by the diagram size and never add an offset since they are
// magnitudes. Pixel lengths are returned unchanged.
func (c *Converter) Pixels(l Length, axis Axis, addOffset bool) float64 {
	switch l.Unit {
	case LocalX, LocalY:
		v := l.Value * c.local.Along(unitAxis(l.Unit)) / 100
		if addOffset {
			v += axis.Of(c.offset)
		}
		return v
	case GlobalX, GlobalY:
		return l.Value * c.global.Along(unitAxis(l.Unit)) / 100
	default:
		return l.Value
	}
}

// PixelPair converts both lengths of p, the first as x and the second as y.
func (c *Converter) PixelPair(p Pair, addOffset bool) r2.Vec {
	return r2.Vec{
		X: c.Pixels(p[0], X, addOffset),
		Y: c.Pixels(p[1], Y, addOffset),
	}
}

// PixelSize converts p as a width and height.
func (c *Converter) PixelSize(p Pair) Size {
	v := c.PixelPair(p, false)
	return Size{W: v.X, H: v.Y}
}

func (c *Converter) String() string {
	return fmt.Sprintf("converter(global=%gx%g, local=%gx%g, offset=(%g, %g))",
		c.global.W, c.global.H, c.local.W, c.local.H, c.offset.X, c.offset.Y)
}

func unitAxis(u Unit) Axis {
	if u == LocalY || u == GlobalY {
		return Y
	}
	return X
}
