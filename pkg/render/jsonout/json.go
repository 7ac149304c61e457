// Package jsonout exports a resolved diagram as JSON.
//
// The document lists every positioned element with its pixel coordinates,
// the size of every compartment, the resolution order and, when routes are
// given, every flux line as a point sequence. Elements are keyed by id, or
// by a generated key containing '@' for anonymous ones.
package jsonout

import (
	"encoding/json"

	"github.com/matzehuels/celldl/pkg/diagram"
	"github.com/matzehuels/celldl/pkg/resolve"
	"github.com/matzehuels/celldl/pkg/route"
)

// Option configures JSON rendering via [RenderJSON].
type Option func(*renderer)

type renderer struct {
	routes *route.Routes
}

// WithRoutes includes the flux lines and fan-out offsets of r.
func WithRoutes(r *route.Routes) Option { return func(j *renderer) { j.routes = r } }

type output struct {
	Width    float64            `json:"width"`
	Height   float64            `json:"height"`
	Order    []string           `json:"order"`
	Elements []element          `json:"elements"`
	Lines    []line             `json:"lines,omitempty"`
	Offsets  map[string]float64 `json:"offsets,omitempty"`
}

type element struct {
	ID        string  `json:"id"`
	Kind      string  `json:"kind"`
	Label     string  `json:"label,omitempty"`
	Container string  `json:"container,omitempty"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Width     float64 `json:"width,omitempty"`
	Height    float64 `json:"height,omitempty"`
}

type line struct {
	Flux   string       `json:"flux"`
	Target string       `json:"target"`
	Index  int          `json:"index"`
	Points [][2]float64 `json:"points"`
}

// RenderJSON exports the layout as a pretty-printed JSON document. Elements
// appear in document order; unpositioned elements are left out.
func RenderJSON(d *diagram.Diagram, l *resolve.Layout, opts ...Option) ([]byte, error) {
	r := renderer{}
	for _, opt := range opts {
		opt(&r)
	}

	out := output{
		Width:    d.Width,
		Height:   d.Height,
		Order:    make([]string, 0, len(l.Order)),
		Elements: buildElements(d, l),
	}
	for _, h := range l.Order {
		out.Order = append(out.Order, d.Element(h).Key())
	}
	if r.routes != nil {
		out.Lines = buildLines(d, r.routes)
		if len(r.routes.Offsets) > 0 {
			out.Offsets = make(map[string]float64, len(r.routes.Offsets))
			for h, off := range r.routes.Offsets {
				out.Offsets[d.Element(h).Key()] = off
			}
		}
	}
	return json.MarshalIndent(out, "", "  ")
}

func buildElements(d *diagram.Diagram, l *resolve.Layout) []element {
	elements := make([]element, 0, len(l.Coords))
	for _, e := range d.Elements() {
		p, ok := l.Coord(e.Handle)
		if !ok {
			continue
		}
		el := element{
			ID:    e.Key(),
			Kind:  e.Kind.String(),
			Label: e.Label,
			X:     p.X,
			Y:     p.Y,
		}
		if e.Container != diagram.Root && e.Container != diagram.None {
			el.Container = d.Element(e.Container).Key()
		}
		if size, ok := l.Sizes[e.Handle]; ok {
			el.Width, el.Height = size.W, size.H
		}
		elements = append(elements, el)
	}
	return elements
}

func buildLines(d *diagram.Diagram, routes *route.Routes) []line {
	lines := make([]line, 0, len(routes.Lines))
	for _, ln := range routes.Lines {
		pts := make([][2]float64, len(ln.Points))
		for i, p := range ln.Points {
			pts[i] = [2]float64{p.X, p.Y}
		}
		lines = append(lines, line{
			Flux:   d.Element(ln.Flux).Key(),
			Target: d.Element(ln.Target).Key(),
			Index:  ln.Index,
			Points: pts,
		})
	}
	return lines
}
