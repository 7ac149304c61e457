package route

import (
	"slices"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/matzehuels/celldl/pkg/constraint"
	"github.com/matzehuels/celldl/pkg/diagram"
	"github.com/matzehuels/celldl/pkg/errors"
	"github.com/matzehuels/celldl/pkg/geom"
	"github.com/matzehuels/celldl/pkg/resolve"
	"github.com/matzehuels/celldl/pkg/units"
)

// Spread returns n evenly spaced offsets across width, centred on zero.
// A single offset is zero.
func Spread(n int, width float64) []float64 {
	offsets := make([]float64, n)
	if n < 2 {
		return offsets
	}
	step := width / float64(n-1)
	for i := range offsets {
		offsets[i] = -width/2 + float64(i)*step
	}
	return offsets
}

// FanOut assigns each flux of every transporter-bound flow an offset along
// the transporter's boundary, so the lines of a shared transporter run side
// by side. Fluxes are ordered by where their endpoints lie along the
// boundary, ties kept in insertion order. Fluxes of unbound flows get no
// entry.
func FanOut(d *diagram.Diagram, l *resolve.Layout, opts Options) (map[diagram.Handle]float64, error) {
	opts.SetDefaults()
	offsets := make(map[diagram.Handle]float64)

	for _, flow := range d.OfKind(diagram.KindFlow) {
		if flow.Transporter == diagram.None || len(flow.Fluxes) == 0 {
			continue
		}
		tr := d.Element(flow.Transporter)
		tangent := tr.Position.Boundary.Side.Tangent()
		width, err := TransporterWidth(tr, l, opts)
		if err != nil {
			return nil, err
		}

		type ranked struct {
			flux diagram.Handle
			key  float64
		}
		rank := make([]ranked, 0, len(flow.Fluxes))
		for _, fh := range flow.Fluxes {
			flux := d.Element(fh)
			pts, err := coords(d, l, flux, append([]diagram.Handle{flux.From}, flux.To...))
			if err != nil {
				return nil, err
			}
			rank = append(rank, ranked{flux: fh, key: tangent.Of(geom.Centroid(pts))})
		}
		slices.SortStableFunc(rank, func(a, b ranked) int {
			switch {
			case a.key < b.key:
				return -1
			case a.key > b.key:
				return 1
			}
			return 0
		})

		spread := Spread(len(rank), width)
		for i, r := range rank {
			offsets[r.flux] = spread[i]
		}
		opts.Logger.Debug("fan-out", "flow", flow.Key(), "transporter", tr.Key(), "fluxes", len(rank), "width", width)
	}
	return offsets, nil
}

// TransporterWidth is the transporter's `width` style in pixels, or the
// default width of opts.
func TransporterWidth(tr *diagram.Element, l *resolve.Layout, opts Options) (float64, error) {
	text, ok := tr.Style["width"]
	if !ok {
		return opts.TransporterWidth, nil
	}
	tangent := tr.Position.Boundary.Side.Tangent()
	length, err := constraint.ParseLength(text, tangent)
	if err != nil {
		return 0, errors.Annotate(err, tr.Key(), text)
	}
	return l.Converter(tr).Pixels(length, tangent, false), nil
}

// coords returns the resolved coordinates of hs on behalf of e.
func coords(d *diagram.Diagram, l *resolve.Layout, e *diagram.Element, hs []diagram.Handle) ([]r2.Vec, error) {
	pts := make([]r2.Vec, 0, len(hs))
	for _, h := range hs {
		v, ok := l.Coord(h)
		if !ok {
			return nil, errors.New(errors.ErrCodeGeometry, "%s has no resolved position", d.Element(h)).
				WithElement(e.Key())
		}
		pts = append(pts, v)
	}
	return pts, nil
}

// side reports on which side of the boundary line through t, along axis, v
// lies: -1 or +1, or 0 when v is on the line.
func side(axis units.Axis, t, v r2.Vec) float64 {
	d := axis.Of(v) - axis.Of(t)
	switch {
	case d > geom.Epsilon:
		return 1
	case d < -geom.Epsilon:
		return -1
	}
	return 0
}
