package diagram

import (
	stderrors "errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/celldl/pkg/constraint"
	"github.com/matzehuels/celldl/pkg/errors"
	"github.com/matzehuels/celldl/pkg/units"
)

// cell builds a compartment with a quantity, its potential, a transporter
// and a flow through it.
func cell(t *testing.T) *Builder {
	t.Helper()
	b := NewBuilder(1000, 600)
	c := mustAdd(t, b, Spec{ID: "c", Kind: KindCompartment, Pos: "(100, 100)", Size: "10%, 10%"})
	mustAdd(t, b, Spec{ID: "q", Kind: KindQuantity, Container: c, Pos: "50%, 50%"})
	mustAdd(t, b, Spec{ID: "q2", Kind: KindQuantity, Pos: "(600, 300)"})
	mustAdd(t, b, Spec{ID: "t", Kind: KindTransporter, Container: c, Pos: "right 30%"})
	mustAdd(t, b, Spec{ID: "p", Kind: KindPotential, Quantity: "q"})
	mustAdd(t, b, Spec{ID: "p2", Kind: KindPotential, Quantity: "q2"})
	f := mustAdd(t, b, Spec{ID: "f", Kind: KindFlow, Transporter: "t"})
	mustAdd(t, b, Spec{ID: "j", Kind: KindFlux, Flow: f, From: "p", To: []string{"p2"}})
	return b
}

func mustAdd(t *testing.T, b *Builder, s Spec) Handle {
	t.Helper()
	h, err := b.Add(s)
	if err != nil {
		t.Fatalf("Add(%+v) error: %v", s, err)
	}
	return h
}

func lookup(t *testing.T, d *Diagram, id string) *Element {
	t.Helper()
	e, ok := d.Lookup(id)
	if !ok {
		t.Fatalf("Lookup(%q) not found", id)
	}
	return e
}

func TestBuild(t *testing.T) {
	d, err := cell(t).Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	c, q, tr := lookup(t, d, "c"), lookup(t, d, "q"), lookup(t, d, "t")
	p, f, j := lookup(t, d, "p"), lookup(t, d, "f"), lookup(t, d, "j")

	if d.Len() != 9 || len(d.Elements()) != 8 {
		t.Errorf("Len() = %d, Elements() = %d", d.Len(), len(d.Elements()))
	}
	if diff := cmp.Diff([]Handle{q.Handle}, c.Components); diff != "" {
		t.Errorf("compartment components mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]Handle{tr.Handle}, c.Transporters); diff != "" {
		t.Errorf("compartment transporters mismatch (-want +got):\n%s", diff)
	}
	if p.Quantity != q.Handle || q.Potential != p.Handle {
		t.Errorf("potential/quantity link = %v/%v", p.Quantity, q.Potential)
	}
	if p.Container != c.Handle {
		t.Errorf("potential container = %v, want compartment %v", p.Container, c.Handle)
	}
	if f.Transporter != tr.Handle || f.Container != c.Handle {
		t.Errorf("flow transporter/container = %v/%v", f.Transporter, f.Container)
	}
	if diff := cmp.Diff([]Handle{j.Handle}, f.Fluxes); diff != "" {
		t.Errorf("flow fluxes mismatch (-want +got):\n%s", diff)
	}
	if j.Count != 1 {
		t.Errorf("flux count = %d, want default 1", j.Count)
	}
	if c.Size == nil || *c.Size != (units.Pair{units.Percent(10, units.X), units.Percent(10, units.Y)}) {
		t.Errorf("compartment size = %v", c.Size)
	}
}

func TestBuildDefaults(t *testing.T) {
	d, err := cell(t).Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	q, tr := lookup(t, d, "q"), lookup(t, d, "t")

	tests := []struct {
		id   string
		want Position
	}{
		{"p", Position{Clauses: []Clause{{Direction: constraint.Left, Deps: []Handle{q.Handle}}}}},
		{"f", Position{Clauses: []Clause{{Direction: constraint.Right, Deps: []Handle{tr.Handle}}}}},
		{"t", Position{
			Boundary: &Boundary{Side: constraint.RightSide, Offset: units.Percent(30, units.Y)},
			Text:     "right 30%",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got := lookup(t, d, tt.id).Position
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Position mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBuildDefaultDependency(t *testing.T) {
	b := NewBuilder(1000, 600)
	mustAdd(t, b, Spec{ID: "q", Kind: KindQuantity, Pos: "10, 10"})
	mustAdd(t, b, Spec{ID: "p", Kind: KindPotential, Quantity: "q", Pos: "30 below; 5 right #q"})

	d, err := b.Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	q := lookup(t, d, "q").Handle
	want := []Handle{q}
	if diff := cmp.Diff(want, lookup(t, d, "p").Position.Deps()); diff != "" {
		t.Errorf("Deps() mismatch (-want +got):\n%s", diff)
	}
}

func TestQuantityDefaultsToPotential(t *testing.T) {
	b := NewBuilder(1000, 600)
	mustAdd(t, b, Spec{ID: "q", Kind: KindQuantity})
	mustAdd(t, b, Spec{ID: "p", Kind: KindPotential, Quantity: "q", Pos: "200, 200"})

	d, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	want := Position{Clauses: []Clause{{Direction: constraint.Right, Deps: []Handle{lookup(t, d, "p").Handle}}}}
	if diff := cmp.Diff(want, lookup(t, d, "q").Position); diff != "" {
		t.Errorf("quantity position mismatch (-want +got):\n%s", diff)
	}
}

func TestNoDefaultLoop(t *testing.T) {
	b := NewBuilder(1000, 600)
	mustAdd(t, b, Spec{ID: "q", Kind: KindQuantity})
	mustAdd(t, b, Spec{ID: "p", Kind: KindPotential, Quantity: "q", Pos: "20 left"})

	d, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	if lookup(t, d, "q").Positioned() {
		t.Errorf("quantity got a default position pointing back at its potential")
	}
}

func TestUnboundFlowDefaultsToCentre(t *testing.T) {
	b := NewBuilder(1000, 600)
	mustAdd(t, b, Spec{ID: "q1", Kind: KindQuantity, Pos: "0, 0"})
	mustAdd(t, b, Spec{ID: "q2", Kind: KindQuantity, Pos: "100, 0"})
	mustAdd(t, b, Spec{ID: "p1", Kind: KindPotential, Quantity: "q1"})
	mustAdd(t, b, Spec{ID: "p2", Kind: KindPotential, Quantity: "q2"})
	f := mustAdd(t, b, Spec{ID: "f", Kind: KindFlow})
	mustAdd(t, b, Spec{Kind: KindFlux, Flow: f, From: "p1", To: []string{"p2"}, Count: 2})
	empty := mustAdd(t, b, Spec{Kind: KindFlow})

	d, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	p1, p2 := lookup(t, d, "p1").Handle, lookup(t, d, "p2").Handle
	want := Position{Clauses: []Clause{{Direction: constraint.Centre, Deps: []Handle{p1, p2}}}}
	if diff := cmp.Diff(want, lookup(t, d, "f").Position); diff != "" {
		t.Errorf("flow position mismatch (-want +got):\n%s", diff)
	}
	if d.Element(empty).Positioned() {
		t.Errorf("flow without fluxes should have no position")
	}
}

func TestBuildRoutes(t *testing.T) {
	b := NewBuilder(1000, 600)
	mustAdd(t, b, Spec{ID: "q1", Kind: KindQuantity, Pos: "0, 0"})
	mustAdd(t, b, Spec{ID: "p1", Kind: KindPotential, Quantity: "q1"})
	f := mustAdd(t, b, Spec{ID: "f", Kind: KindFlow, Pos: "50, 50"})
	mustAdd(t, b, Spec{ID: "j", Kind: KindFlux, Flow: f, From: "p1", To: []string{"p1"},
		LineStart: "0 until-x #f", LineEnd: "90 until-y (0, 10) from #q1"})

	d, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	j := lookup(t, d, "j")
	wantStart := []Segment{{Angle: 0, Until: units.X, Deps: []Handle{f}}}
	if diff := cmp.Diff(wantStart, j.LineStart); diff != "" {
		t.Errorf("LineStart mismatch (-want +got):\n%s", diff)
	}
	if len(j.LineEnd) != 1 || j.LineEnd[0].From == nil || j.LineEnd[0].Deps[0] != lookup(t, d, "q1").Handle {
		t.Errorf("LineEnd = %+v", j.LineEnd)
	}
}

func TestAddErrors(t *testing.T) {
	tests := []struct {
		name string
		spec Spec
		code errors.Code
	}{
		{"duplicate id", Spec{ID: "c", Kind: KindQuantity, Pos: "1, 1"}, errors.ErrCodeStructure},
		{"generated key as id", Spec{ID: "quantity@3", Kind: KindQuantity, Pos: "1, 1"}, errors.ErrCodeStructure},
		{"bad position", Spec{ID: "x", Kind: KindQuantity, Pos: "60 rigth #c"}, errors.ErrCodeSyntax},
		{"three clauses", Spec{ID: "x", Kind: KindQuantity, Pos: "1 left #a; 2 above #b; 3 right #c"}, errors.ErrCodeStructure},
		{"bad size", Spec{ID: "x", Kind: KindCompartment, Pos: "1, 1", Size: "10%"}, errors.ErrCodeSyntax},
		{"size on quantity", Spec{ID: "x", Kind: KindQuantity, Size: "1, 1"}, errors.ErrCodeStructure},
		{"compartment without size", Spec{ID: "x", Kind: KindCompartment, Pos: "1, 1"}, errors.ErrCodeStructure},
		{"relational compartment", Spec{ID: "x", Kind: KindCompartment, Pos: "10 right #c", Size: "1, 1"}, errors.ErrCodeStructure},
		{"transporter at top level", Spec{ID: "x", Kind: KindTransporter, Pos: "top"}, errors.ErrCodeStructure},
		{"transporter without boundary", Spec{ID: "x", Kind: KindTransporter, Container: 1}, errors.ErrCodeStructure},
		{"bad boundary", Spec{ID: "x", Kind: KindTransporter, Container: 1, Pos: "middle"}, errors.ErrCodeSyntax},
		{"orphan flux", Spec{ID: "x", Kind: KindFlux, From: "a", To: []string{"b"}}, errors.ErrCodeStructure},
		{"bad route", Spec{ID: "x", Kind: KindFlux, Flow: 2, From: "a", To: []string{"b"}, LineStart: "until-x"}, errors.ErrCodeSyntax},
		{"route on quantity", Spec{ID: "x", Kind: KindQuantity, LineEnd: "0 until-x #c"}, errors.ErrCodeStructure},
		{"negative count", Spec{ID: "x", Kind: KindFlux, Flow: 2, Count: -1}, errors.ErrCodeStructure},
		{"diagram kind", Spec{ID: "x", Kind: KindDiagram}, errors.ErrCodeStructure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder(1000, 600)
			mustAdd(t, b, Spec{ID: "c", Kind: KindCompartment, Pos: "0, 0", Size: "50%, 50%"})
			mustAdd(t, b, Spec{ID: "f", Kind: KindFlow})

			_, err := b.Add(tt.spec)
			if !errors.Is(err, tt.code) {
				t.Errorf("Add() error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name  string
		specs []Spec
		code  errors.Code
		elem  string
	}{
		{
			name:  "unknown reference",
			specs: []Spec{{ID: "q", Kind: KindQuantity, Pos: "60 right #missing"}},
			code:  errors.ErrCodeReference,
			elem:  "q",
		},
		{
			name:  "unknown quantity",
			specs: []Spec{{ID: "p", Kind: KindPotential, Quantity: "nope"}},
			code:  errors.ErrCodeReference,
			elem:  "p",
		},
		{
			name:  "potential without quantity",
			specs: []Spec{{ID: "p", Kind: KindPotential}},
			code:  errors.ErrCodeStructure,
			elem:  "p",
		},
		{
			name: "quantity with two potentials",
			specs: []Spec{
				{ID: "q", Kind: KindQuantity, Pos: "1, 1"},
				{ID: "p1", Kind: KindPotential, Quantity: "q"},
				{ID: "p2", Kind: KindPotential, Quantity: "q"},
			},
			code: errors.ErrCodeStructure,
			elem: "p2",
		},
		{
			name:  "no default dependency",
			specs: []Spec{{ID: "q", Kind: KindQuantity, Pos: "20 left"}},
			code:  errors.ErrCodeStructure,
			elem:  "q",
		},
		{
			name: "wrong kind",
			specs: []Spec{
				{ID: "q", Kind: KindQuantity, Pos: "1, 1"},
				{ID: "f", Kind: KindFlow, Transporter: "q"},
			},
			code: errors.ErrCodeStructure,
			elem: "f",
		},
		{
			name: "sibling on another side",
			specs: []Spec{
				{ID: "t1", Kind: KindTransporter, Container: 1, Pos: "top 10%"},
				{ID: "t2", Kind: KindTransporter, Container: 1, Pos: "left 10% #t1"},
			},
			code: errors.ErrCodeStructure,
			elem: "t2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder(1000, 600)
			mustAdd(t, b, Spec{ID: "c", Kind: KindCompartment, Pos: "0, 0", Size: "50%, 50%"})
			for _, s := range tt.specs {
				mustAdd(t, b, s)
			}

			d, err := b.Build()
			if d != nil || !errors.Is(err, tt.code) {
				t.Fatalf("Build() = %v, %v; want %s", d, err, tt.code)
			}
			var e *errors.Error
			if !stderrors.As(err, &e) || e.ElementID != tt.elem {
				t.Errorf("error element = %+v, want %q", e, tt.elem)
			}
		})
	}
}

func TestBuildTwice(t *testing.T) {
	b := cell(t)
	if _, err := b.Build(); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Build(); !errors.Is(err, errors.ErrCodeInternal) {
		t.Errorf("second Build() error = %v", err)
	}
}

func TestKey(t *testing.T) {
	anon := &Element{Handle: 7, Kind: KindFlow}
	if got := anon.Key(); got != "flow@7" {
		t.Errorf("Key() = %q, want flow@7", got)
	}
	named := &Element{Handle: 7, ID: "f1", Kind: KindFlow}
	if got := named.Key(); got != "f1" {
		t.Errorf("Key() = %q, want f1", got)
	}
	if got := named.String(); got != "flow(f1)" {
		t.Errorf("String() = %q", got)
	}
}
