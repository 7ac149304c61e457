package jsonout

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/matzehuels/celldl/pkg/document"
	"github.com/matzehuels/celldl/pkg/resolve"
	"github.com/matzehuels/celldl/pkg/route"
)

const doc = `<cell-diagram width="500" height="300">
  <diagram>
    <compartment id="c" pos="(100, 100)" size="50%, 50%">
      <quantity id="q" pos="50%, 50%" label="Na"/>
      <transporter id="t" pos="right 50%"/>
    </compartment>
    <quantity id="qo" pos="(400, 175)"/>
  </diagram>
  <bond-graph>
    <potential id="u" quantity="q"/>
    <potential id="uo" quantity="qo"/>
    <flow id="v" transporter="t">
      <flux id="j" from="u" to="uo"/>
    </flow>
  </bond-graph>
</cell-diagram>`

func TestRenderJSON(t *testing.T) {
	d, err := document.Parse([]byte(doc), document.Options{})
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	l, err := resolve.Resolve(d, resolve.Options{})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	routes, err := route.Route(d, l, route.Options{})
	if err != nil {
		t.Fatalf("Route() error: %v", err)
	}

	data, err := RenderJSON(d, l, WithRoutes(routes))
	if err != nil {
		t.Fatalf("RenderJSON() error: %v", err)
	}
	var out output
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("json.Unmarshal() error: %v", err)
	}

	if out.Width != 500 || out.Height != 300 {
		t.Errorf("size = %vx%v, want 500x300", out.Width, out.Height)
	}
	if len(out.Order) != 7 {
		t.Errorf("Order = %v, want 7 entries", out.Order)
	}

	want := []element{
		{ID: "c", Kind: "compartment", X: 100, Y: 100, Width: 200, Height: 150},
		{ID: "q", Kind: "quantity", Label: "Na", Container: "c", X: 200, Y: 175},
		{ID: "t", Kind: "transporter", Container: "c", X: 300, Y: 175},
		{ID: "qo", Kind: "quantity", X: 400, Y: 175},
		{ID: "u", Kind: "potential", Container: "c", X: 180, Y: 175},
		{ID: "uo", Kind: "potential", X: 380, Y: 175},
		{ID: "v", Kind: "flow", Container: "c", X: 340, Y: 175},
	}
	if diff := cmp.Diff(want, out.Elements); diff != "" {
		t.Errorf("Elements mismatch (-want +got):\n%s", diff)
	}

	wantLines := []line{{
		Flux: "j", Target: "uo",
		Points: [][2]float64{{190, 175}, {290, 175}, {340, 175}, {370, 175}},
	}}
	if diff := cmp.Diff(wantLines, out.Lines, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("Lines mismatch (-want +got):\n%s", diff)
	}
	if off, ok := out.Offsets["j"]; !ok || off != 0 {
		t.Errorf("Offsets = %v, want j: 0", out.Offsets)
	}
}

func TestRenderJSONWithoutRoutes(t *testing.T) {
	d, err := document.Parse([]byte(doc), document.Options{})
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	l, err := resolve.Resolve(d, resolve.Options{})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	data, err := RenderJSON(d, l)
	if err != nil {
		t.Fatalf("RenderJSON() error: %v", err)
	}
	var out output
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("json.Unmarshal() error: %v", err)
	}
	if out.Lines != nil || out.Offsets != nil {
		t.Errorf("routes present without WithRoutes: %+v", out)
	}
}
