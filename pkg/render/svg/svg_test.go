package svg

import (
	"strings"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/matzehuels/celldl/pkg/diagram"
	"github.com/matzehuels/celldl/pkg/document"
	"github.com/matzehuels/celldl/pkg/resolve"
	"github.com/matzehuels/celldl/pkg/route"
)

const membrane = `<cell-diagram width="500" height="300">
  <diagram>
    <compartment id="c" pos="(100, 100)" size="50%, 50%" class="cytosol">
      <quantity id="q" pos="50%, 50%" label="Na &amp; K"/>
      <transporter id="t" pos="right 50%"/>
    </compartment>
    <quantity id="qo" pos="(400, 175)" style="fill: #fd0"/>
  </diagram>
  <bond-graph>
    <potential id="u" quantity="q"/>
    <potential id="uo" quantity="qo"/>
    <flow id="v" transporter="t">
      <flux id="j" from="u" to="uo"/>
    </flow>
  </bond-graph>
</cell-diagram>`

func layout(t *testing.T, doc string) (*diagram.Diagram, *resolve.Layout) {
	t.Helper()
	d, err := document.Parse([]byte(doc), document.Options{})
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	l, err := resolve.Resolve(d, resolve.Options{})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	return d, l
}

func render(t *testing.T, opts ...Option) string {
	t.Helper()
	d, l := layout(t, membrane)
	routes, err := route.Route(d, l, route.Options{})
	if err != nil {
		t.Fatalf("Route() error: %v", err)
	}
	return string(RenderSVG(d, l, append([]Option{WithRoutes(routes)}, opts...)...))
}

func TestRenderSVG(t *testing.T) {
	out := render(t)

	for _, want := range []string{
		`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 500.0 300.0" width="500" height="300">`,
		`<marker id="arrow"`,
		`<rect id="c" class="compartment cytosol" x="100.00" y="100.00" width="200.00" height="150.00"`,
		`<rect id="q" class="quantity" x="182.00" y="163.00"`,
		`<rect id="qo" class="quantity" x="382.00" y="163.00" width="36.00" height="24.00" rx="4" fill="#fd0"`,
		`<circle id="u" class="potential" cx="180.00" cy="175.00" r="10.00"`,
		`<circle id="v" class="flow" cx="340.00" cy="175.00"`,
		`d="M190.00,175.00 L290.00,175.00 L340.00,175.00 L370.00,175.00"`,
		`>Na &amp; K</text>`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("RenderSVG() missing %q", want)
		}
	}
	if !strings.HasSuffix(out, "</svg>\n") {
		t.Error("RenderSVG() not closed")
	}
}

func TestRenderSVGTransporterOrientation(t *testing.T) {
	d, l := layout(t, membrane)
	out := string(RenderSVG(d, l, WithTransporterWidth(30)))
	// A transporter on a right side runs along y.
	want := `<rect id="t" class="transporter" x="294.00" y="160.00" width="12.00" height="30.00"`
	if !strings.Contains(out, want) {
		t.Errorf("RenderSVG() missing %q", want)
	}
}

func TestRenderSVGRoutedTransporterWidth(t *testing.T) {
	doc := strings.Replace(membrane, `<transporter id="t" pos="right 50%"/>`,
		`<transporter id="t" pos="right 50%" style="width: 120"/>`, 1)
	d, l := layout(t, doc)
	routes, err := route.Route(d, l, route.Options{})
	if err != nil {
		t.Fatalf("Route() error: %v", err)
	}

	out := string(RenderSVG(d, l, WithRoutes(routes), WithTransporterWidth(30)))
	want := `<rect id="t" class="transporter" x="294.00" y="115.00" width="12.00" height="120.00"`
	if !strings.Contains(out, want) {
		t.Errorf("RenderSVG() missing %q", want)
	}
}

func TestRenderSVGOptions(t *testing.T) {
	out := render(t, WithoutLabels(), WithNodeRadius(6))
	if strings.Contains(out, "<text") {
		t.Error("WithoutLabels() still wrote labels")
	}
	if !strings.Contains(out, `<circle id="u" class="potential" cx="180.00" cy="175.00" r="6.00"`) {
		t.Error("WithNodeRadius() not applied")
	}
}

func TestRenderSVGWithoutRoutes(t *testing.T) {
	d, err := document.Parse([]byte(membrane), document.Options{})
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	l, err := resolve.Resolve(d, resolve.Options{})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	out := string(RenderSVG(d, l))
	if strings.Contains(out, "<path class=\"flux\"") {
		t.Error("RenderSVG() drew lines without routes")
	}
	if n := strings.Count(out, "<circle"); n != 3 {
		t.Errorf("circles = %d, want 3", n)
	}
	if d.OfKind(diagram.KindFlux)[0].Key() != "j" {
		t.Fatal("fixture lost flux j")
	}
}

func TestPathData(t *testing.T) {
	tests := []struct {
		points []r2.Vec
		want   string
	}{
		{nil, ""},
		{[]r2.Vec{{X: 1, Y: 2}}, "M1.00,2.00"},
		{[]r2.Vec{{X: 0, Y: 0}, {X: 10.5, Y: -3}}, "M0.00,0.00 L10.50,-3.00"},
	}
	for _, tt := range tests {
		if got := PathData(tt.points); got != tt.want {
			t.Errorf("PathData(%v) = %q, want %q", tt.points, got, tt.want)
		}
	}
}
