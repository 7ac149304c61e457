package geom

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/matzehuels/celldl/pkg/units"
)

func near(a, b r2.Vec) bool {
	return math.Abs(a.X-b.X) < 1e-6 && math.Abs(a.Y-b.Y) < 1e-6
}

func TestCentroid(t *testing.T) {
	got := Centroid([]r2.Vec{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 30}})
	if !near(got, r2.Vec{X: 20.0 / 3, Y: 10}) {
		t.Errorf("Centroid() = %v", got)
	}
}

func TestCentroidEmptyPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Centroid(nil) did not panic")
		}
	}()
	Centroid(nil)
}

func TestBearing(t *testing.T) {
	tests := []struct {
		degrees float64
		want    r2.Vec
	}{
		{0, r2.Vec{X: 1, Y: 0}},
		{90, r2.Vec{X: 0, Y: -1}},
		{180, r2.Vec{X: -1, Y: 0}},
		{-90, r2.Vec{X: 0, Y: 1}},
		{45, r2.Vec{X: math.Sqrt2 / 2, Y: -math.Sqrt2 / 2}},
	}
	for _, tt := range tests {
		if got := Bearing(tt.degrees); !near(got, tt.want) {
			t.Errorf("Bearing(%v) = %v, want %v", tt.degrees, got, tt.want)
		}
	}
}

func TestAdvance(t *testing.T) {
	tests := []struct {
		name    string
		from    r2.Vec
		degrees float64
		axis    units.Axis
		target  float64
		want    r2.Vec
		ok      bool
	}{
		{"right until x", r2.Vec{X: 0, Y: 5}, 0, units.X, 40, r2.Vec{X: 40, Y: 5}, true},
		{"up until y", r2.Vec{X: 3, Y: 50}, 90, units.Y, 10, r2.Vec{X: 3, Y: 10}, true},
		{"diagonal", r2.Vec{}, -45, units.Y, 20, r2.Vec{X: 20, Y: 20}, true},
		{"already there", r2.Vec{X: 7, Y: 7}, 0, units.X, 7, r2.Vec{X: 7, Y: 7}, true},
		{"parallel", r2.Vec{}, 0, units.Y, 10, r2.Vec{}, false},
		{"away", r2.Vec{}, 180, units.X, 10, r2.Vec{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Advance(tt.from, tt.degrees, tt.axis, tt.target)
			if ok != tt.ok || (ok && !near(got, tt.want)) {
				t.Errorf("Advance() = %v, %v; want %v, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestTrim(t *testing.T) {
	line := []r2.Vec{{X: 0, Y: 0}, {X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 50}}
	got := Trim(line, 10, 5)
	want := []r2.Vec{{X: 10, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 45}}
	if len(got) != len(want) {
		t.Fatalf("Trim() = %v, want %v", got, want)
	}
	for i := range want {
		if !near(got[i], want[i]) {
			t.Errorf("Trim()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if line[0] != (r2.Vec{}) {
		t.Errorf("Trim() modified its input")
	}

	short := Trim([]r2.Vec{{X: 0, Y: 0}, {X: 4, Y: 0}}, 10, 10)
	if !near(short[0], r2.Vec{}) || !near(short[1], r2.Vec{X: 4}) {
		t.Errorf("Trim(short) = %v, want unchanged", short)
	}
}

func TestOffset(t *testing.T) {
	// An L-shaped path: right then down (screen coordinates)
	path := []r2.Vec{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 100}}

	got := Offset(path, 4)
	want := []r2.Vec{{X: 0, Y: -4}, {X: 104, Y: -4}, {X: 104, Y: 100}}
	for i := range want {
		if !near(got[i], want[i]) {
			t.Errorf("Offset(4)[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	back := Offset(got, -4)
	for i := range path {
		if !near(back[i], path[i]) {
			t.Errorf("Offset(-4)[%d] = %v, want %v", i, back[i], path[i])
		}
	}

	straight := Offset([]r2.Vec{{X: 0, Y: 0}, {X: 50, Y: 0}, {X: 100, Y: 0}}, 2)
	for _, p := range straight {
		if math.Abs(p.Y+2) > 1e-9 {
			t.Errorf("Offset(straight) = %v, want y = -2", straight)
			break
		}
	}
}
