package tiles

import (
	"errors"
	"math"
	"testing"

	"github.com/paulmach/orb"
)

func approx(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestTileBound(t *testing.T) {
	world := TileBound(0, 0, 0, EPSG4326)
	if !approx(world.Min[0], -180, 1e-9) || !approx(world.Max[0], 180, 1e-9) {
		t.Errorf("longitude range %v, %v", world.Min[0], world.Max[0])
	}
	if !approx(world.Max[1], MaxLatitude, 1e-6) || !approx(world.Min[1], -MaxLatitude, 1e-6) {
		t.Errorf("latitude range %v, %v", world.Min[1], world.Max[1])
	}

	merc := TileBound(0, 0, 0, EPSG3857)
	if !approx(merc.Max[0], MercatorLimit, 1e-3) || !approx(merc.Max[1], MercatorLimit, 1) {
		t.Errorf("unexpected mercator world bound %v", merc)
	}

	// z1 tile 1/0 is the north east quarter.
	ne := TileBound(1, 0, 1, EPSG4326)
	if !approx(ne.Min[0], 0, 1e-9) || !approx(ne.Min[1], 0, 1e-9) {
		t.Errorf("expected north east quarter to start at the origin, got %v", ne.Min)
	}
}

func TestPixelRoundTrip(t *testing.T) {
	b := orb.Bound{Min: orb.Point{-10, 20}, Max: orb.Point{30, 60}}
	for _, px := range []float64{-12.5, 0, 37.5, 128, 256, 300} {
		x := LongitudeFromPixel(256, b, px)
		if got := PixelFromLongitude(256, b, x); !approx(got, px, 1e-9) {
			t.Errorf("x pixel %v round tripped to %v", px, got)
		}
		y := LatitudeFromPixel(256, b, px)
		if got := PixelFromLatitude(256, b, y); !approx(got, px, 1e-9) {
			t.Errorf("y pixel %v round tripped to %v", px, got)
		}
	}

	if got := PixelFromLatitude(256, b, b.Max[1]); got != 0 {
		t.Errorf("top edge should be pixel row 0, got %v", got)
	}
	if got := PixelFromLongitude(256, b, b.Max[0]); got != 256 {
		t.Errorf("right edge should be pixel 256, got %v", got)
	}
}

func TestExpandBound(t *testing.T) {
	tests := []struct {
		name string
		b    orb.Bound
		proj Projection
	}{
		{"mercator tile", TileBound(3, 2, 3, EPSG3857), EPSG3857},
		{"wgs84 tile", TileBound(10, 7, 4, EPSG4326), EPSG4326},
		{"world", TileBound(0, 0, 0, EPSG3857), EPSG3857},
		{"corner tile", TileBound(0, 0, 2, EPSG4326), EPSG4326},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExpandBound(tt.b, tt.proj, 256, 256, 12, 20)
			world := tt.proj.WorldBound()

			clamped := tt.proj.Clamp(tt.b)
			if !got.Contains(clamped.Min) || !got.Contains(clamped.Max) {
				t.Errorf("expanded %v does not contain %v", got, clamped)
			}
			if !world.Contains(got.Min) || !world.Contains(got.Max) {
				t.Errorf("expanded %v escapes world %v", got, world)
			}
		})
	}
}

func TestExpandBound_Overlap(t *testing.T) {
	b := orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{256, 256}}
	got := ExpandBound(b, EPSG3857, 256, 256, 10, 5)
	want := orb.Bound{Min: orb.Point{-10, -5}, Max: orb.Point{266, 261}}
	if !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestToleranceDistance(t *testing.T) {
	z0 := ToleranceDistance(0, 256)
	if !approx(z0, 2*MercatorLimit/256, 1e-6) {
		t.Errorf("unexpected z0 tolerance %v", z0)
	}
	if z1 := ToleranceDistance(1, 256); !approx(z1, z0/2, 1e-6) {
		t.Errorf("tolerance should halve per zoom, got %v", z1)
	}
	if got := ToleranceDistance(0, 0); got != z0 {
		t.Errorf("zero tile size should use the default, got %v", got)
	}

	req := NewTileRequest(0, 0, 0)
	req.Width, req.Height = 256, 256
	if got := req.Tolerance(); got != z0 {
		t.Errorf("tile request tolerance %v, want %v", got, z0)
	}

	bounded := NewBoundRequest(TileBound(0, 0, 0, EPSG3857), EPSG3857, 256, 256)
	if got := bounded.Tolerance(); !approx(got, z0, 1e-2) {
		t.Errorf("bound request tolerance %v, want %v", got, z0)
	}
}

func TestProjection(t *testing.T) {
	p, err := ProjectionForSRS(900913)
	if err != nil || p != EPSG3857 {
		t.Errorf("expected 900913 to map to web mercator, got %v %v", p, err)
	}
	if _, err := ProjectionForSRS(27700); !errors.Is(err, ErrUnsupportedProjection) {
		t.Errorf("expected ErrUnsupportedProjection, got %v", err)
	}

	m := EPSG4326.Transform(EPSG3857)(orb.Point{180, 90})
	if !approx(m[0], MercatorLimit, 1e-3) || math.IsInf(m[1], 0) || !approx(m[1], MercatorLimit, 1) {
		t.Errorf("pole should clamp to the mercator limit, got %v", m)
	}

	back := EPSG3857.Transform(EPSG4326)(orb.Point{0, 0})
	if !approx(back[0], 0, 1e-9) || !approx(back[1], 0, 1e-9) {
		t.Errorf("origin should map to origin, got %v", back)
	}

	if s := EPSG4326.String(); s != "EPSG:4326" {
		t.Errorf("unexpected name %q", s)
	}
}
