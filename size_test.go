package tegaki

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
)

func TestSizeFor(t *testing.T) {
	pol := DefaultPipelineConfig()
	base := pol.SizePolicy(false)
	tests := []struct {
		name   string
		w, h   float64
		policy SizePolicy
		wantW  int
		wantH  int
	}{
		{"square", 100, 100, base, 128, 128},
		{"tiny clamps to min", 10, 10, base, 64, 64},
		{"huge clamps to max", 5000, 5000, base, 4096, 4096},
		{"wide stroke", 80, 20, base, 256, 64},
		{"tall stroke", 20, 80, base, 64, 256},
		{"extreme aspect", 1000, 10, base, 4096, 64},
		{"non-finite", math.NaN(), math.Inf(1), base, 64, 64},
		{"preview limit", 3000, 1500, pol.SizePolicy(true), 1024, 512},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := SizeFor(tt.w, tt.h, tt.policy)
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("SizeFor(%v, %v) = %dx%d, want %dx%d", tt.w, tt.h, w, h, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestSizeForProperties(t *testing.T) {
	pol := DefaultPipelineConfig().SizePolicy(false)
	for _, dims := range [][2]float64{{1, 1}, {63, 65}, {333, 777}, {4096, 17}, {12345, 6789}} {
		w, h := SizeFor(dims[0], dims[1], pol)
		for _, v := range []int{w, h} {
			if v < pol.Min || v > pol.Max || v&(v-1) != 0 {
				t.Errorf("SizeFor(%v) = %dx%d, sides must be powers of two in [%d, %d]", dims, w, h, pol.Min, pol.Max)
			}
		}
	}
}

func TestPlaceBounds(t *testing.T) {
	b := r2.Box{Min: r2.Vec{X: -8, Y: 22}, Max: r2.Vec{X: 72, Y: 42}}
	p, s := placeBounds(b, 256, 64)
	if math.Abs(s-3.2) > 1e-12 {
		t.Errorf("scale = %v, want 3.2", s)
	}
	want := Placement{X: -8, Y: 22, Width: 80, Height: 20}
	const eps = 1e-9
	if math.Abs(p.X-want.X) > eps || math.Abs(p.Y-want.Y) > eps ||
		math.Abs(p.Width-want.Width) > eps || math.Abs(p.Height-want.Height) > eps {
		t.Errorf("placement = %+v, want %+v", p, want)
	}

	// A box narrower than the texture aspect is centred horizontally.
	p, s = placeBounds(r2.Box{Min: r2.Vec{X: 0, Y: 0}, Max: r2.Vec{X: 10, Y: 10}}, 128, 64)
	if math.Abs(s-6.4) > eps || math.Abs(p.X+5) > eps || math.Abs(p.Width-20) > eps || math.Abs(p.Y) > eps {
		t.Errorf("placeBounds(10x10 in 128x64) = %+v scale %v, want X -5 width 20 scale 6.4", p, s)
	}
}

func TestMemoryBudget(t *testing.T) {
	b := newMemoryBudget(100)
	if err := b.reserve(60); err != nil {
		t.Fatalf("reserve(60) = %v", err)
	}
	if b.fits(50) {
		t.Error("fits(50) = true with 60 of 100 used")
	}
	if err := b.reserve(50); err == nil {
		t.Error("reserve(50) over budget = nil error")
	}
	b.release(60)
	used, peak, limit := b.stats()
	if used != 0 || peak != 60 || limit != 100 {
		t.Errorf("stats() = %d, %d, %d, want 0, 60, 100", used, peak, limit)
	}
}
