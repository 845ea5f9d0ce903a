package tegaki

import (
	"math"
	"math/bits"

	"gonum.org/v1/gonum/spatial/r2"
)

// SizePolicy bounds the texture size chosen for a stroke.
type SizePolicy struct {
	Min, Max int // powers of two

	// Tolerance is the relative aspect-ratio deviation accepted before the
	// short side is re-derived from the stroke's aspect.
	Tolerance float64
}

// SizeFor returns the power-of-two texture size for a stroke whose padded
// bounds are w x h layer pixels.
//
// Each side is clamped to [Min, Max] and rounded up to a power of two. When
// the resulting aspect deviates from w/h by more than Tolerance, the short
// side is re-derived from the long one; if the short side is stuck at Min
// the long side grows instead, up to Max. Extreme aspects cannot be matched
// exactly: SizeFor(1000, 10) yields 4096 x 64 with the default policy.
func SizeFor(w, h float64, p SizePolicy) (int, int) {
	if !(w > 0) || math.IsInf(w, 0) {
		w = 1
	}
	if !(h > 0) || math.IsInf(h, 0) {
		h = 1
	}
	tw := p.side(w)
	th := p.side(h)

	aspect := w / h
	if math.Abs(float64(tw)/float64(th)/aspect-1) <= p.Tolerance {
		return tw, th
	}

	if w >= h {
		th = p.side(float64(tw) / aspect)
		if th == p.Min {
			tw = max(tw, p.side(float64(th)*aspect))
		}
	} else {
		tw = p.side(float64(th) * aspect)
		if tw == p.Min {
			th = max(th, p.side(float64(tw)/aspect))
		}
	}
	return tw, th
}

// side clamps v to the policy range and rounds it up to a power of two.
func (p SizePolicy) side(v float64) int {
	lo, hi := max(p.Min, 1), max(p.Max, 1)
	n := nextPow2(int(math.Ceil(math.Min(v, float64(hi)))))
	return min(max(n, lo), hi)
}

func nextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// Placement is the layer-space rectangle covered by a stroke texture.
type Placement struct {
	X, Y          float64
	Width, Height float64
}

// Rect returns the placement as an r2.Box.
func (p Placement) Rect() r2.Box {
	return r2.Box{Min: r2.Vec{X: p.X, Y: p.Y}, Max: r2.Vec{X: p.X + p.Width, Y: p.Y + p.Height}}
}

// layout describes how one stroke maps into its texture.
type layout struct {
	width, height int
	scale         float64 // texels per layer pixel
	placement     Placement
	iterations    int
	rangeTexels   float32
}

// origin returns the layer-space position of texel (0, 0).
func (l layout) origin() r2.Vec {
	return r2.Vec{X: l.placement.X, Y: l.placement.Y}
}

// placeBounds centres a width x height texture on the stroke bounds with a
// uniform scale, so distances stay isotropic.
func placeBounds(b r2.Box, width, height int) (Placement, float64) {
	bw := math.Max(b.Max.X-b.Min.X, 1)
	bh := math.Max(b.Max.Y-b.Min.Y, 1)
	s := math.Min(float64(width)/bw, float64(height)/bh)
	pw := float64(width) / s
	ph := float64(height) / s
	cx := (b.Min.X + b.Max.X) / 2
	cy := (b.Min.Y + b.Max.Y) / 2
	return Placement{X: cx - pw/2, Y: cy - ph/2, Width: pw, Height: ph}, s
}
