package tegaki

import (
	"image"
	"math"
)

// StrokeResult is the rendered mask of one stroke.
//
// The mask covers Placement in layer space at Width x Height texels, with
// a uniform scale of Width/Placement.Width texels per layer pixel.
type StrokeResult struct {
	Placement     Placement
	Width, Height int

	// Mask holds premultiplied RGBA texels, row-major, 4 floats per texel.
	Mask []float32

	// Field holds the encoded distance value of every texel: 0.5 on the
	// stroke boundary, larger inside, 0 far outside. The centreline of a
	// stroke with half-width hw reads 0.5 + hw/(2*DistanceRange), clamped
	// to 1, so strokes wider than the range saturate rather than read 0.5.
	Field []float32

	Mode       BrushMode
	Iterations int // jump flooding passes used
}

// Empty reports whether the result has no mask.
func (r *StrokeResult) Empty() bool {
	return r == nil || r.Width == 0 || r.Height == 0 || len(r.Mask) < r.Width*r.Height*4
}

// Scale returns texels per layer pixel.
func (r *StrokeResult) Scale() float64 {
	if r.Empty() || r.Placement.Width <= 0 {
		return 0
	}
	return float64(r.Width) / r.Placement.Width
}

// LayerBounds returns the integer layer-space rectangle covered by the mask.
func (r *StrokeResult) LayerBounds() image.Rectangle {
	if r.Empty() {
		return image.Rectangle{}
	}
	p := r.Placement
	return image.Rect(
		int(math.Floor(p.X)), int(math.Floor(p.Y)),
		int(math.Ceil(p.X+p.Width)), int(math.Ceil(p.Y+p.Height)),
	)
}

// Image converts the mask to an 8-bit premultiplied image in texture space.
func (r *StrokeResult) Image() *image.RGBA {
	if r.Empty() {
		return image.NewRGBA(image.Rectangle{})
	}
	img := image.NewRGBA(image.Rect(0, 0, r.Width, r.Height))
	for i := range r.Width * r.Height {
		o := i * 4
		a := to8(r.Mask[o+3])
		// Rounding can push a channel above alpha; keep it premultiplied.
		img.Pix[o+0] = min(to8(r.Mask[o+0]), a)
		img.Pix[o+1] = min(to8(r.Mask[o+1]), a)
		img.Pix[o+2] = min(to8(r.Mask[o+2]), a)
		img.Pix[o+3] = a
	}
	return img
}

// AlphaAt returns the mask alpha of texel (x, y), or 0 outside the mask.
func (r *StrokeResult) AlphaAt(x, y int) float64 {
	if r.Empty() || x < 0 || y < 0 || x >= r.Width || y >= r.Height {
		return 0
	}
	return float64(r.Mask[(y*r.Width+x)*4+3])
}

// CoverageAt returns the bilinearly sampled mask alpha at a layer-space
// point. Points outside the placement have no coverage.
func (r *StrokeResult) CoverageAt(x, y float64) float64 {
	s := r.Scale()
	if s == 0 {
		return 0
	}
	p := r.Placement
	if x < p.X || y < p.Y || x > p.X+p.Width || y > p.Y+p.Height {
		return 0
	}
	u := (x-p.X)*s - 0.5
	v := (y-p.Y)*s - 0.5
	x0 := math.Floor(u)
	y0 := math.Floor(v)
	tx := u - x0
	ty := v - y0
	ix, iy := int(x0), int(y0)

	at := func(x, y int) float64 {
		x = min(max(x, 0), r.Width-1)
		y = min(max(y, 0), r.Height-1)
		return r.AlphaAt(x, y)
	}
	top := at(ix, iy)*(1-tx) + at(ix+1, iy)*tx
	bottom := at(ix, iy+1)*(1-tx) + at(ix+1, iy+1)*tx
	return top*(1-ty) + bottom*ty
}

func to8(v float32) uint8 {
	if !(v > 0) {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}
