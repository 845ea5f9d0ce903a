package tegaki

import (
	"errors"
	"image"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/vector"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/gogpu/tegaki/internal/blend"
)

// ErrNilResult is returned by Composite for a nil result. A nil result
// comes from a failed stroke and must not be composited.
var ErrNilResult = errors.New("tegaki: composite of nil stroke result")

// CompositeOptions controls how a stroke is applied to a layer.
type CompositeOptions struct {
	// Selection limits compositing to a polygon in layer coordinates.
	// nil means no selection. A polygon with fewer than three vertices
	// selects nothing.
	Selection []r2.Vec
}

// Composite applies a stroke result to dst. Pen strokes use source-over,
// eraser strokes destination-out. The mask is resampled bilinearly from
// texture space into layer pixels; dst's origin is layer (0, 0).
func Composite(dst *image.RGBA, res *StrokeResult, opts CompositeOptions) error {
	if res == nil {
		return ErrNilResult
	}
	if res.Empty() || dst == nil {
		return nil
	}
	if opts.Selection != nil && len(opts.Selection) < 3 {
		return nil
	}
	r := res.LayerBounds().Intersect(dst.Bounds())
	if r.Empty() {
		return nil
	}

	// Texture to layer: layer = placement.origin + texel/scale.
	inv := 1 / res.Scale()
	s2d := f64.Aff3{
		inv, 0, res.Placement.X,
		0, inv, res.Placement.Y,
	}
	src := res.Image()
	scratch := image.NewRGBA(r)
	draw.BiLinear.Transform(scratch, s2d, src, src.Bounds(), draw.Src, nil)

	var mask *image.Alpha
	if opts.Selection != nil {
		mask = selectionMask(opts.Selection, r)
	}

	mode := res.Mode.blendMode()
	w := r.Dx()
	for y := r.Min.Y; y < r.Max.Y; y++ {
		do := dst.PixOffset(r.Min.X, y)
		so := scratch.PixOffset(r.Min.X, y)
		var m []byte
		if mask != nil {
			mo := (y - r.Min.Y) * mask.Stride
			m = mask.Pix[mo : mo+w]
		}
		blend.Span(mode, dst.Pix[do:do+w*4], scratch.Pix[so:so+w*4], m)
	}
	return nil
}

// selectionMask rasterizes the polygon into an alpha mask covering r.
func selectionMask(poly []r2.Vec, r image.Rectangle) *image.Alpha {
	z := vector.NewRasterizer(r.Dx(), r.Dy())
	ox, oy := float64(r.Min.X), float64(r.Min.Y)
	z.MoveTo(float32(poly[0].X-ox), float32(poly[0].Y-oy))
	for _, p := range poly[1:] {
		z.LineTo(float32(p.X-ox), float32(p.Y-oy))
	}
	z.ClosePath()

	mask := image.NewAlpha(image.Rect(0, 0, r.Dx(), r.Dy()))
	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	return mask
}
