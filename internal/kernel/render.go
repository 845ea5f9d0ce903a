package kernel

import (
	"math"

	"github.com/gogpu/tegaki/gpucore"
)

// Sub-sample offsets in sixteenths of a texel (D3D standard patterns).
var (
	samplePattern1 = [][2]float32{{0, 0}}
	samplePattern4 = [][2]float32{{-2, -6}, {6, -2}, {-6, 2}, {2, 6}}
	samplePattern8 = [][2]float32{{1, -3}, {-1, 3}, {5, 1}, {-3, -5}, {-5, 5}, {-7, -1}, {3, 7}, {7, -7}}
)

// SamplePattern returns the sub-sample offsets for a sample count. Counts
// other than 4 and 8 use a single centre sample.
func SamplePattern(count uint32) [][2]float32 {
	switch count {
	case 4:
		return samplePattern4
	case 8:
		return samplePattern8
	default:
		return samplePattern1
	}
}

// Smoothstep is the Hermite interpolation of x between e0 and e1. A
// degenerate edge (e1 <= e0) becomes a hard step at e0.
func Smoothstep(e0, e1, x float32) float32 {
	if e1 <= e0 {
		if x >= e0 {
			return 1
		}
		return 0
	}
	t := clamp01((x - e0) / (e1 - e0))
	return t * t * (3 - 2*t)
}

// Coverage converts a field value into coverage for the given threshold
// and smoothness.
func Coverage(v, threshold, smoothness float32) float32 {
	return Smoothstep(threshold-smoothness, threshold+smoothness, v)
}

// SampleField bilinearly samples channel 0 of a w x h field at texel-space
// position (u, v), where texel centres sit at i+0.5. Edges clamp.
func SampleField(field Texels, w, h int, u, v float32) float32 {
	fx := u - 0.5
	fy := v - 0.5
	x0f := float32(math.Floor(float64(fx)))
	y0f := float32(math.Floor(float64(fy)))
	tx := fx - x0f
	ty := fy - y0f
	x0 := clampInt(int(x0f), 0, w-1)
	y0 := clampInt(int(y0f), 0, h-1)
	x1 := clampInt(int(x0f)+1, 0, w-1)
	y1 := clampInt(int(y0f)+1, 0, h-1)

	f00 := fieldValue(field, y0*w+x0)
	f10 := fieldValue(field, y0*w+x1)
	f01 := fieldValue(field, y1*w+x0)
	f11 := fieldValue(field, y1*w+x1)

	top := f00 + (f10-f00)*tx
	bottom := f01 + (f11-f01)*tx
	return top + (bottom-top)*ty
}

func fieldValue(field Texels, i int) float32 {
	v := math.Float32frombits(field[i*4])
	if !finite(v) {
		return 0
	}
	return v
}

// Render rasterizes the stroke mask from the distance field in src.
//
// Output texels are premultiplied RGBA: (rgb*a, a) for the pen and
// (0, 0, 0, a) for the eraser, with a = coverage * opacity. Coverage is the
// mean of SampleCount sub-samples.
func Render(inv *Invocation, y0, y1 int) {
	w, y0, y1 := rows(inv.Params, inv.Dst, y0, y1)
	h := int(inv.Params.Height)
	if inv.Src.Len() < w*h {
		return
	}
	p := inv.Params
	pattern := SamplePattern(p.SampleCount)
	norm := 1 / float32(len(pattern))
	opacity := clamp01(p.Opacity)

	for y := y0; y < y1; y++ {
		for x := range w {
			var cov float32
			for _, o := range pattern {
				u := float32(x) + 0.5 + o[0]/16
				v := float32(y) + 0.5 + o[1]/16
				cov += Coverage(SampleField(inv.Src, w, h, u, v), p.Threshold, p.Smoothness)
			}
			a := clamp01(cov*norm) * opacity

			var out [4]float32
			if p.Mode == gpucore.ModeEraser {
				out = [4]float32{0, 0, 0, a}
			} else {
				out = [4]float32{clamp01(p.ColorR) * a, clamp01(p.ColorG) * a, clamp01(p.ColorB) * a, a}
			}
			inv.Dst.Set(y*w+x, out)
		}
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
