package kernel

// EncodeValue maps a signed capsule distance in texels to the normalized
// field value: 0.5 on the boundary, above 0.5 inside, 0 at rangeTexels or
// more outside. Non-finite results map to 0.
func EncodeValue(signedDist, rangeTexels float32) float32 {
	if !(rangeTexels > 0) {
		rangeTexels = 1
	}
	v := clamp01(0.5 - signedDist/(2*rangeTexels))
	if !finite(v) {
		return 0
	}
	return v
}

// Encode converts the nearest-seed texels in src into distance field
// texels in dst: (value, unsigned distance to the centreline, halfWidth,
// 1). Sentinel texels encode to all zeros, the maximally outside value.
func Encode(inv *Invocation, y0, y1 int) {
	w, y0, y1 := rows(inv.Params, inv.Dst, y0, y1)
	if inv.Src.Len() < w*y1 {
		return
	}
	for y := y0; y < y1; y++ {
		py := float32(y) + 0.5
		for x := range w {
			px := float32(x) + 0.5
			i := y*w + x
			t := inv.Src.At(i)
			if IsSentinel(t) || !finite(t[0]) || !finite(t[1]) || !finite(t[2]) {
				inv.Dst.Set(i, [4]float32{})
				continue
			}
			dx := px - t[0]
			dy := py - t[1]
			d := sqrt32(dx*dx + dy*dy)
			v := EncodeValue(d-t[2], inv.Params.Range)
			if !finite(d) {
				d = 0
			}
			inv.Dst.Set(i, [4]float32{v, d, t[2], 1})
		}
	}
}
