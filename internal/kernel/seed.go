package kernel

import "github.com/gogpu/tegaki/gpucore"

// SeedClear writes the sentinel to every texel of dst.
func SeedClear(inv *Invocation, y0, y1 int) {
	w, y0, y1 := rows(inv.Params, inv.Dst, y0, y1)
	for y := y0; y < y1; y++ {
		for x := range w {
			inv.Dst.Set(y*w+x, SentinelTexel)
		}
	}
}

// SeedInit scatters seed Params.SeedIndex into dst.
//
// The dispatch grid is offset by (OriginX, OriginY) so a pass only visits
// the seed's footprint. A texel is covered when its centre lies within
// gpucore.CoverRadius of the segment; it then stores
// (cx, cy, halfWidth, index+1) where (cx, cy) is the closest point on the
// segment. A texel already holding a seed is replaced only when the new
// capsule distance is strictly smaller, so running the passes in index
// order lets the lower index win ties.
func SeedInit(inv *Invocation, y0, y1 int) {
	p := inv.Params
	idx := int(p.SeedIndex)
	if idx >= int(p.SeedCount) || idx >= len(inv.Seeds) {
		return
	}
	s := &inv.Seeds[idx]
	w, h := int(p.Width), int(p.Height)
	if inv.Dst.Len() < w*h {
		return
	}
	gw := inv.GridWidth
	if gw <= 0 {
		gw = w
	}

	for gy := y0; gy < y1; gy++ {
		y := int(p.OriginY) + gy
		if y < 0 || y >= h {
			continue
		}
		py := float32(y) + 0.5
		for gx := range gw {
			x := int(p.OriginX) + gx
			if x >= w {
				break
			}
			px := float32(x) + 0.5

			cx, cy, d := closestOnSeed(s, px, py)
			if !(d <= gpucore.CoverRadius) {
				continue
			}
			i := y*w + x
			if cur := inv.Dst.At(i); !IsSentinel(cur) {
				if _, curDist := inv.resolve(cur, px, py); !(d-s.HalfWidth < curDist) {
					continue
				}
			}
			inv.Dst.Set(i, [4]float32{cx, cy, s.HalfWidth, float32(idx + 1)})
		}
	}
}

// closestOnSeed returns the point of the seed segment closest to (px, py)
// and its distance. Zero-length segments are dots.
func closestOnSeed(s *gpucore.EdgeSeed, px, py float32) (cx, cy, dist float32) {
	dx := s.BX - s.AX
	dy := s.BY - s.AY
	l2 := dx*dx + dy*dy
	var t float32
	if l2 > 0 {
		t = clamp01(((px-s.AX)*dx + (py-s.AY)*dy) / l2)
	}
	cx = s.AX + t*dx
	cy = s.AY + t*dy
	ex := px - cx
	ey := py - cy
	return cx, cy, sqrt32(ex*ex + ey*ey)
}
