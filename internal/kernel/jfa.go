package kernel

import "math/bits"

// NeighborOffsets is the fixed scan order of a jump flooding step, in units
// of the step size. The current texel is examined before these.
var NeighborOffsets = [8][2]int{
	{1, 0}, {-1, 0}, {0, 1}, {0, -1},
	{1, 1}, {-1, -1}, {1, -1}, {-1, 1},
}

// Iterations returns the number of jump flooding passes for a w x h grid:
// ceil(log2(max(w, h))), capped at maxPasses and never below 1.
// A cap <= 0 means uncapped.
func Iterations(w, h, maxPasses int) int {
	m := max(w, h)
	n := 1
	if m > 1 {
		n = bits.Len(uint(m - 1))
	}
	if maxPasses > 0 && n > maxPasses {
		n = maxPasses
	}
	return max(n, 1)
}

// StepSize returns the step of pass index i counted from the first pass:
// pass 0 uses 2^(iterations-1), the last pass uses 1.
func StepSize(iterations, pass int) int {
	return 1 << (iterations - 1 - pass)
}

// ResultIndex returns which ping-pong buffer holds the result after the
// given number of passes. Pass k reads buffer k%2 and writes 1-k%2, so the
// seed buffer (index 0) holds the result when the pass count is even.
func ResultIndex(iterations int) int {
	return iterations % 2
}

// JFAStep runs one jump flooding pass from src into dst with step
// Params.Step.
//
// Candidates are compared by capsule distance from the texel centre to the
// seed they reference; a candidate replaces the current best only when it
// is strictly closer, so ties keep the first examined. Sentinel and
// out-of-range candidates are skipped.
func JFAStep(inv *Invocation, y0, y1 int) {
	w, y0, y1 := rows(inv.Params, inv.Dst, y0, y1)
	h := int(inv.Params.Height)
	step := int(inv.Params.Step)
	if step < 1 {
		step = 1
	}
	if inv.Src.Len() < w*h {
		return
	}

	for y := y0; y < y1; y++ {
		py := float32(y) + 0.5
		for x := range w {
			px := float32(x) + 0.5

			best := inv.Src.At(y*w + x)
			found := !IsSentinel(best)
			var bestDist float32
			if found {
				best, bestDist = inv.resolve(best, px, py)
			}

			for _, o := range NeighborOffsets {
				nx := x + o[0]*step
				ny := y + o[1]*step
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				c := inv.Src.At(ny*w + nx)
				if IsSentinel(c) {
					continue
				}
				c, d := inv.resolve(c, px, py)
				if !found || d < bestDist {
					found = true
					best = c
					bestDist = d
				}
			}

			if found {
				inv.Dst.Set(y*w+x, best)
			} else {
				inv.Dst.Set(y*w+x, SentinelTexel)
			}
		}
	}
}

// resolve re-projects a candidate onto the segment of the seed it came from
// and returns its capsule distance to (px, py). Candidates whose seed index
// is out of range keep their stored point.
func (inv *Invocation) resolve(c [4]float32, px, py float32) ([4]float32, float32) {
	idx := int(c[3]) - 1
	if idx >= 0 && idx < len(inv.Seeds) && idx < int(inv.Params.SeedCount) {
		s := &inv.Seeds[idx]
		cx, cy, d := closestOnSeed(s, px, py)
		return [4]float32{cx, cy, s.HalfWidth, c[3]}, d - s.HalfWidth
	}
	dx := px - c[0]
	dy := py - c[1]
	return c, sqrt32(dx*dx+dy*dy) - c[2]
}
