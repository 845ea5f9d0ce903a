// Package edge converts pointer samples into capsule seeds for the distance
// field passes.
//
// A seed is a line segment with a half-width; its footprint is the capsule
// swept by a disc of that radius along the segment. Consecutive samples of a
// stroke produce one seed each, so the union of seeds covers the stroke.
package edge

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/gogpu/tegaki/gpucore"
)

// ErrDegenerate is returned when the input cannot produce any seed: fewer
// than two usable samples.
var ErrDegenerate = errors.New("edge: degenerate input")

// maxTiltDegrees is the tilt magnitude at which tilt modulation saturates.
const maxTiltDegrees = 90

// Sample is one pointer sample in layer space.
type Sample struct {
	X, Y         float64
	Pressure     float64 // 0..1
	TiltX, TiltY float64 // degrees, 0 when the device reports none
}

// Options controls seed generation.
type Options struct {
	// HalfWidth is the brush radius in layer pixels at full pressure.
	HalfWidth float64

	// PressureSensitivity blends between constant width (0) and width fully
	// proportional to pressure (1).
	PressureSensitivity float64

	// MinPressure is the smallest width factor pressure can produce.
	MinPressure float64

	// Spacing drops samples closer than this to the previously kept one.
	// The last sample is always kept.
	Spacing float64

	// TiltSensitivity widens the brush with pen tilt; 0 disables it.
	TiltSensitivity float64
}

// Seed is a capsule in layer space.
type Seed struct {
	A, B      r2.Vec
	HalfWidth float64
}

// Build returns one seed per pair of consecutive samples.
//
// Samples with non-finite coordinates are ignored. Zero-length pairs are
// dropped, except that a stroke whose samples all coincide (a tap) yields a
// single dot seed. Fewer than two usable samples return ErrDegenerate.
func Build(samples []Sample, opts Options) ([]Seed, error) {
	kept := filter(samples, opts.Spacing)
	if len(kept) < 2 {
		return nil, ErrDegenerate
	}

	seeds := make([]Seed, 0, len(kept)-1)
	for i := 1; i < len(kept); i++ {
		a, b := kept[i-1], kept[i]
		pa, pb := point(a), point(b)
		if pa == pb {
			continue
		}
		seeds = append(seeds, Seed{
			A:         pa,
			B:         pb,
			HalfWidth: math.Max(opts.halfWidth(a), opts.halfWidth(b)),
		})
	}

	if len(seeds) == 0 {
		// Every sample sits on the same spot.
		hw := 0.0
		for _, s := range kept {
			hw = math.Max(hw, opts.halfWidth(s))
		}
		p := point(kept[0])
		seeds = append(seeds, Seed{A: p, B: p, HalfWidth: hw})
	}
	return seeds, nil
}

// filter drops non-finite samples and samples closer than spacing to the
// previously kept one, always keeping the final usable sample.
func filter(samples []Sample, spacing float64) []Sample {
	kept := make([]Sample, 0, len(samples))
	for _, s := range samples {
		if !isFinite(s.X) || !isFinite(s.Y) {
			continue
		}
		kept = append(kept, s)
	}
	if spacing <= 0 || len(kept) < 3 {
		return kept
	}

	out := []Sample{kept[0]}
	for i := 1; i < len(kept); i++ {
		last := i == len(kept)-1
		if last || r2.Norm(r2.Sub(point(kept[i]), point(out[len(out)-1]))) >= spacing {
			out = append(out, kept[i])
		}
	}
	return out
}

func (o Options) halfWidth(s Sample) float64 {
	hw := math.Max(o.HalfWidth, 0)

	if o.PressureSensitivity > 0 {
		sens := math.Min(o.PressureSensitivity, 1)
		p := clamp01(s.Pressure)
		f := 1 - sens + sens*p
		hw *= math.Max(f, clamp01(o.MinPressure))
	}

	if o.TiltSensitivity > 0 {
		tilt := clamp01(math.Hypot(s.TiltX, s.TiltY) / maxTiltDegrees)
		hw *= 1 + o.TiltSensitivity*tilt
	}
	return hw
}

// MaxHalfWidth returns the largest half-width among seeds.
func MaxHalfWidth(seeds []Seed) float64 {
	m := 0.0
	for _, s := range seeds {
		m = math.Max(m, s.HalfWidth)
	}
	return m
}

// Bounds returns the axis-aligned box enclosing every seed's segment,
// grown by pad on each side.
func Bounds(seeds []Seed, pad float64) r2.Box {
	if len(seeds) == 0 {
		return r2.Box{}
	}
	lo := r2.Vec{X: math.Inf(1), Y: math.Inf(1)}
	hi := r2.Vec{X: math.Inf(-1), Y: math.Inf(-1)}
	for _, s := range seeds {
		for _, p := range [2]r2.Vec{s.A, s.B} {
			lo.X = math.Min(lo.X, p.X)
			lo.Y = math.Min(lo.Y, p.Y)
			hi.X = math.Max(hi.X, p.X)
			hi.Y = math.Max(hi.Y, p.Y)
		}
	}
	d := r2.Vec{X: pad, Y: pad}
	return r2.Box{Min: r2.Sub(lo, d), Max: r2.Add(hi, d)}
}

// ToTexels maps seeds into texture space: p' = (p - origin) * scale.
func ToTexels(seeds []Seed, origin r2.Vec, scale float64) []gpucore.EdgeSeed {
	out := make([]gpucore.EdgeSeed, len(seeds))
	for i, s := range seeds {
		a := r2.Scale(scale, r2.Sub(s.A, origin))
		b := r2.Scale(scale, r2.Sub(s.B, origin))
		out[i] = gpucore.EdgeSeed{
			AX:        float32(a.X),
			AY:        float32(a.Y),
			BX:        float32(b.X),
			BY:        float32(b.Y),
			HalfWidth: float32(s.HalfWidth * scale),
		}
	}
	return out
}

func point(s Sample) r2.Vec {
	return r2.Vec{X: s.X, Y: s.Y}
}

func clamp01(v float64) float64 {
	return math.Min(math.Max(v, 0), 1)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
