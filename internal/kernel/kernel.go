// Package kernel contains CPU implementations of the stroke pipeline's
// compute entry points.
//
// Each kernel mirrors one WGSL entry point: it reads the same bindings
// (params, seeds, src, dst) and writes the same texel layout. Kernels are
// pure per-texel functions, so any partition of rows across goroutines
// produces bit-identical output.
package kernel

import (
	"math"

	"github.com/gogpu/tegaki/gpucore"
)

// Invocation holds the resources bound to one dispatch.
type Invocation struct {
	Params gpucore.PassParams
	Seeds  []gpucore.EdgeSeed
	Src    Texels
	Dst    Texels

	// GridWidth is the dispatch width in invocations (workgroups times
	// WorkgroupSize). Zero means Params.Width.
	GridWidth int
}

// Kernel executes an entry point for rows [y0, y1) of the dispatch grid.
type Kernel func(inv *Invocation, y0, y1 int)

var registry = map[string]Kernel{
	gpucore.EntrySeedClear: SeedClear,
	gpucore.EntrySeedInit:  SeedInit,
	gpucore.EntryJFAStep:   JFAStep,
	gpucore.EntryEncode:    Encode,
	gpucore.EntryRender:    Render,
}

// Lookup returns the kernel implementing an entry point.
func Lookup(entry string) (Kernel, bool) {
	k, ok := registry[entry]
	return k, ok
}

// Texels is a vec4<f32> storage buffer viewed as 32-bit words.
type Texels []uint32

// Len returns the number of texels in the buffer.
func (t Texels) Len() int {
	return len(t) / 4
}

// At returns texel i.
func (t Texels) At(i int) [4]float32 {
	w := t[i*4 : i*4+4]
	return [4]float32{
		math.Float32frombits(w[0]),
		math.Float32frombits(w[1]),
		math.Float32frombits(w[2]),
		math.Float32frombits(w[3]),
	}
}

// Set stores texel i.
func (t Texels) Set(i int, v [4]float32) {
	w := t[i*4 : i*4+4]
	w[0] = math.Float32bits(v[0])
	w[1] = math.Float32bits(v[1])
	w[2] = math.Float32bits(v[2])
	w[3] = math.Float32bits(v[3])
}

// SentinelTexel marks a texel with no seed assigned.
var SentinelTexel = [4]float32{gpucore.Sentinel, gpucore.Sentinel, gpucore.Sentinel, gpucore.Sentinel}

// IsSentinel reports whether a seed texel is unassigned.
func IsSentinel(v [4]float32) bool {
	return !(v[3] > 0)
}

// rows clamps a dispatch row range to the texture for kernels whose grid
// covers the whole texture. It returns the texture width and the clamped
// range; an empty range means there is nothing to do.
func rows(p gpucore.PassParams, dst Texels, y0, y1 int) (w, from, to int) {
	w = int(p.Width)
	h := int(p.Height)
	if y1 > h {
		y1 = h
	}
	if y0 < 0 {
		y0 = 0
	}
	if w <= 0 || y0 >= y1 || dst.Len() < w*y1 {
		return w, 0, 0
	}
	return w, y0, y1
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func finite(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func sqrt32(v float32) float32 {
	return float32(math.Sqrt(float64(v)))
}
