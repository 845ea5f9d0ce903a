package gpucore

import (
	"encoding/binary"
	"math"
)

// GPU Data Structures
//
// These structures match the WGSL shader data layouts and are used
// for CPU-GPU data transfer. All structures use explicit padding
// for alignment compatibility.

// Sizes in bytes of the shared GPU structures.
const (
	EdgeSeedSize   = 32
	PassParamsSize = 64
	TexelSize      = 16
)

// UniformSlotSize is the stride between PassParams blocks packed into one
// uniform buffer. It satisfies minUniformBufferOffsetAlignment on every
// backend.
const UniformSlotSize = 256

// CoverRadius is the distance in texels from a seed segment within which
// seed_init assigns texels. Must match COVER_RADIUS in the WGSL sources.
const CoverRadius = 0.75

// Sentinel is the value stored in every channel of an unassigned seed texel.
// No valid texel coordinate is negative, so (-1,-1,-1,-1) cannot collide
// with a real seed.
const Sentinel float32 = -1

// EdgeSeed is one capsule seed in texel space.
// Must match the EdgeSeed struct in the WGSL sources.
type EdgeSeed struct {
	AX, AY    float32 // Segment start
	BX, BY    float32 // Segment end
	HalfWidth float32 // Capsule radius in texels
	Padding   [3]float32
}

// SeedsToBytes serializes seeds for upload, little-endian.
func SeedsToBytes(seeds []EdgeSeed) []byte {
	out := make([]byte, len(seeds)*EdgeSeedSize)
	for i, s := range seeds {
		o := out[i*EdgeSeedSize:]
		putF32(o[0:], s.AX)
		putF32(o[4:], s.AY)
		putF32(o[8:], s.BX)
		putF32(o[12:], s.BY)
		putF32(o[16:], s.HalfWidth)
	}
	return out
}

// SeedsFromWords decodes seeds from little-endian 32-bit words.
// Used by adapters that execute kernels on the CPU.
func SeedsFromWords(words []uint32) []EdgeSeed {
	n := len(words) / (EdgeSeedSize / 4)
	seeds := make([]EdgeSeed, n)
	for i := range seeds {
		w := words[i*(EdgeSeedSize/4):]
		seeds[i] = EdgeSeed{
			AX:        math.Float32frombits(w[0]),
			AY:        math.Float32frombits(w[1]),
			BX:        math.Float32frombits(w[2]),
			BY:        math.Float32frombits(w[3]),
			HalfWidth: math.Float32frombits(w[4]),
		}
	}
	return seeds
}

// BrushMode selects how the render pass fills color channels.
type BrushMode uint32

const (
	// ModePen writes premultiplied brush color.
	ModePen BrushMode = 0

	// ModeEraser writes coverage into alpha only; the compositor applies it
	// with a destination-out operator.
	ModeEraser BrushMode = 1
)

// PassParams is the uniform block shared by all passes.
// Must match the Params struct in the WGSL sources.
type PassParams struct {
	Width       uint32  // Texture width in texels
	Height      uint32  // Texture height in texels
	SeedCount   uint32  // Number of seeds in the seed buffer
	Step        uint32  // JFA step size in texels
	Range       float32 // Distance range in texels (encode)
	Threshold   float32 // Coverage threshold (render)
	Smoothness  float32 // Coverage transition half-width (render)
	Opacity     float32 // Brush opacity (render)
	ColorR      float32
	ColorG      float32
	ColorB      float32
	Mode        BrushMode
	SampleCount uint32 // Render sub-samples per texel: 1, 4 or 8
	SeedIndex   uint32 // Seed scattered by a seed_init pass
	OriginX     uint32 // Texel offset of the seed_init dispatch grid
	OriginY     uint32
}

// Bytes serializes the params as a 64-byte uniform block.
func (p PassParams) Bytes() []byte {
	out := make([]byte, PassParamsSize)
	binary.LittleEndian.PutUint32(out[0:], p.Width)
	binary.LittleEndian.PutUint32(out[4:], p.Height)
	binary.LittleEndian.PutUint32(out[8:], p.SeedCount)
	binary.LittleEndian.PutUint32(out[12:], p.Step)
	putF32(out[16:], p.Range)
	putF32(out[20:], p.Threshold)
	putF32(out[24:], p.Smoothness)
	putF32(out[28:], p.Opacity)
	putF32(out[32:], p.ColorR)
	putF32(out[36:], p.ColorG)
	putF32(out[40:], p.ColorB)
	binary.LittleEndian.PutUint32(out[44:], uint32(p.Mode))
	binary.LittleEndian.PutUint32(out[48:], p.SampleCount)
	binary.LittleEndian.PutUint32(out[52:], p.SeedIndex)
	binary.LittleEndian.PutUint32(out[56:], p.OriginX)
	binary.LittleEndian.PutUint32(out[60:], p.OriginY)
	return out
}

// PassParamsFromWords decodes a uniform block from 32-bit words.
func PassParamsFromWords(w []uint32) PassParams {
	if len(w) < PassParamsSize/4 {
		return PassParams{}
	}
	return PassParams{
		Width:       w[0],
		Height:      w[1],
		SeedCount:   w[2],
		Step:        w[3],
		Range:       math.Float32frombits(w[4]),
		Threshold:   math.Float32frombits(w[5]),
		Smoothness:  math.Float32frombits(w[6]),
		Opacity:     math.Float32frombits(w[7]),
		ColorR:      math.Float32frombits(w[8]),
		ColorG:      math.Float32frombits(w[9]),
		ColorB:      math.Float32frombits(w[10]),
		Mode:        BrushMode(w[11]),
		SampleCount: w[12],
		SeedIndex:   w[13],
		OriginX:     w[14],
		OriginY:     w[15],
	}
}

// TexelBufferSize returns the byte size of a width x height vec4<f32> buffer.
func TexelBufferSize(width, height int) int {
	return width * height * TexelSize
}

// BytesToTexels decodes a vec4<f32> buffer into [4]float32 texels.
func BytesToTexels(data []byte) [][4]float32 {
	n := len(data) / TexelSize
	out := make([][4]float32, n)
	for i := range out {
		o := data[i*TexelSize:]
		out[i] = [4]float32{getF32(o[0:]), getF32(o[4:]), getF32(o[8:]), getF32(o[12:])}
	}
	return out
}

// BytesToWords reinterprets little-endian bytes as 32-bit words.
// Trailing bytes that do not fill a word are dropped.
func BytesToWords(data []byte) []uint32 {
	out := make([]uint32, len(data)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	return out
}

// WordsToBytes serializes 32-bit words as little-endian bytes.
func WordsToBytes(words []uint32) []byte {
	out := make([]byte, len(words)*4)
	for i, w := range words {
		binary.LittleEndian.PutUint32(out[i*4:], w)
	}
	return out
}

func putF32(b []byte, v float32) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
}

func getF32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

// SeedFootprint returns the texel rectangle a seed_init pass for s must
// cover on a width x height grid: the segment bounds grown by CoverRadius,
// clipped to the grid. ok is false when the footprint misses the grid.
func SeedFootprint(s EdgeSeed, width, height int) (x, y, w, h int, ok bool) {
	const margin = CoverRadius + 1
	x0 := int(math.Floor(float64(min(s.AX, s.BX)) - margin))
	y0 := int(math.Floor(float64(min(s.AY, s.BY)) - margin))
	x1 := int(math.Ceil(float64(max(s.AX, s.BX)) + margin))
	y1 := int(math.Ceil(float64(max(s.AY, s.BY)) + margin))

	x0, y0 = max(x0, 0), max(y0, 0)
	x1, y1 = min(x1, width), min(y1, height)
	if x0 >= x1 || y0 >= y1 {
		return 0, 0, 0, 0, false
	}
	return x0, y0, x1 - x0, y1 - y0, true
}
