package kernel

import (
	"math"
	"slices"
	"testing"

	"github.com/gogpu/tegaki/gpucore"
)

// runField executes seed_clear, seed_init, the jump flooding passes and
// encode on a w x h grid, processing rows in bands of the given height.
// It returns the field texels and the index of the buffer that held the
// nearest-seed result.
func runField(t *testing.T, seeds []gpucore.EdgeSeed, w, h int, rangeTexels float32, band int) (Texels, int) {
	t.Helper()

	n := w * h * 4
	bufs := [2]Texels{make(Texels, n), make(Texels, n)}
	field := make(Texels, n)
	params := gpucore.PassParams{
		Width:     uint32(w),
		Height:    uint32(h),
		SeedCount: uint32(len(seeds)),
		Range:     rangeTexels,
	}

	dispatch := func(k Kernel, inv *Invocation) {
		for y := 0; y < h; y += band {
			k(inv, y, min(y+band, h))
		}
	}

	dispatch(SeedClear, &Invocation{Params: params, Dst: bufs[0]})
	scatter(seeds, params, bufs[0])

	iters := Iterations(w, h, 0)
	for pass := range iters {
		p := params
		p.Step = uint32(StepSize(iters, pass))
		dispatch(JFAStep, &Invocation{Params: p, Seeds: seeds, Src: bufs[pass%2], Dst: bufs[1-pass%2]})
	}

	result := ResultIndex(iters)
	dispatch(Encode, &Invocation{Params: params, Src: bufs[result], Dst: field})
	return field, result
}

// scatter runs one seed_init pass per seed over its footprint.
func scatter(seeds []gpucore.EdgeSeed, params gpucore.PassParams, dst Texels) {
	w, h := int(params.Width), int(params.Height)
	for k, s := range seeds {
		x, y, fw, fh, ok := gpucore.SeedFootprint(s, w, h)
		if !ok {
			continue
		}
		p := params
		p.SeedIndex = uint32(k)
		p.OriginX = uint32(x)
		p.OriginY = uint32(y)
		SeedInit(&Invocation{Params: p, Seeds: seeds, Dst: dst, GridWidth: fw}, 0, fh)
	}
}

// bruteValue is the exact encoded value for a single-seed field.
func bruteValue(s gpucore.EdgeSeed, x, y int, rangeTexels float32) float32 {
	_, _, d := closestOnSeed(&s, float32(x)+0.5, float32(y)+0.5)
	return EncodeValue(d-s.HalfWidth, rangeTexels)
}

func TestIterations(t *testing.T) {
	tests := []struct {
		w, h, limit int
		want        int
	}{
		{64, 64, 12, 6},
		{256, 256, 12, 8},
		{4096, 4096, 12, 12},
		{4096, 4096, 6, 6},
		{4096, 64, 0, 12},
		{65, 1, 0, 7},
		{1, 1, 12, 1},
		{2, 1, 12, 1},
	}
	for _, tt := range tests {
		if got := Iterations(tt.w, tt.h, tt.limit); got != tt.want {
			t.Errorf("Iterations(%d, %d, %d) = %d, want %d", tt.w, tt.h, tt.limit, got, tt.want)
		}
	}
}

func TestStepSize(t *testing.T) {
	var got []int
	for pass := range 6 {
		got = append(got, StepSize(6, pass))
	}
	want := []int{32, 16, 8, 4, 2, 1}
	if !slices.Equal(got, want) {
		t.Errorf("steps = %v, want %v", got, want)
	}
}

func TestResultIndexParity(t *testing.T) {
	seeds := []gpucore.EdgeSeed{{AX: 3, AY: 3, BX: 5, BY: 3, HalfWidth: 1}}

	// 64 needs 6 passes (even), 128 needs 7 (odd).
	for _, size := range []int{64, 128} {
		field, result := runField(t, seeds, size, size, 4, size)
		iters := Iterations(size, size, 0)
		if result != iters%2 {
			t.Errorf("size %d: result buffer = %d, want %d", size, result, iters%2)
		}
		// The far corner is only reachable through flooding; reading the
		// wrong buffer leaves it unassigned after an odd pass count.
		far := field.At(size*size - 1)
		if far[3] != 1 {
			t.Errorf("size %d: far corner not assigned: %v", size, far)
		}
	}
}

func TestSeedClear(t *testing.T) {
	dst := make(Texels, 4*4*4)
	SeedClear(&Invocation{Params: gpucore.PassParams{Width: 4, Height: 4}, Dst: dst}, 0, 4)
	for i := range dst.Len() {
		if got := dst.At(i); got != SentinelTexel {
			t.Fatalf("texel %d = %v, want sentinel", i, got)
		}
	}
}

func TestSeedInitTieBreak(t *testing.T) {
	// Two identical seeds: the lower index must win.
	s := gpucore.EdgeSeed{AX: 0.5, AY: 0.5, BX: 3.5, BY: 0.5, HalfWidth: 1}
	seeds := []gpucore.EdgeSeed{s, s}
	dst := make(Texels, 4*1*4)
	params := gpucore.PassParams{Width: 4, Height: 1, SeedCount: 2}

	SeedClear(&Invocation{Params: params, Dst: dst}, 0, 1)
	scatter(seeds, params, dst)

	for i := range 4 {
		got := dst.At(i)
		if got[3] != 1 {
			t.Errorf("texel %d seed index = %v, want 1 (first seed)", i, got[3])
		}
	}
}

func TestSeedInitCoverage(t *testing.T) {
	seeds := []gpucore.EdgeSeed{{AX: 2.5, AY: 4.5, BX: 12.5, BY: 4.5, HalfWidth: 2}}
	w, h := 16, 8
	dst := make(Texels, w*h*4)
	params := gpucore.PassParams{Width: uint32(w), Height: uint32(h), SeedCount: 1}

	SeedClear(&Invocation{Params: params, Dst: dst}, 0, h)
	scatter(seeds, params, dst)

	for y := range h {
		for x := range w {
			got := dst.At(y*w + x)
			onLine := y == 4 && x >= 2 && x <= 12
			if onLine && IsSentinel(got) {
				t.Errorf("texel (%d,%d) on the segment is unassigned", x, y)
			}
			if y != 4 && !IsSentinel(got) {
				t.Errorf("texel (%d,%d) one row off the segment is assigned: %v", x, y, got)
			}
		}
	}
}

func TestSeedInitCloserSeedWins(t *testing.T) {
	// The wider capsule is closer in capsule distance even though it comes
	// second.
	seeds := []gpucore.EdgeSeed{
		{AX: 0.5, AY: 0.5, BX: 3.5, BY: 0.5, HalfWidth: 1},
		{AX: 0.5, AY: 0.5, BX: 3.5, BY: 0.5, HalfWidth: 2},
	}
	dst := make(Texels, 4*1*4)
	params := gpucore.PassParams{Width: 4, Height: 1, SeedCount: 2}

	SeedClear(&Invocation{Params: params, Dst: dst}, 0, 1)
	scatter(seeds, params, dst)

	for i := range 4 {
		if got := dst.At(i); got[3] != 2 || got[2] != 2 {
			t.Errorf("texel %d = %v, want second seed", i, got)
		}
	}
}

func TestSeedInitIgnoresOutOfRangeIndex(t *testing.T) {
	dst := make(Texels, 4*4)
	SeedClear(&Invocation{Params: gpucore.PassParams{Width: 2, Height: 2}, Dst: dst}, 0, 2)
	p := gpucore.PassParams{Width: 2, Height: 2, SeedCount: 1, SeedIndex: 3}
	SeedInit(&Invocation{Params: p, Seeds: []gpucore.EdgeSeed{{}}, Dst: dst}, 0, 2)
	for i := range 4 {
		if !IsSentinel(dst.At(i)) {
			t.Errorf("texel %d assigned by out-of-range seed index", i)
		}
	}
}

func TestJFAMatchesBruteForce(t *testing.T) {
	seed := gpucore.EdgeSeed{AX: 10.3, AY: 7.9, BX: 40.1, BY: 33.2, HalfWidth: 3}
	w, h := 64, 48
	field, _ := runField(t, []gpucore.EdgeSeed{seed}, w, h, 4, 7)

	for y := range h {
		for x := range w {
			got := field.At(y*w + x)[0]
			want := bruteValue(seed, x, y, 4)
			if math.Abs(float64(got-want)) > 1e-5 {
				t.Fatalf("texel (%d,%d) = %v, want %v", x, y, got, want)
			}
		}
	}
}

func TestJFADeterministicAcrossPartitions(t *testing.T) {
	seeds := []gpucore.EdgeSeed{
		{AX: 5, AY: 5, BX: 30, BY: 12, HalfWidth: 2},
		{AX: 30, AY: 12, BX: 18, BY: 40, HalfWidth: 4},
		{AX: 18, AY: 40, BX: 50, BY: 50, HalfWidth: 1.5},
	}
	a, _ := runField(t, seeds, 64, 64, 4, 64)
	b, _ := runField(t, seeds, 64, 64, 4, 3)
	c, _ := runField(t, seeds, 64, 64, 4, 1)
	if !slices.Equal(a, b) || !slices.Equal(a, c) {
		t.Error("field differs between row partitions")
	}
}

func TestFieldRangeAndFinite(t *testing.T) {
	seeds := []gpucore.EdgeSeed{
		{AX: 1, AY: 1, BX: 1, BY: 1, HalfWidth: 0},
		{AX: 100, AY: 2, BX: 120, BY: 30, HalfWidth: 8},
	}
	w, h := 128, 32
	field, _ := runField(t, seeds, w, h, 2, 16)
	for i := range field.Len() {
		v := field.At(i)
		for c, ch := range v {
			if math.IsNaN(float64(ch)) || math.IsInf(float64(ch), 0) {
				t.Fatalf("texel %d channel %d is not finite", i, c)
			}
		}
		if v[0] < 0 || v[0] > 1 {
			t.Fatalf("texel %d value %v out of [0,1]", i, v[0])
		}
	}
}

func TestCenterlineAndBoundary(t *testing.T) {
	const rng = 4
	tests := []struct {
		name      string
		halfWidth float32
		x, y      int
		want      float32
	}{
		{"hairline centerline", 0, 16, 16, 0.5},
		{"capsule boundary", 3, 16, 19, 0.5},
		{"capsule centerline", 3, 16, 16, 0.5 + 3.0/(2*rng)},
		{"far outside", 3, 16, 31, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seed := gpucore.EdgeSeed{AX: 4.5, AY: 16.5, BX: 28.5, BY: 16.5, HalfWidth: tt.halfWidth}
			field, _ := runField(t, []gpucore.EdgeSeed{seed}, 32, 32, rng, 32)
			got := field.At(tt.y*32 + tt.x)[0]
			if math.Abs(float64(got-tt.want)) > 1e-6 {
				t.Errorf("value at (%d,%d) = %v, want %v", tt.x, tt.y, got, tt.want)
			}
		})
	}
}

func TestEncodeSentinel(t *testing.T) {
	src := make(Texels, 2*4)
	src.Set(0, SentinelTexel)
	nan := float32(math.NaN())
	src.Set(1, [4]float32{nan, 0, 0, 1})
	dst := make(Texels, 2*4)

	Encode(&Invocation{Params: gpucore.PassParams{Width: 2, Height: 1, Range: 4}, Src: src, Dst: dst}, 0, 1)

	for i := range 2 {
		if got := dst.At(i); got != [4]float32{} {
			t.Errorf("texel %d = %v, want zero", i, got)
		}
	}
}

func TestEncodeValue(t *testing.T) {
	tests := []struct {
		sd, rng, want float32
	}{
		{0, 4, 0.5},
		{-8, 4, 1},
		{8, 4, 0},
		{4, 4, 0},
		{2, 4, 0.25},
		{float32(math.Inf(1)), 4, 0},
		{1, 0, 0},
	}
	for _, tt := range tests {
		if got := EncodeValue(tt.sd, tt.rng); got != tt.want {
			t.Errorf("EncodeValue(%v, %v) = %v, want %v", tt.sd, tt.rng, got, tt.want)
		}
	}
}

func TestSmoothstep(t *testing.T) {
	tests := []struct {
		e0, e1, x, want float32
	}{
		{0, 1, -1, 0},
		{0, 1, 0.5, 0.5},
		{0, 1, 2, 1},
		{0.5, 0.5, 0.5, 1},
		{0.5, 0.5, 0.49, 0},
	}
	for _, tt := range tests {
		if got := Smoothstep(tt.e0, tt.e1, tt.x); got != tt.want {
			t.Errorf("Smoothstep(%v, %v, %v) = %v, want %v", tt.e0, tt.e1, tt.x, got, tt.want)
		}
	}
}

func TestSampleFieldBilinear(t *testing.T) {
	field := make(Texels, 2*4)
	field.Set(0, [4]float32{0})
	field.Set(1, [4]float32{1})

	tests := []struct {
		u, want float32
	}{
		{0.5, 0},
		{1.5, 1},
		{1.0, 0.5},
		{-3, 0},
		{9, 1},
	}
	for _, tt := range tests {
		if got := SampleField(field, 2, 1, tt.u, 0.5); got != tt.want {
			t.Errorf("SampleField(u=%v) = %v, want %v", tt.u, got, tt.want)
		}
	}
}

func TestRenderModes(t *testing.T) {
	// Uniform field well inside the stroke.
	field := make(Texels, 4*4)
	for i := range 4 {
		field.Set(i, [4]float32{0.9, 0, 0, 1})
	}
	base := gpucore.PassParams{
		Width: 2, Height: 2,
		Threshold: 0.5, Smoothness: 0.0875, Opacity: 0.5,
		ColorR: 1, ColorG: 0.5, ColorB: 0,
		SampleCount: 4,
	}

	tests := []struct {
		name string
		mode gpucore.BrushMode
		want [4]float32
	}{
		{"pen", gpucore.ModePen, [4]float32{0.5, 0.25, 0, 0.5}},
		{"eraser", gpucore.ModeEraser, [4]float32{0, 0, 0, 0.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base
			p.Mode = tt.mode
			dst := make(Texels, 4*4)
			Render(&Invocation{Params: p, Src: field, Dst: dst}, 0, 2)
			for i := range 4 {
				if got := dst.At(i); got != tt.want {
					t.Errorf("texel %d = %v, want %v", i, got, tt.want)
				}
			}
		})
	}
}

func TestRenderOutsideIsTransparent(t *testing.T) {
	field := make(Texels, 4*4) // all zero: far outside
	dst := make(Texels, 4*4)
	p := gpucore.PassParams{Width: 2, Height: 2, Threshold: 0.5, Smoothness: 0.0875, Opacity: 1, ColorR: 1, SampleCount: 8}
	Render(&Invocation{Params: p, Src: field, Dst: dst}, 0, 2)
	for i := range 4 {
		if got := dst.At(i); got != [4]float32{} {
			t.Errorf("texel %d = %v, want transparent", i, got)
		}
	}
}

func TestLookup(t *testing.T) {
	for _, e := range gpucore.EntryPoints {
		if _, ok := Lookup(e); !ok {
			t.Errorf("Lookup(%q) not found", e)
		}
	}
	if _, ok := Lookup("main"); ok {
		t.Error("Lookup(main) found, want missing")
	}
}
