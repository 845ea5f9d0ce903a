package tegaki

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gogpu/tegaki/gpucore"
)

// drainTimeout bounds the wait for in-flight work when a frame is released
// after its context ended.
const drainTimeout = 2 * time.Second

// strokeFrame holds the per-invocation GPU resources of one stroke.
//
// The uniform arena has one PassParams slot per dispatch:
//
//	slot 0                 seed_clear
//	slot 1 .. n            seed_init, one per seed
//	slot n+1 .. n+iters    jfa_step, one per pass
//	slot n+iters+1         encode
//	slot n+iters+2         render
//
// The two ping-pong buffers hold seed texels; the render output reuses the
// one the JFA result is not in.
type strokeFrame struct {
	adapter gpucore.GPUAdapter
	handle  *passHandle
	budget  *memoryBudget
	log     *slog.Logger

	width, height int
	seedCount     int
	iterations    int
	reserved      uint64

	uniforms gpucore.BufferID
	seeds    gpucore.BufferID
	ping     [2]gpucore.BufferID
	field    gpucore.BufferID

	buffers  []gpucore.BufferID
	groups   []gpucore.BindGroupID
	released bool
}

// frameBytes returns the memory a frame of the given shape allocates.
func frameBytes(width, height, seedCount, iterations int) uint64 {
	texels := uint64(gpucore.TexelBufferSize(width, height)) //nolint:gosec // bounded by MaxTextureSize
	return 3*texels + uniformBytes(seedCount, iterations) + seedBytes(seedCount)
}

func uniformBytes(seedCount, iterations int) uint64 {
	return uint64(seedCount+iterations+3) * gpucore.UniformSlotSize //nolint:gosec // small positive counts
}

func seedBytes(seedCount int) uint64 {
	return uint64(max(seedCount, 1)) * gpucore.EdgeSeedSize //nolint:gosec // small positive count
}

// newStrokeFrame reserves budget and allocates the frame's buffers. On
// failure everything allocated so far is released.
func newStrokeFrame(a gpucore.GPUAdapter, h *passHandle, budget *memoryBudget, log *slog.Logger,
	width, height, seedCount, iterations int) (*strokeFrame, error) {
	f := &strokeFrame{
		adapter:    a,
		handle:     h,
		budget:     budget,
		log:        log,
		width:      width,
		height:     height,
		seedCount:  seedCount,
		iterations: iterations,
	}

	total := frameBytes(width, height, seedCount, iterations)
	if err := budget.reserve(total); err != nil {
		return nil, err
	}
	f.reserved = total

	texels := gpucore.TexelBufferSize(width, height)
	storage := gpucore.BufferUsageStorage | gpucore.BufferUsageCopyDst | gpucore.BufferUsageCopySrc

	var err error
	if f.uniforms, err = f.create(int(uniformBytes(seedCount, iterations)), gpucore.BufferUsageUniform|gpucore.BufferUsageCopyDst); err != nil { //nolint:gosec // bounded
		return nil, f.fail(err)
	}
	if f.seeds, err = f.create(int(seedBytes(seedCount)), gpucore.BufferUsageStorage|gpucore.BufferUsageCopyDst); err != nil { //nolint:gosec // bounded
		return nil, f.fail(err)
	}
	for i := range f.ping {
		if f.ping[i], err = f.create(texels, storage); err != nil {
			return nil, f.fail(err)
		}
	}
	if f.field, err = f.create(texels, storage); err != nil {
		return nil, f.fail(err)
	}
	return f, nil
}

func (f *strokeFrame) create(size int, usage gpucore.BufferUsage) (gpucore.BufferID, error) {
	id, err := f.adapter.CreateBuffer(size, usage)
	if err != nil {
		return gpucore.InvalidID, err
	}
	f.buffers = append(f.buffers, id)
	return id, nil
}

func (f *strokeFrame) fail(err error) error {
	f.release()
	return classify(err)
}

// Uniform slot indices.
func (f *strokeFrame) clearSlot() int     { return 0 }
func (f *strokeFrame) seedSlot(i int) int { return 1 + i }
func (f *strokeFrame) jfaSlot(k int) int  { return 1 + f.seedCount + k }
func (f *strokeFrame) encodeSlot() int    { return 1 + f.seedCount + f.iterations }
func (f *strokeFrame) renderSlot() int    { return 2 + f.seedCount + f.iterations }

// output returns the buffer the render pass writes: the ping-pong buffer
// not holding the JFA result.
func (f *strokeFrame) output(result int) gpucore.BufferID {
	return f.ping[1-result]
}

// writeParams uploads every slot of the uniform arena in one write. Slots
// without params stay zeroed.
func (f *strokeFrame) writeParams(slots map[int]gpucore.PassParams) error {
	arena := make([]byte, uniformBytes(f.seedCount, f.iterations))
	for slot, p := range slots {
		copy(arena[slot*gpucore.UniformSlotSize:], p.Bytes())
	}
	return f.adapter.WriteBuffer(f.uniforms, 0, arena)
}

// writeSeeds uploads the seed array.
func (f *strokeFrame) writeSeeds(seeds []gpucore.EdgeSeed) error {
	if len(seeds) == 0 {
		return nil
	}
	return f.adapter.WriteBuffer(f.seeds, 0, gpucore.SeedsToBytes(seeds))
}

// bind creates the bind group of one dispatch.
func (f *strokeFrame) bind(slot int, src, dst gpucore.BufferID) (gpucore.BindGroupID, error) {
	id, err := f.adapter.CreateBindGroup(f.handle.layout, []gpucore.BindGroupEntry{
		{Binding: gpucore.BindingParams, Buffer: f.uniforms, Offset: uint64(slot) * gpucore.UniformSlotSize, Size: gpucore.PassParamsSize}, //nolint:gosec // slot >= 0
		{Binding: gpucore.BindingSeeds, Buffer: f.seeds},
		{Binding: gpucore.BindingSrc, Buffer: src},
		{Binding: gpucore.BindingDst, Buffer: dst},
	})
	if err != nil {
		return gpucore.InvalidID, err
	}
	f.groups = append(f.groups, id)
	return id, nil
}

// dispatch records entry in its own compute pass over a width x height grid.
func (f *strokeFrame) dispatch(entry string, slot int, src, dst gpucore.BufferID, width, height int) error {
	group, err := f.bind(slot, src, dst)
	if err != nil {
		return err
	}
	x, y := gpucore.WorkgroupCount(width, height)
	pass := f.adapter.BeginComputePass("tegaki_" + entry)
	pass.SetPipeline(f.handle.pipeline(entry))
	pass.SetBindGroup(0, group)
	pass.Dispatch(x, y, 1)
	pass.End()
	return nil
}

// submit submits recorded passes and waits for them to finish.
func (f *strokeFrame) submit(ctx context.Context) error {
	if err := f.adapter.Submit(); err != nil {
		return err
	}
	return f.adapter.WaitIdle(ctx)
}

// read copies a texel buffer back to the host.
func (f *strokeFrame) read(id gpucore.BufferID) ([]byte, error) {
	size := uint64(gpucore.TexelBufferSize(f.width, f.height)) //nolint:gosec // bounded
	data, err := f.adapter.ReadBuffer(id, 0, size)
	if err != nil {
		return nil, err
	}
	if uint64(len(data)) != size {
		return nil, fmt.Errorf("tegaki: readback returned %d bytes, want %d", len(data), size)
	}
	return data, nil
}

// release destroys every resource of the frame and returns its budget.
// Work still in flight is drained first. Safe to call more than once.
func (f *strokeFrame) release() {
	if f.released {
		return
	}
	f.released = true

	if len(f.groups) > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
		if err := f.adapter.WaitIdle(ctx); err != nil {
			f.log.Warn("tegaki: drain before release", "err", err)
		}
		cancel()
	}

	for _, id := range f.groups {
		f.adapter.DestroyBindGroup(id)
	}
	f.groups = nil
	for _, id := range f.buffers {
		f.adapter.DestroyBuffer(id)
	}
	f.buffers = nil
	f.budget.release(f.reserved)
	f.reserved = 0
}
