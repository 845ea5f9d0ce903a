//go:build !nogpu

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/tegaki/gpucore"
	"github.com/gogpu/wgpu/hal"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// FenceTimeout bounds how long a submission may run before the device is
// considered lost.
const FenceTimeout = 5 * time.Second

// fencePoll is the slice WaitIdle waits on a fence between context checks.
const fencePoll = 20 * time.Millisecond

// maxBufferSize is the allocation limit reported to the pipeline.
const maxBufferSize = 256 << 20

// Adapter implements gpucore.GPUAdapter using wgpu/hal.
//
// Thread Safety: Adapter is safe for concurrent use. All resource
// operations are protected by a mutex.
type Adapter struct {
	mu sync.Mutex

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	name     string

	externalDevice bool // shared device, not destroyed on Destroy
	lost           bool

	logger atomic.Pointer[slog.Logger]

	// ID generation
	nextID atomic.Uint64

	// Resource tracking maps gpucore IDs to HAL handles
	buffers          map[gpucore.BufferID]*buffer
	shaderModules    map[gpucore.ShaderModuleID]hal.ShaderModule
	bindGroupLayouts map[gpucore.BindGroupLayoutID]hal.BindGroupLayout
	pipelineLayouts  map[gpucore.PipelineLayoutID]hal.PipelineLayout
	computePipelines map[gpucore.ComputePipelineID]hal.ComputePipeline
	bindGroups       map[gpucore.BindGroupID]hal.BindGroup

	recorded []recordedPass
	inflight []submission
}

type buffer struct {
	buf  hal.Buffer
	size uint64
}

type recordedPass struct {
	label      string
	dispatches []dispatch
}

type dispatch struct {
	pipeline gpucore.ComputePipelineID
	group    gpucore.BindGroupID
	x, y, z  uint32
}

// submission is a command buffer in flight and the fence it signals.
type submission struct {
	cmd   hal.CommandBuffer
	fence hal.Fence
}

// Open creates an adapter on a private Vulkan device. Discrete and
// integrated GPUs are preferred over software adapters.
func Open() (gpucore.GPUAdapter, error) {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, fmt.Errorf("%w: vulkan backend not registered", ErrUnavailable)
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("%w: create instance: %w", ErrUnavailable, err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoAdapter
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("%w: open device: %w", ErrUnavailable, err)
	}

	a := newAdapter(openDev.Device, openDev.Queue)
	a.instance = instance
	a.name = selected.Info.Name
	return a, nil
}

// NewFromProvider creates an adapter on the device of a host application.
// The provider must also implement HalDevice() any and HalQueue() any
// returning hal.Device and hal.Queue. The shared device is not destroyed
// by Destroy.
func NewFromProvider(provider gpucontext.DeviceProvider) (gpucore.GPUAdapter, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrProvider
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrProvider)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrProvider)
	}

	a := newAdapter(device, queue)
	a.externalDevice = true
	a.name = "shared"
	return a, nil
}

func newAdapter(device hal.Device, queue hal.Queue) *Adapter {
	a := &Adapter{
		device:           device,
		queue:            queue,
		buffers:          make(map[gpucore.BufferID]*buffer),
		shaderModules:    make(map[gpucore.ShaderModuleID]hal.ShaderModule),
		bindGroupLayouts: make(map[gpucore.BindGroupLayoutID]hal.BindGroupLayout),
		pipelineLayouts:  make(map[gpucore.PipelineLayoutID]hal.PipelineLayout),
		computePipelines: make(map[gpucore.ComputePipelineID]hal.ComputePipeline),
		bindGroups:       make(map[gpucore.BindGroupID]hal.BindGroup),
	}

	// Start ID generation at 1 (0 is invalid)
	a.nextID.Store(1)
	a.logger.Store(slog.New(nopHandler{}))
	return a
}

// SetLogger sets the logger used for adapter diagnostics. Nil disables
// logging.
func (a *Adapter) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	a.logger.Store(l)
}

func (a *Adapter) log() *slog.Logger {
	return a.logger.Load()
}

func (a *Adapter) newID() uint64 {
	return a.nextID.Add(1) - 1
}

// check reports whether the device can accept work. Must be called with mu
// held.
func (a *Adapter) check() error {
	if a.lost || a.device == nil {
		return gpucore.ErrDeviceLost
	}
	return nil
}

// markLost poisons the adapter. Must be called with mu held.
func (a *Adapter) markLost(reason error) {
	if !a.lost {
		a.log().Warn("wgpu: device lost", "err", reason)
	}
	a.lost = true
	a.recorded = nil
}

// === Capabilities ===

// Name returns the name of the physical adapter.
func (a *Adapter) Name() string {
	return "wgpu:" + a.name
}

// SupportsCompute returns true; every HAL device supports compute.
func (a *Adapter) SupportsCompute() bool {
	return true
}

// MaxBufferSize returns the maximum buffer size in bytes.
func (a *Adapter) MaxBufferSize() uint64 {
	return maxBufferSize
}

// === Shader Compilation ===

// CreateShaderModule compiles WGSL source.
func (a *Adapter) CreateShaderModule(src gpucore.ShaderSource) (gpucore.ShaderModuleID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.check(); err != nil {
		return gpucore.InvalidID, err
	}
	spirv, err := compileWGSL(src.WGSL)
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("%w: %s: %w", gpucore.ErrShaderCompile, src.Label, err)
	}
	mod, err := a.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  src.Label,
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("%w: %s: %w", gpucore.ErrShaderCompile, src.Label, err)
	}
	id := gpucore.ShaderModuleID(a.newID())
	a.shaderModules[id] = mod
	return id, nil
}

// compileWGSL compiles WGSL source to little-endian SPIR-V words.
func compileWGSL(source string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, err
	}
	code := make([]uint32, len(spirvBytes)/4)
	for i := range code {
		code[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return code, nil
}

// DestroyShaderModule releases a shader module.
func (a *Adapter) DestroyShaderModule(id gpucore.ShaderModuleID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if mod, ok := a.shaderModules[id]; ok {
		delete(a.shaderModules, id)
		a.device.DestroyShaderModule(mod)
	}
}

// === Buffer Management ===

// CreateBuffer creates a GPU buffer.
func (a *Adapter) CreateBuffer(size int, usage gpucore.BufferUsage) (gpucore.BufferID, error) {
	if size <= 0 {
		return gpucore.InvalidID, fmt.Errorf("wgpu: buffer size must be positive, got %d", size)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.check(); err != nil {
		return gpucore.InvalidID, err
	}
	if uint64(size) > maxBufferSize {
		return gpucore.InvalidID, fmt.Errorf("%w: %d bytes exceeds limit of %d", gpucore.ErrOutOfMemory, size, maxBufferSize)
	}
	buf, err := a.device.CreateBuffer(&hal.BufferDescriptor{
		Size:  uint64(size),
		Usage: convertBufferUsage(usage),
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("%w: create buffer of %d bytes: %w", gpucore.ErrOutOfMemory, size, err)
	}
	id := gpucore.BufferID(a.newID())
	a.buffers[id] = &buffer{buf: buf, size: uint64(size)}
	return id, nil
}

// DestroyBuffer releases a GPU buffer.
func (a *Adapter) DestroyBuffer(id gpucore.BufferID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if b, ok := a.buffers[id]; ok {
		delete(a.buffers, id)
		a.device.DestroyBuffer(b.buf)
	}
}

// WriteBuffer stages data for the next submission.
func (a *Adapter) WriteBuffer(id gpucore.BufferID, offset uint64, data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.check(); err != nil {
		return err
	}
	b, ok := a.buffers[id]
	if !ok {
		return fmt.Errorf("%w: buffer %d", gpucore.ErrInvalidResource, id)
	}
	if offset+uint64(len(data)) > b.size {
		return fmt.Errorf("wgpu: write of %d bytes at %d overflows buffer of %d", len(data), offset, b.size)
	}
	if len(data) > 0 {
		a.queue.WriteBuffer(b.buf, offset, data)
	}
	return nil
}

// ReadBuffer copies a buffer range through a staging buffer. It waits for
// all outstanding work first.
func (a *Adapter) ReadBuffer(id gpucore.BufferID, offset, size uint64) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.check(); err != nil {
		return nil, err
	}
	b, ok := a.buffers[id]
	if !ok {
		return nil, fmt.Errorf("%w: buffer %d", gpucore.ErrInvalidResource, id)
	}
	if offset+size > b.size || size == 0 {
		return nil, fmt.Errorf("wgpu: invalid read of %d bytes at %d from buffer of %d", size, offset, b.size)
	}

	staging, err := a.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "tegaki_readback",
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: staging buffer: %w", gpucore.ErrOutOfMemory, err)
	}
	defer a.device.DestroyBuffer(staging)

	encoder, err := a.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "tegaki_readback"})
	if err != nil {
		return nil, fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("tegaki_readback"); err != nil {
		return nil, fmt.Errorf("begin encoding: %w", err)
	}
	encoder.CopyBufferToBuffer(b.buf, staging, []hal.BufferCopy{
		{SrcOffset: offset, DstOffset: 0, Size: size},
	})
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("end encoding: %w", err)
	}
	if err := a.submitLocked(cmdBuf); err != nil {
		return nil, err
	}
	if err := a.waitLocked(context.Background()); err != nil {
		return nil, err
	}

	out := make([]byte, size)
	if err := a.queue.ReadBuffer(staging, 0, out); err != nil {
		return nil, fmt.Errorf("readback: %w", err)
	}
	return out, nil
}

// === Pipeline Management ===

// CreateBindGroupLayout creates a bind group layout.
func (a *Adapter) CreateBindGroupLayout(desc *gpucore.BindGroupLayoutDesc) (gpucore.BindGroupLayoutID, error) {
	if desc == nil {
		return gpucore.InvalidID, fmt.Errorf("wgpu: nil bind group layout descriptor")
	}
	entries := make([]gputypes.BindGroupLayoutEntry, len(desc.Entries))
	for i, e := range desc.Entries {
		entries[i] = gputypes.BindGroupLayoutEntry{
			Binding:    e.Binding,
			Visibility: gputypes.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: convertBindingType(e.Type)},
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.check(); err != nil {
		return gpucore.InvalidID, err
	}
	layout, err := a.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   desc.Label,
		Entries: entries,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("create bind group layout: %w", err)
	}
	id := gpucore.BindGroupLayoutID(a.newID())
	a.bindGroupLayouts[id] = layout
	return id, nil
}

// DestroyBindGroupLayout releases a bind group layout.
func (a *Adapter) DestroyBindGroupLayout(id gpucore.BindGroupLayoutID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if l, ok := a.bindGroupLayouts[id]; ok {
		delete(a.bindGroupLayouts, id)
		a.device.DestroyBindGroupLayout(l)
	}
}

// CreatePipelineLayout creates a pipeline layout.
func (a *Adapter) CreatePipelineLayout(layouts []gpucore.BindGroupLayoutID) (gpucore.PipelineLayoutID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.check(); err != nil {
		return gpucore.InvalidID, err
	}
	halLayouts := make([]hal.BindGroupLayout, len(layouts))
	for i, id := range layouts {
		l, ok := a.bindGroupLayouts[id]
		if !ok {
			return gpucore.InvalidID, fmt.Errorf("%w: bind group layout %d", gpucore.ErrInvalidResource, id)
		}
		halLayouts[i] = l
	}
	pl, err := a.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "tegaki_pipe_layout",
		BindGroupLayouts: halLayouts,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("create pipeline layout: %w", err)
	}
	id := gpucore.PipelineLayoutID(a.newID())
	a.pipelineLayouts[id] = pl
	return id, nil
}

// DestroyPipelineLayout releases a pipeline layout.
func (a *Adapter) DestroyPipelineLayout(id gpucore.PipelineLayoutID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if pl, ok := a.pipelineLayouts[id]; ok {
		delete(a.pipelineLayouts, id)
		a.device.DestroyPipelineLayout(pl)
	}
}

// CreateComputePipeline creates a compute pipeline.
func (a *Adapter) CreateComputePipeline(desc *gpucore.ComputePipelineDesc) (gpucore.ComputePipelineID, error) {
	if desc == nil {
		return gpucore.InvalidID, fmt.Errorf("wgpu: nil compute pipeline descriptor")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.check(); err != nil {
		return gpucore.InvalidID, err
	}
	mod, ok := a.shaderModules[desc.ShaderModule]
	if !ok {
		return gpucore.InvalidID, fmt.Errorf("%w: shader module %d", gpucore.ErrInvalidResource, desc.ShaderModule)
	}
	layout, ok := a.pipelineLayouts[desc.Layout]
	if !ok {
		return gpucore.InvalidID, fmt.Errorf("%w: pipeline layout %d", gpucore.ErrInvalidResource, desc.Layout)
	}
	pipe, err := a.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:   desc.Label,
		Layout:  layout,
		Compute: hal.ComputeState{Module: mod, EntryPoint: desc.EntryPoint},
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("%w: pipeline %q: %w", gpucore.ErrShaderCompile, desc.EntryPoint, err)
	}
	id := gpucore.ComputePipelineID(a.newID())
	a.computePipelines[id] = pipe
	return id, nil
}

// DestroyComputePipeline releases a compute pipeline.
func (a *Adapter) DestroyComputePipeline(id gpucore.ComputePipelineID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if p, ok := a.computePipelines[id]; ok {
		delete(a.computePipelines, id)
		a.device.DestroyComputePipeline(p)
	}
}

// CreateBindGroup binds buffer ranges to a layout. A zero Size binds the
// rest of the buffer.
func (a *Adapter) CreateBindGroup(layout gpucore.BindGroupLayoutID, entries []gpucore.BindGroupEntry) (gpucore.BindGroupID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.check(); err != nil {
		return gpucore.InvalidID, err
	}
	l, ok := a.bindGroupLayouts[layout]
	if !ok {
		return gpucore.InvalidID, fmt.Errorf("%w: bind group layout %d", gpucore.ErrInvalidResource, layout)
	}
	halEntries := make([]gputypes.BindGroupEntry, len(entries))
	for i, e := range entries {
		b, ok := a.buffers[e.Buffer]
		if !ok {
			return gpucore.InvalidID, fmt.Errorf("%w: buffer %d at binding %d", gpucore.ErrInvalidResource, e.Buffer, e.Binding)
		}
		size := e.Size
		if size == 0 {
			size = b.size - e.Offset
		}
		if e.Offset+size > b.size {
			return gpucore.InvalidID, fmt.Errorf("wgpu: binding %d range [%d, +%d) outside buffer of %d", e.Binding, e.Offset, size, b.size)
		}
		halEntries[i] = gputypes.BindGroupEntry{
			Binding:  e.Binding,
			Resource: gputypes.BufferBinding{Buffer: b.buf.NativeHandle(), Offset: e.Offset, Size: size},
		}
	}
	bg, err := a.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   "tegaki_bind_group",
		Layout:  l,
		Entries: halEntries,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("create bind group: %w", err)
	}
	id := gpucore.BindGroupID(a.newID())
	a.bindGroups[id] = bg
	return id, nil
}

// DestroyBindGroup releases a bind group.
func (a *Adapter) DestroyBindGroup(id gpucore.BindGroupID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if bg, ok := a.bindGroups[id]; ok {
		delete(a.bindGroups, id)
		a.device.DestroyBindGroup(bg)
	}
}

// === Command Recording and Execution ===

// BeginComputePass begins recording a compute pass.
func (a *Adapter) BeginComputePass(label string) gpucore.ComputePassEncoder {
	return &computePassEncoder{adapter: a, pass: recordedPass{label: label}}
}

// Submit encodes every pass ended since the previous Submit into one
// command buffer and submits it with its own fence.
func (a *Adapter) Submit() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.check(); err != nil {
		return err
	}
	passes := a.recorded
	a.recorded = nil
	if len(passes) == 0 {
		return nil
	}

	encoder, err := a.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "tegaki_encoder"})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("tegaki_passes"); err != nil {
		encoder.DiscardEncoding()
		return fmt.Errorf("begin encoding: %w", err)
	}
	for _, p := range passes {
		computePass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: p.label})
		for _, d := range p.dispatches {
			pipe, ok := a.computePipelines[d.pipeline]
			if !ok {
				computePass.End()
				encoder.DiscardEncoding()
				return fmt.Errorf("%w: compute pipeline %d in pass %q", gpucore.ErrInvalidResource, d.pipeline, p.label)
			}
			bg, ok := a.bindGroups[d.group]
			if !ok {
				computePass.End()
				encoder.DiscardEncoding()
				return fmt.Errorf("%w: bind group %d in pass %q", gpucore.ErrInvalidResource, d.group, p.label)
			}
			computePass.SetPipeline(pipe)
			computePass.SetBindGroup(0, bg, nil)
			computePass.Dispatch(d.x, d.y, d.z)
		}
		computePass.End()
	}
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		encoder.DiscardEncoding()
		return fmt.Errorf("end encoding: %w", err)
	}
	return a.submitLocked(cmdBuf)
}

// submitLocked submits a command buffer with a fresh fence. Must be called
// with mu held.
func (a *Adapter) submitLocked(cmdBuf hal.CommandBuffer) error {
	fence, err := a.device.CreateFence()
	if err != nil {
		a.device.FreeCommandBuffer(cmdBuf)
		return fmt.Errorf("create fence: %w", err)
	}
	if err := a.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		a.device.FreeCommandBuffer(cmdBuf)
		a.device.DestroyFence(fence)
		a.markLost(err)
		return fmt.Errorf("%w: submit: %w", gpucore.ErrDeviceLost, err)
	}
	a.inflight = append(a.inflight, submission{cmd: cmdBuf, fence: fence})
	return nil
}

// WaitIdle waits until every submission has signalled its fence or ctx is
// done. On cancellation the work stays in flight and a later WaitIdle or
// Destroy completes it.
func (a *Adapter) WaitIdle(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.check(); err != nil {
		return err
	}
	return a.waitLocked(ctx)
}

// waitLocked drains a.inflight. Must be called with mu held.
func (a *Adapter) waitLocked(ctx context.Context) error {
	for len(a.inflight) > 0 {
		s := a.inflight[0]
		deadline := time.Now().Add(FenceTimeout)
		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			done, err := a.device.Wait(s.fence, 1, fencePoll)
			if err != nil {
				a.markLost(err)
				return fmt.Errorf("%w: wait for GPU: %w", gpucore.ErrDeviceLost, err)
			}
			if done {
				break
			}
			if time.Now().After(deadline) {
				a.markLost(fmt.Errorf("fence timeout after %v", FenceTimeout))
				return fmt.Errorf("%w: fence did not signal within %v", gpucore.ErrDeviceLost, FenceTimeout)
			}
		}
		a.device.FreeCommandBuffer(s.cmd)
		a.device.DestroyFence(s.fence)
		a.inflight = a.inflight[1:]
	}
	return nil
}

// Destroy waits for outstanding work, releases every resource and, unless
// the device is shared, the device and instance.
func (a *Adapter) Destroy() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.device == nil {
		return
	}
	if !a.lost {
		ctx, cancel := context.WithTimeout(context.Background(), FenceTimeout)
		if err := a.waitLocked(ctx); err != nil {
			a.log().Warn("wgpu: destroy with work in flight", "err", err)
		}
		cancel()
	}
	for _, s := range a.inflight {
		a.device.FreeCommandBuffer(s.cmd)
		a.device.DestroyFence(s.fence)
	}
	a.inflight = nil
	a.recorded = nil

	for id, bg := range a.bindGroups {
		a.device.DestroyBindGroup(bg)
		delete(a.bindGroups, id)
	}
	for id, p := range a.computePipelines {
		a.device.DestroyComputePipeline(p)
		delete(a.computePipelines, id)
	}
	for id, pl := range a.pipelineLayouts {
		a.device.DestroyPipelineLayout(pl)
		delete(a.pipelineLayouts, id)
	}
	for id, l := range a.bindGroupLayouts {
		a.device.DestroyBindGroupLayout(l)
		delete(a.bindGroupLayouts, id)
	}
	for id, m := range a.shaderModules {
		a.device.DestroyShaderModule(m)
		delete(a.shaderModules, id)
	}
	for id, b := range a.buffers {
		a.device.DestroyBuffer(b.buf)
		delete(a.buffers, id)
	}

	if !a.externalDevice {
		a.device.Destroy()
		if a.instance != nil {
			a.instance.Destroy()
		}
	}
	a.device = nil
	a.queue = nil
	a.instance = nil
}

// === Compute Pass Encoder ===

type computePassEncoder struct {
	adapter  *Adapter
	pass     recordedPass
	pipeline gpucore.ComputePipelineID
	group    gpucore.BindGroupID
	ended    bool
}

func (e *computePassEncoder) SetPipeline(pipeline gpucore.ComputePipelineID) {
	e.pipeline = pipeline
}

func (e *computePassEncoder) SetBindGroup(index uint32, group gpucore.BindGroupID) {
	if index == 0 {
		e.group = group
	}
}

func (e *computePassEncoder) Dispatch(x, y, z uint32) {
	if e.ended || x == 0 || y == 0 || z == 0 {
		return
	}
	e.pass.dispatches = append(e.pass.dispatches, dispatch{pipeline: e.pipeline, group: e.group, x: x, y: y, z: z})
}

func (e *computePassEncoder) End() {
	if e.ended {
		return
	}
	e.ended = true
	a := e.adapter
	a.mu.Lock()
	if a.check() == nil {
		a.recorded = append(a.recorded, e.pass)
	}
	a.mu.Unlock()
}

// === Type Conversion Helpers ===

// convertBufferUsage converts gpucore.BufferUsage to gputypes.BufferUsage.
func convertBufferUsage(usage gpucore.BufferUsage) gputypes.BufferUsage {
	var result gputypes.BufferUsage
	if usage&gpucore.BufferUsageMapRead != 0 {
		result |= gputypes.BufferUsageMapRead
	}
	if usage&gpucore.BufferUsageMapWrite != 0 {
		result |= gputypes.BufferUsageMapWrite
	}
	if usage&gpucore.BufferUsageCopySrc != 0 {
		result |= gputypes.BufferUsageCopySrc
	}
	if usage&gpucore.BufferUsageCopyDst != 0 {
		result |= gputypes.BufferUsageCopyDst
	}
	if usage&gpucore.BufferUsageUniform != 0 {
		result |= gputypes.BufferUsageUniform
	}
	if usage&gpucore.BufferUsageStorage != 0 {
		result |= gputypes.BufferUsageStorage
	}
	return result
}

// convertBindingType converts gpucore.BindingType to a buffer binding type.
func convertBindingType(t gpucore.BindingType) gputypes.BufferBindingType {
	switch t {
	case gpucore.BindingTypeUniformBuffer:
		return gputypes.BufferBindingTypeUniform
	case gpucore.BindingTypeReadOnlyStorageBuffer:
		return gputypes.BufferBindingTypeReadOnlyStorage
	default:
		return gputypes.BufferBindingTypeStorage
	}
}

// Ensure Adapter implements gpucore.GPUAdapter.
var _ gpucore.GPUAdapter = (*Adapter)(nil)
