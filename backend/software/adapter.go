package software

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/gogpu/tegaki/gpucore"
	"github.com/gogpu/tegaki/internal/kernel"
	"github.com/gogpu/tegaki/internal/parallel"
)

// DefaultMaxBufferSize is the largest buffer the adapter allocates unless
// WithMaxBufferSize overrides it.
const DefaultMaxBufferSize = 256 << 20

// Adapter implements gpucore.GPUAdapter with CPU kernels.
//
// Thread Safety: Adapter is safe for concurrent use. Resource maps are
// guarded by a mutex; Submit holds it for the duration of the queued work.
type Adapter struct {
	mu   sync.Mutex
	pool *parallel.WorkerPool

	maxBufferSz uint64
	lost        bool

	logger atomic.Pointer[slog.Logger]

	// ID generation
	nextID atomic.Uint64

	buffers          map[gpucore.BufferID]*buffer
	shaderModules    map[gpucore.ShaderModuleID]string
	bindGroupLayouts map[gpucore.BindGroupLayoutID][]gpucore.BindGroupLayoutEntry
	pipelineLayouts  map[gpucore.PipelineLayoutID][]gpucore.BindGroupLayoutID
	computePipelines map[gpucore.ComputePipelineID]computePipeline
	bindGroups       map[gpucore.BindGroupID][]gpucore.BindGroupEntry

	recorded   []dispatch
	dispatches uint64
	submits    uint64
}

type buffer struct {
	words []uint32
	size  uint64
	usage gpucore.BufferUsage
}

type computePipeline struct {
	entry  string
	kernel kernel.Kernel
}

// dispatch is one recorded Dispatch with the state bound at the time.
type dispatch struct {
	label    string
	pipeline gpucore.ComputePipelineID
	group    gpucore.BindGroupID
	x, y     uint32
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithWorkers sets the number of goroutines that execute dispatch rows.
// Values below 1 use GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(a *Adapter) {
		if n < 1 {
			n = runtime.GOMAXPROCS(0)
		}
		if a.pool != nil {
			a.pool.Close()
		}
		a.pool = parallel.NewWorkerPool(n)
	}
}

// WithMaxBufferSize sets the allocation limit. Larger requests fail with
// gpucore.ErrOutOfMemory.
func WithMaxBufferSize(n uint64) Option {
	return func(a *Adapter) {
		a.maxBufferSz = n
	}
}

// New creates a software adapter.
func New(opts ...Option) *Adapter {
	a := &Adapter{
		maxBufferSz:      DefaultMaxBufferSize,
		buffers:          make(map[gpucore.BufferID]*buffer),
		shaderModules:    make(map[gpucore.ShaderModuleID]string),
		bindGroupLayouts: make(map[gpucore.BindGroupLayoutID][]gpucore.BindGroupLayoutEntry),
		pipelineLayouts:  make(map[gpucore.PipelineLayoutID][]gpucore.BindGroupLayoutID),
		computePipelines: make(map[gpucore.ComputePipelineID]computePipeline),
		bindGroups:       make(map[gpucore.BindGroupID][]gpucore.BindGroupEntry),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.pool == nil {
		a.pool = parallel.NewWorkerPool(runtime.GOMAXPROCS(0))
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

// check reports why the adapter cannot accept work. Must be called with
// mu held. A stopped pool means the adapter was destroyed.
func (a *Adapter) check() error {
	if a.lost || !a.pool.IsRunning() {
		return gpucore.ErrDeviceLost
	}
	return nil
}

// Lose marks the device as lost. Every later call that can fail returns
// gpucore.ErrDeviceLost and queued work is dropped.
func (a *Adapter) Lose() {
	a.mu.Lock()
	a.lost = true
	a.recorded = nil
	a.mu.Unlock()
	a.log().Warn("software: device lost")
}

// === Capabilities ===

// Name returns "software".
func (a *Adapter) Name() string {
	return "software"
}

// SupportsCompute always returns true.
func (a *Adapter) SupportsCompute() bool {
	return true
}

// MaxBufferSize returns the maximum buffer size in bytes.
func (a *Adapter) MaxBufferSize() uint64 {
	return a.maxBufferSz
}

// === Shader Compilation ===

// CreateShaderModule records the module label. The WGSL text is not
// compiled; pipelines resolve their entry point to a CPU kernel instead.
func (a *Adapter) CreateShaderModule(src gpucore.ShaderSource) (gpucore.ShaderModuleID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.check(); err != nil {
		return gpucore.InvalidID, err
	}
	if src.WGSL == "" {
		return gpucore.InvalidID, fmt.Errorf("%w: %s: empty source", gpucore.ErrShaderCompile, src.Label)
	}
	id := gpucore.ShaderModuleID(a.newID())
	a.shaderModules[id] = src.Label
	return id, nil
}

// DestroyShaderModule releases a shader module.
func (a *Adapter) DestroyShaderModule(id gpucore.ShaderModuleID) {
	a.mu.Lock()
	delete(a.shaderModules, id)
	a.mu.Unlock()
}

// === Buffer Management ===

// CreateBuffer allocates a zeroed buffer. Sizes are rounded up to whole
// 32-bit words.
func (a *Adapter) CreateBuffer(size int, usage gpucore.BufferUsage) (gpucore.BufferID, error) {
	if size <= 0 {
		return gpucore.InvalidID, fmt.Errorf("software: buffer size must be positive, got %d", size)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.check(); err != nil {
		return gpucore.InvalidID, err
	}
	if uint64(size) > a.maxBufferSz {
		return gpucore.InvalidID, fmt.Errorf("%w: %d bytes exceeds limit of %d", gpucore.ErrOutOfMemory, size, a.maxBufferSz)
	}

	id := gpucore.BufferID(a.newID())
	a.buffers[id] = &buffer{
		words: make([]uint32, (size+3)/4),
		size:  uint64(size),
		usage: usage,
	}
	return id, nil
}

// DestroyBuffer releases a buffer.
func (a *Adapter) DestroyBuffer(id gpucore.BufferID) {
	a.mu.Lock()
	delete(a.buffers, id)
	a.mu.Unlock()
}

// WriteBuffer copies data into a buffer. Offset and length must be
// multiples of 4.
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
	if offset%4 != 0 || len(data)%4 != 0 {
		return fmt.Errorf("software: unaligned write of %d bytes at %d", len(data), offset)
	}
	if offset+uint64(len(data)) > b.size {
		return fmt.Errorf("software: write of %d bytes at %d overflows buffer of %d", len(data), offset, b.size)
	}
	copy(b.words[offset/4:], gpucore.BytesToWords(data))
	return nil
}

// ReadBuffer returns a copy of size bytes starting at offset.
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
	if offset%4 != 0 || size%4 != 0 || offset+size > b.size {
		return nil, fmt.Errorf("software: invalid read of %d bytes at %d from buffer of %d", size, offset, b.size)
	}
	return gpucore.WordsToBytes(b.words[offset/4 : (offset+size)/4]), nil
}

// === Pipeline Management ===

// CreateBindGroupLayout creates a bind group layout.
func (a *Adapter) CreateBindGroupLayout(desc *gpucore.BindGroupLayoutDesc) (gpucore.BindGroupLayoutID, error) {
	if desc == nil {
		return gpucore.InvalidID, fmt.Errorf("software: nil bind group layout descriptor")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.check(); err != nil {
		return gpucore.InvalidID, err
	}
	id := gpucore.BindGroupLayoutID(a.newID())
	a.bindGroupLayouts[id] = append([]gpucore.BindGroupLayoutEntry(nil), desc.Entries...)
	return id, nil
}

// DestroyBindGroupLayout releases a bind group layout.
func (a *Adapter) DestroyBindGroupLayout(id gpucore.BindGroupLayoutID) {
	a.mu.Lock()
	delete(a.bindGroupLayouts, id)
	a.mu.Unlock()
}

// CreatePipelineLayout creates a pipeline layout.
func (a *Adapter) CreatePipelineLayout(layouts []gpucore.BindGroupLayoutID) (gpucore.PipelineLayoutID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.check(); err != nil {
		return gpucore.InvalidID, err
	}
	for _, l := range layouts {
		if _, ok := a.bindGroupLayouts[l]; !ok {
			return gpucore.InvalidID, fmt.Errorf("%w: bind group layout %d", gpucore.ErrInvalidResource, l)
		}
	}
	id := gpucore.PipelineLayoutID(a.newID())
	a.pipelineLayouts[id] = append([]gpucore.BindGroupLayoutID(nil), layouts...)
	return id, nil
}

// DestroyPipelineLayout releases a pipeline layout.
func (a *Adapter) DestroyPipelineLayout(id gpucore.PipelineLayoutID) {
	a.mu.Lock()
	delete(a.pipelineLayouts, id)
	a.mu.Unlock()
}

// CreateComputePipeline resolves the entry point to a CPU kernel.
func (a *Adapter) CreateComputePipeline(desc *gpucore.ComputePipelineDesc) (gpucore.ComputePipelineID, error) {
	if desc == nil {
		return gpucore.InvalidID, fmt.Errorf("software: nil compute pipeline descriptor")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.check(); err != nil {
		return gpucore.InvalidID, err
	}
	if _, ok := a.shaderModules[desc.ShaderModule]; !ok {
		return gpucore.InvalidID, fmt.Errorf("%w: shader module %d", gpucore.ErrInvalidResource, desc.ShaderModule)
	}
	if _, ok := a.pipelineLayouts[desc.Layout]; !ok {
		return gpucore.InvalidID, fmt.Errorf("%w: pipeline layout %d", gpucore.ErrInvalidResource, desc.Layout)
	}
	k, ok := kernel.Lookup(desc.EntryPoint)
	if !ok {
		return gpucore.InvalidID, fmt.Errorf("%w: %q", gpucore.ErrUnknownEntryPoint, desc.EntryPoint)
	}
	id := gpucore.ComputePipelineID(a.newID())
	a.computePipelines[id] = computePipeline{entry: desc.EntryPoint, kernel: k}
	return id, nil
}

// DestroyComputePipeline releases a compute pipeline.
func (a *Adapter) DestroyComputePipeline(id gpucore.ComputePipelineID) {
	a.mu.Lock()
	delete(a.computePipelines, id)
	a.mu.Unlock()
}

// CreateBindGroup binds buffer ranges to a layout. Offsets must be multiples
// of 4 and ranges must lie within their buffers.
func (a *Adapter) CreateBindGroup(layout gpucore.BindGroupLayoutID, entries []gpucore.BindGroupEntry) (gpucore.BindGroupID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.check(); err != nil {
		return gpucore.InvalidID, err
	}
	if _, ok := a.bindGroupLayouts[layout]; !ok {
		return gpucore.InvalidID, fmt.Errorf("%w: bind group layout %d", gpucore.ErrInvalidResource, layout)
	}
	for _, e := range entries {
		b, ok := a.buffers[e.Buffer]
		if !ok {
			return gpucore.InvalidID, fmt.Errorf("%w: buffer %d at binding %d", gpucore.ErrInvalidResource, e.Buffer, e.Binding)
		}
		if e.Offset%4 != 0 || e.Offset+e.Size > b.size || e.Offset >= b.size {
			return gpucore.InvalidID, fmt.Errorf("software: binding %d range [%d, +%d) outside buffer of %d", e.Binding, e.Offset, e.Size, b.size)
		}
	}
	id := gpucore.BindGroupID(a.newID())
	a.bindGroups[id] = append([]gpucore.BindGroupEntry(nil), entries...)
	return id, nil
}

// DestroyBindGroup releases a bind group.
func (a *Adapter) DestroyBindGroup(id gpucore.BindGroupID) {
	a.mu.Lock()
	delete(a.bindGroups, id)
	a.mu.Unlock()
}

// === Command Recording and Execution ===

// BeginComputePass begins recording a compute pass.
func (a *Adapter) BeginComputePass(label string) gpucore.ComputePassEncoder {
	return &computePassEncoder{adapter: a, label: label}
}

// Submit executes every dispatch recorded since the previous Submit, in
// recording order.
func (a *Adapter) Submit() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.check(); err != nil {
		return err
	}
	work := a.recorded
	a.recorded = nil
	a.submits++

	for _, d := range work {
		if err := a.execute(d); err != nil {
			return err
		}
	}
	return nil
}

// WaitIdle returns once submitted work has completed. Work finishes inside
// Submit, so this only reports cancellation and device loss.
func (a *Adapter) WaitIdle(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.check()
}

// Destroy releases every resource and stops the worker pool.
func (a *Adapter) Destroy() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.pool.IsRunning() {
		return
	}
	clear(a.buffers)
	clear(a.shaderModules)
	clear(a.bindGroupLayouts)
	clear(a.pipelineLayouts)
	clear(a.computePipelines)
	clear(a.bindGroups)
	a.recorded = nil
	a.pool.Close()
}

// execute runs one dispatch. Must be called with mu held.
func (a *Adapter) execute(d dispatch) error {
	p, ok := a.computePipelines[d.pipeline]
	if !ok {
		return fmt.Errorf("%w: compute pipeline %d in pass %q", gpucore.ErrInvalidResource, d.pipeline, d.label)
	}
	entries, ok := a.bindGroups[d.group]
	if !ok {
		return fmt.Errorf("%w: bind group %d in pass %q", gpucore.ErrInvalidResource, d.group, d.label)
	}

	var inv kernel.Invocation
	for _, e := range entries {
		b, ok := a.buffers[e.Buffer]
		if !ok {
			return fmt.Errorf("%w: buffer %d destroyed while bound", gpucore.ErrInvalidResource, e.Buffer)
		}
		words := b.view(e.Offset, e.Size)
		switch e.Binding {
		case gpucore.BindingParams:
			inv.Params = gpucore.PassParamsFromWords(words)
		case gpucore.BindingSeeds:
			inv.Seeds = gpucore.SeedsFromWords(words)
		case gpucore.BindingSrc:
			inv.Src = kernel.Texels(words)
		case gpucore.BindingDst:
			inv.Dst = kernel.Texels(words)
		}
	}

	size := gpucore.WorkgroupSize
	inv.GridWidth = int(d.x) * size
	a.pool.Rows(int(d.y)*size, func(y0, y1 int) {
		p.kernel(&inv, y0, y1)
	})
	a.dispatches++

	a.log().Debug("software: dispatch",
		"pass", d.label, "entry", p.entry,
		"groups_x", d.x, "groups_y", d.y)
	return nil
}

// view returns the words of the bound range [offset, offset+size). A zero
// size binds the rest of the buffer.
func (b *buffer) view(offset, size uint64) []uint32 {
	end := b.size
	if size > 0 {
		end = offset + size
	}
	return b.words[offset/4 : (end+3)/4]
}

// Stats reports live resource counts and executed work.
type Stats struct {
	Buffers          int
	BufferBytes      uint64
	ShaderModules    int
	BindGroupLayouts int
	PipelineLayouts  int
	ComputePipelines int
	BindGroups       int
	Dispatches       uint64
	Submits          uint64
	Workers          int
}

// Live returns the number of live resources of every kind.
func (s Stats) Live() int {
	return s.Buffers + s.ShaderModules + s.BindGroupLayouts + s.PipelineLayouts + s.ComputePipelines + s.BindGroups
}

// Stats returns a snapshot of the adapter counters.
func (a *Adapter) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := Stats{
		Buffers:          len(a.buffers),
		ShaderModules:    len(a.shaderModules),
		BindGroupLayouts: len(a.bindGroupLayouts),
		PipelineLayouts:  len(a.pipelineLayouts),
		ComputePipelines: len(a.computePipelines),
		BindGroups:       len(a.bindGroups),
		Dispatches:       a.dispatches,
		Submits:          a.submits,
		Workers:          a.pool.Workers(),
	}
	for _, b := range a.buffers {
		s.BufferBytes += b.size
	}
	return s
}

// === Compute Pass Encoder ===

// computePassEncoder records dispatches for the next Submit.
type computePassEncoder struct {
	adapter  *Adapter
	label    string
	pipeline gpucore.ComputePipelineID
	group    gpucore.BindGroupID
	pending  []dispatch
	ended    bool
}

func (e *computePassEncoder) SetPipeline(pipeline gpucore.ComputePipelineID) {
	e.pipeline = pipeline
}

// SetBindGroup sets the bind group. Only index 0 is used by the passes.
func (e *computePassEncoder) SetBindGroup(index uint32, group gpucore.BindGroupID) {
	if index == 0 {
		e.group = group
	}
}

func (e *computePassEncoder) Dispatch(x, y, z uint32) {
	if e.ended || x == 0 || y == 0 || z == 0 {
		return
	}
	e.pending = append(e.pending, dispatch{
		label:    e.label,
		pipeline: e.pipeline,
		group:    e.group,
		x:        x,
		y:        y,
	})
}

func (e *computePassEncoder) End() {
	if e.ended {
		return
	}
	e.ended = true
	a := e.adapter
	a.mu.Lock()
	if a.check() == nil {
		a.recorded = append(a.recorded, e.pending...)
	}
	a.mu.Unlock()
	e.pending = nil
}

// Ensure Adapter implements gpucore.GPUAdapter.
var _ gpucore.GPUAdapter = (*Adapter)(nil)
