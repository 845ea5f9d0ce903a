package tegaki

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/gogpu/tegaki/gpucore"
	"github.com/gogpu/tegaki/internal/edge"
	"github.com/gogpu/tegaki/internal/kernel"
)

// State is the lifecycle state of a Pipeline.
type State uint8

const (
	// StateReady accepts strokes.
	StateReady State = iota

	// StateLost follows a device loss. Strokes fail with ErrDeviceLost
	// until Reinitialize or ReinitializeWith succeeds.
	StateLost

	// StateClosed follows Close.
	StateClosed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateLost:
		return "lost"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Option configures a Pipeline during creation.
type Option func(*pipelineOptions)

type pipelineOptions struct {
	cfg       PipelineConfig
	logger    *slog.Logger
	cacheSize int // -1 keeps cfg.FieldCacheSize
}

// WithConfig replaces the default configuration.
func WithConfig(cfg PipelineConfig) Option {
	return func(o *pipelineOptions) {
		o.cfg = cfg
	}
}

// WithLogger sets the pipeline logger and passes it to the adapter.
// Without it the pipeline uses the package logger (see SetLogger).
func WithLogger(l *slog.Logger) Option {
	return func(o *pipelineOptions) {
		o.logger = l
	}
}

// WithFieldCache enables the distance field cache with room for n fields,
// overriding PipelineConfig.FieldCacheSize. Strokes with the same layer and
// geometry then skip everything but the render pass. Each entry holds a
// full field texture, so keep n small.
func WithFieldCache(n int) Option {
	return func(o *pipelineOptions) {
		o.cacheSize = n
	}
}

// PipelineStats reports pipeline activity.
type PipelineStats struct {
	Strokes   uint64 // completed strokes, including cache hits
	Empty     uint64 // strokes with fewer than two usable samples
	Aborted   uint64 // failed or canceled strokes
	CacheHits uint64

	CachedFields   int    // distance fields held by the field cache
	CacheEvictions uint64 // fields dropped to stay within the cache size

	LastStage      Stage // final stage of the most recent stroke
	LastIterations int
	LastWidth      int
	LastHeight     int

	MemoryInUse uint64
	PeakMemory  uint64
	State       State
}

// Pipeline renders strokes on one adapter.
//
// A Pipeline runs one stroke at a time; concurrent calls queue on an
// internal semaphore. The adapter is owned by the caller and must outlive
// the Pipeline.
type Pipeline struct {
	sem chan struct{}

	mu      sync.Mutex
	adapter gpucore.GPUAdapter
	handle  *passHandle
	state   State
	stats   PipelineStats

	cfg    PipelineConfig
	log    *slog.Logger
	budget *memoryBudget
	fields *fieldCache
}

// NewPipeline compiles the stroke passes on adapter.
//
// It fails with ErrShaderCompile when a pass cannot be built and with a
// *ConfigError when the configuration is invalid.
func NewPipeline(adapter gpucore.GPUAdapter, opts ...Option) (*Pipeline, error) {
	if adapter == nil {
		return nil, errors.New("tegaki: nil adapter")
	}
	o := pipelineOptions{cfg: DefaultPipelineConfig(), cacheSize: -1}
	for _, opt := range opts {
		opt(&o)
	}
	if o.cacheSize >= 0 {
		o.cfg.FieldCacheSize = o.cacheSize
	}
	if err := o.cfg.Validate(); err != nil {
		return nil, err
	}

	log := o.logger
	if log == nil {
		log = Logger()
	} else {
		propagateLogger(adapter, log)
	}

	h, err := compilePasses(adapter)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		sem:     make(chan struct{}, 1),
		adapter: adapter,
		handle:  h,
		cfg:     o.cfg,
		log:     log,
		budget:  newMemoryBudget(o.cfg.memoryBudget()),
		fields:  newFieldCache(o.cfg.FieldCacheSize),
	}
	log.Info("tegaki: pipeline compiled",
		"adapter", adapter.Name(),
		"base_size", o.cfg.BaseTextureSize,
		"jfa_cap", o.cfg.JFACap)
	return p, nil
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() PipelineConfig {
	return p.cfg
}

// State returns the lifecycle state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Stats returns a snapshot of the pipeline counters.
func (p *Pipeline) Stats() PipelineStats {
	p.mu.Lock()
	s := p.stats
	s.State = p.state
	p.mu.Unlock()
	s.MemoryInUse, s.PeakMemory, _ = p.budget.stats()
	s.CachedFields, s.CacheEvictions = p.fields.stats()
	return s
}

// Render renders a committed stroke.
//
// A stroke with fewer than two usable samples returns an empty result and
// no error. On any failure the result is nil and must not be composited.
func (p *Pipeline) Render(ctx context.Context, stroke Stroke, settings BrushRenderSettings) (*StrokeResult, error) {
	return p.render(ctx, stroke, settings, false)
}

// RenderPreview renders an in-progress stroke at PreviewTextureSize.
// Preview results are never cached.
func (p *Pipeline) RenderPreview(ctx context.Context, stroke Stroke, settings BrushRenderSettings) (*StrokeResult, error) {
	stroke.Layer = ""
	return p.render(ctx, stroke, settings, true)
}

// InvalidateLayer drops cached fields of a layer and returns how many were
// removed. Call it when the layer's strokes change.
func (p *Pipeline) InvalidateLayer(layer string) int {
	return p.fields.invalidateLayer(layer)
}

func (p *Pipeline) acquire(ctx context.Context) error {
	select {
	case p.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return classify(ctx.Err())
	}
}

func (p *Pipeline) releaseSem() {
	<-p.sem
}

func (p *Pipeline) render(ctx context.Context, stroke Stroke, settings BrushRenderSettings, preview bool) (*StrokeResult, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if err := stroke.Brush.Validate(); err != nil {
		return nil, err
	}
	if err := p.acquire(ctx); err != nil {
		return nil, err
	}
	defer p.releaseSem()

	p.mu.Lock()
	state, adapter, handle := p.state, p.adapter, p.handle
	p.mu.Unlock()
	switch state {
	case StateClosed:
		return nil, ErrPipelineClosed
	case StateLost:
		return nil, ErrDeviceLost
	}

	seeds, err := edge.Build(toSamples(stroke.Points), stroke.Brush.options())
	if errors.Is(err, edge.ErrDegenerate) {
		p.finish(StageDone, nil, func(s *PipelineStats) { s.Empty++ })
		return &StrokeResult{Mode: settings.Mode}, nil
	}
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, p.abort(StageIdle, classify(err))
	}

	l, err := p.plan(adapter, seeds, preview)
	if err != nil {
		return nil, p.abort(StageIdle, err)
	}
	texSeeds := edge.ToTexels(seeds, l.origin(), l.scale)

	inv := &invocation{
		ctx:      ctx,
		adapter:  adapter,
		handle:   handle,
		budget:   p.budget,
		log:      p.log,
		cfg:      &p.cfg,
		layout:   l,
		seeds:    texSeeds,
		settings: settings,
		stage:    StageIdle,
	}

	key, cacheable := p.fields.key(stroke.Layer, texSeeds, l)
	if cacheable {
		if cf, ok := p.fields.get(key); ok {
			res, err := inv.renderCached(cf)
			if err != nil {
				return nil, p.abort(inv.stage, err)
			}
			p.finish(StageDone, res, func(s *PipelineStats) { s.Strokes++; s.CacheHits++ })
			return res, nil
		}
	}

	res, fieldBytes, err := inv.run()
	if err != nil {
		return nil, p.abort(inv.stage, err)
	}
	if cacheable {
		p.fields.put(key, &cachedField{texels: fieldBytes, layout: l})
	}
	p.finish(StageDone, res, func(s *PipelineStats) { s.Strokes++ })
	return res, nil
}

// plan picks the texture size and placement. The texture is halved until
// the frame fits both the memory budget and the adapter's buffer limit.
func (p *Pipeline) plan(adapter gpucore.GPUAdapter, seeds []edge.Seed, preview bool) (layout, error) {
	pad := edge.MaxHalfWidth(seeds) + p.cfg.DistanceRange + 1
	b := edge.Bounds(seeds, pad)
	pol := p.cfg.SizePolicy(preview)
	w, h := SizeFor(b.Max.X-b.Min.X, b.Max.Y-b.Min.Y, pol)

	maxBuf := adapter.MaxBufferSize()
	for {
		iters := kernel.Iterations(w, h, p.cfg.JFACap)
		texels := uint64(gpucore.TexelBufferSize(w, h)) //nolint:gosec // bounded by MaxTextureSize
		if texels <= maxBuf && p.budget.fits(frameBytes(w, h, len(seeds), iters)) {
			placement, s := placeBounds(b, w, h)
			return layout{
				width:       w,
				height:      h,
				scale:       s,
				placement:   placement,
				iterations:  iters,
				rangeTexels: float32(p.cfg.DistanceRange * s),
			}, nil
		}
		if w <= pol.Min && h <= pol.Min {
			return layout{}, fmt.Errorf("%w: %dx%d texture with %d seeds exceeds the memory budget",
				ErrResourceExhausted, w, h, len(seeds))
		}
		w, h = max(w/2, pol.Min), max(h/2, pol.Min)
	}
}

// abort records a failed stroke and wraps err with its stage.
func (p *Pipeline) abort(stage Stage, err error) error {
	lost := errors.Is(err, ErrDeviceLost)
	p.mu.Lock()
	p.stats.Aborted++
	p.stats.LastStage = StageAborted
	if lost && p.state == StateReady {
		p.state = StateLost
	}
	p.mu.Unlock()

	p.log.Warn("tegaki: stroke aborted", "stage", stage.String(), "err", err)
	if stage == StageIdle {
		return err
	}
	return &StageError{Stage: stage, Err: err}
}

func (p *Pipeline) finish(stage Stage, res *StrokeResult, update func(*PipelineStats)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	update(&p.stats)
	p.stats.LastStage = stage
	if res != nil {
		p.stats.LastIterations = res.Iterations
		p.stats.LastWidth = res.Width
		p.stats.LastHeight = res.Height
	}
}

// Reinitialize rebuilds the passes on the current adapter after a device
// loss. It fails with ErrPipelineClosed after Close.
func (p *Pipeline) Reinitialize() error {
	return p.reinitialize(nil)
}

// ReinitializeWith moves the pipeline to a new adapter, typically one
// opened after the previous device was lost. The old adapter is not
// destroyed.
func (p *Pipeline) ReinitializeWith(adapter gpucore.GPUAdapter) error {
	if adapter == nil {
		return errors.New("tegaki: nil adapter")
	}
	return p.reinitialize(adapter)
}

func (p *Pipeline) reinitialize(adapter gpucore.GPUAdapter) error {
	p.sem <- struct{}{}
	defer p.releaseSem()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateClosed {
		return ErrPipelineClosed
	}

	p.handle.destroy()
	p.handle = nil
	if adapter != nil {
		p.adapter = adapter
		propagateLogger(adapter, p.log)
	}

	h, err := compilePasses(p.adapter)
	if err != nil {
		p.state = StateLost
		return err
	}
	p.handle = h
	p.state = StateReady
	p.log.Info("tegaki: pipeline reinitialized", "adapter", p.adapter.Name())
	return nil
}

// Close waits for the running stroke, then releases the compiled passes
// and the field cache. Close is idempotent.
func (p *Pipeline) Close() error {
	p.sem <- struct{}{}
	defer p.releaseSem()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateClosed {
		return nil
	}
	p.handle.destroy()
	p.handle = nil
	p.state = StateClosed
	p.fields.clear()
	return nil
}

// invocation is one run of the stroke state machine.
type invocation struct {
	ctx      context.Context
	adapter  gpucore.GPUAdapter
	handle   *passHandle
	budget   *memoryBudget
	log      *slog.Logger
	cfg      *PipelineConfig
	layout   layout
	seeds    []gpucore.EdgeSeed
	settings BrushRenderSettings
	stage    Stage
}

func (inv *invocation) baseParams() gpucore.PassParams {
	return gpucore.PassParams{
		Width:     uint32(inv.layout.width),  //nolint:gosec // bounded by MaxTextureSize
		Height:    uint32(inv.layout.height), //nolint:gosec // bounded by MaxTextureSize
		SeedCount: uint32(len(inv.seeds)),    //nolint:gosec // bounded by memory budget
	}
}

func (inv *invocation) renderParams() gpucore.PassParams {
	p := inv.baseParams()
	s := inv.settings
	p.Threshold = float32(s.Threshold)
	p.Smoothness = float32(s.Smoothness)
	p.Opacity = float32(s.Opacity)
	p.ColorR = float32(s.Color.R)
	p.ColorG = float32(s.Color.G)
	p.ColorB = float32(s.Color.B)
	p.Mode = s.Mode.gpu()
	p.SampleCount = uint32(inv.cfg.SampleCount) //nolint:gosec // validated 1, 4 or 8
	return p
}

// enter moves to the next stage unless the stroke was canceled.
func (inv *invocation) enter(stage Stage) error {
	inv.stage = stage
	return classify(inv.ctx.Err())
}

// run executes every stage and returns the result and the raw field
// texels.
func (inv *invocation) run() (*StrokeResult, []byte, error) {
	l := inv.layout
	n := len(inv.seeds)
	inv.stage = StageSeedInit
	f, err := newStrokeFrame(inv.adapter, inv.handle, inv.budget, inv.log, l.width, l.height, n, l.iterations)
	if err != nil {
		return nil, nil, err
	}
	defer f.release()

	base := inv.baseParams()
	slots := map[int]gpucore.PassParams{f.clearSlot(): base}
	type footprint struct{ slot, w, h int }
	var footprints []footprint
	for i, s := range inv.seeds {
		x, y, fw, fh, ok := gpucore.SeedFootprint(s, l.width, l.height)
		if !ok {
			continue
		}
		pp := base
		pp.SeedIndex = uint32(i) //nolint:gosec // i < n
		pp.OriginX = uint32(x)   //nolint:gosec // x >= 0
		pp.OriginY = uint32(y)   //nolint:gosec // y >= 0
		slots[f.seedSlot(i)] = pp
		footprints = append(footprints, footprint{slot: f.seedSlot(i), w: fw, h: fh})
	}
	for k := range l.iterations {
		pp := base
		pp.Step = uint32(kernel.StepSize(l.iterations, k)) //nolint:gosec // step <= 2^15
		slots[f.jfaSlot(k)] = pp
	}
	enc := base
	enc.Range = l.rangeTexels
	slots[f.encodeSlot()] = enc
	slots[f.renderSlot()] = inv.renderParams()

	if err := f.writeParams(slots); err != nil {
		return nil, nil, classify(err)
	}
	if err := f.writeSeeds(inv.seeds); err != nil {
		return nil, nil, classify(err)
	}

	// Seed-init.
	if err := f.dispatch(gpucore.EntrySeedClear, f.clearSlot(), f.ping[1], f.ping[0], l.width, l.height); err != nil {
		return nil, nil, classify(err)
	}
	for _, fp := range footprints {
		if err := f.dispatch(gpucore.EntrySeedInit, fp.slot, f.ping[1], f.ping[0], fp.w, fp.h); err != nil {
			return nil, nil, classify(err)
		}
	}
	if err := f.submit(inv.ctx); err != nil {
		return nil, nil, classify(err)
	}

	if err := inv.enter(StageJFA); err != nil {
		return nil, nil, err
	}
	for k := range l.iterations {
		if err := classify(inv.ctx.Err()); err != nil {
			return nil, nil, err
		}
		if err := f.dispatch(gpucore.EntryJFAStep, f.jfaSlot(k), f.ping[k%2], f.ping[1-k%2], l.width, l.height); err != nil {
			return nil, nil, classify(err)
		}
		if err := f.submit(inv.ctx); err != nil {
			return nil, nil, classify(err)
		}
	}
	r := kernel.ResultIndex(l.iterations)

	if err := inv.enter(StageEncode); err != nil {
		return nil, nil, err
	}
	if err := f.dispatch(gpucore.EntryEncode, f.encodeSlot(), f.ping[r], f.field, l.width, l.height); err != nil {
		return nil, nil, classify(err)
	}
	if err := f.submit(inv.ctx); err != nil {
		return nil, nil, classify(err)
	}

	if err := inv.enter(StageRender); err != nil {
		return nil, nil, err
	}
	if err := f.dispatch(gpucore.EntryRender, f.renderSlot(), f.field, f.output(r), l.width, l.height); err != nil {
		return nil, nil, classify(err)
	}
	if err := f.submit(inv.ctx); err != nil {
		return nil, nil, classify(err)
	}

	mask, err := f.read(f.output(r))
	if err != nil {
		return nil, nil, classify(err)
	}
	field, err := f.read(f.field)
	if err != nil {
		return nil, nil, classify(err)
	}
	inv.stage = StageDone

	inv.log.Debug("tegaki: stroke rendered",
		"seeds", n, "width", l.width, "height", l.height,
		"iterations", l.iterations, "scale", l.scale)
	return inv.result(mask, field), field, nil
}

// renderCached runs only the render pass over a cached field.
func (inv *invocation) renderCached(cf *cachedField) (*StrokeResult, error) {
	inv.layout = cf.layout
	l := inv.layout
	inv.seeds = nil

	inv.stage = StageRender
	f, err := newStrokeFrame(inv.adapter, inv.handle, inv.budget, inv.log, l.width, l.height, 0, l.iterations)
	if err != nil {
		return nil, err
	}
	defer f.release()

	if err := f.writeParams(map[int]gpucore.PassParams{f.renderSlot(): inv.renderParams()}); err != nil {
		return nil, classify(err)
	}
	if err := inv.adapter.WriteBuffer(f.field, 0, cf.texels); err != nil {
		return nil, classify(err)
	}
	r := kernel.ResultIndex(l.iterations)
	if err := f.dispatch(gpucore.EntryRender, f.renderSlot(), f.field, f.output(r), l.width, l.height); err != nil {
		return nil, classify(err)
	}
	if err := f.submit(inv.ctx); err != nil {
		return nil, classify(err)
	}
	mask, err := f.read(f.output(r))
	if err != nil {
		return nil, classify(err)
	}
	inv.stage = StageDone
	return inv.result(mask, cf.texels), nil
}

func (inv *invocation) result(mask, field []byte) *StrokeResult {
	l := inv.layout
	words := gpucore.BytesToWords(mask)
	m := make([]float32, len(words))
	for i, w := range words {
		m[i] = math.Float32frombits(w)
	}
	fw := gpucore.BytesToWords(field)
	fv := make([]float32, len(fw)/4)
	for i := range fv {
		fv[i] = math.Float32frombits(fw[i*4])
	}
	return &StrokeResult{
		Placement:  l.placement,
		Width:      l.width,
		Height:     l.height,
		Mask:       m,
		Field:      fv,
		Mode:       inv.settings.Mode,
		Iterations: l.iterations,
	}
}
