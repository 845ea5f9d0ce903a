// Package tegaki renders freehand strokes into anti-aliased masks with a
// Jump Flooding distance-field pipeline.
//
// # Overview
//
// A stroke is a sequence of pointer samples. The pipeline turns it into
// capsule seeds, scatters the seeds into a texture, propagates the nearest
// seed to every texel with the Jump Flooding Algorithm, encodes the result
// as a normalized distance field and finally renders a premultiplied RGBA
// coverage mask from it. Every pass is a compute shader executed through a
// gpucore.GPUAdapter, either on the GPU (backend/wgpu) or on the CPU
// (backend/software).
//
// # Quick Start
//
//	import (
//		"github.com/gogpu/tegaki"
//		"github.com/gogpu/tegaki/backend/software"
//	)
//
//	a := software.New()
//	defer a.Destroy()
//
//	p, err := tegaki.NewPipeline(a)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer p.Close()
//
//	res, err := p.Render(ctx, tegaki.Stroke{
//		Points: points,
//		Brush:  tegaki.DefaultBrush(),
//	}, tegaki.DefaultBrushRenderSettings())
//	if err != nil {
//		return err // the stroke failed; do not composite
//	}
//	err = tegaki.Composite(layer, res, tegaki.CompositeOptions{})
//
// # Results
//
// Render returns a *StrokeResult holding the mask and its placement in
// layer space. A stroke with fewer than two usable samples yields an empty
// result and no GPU work. Any failure yields a nil result and an error;
// callers must never composite on error.
//
// # Conventions
//
// Masks are premultiplied. Eraser strokes carry coverage in alpha only and
// are composited with the destination-out operator.
//
// # Concurrency
//
// A Pipeline runs one invocation at a time; concurrent calls wait their
// turn (or give up when their context ends). Pointer events should be
// batched with a Coalescer rather than rendered one by one.
package tegaki
