package tegaki

import (
	"errors"
	"fmt"

	"github.com/gogpu/tegaki/gpucore"
	"github.com/gogpu/tegaki/internal/shaders"
)

// passHandle owns the compiled pass pipelines of one adapter.
type passHandle struct {
	adapter        gpucore.GPUAdapter
	modules        []gpucore.ShaderModuleID
	layout         gpucore.BindGroupLayoutID
	pipelineLayout gpucore.PipelineLayoutID
	pipelines      map[string]gpucore.ComputePipelineID
}

// compilePasses builds every pass pipeline on a. On failure everything
// created so far is destroyed.
func compilePasses(a gpucore.GPUAdapter) (h *passHandle, err error) {
	if !a.SupportsCompute() {
		return nil, fmt.Errorf("%w: adapter %q has no compute support", ErrShaderCompile, a.Name())
	}
	h = &passHandle{adapter: a, pipelines: make(map[string]gpucore.ComputePipelineID)}
	defer func() {
		if err != nil {
			h.destroy()
			h = nil
		}
	}()

	h.layout, err = a.CreateBindGroupLayout(&gpucore.BindGroupLayoutDesc{
		Label:   "tegaki_pass_layout",
		Entries: gpucore.PassBindings(),
	})
	if err != nil {
		return nil, compileError("bind group layout", err)
	}
	h.pipelineLayout, err = a.CreatePipelineLayout([]gpucore.BindGroupLayoutID{h.layout})
	if err != nil {
		return nil, compileError("pipeline layout", err)
	}

	for _, m := range shaders.Modules() {
		id, err := a.CreateShaderModule(m.Source)
		if err != nil {
			return nil, compileError(m.Label, err)
		}
		h.modules = append(h.modules, id)

		for _, entry := range m.Entries {
			pid, err := a.CreateComputePipeline(&gpucore.ComputePipelineDesc{
				Label:        "tegaki_" + entry,
				Layout:       h.pipelineLayout,
				ShaderModule: id,
				EntryPoint:   entry,
			})
			if err != nil {
				return nil, compileError(entry, err)
			}
			h.pipelines[entry] = pid
		}
	}
	return h, nil
}

func compileError(what string, err error) error {
	if errors.Is(err, gpucore.ErrDeviceLost) {
		return fmt.Errorf("%w: compile %s: %w", ErrDeviceLost, what, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrShaderCompile, what, err)
}

func (h *passHandle) pipeline(entry string) gpucore.ComputePipelineID {
	return h.pipelines[entry]
}

// destroy releases the handle's resources. Safe to call more than once.
func (h *passHandle) destroy() {
	if h == nil || h.adapter == nil {
		return
	}
	a := h.adapter
	for _, id := range h.pipelines {
		a.DestroyComputePipeline(id)
	}
	clear(h.pipelines)
	for _, id := range h.modules {
		a.DestroyShaderModule(id)
	}
	h.modules = nil
	if h.pipelineLayout != gpucore.InvalidID {
		a.DestroyPipelineLayout(h.pipelineLayout)
	}
	if h.layout != gpucore.InvalidID {
		a.DestroyBindGroupLayout(h.layout)
	}
	h.adapter = nil
}
