package gpucore

import "context"

// GPUAdapter abstracts over different GPU backend implementations.
//
// This interface is the core abstraction that allows the stroke pipeline
// to work with multiple backends (gogpu/wgpu HAL, CPU reference kernels).
// Implementations must be safe for concurrent use, although the pipeline
// serializes its own invocations.
//
// Resource lifecycle:
//   - Resources are created via Create* methods
//   - Resources must be explicitly destroyed via Destroy* methods
//   - Destroying a resource while in use is undefined behavior
//   - IDs become invalid after destruction and must not be reused
//
// Once an adapter reports [ErrDeviceLost] every later call that returns an
// error fails with it as well; the adapter must be replaced.
type GPUAdapter interface {
	// === Capabilities ===

	// Name returns the adapter name (e.g. "software", "wgpu").
	Name() string

	// SupportsCompute returns whether compute shaders are supported.
	SupportsCompute() bool

	// MaxBufferSize returns the maximum buffer size in bytes.
	MaxBufferSize() uint64

	// === Shader Compilation ===

	// CreateShaderModule creates a shader module from WGSL source.
	// Returns an error wrapping the compiler diagnostic if compilation fails.
	CreateShaderModule(src ShaderSource) (ShaderModuleID, error)

	// DestroyShaderModule releases a shader module.
	DestroyShaderModule(id ShaderModuleID)

	// === Buffer Management ===

	// CreateBuffer creates a GPU buffer.
	// Returns an error wrapping ErrOutOfMemory if allocation fails.
	CreateBuffer(size int, usage BufferUsage) (BufferID, error)

	// DestroyBuffer releases a GPU buffer.
	DestroyBuffer(id BufferID)

	// WriteBuffer writes data to a buffer.
	// The data is copied immediately or staged for the next submission.
	WriteBuffer(id BufferID, offset uint64, data []byte) error

	// ReadBuffer reads data from a buffer.
	// This may cause a GPU-CPU synchronization stall.
	ReadBuffer(id BufferID, offset, size uint64) ([]byte, error)

	// === Pipeline Management ===

	// CreateBindGroupLayout creates a bind group layout.
	CreateBindGroupLayout(desc *BindGroupLayoutDesc) (BindGroupLayoutID, error)

	// DestroyBindGroupLayout releases a bind group layout.
	DestroyBindGroupLayout(id BindGroupLayoutID)

	// CreatePipelineLayout creates a pipeline layout from bind group layouts.
	CreatePipelineLayout(layouts []BindGroupLayoutID) (PipelineLayoutID, error)

	// DestroyPipelineLayout releases a pipeline layout.
	DestroyPipelineLayout(id PipelineLayoutID)

	// CreateComputePipeline creates a compute pipeline.
	CreateComputePipeline(desc *ComputePipelineDesc) (ComputePipelineID, error)

	// DestroyComputePipeline releases a compute pipeline.
	DestroyComputePipeline(id ComputePipelineID)

	// CreateBindGroup binds actual resources to a bind group layout.
	CreateBindGroup(layout BindGroupLayoutID, entries []BindGroupEntry) (BindGroupID, error)

	// DestroyBindGroup releases a bind group.
	DestroyBindGroup(id BindGroupID)

	// === Command Recording and Execution ===

	// BeginComputePass begins a compute pass.
	// The encoder must be ended with ComputePassEncoder.End().
	BeginComputePass(label string) ComputePassEncoder

	// Submit submits all passes ended since the previous Submit.
	// Passes within one submission execute in recording order, with
	// storage writes of a pass visible to the passes after it.
	Submit() error

	// WaitIdle blocks until all submitted work has completed or ctx is done.
	// This is the synchronization point before reading results.
	WaitIdle(ctx context.Context) error

	// Destroy releases the adapter and every resource it still owns.
	Destroy()
}

// ComputePassEncoder records compute commands.
//
// Usage:
//  1. Obtain encoder from GPUAdapter.BeginComputePass()
//  2. Set pipeline and bind groups
//  3. Dispatch compute workgroups
//  4. Call End() to finish recording
//  5. Call GPUAdapter.Submit() to execute
//
// The encoder is single-use and cannot be reused after End().
type ComputePassEncoder interface {
	// SetPipeline sets the active compute pipeline.
	SetPipeline(pipeline ComputePipelineID)

	// SetBindGroup sets a bind group at the specified index.
	SetBindGroup(index uint32, group BindGroupID)

	// Dispatch dispatches compute workgroups.
	// x, y, z are the number of workgroups in each dimension.
	Dispatch(x, y, z uint32)

	// End finishes the compute pass.
	End()
}
