package gpucore

// Resource IDs
//
// These opaque IDs represent GPU resources. Each adapter implementation
// maintains a mapping between IDs and actual backend resources.
// IDs are uint64 to accommodate various backend handle sizes.

// BufferID is an opaque handle to a GPU buffer.
type BufferID uint64

// ShaderModuleID is an opaque handle to a compiled shader module.
type ShaderModuleID uint64

// ComputePipelineID is an opaque handle to a compute pipeline.
type ComputePipelineID uint64

// BindGroupLayoutID is an opaque handle to a bind group layout.
type BindGroupLayoutID uint64

// BindGroupID is an opaque handle to a bind group.
type BindGroupID uint64

// PipelineLayoutID is an opaque handle to a pipeline layout.
type PipelineLayoutID uint64

// InvalidID is the zero value, representing an invalid/null resource.
const InvalidID = 0

// BufferUsage is a bitmask specifying how a buffer will be used.
type BufferUsage uint32

// Buffer usage flags.
const (
	// BufferUsageMapRead indicates the buffer can be mapped for reading.
	BufferUsageMapRead BufferUsage = 1 << 0

	// BufferUsageMapWrite indicates the buffer can be mapped for writing.
	BufferUsageMapWrite BufferUsage = 1 << 1

	// BufferUsageCopySrc indicates the buffer can be used as a copy source.
	BufferUsageCopySrc BufferUsage = 1 << 2

	// BufferUsageCopyDst indicates the buffer can be used as a copy destination.
	BufferUsageCopyDst BufferUsage = 1 << 3

	// BufferUsageUniform indicates the buffer can be used as a uniform buffer.
	BufferUsageUniform BufferUsage = 1 << 6

	// BufferUsageStorage indicates the buffer can be used as a storage buffer.
	BufferUsageStorage BufferUsage = 1 << 7
)

// BindingType specifies the type of a shader binding.
type BindingType uint32

// Binding types.
const (
	// BindingTypeUniformBuffer is a uniform buffer binding.
	BindingTypeUniformBuffer BindingType = iota + 1

	// BindingTypeStorageBuffer is a storage buffer binding (read-write).
	BindingTypeStorageBuffer

	// BindingTypeReadOnlyStorageBuffer is a read-only storage buffer binding.
	BindingTypeReadOnlyStorageBuffer
)

// ShaderSource holds the WGSL source of a shader module.
// Adapters that cannot run WGSL (the software adapter) only keep the label
// and resolve compute pipelines by entry point name.
type ShaderSource struct {
	// Label is an optional debug label.
	Label string

	// WGSL is the shader source text.
	WGSL string
}

// ComputePipelineDesc describes a compute pipeline.
type ComputePipelineDesc struct {
	// Label is an optional debug label.
	Label string

	// Layout is the pipeline layout.
	Layout PipelineLayoutID

	// ShaderModule contains the compute shader.
	ShaderModule ShaderModuleID

	// EntryPoint is the name of the shader entry point function.
	EntryPoint string
}

// BindGroupLayoutDesc describes a bind group layout.
type BindGroupLayoutDesc struct {
	// Label is an optional debug label.
	Label string

	// Entries defines the bindings in this layout.
	Entries []BindGroupLayoutEntry
}

// BindGroupLayoutEntry describes a single binding in a bind group layout.
type BindGroupLayoutEntry struct {
	// Binding is the binding index.
	Binding uint32

	// Type is the type of resource bound at this index.
	Type BindingType

	// MinBindingSize is the minimum buffer size for buffer bindings.
	MinBindingSize uint64
}

// BindGroupEntry describes a single binding in a bind group.
type BindGroupEntry struct {
	// Binding is the binding index.
	Binding uint32

	// Buffer is the buffer to bind.
	Buffer BufferID

	// Offset is the offset into the buffer.
	Offset uint64

	// Size is the size of the buffer range to bind.
	// Use 0 to bind the entire buffer from offset.
	Size uint64
}

// Entry point names shared by the WGSL shaders and the CPU kernels.
const (
	EntrySeedClear = "seed_clear"
	EntrySeedInit  = "seed_init"
	EntryJFAStep   = "jfa_step"
	EntryEncode    = "encode"
	EntryRender    = "render"
)

// EntryPoints lists every pass entry point in execution order.
var EntryPoints = []string{EntrySeedClear, EntrySeedInit, EntryJFAStep, EntryEncode, EntryRender}

// WorkgroupSize is the edge of the square compute workgroup used by every
// pass. Must match @workgroup_size in the WGSL sources.
const WorkgroupSize = 8

// WorkgroupCount returns the dispatch size covering a width x height grid.
func WorkgroupCount(width, height int) (x, y uint32) {
	//nolint:gosec // dimensions are validated positive and bounded by MaxTextureSize
	return uint32((width + WorkgroupSize - 1) / WorkgroupSize), uint32((height + WorkgroupSize - 1) / WorkgroupSize)
}

// Binding indices of the single bind group layout used by all passes.
const (
	BindingParams uint32 = 0 // uniform PassParams
	BindingSeeds  uint32 = 1 // read-only storage array<EdgeSeed>
	BindingSrc    uint32 = 2 // read-only storage array<vec4<f32>>
	BindingDst    uint32 = 3 // read-write storage array<vec4<f32>>
)

// PassBindings returns the bind group layout entries shared by all passes.
func PassBindings() []BindGroupLayoutEntry {
	return []BindGroupLayoutEntry{
		{Binding: BindingParams, Type: BindingTypeUniformBuffer, MinBindingSize: PassParamsSize},
		{Binding: BindingSeeds, Type: BindingTypeReadOnlyStorageBuffer, MinBindingSize: EdgeSeedSize},
		{Binding: BindingSrc, Type: BindingTypeReadOnlyStorageBuffer, MinBindingSize: TexelSize},
		{Binding: BindingDst, Type: BindingTypeStorageBuffer, MinBindingSize: TexelSize},
	}
}
