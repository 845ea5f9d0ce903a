// Package gpucore provides the GPU abstraction shared by the tegaki stroke
// pipeline and its backends.
//
// This package defines the [GPUAdapter] interface, which abstracts over
// different GPU implementations so the same multi-pass distance-field
// algorithm runs on:
//   - gogpu/wgpu (Pure Go WebGPU via HAL), see backend/wgpu
//   - the CPU reference adapter, see backend/software
//
// # Architecture
//
// The stroke pipeline is written once against [GPUAdapter]. Adapters are
// thin: they translate resource IDs into backend objects and execute the
// recorded compute passes.
//
//	               +-----------------+
//	               |     tegaki      |
//	               |   (Pipeline)    |
//	               +--------+--------+
//	                        |
//	         +--------------+--------------+
//	         |                             |
//	+--------v--------+          +--------v--------+
//	|  wgpu adapter   |          | software adapter|
//	|  (hal.Device)   |          |  (CPU kernels)  |
//	+-----------------+          +-----------------+
//
// # Passes
//
// Every pass binds the same layout (see [PassBindings]):
//
//  1. seed_clear: fill the seed texels with the sentinel value.
//  2. seed_init:  scatter edge seeds into the texels they cover.
//  3. jfa_step:   one Jump Flooding iteration, ping-ponging two buffers.
//  4. encode:     nearest seed to normalized signed distance.
//  5. render:     distance field to premultiplied coverage.
//
// # Resource Management
//
// GPU resources are managed via opaque IDs ([BufferID], [BindGroupID], etc.).
// Adapters track the mapping between IDs and actual resources. Resources
// must be destroyed explicitly; IDs are never reused.
//
// # Synchronization
//
// [GPUAdapter.Submit] queues all passes recorded since the previous submit.
// [GPUAdapter.WaitIdle] is the explicit "work done" point: callers must wait
// before reading a buffer written by a submitted pass, and before starting a
// pass that depends on it from a different submission.
package gpucore
