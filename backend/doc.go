// Package backend provides a registry of GPU adapter implementations.
//
// Adapters register themselves from init() functions and are selected at
// runtime by name or by priority:
//
//	import (
//		_ "github.com/gogpu/tegaki/backend/software"
//		_ "github.com/gogpu/tegaki/backend/wgpu"
//	)
//
//	a, err := backend.OpenDefault() // wgpu when a GPU is present, else software
//	a, err := backend.Open("software")
//
// # Available Backends
//
//   - "wgpu": compute passes on the GPU via gogpu/wgpu HAL
//   - "software": CPU reference kernels, always available
package backend
