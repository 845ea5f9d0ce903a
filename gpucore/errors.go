package gpucore

import "errors"

// Adapter errors. Backends wrap these so callers can classify failures
// with errors.Is regardless of the underlying API.
var (
	// ErrDeviceLost is returned once the underlying device is no longer usable.
	ErrDeviceLost = errors.New("gpucore: device lost")

	// ErrOutOfMemory is returned when a buffer allocation fails.
	ErrOutOfMemory = errors.New("gpucore: out of device memory")

	// ErrUnknownEntryPoint is returned when a compute pipeline names an entry
	// point the adapter cannot execute.
	ErrUnknownEntryPoint = errors.New("gpucore: unknown entry point")

	// ErrShaderCompile is returned when a shader module fails to compile.
	ErrShaderCompile = errors.New("gpucore: shader compilation failed")

	// ErrInvalidResource is returned when an ID does not name a live resource.
	ErrInvalidResource = errors.New("gpucore: invalid resource id")
)
