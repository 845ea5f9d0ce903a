package backend

import (
	"errors"

	"github.com/gogpu/tegaki/gpucore"
)

// Backend name constants.
const (
	// BackendWGPU is the name of the GPU adapter (gogpu/wgpu HAL).
	BackendWGPU = "wgpu"
	// BackendSoftware is the name of the CPU adapter.
	BackendSoftware = "software"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not
	// registered or none could be opened.
	ErrBackendNotAvailable = errors.New("backend: not available")
)

// Factory opens a new adapter. Factories for hardware backends return an
// error when the hardware is missing.
type Factory func() (gpucore.GPUAdapter, error)
