package software

import (
	"github.com/gogpu/tegaki/backend"
	"github.com/gogpu/tegaki/gpucore"
)

// init registers the software adapter on package import.
func init() {
	backend.Register(backend.BackendSoftware, func() (gpucore.GPUAdapter, error) {
		return New(), nil
	})
}
