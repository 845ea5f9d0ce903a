// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import "github.com/gogpu/tegaki/backend"

// init registers the wgpu adapter on package import. With the nogpu tag the
// factory always fails, so backend.OpenDefault falls through to the next
// backend.
func init() {
	backend.Register(backend.BackendWGPU, Open)
}
