//go:build nogpu

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/tegaki/gpucore"
)

// Open always fails when built with the nogpu tag.
func Open() (gpucore.GPUAdapter, error) {
	return nil, ErrUnavailable
}

// NewFromProvider always fails when built with the nogpu tag.
func NewFromProvider(gpucontext.DeviceProvider) (gpucore.GPUAdapter, error) {
	return nil, ErrUnavailable
}
