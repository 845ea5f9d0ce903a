// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import "errors"

// Package errors for the wgpu adapter.
var (
	// ErrUnavailable is returned when no usable GPU backend is compiled in
	// or registered.
	ErrUnavailable = errors.New("wgpu: GPU backend not available")

	// ErrNoAdapter is returned when the instance enumerates no adapters.
	ErrNoAdapter = errors.New("wgpu: no GPU adapter found")

	// ErrProvider is returned when a device provider does not expose HAL
	// device and queue handles.
	ErrProvider = errors.New("wgpu: provider does not expose HAL types")
)
