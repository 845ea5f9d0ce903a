// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package wgpu implements gpucore.GPUAdapter on top of the gogpu/wgpu HAL.
//
// The adapter either opens its own Vulkan device or borrows the device of a
// host application through a gpucontext.DeviceProvider that also exposes
// HAL handles:
//
//	a, err := wgpu.Open()            // private device
//	a, err := wgpu.NewFromProvider(p) // shared device, not destroyed on Destroy
//
// # Execution Model
//
// Compute passes are recorded into a single command encoder per Submit.
// Every submission carries its own fence; WaitIdle waits on the fences of
// all outstanding submissions, polling so that context cancellation is
// observed. A fence that fails, or does not signal within FenceTimeout, is
// reported as gpucore.ErrDeviceLost and poisons the adapter.
//
// Buffer reads copy the requested range into a MapRead staging buffer and
// wait for the copy before returning.
//
// # Build Tags
//
// Building with -tags nogpu replaces the adapter with a stub whose
// constructors return ErrUnavailable.
package wgpu
