//go:build !nogpu

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/tegaki/gpucore"
	"github.com/gogpu/wgpu/hal"
)

type mockDevice struct{}

func (m *mockDevice) Poll(wait bool) {}
func (m *mockDevice) Destroy()       {}

type mockQueue struct{}

type mockAdapter struct{}

// mockProvider implements gpucontext.DeviceProvider without HAL accessors.
type mockProvider struct{}

func (m *mockProvider) Device() gpucontext.Device             { return &mockDevice{} }
func (m *mockProvider) Queue() gpucontext.Queue               { return &mockQueue{} }
func (m *mockProvider) Adapter() gpucontext.Adapter           { return &mockAdapter{} }
func (m *mockProvider) SurfaceFormat() gputypes.TextureFormat { return gputypes.TextureFormatBGRA8Unorm }

// halMockProvider exposes HAL accessors returning the wrong types.
type halMockProvider struct{ mockProvider }

func (m *halMockProvider) HalDevice() any { return "device" }
func (m *halMockProvider) HalQueue() any  { return "queue" }

func TestNewFromProviderRejectsNonHAL(t *testing.T) {
	if _, err := NewFromProvider(&mockProvider{}); !errors.Is(err, ErrProvider) {
		t.Errorf("NewFromProvider(plain) error = %v, want ErrProvider", err)
	}
	if _, err := NewFromProvider(&halMockProvider{}); !errors.Is(err, ErrProvider) {
		t.Errorf("NewFromProvider(wrong types) error = %v, want ErrProvider", err)
	}
}

func TestConvertBufferUsage(t *testing.T) {
	tests := []struct {
		in   gpucore.BufferUsage
		want gputypes.BufferUsage
	}{
		{gpucore.BufferUsageStorage, gputypes.BufferUsageStorage},
		{gpucore.BufferUsageUniform | gpucore.BufferUsageCopyDst, gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst},
		{gpucore.BufferUsageMapRead | gpucore.BufferUsageCopyDst, gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst},
		{gpucore.BufferUsageStorage | gpucore.BufferUsageCopySrc, gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc},
	}
	for _, tt := range tests {
		if got := convertBufferUsage(tt.in); got != tt.want {
			t.Errorf("convertBufferUsage(%#x) = %#x, want %#x", tt.in, got, tt.want)
		}
	}
}

func TestConvertBindingType(t *testing.T) {
	if got := convertBindingType(gpucore.BindingTypeUniformBuffer); got != gputypes.BufferBindingTypeUniform {
		t.Errorf("uniform = %v", got)
	}
	if got := convertBindingType(gpucore.BindingTypeReadOnlyStorageBuffer); got != gputypes.BufferBindingTypeReadOnlyStorage {
		t.Errorf("read-only storage = %v", got)
	}
	if got := convertBindingType(gpucore.BindingTypeStorageBuffer); got != gputypes.BufferBindingTypeStorage {
		t.Errorf("storage = %v", got)
	}
}

// openOrSkip opens a private device or skips when no GPU is present.
func openOrSkip(t *testing.T) gpucore.GPUAdapter {
	t.Helper()
	a, err := Open()
	if err != nil {
		t.Skipf("GPU not available: %v", err)
	}
	t.Cleanup(a.Destroy)
	return a
}

func TestAdapterBufferRoundTrip(t *testing.T) {
	a := openOrSkip(t)

	buf, err := a.CreateBuffer(64, gpucore.BufferUsageStorage|gpucore.BufferUsageCopySrc|gpucore.BufferUsageCopyDst)
	if err != nil {
		t.Fatalf("CreateBuffer: %v", err)
	}
	want := make([]byte, 64)
	for i := range want {
		want[i] = byte(i)
	}
	if err := a.WriteBuffer(buf, 0, want); err != nil {
		t.Fatalf("WriteBuffer: %v", err)
	}
	if err := a.WaitIdle(context.Background()); err != nil {
		t.Fatalf("WaitIdle: %v", err)
	}
	got, err := a.ReadBuffer(buf, 16, 32)
	if err != nil {
		t.Fatalf("ReadBuffer: %v", err)
	}
	if !bytes.Equal(got, want[16:48]) {
		t.Errorf("ReadBuffer = %v, want %v", got, want[16:48])
	}
}

func TestAdapterRejectsOversizedBuffer(t *testing.T) {
	a := openOrSkip(t)
	if _, err := a.CreateBuffer(int(a.MaxBufferSize())+1, gpucore.BufferUsageStorage); !errors.Is(err, gpucore.ErrOutOfMemory) {
		t.Errorf("CreateBuffer(max+1) error = %v, want ErrOutOfMemory", err)
	}
}

func TestCompileWGSL(t *testing.T) {
	code, err := compileWGSL("@compute @workgroup_size(1)\nfn main() {}\n")
	if err != nil {
		t.Skipf("naga cannot compile a trivial module: %v", err)
	}
	if len(code) == 0 {
		t.Fatal("compileWGSL returned no words")
	}
	if code[0] != 0x07230203 {
		t.Errorf("first SPIR-V word = %#x, want 0x07230203", code[0])
	}

	if _, err := compileWGSL("fn ("); err == nil {
		t.Error("compileWGSL(invalid) = nil error, want error")
	}
}

// encoderDevice hands out one recording encoder; every other hal.Device
// method is unimplemented.
type encoderDevice struct {
	hal.Device
	enc *recordingEncoder
}

func (d *encoderDevice) CreateCommandEncoder(*hal.CommandEncoderDescriptor) (hal.CommandEncoder, error) {
	return d.enc, nil
}

type recordingEncoder struct {
	hal.CommandEncoder
	beginErr  error
	discarded int
}

func (e *recordingEncoder) BeginEncoding(string) error { return e.beginErr }
func (e *recordingEncoder) DiscardEncoding()           { e.discarded++ }

func (e *recordingEncoder) BeginComputePass(*hal.ComputePassDescriptor) hal.ComputePassEncoder {
	return nopComputePass{}
}

type nopComputePass struct{ hal.ComputePassEncoder }

func (nopComputePass) End() {}

func TestSubmitDiscardsEncoderOnError(t *testing.T) {
	pass := recordedPass{label: "stale", dispatches: []dispatch{{pipeline: 7, group: 9, x: 1, y: 1, z: 1}}}

	tests := []struct {
		name     string
		beginErr error
		want     error
	}{
		{"unknown pipeline", nil, gpucore.ErrInvalidResource},
		{"begin encoding fails", errors.New("pool exhausted"), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc := &recordingEncoder{beginErr: tt.beginErr}
			a := &Adapter{
				device:           &encoderDevice{enc: enc},
				computePipelines: make(map[gpucore.ComputePipelineID]hal.ComputePipeline),
				bindGroups:       make(map[gpucore.BindGroupID]hal.BindGroup),
				recorded:         []recordedPass{pass},
			}

			err := a.Submit()
			if err == nil {
				t.Fatal("Submit() = nil, want error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("Submit() = %v, want %v", err, tt.want)
			}
			if enc.discarded != 1 {
				t.Errorf("DiscardEncoding calls = %d, want 1", enc.discarded)
			}
			if len(a.recorded) != 0 {
				t.Errorf("recorded passes = %d, want 0", len(a.recorded))
			}
		})
	}
}
