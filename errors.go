package tegaki

import (
	"context"
	"errors"
	"fmt"

	"github.com/gogpu/tegaki/gpucore"
)

// Pipeline errors. Failures are wrapped, so use errors.Is to classify them.
var (
	// ErrInputDegenerate reports a stroke with fewer than two usable
	// samples. Render does not return it; it yields an empty result.
	ErrInputDegenerate = errors.New("tegaki: degenerate stroke input")

	// ErrResourceExhausted is returned when a buffer cannot be allocated or
	// the invocation would exceed the memory budget.
	ErrResourceExhausted = errors.New("tegaki: GPU resources exhausted")

	// ErrDeviceLost is returned once the adapter has lost its device. The
	// pipeline stays unusable until Reinitialize or ReinitializeWith.
	ErrDeviceLost = errors.New("tegaki: GPU device lost")

	// ErrShaderCompile is returned by NewPipeline and Reinitialize when a
	// pass shader or compute pipeline cannot be built.
	ErrShaderCompile = errors.New("tegaki: shader compilation failed")

	// ErrCanceled is returned when the stroke's context ends before the
	// result is ready. It is joined with the context error.
	ErrCanceled = errors.New("tegaki: stroke canceled")

	// ErrPipelineClosed is returned after Close.
	ErrPipelineClosed = errors.New("tegaki: pipeline closed")
)

// Stage is a state of the per-stroke state machine.
type Stage uint8

// Stroke states in execution order.
const (
	StageIdle Stage = iota
	StageSeedInit
	StageJFA
	StageEncode
	StageRender
	StageDone
	StageAborted
)

// String returns the stage name.
func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageSeedInit:
		return "seed-init"
	case StageJFA:
		return "jfa"
	case StageEncode:
		return "encode"
	case StageRender:
		return "render"
	case StageDone:
		return "done"
	case StageAborted:
		return "aborted"
	default:
		return fmt.Sprintf("Stage(%d)", s)
	}
}

// StageError records the stage in which a stroke invocation failed.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return "tegaki: " + e.Stage.String() + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// classify maps adapter and context errors onto the pipeline taxonomy. The
// original error stays in the chain.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		if errors.Is(err, ErrCanceled) {
			return err
		}
		return errors.Join(ErrCanceled, err)
	case errors.Is(err, ErrDeviceLost), errors.Is(err, ErrResourceExhausted),
		errors.Is(err, ErrShaderCompile), errors.Is(err, ErrCanceled):
		return err
	case errors.Is(err, gpucore.ErrDeviceLost):
		return fmt.Errorf("%w: %w", ErrDeviceLost, err)
	case errors.Is(err, gpucore.ErrOutOfMemory):
		return fmt.Errorf("%w: %w", ErrResourceExhausted, err)
	case errors.Is(err, gpucore.ErrShaderCompile), errors.Is(err, gpucore.ErrUnknownEntryPoint):
		return fmt.Errorf("%w: %w", ErrShaderCompile, err)
	default:
		return err
	}
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return "tegaki: invalid config." + e.Field + ": " + e.Reason
}
