package tegaki

import (
	"math"

	"github.com/gogpu/tegaki/gpucore"
	"github.com/gogpu/tegaki/internal/blend"
	"github.com/gogpu/tegaki/internal/edge"
)

// BrushMode selects how a stroke is applied to the layer.
type BrushMode uint8

const (
	// BrushPen paints the brush color with source-over.
	BrushPen BrushMode = iota

	// BrushEraser removes layer content with destination-out.
	BrushEraser
)

// String returns the mode name.
func (m BrushMode) String() string {
	switch m {
	case BrushPen:
		return "pen"
	case BrushEraser:
		return "eraser"
	default:
		return "unknown"
	}
}

func (m BrushMode) gpu() gpucore.BrushMode {
	if m == BrushEraser {
		return gpucore.ModeEraser
	}
	return gpucore.ModePen
}

func (m BrushMode) blendMode() blend.Mode {
	if m == BrushEraser {
		return blend.DestinationOut
	}
	return blend.SourceOver
}

// RGB is a straight (non-premultiplied) color with components in [0, 1].
type RGB struct {
	R, G, B float64
}

// Black is the default brush color.
var Black = RGB{}

// Default render settings.
const (
	DefaultThreshold  = 0.5
	DefaultSmoothness = 0.0625
	DefaultOpacity    = 1.0
)

// BrushRenderSettings controls how the distance field becomes coverage.
type BrushRenderSettings struct {
	Color RGB

	// Opacity scales the final alpha, in [0, 1].
	Opacity float64

	// Threshold is the field value at which coverage reaches one half.
	// 0.5 puts the edge on the capsule boundary.
	Threshold float64

	// Smoothness is the half-width of the coverage transition in field
	// units. 0 gives a hard edge.
	Smoothness float64

	Mode BrushMode
}

// DefaultBrushRenderSettings returns a black, fully opaque pen.
func DefaultBrushRenderSettings() BrushRenderSettings {
	return BrushRenderSettings{
		Color:      Black,
		Opacity:    DefaultOpacity,
		Threshold:  DefaultThreshold,
		Smoothness: DefaultSmoothness,
		Mode:       BrushPen,
	}
}

// Validate checks the settings.
func (s BrushRenderSettings) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"Color.R", s.Color.R},
		{"Color.G", s.Color.G},
		{"Color.B", s.Color.B},
		{"Opacity", s.Opacity},
		{"Threshold", s.Threshold},
	} {
		if math.IsNaN(f.v) || f.v < 0 || f.v > 1 {
			return &ConfigError{Field: f.name, Reason: "must be in [0, 1]"}
		}
	}
	if math.IsNaN(s.Smoothness) || s.Smoothness < 0 || s.Smoothness > 0.5 {
		return &ConfigError{Field: "Smoothness", Reason: "must be in [0, 0.5]"}
	}
	if s.Mode != BrushPen && s.Mode != BrushEraser {
		return &ConfigError{Field: "Mode", Reason: "unknown brush mode"}
	}
	return nil
}

// Brush shapes the stroke geometry.
type Brush struct {
	// HalfWidth is the brush radius in layer pixels at full pressure.
	HalfWidth float64

	// PressureSensitivity blends between constant width (0) and width
	// proportional to pressure (1).
	PressureSensitivity float64

	// MinPressure is the smallest width factor pressure can produce.
	MinPressure float64

	// Spacing drops samples closer than this many pixels to the previous one.
	Spacing float64

	// TiltSensitivity widens the brush with pen tilt. 0 disables tilt.
	TiltSensitivity float64
}

// DefaultBrush returns a 4 px round brush without pressure response.
func DefaultBrush() Brush {
	return Brush{HalfWidth: 4, MinPressure: 0.1}
}

// Validate checks the brush.
func (b Brush) Validate() error {
	if !(b.HalfWidth >= 0) || math.IsInf(b.HalfWidth, 0) {
		return &ConfigError{Field: "HalfWidth", Reason: "must be finite and non-negative"}
	}
	if !(b.PressureSensitivity >= 0 && b.PressureSensitivity <= 1) {
		return &ConfigError{Field: "PressureSensitivity", Reason: "must be in [0, 1]"}
	}
	if !(b.MinPressure >= 0 && b.MinPressure <= 1) {
		return &ConfigError{Field: "MinPressure", Reason: "must be in [0, 1]"}
	}
	if !(b.Spacing >= 0) || !(b.TiltSensitivity >= 0) {
		return &ConfigError{Field: "Spacing", Reason: "spacing and tilt sensitivity must be non-negative"}
	}
	return nil
}

func (b Brush) options() edge.Options {
	return edge.Options{
		HalfWidth:           b.HalfWidth,
		PressureSensitivity: b.PressureSensitivity,
		MinPressure:         b.MinPressure,
		Spacing:             b.Spacing,
		TiltSensitivity:     b.TiltSensitivity,
	}
}

// Stroke is one freehand stroke ready for rendering.
type Stroke struct {
	Points []StrokePoint
	Brush  Brush

	// Layer identifies the target layer for the distance field cache.
	// Strokes with an empty Layer are never cached.
	Layer string
}
