package tegaki

import "github.com/gogpu/tegaki/internal/edge"

// StrokePoint is one pointer sample in layer-local coordinates.
type StrokePoint struct {
	X, Y float64

	// Pressure in [0, 1]. Devices without pressure report 0.5 or 1.
	Pressure float64

	// TiltX and TiltY are pen tilt angles in degrees; 0 when unknown.
	TiltX, TiltY float64
}

// Pt returns a full-pressure point without tilt.
func Pt(x, y float64) StrokePoint {
	return StrokePoint{X: x, Y: y, Pressure: 1}
}

func toSamples(points []StrokePoint) []edge.Sample {
	out := make([]edge.Sample, len(points))
	for i, p := range points {
		out[i] = edge.Sample{X: p.X, Y: p.Y, Pressure: p.Pressure, TiltX: p.TiltX, TiltY: p.TiltY}
	}
	return out
}
