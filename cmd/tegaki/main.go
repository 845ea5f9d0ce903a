// Command tegaki renders a synthetic brush stroke and saves it as a PNG.
package main

import (
	"context"
	"flag"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"log"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/gogpu/tegaki"
	"github.com/gogpu/tegaki/backend"
	"github.com/gogpu/tegaki/backend/software"
	_ "github.com/gogpu/tegaki/backend/wgpu"
	"github.com/gogpu/tegaki/gpucore"
)

func main() {
	var (
		configPath = flag.String("config", "", "TOML pipeline config")
		output     = flag.String("out", "stroke.png", "output file")
		width      = flag.Int("width", 512, "layer width")
		height     = flag.Int("height", 256, "layer height")
		brush      = flag.Float64("brush", 6, "brush half-width in pixels")
		erase      = flag.Bool("erase", false, "erase a stripe of a filled layer instead of painting")
		useGPU     = flag.Bool("gpu", false, "use the wgpu backend when available")
		verbose    = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	if *verbose {
		tegaki.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	cfg := tegaki.DefaultPipelineConfig()
	if *configPath != "" {
		var err error
		if cfg, err = tegaki.LoadConfig(*configPath); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}

	adapter := openAdapter(*useGPU)
	defer adapter.Destroy()

	p, err := tegaki.NewPipeline(adapter, tegaki.WithConfig(cfg))
	if err != nil {
		log.Fatalf("Failed to create pipeline: %v", err)
	}
	defer p.Close()

	stroke := tegaki.Stroke{
		Points: sineStroke(*width, *height),
		Brush: tegaki.Brush{
			HalfWidth:           *brush,
			PressureSensitivity: 0.8,
			MinPressure:         0.2,
		},
	}

	settings := tegaki.DefaultBrushRenderSettings()
	settings.Color = tegaki.RGB{R: 0.1, G: 0.2, B: 0.6}
	layer := image.NewRGBA(image.Rect(0, 0, *width, *height))
	draw.Draw(layer, layer.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	if *erase {
		settings.Mode = tegaki.BrushEraser
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	start := time.Now()
	res, err := p.Render(ctx, stroke, settings)
	if err != nil {
		log.Fatalf("Failed to render stroke: %v", err)
	}
	if err := tegaki.Composite(layer, res, tegaki.CompositeOptions{}); err != nil {
		log.Fatalf("Failed to composite: %v", err)
	}

	if err := savePNG(*output, layer); err != nil {
		log.Fatalf("Failed to save: %v", err)
	}
	log.Printf("Stroke saved to %s (%dx%d, texture %dx%d, %d JFA passes, %s on %s)\n",
		*output, *width, *height, res.Width, res.Height, res.Iterations,
		time.Since(start).Round(time.Millisecond), adapter.Name())
}

func openAdapter(useGPU bool) gpucore.GPUAdapter {
	if useGPU {
		a, err := backend.OpenDefault()
		if err == nil {
			return a
		}
		log.Printf("GPU backend unavailable, using software: %v", err)
	}
	return software.New()
}

// sineStroke samples one period of a sine wave across the layer, fed
// through a coalescer the way pointer events would arrive.
func sineStroke(w, h int) []tegaki.StrokePoint {
	rec := &tegaki.StrokeRecorder{}
	c := tegaki.NewCoalescer(16, 8*time.Millisecond, rec.Append)

	const n = 200
	margin := float64(w) * 0.1
	for i := range n + 1 {
		t := float64(i) / n
		x := margin + t*(float64(w)-2*margin)
		y := float64(h)/2 + math.Sin(t*2*math.Pi)*float64(h)*0.3
		pressure := 0.3 + 0.7*math.Sin(t*math.Pi)
		if err := c.Add(tegaki.StrokePoint{X: x, Y: y, Pressure: pressure}); err != nil {
			log.Fatalf("Failed to record point: %v", err)
		}
	}
	c.Close()
	return rec.Points()
}

func savePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
