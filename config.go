package tegaki

import (
	"bytes"
	"fmt"
	"io"
	"math/bits"
	"strings"

	"github.com/BurntSushi/toml"
)

// MaxTextureSize is the largest texture side the pipeline will allocate.
const MaxTextureSize = 16384

// PipelineConfig holds the tunables of a Pipeline.
type PipelineConfig struct {
	// BaseTextureSize is the largest texture side for committed strokes.
	BaseTextureSize int `toml:"base_texture_size"`

	// PreviewTextureSize is the largest texture side for preview strokes.
	PreviewTextureSize int `toml:"preview_texture_size"`

	// MinTextureSize is the smallest texture side.
	MinTextureSize int `toml:"min_texture_size"`

	// JFACap limits the number of jump flooding passes.
	JFACap int `toml:"jfa_cap"`

	// SampleCount is the number of render sub-samples per texel: 1, 4 or 8.
	SampleCount int `toml:"sample_count"`

	// AspectTolerance is the relative aspect deviation allowed before the
	// texture size is re-derived from the stroke's aspect ratio.
	AspectTolerance float64 `toml:"aspect_tolerance"`

	// DistanceRange is the encode distance range in layer pixels.
	DistanceRange float64 `toml:"distance_range"`

	// MaxMemoryMB bounds the GPU memory of one invocation.
	MaxMemoryMB int `toml:"max_memory_mb"`

	// FieldCacheSize is the number of distance fields kept per pipeline.
	// 0 disables the cache.
	FieldCacheSize int `toml:"field_cache_size"`
}

// DefaultPipelineConfig returns the default configuration.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		BaseTextureSize:    4096,
		PreviewTextureSize: 1024,
		MinTextureSize:     64,
		JFACap:             12,
		SampleCount:        4,
		AspectTolerance:    0.1,
		DistanceRange:      4,
		MaxMemoryMB:        256,
	}
}

// Validate checks the configuration for errors.
func (c *PipelineConfig) Validate() error {
	for _, f := range []struct {
		name string
		v    int
	}{
		{"BaseTextureSize", c.BaseTextureSize},
		{"PreviewTextureSize", c.PreviewTextureSize},
		{"MinTextureSize", c.MinTextureSize},
	} {
		if f.v <= 0 || f.v > MaxTextureSize {
			return &ConfigError{Field: f.name, Reason: fmt.Sprintf("must be in [1, %d]", MaxTextureSize)}
		}
		if bits.OnesCount(uint(f.v)) != 1 {
			return &ConfigError{Field: f.name, Reason: "must be a power of two"}
		}
	}
	if c.MinTextureSize > c.PreviewTextureSize || c.PreviewTextureSize > c.BaseTextureSize {
		return &ConfigError{Field: "PreviewTextureSize", Reason: "must satisfy Min <= Preview <= Base"}
	}
	if c.JFACap < 1 || c.JFACap > 16 {
		return &ConfigError{Field: "JFACap", Reason: "must be in [1, 16]"}
	}
	switch c.SampleCount {
	case 1, 4, 8:
	default:
		return &ConfigError{Field: "SampleCount", Reason: "must be 1, 4 or 8"}
	}
	if !(c.AspectTolerance >= 0 && c.AspectTolerance < 1) {
		return &ConfigError{Field: "AspectTolerance", Reason: "must be in [0, 1)"}
	}
	if !(c.DistanceRange > 0 && c.DistanceRange <= 1024) {
		return &ConfigError{Field: "DistanceRange", Reason: "must be in (0, 1024]"}
	}
	if c.MaxMemoryMB < 1 {
		return &ConfigError{Field: "MaxMemoryMB", Reason: "must be positive"}
	}
	if c.FieldCacheSize < 0 {
		return &ConfigError{Field: "FieldCacheSize", Reason: "must be non-negative"}
	}
	return nil
}

// SizePolicy returns the texture size policy for committed or preview
// strokes.
func (c PipelineConfig) SizePolicy(preview bool) SizePolicy {
	limit := c.BaseTextureSize
	if preview {
		limit = c.PreviewTextureSize
	}
	return SizePolicy{Min: c.MinTextureSize, Max: limit, Tolerance: c.AspectTolerance}
}

func (c PipelineConfig) memoryBudget() uint64 {
	return uint64(c.MaxMemoryMB) << 20 //nolint:gosec // validated positive
}

// LoadConfig reads a TOML configuration file. Keys missing from the file
// keep their default values.
func LoadConfig(path string) (PipelineConfig, error) {
	cfg := DefaultPipelineConfig()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return PipelineConfig{}, fmt.Errorf("tegaki: load config %s: %w", path, err)
	}
	return finishDecode(cfg, md)
}

// DecodeConfig reads a TOML configuration from r. Keys missing from the
// input keep their default values.
func DecodeConfig(r io.Reader) (PipelineConfig, error) {
	cfg := DefaultPipelineConfig()
	md, err := toml.NewDecoder(r).Decode(&cfg)
	if err != nil {
		return PipelineConfig{}, fmt.Errorf("tegaki: decode config: %w", err)
	}
	return finishDecode(cfg, md)
}

func finishDecode(cfg PipelineConfig, md toml.MetaData) (PipelineConfig, error) {
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return PipelineConfig{}, &ConfigError{Field: keys[0], Reason: "unknown key (" + strings.Join(keys, ", ") + ")"}
	}
	if err := cfg.Validate(); err != nil {
		return PipelineConfig{}, err
	}
	return cfg, nil
}

// WriteTOML encodes the configuration as TOML.
func (c PipelineConfig) WriteTOML(w io.Writer) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("tegaki: encode config: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}
