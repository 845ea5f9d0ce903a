package tegaki

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultPipelineConfigValid(t *testing.T) {
	cfg := DefaultPipelineConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultPipelineConfig().Validate() = %v", err)
	}
}

func TestPipelineConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*PipelineConfig)
		field  string
	}{
		{"base not pow2", func(c *PipelineConfig) { c.BaseTextureSize = 3000 }, "BaseTextureSize"},
		{"base too large", func(c *PipelineConfig) { c.BaseTextureSize = 32768 }, "BaseTextureSize"},
		{"preview zero", func(c *PipelineConfig) { c.PreviewTextureSize = 0 }, "PreviewTextureSize"},
		{"preview above base", func(c *PipelineConfig) { c.PreviewTextureSize = 8192 }, "PreviewTextureSize"},
		{"min above preview", func(c *PipelineConfig) { c.MinTextureSize = 2048 }, "PreviewTextureSize"},
		{"jfa cap zero", func(c *PipelineConfig) { c.JFACap = 0 }, "JFACap"},
		{"sample count", func(c *PipelineConfig) { c.SampleCount = 2 }, "SampleCount"},
		{"aspect tolerance", func(c *PipelineConfig) { c.AspectTolerance = 1 }, "AspectTolerance"},
		{"distance range", func(c *PipelineConfig) { c.DistanceRange = 0 }, "DistanceRange"},
		{"memory", func(c *PipelineConfig) { c.MaxMemoryMB = 0 }, "MaxMemoryMB"},
		{"cache", func(c *PipelineConfig) { c.FieldCacheSize = -1 }, "FieldCacheSize"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultPipelineConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			var ce *ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("Validate() = %v, want *ConfigError", err)
			}
			if ce.Field != tt.field {
				t.Errorf("ConfigError.Field = %q, want %q", ce.Field, tt.field)
			}
		})
	}
}

func TestConfigTOMLRoundTrip(t *testing.T) {
	cfg := DefaultPipelineConfig()
	cfg.BaseTextureSize = 2048
	cfg.SampleCount = 8
	cfg.DistanceRange = 6.5
	cfg.FieldCacheSize = 3

	var buf bytes.Buffer
	if err := cfg.WriteTOML(&buf); err != nil {
		t.Fatalf("WriteTOML: %v", err)
	}
	if !strings.Contains(buf.String(), "base_texture_size = 2048") {
		t.Errorf("WriteTOML output missing base_texture_size:\n%s", buf.String())
	}
	got, err := DecodeConfig(&buf)
	if err != nil {
		t.Fatalf("DecodeConfig: %v", err)
	}
	if got != cfg {
		t.Errorf("round trip = %+v, want %+v", got, cfg)
	}
}

func TestDecodeConfigKeepsDefaults(t *testing.T) {
	got, err := DecodeConfig(strings.NewReader("jfa_cap = 8\n"))
	if err != nil {
		t.Fatalf("DecodeConfig: %v", err)
	}
	want := DefaultPipelineConfig()
	want.JFACap = 8
	if got != want {
		t.Errorf("DecodeConfig = %+v, want %+v", got, want)
	}
}

func TestDecodeConfigRejects(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"unknown key", "jfa_cap = 8\ncolour = 3\n"},
		{"invalid value", "sample_count = 3\n"},
		{"syntax", "jfa_cap = = 8\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeConfig(strings.NewReader(tt.in)); err == nil {
				t.Errorf("DecodeConfig(%q) = nil error", tt.in)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tegaki.toml")
	if err := os.WriteFile(path, []byte("preview_texture_size = 512\nmax_memory_mb = 64\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.PreviewTextureSize != 512 || cfg.MaxMemoryMB != 64 {
		t.Errorf("LoadConfig = %+v, want preview 512 and 64 MB", cfg)
	}
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("LoadConfig(missing) = nil error")
	}
}

func TestSettingsValidate(t *testing.T) {
	if err := DefaultBrushRenderSettings().Validate(); err != nil {
		t.Errorf("DefaultBrushRenderSettings().Validate() = %v", err)
	}
	if err := DefaultBrush().Validate(); err != nil {
		t.Errorf("DefaultBrush().Validate() = %v", err)
	}

	bad := []BrushRenderSettings{
		{Opacity: 2, Threshold: 0.5},
		{Opacity: 1, Threshold: -0.1},
		{Opacity: 1, Threshold: 0.5, Smoothness: 0.6},
		{Opacity: 1, Threshold: 0.5, Color: RGB{R: 1.5}},
		{Opacity: 1, Threshold: 0.5, Mode: BrushMode(7)},
	}
	for _, s := range bad {
		if err := s.Validate(); err == nil {
			t.Errorf("Validate(%+v) = nil, want error", s)
		}
	}
	if err := (Brush{HalfWidth: -1}).Validate(); err == nil {
		t.Error("Brush{HalfWidth: -1}.Validate() = nil, want error")
	}
}
