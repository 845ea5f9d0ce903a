package shaders

import (
	"encoding/binary"
	"strconv"
	"strings"
	"testing"

	"github.com/gogpu/naga"
	"github.com/gogpu/tegaki/gpucore"
)

func TestModulesCoverEntryPoints(t *testing.T) {
	seen := make(map[string]int)
	for _, m := range Modules() {
		for _, e := range m.Entries {
			seen[e]++
			if !strings.Contains(m.Source.WGSL, "fn "+e+"(") {
				t.Errorf("module %s does not define %s", m.Label, e)
			}
		}
	}
	for _, e := range gpucore.EntryPoints {
		if seen[e] != 1 {
			t.Errorf("entry %s exported %d times, want 1", e, seen[e])
		}
	}
	if _, ok := ModuleFor("missing"); ok {
		t.Error("ModuleFor(missing) = ok")
	}
}

func TestSourcesMatchLayout(t *testing.T) {
	src := Common()
	want := "@workgroup_size(" + strconv.Itoa(gpucore.WorkgroupSize) + ", " + strconv.Itoa(gpucore.WorkgroupSize) + ", 1)"
	for _, m := range Modules() {
		if !strings.Contains(m.Source.WGSL, want) {
			t.Errorf("module %s lacks %s", m.Label, want)
		}
	}
	if !strings.Contains(src, "const COVER_RADIUS: f32 = 0.75;") {
		t.Error("COVER_RADIUS does not match gpucore.CoverRadius")
	}
	// Params fields must appear in PassParams order.
	fields := []string{
		"width", "height", "seed_count", "step", "range", "threshold", "smoothness", "opacity",
		"color_r", "color_g", "color_b", "mode", "sample_count", "seed_index", "origin_x", "origin_y",
	}
	body := src[strings.Index(src, "struct Params"):]
	body = body[:strings.Index(body, "}")]
	last := -1
	for _, f := range fields {
		i := strings.Index(body, "    "+f+":")
		if i < 0 || i < last {
			t.Fatalf("Params field %s missing or out of order", f)
		}
		last = i
	}
}

func TestShadersHaveNoLoops(t *testing.T) {
	for _, m := range Modules() {
		for _, kw := range []string{"for (", "loop {", "while "} {
			if strings.Contains(m.Source.WGSL, kw) {
				t.Errorf("module %s contains %q", m.Label, kw)
			}
		}
	}
}

func TestShadersCompile(t *testing.T) {
	for _, m := range Modules() {
		t.Run(m.Label, func(t *testing.T) {
			spirv, err := naga.Compile(m.Source.WGSL)
			if err != nil {
				msg := err.Error()
				for _, s := range []string{"not yet implemented", "not supported", "lowering error"} {
					if strings.Contains(msg, s) {
						t.Skipf("naga limitation: %v", err)
					}
				}
				t.Fatalf("naga.Compile(%s) failed: %v", m.Label, err)
			}
			if len(spirv) < 4 {
				t.Fatalf("SPIR-V output too short: %d bytes", len(spirv))
			}
			if magic := binary.LittleEndian.Uint32(spirv[:4]); magic != 0x07230203 {
				t.Errorf("SPIR-V magic = %#x, want 0x07230203", magic)
			}
			t.Logf("%s: %d bytes SPIR-V", m.Label, len(spirv))
		})
	}
}
