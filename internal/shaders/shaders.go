// Package shaders embeds the WGSL sources of the stroke pipeline passes.
//
// Each pass lives in its own file and is compiled as a separate module with
// the shared declarations of common.wgsl prepended. The sources avoid loops
// entirely: neighbour scans and sub-sample patterns are unrolled and
// seed_init handles one seed per dispatch.
package shaders

import (
	_ "embed"

	"github.com/gogpu/tegaki/gpucore"
)

//go:embed wgsl/common.wgsl
var commonSource string

//go:embed wgsl/seed.wgsl
var seedSource string

//go:embed wgsl/jfa.wgsl
var jfaSource string

//go:embed wgsl/encode.wgsl
var encodeSource string

//go:embed wgsl/render.wgsl
var renderSource string

// Module is one compilable shader module and the entry points it exports.
type Module struct {
	Label   string
	Source  gpucore.ShaderSource
	Entries []string
}

// Modules returns the shader modules of the stroke pipeline in execution
// order. Every entry point in gpucore.EntryPoints appears exactly once.
func Modules() []Module {
	return []Module{
		module("seed", seedSource, gpucore.EntrySeedClear, gpucore.EntrySeedInit),
		module("jfa", jfaSource, gpucore.EntryJFAStep),
		module("encode", encodeSource, gpucore.EntryEncode),
		module("render", renderSource, gpucore.EntryRender),
	}
}

// ModuleFor returns the module exporting entry.
func ModuleFor(entry string) (Module, bool) {
	for _, m := range Modules() {
		for _, e := range m.Entries {
			if e == entry {
				return m, true
			}
		}
	}
	return Module{}, false
}

// Common returns the shared declarations prepended to every module.
func Common() string {
	return commonSource
}

func module(label, body string, entries ...string) Module {
	return Module{
		Label:   label,
		Source:  gpucore.ShaderSource{Label: "tegaki_" + label, WGSL: commonSource + "\n" + body},
		Entries: entries,
	}
}
