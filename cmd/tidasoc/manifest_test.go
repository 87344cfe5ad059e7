// SPDX-License-Identifier: Unlicense OR MIT

package main

import (
	"testing"

	"github.com/gogpu/naga/glsl"
	"github.com/gogpu/naga/spirv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseManifest(t *testing.T) {
	m, err := ParseManifest([]byte(`
out = "build"
spirv = "1.5"
previews = ["glsl"]
glsl_version = 450

[[shader]]
name = "blit"
source = "blit.wgsl"

[[shader]]
name = "fill"
source = "fill.wgsl"
previews = ["hlsl", "glsl"]
`))
	require.NoError(t, err)
	assert.Equal(t, "build", m.Out)
	require.Len(t, m.Shaders, 2)
	assert.Equal(t, Source{Name: "blit", Source: "blit.wgsl"}, m.Shaders[0])
	assert.Equal(t, []string{"glsl"}, m.previews(m.Shaders[0]))
	assert.Equal(t, []string{"hlsl", "glsl"}, m.previews(m.Shaders[1]))
	assert.Equal(t, spirv.Version1_5, m.compileOptions().SPIRVVersion)
	assert.True(t, m.compileOptions().Validate)
	assert.Equal(t, glsl.Version450, m.glslVersion())
}

func TestParseManifestDefaults(t *testing.T) {
	m, err := ParseManifest([]byte(`
[[shader]]
name = "blit"
source = "blit.wgsl"
`))
	require.NoError(t, err)
	assert.Equal(t, spirv.Version1_3, m.compileOptions().SPIRVVersion)
	assert.Equal(t, glsl.Version430, m.glslVersion())
	assert.Empty(t, m.previews(m.Shaders[0]))
}

func TestParseManifestErrors(t *testing.T) {
	tests := map[string]string{
		"empty": ``,
		"unknown key": `
outdir = "x"
[[shader]]
name = "a"
source = "a.wgsl"
`,
		"spirv version": `
spirv = "2.0"
[[shader]]
name = "a"
source = "a.wgsl"
`,
		"glsl version": `
glsl_version = 120
[[shader]]
name = "a"
source = "a.wgsl"
`,
		"preview": `
previews = ["msl"]
[[shader]]
name = "a"
source = "a.wgsl"
`,
		"shader preview": `
[[shader]]
name = "a"
source = "a.wgsl"
previews = ["spirv"]
`,
		"no name": `
[[shader]]
source = "a.wgsl"
`,
		"no source": `
[[shader]]
name = "a"
`,
		"duplicate": `
[[shader]]
name = "a"
source = "a.wgsl"
[[shader]]
name = "a"
source = "b.wgsl"
`,
		"syntax": `[[shader`,
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseManifest([]byte(data))
			assert.Error(t, err)
		})
	}
}
