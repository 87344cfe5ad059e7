// SPDX-License-Identifier: Unlicense OR MIT

package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tida.dev/internal/logging"
	"tida.dev/shader"
	tspirv "tida.dev/shader/spirv"
)

const fillShader = `
struct Params {
    color: vec4<f32>,
    scale: f32,
}

@group(0) @binding(0) var<uniform> params: Params;
@group(0) @binding(3) var<uniform> tint: vec4<f32>;

@fragment
fn main(@location(0) uv: vec2<f32>) -> @location(0) vec4<f32> {
    return params.color * params.scale * tint;
}
`

const textureShader = `
@group(0) @binding(0) var texSampler: sampler;
@group(0) @binding(1) var tex: texture_2d<f32>;

@fragment
fn main(@location(0) uv: vec2<f32>) -> @location(0) vec4<f32> {
    return textureSample(tex, texSampler, uv);
}
`

func testManifest(t *testing.T) *Manifest {
	t.Helper()
	m, err := ParseManifest([]byte(`
[[shader]]
name = "fill"
source = "fill.wgsl"
`))
	require.NoError(t, err)
	return m
}

func TestCompile(t *testing.T) {
	m := testManifest(t)
	b, err := m.Compile(m.Shaders[0], fillShader)
	require.NoError(t, err)
	assert.Equal(t, "fill", b.Name)
	assert.Empty(t, b.Previews)

	c := b.Container
	assert.Zero(t, c.Samplers)
	require.Len(t, c.Uniforms, 2)
	assert.Equal(t, 0, c.Uniforms[0].Binding)
	assert.Equal(t, 32, c.Uniforms[0].Size)
	assert.Equal(t, 3, c.Uniforms[1].Binding)
	assert.Equal(t, 16, c.Uniforms[1].Size)

	mod, err := tspirv.Parse(c.Bytecode)
	require.NoError(t, err)
	var names []string
	for _, ep := range mod.EntryPoints() {
		names = append(names, ep.Name)
	}
	assert.Equal(t, []string{"main"}, names)

	// The encoded container decodes to the same records.
	data, err := shader.Encode(c)
	require.NoError(t, err)
	dec, err := shader.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, c.Bytecode, dec.Bytecode)
	assert.Len(t, dec.Uniforms, 2)
}

func TestCompileSamplers(t *testing.T) {
	m := testManifest(t)
	b, err := m.Compile(Source{Name: "tex", Source: "tex.wgsl"}, textureShader)
	require.NoError(t, err)
	assert.Equal(t, 1, b.Container.Samplers)
	assert.Empty(t, b.Container.Uniforms)
}

func TestCompilePreviews(t *testing.T) {
	m := testManifest(t)
	b, err := m.Compile(Source{Name: "fill", Previews: []string{"glsl", "hlsl"}}, fillShader)
	require.NoError(t, err)
	assert.Contains(t, b.Previews["glsl"], "#version 430")
	assert.NotEmpty(t, b.Previews["hlsl"])
}

func TestCompileErrors(t *testing.T) {
	tests := map[string]string{
		"syntax": `fn main( {`,
		"entry point name": `
@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0);
}
`,
		"entry points": `
@vertex
fn main() -> @builtin(position) vec4<f32> {
    return vec4<f32>(0.0);
}

@fragment
fn other() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0);
}
`,
		"group": `
@group(1) @binding(0) var<uniform> tint: vec4<f32>;

@fragment
fn main() -> @location(0) vec4<f32> {
    return tint;
}
`,
	}
	m := testManifest(t)
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := m.Compile(Source{Name: name}, src)
			assert.Error(t, err)
		})
	}
}

func TestBuild(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fill.wgsl"), []byte(fillShader), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tex.wgsl"), []byte(textureShader), 0o644))
	manifest := filepath.Join(dir, "tidaso.toml")
	require.NoError(t, os.WriteFile(manifest, []byte(`
out = "build"

[[shader]]
name = "fill"
source = "fill.wgsl"
previews = ["glsl"]

[[shader]]
name = "tex"
source = "tex.wgsl"
`), 0o644))

	m, err := LoadManifest(manifest)
	require.NoError(t, err)
	require.NoError(t, m.Build(context.Background(), 2, logging.Discard()))

	data, err := os.ReadFile(filepath.Join(dir, "build", "fill.tidaso"))
	require.NoError(t, err)
	assert.True(t, shader.IsContainer(data))
	c, err := shader.Decode(data)
	require.NoError(t, err)
	assert.Len(t, c.Uniforms, 2)
	assert.FileExists(t, filepath.Join(dir, "build", "fill.glsl"))
	assert.FileExists(t, filepath.Join(dir, "build", "tex.tidaso"))
	assert.NoFileExists(t, filepath.Join(dir, "build", "tex.glsl"))
}

func TestBuildMissingSource(t *testing.T) {
	dir := t.TempDir()
	m := testManifest(t)
	m.dir = dir
	err := m.Build(context.Background(), 1, logging.Discard())
	assert.ErrorIs(t, err, os.ErrNotExist)
}
