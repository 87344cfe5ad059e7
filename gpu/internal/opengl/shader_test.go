// SPDX-License-Identifier: Unlicense OR MIT

package opengl

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tida.dev/gpu/internal/driver"
	"tida.dev/internal/gl"
	"tida.dev/internal/gl/gltest"
	"tida.dev/shader"
	"tida.dev/shader/spirv/spirvtest"
	"tida.dev/shader/spvc"
	"tida.dev/shader/spvc/spvctest"
)

func installLibrary(t *testing.T, lib *spvctest.Library) {
	t.Helper()
	spvc.Init(lib)
	t.Cleanup(func() { spvc.Init(nil) })
}

func reflectedBlocks() []shader.UniformBlockInfo {
	return []shader.UniformBlockInfo{
		{Binding: spirvtest.ParamsBinding, Ranges: []shader.Range{{Offset: 0, Size: 16}, {Offset: 32, Size: 64}}, Size: 80},
		{Binding: spirvtest.ExtraBinding, Ranges: []shader.Range{{Offset: 0, Size: 4}}, Size: 16},
		{Binding: spirvtest.UnusedBinding},
	}
}

func TestStageLoadNative(t *testing.T) {
	f := gltest.New()
	b := newTestBackend(t, f)
	s, err := b.CreateShaderStage(shader.StageFragment)
	require.NoError(t, err)
	assert.Equal(t, driver.StageEmpty, s.State())

	require.NoError(t, s.Load(spirvtest.UniformShader()))
	assert.Equal(t, driver.StageCompiled, s.State())
	assert.Equal(t, shader.StageFragment, s.Kind())
	assert.Equal(t, reflectedBlocks(), s.UniformBlocks())

	obj := asStage(s).obj
	assert.Equal(t, [][]any{{gl.Enum(gl.FRAGMENT_SHADER), obj}}, f.CallsTo("CreateShader"))
	bin := f.CallsTo("ShaderBinary")
	require.Len(t, bin, 1)
	assert.Equal(t, gl.Enum(gl.SHADER_BINARY_FORMAT_SPIR_V), bin[0][1])
	assert.Equal(t, [][]any{{obj, "main"}}, f.CallsTo("SpecializeShader"))
	assert.Empty(t, f.CallsTo("ShaderSource"))

	err = s.Load(spirvtest.UniformShader())
	assert.ErrorIs(t, err, driver.ErrStageLoaded)
	assert.Equal(t, driver.StageCompiled, s.State())
}

func TestStageLoadContainer(t *testing.T) {
	b := newTestBackend(t, gltest.New())
	code, err := shader.Encode(shader.Container{
		Bytecode: spirvtest.UniformShader(),
		Uniforms: []shader.UniformBlockInfo{
			{Binding: 7, Size: 32},
			{Binding: spirvtest.ParamsBinding},
		},
		Samplers: 1,
	})
	require.NoError(t, err)
	s := loadStage(t, b, shader.StageFragment, code)
	reflected := reflectedBlocks()
	assert.Equal(t, []shader.UniformBlockInfo{
		reflected[0],
		reflected[1],
		reflected[2],
		{Binding: 7, Size: 32},
	}, s.UniformBlocks())
}

func TestStageLoadErrors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *gltest.Functions)
		code  []byte
		check func(t *testing.T, err error)
	}{
		{
			name: "compile",
			setup: func(f *gltest.Functions) {
				f.CompileLog = "0:1: bad entry point"
			},
			code: spirvtest.UniformShader(),
			check: func(t *testing.T, err error) {
				var cerr *driver.CompileError
				require.ErrorAs(t, err, &cerr)
				assert.Equal(t, shader.StageFragment, cerr.Stage)
				assert.Equal(t, "fragment error:\n0:1: bad entry point", err.Error())
			},
		},
		{
			name: "specialize unsupported",
			setup: func(f *gltest.Functions) {
				f.SpecializeErr = gl.ErrUnsupported
			},
			code: spirvtest.UniformShader(),
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, driver.ErrCapabilityMissing)
			},
		},
		{
			name: "specialize",
			setup: func(f *gltest.Functions) {
				f.SpecializeErr = errors.New("specialization failed")
			},
			code: spirvtest.UniformShader(),
			check: func(t *testing.T, err error) {
				assert.EqualError(t, err, "specialization failed")
			},
		},
		{
			name: "container",
			code: []byte(shader.Signature + "\x01"),
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, shader.ErrContainerDecode)
			},
		},
		{
			name: "bytecode",
			code: []byte{1, 2, 3, 4, 5, 6, 7, 8},
			check: func(t *testing.T, err error) {
				assert.Error(t, err)
			},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			f := gltest.New()
			if test.setup != nil {
				test.setup(f)
			}
			b := newTestBackend(t, f)
			s, err := b.CreateShaderStage(shader.StageFragment)
			require.NoError(t, err)
			err = s.Load(test.code)
			require.Error(t, err)
			test.check(t, err)
			assert.Equal(t, driver.StageFailed, s.State())
			assert.False(t, asStage(s).obj.Valid())
			assert.Len(t, f.CallsTo("DeleteShader"), len(f.CallsTo("CreateShader")))

			err = s.Load(spirvtest.UniformShader())
			assert.ErrorIs(t, err, driver.ErrStageLoaded)
		})
	}
}

func TestStageCrossCompile(t *testing.T) {
	const src = "#version 460\nlayout(binding = 0) uniform Params { vec4 color; };\nvoid main() {}\n"
	uniforms := []shader.UniformBlockInfo{
		{Binding: 0, Ranges: []shader.Range{{Offset: 0, Size: 16}}, Size: 16},
	}
	for _, name := range []string{"no binary format", "disabled"} {
		t.Run(name, func(t *testing.T) {
			lib := &spvctest.Library{Source: src, Uniforms: uniforms}
			installLibrary(t, lib)
			f := gltest.New()
			api := driver.OpenGL{Functions: f}
			if name == "disabled" {
				api.DisableSPIRV = true
			} else {
				f.BinaryFormats = nil
			}
			b := newTestBackendAPI(t, api)

			s := loadStage(t, b, shader.StageVertex, spirvtest.UniformShader())
			assert.Equal(t, driver.StageCompiled, s.State())
			assert.NotEmpty(t, s.UniformBlocks())
			assert.Equal(t, uniforms, s.UniformBlocks())
			assert.Equal(t, src, f.Source(asStage(s).obj))
			assert.Empty(t, f.CallsTo("ShaderBinary"))
			assert.Equal(t, [][]any{{gl.Enum(gl.VERTEX_SHADER), asStage(s).obj}}, f.CallsTo("CreateShader"))
			assert.Equal(t, []spvc.Options{{Dialect: spvc.GLSL, Version: 460}}, lib.Options)
			assert.Equal(t, [][]byte{spirvtest.UniformShader()}, lib.Compiled)
		})
	}
}

func TestStageCrossCompileError(t *testing.T) {
	installLibrary(t, &spvctest.Library{CompileErr: errors.New("unsupported capability")})
	f := gltest.New()
	f.BinaryFormats = nil
	b := newTestBackend(t, f)
	s, err := b.CreateShaderStage(shader.StageFragment)
	require.NoError(t, err)
	err = s.Load(spirvtest.UniformShader())
	assert.ErrorIs(t, err, spvc.ErrCrossCompile)
	assert.Equal(t, driver.StageFailed, s.State())
	assert.Empty(t, f.CallsTo("CreateShader"))
}

func TestCreateShaderStageInvalid(t *testing.T) {
	b := newTestBackend(t, gltest.New())
	_, err := b.CreateShaderStage(shader.NumStages)
	assert.Error(t, err)
}

func TestProgramAttach(t *testing.T) {
	f := gltest.New()
	b := newTestBackend(t, f)
	p, err := b.CreateShaderProgram()
	require.NoError(t, err)

	v1 := loadStage(t, b, shader.StageVertex, spirvtest.UniformShader())
	v2 := loadStage(t, b, shader.StageVertex, spirvtest.UniformShader())
	p.Attach(v1)
	p.Attach(v1)
	p.Attach(v2)
	assert.Same(t, v2, p.Stage(shader.StageVertex))
	assert.Nil(t, p.Stage(shader.StageFragment))
	prog := asProgram(p).obj
	assert.Equal(t, [][]any{{prog, asStage(v1).obj}}, f.CallsTo("DetachShader"))
	assert.Len(t, f.CallsTo("AttachShader"), 2)

	empty, err := b.CreateShaderStage(shader.StageFragment)
	require.NoError(t, err)
	p.Attach(empty)
	assert.Nil(t, p.Stage(shader.StageFragment), "uncompiled stages are not attached")
}

func TestProgramMainStage(t *testing.T) {
	b := newTestBackend(t, gltest.New())
	tests := []struct {
		kinds []shader.StageKind
		main  shader.StageKind
	}{
		{[]shader.StageKind{shader.StageFragment, shader.StageVertex}, shader.StageVertex},
		{[]shader.StageKind{shader.StageGeometry, shader.StageFragment}, shader.StageFragment},
		{[]shader.StageKind{shader.StageGeometry, shader.StageCompute}, shader.StageCompute},
		{[]shader.StageKind{shader.StageGeometry}, shader.StageGeometry},
	}
	for _, test := range tests {
		p, err := b.CreateShaderProgram()
		require.NoError(t, err)
		for _, kind := range test.kinds {
			p.Attach(loadStage(t, b, kind, spirvtest.UniformShader()))
		}
		main := p.MainStage()
		require.NotNil(t, main)
		assert.Equal(t, test.main, main.Kind(), "stages %v", test.kinds)
	}

	p, err := b.CreateShaderProgram()
	require.NoError(t, err)
	assert.Nil(t, p.MainStage())
}

func TestProgramLinkError(t *testing.T) {
	f := gltest.New()
	f.LinkLog = "vertex output color not written"
	b := newTestBackend(t, f)
	p, err := b.CreateShaderProgram()
	require.NoError(t, err)
	p.Attach(loadStage(t, b, shader.StageVertex, spirvtest.UniformShader()))
	err = p.Link()
	var lerr *driver.LinkError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, "program error:\nvertex output color not written", err.Error())

	pipe, err := b.CreateShaderPipeline()
	require.NoError(t, err)
	assert.Error(t, pipe.SetProgram(p), "unlinked program")
}

func TestProgramLinkSeparable(t *testing.T) {
	f := gltest.New()
	b := newTestBackend(t, f)
	_, p := newPipeline(t, b, shader.StageVertex)
	assert.Equal(t, [][]any{{asProgram(p).obj, gl.Enum(gl.PROGRAM_SEPARABLE), gl.TRUE}}, f.CallsTo("ProgramParameteri"))
}

func TestProgramUniformData(t *testing.T) {
	f := gltest.New()
	// The linker reports a smaller block than reflection.
	f.Blocks = []gltest.Block{{Binding: 2, Size: 4}, {Binding: 0, Size: 64}}
	b := newTestBackend(t, f)
	_, p := newPipeline(t, b, shader.StageFragment)
	assert.Equal(t, []int{0, 2}, p.UniformBindings())
	assert.Nil(t, p.UniformBuffer(5))

	data := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	require.NoError(t, p.SetUniformData(0, data))
	buf := p.UniformBuffer(0)
	require.NotNil(t, buf)
	assert.Equal(t, driver.BufferUniform, buf.Type())
	assert.Equal(t, 80, buf.Size())
	contents := f.BufferContents(asBuffer(buf).obj)
	assert.Equal(t, data, contents[:16])

	update := []byte{0xff, 0xfe}
	require.NoError(t, p.SetUniformData(0, update))
	assert.Equal(t, 80, buf.Size())
	assert.Len(t, f.CallsTo("BufferSubData"), 2)
	assert.Equal(t, []byte{0xff, 0xfe, 3, 4}, f.BufferContents(asBuffer(buf).obj)[:4])

	require.NoError(t, p.SetUniformData(2, []byte{1, 2, 3, 4}))
	assert.Equal(t, 16, p.UniformBuffer(2).Size())

	err := p.SetUniformData(9, data)
	assert.ErrorIs(t, err, driver.ErrUnknownBinding)
	assert.Error(t, p.SetUniformData(2, make([]byte, 17)), "overflow")
	assert.Equal(t, 16, p.UniformBuffer(2).Size())
}

func TestProgramLinkAllocatesUniforms(t *testing.T) {
	f := gltest.New()
	f.Blocks = []gltest.Block{{Binding: 0, Size: 64}, {Binding: 2, Size: 4}}
	b := newTestBackend(t, f)
	_, p := newPipeline(t, b, shader.StageFragment)

	sizes := map[int]int{0: 80, 2: 16}
	for binding, size := range sizes {
		buf := p.UniformBuffer(binding)
		require.NotNil(t, buf)
		assert.Equal(t, size, buf.Size(), "binding %d", binding)
		assert.Equal(t, make([]byte, size), f.BufferContents(asBuffer(buf).obj))
	}
	data := f.CallsTo("BufferData")
	require.Len(t, data, 2)
	for _, call := range data {
		assert.Equal(t, gl.Enum(gl.DYNAMIC_DRAW), call[2])
	}

	m, err := p.UniformBuffer(0).MapData(driver.MapRead)
	require.NoError(t, err)
	assert.Len(t, m, 80)
	require.NoError(t, p.UniformBuffer(0).UnmapData())

	// Relinking replaces the buffers with fresh ones.
	old := p.UniformBuffer(0)
	require.NoError(t, p.Link())
	assert.NotSame(t, old, p.UniformBuffer(0))
	assert.Equal(t, 80, p.UniformBuffer(0).Size())
}

func TestPipelineSetProgram(t *testing.T) {
	f := gltest.New()
	b := newTestBackend(t, f)

	pipe, err := b.CreateShaderPipeline()
	require.NoError(t, err)
	empty, err := b.CreateShaderProgram()
	require.NoError(t, err)
	assert.Error(t, pipe.SetProgram(empty))

	pipe, p := newPipeline(t, b, shader.StageFragment, shader.StageVertex)
	assert.Same(t, p, pipe.Program(shader.StageVertex))
	assert.Nil(t, pipe.Program(shader.StageFragment))
	stages := f.CallsTo("UseProgramStages")
	require.NotEmpty(t, stages)
	last := stages[len(stages)-1]
	assert.Equal(t, []any{asPipeline(pipe).obj, gl.Enum(gl.VERTEX_SHADER_BIT | gl.FRAGMENT_SHADER_BIT), asProgram(p).obj}, last)

	pipe.Release()
	assert.Nil(t, pipe.Program(shader.StageVertex))
}
