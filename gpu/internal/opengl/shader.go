// SPDX-License-Identifier: Unlicense OR MIT

package opengl

import (
	"errors"
	"fmt"
	"sort"

	"tida.dev/gpu/internal/driver"
	"tida.dev/internal/gl"
	"tida.dev/shader"
	"tida.dev/shader/spirv"
	"tida.dev/shader/spvc"
)

type gpuStage struct {
	backend *Backend
	kind    shader.StageKind
	state   driver.StageState
	obj     gl.Shader
	blocks  []shader.UniformBlockInfo
}

type gpuProgram struct {
	backend *Backend
	obj     gl.Program
	stages  [shader.NumStages]*gpuStage
	linked  bool
	// uniforms are the active blocks of the linked program sorted by
	// binding.
	uniforms []*uniformBlock
}

// uniformBlock is an active uniform block and its buffer.
type uniformBlock struct {
	binding int
	index   uint
	// alloc is the allocation size of the first upload.
	alloc int
	// slot is the buffer binding point the block reads from.
	slot int
	buf  *gpuBuffer
}

type gpuPipeline struct {
	backend  *Backend
	obj      gl.Pipeline
	programs [shader.NumStages]*gpuProgram
}

var mainStageOrder = [...]shader.StageKind{
	shader.StageVertex,
	shader.StageFragment,
	shader.StageCompute,
	shader.StageGeometry,
}

func (b *Backend) CreateShaderStage(kind shader.StageKind) (driver.ShaderStage, error) {
	if kind >= shader.NumStages {
		return nil, fmt.Errorf("opengl: invalid shader stage %v", kind)
	}
	if kind == shader.StageCompute && !b.feats.Features.Has(driver.FeatureCompute) {
		return nil, fmt.Errorf("%w: compute shaders", driver.ErrCapabilityMissing)
	}
	return &gpuStage{backend: b, kind: kind}, nil
}

func (s *gpuStage) Kind() shader.StageKind {
	return s.kind
}

func (s *gpuStage) State() driver.StageState {
	return s.state
}

func (s *gpuStage) UniformBlocks() []shader.UniformBlockInfo {
	return s.blocks
}

func (s *gpuStage) Load(code []byte) error {
	if s.state != driver.StageEmpty {
		return fmt.Errorf("%w: %s stage is %s", driver.ErrStageLoaded, s.kind, s.state)
	}
	s.state = driver.StageLoading
	blocks, err := s.load(code)
	if err != nil {
		s.state = driver.StageFailed
		s.deleteShader()
		return err
	}
	s.blocks = blocks
	s.state = driver.StageCompiled
	return nil
}

func (s *gpuStage) load(code []byte) ([]shader.UniformBlockInfo, error) {
	c, err := shader.Decode(code)
	if err != nil {
		return nil, err
	}
	reflected, err := spirv.Reflect(c.Bytecode)
	if err != nil {
		return nil, err
	}
	b := s.backend
	if b.spirv {
		if err := s.specialize(c.Bytecode); err != nil {
			return nil, err
		}
		return shader.MergeBlocks(c.Uniforms, reflected), nil
	}
	res, err := spvc.CrossCompile(c.Bytecode, spvc.Options{
		Dialect: spvc.GLSL,
		Version: b.feats.GLSLVersion,
	})
	if err != nil {
		return nil, err
	}
	b.log.Debug("cross compiled shader", "stage", s.kind, "glsl", b.feats.GLSLVersion, "blocks", len(res.Uniforms))
	if err := s.compile(res.Source); err != nil {
		return nil, err
	}
	return shader.MergeBlocks(c.Uniforms, res.Uniforms), nil
}

// specialize loads SPIR-V bytecode and specializes its main entry point.
func (s *gpuStage) specialize(code []byte) error {
	f := s.backend.funcs
	s.obj = f.CreateShader(toGLShaderType(s.kind))
	f.ShaderBinary(s.obj, gl.SHADER_BINARY_FORMAT_SPIR_V, code)
	if err := f.SpecializeShader(s.obj, "main"); err != nil {
		if errors.Is(err, gl.ErrUnsupported) {
			return fmt.Errorf("%w: glSpecializeShader", driver.ErrCapabilityMissing)
		}
		return err
	}
	return s.checkCompile()
}

func (s *gpuStage) compile(src string) error {
	f := s.backend.funcs
	s.obj = f.CreateShader(toGLShaderType(s.kind))
	f.ShaderSource(s.obj, src)
	f.CompileShader(s.obj)
	return s.checkCompile()
}

func (s *gpuStage) checkCompile() error {
	f := s.backend.funcs
	if f.GetShaderi(s.obj, gl.COMPILE_STATUS) == gl.FALSE {
		return &driver.CompileError{Stage: s.kind, Log: gl.ShaderLog(f, s.obj)}
	}
	return nil
}

func (s *gpuStage) deleteShader() {
	if s.obj.Valid() {
		s.backend.funcs.DeleteShader(s.obj)
		s.obj = gl.Shader{}
	}
}

func (s *gpuStage) Release() {
	s.deleteShader()
	s.blocks = nil
}

func toGLShaderType(kind shader.StageKind) gl.Enum {
	switch kind {
	case shader.StageVertex:
		return gl.VERTEX_SHADER
	case shader.StageFragment:
		return gl.FRAGMENT_SHADER
	case shader.StageGeometry:
		return gl.GEOMETRY_SHADER
	case shader.StageCompute:
		return gl.COMPUTE_SHADER
	default:
		panic("unsupported shader stage")
	}
}

func toGLStageBit(kind shader.StageKind) gl.Enum {
	switch kind {
	case shader.StageVertex:
		return gl.VERTEX_SHADER_BIT
	case shader.StageFragment:
		return gl.FRAGMENT_SHADER_BIT
	case shader.StageGeometry:
		return gl.GEOMETRY_SHADER_BIT
	case shader.StageCompute:
		return gl.COMPUTE_SHADER_BIT
	default:
		panic("unsupported shader stage")
	}
}

func (b *Backend) CreateShaderProgram() (driver.ShaderProgram, error) {
	glErr(b.funcs)
	p := &gpuProgram{backend: b, obj: b.funcs.CreateProgram()}
	if err := glErr(b.funcs); err != nil {
		p.Release()
		return nil, err
	}
	return p, nil
}

func (p *gpuProgram) Attach(s driver.ShaderStage) {
	st := asStage(s)
	if st.state != driver.StageCompiled {
		p.backend.log.Warn("ShaderProgram.Attach: stage not compiled", "stage", st.kind, "state", st.state)
		return
	}
	f := p.backend.funcs
	if old := p.stages[st.kind]; old != nil {
		if old == st {
			return
		}
		if old.obj.Valid() {
			f.DetachShader(p.obj, old.obj)
		}
	}
	p.stages[st.kind] = st
	p.linked = false
	f.AttachShader(p.obj, st.obj)
}

func (p *gpuProgram) Stage(kind shader.StageKind) driver.ShaderStage {
	if kind >= shader.NumStages || p.stages[kind] == nil {
		return nil
	}
	return p.stages[kind]
}

func (p *gpuProgram) mainStage() *gpuStage {
	for _, kind := range mainStageOrder {
		if st := p.stages[kind]; st != nil {
			return st
		}
	}
	return nil
}

func (p *gpuProgram) MainStage() driver.ShaderStage {
	if st := p.mainStage(); st != nil {
		return st
	}
	return nil
}

// Link links the program as separable and allocates a zeroed uniform
// buffer for every active block. The allocation size of a block is the
// larger of the size reported by the linker and the reflected size.
func (p *gpuProgram) Link() error {
	f := p.backend.funcs
	f.ProgramParameteri(p.obj, gl.PROGRAM_SEPARABLE, gl.TRUE)
	f.LinkProgram(p.obj)
	if f.GetProgrami(p.obj, gl.LINK_STATUS) == gl.FALSE {
		p.linked = false
		return &driver.LinkError{Log: gl.ProgramLog(f, p.obj)}
	}
	p.releaseUniforms()
	reflected := make(map[int]int)
	for _, st := range p.stages {
		if st == nil {
			continue
		}
		for _, blk := range st.blocks {
			reflected[blk.Binding] = max(reflected[blk.Binding], blk.Size)
		}
	}
	n := f.GetProgrami(p.obj, gl.ACTIVE_UNIFORM_BLOCKS)
	for i := 0; i < n; i++ {
		idx := uint(i)
		binding := f.GetActiveUniformBlocki(p.obj, idx, gl.UNIFORM_BLOCK_BINDING)
		size := f.GetActiveUniformBlocki(p.obj, idx, gl.UNIFORM_BLOCK_DATA_SIZE)
		buf, err := p.backend.CreateBuffer(driver.BufferUniform, driver.UsageDynamic)
		if err != nil {
			p.releaseUniforms()
			return err
		}
		u := &uniformBlock{
			binding: binding,
			index:   idx,
			alloc:   max(size, reflected[binding]),
			slot:    binding,
			buf:     buf.(*gpuBuffer),
		}
		p.uniforms = append(p.uniforms, u)
		if err := u.buf.SetData(make([]byte, u.alloc)); err != nil {
			p.releaseUniforms()
			return err
		}
	}
	sort.SliceStable(p.uniforms, func(i, j int) bool {
		return p.uniforms[i].binding < p.uniforms[j].binding
	})
	p.linked = true
	return nil
}

func (p *gpuProgram) UniformBindings() []int {
	bindings := make([]int, len(p.uniforms))
	for i, u := range p.uniforms {
		bindings[i] = u.binding
	}
	return bindings
}

func (p *gpuProgram) uniform(binding int) *uniformBlock {
	for _, u := range p.uniforms {
		if u.binding == binding {
			return u
		}
	}
	return nil
}

func (p *gpuProgram) UniformBuffer(binding int) driver.Buffer {
	if u := p.uniform(binding); u != nil {
		return u.buf
	}
	return nil
}

// SetUniformData writes data to the start of the block at binding.
func (p *gpuProgram) SetUniformData(binding int, data []byte) error {
	u := p.uniform(binding)
	if u == nil {
		return fmt.Errorf("%w: %d", driver.ErrUnknownBinding, binding)
	}
	return u.buf.SetSubData(0, data)
}

// setSlot points the block at a buffer binding point.
func (p *gpuProgram) setSlot(u *uniformBlock, slot int) {
	if u.slot != slot {
		p.backend.funcs.UniformBlockBinding(p.obj, u.index, slot)
		u.slot = slot
	}
}

func (p *gpuProgram) releaseUniforms() {
	for _, u := range p.uniforms {
		u.buf.Release()
	}
	p.uniforms = nil
}

func (p *gpuProgram) Release() {
	p.releaseUniforms()
	if p.obj.Valid() {
		p.backend.funcs.DeleteProgram(p.obj)
		p.obj = gl.Program{}
	}
	p.stages = [shader.NumStages]*gpuStage{}
	p.linked = false
}

func (b *Backend) CreateShaderPipeline() (driver.ShaderPipeline, error) {
	glErr(b.funcs)
	p := &gpuPipeline{backend: b, obj: b.funcs.CreateProgramPipeline()}
	if err := glErr(b.funcs); err != nil {
		p.Release()
		return nil, err
	}
	return p, nil
}

func (p *gpuPipeline) SetProgram(sp driver.ShaderProgram) error {
	prog := asProgram(sp)
	main := prog.mainStage()
	if main == nil {
		return errors.New("opengl: program has no stages")
	}
	if !prog.linked {
		return errors.New("opengl: program is not linked")
	}
	var bits gl.Enum
	for kind, st := range prog.stages {
		if st != nil {
			bits |= toGLStageBit(shader.StageKind(kind))
		}
	}
	p.backend.funcs.UseProgramStages(p.obj, bits, prog.obj)
	p.programs[main.kind] = prog
	return nil
}

func (p *gpuPipeline) Program(kind shader.StageKind) driver.ShaderProgram {
	if kind >= shader.NumStages || p.programs[kind] == nil {
		return nil
	}
	return p.programs[kind]
}

func (p *gpuPipeline) Release() {
	if p.obj.Valid() {
		p.backend.glstate.deletePipeline(p.backend.funcs, p.obj)
		p.obj = gl.Pipeline{}
	}
	p.programs = [shader.NumStages]*gpuProgram{}
}
