// SPDX-License-Identifier: Unlicense OR MIT

package opengl

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"tida.dev/gpu/internal/driver"
	"tida.dev/internal/gl"
	"tida.dev/internal/logging"
	"tida.dev/shader"
)

// Backend implements driver.Device.
type Backend struct {
	funcs gl.Functions
	ctx   driver.ContextProvider
	log   *slog.Logger

	glstate glState
	state   state

	glver [2]int
	feats driver.Caps
	// spirv selects the native SPIR-V path for shader stages.
	spirv bool

	mainFBO *gpuFramebuffer
	// vertArray is bound when no vertex layout is set. Core profile
	// contexts require some array bound for draws.
	vertArray gl.VertexArray
}

// State tracking.
type glState struct {
	drawFBO   gl.Framebuffer
	readFBO   gl.Framebuffer
	renderBuf gl.Renderbuffer
	pipeline  gl.Pipeline
	texUnits  struct {
		active gl.Enum
		binds  [maxTextureUnits]struct {
			target gl.Enum
			obj    gl.Texture
		}
	}
	arrayBuf   gl.Buffer
	uniBuf     gl.Buffer
	uniBufs    [maxBufferBindings]gl.Buffer
	storeBuf   gl.Buffer
	storeBufs  [maxBufferBindings]gl.Buffer
	vertArray  gl.VertexArray
	clearColor [4]float32
	viewport   [4]int
}

// state is the device binding state. Pipeline, layout and textures are
// consumed by every draw and dispatch.
type state struct {
	fbo        *gpuFramebuffer
	viewport   [4]int
	clearColor [4]float32
	pipeline   *gpuPipeline
	layout     *gpuVertexLayout
	textures   []textureBinding
	storage    []*gpuBuffer
}

type textureBinding struct {
	tex  *gpuTexture
	unit int
}

const (
	maxTextureUnits   = 32
	maxBufferBindings = 32
)

// noSPIRVEnv forces cross compilation when set to a non-empty value.
const noSPIRVEnv = "TIDA_GPU_NOSPIRV"

func init() {
	driver.NewOpenGLDevice = newOpenGLDevice
}

func newOpenGLDevice(api driver.OpenGL) (driver.Device, error) {
	if api.Context != nil {
		if err := api.Context.MakeCurrent(); err != nil {
			return nil, fmt.Errorf("opengl: make current: %w", err)
		}
	}
	f := api.Functions
	if f == nil {
		return nil, errors.New("opengl: no function table")
	}
	ver, gles, err := gl.ParseGLVersion(f.GetString(gl.VERSION))
	if err != nil {
		return nil, err
	}
	if gles {
		return nil, fmt.Errorf("%w: desktop OpenGL, got ES %d.%d", driver.ErrCapabilityMissing, ver[0], ver[1])
	}
	b := &Backend{
		funcs: f,
		ctx:   api.Context,
		log:   logging.OrDiscard(api.Logger),
		glver: ver,
	}
	b.feats = detectCaps(f, ver)
	if !b.feats.Features.Has(driver.FeaturesRequired) {
		return nil, fmt.Errorf("%w: separate shader objects (OpenGL %d.%d)", driver.ErrCapabilityMissing, ver[0], ver[1])
	}
	b.feats.GLSLVersion = api.GLSLVersion
	if b.feats.GLSLVersion == 0 {
		b.feats.GLSLVersion = ver[0]*100 + ver[1]*10
	}
	native := b.feats.Features.Has(driver.FeatureSPIRV | driver.FeatureSpecialization)
	forced := api.DisableSPIRV || os.Getenv(noSPIRVEnv) != ""
	b.spirv = native && !forced
	b.log.Debug("opengl device",
		"version", f.GetString(gl.VERSION),
		"spirv", b.feats.Features.Has(driver.FeatureSPIRV),
		"specialization", b.feats.Features.Has(driver.FeatureSpecialization),
		"compute", b.feats.Features.Has(driver.FeatureCompute),
		"crossCompile", !b.spirv,
		"glsl", b.feats.GLSLVersion)

	b.mainFBO = &gpuFramebuffer{backend: b, foreign: true}
	b.state.fbo = b.mainFBO
	// Programs bound with glUseProgram override the pipeline.
	f.UseProgram(gl.Program{})
	return b, nil
}

func detectCaps(f gl.Functions, ver [2]int) driver.Caps {
	exts := gl.Extensions(f)
	atLeast := func(major, minor int) bool {
		return ver[0] > major || (ver[0] == major && ver[1] >= minor)
	}
	caps := driver.Caps{
		BottomLeftOrigin: true,
		MaxTextureSize:   f.GetInteger(gl.MAX_TEXTURE_SIZE),
	}
	for _, format := range gl.ShaderBinaryFormats(f) {
		if format == gl.SHADER_BINARY_FORMAT_SPIR_V {
			caps.Features |= driver.FeatureSPIRV
		}
	}
	if atLeast(4, 6) || gl.HasExtension(exts, "GL_ARB_gl_spirv") {
		caps.Features |= driver.FeatureSpecialization
	}
	if atLeast(4, 3) || gl.HasExtension(exts, "GL_ARB_compute_shader") {
		caps.Features |= driver.FeatureCompute
	}
	if atLeast(4, 1) || gl.HasExtension(exts, "GL_ARB_separate_shader_objects") {
		caps.Features |= driver.FeatureSeparablePrograms
	}
	return caps
}

func (s *glState) activeTexture(f gl.Functions, unit gl.Enum) {
	if unit != s.texUnits.active {
		f.ActiveTexture(unit)
		s.texUnits.active = unit
	}
}

func (s *glState) bindTexture(f gl.Functions, target gl.Enum, unit int, t gl.Texture) {
	s.activeTexture(f, gl.TEXTURE0+gl.Enum(unit))
	b := &s.texUnits.binds[unit]
	if b.target != target || b.obj != t {
		f.BindTexture(target, t)
		b.target = target
		b.obj = t
	}
}

func (s *glState) bindRenderbuffer(f gl.Functions, r gl.Renderbuffer) {
	if r != s.renderBuf {
		f.BindRenderbuffer(gl.RENDERBUFFER, r)
		s.renderBuf = r
	}
}

func (s *glState) bindVertexArray(f gl.Functions, a gl.VertexArray) {
	if a != s.vertArray {
		f.BindVertexArray(a)
		s.vertArray = a
	}
}

func (s *glState) bindProgramPipeline(f gl.Functions, p gl.Pipeline) {
	if p != s.pipeline {
		f.BindProgramPipeline(p)
		s.pipeline = p
	}
}

func (s *glState) deleteRenderbuffer(f gl.Functions, r gl.Renderbuffer) {
	f.DeleteRenderbuffer(r)
	if r == s.renderBuf {
		s.renderBuf = gl.Renderbuffer{}
	}
}

func (s *glState) deleteFramebuffer(f gl.Functions, fbo gl.Framebuffer) {
	f.DeleteFramebuffer(fbo)
	if fbo == s.drawFBO {
		s.drawFBO = gl.Framebuffer{}
	}
	if fbo == s.readFBO {
		s.readFBO = gl.Framebuffer{}
	}
}

func (s *glState) deleteBuffer(f gl.Functions, b gl.Buffer) {
	f.DeleteBuffer(b)
	if b == s.arrayBuf {
		s.arrayBuf = gl.Buffer{}
	}
	if b == s.uniBuf {
		s.uniBuf = gl.Buffer{}
	}
	if b == s.storeBuf {
		s.storeBuf = gl.Buffer{}
	}
	for i, b2 := range s.storeBufs {
		if b == b2 {
			s.storeBufs[i] = gl.Buffer{}
		}
	}
	for i, b2 := range s.uniBufs {
		if b == b2 {
			s.uniBufs[i] = gl.Buffer{}
		}
	}
}

func (s *glState) deletePipeline(f gl.Functions, p gl.Pipeline) {
	f.DeleteProgramPipeline(p)
	if p == s.pipeline {
		s.pipeline = gl.Pipeline{}
	}
}

func (s *glState) deleteVertexArray(f gl.Functions, a gl.VertexArray) {
	f.DeleteVertexArray(a)
	if a == s.vertArray {
		s.vertArray = gl.VertexArray{}
	}
}

func (s *glState) deleteTexture(f gl.Functions, t gl.Texture) {
	f.DeleteTexture(t)
	binds := &s.texUnits.binds
	for i, b := range binds {
		if t == b.obj {
			binds[i].obj = gl.Texture{}
		}
	}
}

func (s *glState) bindFramebuffer(f gl.Functions, target gl.Enum, fbo gl.Framebuffer) {
	switch target {
	case gl.FRAMEBUFFER:
		if fbo == s.drawFBO && fbo == s.readFBO {
			return
		}
		s.drawFBO = fbo
		s.readFBO = fbo
	case gl.READ_FRAMEBUFFER:
		if fbo == s.readFBO {
			return
		}
		s.readFBO = fbo
	case gl.DRAW_FRAMEBUFFER:
		if fbo == s.drawFBO {
			return
		}
		s.drawFBO = fbo
	default:
		panic("unknown target")
	}
	f.BindFramebuffer(target, fbo)
}

func (s *glState) bindBufferBase(f gl.Functions, target gl.Enum, idx int, buf gl.Buffer) {
	switch target {
	case gl.UNIFORM_BUFFER:
		if buf == s.uniBuf && buf == s.uniBufs[idx] {
			return
		}
		s.uniBuf = buf
		s.uniBufs[idx] = buf
	case gl.SHADER_STORAGE_BUFFER:
		if buf == s.storeBuf && buf == s.storeBufs[idx] {
			return
		}
		s.storeBuf = buf
		s.storeBufs[idx] = buf
	default:
		panic("unknown buffer target")
	}
	f.BindBufferBase(target, idx, buf)
}

func (s *glState) bindBuffer(f gl.Functions, target gl.Enum, buf gl.Buffer) {
	switch target {
	case gl.ARRAY_BUFFER:
		if buf == s.arrayBuf {
			return
		}
		s.arrayBuf = buf
	case gl.UNIFORM_BUFFER:
		if buf == s.uniBuf {
			return
		}
		s.uniBuf = buf
	case gl.SHADER_STORAGE_BUFFER:
		if buf == s.storeBuf {
			return
		}
		s.storeBuf = buf
	default:
		panic("unknown buffer target")
	}
	f.BindBuffer(target, buf)
}

func (s *glState) setClearColor(f gl.Functions, r, g, b, a float32) {
	col := [4]float32{r, g, b, a}
	if col != s.clearColor {
		f.ClearColor(r, g, b, a)
		s.clearColor = col
	}
}

func (s *glState) setViewport(f gl.Functions, x, y, width, height int) {
	view := [4]int{x, y, width, height}
	if view != s.viewport {
		f.Viewport(x, y, width, height)
		s.viewport = view
	}
}

func (b *Backend) Caps() driver.Caps {
	return b.feats
}

func (b *Backend) MainFrameBuffer() driver.FrameBuffer {
	return b.mainFBO
}

func (b *Backend) SetFrameBuffer(f driver.FrameBuffer) {
	if f == nil {
		b.state.fbo = b.mainFBO
		return
	}
	fbo := asFramebuffer(f)
	if fbo == nil {
		fbo = b.mainFBO
	}
	b.state.fbo = fbo
}

func (b *Backend) SetViewport(x, y, width, height int) {
	b.state.viewport = [4]int{x, y, width, height}
}

func (b *Backend) SetClearColor(r, g, bl, a float32) {
	b.state.clearColor = [4]float32{r, g, bl, a}
}

// Clear clears the color of the current framebuffer.
func (b *Backend) Clear() {
	b.glstate.bindFramebuffer(b.funcs, gl.FRAMEBUFFER, b.state.fbo.obj)
	c := b.state.clearColor
	b.glstate.setClearColor(b.funcs, c[0], c[1], c[2], c[3])
	b.funcs.Clear(gl.COLOR_BUFFER_BIT)
}

func (b *Backend) SetPipeline(p driver.ShaderPipeline) {
	if p == nil {
		b.state.pipeline = nil
		return
	}
	b.state.pipeline = asPipeline(p)
}

func (b *Backend) SetVertexLayout(l driver.VertexLayout) {
	if l == nil {
		b.state.layout = nil
		return
	}
	b.state.layout = asVertexLayout(l)
}

func (b *Backend) BindTexture(t driver.Texture, unit int) {
	var tex *gpuTexture
	if t != nil {
		tex = asTexture(t)
	}
	if tex == nil {
		b.log.Warn("BindTexture: nil texture ignored", "unit", unit)
		return
	}
	if unit < 0 || unit >= maxTextureUnits {
		b.log.Warn("BindTexture: texture unit out of range", "unit", unit)
		return
	}
	for i, tb := range b.state.textures {
		if tb.unit == unit {
			b.state.textures[i].tex = tex
			return
		}
	}
	b.state.textures = append(b.state.textures, textureBinding{tex: tex, unit: unit})
}

func (b *Backend) BindBuffer(buf driver.Buffer) {
	var gbuf *gpuBuffer
	if buf != nil {
		gbuf = asBuffer(buf)
	}
	if gbuf == nil {
		b.log.Warn("BindBuffer: nil buffer ignored")
		return
	}
	if gbuf.typ != driver.BufferStorage {
		b.log.Warn("BindBuffer: not a storage buffer", "type", gbuf.typ)
		return
	}
	if len(b.state.storage) >= maxBufferBindings {
		b.log.Warn("BindBuffer: too many storage buffers")
		return
	}
	b.state.storage = append(b.state.storage, gbuf)
}

func (b *Backend) Begin() {
	b.glstate.bindFramebuffer(b.funcs, gl.FRAMEBUFFER, b.state.fbo.obj)
	v := b.state.viewport
	b.glstate.setViewport(b.funcs, v[0], v[1], v[2], v[3])
	if l := b.state.layout; l != nil {
		l.bind()
	} else {
		b.log.Warn("Begin: no vertex layout set")
		if !b.vertArray.Valid() {
			b.vertArray = b.funcs.CreateVertexArray()
		}
		b.glstate.bindVertexArray(b.funcs, b.vertArray)
	}
	if p := b.state.pipeline; p != nil {
		b.glstate.bindProgramPipeline(b.funcs, p.obj)
	} else {
		b.log.Warn("Begin: no pipeline set")
	}
	for _, t := range b.state.textures {
		b.glstate.bindTexture(b.funcs, t.tex.target, t.unit, t.tex.obj)
	}
}

func (b *Backend) Draw(mode driver.DrawMode, first, count int) {
	b.bindUniforms()
	b.funcs.DrawArrays(toGLDrawMode(mode), first, count)
	b.endDraw()
}

func (b *Backend) DrawIndexed(mode driver.DrawMode, offset, count int) {
	if l := b.state.layout; l == nil || l.index == nil {
		b.log.Warn("DrawIndexed: no index buffer set")
		b.endDraw()
		return
	}
	b.bindUniforms()
	// offset is in 32-bit indices, but DrawElements takes a byte offset.
	b.funcs.DrawElements(toGLDrawMode(mode), count, gl.UNSIGNED_INT, offset*4)
	b.endDraw()
}

func (b *Backend) Compute() {
	if !b.feats.Features.Has(driver.FeatureCompute) {
		b.log.Warn("Compute: compute shaders not supported")
		b.endCompute()
		return
	}
	b.bindUniforms()
	for i, buf := range b.state.storage {
		b.glstate.bindBufferBase(b.funcs, gl.SHADER_STORAGE_BUFFER, i, buf.obj)
	}
	x, y := 1, 1
	for i, t := range b.state.textures {
		b.funcs.BindImageTexture(t.unit, t.tex.obj, 0, t.tex.dim == driver.Texture3D, 0, gl.READ_WRITE, textureFormat)
		if i == 0 {
			x, y = max(t.tex.width, 1), max(t.tex.height, 1)
		}
	}
	b.funcs.DispatchCompute(x, y, 1)
	b.funcs.MemoryBarrier(gl.ALL_BARRIER_BITS)
	b.endCompute()
}

// bindUniforms binds the uniform buffers of the pipeline's programs to
// consecutive slots in stage order.
func (b *Backend) bindUniforms() {
	p := b.state.pipeline
	if p == nil {
		return
	}
	slot := 0
	for _, kind := range uniformStageOrder {
		prog := p.programs[kind]
		if prog == nil {
			continue
		}
		for _, u := range prog.uniforms {
			if slot >= maxBufferBindings {
				b.log.Warn("too many uniform blocks", "max", maxBufferBindings)
				return
			}
			prog.setSlot(u, slot)
			b.glstate.bindBufferBase(b.funcs, gl.UNIFORM_BUFFER, slot, u.buf.obj)
			slot++
		}
	}
}

var uniformStageOrder = [...]shader.StageKind{
	shader.StageVertex,
	shader.StageFragment,
	shader.StageGeometry,
	shader.StageCompute,
}

func (b *Backend) endDraw() {
	b.state.pipeline = nil
	b.state.layout = nil
	b.state.textures = nil
}

func (b *Backend) endCompute() {
	b.endDraw()
	b.state.storage = nil
}

func (b *Backend) Present() error {
	// For single-buffered framebuffers such as on macOS.
	b.funcs.Flush()
	if b.ctx == nil {
		return nil
	}
	return b.ctx.Present()
}

func (b *Backend) Release() {
	if b.vertArray.Valid() {
		b.glstate.deleteVertexArray(b.funcs, b.vertArray)
	}
	*b = Backend{}
}

func toGLDrawMode(mode driver.DrawMode) gl.Enum {
	switch mode {
	case driver.DrawPoints:
		return gl.POINTS
	case driver.DrawLines:
		return gl.LINES
	case driver.DrawLineStrip:
		return gl.LINE_STRIP
	case driver.DrawTriangles:
		return gl.TRIANGLES
	case driver.DrawTriangleStrip:
		return gl.TRIANGLE_STRIP
	case driver.DrawTriangleFan:
		return gl.TRIANGLE_FAN
	default:
		panic("unsupported draw mode")
	}
}

func glErr(f gl.Functions) error {
	return gl.Err(f)
}

func asBuffer(b driver.Buffer) *gpuBuffer {
	buf, ok := b.(*gpuBuffer)
	if !ok {
		panic(fmt.Sprintf("opengl: %T is not an OpenGL buffer", b))
	}
	return buf
}

func asTexture(t driver.Texture) *gpuTexture {
	tex, ok := t.(*gpuTexture)
	if !ok {
		panic(fmt.Sprintf("opengl: %T is not an OpenGL texture", t))
	}
	return tex
}

func asFramebuffer(f driver.FrameBuffer) *gpuFramebuffer {
	fbo, ok := f.(*gpuFramebuffer)
	if !ok {
		panic(fmt.Sprintf("opengl: %T is not an OpenGL framebuffer", f))
	}
	return fbo
}

func asVertexLayout(l driver.VertexLayout) *gpuVertexLayout {
	layout, ok := l.(*gpuVertexLayout)
	if !ok {
		panic(fmt.Sprintf("opengl: %T is not an OpenGL vertex layout", l))
	}
	return layout
}

func asStage(s driver.ShaderStage) *gpuStage {
	st, ok := s.(*gpuStage)
	if !ok {
		panic(fmt.Sprintf("opengl: %T is not an OpenGL shader stage", s))
	}
	return st
}

func asProgram(p driver.ShaderProgram) *gpuProgram {
	prog, ok := p.(*gpuProgram)
	if !ok {
		panic(fmt.Sprintf("opengl: %T is not an OpenGL program", p))
	}
	return prog
}

func asPipeline(p driver.ShaderPipeline) *gpuPipeline {
	pipe, ok := p.(*gpuPipeline)
	if !ok {
		panic(fmt.Sprintf("opengl: %T is not an OpenGL pipeline", p))
	}
	return pipe
}
