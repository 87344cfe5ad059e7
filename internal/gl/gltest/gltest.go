// SPDX-License-Identifier: Unlicense OR MIT

// Package gltest implements a recording gl.Functions that simulates the
// object model of an OpenGL 4.6 context without a GPU.
package gltest

import (
	"strings"

	"tida.dev/internal/gl"
)

// Call is a recorded function call.
type Call struct {
	Name string
	Args []any
}

// Block is an active uniform block reported by linked programs.
type Block struct {
	Binding int
	Size    int
}

// Functions is a fake function table. The exported fields configure the
// simulated context.
type Functions struct {
	Version       string
	Exts          []string
	BinaryFormats []gl.Enum
	MaxTexture    int

	// CompileLog fails shader compilation when non-empty.
	CompileLog string
	// LinkLog fails program linking when non-empty.
	LinkLog       string
	SpecializeErr error
	// Blocks are the active uniform blocks of every linked program.
	Blocks []Block
	// Incomplete fails framebuffer completeness checks.
	Incomplete bool

	Calls []Call

	next     uint
	bound    map[gl.Enum]gl.Buffer
	buffers  map[gl.Buffer][]byte
	textures map[gl.Texture][]byte
	texBound map[gl.Enum]gl.Texture
	unit     gl.Enum
	units    map[gl.Enum]map[gl.Enum]gl.Texture
	shaders  map[gl.Shader]string
}

var _ gl.Functions = (*Functions)(nil)

// New returns a fake OpenGL 4.6 context that accepts SPIR-V.
func New() *Functions {
	return &Functions{
		Version:       "4.6.0 gltest",
		Exts:          []string{"GL_ARB_gl_spirv", "GL_ARB_separate_shader_objects", "GL_ARB_compute_shader"},
		BinaryFormats: []gl.Enum{gl.SHADER_BINARY_FORMAT_SPIR_V},
		MaxTexture:    16384,
	}
}

// CallsTo returns the arguments of every call to name.
func (f *Functions) CallsTo(name string) [][]any {
	var args [][]any
	for _, c := range f.Calls {
		if c.Name == name {
			args = append(args, c.Args)
		}
	}
	return args
}

// Names returns the recorded call names, optionally filtered by prefix.
func (f *Functions) Names(prefix string) []string {
	var names []string
	for _, c := range f.Calls {
		if strings.HasPrefix(c.Name, prefix) {
			names = append(names, c.Name)
		}
	}
	return names
}

// Reset forgets the recorded calls.
func (f *Functions) Reset() {
	f.Calls = nil
}

// BufferContents returns the simulated data store of b.
func (f *Functions) BufferContents(b gl.Buffer) []byte {
	return f.buffers[b]
}

// Source returns the source submitted for s.
func (f *Functions) Source(s gl.Shader) string {
	return f.shaders[s]
}

func (f *Functions) record(name string, args ...any) {
	f.Calls = append(f.Calls, Call{Name: name, Args: args})
}

func (f *Functions) id() uint {
	f.next++
	return f.next
}

func (f *Functions) init() {
	if f.bound == nil {
		f.bound = make(map[gl.Enum]gl.Buffer)
		f.buffers = make(map[gl.Buffer][]byte)
		f.textures = make(map[gl.Texture][]byte)
		f.texBound = make(map[gl.Enum]gl.Texture)
		f.units = make(map[gl.Enum]map[gl.Enum]gl.Texture)
		f.shaders = make(map[gl.Shader]string)
		f.unit = gl.TEXTURE0
	}
}

func (f *Functions) ActiveTexture(texture gl.Enum) {
	f.init()
	f.record("ActiveTexture", texture)
	f.unit = texture
}

func (f *Functions) AttachShader(p gl.Program, s gl.Shader) {
	f.record("AttachShader", p, s)
}

func (f *Functions) BindBuffer(target gl.Enum, b gl.Buffer) {
	f.init()
	f.record("BindBuffer", target, b)
	f.bound[target] = b
}

func (f *Functions) BindBufferBase(target gl.Enum, index int, b gl.Buffer) {
	f.init()
	f.record("BindBufferBase", target, index, b)
	f.bound[target] = b
}

func (f *Functions) BindFramebuffer(target gl.Enum, fb gl.Framebuffer) {
	f.record("BindFramebuffer", target, fb)
}

func (f *Functions) BindImageTexture(unit int, t gl.Texture, level int, layered bool, layer int, access, format gl.Enum) {
	f.record("BindImageTexture", unit, t, level, layered, layer, access, format)
}

func (f *Functions) BindProgramPipeline(p gl.Pipeline) {
	f.record("BindProgramPipeline", p)
}

func (f *Functions) BindRenderbuffer(target gl.Enum, rb gl.Renderbuffer) {
	f.record("BindRenderbuffer", target, rb)
}

func (f *Functions) BindTexture(target gl.Enum, t gl.Texture) {
	f.init()
	f.record("BindTexture", target, t)
	if f.units[f.unit] == nil {
		f.units[f.unit] = make(map[gl.Enum]gl.Texture)
	}
	f.units[f.unit][target] = t
}

func (f *Functions) BindVertexArray(a gl.VertexArray) {
	f.record("BindVertexArray", a)
}

func (f *Functions) BufferData(target gl.Enum, size int, usage gl.Enum, data []byte) {
	f.init()
	f.record("BufferData", target, size, usage)
	store := make([]byte, size)
	copy(store, data)
	f.buffers[f.bound[target]] = store
}

func (f *Functions) BufferSubData(target gl.Enum, offset int, src []byte) {
	f.init()
	f.record("BufferSubData", target, offset, len(src))
	copy(f.buffers[f.bound[target]][offset:], src)
}

func (f *Functions) CheckFramebufferStatus(target gl.Enum) gl.Enum {
	f.record("CheckFramebufferStatus", target)
	if f.Incomplete {
		return 0x8CD6 // FRAMEBUFFER_INCOMPLETE_ATTACHMENT
	}
	return gl.FRAMEBUFFER_COMPLETE
}

func (f *Functions) Clear(mask gl.Enum) {
	f.record("Clear", mask)
}

func (f *Functions) ClearColor(red, green, blue, alpha float32) {
	f.record("ClearColor", red, green, blue, alpha)
}

func (f *Functions) CompileShader(s gl.Shader) {
	f.record("CompileShader", s)
}

func (f *Functions) CreateBuffer() gl.Buffer {
	b := gl.Buffer{V: f.id()}
	f.record("CreateBuffer", b)
	return b
}

func (f *Functions) CreateFramebuffer() gl.Framebuffer {
	fb := gl.Framebuffer{V: f.id()}
	f.record("CreateFramebuffer", fb)
	return fb
}

func (f *Functions) CreateProgram() gl.Program {
	p := gl.Program{V: f.id()}
	f.record("CreateProgram", p)
	return p
}

func (f *Functions) CreateProgramPipeline() gl.Pipeline {
	p := gl.Pipeline{V: f.id()}
	f.record("CreateProgramPipeline", p)
	return p
}

func (f *Functions) CreateRenderbuffer() gl.Renderbuffer {
	rb := gl.Renderbuffer{V: f.id()}
	f.record("CreateRenderbuffer", rb)
	return rb
}

func (f *Functions) CreateShader(ty gl.Enum) gl.Shader {
	s := gl.Shader{V: f.id()}
	f.record("CreateShader", ty, s)
	return s
}

func (f *Functions) CreateTexture() gl.Texture {
	t := gl.Texture{V: f.id()}
	f.record("CreateTexture", t)
	return t
}

func (f *Functions) CreateVertexArray() gl.VertexArray {
	a := gl.VertexArray{V: f.id()}
	f.record("CreateVertexArray", a)
	return a
}

func (f *Functions) DeleteBuffer(b gl.Buffer) {
	f.record("DeleteBuffer", b)
	delete(f.buffers, b)
}

func (f *Functions) DeleteFramebuffer(fb gl.Framebuffer) {
	f.record("DeleteFramebuffer", fb)
}

func (f *Functions) DeleteProgram(p gl.Program) {
	f.record("DeleteProgram", p)
}

func (f *Functions) DeleteProgramPipeline(p gl.Pipeline) {
	f.record("DeleteProgramPipeline", p)
}

func (f *Functions) DeleteRenderbuffer(rb gl.Renderbuffer) {
	f.record("DeleteRenderbuffer", rb)
}

func (f *Functions) DeleteShader(s gl.Shader) {
	f.record("DeleteShader", s)
}

func (f *Functions) DeleteTexture(t gl.Texture) {
	f.record("DeleteTexture", t)
	delete(f.textures, t)
}

func (f *Functions) DeleteVertexArray(a gl.VertexArray) {
	f.record("DeleteVertexArray", a)
}

func (f *Functions) DetachShader(p gl.Program, s gl.Shader) {
	f.record("DetachShader", p, s)
}

func (f *Functions) DispatchCompute(x, y, z int) {
	f.record("DispatchCompute", x, y, z)
}

func (f *Functions) DrawArrays(mode gl.Enum, first, count int) {
	f.record("DrawArrays", mode, first, count)
}

func (f *Functions) DrawElements(mode gl.Enum, count int, ty gl.Enum, offset int) {
	f.record("DrawElements", mode, count, ty, offset)
}

func (f *Functions) EnableVertexAttribArray(a gl.Attrib) {
	f.record("EnableVertexAttribArray", a)
}

func (f *Functions) Flush() {
	f.record("Flush")
}

func (f *Functions) FramebufferRenderbuffer(target, attachment, renderbuffertarget gl.Enum, rb gl.Renderbuffer) {
	f.record("FramebufferRenderbuffer", target, attachment, renderbuffertarget, rb)
}

func (f *Functions) FramebufferTexture(target, attachment gl.Enum, t gl.Texture, level int) {
	f.record("FramebufferTexture", target, attachment, t, level)
}

func (f *Functions) GetActiveUniformBlocki(p gl.Program, index uint, pname gl.Enum) int {
	if int(index) >= len(f.Blocks) {
		return 0
	}
	switch pname {
	case gl.UNIFORM_BLOCK_BINDING:
		return f.Blocks[index].Binding
	case gl.UNIFORM_BLOCK_DATA_SIZE:
		return f.Blocks[index].Size
	}
	return 0
}

func (f *Functions) GetError() gl.Enum {
	return gl.NO_ERROR
}

func (f *Functions) GetInteger(pname gl.Enum) int {
	switch pname {
	case gl.NUM_EXTENSIONS:
		return len(f.Exts)
	case gl.NUM_SHADER_BINARY_FORMATS:
		return len(f.BinaryFormats)
	case gl.MAX_TEXTURE_SIZE:
		return f.MaxTexture
	}
	return 0
}

func (f *Functions) GetIntegerv(pname gl.Enum, data []int32) {
	if pname == gl.SHADER_BINARY_FORMATS {
		for i := range data {
			if i < len(f.BinaryFormats) {
				data[i] = int32(f.BinaryFormats[i])
			}
		}
	}
}

func (f *Functions) GetProgrami(p gl.Program, pname gl.Enum) int {
	switch pname {
	case gl.LINK_STATUS:
		if f.LinkLog != "" {
			return gl.FALSE
		}
		return gl.TRUE
	case gl.ACTIVE_UNIFORM_BLOCKS:
		return len(f.Blocks)
	case gl.INFO_LOG_LENGTH:
		return len(f.LinkLog)
	}
	return 0
}

func (f *Functions) GetProgramInfoLog(p gl.Program) string {
	return f.LinkLog
}

func (f *Functions) GetShaderi(s gl.Shader, pname gl.Enum) int {
	switch pname {
	case gl.COMPILE_STATUS:
		if f.CompileLog != "" {
			return gl.FALSE
		}
		return gl.TRUE
	case gl.INFO_LOG_LENGTH:
		return len(f.CompileLog)
	}
	return 0
}

func (f *Functions) GetShaderInfoLog(s gl.Shader) string {
	return f.CompileLog
}

func (f *Functions) GetString(pname gl.Enum) string {
	switch pname {
	case gl.VERSION:
		return f.Version
	case gl.SHADING_LANGUAGE_VERSION:
		return "4.60 gltest"
	}
	return ""
}

func (f *Functions) GetStringi(pname gl.Enum, index int) string {
	if pname == gl.EXTENSIONS && index < len(f.Exts) {
		return f.Exts[index]
	}
	return ""
}

func (f *Functions) GetTexImage(target gl.Enum, level int, format, ty gl.Enum, data []byte) {
	f.init()
	f.record("GetTexImage", target, level, format, ty)
	copy(data, f.textures[f.units[f.unit][target]])
}

func (f *Functions) LinkProgram(p gl.Program) {
	f.record("LinkProgram", p)
}

func (f *Functions) MapBufferRange(target gl.Enum, offset, length int, access gl.Enum) []byte {
	f.init()
	f.record("MapBufferRange", target, offset, length, access)
	store := f.buffers[f.bound[target]]
	if offset+length > len(store) {
		return nil
	}
	return store[offset : offset+length]
}

func (f *Functions) MemoryBarrier(barriers gl.Enum) {
	f.record("MemoryBarrier", barriers)
}

func (f *Functions) ProgramParameteri(p gl.Program, pname gl.Enum, value int) {
	f.record("ProgramParameteri", p, pname, value)
}

func (f *Functions) ReadPixels(x, y, width, height int, format, ty gl.Enum, data []byte) {
	f.record("ReadPixels", x, y, width, height, format, ty)
}

func (f *Functions) RenderbufferStorage(target, internalformat gl.Enum, width, height int) {
	f.record("RenderbufferStorage", target, internalformat, width, height)
}

func (f *Functions) ShaderBinary(s gl.Shader, format gl.Enum, data []byte) {
	f.record("ShaderBinary", s, format, len(data))
}

func (f *Functions) ShaderSource(s gl.Shader, src string) {
	f.init()
	f.record("ShaderSource", s)
	f.shaders[s] = src
}

func (f *Functions) SpecializeShader(s gl.Shader, entryPoint string) error {
	f.record("SpecializeShader", s, entryPoint)
	return f.SpecializeErr
}

func (f *Functions) TexParameteri(target, pname gl.Enum, param int) {
	f.record("TexParameteri", target, pname, param)
}

func (f *Functions) TexStorage1D(target gl.Enum, levels int, internalFormat gl.Enum, width int) {
	f.record("TexStorage1D", target, levels, internalFormat, width)
}

func (f *Functions) TexStorage2D(target gl.Enum, levels int, internalFormat gl.Enum, width, height int) {
	f.record("TexStorage2D", target, levels, internalFormat, width, height)
}

func (f *Functions) TexStorage3D(target gl.Enum, levels int, internalFormat gl.Enum, width, height, depth int) {
	f.record("TexStorage3D", target, levels, internalFormat, width, height, depth)
}

func (f *Functions) texImage(target gl.Enum, data []byte) {
	f.init()
	f.textures[f.units[f.unit][target]] = append([]byte(nil), data...)
}

func (f *Functions) TexSubImage1D(target gl.Enum, level int, x, width int, format, ty gl.Enum, data []byte) {
	f.record("TexSubImage1D", target, level, x, width, format, ty)
	f.texImage(target, data)
}

func (f *Functions) TexSubImage2D(target gl.Enum, level int, x, y, width, height int, format, ty gl.Enum, data []byte) {
	f.record("TexSubImage2D", target, level, x, y, width, height, format, ty)
	f.texImage(target, data)
}

func (f *Functions) TexSubImage3D(target gl.Enum, level int, x, y, z, width, height, depth int, format, ty gl.Enum, data []byte) {
	f.record("TexSubImage3D", target, level, x, y, z, width, height, depth, format, ty)
	f.texImage(target, data)
}

func (f *Functions) UniformBlockBinding(p gl.Program, index uint, binding int) {
	f.record("UniformBlockBinding", p, index, binding)
}

func (f *Functions) UnmapBuffer(target gl.Enum) bool {
	f.record("UnmapBuffer", target)
	return true
}

func (f *Functions) UseProgram(p gl.Program) {
	f.record("UseProgram", p)
}

func (f *Functions) UseProgramStages(pipe gl.Pipeline, stages gl.Enum, p gl.Program) {
	f.record("UseProgramStages", pipe, stages, p)
}

func (f *Functions) VertexAttribIPointer(a gl.Attrib, size int, ty gl.Enum, stride, offset int) {
	f.record("VertexAttribIPointer", a, size, ty, stride, offset)
}

func (f *Functions) VertexAttribPointer(a gl.Attrib, size int, ty gl.Enum, normalized bool, stride, offset int) {
	f.record("VertexAttribPointer", a, size, ty, normalized, stride, offset)
}

func (f *Functions) Viewport(x, y, width, height int) {
	f.record("Viewport", x, y, width, height)
}
