// SPDX-License-Identifier: Unlicense OR MIT

package gl

import "errors"

// ErrUnsupported is returned by functions the current context does not
// provide.
var ErrUnsupported = errors.New("gl: function not supported by context")

// Functions is the table of native OpenGL entry points used by the
// OpenGL backend. Implementations are not safe for concurrent use and
// must only be called from the thread owning the current context.
type Functions interface {
	ActiveTexture(texture Enum)
	AttachShader(p Program, s Shader)
	BindBuffer(target Enum, b Buffer)
	BindBufferBase(target Enum, index int, b Buffer)
	BindFramebuffer(target Enum, fb Framebuffer)
	BindImageTexture(unit int, t Texture, level int, layered bool, layer int, access, format Enum)
	BindProgramPipeline(p Pipeline)
	BindRenderbuffer(target Enum, rb Renderbuffer)
	BindTexture(target Enum, t Texture)
	BindVertexArray(a VertexArray)
	BufferData(target Enum, size int, usage Enum, data []byte)
	BufferSubData(target Enum, offset int, src []byte)
	CheckFramebufferStatus(target Enum) Enum
	Clear(mask Enum)
	ClearColor(red, green, blue, alpha float32)
	CompileShader(s Shader)
	CreateBuffer() Buffer
	CreateFramebuffer() Framebuffer
	CreateProgram() Program
	CreateProgramPipeline() Pipeline
	CreateRenderbuffer() Renderbuffer
	CreateShader(ty Enum) Shader
	CreateTexture() Texture
	CreateVertexArray() VertexArray
	DeleteBuffer(b Buffer)
	DeleteFramebuffer(fb Framebuffer)
	DeleteProgram(p Program)
	DeleteProgramPipeline(p Pipeline)
	DeleteRenderbuffer(rb Renderbuffer)
	DeleteShader(s Shader)
	DeleteTexture(t Texture)
	DeleteVertexArray(a VertexArray)
	DetachShader(p Program, s Shader)
	DispatchCompute(x, y, z int)
	DrawArrays(mode Enum, first, count int)
	DrawElements(mode Enum, count int, ty Enum, offset int)
	EnableVertexAttribArray(a Attrib)
	Flush()
	FramebufferRenderbuffer(target, attachment, renderbuffertarget Enum, rb Renderbuffer)
	FramebufferTexture(target, attachment Enum, t Texture, level int)
	GetActiveUniformBlocki(p Program, index uint, pname Enum) int
	GetError() Enum
	GetInteger(pname Enum) int
	GetIntegerv(pname Enum, data []int32)
	GetProgrami(p Program, pname Enum) int
	GetProgramInfoLog(p Program) string
	GetShaderi(s Shader, pname Enum) int
	GetShaderInfoLog(s Shader) string
	GetString(pname Enum) string
	GetStringi(pname Enum, index int) string
	GetTexImage(target Enum, level int, format, ty Enum, data []byte)
	LinkProgram(p Program)
	MapBufferRange(target Enum, offset, length int, access Enum) []byte
	MemoryBarrier(barriers Enum)
	ProgramParameteri(p Program, pname Enum, value int)
	ReadPixels(x, y, width, height int, format, ty Enum, data []byte)
	RenderbufferStorage(target, internalformat Enum, width, height int)
	ShaderBinary(s Shader, format Enum, data []byte)
	ShaderSource(s Shader, src string)
	// SpecializeShader returns ErrUnsupported if the context lacks
	// glSpecializeShader.
	SpecializeShader(s Shader, entryPoint string) error
	TexParameteri(target, pname Enum, param int)
	TexStorage1D(target Enum, levels int, internalFormat Enum, width int)
	TexStorage2D(target Enum, levels int, internalFormat Enum, width, height int)
	TexStorage3D(target Enum, levels int, internalFormat Enum, width, height, depth int)
	TexSubImage1D(target Enum, level int, x, width int, format, ty Enum, data []byte)
	TexSubImage2D(target Enum, level int, x, y, width, height int, format, ty Enum, data []byte)
	TexSubImage3D(target Enum, level int, x, y, z, width, height, depth int, format, ty Enum, data []byte)
	UniformBlockBinding(p Program, index uint, binding int)
	UnmapBuffer(target Enum) bool
	UseProgram(p Program)
	UseProgramStages(pipe Pipeline, stages Enum, p Program)
	VertexAttribIPointer(a Attrib, size int, ty Enum, stride, offset int)
	VertexAttribPointer(a Attrib, size int, ty Enum, normalized bool, stride, offset int)
	Viewport(x, y, width, height int)
}
