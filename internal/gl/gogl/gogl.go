// SPDX-License-Identifier: Unlicense OR MIT

// Package gogl implements gl.Functions on top of the go-gl OpenGL 4.6
// core bindings.
package gogl

import (
	"fmt"
	"strings"
	"unsafe"

	"github.com/go-gl/gl/v4.6-core/gl"

	"tida.dev/internal/byteslice"
	tgl "tida.dev/internal/gl"
)

// Functions implements tgl.Functions. The zero value is not usable; call
// Load with a current context.
type Functions struct {
	specialize bool
}

var _ tgl.Functions = (*Functions)(nil)

// Load resolves the OpenGL entry points of the current context. The
// caller must have made the native context current on the calling
// thread.
func Load() (*Functions, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("gogl: %w", err)
	}
	f := &Functions{}
	ver, _, err := tgl.ParseGLVersion(f.GetString(tgl.VERSION))
	if err != nil {
		return nil, err
	}
	f.specialize = ver[0] > 4 || (ver[0] == 4 && ver[1] >= 6)
	if !f.specialize {
		for _, e := range tgl.Extensions(f) {
			if e == "GL_ARB_gl_spirv" {
				f.specialize = true
				break
			}
		}
	}
	return f, nil
}

func ptr(data []byte) unsafe.Pointer {
	if len(data) == 0 {
		return nil
	}
	return unsafe.Pointer(&data[0])
}

func (f *Functions) ActiveTexture(texture tgl.Enum) {
	gl.ActiveTexture(uint32(texture))
}

func (f *Functions) AttachShader(p tgl.Program, s tgl.Shader) {
	gl.AttachShader(uint32(p.V), uint32(s.V))
}

func (f *Functions) BindBuffer(target tgl.Enum, b tgl.Buffer) {
	gl.BindBuffer(uint32(target), uint32(b.V))
}

func (f *Functions) BindBufferBase(target tgl.Enum, index int, b tgl.Buffer) {
	gl.BindBufferBase(uint32(target), uint32(index), uint32(b.V))
}

func (f *Functions) BindFramebuffer(target tgl.Enum, fb tgl.Framebuffer) {
	gl.BindFramebuffer(uint32(target), uint32(fb.V))
}

func (f *Functions) BindImageTexture(unit int, t tgl.Texture, level int, layered bool, layer int, access, format tgl.Enum) {
	gl.BindImageTexture(uint32(unit), uint32(t.V), int32(level), layered, int32(layer), uint32(access), uint32(format))
}

func (f *Functions) BindProgramPipeline(p tgl.Pipeline) {
	gl.BindProgramPipeline(uint32(p.V))
}

func (f *Functions) BindRenderbuffer(target tgl.Enum, rb tgl.Renderbuffer) {
	gl.BindRenderbuffer(uint32(target), uint32(rb.V))
}

func (f *Functions) BindTexture(target tgl.Enum, t tgl.Texture) {
	gl.BindTexture(uint32(target), uint32(t.V))
}

func (f *Functions) BindVertexArray(a tgl.VertexArray) {
	gl.BindVertexArray(uint32(a.V))
}

func (f *Functions) BufferData(target tgl.Enum, size int, usage tgl.Enum, data []byte) {
	gl.BufferData(uint32(target), size, ptr(data), uint32(usage))
}

func (f *Functions) BufferSubData(target tgl.Enum, offset int, src []byte) {
	if len(src) == 0 {
		return
	}
	gl.BufferSubData(uint32(target), offset, len(src), ptr(src))
}

func (f *Functions) CheckFramebufferStatus(target tgl.Enum) tgl.Enum {
	return tgl.Enum(gl.CheckFramebufferStatus(uint32(target)))
}

func (f *Functions) Clear(mask tgl.Enum) {
	gl.Clear(uint32(mask))
}

func (f *Functions) ClearColor(red, green, blue, alpha float32) {
	gl.ClearColor(red, green, blue, alpha)
}

func (f *Functions) CompileShader(s tgl.Shader) {
	gl.CompileShader(uint32(s.V))
}

func (f *Functions) CreateBuffer() tgl.Buffer {
	var b uint32
	gl.GenBuffers(1, &b)
	return tgl.Buffer{V: uint(b)}
}

func (f *Functions) CreateFramebuffer() tgl.Framebuffer {
	var fb uint32
	gl.GenFramebuffers(1, &fb)
	return tgl.Framebuffer{V: uint(fb)}
}

func (f *Functions) CreateProgram() tgl.Program {
	return tgl.Program{V: uint(gl.CreateProgram())}
}

func (f *Functions) CreateProgramPipeline() tgl.Pipeline {
	var p uint32
	gl.GenProgramPipelines(1, &p)
	return tgl.Pipeline{V: uint(p)}
}

func (f *Functions) CreateRenderbuffer() tgl.Renderbuffer {
	var rb uint32
	gl.GenRenderbuffers(1, &rb)
	return tgl.Renderbuffer{V: uint(rb)}
}

func (f *Functions) CreateShader(ty tgl.Enum) tgl.Shader {
	return tgl.Shader{V: uint(gl.CreateShader(uint32(ty)))}
}

func (f *Functions) CreateTexture() tgl.Texture {
	var t uint32
	gl.GenTextures(1, &t)
	return tgl.Texture{V: uint(t)}
}

func (f *Functions) CreateVertexArray() tgl.VertexArray {
	var a uint32
	gl.GenVertexArrays(1, &a)
	return tgl.VertexArray{V: uint(a)}
}

func (f *Functions) DeleteBuffer(b tgl.Buffer) {
	v := uint32(b.V)
	gl.DeleteBuffers(1, &v)
}

func (f *Functions) DeleteFramebuffer(fb tgl.Framebuffer) {
	v := uint32(fb.V)
	gl.DeleteFramebuffers(1, &v)
}

func (f *Functions) DeleteProgram(p tgl.Program) {
	gl.DeleteProgram(uint32(p.V))
}

func (f *Functions) DeleteProgramPipeline(p tgl.Pipeline) {
	v := uint32(p.V)
	gl.DeleteProgramPipelines(1, &v)
}

func (f *Functions) DeleteRenderbuffer(rb tgl.Renderbuffer) {
	v := uint32(rb.V)
	gl.DeleteRenderbuffers(1, &v)
}

func (f *Functions) DeleteShader(s tgl.Shader) {
	gl.DeleteShader(uint32(s.V))
}

func (f *Functions) DeleteTexture(t tgl.Texture) {
	v := uint32(t.V)
	gl.DeleteTextures(1, &v)
}

func (f *Functions) DeleteVertexArray(a tgl.VertexArray) {
	v := uint32(a.V)
	gl.DeleteVertexArrays(1, &v)
}

func (f *Functions) DetachShader(p tgl.Program, s tgl.Shader) {
	gl.DetachShader(uint32(p.V), uint32(s.V))
}

func (f *Functions) DispatchCompute(x, y, z int) {
	gl.DispatchCompute(uint32(x), uint32(y), uint32(z))
}

func (f *Functions) DrawArrays(mode tgl.Enum, first, count int) {
	gl.DrawArrays(uint32(mode), int32(first), int32(count))
}

func (f *Functions) DrawElements(mode tgl.Enum, count int, ty tgl.Enum, offset int) {
	gl.DrawElements(uint32(mode), int32(count), uint32(ty), gl.PtrOffset(offset))
}

func (f *Functions) EnableVertexAttribArray(a tgl.Attrib) {
	gl.EnableVertexAttribArray(uint32(a))
}

func (f *Functions) Flush() {
	gl.Flush()
}

func (f *Functions) FramebufferRenderbuffer(target, attachment, renderbuffertarget tgl.Enum, rb tgl.Renderbuffer) {
	gl.FramebufferRenderbuffer(uint32(target), uint32(attachment), uint32(renderbuffertarget), uint32(rb.V))
}

func (f *Functions) FramebufferTexture(target, attachment tgl.Enum, t tgl.Texture, level int) {
	gl.FramebufferTexture(uint32(target), uint32(attachment), uint32(t.V), int32(level))
}

func (f *Functions) GetActiveUniformBlocki(p tgl.Program, index uint, pname tgl.Enum) int {
	var v int32
	gl.GetActiveUniformBlockiv(uint32(p.V), uint32(index), uint32(pname), &v)
	return int(v)
}

func (f *Functions) GetError() tgl.Enum {
	return tgl.Enum(gl.GetError())
}

func (f *Functions) GetInteger(pname tgl.Enum) int {
	var v int32
	gl.GetIntegerv(uint32(pname), &v)
	return int(v)
}

func (f *Functions) GetIntegerv(pname tgl.Enum, data []int32) {
	if len(data) == 0 {
		return
	}
	gl.GetIntegerv(uint32(pname), &data[0])
}

func (f *Functions) GetProgrami(p tgl.Program, pname tgl.Enum) int {
	var v int32
	gl.GetProgramiv(uint32(p.V), uint32(pname), &v)
	return int(v)
}

func (f *Functions) GetProgramInfoLog(p tgl.Program) string {
	n := f.GetProgrami(p, tgl.INFO_LOG_LENGTH)
	if n == 0 {
		return ""
	}
	buf := make([]byte, n)
	gl.GetProgramInfoLog(uint32(p.V), int32(n), nil, &buf[0])
	return byteslice.GoString(buf)
}

func (f *Functions) GetShaderi(s tgl.Shader, pname tgl.Enum) int {
	var v int32
	gl.GetShaderiv(uint32(s.V), uint32(pname), &v)
	return int(v)
}

func (f *Functions) GetShaderInfoLog(s tgl.Shader) string {
	n := f.GetShaderi(s, tgl.INFO_LOG_LENGTH)
	if n == 0 {
		return ""
	}
	buf := make([]byte, n)
	gl.GetShaderInfoLog(uint32(s.V), int32(n), nil, &buf[0])
	return byteslice.GoString(buf)
}

func (f *Functions) GetString(pname tgl.Enum) string {
	return gl.GoStr(gl.GetString(uint32(pname)))
}

func (f *Functions) GetStringi(pname tgl.Enum, index int) string {
	return gl.GoStr(gl.GetStringi(uint32(pname), uint32(index)))
}

func (f *Functions) GetTexImage(target tgl.Enum, level int, format, ty tgl.Enum, data []byte) {
	gl.GetTexImage(uint32(target), int32(level), uint32(format), uint32(ty), ptr(data))
}

func (f *Functions) LinkProgram(p tgl.Program) {
	gl.LinkProgram(uint32(p.V))
}

func (f *Functions) MapBufferRange(target tgl.Enum, offset, length int, access tgl.Enum) []byte {
	p := gl.MapBufferRange(uint32(target), offset, length, uint32(access))
	if p == nil {
		return nil
	}
	return unsafe.Slice((*byte)(p), length)
}

func (f *Functions) MemoryBarrier(barriers tgl.Enum) {
	gl.MemoryBarrier(uint32(barriers))
}

func (f *Functions) ProgramParameteri(p tgl.Program, pname tgl.Enum, value int) {
	gl.ProgramParameteri(uint32(p.V), uint32(pname), int32(value))
}

func (f *Functions) ReadPixels(x, y, width, height int, format, ty tgl.Enum, data []byte) {
	gl.ReadPixels(int32(x), int32(y), int32(width), int32(height), uint32(format), uint32(ty), ptr(data))
}

func (f *Functions) RenderbufferStorage(target, internalformat tgl.Enum, width, height int) {
	gl.RenderbufferStorage(uint32(target), uint32(internalformat), int32(width), int32(height))
}

func (f *Functions) ShaderBinary(s tgl.Shader, format tgl.Enum, data []byte) {
	v := uint32(s.V)
	gl.ShaderBinary(1, &v, uint32(format), ptr(data), int32(len(data)))
}

func (f *Functions) ShaderSource(s tgl.Shader, src string) {
	csrc, free := gl.Strs(src + "\x00")
	defer free()
	gl.ShaderSource(uint32(s.V), 1, csrc, nil)
}

func (f *Functions) SpecializeShader(s tgl.Shader, entryPoint string) error {
	if !f.specialize {
		return tgl.ErrUnsupported
	}
	if !strings.HasSuffix(entryPoint, "\x00") {
		entryPoint += "\x00"
	}
	gl.SpecializeShader(uint32(s.V), gl.Str(entryPoint), 0, nil, nil)
	return nil
}

func (f *Functions) TexParameteri(target, pname tgl.Enum, param int) {
	gl.TexParameteri(uint32(target), uint32(pname), int32(param))
}

func (f *Functions) TexStorage1D(target tgl.Enum, levels int, internalFormat tgl.Enum, width int) {
	gl.TexStorage1D(uint32(target), int32(levels), uint32(internalFormat), int32(width))
}

func (f *Functions) TexStorage2D(target tgl.Enum, levels int, internalFormat tgl.Enum, width, height int) {
	gl.TexStorage2D(uint32(target), int32(levels), uint32(internalFormat), int32(width), int32(height))
}

func (f *Functions) TexStorage3D(target tgl.Enum, levels int, internalFormat tgl.Enum, width, height, depth int) {
	gl.TexStorage3D(uint32(target), int32(levels), uint32(internalFormat), int32(width), int32(height), int32(depth))
}

func (f *Functions) TexSubImage1D(target tgl.Enum, level int, x, width int, format, ty tgl.Enum, data []byte) {
	gl.TexSubImage1D(uint32(target), int32(level), int32(x), int32(width), uint32(format), uint32(ty), ptr(data))
}

func (f *Functions) TexSubImage2D(target tgl.Enum, level int, x, y, width, height int, format, ty tgl.Enum, data []byte) {
	gl.TexSubImage2D(uint32(target), int32(level), int32(x), int32(y), int32(width), int32(height), uint32(format), uint32(ty), ptr(data))
}

func (f *Functions) TexSubImage3D(target tgl.Enum, level int, x, y, z, width, height, depth int, format, ty tgl.Enum, data []byte) {
	gl.TexSubImage3D(uint32(target), int32(level), int32(x), int32(y), int32(z), int32(width), int32(height), int32(depth), uint32(format), uint32(ty), ptr(data))
}

func (f *Functions) UnmapBuffer(target tgl.Enum) bool {
	return gl.UnmapBuffer(uint32(target))
}

func (f *Functions) UniformBlockBinding(p tgl.Program, index uint, binding int) {
	gl.UniformBlockBinding(uint32(p.V), uint32(index), uint32(binding))
}

func (f *Functions) UseProgram(p tgl.Program) {
	gl.UseProgram(uint32(p.V))
}

func (f *Functions) UseProgramStages(pipe tgl.Pipeline, stages tgl.Enum, p tgl.Program) {
	gl.UseProgramStages(uint32(pipe.V), uint32(stages), uint32(p.V))
}

func (f *Functions) VertexAttribIPointer(a tgl.Attrib, size int, ty tgl.Enum, stride, offset int) {
	gl.VertexAttribIPointer(uint32(a), int32(size), uint32(ty), int32(stride), gl.PtrOffset(offset))
}

func (f *Functions) VertexAttribPointer(a tgl.Attrib, size int, ty tgl.Enum, normalized bool, stride, offset int) {
	gl.VertexAttribPointer(uint32(a), int32(size), uint32(ty), normalized, int32(stride), gl.PtrOffset(offset))
}

func (f *Functions) Viewport(x, y, width, height int) {
	gl.Viewport(int32(x), int32(y), int32(width), int32(height))
}
