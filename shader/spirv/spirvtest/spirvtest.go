// SPDX-License-Identifier: Unlicense OR MIT

// Package spirvtest assembles small SPIR-V modules for tests.
package spirvtest

import (
	"encoding/binary"
)

// Builder appends SPIR-V instructions to a module.
type Builder struct {
	words []uint32
}

// NewBuilder returns a builder for a SPIR-V 1.0 module with the given id
// bound.
func NewBuilder(bound uint32) *Builder {
	return &Builder{words: []uint32{0x07230203, 0x00010000, 0, bound, 0}}
}

// Op appends an instruction.
func (b *Builder) Op(op uint16, args ...uint32) *Builder {
	b.words = append(b.words, uint32(len(args)+1)<<16|uint32(op))
	b.words = append(b.words, args...)
	return b
}

// Bytes returns the little endian encoding of the module.
func (b *Builder) Bytes() []byte {
	out := make([]byte, 4*len(b.words))
	for i, w := range b.words {
		binary.LittleEndian.PutUint32(out[i*4:], w)
	}
	return out
}

// String packs s as a nul-terminated literal.
func String(s string) []uint32 {
	buf := make([]byte, (len(s)/4+1)*4)
	copy(buf, s)
	words := make([]uint32, len(buf)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(buf[i*4:])
	}
	return words
}

func cat(parts ...[]uint32) []uint32 {
	var out []uint32
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// Uniform block layout of UniformShader.
const (
	ParamsBinding = 0
	ExtraBinding  = 2
	UnusedBinding = 5
)

// UniformShader returns a fragment shader with three uniform blocks:
//
//	layout(binding = 0) uniform Params { vec4 color; float alpha; mat4 m; };
//	layout(binding = 2) uniform Extra { float scale; } extra;
//	layout(binding = 5) uniform Params unused;
//
// main reads color and m through access chains, loads extra whole and
// never touches unused.
func UniformShader() []byte {
	const (
		tVoid = iota + 1
		tFn
		tFloat
		tVec4
		tMat4
		tParams
		tPtrParams
		vParams
		tInt
		cZero
		cTwo
		tPtrVec4
		tPtrMat4
		fMain
		lEntry
		xColor
		xColorVal
		xM
		xMVal
		tExtra
		tPtrExtra
		vExtra
		xExtraVal
		vUnused
		bound
	)
	b := NewBuilder(bound)
	b.Op(17, 1)    // OpCapability Shader
	b.Op(14, 0, 1) // OpMemoryModel Logical GLSL450
	b.Op(15, cat([]uint32{4, fMain}, String("main"))...)
	b.Op(16, fMain, 7) // OpExecutionMode OriginUpperLeft
	b.Op(5, cat([]uint32{fMain}, String("main"))...)
	b.Op(5, cat([]uint32{vParams}, String("params"))...)
	b.Op(6, cat([]uint32{tParams, 0}, String("color"))...)
	b.Op(6, cat([]uint32{tParams, 1}, String("alpha"))...)
	b.Op(6, cat([]uint32{tParams, 2}, String("m"))...)
	b.Op(5, cat([]uint32{vExtra}, String("extra"))...)
	// Decorations.
	b.Op(71, tParams, 2)
	b.Op(72, tParams, 0, 35, 0)
	b.Op(72, tParams, 1, 35, 16)
	b.Op(72, tParams, 2, 5)
	b.Op(72, tParams, 2, 35, 32)
	b.Op(72, tParams, 2, 7, 16)
	b.Op(71, vParams, 34, 0)
	b.Op(71, vParams, 33, ParamsBinding)
	b.Op(71, tExtra, 2)
	b.Op(72, tExtra, 0, 35, 0)
	b.Op(71, vExtra, 34, 0)
	b.Op(71, vExtra, 33, ExtraBinding)
	b.Op(71, vUnused, 33, UnusedBinding)
	// Types and constants.
	b.Op(19, tVoid)
	b.Op(33, tFn, tVoid)
	b.Op(22, tFloat, 32)
	b.Op(23, tVec4, tFloat, 4)
	b.Op(24, tMat4, tVec4, 4)
	b.Op(30, tParams, tVec4, tFloat, tMat4)
	b.Op(32, tPtrParams, 2, tParams)
	b.Op(59, tPtrParams, vParams, 2)
	b.Op(21, tInt, 32, 1)
	b.Op(43, tInt, cZero, 0)
	b.Op(43, tInt, cTwo, 2)
	b.Op(32, tPtrVec4, 2, tVec4)
	b.Op(32, tPtrMat4, 2, tMat4)
	b.Op(30, tExtra, tFloat)
	b.Op(32, tPtrExtra, 2, tExtra)
	b.Op(59, tPtrExtra, vExtra, 2)
	b.Op(59, tPtrParams, vUnused, 2)
	// main.
	b.Op(54, tVoid, fMain, 0, tFn)
	b.Op(248, lEntry)
	b.Op(65, tPtrVec4, xColor, vParams, cZero)
	b.Op(61, tVec4, xColorVal, xColor)
	b.Op(65, tPtrMat4, xM, vParams, cTwo)
	b.Op(61, tMat4, xMVal, xM)
	b.Op(61, tExtra, xExtraVal, vExtra)
	b.Op(253)
	b.Op(56)
	return b.Bytes()
}
