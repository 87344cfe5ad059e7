// SPDX-License-Identifier: Unlicense OR MIT

// Package spvc cross-compiles SPIR-V bytecode to shading language source
// for devices that cannot consume bytecode directly.
//
// The package holds a process-wide compiler library. Init, Load and
// Terminate are not safe for concurrent use; callers serialize them the
// same way they serialize device calls.
package spvc

import (
	"errors"
	"fmt"

	"tida.dev/shader"
)

// ErrCrossCompile reports a failure to create, configure or run a
// compiler.
var ErrCrossCompile = errors.New("spvc: cross-compile error")

// Dialect is a target shading language family.
type Dialect uint8

const (
	GLSL Dialect = iota
	HLSL
)

// Options configure a compiler for its dialect.
type Options struct {
	Dialect Dialect
	// Version is the GLSL version, such as 430, or the HLSL shader model,
	// such as 50.
	Version int
	// ES selects GLSL ES output.
	ES bool
}

// Library creates compilers. Compiler performs context creation and
// bytecode parsing.
type Library interface {
	Compiler(code []byte, d Dialect) (Compiler, error)
	Close() error
}

// Compiler translates one module to one dialect.
type Compiler interface {
	SetOptions(opts Options) error
	Compile() (string, error)
	// UniformBuffers enumerates the uniform blocks with the bindings used
	// by the compiled source.
	UniformBuffers() ([]shader.UniformBlockInfo, error)
}

// Result is the output of CrossCompile.
type Result struct {
	Source   string
	Uniforms []shader.UniformBlockInfo
}

var lib Library

// Init installs l as the compiler library, replacing any loaded one
// without closing it.
func Init(l Library) {
	lib = l
}

// Load returns the compiler library, loading the spirv-cross command
// line tool if none is installed. The loaded library lives until
// Terminate; devices never close it, so programs call Terminate once no
// device cross compiles anymore.
func Load() (Library, error) {
	if lib != nil {
		return lib, nil
	}
	l, err := NewCLI("")
	if err != nil {
		return nil, err
	}
	lib = l
	return lib, nil
}

// Terminate closes and forgets the compiler library.
func Terminate() error {
	if lib == nil {
		return nil
	}
	err := lib.Close()
	lib = nil
	return err
}

func (d Dialect) String() string {
	switch d {
	case GLSL:
		return "glsl"
	case HLSL:
		return "hlsl"
	default:
		return fmt.Sprintf("Dialect(%d)", uint8(d))
	}
}

// CrossCompile translates code with the loaded library. The returned
// uniform blocks come from the same compiler that produced the source.
func CrossCompile(code []byte, opts Options) (Result, error) {
	l, err := Load()
	if err != nil {
		return Result{}, err
	}
	c, err := l.Compiler(code, opts.Dialect)
	if err != nil {
		return Result{}, fmt.Errorf("%w: create %s compiler: %v", ErrCrossCompile, opts.Dialect, err)
	}
	if err := c.SetOptions(opts); err != nil {
		return Result{}, fmt.Errorf("%w: set options: %v", ErrCrossCompile, err)
	}
	src, err := c.Compile()
	if err != nil {
		return Result{}, fmt.Errorf("%w: compile: %v", ErrCrossCompile, err)
	}
	ubos, err := c.UniformBuffers()
	if err != nil {
		return Result{}, fmt.Errorf("%w: uniform buffers: %v", ErrCrossCompile, err)
	}
	return Result{Source: src, Uniforms: shader.SortBlocks(ubos)}, nil
}
