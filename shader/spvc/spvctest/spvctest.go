// SPDX-License-Identifier: Unlicense OR MIT

// Package spvctest provides a scripted spvc.Library.
package spvctest

import (
	"tida.dev/shader"
	"tida.dev/shader/spvc"
)

// Library returns canned results and records what it was asked to do.
type Library struct {
	Source   string
	Uniforms []shader.UniformBlockInfo

	CompilerErr error
	OptionsErr  error
	CompileErr  error
	UniformsErr error

	// Compiled records the bytecode of every compiled module.
	Compiled [][]byte
	// Options records the options of every compiled module.
	Options []spvc.Options
	Closed  bool
}

var _ spvc.Library = (*Library)(nil)

func (l *Library) Compiler(code []byte, d spvc.Dialect) (spvc.Compiler, error) {
	if l.CompilerErr != nil {
		return nil, l.CompilerErr
	}
	return &compiler{lib: l, code: code, opts: spvc.Options{Dialect: d}}, nil
}

func (l *Library) Close() error {
	l.Closed = true
	return nil
}

type compiler struct {
	lib  *Library
	code []byte
	opts spvc.Options
}

func (c *compiler) SetOptions(opts spvc.Options) error {
	if c.lib.OptionsErr != nil {
		return c.lib.OptionsErr
	}
	c.opts = opts
	return nil
}

func (c *compiler) Compile() (string, error) {
	if c.lib.CompileErr != nil {
		return "", c.lib.CompileErr
	}
	c.lib.Compiled = append(c.lib.Compiled, c.code)
	c.lib.Options = append(c.lib.Options, c.opts)
	return c.lib.Source, nil
}

func (c *compiler) UniformBuffers() ([]shader.UniformBlockInfo, error) {
	if c.lib.UniformsErr != nil {
		return nil, c.lib.UniformsErr
	}
	return append([]shader.UniformBlockInfo(nil), c.lib.Uniforms...), nil
}
