// SPDX-License-Identifier: Unlicense OR MIT

//go:build (darwin && !ios) || windows || (linux && !android) || freebsd || openbsd

// Package glfwctx provides OpenGL contexts for gpu devices from GLFW
// windows.
//
// GLFW must be initialized and driven from the main thread. Programs
// call runtime.LockOSThread from an init function.
package glfwctx

import (
	"fmt"

	"github.com/go-gl/glfw/v3.3/glfw"

	"tida.dev/gpu"
)

// Context implements gpu.ContextProvider for the OpenGL context of a
// GLFW window.
type Context struct {
	win *glfw.Window
}

var _ gpu.ContextProvider = (*Context)(nil)

// versions are tried in order by NewWindow.
var versions = [][2]int{{4, 6}, {4, 5}, {4, 3}, {4, 1}}

// New returns a context for a window created with an OpenGL client
// API.
func New(win *glfw.Window) *Context {
	return &Context{win: win}
}

// NewWindow creates a window with the newest OpenGL core profile context
// the system provides. glfw.Init must have been called. Hints set by
// the caller are kept.
func NewWindow(width, height int, title string) (*glfw.Window, error) {
	var firstErr error
	for _, v := range versions {
		glfw.WindowHint(glfw.ClientAPI, glfw.OpenGLAPI)
		glfw.WindowHint(glfw.ContextVersionMajor, v[0])
		glfw.WindowHint(glfw.ContextVersionMinor, v[1])
		glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
		glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
		win, err := glfw.CreateWindow(width, height, title, nil, nil)
		if err == nil {
			return win, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, fmt.Errorf("glfwctx: no OpenGL 4 context: %w", firstErr)
}

// NewDevice creates a device drawing to the window of c.
func (c *Context) NewDevice(api gpu.OpenGL) (gpu.Device, error) {
	api.Context = c
	return gpu.NewDevice(api)
}

func (c *Context) MakeCurrent() error {
	c.win.MakeContextCurrent()
	return nil
}

func (c *Context) Present() error {
	c.win.SwapBuffers()
	return nil
}

// FramebufferSize returns the size of the window framebuffer in pixels,
// suitable for Device.SetViewport.
func (c *Context) FramebufferSize() (width, height int) {
	return c.win.GetFramebufferSize()
}

// Window returns the window of c.
func (c *Context) Window() *glfw.Window {
	return c.win
}
