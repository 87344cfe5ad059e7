// SPDX-License-Identifier: Unlicense OR MIT

//go:build (darwin && !ios) || windows || (linux && !android) || freebsd || openbsd

// Package headless implements offscreen rendering to framebuffers of
// hidden windows.
//
// glfw.Init must have been called on the main thread before NewWindow.
package headless

import (
	"image"
	"image/color"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"

	"tida.dev/gpu"
	"tida.dev/gpu/glfwctx"
	"tida.dev/gpu/internal/driver"
)

// Window is a headless window.
type Window struct {
	size image.Point
	ctx  *glfwctx.Context
	dev  driver.Device
	fbo  driver.FrameBuffer
	tex  driver.Texture
}

// NewWindow creates a new headless window rendering to a texture of
// the given size.
func NewWindow(width, height int) (*Window, error) {
	glfw.WindowHint(glfw.Visible, glfw.False)
	win, err := glfwctx.NewWindow(width, height, "headless")
	if err != nil {
		return nil, err
	}
	// Contexts are made current on other threads by contextDo.
	glfw.DetachCurrentContext()
	w := &Window{
		size: image.Point{X: width, Y: height},
		ctx:  glfwctx.New(win),
	}
	err = contextDo(w.ctx, func() error {
		dev, err := w.ctx.NewDevice(gpu.OpenGL{})
		if err != nil {
			return err
		}
		w.dev = dev
		tex, err := dev.CreateTexture(driver.Texture2D, driver.FilterNearest, driver.WrapClamp)
		if err != nil {
			return err
		}
		w.tex = tex
		if err := tex.Storage(width, height, 1); err != nil {
			return err
		}
		fbo, err := dev.CreateFrameBuffer()
		if err != nil {
			return err
		}
		w.fbo = fbo
		return fbo.AttachTexture(tex)
	})
	if err != nil {
		w.Release()
		return nil, err
	}
	return w, nil
}

// Release resources associated with the window.
func (w *Window) Release() {
	if w.dev != nil {
		contextDo(w.ctx, func() error {
			if w.fbo != nil {
				w.fbo.Release()
				w.fbo = nil
			}
			if w.tex != nil {
				w.tex.Release()
				w.tex = nil
			}
			w.dev.Release()
			w.dev = nil
			return nil
		})
	}
	if w.ctx != nil {
		w.ctx.Window().Destroy()
		w.ctx = nil
	}
}

// Size returns the window size.
func (w *Window) Size() image.Point {
	return w.size
}

// Do runs f with the context of the window current and the offscreen
// framebuffer and viewport set.
func (w *Window) Do(f func(dev gpu.Device) error) error {
	return contextDo(w.ctx, func() error {
		w.dev.SetFrameBuffer(w.fbo)
		w.dev.SetViewport(0, 0, w.size.X, w.size.Y)
		return f(w.dev)
	})
}

// Fill clears the window content to col.
func (w *Window) Fill(col color.NRGBA) error {
	return w.Do(func(dev gpu.Device) error {
		r, g, b, a := col.RGBA()
		dev.SetClearColor(float32(r)/0xffff, float32(g)/0xffff, float32(b)/0xffff, float32(a)/0xffff)
		dev.Clear()
		return nil
	})
}

// Screenshot returns the window content.
func (w *Window) Screenshot() (*image.RGBA, error) {
	var img *image.RGBA
	err := contextDo(w.ctx, func() error {
		var err error
		img, err = driver.DownloadImage(w.dev, w.fbo, image.Rectangle{Max: w.size})
		return err
	})
	return img, err
}

// contextDo runs f on a locked thread with the context current.
func contextDo(ctx *glfwctx.Context, f func() error) error {
	errCh := make(chan error)
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		if err := ctx.MakeCurrent(); err != nil {
			errCh <- err
			return
		}
		err := f()
		glfw.DetachCurrentContext()
		errCh <- err
	}()
	return <-errCh
}
