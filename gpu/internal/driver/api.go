// SPDX-License-Identifier: Unlicense OR MIT

package driver

import (
	"fmt"
	"log/slog"

	"tida.dev/internal/gl"
)

// See gpu/api.go for documentation for the API types.

type API interface {
	implementsAPI()
}

// ContextProvider is the windowing system side of a device.
type ContextProvider interface {
	// MakeCurrent makes the native context current on the calling
	// thread.
	MakeCurrent() error
	// Present swaps the rendered frame to the screen.
	Present() error
}

type OpenGL struct {
	// Context makes the OpenGL context current and presents frames. If
	// nil, a context is assumed current and Present only flushes.
	Context ContextProvider
	// Logger receives diagnostics. Nil discards them.
	Logger *slog.Logger
	// Functions overrides the native function table.
	Functions gl.Functions
	// DisableSPIRV forces cross compilation of SPIR-V to GLSL.
	DisableSPIRV bool
	// GLSLVersion is the version of cross compiled GLSL. Zero selects
	// the context's version.
	GLSLVersion int
}

// API specific device constructors.
var (
	NewOpenGLDevice func(api OpenGL) (Device, error)
)

// NewDevice creates a new Device given the api.
//
// Note that the device does not assume ownership of the resources contained in
// api; the caller must ensure the resources are valid until the device is
// released.
func NewDevice(api API) (Device, error) {
	switch api := api.(type) {
	case OpenGL:
		if NewOpenGLDevice != nil {
			return NewOpenGLDevice(api)
		}
	}
	return nil, fmt.Errorf("driver: no driver available for the API %T", api)
}

func (OpenGL) implementsAPI() {}
