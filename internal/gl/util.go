// SPDX-License-Identifier: Unlicense OR MIT

package gl

import (
	"fmt"
	"strings"
)

func ParseGLVersion(glVer string) (version [2]int, gles bool, err error) {
	var ver [2]int
	if _, err := fmt.Sscanf(glVer, "OpenGL ES %d.%d", &ver[0], &ver[1]); err == nil {
		return ver, true, nil
	} else if _, err := fmt.Sscanf(glVer, "WebGL %d.%d", &ver[0], &ver[1]); err == nil {
		// WebGL major version v corresponds to OpenGL ES version v + 1
		ver[0]++
		return ver, true, nil
	} else if _, err := fmt.Sscanf(glVer, "%d.%d", &ver[0], &ver[1]); err == nil {
		return ver, false, nil
	}
	return ver, false, fmt.Errorf("failed to parse OpenGL version (%s)", glVer)
}

// Extensions lists the extensions advertised by the current context.
func Extensions(f Functions) []string {
	n := f.GetInteger(NUM_EXTENSIONS)
	exts := make([]string, 0, n)
	for i := 0; i < n; i++ {
		exts = append(exts, f.GetStringi(EXTENSIONS, i))
	}
	return exts
}

// HasExtension reports whether ext is in exts.
func HasExtension(exts []string, ext string) bool {
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

// ShaderBinaryFormats lists the binary formats accepted by ShaderBinary.
func ShaderBinaryFormats(f Functions) []Enum {
	n := f.GetInteger(NUM_SHADER_BINARY_FORMATS)
	if n <= 0 {
		return nil
	}
	raw := make([]int32, n)
	f.GetIntegerv(SHADER_BINARY_FORMATS, raw)
	formats := make([]Enum, n)
	for i, v := range raw {
		formats[i] = Enum(uint32(v))
	}
	return formats
}

// ShaderLog returns the trimmed info log of s.
func ShaderLog(f Functions, s Shader) string {
	return strings.TrimSpace(f.GetShaderInfoLog(s))
}

// ProgramLog returns the trimmed info log of p.
func ProgramLog(f Functions, p Program) string {
	return strings.TrimSpace(f.GetProgramInfoLog(p))
}

// Err reports the pending GL error, if any.
func Err(f Functions) error {
	if st := f.GetError(); st != NO_ERROR {
		return fmt.Errorf("glGetError: %#x", st)
	}
	return nil
}
