// SPDX-License-Identifier: Unlicense OR MIT

package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/glsl"
	"github.com/gogpu/naga/spirv"
	"github.com/pelletier/go-toml/v2"
)

// Manifest lists the shaders of a bundle. It is read from TOML:
//
//	out = "build"
//	spirv = "1.3"
//	previews = ["glsl"]
//
//	[[shader]]
//	name = "blit"
//	source = "blit.wgsl"
type Manifest struct {
	// Out is the output directory, relative to the manifest.
	Out string `toml:"out"`
	// SPIRV is the SPIR-V version of the bytecode, such as "1.3".
	SPIRV string `toml:"spirv"`
	Debug bool   `toml:"debug"`
	// Previews lists the dialects written next to each container for
	// inspection, "glsl" or "hlsl".
	Previews []string `toml:"previews"`
	// GLSLVersion is the version of GLSL previews, such as 430.
	GLSLVersion int      `toml:"glsl_version"`
	Shaders     []Source `toml:"shader"`

	// dir is the directory of the manifest file.
	dir string
}

// Source is a WGSL module with a single entry point named main.
type Source struct {
	Name   string `toml:"name"`
	Source string `toml:"source"`
	// Previews overrides the manifest previews when set.
	Previews []string `toml:"previews"`
}

var spirvVersions = map[string]spirv.Version{
	"1.0": spirv.Version1_0,
	"1.3": spirv.Version1_3,
	"1.4": spirv.Version1_4,
	"1.5": spirv.Version1_5,
	"1.6": spirv.Version1_6,
}

// LoadManifest reads the manifest at path.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.dir = filepath.Dir(path)
	return m, nil
}

// ParseManifest decodes and validates a manifest. Unknown keys are
// errors.
func ParseManifest(data []byte) (*Manifest, error) {
	m := new(Manifest)
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(m); err != nil {
		return nil, err
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manifest) validate() error {
	if len(m.Shaders) == 0 {
		return errors.New("no shaders")
	}
	if m.SPIRV == "" {
		m.SPIRV = "1.3"
	}
	if _, ok := spirvVersions[m.SPIRV]; !ok {
		return fmt.Errorf("unsupported SPIR-V version %q", m.SPIRV)
	}
	if m.GLSLVersion == 0 {
		m.GLSLVersion = 430
	}
	if m.GLSLVersion < 330 {
		return fmt.Errorf("unsupported GLSL version %d", m.GLSLVersion)
	}
	if err := validPreviews(m.Previews); err != nil {
		return err
	}
	names := make(map[string]bool)
	for i, s := range m.Shaders {
		switch {
		case s.Name == "":
			return fmt.Errorf("shader %d: missing name", i)
		case s.Source == "":
			return fmt.Errorf("shader %s: missing source", s.Name)
		case names[s.Name]:
			return fmt.Errorf("shader %s: duplicate name", s.Name)
		}
		names[s.Name] = true
		if err := validPreviews(s.Previews); err != nil {
			return fmt.Errorf("shader %s: %w", s.Name, err)
		}
	}
	return nil
}

func validPreviews(previews []string) error {
	for _, p := range previews {
		if p != "glsl" && p != "hlsl" {
			return fmt.Errorf("unknown preview %q", p)
		}
	}
	return nil
}

func (m *Manifest) compileOptions() naga.CompileOptions {
	opts := naga.DefaultOptions()
	opts.SPIRVVersion = spirvVersions[m.SPIRV]
	opts.Debug = m.Debug
	return opts
}

func (m *Manifest) glslVersion() glsl.Version {
	return glsl.Version{Major: uint8(m.GLSLVersion / 100), Minor: uint8(m.GLSLVersion % 100)}
}

func (m *Manifest) previews(s Source) []string {
	if s.Previews != nil {
		return s.Previews
	}
	return m.Previews
}

func (m *Manifest) path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.dir, p)
}
