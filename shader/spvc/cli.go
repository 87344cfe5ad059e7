// SPDX-License-Identifier: Unlicense OR MIT

package spvc

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sys/execabs"

	"tida.dev/shader"
)

// CLI is a Library running the spirv-cross command line tool.
type CLI struct {
	Bin     string
	WorkDir WorkDir

	n int
}

// NewCLI resolves bin, "spirv-cross" if empty, and creates a temporary
// work directory for bytecode files.
func NewCLI(bin string) (*CLI, error) {
	if bin == "" {
		bin = "spirv-cross"
	}
	path, err := execabs.LookPath(bin)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCrossCompile, err)
	}
	dir, err := os.MkdirTemp("", "spvc")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCrossCompile, err)
	}
	return &CLI{Bin: path, WorkDir: WorkDir(dir)}, nil
}

// Compiler returns a compiler for code. The bytecode is written to the
// work directory only while the tool runs.
func (c *CLI) Compiler(code []byte, d Dialect) (Compiler, error) {
	c.n++
	return &cliCompiler{
		bin:  c.Bin,
		wd:   c.WorkDir,
		path: c.WorkDir.Path("module"+strconv.Itoa(c.n), "spv"),
		code: code,
		opts: Options{Dialect: d},
	}, nil
}

// Close removes the work directory.
func (c *CLI) Close() error {
	return os.RemoveAll(string(c.WorkDir))
}

type cliCompiler struct {
	bin  string
	wd   WorkDir
	path string
	code []byte
	opts Options
}

func (c *cliCompiler) SetOptions(opts Options) error {
	if opts.Dialect != c.opts.Dialect {
		return fmt.Errorf("dialect %s does not match compiler dialect %s", opts.Dialect, c.opts.Dialect)
	}
	if opts.Version <= 0 {
		return fmt.Errorf("invalid %s version %d", opts.Dialect, opts.Version)
	}
	c.opts = opts
	return nil
}

func (c *cliCompiler) args() []string {
	var args []string
	switch c.opts.Dialect {
	case GLSL:
		es := "--no-es"
		if c.opts.ES {
			es = "--es"
		}
		args = []string{es, "--version", strconv.Itoa(c.opts.Version), "--separate-shader-objects"}
	case HLSL:
		args = []string{"--hlsl", "--shader-model", strconv.Itoa(c.opts.Version)}
	}
	return append(args, c.path)
}

// run writes the bytecode, runs the tool with args and removes the
// bytecode again.
func (c *cliCompiler) run(args []string, combined bool) ([]byte, error) {
	if err := c.wd.WriteFile(c.path, c.code); err != nil {
		return nil, err
	}
	defer os.Remove(c.path)
	cmd := execabs.Command(c.bin, args...)
	var out []byte
	var err error
	if combined {
		out, err = cmd.CombinedOutput()
	} else {
		out, err = cmd.Output()
	}
	if err != nil {
		if combined {
			return nil, fmt.Errorf("%s\nfailed to run %v: %w", out, cmd.Args, err)
		}
		return nil, fmt.Errorf("failed to run %v: %w", cmd.Args, err)
	}
	return out, nil
}

func (c *cliCompiler) Compile() (string, error) {
	out, err := c.run(c.args(), true)
	if err != nil {
		return "", err
	}
	s := string(out)
	if c.opts.Dialect != HLSL {
		s = strings.ReplaceAll(s, "\r\n", "\n")
	}
	return s, nil
}

func (c *cliCompiler) UniformBuffers() ([]shader.UniformBlockInfo, error) {
	out, err := c.run([]string{c.path, "--reflect"}, false)
	if err != nil {
		return nil, err
	}
	return parseReflection(out)
}

// parseReflection extracts uniform blocks from spirv-cross --reflect
// output. The tool reports member offsets but not active ranges, so each
// member spans up to the next member or the end of the block.
func parseReflection(data []byte) ([]shader.UniformBlockInfo, error) {
	var reflect struct {
		Types map[string]struct {
			Name    string `json:"name"`
			Members []struct {
				Name   string `json:"name"`
				Offset int    `json:"offset"`
			} `json:"members"`
		} `json:"types"`
		UBOs []struct {
			Name      string `json:"name"`
			Type      string `json:"type"`
			BlockSize int    `json:"block_size"`
			Set       int    `json:"set"`
			Binding   int    `json:"binding"`
		} `json:"ubos"`
	}
	if err := json.Unmarshal(data, &reflect); err != nil {
		return nil, fmt.Errorf("failed to parse reflection data: %w", err)
	}
	var blocks []shader.UniformBlockInfo
	for _, ubo := range reflect.UBOs {
		t, ok := reflect.Types[ubo.Type]
		if !ok {
			return nil, fmt.Errorf("block %q: unknown type %q", ubo.Name, ubo.Type)
		}
		members := t.Members
		sort.Slice(members, func(i, j int) bool { return members[i].Offset < members[j].Offset })
		var ranges []shader.Range
		for i, m := range members {
			end := ubo.BlockSize
			if i+1 < len(members) {
				end = members[i+1].Offset
			}
			ranges = append(ranges, shader.Range{Offset: m.Offset, Size: end - m.Offset})
		}
		blocks = append(blocks, shader.NewUniformBlock(ubo.Binding, ranges))
	}
	return blocks, nil
}

// WorkDir is a directory for intermediate files.
type WorkDir string

// Path joins the parts with dots and places the name in wd.
func (wd WorkDir) Path(parts ...string) string {
	return filepath.Join(string(wd), strings.Join(parts, "."))
}

func (wd WorkDir) WriteFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("unable to create %v: %w", path, err)
	}
	return nil
}
