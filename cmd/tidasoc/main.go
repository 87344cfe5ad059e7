// SPDX-License-Identifier: Unlicense OR MIT

// Command tidasoc compiles the WGSL shaders listed in a TOML manifest to
// SPIR-V containers for tida.dev/gpu devices.
//
// Each container carries the bytecode, a record per uniform block with
// its binding and size, and a record per sampler. Devices that cannot
// consume SPIR-V cross compile the bytecode at load time.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
)

var (
	manifestPath = flag.String("m", "tidaso.toml", "manifest `file`")
	outDir       = flag.String("o", "", "output `directory`, overriding the manifest")
	jobs         = flag.Int("j", runtime.NumCPU(), "number of shaders compiled in parallel")
	verbose      = flag.Bool("v", false, "log every compiled shader")
)

const usage = `Usage: tidasoc [flags]

tidasoc compiles the WGSL shaders of a manifest to .tidaso containers.

Flags:
`

func main() {
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()
	if err := mainErr(); err != nil {
		fmt.Fprintf(os.Stderr, "tidasoc: %v\n", err)
		os.Exit(1)
	}
}

func mainErr() error {
	if flag.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %v", flag.Args())
	}
	m, err := LoadManifest(*manifestPath)
	if err != nil {
		return err
	}
	if *outDir != "" {
		if m.Out, err = filepath.Abs(*outDir); err != nil {
			return err
		}
	}
	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelInfo
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return m.Build(ctx, *jobs, log)
}
