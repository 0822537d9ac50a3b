// Command shadc compiles and runs a Shad source tree.
//
// Usage:
//
//	shadc run <path> [--buffer NAME]... [--fps]
//
// run compiles the source tree rooted at path, then steps every init and
// run shader once against a NullRunner -- no window is opened and no GPU
// device is touched (SPEC_FULL §6). --buffer names a buffer whose contents
// are printed once every shader has been stepped; --fps additionally prints
// a step-rate line to stderr. No loop runs: each shader is stepped once.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/gogpu/shad/compiler"
	"github.com/gogpu/shad/emit"
	"github.com/gogpu/shad/runtime"
)

// bufferList collects repeated -buffer flags.
type bufferList []string

func (b *bufferList) String() string { return fmt.Sprint([]string(*b)) }
func (b *bufferList) Set(v string) error {
	*b = append(*b, v)
	return nil
}

func main() {
	if len(os.Args) < 2 || os.Args[1] != "run" {
		usage()
		os.Exit(1)
	}

	fs := flag.NewFlagSet("run", flag.ExitOnError)
	var buffers bufferList
	fs.Var(&buffers, "buffer", "print this buffer's contents after every shader has been stepped (repeatable)")
	fps := fs.Bool("fps", false, "also print a step-rate line to stderr")
	fs.Parse(os.Args[2:])

	args := fs.Args()
	if len(args) != 1 {
		usage()
		os.Exit(1)
	}
	path := args[0]

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	start := time.Now()
	program, cerr := compiler.CompileDir(path)
	log.Debug("compile", "path", path, "elapsed", time.Since(start), "ok", cerr == nil)
	if cerr != nil {
		log.Error("compile failed", "taxonomy", cerr.Taxonomy.String())
		fmt.Fprint(os.Stderr, cerr.Render())
		os.Exit(1)
	}

	printSummary(program)

	r := &runtime.NullRunner{}
	if err := r.New(program); err != nil {
		log.Error("runner init failed", "error", err)
		os.Exit(1)
	}

	stepStart := time.Now()
	steps := 0
	for _, sh := range program.InitShaders {
		if err := r.RunStep(sh.Name); err != nil {
			log.Error("step failed", "shader", sh.Name, "error", err)
			os.Exit(1)
		}
		steps++
	}
	for _, sh := range program.RunShaders {
		if err := r.RunStep(sh.Name); err != nil {
			log.Error("step failed", "shader", sh.Name, "error", err)
			os.Exit(1)
		}
		steps++
	}
	elapsed := time.Since(stepStart)

	if *fps {
		rate := 0.0
		if elapsed > 0 {
			rate = float64(steps) / elapsed.Seconds()
		}
		fmt.Fprintf(os.Stderr, "%d steps in %s (%.1f steps/s)\n", steps, elapsed, rate)
	}

	for _, name := range buffers {
		data, err := r.Read(name)
		if err != nil {
			log.Error("read failed", "buffer", name, "error", err)
			os.Exit(1)
		}
		fmt.Printf("%s: %v\n", name, data)
	}

	shaderCount := len(program.InitShaders) + len(program.RunShaders)
	log.Info("run complete", "steps", steps, "buffers", len(program.Buffers), "shaders", shaderCount)
}

// printSummary prints the buffer table and shader lists (SPEC_FULL §6): no
// window is opened, this is the CLI's entire user-visible output for a
// successful compile.
func printSummary(program *emit.Program) {
	names := make([]string, 0, len(program.Buffers))
	for name := range program.Buffers {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Printf("buffers (%d):\n", len(names))
	for _, name := range names {
		desc := program.Buffers[name]
		fmt.Printf("  %-20s size_bytes=%d type=%s\n", name, desc.SizeBytes, desc.TypeName)
	}
	fmt.Printf("init shaders (%d):\n", len(program.InitShaders))
	for _, sh := range program.InitShaders {
		fmt.Printf("  %-20s refs=%v\n", sh.Name, sh.ReferencedBuffers)
	}
	fmt.Printf("run shaders (%d):\n", len(program.RunShaders))
	for _, sh := range program.RunShaders {
		fmt.Printf("  %-20s refs=%v\n", sh.Name, sh.ReferencedBuffers)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: shadc run <path> [--buffer NAME]... [--fps]")
}
