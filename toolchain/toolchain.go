// Package toolchain compiles and simulates generated Verilog with an external
// compiler and simulation runtime, Icarus Verilog by default.
package toolchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// ErrCompileFailed is returned when the compiler exits with a nonzero status.
// The simulator is not run in that case.
var ErrCompileFailed = errors.New("compilation failed")

const (
	DefaultCompiler  = "iverilog"
	DefaultSimulator = "vvp"
	DefaultOutput    = "sim.out"
)

// Step is one finished subprocess invocation.
type Step struct {
	Args     []string
	ExitCode int
	Stdout   []byte
	Stderr   []byte
	Duration time.Duration
}

// Success reports whether the process exited with status 0.
func (s *Step) Success() bool {
	return s.ExitCode == 0
}

// Result holds the compile step and, when compilation succeeded, the
// simulate step.
type Result struct {
	Compile  *Step
	Simulate *Step
}

// Runner compiles and simulates a module and its testbench.
type Runner struct {
	Compiler  string
	Simulator string

	// Output names the compiled simulation binary, relative to Dir.
	Output string

	// Dir is the working directory of both steps. Empty means the current
	// directory.
	Dir string

	// Stdout receives the progress messages and the captured tool output.
	Stdout io.Writer

	Logger *slog.Logger
}

// NewRunner returns a Runner using Icarus Verilog inside dir.
func NewRunner(dir string) *Runner {
	return &Runner{
		Compiler:  DefaultCompiler,
		Simulator: DefaultSimulator,
		Output:    DefaultOutput,
		Dir:       dir,
		Stdout:    os.Stdout,
		Logger:    slog.Default(),
	}
}

// Run compiles modulePath and testbenchPath into Output, creating Dir when it
// is missing, and, if that works, runs the simulation and prints its output.
// The simulator's exit status is recorded but never treated as an error.
// Failing to start either tool is.
func (r *Runner) Run(ctx context.Context, modulePath, testbenchPath string) (*Result, error) {
	sources, err := absPaths(modulePath, testbenchPath)
	if err != nil {
		return nil, err
	}

	if r.Dir != "" {
		if err := os.MkdirAll(r.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("create working directory: %w", err)
		}
	}

	fmt.Fprintln(r.stdout(), "Compiling Verilog code...")
	compile, err := r.exec(ctx, r.Compiler, append([]string{"-o", r.Output}, sources...)...)
	if err != nil {
		return nil, err
	}

	result := &Result{Compile: compile}
	if !compile.Success() {
		fmt.Fprintln(r.stdout(), "Compilation failed:")
		r.stdout().Write(diagnostics(compile))
		return result, fmt.Errorf("%w: %s exited with status %d", ErrCompileFailed, r.Compiler, compile.ExitCode)
	}

	fmt.Fprintln(r.stdout(), "Running simulation...")
	simulate, err := r.exec(ctx, r.Simulator, r.Output)
	if err != nil {
		return result, err
	}
	result.Simulate = simulate

	fmt.Fprintln(r.stdout(), "Simulation output:")
	r.stdout().Write(simulate.Stdout)
	if len(simulate.Stderr) > 0 {
		r.stdout().Write(simulate.Stderr)
	}

	return result, nil
}

func (r *Runner) exec(ctx context.Context, name string, args ...string) (*Step, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = r.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger().Debug("running", "cmd", cmd.String(), "dir", r.Dir)

	started := time.Now()
	err := cmd.Run()
	step := &Step{
		Args:     cmd.Args,
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(started),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("run %s: %w", name, err)
		}
		step.ExitCode = exitErr.ExitCode()
	}

	r.logger().Debug("finished", "cmd", name, "exit", step.ExitCode, "duration", step.Duration)
	return step, nil
}

func (r *Runner) stdout() io.Writer {
	if r.Stdout == nil {
		return io.Discard
	}
	return r.Stdout
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

// diagnostics prefers stderr, where iverilog reports errors, and falls back
// to stdout for tools that print there.
func diagnostics(s *Step) []byte {
	if len(s.Stderr) > 0 {
		return s.Stderr
	}
	return s.Stdout
}

// absPaths makes the sources independent of the runner's working directory.
func absPaths(paths ...string) ([]string, error) {
	out := make([]string, len(paths))
	for i, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, err
		}
		out[i] = abs
	}
	return out, nil
}
