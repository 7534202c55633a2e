package toolchain

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// script writes an executable shell script standing in for a tool.
func script(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func setup(t *testing.T) (dir, module, testbench string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script tools are not supported on windows")
	}

	dir = t.TempDir()
	module = filepath.Join(dir, "module_under_test.v")
	testbench = filepath.Join(dir, "tb.v")
	require.NoError(t, os.WriteFile(module, []byte("module inv(input wire a, output wire y); assign y = ~a; endmodule\n"), 0o644))
	require.NoError(t, os.WriteFile(testbench, []byte("`timescale 1ns/1ps\nmodule tb; endmodule\n"), 0o644))
	return dir, module, testbench
}

const fakeCompiler = `[ "$1" = "-o" ] || exit 9
cat "$3" "$4" > "$2"
`

const fakeSimulator = `echo "VCD info: dumpfile dump.vcd opened for output."
grep -c module "$1"
touch simulated
`

func TestRun(t *testing.T) {
	dir, module, testbench := setup(t)
	tools := t.TempDir()

	var out bytes.Buffer
	r := NewRunner(dir)
	r.Compiler = script(t, tools, "iverilog", fakeCompiler)
	r.Simulator = script(t, tools, "vvp", fakeSimulator)
	r.Stdout = &out

	result, err := r.Run(context.Background(), module, testbench)
	require.NoError(t, err)

	require.NotNil(t, result.Compile)
	assert.True(t, result.Compile.Success())
	assert.Equal(t, []string{r.Compiler, "-o", "sim.out", module, testbench}, result.Compile.Args)
	assert.FileExists(t, filepath.Join(dir, "sim.out"))

	require.NotNil(t, result.Simulate)
	assert.Equal(t, 0, result.Simulate.ExitCode)
	assert.Equal(t, []string{r.Simulator, "sim.out"}, result.Simulate.Args)
	assert.FileExists(t, filepath.Join(dir, "simulated"))

	assert.Equal(t, "Compiling Verilog code...\n"+
		"Running simulation...\n"+
		"Simulation output:\n"+
		"VCD info: dumpfile dump.vcd opened for output.\n"+
		"2\n", out.String())
}

func TestRunRelativePaths(t *testing.T) {
	dir, _, _ := setup(t)
	tools := t.TempDir()

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })

	r := NewRunner(filepath.Join(dir, "build"))
	require.NoError(t, os.Mkdir(r.Dir, 0o755))
	r.Compiler = script(t, tools, "iverilog", fakeCompiler)
	r.Simulator = script(t, tools, "vvp", fakeSimulator)
	r.Stdout = nil

	result, err := r.Run(context.Background(), "module_under_test.v", "tb.v")
	require.NoError(t, err)
	assert.True(t, result.Compile.Success())
	assert.FileExists(t, filepath.Join(r.Dir, "sim.out"))
}

func TestRunCreatesWorkingDir(t *testing.T) {
	_, module, testbench := setup(t)
	tools := t.TempDir()

	r := NewRunner(filepath.Join(t.TempDir(), "out", "build"))
	r.Compiler = script(t, tools, "iverilog", fakeCompiler)
	r.Simulator = script(t, tools, "vvp", fakeSimulator)
	r.Stdout = nil

	result, err := r.Run(context.Background(), module, testbench)
	require.NoError(t, err)
	assert.True(t, result.Compile.Success())
	assert.DirExists(t, r.Dir)
	assert.FileExists(t, filepath.Join(r.Dir, "sim.out"))
}

func TestRunCompileFailure(t *testing.T) {
	dir, module, testbench := setup(t)
	tools := t.TempDir()

	var out bytes.Buffer
	r := NewRunner(dir)
	r.Compiler = script(t, tools, "iverilog", "echo \"tb.v:3: syntax error\" >&2\nexit 2\n")
	r.Simulator = script(t, tools, "vvp", fakeSimulator)
	r.Stdout = &out

	result, err := r.Run(context.Background(), module, testbench)
	require.ErrorIs(t, err, ErrCompileFailed)
	require.NotNil(t, result)
	assert.Equal(t, 2, result.Compile.ExitCode)
	assert.Equal(t, "tb.v:3: syntax error\n", string(result.Compile.Stderr))
	assert.Nil(t, result.Simulate)

	assert.Equal(t, "Compiling Verilog code...\nCompilation failed:\ntb.v:3: syntax error\n", out.String())
	assert.NoFileExists(t, filepath.Join(dir, "simulated"))
}

func TestRunSimulatorFailureIsNotAnError(t *testing.T) {
	dir, module, testbench := setup(t)
	tools := t.TempDir()

	var out bytes.Buffer
	r := NewRunner(dir)
	r.Compiler = script(t, tools, "iverilog", fakeCompiler)
	r.Simulator = script(t, tools, "vvp", "echo partial\necho \"ERROR: tb.v:7: \\$fatal\" >&2\nexit 1\n")
	r.Stdout = &out

	result, err := r.Run(context.Background(), module, testbench)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Simulate.ExitCode)
	assert.Contains(t, out.String(), "Simulation output:\npartial\nERROR: tb.v:7: $fatal\n")
}

func TestRunMissingCompiler(t *testing.T) {
	dir, module, testbench := setup(t)

	r := NewRunner(dir)
	r.Compiler = filepath.Join(dir, "does-not-exist")
	r.Stdout = nil

	result, err := r.Run(context.Background(), module, testbench)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCompileFailed)
	assert.Nil(t, result)
}

func TestRunCanceled(t *testing.T) {
	dir, module, testbench := setup(t)
	tools := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRunner(dir)
	r.Compiler = script(t, tools, "iverilog", fakeCompiler)
	r.Stdout = nil

	_, err := r.Run(ctx, module, testbench)
	require.ErrorIs(t, err, context.Canceled)
}
