package agent

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmorganca/hdlgen/api"
	"github.com/jmorganca/hdlgen/toolchain"
)

type call struct {
	model  string
	prompt string
}

// fakeCompleter replays canned replies in order and records every prompt.
type fakeCompleter struct {
	replies []string
	err     error
	calls   []call
}

func (f *fakeCompleter) Complete(_ context.Context, model, prompt string) (string, error) {
	f.calls = append(f.calls, call{model, prompt})
	if f.err != nil {
		return "", f.err
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return reply, nil
}

func newTestAgent(t *testing.T, c Completer) *Agent {
	t.Helper()
	a := New(c, "llama3", t.TempDir())
	a.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	a.Runner.Stdout = io.Discard
	return a
}

const moduleReply = "Here is the code:\n```\nmodule inv(input wire a, output wire y);\n  assign y = ~a;\nendmodule\n```\nLet me know if you need changes."

const testbenchReply = "```verilog\n`timescale 1ns/1ps\nmodule tb;\n  reg a; wire y;\n  inv dut(.a(a), .y(y));\n  initial begin a = 0; #1 $display(\"%b %b\", a, y); $finish; end\nendmodule\n```"

func TestGenerateModule(t *testing.T) {
	fc := &fakeCompleter{replies: []string{moduleReply}}
	a := newTestAgent(t, fc)

	m, err := a.GenerateModule(context.Background(), "an inverter")
	require.NoError(t, err)

	want := "module inv(input wire a, output wire y);\n  assign y = ~a;\nendmodule"
	assert.Equal(t, want, m.Source)
	assert.Equal(t, a.Writer.ModulePath(), m.Path)

	bts, err := os.ReadFile(m.Path)
	require.NoError(t, err)
	assert.Equal(t, want, string(bts))

	require.Len(t, fc.calls, 1)
	assert.Equal(t, "llama3", fc.calls[0].model)
	assert.True(t, strings.HasPrefix(fc.calls[0].prompt, "Write synthesizable Verilog code for: an inverter."))
}

func TestGenerate(t *testing.T) {
	fc := &fakeCompleter{replies: []string{moduleReply, testbenchReply}}
	a := newTestAgent(t, fc)

	m, tb, err := a.Generate(context.Background(), "an inverter")
	require.NoError(t, err)

	require.Len(t, fc.calls, 2)
	assert.Contains(t, fc.calls[1].prompt, "Here is the module code:\n"+m.Source+"\n")

	// a language tag ahead of the directive hides it from the repair
	assert.True(t, strings.HasPrefix(tb.Source, "`timescale 1ns/1ps\nverilog\ntimescale 1ns/1ps\nmodule tb;"), tb.Source)
	assert.Equal(t, 1, strings.Count(tb.Source, "`"))
	assert.Equal(t, filepath.Join(a.Writer.Dir, "tb.v"), tb.Path)
}

func TestGenerateTestbenchRestoresDirective(t *testing.T) {
	fc := &fakeCompleter{replies: []string{"`timescale 1ns/1ps\nmodule tb; endmodule\n"}}
	a := newTestAgent(t, fc)

	tb, err := a.GenerateTestbench(context.Background(), "module inv; endmodule")
	require.NoError(t, err)
	assert.Equal(t, "`timescale 1ns/1ps\nmodule tb; endmodule", tb.Source)
}

func TestGenerateCompletionError(t *testing.T) {
	boom := api.StatusError{StatusCode: 404, ErrorMessage: `model "llama3" not found`}
	fc := &fakeCompleter{err: boom}
	a := newTestAgent(t, fc)

	m, tb, err := a.Generate(context.Background(), "an inverter")
	require.Error(t, err)
	assert.Nil(t, m)
	assert.Nil(t, tb)

	var se api.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 404, se.StatusCode)

	_, statErr := os.Stat(a.Writer.ModulePath())
	assert.True(t, errors.Is(statErr, os.ErrNotExist), "nothing should be written")
}

func TestGenerateTestbenchErrorKeepsModule(t *testing.T) {
	fc := &fakeCompleter{replies: []string{moduleReply}}
	a := newTestAgent(t, fc)

	m, err := a.GenerateModule(context.Background(), "an inverter")
	require.NoError(t, err)

	fc.err = context.DeadlineExceeded
	got, tb, err := a.Generate(context.Background(), "an inverter")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, got)
	assert.Nil(t, tb)
	assert.FileExists(t, m.Path)
}

func TestAgentsDoNotShareFiles(t *testing.T) {
	a := newTestAgent(t, &fakeCompleter{replies: []string{"module a; endmodule"}})
	b := newTestAgent(t, &fakeCompleter{replies: []string{"module b; endmodule"}})

	ma, err := a.GenerateModule(context.Background(), "a")
	require.NoError(t, err)
	mb, err := b.GenerateModule(context.Background(), "b")
	require.NoError(t, err)

	assert.NotEqual(t, ma.Path, mb.Path)

	bts, err := os.ReadFile(ma.Path)
	require.NoError(t, err)
	assert.Equal(t, "module a; endmodule", string(bts))
}

func TestSimulate(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script tools are not supported on windows")
	}

	fc := &fakeCompleter{replies: []string{moduleReply, "module tb; initial $finish; endmodule"}}
	a := newTestAgent(t, fc)

	tools := t.TempDir()
	compiler := filepath.Join(tools, "iverilog")
	simulator := filepath.Join(tools, "vvp")
	require.NoError(t, os.WriteFile(compiler, []byte("#!/bin/sh\ncat \"$3\" \"$4\" > \"$2\"\n"), 0o755))
	require.NoError(t, os.WriteFile(simulator, []byte("#!/bin/sh\necho PASS\n"), 0o755))

	var out bytes.Buffer
	a.Runner.Compiler = compiler
	a.Runner.Simulator = simulator
	a.Runner.Stdout = &out

	m, tb, err := a.Generate(context.Background(), "an inverter")
	require.NoError(t, err)

	result, err := a.Simulate(context.Background(), m, tb)
	require.NoError(t, err)
	assert.True(t, result.Compile.Success())
	require.NotNil(t, result.Simulate)
	assert.Equal(t, "PASS\n", string(result.Simulate.Stdout))
	assert.Contains(t, out.String(), "Simulation output:\nPASS\n")
	assert.FileExists(t, filepath.Join(a.Writer.Dir, toolchain.DefaultOutput))
}
