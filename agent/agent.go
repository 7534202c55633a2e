// Package agent runs the generation pipeline: prompt, completion,
// extraction and persistence for a module, the same again for its
// testbench, and optionally compilation and simulation.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmorganca/hdlgen/artifact"
	"github.com/jmorganca/hdlgen/extract"
	"github.com/jmorganca/hdlgen/logutil"
	"github.com/jmorganca/hdlgen/template"
	"github.com/jmorganca/hdlgen/toolchain"
)

// Completer turns a prompt into raw completion text. *api.Client satisfies it.
type Completer interface {
	Complete(ctx context.Context, model, prompt string) (string, error)
}

// Agent holds everything a run needs. Two agents with different writers
// never touch each other's files.
type Agent struct {
	Client    Completer
	Model     string
	Extractor extract.Extractor
	Writer    *artifact.Writer
	Runner    *toolchain.Runner
	Logger    *slog.Logger
}

// New returns an Agent writing into outputDir and compiling there.
func New(client Completer, model, outputDir string) *Agent {
	return &Agent{
		Client:    client,
		Model:     model,
		Extractor: extract.Verilog,
		Writer:    artifact.NewWriter(outputDir),
		Runner:    toolchain.NewRunner(outputDir),
		Logger:    slog.Default(),
	}
}

// GenerateModule asks the model for a module implementing spec and writes
// the extracted source. Completion errors are returned unchanged.
func (a *Agent) GenerateModule(ctx context.Context, spec string) (*artifact.Artifact, error) {
	prompt, err := template.Module(spec)
	if err != nil {
		return nil, err
	}

	source, err := a.complete(ctx, artifact.KindModule, prompt)
	if err != nil {
		return nil, err
	}

	m, err := a.Writer.WriteModule(source)
	if err != nil {
		return nil, err
	}

	a.logger().Info("module saved", "path", m.Path, "bytes", m.Size())
	return m, nil
}

// GenerateTestbench asks the model for a testbench exercising moduleSource.
// The extracted text is normalized before it is written.
func (a *Agent) GenerateTestbench(ctx context.Context, moduleSource string) (*artifact.Artifact, error) {
	prompt, err := template.Testbench(moduleSource)
	if err != nil {
		return nil, err
	}

	source, err := a.complete(ctx, artifact.KindTestbench, prompt)
	if err != nil {
		return nil, err
	}

	tb, err := a.Writer.WriteTestbench(extract.NormalizeTestbench(source))
	if err != nil {
		return nil, err
	}

	a.logger().Info("testbench saved", "path", tb.Path, "bytes", tb.Size())
	return tb, nil
}

// Generate runs both generation steps for spec.
func (a *Agent) Generate(ctx context.Context, spec string) (module, testbench *artifact.Artifact, err error) {
	module, err = a.GenerateModule(ctx, spec)
	if err != nil {
		return nil, nil, fmt.Errorf("generate module: %w", err)
	}

	testbench, err = a.GenerateTestbench(ctx, module.Source)
	if err != nil {
		return module, nil, fmt.Errorf("generate testbench: %w", err)
	}

	return module, testbench, nil
}

// Simulate compiles and runs the two artifacts with the configured runner.
func (a *Agent) Simulate(ctx context.Context, module, testbench *artifact.Artifact) (*toolchain.Result, error) {
	return a.Runner.Run(ctx, module.Path, testbench.Path)
}

func (a *Agent) complete(ctx context.Context, kind artifact.Kind, prompt string) (string, error) {
	logger := a.logger().With("kind", kind, "model", a.Model)
	logger.Debug("sending prompt", "prompt", prompt)

	started := time.Now()
	raw, err := a.Client.Complete(ctx, a.Model, prompt)
	if err != nil {
		return "", err
	}
	logutil.TraceContext(ctx, "raw completion", "kind", kind, "text", raw)

	match := a.Extractor.Find(raw)
	logger.Debug("completion received",
		"duration", time.Since(started),
		"bytes", len(raw),
		"fence", match.Fence,
		"segment", match.Segment,
		"fallback", match.Fallback)

	return match.Source, nil
}

func (a *Agent) logger() *slog.Logger {
	if a.Logger == nil {
		return slog.Default()
	}
	return a.Logger
}
