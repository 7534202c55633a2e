// Package artifact persists generated HDL sources.
package artifact

import (
	"fmt"
	"os"
	"path/filepath"
)

type Kind string

const (
	KindModule    Kind = "module"
	KindTestbench Kind = "testbench"
)

const (
	DefaultDir           = "generated_verilog"
	DefaultModuleFile    = "module_under_test.v"
	DefaultTestbenchFile = "tb.v"
)

// Artifact is a source file written by a [Writer].
type Artifact struct {
	Kind   Kind
	Path   string
	Source string
}

// Size is the length of Source in bytes.
func (a *Artifact) Size() int64 {
	return int64(len(a.Source))
}

// Writer stores the module and testbench at fixed names inside Dir. Files
// are overwritten on every write.
type Writer struct {
	Dir           string
	ModuleFile    string
	TestbenchFile string
}

// NewWriter returns a Writer using the default file names inside dir.
func NewWriter(dir string) *Writer {
	if dir == "" {
		dir = DefaultDir
	}

	return &Writer{
		Dir:           dir,
		ModuleFile:    DefaultModuleFile,
		TestbenchFile: DefaultTestbenchFile,
	}
}

func (w *Writer) ModulePath() string {
	return filepath.Join(w.Dir, w.ModuleFile)
}

func (w *Writer) TestbenchPath() string {
	return filepath.Join(w.Dir, w.TestbenchFile)
}

func (w *Writer) WriteModule(source string) (*Artifact, error) {
	return w.write(KindModule, w.ModulePath(), source)
}

func (w *Writer) WriteTestbench(source string) (*Artifact, error) {
	return w.write(KindTestbench, w.TestbenchPath(), source)
}

// Load reads back a previously written artifact of the given kind.
func (w *Writer) Load(kind Kind) (*Artifact, error) {
	path := w.ModulePath()
	if kind == KindTestbench {
		path = w.TestbenchPath()
	}

	bts, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return &Artifact{Kind: kind, Path: path, Source: string(bts)}, nil
}

func (w *Writer) write(kind Kind, path, source string) (*Artifact, error) {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", kind, err)
	}

	return &Artifact{Kind: kind, Path: path, Source: source}, nil
}
