// Package template renders the prompts sent to the completion service.
package template

import (
	"bytes"
	"embed"
	"strings"
	"sync"
	"text/template"
)

//go:embed *.gotmpl
var templatesFS embed.FS

var templatesOnce = sync.OnceValues(func() (*template.Template, error) {
	return template.New("").Option("missingkey=error").ParseFS(templatesFS, "*.gotmpl")
})

type moduleValues struct {
	Spec string
}

type testbenchValues struct {
	Source string
}

// Module returns the prompt asking for a synthesizable module implementing spec.
func Module(spec string) (string, error) {
	return execute("module.gotmpl", moduleValues{Spec: strings.TrimSpace(spec)})
}

// Testbench returns the prompt asking for a testbench exercising source.
func Testbench(source string) (string, error) {
	return execute("testbench.gotmpl", testbenchValues{Source: source})
}

func execute(name string, values any) (string, error) {
	tmpl, err := templatesOnce()
	if err != nil {
		return "", err
	}

	var b bytes.Buffer
	if err := tmpl.ExecuteTemplate(&b, name, values); err != nil {
		return "", err
	}

	// normalize line endings
	return strings.TrimRight(strings.ReplaceAll(b.String(), "\r\n", "\n"), "\n"), nil
}
