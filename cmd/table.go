package cmd

import (
	"fmt"
	"io"
	"sort"

	"github.com/olekukonko/tablewriter"

	"github.com/jmorganca/hdlgen/artifact"
	"github.com/jmorganca/hdlgen/format"
	"github.com/jmorganca/hdlgen/toolchain"
)

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	return table
}

func printArtifacts(w io.Writer, artifacts ...*artifact.Artifact) {
	var data [][]string
	for _, a := range artifacts {
		data = append(data, []string{string(a.Kind), a.Path, format.HumanBytes(a.Size())})
	}

	table := newTable(w, "KIND", "PATH", "SIZE")
	table.AppendBulk(data)
	table.Render()
}

func printSteps(w io.Writer, result *toolchain.Result) {
	var data [][]string
	for _, step := range []struct {
		name string
		*toolchain.Step
	}{
		{"compile", result.Compile},
		{"simulate", result.Simulate},
	} {
		if step.Step == nil {
			continue
		}
		data = append(data, []string{step.name, step.Args[0], fmt.Sprint(step.ExitCode), format.StepDuration(step.Duration)})
	}

	table := newTable(w, "STEP", "COMMAND", "EXIT", "DURATION")
	table.AppendBulk(data)
	table.Render()
}

func printEnv(w io.Writer, envs map[string]string) {
	keys := make([]string, 0, len(envs))
	for k := range envs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var data [][]string
	for _, k := range keys {
		data = append(data, []string{k, envs[k]})
	}

	table := newTable(w, "NAME", "VALUE")
	table.AppendBulk(data)
	table.Render()
}
