package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// prompter asks single-line questions on a shared reader so buffered input
// is not lost between questions.
type prompter struct {
	r *bufio.Reader
	w io.Writer
}

func newPrompter(cmd *cobra.Command) *prompter {
	return &prompter{r: bufio.NewReader(cmd.InOrStdin()), w: cmd.OutOrStdout()}
}

// ask prints question and returns the trimmed answer. io.EOF is only
// returned when nothing at all was read.
func (p *prompter) ask(question string) (string, error) {
	fmt.Fprint(p.w, question)
	line, err := p.r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// confirm reports whether the answer is "y", ignoring case. End of input
// counts as no.
func (p *prompter) confirm(question string) (bool, error) {
	answer, err := p.ask(question)
	if errors.Is(err, io.EOF) {
		fmt.Fprintln(p.w)
		return false, nil
	} else if err != nil {
		return false, err
	}
	return strings.ToLower(answer) == "y", nil
}

func interactiveHandler(cmd *cobra.Command, args []string) error {
	if v, _ := cmd.Flags().GetBool("version"); v {
		versionHandler(cmd, args)
		return nil
	}

	opts, err := optionsFromFlags(cmd)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Welcome to hdlgen!")
	fmt.Fprintln(out, "I can turn your plain English hardware ideas into Verilog modules and testbenches and run them.")
	fmt.Fprintln(out, strings.Repeat("-", 60))

	p := newPrompter(cmd)
	spec, err := p.ask("Enter Verilog module specification: ")
	if errors.Is(err, io.EOF) {
		fmt.Fprintln(out)
		return errEmptySpec
	} else if err != nil {
		return err
	}
	if spec == "" {
		return errEmptySpec
	}

	a, err := newAgent(cmd, opts)
	if err != nil {
		return err
	}

	m, err := a.GenerateModule(cmd.Context(), spec)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Verilog module saved to %s\n", m.Path)

	tb, err := a.GenerateTestbench(cmd.Context(), m.Source)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Testbench saved to %s\n", tb.Path)

	run := opts.Simulate
	if !run {
		if run, err = p.confirm("Do you want to compile & simulate now? (y/n): "); err != nil {
			return err
		}
	}

	if !run {
		return nil
	}

	return simulate(cmd, a, m, tb, opts)
}
