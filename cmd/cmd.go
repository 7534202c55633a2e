package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jmorganca/hdlgen/agent"
	"github.com/jmorganca/hdlgen/api"
	"github.com/jmorganca/hdlgen/artifact"
	"github.com/jmorganca/hdlgen/envconfig"
	"github.com/jmorganca/hdlgen/extract"
	"github.com/jmorganca/hdlgen/logutil"
	"github.com/jmorganca/hdlgen/progress"
	"github.com/jmorganca/hdlgen/toolchain"
	"github.com/jmorganca/hdlgen/version"
)

var errEmptySpec = errors.New("specification must not be empty")

type runOptions struct {
	Model     string
	OutputDir string
	Simulate  bool
	Verbose   bool
}

func optionsFromFlags(cmd *cobra.Command) (runOptions, error) {
	var opts runOptions
	var err error

	if opts.Model, err = cmd.Flags().GetString("model"); err != nil {
		return opts, err
	}
	if opts.Model == "" {
		opts.Model = envconfig.Model()
	}

	if opts.OutputDir, err = cmd.Flags().GetString("output"); err != nil {
		return opts, err
	}
	if opts.OutputDir == "" {
		opts.OutputDir = envconfig.OutputDir()
	}

	if opts.Verbose, err = cmd.Flags().GetBool("verbose"); err != nil {
		return opts, err
	}

	if f := cmd.Flags().Lookup("simulate"); f != nil {
		if opts.Simulate, err = cmd.Flags().GetBool("simulate"); err != nil {
			return opts, err
		}
	}

	return opts, nil
}

// newAgent wires the pipeline for one run from flags and the environment.
func newAgent(cmd *cobra.Command, opts runOptions) (*agent.Agent, error) {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return nil, err
	}

	var completer agent.Completer = client
	if isTerminal(cmd.ErrOrStderr()) {
		completer = spinnerCompleter{Completer: client, w: cmd.ErrOrStderr()}
	}

	a := agent.New(completer, opts.Model, opts.OutputDir)
	a.Runner = newRunner(cmd, opts.OutputDir)
	a.Logger = slog.Default()
	return a, nil
}

func newRunner(cmd *cobra.Command, dir string) *toolchain.Runner {
	r := toolchain.NewRunner(dir)
	r.Compiler = envconfig.Compiler()
	r.Simulator = envconfig.Simulator()
	r.Stdout = cmd.OutOrStdout()
	r.Logger = slog.Default()
	return r
}

// spinnerCompleter shows a spinner on w while waiting for the model.
type spinnerCompleter struct {
	agent.Completer
	w io.Writer
}

func (c spinnerCompleter) Complete(ctx context.Context, model, prompt string) (string, error) {
	p := progress.NewProgress(c.w)
	defer p.StopAndClear()

	p.Add(progress.NewSpinner("Waiting for " + model))
	return c.Completer.Complete(ctx, model, prompt)
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func checkServerHeartbeat(cmd *cobra.Command, _ []string) error {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return err
	}
	if err := client.Heartbeat(cmd.Context()); err != nil {
		if !strings.Contains(err.Error(), " refused") {
			return err
		}
		return fmt.Errorf("could not connect to the completion service at %s, is ollama running?", envconfig.Host())
	}
	return nil
}

func setupLogging(cmd *cobra.Command, _ []string) {
	level := envconfig.LogLevel()
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}

	logger, _ := logutil.WithRun(logutil.NewLogger(cmd.ErrOrStderr(), level))
	slog.SetDefault(logger)
}

func appendEnvDocs(cmd *cobra.Command, envs []envconfig.EnvVar) {
	if len(envs) == 0 {
		return
	}

	envUsage := `
Environment Variables:
`
	for _, e := range envs {
		envUsage += fmt.Sprintf("      %-24s   %s\n", e.Name, e.Description)
	}

	cmd.SetUsageTemplate(cmd.UsageTemplate() + envUsage)
}

func readSpec(cmd *cobra.Command, args []string) (string, error) {
	spec := strings.Join(args, " ")
	if spec == "" && !isTerminal(cmd.InOrStdin()) {
		bts, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", err
		}
		spec = string(bts)
	}

	spec = strings.TrimSpace(spec)
	if spec == "" {
		return "", errEmptySpec
	}
	return spec, nil
}

func generateHandler(cmd *cobra.Command, args []string) error {
	opts, err := optionsFromFlags(cmd)
	if err != nil {
		return err
	}

	spec, err := readSpec(cmd, args)
	if err != nil {
		return err
	}

	a, err := newAgent(cmd, opts)
	if err != nil {
		return err
	}

	m, tb, err := a.Generate(cmd.Context(), spec)
	if err != nil {
		return err
	}

	printArtifacts(cmd.OutOrStdout(), m, tb)

	if !opts.Simulate {
		return nil
	}

	return simulate(cmd, a, m, tb, opts)
}

func simulate(cmd *cobra.Command, a *agent.Agent, m, tb *artifact.Artifact, opts runOptions) error {
	result, err := a.Simulate(cmd.Context(), m, tb)
	if opts.Verbose && result != nil {
		printSteps(cmd.ErrOrStderr(), result)
	}
	return err
}

func simulateHandler(cmd *cobra.Command, args []string) error {
	opts, err := optionsFromFlags(cmd)
	if err != nil {
		return err
	}

	w := artifact.NewWriter(opts.OutputDir)
	if len(args) == 2 {
		w = &artifact.Writer{ModuleFile: args[0], TestbenchFile: args[1]}
	}

	var sources []*artifact.Artifact
	for _, kind := range []artifact.Kind{artifact.KindModule, artifact.KindTestbench} {
		a, err := w.Load(kind)
		if err != nil {
			return fmt.Errorf("nothing to simulate: %w", err)
		}
		sources = append(sources, a)
	}

	result, err := newRunner(cmd, opts.OutputDir).Run(cmd.Context(), sources[0].Path, sources[1].Path)
	if opts.Verbose && result != nil {
		printSteps(cmd.ErrOrStderr(), result)
	}
	return err
}

func extractHandler(cmd *cobra.Command, args []string) error {
	var r io.Reader = cmd.InOrStdin()
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}

	bts, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	match := extract.Verilog.Find(string(bts))
	slog.Debug("extracted", "fence", match.Fence, "segment", match.Segment, "fallback", match.Fallback)

	source := match.Source
	if testbench, _ := cmd.Flags().GetBool("testbench"); testbench {
		source = extract.NormalizeTestbench(source)
	}

	fmt.Fprintln(cmd.OutOrStdout(), source)
	return nil
}

func envHandler(cmd *cobra.Command, _ []string) error {
	if example, _ := cmd.Flags().GetBool("example"); example {
		fmt.Fprint(cmd.OutOrStdout(), envconfig.GenerateExampleConfig())
		return nil
	}

	printEnv(cmd.OutOrStdout(), envconfig.Values())
	if p := envconfig.ConfigPath(); p != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "\nconfig file: %s\n", p)
	}
	return nil
}

func versionHandler(cmd *cobra.Command, _ []string) {
	fmt.Fprintf(cmd.OutOrStdout(), "hdlgen version is %s\n", version.Version)
}

func NewCLI() *cobra.Command {
	cobra.EnableCommandSorting = false

	rootCmd := &cobra.Command{
		Use:   "hdlgen",
		Short: "Turn hardware descriptions into Verilog modules and testbenches",
		Long: "hdlgen asks a language model for a synthesizable Verilog module matching a plain\n" +
			"English description, generates a testbench for it and can compile and simulate\n" +
			"both with Icarus Verilog.",
		Args: cobra.NoArgs,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Disable usage printing on errors
			cmd.SilenceUsage = true
			setupLogging(cmd, args)
		},
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if v, _ := cmd.Flags().GetBool("version"); v {
				return nil
			}
			return checkServerHeartbeat(cmd, args)
		},
		RunE: interactiveHandler,
	}

	rootCmd.Flags().Bool("version", false, "Show version information")
	rootCmd.Flags().Bool("simulate", false, "Compile and simulate without asking")
	rootCmd.PersistentFlags().StringP("model", "m", "", "Model used for generation (default $HDLGEN_MODEL or llama3)")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output directory (default $HDLGEN_OUTPUT_DIR or generated_verilog)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Show debug logs and step timings")

	generateCmd := &cobra.Command{
		Use:     "generate SPECIFICATION...",
		Aliases: []string{"gen"},
		Short:   "Generate a module and testbench without prompting",
		PreRunE: checkServerHeartbeat,
		RunE:    generateHandler,
	}
	generateCmd.Flags().Bool("simulate", false, "Compile and simulate after generating")

	simulateCmd := &cobra.Command{
		Use:   "simulate [MODULE TESTBENCH]",
		Short: "Compile and simulate previously generated sources",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 2 {
				return fmt.Errorf("accepts 0 or 2 arg(s), received %d", len(args))
			}
			return nil
		},
		RunE: simulateHandler,
	}

	extractCmd := &cobra.Command{
		Use:   "extract [FILE]",
		Short: "Extract Verilog from a model reply read from FILE or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE:  extractHandler,
	}
	extractCmd.Flags().Bool("testbench", false, "Normalize the result as a testbench")

	envCmd := &cobra.Command{
		Use:   "env",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE:  envHandler,
	}
	envCmd.Flags().Bool("example", false, "Print an example configuration file")

	envVars := envconfig.AsMap()
	envs := []envconfig.EnvVar{envVars["HDLGEN_HOST"], envVars["HDLGEN_MODEL"], envVars["HDLGEN_OUTPUT_DIR"], envVars["HDLGEN_DEBUG"], envVars["HDLGEN_CONFIG"]}

	for _, cmd := range []*cobra.Command{rootCmd, generateCmd, simulateCmd, envCmd} {
		switch cmd {
		case simulateCmd:
			appendEnvDocs(cmd, []envconfig.EnvVar{envVars["HDLGEN_OUTPUT_DIR"], envVars["HDLGEN_COMPILER"], envVars["HDLGEN_SIMULATOR"]})
		case envCmd:
			appendEnvDocs(cmd, []envconfig.EnvVar{envVars["HDLGEN_CONFIG"]})
		default:
			appendEnvDocs(cmd, envs)
		}
	}

	rootCmd.AddCommand(
		generateCmd,
		simulateCmd,
		extractCmd,
		envCmd,
	)

	return rootCmd
}
