package envconfig

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Host returns the scheme and host of the completion service. Host can be
// configured via the HDLGEN_HOST environment variable.
// Default is scheme "http" and host "127.0.0.1:11434"
func Host() *url.URL {
	defaultPort := "11434"

	s := strings.TrimSpace(Var("HDLGEN_HOST"))
	scheme, hostport, ok := strings.Cut(s, "://")
	switch {
	case !ok:
		scheme, hostport = "http", s
	case scheme == "http":
		defaultPort = "80"
	case scheme == "https":
		defaultPort = "443"
	}

	hostport, path, _ := strings.Cut(hostport, "/")
	host, port, err := net.SplitHostPort(hostport)
	if err != nil {
		host, port = "127.0.0.1", defaultPort
		if ip := net.ParseIP(strings.Trim(hostport, "[]")); ip != nil {
			host = ip.String()
		} else if hostport != "" {
			host = hostport
		}
	}

	if n, err := strconv.ParseInt(port, 10, 32); err != nil || n > 65535 || n < 0 {
		slog.Warn("invalid port, using default", "port", port, "default", defaultPort)
		port = defaultPort
	}

	return &url.URL{
		Scheme: scheme,
		Host:   net.JoinHostPort(host, port),
		Path:   path,
	}
}

// Home returns the per-user state directory, ~/.hdlgen. It holds the
// optional .env and config.toml files.
func Home() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".hdlgen"
	}
	return filepath.Join(home, ".hdlgen")
}

func Bool(k string) func() bool {
	return func() bool {
		if s := Var(k); s != "" {
			b, err := strconv.ParseBool(s)
			if err != nil {
				return true
			}

			return b
		}

		return false
	}
}

func String(k, defaultValue string) func() string {
	return func() string {
		if s := Var(k); s != "" {
			return s
		}
		return defaultValue
	}
}

var (
	// Debug enabled additional debug information.
	Debug = Bool("HDLGEN_DEBUG")
	// Model is the completion model used for both prompts.
	Model = String("HDLGEN_MODEL", "llama3")
	// OutputDir is where generated sources are written.
	OutputDir = String("HDLGEN_OUTPUT_DIR", "generated_verilog")
	// Compiler is the HDL compiler executable.
	Compiler = String("HDLGEN_COMPILER", "iverilog")
	// Simulator runs the compiler's output.
	Simulator = String("HDLGEN_SIMULATOR", "vvp")
)

// LogLevel returns the log level for the application.
// HDLGEN_DEBUG=1 enables debug logs and HDLGEN_DEBUG=2 adds the raw
// prompts and completions at trace level.
func LogLevel() slog.Level {
	level := slog.LevelInfo
	if s := Var("HDLGEN_DEBUG"); s != "" {
		if b, _ := strconv.ParseBool(s); b {
			level = slog.LevelDebug
		} else if i, _ := strconv.ParseInt(s, 10, 64); i != 0 {
			level = slog.Level(i * -4)
		}
	}
	return level
}

type EnvVar struct {
	Name        string
	Value       any
	Description string
}

func AsMap() map[string]EnvVar {
	return map[string]EnvVar{
		"HDLGEN_DEBUG":      {"HDLGEN_DEBUG", Debug(), "Show additional debug information (e.g. HDLGEN_DEBUG=1)"},
		"HDLGEN_HOST":       {"HDLGEN_HOST", Host(), "Address of the completion service (default 127.0.0.1:11434)"},
		"HDLGEN_MODEL":      {"HDLGEN_MODEL", Model(), "Model used to generate modules and testbenches (default llama3)"},
		"HDLGEN_OUTPUT_DIR": {"HDLGEN_OUTPUT_DIR", OutputDir(), "Directory for generated sources (default generated_verilog)"},
		"HDLGEN_COMPILER":   {"HDLGEN_COMPILER", Compiler(), "Verilog compiler executable (default iverilog)"},
		"HDLGEN_SIMULATOR":  {"HDLGEN_SIMULATOR", Simulator(), "Simulation runtime executable (default vvp)"},
		"HDLGEN_CONFIG":     {"HDLGEN_CONFIG", os.Getenv("HDLGEN_CONFIG"), "Path to a TOML configuration file"},
	}
}

func Values() map[string]string {
	vals := make(map[string]string)
	for k, v := range AsMap() {
		vals[k] = fmt.Sprintf("%v", v.Value)
	}
	return vals
}

// Var returns an environment variable stripped of leading and trailing quotes
// or spaces. When the variable is unset, the value from the configuration
// file is used instead.
func Var(key string) string {
	if s := strings.Trim(strings.TrimSpace(os.Getenv(key)), "\"'"); s != "" {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(FileValue(key))
}
