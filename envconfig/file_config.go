package envconfig

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
)

// Config represents the TOML configuration structure
type Config struct {
	Server struct {
		Host  string `toml:"host"`
		Model string `toml:"model"`
	} `toml:"server"`

	Output struct {
		Dir string `toml:"dir"`
	} `toml:"output"`

	Toolchain struct {
		Compiler  string `toml:"compiler"`
		Simulator string `toml:"simulator"`
	} `toml:"toolchain"`

	Logging struct {
		Debug bool `toml:"debug"`
	} `toml:"logging"`
}

var (
	configOnce sync.Once
	config     *Config
	configPath string
)

// GetConfigPaths returns the list of possible config file paths, most
// specific first. HDLGEN_CONFIG, when set, is the only candidate.
func GetConfigPaths() []string {
	if p := os.Getenv("HDLGEN_CONFIG"); p != "" {
		return []string{p}
	}

	var paths []string
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		paths = append(paths, filepath.Join(xdgConfig, "hdlgen", "config.toml"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "hdlgen", "config.toml"))
	}
	return append(paths, filepath.Join(Home(), "config.toml"))
}

// loadConfig loads the first available configuration file
func loadConfig() (*Config, string, error) {
	for _, path := range GetConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			var cfg Config
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return nil, "", fmt.Errorf("error parsing config file %s: %w", path, err)
			}
			return &cfg, path, nil
		}
	}
	return nil, "", nil
}

// FileValue returns the value for a given environment variable key from the
// config file, or the empty string if there is no file or no such setting.
func FileValue(key string) string {
	configOnce.Do(func() {
		var err error
		config, configPath, err = loadConfig()
		if err != nil {
			slog.Warn("failed to load config file", "error", err)
		} else if config != nil {
			slog.Debug("loaded config file", "path", configPath)
		}
	})

	if config == nil {
		return ""
	}

	switch key {
	case "HDLGEN_HOST":
		return config.Server.Host
	case "HDLGEN_MODEL":
		return config.Server.Model
	case "HDLGEN_OUTPUT_DIR":
		return config.Output.Dir
	case "HDLGEN_COMPILER":
		return config.Toolchain.Compiler
	case "HDLGEN_SIMULATOR":
		return config.Toolchain.Simulator
	case "HDLGEN_DEBUG":
		if config.Logging.Debug {
			return "true"
		}
	}

	return ""
}

// ConfigPath returns the path of the loaded configuration file, if any.
func ConfigPath() string {
	FileValue("")
	return configPath
}

// GenerateExampleConfig returns a commented example TOML configuration
func GenerateExampleConfig() string {
	return `# hdlgen configuration file
# Environment variables (HDLGEN_*) take precedence over values set here.

[server]
# Completion service address (default: "127.0.0.1:11434")
host = "127.0.0.1:11434"
# Model used for module and testbench generation (default: "llama3")
model = "llama3"

[output]
# Directory for generated sources (default: "generated_verilog")
dir = "generated_verilog"

[toolchain]
# Verilog compiler and simulation runtime (default: iverilog / vvp)
compiler = "iverilog"
simulator = "vvp"

[logging]
# Enable debug logging (default: false)
debug = false
`
}
