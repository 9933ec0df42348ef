// Package config loads rcx5sync's runtime configuration from a .env file
// and the process environment, the same two-layer precedence the CLI
// entrypoint expects: environment variables win over the file, and the file
// wins over the library's defaults.
package config

import (
	"bytes"
	"io"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-envparse"
)

func newReader(data []byte) io.Reader { return bytes.NewReader(data) }

// Config holds the CLI's output location, output format and log level.
type Config struct {
	// OutputDir is where decoded sessions are written, one file per session.
	OutputDir string
	// Format is either "json" or "packed".
	Format string
	// LogLevel is a zerolog level name: "debug", "info", "warn", "error".
	LogLevel string
}

func defaults() Config {
	return Config{
		OutputDir: "./sessions",
		Format:    "json",
		LogLevel:  "info",
	}
}

// Load reads .env (if present) from the working directory, or, when the
// working directory has none, from the nearest ancestor directory holding a
// go.mod, and overlays process environment variables on top of it, falling
// back to defaults for anything neither source sets.
func Load() (Config, error) {
	cfg := defaults()

	envPath := filepath.Join(findProjectRoot(), ".env")
	if data, err := os.ReadFile(envPath); err == nil {
		vars, err := envparse.Parse(newReader(data))
		if err != nil {
			return cfg, err
		}
		applyVars(&cfg, vars)
	}

	applyVars(&cfg, processEnv())
	return cfg, nil
}

func applyVars(cfg *Config, vars map[string]string) {
	if v, ok := vars["RCX5_OUTPUT_DIR"]; ok && v != "" {
		cfg.OutputDir = v
	}
	if v, ok := vars["RCX5_FORMAT"]; ok && v != "" {
		cfg.Format = v
	}
	if v, ok := vars["RCX5_LOG_LEVEL"]; ok && v != "" {
		cfg.LogLevel = v
	}
}

func processEnv() map[string]string {
	vars := map[string]string{}
	for _, key := range []string{"RCX5_OUTPUT_DIR", "RCX5_FORMAT", "RCX5_LOG_LEVEL"} {
		if v := os.Getenv(key); v != "" {
			vars[key] = v
		}
	}
	return vars
}

func findProjectRoot() string {
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	if _, err := os.Stat(filepath.Join(cwd, ".env")); err == nil {
		return cwd
	}
	for {
		if _, err := os.Stat(filepath.Join(cwd, "go.mod")); err == nil {
			return cwd
		}
		parent := filepath.Dir(cwd)
		if parent == cwd {
			return cwd
		}
		cwd = parent
	}
}
