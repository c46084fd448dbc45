// Package config parses the engine's command-line flags.
package config

import (
	"flag"
	"os"
	"path/filepath"
)

type Config struct {
	// Library settings
	Root   string
	Output string
	Rescan bool

	// Engine settings
	DataDir      string
	PipelinePath string
	LogLevel     string
	Check        bool
}

func Parse() *Config {
	cfg := &Config{}

	flag.StringVar(&cfg.Root, "root", os.Getenv("STEPMIX_ROOT"), "beatmap library root to convert")
	flag.StringVar(&cfg.Output, "output", defaultOutput(), "output directory for simfiles")
	flag.BoolVar(&cfg.Rescan, "rescan", false, "re-convert sets already in the catalog")
	flag.StringVar(&cfg.DataDir, "data-dir", defaultDataDir(), "data directory for the conversion catalog")
	flag.StringVar(&cfg.PipelinePath, "pipeline", os.Getenv("STEPMIX_PIPELINE"), "pipeline YAML file (built-in default when empty)")
	flag.StringVar(&cfg.LogLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flag.BoolVar(&cfg.Check, "check", false, "run chart sanity checks after every node (slow)")

	flag.Parse()
	return cfg
}

func defaultOutput() string {
	if dir := os.Getenv("STEPMIX_OUTPUT"); dir != "" {
		return dir
	}
	return "./songs"
}

func defaultDataDir() string {
	if dir := os.Getenv("STEPMIX_DATA_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".stepmix"
	}
	return filepath.Join(home, ".stepmix")
}
