// Package config loads the optional YAML configuration of the cdsl tool.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/indology/gocdsl/pkg/corpus"
	"github.com/indology/gocdsl/pkg/translit"
)

// Config are the user-tunable defaults of the cdsl tool.
type Config struct {
	// DataDir is the corpus root; ~/cdsl_data by default.
	DataDir string `yaml:"data_dir"`
	// ServerURL points at the lexicon archive server.
	ServerURL string `yaml:"server_url"`
	// Dictionaries selects the dictionaries set up when none are named.
	Dictionaries []string `yaml:"dictionaries"`
	// InputScheme and OutputScheme are the default transliteration schemes.
	InputScheme  string `yaml:"input_scheme"`
	OutputScheme string `yaml:"output_scheme"`
	// SearchLimit bounds search results printed by the CLI.
	SearchLimit int `yaml:"search_limit"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		DataDir:      corpus.DefaultDataDir(),
		ServerURL:    corpus.ServerURL,
		Dictionaries: append([]string{}, corpus.DefaultDictionaries...),
		InputScheme:  string(translit.Default),
		OutputScheme: string(translit.Default),
		SearchLimit:  50,
		LogLevel:     "info",
	}
}

// DefaultPath is the conventional config location,
// ~/.config/gocdsl/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".config", "gocdsl", "config.yaml")
}

// Load reads the configuration at path, layered over the defaults. An empty
// path means DefaultPath; a missing file is not an error and yields the
// defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) && !explicit {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
