package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/indology/gocdsl/pkg/corpus"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, corpus.ServerURL, cfg.ServerURL)
	assert.Equal(t, corpus.DefaultDictionaries, cfg.Dictionaries)
	assert.Equal(t, "devanagari", cfg.InputScheme)
	assert.Equal(t, "devanagari", cfg.OutputScheme)
	assert.Equal(t, 50, cfg.SearchLimit)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.NotEmpty(t, cfg.DataDir)
}

func TestLoadLayersOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"data_dir: /srv/cdsl\n"+
			"dictionaries: [MW]\n"+
			"output_scheme: iast\n"+
			"search_limit: 5\n",
	), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/cdsl", cfg.DataDir)
	assert.Equal(t, []string{"MW"}, cfg.Dictionaries)
	assert.Equal(t, "iast", cfg.OutputScheme)
	assert.Equal(t, 5, cfg.SearchLimit)

	// Untouched fields keep their defaults.
	assert.Equal(t, "devanagari", cfg.InputScheme)
	assert.Equal(t, corpus.ServerURL, cfg.ServerURL)
}

func TestLoadExplicitMissingPathFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadDefaultMissingPathIsSilent(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.SearchLimit)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dictionaries: [unclosed"), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "parse config")
}
