// Command cdsl downloads dictionaries of the Cologne Digital Sanskrit
// Lexicon archive and queries them. It is a thin adapter over the corpus
// and lexicon packages.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/indology/gocdsl/pkg/config"
	"github.com/indology/gocdsl/pkg/corpus"
	"github.com/indology/gocdsl/pkg/translit"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	dataDir    string
	logLevel   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts rootOptions

	cmd := &cobra.Command{
		Use:           "cdsl",
		Short:         "Access dictionaries of the Cologne Digital Sanskrit Lexicon",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(opts.logLevel)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to config file")
	cmd.PersistentFlags().StringVar(&opts.dataDir, "data-dir", "", "Corpus data directory")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")

	cmd.AddCommand(
		newListCmd(&opts),
		newSetupCmd(&opts),
		newSearchCmd(&opts),
		newEntryCmd(&opts),
		newStatsCmd(&opts),
		newDumpCmd(&opts),
	)
	return cmd
}

func setupLogging(level string) {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "info":
		l = slog.LevelInfo
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelWarn
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})))
}

// loadConfig layers the persistent flags over the config file.
func loadConfig(opts *rootOptions) (config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return cfg, err
	}
	if opts.dataDir != "" {
		cfg.DataDir = opts.dataDir
	}
	return cfg, nil
}

// newCorpus builds a corpus from the effective configuration. No external
// scheme converter is plugged in, so entries are rendered in the canonical
// scheme; plug a translit.Func here to wire a converter library.
func newCorpus(cfg config.Config) *corpus.Corpus {
	opts := corpus.DefaultOptions()
	opts.DataDir = cfg.DataDir
	opts.ServerURL = cfg.ServerURL
	opts.InputScheme = translit.Or(translit.Scheme(cfg.InputScheme), translit.Default)
	opts.OutputScheme = translit.Or(translit.Scheme(cfg.OutputScheme), translit.Default)
	opts.Translit = translit.Identity
	return corpus.New(opts)
}
