package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/indology/gocdsl/pkg/lexicon"
	"github.com/indology/gocdsl/pkg/translit"
)

// searchOptions holds the CLI flags of the search command.
type searchOptions struct {
	dicts        []string
	inputScheme  string
	outputScheme string
	ignoreCase   bool
	limit        int
	offset       int
	showMeaning  bool
}

func newSearchCmd(root *rootOptions) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <pattern>",
		Short: "Search dictionaries by key pattern",
		Long: `Search dictionaries by key pattern.

The pattern may contain * matching zero or more characters and is given in
the input scheme; matching runs against the canonical keys.

Examples:
  cdsl search 'rAma'
  cdsl search 'rA*' --dict MW --limit 5
  cdsl search 'RAMA*' --ignore-case`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			c := newCorpus(cfg)

			ids := opts.dicts
			if len(ids) == 0 {
				ids = cfg.Dictionaries
			}
			if !c.Setup(cmd.Context(), ids, false) {
				return fmt.Errorf("not all dictionaries could be set up")
			}

			limit := opts.limit
			if limit == 0 {
				limit = cfg.SearchLimit
			}
			sopts := lexicon.DefaultSearchOptions()
			sopts.InputScheme = translit.Scheme(opts.inputScheme)
			sopts.OutputScheme = translit.Scheme(opts.outputScheme)
			sopts.IgnoreCase = opts.ignoreCase
			sopts.Limit = limit
			sopts.Offset = opts.offset

			results := c.Search(args[0], nil, &sopts, true)
			if len(results) == 0 {
				fmt.Println("no matches")
				return nil
			}

			dictIDs := make([]string, 0, len(results))
			for id := range results {
				dictIDs = append(dictIDs, id)
			}
			sort.Strings(dictIDs)

			for _, id := range dictIDs {
				fmt.Printf("[%s]\n", id)
				for _, e := range results[id] {
					if opts.showMeaning {
						fmt.Println(e.Describe())
					} else {
						fmt.Println(e)
					}
				}
				fmt.Println()
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&opts.dicts, "dict", nil, "Dictionaries to search (repeatable)")
	cmd.Flags().StringVar(&opts.inputScheme, "input-scheme", "", "Scheme of the pattern")
	cmd.Flags().StringVar(&opts.outputScheme, "output-scheme", "", "Scheme of the results")
	cmd.Flags().BoolVarP(&opts.ignoreCase, "ignore-case", "i", false, "Case-insensitive matching")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum results per dictionary (default from config)")
	cmd.Flags().IntVar(&opts.offset, "offset", 0, "Skip this many leading matches")
	cmd.Flags().BoolVar(&opts.showMeaning, "meaning", false, "Show extracted meanings")
	return cmd
}
