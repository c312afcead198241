package main

import (
	"fmt"

	"github.com/rodaine/table"
	"github.com/spf13/cobra"

	"github.com/indology/gocdsl/pkg/translit"
)

func newStatsCmd(root *rootOptions) *cobra.Command {
	var (
		top          int
		outputScheme string
	)

	cmd := &cobra.Command{
		Use:   "stats <DICT_ID>",
		Short: "Show lexicon statistics for a dictionary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			c := newCorpus(cfg)

			if !c.Setup(cmd.Context(), []string{args[0]}, false) {
				return fmt.Errorf("dictionary %s could not be set up", args[0])
			}
			d, ok := c.Get(args[0])
			if !ok {
				return fmt.Errorf("dictionary %s is not available", args[0])
			}

			st, err := d.Stats(top, translit.Scheme(outputScheme))
			if err != nil {
				return err
			}

			fmt.Printf("%s: %d entries, %d distinct keys\n\n", d.ID, st.Total, st.Distinct)
			tbl := table.New("Key", "Entries")
			for _, kc := range st.Top {
				tbl.AddRow(kc.Key, kc.Count)
			}
			tbl.Print()
			return nil
		},
	}

	cmd.Flags().IntVar(&top, "top", 10, "Number of most frequent keys to show")
	cmd.Flags().StringVar(&outputScheme, "output-scheme", "", "Scheme of the keys")
	return cmd
}
