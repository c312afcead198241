package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/indology/gocdsl/pkg/translit"
)

func newEntryCmd(root *rootOptions) *cobra.Command {
	var outputScheme string

	cmd := &cobra.Command{
		Use:   "entry <DICT_ID> <ENTRY_ID>",
		Short: "Show one dictionary entry by ID",
		Args:  cobra.ExactArgs(2),
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

			e, err := d.Entry(args[1], translit.Scheme(outputScheme))
			if err != nil {
				return err
			}
			if e == nil {
				return fmt.Errorf("no entry %s in %s", args[1], d.ID)
			}
			fmt.Println(e.Describe())
			return nil
		},
	}

	cmd.Flags().StringVar(&outputScheme, "output-scheme", "", "Scheme of the output")
	return cmd
}
