package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/indology/gocdsl/pkg/translit"
)

func newDumpCmd(root *rootOptions) *cobra.Command {
	var (
		output       string
		outputScheme string
	)

	cmd := &cobra.Command{
		Use:   "dump <DICT_ID>",
		Short: "Export a whole dictionary as JSON",
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

			snaps, err := d.Dump(output, translit.Scheme(outputScheme))
			if err != nil {
				return err
			}
			if output != "" {
				fmt.Printf("wrote %d entries to %s\n", len(snaps), output)
			} else {
				fmt.Printf("%d entries\n", len(snaps))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the JSON dump to this file")
	cmd.Flags().StringVar(&outputScheme, "output-scheme", "", "Scheme of the dumped entries")
	return cmd
}
