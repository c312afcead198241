package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSetupCmd(opts *rootOptions) *cobra.Command {
	var update bool

	cmd := &cobra.Command{
		Use:   "setup [DICT_ID...]",
		Short: "Download and install dictionaries",
		Long: `Download and install dictionaries from the archive.

Without arguments the configured default dictionaries plus any already
installed ones are set up. Existing local data is reused unless --update
is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			c := newCorpus(cfg)

			ids := args
			if len(ids) == 0 {
				ids = cfg.Dictionaries
			}
			if !c.Setup(cmd.Context(), ids, update) {
				return fmt.Errorf("setup did not complete for all dictionaries")
			}
			for _, id := range c.ActiveIDs() {
				fmt.Println("ready:", id)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&update, "update", false, "Re-download when the archive has newer data")
	return cmd
}
