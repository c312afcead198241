package main

import (
	"fmt"

	"github.com/rodaine/table"
	"github.com/spf13/cobra"
)

func newListCmd(opts *rootOptions) *cobra.Command {
	var installed bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List dictionaries available from the archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			c := newCorpus(cfg)

			if installed {
				for _, id := range c.InstalledIDs() {
					fmt.Println(id)
				}
				return nil
			}

			if err := c.LoadCatalog(cmd.Context()); err != nil {
				return err
			}

			tbl := table.New("ID", "Date", "Name")
			for _, id := range c.AvailableIDs() {
				d, _ := c.Available(id)
				tbl.AddRow(d.ID, d.Date, d.Name)
			}
			tbl.Print()
			return nil
		},
	}

	cmd.Flags().BoolVar(&installed, "installed", false, "List locally installed dictionaries only")
	return cmd
}
