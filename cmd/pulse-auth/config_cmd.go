package main

import (
	"fmt"

	"github.com/goliatone/go-print"
	"github.com/spf13/cobra"
)

func newConfigCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the resolved configuration",
	}

	var reveal bool
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the configuration after defaults, file and environment are applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// fields tagged with mask are blanked unless --reveal is set
			out := print.MaybeSecureJSON(c.cfg)
			if reveal {
				out = print.MaybePrettyJSON(c.cfg)
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), out)
			return err
		},
	}
	show.Flags().BoolVar(&reveal, "reveal", false, "print masked values such as the database DSN in clear")

	cmd.AddCommand(show)
	return cmd
}
