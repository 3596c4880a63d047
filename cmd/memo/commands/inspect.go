package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func (c *CLI) newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <node>",
		Short: "Show the weak fingerprint and stored selectors of a node and its dependencies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			nodes, err := c.app.Inspect(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "NODE\tSTATUS\tWEAK FINGERPRINT\tSELECTORS")
			for _, n := range nodes {
				weak := "-"
				if n.Weak != nil {
					weak = n.Weak.Hex()
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", n.ID, n.Status, weak, len(n.Selectors))
			}
			return w.Flush()
		},
	}
}
