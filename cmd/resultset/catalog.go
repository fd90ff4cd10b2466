package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/resultset/internal/scaffold"
)

func newCatalogCmd() *cobra.Command {
	var size int

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List the scaffold queries and their columns",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, q := range scaffold.Queries() {
				fmt.Fprintf(w, "%s\n  %s\n", q.Title, q.SQL)
				for _, c := range q.Columns {
					bound := "full range"
					if c.Bound != nil {
						bound = fmt.Sprintf("[-%d, %d]", c.Bound(size), c.Bound(size))
					}
					fmt.Fprintf(w, "    %s\t%s\t%s\n", c.Name, c.Type, bound)
				}
				fmt.Fprintln(w)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&size, "size", 1000, "Table size used to show column bounds")
	return cmd
}
