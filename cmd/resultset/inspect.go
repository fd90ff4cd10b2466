package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/resultset/internal/tableio"
	"github.com/ajitpratap0/resultset/pkg/arena"
	jsonpool "github.com/ajitpratap0/resultset/pkg/json"
	"github.com/ajitpratap0/resultset/pkg/scalar"
	"github.com/ajitpratap0/resultset/pkg/table"
)

func newInspectCmd(a *app) *cobra.Command {
	var in string
	var dump bool

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Summarize the tables in an Arrow or Parquet file",
		Long: `Read an Arrow IPC stream or Parquet file and print the schema and row
count of every table in it. A compression suffix such as .zst or .gz is
recognized and undone first.

Example:
  resultset inspect --in t.arrows.zst --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return arena.With(func(ar *arena.Arena) error {
				tables, err := tableio.ReadFile(in, a.cfg.Input, ar, scalar.FromBytes)
				if err != nil {
					return err
				}
				return printTables(cmd.OutOrStdout(), in, tables, dump)
			})
		},
	}

	cmd.Flags().StringVarP(&in, "in", "i", "", "Input file (required)")
	cmd.Flags().BoolVar(&dump, "json", false, "Also print each table as JSON")
	cmd.Flags().Int64("max-decompressed-size", 1<<30, "Abort when compressed input expands past this many bytes (0 = unlimited)")
	bindKey(cmd.Flags(), "max-decompressed-size", "input.max_decompressed_size")
	_ = cmd.MarkFlagRequired("in")
	return cmd
}

func printTables(w io.Writer, name string, tables []*table.Table[S], dump bool) error {
	var rows int
	for _, tbl := range tables {
		rows += tbl.NumRows()
	}
	fmt.Fprintf(w, "%s: %d table(s), %d row(s)\n", name, len(tables), rows)

	for i, tbl := range tables {
		fmt.Fprintf(w, "\n#%d %s\n", i, tbl)
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, f := range tbl.Schema() {
			fmt.Fprintf(tw, "  %s\t%s\n", f.Name, f.Type)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		if dump {
			data, err := jsonpool.MarshalTable(tbl, jsonpool.LayoutColumns)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s\n", data)
		}
	}
	return nil
}
