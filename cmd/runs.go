package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent pipeline runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		e, err := initEnv(ctx, false)
		if err != nil {
			return err
		}
		defer e.Close()

		runs, err := e.Store.ListRuns(ctx, runsLimit)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTAGE\tLOCATION\tDISCOVERED\tDELIVERED\tCREATED")
		for _, r := range runs {
			discovered, delivered := "-", "-"
			if r.Stats != nil {
				discovered = fmt.Sprintf("%d", r.Stats.Discovered)
				delivered = fmt.Sprintf("%d", r.Stats.Delivered)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				r.ID, r.Stage, r.Plan.Location, discovered, delivered,
				r.CreatedAt.Format("2006-01-02 15:04"),
			)
		}
		return w.Flush()
	},
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "max runs to list")
	rootCmd.AddCommand(runsCmd)
}
