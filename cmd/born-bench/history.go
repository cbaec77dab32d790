package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/born-ml/benchmarks/benchmark"
)

func newHistoryCmd(a *app) *cobra.Command {
	var filter benchmark.RunFilter
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored benchmark runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := benchmark.OpenStore(cmd.Context(), a.cfg.Store)
			if err != nil {
				return err
			}
			defer st.Close()

			runs, err := st.ListRuns(cmd.Context(), filter)
			if err != nil {
				return err
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"ID", "MODEL", "FUNCTION", "BATCH", "AVERAGE MS", "REFERENCE MS", "FINISHED"})
			table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
			table.SetAlignment(tablewriter.ALIGN_LEFT)
			table.SetHeaderLine(false)
			table.SetBorder(false)
			table.SetNoWhiteSpace(true)
			table.SetTablePadding("    ")
			for _, r := range runs {
				ref := "-"
				if r.ReferenceAverageTimeMs > 0 {
					ref = fmt.Sprintf("%.3f", r.ReferenceAverageTimeMs)
				}
				table.Append([]string{
					shortID(r.ID),
					r.ModelName,
					r.FunctionName,
					fmt.Sprint(r.BatchSize),
					fmt.Sprintf("%.3f", r.AverageTimeMs),
					ref,
					time.UnixMilli(r.EndingTimestampMs).Format(time.DateTime),
				})
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&filter.ModelName, "model", "", "only runs of this model")
	cmd.Flags().StringVar(&filter.FunctionName, "function", "", "only runs of this function")
	cmd.Flags().IntVarP(&filter.Limit, "limit", "n", 20, "maximum number of runs (0 = all)")
	return cmd
}

func shortID(id string) string {
	id = strings.ReplaceAll(id, "-", "")
	if len(id) > 12 {
		return id[len(id)-12:]
	}
	return id
}
