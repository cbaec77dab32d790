package main

import (
	"fmt"
	"net/http"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/born-ml/benchmarks/benchmark"
)

func newOrderCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Print the models of a suite log in replay order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			l, err := benchmark.LoadSuite(cmd.Context(), benchmark.Options{
				SuiteURL:   a.cfg.SuiteURL,
				SuiteFile:  a.cfg.SuiteFile,
				HTTPClient: http.DefaultClient,
			})
			if err != nil {
				return err
			}
			if err := l.Validate(); err != nil {
				return err
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"#", "MODEL", "FUNCTIONS", "FIRST ENDING MS"})
			table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
			table.SetAlignment(tablewriter.ALIGN_LEFT)
			table.SetHeaderLine(false)
			table.SetBorder(false)
			table.SetNoWhiteSpace(true)
			table.SetTablePadding("    ")
			for i, name := range benchmark.Order(l) {
				fns, _ := l.Functions(name)
				var names []string
				for p := fns.Oldest(); p != nil; p = p.Next() {
					names = append(names, p.Key)
				}
				table.Append([]string{
					fmt.Sprint(i + 1),
					name,
					fmt.Sprint(names),
					fmt.Sprintf("%.0f", fns.Oldest().Value.EndingTimestampMs),
				})
			}
			table.Render()
			return nil
		},
	}
	return cmd
}
