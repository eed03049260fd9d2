package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/masterypath/internal/bank"
	"github.com/abhisek/masterypath/internal/engine"
	"github.com/abhisek/masterypath/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write a learner's progress and answer history to a spreadsheet",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		user, _ := cmd.Flags().GetString("user")
		out, _ := cmd.Flags().GetString("out")
		sections, _ := cmd.Flags().GetStringSlice("section")

		return withEngine(cmd, func(eng *engine.Engine, cat *bank.Catalog) error {
			f, err := report.Build(cmd.Context(), eng, cat, user, report.Options{
				SectionIDs: sections,
				Params:     cfg.BKT.Params(),
			})
			if err != nil {
				return err
			}
			defer f.Close()
			if err := f.SaveAs(out); err != nil {
				return fmt.Errorf("save report: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", out)
			return nil
		})
	},
}

func init() {
	reportCmd.Flags().StringP("out", "o", "report.xlsx", "output .xlsx path")
	reportCmd.Flags().StringSlice("section", nil, "limit to these section IDs (default all)")
}
