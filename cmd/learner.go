package cmd

import (
	"fmt"
	"math"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/masterypath/internal/bank"
	"github.com/abhisek/masterypath/internal/cache"
	"github.com/abhisek/masterypath/internal/engine"
	"github.com/abhisek/masterypath/internal/knowledge"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show a learner's answers for one objective",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		user, _ := cmd.Flags().GetString("user")
		objectiveID, _ := cmd.Flags().GetString("objective")

		return withEngine(cmd, func(eng *engine.Engine, cat *bank.Catalog) error {
			ctx, out := cmd.Context(), cmd.OutOrStdout()
			records, err := eng.History(ctx, user, objectiveID)
			if err != nil {
				return err
			}
			obj, err := cat.Objective(ctx, objectiveID)
			if err != nil {
				return err
			}
			if s, ok := cat.SectionOf(objectiveID); ok {
				fmt.Fprintf(out, "%s (%s)\n", obj.Name, s.Name)
			} else {
				fmt.Fprintln(out, obj.Name)
			}
			if len(records) == 0 {
				fmt.Fprintln(out, "No answers yet.")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "#\tANSWERED\tRESULT\tKNOWLEDGE\tQUESTION")
			for _, r := range records {
				text := r.QuestionID
				if q, ok := cat.Question(r.QuestionID); ok {
					text = truncate(q.Text, 60)
				}
				result := "wrong"
				if r.Correct {
					result = "correct"
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%.3f\t%s\n",
					r.Seq, r.AnsweredAt.Local().Format(time.DateTime), result, r.KnowledgeAfter, text)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			return checkReplay(cmd, eng, user, objectiveID, records)
		})
	},
}

var progressCmd = &cobra.Command{
	Use:   "progress",
	Short: "Show a learner's progress through a section",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		user, _ := cmd.Flags().GetString("user")
		sectionID, _ := cmd.Flags().GetString("section")

		return withEngine(cmd, func(eng *engine.Engine, _ *bank.Catalog) error {
			objectives, err := eng.Progress(cmd.Context(), user, sectionID)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "#\tOBJECTIVE\tSTATUS\tKNOWLEDGE\tACCURACY\tATTEMPTS")
			for _, p := range objectives {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%.3f\t%.1f%%\t%d\n",
					p.Position+1, p.Name, p.Display, p.Knowledge, p.Accuracy, p.Attempts)
			}
			return tw.Flush()
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{historyCmd, progressCmd, reportCmd} {
		c.Flags().StringP("user", "u", "", "learner ID (required)")
		_ = c.MarkFlagRequired("user")
	}
	historyCmd.Flags().String("objective", "", "objective ID (required)")
	_ = historyCmd.MarkFlagRequired("objective")
	progressCmd.Flags().String("section", "", "section ID (required)")
	_ = progressCmd.MarkFlagRequired("section")
}

// withEngine opens the store and runs fn against an engine over the
// published catalog. Read-only commands skip the shared cache.
func withEngine(cmd *cobra.Command, fn func(*engine.Engine, *bank.Catalog) error) error {
	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()
	cat, err := storedCatalog(cmd.Context(), st)
	if err != nil {
		return err
	}
	eng, err := newEngine(cat, st.Knowledge(), cache.Nop{})
	if err != nil {
		return err
	}
	return fn(eng, cat)
}

// checkReplay folds the history through the configured model and warns
// when the stored estimate disagrees, which happens after the BKT
// parameters change.
func checkReplay(cmd *cobra.Command, eng *engine.Engine, user, objectiveID string, records []knowledge.AnswerRecord) error {
	model, err := newModel()
	if err != nil {
		return err
	}
	state, err := eng.State(cmd.Context(), user, objectiveID)
	if err != nil {
		return err
	}
	replayed := knowledge.Fold(model, cfg.Engine.Prior, records)
	fmt.Fprintf(cmd.OutOrStdout(), "Knowledge %.3f after %d answers (replayed %.3f)\n",
		state.CurrentKnowledge, len(records), replayed)
	if math.Abs(replayed-state.CurrentKnowledge) > 1e-6 {
		logger.Warn("stored knowledge differs from replayed history",
			"user", user,
			"objective", objectiveID,
			"stored", state.CurrentKnowledge,
			"replayed", replayed,
		)
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
