package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/masterypath/internal/llm"
	"github.com/abhisek/masterypath/internal/questiongen"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Draft new questions for an objective with an LLM",
	Long: `Draft new multiple-choice questions for an objective and add them to the
published catalog. The provider is configured with MASTERYPATH_LLM_* or a
vendor API key in the environment.`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().String("objective", "", "objective ID to generate questions for (required)")
	generateCmd.Flags().IntP("count", "n", 5, "number of questions to generate")
	generateCmd.Flags().Float64("difficulty", -1, "target difficulty in [0, 1] (default: model picks)")
	generateCmd.Flags().Bool("dry-run", false, "print the questions without publishing them")
	_ = generateCmd.MarkFlagRequired("objective")
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	objectiveID, _ := cmd.Flags().GetString("objective")
	count, _ := cmd.Flags().GetInt("count")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	if count < 1 {
		return errors.New("--count must be at least 1")
	}

	var in questiongen.Input
	if cmd.Flags().Changed("difficulty") {
		d, _ := cmd.Flags().GetFloat64("difficulty")
		if d < 0 || d > 1 {
			return fmt.Errorf("--difficulty %g outside [0, 1]", d)
		}
		in.Difficulty = &d
	}

	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()
	cat, err := storedCatalog(ctx, st)
	if err != nil {
		return err
	}

	if in.Objective, err = cat.Objective(ctx, objectiveID); err != nil {
		return err
	}
	existing, err := cat.ListQuestions(ctx, objectiveID)
	if err != nil {
		return err
	}
	for _, q := range existing {
		in.Existing = append(in.Existing, q.Text)
	}

	provider, err := llm.NewProviderFromEnv(ctx, logger)
	if err != nil {
		return err
	}
	gen := questiongen.New(provider, questiongen.DefaultConfig())

	qs, genErr := questiongen.GenerateN(ctx, gen, in, count)
	out := cmd.OutOrStdout()
	for i, q := range qs {
		fmt.Fprintf(out, "%d. %s\n", i+1, q.Text)
		for _, opt := range q.Options {
			mark := " "
			if opt.IsCorrect {
				mark = "*"
			}
			fmt.Fprintf(out, "   %s %s\n", mark, opt.Text)
		}
	}
	if genErr != nil {
		logger.Warn("generation stopped early", "objective", objectiveID, "generated", len(qs), "error", genErr)
	}
	if len(qs) == 0 {
		return genErr
	}
	if dryRun {
		fmt.Fprintf(out, "Dry run: %d questions not published\n", len(qs))
		return genErr
	}

	next, err := cat.WithQuestions(qs...)
	if err != nil {
		return fmt.Errorf("add questions: %w", err)
	}
	if err := st.Catalog().Replace(ctx, next); err != nil {
		return fmt.Errorf("publish catalog: %w", err)
	}
	fmt.Fprintf(out, "Published %d questions to %s\n", len(qs), objectiveID)
	return genErr
}
