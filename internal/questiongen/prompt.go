package questiongen

import (
	"fmt"
	"strings"
)

const systemPrompt = `You write multiple-choice practice questions for an adaptive learning system.

Rules:
- Write one self-contained question that tests the given learning objective.
- Give between 2 and 6 options. Exactly one option is correct.
- Distractors must be plausible and reflect common misconceptions. No "all of the above".
- Option texts must all differ.
- Rate difficulty from 0 (almost everyone answers correctly) to 1 (almost everyone fails).
- When a target difficulty is given, aim for it.
- Do not repeat or paraphrase any question from the "existing questions" list.`

func buildUserMessage(in Input, cfg Config, rejected []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Objective: %s\n", in.Objective.Name)
	if in.Objective.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", in.Objective.Description)
	}
	if in.Difficulty != nil {
		fmt.Fprintf(&b, "Target difficulty: %.2f\n", *in.Difficulty)
	}

	b.WriteString("\nExisting questions:\n")
	b.WriteString(numbered(in.Existing, cfg.MaxExisting))

	if len(rejected) > 0 {
		b.WriteString("\n\nYour previous drafts were rejected:\n")
		b.WriteString(numbered(rejected, 0))
	}
	return b.String()
}

// numbered renders the last max items as a numbered list, or "None".
func numbered(items []string, max int) string {
	if len(items) == 0 {
		return "None"
	}
	if max > 0 && len(items) > max {
		items = items[len(items)-max:]
	}
	var b strings.Builder
	for i, s := range items {
		fmt.Fprintf(&b, "%d. %s\n", i+1, s)
	}
	return strings.TrimRight(b.String(), "\n")
}
