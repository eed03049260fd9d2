package questiongen

import (
	"fmt"
	"strings"

	"github.com/abhisek/masterypath/internal/bank"
)

const maxTextLen = 500

// StructuralValidator enforces the catalog's shape rules: non-empty text,
// an allowed option count, exactly one correct option, distinct option
// texts and a difficulty in [0, 1].
type StructuralValidator struct {
	MinOptions int
	MaxOptions int
}

func (v *StructuralValidator) Name() string { return "structural" }

func (v *StructuralValidator) Validate(q *bank.Question, _ Input) *ValidationError {
	fail := func(format string, args ...any) *ValidationError {
		return &ValidationError{Validator: v.Name(), Message: fmt.Sprintf(format, args...), Retryable: true}
	}

	text := strings.TrimSpace(q.Text)
	switch {
	case text == "":
		return fail("question text is empty")
	case len(text) > maxTextLen:
		return fail("question text exceeds %d characters", maxTextLen)
	}

	n := len(q.Options)
	if n < v.MinOptions || (v.MaxOptions > 0 && n > v.MaxOptions) {
		return fail("need %d to %d options, got %d", v.MinOptions, v.MaxOptions, n)
	}

	correct := 0
	seen := make(map[string]bool, n)
	for i, o := range q.Options {
		t := normalizeText(o.Text)
		if t == "" {
			return fail("option %d is empty", i+1)
		}
		if seen[t] {
			return fail("duplicate option %q", o.Text)
		}
		seen[t] = true
		if o.IsCorrect {
			correct++
		}
	}
	if correct != 1 {
		return fail("exactly one option must be correct, got %d", correct)
	}

	if d := q.Difficulty; d != nil && (*d < 0 || *d > 1) {
		return fail("difficulty %g outside [0, 1]", *d)
	}
	return nil
}
