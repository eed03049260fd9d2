package questiongen

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/abhisek/masterypath/internal/bank"
)

var folder = cases.Fold()

// normalizeText maps text to a comparison key: NFKC, case folded, with
// whitespace runs collapsed and trailing punctuation dropped.
func normalizeText(s string) string {
	s = folder.String(norm.NFKC.String(s))
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimRight(s, " ?.!:")
}

// DuplicateValidator rejects a draft whose text matches an existing
// question after normalization.
type DuplicateValidator struct{}

func (v *DuplicateValidator) Name() string { return "duplicate" }

func (v *DuplicateValidator) Validate(q *bank.Question, in Input) *ValidationError {
	key := normalizeText(q.Text)
	for _, existing := range in.Existing {
		if normalizeText(existing) == key {
			return &ValidationError{
				Validator: v.Name(),
				Message:   "question duplicates existing question: " + existing,
				Retryable: true,
			}
		}
	}
	return nil
}
