package questiongen

import (
	"fmt"

	"github.com/abhisek/masterypath/internal/bank"
)

// Validator checks a drafted question. Implementations must be safe for
// concurrent use.
type Validator interface {
	Name() string
	Validate(q *bank.Question, in Input) *ValidationError
}

// ValidationError explains why a draft was rejected.
type ValidationError struct {
	Validator string
	Message   string

	// Retryable is set when asking again is likely to produce a valid draft.
	Retryable bool
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validator %q: %s", e.Validator, e.Message)
}
