package questiongen

import "github.com/google/uuid"

// Config controls an LLMGenerator.
type Config struct {
	// Validators run in order. The first failure rejects the draft.
	Validators []Validator

	MaxTokens   int
	Temperature float64

	// MaxExisting caps how many existing questions are quoted in the prompt.
	MaxExisting int

	// MaxRetries is how many extra drafts are requested after a retryable
	// validation failure.
	MaxRetries int

	// NewID mints question and option ids.
	NewID func() string
}

// DefaultConfig returns the standard validator chain and limits.
func DefaultConfig() Config {
	return Config{
		Validators: []Validator{
			&StructuralValidator{MinOptions: 2, MaxOptions: 6},
			&DuplicateValidator{},
		},
		MaxTokens:   768,
		Temperature: 0.7,
		MaxExisting: 20,
		MaxRetries:  2,
		NewID:       uuid.NewString,
	}
}
