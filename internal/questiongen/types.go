// Package questiongen drafts multiple-choice questions for an objective
// with an LLM and checks them before they reach the catalog.
package questiongen

import (
	"context"

	"github.com/abhisek/masterypath/internal/bank"
)

// Generator drafts one question.
type Generator interface {
	// Generate returns a question that passed every configured validator.
	Generate(ctx context.Context, in Input) (*bank.Question, error)
}

// Input is the context a question is generated for.
type Input struct {
	Objective bank.Objective

	// Existing holds the text of questions already in the objective's pool.
	// The prompt lists the most recent ones and DuplicateValidator rejects
	// near-copies of any of them.
	Existing []string

	// Difficulty is the target difficulty in [0, 1]. Nil lets the model pick.
	Difficulty *float64
}
