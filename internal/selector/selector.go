// Package selector chooses the next question to serve for a learner.
//
// The default policy is nearest-difficulty. It skips the question served
// last unless it is the only one. It prefers the difficulty closest to a
// target derived from the learner's knowledge. Ties are broken first by
// least recently served, then by question id, so the choice is fully
// deterministic for a given input.
package selector

import (
	"errors"
	"math"
	"sort"

	"github.com/abhisek/masterypath/internal/bank"
)

// ErrNoQuestions is returned when there is nothing to select from.
var ErrNoQuestions = errors.New("no questions available")

// tieResolution is the step distances are rounded to before comparing, so
// near-equal distances tie without breaking transitivity.
const tieResolution = 1e-9

// Candidate pairs a question with its effective difficulty.
type Candidate struct {
	Question   bank.Question
	Difficulty float64
}

// Input is the learner-side context for one selection.
type Input struct {
	LastQuestionID string
	Knowledge      float64

	// Served maps question id to the serve sequence at which it was last
	// served. Missing means never served.
	Served map[string]int64
}

// Selector picks one question from candidates.
type Selector interface {
	Select(candidates []Candidate, in Input) (bank.Question, error)
}

// TargetFunc maps a knowledge estimate to the preferred difficulty.
type TargetFunc func(knowledge float64) float64

// Identity is the default target: difficulty equal to knowledge.
func Identity(knowledge float64) float64 { return knowledge }

// Nearest selects the candidate whose difficulty is closest to Target.
type Nearest struct {
	Target TargetFunc
}

// New returns the default selector.
func New() *Nearest {
	return &Nearest{Target: Identity}
}

func (n *Nearest) Select(candidates []Candidate, in Input) (bank.Question, error) {
	if len(candidates) == 0 {
		return bank.Question{}, ErrNoQuestions
	}
	if len(candidates) == 1 {
		return candidates[0].Question, nil
	}

	pool := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Question.ID == in.LastQuestionID {
			continue
		}
		pool = append(pool, c)
	}
	// Only reachable when the bank holds duplicates of the last question.
	if len(pool) == 0 {
		pool = append(pool, candidates...)
	}

	target := in.Knowledge
	if n.Target != nil {
		target = n.Target(in.Knowledge)
	}

	steps := make(map[string]int64, len(pool))
	for _, c := range pool {
		steps[c.Question.ID] = int64(math.Round(math.Abs(c.Difficulty-target) / tieResolution))
	}
	sort.SliceStable(pool, func(i, j int) bool {
		qi, qj := pool[i].Question.ID, pool[j].Question.ID
		if steps[qi] != steps[qj] {
			return steps[qi] < steps[qj]
		}
		if si, sj := in.Served[qi], in.Served[qj]; si != sj {
			return si < sj
		}
		return qi < qj
	})

	return pool[0].Question, nil
}
