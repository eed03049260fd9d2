package bank

import (
	"context"
	"errors"
)

// DefaultThreshold is the mastery threshold used when an objective does not
// declare its own.
const DefaultThreshold = 0.95

// ErrNotFound is returned (wrapped with the id) when a section, objective or
// question does not exist.
var ErrNotFound = errors.New("not found")

// Section is an ordered group of objectives unlocked one after another.
type Section struct {
	ID           string   `json:"id" yaml:"id"`
	Name         string   `json:"name" yaml:"name"`
	Description  string   `json:"description,omitempty" yaml:"description,omitempty"`
	ObjectiveIDs []string `json:"objective_ids" yaml:"objective_ids"`
}

// Objective is a learning objective (category) that owns a pool of
// questions.
type Objective struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Threshold   float64  `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	QuestionIDs []string `json:"question_ids" yaml:"question_ids"`

	// Set by the catalog from section membership.
	SectionID string `json:"-" yaml:"-"`
	Position  int    `json:"-" yaml:"-"`
}

// MasteryThreshold returns the objective's threshold, or fallback when the
// objective leaves it unset.
func (o Objective) MasteryThreshold(fallback float64) float64 {
	if o.Threshold > 0 {
		return o.Threshold
	}
	if fallback > 0 {
		return fallback
	}
	return DefaultThreshold
}

// Question is a multiple-choice item. Exactly one option is correct.
type Question struct {
	ID          string   `json:"id" yaml:"id"`
	ObjectiveID string   `json:"objective_id" yaml:"objective_id"`
	Text        string   `json:"text" yaml:"text"`
	Difficulty  *float64 `json:"difficulty,omitempty" yaml:"difficulty,omitempty"`
	Options     []Option `json:"options" yaml:"options"`
}

// Option is one answer choice.
type Option struct {
	ID        string `json:"id" yaml:"id"`
	Text      string `json:"text" yaml:"text"`
	IsCorrect bool   `json:"is_correct" yaml:"is_correct"`
}

// Option returns the option with the given id.
func (q Question) Option(id string) (Option, bool) {
	for _, o := range q.Options {
		if o.ID == id {
			return o, true
		}
	}
	return Option{}, false
}

// CorrectOption returns the option marked correct.
func (q Question) CorrectOption() (Option, bool) {
	for _, o := range q.Options {
		if o.IsCorrect {
			return o, true
		}
	}
	return Option{}, false
}

// PublicQuestion is the client-facing view of a question. It carries no
// answer key.
type PublicQuestion struct {
	ID      string         `json:"id"`
	Text    string         `json:"text"`
	Options []PublicOption `json:"options"`
}

// PublicOption is the client-facing view of an option.
type PublicOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Public strips the answer key.
func (q Question) Public() PublicQuestion {
	opts := make([]PublicOption, len(q.Options))
	for i, o := range q.Options {
		opts[i] = PublicOption{ID: o.ID, Text: o.Text}
	}
	return PublicQuestion{ID: q.ID, Text: q.Text, Options: opts}
}

// Bank is a read-only provider of catalog content.
type Bank interface {
	Objective(ctx context.Context, id string) (Objective, error)
	Section(ctx context.Context, id string) (Section, error)

	// ListQuestions returns the objective's questions in declared order.
	ListQuestions(ctx context.Context, objectiveID string) ([]Question, error)
}

// Stats is the aggregate answer count for one question across all users.
type Stats struct {
	Attempts int
	Correct  int
}

// EstimateDifficulty turns aggregate answer statistics into a difficulty in
// [0, 1] using Laplace smoothing. A question nobody has answered is 0.5.
func EstimateDifficulty(s Stats) float64 {
	return 1 - float64(s.Correct+1)/float64(s.Attempts+2)
}

// EffectiveDifficulty returns the authored difficulty when set, otherwise
// the estimate from stats.
func EffectiveDifficulty(q Question, s Stats) float64 {
	if q.Difficulty != nil {
		return *q.Difficulty
	}
	return EstimateDifficulty(s)
}
