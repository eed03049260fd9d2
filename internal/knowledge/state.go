package knowledge

import (
	"fmt"
	"time"

	"github.com/abhisek/masterypath/internal/bkt"
)

// DefaultPrior is the initial knowledge estimate for a new pair.
const DefaultPrior = 0.3

// Key identifies the unit of mutual exclusion: one user on one objective.
type Key struct {
	UserID      string
	ObjectiveID string
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s", k.UserID, k.ObjectiveID)
}

// Phase is a pair's position in the Unseen -> InProgress -> Mastered
// lifecycle. Mastered is only left through an administrative reset.
type Phase string

const (
	PhaseUnseen     Phase = "unseen"
	PhaseInProgress Phase = "in_progress"
	PhaseMastered   Phase = "mastered"
)

// State is the persisted knowledge record for one (user, objective) pair.
type State struct {
	Key

	CurrentKnowledge   float64
	Attempts           int
	CorrectCount       int
	ConsecutiveCorrect int

	// Mastered is the momentary display flag. EverMastered never goes back
	// to false and drives unlocking.
	Mastered     bool
	EverMastered bool
	MasteredAt   *time.Time
	Phase        Phase

	LastQuestionID string
	AwaitingAnswer bool

	// ServeSeq counts serves. Served maps question id to the ServeSeq at
	// which it was last served.
	ServeSeq int64
	Served   map[string]int64

	// Version increases on every committed write.
	Version int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewState returns the lazily created record for key at the given prior.
func NewState(key Key, prior float64, now time.Time) *State {
	return &State{
		Key:              key,
		CurrentKnowledge: prior,
		Phase:            PhaseUnseen,
		Served:           make(map[string]int64),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// Clone returns a deep copy.
func (s *State) Clone() *State {
	c := *s
	c.Served = make(map[string]int64, len(s.Served))
	for k, v := range s.Served {
		c.Served[k] = v
	}
	if s.MasteredAt != nil {
		t := *s.MasteredAt
		c.MasteredAt = &t
	}
	return &c
}

// Accuracy returns the percentage of correct answers, 0 before any attempt.
func (s *State) Accuracy() float64 {
	if s.Attempts == 0 {
		return 0
	}
	return float64(s.CorrectCount) / float64(s.Attempts) * 100
}

// MarkServed records that questionID was handed to the learner.
func (s *State) MarkServed(questionID string) {
	s.ServeSeq++
	if s.Served == nil {
		s.Served = make(map[string]int64)
	}
	s.Served[questionID] = s.ServeSeq
	s.LastQuestionID = questionID
	s.AwaitingAnswer = true
}

// ApplyAnswer folds one scored answer into the counters.
func (s *State) ApplyAnswer(correct bool, posterior float64) {
	s.Attempts++
	if correct {
		s.CorrectCount++
		s.ConsecutiveCorrect++
	} else {
		s.ConsecutiveCorrect = 0
	}
	s.CurrentKnowledge = posterior
	s.AwaitingAnswer = false
}

// AnswerRecord is an immutable history entry. Seq is the 1-based
// submission order within the pair.
type AnswerRecord struct {
	ID             string
	UserID         string
	ObjectiveID    string
	Seq            int
	AnsweredAt     time.Time
	QuestionID     string
	OptionID       string
	Correct        bool
	KnowledgeAfter float64
	Difficulty     float64
}

// Fold replays records through model starting at prior and returns the final
// knowledge estimate.
func Fold(model bkt.Model, prior float64, records []AnswerRecord) float64 {
	p := prior
	for _, r := range records {
		p = model.Update(p, r.Correct, r.Difficulty)
	}
	return p
}
