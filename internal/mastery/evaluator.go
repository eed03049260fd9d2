package mastery

import (
	"time"

	"github.com/abhisek/masterypath/internal/bank"
	"github.com/abhisek/masterypath/internal/knowledge"
)

// Evaluator decides mastery after each knowledge update.
type Evaluator struct {
	// DefaultThreshold applies when Evaluate is given a threshold <= 0.
	DefaultThreshold float64
}

// NewEvaluator returns an evaluator with the given default threshold.
func NewEvaluator(threshold float64) *Evaluator {
	if threshold <= 0 {
		threshold = bank.DefaultThreshold
	}
	return &Evaluator{DefaultThreshold: threshold}
}

// Result is the outcome of one evaluation.
type Result struct {
	// Mastered is the momentary flag: knowledge at or above threshold.
	Mastered bool

	// UnlockedNext reports whether the next objective in the section is
	// open. It follows EverMastered and so never reverts.
	UnlockedNext bool

	// Transition is non-nil when the phase changed.
	Transition *StateTransition
}

// Evaluate updates Mastered, EverMastered, MasteredAt and Phase on s after
// its knowledge estimate changed.
func (e *Evaluator) Evaluate(s *knowledge.State, threshold float64, now time.Time) Result {
	if threshold <= 0 {
		threshold = e.DefaultThreshold
	}
	from := s.Phase

	s.Mastered = s.CurrentKnowledge >= threshold
	if s.Mastered && !s.EverMastered {
		s.EverMastered = true
		t := now
		s.MasteredAt = &t
	}

	switch {
	case s.EverMastered:
		s.Phase = knowledge.PhaseMastered
	case s.Phase == knowledge.PhaseUnseen:
		s.Phase = knowledge.PhaseInProgress
	}

	res := Result{
		Mastered:     s.Mastered,
		UnlockedNext: s.EverMastered,
	}
	if s.Phase != from {
		res.Transition = transition(s, from, s.Phase)
	}
	return res
}

// Begin moves a pair out of Unseen on its first serve. It returns nil when
// the pair was already started.
func Begin(s *knowledge.State) *StateTransition {
	if s.Phase != knowledge.PhaseUnseen {
		return nil
	}
	s.Phase = knowledge.PhaseInProgress
	return transition(s, knowledge.PhaseUnseen, knowledge.PhaseInProgress)
}

func transition(s *knowledge.State, from, to knowledge.Phase) *StateTransition {
	trigger := TriggerFirstServe
	if to == knowledge.PhaseMastered {
		trigger = TriggerThresholdReached
	}
	return &StateTransition{
		UserID:      s.UserID,
		ObjectiveID: s.ObjectiveID,
		From:        from,
		To:          to,
		Trigger:     trigger,
	}
}
