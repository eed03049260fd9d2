package mastery

import "github.com/abhisek/masterypath/internal/knowledge"

// DisplayState is the learner-facing status of an objective.
type DisplayState string

const (
	DisplayLocked     DisplayState = "locked"
	DisplayAvailable  DisplayState = "available"
	DisplayInProgress DisplayState = "in_progress"
	DisplayMastered   DisplayState = "mastered"

	// DisplayReview is a mastered objective whose current estimate has
	// dipped under the threshold. Downstream objectives stay open.
	DisplayReview DisplayState = "review"
)

// ResolveDisplayState maps a phase, unlock status and the momentary
// mastered flag into the state shown to the learner.
func ResolveDisplayState(phase knowledge.Phase, unlocked, mastered bool) DisplayState {
	switch phase {
	case knowledge.PhaseUnseen:
		if unlocked {
			return DisplayAvailable
		}
		return DisplayLocked
	case knowledge.PhaseInProgress:
		return DisplayInProgress
	case knowledge.PhaseMastered:
		if mastered {
			return DisplayMastered
		}
		return DisplayReview
	default:
		return DisplayLocked
	}
}
