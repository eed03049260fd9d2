package mastery

import "github.com/abhisek/masterypath/internal/knowledge"

// Transition triggers.
const (
	TriggerFirstServe       = "first-serve"
	TriggerThresholdReached = "threshold-reached"
)

// StateTransition records a lifecycle change for logging and display.
type StateTransition struct {
	UserID      string
	ObjectiveID string
	From        knowledge.Phase
	To          knowledge.Phase
	Trigger     string
}
