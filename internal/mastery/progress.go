package mastery

import (
	"github.com/abhisek/masterypath/internal/bank"
	"github.com/abhisek/masterypath/internal/knowledge"
)

// ObjectiveProgress is one row of the read-side progression projection.
type ObjectiveProgress struct {
	ObjectiveID  string          `json:"objective_id"`
	Name         string          `json:"name"`
	Position     int             `json:"position"`
	Phase        knowledge.Phase `json:"phase"`
	Display      DisplayState    `json:"display"`
	Unlocked     bool            `json:"unlocked"`
	Knowledge    float64         `json:"knowledge_state"`
	Accuracy     float64         `json:"accuracy"`
	Attempts     int             `json:"attempts"`
	Mastered     bool            `json:"mastered"`
	EverMastered bool            `json:"ever_mastered"`
}

// Predecessor returns the objective that must be mastered before
// objectiveID opens. ok is false for the first objective of a section and
// for objectives not listed in it.
func Predecessor(section bank.Section, objectiveID string) (string, bool) {
	for i, id := range section.ObjectiveIDs {
		if id == objectiveID {
			if i == 0 {
				return "", false
			}
			return section.ObjectiveIDs[i-1], true
		}
	}
	return "", false
}

// IsUnlocked reports whether objectiveID is selectable given which
// objectives have ever been mastered. The first objective of a section is
// always open and each later one opens when its predecessor has been
// mastered at least once.
func IsUnlocked(section bank.Section, objectiveID string, everMastered map[string]bool) bool {
	prev, ok := Predecessor(section, objectiveID)
	if !ok {
		return true
	}
	return everMastered[prev]
}

// Project computes progress for the objectives of one section, in section
// order. states maps objective id to the user's state; a missing entry is
// an unseen objective at the given prior.
func Project(objectives []bank.Objective, states map[string]*knowledge.State, prior float64) []ObjectiveProgress {
	out := make([]ObjectiveProgress, 0, len(objectives))
	prevEverMastered := true

	for i, o := range objectives {
		p := ObjectiveProgress{
			ObjectiveID: o.ID,
			Name:        o.Name,
			Position:    i,
			Phase:       knowledge.PhaseUnseen,
			Unlocked:    i == 0 || prevEverMastered,
			Knowledge:   prior,
		}
		if s, ok := states[o.ID]; ok && s != nil {
			p.Phase = s.Phase
			p.Knowledge = s.CurrentKnowledge
			p.Accuracy = s.Accuracy()
			p.Attempts = s.Attempts
			p.Mastered = s.Mastered
			p.EverMastered = s.EverMastered
		}
		p.Display = ResolveDisplayState(p.Phase, p.Unlocked, p.Mastered)
		out = append(out, p)

		prevEverMastered = p.EverMastered
	}
	return out
}
