package mastery

import (
	"testing"

	"github.com/abhisek/masterypath/internal/bank"
	"github.com/abhisek/masterypath/internal/knowledge"
)

func testSection() bank.Section {
	return bank.Section{ID: "s1", ObjectiveIDs: []string{"o1", "o2", "o3"}}
}

func testObjectives() []bank.Objective {
	return []bank.Objective{
		{ID: "o1", Name: "First"},
		{ID: "o2", Name: "Second"},
		{ID: "o3", Name: "Third"},
	}
}

func stateAt(id string, k float64, phase knowledge.Phase, mastered, ever bool) *knowledge.State {
	s := knowledge.NewState(knowledge.Key{UserID: "u1", ObjectiveID: id}, k, testNow)
	s.Phase = phase
	s.Mastered = mastered
	s.EverMastered = ever
	return s
}

func TestPredecessor(t *testing.T) {
	sec := testSection()

	if _, ok := Predecessor(sec, "o1"); ok {
		t.Error("first objective should have no predecessor")
	}
	if prev, ok := Predecessor(sec, "o3"); !ok || prev != "o2" {
		t.Errorf("Predecessor(o3) = %q, %v; want o2", prev, ok)
	}
	if _, ok := Predecessor(sec, "other"); ok {
		t.Error("objective outside the section should have no predecessor")
	}
}

func TestIsUnlocked(t *testing.T) {
	sec := testSection()

	tests := []struct {
		name     string
		id       string
		mastered map[string]bool
		want     bool
	}{
		{"first always unlocked", "o1", nil, true},
		{"second locked before first mastered", "o2", nil, false},
		{"second unlocked after first mastered", "o2", map[string]bool{"o1": true}, true},
		{"third needs second, not first", "o3", map[string]bool{"o1": true}, false},
		{"outside section", "free", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUnlocked(sec, tt.id, tt.mastered); got != tt.want {
				t.Errorf("IsUnlocked(%s) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}

func TestProject_FreshUser(t *testing.T) {
	rows := Project(testObjectives(), nil, 0.3)
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}

	if !rows[0].Unlocked || rows[0].Display != DisplayAvailable {
		t.Errorf("first row = %+v, want unlocked and available", rows[0])
	}
	for _, r := range rows[1:] {
		if r.Unlocked || r.Display != DisplayLocked {
			t.Errorf("row %s = %+v, want locked", r.ObjectiveID, r)
		}
		if r.Knowledge != 0.3 {
			t.Errorf("row %s knowledge = %v, want prior", r.ObjectiveID, r.Knowledge)
		}
	}
}

func TestProject_StickyUnlockAfterDip(t *testing.T) {
	states := map[string]*knowledge.State{
		// Mastered once, now dipped below threshold.
		"o1": stateAt("o1", 0.4, knowledge.PhaseMastered, false, true),
		"o2": stateAt("o2", 0.5, knowledge.PhaseInProgress, false, false),
	}

	rows := Project(testObjectives(), states, 0.3)

	if rows[0].Display != DisplayReview {
		t.Errorf("o1 display = %s, want review", rows[0].Display)
	}
	if !rows[1].Unlocked {
		t.Error("o2 must stay unlocked after o1 dipped")
	}
	if rows[1].Display != DisplayInProgress {
		t.Errorf("o2 display = %s, want in_progress", rows[1].Display)
	}
	if rows[2].Unlocked {
		t.Error("o3 must stay locked until o2 is mastered")
	}
}

func TestProject_CopiesStateFields(t *testing.T) {
	s := stateAt("o1", 0.97, knowledge.PhaseMastered, true, true)
	s.Attempts = 4
	s.CorrectCount = 3

	rows := Project(testObjectives(), map[string]*knowledge.State{"o1": s}, 0.3)
	r := rows[0]
	if r.Knowledge != 0.97 || r.Attempts != 4 || r.Accuracy != 75 || !r.Mastered || !r.EverMastered {
		t.Errorf("row = %+v", r)
	}
	if r.Display != DisplayMastered {
		t.Errorf("display = %s, want mastered", r.Display)
	}
	if !rows[1].Unlocked || rows[1].Display != DisplayAvailable {
		t.Errorf("o2 = %+v, want available", rows[1])
	}
}

func TestResolveDisplayState(t *testing.T) {
	tests := []struct {
		phase    knowledge.Phase
		unlocked bool
		mastered bool
		want     DisplayState
	}{
		{knowledge.PhaseUnseen, false, false, DisplayLocked},
		{knowledge.PhaseUnseen, true, false, DisplayAvailable},
		{knowledge.PhaseInProgress, true, false, DisplayInProgress},
		{knowledge.PhaseMastered, true, true, DisplayMastered},
		{knowledge.PhaseMastered, true, false, DisplayReview},
		{knowledge.Phase("bogus"), true, false, DisplayLocked},
	}
	for _, tt := range tests {
		if got := ResolveDisplayState(tt.phase, tt.unlocked, tt.mastered); got != tt.want {
			t.Errorf("ResolveDisplayState(%s, %v, %v) = %s, want %s", tt.phase, tt.unlocked, tt.mastered, got, tt.want)
		}
	}
}
