package selector

import (
	"errors"
	"testing"

	"github.com/abhisek/masterypath/internal/bank"
)

func cand(id string, difficulty float64) Candidate {
	return Candidate{
		Question: bank.Question{
			ID:   id,
			Text: "question " + id,
			Options: []bank.Option{
				{ID: id + "-a", Text: "a", IsCorrect: true},
				{ID: id + "-b", Text: "b"},
			},
		},
		Difficulty: difficulty,
	}
}

func TestSelect_Empty(t *testing.T) {
	_, err := New().Select(nil, Input{})
	if !errors.Is(err, ErrNoQuestions) {
		t.Errorf("err = %v, want ErrNoQuestions", err)
	}
}

func TestSelect_SoleQuestionRepeats(t *testing.T) {
	q, err := New().Select([]Candidate{cand("q1", 0.5)}, Input{LastQuestionID: "q1"})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if q.ID != "q1" {
		t.Errorf("selected %q, want q1", q.ID)
	}
}

func TestSelect_Policy(t *testing.T) {
	tests := []struct {
		name       string
		candidates []Candidate
		in         Input
		want       string
	}{
		{
			name:       "closest difficulty to knowledge",
			candidates: []Candidate{cand("easy", 0.1), cand("mid", 0.5), cand("hard", 0.9)},
			in:         Input{Knowledge: 0.8},
			want:       "hard",
		},
		{
			name:       "low knowledge prefers easy",
			candidates: []Candidate{cand("easy", 0.1), cand("mid", 0.5), cand("hard", 0.9)},
			in:         Input{Knowledge: 0.2},
			want:       "easy",
		},
		{
			name:       "last served excluded even when closest",
			candidates: []Candidate{cand("easy", 0.1), cand("mid", 0.5), cand("hard", 0.9)},
			in:         Input{Knowledge: 0.85, LastQuestionID: "hard"},
			want:       "mid",
		},
		{
			name:       "tie broken by least recently served",
			candidates: []Candidate{cand("a", 0.5), cand("b", 0.5), cand("c", 0.5)},
			in:         Input{Knowledge: 0.5, Served: map[string]int64{"a": 3, "b": 1, "c": 2}},
			want:       "b",
		},
		{
			name:       "never served beats served",
			candidates: []Candidate{cand("a", 0.5), cand("b", 0.5)},
			in:         Input{Knowledge: 0.5, Served: map[string]int64{"a": 1}},
			want:       "b",
		},
		{
			name:       "final tie broken by id",
			candidates: []Candidate{cand("q3", 0.4), cand("q1", 0.6), cand("q2", 0.4)},
			in:         Input{Knowledge: 0.5},
			want:       "q1",
		},
		{
			name:       "distance within tolerance counts as a tie",
			candidates: []Candidate{cand("b", 0.3+1e-12), cand("a", 0.3)},
			in:         Input{Knowledge: 0.3, Served: map[string]int64{"a": 5}},
			want:       "b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := New().Select(tt.candidates, tt.in)
			if err != nil {
				t.Fatalf("select: %v", err)
			}
			if q.ID != tt.want {
				t.Errorf("selected %q, want %q", q.ID, tt.want)
			}
		})
	}
}

func TestSelect_CustomTarget(t *testing.T) {
	s := &Nearest{Target: func(k float64) float64 { return k + 0.4 }}
	q, err := s.Select([]Candidate{cand("easy", 0.2), cand("hard", 0.7)}, Input{Knowledge: 0.3})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if q.ID != "hard" {
		t.Errorf("selected %q, want hard", q.ID)
	}
}

func TestSelect_DoesNotReorderInput(t *testing.T) {
	candidates := []Candidate{cand("z", 0.9), cand("a", 0.1)}
	if _, err := New().Select(candidates, Input{Knowledge: 0.1}); err != nil {
		t.Fatalf("select: %v", err)
	}
	if candidates[0].Question.ID != "z" {
		t.Error("Select reordered its input slice")
	}
}

func TestSelect_Deterministic(t *testing.T) {
	candidates := []Candidate{cand("c", 0.5), cand("a", 0.5), cand("b", 0.5)}
	first, _ := New().Select(candidates, Input{Knowledge: 0.5})
	for i := 0; i < 20; i++ {
		q, _ := New().Select(candidates, Input{Knowledge: 0.5})
		if q.ID != first.ID {
			t.Fatalf("run %d selected %q, first run selected %q", i, q.ID, first.ID)
		}
	}
}

// Distances a-b and b-c each fall inside one rounding step while a-c does
// not, and served order points the other way. Every input order must still
// agree on the winner.
func TestSelect_NearTiesAreTransitive(t *testing.T) {
	a, b, c := cand("a", 0.5), cand("b", 0.5+0.6e-9), cand("c", 0.5+1.2e-9)
	in := Input{Knowledge: 0.5, Served: map[string]int64{"a": 3, "b": 2, "c": 1}}

	orders := [][]Candidate{
		{a, b, c}, {a, c, b}, {b, a, c}, {b, c, a}, {c, a, b}, {c, b, a},
	}
	for _, order := range orders {
		q, err := New().Select(order, in)
		if err != nil {
			t.Fatalf("select: %v", err)
		}
		if q.ID != "a" {
			t.Errorf("order %s%s%s selected %q, want a",
				order[0].Question.ID, order[1].Question.ID, order[2].Question.ID, q.ID)
		}
	}
}
