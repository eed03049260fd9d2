package questiongen

import (
	"strings"
	"testing"

	"github.com/abhisek/masterypath/internal/bank"
)

func validQuestion() *bank.Question {
	d := 0.3
	return &bank.Question{
		ID:         "q",
		Text:       "What is 7 x 8?",
		Difficulty: &d,
		Options: []bank.Option{
			{ID: "a", Text: "54"},
			{ID: "b", Text: "56", IsCorrect: true},
			{ID: "c", Text: "64"},
		},
	}
}

func TestStructuralValidator(t *testing.T) {
	v := &StructuralValidator{MinOptions: 2, MaxOptions: 6}
	bad := 1.5

	tests := []struct {
		name   string
		mutate func(q *bank.Question)
		want   string
	}{
		{"valid", func(*bank.Question) {}, ""},
		{"no difficulty", func(q *bank.Question) { q.Difficulty = nil }, ""},
		{"empty text", func(q *bank.Question) { q.Text = "  " }, "text is empty"},
		{"long text", func(q *bank.Question) { q.Text = strings.Repeat("x", 501) }, "exceeds"},
		{"one option", func(q *bank.Question) { q.Options = q.Options[1:2] }, "got 1"},
		{"seven options", func(q *bank.Question) {
			for i := 0; i < 4; i++ {
				q.Options = append(q.Options, bank.Option{ID: string(rune('d' + i)), Text: strings.Repeat("z", i+1)})
			}
		}, "got 7"},
		{"no correct", func(q *bank.Question) { q.Options[1].IsCorrect = false }, "got 0"},
		{"two correct", func(q *bank.Question) { q.Options[0].IsCorrect = true }, "got 2"},
		{"duplicate text", func(q *bank.Question) { q.Options[2].Text = " 54 " }, "duplicate option"},
		{"folded duplicate", func(q *bank.Question) {
			q.Options[0].Text = "Straße"
			q.Options[2].Text = "STRASSE"
		}, "duplicate option"},
		{"empty option", func(q *bank.Question) { q.Options[0].Text = "" }, "option 1 is empty"},
		{"difficulty range", func(q *bank.Question) { q.Difficulty = &bad }, "outside [0, 1]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := validQuestion()
			tt.mutate(q)
			err := v.Validate(q, Input{})
			if tt.want == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Message, tt.want) {
				t.Fatalf("err = %v, want %q", err, tt.want)
			}
			if !err.Retryable || err.Validator != "structural" {
				t.Errorf("err = %+v", err)
			}
		})
	}
}

func TestDuplicateValidator(t *testing.T) {
	v := &DuplicateValidator{}
	in := Input{Existing: []string{"What is 7 × 8?", "what   is 6 x 9"}}

	tests := []struct {
		text string
		dup  bool
	}{
		{"What is 7 x 8?", false},
		{"WHAT IS 6 X 9?", true},
		{"What is 6 x 9 ?!", true},
		{"What is 7 × 8", true},
		{"What is 7 x 9?", false},
	}
	for _, tt := range tests {
		q := validQuestion()
		q.Text = tt.text
		err := v.Validate(q, in)
		if (err != nil) != tt.dup {
			t.Errorf("%q: err = %v, want dup %v", tt.text, err, tt.dup)
		}
	}
}

func TestNormalizeText(t *testing.T) {
	tests := []struct{ in, want string }{
		{"  Hello   World ", "hello world"},
		{"ﬁve", "five"}, // NFKC ligature
		{"Ａｂｃ?", "abc"}, // fullwidth
		{"", ""},
	}
	for _, tt := range tests {
		if got := normalizeText(tt.in); got != tt.want {
			t.Errorf("normalizeText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
