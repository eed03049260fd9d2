package questiongen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/abhisek/masterypath/internal/bank"
	"github.com/abhisek/masterypath/internal/llm"
)

func testObjective() bank.Objective {
	return bank.Objective{
		ID:          "fractions-compare",
		Name:        "Compare fractions",
		Description: "Decide which of two fractions is larger",
	}
}

type opt struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

type reply struct {
	Text       string  `json:"text"`
	Difficulty float64 `json:"difficulty"`
	Options    []opt   `json:"options"`
}

func goodReply(text string) llm.MockResponse {
	return llm.MockJSON(reply{
		Text:       text,
		Difficulty: 0.4,
		Options:    []opt{{"3/4", true}, {"2/3", false}, {"They are equal", false}},
	})
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func testGenerator(mock *llm.MockProvider) *LLMGenerator {
	cfg := DefaultConfig()
	cfg.NewID = sequentialIDs()
	return New(mock, cfg)
}

func TestGenerateBuildsQuestion(t *testing.T) {
	mock := llm.NewMockProvider(goodReply("  Which is larger: 3/4 or 2/3? "))
	q, err := testGenerator(mock).Generate(context.Background(), Input{Objective: testObjective()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if q.ID != "id-1" || q.ObjectiveID != "fractions-compare" {
		t.Errorf("id %q objective %q", q.ID, q.ObjectiveID)
	}
	if q.Text != "Which is larger: 3/4 or 2/3?" {
		t.Errorf("text = %q", q.Text)
	}
	if q.Difficulty == nil || *q.Difficulty != 0.4 {
		t.Errorf("difficulty = %v", q.Difficulty)
	}
	if len(q.Options) != 3 || q.Options[0].ID != "id-2" || !q.Options[0].IsCorrect {
		t.Errorf("options = %+v", q.Options)
	}

	calls := mock.Calls()
	if len(calls) != 1 {
		t.Fatalf("calls = %d", len(calls))
	}
	if calls[0].Schema != QuestionSchema {
		t.Error("request should carry the question schema")
	}
}

func TestGenerateRetriesRejectedDrafts(t *testing.T) {
	mock := llm.NewMockProvider(
		goodReply("Which is larger: 1/2 or 1/3?"),
		llm.MockJSON(reply{Text: "Pick one", Difficulty: 0.5, Options: []opt{{"a", true}, {"b", true}}}),
		goodReply("Which is larger: 3/4 or 2/3?"),
	)
	in := Input{Objective: testObjective(), Existing: []string{"which is LARGER:  1/2 or 1/3"}}

	q, err := testGenerator(mock).Generate(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Text != "Which is larger: 3/4 or 2/3?" {
		t.Errorf("text = %q", q.Text)
	}

	calls := mock.Calls()
	if len(calls) != 3 {
		t.Fatalf("calls = %d, want 3", len(calls))
	}
	last := calls[2].Messages[0].Content
	if !strings.Contains(last, "previous drafts were rejected") ||
		!strings.Contains(last, "duplicates existing") ||
		!strings.Contains(last, "exactly one option must be correct") {
		t.Errorf("retry prompt missing rejection reasons:\n%s", last)
	}
}

func TestGenerateGivesUpAfterMaxRetries(t *testing.T) {
	dup := goodReply("Same question")
	mock := llm.NewMockProvider(dup, dup, dup, dup)
	in := Input{Objective: testObjective(), Existing: []string{"same question"}}

	_, err := testGenerator(mock).Generate(context.Background(), in)
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Validator != "duplicate" {
		t.Fatalf("err = %v, want duplicate validation error", err)
	}
	if !IsValidation(err) {
		t.Error("IsValidation should report true")
	}
	if n := len(mock.Calls()); n != 3 {
		t.Errorf("calls = %d, want 1 + 2 retries", n)
	}
}

type fatalValidator struct{}

func (fatalValidator) Name() string { return "fatal" }

func (fatalValidator) Validate(*bank.Question, Input) *ValidationError {
	return &ValidationError{Validator: "fatal", Message: "no"}
}

func TestGenerateNonRetryableStopsImmediately(t *testing.T) {
	mock := llm.NewMockProvider(goodReply("a"), goodReply("b"))
	cfg := DefaultConfig()
	cfg.Validators = []Validator{fatalValidator{}}

	if _, err := New(mock, cfg).Generate(context.Background(), Input{Objective: testObjective()}); err == nil {
		t.Fatal("expected error")
	}
	if n := len(mock.Calls()); n != 1 {
		t.Errorf("calls = %d", n)
	}
}

func TestGenerateProviderError(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Err: &llm.ErrRateLimit{}})
	_, err := testGenerator(mock).Generate(context.Background(), Input{Objective: testObjective()})

	var rl *llm.ErrRateLimit
	if !errors.As(err, &rl) {
		t.Fatalf("err = %v, want wrapped rate limit", err)
	}
	if IsValidation(err) {
		t.Error("provider errors are not validation errors")
	}
}

func TestGenerateN(t *testing.T) {
	mock := llm.NewMockProvider(
		goodReply("Q one"),
		goodReply("Q one"), // duplicate of the first draft
		goodReply("Q two"),
	)
	in := Input{Objective: testObjective(), Existing: []string{"Q zero"}}

	qs, err := GenerateN(context.Background(), testGenerator(mock), in, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(qs) != 2 || qs[0].Text != "Q one" || qs[1].Text != "Q two" {
		t.Fatalf("questions = %+v", qs)
	}
	if len(in.Existing) != 1 {
		t.Error("caller's Existing slice was modified")
	}

	partial, err := GenerateN(context.Background(), testGenerator(llm.NewMockProvider(goodReply("x"))), in, 3)
	if err == nil || len(partial) != 1 {
		t.Errorf("partial = %d, err = %v", len(partial), err)
	}
}

func TestUserMessage(t *testing.T) {
	d := 0.75
	in := Input{
		Objective:  testObjective(),
		Existing:   []string{"old 1", "old 2", "old 3"},
		Difficulty: &d,
	}
	cfg := DefaultConfig()
	cfg.MaxExisting = 2

	msg := buildUserMessage(in, cfg, nil)
	for _, want := range []string{
		"Objective: Compare fractions",
		"Description: Decide which",
		"Target difficulty: 0.75",
		"1. old 2\n2. old 3",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
	if strings.Contains(msg, "old 1") || strings.Contains(msg, "rejected") {
		t.Errorf("unexpected content:\n%s", msg)
	}

	empty := buildUserMessage(Input{Objective: bank.Objective{Name: "x"}}, cfg, nil)
	if !strings.Contains(empty, "Existing questions:\nNone") || strings.Contains(empty, "Target difficulty") {
		t.Errorf("empty input message:\n%s", empty)
	}
}
