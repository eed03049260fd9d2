package questiongen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/abhisek/masterypath/internal/bank"
	"github.com/abhisek/masterypath/internal/llm"
)

// LLMGenerator drafts questions with an llm.Provider.
type LLMGenerator struct {
	provider llm.Provider
	cfg      Config
}

// New returns a generator. Zero-valued limits in cfg take their defaults.
func New(provider llm.Provider, cfg Config) *LLMGenerator {
	def := DefaultConfig()
	if cfg.Validators == nil {
		cfg.Validators = def.Validators
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = def.MaxTokens
	}
	if cfg.NewID == nil {
		cfg.NewID = def.NewID
	}
	return &LLMGenerator{provider: provider, cfg: cfg}
}

type draft struct {
	Text       string  `json:"text"`
	Difficulty float64 `json:"difficulty"`
	Options    []struct {
		Text      string `json:"text"`
		IsCorrect bool   `json:"is_correct"`
	} `json:"options"`
}

func (g *LLMGenerator) Generate(ctx context.Context, in Input) (*bank.Question, error) {
	ctx = llm.WithPurpose(ctx, "question-gen")

	var rejected []string
	for attempt := 0; ; attempt++ {
		q, err := g.draft(ctx, in, rejected)
		if err != nil {
			return nil, err
		}

		verr := g.validate(q, in)
		if verr == nil {
			return q, nil
		}
		if !verr.Retryable || attempt >= g.cfg.MaxRetries {
			return nil, verr
		}
		rejected = append(rejected, fmt.Sprintf("%q: %s", q.Text, verr.Message))
	}
}

func (g *LLMGenerator) draft(ctx context.Context, in Input, rejected []string) (*bank.Question, error) {
	resp, err := g.provider.Generate(ctx, llm.Request{
		System:      systemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: buildUserMessage(in, g.cfg, rejected)}},
		Schema:      QuestionSchema,
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("generate question: %w", err)
	}

	var d draft
	if err := json.Unmarshal(resp.Content, &d); err != nil {
		return nil, fmt.Errorf("decode question: %w", err)
	}

	difficulty := d.Difficulty
	q := &bank.Question{
		ID:          g.cfg.NewID(),
		ObjectiveID: in.Objective.ID,
		Text:        strings.TrimSpace(d.Text),
		Difficulty:  &difficulty,
		Options:     make([]bank.Option, len(d.Options)),
	}
	for i, o := range d.Options {
		q.Options[i] = bank.Option{ID: g.cfg.NewID(), Text: strings.TrimSpace(o.Text), IsCorrect: o.IsCorrect}
	}
	return q, nil
}

func (g *LLMGenerator) validate(q *bank.Question, in Input) *ValidationError {
	for _, v := range g.cfg.Validators {
		if err := v.Validate(q, in); err != nil {
			return err
		}
	}
	return nil
}

// GenerateN drafts n questions, each checked against the ones before it.
// It returns what was generated before the first error along with it.
func GenerateN(ctx context.Context, g Generator, in Input, n int) ([]bank.Question, error) {
	in.Existing = append([]string(nil), in.Existing...)
	out := make([]bank.Question, 0, n)
	for len(out) < n {
		q, err := g.Generate(ctx, in)
		if err != nil {
			return out, fmt.Errorf("question %d of %d: %w", len(out)+1, n, err)
		}
		out = append(out, *q)
		in.Existing = append(in.Existing, q.Text)
	}
	return out, nil
}

// IsValidation reports whether err is a rejected draft rather than a
// provider failure.
func IsValidation(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
