package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/abhisek/masterypath/internal/bank"
	"github.com/abhisek/masterypath/internal/knowledge"
)

// MemoryRepo is an in-process KnowledgeRepo with the same semantics as the
// SQL implementation. The mutex guards map access only; callers serialize
// per-pair work themselves.
type MemoryRepo struct {
	mu      sync.RWMutex
	states  map[knowledge.Key]*knowledge.State
	records map[knowledge.Key][]knowledge.AnswerRecord
	stats   map[string]bank.Stats
}

var _ KnowledgeRepo = (*MemoryRepo)(nil)

// NewMemoryRepo returns an empty MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		states:  make(map[knowledge.Key]*knowledge.State),
		records: make(map[knowledge.Key][]knowledge.AnswerRecord),
		stats:   make(map[string]bank.Stats),
	}
}

func (m *MemoryRepo) Get(ctx context.Context, key knowledge.Key) (*knowledge.State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.states[key]
	if !ok {
		return nil, nil
	}
	return s.Clone(), nil
}

func (m *MemoryRepo) CompareAndSwap(ctx context.Context, expected int64, next *knowledge.State, rec *knowledge.AnswerRecord) error {
	if err := checkVersion(expected, next); err != nil {
		return fmt.Errorf("save knowledge state: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.states[next.Key]
	switch {
	case expected == 0 && ok:
		return fmt.Errorf("create knowledge state %s: %w", next.Key, ErrVersionConflict)
	case expected != 0 && (!ok || cur.Version != expected):
		return fmt.Errorf("update knowledge state %s at version %d: %w", next.Key, expected, ErrVersionConflict)
	}

	m.states[next.Key] = next.Clone()
	if rec != nil {
		m.records[next.Key] = append(m.records[next.Key], *rec)
		st := m.stats[rec.QuestionID]
		st.Attempts++
		if rec.Correct {
			st.Correct++
		}
		m.stats[rec.QuestionID] = st
	}
	return nil
}

func (m *MemoryRepo) History(ctx context.Context, key knowledge.Key, opts QueryOpts) ([]knowledge.AnswerRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []knowledge.AnswerRecord
	for _, r := range m.records[key] {
		if r.Seq > opts.AfterSeq {
			out = append(out, r)
		}
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[len(out)-opts.Limit:]
	}
	return append([]knowledge.AnswerRecord(nil), out...), nil
}

func (m *MemoryRepo) ListByUser(ctx context.Context, userID string) ([]*knowledge.State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*knowledge.State
	for k, s := range m.states {
		if k.UserID == userID {
			out = append(out, s.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ObjectiveID < out[j].ObjectiveID })
	return out, nil
}

func (m *MemoryRepo) QuestionStats(ctx context.Context, questionIDs []string) (map[string]bank.Stats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]bank.Stats, len(questionIDs))
	for _, id := range questionIDs {
		if st, ok := m.stats[id]; ok {
			out[id] = st
		}
	}
	return out, nil
}
