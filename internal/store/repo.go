package store

import (
	"context"
	"errors"

	"github.com/abhisek/masterypath/internal/bank"
	"github.com/abhisek/masterypath/internal/knowledge"
)

// ErrVersionConflict is returned by CompareAndSwap when the stored version
// does not match the expected one.
var ErrVersionConflict = errors.New("version conflict")

// QueryOpts configures history queries.
type QueryOpts struct {
	Limit    int // keep only the most recent N records (0 = unlimited)
	AfterSeq int // seq > AfterSeq
}

// KnowledgeRepo persists knowledge states and their answer history.
type KnowledgeRepo interface {
	// Get returns the state for key, or nil if none exists.
	Get(ctx context.Context, key knowledge.Key) (*knowledge.State, error)

	// CompareAndSwap writes next if the stored version equals expected.
	// expected == 0 creates the record. next.Version must be expected+1.
	// A non-nil rec is appended in the same transaction, so the state and
	// its answer record become visible together or not at all.
	CompareAndSwap(ctx context.Context, expected int64, next *knowledge.State, rec *knowledge.AnswerRecord) error

	// History returns answer records for key ordered oldest first.
	History(ctx context.Context, key knowledge.Key, opts QueryOpts) ([]knowledge.AnswerRecord, error)

	// ListByUser returns every state of the user ordered by objective id.
	ListByUser(ctx context.Context, userID string) ([]*knowledge.State, error)

	// QuestionStats aggregates answers per question across all users.
	QuestionStats(ctx context.Context, questionIDs []string) (map[string]bank.Stats, error)
}

// CatalogRepo persists the published question catalog.
type CatalogRepo interface {
	// Replace swaps the stored catalog for cat in one transaction.
	Replace(ctx context.Context, cat *bank.Catalog) error

	// Load reads and validates the stored catalog. An empty store yields an
	// empty catalog.
	Load(ctx context.Context) (*bank.Catalog, error)
}

func checkVersion(expected int64, next *knowledge.State) error {
	if next.Version != expected+1 {
		return errors.New("next version must be expected+1")
	}
	return nil
}
