package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/masterypath/internal/bank"
	"github.com/abhisek/masterypath/internal/knowledge"
)

// knowledgeRepo implements KnowledgeRepo with ent's SQL builders.
type knowledgeRepo struct {
	drv     *entsql.Driver
	dialect string
}

var stateColumns = []string{
	"user_id", "objective_id", "current_knowledge", "attempts", "correct_count",
	"consecutive_correct", "mastered", "ever_mastered", "mastered_at", "phase",
	"last_question_id", "awaiting_answer", "serve_seq", "served", "version",
	"created_at", "updated_at",
}

var recordColumns = []string{
	"id", "user_id", "objective_id", "seq", "answered_at", "question_id",
	"option_id", "correct", "knowledge_after", "difficulty",
}

func (r *knowledgeRepo) builder() *entsql.DialectBuilder {
	return entsql.Dialect(r.dialect)
}

func keyPredicate(key knowledge.Key) *entsql.Predicate {
	return entsql.And(
		entsql.EQ("user_id", key.UserID),
		entsql.EQ("objective_id", key.ObjectiveID),
	)
}

func (r *knowledgeRepo) Get(ctx context.Context, key knowledge.Key) (*knowledge.State, error) {
	query, args := r.builder().
		Select(stateColumns...).
		From(entsql.Table(tableKnowledgeStates)).
		Where(keyPredicate(key)).
		Query()

	rows := &entsql.Rows{}
	if err := r.drv.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("query knowledge state: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("query knowledge state: %w", err)
		}
		return nil, nil
	}
	s, err := scanState(rows)
	if err != nil {
		return nil, fmt.Errorf("scan knowledge state: %w", err)
	}
	return s, nil
}

func (r *knowledgeRepo) CompareAndSwap(ctx context.Context, expected int64, next *knowledge.State, rec *knowledge.AnswerRecord) error {
	if err := checkVersion(expected, next); err != nil {
		return fmt.Errorf("save knowledge state: %w", err)
	}

	tx, err := r.drv.Tx(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := r.swap(ctx, tx, expected, next, rec); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit knowledge state: %w", err)
	}
	return nil
}

func (r *knowledgeRepo) swap(ctx context.Context, tx dialect.Tx, expected int64, next *knowledge.State, rec *knowledge.AnswerRecord) error {
	served, err := json.Marshal(next.Served)
	if err != nil {
		return fmt.Errorf("marshal served: %w", err)
	}

	if expected == 0 {
		exists, err := r.exists(ctx, tx, next.Key)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("create knowledge state %s: %w", next.Key, ErrVersionConflict)
		}

		query, args := r.builder().
			Insert(tableKnowledgeStates).
			Columns(stateColumns...).
			Values(
				next.UserID, next.ObjectiveID, next.CurrentKnowledge, next.Attempts, next.CorrectCount,
				next.ConsecutiveCorrect, next.Mastered, next.EverMastered, nullableMicros(next.MasteredAt), string(next.Phase),
				next.LastQuestionID, next.AwaitingAnswer, next.ServeSeq, string(served), next.Version,
				next.CreatedAt.UnixMicro(), next.UpdatedAt.UnixMicro(),
			).
			Query()
		var res sql.Result
		if err := tx.Exec(ctx, query, args, &res); err != nil {
			return fmt.Errorf("insert knowledge state: %w", err)
		}
	} else {
		query, args := r.builder().
			Update(tableKnowledgeStates).
			Set("current_knowledge", next.CurrentKnowledge).
			Set("attempts", next.Attempts).
			Set("correct_count", next.CorrectCount).
			Set("consecutive_correct", next.ConsecutiveCorrect).
			Set("mastered", next.Mastered).
			Set("ever_mastered", next.EverMastered).
			Set("mastered_at", nullableMicros(next.MasteredAt)).
			Set("phase", string(next.Phase)).
			Set("last_question_id", next.LastQuestionID).
			Set("awaiting_answer", next.AwaitingAnswer).
			Set("serve_seq", next.ServeSeq).
			Set("served", string(served)).
			Set("version", next.Version).
			Set("updated_at", next.UpdatedAt.UnixMicro()).
			Where(entsql.And(keyPredicate(next.Key), entsql.EQ("version", expected))).
			Query()
		var res sql.Result
		if err := tx.Exec(ctx, query, args, &res); err != nil {
			return fmt.Errorf("update knowledge state: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update knowledge state: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("update knowledge state %s at version %d: %w", next.Key, expected, ErrVersionConflict)
		}
	}

	if rec == nil {
		return nil
	}
	query, args := r.builder().
		Insert(tableAnswerRecords).
		Columns(recordColumns...).
		Values(
			rec.ID, rec.UserID, rec.ObjectiveID, rec.Seq, rec.AnsweredAt.UnixMicro(), rec.QuestionID,
			rec.OptionID, rec.Correct, rec.KnowledgeAfter, rec.Difficulty,
		).
		Query()
	var res sql.Result
	if err := tx.Exec(ctx, query, args, &res); err != nil {
		return fmt.Errorf("insert answer record: %w", err)
	}
	return nil
}

func (r *knowledgeRepo) exists(ctx context.Context, tx dialect.Tx, key knowledge.Key) (bool, error) {
	query, args := r.builder().
		Select(entsql.Count("*")).
		From(entsql.Table(tableKnowledgeStates)).
		Where(keyPredicate(key)).
		Query()

	rows := &entsql.Rows{}
	if err := tx.Query(ctx, query, args, rows); err != nil {
		return false, fmt.Errorf("count knowledge states: %w", err)
	}
	defer rows.Close()

	var n int64
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return false, fmt.Errorf("scan count: %w", err)
		}
	}
	return n > 0, rows.Err()
}

func (r *knowledgeRepo) History(ctx context.Context, key knowledge.Key, opts QueryOpts) ([]knowledge.AnswerRecord, error) {
	pred := keyPredicate(key)
	if opts.AfterSeq > 0 {
		pred = entsql.And(pred, entsql.GT("seq", opts.AfterSeq))
	}

	sel := r.builder().
		Select(recordColumns...).
		From(entsql.Table(tableAnswerRecords)).
		Where(pred)
	if opts.Limit > 0 {
		sel = sel.OrderBy(entsql.Desc("seq")).Limit(opts.Limit)
	} else {
		sel = sel.OrderBy("seq")
	}
	query, args := sel.Query()

	rows := &entsql.Rows{}
	if err := r.drv.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("query answer history: %w", err)
	}
	defer rows.Close()

	var out []knowledge.AnswerRecord
	for rows.Next() {
		var (
			rec        knowledge.AnswerRecord
			answeredAt int64
		)
		if err := rows.Scan(
			&rec.ID, &rec.UserID, &rec.ObjectiveID, &rec.Seq, &answeredAt, &rec.QuestionID,
			&rec.OptionID, &rec.Correct, &rec.KnowledgeAfter, &rec.Difficulty,
		); err != nil {
			return nil, fmt.Errorf("scan answer record: %w", err)
		}
		rec.AnsweredAt = time.UnixMicro(answeredAt).UTC()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query answer history: %w", err)
	}

	if opts.Limit > 0 {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out, nil
}

func (r *knowledgeRepo) ListByUser(ctx context.Context, userID string) ([]*knowledge.State, error) {
	query, args := r.builder().
		Select(stateColumns...).
		From(entsql.Table(tableKnowledgeStates)).
		Where(entsql.EQ("user_id", userID)).
		OrderBy("objective_id").
		Query()

	rows := &entsql.Rows{}
	if err := r.drv.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("query user states: %w", err)
	}
	defer rows.Close()

	var out []*knowledge.State
	for rows.Next() {
		s, err := scanState(rows)
		if err != nil {
			return nil, fmt.Errorf("scan knowledge state: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query user states: %w", err)
	}
	return out, nil
}

func (r *knowledgeRepo) QuestionStats(ctx context.Context, questionIDs []string) (map[string]bank.Stats, error) {
	out := make(map[string]bank.Stats, len(questionIDs))
	if len(questionIDs) == 0 {
		return out, nil
	}

	ids := make([]any, len(questionIDs))
	for i, id := range questionIDs {
		ids[i] = id
	}

	query, args := r.builder().
		Select(
			"question_id",
			entsql.As(entsql.Count("*"), "attempts"),
			entsql.As("SUM(CASE WHEN correct THEN 1 ELSE 0 END)", "correct_count"),
		).
		From(entsql.Table(tableAnswerRecords)).
		Where(entsql.In("question_id", ids...)).
		GroupBy("question_id").
		Query()

	rows := &entsql.Rows{}
	if err := r.drv.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("query question stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id                string
			attempts, correct int64
		)
		if err := rows.Scan(&id, &attempts, &correct); err != nil {
			return nil, fmt.Errorf("scan question stats: %w", err)
		}
		out[id] = bank.Stats{Attempts: int(attempts), Correct: int(correct)}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query question stats: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanState(row scanner) (*knowledge.State, error) {
	var (
		s          knowledge.State
		masteredAt sql.NullInt64
		phase      string
		served     string
		createdAt  int64
		updatedAt  int64
	)
	if err := row.Scan(
		&s.UserID, &s.ObjectiveID, &s.CurrentKnowledge, &s.Attempts, &s.CorrectCount,
		&s.ConsecutiveCorrect, &s.Mastered, &s.EverMastered, &masteredAt, &phase,
		&s.LastQuestionID, &s.AwaitingAnswer, &s.ServeSeq, &served, &s.Version,
		&createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	s.Phase = knowledge.Phase(phase)
	if masteredAt.Valid {
		t := time.UnixMicro(masteredAt.Int64).UTC()
		s.MasteredAt = &t
	}
	s.CreatedAt = time.UnixMicro(createdAt).UTC()
	s.UpdatedAt = time.UnixMicro(updatedAt).UTC()

	s.Served = make(map[string]int64)
	if served != "" {
		if err := json.Unmarshal([]byte(served), &s.Served); err != nil {
			return nil, fmt.Errorf("unmarshal served: %w", err)
		}
	}
	return &s, nil
}

func nullableMicros(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixMicro()
}
