package store

import (
	"context"
	"database/sql"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/masterypath/internal/bank"
)

// catalogRepo stores the published catalog in normalized tables.
type catalogRepo struct {
	drv     *entsql.Driver
	dialect string
}

func (r *catalogRepo) builder() *entsql.DialectBuilder {
	return entsql.Dialect(r.dialect)
}

func (r *catalogRepo) Replace(ctx context.Context, cat *bank.Catalog) error {
	tx, err := r.drv.Tx(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := r.replace(ctx, tx, cat.Document()); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit catalog: %w", err)
	}
	return nil
}

func (r *catalogRepo) replace(ctx context.Context, tx dialect.Tx, doc bank.Document) error {
	for _, table := range []string{tableOptions, tableQuestions, tableObjectives, tableSections} {
		query, args := r.builder().Delete(table).Query()
		if err := r.exec(ctx, tx, query, args); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for pos, s := range doc.Sections {
		query, args := r.builder().
			Insert(tableSections).
			Columns("id", "name", "description", "position").
			Values(s.ID, s.Name, s.Description, pos).
			Query()
		if err := r.exec(ctx, tx, query, args); err != nil {
			return fmt.Errorf("insert section %s: %w", s.ID, err)
		}
	}

	questionPos := make(map[string]int)
	for pos, o := range doc.Objectives {
		var sectionID any
		if o.SectionID != "" {
			sectionID = o.SectionID
		}
		query, args := r.builder().
			Insert(tableObjectives).
			Columns("id", "name", "description", "threshold", "position", "section_id", "section_position").
			Values(o.ID, o.Name, o.Description, o.Threshold, pos, sectionID, o.Position).
			Query()
		if err := r.exec(ctx, tx, query, args); err != nil {
			return fmt.Errorf("insert objective %s: %w", o.ID, err)
		}
		for i, qid := range o.QuestionIDs {
			questionPos[qid] = i
		}
	}

	for _, q := range doc.Questions {
		var difficulty any
		if q.Difficulty != nil {
			difficulty = *q.Difficulty
		}
		query, args := r.builder().
			Insert(tableQuestions).
			Columns("id", "objective_id", "position", "text", "difficulty").
			Values(q.ID, q.ObjectiveID, questionPos[q.ID], q.Text, difficulty).
			Query()
		if err := r.exec(ctx, tx, query, args); err != nil {
			return fmt.Errorf("insert question %s: %w", q.ID, err)
		}

		for pos, opt := range q.Options {
			query, args := r.builder().
				Insert(tableOptions).
				Columns("question_id", "option_id", "position", "text", "is_correct").
				Values(q.ID, opt.ID, pos, opt.Text, opt.IsCorrect).
				Query()
			if err := r.exec(ctx, tx, query, args); err != nil {
				return fmt.Errorf("insert option %s/%s: %w", q.ID, opt.ID, err)
			}
		}
	}
	return nil
}

func (r *catalogRepo) exec(ctx context.Context, tx dialect.Tx, query string, args []any) error {
	var res sql.Result
	return tx.Exec(ctx, query, args, &res)
}

func (r *catalogRepo) Load(ctx context.Context) (*bank.Catalog, error) {
	var doc bank.Document

	// Sections.
	sectionIdx := make(map[string]int)
	err := r.query(ctx, r.builder().
		Select("id", "name", "description").
		From(entsql.Table(tableSections)).
		OrderBy("position"),
		func(rows *entsql.Rows) error {
			var s bank.Section
			if err := rows.Scan(&s.ID, &s.Name, &s.Description); err != nil {
				return err
			}
			sectionIdx[s.ID] = len(doc.Sections)
			doc.Sections = append(doc.Sections, s)
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("load sections: %w", err)
	}

	// Objectives, collected into their sections afterwards.
	type membership struct {
		objectiveID string
		position    int
	}
	members := make(map[string][]membership)
	objectiveIdx := make(map[string]int)
	err = r.query(ctx, r.builder().
		Select("id", "name", "description", "threshold", "section_id", "section_position").
		From(entsql.Table(tableObjectives)).
		OrderBy("position"),
		func(rows *entsql.Rows) error {
			var (
				o         bank.Objective
				sectionID sql.NullString
				sectionAt int
			)
			if err := rows.Scan(&o.ID, &o.Name, &o.Description, &o.Threshold, &sectionID, &sectionAt); err != nil {
				return err
			}
			if sectionID.Valid {
				members[sectionID.String] = append(members[sectionID.String], membership{o.ID, sectionAt})
			}
			objectiveIdx[o.ID] = len(doc.Objectives)
			doc.Objectives = append(doc.Objectives, o)
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("load objectives: %w", err)
	}
	for sid, ms := range members {
		i, ok := sectionIdx[sid]
		if !ok {
			return nil, fmt.Errorf("objective references missing section %q", sid)
		}
		ids := make([]string, len(ms))
		for _, m := range ms {
			if m.position < 0 || m.position >= len(ms) {
				return nil, fmt.Errorf("section %q: objective %q has position %d out of range", sid, m.objectiveID, m.position)
			}
			ids[m.position] = m.objectiveID
		}
		doc.Sections[i].ObjectiveIDs = ids
	}

	// Options, grouped by question.
	options := make(map[string][]bank.Option)
	err = r.query(ctx, r.builder().
		Select("question_id", "option_id", "text", "is_correct").
		From(entsql.Table(tableOptions)).
		OrderBy("question_id", "position"),
		func(rows *entsql.Rows) error {
			var (
				qid string
				opt bank.Option
			)
			if err := rows.Scan(&qid, &opt.ID, &opt.Text, &opt.IsCorrect); err != nil {
				return err
			}
			options[qid] = append(options[qid], opt)
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("load options: %w", err)
	}

	// Questions in per-objective order.
	err = r.query(ctx, r.builder().
		Select("id", "objective_id", "text", "difficulty").
		From(entsql.Table(tableQuestions)).
		OrderBy("objective_id", "position"),
		func(rows *entsql.Rows) error {
			var (
				q          bank.Question
				difficulty sql.NullFloat64
			)
			if err := rows.Scan(&q.ID, &q.ObjectiveID, &q.Text, &difficulty); err != nil {
				return err
			}
			if difficulty.Valid {
				d := difficulty.Float64
				q.Difficulty = &d
			}
			q.Options = options[q.ID]
			if i, ok := objectiveIdx[q.ObjectiveID]; ok {
				doc.Objectives[i].QuestionIDs = append(doc.Objectives[i].QuestionIDs, q.ID)
			}
			doc.Questions = append(doc.Questions, q)
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}

	cat, err := bank.NewCatalog(doc)
	if err != nil {
		return nil, fmt.Errorf("stored catalog: %w", err)
	}
	return cat, nil
}

func (r *catalogRepo) query(ctx context.Context, sel *entsql.Selector, scan func(*entsql.Rows) error) error {
	query, args := sel.Query()
	rows := &entsql.Rows{}
	if err := r.drv.Query(ctx, query, args, rows); err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}
