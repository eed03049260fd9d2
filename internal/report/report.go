// Package report renders a learner's progress and answer history as an
// Excel workbook.
package report

import (
	"context"
	"fmt"
	"math"

	"github.com/xuri/excelize/v2"

	"github.com/abhisek/masterypath/internal/bank"
	"github.com/abhisek/masterypath/internal/bkt"
	"github.com/abhisek/masterypath/internal/knowledge"
	"github.com/abhisek/masterypath/internal/mastery"
)

// Sheet names.
const (
	SheetProgress = "Progress"
	SheetHistory  = "History"
)

var (
	progressHeader = []any{"Section", "Objective", "Status", "Knowledge", "Accuracy", "Attempts", "Mastered", "Ever mastered", "Unlocked", "Predicted correct"}
	historyHeader  = []any{"Answered at", "Section", "Objective", "Seq", "Question", "Result", "Difficulty", "Knowledge after", "Correct answer"}
)

// Source supplies the learner data. *engine.Engine satisfies it.
type Source interface {
	Progress(ctx context.Context, userID, sectionID string) ([]mastery.ObjectiveProgress, error)
	History(ctx context.Context, userID, objectiveID string) ([]knowledge.AnswerRecord, error)
}

// Options narrows and parameterizes a report.
type Options struct {
	// SectionIDs limits the report to these sections. Empty means all.
	SectionIDs []string

	// Params drives the predicted-correct column. Zero uses the defaults.
	Params bkt.Params
}

// Build writes one Progress row per objective and one History row per
// answer for the selected sections.
func Build(ctx context.Context, src Source, cat *bank.Catalog, userID string, opts Options) (*excelize.File, error) {
	sections, err := pickSections(cat, opts.SectionIDs)
	if err != nil {
		return nil, err
	}
	if opts.Params == (bkt.Params{}) {
		opts.Params = bkt.DefaultParams()
	}

	f := excelize.NewFile()
	w := &writer{f: f, params: opts.Params}
	if err := w.init(); err != nil {
		f.Close()
		return nil, err
	}

	for _, s := range sections {
		progress, err := src.Progress(ctx, userID, s.ID)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("progress for section %s: %w", s.ID, err)
		}
		for _, p := range progress {
			w.progress(s, p)

			records, err := src.History(ctx, userID, p.ObjectiveID)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("history for objective %s: %w", p.ObjectiveID, err)
			}
			for _, r := range records {
				text, answer := r.QuestionID, ""
				if q, ok := cat.Question(r.QuestionID); ok {
					text = q.Text
					if opt, ok := q.CorrectOption(); ok {
						answer = opt.Text
					}
				}
				w.history(s, p.Name, r, text, answer)
			}
		}
	}
	if w.err != nil {
		f.Close()
		return nil, w.err
	}
	return f, nil
}

func pickSections(cat *bank.Catalog, ids []string) ([]bank.Section, error) {
	if len(ids) == 0 {
		return cat.Sections(), nil
	}
	out := make([]bank.Section, 0, len(ids))
	for _, id := range ids {
		s, err := cat.Section(context.Background(), id)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// writer appends rows and keeps the first error.
type writer struct {
	f           *excelize.File
	params      bkt.Params
	progressRow int
	historyRow  int
	err         error
}

func (w *writer) init() error {
	if err := w.f.SetSheetName("Sheet1", SheetProgress); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := w.f.NewSheet(SheetHistory); err != nil {
		return fmt.Errorf("add sheet: %w", err)
	}

	bold, err := w.f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	for sheet, header := range map[string][]any{SheetProgress: progressHeader, SheetHistory: historyHeader} {
		if err := w.f.SetSheetRow(sheet, "A1", &header); err != nil {
			return fmt.Errorf("write %s header: %w", sheet, err)
		}
		last, _ := excelize.CoordinatesToCellName(len(header), 1)
		if err := w.f.SetCellStyle(sheet, "A1", last, bold); err != nil {
			return fmt.Errorf("style %s header: %w", sheet, err)
		}
		if err := w.f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
			return fmt.Errorf("freeze %s header: %w", sheet, err)
		}
	}
	w.progressRow, w.historyRow = 1, 1
	return nil
}

func (w *writer) progress(s bank.Section, p mastery.ObjectiveProgress) {
	w.progressRow++
	w.row(SheetProgress, w.progressRow, []any{
		s.Name, p.Name, string(p.Display), p.Knowledge, p.Accuracy, p.Attempts, p.Mastered, p.EverMastered, p.Unlocked,
		math.Round(bkt.Predict(p.Knowledge, w.params)*1e4) / 1e4,
	})
}

func (w *writer) history(s bank.Section, objective string, r knowledge.AnswerRecord, question, answer string) {
	result := "incorrect"
	if r.Correct {
		result = "correct"
	}
	w.historyRow++
	w.row(SheetHistory, w.historyRow, []any{
		r.AnsweredAt.UTC().Format("2006-01-02 15:04:05"), s.Name, objective, r.Seq, question, result, r.Difficulty, r.KnowledgeAfter, answer,
	})
}

func (w *writer) row(sheet string, n int, values []any) {
	if w.err != nil {
		return
	}
	cell, _ := excelize.CoordinatesToCellName(1, n)
	if err := w.f.SetSheetRow(sheet, cell, &values); err != nil {
		w.err = fmt.Errorf("write %s row %d: %w", sheet, n, err)
	}
}
