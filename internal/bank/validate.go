package bank

import (
	"fmt"
	"strings"
)

const (
	minOptions = 2
	maxOptions = 8
)

// validateDocument performs all structural checks on doc.
// Returns a combined error describing all problems found, or nil if valid.
func validateDocument(doc Document) error {
	var errs []string

	objectiveIDs := make(map[string]bool, len(doc.Objectives))
	for _, o := range doc.Objectives {
		switch {
		case o.ID == "":
			errs = append(errs, fmt.Sprintf("objective %q has an empty ID", o.Name))
		case objectiveIDs[o.ID]:
			errs = append(errs, fmt.Sprintf("duplicate objective ID: %q", o.ID))
		}
		objectiveIDs[o.ID] = true

		if o.Threshold < 0 || o.Threshold > 1 {
			errs = append(errs, fmt.Sprintf("objective %q: threshold must be in (0, 1], got %g", o.ID, o.Threshold))
		}
	}

	// Check questions and their options
	questionIDs := make(map[string]string, len(doc.Questions)) // question -> objective
	for _, q := range doc.Questions {
		switch {
		case q.ID == "":
			errs = append(errs, "question with empty ID")
		case questionIDs[q.ID] != "":
			errs = append(errs, fmt.Sprintf("duplicate question ID: %q", q.ID))
		}
		questionIDs[q.ID] = q.ObjectiveID

		if !objectiveIDs[q.ObjectiveID] {
			errs = append(errs, fmt.Sprintf("question %q references nonexistent objective %q", q.ID, q.ObjectiveID))
		}
		if strings.TrimSpace(q.Text) == "" {
			errs = append(errs, fmt.Sprintf("question %q has empty text", q.ID))
		}
		if q.Difficulty != nil && (*q.Difficulty < 0 || *q.Difficulty > 1) {
			errs = append(errs, fmt.Sprintf("question %q: difficulty must be in [0, 1], got %g", q.ID, *q.Difficulty))
		}
		if n := len(q.Options); n < minOptions || n > maxOptions {
			errs = append(errs, fmt.Sprintf("question %q: must have %d-%d options, got %d", q.ID, minOptions, maxOptions, n))
		}

		// Option ids only need to be unique within their question.
		correct := 0
		optionIDs := make(map[string]bool, len(q.Options))
		for _, opt := range q.Options {
			if opt.IsCorrect {
				correct++
			}
			switch {
			case opt.ID == "":
				errs = append(errs, fmt.Sprintf("question %q has an option with empty ID", q.ID))
			case optionIDs[opt.ID]:
				errs = append(errs, fmt.Sprintf("question %q: duplicate option ID: %q", q.ID, opt.ID))
			}
			optionIDs[opt.ID] = true
		}
		if correct != 1 {
			errs = append(errs, fmt.Sprintf("question %q: exactly one option must be correct, got %d", q.ID, correct))
		}
	}

	// Explicit question orders must list exactly the objective's questions
	for _, o := range doc.Objectives {
		if len(o.QuestionIDs) == 0 {
			continue
		}
		listed := make(map[string]bool, len(o.QuestionIDs))
		for _, qid := range o.QuestionIDs {
			owner, ok := questionIDs[qid]
			switch {
			case !ok:
				errs = append(errs, fmt.Sprintf("objective %q references nonexistent question %q", o.ID, qid))
			case owner != o.ID:
				errs = append(errs, fmt.Sprintf("objective %q lists question %q owned by %q", o.ID, qid, owner))
			case listed[qid]:
				errs = append(errs, fmt.Sprintf("objective %q lists question %q twice", o.ID, qid))
			}
			listed[qid] = true
		}
		for _, q := range doc.Questions {
			if q.ObjectiveID == o.ID && !listed[q.ID] {
				errs = append(errs, fmt.Sprintf("objective %q does not list its question %q", o.ID, q.ID))
			}
		}
	}

	// Check sections: resolvable, and each objective in at most one section
	sectionIDs := make(map[string]bool, len(doc.Sections))
	memberOf := make(map[string]string)
	for _, s := range doc.Sections {
		switch {
		case s.ID == "":
			errs = append(errs, fmt.Sprintf("section %q has an empty ID", s.Name))
		case sectionIDs[s.ID]:
			errs = append(errs, fmt.Sprintf("duplicate section ID: %q", s.ID))
		}
		sectionIDs[s.ID] = true

		for _, oid := range s.ObjectiveIDs {
			if !objectiveIDs[oid] {
				errs = append(errs, fmt.Sprintf("section %q references nonexistent objective %q", s.ID, oid))
				continue
			}
			if prev, ok := memberOf[oid]; ok {
				errs = append(errs, fmt.Sprintf("objective %q belongs to sections %q and %q", oid, prev, s.ID))
				continue
			}
			memberOf[oid] = s.ID
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("catalog validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}
