package bank

import (
	"context"
	"fmt"
)

// Document is the serializable form of a catalog.
type Document struct {
	Sections   []Section   `json:"sections" yaml:"sections"`
	Objectives []Objective `json:"objectives" yaml:"objectives"`
	Questions  []Question  `json:"questions" yaml:"questions"`
}

// Catalog is an immutable, indexed, in-memory Bank.
type Catalog struct {
	sections   []Section
	objectives []Objective
	questions  []Question

	sectionIdx   map[string]int
	objectiveIdx map[string]int
	questionIdx  map[string]int
}

var _ Bank = (*Catalog)(nil)

// NewCatalog validates doc and builds its indexes. All problems are reported
// in a single error.
func NewCatalog(doc Document) (*Catalog, error) {
	doc = cloneDocument(doc)
	if err := validateDocument(doc); err != nil {
		return nil, err
	}

	c := &Catalog{
		sections:     doc.Sections,
		objectives:   doc.Objectives,
		questions:    doc.Questions,
		sectionIdx:   make(map[string]int, len(doc.Sections)),
		objectiveIdx: make(map[string]int, len(doc.Objectives)),
		questionIdx:  make(map[string]int, len(doc.Questions)),
	}
	for i, s := range c.sections {
		c.sectionIdx[s.ID] = i
	}
	for i, o := range c.objectives {
		c.objectiveIdx[o.ID] = i
	}
	for i, q := range c.questions {
		c.questionIdx[q.ID] = i
	}

	// Objectives without an explicit question order take declaration order.
	for i := range c.objectives {
		if len(c.objectives[i].QuestionIDs) > 0 {
			continue
		}
		for _, q := range c.questions {
			if q.ObjectiveID == c.objectives[i].ID {
				c.objectives[i].QuestionIDs = append(c.objectives[i].QuestionIDs, q.ID)
			}
		}
	}

	for _, s := range c.sections {
		for pos, oid := range s.ObjectiveIDs {
			o := &c.objectives[c.objectiveIdx[oid]]
			o.SectionID = s.ID
			o.Position = pos
		}
	}

	return c, nil
}

// Objective returns the objective with the given id.
func (c *Catalog) Objective(_ context.Context, id string) (Objective, error) {
	i, ok := c.objectiveIdx[id]
	if !ok {
		return Objective{}, fmt.Errorf("objective %q: %w", id, ErrNotFound)
	}
	return cloneObjective(c.objectives[i]), nil
}

// Section returns the section with the given id.
func (c *Catalog) Section(_ context.Context, id string) (Section, error) {
	i, ok := c.sectionIdx[id]
	if !ok {
		return Section{}, fmt.Errorf("section %q: %w", id, ErrNotFound)
	}
	return cloneSection(c.sections[i]), nil
}

// ListQuestions returns the objective's questions in declared order.
func (c *Catalog) ListQuestions(_ context.Context, objectiveID string) ([]Question, error) {
	i, ok := c.objectiveIdx[objectiveID]
	if !ok {
		return nil, fmt.Errorf("objective %q: %w", objectiveID, ErrNotFound)
	}
	ids := c.objectives[i].QuestionIDs
	out := make([]Question, 0, len(ids))
	for _, qid := range ids {
		out = append(out, cloneQuestion(c.questions[c.questionIdx[qid]]))
	}
	return out, nil
}

// Question returns a question by id.
func (c *Catalog) Question(id string) (Question, bool) {
	i, ok := c.questionIdx[id]
	if !ok {
		return Question{}, false
	}
	return cloneQuestion(c.questions[i]), true
}

// Sections returns all sections in declaration order.
func (c *Catalog) Sections() []Section {
	out := make([]Section, len(c.sections))
	for i, s := range c.sections {
		out[i] = cloneSection(s)
	}
	return out
}

// Objectives returns all objectives in declaration order.
func (c *Catalog) Objectives() []Objective {
	out := make([]Objective, len(c.objectives))
	for i, o := range c.objectives {
		out[i] = cloneObjective(o)
	}
	return out
}

// SectionOf returns the section containing the objective, if any.
func (c *Catalog) SectionOf(objectiveID string) (Section, bool) {
	i, ok := c.objectiveIdx[objectiveID]
	if !ok || c.objectives[i].SectionID == "" {
		return Section{}, false
	}
	return cloneSection(c.sections[c.sectionIdx[c.objectives[i].SectionID]]), true
}

// Document returns a copy of the catalog in serializable form.
func (c *Catalog) Document() Document {
	doc := Document{
		Sections:   c.Sections(),
		Objectives: c.Objectives(),
		Questions:  make([]Question, len(c.questions)),
	}
	for i, q := range c.questions {
		doc.Questions[i] = cloneQuestion(q)
	}
	return doc
}

// WithQuestions returns a new catalog with qs appended to their objectives.
func (c *Catalog) WithQuestions(qs ...Question) (*Catalog, error) {
	doc := c.Document()
	for _, q := range qs {
		i, ok := c.objectiveIdx[q.ObjectiveID]
		if !ok {
			return nil, fmt.Errorf("objective %q: %w", q.ObjectiveID, ErrNotFound)
		}
		doc.Objectives[i].QuestionIDs = append(doc.Objectives[i].QuestionIDs, q.ID)
		doc.Questions = append(doc.Questions, q)
	}
	return NewCatalog(doc)
}

// Counts summarizes catalog size.
func (c *Catalog) Counts() (sections, objectives, questions int) {
	return len(c.sections), len(c.objectives), len(c.questions)
}

func cloneDocument(doc Document) Document {
	out := Document{
		Sections:   make([]Section, len(doc.Sections)),
		Objectives: make([]Objective, len(doc.Objectives)),
		Questions:  make([]Question, len(doc.Questions)),
	}
	for i, s := range doc.Sections {
		out.Sections[i] = cloneSection(s)
	}
	for i, o := range doc.Objectives {
		out.Objectives[i] = cloneObjective(o)
	}
	for i, q := range doc.Questions {
		out.Questions[i] = cloneQuestion(q)
	}
	return out
}

func cloneSection(s Section) Section {
	s.ObjectiveIDs = append([]string(nil), s.ObjectiveIDs...)
	return s
}

func cloneObjective(o Objective) Objective {
	o.QuestionIDs = append([]string(nil), o.QuestionIDs...)
	return o
}

func cloneQuestion(q Question) Question {
	q.Options = append([]Option(nil), q.Options...)
	if q.Difficulty != nil {
		d := *q.Difficulty
		q.Difficulty = &d
	}
	return q
}
