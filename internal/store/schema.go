package store

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

// Table names.
const (
	tableKnowledgeStates = "knowledge_states"
	tableAnswerRecords   = "answer_records"
	tableSections        = "sections"
	tableObjectives      = "objectives"
	tableQuestions       = "questions"
	tableOptions         = "options"
)

var (
	// KnowledgeStatesColumns holds the columns for the "knowledge_states" table.
	KnowledgeStatesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "user_id", Type: field.TypeString},
		{Name: "objective_id", Type: field.TypeString},
		{Name: "current_knowledge", Type: field.TypeFloat64},
		{Name: "attempts", Type: field.TypeInt},
		{Name: "correct_count", Type: field.TypeInt},
		{Name: "consecutive_correct", Type: field.TypeInt},
		{Name: "mastered", Type: field.TypeBool},
		{Name: "ever_mastered", Type: field.TypeBool},
		{Name: "mastered_at", Type: field.TypeInt64, Nullable: true},
		{Name: "phase", Type: field.TypeString},
		{Name: "last_question_id", Type: field.TypeString},
		{Name: "awaiting_answer", Type: field.TypeBool},
		{Name: "serve_seq", Type: field.TypeInt64},
		{Name: "served", Type: field.TypeString},
		{Name: "version", Type: field.TypeInt64},
		{Name: "created_at", Type: field.TypeInt64},
		{Name: "updated_at", Type: field.TypeInt64},
	}
	// KnowledgeStatesTable holds the schema information for the "knowledge_states" table.
	KnowledgeStatesTable = &schema.Table{
		Name:       tableKnowledgeStates,
		Columns:    KnowledgeStatesColumns,
		PrimaryKey: []*schema.Column{KnowledgeStatesColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "knowledgestate_user_id_objective_id",
				Unique:  true,
				Columns: []*schema.Column{KnowledgeStatesColumns[1], KnowledgeStatesColumns[2]},
			},
		},
	}

	// AnswerRecordsColumns holds the columns for the "answer_records" table.
	AnswerRecordsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "user_id", Type: field.TypeString},
		{Name: "objective_id", Type: field.TypeString},
		{Name: "seq", Type: field.TypeInt},
		{Name: "answered_at", Type: field.TypeInt64},
		{Name: "question_id", Type: field.TypeString},
		{Name: "option_id", Type: field.TypeString},
		{Name: "correct", Type: field.TypeBool},
		{Name: "knowledge_after", Type: field.TypeFloat64},
		{Name: "difficulty", Type: field.TypeFloat64},
	}
	// AnswerRecordsTable holds the schema information for the "answer_records" table.
	AnswerRecordsTable = &schema.Table{
		Name:       tableAnswerRecords,
		Columns:    AnswerRecordsColumns,
		PrimaryKey: []*schema.Column{AnswerRecordsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "answerrecord_user_id_objective_id_seq",
				Unique:  true,
				Columns: []*schema.Column{AnswerRecordsColumns[1], AnswerRecordsColumns[2], AnswerRecordsColumns[3]},
			},
			{
				Name:    "answerrecord_question_id",
				Unique:  false,
				Columns: []*schema.Column{AnswerRecordsColumns[5]},
			},
		},
	}

	// SectionsColumns holds the columns for the "sections" table.
	SectionsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "name", Type: field.TypeString},
		{Name: "description", Type: field.TypeString},
		{Name: "position", Type: field.TypeInt},
	}
	// SectionsTable holds the schema information for the "sections" table.
	SectionsTable = &schema.Table{
		Name:       tableSections,
		Columns:    SectionsColumns,
		PrimaryKey: []*schema.Column{SectionsColumns[0]},
	}

	// ObjectivesColumns holds the columns for the "objectives" table.
	ObjectivesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "name", Type: field.TypeString},
		{Name: "description", Type: field.TypeString},
		{Name: "threshold", Type: field.TypeFloat64},
		{Name: "position", Type: field.TypeInt},
		{Name: "section_id", Type: field.TypeString, Nullable: true},
		{Name: "section_position", Type: field.TypeInt},
	}
	// ObjectivesTable holds the schema information for the "objectives" table.
	ObjectivesTable = &schema.Table{
		Name:       tableObjectives,
		Columns:    ObjectivesColumns,
		PrimaryKey: []*schema.Column{ObjectivesColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "objective_section_id_section_position",
				Unique:  false,
				Columns: []*schema.Column{ObjectivesColumns[5], ObjectivesColumns[6]},
			},
		},
	}

	// QuestionsColumns holds the columns for the "questions" table.
	QuestionsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "objective_id", Type: field.TypeString},
		{Name: "position", Type: field.TypeInt},
		{Name: "text", Type: field.TypeString, Size: 2147483647},
		{Name: "difficulty", Type: field.TypeFloat64, Nullable: true},
	}
	// QuestionsTable holds the schema information for the "questions" table.
	QuestionsTable = &schema.Table{
		Name:       tableQuestions,
		Columns:    QuestionsColumns,
		PrimaryKey: []*schema.Column{QuestionsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "question_objective_id_position",
				Unique:  false,
				Columns: []*schema.Column{QuestionsColumns[1], QuestionsColumns[2]},
			},
		},
	}

	// OptionsColumns holds the columns for the "options" table.
	OptionsColumns = []*schema.Column{
		{Name: "question_id", Type: field.TypeString},
		{Name: "option_id", Type: field.TypeString},
		{Name: "position", Type: field.TypeInt},
		{Name: "text", Type: field.TypeString, Size: 2147483647},
		{Name: "is_correct", Type: field.TypeBool},
	}
	// OptionsTable holds the schema information for the "options" table.
	// Option ids are unique within their question only.
	OptionsTable = &schema.Table{
		Name:       tableOptions,
		Columns:    OptionsColumns,
		PrimaryKey: []*schema.Column{OptionsColumns[0], OptionsColumns[1]},
		Indexes: []*schema.Index{
			{
				Name:    "option_question_id_position",
				Unique:  false,
				Columns: []*schema.Column{OptionsColumns[0], OptionsColumns[2]},
			},
		},
	}

	// Tables holds all the tables in the schema.
	Tables = []*schema.Table{
		KnowledgeStatesTable,
		AnswerRecordsTable,
		SectionsTable,
		ObjectivesTable,
		QuestionsTable,
		OptionsTable,
	}
)
