package catalog

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/abhisek/masterypath/internal/bank"
)

func fixture(t *testing.T) *bank.Catalog {
	t.Helper()
	cat, err := bank.LoadFile("../bank/testdata/catalog.yaml")
	if err != nil {
		t.Fatalf("load fixture: %v", err)
	}
	return cat
}

func TestExportImportRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	for _, format := range []bank.Format{bank.FormatJSON, bank.FormatYAML} {
		t.Run(string(format), func(t *testing.T) {
			want := fixture(t)

			var buf bytes.Buffer
			if err := Export(&buf, want, format, now); err != nil {
				t.Fatalf("export: %v", err)
			}
			if !strings.Contains(buf.String(), FormatVersion) {
				t.Errorf("export missing version:\n%s", buf.String())
			}

			got, err := Import(&buf, format)
			if err != nil {
				t.Fatalf("import: %v", err)
			}

			ws, wo, wq := want.Counts()
			gs, gobj, gq := got.Counts()
			if ws != gs || wo != gobj || wq != gq {
				t.Errorf("counts = %d/%d/%d, want %d/%d/%d", gs, gobj, gq, ws, wo, wq)
			}

			qs, err := got.ListQuestions(context.Background(), "fractions-equivalent")
			if err != nil {
				t.Fatalf("list questions: %v", err)
			}
			if len(qs) != 2 || qs[0].ID != "feq-2" {
				t.Errorf("question order lost: %+v", qs)
			}
		})
	}
}

func TestImportBareDocument(t *testing.T) {
	yamlDoc := `
objectives:
  - id: o1
    name: One
questions:
  - id: q1
    objective_id: o1
    text: Pick a
    options:
      - {id: a, text: a, is_correct: true}
      - {id: b, text: b}
`
	cat, err := Import(strings.NewReader(yamlDoc), bank.FormatYAML)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if _, o, q := cat.Counts(); o != 1 || q != 1 {
		t.Errorf("counts: objectives=%d questions=%d", o, q)
	}
}

func TestImportRejectsMajorMismatch(t *testing.T) {
	doc := `{"version": "v2.0.0", "exported_at": "2026-01-01T00:00:00Z", "catalog": {"sections": [], "objectives": [], "questions": []}}`
	_, err := Import(strings.NewReader(doc), bank.FormatJSON)
	if err == nil || !strings.Contains(err.Error(), "unsupported catalog version") {
		t.Fatalf("err = %v, want version rejection", err)
	}
}

func TestImportRejectsInvalidCatalog(t *testing.T) {
	doc := `{"version": "v1.2.0", "exported_at": "2026-01-01T00:00:00Z", "catalog": {"sections": [], "objectives": [], "questions": [{"id": "q", "objective_id": "nope", "text": "t", "options": []}]}}`
	_, err := Import(strings.NewReader(doc), bank.FormatJSON)
	if err == nil || !strings.Contains(err.Error(), "catalog validation failed") {
		t.Fatalf("err = %v, want validation failure", err)
	}
}

func TestImportRejectsUnknownFields(t *testing.T) {
	doc := `{"version": "v1.0.0", "exported_at": "2026-01-01T00:00:00Z", "catalog": {"objectivez": []}}`
	if _, err := Import(strings.NewReader(doc), bank.FormatJSON); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestCheckVersion(t *testing.T) {
	tests := []struct {
		version string
		wantErr bool
	}{
		{"v1.0.0", false},
		{"v1.4.2", false},
		{"1.0", false},
		{"v1", false},
		{"v0.9.0", true},
		{"v2.0.0", true},
		{"banana", true},
		{"", true},
	}
	for _, tt := range tests {
		err := CheckVersion(tt.version)
		if (err != nil) != tt.wantErr {
			t.Errorf("CheckVersion(%q) error = %v, wantErr %v", tt.version, err, tt.wantErr)
		}
	}
}
