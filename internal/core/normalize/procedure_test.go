package normalize

import (
	"testing"

	"github.com/ethioguide/procedure-gateway/internal/core/domain"
)

func TestMapProcedureFullRecord(t *testing.T) {
	raw := decode(t, `{
		"data": {
			"id": "proc-1",
			"title": "Passport Renewal",
			"summary": "Renew an expired passport",
			"steps": ["Book an appointment", "Submit documents"],
			"documentsRequired": [
				{"name": "Old passport", "templateUrl": "https://example.com/t.pdf"},
				"Birth certificate"
			],
			"fees": [{"amount": 150, "currency": "ETB", "label": "Service fee"}],
			"processingTime": {"minDays": 3, "maxDays": 10},
			"tags": ["passport", "immigration"],
			"verified": true,
			"updatedAt": "2026-05-01T10:00:00Z"
		}
	}`)

	proc := MapProcedure(raw)

	if proc.ID != "proc-1" {
		t.Fatalf("id = %q", proc.ID)
	}
	if proc.Title != "Passport Renewal" {
		t.Fatalf("title = %q", proc.Title)
	}
	if len(proc.Steps) != 2 || proc.Steps[0].Text != "Book an appointment" || proc.Steps[1].Order != 2 {
		t.Fatalf("steps = %#v", proc.Steps)
	}
	if len(proc.DocumentsRequired) != 2 {
		t.Fatalf("documents = %#v", proc.DocumentsRequired)
	}
	if proc.DocumentsRequired[0].TemplateURL == nil || *proc.DocumentsRequired[0].TemplateURL != "https://example.com/t.pdf" {
		t.Fatalf("first document template url = %#v", proc.DocumentsRequired[0].TemplateURL)
	}
	if proc.DocumentsRequired[1].TemplateURL != nil {
		t.Fatalf("string document should carry nil template url")
	}
	if len(proc.Fees) != 1 || proc.Fees[0].Amount != 150 {
		t.Fatalf("fees = %#v", proc.Fees)
	}
	if proc.ProcessingTime == nil || *proc.ProcessingTime.MinDays != 3 || *proc.ProcessingTime.MaxDays != 10 {
		t.Fatalf("processing time = %#v", proc.ProcessingTime)
	}
	if proc.Verified == nil || !*proc.Verified {
		t.Fatalf("verified = %#v", proc.Verified)
	}
	if proc.UpdatedAt != "2026-05-01T10:00:00Z" {
		t.Fatalf("updatedAt = %q", proc.UpdatedAt)
	}
}

func TestMapProcedureTitleFallbackChain(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"explicit title", `{"title":"A","content":{"title":"B"},"name":"C"}`, "A"},
		{"content title", `{"content":{"title":"B"},"name":"C"}`, "B"},
		{"legacy content Result", `{"content":{"Result":"R"}}`, "R"},
		{"name fallback", `{"name":"C"}`, "C"},
		{"content name fallback", `{"content":{"name":"D"}}`, "D"},
		{"placeholder", `{"id":"x"}`, domain.UntitledProcedure},
		{"empty title skipped", `{"title":"","name":"C"}`, "C"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proc := MapProcedure(decode(t, tt.raw))
			if proc.Title != tt.want {
				t.Fatalf("title = %q, want %q", proc.Title, tt.want)
			}
		})
	}
}

func TestMapProcedureSyntheticIDIsStable(t *testing.T) {
	raw := `{"title":"No ID Here","summary":"same payload"}`

	first := MapProcedure(decode(t, raw))
	second := MapProcedure(decode(t, raw))
	if first.ID == "" {
		t.Fatalf("expected synthetic id")
	}
	if first.ID != second.ID {
		t.Fatalf("synthetic id not stable: %q vs %q", first.ID, second.ID)
	}

	other := MapProcedure(decode(t, `{"title":"Different payload"}`))
	if other.ID == first.ID {
		t.Fatalf("different payloads produced the same synthetic id")
	}
}

func TestMapProcedureStepsAsMap(t *testing.T) {
	raw := decode(t, `{"id":"p1","steps":{"2":{"text":"Second"},"1":{"text":"First"}}}`)
	proc := MapProcedure(raw)

	if len(proc.Steps) != 2 {
		t.Fatalf("steps = %#v", proc.Steps)
	}
	if proc.Steps[0].Text != "First" || proc.Steps[1].Text != "Second" {
		t.Fatalf("step order wrong: %#v", proc.Steps)
	}
}

func TestMapProcedureTypeMismatchesDegrade(t *testing.T) {
	raw := decode(t, `{"id":"p1","title":42,"summary":["not","a","string"],"name":"Fallback Name"}`)
	proc := MapProcedure(raw)

	if proc.Title != "Fallback Name" {
		t.Fatalf("mistyped title should fall through to name, got %q", proc.Title)
	}
	if proc.Summary != "" {
		t.Fatalf("mistyped summary should stay empty, got %q", proc.Summary)
	}
}

func TestMapProcedureProcessingTimeAbsentBounds(t *testing.T) {
	proc := MapProcedure(decode(t, `{"id":"p1","processingTime":{}}`))
	if proc.ProcessingTime != nil {
		t.Fatalf("processing time without bounds should be nil, got %#v", proc.ProcessingTime)
	}
}

func TestMapProcedureList(t *testing.T) {
	raw := decode(t, `{
		"data": [
			{"id": "a", "title": "First"},
			{"id": "b", "title": "Second"}
		],
		"page": 1, "limit": 2, "total": 4
	}`)

	list := MapProcedureList(raw)
	if len(list.Procedures) != 2 {
		t.Fatalf("procedures = %#v", list.Procedures)
	}
	if list.Procedures[0].ID != "a" || list.Procedures[1].Title != "Second" {
		t.Fatalf("unexpected items: %#v", list.Procedures)
	}
	if list.Pagination.Total != 4 || list.Pagination.TotalPages != 2 || !list.Pagination.HasNext {
		t.Fatalf("pagination = %+v", list.Pagination)
	}
}

func TestMapProcedureListEmptyPayload(t *testing.T) {
	list := MapProcedureList(decode(t, `{"data":[]}`))
	if len(list.Procedures) != 0 {
		t.Fatalf("expected no procedures, got %#v", list.Procedures)
	}
	if list.Procedures == nil {
		t.Fatalf("procedures should be an empty slice, not nil")
	}
	if list.Pagination.Page != 1 {
		t.Fatalf("pagination = %+v", list.Pagination)
	}
}
