package report

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danbryan/redline/internal/stages"
)

func testBundle() *stages.Bundle {
	return &stages.Bundle{
		Purpose:     `{"summary":"A services agreement between A and B."}`,
		Commercial:  `[{"clause":"Fees","summary":"USD 5,000 per month"}]`,
		LegalRisks:  `[{"clause":"Indemnity","risk":"one-sided","severity":"high","fairness":"unfair"}]`,
		Mitigations: `[{"clause":"Indemnity","mitigation":"make it mutual"}]`,
		Alert:       `{"exploitative":true,"rationale":"1 unfair clause(s), 1 high severity. Leans exploitative.","top_unfair_clauses":["Indemnity"]}`,
		Plain:       "- You: pay monthly\n- Watch out: indemnity is one-sided",
		Meta: stages.Meta{
			Contract:    "msa",
			Model:       "test-model",
			GeneratedAt: time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
		},
	}
}

func TestStoreSave(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(StoreConfig{Dir: dir, URLPrefix: "/reports"})
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	file, url, err := store.Save(context.Background(), "msa", testBundle())
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if file != "msa_analysis.json" {
		t.Errorf("file = %q", file)
	}
	if url != "/reports/msa_analysis.json" {
		t.Errorf("url = %q", url)
	}

	// JSON artifact round-trips.
	data, err := os.ReadFile(filepath.Join(dir, file))
	if err != nil {
		t.Fatalf("reading report: %v", err)
	}
	var decoded stages.Bundle
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("report is not valid JSON: %v", err)
	}
	if decoded.Meta.Contract != "msa" {
		t.Errorf("decoded contract = %q", decoded.Meta.Contract)
	}

	// Markdown artifact exists alongside.
	md, err := os.ReadFile(filepath.Join(dir, "msa_analysis.md"))
	if err != nil {
		t.Fatalf("reading markdown report: %v", err)
	}
	if !strings.Contains(string(md), "# Contract Analysis: msa") {
		t.Error("markdown is missing the title")
	}
}

func TestRenderMarkdown(t *testing.T) {
	md := RenderMarkdown(testBundle())

	for _, want := range []string{
		"## Purpose",
		"A services agreement between A and B.",
		"## Commercial Terms",
		"- **Fees**: USD 5,000 per month",
		"## Legal Risks",
		"- **Indemnity**: one-sided | severity: high | fairness: unfair",
		"## Mitigations",
		"## Alert",
		"## Plain-Language Summary",
		"- You: pay monthly",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestRenderMarkdownFallsBackToRawText(t *testing.T) {
	b := testBundle()
	b.LegalRisks = "The model refused to produce JSON."

	md := RenderMarkdown(b)
	if !strings.Contains(md, "The model refused to produce JSON.") {
		t.Error("unresolvable section should render as raw text")
	}
}

func TestRenderMarkdownSkipsEmptySections(t *testing.T) {
	b := testBundle()
	b.Mitigations = ""

	md := RenderMarkdown(b)
	if strings.Contains(md, "## Mitigations") {
		t.Error("empty section should be skipped")
	}
}
