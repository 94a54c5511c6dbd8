package stages

import (
	"encoding/json"
	"strings"
	"testing"
)

func risk(clause, severity, fairness string) map[string]any {
	return map[string]any{
		"clause":   clause,
		"risk":     "something could go wrong",
		"severity": severity,
		"fairness": fairness,
	}
}

func TestMergeRisks(t *testing.T) {
	t.Run("dedupes by clause keeping higher score", func(t *testing.T) {
		merged := MergeRisks([]any{
			risk("Liability", "low", "fair"),
			risk("liability", "high", "unfair"),
			risk("Termination", "medium", "fair"),
		})
		if len(merged) != 2 {
			t.Fatalf("MergeRisks() returned %d items, want 2", len(merged))
		}
		first := merged[0].(map[string]any)
		if first["severity"] != "high" {
			t.Errorf("kept duplicate severity = %v, want high", first["severity"])
		}
	})

	t.Run("ranks by severity", func(t *testing.T) {
		merged := MergeRisks([]any{
			risk("A", "low", "fair"),
			risk("B", "high", "unfair"),
			risk("C", "medium", "fair"),
		})
		got := make([]string, 0, len(merged))
		for _, m := range merged {
			got = append(got, itemString(m, "clause"))
		}
		want := "B,C,A"
		if strings.Join(got, ",") != want {
			t.Errorf("MergeRisks() order = %s, want %s", strings.Join(got, ","), want)
		}
	})

	t.Run("caps the list", func(t *testing.T) {
		var items []any
		for i := 0; i < 20; i++ {
			items = append(items, risk("clause "+string(rune('a'+i)), "medium", "fair"))
		}
		if got := len(MergeRisks(items)); got != maxMergedItems {
			t.Errorf("MergeRisks() len = %d, want %d", got, maxMergedItems)
		}
	})

	t.Run("skips items without a clause", func(t *testing.T) {
		merged := MergeRisks([]any{
			map[string]any{"risk": "orphan"},
			risk("A", "low", "fair"),
		})
		if len(merged) != 1 {
			t.Errorf("MergeRisks() len = %d, want 1", len(merged))
		}
	})
}

func TestAlignMitigations(t *testing.T) {
	mit := func(clause string) map[string]any {
		return map[string]any{"clause": clause, "mitigation": "do the thing"}
	}

	aligned := AlignMitigations(
		[]any{mit("Payment"), mit("Liability"), mit("payment"), mit("Warranty")},
		[]string{"Liability", "Warranty"},
	)

	got := make([]string, 0, len(aligned))
	for _, m := range aligned {
		got = append(got, itemString(m, "clause"))
	}
	// Risk-matching clauses first, then the rest, duplicate dropped.
	want := []string{"Liability", "Warranty", "Payment"}
	if len(got) != len(want) {
		t.Fatalf("AlignMitigations() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("AlignMitigations()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestDeriveAlert(t *testing.T) {
	t.Run("one high severity unfair clause tips the verdict", func(t *testing.T) {
		v, raw := DeriveAlert([]any{risk("Indemnity", "high", "unfair")})
		if !v.Exploitative {
			t.Error("DeriveAlert() exploitative = false, want true")
		}
		var decoded Verdict
		if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
			t.Fatalf("alert raw is not valid JSON: %v", err)
		}
		if decoded.Exploitative != v.Exploitative {
			t.Error("encoded verdict disagrees with returned verdict")
		}
	})

	t.Run("three unfair clauses tip the verdict", func(t *testing.T) {
		v, _ := DeriveAlert([]any{
			risk("A", "low", "unfair"),
			risk("B", "low", "unfair"),
			risk("C", "medium", "unfair"),
		})
		if !v.Exploitative {
			t.Error("DeriveAlert() exploitative = false, want true")
		}
	})

	t.Run("balanced contract stays clean", func(t *testing.T) {
		v, _ := DeriveAlert([]any{
			risk("A", "high", "fair"),
			risk("B", "low", "unfair"),
		})
		if v.Exploitative {
			t.Error("DeriveAlert() exploitative = true, want false")
		}
		if !strings.Contains(v.Rationale, "balanced") {
			t.Errorf("Rationale = %q, want balanced wording", v.Rationale)
		}
	})

	t.Run("empty risks give a clean verdict", func(t *testing.T) {
		v, raw := DeriveAlert(nil)
		if v.Exploitative {
			t.Error("DeriveAlert(nil) exploitative = true, want false")
		}
		if raw == "" {
			t.Error("DeriveAlert(nil) returned empty raw text")
		}
	})
}

func TestChunkWords(t *testing.T) {
	t.Run("short text comes back whole", func(t *testing.T) {
		chunks := chunkWords("one two three", 10, 2)
		if len(chunks) != 1 || chunks[0] != "one two three" {
			t.Errorf("chunkWords() = %v, want original text", chunks)
		}
	})

	t.Run("long text overlaps", func(t *testing.T) {
		words := make([]string, 25)
		for i := range words {
			words[i] = string(rune('a' + i))
		}
		text := strings.Join(words, " ")

		chunks := chunkWords(text, 10, 2)
		if len(chunks) != 3 {
			t.Fatalf("chunkWords() produced %d chunks, want 3", len(chunks))
		}
		// Last 2 words of a chunk open the next one.
		first := strings.Fields(chunks[0])
		second := strings.Fields(chunks[1])
		if first[8] != second[0] || first[9] != second[1] {
			t.Errorf("chunks do not overlap: %v / %v", first[8:], second[:2])
		}
	})
}
