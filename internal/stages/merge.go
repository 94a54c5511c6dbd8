package stages

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// maxMergedItems caps merged risk and mitigation lists.
const maxMergedItems = 8

// Verdict is the derived exploitative-contract decision.
type Verdict struct {
	Exploitative     bool     `json:"exploitative"`
	Rationale        string   `json:"rationale"`
	TopUnfairClauses []string `json:"top_unfair_clauses"`
}

func itemString(item any, key string) string {
	obj, ok := item.(map[string]any)
	if !ok {
		return ""
	}
	s, _ := obj[key].(string)
	return s
}

// riskScore ranks a risk by severity, with a bump for unfair clauses.
func riskScore(item any) int {
	score := 0
	switch strings.ToLower(itemString(item, "severity")) {
	case "high":
		score = 3
	case "medium":
		score = 2
	case "low":
		score = 1
	}
	if strings.EqualFold(itemString(item, "fairness"), "unfair") {
		score++
	}
	return score
}

// MergeRisks deduplicates risks by normalized clause, keeping the
// highest-scoring duplicate, and returns the top items ranked by score.
func MergeRisks(items []any) []any {
	byClause := make(map[string]any)
	order := make([]string, 0, len(items))
	for _, item := range items {
		clause := strings.TrimSpace(itemString(item, "clause"))
		if clause == "" {
			continue
		}
		key := strings.ToLower(clause)
		existing, seen := byClause[key]
		if !seen {
			order = append(order, key)
			byClause[key] = item
			continue
		}
		if riskScore(item) > riskScore(existing) {
			byClause[key] = item
		}
	}

	merged := make([]any, 0, len(order))
	for _, key := range order {
		merged = append(merged, byClause[key])
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return riskScore(merged[i]) > riskScore(merged[j])
	})
	if len(merged) > maxMergedItems {
		merged = merged[:maxMergedItems]
	}
	return merged
}

// AlignMitigations orders mitigations so those addressing the given risk
// clauses come first, deduplicates by clause, and caps the list.
func AlignMitigations(items []any, riskClauses []string) []any {
	wanted := make(map[string]bool, len(riskClauses))
	for _, c := range riskClauses {
		wanted[strings.ToLower(c)] = true
	}

	seen := make(map[string]bool)
	picked := make([]any, 0, maxMergedItems)

	appendItem := func(item any, match bool) {
		clause := strings.TrimSpace(itemString(item, "clause"))
		if clause == "" || len(picked) >= maxMergedItems {
			return
		}
		key := strings.ToLower(clause)
		if seen[key] || wanted[key] != match {
			return
		}
		seen[key] = true
		picked = append(picked, item)
	}

	for _, item := range items {
		appendItem(item, true)
	}
	for _, item := range items {
		appendItem(item, false)
	}
	return picked
}

// RiskClauses extracts the clause names from a merged risk list.
func RiskClauses(risks []any) []string {
	clauses := make([]string, 0, len(risks))
	for _, r := range risks {
		if c := itemString(r, "clause"); c != "" {
			clauses = append(clauses, c)
		}
	}
	return clauses
}

// DeriveAlert computes the exploitative verdict from merged risks: one
// high-severity unfair clause, or three unfair clauses overall, tips the
// decision. Returns the verdict and its canonical JSON encoding (the raw
// text recorded as the alert partial).
func DeriveAlert(risks []any) (Verdict, string) {
	var unfair, highUnfair int
	for _, r := range risks {
		if !strings.EqualFold(itemString(r, "fairness"), "unfair") {
			continue
		}
		unfair++
		if strings.EqualFold(itemString(r, "severity"), "high") {
			highUnfair++
		}
	}

	v := Verdict{
		Exploitative: highUnfair >= 1 || unfair >= 3,
	}
	for i, r := range risks {
		if i >= 5 {
			break
		}
		if c := itemString(r, "clause"); c != "" {
			v.TopUnfairClauses = append(v.TopUnfairClauses, c)
		}
	}

	verdict := "Overall balanced/negotiable."
	if v.Exploitative {
		verdict = "Leans exploitative."
	}
	v.Rationale = fmt.Sprintf("%d unfair clause(s), %d high severity. %s", unfair, highUnfair, verdict)

	raw, _ := json.Marshal(v)
	return v, string(raw)
}
