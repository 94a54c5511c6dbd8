package extract

import (
	"encoding/json"
	"strings"
)

// ResolveObject recovers a JSON object from a raw model output section.
// Candidate blocks are tried in document order, each through a tiered
// fallback: direct parse, then a slice to the first balanced object span.
// Returns nil when nothing resolves; callers fall back to the raw text.
func ResolveObject(raw string) map[string]any {
	for _, block := range candidateBlocks(raw) {
		var obj map[string]any
		if err := json.Unmarshal([]byte(block), &obj); err == nil {
			return obj
		}
	}
	for _, block := range candidateBlocks(raw) {
		span, ok := firstSpan(block, '{', '}')
		if !ok {
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal([]byte(span), &obj); err == nil {
			return obj
		}
	}
	return nil
}

// ResolveArray recovers a JSON array from a raw model output section.
// Candidate blocks are tried in document order through a tiered fallback:
// direct parse, a slice to the first balanced array span, and finally
// recovery mode, which collects every independently-valid object span even
// when the enclosing array is malformed (missing commas, unterminated
// bracket). Returns nil when nothing resolves.
func ResolveArray(raw string) []any {
	for _, block := range candidateBlocks(raw) {
		var arr []any
		if err := json.Unmarshal([]byte(block), &arr); err == nil {
			return arr
		}
	}
	for _, block := range candidateBlocks(raw) {
		span, ok := firstSpan(block, '[', ']')
		if !ok {
			continue
		}
		var arr []any
		if err := json.Unmarshal([]byte(span), &arr); err == nil {
			return arr
		}
	}
	for _, block := range candidateBlocks(raw) {
		if items := recoverObjects(block); len(items) > 0 {
			return items
		}
	}
	return nil
}

// candidateBlocks returns the blocks to attempt parsing, preferring fenced
// content. Without any fence the whole trimmed section is the sole candidate,
// so bare JSON and bracketed content inside prose still resolve.
func candidateBlocks(raw string) []string {
	if blocks := fencedBlocks(raw); len(blocks) > 0 {
		return blocks
	}
	if trimmed := strings.TrimSpace(raw); trimmed != "" {
		return []string{trimmed}
	}
	return nil
}

// recoverObjects scans for every balanced object span and keeps the ones
// that parse on their own, in document order.
func recoverObjects(block string) []any {
	var items []any
	for _, span := range allSpans(block, '{', '}') {
		var obj map[string]any
		if err := json.Unmarshal([]byte(span), &obj); err == nil {
			items = append(items, obj)
		}
	}
	return items
}
