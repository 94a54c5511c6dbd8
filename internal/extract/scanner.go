// Package extract recovers structured JSON values from noisy model output.
//
// Model responses wrap JSON in markdown fences, prepend commentary, append
// sign-offs, and occasionally emit malformed enclosing structure. This
// package finds the value the model intended: fenced blocks first, then
// balanced-span slicing, then per-object recovery.
package extract

// scanState tracks position relative to double-quoted string literals so
// delimiters inside strings never affect nesting depth.
type scanState int

const (
	scanOutside scanState = iota
	scanInString
	scanEscaped
)

// scanSpan finds the first balanced span delimited by the given pair,
// scanning s left to right. Delimiters inside double-quoted strings are
// inert; backslash escapes are honored so an escaped quote does not end a
// string. Returns the start and one-past-end offsets, or ok=false if no
// balanced span completes.
func scanSpan(s string, open, close byte) (start, end int, ok bool) {
	state := scanOutside
	depth := 0
	start = -1

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch state {
		case scanInString:
			switch c {
			case '\\':
				state = scanEscaped
			case '"':
				state = scanOutside
			}
		case scanEscaped:
			state = scanInString
		default:
			switch c {
			case '"':
				state = scanInString
			case open:
				if depth == 0 {
					start = i
				}
				depth++
			case close:
				if depth > 0 {
					depth--
					if depth == 0 {
						return start, i + 1, true
					}
				}
			}
		}
	}
	return 0, 0, false
}

// firstSpan returns the first balanced top-level span for the delimiter pair.
func firstSpan(s string, open, close byte) (string, bool) {
	start, end, ok := scanSpan(s, open, close)
	if !ok {
		return "", false
	}
	return s[start:end], true
}

// allSpans returns every balanced top-level span for the delimiter pair, in
// document order. Spans do not overlap; scanning resumes after each completed
// span. An unterminated trailing span is dropped.
func allSpans(s string, open, close byte) []string {
	var spans []string
	for {
		start, end, ok := scanSpan(s, open, close)
		if !ok {
			return spans
		}
		spans = append(spans, s[start:end])
		s = s[end:]
	}
}
