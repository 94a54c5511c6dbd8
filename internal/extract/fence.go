package extract

import "strings"

const fenceMarker = "```"

// fencedBlocks returns the trimmed contents of every ```json-tagged code
// block in raw, in document order. When no json-tagged block exists it falls
// back to every generic ``` block. An unterminated final fence runs to the
// end of the text.
func fencedBlocks(raw string) []string {
	tagged := blocksWithTag(raw, "json")
	if len(tagged) > 0 {
		return tagged
	}
	return blocksWithTag(raw, "")
}

// blocksWithTag extracts fenced blocks whose info string matches tag.
// An empty tag matches any fence.
func blocksWithTag(raw, tag string) []string {
	var blocks []string
	rest := raw
	for {
		start := strings.Index(rest, fenceMarker)
		if start < 0 {
			return blocks
		}
		rest = rest[start+len(fenceMarker):]

		// The info string runs to the first newline (or whitespace for
		// fences written inline).
		info := rest
		if nl := strings.IndexAny(info, " \t\n"); nl >= 0 {
			info = info[:nl]
		}
		if idx := strings.Index(info, fenceMarker); idx >= 0 {
			info = info[:idx]
		}

		body := rest[len(info):]
		end := strings.Index(body, fenceMarker)
		if end < 0 {
			// Unterminated fence: take everything to the end.
			if content := strings.TrimSpace(body); matchTag(info, tag) && content != "" {
				blocks = append(blocks, content)
			}
			return blocks
		}

		content := strings.TrimSpace(body[:end])
		rest = body[end+len(fenceMarker):]
		if matchTag(info, tag) && content != "" {
			blocks = append(blocks, content)
		}
	}
}

func matchTag(info, tag string) bool {
	if tag == "" {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(info), tag)
}
