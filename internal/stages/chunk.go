package stages

import "strings"

// chunkWords splits text into word-count chunks with overlap between
// consecutive chunks, approximating token-based chunking without a model
// tokenizer. Text at or under the chunk size comes back whole.
func chunkWords(text string, chunkWordCount, overlap int) []string {
	if text == "" {
		return []string{""}
	}
	if chunkWordCount <= 0 {
		return []string{text}
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkWordCount {
		overlap = chunkWordCount / 2
	}

	words := strings.Fields(text)
	if len(words) <= chunkWordCount {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(words) {
		end := start + chunkWordCount
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
		start = end - overlap
	}
	return chunks
}
