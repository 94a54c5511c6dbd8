// Package contract loads contract documents and extracts their text for
// analysis. PDF, plain text, and markdown are supported.
package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// Document is a loaded contract ready for analysis.
type Document struct {
	Name  string // Sanitized base name without extension
	Path  string
	Text  string
	Pages int // 0 for non-paginated formats
}

// Supported extensions.
var textExtensions = map[string]bool{
	".txt": true,
	".md":  true,
}

// Load reads a contract file and extracts its text.
func Load(path string) (*Document, error) {
	ext := strings.ToLower(filepath.Ext(path))

	switch {
	case ext == ".pdf":
		text, pages, err := extractPDFText(path)
		if err != nil {
			return nil, fmt.Errorf("failed to extract PDF text: %w", err)
		}
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("no extractable text in %s (scanned PDF?)", filepath.Base(path))
		}
		return &Document{
			Name:  NameFromPath(path),
			Path:  path,
			Text:  text,
			Pages: pages,
		}, nil

	case textExtensions[ext]:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read contract: %w", err)
		}
		text := strings.TrimSpace(string(data))
		if text == "" {
			return nil, fmt.Errorf("contract %s is empty", filepath.Base(path))
		}
		return &Document{
			Name: NameFromPath(path),
			Path: path,
			Text: text,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported contract format: %s", ext)
	}
}

// FromText wraps raw contract text pasted by a caller.
func FromText(name, text string) (*Document, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("contract text is empty")
	}
	if name == "" {
		name = "contract"
	}
	return &Document{Name: sanitizeName(name), Text: text}, nil
}

// NameFromPath derives a sanitized contract name from a file path.
func NameFromPath(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return sanitizeName(base)
}

// sanitizeName keeps names safe for file paths and URLs: lowercase
// alphanumerics, dash, and underscore, everything else collapsed to a
// single underscore.
func sanitizeName(name string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		case !lastUnderscore:
			b.WriteRune('_')
			lastUnderscore = true
		}
	}
	out := strings.Trim(b.String(), "_")
	if out == "" {
		return "contract"
	}
	return out
}
