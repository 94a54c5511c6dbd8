package contract

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// extractPDFText pulls the text-showing operators out of every page's
// content stream. Best effort: positioning is discarded and glyphs using
// custom encodings may come out garbled, which is acceptable for feeding
// an LLM rather than reflowing a layout.
func extractPDFText(path string) (string, int, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	ctx, err := api.ReadContext(f, conf)
	if err != nil {
		return "", 0, fmt.Errorf("failed to read PDF: %w", err)
	}
	if err := api.ValidateContext(ctx); err != nil {
		return "", 0, fmt.Errorf("failed to validate PDF: %w", err)
	}

	pageCount := ctx.PageCount
	var b strings.Builder
	for i := 1; i <= pageCount; i++ {
		r, err := pdfcpu.ExtractPageContent(ctx, i)
		if err != nil {
			return "", 0, fmt.Errorf("failed to extract page %d: %w", i, err)
		}
		if r == nil {
			continue
		}
		content, err := io.ReadAll(r)
		if err != nil {
			return "", 0, fmt.Errorf("failed to read page %d content: %w", i, err)
		}
		page := textFromContent(content)
		if page != "" {
			if b.Len() > 0 {
				b.WriteString("\n\n")
			}
			b.WriteString(page)
		}
	}
	return b.String(), pageCount, nil
}

// textFromContent scans a PDF content stream for literal strings fed to the
// text-showing operators (Tj, TJ, ', "). Strings inside a TJ array are
// joined without separators; separate show operations get a space between
// them, and ET (end text object) forces a line break.
func textFromContent(content []byte) string {
	var b strings.Builder
	var pending []string

	flush := func(sep string) {
		if len(pending) == 0 {
			return
		}
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(strings.Join(pending, ""))
		pending = nil
	}

	i := 0
	for i < len(content) {
		c := content[i]
		switch c {
		case '(':
			s, next := readLiteralString(content, i)
			pending = append(pending, s)
			i = next
			continue
		case 'T':
			if i+1 < len(content) && (content[i+1] == 'j' || content[i+1] == 'J') {
				flush(" ")
				i += 2
				continue
			}
		case '\'', '"':
			flush("\n")
		case 'E':
			if i+1 < len(content) && content[i+1] == 'T' {
				flush(" ")
				if b.Len() > 0 {
					b.WriteString("\n")
				}
				i += 2
				continue
			}
		}
		i++
	}
	flush(" ")
	return strings.TrimSpace(b.String())
}

// readLiteralString reads a parenthesized PDF string starting at the '(' at
// index start, returning the decoded string and the index just past the
// closing ')'. Handles escapes and balanced nested parentheses.
func readLiteralString(content []byte, start int) (string, int) {
	var b strings.Builder
	depth := 0
	i := start
	for i < len(content) {
		c := content[i]
		switch c {
		case '\\':
			if i+1 < len(content) {
				i++
				switch content[i] {
				case 'n':
					b.WriteByte('\n')
				case 'r':
					b.WriteByte('\r')
				case 't':
					b.WriteByte('\t')
				case '(', ')', '\\':
					b.WriteByte(content[i])
				default:
					// Octal escapes and line continuations dropped.
				}
			}
		case '(':
			depth++
			if depth > 1 {
				b.WriteByte(c)
			}
		case ')':
			depth--
			if depth == 0 {
				return b.String(), i + 1
			}
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
		i++
	}
	return b.String(), i
}
