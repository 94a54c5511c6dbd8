// Package report persists finished analysis bundles as JSON plus a
// human-readable markdown rendering.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/danbryan/redline/internal/extract"
	"github.com/danbryan/redline/internal/stages"
)

// Store writes reports into a directory and serves them under a URL prefix.
type Store struct {
	dir       string
	urlPrefix string
	logger    *slog.Logger
}

// StoreConfig configures a report store.
type StoreConfig struct {
	Dir       string
	URLPrefix string // e.g. "/reports"
	Logger    *slog.Logger
}

// NewStore creates a report store, ensuring the directory exists.
func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("report directory not configured")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}
	if cfg.URLPrefix == "" {
		cfg.URLPrefix = "/reports"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Store{
		dir:       cfg.Dir,
		urlPrefix: strings.TrimRight(cfg.URLPrefix, "/"),
		logger:    cfg.Logger,
	}, nil
}

// Dir returns the directory reports are written to.
func (s *Store) Dir() string {
	return s.dir
}

// Save writes {name}_analysis.json and {name}_analysis.md, returning the
// JSON file name and its serving URL path.
func (s *Store) Save(ctx context.Context, name string, bundle *stages.Bundle) (string, string, error) {
	if name == "" {
		name = "contract"
	}

	jsonName := name + "_analysis.json"
	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("failed to encode report: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, jsonName), data, 0o644); err != nil {
		return "", "", fmt.Errorf("failed to write report: %w", err)
	}

	mdName := name + "_analysis.md"
	if err := os.WriteFile(filepath.Join(s.dir, mdName), []byte(RenderMarkdown(bundle)), 0o644); err != nil {
		return "", "", fmt.Errorf("failed to write markdown report: %w", err)
	}

	s.logger.Info("report saved", "contract", name, "file", jsonName)
	return jsonName, s.urlPrefix + "/" + jsonName, nil
}

// sections, in render order.
var sections = []struct {
	label string
	title string
}{
	{stages.LabelPurpose, "Purpose"},
	{stages.LabelCommercial, "Commercial Terms"},
	{stages.LabelLegalRisks, "Legal Risks"},
	{stages.LabelMitigations, "Mitigations"},
	{stages.LabelAlert, "Alert"},
	{stages.LabelPlain, "Plain-Language Summary"},
}

// RenderMarkdown produces the human-readable report. Structured sections
// that resolve cleanly render as bullet lists; everything else falls back
// to the raw stage text.
func RenderMarkdown(bundle *stages.Bundle) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Contract Analysis: %s\n\n", bundle.Meta.Contract)
	if bundle.Meta.Model != "" {
		fmt.Fprintf(&b, "Model: %s  \n", bundle.Meta.Model)
	}
	if !bundle.Meta.GeneratedAt.IsZero() {
		fmt.Fprintf(&b, "Generated: %s\n", bundle.Meta.GeneratedAt.Format("2006-01-02 15:04 UTC"))
	}
	b.WriteString("\n")

	for _, sec := range sections {
		raw := strings.TrimSpace(bundle.Section(sec.label))
		if raw == "" {
			continue
		}
		fmt.Fprintf(&b, "## %s\n\n", sec.title)
		b.WriteString(renderSection(sec.label, raw))
		b.WriteString("\n")
	}
	return b.String()
}

func renderSection(label, raw string) string {
	switch stages.ShapeFor(label) {
	case stages.ShapeArray:
		if items := extract.ResolveArray(raw); items != nil {
			return renderItems(items)
		}
	case stages.ShapeObject:
		if obj := extract.ResolveObject(raw); obj != nil {
			if label == stages.LabelPurpose {
				if summary, ok := obj["summary"].(string); ok && summary != "" {
					return summary + "\n"
				}
			}
			return renderObject(obj)
		}
	}
	return raw + "\n"
}

func renderItems(items []any) string {
	var b strings.Builder
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			fmt.Fprintf(&b, "- %v\n", item)
			continue
		}
		clause, _ := obj["clause"].(string)
		if clause != "" {
			fmt.Fprintf(&b, "- **%s**", clause)
			rest := detailFields(obj)
			if rest != "" {
				b.WriteString(": " + rest)
			}
			b.WriteString("\n")
			continue
		}
		fmt.Fprintf(&b, "- %s\n", detailFields(obj))
	}
	return b.String()
}

// detailFields joins the item's non-clause string fields in a stable order.
func detailFields(obj map[string]any) string {
	ordered := []string{"summary", "risk", "description", "severity", "fairness", "favours", "mitigation", "negotiation_points"}
	var parts []string
	for _, key := range ordered {
		if v, ok := obj[key].(string); ok && v != "" {
			if key == "severity" || key == "fairness" || key == "favours" {
				parts = append(parts, fmt.Sprintf("%s: %s", key, v))
			} else {
				parts = append(parts, v)
			}
		}
	}
	return strings.Join(parts, " | ")
}

func renderObject(obj map[string]any) string {
	data, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v\n", obj)
	}
	return "```json\n" + string(data) + "\n```\n"
}
