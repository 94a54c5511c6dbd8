package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadTextFormats(t *testing.T) {
	dir := t.TempDir()

	t.Run("plain text", func(t *testing.T) {
		path := filepath.Join(dir, "Master Services Agreement.txt")
		if err := os.WriteFile(path, []byte("  This Agreement is made...  \n"), 0o644); err != nil {
			t.Fatal(err)
		}
		doc, err := Load(path)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if doc.Name != "master_services_agreement" {
			t.Errorf("Name = %q", doc.Name)
		}
		if doc.Text != "This Agreement is made..." {
			t.Errorf("Text = %q", doc.Text)
		}
		if doc.Pages != 0 {
			t.Errorf("Pages = %d, want 0", doc.Pages)
		}
	})

	t.Run("markdown", func(t *testing.T) {
		path := filepath.Join(dir, "nda.md")
		if err := os.WriteFile(path, []byte("# NDA\n\nBoth parties agree..."), 0o644); err != nil {
			t.Fatal(err)
		}
		doc, err := Load(path)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if !strings.Contains(doc.Text, "Both parties agree") {
			t.Errorf("Text = %q", doc.Text)
		}
	})

	t.Run("empty file rejected", func(t *testing.T) {
		path := filepath.Join(dir, "empty.txt")
		if err := os.WriteFile(path, []byte("   \n"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path); err == nil {
			t.Error("Load() expected error for empty contract")
		}
	})

	t.Run("unsupported extension rejected", func(t *testing.T) {
		if _, err := Load(filepath.Join(dir, "contract.docx")); err == nil {
			t.Error("Load() expected error for unsupported format")
		}
	})
}

func TestFromText(t *testing.T) {
	doc, err := FromText("My Contract!", "lease terms here")
	if err != nil {
		t.Fatalf("FromText() error = %v", err)
	}
	if doc.Name != "my_contract" {
		t.Errorf("Name = %q", doc.Name)
	}

	if _, err := FromText("x", "   "); err == nil {
		t.Error("FromText() expected error for empty text")
	}

	doc, err = FromText("", "some text")
	if err != nil {
		t.Fatalf("FromText() error = %v", err)
	}
	if doc.Name != "contract" {
		t.Errorf("Name = %q, want contract", doc.Name)
	}
}

func TestSanitizeName(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Master Services Agreement", "master_services_agreement"},
		{"NDA (v2) FINAL", "nda_v2_final"},
		{"already-safe_name", "already-safe_name"},
		{"///", "contract"},
	}
	for _, c := range cases {
		if got := sanitizeName(c.in); got != c.want {
			t.Errorf("sanitizeName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

// writeMinimalPDF writes a one-page PDF with an uncompressed content stream
// showing the given text, with a correct xref table so the parser accepts it.
func writeMinimalPDF(t *testing.T, path, text string) {
	t.Helper()

	content := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	}

	var b strings.Builder
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n", len(objects)+1)
	b.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(objects)+1, xref)

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Service Agreement.pdf")
	writeMinimalPDF(t, path, "Payment is due within 90 days.")

	doc, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if doc.Name != "service_agreement" {
		t.Errorf("Name = %q", doc.Name)
	}
	if doc.Pages != 1 {
		t.Errorf("Pages = %d, want 1", doc.Pages)
	}
	if !strings.Contains(doc.Text, "Payment is due within 90 days.") {
		t.Errorf("Text = %q", doc.Text)
	}
}

func TestTextFromContent(t *testing.T) {
	t.Run("Tj operators", func(t *testing.T) {
		stream := []byte(`BT /F1 12 Tf (Hello) Tj (World) Tj ET`)
		got := textFromContent(stream)
		if got != "Hello World" {
			t.Errorf("textFromContent() = %q, want %q", got, "Hello World")
		}
	})

	t.Run("TJ array joins fragments", func(t *testing.T) {
		stream := []byte(`BT [(Con)(tract)] TJ ET`)
		got := textFromContent(stream)
		if got != "Contract" {
			t.Errorf("textFromContent() = %q, want %q", got, "Contract")
		}
	})

	t.Run("escapes and nested parens", func(t *testing.T) {
		stream := []byte(`BT (a \(quoted\) term) Tj ET`)
		got := textFromContent(stream)
		if got != "a (quoted) term" {
			t.Errorf("textFromContent() = %q", got)
		}
	})

	t.Run("no text operators", func(t *testing.T) {
		if got := textFromContent([]byte("0 0 m 100 100 l S")); got != "" {
			t.Errorf("textFromContent() = %q, want empty", got)
		}
	})
}
