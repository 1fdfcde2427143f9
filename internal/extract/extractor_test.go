package extract

import (
	"errors"
	"strings"
	"testing"

	"github.com/dharsanguruparan/cvdrop/internal/extract/extracttest"
	"github.com/dharsanguruparan/cvdrop/internal/logging"
)

func newTestExtractor(disabled ...string) *Extractor {
	return New(ProbeCapabilities(disabled), logging.Discard())
}

func TestMethodBySuffix(t *testing.T) {
	e := newTestExtractor()
	cases := map[string]string{
		"cv.pdf":         MethodPDF,
		"CV.PDF":         MethodPDF,
		"cv.docx":        MethodWord,
		"cv.DOC":         MethodWord,
		"notes.txt":      MethodText,
		"resume.odt":     MethodPDFFallback,
		"resume":         MethodPDFFallback,
		"archive.tar.gz": MethodPDFFallback,
	}
	for name, want := range cases {
		if got := e.Method(name); got != want {
			t.Fatalf("Method(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestExtractEmptyContent(t *testing.T) {
	for _, name := range []string{"cv.pdf", "cv.docx", "cv.txt", "cv.bin"} {
		_, err := newTestExtractor().Extract(nil, name)
		if !errors.Is(err, ErrEmptyContent) {
			t.Fatalf("%s: expected ErrEmptyContent, got %v", name, err)
		}
		var xerr *ExtractionError
		if !errors.As(err, &xerr) || xerr.FileName != name {
			t.Fatalf("%s: expected ExtractionError tagged with file name, got %v", name, err)
		}
	}
}

func TestExtractPDFPages(t *testing.T) {
	data := extracttest.PDF("Jane Doe\nBackend engineer", "Experience at Acme")
	text, err := newTestExtractor().Extract(data, "CV.PDF")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	blocks := strings.Split(text, "\n\n")
	if len(blocks) != 2 {
		t.Fatalf("expected two page blocks, got %q", text)
	}
	if !strings.Contains(blocks[0], "Jane Doe") || !strings.Contains(blocks[1], "Acme") {
		t.Fatalf("unexpected page text %q", text)
	}
	for _, b := range blocks {
		if b != strings.TrimSpace(b) {
			t.Fatalf("page block not trimmed: %q", b)
		}
	}
}

func TestExtractPDFSecondaryOnly(t *testing.T) {
	data := extracttest.PDF("Jane Doe")
	text, err := newTestExtractor(CapPDFPrimary).Extract(data, "cv.pdf")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !strings.Contains(text, "Jane") || !strings.Contains(text, "Doe") {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestExtractPDFNoCapability(t *testing.T) {
	_, err := newTestExtractor(CapPDFPrimary, CapPDFSecondary).Extract(extracttest.PDF("x"), "cv.pdf")
	if !errors.Is(err, ErrNoCapability) {
		t.Fatalf("expected ErrNoCapability, got %v", err)
	}
}

func TestExtractMalformedPDF(t *testing.T) {
	_, err := newTestExtractor().Extract([]byte("%PDF-1.4 this is not really a pdf"), "cv.pdf")
	var xerr *ExtractionError
	if !errors.As(err, &xerr) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
	if !strings.Contains(err.Error(), "cv.pdf") {
		t.Fatalf("expected file name in error, got %q", err)
	}
}

func TestExtractWordParagraphsThenTables(t *testing.T) {
	body := extracttest.Paragraph("  Jane Doe  ") +
		extracttest.Table([][]string{{"Skill", "Go"}, {"", "SQL"}, {"", " "}}) +
		extracttest.Paragraph("") +
		extracttest.Paragraph("Paris, France")
	text, err := newTestExtractor().Extract(extracttest.DOCXFromBody(body), "cv.docx")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	want := "Jane Doe\n\nParis, France\n\nSkill | Go\n\nSQL"
	if text != want {
		t.Fatalf("got %q, want %q", text, want)
	}
}

func TestExtractWordSkipsTextBoxes(t *testing.T) {
	textBox := `<w:txbxContent><w:p><w:r><w:t>Box</w:t></w:r></w:p></w:txbxContent>`
	body := `<w:p><w:r><w:t xml:space="preserve">Contact: </w:t></w:r><w:r>` +
		`<mc:AlternateContent xmlns:mc="http://schemas.openxmlformats.org/markup-compatibility/2006">` +
		`<mc:Choice Requires="wps"><w:drawing>` + textBox + `</w:drawing></mc:Choice>` +
		`<mc:Fallback><w:pict>` + textBox + `</w:pict></mc:Fallback>` +
		`</mc:AlternateContent></w:r><w:r><w:t>Paris</w:t></w:r></w:p>` +
		extracttest.Paragraph("Go engineer")
	text, err := newTestExtractor().Extract(extracttest.DOCXFromBody(body), "cv.docx")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	want := "Contact: Paris\n\nGo engineer"
	if text != want {
		t.Fatalf("got %q, want %q", text, want)
	}
}

func TestExtractWordNestedTableStaysInCell(t *testing.T) {
	nested := extracttest.Table([][]string{{"inner1", "inner2"}})
	body := `<w:tbl><w:tr><w:tc>` + extracttest.Paragraph("outer") + nested + `</w:tc>` +
		`<w:tc>` + extracttest.Paragraph("right") + `</w:tc></w:tr></w:tbl>`
	text, err := newTestExtractor().Extract(extracttest.DOCXFromBody(body), "cv.docx")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if text != "outer | right" {
		t.Fatalf("got %q, want %q", text, "outer | right")
	}
}

func TestExtractWordDisabled(t *testing.T) {
	data := extracttest.DOCX([]string{"Jane"}, nil)
	_, err := newTestExtractor(CapWord).Extract(data, "cv.docx")
	if !errors.Is(err, ErrNoCapability) {
		t.Fatalf("expected ErrNoCapability, got %v", err)
	}
}

func TestExtractLegacyDocFails(t *testing.T) {
	legacy := []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1, 0, 0, 0, 0}
	_, err := newTestExtractor().Extract(legacy, "cv.doc")
	var xerr *ExtractionError
	if !errors.As(err, &xerr) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
}

func TestExtractText(t *testing.T) {
	text, err := newTestExtractor().Extract([]byte("\n  Jane Doe\nGo developer  \n"), "cv.TXT")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if text != "Jane Doe\nGo developer" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestExtractUnknownSuffixTriesPDF(t *testing.T) {
	text, err := newTestExtractor().Extract(extracttest.PDF("Jane Doe"), "upload.bin")
	if err != nil {
		t.Fatalf("expected PDF fallback to succeed, got %v", err)
	}
	if !strings.Contains(text, "Jane Doe") {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestExtractUnknownSuffixUnsupported(t *testing.T) {
	_, err := newTestExtractor().Extract([]byte("plain words"), "resume.odt")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	if !strings.Contains(err.Error(), ".odt") {
		t.Fatalf("expected suffix in error, got %q", err)
	}

	_, err = newTestExtractor().Extract([]byte("plain words"), "resume")
	if !errors.Is(err, ErrUnsupportedFormat) || !strings.Contains(err.Error(), "(none)") {
		t.Fatalf("expected unsupported format without suffix, got %v", err)
	}
}
