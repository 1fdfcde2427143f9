package extract

import (
	"bytes"
	"fmt"
	"strings"

	pdf "github.com/ledongthuc/pdf"
	"github.com/sirupsen/logrus"
	rscpdf "rsc.io/pdf"
)

// extractPDF runs the PDF fallback chain: the ledongthuc reader first, then
// rsc.io/pdf if the primary is switched off or fails. A secondary failure is
// returned as is.
func (e *Extractor) extractPDF(data []byte) (string, error) {
	if !e.caps.PDFPrimary && !e.caps.PDFSecondary {
		return "", fmt.Errorf("%w: no PDF method available", ErrNoCapability)
	}
	if e.caps.PDFPrimary {
		text, err := guard(func() (string, error) { return pdfPrimary(data) })
		if err == nil {
			return text, nil
		}
		if !e.caps.PDFSecondary {
			return "", err
		}
		e.log.WithFields(logrus.Fields{"error": err}).Warn("primary pdf extraction failed, trying secondary")
	}
	text, err := guard(func() (string, error) { return pdfSecondary(data) })
	if err != nil {
		return "", fmt.Errorf("secondary pdf extraction: %w", err)
	}
	return text, nil
}

// pdfPrimary reads page text with ledongthuc/pdf.
func pdfPrimary(data []byte) (string, error) {
	doc, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("new pdf reader: %w", err)
	}
	total := doc.NumPage()
	pages := make([]string, 0, total)
	for page := 1; page <= total; page++ {
		p := doc.Page(page)
		if p.V.IsNull() {
			continue
		}
		content, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", page, err)
		}
		pages = append(pages, content)
	}
	return joinBlocks(pages), nil
}

// pdfSecondary walks the positioned glyphs of each page with rsc.io/pdf. The
// library drops space glyphs, so a word break is inferred from the gap to
// the previous glyph and a line break from a baseline change.
func pdfSecondary(data []byte) (string, error) {
	doc, err := rscpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	total := doc.NumPage()
	pages := make([]string, 0, total)
	for page := 1; page <= total; page++ {
		p := doc.Page(page)
		if p.V.IsNull() {
			continue
		}
		var b strings.Builder
		var prev rscpdf.Text
		for i, t := range p.Content().Text {
			switch {
			case i == 0:
			case t.Y != prev.Y:
				b.WriteByte('\n')
			case t.X-(prev.X+prev.W) > wordGap*t.FontSize:
				b.WriteByte(' ')
			}
			b.WriteString(t.S)
			prev = t
		}
		pages = append(pages, b.String())
	}
	return joinBlocks(pages), nil
}

// wordGap is the horizontal gap, as a fraction of the font size, read as a
// space between two glyphs.
const wordGap = 0.15

// guard converts a parser panic into an error. Both PDF libraries panic on
// some malformed inputs.
func guard(fn func() (string, error)) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("malformed document: %v", r)
		}
	}()
	return fn()
}

// joinBlocks trims every block, drops the empty ones and separates the rest
// with a blank line.
func joinBlocks(blocks []string) string {
	kept := make([]string, 0, len(blocks))
	for _, block := range blocks {
		if s := strings.TrimSpace(block); s != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, "\n\n")
}
