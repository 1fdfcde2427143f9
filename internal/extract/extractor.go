// Package extract turns submitted documents into plain text. It dispatches on
// the file-name suffix to a PDF, Word or plain-text extractor, each with its
// own fallback chain, and scores the result with a quality gate.
package extract

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// Extraction methods reported by Extractor.Method.
const (
	MethodPDF         = "pdf"
	MethodWord        = "word"
	MethodText        = "text"
	MethodPDFFallback = "pdf-fallback"
)

// Extractor is the text extraction dispatcher.
type Extractor struct {
	caps Capabilities
	log  logrus.FieldLogger
}

// New builds an Extractor over a resolved capability table.
func New(caps Capabilities, log logrus.FieldLogger) *Extractor {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Extractor{caps: caps, log: log}
}

// Capabilities returns the availability table the extractor was built with.
func (e *Extractor) Capabilities() Capabilities {
	return e.caps
}

// Method reports which extractor the suffix of fileName selects.
func (e *Extractor) Method(fileName string) string {
	switch suffix(fileName) {
	case ".pdf":
		return MethodPDF
	case ".docx", ".doc":
		return MethodWord
	case ".txt":
		return MethodText
	default:
		return MethodPDFFallback
	}
}

// Extract returns the normalized text of data. Every failure comes back as an
// *ExtractionError naming fileName.
func (e *Extractor) Extract(data []byte, fileName string) (string, error) {
	if len(data) == 0 {
		return "", &ExtractionError{FileName: fileName, Err: ErrEmptyContent}
	}
	text, err := e.dispatch(data, fileName)
	if err != nil {
		e.log.WithFields(logrus.Fields{"file_name": fileName, "error": err}).Error("text extraction failed")
		return "", &ExtractionError{FileName: fileName, Err: err}
	}
	return text, nil
}

func (e *Extractor) dispatch(data []byte, fileName string) (string, error) {
	switch e.Method(fileName) {
	case MethodPDF:
		return e.extractPDF(data)
	case MethodWord:
		return e.extractWord(data)
	case MethodText:
		return DecodeText(data), nil
	}
	// Most submissions are PDFs even when mislabeled.
	text, err := e.extractPDF(data)
	if err != nil {
		ext := suffix(fileName)
		if ext == "" {
			ext = "(none)"
		}
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
	return text, nil
}

func suffix(fileName string) string {
	return strings.ToLower(filepath.Ext(fileName))
}
