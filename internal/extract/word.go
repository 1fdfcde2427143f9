package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	wordDocumentPart = "word/document.xml"
	wordNamespace    = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
)

// extractWord reads the body paragraphs of an OOXML document in order, then
// appends every table row as its non-empty cells joined by " | ".
func (e *Extractor) extractWord(data []byte) (string, error) {
	if !e.caps.Word {
		return "", fmt.Errorf("%w: word document support unavailable", ErrNoCapability)
	}
	part, err := openWordPart(data)
	if err != nil {
		return "", err
	}
	defer part.Close()
	paragraphs, rows, err := parseWordBody(part)
	if err != nil {
		return "", fmt.Errorf("parse word document: %w", err)
	}
	return joinBlocks(append(paragraphs, rows...)), nil
}

func openWordPart(data []byte) (io.ReadCloser, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open word document: %w", err)
	}
	for _, f := range zr.File {
		if f.Name == wordDocumentPart {
			rc, err := f.Open()
			if err != nil {
				return nil, fmt.Errorf("open %s: %w", wordDocumentPart, err)
			}
			return rc, nil
		}
	}
	return nil, fmt.Errorf("open word document: %s not found", wordDocumentPart)
}

// wordWalker accumulates text while streaming document.xml tokens. Text
// boxes (w:txbxContent) and the mc:Fallback copy of alternate content are
// skipped whole, so only body paragraphs and table cells are read.
type wordWalker struct {
	paragraphs []string
	rows       []string

	skipDepth  int
	tableDepth int
	inText     bool
	para       strings.Builder
	cellParas  []string
	rowCells   []string
}

func parseWordBody(r io.Reader) (paragraphs, rows []string, err error) {
	w := &wordWalker{}
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if w.skipDepth > 0 || skippedWordElement(t.Name) {
				w.skipDepth++
				continue
			}
			w.start(t.Name)
		case xml.EndElement:
			if w.skipDepth > 0 {
				w.skipDepth--
				continue
			}
			w.end(t.Name)
		case xml.CharData:
			if w.inText && w.skipDepth == 0 {
				w.para.Write(t)
			}
		}
	}
	return w.paragraphs, w.rows, nil
}

// skippedWordElement reports whether the subtree rooted at name holds content
// that is not part of the body text flow.
func skippedWordElement(name xml.Name) bool {
	switch name.Local {
	case "txbxContent", "Fallback":
		return true
	}
	return false
}

func (w *wordWalker) start(name xml.Name) {
	if name.Space != wordNamespace {
		return
	}
	switch name.Local {
	case "tbl":
		w.tableDepth++
	case "tr":
		if w.tableDepth == 1 {
			w.rowCells = w.rowCells[:0]
		}
	case "tc":
		if w.tableDepth == 1 {
			w.cellParas = w.cellParas[:0]
		}
	case "p":
		w.para.Reset()
	case "t":
		w.inText = true
	case "tab":
		w.para.WriteByte('\t')
	case "br", "cr":
		w.para.WriteByte('\n')
	}
}

func (w *wordWalker) end(name xml.Name) {
	if name.Space != wordNamespace {
		return
	}
	switch name.Local {
	case "t":
		w.inText = false
	case "p":
		text := strings.TrimSpace(w.para.String())
		w.para.Reset()
		if w.tableDepth == 0 {
			if text != "" {
				w.paragraphs = append(w.paragraphs, text)
			}
			return
		}
		if w.tableDepth == 1 {
			w.cellParas = append(w.cellParas, text)
		}
	case "tc":
		if w.tableDepth == 1 {
			if cell := strings.TrimSpace(strings.Join(w.cellParas, "\n")); cell != "" {
				w.rowCells = append(w.rowCells, cell)
			}
		}
	case "tr":
		if w.tableDepth == 1 && len(w.rowCells) > 0 {
			w.rows = append(w.rows, strings.Join(w.rowCells, " | "))
		}
	case "tbl":
		w.tableDepth--
	}
}
