package validation

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	// ErrEmptyFile is returned for a zero-byte upload.
	ErrEmptyFile = errors.New("empty file")
	// ErrFileTooLarge is returned when the upload exceeds the size limit.
	ErrFileTooLarge = errors.New("file too large")
	// ErrFileType is returned when neither the extension nor the content
	// type is accepted.
	ErrFileType = errors.New("file type not allowed")
)

const (
	docxType    = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	maxNameSize = 255
)

// FileValidator polices uploads before they reach the ingestion pipeline.
type FileValidator struct {
	MaxSize           int64
	AllowedTypes      []string
	AllowedExtensions []string
}

// Check rejects empty or oversized files, unknown extensions, and content
// whose declared and sniffed types are both outside the allowed list.
func (v *FileValidator) Check(name, contentType string, data []byte) error {
	if len(data) == 0 {
		return ErrEmptyFile
	}
	if v.MaxSize > 0 && int64(len(data)) > v.MaxSize {
		return fmt.Errorf("%w: maximum size is %.1f MB", ErrFileTooLarge, float64(v.MaxSize)/(1024*1024))
	}
	ext := strings.ToLower(filepath.Ext(name))
	if !contains(v.AllowedExtensions, ext) {
		return fmt.Errorf("%w: extension %q not accepted", ErrFileType, ext)
	}
	if declared := baseType(contentType); declared != "" && contains(v.AllowedTypes, declared) {
		return nil
	}
	if sniffed := SniffType(name, data); contains(v.AllowedTypes, sniffed) {
		return nil
	}
	return fmt.Errorf("%w: content does not look like an accepted document", ErrFileType)
}

// SniffType guesses the MIME type of data. A PDF header wins; a zip archive
// named .docx is taken for a Word document.
func SniffType(name string, data []byte) string {
	if bytes.HasPrefix(data, []byte("%PDF-")) {
		return "application/pdf"
	}
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	sniffed := baseType(http.DetectContentType(head))
	if sniffed == "application/zip" && strings.EqualFold(filepath.Ext(name), ".docx") {
		return docxType
	}
	return sniffed
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9_.\-]`)

// SanitizeFileName replaces every character outside [A-Za-z0-9_.-] with an
// underscore and caps the name at 255 bytes, keeping the extension.
func SanitizeFileName(name string) string {
	if strings.TrimSpace(name) == "" {
		return ""
	}
	cleaned := unsafeNameChars.ReplaceAllString(filepath.Base(name), "_")
	if len(cleaned) <= maxNameSize {
		return cleaned
	}
	ext := filepath.Ext(cleaned)
	if len(ext) >= maxNameSize {
		return cleaned[:maxNameSize]
	}
	return cleaned[:maxNameSize-len(ext)] + ext
}

func baseType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mt
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}
