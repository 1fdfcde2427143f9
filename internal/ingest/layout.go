package ingest

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dharsanguruparan/cvdrop/internal/validation"
)

const (
	// OriginalsFolder holds every submitted file.
	OriginalsFolder = "cv"
	// DefaultFileName is used when the caller supplies no usable name.
	DefaultFileName = "cv.pdf"
	// SentinelText replaces extracted text that fails the quality gate.
	SentinelText = "[EXTRACTION_FAILED] Extracted text is empty or below quality thresholds."
)

// StoredFileName inserts _<id> before the extension of the sanitized name.
func StoredFileName(original, id string) string {
	name := validation.SanitizeFileName(original)
	if name == "" || name == "." || name == ".." {
		name = DefaultFileName
	}
	ext := filepath.Ext(name)
	return fmt.Sprintf("%s_%s%s", strings.TrimSuffix(name, ext), id, ext)
}

// TextFileName is the name of the extracted text in the upload folder.
func TextFileName(id string) string {
	return "extracted_" + id + ".txt"
}

// MetadataFileName is the name of the metadata document in the upload folder.
func MetadataFileName(id string) string {
	return "form_" + id + ".json"
}
