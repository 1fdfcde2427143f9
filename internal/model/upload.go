// Package model contains the record types shared by extraction, validation,
// storage and the ingestion orchestrator.
package model

// Stage names a state of one ingestion. A successful run moves through
// received, extracting, validating-text, persisting and completed; failures
// during extraction or persistence branch into degraded-persist and end in
// completed-with-error.
type Stage string

const (
	StageReceived           Stage = "received"
	StageExtracting         Stage = "extracting"
	StageValidatingText     Stage = "validating-text"
	StagePersisting         Stage = "persisting"
	StageCompleted          Stage = "completed"
	StageDegradedPersist    Stage = "degraded-persist"
	StageCompletedWithError Stage = "completed-with-error"
)

// Stats describes extracted text. IsValid is the quality gate verdict.
type Stats struct {
	CharacterCount int  `json:"character_count"`
	WordCount      int  `json:"word_count"`
	LineCount      int  `json:"line_count"`
	NonEmptyLines  int  `json:"non_empty_lines"`
	IsValid        bool `json:"is_valid"`
}

// Violation is one field-level validation failure.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Metadata is the form_<id>.json document of an upload record. Exactly one
// of ExtractionStats and ExtractionError is set.
type Metadata struct {
	UploadID         string         `json:"upload_id"`
	FormData         map[string]any `json:"form_data"`
	CVFilename       string         `json:"cv_filename"`
	OriginalFilename string         `json:"original_filename,omitempty"`
	ContentType      string         `json:"content_type,omitempty"`
	Size             int64          `json:"size"`
	UploadTimestamp  string         `json:"upload_timestamp"`
	ExtractionMethod string         `json:"extraction_method,omitempty"`
	ExtractionStats  *Stats         `json:"extraction_stats,omitempty"`
	ExtractionError  string         `json:"extraction_error,omitempty"`
}

// Result is what a caller receives for one ingestion. TextURL is empty when
// the extracted text could not be written; Error is set on the degraded path.
type Result struct {
	UploadID        string `json:"upload_id"`
	CVFilename      string `json:"cv_filename"`
	CVURL           string `json:"cv_url,omitempty"`
	TextURL         string `json:"text_url,omitempty"`
	DataURL         string `json:"data_url,omitempty"`
	CVPath          string `json:"cv_path,omitempty"`
	TextPath        string `json:"text_path,omitempty"`
	DataPath        string `json:"data_path,omitempty"`
	ExtractionStats *Stats `json:"extraction_stats,omitempty"`
	Error           string `json:"error,omitempty"`
	Stage           Stage  `json:"stage"`
}

// Degraded reports whether the ingestion ended on the failure branch.
func (r *Result) Degraded() bool {
	return r.Error != ""
}

// UploadDetails is returned when an upload record is looked up by id.
type UploadDetails struct {
	UploadID      string    `json:"upload_id"`
	Metadata      *Metadata `json:"metadata"`
	TextAvailable bool      `json:"text_available"`
	CVAvailable   bool      `json:"cv_available"`
}

// UploadStats summarizes the storage namespace.
type UploadStats struct {
	TotalUploads   int    `json:"total_uploads"`
	StorageBackend string `json:"storage_backend"`
}
