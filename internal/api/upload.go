package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dharsanguruparan/cvdrop/internal/ingest"
	"github.com/dharsanguruparan/cvdrop/internal/model"
	"github.com/dharsanguruparan/cvdrop/internal/queue"
	"github.com/dharsanguruparan/cvdrop/internal/schema"
	"github.com/dharsanguruparan/cvdrop/internal/validation"
)

const (
	fileField     = "cv_file"
	formField     = "form_data"
	maxFormSize   = 1 << 20
	multipartSlop = 64 << 10
)

var errTooLarge = errors.New("upload exceeds size limit")

type uploadedFile struct {
	name        string
	contentType string
	data        []byte
}

type fileInfo struct {
	Filename    string `json:"filename"`
	Size        int    `json:"size"`
	ContentType string `json:"content_type"`
}

type uploadResponse struct {
	Success            bool         `json:"success"`
	Message            string       `json:"message"`
	UploadID           string       `json:"upload_id"`
	CVURL              string       `json:"cv_url"`
	TextURL            string       `json:"text_url,omitempty"`
	DataURL            string       `json:"data_url"`
	Timestamp          string       `json:"timestamp"`
	FormFieldsReceived []string     `json:"form_fields_received"`
	FileInfo           fileInfo     `json:"file_info"`
	ExtractionStats    *model.Stats `json:"extraction_stats,omitempty"`
	ExtractionError    string       `json:"extraction_error,omitempty"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize+maxFormSize+multipartSlop)
	file, rawForm, err := s.readUpload(r)
	if errors.Is(err, errTooLarge) {
		respondError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("file too large: maximum size is %.1f MB", float64(s.cfg.Upload.MaxFileSize)/(1024*1024)))
		return
	}
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	form, err := schema.DecodeForm(rawForm)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON for form data")
		return
	}

	if err := s.files.Check(file.name, file.contentType, file.data); err != nil {
		switch {
		case errors.Is(err, validation.ErrFileTooLarge):
			respondError(w, http.StatusRequestEntityTooLarge, err.Error())
		case errors.Is(err, validation.ErrFileType):
			respondError(w, http.StatusUnsupportedMediaType, err.Error())
		default:
			respondError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	if violations := s.validator.Validate(form); len(violations) > 0 {
		respondError(w, http.StatusUnprocessableEntity, map[string]any{
			"message": "validation errors detected",
			"errors":  violations,
		})
		return
	}

	if async, _ := strconv.ParseBool(r.URL.Query().Get("async")); async && s.queue != nil {
		s.enqueueUpload(w, r, file, form)
		return
	}

	res, err := s.svc.Ingest(r.Context(), ingest.Request{
		Data:        file.data,
		FileName:    file.name,
		ContentType: file.contentType,
		Form:        form,
	})
	if err != nil {
		s.log.WithError(err).Error("ingestion failed")
		respondError(w, http.StatusInternalServerError, "failed to store the upload")
		return
	}

	resp := uploadResponse{
		Success:            true,
		Message:            "CV and form data saved",
		UploadID:           res.UploadID,
		CVURL:              res.CVURL,
		TextURL:            res.TextURL,
		DataURL:            res.DataURL,
		Timestamp:          s.now().UTC().Format(time.RFC3339),
		FormFieldsReceived: fieldNames(form),
		FileInfo:           fileInfo{Filename: file.name, Size: len(file.data), ContentType: file.contentType},
		ExtractionStats:    res.ExtractionStats,
	}
	if res.Degraded() {
		resp.Message = "CV saved, text extraction failed"
		resp.ExtractionError = res.Error
	}
	respondJSON(w, http.StatusCreated, resp)
}

func (s *Server) enqueueUpload(w http.ResponseWriter, r *http.Request, file *uploadedFile, form map[string]any) {
	requestID := uuid.NewString()
	taskID, err := queue.EnqueueIngest(r.Context(), s.queue, queue.IngestPayload{
		RequestID:   requestID,
		FileName:    file.name,
		ContentType: file.contentType,
		Data:        file.data,
		Form:        form,
	}, s.cfg.Queue.MaxRetry)
	if err != nil {
		s.log.WithFields(logrus.Fields{"request_id": requestID, "error": err}).Error("enqueue upload failed")
		respondError(w, http.StatusInternalServerError, "failed to queue the upload")
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]any{
		"success":              true,
		"message":              "upload queued for processing",
		"request_id":           requestID,
		"task_id":              taskID,
		"timestamp":            s.now().UTC().Format(time.RFC3339),
		"form_fields_received": fieldNames(form),
	})
}

// readUpload walks the multipart body and returns the file part and the raw
// form payload. Other parts are skipped.
func (s *Server) readUpload(r *http.Request) (*uploadedFile, []byte, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, nil, errors.New("expecting multipart form")
	}
	var (
		file    *uploadedFile
		rawForm []byte
	)
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, readError(err)
		}
		switch part.FormName() {
		case fileField:
			data, err := readLimited(part, s.cfg.Upload.MaxFileSize)
			if err != nil {
				part.Close()
				return nil, nil, err
			}
			file = &uploadedFile{
				name:        part.FileName(),
				contentType: part.Header.Get("Content-Type"),
				data:        data,
			}
		case formField:
			data, err := readLimited(part, maxFormSize)
			if err != nil {
				part.Close()
				return nil, nil, err
			}
			rawForm = data
		}
		part.Close()
	}
	if file == nil {
		return nil, nil, fmt.Errorf("missing %s file", fileField)
	}
	if rawForm == nil {
		return nil, nil, fmt.Errorf("missing %s field", formField)
	}
	return file, rawForm, nil
}

func readLimited(part *multipart.Part, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(part, limit+1))
	if err != nil {
		return nil, readError(err)
	}
	if int64(len(data)) > limit {
		return nil, errTooLarge
	}
	return data, nil
}

func readError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return errTooLarge
	}
	return fmt.Errorf("read multipart body: %w", err)
}

func fieldNames(form map[string]any) []string {
	names := make([]string, 0, len(form))
	for k := range form {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
