// Package queue defines the asynq task used for queued ingestion.
package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/cvdrop/internal/config"
)

const (
	// IngestTask is scheduled for each upload accepted in asynchronous mode.
	IngestTask = "cv:ingest"
)

// IngestPayload carries a whole submission: the worker has no other way to
// reach the uploaded bytes before they are persisted.
type IngestPayload struct {
	RequestID   string         `json:"upload_request_id"`
	FileName    string         `json:"file_name"`
	ContentType string         `json:"content_type"`
	Data        []byte         `json:"data"`
	Form        map[string]any `json:"form"`
}

// RedisOpt converts the queue settings into asynq connection options.
func RedisOpt(cfg config.QueueConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
}

// NewTask builds the asynq task for payload. The request id doubles as the
// task id so a resubmitted request is not queued twice.
func NewTask(payload IngestPayload, maxRetry int) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	opts := []asynq.Option{asynq.MaxRetry(maxRetry)}
	if payload.RequestID != "" {
		opts = append(opts, asynq.TaskID(payload.RequestID))
	}
	return asynq.NewTask(IngestTask, data, opts...), nil
}

// EnqueueIngest enqueues an ingestion job and returns the task id.
func EnqueueIngest(ctx context.Context, client *asynq.Client, payload IngestPayload, maxRetry int) (string, error) {
	task, err := NewTask(payload, maxRetry)
	if err != nil {
		return "", err
	}
	info, err := client.EnqueueContext(ctx, task)
	if err != nil {
		return "", fmt.Errorf("enqueue ingest task: %w", err)
	}
	return info.ID, nil
}

// DecodePayload reads an ingestion payload back. Form numbers stay
// json.Number so the stored form matches the submission.
func DecodePayload(data []byte) (IngestPayload, error) {
	var p IngestPayload
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&p); err != nil {
		return p, fmt.Errorf("decode payload: %w", err)
	}
	return p, nil
}
