package config

import (
	"reflect"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Fatalf("Load without environment differs from Default:\n%+v\n%+v", cfg, Default())
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("CVDROP_SERVER_ADDRESS", ":9090")
	t.Setenv("CVDROP_SERVER_ALLOWED_ORIGINS", "https://jobs.example.com, ")
	t.Setenv("CVDROP_EXTRACTION_MIN_TEXT_LENGTH", "20")
	t.Setenv("CVDROP_EXTRACTION_DISABLED", "word,pdf-primary")
	t.Setenv("CVDROP_STORAGE_BACKEND", " Memory ")
	t.Setenv("CVDROP_STORAGE_PUBLIC_PREFIX", "files/")
	t.Setenv("CVDROP_QUEUE_CONCURRENCY", "0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Address != ":9090" {
		t.Fatalf("address = %q", cfg.Server.Address)
	}
	if !reflect.DeepEqual(cfg.Server.AllowedOrigins, []string{"https://jobs.example.com"}) {
		t.Fatalf("origins = %v", cfg.Server.AllowedOrigins)
	}
	if cfg.Extraction.MinTextLength != 20 || cfg.Extraction.MinWordCount != defaultMinWordCount {
		t.Fatalf("thresholds = %+v", cfg.Extraction)
	}
	if !reflect.DeepEqual(cfg.Extraction.Disabled, []string{"word", "pdf-primary"}) {
		t.Fatalf("disabled = %v", cfg.Extraction.Disabled)
	}
	if cfg.Storage.Backend != BackendMemory || cfg.Storage.PublicPrefix != "/files" {
		t.Fatalf("storage = %+v", cfg.Storage)
	}
	if cfg.Queue.Concurrency != defaultConcurrency {
		t.Fatalf("concurrency not normalized: %d", cfg.Queue.Concurrency)
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("CVDROP_STORAGE_BACKEND", "ftp")
	if _, err := Load(); err == nil {
		t.Fatalf("expected unknown backend to be rejected")
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Extraction.MinWordCount = -1
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected negative threshold to be rejected")
	}
	cfg = Default()
	cfg.Storage.Backend = BackendObject
	cfg.Storage.Bucket = ""
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected empty bucket to be rejected")
	}
	cfg.Storage.Bucket = "b"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}
