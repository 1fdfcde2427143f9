package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("CVDROP_STORAGE_BACKEND", "memory")
	var out bytes.Buffer
	cmd := newRootCommand(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestValidateCommand(t *testing.T) {
	out, err := run(t, "validate", "--form", `{"rgpd_consent":"oui","prenom":"Jane"}`)
	if err != nil || strings.TrimSpace(out) != "ok" {
		t.Fatalf("valid form: %q %v", out, err)
	}
	out, err = run(t, "validate", "--form", `{"email":"nope"}`)
	if !errors.Is(err, errInvalid) {
		t.Fatalf("expected errInvalid, got %v", err)
	}
	if !strings.Contains(out, `"field": "rgpd_consent"`) || !strings.Contains(out, `"field": "email"`) {
		t.Fatalf("violations not printed: %s", out)
	}
	if _, err := run(t, "validate", "--form", `[1]`); err == nil {
		t.Fatalf("expected non-object payload to be rejected")
	}
}

func TestExtractCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cv.txt")
	if err := os.WriteFile(path, []byte("\xef\xbb\xbfJane Doe\nGo developer"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	out, err := run(t, "extract", path)
	if err != nil || out != "Jane Doe\nGo developer\n" {
		t.Fatalf("extract: %q %v", out, err)
	}
	out, err = run(t, "extract", "--stats", path)
	if err != nil || !strings.Contains(out, `"word_count": 4`) || !strings.Contains(out, `"method": "text"`) {
		t.Fatalf("extract --stats: %s %v", out, err)
	}
}

func TestIngestCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resume.txt")
	text := "Jane Doe is a backend engineer with eight years of Go experience in Paris"
	if err := os.WriteFile(path, []byte(text), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	form := `{"prenom":"Jane","nom":"Doe","email":"jane@example.com","rgpd_consent":true}`
	out, err := run(t, "ingest", path, "--form", form)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if !strings.Contains(out, `"stage": "completed"`) || !strings.Contains(out, `"cv_url": "memory://cv/resume_`) {
		t.Fatalf("unexpected output %s", out)
	}

	if _, err := run(t, "ingest", path, "--form", `{"prenom":"Jane"}`); !errors.Is(err, errInvalid) {
		t.Fatalf("expected errInvalid without consent, got %v", err)
	}
}

func TestFormConfigCommand(t *testing.T) {
	out, err := run(t, "form-config")
	if err != nil || !strings.Contains(out, `"name": "date_disponibilite"`) {
		t.Fatalf("form-config: %s %v", out, err)
	}
}

func TestIngestDirCommand(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"a.txt":     "Jane Doe backend engineer with Go experience in Paris and Lyon",
		"b.txt":     "John Roe frontend engineer with TypeScript experience in Lille",
		"notes.exe": "binary",
		"empty.txt": "",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	out, err := run(t, "ingest-dir", dir, "--workers", "2", "--form", `{"rgpd_consent":true}`)
	if err != nil {
		t.Fatalf("ingest-dir: %v\n%s", err, out)
	}
	if strings.Count(out, `"upload_id"`) != 2 {
		t.Fatalf("expected two ingested files:\n%s", out)
	}
	if !strings.Contains(out, "notes.exe") || !strings.Contains(out, "empty.txt") {
		t.Fatalf("expected rejected files to be reported:\n%s", out)
	}
}
