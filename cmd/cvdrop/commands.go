package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/cvdrop/internal/api"
	"github.com/dharsanguruparan/cvdrop/internal/config"
	"github.com/dharsanguruparan/cvdrop/internal/extract"
	"github.com/dharsanguruparan/cvdrop/internal/ingest"
	"github.com/dharsanguruparan/cvdrop/internal/logging"
	"github.com/dharsanguruparan/cvdrop/internal/processing"
	"github.com/dharsanguruparan/cvdrop/internal/schema"
	"github.com/dharsanguruparan/cvdrop/internal/storage"
	"github.com/dharsanguruparan/cvdrop/internal/validation"
)

// errInvalid is returned after violations have been printed.
var errInvalid = errors.New("validation failed")

// env carries what every subcommand needs; it is filled in by the root
// command before any subcommand runs.
type env struct {
	out      io.Writer
	cfg      *config.Config
	log      *logrus.Logger
	logLevel string
}

func newRootCommand(out io.Writer) *cobra.Command {
	e := &env{out: out}
	cmd := &cobra.Command{
		Use:   "cvdrop",
		Short: "CVDrop command line",
		Long: `cvdrop runs the CV ingestion pipeline from the command line: extract text from a
document, check a form payload, ingest a submission into the configured storage,
or launch the server and worker binaries.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			level := cfg.Log.Level
			if cmd.Flags().Changed("log-level") {
				level = e.logLevel
			}
			e.cfg = cfg
			e.log = logging.NewWithOutput(cmd.ErrOrStderr(), level, cfg.Log.Format)
			return nil
		},
	}
	cmd.SetOut(out)
	cmd.PersistentFlags().StringVar(&e.logLevel, "log-level", "warn", "Log level for this invocation")
	cmd.AddCommand(
		newIngestCmd(e),
		newIngestDirCmd(e),
		newExtractCmd(e),
		newValidateCmd(e),
		newStatsCmd(e),
		newFormConfigCmd(e),
		newRunCmd(),
	)
	return cmd
}

func newIngestCmd(e *env) *cobra.Command {
	var formJSON, formFile string
	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Validate and ingest a CV with its form payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			form, err := readForm(formJSON, formFile)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			name := filepath.Base(args[0])
			contentType := mime.TypeByExtension(filepath.Ext(name))
			files := &validation.FileValidator{
				MaxSize:           e.cfg.Upload.MaxFileSize,
				AllowedTypes:      e.cfg.Upload.AllowedTypes,
				AllowedExtensions: e.cfg.Upload.AllowedExtensions,
			}
			if err := files.Check(name, contentType, data); err != nil {
				return err
			}
			if violations := validation.Validate(form); len(violations) > 0 {
				if err := printJSON(e.out, map[string]any{"errors": violations}); err != nil {
					return err
				}
				return errInvalid
			}
			svc, err := ingest.Setup(cmd.Context(), e.cfg, e.log)
			if err != nil {
				return err
			}
			res, err := svc.Ingest(cmd.Context(), ingest.Request{
				Data:        data,
				FileName:    name,
				ContentType: contentType,
				Form:        form,
			})
			if res != nil {
				if perr := printJSON(e.out, res); perr != nil {
					return perr
				}
			}
			return err
		},
	}
	cmd.Flags().StringVar(&formJSON, "form", "", "Form payload as a JSON object")
	cmd.Flags().StringVar(&formFile, "form-file", "", "Read the form payload from a JSON file")
	return cmd
}

func newIngestDirCmd(e *env) *cobra.Command {
	var formJSON, formFile string
	var workers int
	cmd := &cobra.Command{
		Use:   "ingest-dir <dir>",
		Short: "Ingest every accepted document of a directory with one form payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			form, err := readForm(formJSON, formFile)
			if err != nil {
				return err
			}
			if violations := validation.Validate(form); len(violations) > 0 {
				if err := printJSON(e.out, map[string]any{"errors": violations}); err != nil {
					return err
				}
				return errInvalid
			}
			jobs, skipped, err := collectJobs(args[0], e.cfg, form)
			if err != nil {
				return err
			}
			for _, s := range skipped {
				e.log.WithField("source", s).Warn("skipped file rejected by the upload policy")
			}
			svc, err := ingest.Setup(cmd.Context(), e.cfg, e.log)
			if err != nil {
				return err
			}
			if workers <= 0 {
				workers = e.cfg.Queue.Concurrency
			}
			outcomes := processing.New(svc, workers, e.log).Run(cmd.Context(), jobs)

			report := make([]map[string]any, 0, len(outcomes))
			failed := 0
			for _, o := range outcomes {
				entry := map[string]any{"source": o.Source}
				if o.Err != nil {
					failed++
					entry["error"] = o.Err.Error()
				}
				if o.Result != nil {
					entry["result"] = o.Result
				}
				report = append(report, entry)
			}
			if err := printJSON(e.out, map[string]any{"ingested": report, "skipped": skipped}); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d ingestions failed", failed, len(outcomes))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&formJSON, "form", "", "Form payload as a JSON object")
	cmd.Flags().StringVar(&formFile, "form-file", "", "Read the form payload from a JSON file")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent ingestions (defaults to queue.concurrency)")
	return cmd
}

// collectJobs reads the regular files of dir that pass the upload policy.
// Rejected files are returned by name.
func collectJobs(dir string, cfg *config.Config, form map[string]any) ([]processing.Job, []string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, err
	}
	files := &validation.FileValidator{
		MaxSize:           cfg.Upload.MaxFileSize,
		AllowedTypes:      cfg.Upload.AllowedTypes,
		AllowedExtensions: cfg.Upload.AllowedExtensions,
	}
	var jobs []processing.Job
	skipped := []string{}
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, err
		}
		contentType := mime.TypeByExtension(filepath.Ext(entry.Name()))
		if files.Check(entry.Name(), contentType, data) != nil {
			skipped = append(skipped, path)
			continue
		}
		jobs = append(jobs, processing.Job{
			Source: path,
			Request: ingest.Request{
				Data:        data,
				FileName:    entry.Name(),
				ContentType: contentType,
				Form:        form,
			},
		})
	}
	return jobs, skipped, nil
}

func newExtractCmd(e *env) *cobra.Command {
	var withStats bool
	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "Print the text extracted from a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			ex := extract.New(extract.ProbeCapabilities(e.cfg.Extraction.Disabled), e.log)
			text, err := ex.Extract(data, filepath.Base(args[0]))
			if err != nil {
				return err
			}
			if !withStats {
				_, err = fmt.Fprintln(e.out, text)
				return err
			}
			stats := extract.Analyze(text, extract.Thresholds{
				MinTextLength: e.cfg.Extraction.MinTextLength,
				MinWordCount:  e.cfg.Extraction.MinWordCount,
			})
			return printJSON(e.out, map[string]any{
				"method":           ex.Method(args[0]),
				"text":             text,
				"extraction_stats": stats,
			})
		},
	}
	cmd.Flags().BoolVar(&withStats, "stats", false, "Print the method, text and quality statistics as JSON")
	return cmd
}

func newValidateCmd(e *env) *cobra.Command {
	var formJSON, formFile string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a form payload against the validation rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			form, err := readForm(formJSON, formFile)
			if err != nil {
				return err
			}
			violations := validation.Validate(form)
			if len(violations) == 0 {
				_, err := fmt.Fprintln(e.out, "ok")
				return err
			}
			if err := printJSON(e.out, map[string]any{"errors": violations}); err != nil {
				return err
			}
			return errInvalid
		},
	}
	cmd.Flags().StringVar(&formJSON, "form", "", "Form payload as a JSON object")
	cmd.Flags().StringVar(&formFile, "form-file", "", "Read the form payload from a JSON file")
	return cmd
}

func newStatsCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count stored uploads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := storage.New(cmd.Context(), e.cfg)
			if err != nil {
				return err
			}
			n, err := store.Count(cmd.Context(), ingest.OriginalsFolder)
			if err != nil {
				return err
			}
			return printJSON(e.out, map[string]any{"total_uploads": n, "storage_backend": store.Kind()})
		},
	}
}

func newFormConfigCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "form-config",
		Short: "Print the upload form layout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printJSON(e.out, api.NewFormConfig(time.Now()))
		},
	}
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run individual Go binaries directly",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
	}
	cmd.AddCommand(
		newServiceRunner("server", "./cmd/server"),
		newServiceRunner("worker", "./cmd/worker"),
	)
	return cmd
}

func newServiceRunner(name, path string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: fmt.Sprintf("go run %s", path),
		RunE: func(cmd *cobra.Command, args []string) error {
			goArgs := append([]string{"run", path}, args...)
			return runCommand(cmd.Context(), "go", goArgs...)
		},
	}
}

func runCommand(ctx context.Context, name string, args ...string) error {
	execCmd := exec.CommandContext(ctx, name, args...)
	execCmd.Stdout = os.Stdout
	execCmd.Stderr = os.Stderr
	execCmd.Stdin = os.Stdin
	return execCmd.Run()
}

// readForm takes the payload from --form or --form-file; with neither the
// payload is an empty object.
func readForm(inline, file string) (map[string]any, error) {
	raw := []byte(inline)
	if file != "" {
		if inline != "" {
			return nil, errors.New("use either --form or --form-file")
		}
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		raw = data
	}
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	return schema.DecodeForm(raw)
}

func printJSON(w io.Writer, v any) error {
	data, err := storage.EncodeJSON(v)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
