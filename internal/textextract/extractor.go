package textextract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/kluster66/invoice-extractor/constants"
)

var (
	// ErrNoText means the document holds no text layer we could read.
	ErrNoText   = errors.New("no extractable text")
	ErrNotPDF   = errors.New("not a PDF file")
	ErrTooLarge = errors.New("file exceeds size limit")
)

type Config struct {
	Pdftotext       string // binary name or absolute path; if empty -> "pdftotext"
	MaxBytes        int64  // 0 = no limit
	DisableFallback bool   // skip the pure-Go reader when pdftotext fails
}

type Result struct {
	Text     string
	Pages    int    // pages that produced text
	Method   string // "pdftotext" | "pdf-go"
	Duration time.Duration
	Warnings []string
}

// PageReader returns the plain text of every page, in order.
type PageReader func(path string) ([]string, error)

type Extractor struct {
	cfg       Config
	runner    Runner
	readPages PageReader
	logger    *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	return &Extractor{
		cfg:       cfg,
		runner:    execRunner{logger: logger},
		readPages: readPDFPages,
		logger:    logger,
	}
}

// WithRunner swaps the command runner (tests, sandboxes).
func (e *Extractor) WithRunner(r Runner) *Extractor {
	e.runner = r
	return e
}

// WithPageReader swaps the fallback reader.
func (e *Extractor) WithPageReader(r PageReader) *Extractor {
	e.readPages = r
	return e
}

// ExtractText returns the document text or ErrNoText.
func (e *Extractor) ExtractText(ctx context.Context, path string) (string, error) {
	res, err := e.Extract(ctx, path)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// Extract validates the file, then tries pdftotext and the pure-Go reader in turn.
func (e *Extractor) Extract(ctx context.Context, path string) (Result, error) {
	start := time.Now()
	if err := e.validate(path); err != nil {
		e.logger.Error("textextract.invalid_file", "path", path, "error", err)
		return Result{}, err
	}

	var warns []string
	pages, err := e.pdfToText(ctx, path)
	if err == nil {
		if text, n := joinPages(pages); text != "" {
			res := Result{Text: text, Pages: n, Method: "pdftotext", Duration: time.Since(start)}
			e.logger.Info("textextract.ok", "path", path, "method", res.Method, "pages", n,
				"chars", len(text), "elapsed_ms", res.Duration.Milliseconds())
			return res, nil
		}
		warns = append(warns, "pdftotext produced no text")
	} else {
		warns = append(warns, "pdftotext: "+err.Error())
	}

	if e.cfg.DisableFallback || e.readPages == nil {
		e.logger.Warn("textextract.empty", "path", path, "warnings", warns)
		return Result{Warnings: warns, Duration: time.Since(start)}, ErrNoText
	}

	e.logger.Debug("textextract.fallback", "path", path, "reason", warns[len(warns)-1])
	pages, err = e.readPages(path)
	if err != nil {
		warns = append(warns, "pdf-go: "+err.Error())
		e.logger.Warn("textextract.empty", "path", path, "warnings", warns)
		return Result{Warnings: warns, Duration: time.Since(start)}, fmt.Errorf("%w: %v", ErrNoText, err)
	}
	text, n := joinPages(pages)
	if text == "" {
		e.logger.Warn("textextract.empty", "path", path, "warnings", warns)
		return Result{Warnings: warns, Duration: time.Since(start)}, ErrNoText
	}
	res := Result{Text: text, Pages: n, Method: "pdf-go", Duration: time.Since(start), Warnings: warns}
	e.logger.Info("textextract.ok", "path", path, "method", res.Method, "pages", n,
		"chars", len(text), "elapsed_ms", res.Duration.Milliseconds())
	return res, nil
}

func (e *Extractor) pdfToText(ctx context.Context, path string) ([]string, error) {
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		if msg := strings.TrimSpace(string(errb)); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	// A form-feed \f is used as page separator by default
	return strings.Split(string(out), "\f"), nil
}

func (e *Extractor) validate(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			e.logger.Warn("textextract.close_failed", "path", path, "error", cerr)
		}
	}()

	st, err := f.Stat()
	if err != nil {
		return err
	}
	if e.cfg.MaxBytes > 0 && st.Size() > e.cfg.MaxBytes {
		return fmt.Errorf("%w: %d bytes > %d", ErrTooLarge, st.Size(), e.cfg.MaxBytes)
	}
	header := make([]byte, len(constants.PDFMagic))
	if _, err := io.ReadFull(f, header); err != nil || string(header) != constants.PDFMagic {
		return ErrNotPDF
	}
	return nil
}
