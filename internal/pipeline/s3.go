package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/kluster66/invoice-extractor/constants"
	"github.com/kluster66/invoice-extractor/internal/common"
)

// S3Event is the part of an S3 notification the pipeline reads.
type S3Event struct {
	Records []struct {
		S3 struct {
			Bucket struct {
				Name string `json:"name"`
			} `json:"bucket"`
			Object struct {
				Key string `json:"key"`
			} `json:"object"`
		} `json:"s3"`
	} `json:"Records"`
}

// ObjectRef locates one uploaded document.
type ObjectRef struct {
	Bucket   string
	Key      string // decoded
	Filename string
}

func (o ObjectRef) URI() string { return "s3://" + o.Bucket + "/" + o.Key }

// ParseEvent decodes an S3 notification. Keys arrive form-encoded ("+" for space).
func ParseEvent(raw []byte) ([]ObjectRef, error) {
	var ev S3Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, fmt.Errorf("%w: decode event: %w", common.ErrInvalidInput, err)
	}
	if len(ev.Records) == 0 {
		return nil, fmt.Errorf("%w: event has no records", common.ErrInvalidInput)
	}
	refs := make([]ObjectRef, 0, len(ev.Records))
	for i, rec := range ev.Records {
		bucket, rawKey := rec.S3.Bucket.Name, rec.S3.Object.Key
		if bucket == "" || rawKey == "" {
			return nil, fmt.Errorf("%w: record %d lacks bucket or key", common.ErrInvalidInput, i)
		}
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d key %q: %w", common.ErrInvalidInput, i, rawKey, err)
		}
		refs = append(refs, ObjectRef{Bucket: bucket, Key: key, Filename: path.Base(key)})
	}
	return refs, nil
}

// S3API is the slice of the S3 client used to download documents.
type S3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Fetcher downloads trigger objects into a temporary directory.
type Fetcher struct {
	api      S3API
	tempDir  string
	maxBytes int64
	logger   *slog.Logger
}

func NewFetcher(api S3API, tempDir string, maxBytes int64, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Fetcher{api: api, tempDir: tempDir, maxBytes: maxBytes, logger: logger}
}

// Fetch writes the object to a temp file. The caller removes it with cleanup.
func (f *Fetcher) Fetch(ctx context.Context, ref ObjectRef) (localPath string, cleanup func(), err error) {
	out, err := f.api.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(ref.Bucket), Key: aws.String(ref.Key)})
	if err != nil {
		return "", nil, fmt.Errorf("get %s: %w", ref.URI(), err)
	}
	defer out.Body.Close()

	tmp, err := os.CreateTemp(f.tempDir, "invoice-*"+strings.ToLower(filepath.Ext(ref.Filename)))
	if err != nil {
		return "", nil, fmt.Errorf("create temp file: %w", err)
	}
	cleanup = func() { _ = os.Remove(tmp.Name()) }

	var body io.Reader = out.Body
	if f.maxBytes > 0 {
		body = io.LimitReader(out.Body, f.maxBytes+1)
	}
	n, err := io.Copy(tmp, body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil && f.maxBytes > 0 && n > f.maxBytes {
		err = fmt.Errorf("%s is larger than %d bytes", ref.URI(), f.maxBytes)
	}
	if err != nil {
		cleanup()
		return "", nil, fmt.Errorf("download %s: %w", ref.URI(), err)
	}
	f.logger.Info("pipeline.fetch.ok", "uri", ref.URI(), "bytes", n, "path", tmp.Name())
	return tmp.Name(), cleanup, nil
}

// EventHandler runs every document of a trigger event through the processor.
type EventHandler struct {
	fetcher *Fetcher
	proc    *Processor
	logger  *slog.Logger
}

func NewEventHandler(fetcher *Fetcher, proc *Processor, logger *slog.Logger) *EventHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventHandler{fetcher: fetcher, proc: proc, logger: logger}
}

// Handle returns one payload per event record. An undecodable event yields a single
// fetch-stage failure.
func (h *EventHandler) Handle(ctx context.Context, raw []byte) []Payload {
	refs, err := ParseEvent(raw)
	if err != nil {
		h.logger.Error("pipeline.event.invalid", "error", err)
		return []Payload{FailurePayload("", &StageError{Stage: constants.StageFetch, Cause: err})}
	}
	out := make([]Payload, 0, len(refs))
	for _, ref := range refs {
		out = append(out, h.handleOne(ctx, ref))
	}
	return out
}

func (h *EventHandler) handleOne(ctx context.Context, ref ObjectRef) Payload {
	if !constants.IsAllowedExt(filepath.Ext(ref.Filename)) {
		err := fmt.Errorf("%w: %s is not a PDF", common.ErrInvalidInput, ref.Filename)
		h.logger.Warn("pipeline.event.skipped", "uri", ref.URI(), "error", err)
		return FailurePayload(ref.Filename, &StageError{Stage: constants.StageFetch, Cause: err})
	}
	local, cleanup, err := h.fetcher.Fetch(ctx, ref)
	if err != nil {
		h.logger.Error("pipeline.fetch.failed", "uri", ref.URI(), "error", err)
		return FailurePayload(ref.Filename, &StageError{Stage: constants.StageFetch, Cause: err})
	}
	defer cleanup()
	return h.proc.Process(ctx, Document{Path: local, Filename: ref.Filename, SourcePath: ref.URI()})
}
