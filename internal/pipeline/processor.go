// Package pipeline runs one invoice document through text extraction, model
// invocation, recovery, normalization, correction and persistence.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/kluster66/invoice-extractor/constants"
	"github.com/kluster66/invoice-extractor/internal/common"
	"github.com/kluster66/invoice-extractor/internal/correct"
	"github.com/kluster66/invoice-extractor/internal/entity"
	"github.com/kluster66/invoice-extractor/internal/llm"
	"github.com/kluster66/invoice-extractor/internal/normalize"
	"github.com/kluster66/invoice-extractor/internal/recovery"
)

// TextSource returns the text of a local document.
type TextSource interface {
	ExtractText(ctx context.Context, path string) (string, error)
}

// Generator sends a prompt to the model and returns its plain text answer.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Saver persists a record and returns its new id.
type Saver interface {
	Save(ctx context.Context, rec entity.InvoiceRecord) (string, error)
}

type Config struct {
	MaxPromptChars int              // default 10000
	Now            func() time.Time // extraction clock; default time.Now
}

// Document is one input file.
type Document struct {
	Path       string // local file to read
	Filename   string // logical name; defaults to the base of Path
	SourcePath string // where the document came from; defaults to Path
}

func (d Document) withDefaults() Document {
	if d.Filename == "" {
		d.Filename = filepath.Base(d.Path)
	}
	if d.SourcePath == "" {
		d.SourcePath = d.Path
	}
	return d
}

// Processor is stateless across documents and safe for concurrent use.
type Processor struct {
	cfg        Config
	text       TextSource
	model      Generator
	store      Saver
	normalizer *normalize.Normalizer
	corrector  *correct.Corrector
	logger     *slog.Logger
}

func NewProcessor(cfg Config, text TextSource, model Generator, store Saver, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxPromptChars <= 0 {
		cfg.MaxPromptChars = 10000
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Processor{
		cfg:        cfg,
		text:       text,
		model:      model,
		store:      store,
		normalizer: normalize.New(logger),
		corrector:  correct.New(logger),
		logger:     logger,
	}
}

// run tracks the state of one document.
type run struct {
	logger *slog.Logger
	state  constants.DocumentState
	start  time.Time
}

func (r *run) advance(to constants.DocumentState) {
	r.logger.Debug("pipeline.state", "from", r.state, "to", to)
	r.state = to
}

func (r *run) fail(stage constants.Stage, err error) error {
	se := stageErr(stage, err)
	r.logger.Error("pipeline.failed",
		"state", r.state, "stage", stage, "kind", se.Kind, "error", err,
		"elapsed_ms", time.Since(r.start).Milliseconds(),
	)
	r.state = constants.StateFailed
	return se
}

// Run processes doc and returns the persisted record. Any failure is a *StageError
// naming the stage; nothing is retried here.
func (p *Processor) Run(ctx context.Context, doc Document) (entity.InvoiceRecord, error) {
	doc = doc.withDefaults()
	rid := common.RequestIDFromContext(ctx)
	if rid == "" {
		rid = uuid.NewString()
		ctx = common.WithRequestID(ctx, rid)
	}
	ctx = common.WithDocument(ctx, doc.Filename)
	r := &run{
		logger: p.logger.With("req_id", rid, "document", doc.Filename),
		state:  constants.StateFetched,
		start:  time.Now(),
	}

	text, err := p.text.ExtractText(ctx, doc.Path)
	if err != nil {
		return entity.InvoiceRecord{}, r.fail(constants.StageTextExtraction, err)
	}
	r.advance(constants.StateTextExtracted)

	prompt, truncated := llm.BuildPrompt(text, doc.Filename, p.cfg.MaxPromptChars)
	if truncated {
		r.logger.Warn("pipeline.prompt.truncated", "text_len", len([]rune(text)), "max_chars", p.cfg.MaxPromptChars)
	}
	answer, err := p.model.Generate(ctx, prompt)
	if err != nil {
		return entity.InvoiceRecord{}, r.fail(constants.StageModel, err)
	}
	r.advance(constants.StateModelInvoked)

	recovered, err := recovery.FromValue(answer)
	if err != nil {
		return entity.InvoiceRecord{}, r.fail(constants.StageRecovery, err)
	}
	r.logger.Info("pipeline.recovered", "strategy", recovered.Strategy, "fields", len(recovered.Fields))
	r.advance(constants.StateRecovered)

	rec := p.normalizer.Normalize(recovered.Fields)
	r.advance(constants.StateNormalized)

	rec = p.corrector.CorrectSupplier(rec, doc.Filename)
	r.advance(constants.StateCorrected)

	if rec.SourceFilename == "" {
		rec.SourceFilename = doc.Filename
	}
	rec.ExtractionTimestamp = p.cfg.Now().UTC().Format(time.RFC3339)
	rec.SourcePath = doc.SourcePath
	rec.RawPayload = recovered.Raw

	if err := llm.ValidateRecord(rec); err != nil {
		r.logger.Warn("pipeline.validation.warn", "error", err)
	}

	id, err := p.store.Save(ctx, rec)
	if err != nil {
		return entity.InvoiceRecord{}, r.fail(constants.StagePersistence, err)
	}
	if id == "" {
		return entity.InvoiceRecord{}, r.fail(constants.StagePersistence, errors.New("store returned an empty id"))
	}
	rec.ID = id
	r.advance(constants.StatePersisted)

	r.logger.Info("pipeline.ok",
		"record_id", id,
		"supplier", entity.StringOrEmpty(rec.Supplier),
		"invoice_number", entity.StringOrEmpty(rec.InvoiceNumber),
		"elapsed_ms", time.Since(r.start).Milliseconds(),
	)
	return rec, nil
}

// Process runs doc and renders the outcome as a payload.
func (p *Processor) Process(ctx context.Context, doc Document) Payload {
	doc = doc.withDefaults()
	rec, err := p.Run(ctx, doc)
	if err != nil {
		return FailurePayload(doc.Filename, err)
	}
	return SuccessPayload(rec)
}

// ProcessFile runs a local file through the pipeline.
func (p *Processor) ProcessFile(ctx context.Context, path string) Payload {
	abs, err := filepath.Abs(path)
	if err != nil {
		return FailurePayload(filepath.Base(path), fmt.Errorf("resolve path: %w", err))
	}
	return p.Process(ctx, Document{Path: abs})
}
