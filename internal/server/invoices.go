package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/kluster66/invoice-extractor/internal/common"
	"github.com/kluster66/invoice-extractor/internal/pipeline"
	"github.com/kluster66/invoice-extractor/internal/store"
)

// EventHandler runs the documents of one trigger event.
type EventHandler interface {
	Handle(ctx context.Context, raw []byte) []pipeline.Payload
}

type InvoiceService struct {
	events EventHandler
	store  store.Store
	logger *slog.Logger
}

func NewInvoiceService(events EventHandler, st store.Store, logger *slog.Logger) *InvoiceService {
	if logger == nil {
		logger = slog.Default()
	}
	return &InvoiceService{events: events, store: st, logger: logger}
}

func (s *InvoiceService) ProcessEvent(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if len(req.GetFields()) == 0 {
		s.logger.Error("server.event.empty")
		return nil, common.InvalidArgumentError("event is required")
	}
	raw, err := json.Marshal(req.AsMap())
	if err != nil {
		return nil, common.InvalidArgumentErrorf("event: %v", err)
	}

	payloads := s.events.Handle(ctx, raw)
	failed := 0
	for _, p := range payloads {
		if !p.OK() {
			failed++
		}
	}
	s.logger.Info("server.event.processed", "documents", len(payloads), "failed", failed)
	return toStruct(map[string]any{"results": payloads})
}

func (s *InvoiceService) GetInvoice(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id := strings.TrimSpace(stringField(req, "id"))
	if err := common.ValidateAndReturnError(common.NewValidator().Field("id", id, common.Required, common.UUID)); err != nil {
		s.logger.Error("server.get.invalid", "id", id, "error", err)
		return nil, err
	}
	rec, err := s.store.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("server.get.failed", "id", id, "error", err)
		return nil, common.ToStatus(err)
	}
	return toStruct(map[string]any{"record": rec})
}

func (s *InvoiceService) QueryInvoices(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	q := store.Query{
		InvoiceNumber: strings.TrimSpace(stringField(req, "invoice_number")),
		Supplier:      strings.TrimSpace(stringField(req, "supplier")),
		From:          strings.TrimSpace(stringField(req, "from")),
		To:            strings.TrimSpace(stringField(req, "to")),
	}
	recs, err := store.Find(ctx, s.store, q)
	if err != nil {
		s.logger.Error("server.query.failed", "query", q.Describe(), "error", err)
		return nil, common.ToStatus(err)
	}
	s.logger.Info("server.query.ok", "query", q.Describe(), "count", len(recs))
	return toStruct(map[string]any{"records": recs, "count": len(recs)})
}

func stringField(req *structpb.Struct, key string) string {
	return req.GetFields()[key].GetStringValue()
}

// toStruct goes through JSON so struct tags and decimal formatting apply.
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, common.InternalErrorf("encode response: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, common.InternalErrorf("encode response: %v", err)
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, common.InternalErrorf("encode response: %v", err)
	}
	return out, nil
}
