// Package store defines the record store contract shared by the DynamoDB and SQL backends.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kluster66/invoice-extractor/internal/entity"
)

// Attribute and index names of the persisted schema.
const (
	AttrID          = "invoice_id"
	AttrCreatedAt   = "created_at"
	AttrRawData     = "raw_data"
	AttrExtractedAt = "extraction_timestamp"
	AttrSourcePath  = "source_path"
	AttrRawPayload  = "raw_payload"
	AttrExtra       = "extra_fields"

	IndexInvoiceNumber = entity.KeyInvoiceNumber + "-index"
	IndexSupplier      = entity.KeySupplier + "-index"
	IndexInvoiceDate   = entity.KeyInvoiceDate + "-index"
)

// Store persists invoice records. Records are create-only: Save always assigns a new id.
type Store interface {
	// EnsureTable provisions the table and its three lookup indexes when missing.
	EnsureTable(ctx context.Context) error
	Save(ctx context.Context, rec entity.InvoiceRecord) (string, error)
	// GetByID returns common.ErrNotFound when no record has the id.
	GetByID(ctx context.Context, id string) (entity.InvoiceRecord, error)
	QueryByInvoiceNumber(ctx context.Context, number string) ([]entity.InvoiceRecord, error)
	QueryBySupplier(ctx context.Context, supplier string) ([]entity.InvoiceRecord, error)
	// QueryByDateRange matches invoice dates between start and end inclusive, compared as strings.
	QueryByDateRange(ctx context.Context, start, end string) ([]entity.InvoiceRecord, error)
	Delete(ctx context.Context, id string) error
	Describe(ctx context.Context) (TableInfo, error)
}

// TableInfo is what the describe command reports.
type TableInfo struct {
	Name      string
	Backend   string
	Status    string
	ItemCount int64
	Indexes   []string
}

// NewID returns a fresh record id.
func NewID() string {
	return uuid.NewString()
}

// Now is the creation timestamp written next to each record.
func Now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// AuditPayload serializes the full canonical record, id included, as stored in raw_data.
func AuditPayload(rec entity.InvoiceRecord) (string, error) {
	b, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("marshal audit payload: %w", err)
	}
	return string(b), nil
}
