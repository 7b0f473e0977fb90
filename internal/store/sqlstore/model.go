package sqlstore

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kluster66/invoice-extractor/internal/entity"
)

// invoiceRow is the persisted shape of one record. Column names match the DynamoDB
// attributes so both backends describe the same schema.
type invoiceRow struct {
	InvoiceID           string              `gorm:"column:invoice_id;primaryKey;type:varchar(36)"`
	Created             string              `gorm:"column:created_at;type:varchar(40);not null"`
	Supplier            *string             `gorm:"column:fournisseur;index"`
	AmountExclTax       decimal.NullDecimal `gorm:"column:montant_ht;type:text"`
	InvoiceNumber       *string             `gorm:"column:numero_facture;index"`
	InvoiceDate         *string             `gorm:"column:date_facture;index"`
	ChronoNumber        *string             `gorm:"column:chrono"`
	CoveragePeriod      *string             `gorm:"column:couverture"`
	SourceFilename      string              `gorm:"column:nom_fichier"`
	ExtractionTimestamp string              `gorm:"column:extraction_timestamp"`
	SourcePath          string              `gorm:"column:source_path"`
	RawPayload          string              `gorm:"column:raw_payload;type:text"`
	ExtraFields         string              `gorm:"column:extra_fields;type:text"` // JSON object, null values kept
	RawData             string              `gorm:"column:raw_data;type:text"`     // full record JSON, audit copy
}

func (invoiceRow) TableName() string {
	return "invoices"
}

func toRow(rec entity.InvoiceRecord, createdAt, audit string) (invoiceRow, error) {
	extra := rec.ExtraFields
	if extra == nil {
		extra = map[string]any{}
	}
	b, err := json.Marshal(extra)
	if err != nil {
		return invoiceRow{}, fmt.Errorf("marshal extra fields: %w", err)
	}
	row := invoiceRow{
		InvoiceID:           rec.ID,
		Created:             createdAt,
		Supplier:            rec.Supplier,
		InvoiceNumber:       rec.InvoiceNumber,
		InvoiceDate:         rec.InvoiceDate,
		ChronoNumber:        rec.ChronoNumber,
		CoveragePeriod:      rec.CoveragePeriod,
		SourceFilename:      rec.SourceFilename,
		ExtractionTimestamp: rec.ExtractionTimestamp,
		SourcePath:          rec.SourcePath,
		RawPayload:          rec.RawPayload,
		ExtraFields:         string(b),
		RawData:             audit,
	}
	if rec.AmountExclTax != nil {
		row.AmountExclTax = decimal.NewNullDecimal(*rec.AmountExclTax)
	}
	return row, nil
}

func (r invoiceRow) toRecord() (entity.InvoiceRecord, error) {
	rec := entity.InvoiceRecord{
		ID:                  r.InvoiceID,
		Supplier:            r.Supplier,
		InvoiceNumber:       r.InvoiceNumber,
		InvoiceDate:         r.InvoiceDate,
		ChronoNumber:        r.ChronoNumber,
		CoveragePeriod:      r.CoveragePeriod,
		SourceFilename:      r.SourceFilename,
		ExtractionTimestamp: r.ExtractionTimestamp,
		SourcePath:          r.SourcePath,
		RawPayload:          r.RawPayload,
	}
	if r.AmountExclTax.Valid {
		d := r.AmountExclTax.Decimal
		rec.AmountExclTax = &d
	}
	if strings.TrimSpace(r.ExtraFields) != "" {
		dec := json.NewDecoder(strings.NewReader(r.ExtraFields))
		dec.UseNumber()
		if err := dec.Decode(&rec.ExtraFields); err != nil {
			return rec, fmt.Errorf("invoice %s: extra fields: %w", r.InvoiceID, err)
		}
	}
	if rec.ExtraFields == nil {
		rec.ExtraFields = map[string]any{}
	}
	return rec, nil
}
