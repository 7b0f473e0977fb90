package entity

import (
	"maps"

	"github.com/shopspring/decimal"
)

// Canonical field keys. They match the names the extraction prompt asks the model for,
// so a record re-serialized through Fields() normalizes back to itself.
const (
	KeySupplier       = "fournisseur"
	KeyAmountExclTax  = "montant_ht"
	KeyInvoiceNumber  = "numero_facture"
	KeyInvoiceDate    = "date_facture"
	KeyChronoNumber   = "chrono"
	KeyCoveragePeriod = "couverture"
	KeySourceFilename = "nom_fichier"
)

// CanonicalKeys lists the canonical keys in schema order.
var CanonicalKeys = []string{
	KeySupplier,
	KeyAmountExclTax,
	KeyInvoiceNumber,
	KeyInvoiceDate,
	KeyChronoNumber,
	KeyCoveragePeriod,
	KeySourceFilename,
}

// Fields is a loosely typed key/value record, as recovered from model output.
type Fields map[string]any

// InvoiceRecord is the canonical extracted invoice.
type InvoiceRecord struct {
	ID                  string           `json:"id,omitempty"`
	Supplier            *string          `json:"supplier"`
	AmountExclTax       *decimal.Decimal `json:"amountExclTax"`
	InvoiceNumber       *string          `json:"invoiceNumber"`
	InvoiceDate         *string          `json:"invoiceDate"` // YYYY-MM-DD when the model complies; kept verbatim otherwise
	ChronoNumber        *string          `json:"chronoNumber"`
	CoveragePeriod      *string          `json:"coveragePeriod"`
	SourceFilename      string           `json:"sourceFilename"`
	ExtractionTimestamp string           `json:"extractionTimestamp"`
	SourcePath          string           `json:"sourcePath"`
	RawPayload          string           `json:"rawPayload"`
	ExtraFields         map[string]any   `json:"extraFields"`
}

// Fields returns the record's model-facing view: every canonical key (nil when absent)
// plus the extra fields.
func (r InvoiceRecord) Fields() Fields {
	out := make(Fields, len(CanonicalKeys)+len(r.ExtraFields))
	maps.Copy(out, r.ExtraFields)
	out[KeySupplier] = deref(r.Supplier)
	if r.AmountExclTax != nil {
		out[KeyAmountExclTax] = *r.AmountExclTax
	} else {
		out[KeyAmountExclTax] = nil
	}
	out[KeyInvoiceNumber] = deref(r.InvoiceNumber)
	out[KeyInvoiceDate] = deref(r.InvoiceDate)
	out[KeyChronoNumber] = deref(r.ChronoNumber)
	out[KeyCoveragePeriod] = deref(r.CoveragePeriod)
	if r.SourceFilename != "" {
		out[KeySourceFilename] = r.SourceFilename
	} else {
		out[KeySourceFilename] = nil
	}
	return out
}

// StringOrEmpty returns *s or "".
func StringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Ptr returns a pointer to s.
func Ptr(s string) *string { return &s }

func deref(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
