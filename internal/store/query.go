package store

import (
	"context"
	"fmt"

	"github.com/kluster66/invoice-extractor/internal/common"
	"github.com/kluster66/invoice-extractor/internal/entity"
)

// Query selects one of the three access patterns. Exactly one of InvoiceNumber,
// Supplier or the From/To pair must be set.
type Query struct {
	InvoiceNumber string
	Supplier      string
	From          string // YYYY-MM-DD
	To            string // YYYY-MM-DD
}

func (q Query) Validate() error {
	set := 0
	if q.InvoiceNumber != "" {
		set++
	}
	if q.Supplier != "" {
		set++
	}
	if q.From != "" || q.To != "" {
		set++
	}
	val := common.NewValidator()
	if set != 1 {
		val.Field("query", "", func(string, any) *common.ValidationError {
			return &common.ValidationError{Field: "query", Message: "set exactly one of invoice number, supplier or date range"}
		})
	}
	if q.From != "" || q.To != "" {
		val.Field("from", q.From, common.Required, common.ISODate).
			Field("to", q.To, common.Required, common.ISODate)
		if q.From != "" && q.To != "" && q.From > q.To {
			val.Field("to", q.To, func(string, any) *common.ValidationError {
				return &common.ValidationError{Field: "to", Message: "must not be before from"}
			})
		}
	}
	if val.HasErrors() {
		return common.NewAppError("INVALID_QUERY", val.ErrorMessage(), common.ErrInvalidInput)
	}
	return nil
}

// Describe renders the query for logs and sheet titles.
func (q Query) Describe() string {
	switch {
	case q.InvoiceNumber != "":
		return "invoice_number=" + q.InvoiceNumber
	case q.Supplier != "":
		return "supplier=" + q.Supplier
	default:
		return fmt.Sprintf("date=%s..%s", q.From, q.To)
	}
}

// Find runs q against s.
func Find(ctx context.Context, s Store, q Query) ([]entity.InvoiceRecord, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	switch {
	case q.InvoiceNumber != "":
		return s.QueryByInvoiceNumber(ctx, q.InvoiceNumber)
	case q.Supplier != "":
		return s.QueryBySupplier(ctx, q.Supplier)
	default:
		return s.QueryByDateRange(ctx, q.From, q.To)
	}
}
