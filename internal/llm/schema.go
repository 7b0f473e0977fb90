package llm

import "github.com/kluster66/invoice-extractor/internal/entity"

// BuildInvoiceJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a generic map.
// It describes the well-formed canonical record; the pipeline only reports violations.
func BuildInvoiceJSONSchema() map[string]any {
	props := map[string]any{
		entity.KeySupplier:       map[string]any{"type": "string", "minLength": 1},
		entity.KeyAmountExclTax:  decimalProp(),
		entity.KeyInvoiceNumber:  map[string]any{"type": "string", "minLength": 1},
		entity.KeyInvoiceDate:    map[string]any{"type": "string", "pattern": `^\d{4}-\d{2}-\d{2}$`},
		entity.KeyChronoNumber:   nullableString(),
		entity.KeyCoveragePeriod: nullableString(),
		entity.KeySourceFilename: nullableString(),
	}
	required := []string{
		entity.KeySupplier,
		entity.KeyAmountExclTax,
		entity.KeyInvoiceNumber,
		entity.KeyInvoiceDate,
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

func decimalProp() map[string]any {
	return map[string]any{
		"type":    []string{"number", "string"},
		"pattern": `^-?\d+(\.\d+)?$`,
	}
}

func nullableString() map[string]any {
	return map[string]any{"type": []string{"string", "null"}}
}
