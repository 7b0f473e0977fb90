package normalize

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kluster66/invoice-extractor/internal/entity"
)

// Alias maps one canonical key to the source names accepted for it, in priority order.
type Alias struct {
	Key   string
	Names []string
}

// Aliases is the fixed alias table. Names are matched case-insensitively.
var Aliases = []Alias{
	{entity.KeySupplier, []string{"fournisseur", "supplier", "vendor", "vendeur"}},
	{entity.KeyAmountExclTax, []string{"montant_ht", "montant", "amount", "total"}},
	{entity.KeyInvoiceNumber, []string{"numero_facture", "numero", "invoice_number", "facture_numero"}},
	{entity.KeyInvoiceDate, []string{"date_facture", "date", "invoice_date"}},
	{entity.KeyChronoNumber, []string{"chrono", "numero_chrono", "chrono_number", "document_chrono"}},
	{entity.KeyCoveragePeriod, []string{"couverture", "periode_couverture", "periode", "period", "coverage_period"}},
	{entity.KeySourceFilename, []string{"nom_fichier", "filename", "file_name"}},
}

var knownNames = func() map[string]struct{} {
	m := make(map[string]struct{})
	for _, a := range Aliases {
		for _, n := range a.Names {
			m[n] = struct{}{}
		}
	}
	return m
}()

// Normalizer maps loosely named model fields onto the canonical invoice schema.
type Normalizer struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{logger: logger}
}

// Normalize returns a schema-complete record: canonical fields not found are nil and
// keys matching no alias are copied unchanged into ExtraFields.
func (n *Normalizer) Normalize(in entity.Fields) entity.InvoiceRecord {
	// when two keys differ only by case, the lexically first one wins
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	lower := make(map[string]any, len(in))
	extra := make(map[string]any)
	for _, k := range keys {
		lk := strings.ToLower(k)
		if _, ok := knownNames[lk]; !ok {
			extra[k] = in[k]
			continue
		}
		if _, seen := lower[lk]; !seen {
			lower[lk] = in[k]
		}
	}

	lookup := func(key string) any {
		for _, a := range Aliases {
			if a.Key != key {
				continue
			}
			for _, name := range a.Names {
				if v, ok := lower[name]; ok {
					return v
				}
			}
		}
		return nil
	}

	out := entity.InvoiceRecord{
		Supplier:       toString(lookup(entity.KeySupplier)),
		InvoiceNumber:  toString(lookup(entity.KeyInvoiceNumber)),
		InvoiceDate:    toString(lookup(entity.KeyInvoiceDate)),
		ChronoNumber:   toString(lookup(entity.KeyChronoNumber)),
		CoveragePeriod: toString(lookup(entity.KeyCoveragePeriod)),
		ExtraFields:    extra,
	}
	if fn := toString(lookup(entity.KeySourceFilename)); fn != nil {
		out.SourceFilename = *fn
	}

	rawAmount := lookup(entity.KeyAmountExclTax)
	amount, ok := toAmount(rawAmount)
	if !ok {
		n.logger.Warn("normalize.amount_unparsed", "value", fmt.Sprint(rawAmount))
	}
	out.AmountExclTax = amount

	if len(extra) > 0 {
		n.logger.Debug("normalize.extra_fields", "count", len(extra))
	}
	return out
}

func toString(v any) *string {
	var s string
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		s = t
	case json.Number:
		s = t.String()
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		s = strconv.Itoa(t)
	case int64:
		s = strconv.FormatInt(t, 10)
	case bool:
		s = strconv.FormatBool(t)
	case decimal.Decimal:
		s = t.String()
	default:
		b, err := json.Marshal(t)
		if err != nil {
			s = fmt.Sprint(t)
		} else {
			s = string(b)
		}
	}
	return &s
}

// toAmount reads a money value. ok is false when a non-empty value could not be parsed.
func toAmount(v any) (*decimal.Decimal, bool) {
	var d decimal.Decimal
	var err error
	switch t := v.(type) {
	case nil:
		return nil, true
	case decimal.Decimal:
		d = t
	case json.Number:
		d, err = decimal.NewFromString(t.String())
	case float64:
		d = decimal.NewFromFloat(t)
	case int:
		d = decimal.NewFromInt(int64(t))
	case int64:
		d = decimal.NewFromInt(t)
	case string:
		return ParseAmount(t)
	default:
		return nil, false
	}
	if err != nil {
		return nil, false
	}
	return &d, true
}

var amountNoise = strings.NewReplacer(" ", "", "\u00a0", "", "\u202f", "", "€", "", "EUR", "", "eur", "")

// ParseAmount reads amounts written with either decimal separator, with or without
// thousands separators and a euro sign ("1 234,56 €", "1,234.56", "1500.50").
// An empty string is an absent amount.
func ParseAmount(s string) (*decimal.Decimal, bool) {
	s = strings.Trim(amountNoise.Replace(strings.TrimSpace(s)), ".,")
	if s == "" {
		return nil, true
	}
	lastComma, lastDot := strings.LastIndex(s, ","), strings.LastIndex(s, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") == 1 {
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, false
	}
	return &d, true
}
