package recovery

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/kluster66/invoice-extractor/internal/entity"
)

var manualPatterns = []struct {
	key string
	re  *regexp.Regexp
}{
	// the supplier stops at a comma so inline label lists stay separate
	{entity.KeySupplier, regexp.MustCompile(`(?i)(?:fournisseur|supplier|vendeur)[:\s]+([^,\n]+)`)},
	{entity.KeyAmountExclTax, regexp.MustCompile(`(?i)(?:montant|amount|total)[:\s]+([\d,.]+)\s*€?`)},
	{entity.KeyInvoiceNumber, regexp.MustCompile(`(?i)(?:numero|numéro|facture|invoice)[\s#:]+([A-Za-z0-9\-_]+)`)},
	{entity.KeyInvoiceDate, regexp.MustCompile(`(?i)(?:date|date facture)[:\s]+(\d{2}[/-]\d{2}[/-]\d{4}|\d{4}[/-]\d{2}[/-]\d{2})`)},
}

var reEuroAmount = regexp.MustCompile(`(\d+[.,]\d{2})\s*€`)

// Manual extracts labelled values ("Fournisseur: ...", "Montant: ...") from free text.
// Every canonical key is present in the result; unmatched ones are nil.
func Manual(text string) entity.Fields {
	out := make(entity.Fields, len(entity.CanonicalKeys))
	for _, k := range entity.CanonicalKeys {
		out[k] = nil
	}
	for _, p := range manualPatterns {
		if m := p.re.FindStringSubmatch(text); m != nil {
			if v := strings.TrimSpace(m[1]); v != "" {
				out[p.key] = v
			}
		}
	}
	if out[entity.KeyAmountExclTax] == nil {
		if m := reEuroAmount.FindStringSubmatch(text); m != nil {
			out[entity.KeyAmountExclTax] = json.Number(strings.ReplaceAll(m[1], ",", "."))
		}
	}
	return out
}
