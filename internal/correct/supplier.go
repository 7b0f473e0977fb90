// Package correct repairs known recipient/issuer mix-ups in extracted invoices.
package correct

import (
	"log/slog"
	"strings"

	"github.com/kluster66/invoice-extractor/constants"
	"github.com/kluster66/invoice-extractor/internal/entity"
)

// Corrector checks the extracted supplier against the known client and supplier lists.
type Corrector struct {
	clients   []string
	suppliers []string
	logger    *slog.Logger
}

// New returns a Corrector over constants.KnownClients and constants.KnownSuppliers.
func New(logger *slog.Logger) *Corrector {
	return NewWithLists(constants.KnownClients, constants.KnownSuppliers, logger)
}

func NewWithLists(clients, suppliers []string, logger *slog.Logger) *Corrector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Corrector{clients: upper(clients), suppliers: upper(suppliers), logger: logger}
}

// CorrectSupplier replaces a supplier that names a known client. The replacement is the
// first known supplier found anywhere in filename, or nil when there is none. filename
// is searched as given; the pipeline passes the document's base name. Any other record
// passes through untouched.
func (c *Corrector) CorrectSupplier(rec entity.InvoiceRecord, filename string) entity.InvoiceRecord {
	if rec.Supplier == nil {
		return rec
	}
	current := strings.ToUpper(*rec.Supplier)
	client, ok := firstContained(current, c.clients)
	if !ok {
		return rec
	}

	if supplier, ok := firstContained(strings.ToUpper(filename), c.suppliers); ok {
		c.logger.Info("correct.supplier.replaced",
			"from", *rec.Supplier, "to", supplier, "client", client, "filename", filename)
		rec.Supplier = entity.Ptr(supplier)
		return rec
	}

	c.logger.Warn("correct.supplier.cleared",
		"from", *rec.Supplier, "client", client, "filename", filename)
	rec.Supplier = nil
	return rec
}

func firstContained(s string, needles []string) (string, bool) {
	for _, n := range needles {
		if n != "" && strings.Contains(s, n) {
			return n, true
		}
	}
	return "", false
}

func upper(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToUpper(s)
	}
	return out
}
