package correct

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kluster66/invoice-extractor/internal/entity"
)

func TestCorrectSupplier(t *testing.T) {
	tests := []struct {
		name     string
		supplier *string
		filename string
		want     *string
	}{
		{"client replaced from filename", entity.Ptr("BOARDRIDERS TRADING ESPAÑA"), "2140 TELEFONICA invoice.pdf", entity.Ptr("TELEFONICA")},
		{"client cleared without supplier token", entity.Ptr("BOARDRIDERS TRADING ESPAÑA"), "2140 invoice.pdf", nil},
		{"case-insensitive client match", entity.Ptr("Quiksilver Europe"), "/tmp/docs/facture-ovh-2024.pdf", entity.Ptr("OVH")},
		{"whole filename is searched", entity.Ptr("KAUAI SAS"), "/data/ORANGE/2024-01.pdf", entity.Ptr("ORANGE")},
		{"lowercase path segment", entity.Ptr("KAUAI SAS"), "scans/orange/2024-01.pdf", entity.Ptr("ORANGE")},
		{"genuine supplier untouched", entity.Ptr("ACME"), "2140 TELEFONICA invoice.pdf", entity.Ptr("ACME")},
		{"nil supplier untouched", nil, "2140 TELEFONICA invoice.pdf", nil},
	}
	c := New(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := c.CorrectSupplier(entity.InvoiceRecord{Supplier: tt.supplier}, tt.filename)
			assert.Equal(t, tt.want, rec.Supplier)
		})
	}
}

func TestCorrectSupplier_LeavesOtherFields(t *testing.T) {
	in := entity.InvoiceRecord{
		Supplier:      entity.Ptr("NA PALI SAS"),
		InvoiceNumber: entity.Ptr("F-1"),
		RawPayload:    `{"fournisseur":"NA PALI SAS"}`,
	}
	out := New(nil).CorrectSupplier(in, "SFR_2024.pdf")
	assert.Equal(t, "SFR", entity.StringOrEmpty(out.Supplier))
	assert.Equal(t, in.InvoiceNumber, out.InvoiceNumber)
	assert.Equal(t, in.RawPayload, out.RawPayload)
	assert.Equal(t, "NA PALI SAS", *in.Supplier)
}

func TestNewWithLists(t *testing.T) {
	c := NewWithLists([]string{"acme"}, []string{"globex"}, nil)
	rec := c.CorrectSupplier(entity.InvoiceRecord{Supplier: entity.Ptr("Acme Corp")}, "globex-42.pdf")
	assert.Equal(t, "GLOBEX", entity.StringOrEmpty(rec.Supplier))
}
