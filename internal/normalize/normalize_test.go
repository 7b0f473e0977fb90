package normalize

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kluster66/invoice-extractor/internal/entity"
)

func requireAmount(t *testing.T, want string, got *decimal.Decimal) {
	t.Helper()
	require.NotNil(t, got)
	assert.Truef(t, decimal.RequireFromString(want).Equal(*got), "want %s, got %s", want, got)
}

func TestNormalize_AliasesAnyCase(t *testing.T) {
	n := New(nil)
	for _, a := range Aliases {
		for _, name := range a.Names {
			for _, key := range []string{name, strings.ToUpper(name)} {
				t.Run(a.Key+"/"+key, func(t *testing.T) {
					rec := n.Normalize(entity.Fields{key: "42"})
					got := rec.Fields()[a.Key]
					if a.Key == entity.KeyAmountExclTax {
						d, ok := got.(decimal.Decimal)
						require.True(t, ok)
						requireAmount(t, "42", &d)
						return
					}
					assert.Equal(t, "42", got)
					assert.Empty(t, rec.ExtraFields)
				})
			}
		}
	}
}

func TestNormalize_AliasPriority(t *testing.T) {
	rec := New(nil).Normalize(entity.Fields{
		"vendor":      "SECOND",
		"fournisseur": "FIRST",
		"total":       "9",
		"montant":     "7",
	})
	assert.Equal(t, "FIRST", entity.StringOrEmpty(rec.Supplier))
	requireAmount(t, "7", rec.AmountExclTax)
}

func TestNormalize_MissingFieldsAreNil(t *testing.T) {
	rec := New(nil).Normalize(entity.Fields{})
	assert.Nil(t, rec.Supplier)
	assert.Nil(t, rec.AmountExclTax)
	assert.Nil(t, rec.InvoiceNumber)
	assert.Nil(t, rec.InvoiceDate)
	assert.Nil(t, rec.ChronoNumber)
	assert.Nil(t, rec.CoveragePeriod)
	assert.Equal(t, "", rec.SourceFilename)
	for _, k := range entity.CanonicalKeys {
		v, ok := rec.Fields()[k]
		assert.True(t, ok, k)
		assert.Nil(t, v, k)
	}
}

func TestNormalize_PreservesUnknownFields(t *testing.T) {
	nested := map[string]any{"ligne": json.Number("1")}
	rec := New(nil).Normalize(entity.Fields{
		"fournisseur": "OVH",
		"tva":         json.Number("20"),
		"Details":     nested,
	})
	assert.Equal(t, json.Number("20"), rec.ExtraFields["tva"])
	assert.Equal(t, nested, rec.ExtraFields["Details"])
	assert.Len(t, rec.ExtraFields, 2)
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []entity.Fields{
		{},
		{"Supplier": "ACME", "amount": "1 234,56 €", "date": "15/01/2024", "extra": true},
		{"fournisseur": nil, "montant_ht": json.Number("1500.50"), "numero": json.Number("12")},
		{"vendeur": "SFR", "total": "n/a", "period": []any{"jan", "feb"}},
		{"filename": "a.pdf", "coverage_period": "2024-01", "document_chrono": "C-1"},
	}
	n := New(nil)
	for _, in := range inputs {
		once := n.Normalize(in)
		twice := n.Normalize(once.Fields())
		assert.Equal(t, once, twice)
	}
}

func TestNormalize_CoercesScalarsToStrings(t *testing.T) {
	rec := New(nil).Normalize(entity.Fields{
		"numero_facture": json.Number("2024001"),
		"chrono":         float64(17),
		"couverture":     map[string]any{"from": "2024-01"},
	})
	assert.Equal(t, "2024001", entity.StringOrEmpty(rec.InvoiceNumber))
	assert.Equal(t, "17", entity.StringOrEmpty(rec.ChronoNumber))
	assert.Equal(t, `{"from":"2024-01"}`, entity.StringOrEmpty(rec.CoveragePeriod))
}

func TestNormalize_StringsKeptVerbatim(t *testing.T) {
	rec := New(nil).Normalize(entity.Fields{"date_facture": "janvier 2024"})
	assert.Equal(t, "janvier 2024", entity.StringOrEmpty(rec.InvoiceDate))
}

func TestNormalize_UnparsableAmountIsNil(t *testing.T) {
	rec := New(nil).Normalize(entity.Fields{"montant_ht": "environ mille"})
	assert.Nil(t, rec.AmountExclTax)
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1500.50", "1500.50"},
		{"1500,50", "1500.50"},
		{"1 234,56 €", "1234.56"},
		{"1.234,56", "1234.56"},
		{"1,234.56", "1234.56"},
		{"1,234,567", "1234567"},
		{"1500.50,", "1500.50"},
		{"42 EUR", "42"},
		{"-12.5", "-12.5"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseAmount(tt.in)
			require.True(t, ok)
			requireAmount(t, tt.want, got)
		})
	}

	got, ok := ParseAmount("  ")
	assert.True(t, ok)
	assert.Nil(t, got)

	_, ok = ParseAmount("abc")
	assert.False(t, ok)
}
