package recovery

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kluster66/invoice-extractor/internal/entity"
)

func TestRecover_Strategies(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		strategy string
		key      string
		want     any
	}{
		{
			name:     "fenced json block",
			text:     "Voici le résultat:\n```json\n{\"fournisseur\": \"OVH\"}\n```\nMerci",
			strategy: StrategyFenced, key: "fournisseur", want: "OVH",
		},
		{
			name:     "untagged fence",
			text:     "```\n{\"fournisseur\": \"SFR\"}\n```",
			strategy: StrategyFenced, key: "fournisseur", want: "SFR",
		},
		{
			name:     "second fence when first is broken",
			text:     "```json\n{\"a\": }\n```\n```json\n{\"numero\": \"F-2\"}\n```",
			strategy: StrategyFenced, key: "numero", want: "F-2",
		},
		{
			name:     "whole text",
			text:     "  {\"montant_ht\": 1500.50}  ",
			strategy: StrategyWhole, key: "montant_ht", want: json.Number("1500.50"),
		},
		{
			name:     "braces inside prose",
			text:     "Sure! Here it is: {\"date_facture\": \"2024-01-15\"} Hope this helps.",
			strategy: StrategyBraces, key: "date_facture", want: "2024-01-15",
		},
		{
			name:     "manual fallback",
			text:     "Fournisseur: ORANGE\nMontant: 42,00 €",
			strategy: StrategyManual, key: "fournisseur", want: "ORANGE",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Recover(tt.text)
			assert.Equal(t, tt.strategy, res.Strategy)
			assert.Equal(t, tt.want, res.Fields[tt.key])
		})
	}
}

func TestRecover_FencedBlockWinsOverOuterJSON(t *testing.T) {
	text := "{\"fournisseur\": \"OUTER\"}\n```json\n{\"fournisseur\": \"INNER\"}\n```\n{\"fournisseur\": \"AFTER\"}"
	res := Recover(text)
	assert.Equal(t, StrategyFenced, res.Strategy)
	assert.Equal(t, "INNER", res.Fields["fournisseur"])
	assert.Equal(t, `{"fournisseur": "INNER"}`, res.Raw)
}

func TestRecover_RawIsExactDecodedText(t *testing.T) {
	res := Recover(`prefix {"a": 1,   "b": [1, 2]} suffix`)
	require.Equal(t, StrategyBraces, res.Strategy)
	assert.Equal(t, `{"a": 1,   "b": [1, 2]}`, res.Raw)

	var again map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.Raw), &again))
}

func TestRecover_NeverPanics(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"just prose with no structure at all",
		"{{{{",
		"}}}}{{{{",
		"{\"a\": {\"b\": {\"c\": ",
		"```json\n```",
		"```json\n{]\n```",
		"[1, 2, 3]",
		"null",
		strings.Repeat("[", 20000) + strings.Repeat("]", 20000),
		strings.Repeat("{\"a\":", 5000),
		"\x00\xff\xfe invalid utf8",
	}
	for _, in := range inputs {
		assert.NotPanics(t, func() {
			res := Recover(in)
			assert.NotNil(t, res.Fields)
			assert.NotEmpty(t, res.Strategy)
		})
	}
}

func TestRecover_EmptyTextGivesAllNullRecord(t *testing.T) {
	res := Recover("")
	assert.Equal(t, StrategyManual, res.Strategy)
	require.Len(t, res.Fields, len(entity.CanonicalKeys))
	for _, k := range entity.CanonicalKeys {
		assert.Nil(t, res.Fields[k], k)
	}
}

func TestManual_InvoiceLine(t *testing.T) {
	f := Manual("Facture FAC-2024-001, Fournisseur: ACME, Montant: 1500.50€, Date: 2024-01-15")
	assert.Equal(t, "FAC-2024-001", f[entity.KeyInvoiceNumber])
	assert.Equal(t, "ACME", f[entity.KeySupplier])
	assert.Equal(t, "1500.50", f[entity.KeyAmountExclTax])
	assert.Equal(t, "2024-01-15", f[entity.KeyInvoiceDate])
	assert.Nil(t, f[entity.KeyChronoNumber])
}

func TestManual_EuroBackstop(t *testing.T) {
	f := Manual("Net à payer 1234,56 € TTC")
	assert.Equal(t, json.Number("1234.56"), f[entity.KeyAmountExclTax])
}

func TestManual_SlashDate(t *testing.T) {
	f := Manual("date facture: 15/01/2024")
	assert.Equal(t, "15/01/2024", f[entity.KeyInvoiceDate])
}

func TestFromValue(t *testing.T) {
	res, err := FromValue([]byte(`{"a":"b"}`))
	require.NoError(t, err)
	assert.Equal(t, "b", res.Fields["a"])

	_, err = FromValue(42)
	assert.ErrorIs(t, err, ErrNotText)

	_, err = FromValue(nil)
	assert.ErrorIs(t, err, ErrNotText)
}
