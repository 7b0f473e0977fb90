package dynamo

import (
	"encoding/json"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshal_RoundTripKeepsTypes(t *testing.T) {
	in := map[string]any{
		"fournisseur": "ACME",
		"montant_ht":  1500.5,
		"paid":        true,
		"details": map[string]any{
			"lines":    3,
			"currency": "EUR",
			"flags":    map[string]any{"urgent": false},
		},
	}
	item, err := MarshalMap(in)
	require.NoError(t, err)

	assert.IsType(t, &types.AttributeValueMemberS{}, item["fournisseur"])
	assert.IsType(t, &types.AttributeValueMemberN{}, item["montant_ht"])
	assert.IsType(t, &types.AttributeValueMemberBOOL{}, item["paid"])
	assert.IsType(t, &types.AttributeValueMemberM{}, item["details"])

	assert.Equal(t, in, UnmarshalMap(item))
}

func TestMarshalValue(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want types.AttributeValue
	}{
		{"int", 42, &types.AttributeValueMemberN{Value: "42"}},
		{"whole float keeps fraction", 12.0, &types.AttributeValueMemberN{Value: "12.0"}},
		{"json number", json.Number("1500.50"), &types.AttributeValueMemberN{Value: "1500.50"}},
		{"decimal", decimal.RequireFromString("99.90"), &types.AttributeValueMemberN{Value: "99.9"}},
		{"string list", []string{"a", "b"}, &types.AttributeValueMemberSS{Value: []string{"a", "b"}}},
		{"any string list", []any{"x", "y"}, &types.AttributeValueMemberSS{Value: []string{"x", "y"}}},
		{"number list", []any{1, 2.5}, &types.AttributeValueMemberNS{Value: []string{"1", "2.5"}}},
		{"mixed list", []any{"a", 1}, &types.AttributeValueMemberS{Value: `["a",1]`}},
		{"nested list", []any{[]any{1}}, &types.AttributeValueMemberS{Value: `[[1]]`}},
		{"duplicate strings", []string{"a", "a"}, &types.AttributeValueMemberS{Value: `["a","a"]`}},
		{"empty list", []any{}, &types.AttributeValueMemberS{Value: `[]`}},
		{"nil", nil, &types.AttributeValueMemberNULL{Value: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarshalValue(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMarshalMap_SkipsNil(t *testing.T) {
	item, err := MarshalMap(map[string]any{"a": nil, "b": "x"})
	require.NoError(t, err)
	assert.Len(t, item, 1)
	assert.Contains(t, item, "b")
}

func TestMarshalMap_NestedNilBecomesNull(t *testing.T) {
	item, err := MarshalMap(map[string]any{
		"extra_fields": map[string]any{"remise": nil, "devise": "EUR"},
	})
	require.NoError(t, err)

	m, ok := item["extra_fields"].(*types.AttributeValueMemberM)
	require.True(t, ok)
	assert.Equal(t, &types.AttributeValueMemberNULL{Value: true}, m.Value["remise"])

	back := UnmarshalMap(item)["extra_fields"].(map[string]any)
	require.Contains(t, back, "remise")
	assert.Nil(t, back["remise"])
	assert.Equal(t, "EUR", back["devise"])
}

func TestUnmarshalValue_Collections(t *testing.T) {
	ss, err := MarshalValue([]string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, UnmarshalValue(ss))

	ns, err := MarshalValue([]any{1, 2.5})
	require.NoError(t, err)
	assert.Equal(t, []any{1, 2.5}, UnmarshalValue(ns))

	mixed, err := MarshalValue([]any{"a", 1})
	require.NoError(t, err)
	assert.Equal(t, `["a",1]`, UnmarshalValue(mixed))

	assert.Nil(t, UnmarshalValue(&types.AttributeValueMemberNULL{Value: true}))
	assert.Equal(t, []any{"x", true}, UnmarshalValue(&types.AttributeValueMemberL{Value: []types.AttributeValue{
		&types.AttributeValueMemberS{Value: "x"},
		&types.AttributeValueMemberBOOL{Value: true},
	}}))
}
