package dynamo

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"
)

// MarshalMap converts a record-like map into a DynamoDB item. Nil values are skipped
// at this level so absent columns never reach an index key.
func MarshalMap(m map[string]any) (map[string]types.AttributeValue, error) {
	return marshalMembers(m, false)
}

func marshalMembers(m map[string]any, keepNull bool) (map[string]types.AttributeValue, error) {
	out := make(map[string]types.AttributeValue, len(m))
	for k, v := range m {
		if v == nil && !keepNull {
			continue
		}
		av, err := MarshalValue(v)
		if err != nil {
			return nil, fmt.Errorf("marshal %q: %w", k, err)
		}
		out[k] = av
	}
	return out, nil
}

// MarshalValue tags a value with its wire type. Strings, numbers and booleans map to
// S, N and BOOL; nil maps to NULL; maps recurse into M and keep their nil members.
// Lists of distinct strings or numbers become SS or NS; any other list is stored as
// its JSON text in S.
func MarshalValue(v any) (types.AttributeValue, error) {
	switch t := v.(type) {
	case nil:
		return &types.AttributeValueMemberNULL{Value: true}, nil
	case string:
		return &types.AttributeValueMemberS{Value: t}, nil
	case bool:
		return &types.AttributeValueMemberBOOL{Value: t}, nil
	case map[string]any:
		m, err := marshalMembers(t, true)
		if err != nil {
			return nil, err
		}
		return &types.AttributeValueMemberM{Value: m}, nil
	case []string:
		return stringList(t)
	case []any:
		return anyList(t)
	}
	if n, ok := numberString(v); ok {
		return &types.AttributeValueMemberN{Value: n}, nil
	}
	return jsonString(v)
}

// numberString renders numeric values for N. Floats keep a fractional part so they
// come back as floats.
func numberString(v any) (string, bool) {
	switch t := v.(type) {
	case int:
		return strconv.Itoa(t), true
	case int32:
		return strconv.FormatInt(int64(t), 10), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case float32:
		return floatString(float64(t)), true
	case float64:
		return floatString(t), true
	case json.Number:
		return t.String(), true
	case decimal.Decimal:
		return t.String(), true
	}
	return "", false
}

func floatString(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func stringList(list []string) (types.AttributeValue, error) {
	if len(list) == 0 || !distinct(list) {
		return jsonString(list)
	}
	return &types.AttributeValueMemberSS{Value: append([]string(nil), list...)}, nil
}

func anyList(list []any) (types.AttributeValue, error) {
	if len(list) == 0 {
		return jsonString(list)
	}
	strs := make([]string, 0, len(list))
	nums := make([]string, 0, len(list))
	for _, e := range list {
		if s, ok := e.(string); ok {
			strs = append(strs, s)
		} else if n, ok := numberString(e); ok {
			nums = append(nums, n)
		}
	}
	switch {
	case len(strs) == len(list) && distinct(strs):
		return &types.AttributeValueMemberSS{Value: strs}, nil
	case len(nums) == len(list) && distinct(nums):
		return &types.AttributeValueMemberNS{Value: nums}, nil
	}
	return jsonString(list)
}

func distinct(list []string) bool {
	seen := make(map[string]struct{}, len(list))
	for _, s := range list {
		if _, dup := seen[s]; dup {
			return false
		}
		seen[s] = struct{}{}
	}
	return true
}

func jsonString(v any) (types.AttributeValue, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &types.AttributeValueMemberS{Value: string(b)}, nil
}

// UnmarshalMap is the inverse of MarshalMap.
func UnmarshalMap(item map[string]types.AttributeValue) map[string]any {
	out := make(map[string]any, len(item))
	for k, av := range item {
		out[k] = UnmarshalValue(av)
	}
	return out
}

// UnmarshalValue converts a wire value back. N becomes int without a fractional part
// and float64 otherwise; SS becomes []string and NS []any of numbers.
func UnmarshalValue(av types.AttributeValue) any {
	switch t := av.(type) {
	case *types.AttributeValueMemberS:
		return t.Value
	case *types.AttributeValueMemberN:
		return parseNumber(t.Value)
	case *types.AttributeValueMemberBOOL:
		return t.Value
	case *types.AttributeValueMemberM:
		return UnmarshalMap(t.Value)
	case *types.AttributeValueMemberSS:
		return append([]string(nil), t.Value...)
	case *types.AttributeValueMemberNS:
		out := make([]any, len(t.Value))
		for i, n := range t.Value {
			out[i] = parseNumber(n)
		}
		return out
	case *types.AttributeValueMemberL:
		out := make([]any, len(t.Value))
		for i, e := range t.Value {
			out[i] = UnmarshalValue(e)
		}
		return out
	case *types.AttributeValueMemberB:
		return t.Value
	case *types.AttributeValueMemberNULL:
		return nil
	}
	return nil
}

func parseNumber(s string) any {
	if !strings.ContainsAny(s, ".eE") {
		if i, err := strconv.Atoi(s); err == nil {
			return i
		}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
