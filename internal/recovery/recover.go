package recovery

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/kluster66/invoice-extractor/internal/entity"
)

// ErrNotText is returned when recovery is handed something other than text.
var ErrNotText = errors.New("recovery input is not text")

// Strategy names.
const (
	StrategyFenced = "fenced"
	StrategyWhole  = "whole"
	StrategyBraces = "braces"
	StrategyManual = "manual"
)

// Result is a recovered record and how it was found.
type Result struct {
	Fields   entity.Fields
	Strategy string
	// Raw is the exact text the record was decoded from. For the manual strategy
	// it is the JSON encoding of the pattern matches.
	Raw string
}

// Strategy is one attempt at finding a JSON object in model output.
type Strategy struct {
	Name    string
	Attempt func(text string) (fields entity.Fields, raw string, ok bool)
}

var (
	reFenced = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")
	reBraces = regexp.MustCompile(`(?s)\{.*\}`)
)

// Strategies are tried in order; the first success wins.
var Strategies = []Strategy{
	{Name: StrategyFenced, Attempt: fromFencedBlock},
	{Name: StrategyWhole, Attempt: fromWholeText},
	{Name: StrategyBraces, Attempt: fromBraceSpan},
}

// Recover turns model output into a record. It always returns a record: when no
// JSON object can be decoded it falls back to labelled-text patterns, possibly
// yielding every field as nil.
func Recover(text string) Result {
	cleaned := strings.TrimSpace(text)
	for _, s := range Strategies {
		if fields, raw, ok := s.Attempt(cleaned); ok {
			return Result{Fields: fields, Strategy: s.Name, Raw: raw}
		}
	}
	fields := Manual(text)
	raw, err := json.Marshal(fields)
	if err != nil {
		raw = []byte("{}")
	}
	return Result{Fields: fields, Strategy: StrategyManual, Raw: string(raw)}
}

// FromValue accepts text in any of its usual Go forms and recovers it.
func FromValue(v any) (Result, error) {
	switch t := v.(type) {
	case string:
		return Recover(t), nil
	case []byte:
		return Recover(string(t)), nil
	case fmt.Stringer:
		return Recover(t.String()), nil
	default:
		return Result{}, fmt.Errorf("%w: %T", ErrNotText, v)
	}
}

func fromFencedBlock(text string) (entity.Fields, string, bool) {
	for _, m := range reFenced.FindAllStringSubmatch(text, -1) {
		if fields, ok := parseObject(m[1]); ok {
			return fields, m[1], true
		}
	}
	return nil, "", false
}

func fromWholeText(text string) (entity.Fields, string, bool) {
	fields, ok := parseObject(text)
	return fields, text, ok
}

func fromBraceSpan(text string) (entity.Fields, string, bool) {
	span := reBraces.FindString(text)
	if span == "" {
		return nil, "", false
	}
	fields, ok := parseObject(span)
	return fields, span, ok
}

// parseObject decodes s as exactly one JSON object. Numbers stay json.Number so
// amounts keep their written precision.
func parseObject(s string) (entity.Fields, bool) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil || m == nil {
		return nil, false
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, false
	}
	return entity.Fields(m), true
}
