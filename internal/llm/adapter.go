package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
)

// Adapter translates between one prompt and the wire shapes of every provider family.
// It performs no I/O.
type Adapter struct {
	logger *slog.Logger
}

func NewAdapter(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{logger: logger}
}

// BuildRequest renders the JSON request body for modelID. Unknown ids get the
// default family's body and a warning; they are still worth attempting.
func (a *Adapter) BuildRequest(modelID, prompt string, maxTokens int, temperature float64) ([]byte, error) {
	kind := Classify(modelID)
	if kind == ProviderUnknown {
		a.logger.Warn("llm.adapter.unknown_model",
			"model", modelID,
			"fallback", DefaultProvider.String(),
		)
	}
	body := families[kind].build(Params{
		ModelID:     modelID,
		Prompt:      prompt,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", kind, err)
	}
	return b, nil
}

// ParseResponse extracts the generated text. A body matching no known shape is
// returned verbatim so recovery can still look for JSON inside it.
func (a *Adapter) ParseResponse(modelID string, raw []byte) string {
	kind := Classify(modelID)
	if text, ok := families[kind].parse(raw); ok {
		return text
	}
	a.logger.Warn("llm.adapter.unparsed_response",
		"model", modelID,
		"provider", kind.String(),
		"raw_bytes", len(raw),
	)
	return string(raw)
}
