package llm

import (
	"encoding/json"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/sashabaranov/go-openai"
)

// Params are the provider-independent generation inputs.
type Params struct {
	ModelID     string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// family owns one wire shape: how to build its request and read its response.
// parse reports false when the body does not have the family's shape.
type family struct {
	build func(p Params) any
	parse func(raw []byte) (string, bool)
}

var families = map[ProviderKind]family{
	ProviderCompletion:  {build: buildCompletion, parse: parseCompletion},
	ProviderMessages:    {build: buildMessages, parse: parseMessages},
	ProviderGeneration:  {build: buildGeneration, parse: parseGeneration},
	ProviderOutputList:  {build: buildOutputList, parse: parseOutputList},
	ProviderCompletions: {build: buildCompletions, parse: parseCompletions},
	ProviderGenerations: {build: buildGenerations, parse: parseGenerations},
	ProviderChat:        {build: buildChat, parse: parseChat},
	ProviderUnknown:     {build: buildCompletion, parse: parseAnyKnown},
}

const (
	humanTurn        = "\n\nHuman:"
	bedrockAnthropic = "bedrock-2023-05-31"
	defaultTopP      = 0.9
)

// completion (Anthropic text completions)

type completionRequest struct {
	Prompt            string   `json:"prompt"`
	MaxTokensToSample int      `json:"max_tokens_to_sample"`
	Temperature       float64  `json:"temperature"`
	StopSequences     []string `json:"stop_sequences"`
}

func buildCompletion(p Params) any {
	return completionRequest{
		Prompt:            humanTurn + " " + p.Prompt + "\n\nAssistant:",
		MaxTokensToSample: p.MaxTokens,
		Temperature:       p.Temperature,
		StopSequences:     []string{humanTurn},
	}
}

func parseCompletion(raw []byte) (string, bool) {
	var r struct {
		Completion *string `json:"completion"`
	}
	if json.Unmarshal(raw, &r) != nil || r.Completion == nil {
		return "", false
	}
	return strings.TrimSpace(*r.Completion), true
}

// messages (Anthropic messages API on Bedrock)

type messagesRequest struct {
	AnthropicVersion string                   `json:"anthropic_version"`
	MaxTokens        int                      `json:"max_tokens"`
	Temperature      float64                  `json:"temperature"`
	Messages         []anthropic.MessageParam `json:"messages"`
}

func buildMessages(p Params) any {
	return messagesRequest{
		AnthropicVersion: bedrockAnthropic,
		MaxTokens:        p.MaxTokens,
		Temperature:      p.Temperature,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(p.Prompt)),
		},
	}
}

func parseMessages(raw []byte) (string, bool) {
	var msg anthropic.Message
	if json.Unmarshal(raw, &msg) != nil || len(msg.Content) == 0 {
		return "", false
	}
	var b strings.Builder
	for _, content := range msg.Content {
		if block, ok := content.AsAny().(anthropic.TextBlock); ok {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", false
	}
	return strings.TrimSpace(b.String()), true
}

// generation (Meta Llama)

type generationRequest struct {
	Prompt      string  `json:"prompt"`
	MaxGenLen   int     `json:"max_gen_len"`
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
}

func buildGeneration(p Params) any {
	return generationRequest{Prompt: p.Prompt, MaxGenLen: p.MaxTokens, Temperature: p.Temperature, TopP: defaultTopP}
}

func parseGeneration(raw []byte) (string, bool) {
	var r struct {
		Generation *string `json:"generation"`
	}
	if json.Unmarshal(raw, &r) != nil || r.Generation == nil {
		return "", false
	}
	return strings.TrimSpace(*r.Generation), true
}

// output list (Amazon Titan)

type titanConfig struct {
	MaxTokenCount int      `json:"maxTokenCount"`
	Temperature   float64  `json:"temperature"`
	TopP          float64  `json:"topP"`
	StopSequences []string `json:"stopSequences"`
}

type titanRequest struct {
	InputText            string      `json:"inputText"`
	TextGenerationConfig titanConfig `json:"textGenerationConfig"`
}

func buildOutputList(p Params) any {
	return titanRequest{
		InputText: p.Prompt,
		TextGenerationConfig: titanConfig{
			MaxTokenCount: p.MaxTokens,
			Temperature:   p.Temperature,
			TopP:          defaultTopP,
			StopSequences: []string{},
		},
	}
}

func parseOutputList(raw []byte) (string, bool) {
	var r struct {
		Results []struct {
			OutputText string `json:"outputText"`
		} `json:"results"`
	}
	if json.Unmarshal(raw, &r) != nil || r.Results == nil {
		return "", false
	}
	if len(r.Results) == 0 {
		return "", true
	}
	return strings.TrimSpace(r.Results[0].OutputText), true
}

// completions array (AI21 Jurassic)

type penalty struct {
	Scale int `json:"scale"`
}

type ai21Request struct {
	Prompt           string   `json:"prompt"`
	MaxTokens        int      `json:"maxTokens"`
	Temperature      float64  `json:"temperature"`
	TopP             float64  `json:"topP"`
	StopSequences    []string `json:"stopSequences"`
	CountPenalty     penalty  `json:"countPenalty"`
	PresencePenalty  penalty  `json:"presencePenalty"`
	FrequencyPenalty penalty  `json:"frequencyPenalty"`
}

func buildCompletions(p Params) any {
	return ai21Request{
		Prompt:        p.Prompt,
		MaxTokens:     p.MaxTokens,
		Temperature:   p.Temperature,
		TopP:          defaultTopP,
		StopSequences: []string{},
	}
}

func parseCompletions(raw []byte) (string, bool) {
	var r struct {
		Completions []struct {
			Data struct {
				Text string `json:"text"`
			} `json:"data"`
		} `json:"completions"`
	}
	if json.Unmarshal(raw, &r) != nil || len(r.Completions) == 0 {
		return "", false
	}
	return strings.TrimSpace(r.Completions[0].Data.Text), true
}

// generations array (Cohere Command)

type cohereRequest struct {
	Prompt            string   `json:"prompt"`
	MaxTokens         int      `json:"max_tokens"`
	Temperature       float64  `json:"temperature"`
	P                 float64  `json:"p"`
	K                 int      `json:"k"`
	StopSequences     []string `json:"stop_sequences"`
	ReturnLikelihoods string   `json:"return_likelihoods"`
}

func buildGenerations(p Params) any {
	return cohereRequest{
		Prompt:            p.Prompt,
		MaxTokens:         p.MaxTokens,
		Temperature:       p.Temperature,
		P:                 defaultTopP,
		StopSequences:     []string{},
		ReturnLikelihoods: "NONE",
	}
}

func parseGenerations(raw []byte) (string, bool) {
	var r struct {
		Generations []struct {
			Text string `json:"text"`
		} `json:"generations"`
	}
	if json.Unmarshal(raw, &r) != nil || r.Generations == nil {
		return "", false
	}
	if len(r.Generations) == 0 {
		return "", true
	}
	return strings.TrimSpace(r.Generations[0].Text), true
}

// chat (OpenAI-compatible gpt-oss)

func buildChat(p Params) any {
	return openai.ChatCompletionRequest{
		Model:               p.ModelID,
		MaxCompletionTokens: p.MaxTokens,
		Temperature:         float32(p.Temperature),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: p.Prompt},
		},
	}
}

func parseChat(raw []byte) (string, bool) {
	var rsp openai.ChatCompletionResponse
	if json.Unmarshal(raw, &rsp) != nil || len(rsp.Choices) == 0 {
		return "", false
	}
	return strings.TrimSpace(rsp.Choices[0].Message.Content), true
}

// parseAnyKnown reads the single-string shapes, in the order unknown ids most often use.
func parseAnyKnown(raw []byte) (string, bool) {
	if s, ok := parseCompletion(raw); ok {
		return s, true
	}
	if s, ok := parseGeneration(raw); ok {
		return s, true
	}
	var r struct {
		OutputText *string `json:"outputText"`
	}
	if json.Unmarshal(raw, &r) == nil && r.OutputText != nil {
		return strings.TrimSpace(*r.OutputText), true
	}
	return "", false
}
