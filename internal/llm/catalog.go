package llm

import (
	"slices"
	"strings"
)

// ModelInfo is one entry of the model catalog.
type ModelInfo struct {
	Alias    string
	ID       string
	Provider ProviderKind
}

var catalog = map[string]string{
	"claude-3-sonnet": "anthropic.claude-3-sonnet-20240229-v1:0",
	"claude-3-haiku":  "anthropic.claude-3-haiku-20240307-v1:0",
	"claude-3-opus":   "anthropic.claude-3-opus-20240229-v1:0",
	"claude-2.1":      "anthropic.claude-v2:1",
	"claude-instant":  "anthropic.claude-instant-v1",

	"titan-text-express": "amazon.titan-text-express-v1",
	"titan-text-lite":    "amazon.titan-text-lite-v1",

	"jurassic-2-ultra": "ai21.j2-ultra-v1",
	"jurassic-2-mid":   "ai21.j2-mid-v1",

	"cohere-command": "cohere.command-text-v14",

	"llama-3-70b": "meta.llama3-70b-instruct-v1:0",
	"llama-3-8b":  "meta.llama3-8b-instruct-v1:0",
	"llama-2-70b": "meta.llama2-70b-chat-v1",
	"llama-2-13b": "meta.llama2-13b-chat-v1",

	"gpt-oss-120b": "openai.gpt-oss-120b-1:0",
	"gpt-oss-20b":  "openai.gpt-oss-20b-1:0",
}

// ResolveModel maps a catalog alias to its model id. Anything else is returned as
// given; known reports whether the result is a catalog id.
func ResolveModel(nameOrID string) (id string, known bool) {
	key := strings.TrimSpace(nameOrID)
	if id, ok := catalog[strings.ToLower(key)]; ok {
		return id, true
	}
	for _, v := range catalog {
		if v == key {
			return key, true
		}
	}
	return key, false
}

// Catalog lists known models sorted by alias.
func Catalog() []ModelInfo {
	out := make([]ModelInfo, 0, len(catalog))
	for alias, id := range catalog {
		out = append(out, ModelInfo{Alias: alias, ID: id, Provider: Classify(id)})
	}
	slices.SortFunc(out, func(a, b ModelInfo) int { return strings.Compare(a.Alias, b.Alias) })
	return out
}
