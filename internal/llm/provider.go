package llm

import "strings"

// ProviderKind groups model backends sharing one request/response wire shape.
type ProviderKind int

const (
	// ProviderUnknown ids are sent in the completion shape.
	ProviderUnknown ProviderKind = iota
	// ProviderCompletion is the Anthropic text-completions shape ({completion}).
	ProviderCompletion
	// ProviderMessages is the Anthropic messages shape used by Claude 3 and later.
	ProviderMessages
	// ProviderGeneration is the Meta Llama shape ({generation}).
	ProviderGeneration
	// ProviderOutputList is the Amazon Titan shape ({results:[{outputText}]}).
	ProviderOutputList
	// ProviderCompletions is the AI21 Jurassic shape ({completions:[{data:{text}}]}).
	ProviderCompletions
	// ProviderGenerations is the Cohere Command shape ({generations:[{text}]}).
	ProviderGenerations
	// ProviderChat is the OpenAI chat-completions shape used by gpt-oss models.
	ProviderChat
)

// DefaultProvider is the family whose shape unknown ids fall back to.
const DefaultProvider = ProviderCompletion

func (k ProviderKind) String() string {
	switch k {
	case ProviderCompletion:
		return "completion"
	case ProviderMessages:
		return "messages"
	case ProviderGeneration:
		return "generation"
	case ProviderOutputList:
		return "output_list"
	case ProviderCompletions:
		return "completions"
	case ProviderGenerations:
		return "generations"
	case ProviderChat:
		return "chat"
	default:
		return "unknown"
	}
}

// legacy Anthropic models that only speak the text-completions API
var completionOnly = []string{"claude-v2", "claude-instant"}

// Classify derives the provider family from a model id by substring match.
// Region-prefixed inference profile ids ("us.anthropic...") classify like the bare id.
func Classify(modelID string) ProviderKind {
	id := strings.ToLower(modelID)
	switch {
	case strings.Contains(id, "anthropic"):
		for _, legacy := range completionOnly {
			if strings.Contains(id, legacy) {
				return ProviderCompletion
			}
		}
		return ProviderMessages
	case strings.Contains(id, "meta"):
		return ProviderGeneration
	case strings.Contains(id, "amazon"):
		return ProviderOutputList
	case strings.Contains(id, "ai21"):
		return ProviderCompletions
	case strings.Contains(id, "cohere"):
		return ProviderGenerations
	case strings.Contains(id, "openai"):
		return ProviderChat
	default:
		return ProviderUnknown
	}
}
