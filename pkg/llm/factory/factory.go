package factory

import (
	"fmt"

	"sheetpulse/pkg/llm"
	"sheetpulse/pkg/llm/huggingface"
	"sheetpulse/pkg/llm/ollama"
)

// NewLLMProvider selects a provider by name. "ollama" talks to a local or
// self-hosted Ollama server; "openai-compatible" talks to any endpoint that
// speaks the OpenAI chat-completions wire format (used for the streaming
// chat workflow path, since Ollama's tool-calling support lags it).
func NewLLMProvider(providerType, modelName, baseURL, apiKey string) (llm.LLMProvider, error) {
	switch providerType {
	case "ollama":
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, modelName), nil
	case "openai-compatible":
		return huggingface.NewHuggingFaceProvider(apiKey, baseURL, modelName), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}
