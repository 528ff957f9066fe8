package llm

import "context"

// Request is a single generation request to an LLM provider.
type Request struct {
	Model       string            `json:"model,omitempty"`
	Prompt      string            `json:"prompt"`
	System      string            `json:"system,omitempty"`
	Temperature float32           `json:"temperature,omitempty"`
	MaxTokens   int               `json:"max_tokens,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Usage reports token consumption for one response.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a provider's answer to a Request.
type Response struct {
	Content  string            `json:"content"`
	Model    string            `json:"model"`
	Provider string            `json:"provider"`
	Usage    Usage             `json:"usage"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Provider is the minimal LLM provider contract. Implementations return
// categorized *types.Error values on failure.
type Provider interface {
	// Name returns the provider identifier, e.g. "openai".
	Name() string

	// Generate produces a completion for the request. The context bounds
	// the underlying network call.
	Generate(ctx context.Context, req *Request) (*Response, error)
}
