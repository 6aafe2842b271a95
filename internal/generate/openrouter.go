package generate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/revrost/go-openrouter"
)

// OpenRouterGenerator generates text through the OpenRouter chat completions API.
type OpenRouterGenerator struct {
	client  *openrouter.Client
	model   string
	timeout time.Duration
}

// NewOpenRouterGenerator creates a generator for the given model. apiKey must
// be non-empty; it normally comes from the OPENROUTER_API_KEY environment variable.
func NewOpenRouterGenerator(apiKey, model string, timeout time.Duration) (*OpenRouterGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: missing API key", ErrGeneration)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := openrouter.NewClient(apiKey,
		openrouter.WithXTitle("Nagomi"),
		openrouter.WithHTTPReferer("https://github.com/nagomi-art/nagomi"),
	)
	return &OpenRouterGenerator{client: client, model: model, timeout: timeout}, nil
}

// Generate sends prompt as a single user message and returns the completion text.
func (g *OpenRouterGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	request := openrouter.ChatCompletionRequest{
		Model:       g.model,
		Temperature: 0.7,
		MaxTokens:   256,
		Messages: []openrouter.ChatCompletionMessage{
			openrouter.UserMessage(prompt),
		},
	}
	completion, err := g.client.CreateChatCompletion(ctx, request)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("%w: completion returned no choices", ErrGeneration)
	}
	content := completion.Choices[0].Message.Content.Text
	if content == "" {
		return "", fmt.Errorf("%w: completion returned no content", ErrGeneration)
	}
	return strings.TrimSpace(content), nil
}
