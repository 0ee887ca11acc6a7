package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"

	"medorbis-gateway/config"
	"medorbis-gateway/meta"
)

// OpenAIChat talks to any OpenAI compatible chat completion endpoint, which covers both OpenRouter
// and OpenAI itself.
type OpenAIChat struct {
	name        string
	client      *openai.Client
	model       string
	temperature float32
}

func NewOpenAIChat(name string, cfg config.ProviderConfig, temperature float32, httpClient *http.Client) *OpenAIChat {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	if httpClient != nil {
		clientConfig.HTTPClient = httpClient
	}
	return &OpenAIChat{
		name:        name,
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		temperature: temperature,
	}
}

func (o *OpenAIChat) Name() string {
	return o.name
}

func (o *OpenAIChat) Attempt(ctx context.Context, req Request) (string, error) {
	model := o.model
	if req.Model != "" {
		model = req.Model
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    meta.CreateConversation(meta.SystemInstruction, req.Prompt),
		Temperature: o.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
