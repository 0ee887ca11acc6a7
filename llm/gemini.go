package llm

import (
	"context"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"medorbis-gateway/config"
	"medorbis-gateway/meta"
)

type Gemini struct {
	client        *genai.Client
	model         string
	contentConfig *genai.GenerateContentConfig
}

func NewGemini(ctx context.Context, cfg config.ProviderConfig, temperature float32, httpClient *http.Client) (*Gemini, error) {
	clientConfig := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &Gemini{
		client: client,
		model:  cfg.Model,
		contentConfig: &genai.GenerateContentConfig{
			Temperature:       &temperature,
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: meta.SystemInstruction}}},
		},
	}, nil
}

func (g *Gemini) Name() string {
	return StageGemini
}

func (g *Gemini) Attempt(ctx context.Context, req Request) (string, error) {
	model := g.model
	if req.Model != "" {
		model = req.Model
	}

	// GenerateContent fills defaults into the config it is given, so each call gets its own copy.
	contentConfig := *g.contentConfig
	contents := []*genai.Content{genai.NewContentFromText(req.Prompt, genai.RoleUser)}
	resp, err := g.client.Models.GenerateContent(ctx, model, contents, &contentConfig)
	if err != nil {
		return "", fmt.Errorf("gemini generate content failed: %w", err)
	}
	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" && fb.BlockReason != genai.BlockedReasonUnspecified {
		return "", fmt.Errorf("gemini blocked the prompt: %s", fb.BlockReason)
	}
	return resp.Text(), nil
}
