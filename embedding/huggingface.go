package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"medorbis-gateway/config"
)

const huggingFaceEndpoint = "https://api-inference.huggingface.co/pipeline/feature-extraction/%s"

// HuggingFace calls a feature-extraction pipeline, either the hosted inference API or a compatible endpoint.
type HuggingFace struct {
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
}

func NewHuggingFace(cfg config.HuggingFaceConfig, client *http.Client) *HuggingFace {
	if client == nil {
		client = http.DefaultClient
	}
	endpoint := cfg.URL
	if endpoint == "" {
		endpoint = fmt.Sprintf(huggingFaceEndpoint, cfg.Model)
	}
	return &HuggingFace{
		endpoint: endpoint,
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		client:   client,
	}
}

func (h *HuggingFace) Model() string {
	return h.model
}

func (h *HuggingFace) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	payload, err := json.Marshal(texts)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call feature extraction endpoint: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read embedding response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected http status %d from feature extraction endpoint: %s", resp.StatusCode, string(body))
	}

	return decodeFeatures(body)
}

// decodeFeatures accepts a single flat vector or a list of vectors.
func decodeFeatures(body []byte) ([][]float32, error) {
	var nested [][]float32
	if err := json.Unmarshal(body, &nested); err == nil && len(nested) > 0 {
		return nested, nil
	}

	var flat []float32
	if err := json.Unmarshal(body, &flat); err == nil && len(flat) > 0 {
		return [][]float32{flat}, nil
	}

	return nil, errors.New("feature extraction response is not a vector or a list of vectors")
}
