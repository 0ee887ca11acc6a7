package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"medorbis-gateway/config"
)

// Provider is the best-effort front for an Embedder. Failures are logged and reported as unavailable.
type Provider struct {
	embedder Embedder
	timeout  time.Duration
	logger   *slog.Logger
}

// NewProvider wraps e. A nil e yields a provider that is never available.
func NewProvider(e Embedder, timeout time.Duration, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{embedder: e, timeout: timeout, logger: logger}
}

func (p *Provider) Available() bool {
	return p != nil && p.embedder != nil
}

// Vector embeds a single text. The second result is false when no vector could be produced.
func (p *Provider) Vector(ctx context.Context, text string) ([]float32, bool) {
	if !p.Available() {
		return nil, false
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	vectors, err := p.embedder.Embed(ctx, []string{text})
	if err != nil {
		p.logger.WarnContext(ctx, "failed to embed text", slog.String("model", p.embedder.Model()), slog.Any("error", err))
		return nil, false
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		p.logger.WarnContext(ctx, "embedding backend returned no vector", slog.String("model", p.embedder.Model()))
		return nil, false
	}
	return vectors[0], true
}

// FromConfig builds the configured backend, or returns ErrUnavailable when it has no credential.
func FromConfig(cfg config.EmbeddingConfig, httpClient *http.Client) (Embedder, error) {
	if !cfg.Configured() {
		return nil, ErrUnavailable
	}
	switch cfg.Backend {
	case config.BackendHuggingFace:
		return NewHuggingFace(cfg.HuggingFace, httpClient), nil
	case config.BackendOpenAI:
		return NewOpenAI(cfg.OpenAI, httpClient), nil
	default:
		return nil, fmt.Errorf("unknown embedding backend %q", cfg.Backend)
	}
}
