// Package rag answers structured v1 chat requests: optional retrieval, prompt assembly, the
// responder chain and usage accounting.
package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"medorbis-gateway/config"
	"medorbis-gateway/embedding"
	"medorbis-gateway/llm"
	"medorbis-gateway/meta"
	"medorbis-gateway/search"
	"medorbis-gateway/service/query"
)

type Pipeline struct {
	provider  *embedding.Provider
	retriever *search.Retriever
	chain     *llm.Chain
	logger    *slog.Logger
}

func New(provider *embedding.Provider, retriever *search.Retriever, chain *llm.Chain, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if chain == nil {
		chain = llm.NewChain(0, logger)
	}
	return &Pipeline{provider: provider, retriever: retriever, chain: chain, logger: logger}
}

// FromConfig wires every stage from cfg. Backends without credentials are left out rather than
// failing start-up.
func FromConfig(ctx context.Context, cfg *config.Config, httpClient *http.Client, logger *slog.Logger) (*Pipeline, error) {
	searcher, err := search.FromConfig(cfg.Vector, httpClient)
	if err != nil && !errors.Is(err, search.ErrNotConfigured) {
		return nil, fmt.Errorf("failed to create vector backend: %w", err)
	}
	return FromConfigWithSearcher(ctx, cfg, searcher, httpClient, logger)
}

// FromConfigWithSearcher is FromConfig with a caller supplied vector backend, such as a signed
// OpenSearch client. A nil searcher disables retrieval.
func FromConfigWithSearcher(ctx context.Context, cfg *config.Config, searcher search.Searcher, httpClient *http.Client, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}

	embedder, err := embedding.FromConfig(cfg.Embedding, httpClient)
	if err != nil && !errors.Is(err, embedding.ErrUnavailable) {
		return nil, fmt.Errorf("failed to create embedding backend: %w", err)
	}

	chain, err := llm.FromConfig(ctx, cfg.LLM, httpClient, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm chain: %w", err)
	}

	p := New(
		embedding.NewProvider(embedder, cfg.Embedding.Timeout, logger),
		search.NewRetriever(searcher, cfg.Vector.TopK, cfg.Vector.Timeout, logger),
		chain,
		logger,
	)
	logger.InfoContext(ctx, "rag pipeline ready",
		slog.Bool("embedding", p.provider.Available()),
		slog.Bool("vector", p.retriever.Configured()),
		slog.Any("llm_stages", chain.Stages()))
	return p, nil
}

// AnswerV1 always produces a response. External calls are detached from ctx cancellation and
// bounded by their own timeouts instead, so a client disconnect still resolves to a reply.
func (p *Pipeline) AnswerV1(ctx context.Context, req query.ChatRequestV1) query.ChatResponse {
	ctx = context.WithoutCancel(ctx)

	var (
		contexts   []string
		usedVector bool
	)
	if p.shouldRetrieve(req) {
		if vector, ok := p.provider.Vector(ctx, req.UserQuestion); ok {
			usedVector = true
			contexts = p.retriever.Contexts(ctx, vector, search.Filter{
				Department: req.Department,
				Year:       req.Year,
				Semester:   req.Semester,
			})
		}
	}

	prompt := meta.BuildPrompt(req, contexts)
	reply, stage := p.chain.Respond(ctx, llm.Request{
		Prompt:     prompt,
		Model:      req.Model,
		Question:   req.UserQuestion,
		Department: req.Department,
		Year:       req.Year,
		Semester:   req.Semester,
		Contexts:   contexts,
	})

	p.logger.InfoContext(ctx, "answered v1 chat",
		slog.String("session_id", req.SessionID),
		slog.Int("user_type", req.UserType),
		slog.Bool("used_vector", usedVector),
		slog.Int("contexts", len(contexts)),
		slog.String("stage", stage))

	return query.ChatResponse{
		Reply: reply,
		Usage: query.NewUsage(prompt, reply),
		Meta:  &query.Meta{UsedVector: usedVector, Contexts: len(contexts)},
	}
}

// shouldRetrieve skips embedding entirely when nothing could be searched with the vector.
func (p *Pipeline) shouldRetrieve(req query.ChatRequestV1) bool {
	return req.UserType == 0 &&
		strings.TrimSpace(req.UserQuestion) != "" &&
		p.retriever.Configured() &&
		p.provider.Available()
}
