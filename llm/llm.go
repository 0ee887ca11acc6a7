// Package llm produces the reply text for an assembled prompt.
//
// Responders are tried as an ordered chain in which the first configured stage is terminal: a
// remote failure becomes an annotated reply instead of an error, and the local template is used
// only when no remote provider has a credential.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"medorbis-gateway/config"
)

const (
	StageRouting = "openrouter"
	StageOpenAI  = "openai"
	StageGemini  = "gemini"
	StageLocal   = "local"
)

var ErrEmptyReply = errors.New("provider returned an empty reply")

// Request carries everything a responder may need. Prompt is sent to remote providers, the
// remaining fields feed the fallback and local templates.
type Request struct {
	Prompt     string
	Model      string
	Question   string
	Department string
	Year       string
	Semester   string
	Contexts   []string
}

type Responder interface {
	Name() string
	Attempt(ctx context.Context, req Request) (string, error)
}

type Chain struct {
	stages  []Responder
	timeout time.Duration
	logger  *slog.Logger
}

// NewChain orders the given responders by priority. Nil responders are skipped and the local
// template always closes the chain.
func NewChain(timeout time.Duration, logger *slog.Logger, stages ...Responder) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Chain{timeout: timeout, logger: logger}
	for _, s := range stages {
		if s != nil {
			c.stages = append(c.stages, s)
		}
	}
	c.stages = append(c.stages, Local{})
	return c
}

// Stages lists the responder names in the order they would be considered.
func (c *Chain) Stages() []string {
	names := make([]string, len(c.stages))
	for i, s := range c.stages {
		names[i] = s.Name()
	}
	return names
}

// Respond always yields a reply along with the name of the stage that produced it. Only the first
// stage is attempted, once.
func (c *Chain) Respond(ctx context.Context, req Request) (string, string) {
	stage := c.stages[0]

	callCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	reply, err := stage.Attempt(callCtx, req)
	if err == nil {
		reply = strings.TrimSpace(reply)
		if reply == "" {
			err = ErrEmptyReply
		}
	}
	if err != nil {
		c.logger.WarnContext(ctx, "llm provider failed, replying with fallback",
			slog.String("stage", stage.Name()), slog.Any("error", err))
		return ErrorReply(stage.Name(), err, req.Question), stage.Name()
	}
	return reply, stage.Name()
}

// ErrorReply names the failed stage and still answers with a generic sentence around the question.
func ErrorReply(stage string, err error, question string) string {
	return fmt.Sprintf("[%s error: %v] Based on the available context, here's a helpful response to your question: %s",
		stage, err, question)
}

// FromConfig builds the chain from whichever providers have credentials: the routing provider
// first, then the selected direct provider.
func FromConfig(ctx context.Context, cfg config.LLMConfig, httpClient *http.Client, logger *slog.Logger) (*Chain, error) {
	var stages []Responder
	if cfg.OpenRouter.Configured() {
		stages = append(stages, NewOpenAIChat(StageRouting, cfg.OpenRouter, cfg.Temperature, httpClient))
	}

	switch cfg.DirectProvider {
	case config.BackendOpenAI:
		if cfg.OpenAI.Configured() {
			stages = append(stages, NewOpenAIChat(StageOpenAI, cfg.OpenAI, cfg.Temperature, httpClient))
		}
	case config.BackendGemini:
		if cfg.Gemini.Configured() {
			g, err := NewGemini(ctx, cfg.Gemini, cfg.Temperature, httpClient)
			if err != nil {
				return nil, err
			}
			stages = append(stages, g)
		}
	}

	return NewChain(cfg.Timeout, logger, stages...), nil
}
