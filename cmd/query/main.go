package query

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/urfave/cli/v2"

	"medorbis-gateway/config"
	"medorbis-gateway/logging"
	"medorbis-gateway/rag"
	"medorbis-gateway/service/query"
)

var Flags = []cli.Flag{
	&cli.StringFlag{Name: "question", Aliases: []string{"q"}, Usage: "the student's question", Required: true},
	&cli.StringFlag{Name: "department", Usage: "Department of the student"},
	&cli.StringFlag{Name: "year", Usage: "Year of study"},
	&cli.StringFlag{Name: "semester", Usage: "current Semester"},
	&cli.IntFlag{Name: "user-type", Usage: "0 for students, anything else skips retrieval"},
	&cli.StringFlag{Name: "user-id", Value: "cli"},
	&cli.StringFlag{Name: "session-id", Value: "cli"},
	&cli.StringFlag{Name: "model", Usage: "model override for the first remote provider"},
}

func Query(ctx *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format)

	pipeline, err := rag.FromConfig(ctx.Context, cfg, nil, logger)
	if err != nil {
		return err
	}

	req := query.ChatRequestV1{
		UserType:     ctx.Int("user-type"),
		UserID:       ctx.String("user-id"),
		SessionID:    ctx.String("session-id"),
		UserQuestion: ctx.String("question"),
		Department:   ctx.String("department"),
		Year:         ctx.String("year"),
		Semester:     ctx.String("semester"),
		Model:        ctx.String("model"),
	}
	return Answer(ctx.Context, pipeline, req, ctx.App.Writer)
}

// Answer runs one v1 request through the pipeline and writes the response as indented JSON.
func Answer(ctx context.Context, pipeline *rag.Pipeline, req query.ChatRequestV1, w io.Writer) error {
	resp := pipeline.AnswerV1(ctx, req)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}
	return nil
}
