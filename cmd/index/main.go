package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"medorbis-gateway/config"
	"medorbis-gateway/embedding"
	"medorbis-gateway/logging"
	"medorbis-gateway/manifest"
	"medorbis-gateway/search"
)

var Flags = []cli.Flag{
	&cli.StringFlag{Name: "data", Usage: "directory holding the manifest and embedding caches", Value: manifest.DefaultDataDirectory},
}

func Index(ctx *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format)

	dataDirectory := ctx.String("data")
	manifestData, err := manifest.Load(dataDirectory)
	if err != nil {
		return fmt.Errorf("failed to load data manifest: %w", err)
	}

	searcher, err := search.FromConfig(cfg.Vector, nil)
	if err != nil {
		return fmt.Errorf("failed to create vector backend: %w", err)
	}

	indexed, err := IndexDocuments(ctx.Context, searcher, dataDirectory, manifestData, logger)
	if err != nil {
		return err
	}
	logger.InfoContext(ctx.Context, "index complete", slog.String("backend", searcher.Name()), slog.Int("chunks", indexed))
	return nil
}

// IndexDocuments writes the cached chunk embeddings of every manifest document into the vector
// backend and returns how many chunks were written. Documents that were never embedded are skipped.
func IndexDocuments(ctx context.Context, searcher search.Searcher, dataDirectory string, m *manifest.Manifest, logger *slog.Logger) (int, error) {
	prepared := false
	indexed := 0
	for _, doc := range m.Documents {
		chunks, err := embedding.ReadCache(manifest.EmbeddingsPath(dataDirectory, doc.ID))
		if errors.Is(err, os.ErrNotExist) {
			logger.WarnContext(ctx, "document has no embeddings, run embed first", slog.String("id", doc.ID), slog.String("title", doc.Title))
			continue
		}
		if err != nil {
			return indexed, err
		}
		if len(chunks) == 0 {
			continue
		}

		if p, ok := searcher.(search.Preparer); ok && !prepared {
			if err := p.Prepare(ctx, len(chunks[0].Vector)); err != nil {
				return indexed, fmt.Errorf("failed to prepare %s: %w", searcher.Name(), err)
			}
			prepared = true
		}

		if err := searcher.Upsert(ctx, SearchDocuments(chunks)); err != nil {
			return indexed, fmt.Errorf("error indexing embeddings for document %s: %w", doc.ID, err)
		}
		indexed += len(chunks)
		logger.InfoContext(ctx, "indexed document", slog.String("id", doc.ID), slog.String("title", doc.Title), slog.Int("chunks", len(chunks)))
	}
	return indexed, nil
}

// SearchDocuments converts cached chunks into backend documents whose payload carries the chunk
// text under "text", the source document id and the academic metadata.
func SearchDocuments(chunks []embedding.Storage) []search.Document {
	docs := make([]search.Document, len(chunks))
	for i, c := range chunks {
		payload := make(map[string]any, len(c.Metadata)+2)
		for k, v := range c.Metadata {
			payload[k] = v
		}
		payload["text"] = c.Content
		payload["source"] = c.Source
		docs[i] = search.Document{ID: c.ID, Vector: c.Vector, Payload: payload}
	}
	return docs
}
