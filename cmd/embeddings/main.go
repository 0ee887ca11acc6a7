package embeddings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"medorbis-gateway/config"
	"medorbis-gateway/embedding"
	"medorbis-gateway/logging"
	"medorbis-gateway/manifest"
)

const batchSize = 16

var Flags = []cli.Flag{
	&cli.StringFlag{Name: "data", Usage: "directory holding the manifest and embedding caches", Value: manifest.DefaultDataDirectory},
	&cli.IntFlag{Name: "chunk-words", Usage: "words per chunk, neighbouring chunks overlap by half", Value: embedding.DefaultChunkWords},
	&cli.IntFlag{Name: "concurrency", Usage: "documents embedded in parallel", Value: 4},
	&cli.BoolFlag{Name: "force", Usage: "re-embed documents that already have a cache"},
}

func Embed(ctx *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format)

	embedder, err := embedding.FromConfig(cfg.Embedding, nil)
	if err != nil {
		return fmt.Errorf("failed to create embedding backend: %w", err)
	}

	dataDirectory := ctx.String("data")
	manifestData, err := manifest.Load(dataDirectory)
	if err != nil {
		return fmt.Errorf("failed to load data manifest: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx.Context)
	g.SetLimit(max(ctx.Int("concurrency"), 1))
	for _, doc := range manifestData.Documents {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			_, err := EmbedToCache(gctx, embedder, doc, dataDirectory, ctx.Int("chunk-words"), ctx.Bool("force"), logger)
			return err
		})
	}
	return g.Wait()
}

// EmbedToCache embeds doc into its cache file and reports whether it did. An existing cache is
// kept unless force is set.
func EmbedToCache(ctx context.Context, embedder embedding.Embedder, doc manifest.Document, dataDirectory string, chunkWords int, force bool, logger *slog.Logger) (bool, error) {
	path := manifest.EmbeddingsPath(dataDirectory, doc.ID)
	if !force {
		if _, err := os.Stat(path); err == nil {
			logger.DebugContext(ctx, "skipping document with cached embeddings", slog.String("id", doc.ID))
			return false, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return false, fmt.Errorf("failed to check embeddings cache for %s: %w", doc.ID, err)
		}
	}

	chunks, err := EmbedDocument(ctx, embedder, doc, chunkWords)
	if err != nil {
		return false, fmt.Errorf("failed to embed document %s: %w", doc.ID, err)
	}
	if err := embedding.WriteCache(path, chunks); err != nil {
		return false, err
	}
	logger.InfoContext(ctx, "embedded document", slog.String("id", doc.ID), slog.String("title", doc.Title), slog.Int("chunks", len(chunks)))
	return true, nil
}

// EmbedDocument splits the document into overlapping chunks and embeds them in batches.
func EmbedDocument(ctx context.Context, embedder embedding.Embedder, doc manifest.Document, chunkWords int) ([]embedding.Storage, error) {
	texts := embedding.Chunk(doc.Content, chunkWords)
	chunks := make([]embedding.Storage, 0, len(texts))

	for start := 0; start < len(texts); start += batchSize {
		batch := texts[start:min(start+batchSize, len(texts))]
		vectors, err := embedder.Embed(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("error generating embeddings for chunks %d:%d: %w", start, start+len(batch), err)
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("expected %d embeddings for chunks %d:%d, got %d", len(batch), start, start+len(batch), len(vectors))
		}

		for i, vector := range vectors {
			chunks = append(chunks, embedding.Storage{
				ID:       fmt.Sprintf("%s#%d", doc.ID, start+i),
				Source:   doc.ID,
				Model:    embedder.Model(),
				Vector:   vector,
				Content:  batch[i],
				Metadata: doc.Metadata(),
			})
		}
	}
	return chunks, nil
}
