package search

import (
	"context"
	"fmt"
	"slices"

	"github.com/philippgille/chromem-go"

	"medorbis-gateway/config"
)

// Chromem is an embedded, file persisted vector store for single node deployments.
type Chromem struct {
	collection *chromem.Collection
}

func NewChromem(cfg config.ChromemConfig) (*Chromem, error) {
	db, err := chromem.NewPersistentDB(cfg.Path, false)
	if err != nil {
		return nil, fmt.Errorf("failed to open chromem database at %s: %w", cfg.Path, err)
	}
	return NewChromemWithDB(db, cfg.Collection)
}

// NewChromemWithDB uses an existing database, such as an in-memory one.
func NewChromemWithDB(db *chromem.DB, collection string) (*Chromem, error) {
	// Vectors are always supplied, so the collection never needs its own embedding function.
	c, err := db.GetOrCreateCollection(collection, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open collection %s: %w", collection, err)
	}
	return &Chromem{collection: c}, nil
}

func (c *Chromem) Name() string {
	return config.BackendChromem
}

func (c *Chromem) Search(ctx context.Context, vector []float32, filter Filter, limit int) ([]Hit, error) {
	// chromem rejects limits above the collection size.
	count := c.collection.Count()
	if count == 0 || limit <= 0 {
		return nil, nil
	}
	if limit > count {
		limit = count
	}

	results, err := c.collection.QueryEmbedding(ctx, vector, limit, filter.Fields(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection: %w", err)
	}

	hits := make([]Hit, len(results))
	for i, r := range results {
		payload := make(map[string]any, len(r.Metadata)+1)
		for k, v := range r.Metadata {
			payload[k] = v
		}
		payload["text"] = r.Content
		hits[i] = Hit{ID: r.ID, Score: r.Similarity, Payload: payload}
	}
	return hits, nil
}

// Upsert stores the snippet text as document content and the remaining scalar payload as metadata.
func (c *Chromem) Upsert(ctx context.Context, docs []Document) error {
	for _, d := range docs {
		content, _ := Snippet(d.Payload)
		metadata := make(map[string]string, len(d.Payload))
		for k, v := range d.Payload {
			if slices.Contains(snippetFields, k) {
				continue
			}
			if s, ok := scalarString(v); ok {
				metadata[k] = s
			}
		}

		err := c.collection.AddDocument(ctx, chromem.Document{
			ID:        d.ID,
			Metadata:  metadata,
			Embedding: d.Vector,
			Content:   content,
		})
		if err != nil {
			return fmt.Errorf("failed to add document %s: %w", d.ID, err)
		}
	}
	return nil
}
