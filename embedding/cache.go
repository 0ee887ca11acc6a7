package embedding

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// WriteCache stores the embedded chunks of one document so indexing can be repeated without
// calling the embedding backend again.
func WriteCache(path string, chunks []Storage) error {
	embeddingBytes, err := json.MarshalIndent(chunks, "", " ")
	if err != nil {
		return fmt.Errorf("failed to serialize embeddings data: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create embeddings directory: %w", err)
	}
	if err := os.WriteFile(path, embeddingBytes, 0644); err != nil {
		return fmt.Errorf("failed to write embeddings data to %s: %w", path, err)
	}
	return nil
}

func ReadCache(path string) ([]Storage, error) {
	embeddingBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not load embeddings: %w", err)
	}
	var chunks []Storage
	if err := json.Unmarshal(embeddingBytes, &chunks); err != nil {
		return nil, fmt.Errorf("could not parse embeddings from %s: %w", path, err)
	}
	return chunks, nil
}
