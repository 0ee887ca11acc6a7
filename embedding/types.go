package embedding

import (
	"context"
	"errors"
)

var ErrUnavailable = errors.New("embedding backend not configured")

// Embedder turns texts into vectors, one vector per input in the same order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

// Storage is one embedded chunk of a source document as cached on disk before indexing.
type Storage struct {
	ID       string            `json:"id"`
	Source   string            `json:"source"`
	Model    string            `json:"model"`
	Vector   []float32         `json:"vector"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}
