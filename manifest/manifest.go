package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	DefaultDataDirectory = "data"
	manifestName         = "manifest.json"
	embeddingsSuffix     = ".embeddings.json"
)

// Document is one course announcement or handbook page, tagged with the academic fields used to
// filter retrieval.
type Document struct {
	ID          string
	Title       string
	Description string
	Link        string
	Published   string
	Content     string
	Department  string
	Year        string
	Semester    string
}

// Metadata returns the filterable fields plus the source details stored with every chunk.
func (d Document) Metadata() map[string]string {
	metadata := map[string]string{
		"title": d.Title,
		"link":  d.Link,
	}
	if d.Department != "" {
		metadata["Department"] = d.Department
	}
	if d.Year != "" {
		metadata["Year"] = d.Year
	}
	if d.Semester != "" {
		metadata["Semester"] = d.Semester
	}
	return metadata
}

type Manifest struct {
	LastUpdated string
	Documents   map[string]Document
}

// EmbeddingsPath is where the cached chunk embeddings of a document live.
func EmbeddingsPath(dataDirectory, id string) string {
	return filepath.Join(dataDirectory, id+embeddingsSuffix)
}

// Load reads the manifest from dataDirectory, returning an empty one if none has been written yet.
func Load(dataDirectory string) (*Manifest, error) {
	var manifest Manifest
	manifestBytes, err := os.ReadFile(filepath.Join(dataDirectory, manifestName))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("unexpected error reading document manifest: %w", err)
	}

	if errors.Is(err, os.ErrNotExist) {
		manifest.Documents = make(map[string]Document)
		return &manifest, nil
	}

	if err := json.Unmarshal(manifestBytes, &manifest); err != nil {
		return nil, fmt.Errorf("unexpected error parsing document manifest: %w", err)
	}
	if manifest.Documents == nil {
		manifest.Documents = make(map[string]Document)
	}
	return &manifest, nil
}

func Update(dataDirectory string, manifest *Manifest) error {
	manifestBytes, err := json.MarshalIndent(manifest, "", " ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest for updating: %w", err)
	}
	if err := os.MkdirAll(dataDirectory, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory %s: %w", dataDirectory, err)
	}
	err = os.WriteFile(filepath.Join(dataDirectory, manifestName), manifestBytes, 0644)
	if err != nil {
		return fmt.Errorf("failed to write updated manifest: %w", err)
	}

	return nil
}
