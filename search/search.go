package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"medorbis-gateway/config"
)

var ErrNotConfigured = errors.New("vector backend not configured")

// Payload fields holding the metadata used for filtering.
const (
	FieldDepartment = "Department"
	FieldYear       = "Year"
	FieldSemester   = "Semester"
)

// snippetFields are checked in order for the text of a hit.
var snippetFields = []string{"text", "content", "chunk", "body"}

// Filter is an exact-match conjunction. Empty fields do not constrain the search.
type Filter struct {
	Department string
	Year       string
	Semester   string
}

// Fields returns only the non-empty constraints keyed by payload field, or nil when there are none.
func (f Filter) Fields() map[string]string {
	fields := make(map[string]string, 3)
	if f.Department != "" {
		fields[FieldDepartment] = f.Department
	}
	if f.Year != "" {
		fields[FieldYear] = f.Year
	}
	if f.Semester != "" {
		fields[FieldSemester] = f.Semester
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

type Hit struct {
	ID      string
	Score   float32
	Payload map[string]any
}

// Document is a vector and its payload as written by the indexer.
type Document struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

type Searcher interface {
	Name() string
	Search(ctx context.Context, vector []float32, filter Filter, limit int) ([]Hit, error)
	Upsert(ctx context.Context, docs []Document) error
}

// Preparer is implemented by backends that need a collection or index created before writes.
type Preparer interface {
	Prepare(ctx context.Context, dimension int) error
}

// Snippet extracts the text of a hit. Non-string scalars are stringified, anything else is skipped.
func Snippet(payload map[string]any) (string, bool) {
	for _, field := range snippetFields {
		v, ok := payload[field]
		if !ok || isEmpty(v) {
			continue
		}
		return scalarString(v)
	}
	return "", false
}

func Snippets(hits []Hit) []string {
	snippets := make([]string, 0, len(hits))
	for _, hit := range hits {
		if s, ok := Snippet(hit.Payload); ok {
			snippets = append(snippets, s)
		}
	}
	return snippets
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case bool:
		return !t
	case float64:
		return t == 0
	case json.Number:
		f, err := t.Float64()
		return err == nil && f == 0
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	default:
		return false
	}
}

func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

// Retriever runs a bounded, best-effort search and reduces hits to snippets.
type Retriever struct {
	searcher Searcher
	topK     int
	timeout  time.Duration
	logger   *slog.Logger
}

// NewRetriever wraps s. A nil s yields a retriever that never searches.
func NewRetriever(s Searcher, topK int, timeout time.Duration, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	if topK <= 0 {
		topK = config.DefaultTopK
	}
	return &Retriever{searcher: s, topK: topK, timeout: timeout, logger: logger}
}

func (r *Retriever) Configured() bool {
	return r != nil && r.searcher != nil
}

// Contexts returns the snippets nearest to vector. It returns nothing, without a network call,
// when no backend is configured or no vector is available, and nothing on failure.
func (r *Retriever) Contexts(ctx context.Context, vector []float32, filter Filter) []string {
	if !r.Configured() || len(vector) == 0 {
		return nil
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	hits, err := r.searcher.Search(ctx, vector, filter, r.topK)
	if err != nil {
		r.logger.WarnContext(ctx, "failed to search vector index", slog.String("backend", r.searcher.Name()), slog.Any("error", err))
		return nil
	}
	return Snippets(hits)
}

// FromConfig builds the selected backend, or returns ErrNotConfigured when it has no endpoint.
func FromConfig(cfg config.VectorConfig, httpClient *http.Client) (Searcher, error) {
	if !cfg.Configured() {
		return nil, ErrNotConfigured
	}
	switch cfg.Backend {
	case config.BackendQdrant:
		return NewQdrant(cfg.Qdrant, httpClient), nil
	case config.BackendOpenSearch:
		return NewOpenSearch(cfg.OpenSearch)
	case config.BackendChromem:
		return NewChromem(cfg.Chromem)
	default:
		return nil, fmt.Errorf("unknown vector backend %q", cfg.Backend)
	}
}
