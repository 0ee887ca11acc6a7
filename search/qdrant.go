package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"medorbis-gateway/config"
)

// Qdrant talks to the Qdrant REST API.
type Qdrant struct {
	baseURL    string
	apiKey     string
	collection string
	vectorName string
	client     *http.Client
}

func NewQdrant(cfg config.QdrantConfig, client *http.Client) *Qdrant {
	if client == nil {
		client = http.DefaultClient
	}
	return &Qdrant{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		vectorName: cfg.VectorName,
		client:     client,
	}
}

func (q *Qdrant) Name() string {
	return config.BackendQdrant
}

type qdrantCondition struct {
	Key   string `json:"key"`
	Match struct {
		Value string `json:"value"`
	} `json:"match"`
}

type qdrantFilter struct {
	Must []qdrantCondition `json:"must"`
}

type qdrantSearchRequest struct {
	Vector      any           `json:"vector"`
	Limit       int           `json:"limit"`
	WithPayload bool          `json:"with_payload"`
	Filter      *qdrantFilter `json:"filter,omitempty"`
}

type qdrantPoint struct {
	ID      any            `json:"id"`
	Vector  any            `json:"vector,omitempty"`
	Payload map[string]any `json:"payload"`
	Score   float32        `json:"score,omitempty"`
}

func newQdrantFilter(filter Filter) *qdrantFilter {
	fields := filter.Fields()
	if fields == nil {
		return nil
	}
	f := &qdrantFilter{}
	// Department, Year, Semester in that order keeps request bodies stable.
	for _, key := range []string{FieldDepartment, FieldYear, FieldSemester} {
		value, ok := fields[key]
		if !ok {
			continue
		}
		var c qdrantCondition
		c.Key = key
		c.Match.Value = value
		f.Must = append(f.Must, c)
	}
	return f
}

func (q *Qdrant) vector(v []float32) any {
	if q.vectorName != "" {
		return map[string][]float32{q.vectorName: v}
	}
	return v
}

func (q *Qdrant) Search(ctx context.Context, vector []float32, filter Filter, limit int) ([]Hit, error) {
	body := qdrantSearchRequest{
		Vector:      q.vector(vector),
		Limit:       limit,
		WithPayload: true,
		Filter:      newQdrantFilter(filter),
	}

	var result struct {
		Result []qdrantPoint `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/points/search", url.PathEscape(q.collection))
	if err := q.do(ctx, http.MethodPost, path, body, &result); err != nil {
		return nil, fmt.Errorf("failed to execute vector query: %w", err)
	}

	hits := make([]Hit, len(result.Result))
	for i, p := range result.Result {
		hits[i] = Hit{
			ID:      fmt.Sprint(p.ID),
			Score:   p.Score,
			Payload: p.Payload,
		}
	}
	return hits, nil
}

// Upsert writes docs as points. Point ids are derived from document ids so re-indexing overwrites.
func (q *Qdrant) Upsert(ctx context.Context, docs []Document) error {
	points := make([]qdrantPoint, len(docs))
	for i, d := range docs {
		points[i] = qdrantPoint{
			ID:      PointID(d.ID),
			Vector:  q.vector(d.Vector),
			Payload: d.Payload,
		}
	}

	path := fmt.Sprintf("/collections/%s/points?wait=true", url.PathEscape(q.collection))
	if err := q.do(ctx, http.MethodPut, path, map[string]any{"points": points}, nil); err != nil {
		return fmt.Errorf("failed to upsert %d points: %w", len(points), err)
	}
	return nil
}

// Prepare creates the collection with cosine distance when it does not exist yet.
func (q *Qdrant) Prepare(ctx context.Context, dimension int) error {
	path := fmt.Sprintf("/collections/%s", url.PathEscape(q.collection))
	err := q.do(ctx, http.MethodGet, path, nil, nil)
	if err == nil {
		return nil
	}

	params := map[string]any{"size": dimension, "distance": "Cosine"}
	var vectors any = params
	if q.vectorName != "" {
		vectors = map[string]any{q.vectorName: params}
	}
	if err := q.do(ctx, http.MethodPut, path, map[string]any{"vectors": vectors}, nil); err != nil {
		return fmt.Errorf("failed to create collection %s: %w", q.collection, err)
	}
	return nil
}

// PointID maps an arbitrary document id onto the UUID space Qdrant accepts.
func PointID(id string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(id)).String()
}

func (q *Qdrant) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, q.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}

	resp, err := q.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected http status %d: %s", resp.StatusCode, string(respBody))
	}
	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(respBody))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("failed to deserialize response: %w", err)
	}
	return nil
}
