package search

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"medorbis-gateway/config"
)

const vectorField = "vector_data"

// OpenSearch runs k-NN queries against an index whose documents carry their vector in vector_data.
type OpenSearch struct {
	client *opensearch.Client
	index  string
}

func NewOpenSearch(cfg config.OpenSearchConfig) (*OpenSearch, error) {
	client, err := opensearch.NewClient(opensearch.Config{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: cfg.Insecure},
		},
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create opensearch client: %w", err)
	}
	return NewOpenSearchWithClient(client, cfg.Index), nil
}

// NewOpenSearchWithClient uses a preconfigured client, such as one with a request signer.
func NewOpenSearchWithClient(client *opensearch.Client, index string) *OpenSearch {
	return &OpenSearch{client: client, index: index}
}

func (o *OpenSearch) Name() string {
	return config.BackendOpenSearch
}

// The k-NN plugin nests the field name inside the knn clause.
type knnQuery struct {
	Knn knnSearch `json:"knn"`
}

type knnSearch struct {
	VectorData vectorData `json:"vector_data"`
}

type vectorData struct {
	Vector []float32 `json:"vector"`
	K      int       `json:"k"`
}

type termQuery struct {
	Term map[string]string `json:"term"`
}

type boolQuery struct {
	Bool struct {
		Must   []knnQuery  `json:"must"`
		Filter []termQuery `json:"filter"`
	} `json:"bool"`
}

func buildKnnQuery(vector []float32, filter Filter, limit int) any {
	knn := knnQuery{Knn: knnSearch{VectorData: vectorData{Vector: vector, K: limit}}}
	fields := filter.Fields()
	if fields == nil {
		return knn
	}

	var q boolQuery
	q.Bool.Must = []knnQuery{knn}
	for _, key := range []string{FieldDepartment, FieldYear, FieldSemester} {
		if value, ok := fields[key]; ok {
			q.Bool.Filter = append(q.Bool.Filter, termQuery{Term: map[string]string{key: value}})
		}
	}
	return q
}

func (o *OpenSearch) Search(ctx context.Context, vector []float32, filter Filter, limit int) ([]Hit, error) {
	queryBytes, err := json.Marshal(struct {
		Size  int `json:"size"`
		Query any `json:"query"`
	}{
		Size:  limit,
		Query: buildKnnQuery(vector, filter, limit),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal vector query: %w", err)
	}

	searchReq := opensearchapi.SearchRequest{
		Index: []string{o.index},
		Body:  bytes.NewReader(queryBytes),
	}

	searchResponse, err := searchReq.Do(ctx, o.client)
	if err != nil {
		return nil, fmt.Errorf("failed to execute vector query: %w", err)
	}
	defer searchResponse.Body.Close()

	if searchResponse.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected response to vector query: %s", searchResponse.String())
	}

	bodyBytes, err := io.ReadAll(searchResponse.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read search response body: %w", err)
	}

	result := struct {
		Hits struct {
			Hits []struct {
				ID     string         `json:"_id"`
				Score  float32        `json:"_score"`
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}{}
	dec := json.NewDecoder(bytes.NewReader(bodyBytes))
	dec.UseNumber()
	if err := dec.Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to deserialize search results: %w", err)
	}

	hits := make([]Hit, len(result.Hits.Hits))
	for i, h := range result.Hits.Hits {
		delete(h.Source, vectorField)
		hits[i] = Hit{ID: h.ID, Score: h.Score, Payload: h.Source}
	}
	return hits, nil
}

func (o *OpenSearch) Upsert(ctx context.Context, docs []Document) error {
	for _, d := range docs {
		source := make(map[string]any, len(d.Payload)+1)
		for k, v := range d.Payload {
			source[k] = v
		}
		source[vectorField] = d.Vector

		docBody, err := json.Marshal(source)
		if err != nil {
			return fmt.Errorf("failed to build search document %s: %w", d.ID, err)
		}

		req := opensearchapi.IndexRequest{
			Index:      o.index,
			DocumentID: d.ID,
			Body:       bytes.NewReader(docBody),
		}
		insertResponse, err := req.Do(ctx, o.client)
		if err != nil {
			return fmt.Errorf("error indexing document %s: %w", d.ID, err)
		}
		_ = insertResponse.Body.Close()
		if insertResponse.StatusCode >= 300 {
			return fmt.Errorf("unexpected indexing response writing document %s: %s", d.ID, insertResponse.String())
		}
	}
	return nil
}

// indexMapping declares the filter fields as keywords. Term filters compare against indexed
// tokens, so dynamically mapped text fields would never match values like "Computer Science".
func indexMapping(dimension int) map[string]any {
	properties := map[string]any{
		vectorField: map[string]any{"type": "knn_vector", "dimension": dimension},
		"text":      map[string]any{"type": "text"},
	}
	for _, field := range []string{FieldDepartment, FieldYear, FieldSemester, "source"} {
		properties[field] = map[string]any{"type": "keyword"}
	}
	return map[string]any{
		"settings": map[string]any{"index": map[string]any{"knn": true}},
		"mappings": map[string]any{"properties": properties},
	}
}

// Prepare creates a k-NN enabled index when it does not exist yet.
func (o *OpenSearch) Prepare(ctx context.Context, dimension int) error {
	exists, err := opensearchapi.IndicesExistsRequest{Index: []string{o.index}}.Do(ctx, o.client)
	if err != nil {
		return fmt.Errorf("failed to check index %s: %w", o.index, err)
	}
	_ = exists.Body.Close()
	if exists.StatusCode == http.StatusOK {
		return nil
	}

	mapping, err := json.Marshal(indexMapping(dimension))
	if err != nil {
		return fmt.Errorf("failed to marshal index mapping: %w", err)
	}

	created, err := opensearchapi.IndicesCreateRequest{Index: o.index, Body: bytes.NewReader(mapping)}.Do(ctx, o.client)
	if err != nil {
		return fmt.Errorf("failed to create index %s: %w", o.index, err)
	}
	defer created.Body.Close()
	if created.StatusCode >= 300 {
		return fmt.Errorf("unexpected response creating index %s: %s", o.index, created.String())
	}
	return nil
}
