package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"medorbis-gateway/config"
)

func TestBuildKnnQuery(t *testing.T) {
	t.Parallel()

	plain, err := json.Marshal(buildKnnQuery([]float32{1, 2}, Filter{}, 3))
	if err != nil {
		t.Fatal(err)
	}
	if string(plain) != `{"knn":{"vector_data":{"vector":[1,2],"k":3}}}` {
		t.Errorf("unfiltered query = %s", plain)
	}

	filtered, err := json.Marshal(buildKnnQuery([]float32{1}, Filter{Department: "Nursing", Year: "3"}, 2))
	if err != nil {
		t.Fatal(err)
	}
	want := `{"bool":{"must":[{"knn":{"vector_data":{"vector":[1],"k":2}}}],"filter":[{"term":{"Department":"Nursing"}},{"term":{"Year":"3"}}]}}`
	if string(filtered) != want {
		t.Errorf("filtered query = %s, want %s", filtered, want)
	}
}

func TestOpenSearchSearch(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !strings.HasSuffix(r.URL.Path, "/_search") {
			_, _ = w.Write([]byte(`{"version":{"number":"2.11.0","distribution":"opensearch"}}`))
			return
		}
		if r.URL.Path != "/documents/_search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"hits":{"hits":[
			{"_id":"a","_score":1.5,"_source":{"text":"Pharmacology starts in week 2","Department":"Nursing","vector_data":[0.1]}},
			{"_id":"b","_score":0.5,"_source":{"chunk":7}}
		]}}`))
	}))
	t.Cleanup(srv.Close)

	o, err := NewOpenSearch(config.OpenSearchConfig{URL: srv.URL, Index: "documents"})
	if err != nil {
		t.Fatalf("NewOpenSearch() error = %v", err)
	}
	hits, err := o.Search(context.Background(), []float32{0.5}, Filter{Semester: "2"}, 4)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 2 || hits[0].ID != "a" {
		t.Fatalf("unexpected hits: %+v", hits)
	}
	if _, ok := hits[0].Payload[vectorField]; ok {
		t.Error("vector should be stripped from payload")
	}
	if snippets := Snippets(hits); !reflect.DeepEqual(snippets, []string{"Pharmacology starts in week 2", "7"}) {
		t.Errorf("Snippets() = %v", snippets)
	}
	if got["size"] != float64(4) {
		t.Errorf("size = %v", got["size"])
	}
	if _, ok := got["query"].(map[string]any)["bool"]; !ok {
		t.Errorf("filtered search should use a bool query: %v", got["query"])
	}
}

func TestOpenSearchSearchError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !strings.HasSuffix(r.URL.Path, "/_search") {
			_, _ = w.Write([]byte(`{"version":{"number":"2.11.0","distribution":"opensearch"}}`))
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"index_not_found_exception"}`))
	}))
	t.Cleanup(srv.Close)

	o, err := NewOpenSearch(config.OpenSearchConfig{URL: srv.URL, Index: "documents"})
	if err != nil {
		t.Fatalf("NewOpenSearch() error = %v", err)
	}
	if _, err := o.Search(context.Background(), []float32{1}, Filter{}, 3); err == nil {
		t.Fatal("expected error for non 200 response")
	}
}

func TestOpenSearchPrepareMapsFilterFieldsAsKeywords(t *testing.T) {
	t.Parallel()

	var created map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodHead && r.URL.Path == "/documents":
			w.WriteHeader(http.StatusNotFound)
		case r.Method == http.MethodPut && r.URL.Path == "/documents":
			_ = json.NewDecoder(r.Body).Decode(&created)
			_, _ = w.Write([]byte(`{"acknowledged":true,"index":"documents"}`))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	t.Cleanup(srv.Close)

	o, err := NewOpenSearch(config.OpenSearchConfig{URL: srv.URL, Index: "documents"})
	if err != nil {
		t.Fatalf("NewOpenSearch() error = %v", err)
	}
	if err := o.Prepare(context.Background(), 3); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	properties, _ := created["mappings"].(map[string]any)["properties"].(map[string]any)
	for _, field := range []string{FieldDepartment, FieldYear, FieldSemester, "source"} {
		want := map[string]any{"type": "keyword"}
		if !reflect.DeepEqual(properties[field], want) {
			t.Errorf("mapping for %s = %v, want %v", field, properties[field], want)
		}
	}
	wantVector := map[string]any{"type": "knn_vector", "dimension": float64(3)}
	if !reflect.DeepEqual(properties[vectorField], wantVector) {
		t.Errorf("mapping for %s = %v", vectorField, properties[vectorField])
	}
	if created["settings"].(map[string]any)["index"].(map[string]any)["knn"] != true {
		t.Errorf("settings = %v", created["settings"])
	}
}

func TestOpenSearchPrepareExistingIndex(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	o, err := NewOpenSearch(config.OpenSearchConfig{URL: srv.URL, Index: "documents"})
	if err != nil {
		t.Fatalf("NewOpenSearch() error = %v", err)
	}
	if err := o.Prepare(context.Background(), 3); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
}
