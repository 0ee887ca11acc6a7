package service

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"medorbis-gateway/llm"
	"medorbis-gateway/logging"
	"medorbis-gateway/rag"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter() *gin.Engine {
	logger := logging.Discard()
	router := NewRouter(rag.New(nil, nil, llm.NewChain(time.Second, logger), logger), logger)
	router.GET("/panic", func(*gin.Context) { panic("boom") })
	return router
}

func serve(t *testing.T, router http.Handler, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var body map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("response is not JSON: %q", rec.Body.String())
		}
	}
	return rec, body
}

func newRequest(method, target, contentType, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req
}

func TestRoutes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		req        *http.Request
		wantStatus int
		check      func(t *testing.T, body map[string]any)
	}{
		{
			name:       "health",
			req:        newRequest(http.MethodGet, "/health", "", ""),
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				if body["status"] != "ok" {
					t.Errorf("body = %v", body)
				}
			},
		},
		{
			name:       "root",
			req:        newRequest(http.MethodGet, "/", "", ""),
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				if body["message"] != "API is running" {
					t.Errorf("body = %v", body)
				}
			},
		},
		{
			name:       "v2 usage",
			req:        newRequest(http.MethodGet, "/api/v2/chat", "", ""),
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				if body["endpoint"] != "/api/v2/chat" {
					t.Errorf("body = %v", body)
				}
			},
		},
		{
			name:       "v2 json",
			req:        newRequest(http.MethodPost, "/api/v2/chat", "application/json", `{"messages":[{"role":"user","content":"Hello world"}]}`),
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				if body["reply"] != "You said: Hello world" {
					t.Errorf("reply = %v", body["reply"])
				}
				usage := body["usage"].(map[string]any)
				if usage["input_tokens"] != float64(2) || usage["output_tokens"] != float64(4) || usage["total_tokens"] != float64(6) {
					t.Errorf("usage = %v", usage)
				}
				if _, ok := body["meta"]; ok {
					t.Error("echo responses carry no meta")
				}
			},
		},
		{
			name:       "v2 alias with form fields",
			req:        newRequest(http.MethodPost, "/v2/chat", "application/x-www-form-urlencoded", "role=user&content=hi+there"),
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				if body["reply"] != "You said: hi there" {
					t.Errorf("reply = %v", body["reply"])
				}
			},
		},
		{
			name:       "v2 unsupported media type",
			req:        newRequest(http.MethodPost, "/api/v2/chat", "text/plain", "hello"),
			wantStatus: http.StatusUnsupportedMediaType,
		},
		{
			name:       "v2 malformed json",
			req:        newRequest(http.MethodPost, "/api/v2/chat", "application/json", `{"messages":`),
			wantStatus: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]any) {
				if detail, _ := body["detail"].(string); !strings.Contains(detail, "messages") {
					t.Errorf("detail = %v", body["detail"])
				}
			},
		},
		{
			name:       "v2 echo empty",
			req:        newRequest(http.MethodGet, "/api/v2/chat/echo?content=", "", ""),
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				if body["reply"] != "Hello! How can I help you?" {
					t.Errorf("reply = %v", body["reply"])
				}
			},
		},
		{
			name:       "v1 echo",
			req:        newRequest(http.MethodGet, "/api/v1/chat/echo?content=how+are+you", "", ""),
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				if body["reply"] != "You said: how are you" {
					t.Errorf("reply = %v", body["reply"])
				}
			},
		},
		{
			name:       "v1 usage",
			req:        newRequest(http.MethodGet, "/api/v1/chat", "", ""),
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				if body["endpoint"] != "/api/v1/chat" {
					t.Errorf("body = %v", body)
				}
			},
		},
		{
			name: "v1 json",
			req: newRequest(http.MethodPost, "/api/v1/chat", "application/json",
				`{"user_type":0,"user_id":"u1","session_id":"s1","user_question":"When is the exam?","Department":"Nursing","Year":"3","Semester":"1"}`),
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				want := "Response: Based on your context (Department=Nursing, Year=3, Semester=1), here's a helpful response to your question: When is the exam?"
				if body["reply"] != want {
					t.Errorf("reply = %v", body["reply"])
				}
				meta := body["meta"].(map[string]any)
				if meta["used_vector"] != false || meta["contexts"] != float64(0) {
					t.Errorf("meta = %v", meta)
				}
			},
		},
		{
			name:       "v1 form with legacy names",
			req:        newRequest(http.MethodPost, "/api/v1/chat", "application/x-www-form-urlencoded", "user_type=&user_question=Where+is+room+B12%3F&user_department=Medicine&user_year=2&user_semester=2"),
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				if reply, _ := body["reply"].(string); !strings.Contains(reply, "(Department=Medicine, Year=2, Semester=2)") {
					t.Errorf("reply = %v", body["reply"])
				}
			},
		},
		{
			name:       "v1 invalid user type",
			req:        newRequest(http.MethodPost, "/api/v1/chat", "application/json", `{"user_type":"student"}`),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "v1 test from query",
			req:        newRequest(http.MethodGet, "/api/v1/chat/test?user_question=hi&Department=Nursing&user_department=Ignored", "", ""),
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				if reply, _ := body["reply"].(string); !strings.Contains(reply, "Department=Nursing") {
					t.Errorf("reply = %v", body["reply"])
				}
			},
		},
		{
			name:       "unknown path",
			req:        newRequest(http.MethodGet, "/nope", "", ""),
			wantStatus: http.StatusNotFound,
			check: func(t *testing.T, body map[string]any) {
				if body["detail"] != "Not Found" {
					t.Errorf("body = %v", body)
				}
			},
		},
		{
			name:       "wrong method",
			req:        newRequest(http.MethodPost, "/health", "application/json", "{}"),
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "trailing slash on health",
			req:        newRequest(http.MethodGet, "/health/", "", ""),
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "trailing slash on v2",
			req:        newRequest(http.MethodGet, "/api/v2/chat/", "", ""),
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "trailing slash on v1",
			req:        newRequest(http.MethodPost, "/api/v1/chat/", "application/json", "{}"),
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "panic",
			req:        newRequest(http.MethodGet, "/panic", "", ""),
			wantStatus: http.StatusInternalServerError,
			check: func(t *testing.T, body map[string]any) {
				if body["detail"] != "Internal Server Error" {
					t.Errorf("body = %v", body)
				}
			},
		},
	}

	router := newTestRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec, body := serve(t, router, tt.req)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.check != nil {
				tt.check(t, body)
			}
		})
	}
}

func TestPreflight(t *testing.T) {
	t.Parallel()

	router := newTestRouter()

	req := newRequest(http.MethodOptions, "/api/v1/chat", "", "")
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, newRequest(http.MethodOptions, "/anything", "", ""))
	if rec.Code != http.StatusNoContent {
		t.Errorf("bare OPTIONS status = %d, want 204", rec.Code)
	}
}
