// Package standalone is the minimal net/http surface of the gateway, routed with chi. It serves the
// same routes and status codes as the gin surface.
package standalone

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"medorbis-gateway/logging"
	"medorbis-gateway/rag"
	"medorbis-gateway/request"
	"medorbis-gateway/service/query"
)

type server struct {
	pipeline *rag.Pipeline
	logger   *slog.Logger
}

func NewRouter(pipeline *rag.Pipeline, logger *slog.Logger) *chi.Mux {
	if logger == nil {
		logger = slog.Default()
	}
	s := &server{pipeline: pipeline, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logging.Middleware(logger))
	r.Use(s.recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}).Handler)

	r.NotFound(notFound)
	r.MethodNotAllowed(notFound)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, http.StatusOK, map[string]string{"message": "API is running"})
	})

	for _, prefix := range []string{"/api/v2/chat", "/v2/chat"} {
		r.Get(prefix, s.chatV2Usage)
		r.Post(prefix, s.chatV2)
		r.Get(prefix+"/echo", s.echo)
	}

	// Registered flat: a subrouter would also answer /api/v1/chat/.
	r.Get("/api/v1/chat", s.chatV1Usage)
	r.Post("/api/v1/chat", s.chatV1)
	r.Get("/api/v1/chat/echo", s.echo)
	r.Get("/api/v1/chat/test", s.chatV1Test)

	return r
}

// notFound also answers OPTIONS requests that are not CORS preflights, which never match a route.
func notFound(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	respondWithJSON(w, http.StatusNotFound, request.ErrorBody{Detail: request.DetailNotFound})
}

func (s *server) chatV2Usage(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, query.V2UsageDoc())
}

func (s *server) chatV1Usage(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, query.V1UsageDoc())
}

func (s *server) chatV2(w http.ResponseWriter, r *http.Request) {
	req, err := request.ParseChatV2(r)
	if err != nil {
		s.respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, query.Echo(req))
}

func (s *server) echo(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, query.EchoContent(r.URL.Query().Get("content")))
}

func (s *server) chatV1(w http.ResponseWriter, r *http.Request) {
	req, err := request.ParseChatV1(r)
	if err != nil {
		s.respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, s.pipeline.AnswerV1(r.Context(), req))
}

func (s *server) chatV1Test(w http.ResponseWriter, r *http.Request) {
	req, err := request.ChatV1FromQuery(r.URL.Query())
	if err != nil {
		s.respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, s.pipeline.AnswerV1(r.Context(), req))
}

func (s *server) respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := request.Describe(err)
	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "failed to handle request", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	respondWithJSON(w, status, body)
}

// recoverer turns a panic into the generic JSON 500 body.
func (s *server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			s.logger.ErrorContext(r.Context(), "recovered from panic", slog.String("path", r.URL.Path), slog.Any("panic", rec))
			respondWithJSON(w, http.StatusInternalServerError, request.ErrorBody{Detail: request.DetailInternal})
		}()
		next.ServeHTTP(w, r)
	})
}

func respondWithJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", slog.Any("error", err))
	}
}
