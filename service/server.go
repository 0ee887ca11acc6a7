// Package service is the gin surface of the gateway.
package service

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"medorbis-gateway/rag"
	"medorbis-gateway/request"
	"medorbis-gateway/service/query"
)

type server struct {
	pipeline *rag.Pipeline
	logger   *slog.Logger
}

// NewRouter registers every chat route, including the legacy aliases without the /api prefix.
func NewRouter(pipeline *rag.Pipeline, logger *slog.Logger) *gin.Engine {
	if logger == nil {
		logger = slog.Default()
	}
	s := &server{pipeline: pipeline, logger: logger}

	router := gin.New()
	router.RedirectTrailingSlash = false
	router.Use(accessLog(logger), gin.CustomRecovery(s.recovered), cors.New(corsConfig()))
	router.NoRoute(notFound)

	router.GET("/health", health)
	router.GET("/", root)
	// Preflights without an Origin header never reach the cors middleware.
	router.OPTIONS("/*path", func(c *gin.Context) { c.AbortWithStatus(http.StatusNoContent) })

	for _, prefix := range []string{"/api/v2/chat", "/v2/chat"} {
		router.GET(prefix, s.chatV2Usage)
		router.POST(prefix, s.chatV2)
		router.GET(prefix+"/echo", s.echo)
	}

	v1 := router.Group("/api/v1/chat")
	v1.GET("", s.chatV1Usage)
	v1.POST("", s.chatV1)
	v1.GET("/echo", s.echo)
	v1.GET("/test", s.chatV1Test)

	return router
}

func corsConfig() cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowAllOrigins = true
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization", "Accept")
	return cfg
}

func health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "API is running"})
}

func notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, request.ErrorBody{Detail: request.DetailNotFound})
}

func (s *server) chatV2Usage(c *gin.Context) {
	c.JSON(http.StatusOK, query.V2UsageDoc())
}

func (s *server) chatV1Usage(c *gin.Context) {
	c.JSON(http.StatusOK, query.V1UsageDoc())
}

func (s *server) chatV2(c *gin.Context) {
	req, err := request.ParseChatV2(c.Request)
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, query.Echo(req))
}

func (s *server) echo(c *gin.Context) {
	c.JSON(http.StatusOK, query.EchoContent(c.Query("content")))
}

func (s *server) chatV1(c *gin.Context) {
	req, err := request.ParseChatV1(c.Request)
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.pipeline.AnswerV1(c.Request.Context(), req))
}

func (s *server) chatV1Test(c *gin.Context) {
	req, err := request.ChatV1FromQuery(c.Request.URL.Query())
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.pipeline.AnswerV1(c.Request.Context(), req))
}

func (s *server) abortWithError(c *gin.Context, err error) {
	status, body := request.Describe(err)
	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(c, "failed to handle request", slog.String("path", c.Request.URL.Path), slog.Any("error", err))
	}
	c.AbortWithStatusJSON(status, body)
}

func (s *server) recovered(c *gin.Context, recovered any) {
	s.logger.ErrorContext(c, "recovered from panic", slog.String("path", c.Request.URL.Path), slog.Any("panic", recovered))
	c.AbortWithStatusJSON(http.StatusInternalServerError, request.ErrorBody{Detail: request.DetailInternal})
}

func accessLog(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.InfoContext(c, "request completed",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Int("bytes", c.Writer.Size()),
			slog.Duration("duration", time.Since(start)))
	}
}
