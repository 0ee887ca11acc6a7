package serve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"medorbis-gateway/config"
	"medorbis-gateway/logging"
	"medorbis-gateway/rag"
	"medorbis-gateway/service"
	"medorbis-gateway/standalone"
)

const shutdownTimeout = 10 * time.Second

var Flags = []cli.Flag{
	&cli.StringFlag{Name: "host", Usage: "interface to listen on, overrides server.host"},
	&cli.IntFlag{Name: "port", Usage: "port to listen on, overrides server.port"},
}

// Serve runs the gin surface.
func Serve(ctx *cli.Context) error {
	return run(ctx, func(p *rag.Pipeline, logger *slog.Logger) http.Handler {
		gin.SetMode(gin.ReleaseMode)
		return service.NewRouter(p, logger)
	})
}

// Standalone runs the chi surface. It answers exactly like Serve.
func Standalone(ctx *cli.Context) error {
	return run(ctx, func(p *rag.Pipeline, logger *slog.Logger) http.Handler {
		return standalone.NewRouter(p, logger)
	})
}

func run(ctx *cli.Context, newHandler func(*rag.Pipeline, *slog.Logger) http.Handler) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if ctx.IsSet("host") {
		cfg.Server.Host = ctx.String("host")
	}
	if ctx.IsSet("port") {
		cfg.Server.Port = ctx.Int("port")
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format)

	sigCtx, stop := signal.NotifyContext(ctx.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pipeline, err := rag.FromConfig(sigCtx, cfg, nil, logger)
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("could not listen on %s: %w", addr, err)
	}
	logger.Info("server listening", slog.String("addr", ln.Addr().String()))

	return ServeListener(sigCtx, ln, newHandler(pipeline, logger), logger)
}

// ServeListener serves handler on ln until ctx is done, then drains in-flight requests.
func ServeListener(ctx context.Context, ln net.Listener, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server stopped: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})
	return g.Wait()
}
