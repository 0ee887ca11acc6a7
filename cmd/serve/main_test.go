package serve

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"medorbis-gateway/llm"
	"medorbis-gateway/logging"
	"medorbis-gateway/rag"
	"medorbis-gateway/standalone"
)

func TestServeListenerShutsDown(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	logger := logging.Discard()
	handler := standalone.NewRouter(rag.New(nil, nil, llm.NewChain(time.Second, logger), logger), logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ServeListener(ctx, ln, handler, logger) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	if err != nil {
		t.Fatalf("GET /health error = %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, body %s", resp.StatusCode, body)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("ServeListener() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
