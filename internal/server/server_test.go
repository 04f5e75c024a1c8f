package server

import (
	"context"
	"net/http"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRunShutsDownOnCancel(t *testing.T) {
	observedZapCore, observedLogs := observer.New(zap.InfoLevel)
	srv := New("127.0.0.1:0", http.NotFoundHandler(), zap.New(observedZapCore))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected clean shutdown, got %v", err)
		}
	case <-time.After(ShutdownTimeout):
		t.Fatal("Server did not shut down")
	}

	if observedLogs.FilterMessage("shutting down server").Len() != 1 {
		t.Error("Expected shutdown to be logged")
	}
}

func TestRunReportsListenError(t *testing.T) {
	srv := New("256.0.0.1:bad", http.NotFoundHandler(), nil)
	if err := srv.Run(context.Background()); err == nil {
		t.Error("Expected a listen error")
	}
}

func TestWriteTimeout(t *testing.T) {
	if got := New(":0", http.NotFoundHandler(), nil).WriteTimeout(); got != DefaultWriteTimeout {
		t.Errorf("Expected default write timeout, got %v", got)
	}
	if got := New(":0", http.NotFoundHandler(), nil, WithWriteTimeout(4*time.Minute)).WriteTimeout(); got != 4*time.Minute {
		t.Errorf("Expected 4m write timeout, got %v", got)
	}
}
