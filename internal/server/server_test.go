package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"testing"
	"time"
)

func newTestServer() *Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(http.NotFoundHandler(), 0, time.Second, time.Second, time.Second, logger)
}

func TestGracefulShutdown_RunsHooksInReverseOrder(t *testing.T) {
	s := newTestServer()

	var order []string
	for _, name := range []string{"email-worker", "listen-pool", "redis"} {
		name := name
		s.OnShutdown(name, func(context.Context) error {
			order = append(order, name)
			return nil
		})
	}

	if err := s.gracefulShutdown(); err != nil {
		t.Fatalf("gracefulShutdown() error = %v", err)
	}

	want := []string{"redis", "listen-pool", "email-worker"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestGracefulShutdown_ContinuesAfterError(t *testing.T) {
	s := newTestServer()
	boom := errors.New("boom")

	ran := false
	s.OnShutdown("first", func(context.Context) error {
		ran = true
		return nil
	})
	s.OnShutdown("second", func(context.Context) error { return boom })

	err := s.gracefulShutdown()
	if !errors.Is(err, boom) {
		t.Errorf("gracefulShutdown() error = %v, want boom", err)
	}
	if !ran {
		t.Error("earlier hook should still run after a failure")
	}
}

func TestAddr(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := New(http.NotFoundHandler(), 8080, time.Second, time.Second, time.Second, logger)
	if s.Addr() != ":8080" {
		t.Errorf("Addr() = %q, want :8080", s.Addr())
	}
}

func TestServe_StopsOnContextAndRunsEverything(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	s := New(handler, 0, time.Second, time.Second, 2*time.Second, logger)

	bgStopped := make(chan struct{})
	s.Go("email-worker", func(ctx context.Context) error {
		<-ctx.Done()
		close(bgStopped)
		return ctx.Err()
	})

	httpClosed := make(chan struct{})
	s.OnHTTPShutdown(func() { close(httpClosed) })

	hookRan := make(chan struct{})
	s.OnShutdown("database", func(context.Context) error {
		close(hookRan)
		return nil
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusTeapot {
		t.Errorf("status = %d, want 418", resp.StatusCode)
	}

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return")
	}

	for name, ch := range map[string]chan struct{}{"background": bgStopped, "http hook": httpClosed, "shutdown hook": hookRan} {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Errorf("%s did not run", name)
		}
	}
}

func TestServe_ServerErrorStillShutsDown(t *testing.T) {
	s := newTestServer()

	hookRan := false
	s.OnShutdown("redis", func(context.Context) error {
		hookRan = true
		return nil
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ln.Close()

	if err := s.serve(context.Background(), ln); err == nil {
		t.Error("serve() on a closed listener should fail")
	}
	if !hookRan {
		t.Error("shutdown hook should run after a server error")
	}
}
