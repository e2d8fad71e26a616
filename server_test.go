package faas_test

import (
	"bytes"
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/faas"
	"github.com/bjaus/faas/faastest"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func listen(t *testing.T) net.Listener {
	t.Helper()
	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", "127.0.0.1:0")
	require.NoError(t, err)
	return ln
}

func TestServe_until_cancelled(t *testing.T) {
	t.Parallel()

	var logs syncBuffer
	logger := faas.NewLogger(&logs, slog.LevelDebug)
	ln := listen(t)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- faas.Serve(ctx, ln, faas.DefaultConfig(), faas.New[person, string](newGreeter("Hello"), faas.WithLogger(logger), faas.WithStatusCodes(true)), logger)
	}()

	url := "http://" + ln.Addr().String()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, strings.NewReader(`{"name":"World"}`))
	require.NoError(t, err)
	resp := faastest.Do[string](t, req)
	assert.Equal(t, `"Hello World"`, resp.Text)

	// A failing request leaves the loop running.
	req, err = http.NewRequestWithContext(context.Background(), http.MethodPost, url, strings.NewReader(`nope`))
	require.NoError(t, err)
	resp = faastest.Do[string](t, req)
	assert.Equal(t, http.StatusBadRequest, resp.Status)

	req, err = http.NewRequestWithContext(context.Background(), http.MethodPost, url, strings.NewReader(`{"name":"again"}`))
	require.NoError(t, err)
	resp = faastest.Do[string](t, req)
	assert.Equal(t, `"Hello again"`, resp.Text)

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}

	out := logs.String()
	assert.Contains(t, out, `msg="server awaiting requests"`)
	assert.Contains(t, out, `msg="server stopped"`)
}

func TestServe_returns_on_listener_failure(t *testing.T) {
	t.Parallel()

	var logs syncBuffer
	logger := faas.NewLogger(&logs, slog.LevelDebug)
	ln := listen(t)

	errCh := make(chan error, 1)
	go func() {
		errCh <- faas.Serve(context.Background(), ln, faas.DefaultConfig(), http.NotFoundHandler(), logger)
	}()

	// Give Serve a moment to start accepting before the listener dies.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, ln.Close())

	select {
	case err := <-errCh:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after listener closed")
	}
	assert.Contains(t, logs.String(), `msg="server error"`)
}

func TestListenAndServe_bind_failure(t *testing.T) {
	t.Parallel()

	ln := listen(t)
	t.Cleanup(func() { _ = ln.Close() })

	var logs syncBuffer
	cfg := faas.DefaultConfig()
	cfg.Addr = ln.Addr().String()

	err := faas.ListenAndServe(context.Background(), cfg, http.NotFoundHandler(), faas.NewLogger(&logs, slog.LevelDebug))
	require.ErrorContains(t, err, "listen "+cfg.Addr)
	assert.Contains(t, logs.String(), `msg="starting service"`)
	assert.Contains(t, logs.String(), `msg="server error"`)
}

func TestRun_invalid_config(t *testing.T) {
	t.Parallel()

	cfg := faas.DefaultConfig()
	cfg.Codec = "toml"

	err := faas.Run[person, string](context.Background(), cfg, newGreeter("Hello"))
	assert.ErrorContains(t, err, "unknown codec")

	err = faas.RunRaw[string](context.Background(), cfg, faas.HandlerFunc[*faas.Request, string](
		func(context.Context, *faas.Request) (string, error) { return "", nil },
	))
	assert.ErrorContains(t, err, "unknown codec")
}

func TestRun_serves_until_cancelled(t *testing.T) {
	t.Parallel()

	// Reserve a free port, then hand it to Run.
	ln := listen(t)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	cfg := faas.DefaultConfig()
	cfg.Addr = addr
	cfg.LogLevel = "error"

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- faas.Run[person, string](ctx, cfg, newGreeter("Hello"))
	}()

	var resp *http.Response
	require.Eventually(t, func() bool {
		req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, "http://"+addr, strings.NewReader(`{"name":"World"}`))
		if err != nil {
			return false
		}
		resp, err = http.DefaultClient.Do(req)
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
