// Package faastest provides typed test helpers for faas pipelines.
package faastest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"net/http/httptest"
	"testing"
)

// Client wraps an httptest.Server serving a pipeline.
type Client struct {
	Server *httptest.Server
}

// NewClient starts a test server for h and closes it when the test ends.
func NewClient(t testing.TB, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &Client{Server: srv}
}

// Response holds a pipeline response. Body is decoded only when the server
// answered with a JSON document; Text always holds the raw body.
type Response[T any] struct {
	Status  int
	Headers http.Header
	Text    string
	Body    *T
}

// Invoke JSON-encodes req, posts it, and decodes the response into Resp.
func Invoke[Req, Resp any](t testing.TB, c *Client, req *Req) *Response[Resp] {
	t.Helper()

	b, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("faastest: marshal request body: %v", err)
	}
	return Post[Resp](t, c, "application/json", b)
}

// InvokeRaw posts body verbatim to a raw pipeline and decodes the response
// into Resp.
func InvokeRaw[Resp any](t testing.TB, c *Client, body []byte) *Response[Resp] {
	t.Helper()
	return Post[Resp](t, c, "text/plain; charset=utf-8", body)
}

// Post sends body verbatim with the given content type.
func Post[Resp any](t testing.TB, c *Client, contentType string, body []byte) *Response[Resp] {
	t.Helper()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, c.Server.URL+"/", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("faastest: create request: %v", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return Do[Resp](t, req)
}

// Do executes req and collects the response.
func Do[Resp any](t testing.TB, req *http.Request) *Response[Resp] {
	t.Helper()

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("faastest: execute request: %v", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			t.Errorf("faastest: close body: %v", closeErr)
		}
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("faastest: read body: %v", err)
	}

	result := &Response[Resp]{
		Status:  resp.StatusCode,
		Headers: resp.Header,
		Text:    string(data),
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var decoded Resp
		if err := json.Unmarshal(data, &decoded); err == nil {
			result.Body = &decoded
		}
	}
	return result
}
