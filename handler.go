package faas

import (
	"context"
	"net/http"
)

// Handler is the capability a business function implements: it consumes one
// request value and produces one response value or an error. The pipeline
// calls it exactly once per inbound request and never retries.
//
// A Handler is shared by every concurrent invocation. Any mutable state it
// captures must provide its own synchronization.
type Handler[Req, Resp any] interface {
	Call(ctx context.Context, req Req) (Resp, error)
}

// HandlerFunc adapts an ordinary function to a Handler.
type HandlerFunc[Req, Resp any] func(ctx context.Context, req Req) (Resp, error)

// Call implements Handler.
func (f HandlerFunc[Req, Resp]) Call(ctx context.Context, req Req) (Resp, error) {
	return f(ctx, req)
}

// Request is the transport's native request, handed to raw-body handlers
// verbatim.
type Request = http.Request

// Bind returns a Handler that passes state to fn on every call. Copies of the
// returned Handler share the same *S; state is never copied.
func Bind[S, Req, Resp any](state *S, fn func(ctx context.Context, state *S, req Req) (Resp, error)) Handler[Req, Resp] {
	if state == nil {
		panic("faas: Bind with nil state")
	}
	if fn == nil {
		panic("faas: Bind with nil func")
	}
	return bound[S, Req, Resp]{state: state, fn: fn}
}

type bound[S, Req, Resp any] struct {
	state *S
	fn    func(context.Context, *S, Req) (Resp, error)
}

func (b bound[S, Req, Resp]) Call(ctx context.Context, req Req) (Resp, error) {
	return b.fn(ctx, b.state, req)
}
