package faas

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"
)

// New returns an http.Handler that decodes every request body into Req,
// calls h exactly once, and encodes the returned Resp. Every path and method
// reaches h.
func New[Req, Resp any](h Handler[Req, Resp], opts ...Option) http.Handler {
	o := newOptions(opts)
	return &pipeline[Resp]{
		name: "json",
		opts: o,
		call: func(r *http.Request) (Resp, *Error) {
			var zero Resp

			data, err := io.ReadAll(r.Body)
			if err != nil {
				return zero, transportError(fmt.Errorf("%w: %w", ErrReadBody, err))
			}

			var req Req
			if err := o.codec.Unmarshal(data, &req); err != nil {
				return zero, serializationError(fmt.Errorf("%w: %w", ErrDecodeBody, err))
			}

			resp, err := h.Call(r.Context(), req)
			if err != nil {
				return zero, applicationError(err)
			}
			return resp, nil
		},
	}
}

// NewRaw returns an http.Handler that passes the transport request to h
// untouched. h reads and interprets the body itself; only the response is
// encoded by the pipeline.
func NewRaw[Resp any](h Handler[*Request, Resp], opts ...Option) http.Handler {
	return &pipeline[Resp]{
		name: "raw",
		opts: newOptions(opts),
		call: func(r *http.Request) (Resp, *Error) {
			resp, err := h.Call(r.Context(), r)
			if err != nil {
				var zero Resp
				return zero, applicationError(err)
			}
			return resp, nil
		},
	}
}

// ReadBody reads the full body of a raw request.
func ReadBody(r *Request) ([]byte, error) {
	return io.ReadAll(r.Body)
}

type pipeline[Resp any] struct {
	name string
	opts *options
	call func(r *http.Request) (Resp, *Error)
}

func (p *pipeline[Resp]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	id := r.Header.Get(p.opts.requestIDHeader)
	if id == "" {
		id = newRequestID()
	}
	w.Header().Set(p.opts.requestIDHeader, id)
	r = r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id))

	logger := p.opts.logger.With(
		slog.String("pipeline", p.name),
		slog.String("request_id", id),
	)
	logger.LogAttrs(r.Context(), slog.LevelDebug, "new request",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("remote", r.RemoteAddr),
	)

	if p.opts.maxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, p.opts.maxBodyBytes)
	}

	done := p.opts.metrics.begin(p.name)
	rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}

	// Stays "aborted" only if a panic escapes serve.
	outcome := "aborted"
	defer func() {
		done(outcome)
		logger.LogAttrs(r.Context(), slog.LevelDebug, "request completed",
			slog.Int("status", rec.status),
			slog.Int("size", rec.size),
			slog.Duration("latency", time.Since(start)),
			slog.String("outcome", outcome),
		)
	}()

	outcome = outcomeOf(p.serve(rec, r, logger))
}

func (p *pipeline[Resp]) serve(w http.ResponseWriter, r *http.Request, logger *slog.Logger) *Error {
	resp, ferr := p.invoke(r, logger)
	if ferr != nil {
		p.fail(w, r, logger, ferr)
		return ferr
	}

	body, err := p.opts.codec.Marshal(resp)
	if err != nil {
		ferr = serializationError(fmt.Errorf("%w: %w", ErrEncodeResult, err))
		p.fail(w, r, logger, ferr)
		return ferr
	}

	w.Header().Set("Content-Type", p.opts.codec.ContentType())
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		ferr = transportError(fmt.Errorf("write response: %w", err))
		logger.LogAttrs(r.Context(), slog.LevelError, "could not write response", slog.Any("err", err))
		return ferr
	}
	return nil
}

// invoke runs the per-pipeline call, turning a handler panic into an
// application error.
func (p *pipeline[Resp]) invoke(r *http.Request, logger *slog.Logger) (resp Resp, ferr *Error) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.LogAttrs(r.Context(), slog.LevelError, "panic recovered",
				slog.Any("panic", rec),
				slog.String("stack", string(debug.Stack())),
			)
			ferr = applicationError(fmt.Errorf("%w: %v", ErrPanic, rec))
		}
	}()
	return p.call(r)
}

// fail logs ferr and writes its text as the response body.
func (p *pipeline[Resp]) fail(w http.ResponseWriter, r *http.Request, logger *slog.Logger, ferr *Error) {
	status := p.status(ferr)
	msg := ferr.Error()

	logger.LogAttrs(r.Context(), slog.LevelError, failureMessage(ferr),
		slog.String("kind", ferr.Kind.String()),
		slog.Int("status", status),
		slog.String("err", msg),
	)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Length", strconv.Itoa(len(msg)))
	w.WriteHeader(status)
	if _, err := io.WriteString(w, msg); err != nil {
		logger.LogAttrs(r.Context(), slog.LevelError, "could not write response", slog.Any("err", err))
	}
}

// status picks the failure status. A StatusCoder that panics, typically a
// nil pointer, falls back to 500.
func (p *pipeline[Resp]) status(ferr *Error) (status int) {
	if !p.opts.statusCodes {
		return http.StatusOK
	}
	defer func() {
		if rec := recover(); rec != nil {
			status = http.StatusInternalServerError
		}
	}()
	return ErrorStatus(ferr)
}

func failureMessage(ferr *Error) string {
	switch ferr.Kind {
	case KindTransport:
		return "could not read request"
	case KindSerialization:
		return "could not serialize"
	default:
		return "handler failed"
	}
}

func outcomeOf(ferr *Error) string {
	if ferr == nil {
		return "ok"
	}
	return ferr.Kind.String() + "_error"
}
