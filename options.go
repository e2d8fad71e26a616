package faas

import "log/slog"

// DefaultRequestIDHeader is the header request IDs are read from and echoed on.
const DefaultRequestIDHeader = "X-Request-ID"

// Option configures a pipeline.
type Option func(*options)

type options struct {
	codec           Codec
	maxBodyBytes    int64
	statusCodes     bool
	logger          *slog.Logger
	metrics         *Metrics
	requestIDHeader string
}

func newOptions(opts []Option) *options {
	o := &options{
		codec:           JSON,
		requestIDHeader: DefaultRequestIDHeader,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// WithCodec sets the structured-data codec for request and response bodies.
func WithCodec(c Codec) Option {
	return func(o *options) {
		if c != nil {
			o.codec = c
		}
	}
}

// WithMaxBodyBytes limits the request body size. By default the body is
// unbounded; zero or a negative value restores that.
func WithMaxBodyBytes(n int64) Option {
	return func(o *options) {
		o.maxBodyBytes = n
	}
}

// WithStatusCodes selects how failures are reported. By default every
// response is 200 and callers must inspect the body, which is what gateways
// that ignore status codes expect. When enabled failures carry a 4xx/5xx
// status from ErrorStatus.
func WithStatusCodes(enabled bool) Option {
	return func(o *options) {
		o.statusCodes = enabled
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithRequestIDHeader overrides DefaultRequestIDHeader.
func WithRequestIDHeader(name string) Option {
	return func(o *options) {
		if name != "" {
			o.requestIDHeader = name
		}
	}
}
