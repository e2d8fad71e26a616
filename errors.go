package faas

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors wrapped into pipeline failures.
var (
	ErrReadBody     = errors.New("read request body")
	ErrDecodeBody   = errors.New("decode request body")
	ErrEncodeResult = errors.New("encode response")
	ErrPanic        = errors.New("handler panic")
)

// Kind classifies where a failure originated.
type Kind int

const (
	// KindTransport covers failures reading the request body or writing the
	// response.
	KindTransport Kind = iota + 1
	// KindSerialization covers failures decoding the request or encoding the
	// response.
	KindSerialization
	// KindApplication covers errors returned by the Handler itself.
	KindApplication
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindSerialization:
		return "serialization"
	case KindApplication:
		return "application"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is the single container every pipeline failure is folded into
// before it is written as a response body.
type Error struct {
	Kind Kind
	Err  error
}

// Error returns the text written to the response body. Handler errors are
// rendered verbatim; transport and serialization failures carry a
// "Runtime error" prefix. A nil pointer error renders as "<nil>".
func (e *Error) Error() string {
	// fmt recovers from Error methods that panic on nil receivers.
	msg := fmt.Sprint(e.Err)
	if e.Kind == KindApplication {
		return msg
	}
	return "Runtime error: " + msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Err }

func transportError(err error) *Error     { return &Error{Kind: KindTransport, Err: err} }
func serializationError(err error) *Error { return &Error{Kind: KindSerialization, Err: err} }
func applicationError(err error) *Error   { return &Error{Kind: KindApplication, Err: err} }

// StatusCoder is implemented by errors that carry an HTTP status code.
type StatusCoder interface {
	StatusCode() int
}

// HTTPError is an application error with an explicit HTTP status code.
type HTTPError struct {
	Status  int
	Message string
}

// Error returns the error message.
func (e *HTTPError) Error() string { return e.Message }

// StatusCode returns the HTTP status code.
func (e *HTTPError) StatusCode() int { return e.Status }

// Errorf returns a formatted error with the given HTTP status code.
func Errorf(status int, format string, args ...any) error {
	return &HTTPError{Status: status, Message: fmt.Sprintf(format, args...)}
}

// ErrorStatus maps an error to the HTTP status used when status codes are
// enabled. A StatusCoder anywhere in the chain wins, then an exceeded body
// limit. Unreadable or undecodable requests are the caller's fault; anything
// else is reported as a server error.
func ErrorStatus(err error) int {
	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}

	if errors.Is(err, ErrReadBody) || errors.Is(err, ErrDecodeBody) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
