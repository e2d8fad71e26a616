// Command hello serves a greeting function with the faas runtime.
//
// Run the JSON pipeline:
//
//	go run ./cmd/hello
//	curl -d '{"name":"World"}' http://127.0.0.1:3000/     # "Hello World"
//
// Run the raw-body pipeline, where the body is the plain name:
//
//	go run ./cmd/hello -raw
//	curl -d 'World' http://127.0.0.1:3000/                # "Hello World"
//
// Configuration is read from -config (YAML) and FAAS_* environment variables.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"unicode/utf8"

	"github.com/bjaus/faas"
)

// Greeter is shared by every invocation.
type Greeter struct {
	Greet string
}

func (g *Greeter) greet(person string) string {
	return g.Greet + " " + person
}

// Person is the JSON request body.
type Person struct {
	Name string `json:"name" yaml:"name"`
}

func greetPerson(ctx context.Context, g *Greeter, p Person) (string, error) {
	slog.DebugContext(ctx, "received request", "person", p.Name, "request_id", faas.RequestID(ctx))
	return g.greet(p.Name), nil
}

func greetRaw(ctx context.Context, g *Greeter, r *faas.Request) (string, error) {
	data, err := faas.ReadBody(r)
	if err != nil {
		return "", fmt.Errorf("transport error: %w", err)
	}
	if !utf8.Valid(data) {
		return "", faas.Errorf(http.StatusBadRequest, "encoding error: body is not valid UTF-8")
	}

	name := string(data)
	slog.DebugContext(ctx, "received request", "person", name, "request_id", faas.RequestID(ctx))
	return g.greet(name), nil
}

func main() {
	configFlag := flag.String("config", "", "Path to a YAML config file")
	rawFlag := flag.Bool("raw", false, "Serve the raw-body pipeline (body is the plain name)")
	greetFlag := flag.String("greet", "Hello", "Greeting word")
	flag.Parse()

	cfg, err := faas.LoadConfig(*configFlag)
	if err != nil {
		slog.Error("config error", "err", err)
		os.Exit(1)
	}

	level, _ := faas.ParseLevel(cfg.LogLevel)
	slog.SetDefault(faas.NewLogger(os.Stderr, level))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	greeter := &Greeter{Greet: *greetFlag}

	if *rawFlag {
		err = faas.RunRaw(ctx, cfg, faas.Bind(greeter, greetRaw))
	} else {
		err = faas.Run(ctx, cfg, faas.Bind(greeter, greetPerson))
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		os.Exit(1)
	}
}
