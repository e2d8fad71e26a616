// Package faas turns a single Go function into an HTTP service. The function
// implements Handler and never sees transport code:
//
//	type Handler[Req, Resp any] interface {
//	    Call(ctx context.Context, req Req) (Resp, error)
//	}
//
// Two pipelines bind a Handler to net/http. New decodes every request body
// into Req and encodes the returned Resp:
//
//	greeter := &Greeter{Greet: "Hello"}
//	h := faas.Bind(greeter, func(_ context.Context, g *Greeter, p Person) (string, error) {
//	    return g.Greet + " " + p.Name, nil
//	})
//	faas.Run(ctx, faas.DefaultConfig(), h)
//
// NewRaw hands the handler the *http.Request itself, for functions that need
// headers, the method, or a body that is not a structured document:
//
//	faas.RunRaw(ctx, cfg, faas.HandlerFunc[*faas.Request, string](
//	    func(_ context.Context, r *faas.Request) (string, error) {
//	        name, err := faas.ReadBody(r)
//	        return "Hello " + string(name), err
//	    }))
//
// There is no routing: every path and method reaches the one handler.
//
// Failures at any stage (reading the body, decoding, the handler, encoding)
// are written as a plain-text body holding the error message. By default
// every response is 200 and callers inspect the body; WithStatusCodes(true)
// makes failures carry the status from ErrorStatus instead. The request body
// is unbounded unless WithMaxBodyBytes sets a limit.
package faas
