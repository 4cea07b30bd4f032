package handler

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// Middleware is the stack applied to every route. Request ids come from
// chi's RequestID, which also honors an inbound X-Request-ID; the id is
// echoed on the response and appears in the log line.
func Middleware() []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		middleware.RequestID,
		echoRequestID,
		middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: log.Default(), NoColor: true}),
		middleware.Recoverer,
	}
}

// RequestID returns the id assigned by the request id middleware, or ""
// outside it.
func RequestID(ctx context.Context) string {
	return middleware.GetReqID(ctx)
}

func echoRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := RequestID(r.Context()); id != "" {
			w.Header().Set(RequestIDHeader, id)
		}
		next.ServeHTTP(w, r)
	})
}
