package trace

import "net/http"

// Middleware extracts or creates trace context for HTTP requests.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tc := Context{
			TraceID:      r.Header.Get(TraceIDHeader),
			ParentSpanID: r.Header.Get(SpanIDHeader),
			SpanID:       newID(8),
		}
		if tc.TraceID == "" {
			tc.TraceID = newID(16)
		}
		next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), tc)))
	})
}
