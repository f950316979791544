package trace

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewGeneratesUniqueIDs(t *testing.T) {
	a := New()
	b := New()
	if a.TraceID == b.TraceID {
		t.Error("trace IDs should be unique")
	}
	if len(a.TraceID) != 32 || len(a.SpanID) != 16 {
		t.Errorf("unexpected ID lengths: trace=%d span=%d", len(a.TraceID), len(a.SpanID))
	}
}

func TestNewChildKeepsTraceID(t *testing.T) {
	parent := New()
	child := NewChild(parent)

	if child.TraceID != parent.TraceID {
		t.Error("child should share parent trace ID")
	}
	if child.ParentSpanID != parent.SpanID {
		t.Error("child parent span should be parent's span")
	}
	if child.SpanID == parent.SpanID {
		t.Error("child should get a fresh span ID")
	}
}

func TestContextRoundTrip(t *testing.T) {
	tc := New()
	ctx := WithContext(context.Background(), tc)

	got, ok := FromContext(ctx)
	if !ok || got != tc {
		t.Errorf("expected %+v, got %+v (ok=%v)", tc, got, ok)
	}

	if _, ok := FromContext(context.Background()); ok {
		t.Error("empty context should not carry trace context")
	}
}

func TestStartSpanChaining(t *testing.T) {
	ctx, root := StartSpan(context.Background(), "outer")
	_, child := StartSpan(ctx, "inner")

	if child.Ctx.TraceID != root.Ctx.TraceID {
		t.Error("nested span should share trace ID")
	}
	if child.Ctx.ParentSpanID != root.Ctx.SpanID {
		t.Error("nested span should parent to outer span")
	}
}

func TestSpanDuration(t *testing.T) {
	_, s := StartSpan(context.Background(), "op")
	if s.Duration() != 0 {
		t.Error("duration should be zero before End")
	}
	time.Sleep(time.Millisecond)
	s.End()
	if s.Duration() <= 0 {
		t.Error("duration should be positive after End")
	}
}

func TestMiddlewarePropagatesHeaders(t *testing.T) {
	var got Context
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = FromContext(r.Context())
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(TraceIDHeader, "abc123")
	req.Header.Set(SpanIDHeader, "def456")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if got.TraceID != "abc123" {
		t.Errorf("expected propagated trace ID, got %q", got.TraceID)
	}
	if got.ParentSpanID != "def456" {
		t.Errorf("expected caller span as parent, got %q", got.ParentSpanID)
	}
}

func TestMiddlewareCreatesTraceWhenMissing(t *testing.T) {
	var got Context
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = FromContext(r.Context())
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	if got.TraceID == "" || got.SpanID == "" {
		t.Error("middleware should synthesize trace context")
	}
}
