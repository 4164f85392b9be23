package util

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWithRequestIDEchoesCallerID(t *testing.T) {
	const supplied = "corr-abc-123"
	var seen string
	h := WithRequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromRequest(r)
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(HeaderRequestID, supplied)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if seen != supplied {
		t.Fatalf("context id = %q, want %q", seen, supplied)
	}
	if got := rec.Header().Get(HeaderRequestID); got != supplied {
		t.Fatalf("response id = %q, want %q", got, supplied)
	}
}

func TestWithRequestIDAssignsWhenMissing(t *testing.T) {
	var seen string
	h := WithRequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromRequest(r)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if seen == "" {
		t.Fatal("expected an assigned id in the request context")
	}
	if got := rec.Header().Get(HeaderRequestID); got != seen {
		t.Fatalf("response id %q does not match context id %q", got, seen)
	}
}
