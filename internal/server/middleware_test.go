package server

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/spotstat/internal/shared"
)

func TestMiddleware(t *testing.T) {
	t.Run("RequestID", func(t *testing.T) {
		var seen string
		handler := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = RequestIDFromContext(r.Context())
		}))

		t.Run("generates an id", func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))

			if seen == "" || rec.Header().Get(RequestIDHeader) != seen {
				t.Errorf("expected generated id to be echoed, got %q and %q", seen, rec.Header().Get(RequestIDHeader))
			}
		})

		t.Run("keeps the caller's id", func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			req.Header.Set(RequestIDHeader, "req-123")
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if seen != "req-123" || rec.Header().Get(RequestIDHeader) != "req-123" {
				t.Errorf("expected req-123, got %q", seen)
			}
		})
	})

	t.Run("AccessLog", func(t *testing.T) {
		buf := &bytes.Buffer{}
		handler := RequestID()(AccessLog(shared.NewLogger(buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		})))

		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/top-tracks", nil))

		out := buf.String()
		for _, want := range []string{"path=/top-tracks", "status=418", "request_id="} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in log output, got %q", want, out)
			}
		}
	})

	t.Run("RateLimit", func(t *testing.T) {
		t.Run("rejects beyond the burst", func(t *testing.T) {
			handler := RateLimit(NewLimiter(0.001, 1))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

			first := httptest.NewRecorder()
			handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/me", nil))
			second := httptest.NewRecorder()
			handler.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/me", nil))

			if first.Code != http.StatusOK {
				t.Errorf("expected first request to pass, got %d", first.Code)
			}
			if second.Code != http.StatusTooManyRequests {
				t.Errorf("expected 429, got %d", second.Code)
			}
			if !strings.Contains(second.Body.String(), `"statusCode":429`) {
				t.Errorf("expected JSON error body, got %s", second.Body.String())
			}
		})

		t.Run("disabled without a rate", func(t *testing.T) {
			if NewLimiter(0, 10) != nil {
				t.Error("expected nil limiter for zero rate")
			}

			handler := RateLimit(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
			for range 5 {
				rec := httptest.NewRecorder()
				handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))
				if rec.Code != http.StatusOK {
					t.Fatalf("expected 200, got %d", rec.Code)
				}
			}
		})
	})

	t.Run("Recover", func(t *testing.T) {
		buf := &bytes.Buffer{}
		handler := Recover(shared.NewLogger(buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
		if !strings.Contains(buf.String(), "boom") {
			t.Errorf("expected panic to be logged, got %q", buf.String())
		}
	})
}
