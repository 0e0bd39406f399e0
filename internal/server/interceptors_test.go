package server

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware(t *testing.T) {
	for _, tc := range []struct {
		name   string
		token  string
		method string
		target string
		header string
		want   int
		reason string
	}{
		{"Disabled", "", "GET", "/v1/views", "", http.StatusOK, ""},
		{"NoHeader", "secret", "GET", "/v1/views", "", http.StatusUnauthorized, "missing authorization header"},
		{"WrongToken", "secret", "GET", "/v1/views", "Bearer wrong", http.StatusUnauthorized, "invalid token"},
		{"BasicScheme", "secret", "GET", "/v1/views", "Basic secret", http.StatusUnauthorized, "invalid authorization scheme"},
		{"NoScheme", "secret", "GET", "/v1/views", "secret", http.StatusUnauthorized, "invalid authorization scheme"},
		{"CorrectToken", "secret", "POST", "/v1/views", "Bearer secret", http.StatusOK, ""},
		{"HealthExempt", "secret", "GET", "/v1/health", "", http.StatusOK, ""},
		{"HealthOnlyForGET", "secret", "POST", "/v1/health", "", http.StatusUnauthorized, "missing authorization header"},
		{"ViewStreamQueryToken", "secret", "GET", "/v1/views/av-1/stream?access_token=secret", "", http.StatusOK, ""},
		{"EventStreamQueryToken", "secret", "GET", "/v1/events/stream?access_token=secret", "", http.StatusOK, ""},
		{"StreamWrongQueryToken", "secret", "GET", "/v1/events/stream?access_token=nope", "", http.StatusUnauthorized, "invalid token"},
		{"QueryTokenOnlyForStreams", "secret", "GET", "/v1/views?access_token=secret", "", http.StatusUnauthorized, "missing authorization header"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.target, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			AuthMiddleware(tc.token, okHandler()).ServeHTTP(rec, req)

			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d; body: %s", tc.want, rec.Code, rec.Body.String())
			}
			if tc.reason != "" && !strings.Contains(rec.Body.String(), tc.reason) {
				t.Errorf("expected body to mention %q, got %s", tc.reason, rec.Body.String())
			}
		})
	}
}

func TestChain_Order(t *testing.T) {
	var calls []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls = append(calls, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		calls = append(calls, "handler")
	}), mark("outer"), mark("inner"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if diff := cmp.Diff([]string{"outer", "inner", "handler"}, calls); diff != "" {
		t.Fatalf("call order mismatch (-want +got):\n%s", diff)
	}
}

func TestRecoveryMiddleware_Panic(t *testing.T) {
	handler := RecoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/views", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d; body: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "internal server error") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestRecoveryMiddleware_AbortHandlerPropagates(t *testing.T) {
	handler := RecoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	defer func() {
		if v := recover(); v != http.ErrAbortHandler {
			t.Fatalf("expected ErrAbortHandler to propagate, got %v", v)
		}
	}()
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/views", nil))
}

func captureLogs(t *testing.T, level slog.Level) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: level})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestLoggingMiddleware_LogsServerErrors(t *testing.T) {
	buf := captureLogs(t, slog.LevelInfo)

	handler := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusInternalServerError, "broken")
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/views", nil))

	out := buf.String()
	for _, want := range []string{"level=ERROR", "status=500", "path=/v1/views", "method=POST"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in log line, got %q", want, out)
		}
	}
}

func TestLoggingMiddleware_QuietForSuccess(t *testing.T) {
	buf := captureLogs(t, slog.LevelInfo)

	LoggingMiddleware(okHandler()).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/views", nil))
	if buf.Len() != 0 {
		t.Fatalf("expected no log output at info, got %q", buf.String())
	}
}

func TestLoggingMiddleware_ImplicitStatusAndBytes(t *testing.T) {
	buf := captureLogs(t, slog.LevelDebug)

	handler := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("hello"))
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/views", nil))

	out := buf.String()
	if !strings.Contains(out, "status=200") || !strings.Contains(out, "bytes=5") {
		t.Fatalf("expected implicit 200 and byte count, got %q", out)
	}
}

func TestLoggingMiddleware_KeepsFlusher(t *testing.T) {
	handler := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if _, ok := w.(http.Flusher); !ok {
			t.Error("wrapped writer lost http.Flusher")
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/health", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}
