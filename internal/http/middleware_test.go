package http

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/example/galera-volei/internal/application"
	"github.com/example/galera-volei/internal/logging"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRequireSession(t *testing.T) {
	t.Parallel()

	principal := application.Principal{PlayerID: "player-123", Email: "ana@example.com"}

	tests := []struct {
		name           string
		header         string
		validator      fakeSessionValidator
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "missing credentials",
			expectedStatus: http.StatusUnauthorized,
			expectedCode:   codeUnauthenticated,
		},
		{
			name:           "non bearer scheme",
			header:         "Basic YWxhZGRpbjpvcGVuc2VzYW1l",
			expectedStatus: http.StatusUnauthorized,
			expectedCode:   codeUnauthenticated,
		},
		{
			name:           "expired token",
			header:         "Bearer expired",
			validator:      fakeSessionValidator{err: application.ErrUnauthenticated},
			expectedStatus: http.StatusUnauthorized,
			expectedCode:   codeUnauthenticated,
		},
		{
			name:           "validator failure",
			header:         "Bearer valid",
			validator:      fakeSessionValidator{err: errors.New("database unavailable")},
			expectedStatus: http.StatusInternalServerError,
			expectedCode:   codeInternal,
		},
		{
			name:           "valid token",
			header:         "bearer  valid ",
			validator:      fakeSessionValidator{principal: principal, token: "valid"},
			expectedStatus: http.StatusOK,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var captured application.Principal
			var called bool
			handler := RequireSession(tc.validator, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				captured, _ = PrincipalFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tc.expectedStatus {
				t.Fatalf("expected status %d, got %d", tc.expectedStatus, rec.Code)
			}
			if tc.expectedStatus != http.StatusOK {
				if called {
					t.Fatal("next handler should not be called when authentication fails")
				}
				expectError(t, rec, tc.expectedStatus, tc.expectedCode)
				return
			}
			if captured != principal {
				t.Fatalf("expected principal %+v, got %+v", principal, captured)
			}
		})
	}
}

func TestRecovery(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))

	handler := Recovery(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))

	expectError(t, rec, http.StatusInternalServerError, codeInternal)
	if !strings.Contains(logs.String(), "panic recovered") || !strings.Contains(logs.String(), "stack_trace") {
		t.Fatalf("expected panic log with stack trace, got %s", logs.String())
	}

	t.Run("abort handler panics propagate", func(t *testing.T) {
		handler := Recovery(discardLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic(http.ErrAbortHandler)
		}))
		defer func() {
			if rec := recover(); rec != http.ErrAbortHandler {
				t.Fatalf("expected ErrAbortHandler to propagate, got %v", rec)
			}
		}()
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestRequestLogger(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))

	var scoped *slog.Logger
	handler := chimiddleware.RequestID(RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scoped = logging.FromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/pot", nil))

	if scoped == nil {
		t.Fatal("expected request logger in context")
	}
	out := logs.String()
	for _, want := range []string{`"msg":"request completed"`, `"status":418`, `"bytes":15`, `"path":"/pot"`, `"request_id":`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in log output %s", want, out)
		}
	}
}

func TestValidatorUsesJSONFieldNames(t *testing.T) {
	t.Parallel()

	v := newRequestValidator()
	fields := v.Check(venueRequest{Name: "", City: "Fortaleza", State: "C"})
	if fields["nome"] == "" || fields["estado"] == "" {
		t.Fatalf("expected nome and estado errors, got %v", fields)
	}
	if _, ok := fields["cidade"]; ok {
		t.Fatalf("unexpected cidade error: %v", fields)
	}
	if v.Check(venueRequest{Name: "Quadra", City: "Fortaleza", State: "CE"}) != nil {
		t.Fatal("expected valid request to pass")
	}
}

func TestToCents(t *testing.T) {
	t.Parallel()

	cases := map[float64]int64{0: 0, 15.5: 1550, 0.29: 29, 19.99: 1999, 7.125: 713}
	for amount, want := range cases {
		if got := toCents(amount); got != want {
			t.Errorf("toCents(%v) = %d, want %d", amount, got, want)
		}
	}
}

type fakeSessionValidator struct {
	principal application.Principal
	err       error
	token     string
}

func (f fakeSessionValidator) ValidateSession(ctx context.Context, token string) (application.Principal, error) {
	if f.token != "" && token != f.token {
		return application.Principal{}, application.ErrUnauthenticated
	}
	return f.principal, f.err
}
