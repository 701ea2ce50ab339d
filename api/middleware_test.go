package api_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/garnizeh/timesheet/api"
)

func TestLoggingMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("ok"))
	})

	handler := api.LoggingMiddleware(next)
	req := httptest.NewRequest(http.MethodGet, "/log", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)
	res := w.Result()
	defer res.Body.Close()

	if res.StatusCode != http.StatusTeapot {
		t.Fatalf("expected status 418, got %d", res.StatusCode)
	}
	b, _ := io.ReadAll(res.Body)
	if string(b) != "ok" {
		t.Fatalf("unexpected body: %q", string(b))
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	handler := api.RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = api.RequestIDFromContext(r.Context())
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if _, err := uuid.Parse(seen); err != nil {
		t.Fatalf("expected a generated uuid, got %q", seen)
	}
	if got := w.Header().Get(api.RequestIDHeader); got != seen {
		t.Fatalf("response header %q does not match context id %q", got, seen)
	}

	incoming := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(api.RequestIDHeader, incoming)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if seen != incoming {
		t.Fatalf("expected incoming id to be reused, got %q", seen)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(api.RequestIDHeader, "not a uuid\n")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if seen == "not a uuid\n" {
		t.Fatalf("malformed incoming id must be replaced")
	}
}

func TestCORSMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	handler := api.CORSMiddleware(next)

	// OPTIONS should return 204 and not call next
	reqOpt := httptest.NewRequest(http.MethodOptions, "/cors", nil)
	wOpt := httptest.NewRecorder()
	handler.ServeHTTP(wOpt, reqOpt)
	resOpt := wOpt.Result()
	defer resOpt.Body.Close()
	if resOpt.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204 for OPTIONS, got %d", resOpt.StatusCode)
	}
	if got := resOpt.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected CORS header set, got %q", got)
	}

	reqGet := httptest.NewRequest(http.MethodGet, "/cors", nil)
	wGet := httptest.NewRecorder()
	handler.ServeHTTP(wGet, reqGet)
	resGet := wGet.Result()
	defer resGet.Body.Close()
	if resGet.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for GET, got %d", resGet.StatusCode)
	}
	if got := resGet.Header.Get("Access-Control-Allow-Methods"); !strings.Contains(got, "PUT") {
		t.Fatalf("expected Allow-Methods to include PUT, got %q", got)
	}
	if got := resGet.Header.Get("Access-Control-Expose-Headers"); !strings.Contains(got, "Content-Disposition") {
		t.Fatalf("expected Content-Disposition to be exposed, got %q", got)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	pan := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})
	handler := api.RecoveryMiddleware(pan)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 from panic recovery, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Internal Server Error") {
		t.Fatalf("unexpected body for recovery: %s", w.Body.String())
	}

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	w2 := httptest.NewRecorder()
	api.RecoveryMiddleware(ok).ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "/ok", nil))
	if w2.Code != http.StatusOK {
		t.Fatalf("expected 200 for normal path, got %d", w2.Code)
	}
}

func TestJWTAuthMiddlewareWithSecret(t *testing.T) {
	var gotID int64
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, _ = api.UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := api.JWTAuthMiddlewareWithSecret(testSecret)(next)

	sign := func(alg jwt.SigningMethod, key any, claims jwt.MapClaims) string {
		s, err := jwt.NewWithClaims(alg, claims).SignedString(key)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return s
	}
	future := time.Now().Add(time.Hour).Unix()

	cases := []struct {
		name       string
		authHeader string
		wantStatus int
		wantID     int64
	}{
		{name: "MissingHeader", authHeader: "", wantStatus: http.StatusUnauthorized},
		{name: "EmptyBearer", authHeader: "Bearer ", wantStatus: http.StatusUnauthorized},
		{name: "NotBearer", authHeader: "Basic abc", wantStatus: http.StatusUnauthorized},
		{name: "BadToken", authHeader: "Bearer bad.token.here", wantStatus: http.StatusUnauthorized},
		{
			name:       "WrongSecret",
			authHeader: "Bearer " + sign(jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{"user_id": 1, "exp": future}),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "Expired",
			authHeader: "Bearer " + sign(jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"user_id": 1, "exp": time.Now().Add(-time.Minute).Unix()}),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "NoUserClaim",
			authHeader: "Bearer " + sign(jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"email": "a@b", "exp": future}),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "Valid",
			authHeader: "Bearer " + sign(jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"user_id": 42, "exp": future}),
			wantStatus: http.StatusOK,
			wantID:     42,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			gotID = 0
			req := httptest.NewRequest(http.MethodGet, "/jwt", nil)
			if c.authHeader != "" {
				req.Header.Set("Authorization", c.authHeader)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			if w.Code != c.wantStatus {
				t.Fatalf("%s: want %d got %d", c.name, c.wantStatus, w.Code)
			}
			if gotID != c.wantID {
				t.Fatalf("%s: want user %d got %d", c.name, c.wantID, gotID)
			}
		})
	}
}
