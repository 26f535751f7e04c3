package middleware_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/kbukum/audiolens/logger"
	"github.com/kbukum/audiolens/server/middleware"
)

func init() { gin.SetMode(gin.TestMode) }

func serve(engine *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	engine.ServeHTTP(rr, req)
	return rr
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not an error envelope: %v (%s)", err, rr.Body.String())
	}
	return body.Error.Code
}

// --- Recovery ---

func TestRecoveryPanic(t *testing.T) {
	e := gin.New()
	e.Use(middleware.Recovery(logger.Nop()))
	e.GET("/boom", func(*gin.Context) { panic("test panic") })

	rr := serve(e, httptest.NewRequest(http.MethodGet, "/boom", http.NoBody))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if code := errorCode(t, rr); code != "INTERNAL_ERROR" {
		t.Errorf("unexpected code %s", code)
	}
	if strings.Contains(rr.Body.String(), "test panic") {
		t.Error("panic value leaked to client")
	}
}

// --- RequestID ---

func TestRequestIDGeneratesAndPreserves(t *testing.T) {
	e := gin.New()
	e.Use(middleware.RequestID())
	var seen string
	e.GET("/", func(c *gin.Context) {
		seen = c.GetString(logger.FieldRequestID)
		c.Status(http.StatusOK)
	})

	rr := serve(e, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	if got := rr.Header().Get(middleware.HeaderRequestID); got == "" || got != seen {
		t.Errorf("generated id not echoed: header=%q ctx=%q", got, seen)
	}

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set(middleware.HeaderRequestID, "client-id")
	rr = serve(e, req)
	if got := rr.Header().Get(middleware.HeaderRequestID); got != "client-id" {
		t.Errorf("expected client id to be preserved, got %q", got)
	}
}

// --- CORS ---

func TestCORS(t *testing.T) {
	cfg := &middleware.CORSConfig{
		AllowedOrigins: []string{"https://app.example.com"},
		AllowedMethods: []string{"GET", "POST"},
	}
	e := gin.New()
	e.Use(middleware.CORS(cfg))
	e.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/", http.NoBody)
	req.Header.Set("Origin", "https://app.example.com")
	rr := serve(e, req)
	if rr.Code != http.StatusNoContent {
		t.Errorf("preflight should return 204, got %d", rr.Code)
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "https://app.example.com" {
		t.Error("allowed origin not echoed")
	}

	req = httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set("Origin", "https://evil.example.com")
	rr = serve(e, req)
	if rr.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("disallowed origin should get no CORS headers")
	}
}

// --- BodySizeLimit ---

func TestBodySizeLimit(t *testing.T) {
	e := gin.New()
	e.Use(middleware.BodySizeLimit(8))
	e.POST("/", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(http.StatusOK)
	})

	rr := serve(e, httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte("short"))))
	if rr.Code != http.StatusOK {
		t.Errorf("small body: expected 200, got %d", rr.Code)
	}
	rr = serve(e, httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte("this body is too long"))))
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("large body: expected 413, got %d", rr.Code)
	}
}

// --- RateLimit ---

func TestRateLimit(t *testing.T) {
	e := gin.New()
	e.Use(middleware.RateLimit(middleware.RateLimitConfig{RequestsPerMinute: 2}))
	e.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 2; i++ {
		if rr := serve(e, httptest.NewRequest(http.MethodGet, "/", http.NoBody)); rr.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rr.Code)
		}
	}
	rr := serve(e, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if code := errorCode(t, rr); code != "RATE_LIMITED" {
		t.Errorf("unexpected code %s", code)
	}
}

// --- BearerAuth ---

const secret = "0123456789abcdef0123456789abcdef"

func sign(t *testing.T, claims jwt.RegisteredClaims, key string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func TestBearerAuth(t *testing.T) {
	cfg := middleware.JWTConfig{Enabled: true, Secret: secret, Issuer: "audiolens"}
	e := gin.New()
	e.Use(middleware.BearerAuth(cfg))
	e.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(middleware.ContextKeySubject)) })

	valid := sign(t, jwt.RegisteredClaims{
		Subject:   "uploader-1",
		Issuer:    "audiolens",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}, secret)
	expired := sign(t, jwt.RegisteredClaims{
		Subject:   "uploader-1",
		Issuer:    "audiolens",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}, secret)
	wrongKey := sign(t, jwt.RegisteredClaims{
		Issuer:    "audiolens",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}, "another-secret-another-secret-xx")
	wrongIssuer := sign(t, jwt.RegisteredClaims{
		Issuer:    "someone-else",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}, secret)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"valid", "Bearer " + valid, http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"bad scheme", "Basic " + valid, http.StatusUnauthorized},
		{"expired", "Bearer " + expired, http.StatusUnauthorized},
		{"wrong key", "Bearer " + wrongKey, http.StatusUnauthorized},
		{"wrong issuer", "Bearer " + wrongIssuer, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := serve(e, req)
			if rr.Code != tt.status {
				t.Fatalf("expected %d, got %d (%s)", tt.status, rr.Code, rr.Body.String())
			}
			if tt.status == http.StatusOK && rr.Body.String() != "uploader-1" {
				t.Errorf("subject not stored, got %q", rr.Body.String())
			}
			if tt.status == http.StatusUnauthorized && errorCode(t, rr) != "UNAUTHORIZED" {
				t.Error("expected UNAUTHORIZED envelope")
			}
		})
	}
}

func TestJWTConfigValidate(t *testing.T) {
	cfg := middleware.JWTConfig{Enabled: true, Secret: "short"}
	if err := cfg.Validate(); err == nil {
		t.Error("short secret should be rejected")
	}
	cfg.Enabled = false
	if err := cfg.Validate(); err != nil {
		t.Errorf("disabled auth should validate: %v", err)
	}
}

// --- Telemetry and logging ---

func TestTelemetryAndLoggerPassThrough(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&logger.Config{Level: "debug", Format: "json"}, "test", &buf)
	e := gin.New()
	e.Use(middleware.RequestID(), middleware.Telemetry(nil), middleware.RequestLogger(log))
	e.GET("/uploads/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	rr := serve(e, httptest.NewRequest(http.MethodGet, "/uploads/x", http.NoBody))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	out := buf.String()
	if !strings.Contains(out, `"status":404`) || !strings.Contains(out, `"level":"warn"`) {
		t.Errorf("expected a warn log line with status, got %s", out)
	}
}
