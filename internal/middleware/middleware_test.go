package middleware

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
	"github.com/stemsi/quizgrade/internal/config"
	"github.com/stemsi/quizgrade/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequireScope(t *testing.T) {
	auth := service.NewAuthService(&config.Config{JWTSecret: "test-secret"})
	other := service.NewAuthService(&config.Config{JWTSecret: "other-secret"})

	gradeToken, _ := auth.IssueToken("lms", time.Hour, service.ScopeGrade)
	adminToken, _ := auth.IssueToken("lms", time.Hour, service.ScopeAdmin)
	expired, _ := auth.IssueToken("lms", -time.Minute, service.ScopeAdmin)
	forged, _ := other.IssueToken("lms", time.Hour, service.ScopeAdmin)

	tests := []struct {
		name   string
		header string
		scope  service.Scope
		status int
	}{
		{"missing header", "", service.ScopeGrade, http.StatusUnauthorized},
		{"not bearer", "Basic abc", service.ScopeGrade, http.StatusUnauthorized},
		{"grade token on grade route", "Bearer " + gradeToken, service.ScopeGrade, http.StatusOK},
		{"grade token on admin route", "Bearer " + gradeToken, service.ScopeAdmin, http.StatusForbidden},
		{"admin token on grade route", "bearer " + adminToken, service.ScopeGrade, http.StatusOK},
		{"expired", "Bearer " + expired, service.ScopeGrade, http.StatusUnauthorized},
		{"wrong secret", "Bearer " + forged, service.ScopeGrade, http.StatusUnauthorized},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/", RequireScope(auth, tc.scope), func(c *gin.Context) {
				if GetClaims(c) == nil {
					t.Error("claims not set")
				}
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tc.status {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tc.status, w.Body.String())
			}
		})
	}
}

func TestRateLimiter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl := NewRateLimiter(ctx, 2, time.Minute)
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }

	for i, want := range []bool{true, true, false} {
		if got := rl.allow("1.2.3.4"); got != want {
			t.Fatalf("request %d: allow = %v, want %v", i, got, want)
		}
	}
	if !rl.allow("5.6.7.8") {
		t.Fatal("other client should have its own bucket")
	}

	clock = clock.Add(time.Minute)
	if !rl.allow("1.2.3.4") {
		t.Fatal("bucket should refill after an interval")
	}
}

func TestRateLimiterMiddleware(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl := NewRateLimiter(ctx, 1, time.Minute)
	r := gin.New()
	r.GET("/", rl.Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 2)
	for range 2 {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, w.Code)
		if w.Code == http.StatusTooManyRequests && w.Header().Get("Retry-After") != "60" {
			t.Fatalf("Retry-After = %q", w.Header().Get("Retry-After"))
		}
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v", codes)
	}
}

func TestBrotli(t *testing.T) {
	large := strings.Repeat("grading ", 512)
	r := gin.New()
	r.Use(Brotli())
	r.GET("/large", func(c *gin.Context) { c.String(http.StatusOK, large) })
	r.GET("/small", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	t.Run("large body compressed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/large", nil)
		req.Header.Set("Accept-Encoding", "gzip, br;q=1.0")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Header().Get("Content-Encoding") != "br" {
			t.Fatalf("Content-Encoding = %q", w.Header().Get("Content-Encoding"))
		}
		body, err := io.ReadAll(brotli.NewReader(bytes.NewReader(w.Body.Bytes())))
		if err != nil {
			t.Fatalf("decompress: %v", err)
		}
		if string(body) != large {
			t.Fatal("round trip mismatch")
		}
	})

	t.Run("small body untouched", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/small", nil)
		req.Header.Set("Accept-Encoding", "br")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Header().Get("Content-Encoding") != "" || w.Body.String() != "ok" {
			t.Fatalf("got encoding %q body %q", w.Header().Get("Content-Encoding"), w.Body.String())
		}
	})

	t.Run("client without brotli", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/large", nil))
		if w.Header().Get("Content-Encoding") != "" || w.Body.String() != large {
			t.Fatal("response should be plain")
		}
	})
}

func TestBodyLimit(t *testing.T) {
	r := gin.New()
	r.POST("/", BodyLimit(1024), func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		c.Status(http.StatusOK)
	})

	tests := []struct {
		name    string
		size    int
		chunked bool
		want    int
	}{
		{"under limit", 512, false, http.StatusOK},
		{"declared over limit", 2048, false, http.StatusRequestEntityTooLarge},
		{"streamed over limit", 2048, true, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", tt.size)))
			if tt.chunked {
				req.ContentLength = -1
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}
