package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func runSecurity(opt SecurityOptions, set func(*http.Request)) *httptest.ResponseRecorder {
	r := gin.New()
	r.Use(RequestID())
	r.Use(SecurityHeaders(opt))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if set != nil {
		set(req)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSecurityHeaders_Baseline(t *testing.T) {
	w := runSecurity(SecurityOptions{EnablePolicy: true}, nil)

	for header, want := range map[string]string{
		"X-Content-Type-Options":            "nosniff",
		"X-Frame-Options":                   "DENY",
		"Referrer-Policy":                   "no-referrer",
		"X-Permitted-Cross-Domain-Policies": "none",
	} {
		if got := w.Header().Get(header); got != want {
			t.Fatalf("%s = %q; want %q", header, got, want)
		}
	}
	if hsts := w.Header().Get("Strict-Transport-Security"); hsts != "" {
		t.Fatalf("HSTS must be absent by default, got %q", hsts)
	}
}

func TestSecurityHeaders_HSTSOnlyOverHTTPS(t *testing.T) {
	opt := SecurityOptions{EnableHSTS: true, HSTSMaxAge: 24 * time.Hour}

	w := runSecurity(opt, nil)
	if w.Header().Get("Strict-Transport-Security") != "" {
		t.Fatal("HSTS must not be set for plain HTTP")
	}

	w = runSecurity(opt, func(r *http.Request) {
		r.Header.Set("X-Forwarded-Proto", "https")
	})
	hsts := w.Header().Get("Strict-Transport-Security")
	if !strings.HasPrefix(hsts, "max-age=86400") {
		t.Fatalf("HSTS = %q", hsts)
	}
}

func TestSecurityHeaders_NoStore(t *testing.T) {
	w := runSecurity(SecurityOptions{NoStore: true}, nil)
	if got := w.Header().Get("Cache-Control"); got != "no-store" {
		t.Fatalf("Cache-Control = %q", got)
	}
}

func TestSecurityHeaders_ExposesRequestID(t *testing.T) {
	w := runSecurity(SecurityOptions{}, nil)
	if got := w.Header().Get("Access-Control-Expose-Headers"); !strings.Contains(got, "X-Request-ID") {
		t.Fatalf("Access-Control-Expose-Headers = %q", got)
	}
}
