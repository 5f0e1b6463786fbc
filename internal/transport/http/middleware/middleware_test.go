package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"

	resp "pickfast/internal/transport/http/response"
)

func init() { gin.SetMode(gin.TestMode) }

func TestRateLimitPerIP(t *testing.T) {
	r := gin.New()
	r.Use(RateLimitPerIP(0.001, 2))
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		r.ServeHTTP(w, req)
		var env resp.Resp
		if w.Body.String() == "ok" {
			codes = append(codes, 0)
			continue
		}
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode: %v", err)
		}
		codes = append(codes, env.Code)
	}
	if codes[0] != 0 || codes[1] != 0 || codes[2] != resp.CodeTooManyRequests {
		t.Errorf("codes = %v", codes)
	}

	// Another client has its own bucket.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	r.ServeHTTP(w, req)
	if w.Body.String() != "ok" {
		t.Errorf("second client limited: %s", w.Body.String())
	}
}

func TestMaskQuery(t *testing.T) {
	got := maskQuery(map[string][]string{"Password": {"x"}, "limit": {"5"}})
	if got["Password"][0] != "****" || got["limit"][0] != "5" {
		t.Errorf("masked = %v", got)
	}
}

func TestRequestIDPropagates(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	var seen string
	r.GET("/", func(c *gin.Context) { seen = c.GetString(KeyRequestID) })

	cases := []struct {
		in   string
		keep bool
	}{
		{"rid-42", true},
		{"", false},
		{"has space", false},
		{strings.Repeat("x", maxRequestIDLen+1), false},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.in != "" {
			req.Header.Set(HeaderRequestID, tc.in)
		}
		r.ServeHTTP(w, req)
		out := w.Header().Get(HeaderRequestID)
		if out == "" || out != seen {
			t.Fatalf("%q: header %q context %q", tc.in, out, seen)
		}
		if kept := out == tc.in; kept != tc.keep {
			t.Errorf("%q: kept=%v, want %v", tc.in, kept, tc.keep)
		}
	}
}

func TestMetricsLabelsRouteTemplate(t *testing.T) {
	r := gin.New()
	r.Use(Metrics("test"))
	r.GET("/groups/:code", func(c *gin.Context) { c.Status(http.StatusOK) })

	before := testutil.ToFloat64(httpRequests.WithLabelValues("test", "/groups/:code", http.MethodGet, "200"))
	unmatched := testutil.ToFloat64(httpRequests.WithLabelValues("test", "unmatched", http.MethodGet, "404"))
	for _, p := range []string{"/groups/AAAAAA", "/groups/BBBBBB", "/nope"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}
	if got := testutil.ToFloat64(httpRequests.WithLabelValues("test", "/groups/:code", http.MethodGet, "200")) - before; got != 2 {
		t.Errorf("route counter moved by %v, want 2", got)
	}
	if got := testutil.ToFloat64(httpRequests.WithLabelValues("test", "unmatched", http.MethodGet, "404")) - unmatched; got != 1 {
		t.Errorf("unmatched counter moved by %v, want 1", got)
	}
	if got := testutil.ToFloat64(httpInFlight.WithLabelValues("test")); got != 0 {
		t.Errorf("in flight = %v after requests finished", got)
	}
}
