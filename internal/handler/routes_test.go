package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"midjourney-proxy-go/internal/config"
	"midjourney-proxy-go/internal/metrics"
)

func TestRegisterRoutes_Wiring(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer upstream.Close()

	cfg := &config.Config{
		Midjourney: config.MidjourneyConfig{ProxyURL: upstream.URL, AuthToken: "test-token"},
	}
	proxy := newTestProxyHandler(cfg)
	health := NewHealthHandler(cfg, "test")

	e := echo.New()
	RegisterRoutes(e, proxy, health)

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{"GET /healthz", http.MethodGet, "/healthz", http.StatusOK},
		{"GET /proxy/status", http.MethodGet, "/proxy/status", http.StatusOK},
		{"POST submit/imagine", http.MethodPost, "/api/midjourney/mj/submit/imagine", http.StatusOK},
		{"GET task fetch", http.MethodGet, "/api/midjourney/mj/task/123/fetch", http.StatusOK},
		{"GET task list with query", http.MethodGet, "/api/midjourney/mj/task/list?ids=1,2", http.StatusOK},
		{"PUT is forwarded", http.MethodPut, "/api/midjourney/mj/task/123", http.StatusOK},
		{"GET /unknown returns 404", http.MethodGet, "/unknown", http.StatusNotFound},
		{"GET /metrics not registered", http.MethodGet, "/metrics", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, http.NoBody)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestRegisterMetrics(t *testing.T) {
	tests := []struct {
		name       string
		enabled    bool
		wantStatus int
	}{
		{"enabled", true, http.StatusOK},
		{"disabled", false, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := metrics.New()
			m.RequestsTotal.WithLabelValues("GET", "200", "/healthz").Inc()
			cfg := &config.Config{
				Metrics: config.MetricsConfig{Enabled: tt.enabled, Path: "/metrics"},
			}

			e := echo.New()
			RegisterMetrics(e, m, cfg)

			req := httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.enabled && !strings.Contains(rec.Body.String(), "midjourney_proxy_http_requests_total") {
				t.Error("expected midjourney_proxy_http_requests_total in metrics output")
			}
		})
	}
}
