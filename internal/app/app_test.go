package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/ContactRelay/internal/config"
	"github.com/router-for-me/ContactRelay/internal/security"
	log "github.com/sirupsen/logrus"
)

func testConfig(t *testing.T, webhookURL string) config.AppConfig {
	t.Helper()
	cfg := config.Defaults()
	cfg.Channels.WebhookURL = webhookURL
	cfg.Channels.Timeout = time.Second
	cfg.RateLimit.Max = 2
	return cfg
}

func TestServerContactFlow(t *testing.T) {
	var hits int32
	webhook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer webhook.Close()

	srv, err := NewServer(testConfig(t, webhook.URL))
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	h := srv.Handler()

	for i, want := range []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests} {
		req := httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader(`{"email":"a@b.co"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Real-IP", "192.0.2.10")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		if w.Code != want {
			t.Fatalf("request %d: expected %d, got %d: %s", i, want, w.Code, w.Body.String())
		}
	}
	if hits != 2 {
		t.Fatalf("expected 2 webhook deliveries, got %d", hits)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("metrics: expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, `contact_rate_limit_checks_total{result="limited"} 1`) {
		t.Fatalf("expected limited counter in metrics output")
	}
	if !strings.Contains(body, `contact_dispatch_total{channel="webhook",outcome="delivered"} 2`) {
		t.Fatalf("expected dispatch counter in metrics output")
	}
}

func TestServerHealthz(t *testing.T) {
	cfg := testConfig(t, "")
	cfg.Database.DSN = "file:" + filepath.Join(t.TempDir(), "contact.db")

	srv, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	defer srv.close()

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var out struct {
		Status   string          `json:"status"`
		Channels map[string]bool `json:"channels"`
		Store    bool            `json:"store"`
	}
	if errUnmarshal := json.Unmarshal(w.Body.Bytes(), &out); errUnmarshal != nil {
		t.Fatalf("decode: %v", errUnmarshal)
	}
	if out.Status != "ok" || !out.Store || out.Channels["webhook"] || out.Channels["email"] {
		t.Fatalf("unexpected health %+v", out)
	}
}

func TestServerAdminRoutesRequireFullConfig(t *testing.T) {
	cfg := testConfig(t, "https://hook.example")
	cfg.Database.DSN = "file:" + filepath.Join(t.TempDir(), "contact.db")

	srv, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v0/admin/login", strings.NewReader(`{}`)))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected admin disabled without credentials, got %d", w.Code)
	}
	srv.close()

	hash, errHash := security.HashPassword("hunter2")
	if errHash != nil {
		t.Fatalf("hash: %v", errHash)
	}
	cfg.Admin = config.AdminConfig{Username: "owner", PasswordHash: hash}
	cfg.JWT.Secret = "test-secret"
	srv, err = NewServer(cfg)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	defer srv.close()
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v0/admin/login", strings.NewReader(`{"username":"owner","password":"hunter2"}`)))
	if w.Code != http.StatusOK {
		t.Fatalf("expected login ok, got %d: %s", w.Code, w.Body.String())
	}
}

func TestCorsPreflight(t *testing.T) {
	srv, err := NewServer(func() config.AppConfig {
		cfg := testConfig(t, "https://hook.example")
		cfg.Server.AllowedOrigins = []string{"https://portfolio.example"}
		return cfg
	}())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	req := httptest.NewRequest(http.MethodOptions, "/contact", nil)
	req.Header.Set("Origin", "https://portfolio.example")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://portfolio.example" {
		t.Fatalf("unexpected allow origin %q", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/contact", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected no allow origin for unknown site, got %q", got)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	listener, errListen := net.Listen("tcp", "127.0.0.1:0")
	if errListen != nil {
		t.Fatalf("listen: %v", errListen)
	}
	port := listener.Addr().(*net.TCPAddr).Port
	_ = listener.Close()

	cfg := testConfig(t, "https://hook.example")
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = port

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- RunServer(ctx, cfg) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, errGet := http.Get("http://" + net.JoinHostPort("127.0.0.1", strconv.Itoa(port)) + "/healthz")
		if errGet == nil {
			_ = resp.Body.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server did not start: %v", errGet)
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	select {
	case errRun := <-done:
		if errRun != nil {
			t.Fatalf("expected clean shutdown, got %v", errRun)
		}
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatalf("server did not stop")
	}
}

func TestServerLogsPanickingRequest(t *testing.T) {
	srv, err := NewServer(testConfig(t, ""))
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	srv.engine.GET("/panic", func(c *gin.Context) { panic("boom") })

	var buf bytes.Buffer
	prevFormatter := log.StandardLogger().Formatter
	prevLevel := log.GetLevel()
	log.SetOutput(&buf)
	log.SetFormatter(&log.TextFormatter{DisableColors: true, DisableTimestamp: true})
	log.SetLevel(log.InfoLevel)
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		log.SetFormatter(prevFormatter)
		log.SetLevel(prevLevel)
	})

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	req.Header.Set("X-Real-IP", "198.51.100.4")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	out := buf.String()
	if !strings.Contains(out, "msg=request") || !strings.Contains(out, "client=198.51.100.4") {
		t.Fatalf("expected request log line for panicking request, got %q", out)
	}
}
