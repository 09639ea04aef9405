package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/onnwee/anitrack/accounts"
	"github.com/onnwee/anitrack/anilist"
)

type noResolver struct{}

func (noResolver) ResolveUser(context.Context, string) (anilist.UserRef, error) {
	return anilist.UserRef{}, anilist.ErrNotFound
}

func newTestMux(t *testing.T) (http.Handler, *accounts.Store) {
	t.Helper()
	store := accounts.NewStore(
		&accounts.FileDocStore{Path: filepath.Join(t.TempDir(), "accounts.json")},
		noResolver{},
	)
	deps := &Deps{Store: store, StartedAt: time.Now()}
	return NewMux(deps), store
}

func TestHealthz(t *testing.T) {
	mux, _ := newTestMux(t)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
	if rec.Body.String() != "ok" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestReadyzWithoutDB(t *testing.T) {
	mux, _ := newTestMux(t)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d: file store must always be ready", rec.Code)
	}
}

func TestStatusJSON(t *testing.T) {
	mux, _ := newTestMux(t)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		LinkedAccounts int `json:"linked_accounts"`
		UptimeSeconds  int64 `json:"uptime_seconds"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.LinkedAccounts != 0 {
		t.Errorf("linked_accounts = %d", body.LinkedAccounts)
	}
}

func TestCorrelationIDHeader(t *testing.T) {
	mux, _ := newTestMux(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Header().Get("X-Correlation-ID") == "" {
		t.Error("correlation id not generated")
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Correlation-ID", "fixed-id")
	mux.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Correlation-ID"); got != "fixed-id" {
		t.Errorf("correlation id = %q, want fixed-id (supplied header reused)", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	mux, _ := newTestMux(t)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Error("prometheus output missing standard collectors")
	}
}

func TestStartShutsDownOnCancel(t *testing.T) {
	_, store := newTestMux(t)
	deps := &Deps{Store: store, StartedAt: time.Now()}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Start(ctx, deps, "127.0.0.1:0") }()
	time.Sleep(100 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil && err != http.ErrServerClosed {
			t.Errorf("Start returned %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}
