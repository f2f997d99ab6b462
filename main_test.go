package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"stickduel/arena/internal/config"
	"stickduel/arena/internal/logging"
	"stickduel/arena/internal/match"
	"stickduel/arena/internal/spectator"
)

func testConfig() *config.Config {
	cfg := config.Defaults()
	cfg.HTTPAddr = "127.0.0.1:0"
	cfg.GRPCAddr = "127.0.0.1:0"
	cfg.Seed = 7
	return cfg
}

func startApp(t *testing.T, opts options, screen tcell.Screen) (*app, context.CancelFunc, <-chan error) {
	t.Helper()
	a, err := newApp(testConfig(), opts, logging.NewTestLogger())
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	if a.StartupError() == nil {
		t.Fatal("app should not be ready before its listeners are bound")
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.run(ctx, screen) }()
	select {
	case <-a.ready:
	case err := <-done:
		cancel()
		t.Fatalf("app stopped before becoming ready: %v", err)
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatal("app did not become ready")
	}
	return a, cancel, done
}

func waitStopped(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(10 * time.Second):
		t.Fatal("app did not stop")
		return nil
	}
}

func getJSON(t *testing.T, url string, target any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read %s: %v", url, err)
	}
	if target != nil {
		if err := json.Unmarshal(body, target); err != nil {
			t.Fatalf("decode %s: %v (%s)", url, err, body)
		}
	}
	return resp.StatusCode
}

func TestParseFlags(t *testing.T) {
	opts, err := parseFlags(nil, io.Discard)
	if err != nil {
		t.Fatalf("parse defaults: %v", err)
	}
	if opts.headless || opts.autopilot || opts.mode != "" || opts.configPath != "" {
		t.Fatalf("unexpected defaults %+v", opts)
	}

	opts, err = parseFlags([]string{"-headless", "-autopilot", "-mode", "cpu", "-config", "arena.toml"}, io.Discard)
	if err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	if !opts.headless || !opts.autopilot || opts.mode != "cpu" || opts.configPath != "arena.toml" {
		t.Fatalf("unexpected options %+v", opts)
	}

	if _, err := parseFlags([]string{"-mode", "deathmatch"}, io.Discard); !errors.Is(err, match.ErrUnknownMode) {
		t.Fatalf("expected unknown mode error, got %v", err)
	}
}

func TestHeadlessAppServesOpsAndHealth(t *testing.T) {
	a, cancel, done := startApp(t, options{headless: true, autopilot: true, mode: "survival"}, nil)
	defer cancel()
	base := "http://" + a.httpAddr.Load().(string)

	if code := getJSON(t, base+"/livez", nil); code != http.StatusOK {
		t.Fatalf("livez returned %d", code)
	}
	var ready struct {
		Status string `json:"status"`
		Match  string `json:"match"`
	}
	if code := getJSON(t, base+"/readyz", &ready); code != http.StatusOK || ready.Status != "ok" {
		t.Fatalf("readyz returned %d %+v", code, ready)
	}
	var snapshot struct {
		Match match.Context `json:"match"`
	}
	if code := getJSON(t, base+"/api/match", &snapshot); code != http.StatusOK {
		t.Fatalf("api/match returned %d", code)
	}
	if snapshot.Match.Mode != match.ModeSurvival || snapshot.Match.ID == "" {
		t.Fatalf("unexpected snapshot %+v", snapshot.Match)
	}

	conn, err := grpc.NewClient(a.grpcAddr.Load().(string), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial grpc: %v", err)
	}
	defer conn.Close()
	ctx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil || resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("process health: %v %v", resp, err)
	}

	cancel()
	if err := waitStopped(t, done); err != nil {
		t.Fatalf("expected clean shutdown, got %v", err)
	}
}

func TestTerminalQuitStopsApp(t *testing.T) {
	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("init screen: %v", err)
	}
	defer screen.Fini()
	screen.SetSize(80, 24)

	_, cancel, done := startApp(t, options{}, screen)
	defer cancel()
	screen.InjectKey(tcell.KeyEscape, 0, tcell.ModNone)
	if err := waitStopped(t, done); err != nil {
		t.Fatalf("quitting from the menu should stop cleanly, got %v", err)
	}
}

func TestControlDocsFilterByScreen(t *testing.T) {
	mux := http.NewServeMux()
	registerControlDocEndpoints(mux)

	req := httptest.NewRequest(http.MethodGet, "/api/controls?screen=playing", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type: got %q", ct)
	}
	var docs []ControlDoc
	if err := json.Unmarshal(rr.Body.Bytes(), &docs); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		ids = append(ids, doc.ID)
	}
	want := []string{"quit", "attack-p1", "attack-p2"}
	if len(ids) != len(want) {
		t.Fatalf("unexpected docs %v", ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("unexpected order %v, want %v", ids, want)
		}
	}

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/controls", nil))
	docs = nil
	if err := json.Unmarshal(rr.Body.Bytes(), &docs); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if len(docs) != len(defaultControlDocs) {
		t.Fatalf("expected every control, got %d", len(docs))
	}
}

func TestIssueSpectatorToken(t *testing.T) {
	cfg := testConfig()
	if _, err := issueSpectatorToken(cfg, "booth", time.Hour); err == nil {
		t.Fatal("issuing without a secret should fail")
	}
	cfg.SpectatorSecret = "hunter2"
	token, err := issueSpectatorToken(cfg, "booth", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	authenticator, err := spectator.NewTokenAuthenticator("hunter2")
	if err != nil {
		t.Fatalf("authenticator: %v", err)
	}
	claims, err := authenticator.Verifier().Verify(token)
	if err != nil || claims.Subject != "booth" {
		t.Fatalf("issued token should verify, got %+v %v", claims, err)
	}
}
