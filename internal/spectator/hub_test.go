package spectator

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"stickduel/arena/internal/events"
	"stickduel/arena/internal/logging"
	"stickduel/arena/internal/websockettest"
)

type frame struct {
	Sequence float64        `json:"sequence"`
	Kind     string         `json:"kind"`
	Payload  map[string]any `json:"payload"`
}

type denyLimiter struct{}

func (denyLimiter) Allow() bool { return false }

func newHubServer(t *testing.T, cfg Config) (*Hub, *httptest.Server) {
	t.Helper()
	if cfg.Logger == nil {
		cfg.Logger = logging.NewTestLogger()
	}
	hub := NewHub(cfg)
	mux := http.NewServeMux()
	mux.Handle(Path, hub)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return hub, server
}

func readFrame(t *testing.T, conn *websocket.Conn, compressor Compressor) frame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	messageType, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if compressor == nil {
		if messageType != websocket.TextMessage {
			t.Fatalf("expected text frame, got %d", messageType)
		}
	} else {
		if messageType != websocket.BinaryMessage {
			t.Fatalf("expected binary frame, got %d", messageType)
		}
		if data, err = compressor.Decompress(data); err != nil {
			t.Fatalf("decompress frame: %v", err)
		}
	}
	var decoded frame
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode frame %s: %v", data, err)
	}
	return decoded
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHubRelaysEventsPerCodec(t *testing.T) {
	for _, codec := range []string{"", "snappy", "gzip"} {
		t.Run("codec="+codec, func(t *testing.T) {
			stream := events.NewStream(events.Config{Retain: 16})
			if _, err := stream.Publish(events.KindLifecycle, map[string]any{"status": "playing"}); err != nil {
				t.Fatalf("publish: %v", err)
			}
			if _, err := stream.Publish(events.KindHUD, map[string]any{"remaining": 498.0}); err != nil {
				t.Fatalf("publish: %v", err)
			}
			hub, server := newHubServer(t, Config{Stream: stream})

			path := Path
			if codec != "" {
				path += "?codec=" + codec
			}
			conn, _, err := websockettest.Dial(server.URL, path, nil)
			if err != nil {
				t.Fatalf("dial: %v", err)
			}
			defer conn.Close()

			compressor, _ := CompressorFor(codec)
			first := readFrame(t, conn, compressor)
			second := readFrame(t, conn, compressor)
			if first.Sequence != 1 || first.Kind != "lifecycle" || first.Payload["status"] != "playing" {
				t.Fatalf("unexpected first frame %+v", first)
			}
			if second.Sequence != 2 || second.Kind != "hud" || second.Payload["remaining"] != 498.0 {
				t.Fatalf("unexpected second frame %+v", second)
			}

			//1.- Live events follow the replayed backlog.
			waitFor(t, func() bool { return hub.Clients() == 1 })
			if _, err := stream.Publish(events.KindHUD, map[string]any{"remaining": 497.0}); err != nil {
				t.Fatalf("publish: %v", err)
			}
			if live := readFrame(t, conn, compressor); live.Sequence != 3 {
				t.Fatalf("expected live frame 3, got %+v", live)
			}
			waitFor(t, func() bool { return hub.FramesSent() == 3 })
		})
	}
}

func TestHubResumesNamedSubscriber(t *testing.T) {
	stream := events.NewStream(events.Config{Retain: 16})
	hub, server := newHubServer(t, Config{Stream: stream})
	for i := 0; i < 2; i++ {
		if _, err := stream.Publish(events.KindLifecycle, map[string]any{"round": float64(i + 1)}); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}

	conn, _, err := websockettest.Dial(server.URL, Path+"?subscriber=booth", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	readFrame(t, conn, nil)
	readFrame(t, conn, nil)
	conn.Close()
	waitFor(t, func() bool { return hub.Clients() == 0 })

	if _, err := stream.Publish(events.KindLifecycle, map[string]any{"round": 3.0}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	resumed, _, err := websockettest.Dial(server.URL, Path+"?subscriber=booth", nil)
	if err != nil {
		t.Fatalf("redial: %v", err)
	}
	defer resumed.Close()
	if next := readFrame(t, resumed, nil); next.Sequence != 3 {
		t.Fatalf("resumed subscriber should skip acked frames, got %+v", next)
	}
}

func TestHubRejectsThrottledAndBadCodec(t *testing.T) {
	stream := events.NewStream(events.Config{})
	hub, server := newHubServer(t, Config{Stream: stream, Limiter: denyLimiter{}})
	_, resp, err := websockettest.Dial(server.URL, Path, nil)
	if err == nil || resp == nil || resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %v", err)
	}
	if hub.Rejected() != 1 {
		t.Fatalf("expected one rejection, got %d", hub.Rejected())
	}

	_, open := newHubServer(t, Config{Stream: stream})
	_, resp, err = websockettest.Dial(open.URL, Path+"?codec=lz4", nil)
	if err == nil || resp == nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown codec, got %v", err)
	}
}

func TestHubDropsUnresponsivePeers(t *testing.T) {
	stream := events.NewStream(events.Config{})
	hub, server := newHubServer(t, Config{Stream: stream, PingInterval: 25 * time.Millisecond})

	healthy, _, err := websockettest.Dial(server.URL, Path, nil)
	if err != nil {
		t.Fatalf("dial healthy: %v", err)
	}
	defer healthy.Close()
	go func() {
		for {
			if _, _, err := healthy.NextReader(); err != nil {
				return
			}
		}
	}()

	silent, _, err := websockettest.DialIgnoringPongs(server.URL, Path, nil)
	if err != nil {
		t.Fatalf("dial silent: %v", err)
	}
	defer silent.Close()
	dropped := make(chan error, 1)
	go func() {
		for {
			if _, _, err := silent.NextReader(); err != nil {
				dropped <- err
				return
			}
		}
	}()

	select {
	case <-dropped:
	case <-time.After(2 * time.Second):
		t.Fatalf("silent peer was never dropped")
	}
	waitFor(t, func() bool { return hub.Clients() == 1 })
	time.Sleep(100 * time.Millisecond)
	if hub.Clients() != 1 {
		t.Fatalf("healthy peer should stay connected")
	}
}

func TestHubRequiresTokenWhenConfigured(t *testing.T) {
	authenticator, err := NewTokenAuthenticator("hunter2")
	if err != nil {
		t.Fatalf("authenticator: %v", err)
	}
	stream := events.NewStream(events.Config{Retain: 16})
	hub, server := newHubServer(t, Config{Stream: stream, Authenticator: authenticator})
	if _, err := stream.Publish(events.KindLifecycle, map[string]any{"round": 1.0}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	//1.- No token and a forged token are both refused before the upgrade.
	_, resp, err := websockettest.Dial(server.URL, Path, nil)
	if err == nil || resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a token, got %v", err)
	}
	forger, _ := NewTokenAuthenticator("guess")
	forged, _ := forger.Verifier().Issue("booth", time.Minute)
	_, resp, err = websockettest.Dial(server.URL, Path+"?auth_token="+forged, nil)
	if err == nil || resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a forged token, got %v", err)
	}
	if hub.Unauthorized() != 2 {
		t.Fatalf("expected two denied attempts, got %d", hub.Unauthorized())
	}

	//2.- The token subject names the subscription, overriding ?subscriber=.
	token, err := authenticator.Verifier().Issue("booth", time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	conn, _, err := websockettest.Dial(server.URL, Path+"?subscriber=mallory&auth_token="+token, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	readFrame(t, conn, nil)
	conn.Close()
	waitFor(t, func() bool { return hub.Clients() == 0 })

	if _, err := stream.Publish(events.KindLifecycle, map[string]any{"round": 2.0}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	header := http.Header{}
	header.Set(TokenHeader, token)
	resumed, _, err := websockettest.Dial(server.URL, Path, header)
	if err != nil {
		t.Fatalf("redial: %v", err)
	}
	defer resumed.Close()
	if next := readFrame(t, resumed, nil); next.Sequence != 2 {
		t.Fatalf("token subscriber should resume after its ack, got %+v", next)
	}
}
