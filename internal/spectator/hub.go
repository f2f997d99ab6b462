package spectator

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"stickduel/arena/internal/events"
	"stickduel/arena/internal/logging"
)

const (
	// Path is where the hub is mounted.
	Path = "/ws/spectate"

	defaultBuffer       = 64
	defaultPingInterval = 30 * time.Second
	writeWait           = 10 * time.Second
	maxInboundBytes     = 512
)

// Limiter throttles connection attempts.
type Limiter interface {
	Allow() bool
}

// Config wires the hub to the event stream.
type Config struct {
	Stream *events.Stream
	// Limiter gates upgrades; nil admits everyone.
	Limiter      Limiter
	Buffer       int
	PingInterval time.Duration
	Logger       *logging.Logger
	// Authenticator, when set, is required to admit a spectator and names its subscription.
	Authenticator Authenticator
	// AllowOrigin decides cross-origin upgrades; nil accepts every origin.
	AllowOrigin func(r *http.Request) bool
}

// Hub upgrades spectators to websockets and relays the match event stream to them.
// Spectators are read-only: anything they send is discarded.
type Hub struct {
	stream       *events.Stream
	limiter      Limiter
	buffer       int
	pingInterval time.Duration
	logger       *logging.Logger
	auth         Authenticator
	upgrader     websocket.Upgrader

	clients  atomic.Int64
	frames   atomic.Uint64
	rejected atomic.Uint64
	denied   atomic.Uint64
}

// NewHub constructs a hub from the supplied configuration.
func NewHub(cfg Config) *Hub {
	h := &Hub{
		stream:       cfg.Stream,
		limiter:      cfg.Limiter,
		buffer:       cfg.Buffer,
		pingInterval: cfg.PingInterval,
		logger:       cfg.Logger,
		auth:         cfg.Authenticator,
	}
	if h.buffer <= 0 {
		h.buffer = defaultBuffer
	}
	if h.pingInterval <= 0 {
		h.pingInterval = defaultPingInterval
	}
	if h.logger == nil {
		h.logger = logging.L()
	}
	checkOrigin := cfg.AllowOrigin
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	h.upgrader = websocket.Upgrader{CheckOrigin: checkOrigin}
	return h
}

// Clients reports the number of connected spectators.
func (h *Hub) Clients() int {
	if h == nil {
		return 0
	}
	return int(h.clients.Load())
}

// FramesSent reports how many frames were written to spectators.
func (h *Hub) FramesSent() uint64 {
	if h == nil {
		return 0
	}
	return h.frames.Load()
}

// Rejected reports how many connection attempts the limiter refused.
func (h *Hub) Rejected() uint64 {
	if h == nil {
		return 0
	}
	return h.rejected.Load()
}

// Unauthorized reports how many connection attempts failed authentication.
func (h *Hub) Unauthorized() uint64 {
	if h == nil {
		return 0
	}
	return h.denied.Load()
}

// ServeHTTP upgrades the request and streams envelopes until either side hangs up.
// A ?subscriber= id resumes a previous session, replaying whatever it never acked. With an
// authenticator configured the token subject is the subscriber id instead.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.stream == nil {
		http.Error(w, "spectating unavailable", http.StatusServiceUnavailable)
		return
	}
	reqLogger := h.logger.With(logging.String("remote_addr", r.RemoteAddr))
	//1.- Throttle and validate before paying for the upgrade.
	if h.limiter != nil && !h.limiter.Allow() {
		h.rejected.Add(1)
		reqLogger.Warn("spectator rejected: rate limit exceeded")
		http.Error(w, "too many requests", http.StatusTooManyRequests)
		return
	}
	query := r.URL.Query()
	compressor, err := CompressorFor(query.Get("codec"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	subscriberID := strings.TrimSpace(query.Get("subscriber"))
	if h.auth != nil {
		subscriberID, err = h.auth.Authenticate(r)
		if err != nil {
			h.denied.Add(1)
			reqLogger.Warn("spectator rejected: authentication failed", logging.Error(err))
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
	}
	resumable := subscriberID != ""
	if !resumable {
		subscriberID = "spectator-" + uuid.NewString()
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		reqLogger.Warn("spectator upgrade failed", logging.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	sub, err := h.stream.Subscribe(ctx, subscriberID, h.buffer)
	if err != nil {
		reqLogger.Error("spectator subscribe failed", logging.Error(err))
		return
	}
	defer func() {
		sub.Close()
		if !resumable {
			h.stream.Forget(subscriberID)
		}
	}()

	h.clients.Add(1)
	defer h.clients.Add(-1)
	codec := "json"
	if compressor != nil {
		codec = compressor.Name()
	}
	reqLogger = reqLogger.With(logging.String("subscriber_id", subscriberID), logging.String("codec", codec))
	reqLogger.Info("spectator connected")

	//2.- Drain inbound frames so control messages are processed; any read error ends the session.
	go h.discardInbound(conn, cancel)

	err = h.pump(ctx, conn, sub, compressor)
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		reqLogger.Info("spectator disconnected")
	default:
		reqLogger.Warn("spectator stream aborted", logging.Error(err))
	}
}

func (h *Hub) discardInbound(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	//1.- Peers that stop answering pings are dropped once the pong window lapses.
	pongWait := 2 * h.pingInterval
	conn.SetReadLimit(maxInboundBytes)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}

func (h *Hub) pump(ctx context.Context, conn *websocket.Conn, sub *events.Subscription, compressor Compressor) error {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return ctx.Err()
		case <-sub.Done():
			//1.- A newer connection claimed this subscriber id.
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "superseded"), time.Now().Add(writeWait))
			return nil
		case envelope := <-sub.Events():
			if err := h.write(conn, envelope, compressor); err != nil {
				return err
			}
			//2.- Only acknowledge what actually reached the socket.
			if err := sub.Ack(envelope.Sequence); err != nil {
				h.logger.Debug("spectator ack skipped", logging.Uint64("sequence", envelope.Sequence), logging.Error(err))
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return err
			}
		}
	}
}

func (h *Hub) write(conn *websocket.Conn, envelope *events.Envelope, compressor Compressor) error {
	payload, err := envelope.MarshalJSON()
	if err != nil {
		return err
	}
	messageType := websocket.TextMessage
	if compressor != nil {
		if payload, err = compressor.Compress(payload); err != nil {
			return err
		}
		messageType = websocket.BinaryMessage
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(messageType, payload); err != nil {
		return err
	}
	h.frames.Add(1)
	return nil
}
