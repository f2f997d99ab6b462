package websockettest

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
)

// URL rewrites an httptest server URL into its websocket form and appends path.
func URL(serverURL, path string) string {
	switch {
	case strings.HasPrefix(serverURL, "https://"):
		serverURL = "wss://" + strings.TrimPrefix(serverURL, "https://")
	case strings.HasPrefix(serverURL, "http://"):
		serverURL = "ws://" + strings.TrimPrefix(serverURL, "http://")
	}
	return serverURL + path
}

// Dial opens a websocket against an httptest server.
func Dial(serverURL, path string, header http.Header) (*websocket.Conn, *http.Response, error) {
	return websocket.DefaultDialer.Dial(URL(serverURL, path), header)
}

// DialIgnoringPongs establishes a WebSocket connection and disables the
// automatic pong responses so that tests can simulate an unresponsive peer.
func DialIgnoringPongs(serverURL, path string, header http.Header) (*websocket.Conn, *http.Response, error) {
	conn, resp, err := Dial(serverURL, path, header)
	if err != nil {
		return nil, resp, err
	}
	conn.SetPingHandler(func(string) error { return nil })
	conn.SetPongHandler(func(string) error { return nil })
	return conn, resp, nil
}
