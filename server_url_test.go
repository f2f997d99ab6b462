package main

import "testing"

func TestListenerURL(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		scheme  string
		address string
		want    string
	}{
		"default_port_only":    {address: ":43127", want: "http://localhost:43127"},
		"explicit_localhost":   {address: "localhost:8000", want: "http://localhost:8000"},
		"explicit_ipv4_any":    {address: "0.0.0.0:9000", want: "http://localhost:9000"},
		"explicit_ipv4_local":  {address: "127.0.0.1:43127", want: "http://127.0.0.1:43127"},
		"explicit_ipv6_any":    {address: "[::]:43127", want: "http://localhost:43127"},
		"explicit_ipv6_custom": {address: "[2001:db8::1]:43127", want: "http://[2001:db8::1]:43127"},
		"websocket_scheme":     {scheme: "ws", address: ":43127", want: "ws://localhost:43127"},
		"grpc_scheme":          {scheme: "grpc", address: ":43128", want: "grpc://localhost:43128"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			got := listenerURL(tc.scheme, tc.address)
			if got != tc.want {
				t.Fatalf("listenerURL(%q, %q) = %q, want %q", tc.scheme, tc.address, got, tc.want)
			}
		})
	}
}

func TestNormaliseHostPortNoPort(t *testing.T) {
	t.Parallel()

	if got := normaliseHostPort(""); got != "localhost" {
		t.Fatalf("expected localhost for empty address, got %q", got)
	}
	if got := normaliseHostPort("arena.local"); got != "arena.local" {
		t.Fatalf("expected bare host to pass through, got %q", got)
	}
}
