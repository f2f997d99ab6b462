package spectator

import (
	"bytes"
	"errors"
	"testing"
)

func TestCompressorsRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte(`{"sequence":"1","kind":"hud"}`), 20)
	for _, name := range []string{"snappy", "gzip"} {
		compressor, err := CompressorFor(name)
		if err != nil || compressor == nil {
			t.Fatalf("resolve %s: %v", name, err)
		}
		if compressor.Name() != name {
			t.Fatalf("unexpected codec name %q", compressor.Name())
		}
		compressed, err := compressor.Compress(payload)
		if err != nil {
			t.Fatalf("%s compress: %v", name, err)
		}
		if len(compressed) >= len(payload) {
			t.Fatalf("%s should shrink a repetitive payload", name)
		}
		decompressed, err := compressor.Decompress(compressed)
		if err != nil {
			t.Fatalf("%s decompress: %v", name, err)
		}
		if !bytes.Equal(decompressed, payload) {
			t.Fatalf("%s round trip mismatch", name)
		}
		if _, err := compressor.Decompress(nil); err == nil {
			t.Fatalf("%s: expected error for empty payload", name)
		}
	}
}

func TestCompressorForTextAndUnknown(t *testing.T) {
	for _, name := range []string{"", "json", " TEXT "} {
		compressor, err := CompressorFor(name)
		if err != nil || compressor != nil {
			t.Fatalf("%q should select plain text frames, got %v %v", name, compressor, err)
		}
	}
	if _, err := CompressorFor("zstd"); !errors.Is(err, ErrUnknownCodec) {
		t.Fatalf("expected ErrUnknownCodec, got %v", err)
	}
}
