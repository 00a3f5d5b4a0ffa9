package compression

import (
	"bytes"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	cases := [][]byte{
		[]byte(""),
		[]byte("hello"),
		bytes.Repeat([]byte("uplink"), 1000),
	}
	for _, data := range cases {
		compressed, err := Compress(data)
		if err != nil {
			t.Fatalf("compress: %v", err)
		}
		decompressed, err := Decompress(compressed)
		if err != nil {
			t.Fatalf("decompress: %v", err)
		}
		if !bytes.Equal(decompressed, data) {
			t.Fatalf("round trip mismatch: got %d bytes, want %d", len(decompressed), len(data))
		}
	}
}

func TestDecompressRejectsGarbage(t *testing.T) {
	if _, err := Decompress([]byte("not gzip data")); err == nil {
		t.Fatal("expected error decompressing non-gzip data")
	}
}
