package framepipe

import (
	"bytes"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	passphrase := []byte("shared secret")
	payload := []byte(`{"Echo":{"message":"hi"}}`)

	wire, err := Encode(payload, passphrase)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := Decode(wire, passphrase)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(decoded, payload) {
		t.Fatal("round trip mismatch")
	}
}

func TestDecodeWrongPassphraseFails(t *testing.T) {
	wire, err := Encode([]byte("payload"), []byte("passphrase-a"))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := Decode(wire, []byte("passphrase-b")); err == nil {
		t.Fatal("expected decode with wrong passphrase to fail")
	}
}

func TestDecodeBitFlipFails(t *testing.T) {
	passphrase := []byte("shared secret")
	wire, err := Encode([]byte("payload"), passphrase)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	wire[len(wire)-1] ^= 0xFF
	if _, err := Decode(wire, passphrase); err == nil {
		t.Fatal("expected decode of flipped bit to fail")
	}
}
