package crypto

import (
	"bytes"
	"testing"
)

func TestDerivePassphraseKeyDeterministic(t *testing.T) {
	k1, err := DerivePassphraseKey([]byte("correct horse battery staple"))
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	k2, err := DerivePassphraseKey([]byte("correct horse battery staple"))
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if k1 != k2 {
		t.Fatal("expected identical passphrase to derive identical key")
	}

	k3, err := DerivePassphraseKey([]byte("different passphrase"))
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if k1 == k3 {
		t.Fatal("expected different passphrases to derive different keys")
	}
}

func TestAEADRoundTrip(t *testing.T) {
	key, err := GenerateSessionKey()
	if err != nil {
		t.Fatalf("generate session key: %v", err)
	}

	plaintext := []byte("the quick brown fox jumps over the lazy dog")
	ciphertext, err := AEADEncrypt(key, plaintext)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if bytes.Contains(ciphertext, plaintext) {
		t.Fatal("ciphertext must not contain the plaintext")
	}

	decrypted, err := AEADDecrypt(key, ciphertext)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if !bytes.Equal(decrypted, plaintext) {
		t.Fatal("round-tripped plaintext mismatch")
	}
}

func TestAEADDecryptRejectsTampering(t *testing.T) {
	key, _ := GenerateSessionKey()
	ciphertext, err := AEADEncrypt(key, []byte("hello"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	tampered := append([]byte(nil), ciphertext...)
	tampered[len(tampered)-1] ^= 0xFF

	if _, err := AEADDecrypt(key, tampered); err != ErrDecryptionFailed {
		t.Fatalf("expected ErrDecryptionFailed, got %v", err)
	}
}

func TestAEADDecryptRejectsTruncated(t *testing.T) {
	key, _ := GenerateSessionKey()
	if _, err := AEADDecrypt(key, []byte{1, 2, 3}); err != ErrDecryptionFailed {
		t.Fatalf("expected ErrDecryptionFailed for truncated input, got %v", err)
	}
}

func TestAEADNoncesAreUnique(t *testing.T) {
	key, _ := GenerateSessionKey()
	seen := make(map[string]bool)
	for i := 0; i < 64; i++ {
		ciphertext, err := AEADEncrypt(key, []byte("payload"))
		if err != nil {
			t.Fatalf("encrypt: %v", err)
		}
		nonce := string(ciphertext[:NonceSize])
		if seen[nonce] {
			t.Fatal("nonce reuse detected")
		}
		seen[nonce] = true
	}
}

func TestRSAWrapRoundTrip(t *testing.T) {
	priv, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}

	sessionKey, err := GenerateSessionKey()
	if err != nil {
		t.Fatalf("generate session key: %v", err)
	}

	wrapped, err := WrapSessionKey(&priv.PublicKey, sessionKey)
	if err != nil {
		t.Fatalf("wrap: %v", err)
	}

	unwrapped, err := UnwrapSessionKey(priv, wrapped)
	if err != nil {
		t.Fatalf("unwrap: %v", err)
	}
	if !bytes.Equal(sessionKey, unwrapped) {
		t.Fatal("unwrapped session key mismatch")
	}
}

func TestPublicKeyPEMRoundTrip(t *testing.T) {
	priv, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}

	encoded := EncodePublicKeyPEM(&priv.PublicKey)
	decoded, err := DecodePublicKeyPEM(encoded)
	if err != nil {
		t.Fatalf("decode PEM: %v", err)
	}
	if decoded.N.Cmp(priv.PublicKey.N) != 0 {
		t.Fatal("decoded modulus mismatch")
	}
}

func TestZeroBytes(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	ZeroBytes(data)
	for i, b := range data {
		if b != 0 {
			t.Errorf("byte %d = %d, want 0", i, b)
		}
	}
}
