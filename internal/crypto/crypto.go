// Package crypto provides the cryptographic primitives behind Uplink's
// two-layer messaging pipeline: a deterministic passphrase key used for
// the outer frame, and an RSA-2048/AES-256-GCM hybrid cryptosystem used
// for the inner per-session envelope.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	// KeySize is the size of a derived passphrase key or a session key, in bytes.
	KeySize = 32

	// NonceSize is the size of an AES-GCM nonce in bytes.
	NonceSize = 12

	// RSAKeyBits is the modulus size used for handshake keypairs.
	RSAKeyBits = 2048

	pemPublicKeyType = "RSA PUBLIC KEY"
)

// ErrDecryptionFailed is returned when AEAD authentication fails, the
// ciphertext is truncated, or otherwise cannot be opened.
var ErrDecryptionFailed = errors.New("crypto: decryption failed")

// DerivePassphraseKey derives a fixed 32-byte key from an arbitrary-length
// passphrase using HKDF-SHA256 with an empty salt and empty info, so that
// every peer sharing the same passphrase derives the same key.
func DerivePassphraseKey(passphrase []byte) ([KeySize]byte, error) {
	var key [KeySize]byte
	reader := hkdf.New(sha256.New, passphrase, nil, nil)
	if _, err := io.ReadFull(reader, key[:]); err != nil {
		return key, fmt.Errorf("derive passphrase key: %w", err)
	}
	return key, nil
}

// GenerateSessionKey returns a fresh random 32-byte AES-256 key.
func GenerateSessionKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("generate session key: %w", err)
	}
	return key, nil
}

// GenerateNonce returns a fresh random 12-byte AES-GCM nonce.
func GenerateNonce() ([NonceSize]byte, error) {
	var nonce [NonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nonce, fmt.Errorf("generate nonce: %w", err)
	}
	return nonce, nil
}

// AEADEncrypt encrypts plaintext under key using AES-256-GCM, prepending
// the randomly generated nonce to the returned ciphertext.
func AEADEncrypt(key []byte, plaintext []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce, err := GenerateNonce()
	if err != nil {
		return nil, err
	}

	out := make([]byte, NonceSize, NonceSize+len(plaintext)+gcm.Overhead())
	copy(out, nonce[:])
	return gcm.Seal(out, nonce[:], plaintext, nil), nil
}

// AEADDecrypt decrypts a blob produced by AEADEncrypt: the first NonceSize
// bytes are the nonce, the remainder is the AES-256-GCM ciphertext+tag.
func AEADDecrypt(key []byte, blob []byte) ([]byte, error) {
	if len(blob) < NonceSize {
		return nil, ErrDecryptionFailed
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce, ciphertext := blob[:NonceSize], blob[NonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new GCM: %w", err)
	}
	return gcm, nil
}

// GenerateKeyPair generates a fresh RSA-2048 keypair for a handshake.
func GenerateKeyPair() (*rsa.PrivateKey, error) {
	priv, err := rsa.GenerateKey(rand.Reader, RSAKeyBits)
	if err != nil {
		return nil, fmt.Errorf("generate RSA keypair: %w", err)
	}
	return priv, nil
}

// EncodePublicKeyPEM PEM-encodes a public key as a PKCS#1 RSA PUBLIC KEY block.
func EncodePublicKeyPEM(pub *rsa.PublicKey) []byte {
	der := x509.MarshalPKCS1PublicKey(pub)
	block := &pem.Block{Type: pemPublicKeyType, Bytes: der}
	return pem.EncodeToMemory(block)
}

// DecodePublicKeyPEM parses a PKCS#1 RSA PUBLIC KEY PEM block.
func DecodePublicKeyPEM(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("crypto: no PEM block found")
	}
	pub, err := x509.ParsePKCS1PublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	return pub, nil
}

// WrapSessionKey RSA-encrypts a session key under a peer's public key using
// PKCS#1 v1.5, matching the scheme required for interop with the handshake.
func WrapSessionKey(pub *rsa.PublicKey, sessionKey []byte) ([]byte, error) {
	wrapped, err := rsa.EncryptPKCS1v15(rand.Reader, pub, sessionKey)
	if err != nil {
		return nil, fmt.Errorf("wrap session key: %w", err)
	}
	return wrapped, nil
}

// UnwrapSessionKey RSA-decrypts a session key wrapped by WrapSessionKey.
func UnwrapSessionKey(priv *rsa.PrivateKey, wrapped []byte) ([]byte, error) {
	sessionKey, err := rsa.DecryptPKCS1v15(rand.Reader, priv, wrapped)
	if err != nil {
		return nil, fmt.Errorf("unwrap session key: %w", err)
	}
	return sessionKey, nil
}

// ZeroBytes zeroes a byte slice in place so key material does not linger.
func ZeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
