// Package envelope implements the inner hybrid cryptosystem used once a
// peer has a handshake public key: a fresh AES-256 session key encrypts
// the command, and that session key is itself RSA-wrapped for the peer.
package envelope

import (
	"crypto/rsa"
	"encoding/json"
	"fmt"

	"github.com/uplink-tool/uplink/internal/crypto"
)

// Envelope carries an RSA-wrapped session key alongside a command
// encrypted under that same (unwrapped) session key.
type Envelope struct {
	EncryptedSessionKey []byte `json:"encrypted_session_key"`
	EncryptedCommand    []byte `json:"encrypted_command"`
}

// Seal builds an Envelope for commandBytes: sessionKey is RSA-wrapped
// under peerPub, and commandBytes is AES-256-GCM-encrypted directly
// under sessionKey (not re-derived).
func Seal(peerPub *rsa.PublicKey, commandBytes []byte, sessionKey []byte) (*Envelope, error) {
	wrappedKey, err := crypto.WrapSessionKey(peerPub, sessionKey)
	if err != nil {
		return nil, fmt.Errorf("seal envelope: %w", err)
	}

	encryptedCommand, err := crypto.AEADEncrypt(sessionKey, commandBytes)
	if err != nil {
		return nil, fmt.Errorf("seal envelope: %w", err)
	}

	return &Envelope{
		EncryptedSessionKey: wrappedKey,
		EncryptedCommand:    encryptedCommand,
	}, nil
}

// Open unwraps the session key under localPriv and decrypts the command
// under it, returning both so the caller can install the session key.
func Open(localPriv *rsa.PrivateKey, env *Envelope) (sessionKey []byte, commandBytes []byte, err error) {
	sessionKey, err = crypto.UnwrapSessionKey(localPriv, env.EncryptedSessionKey)
	if err != nil {
		return nil, nil, fmt.Errorf("open envelope: %w", err)
	}

	commandBytes, err = crypto.AEADDecrypt(sessionKey, env.EncryptedCommand)
	if err != nil {
		return nil, nil, fmt.Errorf("open envelope: %w", err)
	}
	return sessionKey, commandBytes, nil
}

// Marshal serializes env to the on-wire JSON representation.
func Marshal(env *Envelope) ([]byte, error) {
	return json.Marshal(env)
}

// Unmarshal parses the on-wire JSON representation of an Envelope.
func Unmarshal(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	return &env, nil
}

// LooksLikeEnvelope reports whether data structurally matches an
// Envelope object, used by the receiver to classify inbound frames
// before Command/Response.
func LooksLikeEnvelope(data []byte) bool {
	var probe struct {
		EncryptedSessionKey json.RawMessage `json:"encrypted_session_key"`
		EncryptedCommand    json.RawMessage `json:"encrypted_command"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return false
	}
	return probe.EncryptedSessionKey != nil && probe.EncryptedCommand != nil
}
