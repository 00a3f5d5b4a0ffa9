// Package session holds the mutex-guarded key state shared between a
// peer's sender and receiver goroutines.
package session

import (
	"crypto/rsa"
	"sync"
)

// Snapshot is a consistent, lock-free-to-read copy of State taken
// under a single critical section.
type Snapshot struct {
	PeerPublicKey   *rsa.PublicKey
	LocalPrivateKey *rsa.PrivateKey
	SessionKey      []byte
}

// Ready reports whether both a peer public key and a session key are
// installed, i.e. the peer is ready to send in envelope mode.
func (s Snapshot) Ready() bool {
	return s.PeerPublicKey != nil && s.SessionKey != nil
}

// State is the mutex-guarded key material for one peer connection.
// Every accessor takes the lock internally; callers needing a
// consistent multi-field read should call Snapshot once rather than
// reading fields individually.
type State struct {
	mu sync.Mutex

	peerPublicKey   *rsa.PublicKey
	localPrivateKey *rsa.PrivateKey
	sessionKey      []byte
}

// New returns an empty State.
func New() *State {
	return &State{}
}

// SetLocalPrivateKey installs the local RSA private key generated when
// answering a handshake.
func (s *State) SetLocalPrivateKey(priv *rsa.PrivateKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.localPrivateKey = priv
}

// SetPeerPublicKey installs the peer's RSA public key, learned from a
// Handshake response.
func (s *State) SetPeerPublicKey(pub *rsa.PublicKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.peerPublicKey = pub
}

// SetSessionKey installs the AES session key, either generated locally
// on a Handshake response or recovered from an inbound Envelope.
func (s *State) SetSessionKey(key []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionKey = key
}

// Snapshot takes the lock once and returns a consistent copy of all
// three fields.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		PeerPublicKey:   s.peerPublicKey,
		LocalPrivateKey: s.localPrivateKey,
		SessionKey:      s.sessionKey,
	}
}
