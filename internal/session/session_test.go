package session

import (
	"testing"

	"github.com/uplink-tool/uplink/internal/crypto"
)

func TestNotReadyInitially(t *testing.T) {
	s := New()
	if s.Snapshot().Ready() {
		t.Fatal("fresh state should not be ready")
	}
}

func TestReadyOncePeerAndSessionKeySet(t *testing.T) {
	s := New()
	priv, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	sessionKey, _ := crypto.GenerateSessionKey()

	s.SetPeerPublicKey(&priv.PublicKey)
	if s.Snapshot().Ready() {
		t.Fatal("should not be ready with only a peer key")
	}

	s.SetSessionKey(sessionKey)
	if !s.Snapshot().Ready() {
		t.Fatal("should be ready once both peer key and session key are set")
	}
}

func TestSnapshotIsConsistentCopy(t *testing.T) {
	s := New()
	priv, _ := crypto.GenerateKeyPair()
	s.SetLocalPrivateKey(priv)

	snap := s.Snapshot()
	if snap.LocalPrivateKey != priv {
		t.Fatal("expected snapshot to carry the installed private key")
	}
}
