// Package framepipe implements the outer wire framing shared by every
// message Uplink sends: gzip compression followed by AES-256-GCM under
// a key deterministically derived from the shared passphrase.
package framepipe

import (
	"fmt"

	"github.com/uplink-tool/uplink/internal/compression"
	"github.com/uplink-tool/uplink/internal/crypto"
)

// Encode compresses payload and AEAD-encrypts it under the passphrase key.
func Encode(payload []byte, passphrase []byte) ([]byte, error) {
	compressed, err := compression.Compress(payload)
	if err != nil {
		return nil, fmt.Errorf("framepipe encode: %w", err)
	}

	key, err := crypto.DerivePassphraseKey(passphrase)
	if err != nil {
		return nil, fmt.Errorf("framepipe encode: %w", err)
	}

	wire, err := crypto.AEADEncrypt(key[:], compressed)
	if err != nil {
		return nil, fmt.Errorf("framepipe encode: %w", err)
	}
	return wire, nil
}

// Decode is the inverse of Encode.
func Decode(wire []byte, passphrase []byte) ([]byte, error) {
	key, err := crypto.DerivePassphraseKey(passphrase)
	if err != nil {
		return nil, fmt.Errorf("framepipe decode: %w", err)
	}

	compressed, err := crypto.AEADDecrypt(key[:], wire)
	if err != nil {
		return nil, fmt.Errorf("framepipe decode: %w", err)
	}

	payload, err := compression.Decompress(compressed)
	if err != nil {
		return nil, fmt.Errorf("framepipe decode: %w", err)
	}
	return payload, nil
}
