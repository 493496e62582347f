package proto

import (
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// Sign computes a keyed BLAKE2b MAC over the payload, hex encoded. The key
// belongs to the authority; observers only verify.
func Sign(key, payload []byte) (string, error) {
	mac, err := blake2b.New256(key)
	if err != nil {
		return "", fmt.Errorf("proto: init mac: %w", err)
	}
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Verify recomputes the MAC and compares in constant time.
func Verify(key, payload []byte, sig string) bool {
	expected, err := Sign(key, payload)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(sig)) == 1
}
