// Package keygen derives content-addressed keys for stored payloads.
package keygen

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
)

// KeyLength is the number of hex characters in a key (128 bits).
const KeyLength = 32

// ErrUnserializable is returned for payloads that have no canonical form.
var ErrUnserializable = errors.New("keygen: payload is not serializable")

// Generate returns the key for payload. Identical payload content always
// yields the same key.
func Generate(payload any) (string, error) {
	canon, err := Canonical(payload)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:])[:KeyLength], nil
}

// Canonical returns the byte form that keys are derived from. Text is used
// as-is; anything else is JSON encoded, which sorts map keys.
func Canonical(payload any) ([]byte, error) {
	switch p := payload.(type) {
	case nil:
		return nil, fmt.Errorf("%w: nil payload", ErrUnserializable)
	case string:
		return []byte(p), nil
	case []byte:
		return p, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnserializable, err)
	}
	return b, nil
}

// Valid reports whether key has the shape produced by Generate.
func Valid(key string) bool {
	if len(key) != KeyLength {
		return false
	}
	for i := 0; i < len(key); i++ {
		c := key[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
