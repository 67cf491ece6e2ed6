// Package secret combines a password and optional pre-shared key (PSK)
// material into the single secret an envelope's conventional key
// exchange, or a TLS PSK cipher suite, derives its key from.
package secret

import (
	"crypto/subtle"

	"golang.org/x/crypto/sha3"
)

// Combined is a derived combination secret. Call Close to zero it once
// the caller has fed it through a KDF.
type Combined struct {
	Key    []byte // 32 bytes
	closed bool
}

// Close securely zeros the combined secret's key material.
func (c *Combined) Close() {
	if c == nil || c.closed {
		return
	}
	zero(c.Key)
	c.closed = true
}

func zero(b []byte) {
	if len(b) == 0 {
		return
	}
	z := make([]byte, len(b))
	subtle.ConstantTimeCopy(1, b, z)
}

// FromPassword derives a combination secret from a password alone,
// SHA3-256(password) — the 32-byte input an envelope's Argon2id KDF or
// a TLS PSK identity hint consumes.
func FromPassword(password []byte) *Combined {
	h := sha3.Sum256(password)
	return &Combined{Key: h[:]}
}

// CombinePSK mixes a password-derived secret with PSK material the way
// a keyfile is mixed with a password in this repo's key-combination
// scheme: ordered mixing hashes them in sequence (order affects the
// result), unordered XORs their independent digests (order does not).
func CombinePSK(password, psk []byte, ordered bool) *Combined {
	ph := sha3.Sum256(password)
	if len(psk) == 0 {
		return &Combined{Key: ph[:]}
	}

	if ordered {
		h := sha3.New256()
		h.Write(ph[:])
		h.Write(psk)
		sum := h.Sum(nil)
		return &Combined{Key: sum}
	}

	kh := sha3.Sum256(psk)
	out := make([]byte, 32)
	for i := range out {
		out[i] = ph[i] ^ kh[i]
	}
	return &Combined{Key: out}
}
