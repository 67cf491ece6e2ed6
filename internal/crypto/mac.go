package crypto

import (
	"crypto/hmac"
	"crypto/sha1"
	"hash"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

// NewMAC creates a new MAC hash for envelope payload authentication.
// If paranoid is true, uses HMAC-SHA3-512; otherwise keyed BLAKE2b-512.
//
// The subkey should be derived from HKDF (32 bytes).
func NewMAC(subkey []byte, paranoid bool) (hash.Hash, error) {
	if paranoid {
		return hmac.New(sha3.New512, subkey), nil
	}

	mac, err := blake2b.New512(subkey)
	if err != nil {
		return nil, NewCryptoError("mac", err)
	}
	return mac, nil
}

// MACSize returns the output size of the envelope MAC (64 bytes for
// both modes).
const MACSize = 64

// NewTLSMAC creates an HMAC-SHA1 context for TLS 1.0/1.1 record MACs.
// SSL 3.0 does not use this: it uses the two-pass proto-HMAC
// construction in package tlsrecord instead.
func NewTLSMAC(macSecret []byte) hash.Hash {
	return hmac.New(sha1.New, macSecret)
}

// TLSMACSize is the output size of the SHA-1 based TLS record MAC.
const TLSMACSize = sha1.Size
