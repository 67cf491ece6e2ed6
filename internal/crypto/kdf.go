// Package crypto provides cryptographic primitives for cryptkit's
// envelope engine and TLS stack. This is AUDIT-CRITICAL code - changes
// here directly affect interoperability with existing encoded data.
package crypto

import (
	"bytes"
	"crypto/rand"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/sha3"
)

// RandomBytes generates n cryptographically secure random bytes, used
// for TLS client/server randoms, DH/RSA blinding, nonces and IVs, and
// the envelope's per-volume salts.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, NewCryptoError("rand", err)
	}

	// Sanity check: bytes should not be all zeros - a cheap canary for
	// a broken or stubbed-out rand source.
	if n > 0 && bytes.Equal(b, make([]byte, n)) {
		return nil, NewCryptoError("rand", ErrRandFailure)
	}

	return b, nil
}

// Argon2 parameters for the envelope's password-based conventional
// encryption key.
const (
	Argon2NormalPasses  = 4
	Argon2NormalMemory  = 1 << 17 // 128 MiB
	Argon2NormalThreads = 4

	Argon2ParanoidPasses  = 8
	Argon2ParanoidMemory  = 1 << 18 // 256 MiB
	Argon2ParanoidThreads = 8

	Argon2KeySize = 32
)

// DeriveKey derives a symmetric key from a password and salt using
// Argon2id, for an envelope's password resource (algorithm, mode,
// salt/IV and iteration count all travel with the encryption
// parameters attribute). If paranoid is true, uses stronger parameters.
//
// CRITICAL: parameters MUST NOT change, or existing envelopes that
// used the previous parameters can no longer be decrypted.
func DeriveKey(password, salt []byte, paranoid bool) ([]byte, error) {
	var key []byte

	if paranoid {
		key = argon2.IDKey(password, salt, Argon2ParanoidPasses, Argon2ParanoidMemory, Argon2ParanoidThreads, Argon2KeySize)
	} else {
		key = argon2.IDKey(password, salt, Argon2NormalPasses, Argon2NormalMemory, Argon2NormalThreads, Argon2KeySize)
	}

	if bytes.Equal(key, make([]byte, Argon2KeySize)) {
		return nil, NewCryptoError("argon2", ErrRandFailure)
	}

	return key, nil
}

// NewHKDFStream creates an HKDF-SHA3-256 stream for deriving an
// envelope's subkeys (bulk cipher key, MAC subkey) from a password- or
// conventional-keyex-derived master key plus a per-envelope salt.
func NewHKDFStream(key, salt []byte) io.Reader {
	return hkdf.New(sha3.New256, key, salt, nil)
}

// SubkeyReader sequentially reads fixed-size subkeys from an HKDF
// stream, tracking which subkeys have been consumed: a caller who asks
// for the same subkey twice gets an error rather than silently
// re-deriving key material from a stream position it no longer owns.
type SubkeyReader struct {
	stream io.Reader
	read   map[string]bool
}

// NewSubkeyReader wraps an HKDF stream for ordered subkey extraction.
func NewSubkeyReader(stream io.Reader) *SubkeyReader {
	return &SubkeyReader{stream: stream, read: make(map[string]bool)}
}

// Subkey reads size bytes tagged name from the stream. Reading the same
// name twice is an error: subkeys are single-use by construction.
func (r *SubkeyReader) Subkey(name string, size int) ([]byte, error) {
	if r.read[name] {
		return nil, NewCryptoError("hkdf", errAlreadyConsumed(name))
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(r.stream, buf); err != nil {
		return nil, NewCryptoError("hkdf", err)
	}
	r.read[name] = true
	return buf, nil
}

type errAlreadyConsumed string

func (e errAlreadyConsumed) Error() string {
	return "subkey " + string(e) + " already consumed"
}
