// Package crypto is cryptkit's crypto-service binding (component C of the
// design): it wraps the primitive implementations (block ciphers, hash/MAC,
// key exchange, sign/verify) behind the small interface set the envelope
// engine and the TLS record/handshake layers actually call through. This is
// the only package that names specific algorithms; everything above it
// talks to a Context.
package crypto

import (
	"hash"
)

// BlockCipher is an in-place, block-oriented bulk cipher context. IV/counter
// state lives inside the concrete implementation, not in the caller.
type BlockCipher interface {
	// EncryptInPlace encrypts buf in place. len(buf) must be a multiple of
	// BlockSize for CBC-mode backends; CTR/stream backends accept any length.
	EncryptInPlace(buf []byte) error
	// DecryptInPlace decrypts buf in place, with the same length rule.
	DecryptInPlace(buf []byte) error
	// BlockSize returns the underlying cipher's block size.
	BlockSize() int
}

// HashContext is the hash/MAC context used for handshake hashing, payload
// hashing, and keyed MAC. It is exactly hash.Hash: mac.go and kdf.go already
// treat MAC contexts as hash.Hash, and TLS's running MD5/SHA1 handshake
// digests are ordinary hash.Hash values too.
type HashContext = hash.Hash

// KeyExchanger wraps/unwraps a session key under a public/private keyex
// context. Concrete backends: RSA transport (rsa.go) and ephemeral
// Diffie-Hellman (dh.go). The handshake state machines and the CLI drive
// only RSAKeyex; DHKeyex is called only by this package's tests.
type KeyExchanger interface {
	WrapKey(sessionKey []byte) (wrapped []byte, err error)
	UnwrapKey(wrapped []byte) (sessionKey []byte, err error)
}

// Signer signs and verifies over a pair of running MD5/SHA1 digests (the
// legacy TLS 1.0/1.1 and SSL 3.0 signature shape); there is no
// single-digest form. Format selects which wire encoding the signature
// bytes take (PKCS1v15, raw, etc).
type Signer interface {
	Sign(md5, sha1 hash.Hash, format string) (sig []byte, err error)
	Verify(md5, sha1 hash.Hash, sig []byte, format string) error
}

// Context bundles the crypto-service handles an envelope action or a TLS
// directional state actually needs. Not every field is populated for every
// use: a hash action only needs Hash, an encrypt action only needs Cipher.
type Context struct {
	Cipher BlockCipher
	Hash   HashContext
	Keyex  KeyExchanger
	Sign   Signer
}

// Close releases the context's sensitive state. Cipher keys live inside the
// concrete BlockCipher implementation and are zeroed by its own Close, when
// it implements one; Context itself only resets the Hash chain so stale
// digest state can't leak into a reused context.
func (c *Context) Close() {
	if c == nil {
		return
	}
	if closer, ok := c.Cipher.(interface{ Close() }); ok {
		closer.Close()
	}
	if c.Hash != nil {
		c.Hash.Reset()
	}
	c.Cipher = nil
	c.Hash = nil
	c.Keyex = nil
	c.Sign = nil
}
