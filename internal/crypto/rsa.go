package crypto

import (
	"crypto"
	"crypto/hmac"
	"crypto/md5"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"hash"
)

// RSAKeyex implements KeyExchanger using RSA PKCS#1 v1.5 encryption:
// the public-key key-exchange action kind, and TLS's RSA
// client-key-exchange.
type RSAKeyex struct {
	Public  *rsa.PublicKey
	Private *rsa.PrivateKey
}

// WrapKey encrypts sessionKey under the public key (encode side / TLS
// client wrapping the premaster under the server's certificate key).
func (k *RSAKeyex) WrapKey(sessionKey []byte) ([]byte, error) {
	if k.Public == nil {
		return nil, NewCryptoError("keyex", ErrNoPublicKey)
	}
	wrapped, err := rsa.EncryptPKCS1v15(rand.Reader, k.Public, sessionKey)
	if err != nil {
		return nil, NewCryptoError("keyex", err)
	}
	return wrapped, nil
}

// UnwrapKey decrypts wrapped under the private key (decode side / TLS
// server recovering the premaster secret).
//
// TLS servers MUST NOT reveal whether PKCS#1 v1.5 unpadding failed
// (Bleichenbacher's attack): callers that need constant-time failure
// handling should use UnwrapKeyConstantTime instead.
func (k *RSAKeyex) UnwrapKey(wrapped []byte) ([]byte, error) {
	if k.Private == nil {
		return nil, NewCryptoError("keyex", ErrNoPrivateKey)
	}
	key, err := rsa.DecryptPKCS1v15(rand.Reader, k.Private, wrapped)
	if err != nil {
		return nil, NewCryptoError("keyex", err)
	}
	return key, nil
}

// UnwrapKeyConstantTime decrypts wrapped exactly like UnwrapKey but
// never returns an error: on any padding or length failure it returns
// a pseudo-random key of the requested length instead, so the caller
// proceeds identically down either path and the mismatch only
// surfaces later as a Finished-message verification failure. This is
// the standard countermeasure for RSA PKCS#1 v1.5 client-key-exchange.
func (k *RSAKeyex) UnwrapKeyConstantTime(wrapped []byte, expectedLen int) []byte {
	key := make([]byte, expectedLen)
	if _, err := rand.Read(key); err != nil {
		// Falls back to a zero key; the handshake will fail Finished
		// verification exactly as it would for a bad premaster.
	}
	rsa.DecryptPKCS1v15SessionKey(rand.Reader, k.Private, wrapped, key)
	return key
}

// RSASigner implements Signer using RSA PKCS#1 v1.5 over a combined
// MD5+SHA1 digest, the legacy TLS 1.0/1.1 and SSL 3.0 signature shape.
// No handshake path calls it: Finished verify_data comes from
// VerifyData/SSL3VerifyData (package handshake), which sign nothing.
type RSASigner struct {
	Public  *rsa.PublicKey
	Private *rsa.PrivateKey
}

// md5sha1Sum concatenates the MD5 and SHA-1 sums of the two running
// digests, matching the legacy PKCS#1 "MD5SHA1" pseudo-hash OID Go's
// crypto/rsa still recognizes for raw signing.
func md5sha1Sum(md5ctx, sha1ctx hash.Hash) []byte {
	sum := make([]byte, 0, md5.Size+sha1.Size)
	sum = append(sum, md5ctx.Sum(nil)...)
	sum = append(sum, sha1ctx.Sum(nil)...)
	return sum
}

// Sign signs the handshake hash state. format is accepted for interface
// symmetry with CMS/PGP signing (which vary padding/format); TLS
// legacy signing is always raw PKCS#1 v1.5 over MD5SHA1.
func (s *RSASigner) Sign(md5ctx, sha1ctx hash.Hash, format string) ([]byte, error) {
	if s.Private == nil {
		return nil, NewCryptoError("sign", ErrNoPrivateKey)
	}
	digest := md5sha1Sum(md5ctx, sha1ctx)
	sig, err := rsa.SignPKCS1v15(rand.Reader, s.Private, crypto.MD5SHA1, digest)
	if err != nil {
		return nil, NewCryptoError("sign", err)
	}
	return sig, nil
}

// Verify checks sig against the handshake hash state.
func (s *RSASigner) Verify(md5ctx, sha1ctx hash.Hash, sig []byte, format string) error {
	if s.Public == nil {
		return NewCryptoError("verify", ErrNoPublicKey)
	}
	digest := md5sha1Sum(md5ctx, sha1ctx)
	if err := rsa.VerifyPKCS1v15(s.Public, crypto.MD5SHA1, digest, sig); err != nil {
		return NewCryptoError("verify", err)
	}
	return nil
}

// NewHMAC is a small convenience used by the SSLv3 proto-HMAC and by
// the PRF's P_hash construction (package handshake): it is exactly
// crypto/hmac, re-exported so callers only import this package's
// crypto-binding surface rather than stdlib crypto directly.
func NewHMAC(h func() hash.Hash, key []byte) hash.Hash {
	return hmac.New(h, key)
}
