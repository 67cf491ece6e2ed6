package handshake

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha1"
	"hash"
)

// pHash implements TLS's P_hash(secret, seed) expansion function:
// HMAC_hash(secret, A(1) || seed) || HMAC_hash(secret, A(2) || seed) || ...
// where A(0) = seed and A(i) = HMAC_hash(secret, A(i-1)), producing as
// many bytes as needed and truncating the final block.
func pHash(newHash func() hash.Hash, secret, seed []byte, length int) []byte {
	out := make([]byte, 0, length)
	a := seed
	for len(out) < length {
		mac := hmac.New(newHash, secret)
		mac.Write(a)
		a = mac.Sum(nil)

		mac = hmac.New(newHash, secret)
		mac.Write(a)
		mac.Write(seed)
		out = append(out, mac.Sum(nil)...)
	}
	return out[:length]
}

// splitSecret halves secret for the TLS 1.0/1.1 PRF, which combines
// two independently keyed expansions (MD5 and SHA-1) so a break in
// either hash alone doesn't break the output. Per RFC 2246 §5, if the
// length is odd the two halves share their middle byte.
func splitSecret(secret []byte) (s1, s2 []byte) {
	half := (len(secret) + 1) / 2
	s1 = secret[:half]
	s2 = secret[len(secret)-half:]
	return s1, s2
}

// PRF computes the TLS 1.0/1.1 pseudo-random function:
// P_MD5(S1, label+seed) XOR P_SHA1(S2, label+seed).
func PRF(secret []byte, label string, seed []byte, length int) []byte {
	s1, s2 := splitSecret(secret)
	labelSeed := append([]byte(label), seed...)

	md5Out := pHash(md5.New, s1, labelSeed, length)
	sha1Out := pHash(sha1.New, s2, labelSeed, length)

	out := make([]byte, length)
	for i := range out {
		out[i] = md5Out[i] ^ sha1Out[i]
	}
	return out
}

// MasterSecret derives the 48-byte TLS 1.0/1.1 master secret from the
// premaster secret and the hello randoms.
func MasterSecret(preMasterSecret, clientRandom, serverRandom []byte) []byte {
	seed := append(append([]byte{}, clientRandom...), serverRandom...)
	return PRF(preMasterSecret, "master secret", seed, 48)
}

// KeyBlock derives the TLS 1.0/1.1 key-expansion block: the
// concatenated MAC secrets, bulk-cipher keys, and (for block ciphers
// with implicit IVs, i.e. TLS 1.0) initial IVs for both directions.
func KeyBlock(masterSecret, serverRandom, clientRandom []byte, length int) []byte {
	seed := append(append([]byte{}, serverRandom...), clientRandom...)
	return PRF(masterSecret, "key expansion", seed, length)
}

// sslHashPass is SSL 3.0's master-secret/key-block construction: a
// single hash round producing MD5(secret || SHA1(label || secret ||
// seed)), repeated with labels "A", "BB", "CCC", ... until enough
// output bytes are produced.
func sslHashPass(secret, seed []byte, length int) []byte {
	out := make([]byte, 0, length)
	for round := 1; len(out) < length; round++ {
		label := make([]byte, round)
		for i := range label {
			label[i] = byte('A' + round - 1)
		}

		inner := sha1.New()
		inner.Write(label)
		inner.Write(secret)
		inner.Write(seed)
		innerSum := inner.Sum(nil)

		outer := md5.New()
		outer.Write(secret)
		outer.Write(innerSum)
		out = append(out, outer.Sum(nil)...)
	}
	return out[:length]
}

// SSL3MasterSecret derives SSL 3.0's 48-byte master secret.
func SSL3MasterSecret(preMasterSecret, clientRandom, serverRandom []byte) []byte {
	seed := append(append([]byte{}, clientRandom...), serverRandom...)
	return sslHashPass(preMasterSecret, seed, 48)
}

// SSL3KeyBlock derives SSL 3.0's key-expansion block using the same
// hash-pass construction as the master secret, but with the random
// order reversed (server || client) per RFC 6101 §6.2.2.
func SSL3KeyBlock(masterSecret, serverRandom, clientRandom []byte, length int) []byte {
	seed := append(append([]byte{}, serverRandom...), clientRandom...)
	return sslHashPass(masterSecret, seed, length)
}
