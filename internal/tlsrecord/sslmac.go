package tlsrecord

import (
	"crypto/md5"
	"crypto/sha1"
	"hash"
)

// sslPad1Byte, sslPad2Byte are SSL 3.0's MAC padding bytes (RFC 6101 §5.2.3.1).
const (
	sslPad1Byte = 0x36
	sslPad2Byte = 0x5c
)

// sslPadCount returns the number of pad bytes SSL 3.0's MAC uses for a
// given hash: 48 when the digest is MD5-sized, 40 otherwise (the
// original spec's two defined cases are MD5: 48, SHA-1: 40).
func sslPadCount(newHash func() hash.Hash) int {
	h := newHash()
	if h.Size() == md5.Size {
		return 48
	}
	return 40
}

// SSLMAC computes the SSL 3.0 record MAC: a two-pass keyed construction
// predating HMAC,
//
//	hash(secret || pad1 || seq_num(8) || type(1) || length(2) || content)
//	hash(secret || pad2 || inner_hash)
//
// newHash is typically md5.New or sha1.New. TLS 1.0/1.1 do not use this;
// they use ordinary HMAC (crypto.NewTLSMAC).
func SSLMAC(newHash func() hash.Hash, secret []byte, seqNum uint64, contentType ContentType, content []byte) []byte {
	padCount := sslPadCount(newHash)
	pad1 := make([]byte, padCount)
	pad2 := make([]byte, padCount)
	for i := range pad1 {
		pad1[i] = sslPad1Byte
		pad2[i] = sslPad2Byte
	}

	var seq [8]byte
	for i := 7; i >= 0; i-- {
		seq[i] = byte(seqNum)
		seqNum >>= 8
	}
	var length [2]byte
	length[0] = byte(len(content) >> 8)
	length[1] = byte(len(content))

	inner := newHash()
	inner.Write(secret)
	inner.Write(pad1)
	inner.Write(seq[:])
	inner.Write([]byte{byte(contentType)})
	inner.Write(length[:])
	inner.Write(content)
	innerSum := inner.Sum(nil)

	outer := newHash()
	outer.Write(secret)
	outer.Write(pad2)
	outer.Write(innerSum)
	return outer.Sum(nil)
}

// SSLMACMD5, SSLMACSHA1 are the two MAC hashes SSL 3.0 cipher suites use.
var (
	SSLMACMD5  = md5.New
	SSLMACSHA1 = sha1.New
)
