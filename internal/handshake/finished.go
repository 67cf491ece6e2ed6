package handshake

import (
	"crypto/md5"
	"crypto/sha1"
)

// Sender distinguishes which side's Finished verify_data is being computed.
type Sender int

const (
	SenderClient Sender = iota
	SenderServer
)

func (s Sender) tlsLabel() string {
	if s == SenderClient {
		return "client finished"
	}
	return "server finished"
}

// sslSenderBytes is SSL 3.0's per-sender constant folded into its
// Finished and certificate-verify hash constructions.
func (s Sender) sslSenderBytes() []byte {
	if s == SenderClient {
		return []byte{0x43, 0x4C, 0x4E, 0x54} // "CLNT"
	}
	return []byte{0x53, 0x52, 0x56, 0x52} // "SRVR"
}

// VerifyData computes the TLS 1.0/1.1 Finished message's verify_data:
// PRF(master_secret, sender_label, MD5(handshake) || SHA1(handshake), 12).
func VerifyData(masterSecret []byte, sender Sender, handshakeMessages []byte) []byte {
	md5Sum := md5.Sum(handshakeMessages)
	sha1Sum := sha1.Sum(handshakeMessages)
	seed := append(append([]byte{}, md5Sum[:]...), sha1Sum[:]...)
	return PRF(masterSecret, sender.tlsLabel(), seed, 12)
}

// sslPad1_36, sslPad2_5c are the same SSL 3.0 MAC padding constants
// tlsrecord.SSLMAC uses, reused here for the Finished hash shape.
var (
	sslPad1_36 = make([]byte, 48)
	sslPad2_5c = make([]byte, 48)
)

func init() {
	for i := range sslPad1_36 {
		sslPad1_36[i] = 0x36
		sslPad2_5c[i] = 0x5c
	}
}

// SSL3VerifyData computes SSL 3.0's Finished message hash: for each of
// MD5 and SHA-1,
//
//	outer_hash(master_secret || pad2 ||
//	  inner_hash(handshake_messages || sender || master_secret || pad1))
//
// concatenated (MD5 first), per RFC 6101 §5.6.9.
func SSL3VerifyData(masterSecret []byte, sender Sender, handshakeMessages []byte) []byte {
	senderBytes := sender.sslSenderBytes()

	md5Inner := md5.New()
	md5Inner.Write(handshakeMessages)
	md5Inner.Write(senderBytes)
	md5Inner.Write(masterSecret)
	md5Inner.Write(sslPad1_36[:48])
	md5InnerSum := md5Inner.Sum(nil)

	md5Outer := md5.New()
	md5Outer.Write(masterSecret)
	md5Outer.Write(sslPad2_5c[:48])
	md5Outer.Write(md5InnerSum)

	sha1Inner := sha1.New()
	sha1Inner.Write(handshakeMessages)
	sha1Inner.Write(senderBytes)
	sha1Inner.Write(masterSecret)
	sha1Inner.Write(sslPad1_36[:40])
	sha1InnerSum := sha1Inner.Sum(nil)

	sha1Outer := sha1.New()
	sha1Outer.Write(masterSecret)
	sha1Outer.Write(sslPad2_5c[:40])
	sha1Outer.Write(sha1InnerSum)

	return append(md5Outer.Sum(nil), sha1Outer.Sum(nil)...)
}
