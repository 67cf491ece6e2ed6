package handshake

import (
	"encoding/binary"

	"cryptkit/internal/errors"
)

// MessageType is the one-byte TLS handshake message type.
type MessageType byte

const (
	MsgHelloRequest       MessageType = 0
	MsgClientHello        MessageType = 1
	MsgServerHello        MessageType = 2
	MsgCertificate        MessageType = 11
	MsgServerKeyExchange  MessageType = 12
	MsgCertificateRequest MessageType = 13
	MsgServerHelloDone    MessageType = 14
	MsgCertificateVerify  MessageType = 15
	MsgClientKeyExchange  MessageType = 16
	MsgFinished           MessageType = 20
)

// handshakeHeader wraps a handshake body with its 1-byte type and
// 3-byte big-endian length, the shape every handshake message shares.
func handshakeHeader(msgType MessageType, body []byte) []byte {
	out := make([]byte, 4+len(body))
	out[0] = byte(msgType)
	out[1] = byte(len(body) >> 16)
	out[2] = byte(len(body) >> 8)
	out[3] = byte(len(body))
	copy(out[4:], body)
	return out
}

// DecodeHandshakeHeader parses the 4-byte handshake message header and
// returns the message type, declared body length, and header size (4).
func DecodeHandshakeHeader(b []byte) (msgType MessageType, bodyLen int, err error) {
	if len(b) < 4 {
		return 0, 0, errors.Wrap(errors.ErrUnderflow, "handshake: short message header")
	}
	bodyLen = int(b[1])<<16 | int(b[2])<<8 | int(b[3])
	return MessageType(b[0]), bodyLen, nil
}

// Random is the 32-byte hello random: 4 bytes of Unix time plus 28
// bytes of entropy, per RFC 2246 §7.4.1.2.
type Random [32]byte

// ClientHello is the ClientHello message body (session id and
// extensions are both optional and length-prefixed; this
// implementation does not negotiate extensions).
type ClientHello struct {
	Version        [2]byte
	Random         Random
	SessionID      []byte
	CipherSuites   []uint16
	CompressionIDs []byte
}

// Encode serializes a ClientHello body (without the handshake header).
func (h ClientHello) Encode() []byte {
	out := append([]byte{}, h.Version[0], h.Version[1])
	out = append(out, h.Random[:]...)
	out = append(out, byte(len(h.SessionID)))
	out = append(out, h.SessionID...)

	suitesLen := len(h.CipherSuites) * 2
	out = append(out, byte(suitesLen>>8), byte(suitesLen))
	for _, id := range h.CipherSuites {
		var b [2]byte
		binary.BigEndian.PutUint16(b[:], id)
		out = append(out, b[:]...)
	}

	out = append(out, byte(len(h.CompressionIDs)))
	out = append(out, h.CompressionIDs...)
	return out
}

// DecodeClientHello parses a ClientHello body.
func DecodeClientHello(b []byte) (ClientHello, error) {
	var h ClientHello
	if len(b) < 34 {
		return h, errors.Wrap(errors.ErrUnderflow, "handshake: short ClientHello")
	}
	h.Version = [2]byte{b[0], b[1]}
	copy(h.Random[:], b[2:34])
	pos := 34

	if pos >= len(b) {
		return h, errors.Wrap(errors.ErrUnderflow, "handshake: truncated ClientHello session id")
	}
	sidLen := int(b[pos])
	pos++
	if pos+sidLen > len(b) {
		return h, errors.Wrap(errors.ErrBadData, "handshake: session id length overruns message")
	}
	h.SessionID = append([]byte(nil), b[pos:pos+sidLen]...)
	pos += sidLen

	if pos+2 > len(b) {
		return h, errors.Wrap(errors.ErrUnderflow, "handshake: truncated cipher suites length")
	}
	suitesLen := int(binary.BigEndian.Uint16(b[pos:]))
	pos += 2
	if pos+suitesLen > len(b) || suitesLen%2 != 0 {
		return h, errors.Wrap(errors.ErrBadData, "handshake: cipher suites length invalid")
	}
	for i := 0; i < suitesLen; i += 2 {
		h.CipherSuites = append(h.CipherSuites, binary.BigEndian.Uint16(b[pos+i:]))
	}
	pos += suitesLen

	if pos >= len(b) {
		return h, errors.Wrap(errors.ErrUnderflow, "handshake: truncated compression methods")
	}
	compLen := int(b[pos])
	pos++
	if pos+compLen > len(b) {
		return h, errors.Wrap(errors.ErrBadData, "handshake: compression methods length invalid")
	}
	h.CompressionIDs = append([]byte(nil), b[pos:pos+compLen]...)
	return h, nil
}

// ServerHello is the ServerHello message body.
type ServerHello struct {
	Version     [2]byte
	Random      Random
	SessionID   []byte
	CipherSuite uint16
	Compression byte
}

// Encode serializes a ServerHello body.
func (h ServerHello) Encode() []byte {
	out := append([]byte{}, h.Version[0], h.Version[1])
	out = append(out, h.Random[:]...)
	out = append(out, byte(len(h.SessionID)))
	out = append(out, h.SessionID...)
	var suite [2]byte
	binary.BigEndian.PutUint16(suite[:], h.CipherSuite)
	out = append(out, suite[:]...)
	out = append(out, h.Compression)
	return out
}

// DecodeServerHello parses a ServerHello body.
func DecodeServerHello(b []byte) (ServerHello, error) {
	var h ServerHello
	if len(b) < 34 {
		return h, errors.Wrap(errors.ErrUnderflow, "handshake: short ServerHello")
	}
	h.Version = [2]byte{b[0], b[1]}
	copy(h.Random[:], b[2:34])
	pos := 34

	sidLen := int(b[pos])
	pos++
	if pos+sidLen+3 > len(b) {
		return h, errors.Wrap(errors.ErrBadData, "handshake: ServerHello session id/suite overrun")
	}
	h.SessionID = append([]byte(nil), b[pos:pos+sidLen]...)
	pos += sidLen

	h.CipherSuite = binary.BigEndian.Uint16(b[pos:])
	pos += 2
	h.Compression = b[pos]
	return h, nil
}

// Finished wraps a Finished message's verify_data.
type Finished struct {
	VerifyData []byte
}

func (f Finished) Encode() []byte { return f.VerifyData }
