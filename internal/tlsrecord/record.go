// Package tlsrecord implements the SSL 3.0 / TLS 1.0 / TLS 1.1 record
// layer: content-type/version/length framing, MAC-then-encrypt
// sealing and opening of CBC-protected records, and the version-
// specific explicit-IV and MAC constructions each protocol revision
// requires.
package tlsrecord

import (
	"encoding/binary"

	"cryptkit/internal/errors"
)

// ContentType identifies the payload carried by a record.
type ContentType byte

const (
	ContentChangeCipherSpec ContentType = 20
	ContentAlert            ContentType = 21
	ContentHandshake        ContentType = 22
	ContentApplicationData  ContentType = 23
)

// ProtocolVersion is the (major, minor) pair TLS/SSL records carry.
type ProtocolVersion struct {
	Major, Minor byte
}

var (
	VersionSSL30 = ProtocolVersion{3, 0}
	VersionTLS10 = ProtocolVersion{3, 1}
	VersionTLS11 = ProtocolVersion{3, 2}
)

// HeaderSize is the fixed 5-byte record header: type, version (2), length (2).
const HeaderSize = 5

// MaxFragment is the largest plaintext fragment a single record may carry.
const MaxFragment = 1 << 14

// Header is a decoded record header.
type Header struct {
	Type    ContentType
	Version ProtocolVersion
	Length  int
}

// EncodeHeader serializes a record header.
func EncodeHeader(h Header) []byte {
	out := make([]byte, HeaderSize)
	out[0] = byte(h.Type)
	out[1] = h.Version.Major
	out[2] = h.Version.Minor
	binary.BigEndian.PutUint16(out[3:], uint16(h.Length))
	return out
}

// DecodeHeader parses a record header from exactly HeaderSize bytes.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, errors.Wrap(errors.ErrUnderflow, "tlsrecord: short header")
	}
	length := int(binary.BigEndian.Uint16(b[3:5]))
	if length > MaxFragment+2048 {
		return Header{}, errors.Wrap(errors.ErrBadLength, "tlsrecord: record length exceeds maximum")
	}
	return Header{
		Type:    ContentType(b[0]),
		Version: ProtocolVersion{Major: b[1], Minor: b[2]},
		Length:  length,
	}, nil
}
