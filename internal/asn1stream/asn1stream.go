// Package asn1stream provides the minimal typed BER tag/length
// primitives the segment framer needs on top of encoding/asn1: reading
// and writing OCTET STRING headers (definite and indefinite length) and
// the two-byte end-of-contents marker. Full TLV parsing of envelope
// content (certificates, algorithm identifiers) stays on encoding/asn1
// directly; this package only covers the framing layer that needs
// byte-level control encoding/asn1's Unmarshal does not expose.
package asn1stream

import (
	"cryptkit/internal/errors"
)

const (
	// TagOctetString is the BER universal primitive/constructed OCTET
	// STRING tag (0x04), used for both CMS segment framing and
	// constructed indefinite-length content.
	TagOctetString = 0x04

	// TagEndOfContents is the BER end-of-contents tag, used with its
	// paired zero length byte to close an indefinite-length encoding.
	TagEndOfContents = 0x00

	// indefiniteLengthByte marks an indefinite-length BER encoding:
	// constructed tag followed by a single 0x80 length byte.
	indefiniteLengthByte = 0x80

	// longFormMask distinguishes a BER long-form length (top bit set)
	// from a short-form length (top bit clear, value is the length).
	longFormMask = 0x80
)

// EncodeLength BER-encodes n as a length field: short form (one byte)
// for n < 128, long form (0x8L followed by L big-endian bytes) for
// larger n. It emits as many length bytes as n needs; LengthDecoder
// accepts at most 4, so lengths of 2^32 and above do not round-trip.
func EncodeLength(n int) []byte {
	if n < 0 {
		panic("asn1stream: negative length")
	}
	if n < 128 {
		return []byte{byte(n)}
	}

	var be []byte
	for v := n; v > 0; v >>= 8 {
		be = append([]byte{byte(v)}, be...)
	}
	out := make([]byte, 0, 1+len(be))
	out = append(out, longFormMask|byte(len(be)))
	out = append(out, be...)
	return out
}

// EncodeIndefiniteHeader returns the constructed-OCTET-STRING tag
// followed by the indefinite-length marker byte 0x80, used to open a
// CMS indefinite-length payload.
func EncodeIndefiniteHeader() []byte {
	return []byte{TagOctetString | 0x20, indefiniteLengthByte}
}

// EndOfContents returns the two-byte end-of-contents marker that
// terminates an indefinite-length encoding.
func EndOfContents() []byte {
	return []byte{TagEndOfContents, TagEndOfContents}
}

// LengthState is the byte-driven FSM state for resumable BER length
// decoding: {none, len-of-len, len, end-of-contents, done}, resumable
// on any byte boundary.
type LengthState int

const (
	StateNone LengthState = iota
	StateLenOfLen
	StateLen
	StateEndOfContents
	StateDone
)

// LengthDecoder decodes a single BER length field one byte at a time,
// so a segment header that straddles two push() calls can be resumed
// rather than requiring the whole header to be buffered up front.
type LengthDecoder struct {
	state      LengthState
	lenBytes   int // remaining long-form length bytes to read
	value      int
	indefinite bool
}

// NewLengthDecoder returns a fresh decoder positioned at StateNone,
// ready to consume the first length byte.
func NewLengthDecoder() *LengthDecoder {
	return &LengthDecoder{state: StateNone}
}

// Feed consumes one byte of a length field. It returns true once the
// length is fully decoded (state reaches StateDone); call Value to
// retrieve the result. indefinite reports an indefinite-length (0x80)
// encoding, in which case Value is meaningless and the caller must scan
// for end-of-contents instead.
func (d *LengthDecoder) Feed(b byte) (done bool, err error) {
	switch d.state {
	case StateNone:
		if b == indefiniteLengthByte {
			d.indefinite = true
			d.state = StateDone
			return true, nil
		}
		if b&longFormMask == 0 {
			d.value = int(b)
			d.state = StateDone
			return true, nil
		}
		d.lenBytes = int(b &^ longFormMask)
		if d.lenBytes == 0 || d.lenBytes > 4 {
			return false, errors.Wrap(errors.ErrBadLength, "asn1stream: unsupported length-of-length")
		}
		d.state = StateLenOfLen
		return false, nil

	case StateLenOfLen:
		d.value = int(b)
		d.lenBytes--
		if d.lenBytes == 0 {
			d.state = StateDone
			return true, nil
		}
		d.state = StateLen
		return false, nil

	case StateLen:
		d.value = d.value<<8 | int(b)
		d.lenBytes--
		if d.lenBytes == 0 {
			d.state = StateDone
			return true, nil
		}
		return false, nil

	default:
		return false, errors.Wrap(errors.ErrWrongState, "asn1stream: Feed called after completion")
	}
}

// Value returns the decoded length. Valid only after Feed has returned
// done=true and Indefinite is false.
func (d *LengthDecoder) Value() int { return d.value }

// Indefinite reports whether the decoded length was the indefinite
// marker 0x80 rather than a concrete byte count.
func (d *LengthDecoder) Indefinite() bool { return d.indefinite }

// State returns the decoder's current FSM state.
func (d *LengthDecoder) State() LengthState { return d.state }

// Reset returns the decoder to StateNone so it can be reused for the
// next segment's length field.
func (d *LengthDecoder) Reset() {
	d.state = StateNone
	d.lenBytes = 0
	d.value = 0
	d.indefinite = false
}
