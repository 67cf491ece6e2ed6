package envelope

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/binary"

	"cryptkit/internal/action"
	"cryptkit/internal/buffer"
	"cryptkit/internal/content"
	"cryptkit/internal/crypto"
	"cryptkit/internal/errors"
	"cryptkit/internal/segment"
)

// literalDataPacketType is the PGP packet tag number for a literal
// data packet (RFC 4880 §5.9).
const literalDataPacketType = 11

// literalDataFormat is the content-kind byte for "binary" data; text
// and UTF-8 modes exist in the format but aren't exercised here.
const literalDataFormat = 'b'

// literalHeaderSize is the size of the literal-data packet's inner
// header (content-kind byte, filename length, 4-byte timestamp).
const literalHeaderSize = 6

// partialChunkPower is the power-of-two partial-body chunk size used
// once the buffered body exceeds one chunk size: 2^13 = 8192 bytes, a
// middling size that exercises the partial-length encoding without
// needing a huge test payload to trigger it.
const partialChunkPower = 13

// mdcHeaderByte0/mdcHeaderByte1 are the fixed two-byte new-format
// packet header RFC 4880 §5.14 mandates for the modification-detection
// code packet (tag 19, length always 20): 0xD3 is the new-format tag
// byte (0xC0 | 19, the same value segment.NewFormatTag(19) gives),
// 0x14 is the one-octet length 20.
const (
	mdcHeaderByte0 = 0xD3
	mdcHeaderByte1 = 0x14
	mdcTrailerSize = 2 + sha1.Size
)

// literalDataHeader builds the literal-data packet's inner header:
// content-kind byte, filename length (zero: no filename), and a 4-byte
// big-endian timestamp (zero: not set). This header sits inside the
// decrypted/decompressed stream rather than at the outer packet level.
func literalDataHeader() []byte {
	h := []byte{literalDataFormat, 0x00}
	var ts [4]byte
	binary.BigEndian.PutUint32(ts[:], 0)
	return append(h, ts[:]...)
}

// PGPWriter buffers one literal-data packet's plaintext body (header
// plus payload), then frames and optionally encrypts it as a single
// new-format packet on flush: a sequence of partial-body chunks
// followed by a final fixed-length chunk once the body exceeds one
// chunk size. When mdc is enabled, a trailing modification-detection
// code packet (a SHA-1 hash over the whole plaintext body) is appended
// before padding and encryption, so the read side can detect any
// tampering with the ciphertext rather than silently handing back
// garbage plaintext.
type PGPWriter struct {
	cipher    crypto.BlockCipher
	mac       crypto.HashContext
	blockSize int
	pending   []byte
	finished  bool
	wroteHdr  bool

	mdc     bool
	mdcHash crypto.HashContext

	actions *action.List
}

// NewPGPWriter constructs a PGP literal-data packet encoder. cipher and
// mac may be nil (an envelope with no confidentiality or integrity
// action, respectively). mdc selects whether a trailing
// modification-detection-code packet protects the encrypted body.
func NewPGPWriter(cipher crypto.BlockCipher, mac crypto.HashContext, mdc bool) *PGPWriter {
	blockSize := 1
	if cipher != nil {
		blockSize = cipher.BlockSize()
	}
	w := &PGPWriter{
		cipher:    cipher,
		mac:       mac,
		blockSize: blockSize,
		mdc:       mdc && cipher != nil,
		actions:   action.New(),
	}
	if cipher != nil {
		w.actions.Add(&action.Item{Kind: action.KindEncrypt, Algorithm: "pgp-cipher"})
	}
	if mac != nil {
		w.actions.Add(&action.Item{Kind: action.KindMAC, Algorithm: "pgp-mac"})
	}
	if w.mdc {
		w.mdcHash = sha1.New()
		w.actions.Add(&action.Item{Kind: action.KindHash, Algorithm: "pgp-mdc-sha1"})
	}
	return w
}

// Actions returns the action list driving this writer, populated at
// construction time from whichever of cipher/mac/mdc were configured.
func (w *PGPWriter) Actions() *action.List { return w.actions }

// Push buffers plaintext. An empty data slice triggers Flush, which
// performs the actual framing and encryption and returns the complete
// wire-format packet.
func (w *PGPWriter) Push(data []byte) ([]byte, error) {
	if w.finished {
		return nil, errors.Wrap(errors.ErrWrongState, "envelope: push after finish")
	}
	if !w.wroteHdr {
		hdr := literalDataHeader()
		w.pending = append(w.pending, hdr...)
		if w.mdcHash != nil {
			w.mdcHash.Write(hdr)
		}
		w.wroteHdr = true
	}
	if len(data) == 0 {
		return w.flush()
	}
	w.pending = append(w.pending, data...)
	if w.mac != nil {
		w.mac.Write(data)
	}
	if w.mdcHash != nil {
		w.mdcHash.Write(data)
	}
	return nil, nil
}

// flush appends the MDC trailer (if enabled), pads (if
// block-encrypting), encrypts, and frames the accumulated body as a
// complete new-format PGP packet.
func (w *PGPWriter) flush() ([]byte, error) {
	w.finished = true

	body := w.pending
	if w.mdcHash != nil {
		w.mdcHash.Write([]byte{mdcHeaderByte0, mdcHeaderByte1})
		digest := w.mdcHash.Sum(nil)
		body = append(body, mdcHeaderByte0, mdcHeaderByte1)
		body = append(body, digest...)
	}
	if w.cipher != nil {
		body = Pad(body, w.blockSize)
		if err := w.cipher.EncryptInPlace(body); err != nil {
			return nil, err
		}
	}

	out := []byte{byte(segment.NewFormatTag(literalDataPacketType))}
	chunkSize := 1 << partialChunkPower

	for len(body) > chunkSize {
		out = append(out, segment.EncodePartialLength(partialChunkPower))
		out = append(out, body[:chunkSize]...)
		body = body[chunkSize:]
	}
	out = append(out, segment.EncodePacketLength(len(body))...)
	out = append(out, body...)

	return out, nil
}

// PGPReader decodes one new-format literal-data packet (a tag byte,
// then one or more length-prefixed chunks, the last of which has a
// fixed rather than partial length), stripping the inner literal-data
// header before returning plaintext. The stripping happens here rather
// than in the segment reader because the outer packet may be
// compressed or encrypted, so the header only becomes visible once the
// decrypted/decompressed stream is in hand.
//
// When mdc is enabled, the decrypted body is held in full (rather than
// streamed out block by block) until the final chunk arrives, so the
// trailing modification-detection-code packet can be verified before
// any of the plaintext it covers is released to the caller.
type PGPReader struct {
	cipher    crypto.BlockCipher
	mac       crypto.HashContext
	blockSize int

	wire       *buffer.Buffer
	gotTag     bool
	inChunk    bool
	chunkLen   int
	chunkFinal bool

	strippedHeader bool
	held           []byte
	done           bool

	mdc    bool
	mdcBuf []byte

	actions  *action.List
	contents *content.List
}

// NewPGPReader constructs a PGP literal-data packet decoder. mdc
// selects whether the decrypted body is expected to carry a trailing
// modification-detection-code packet.
func NewPGPReader(cipher crypto.BlockCipher, mac crypto.HashContext, wireCapacity int, mdc bool) *PGPReader {
	blockSize := 1
	if cipher != nil {
		blockSize = cipher.BlockSize()
	}
	r := &PGPReader{
		cipher:    cipher,
		mac:       mac,
		blockSize: blockSize,
		wire:      buffer.New(wireCapacity),
		mdc:       mdc && cipher != nil,
		actions:   action.New(),
		contents:  content.New(),
	}
	if cipher != nil {
		r.actions.Add(&action.Item{Kind: action.KindEncrypt, Algorithm: "pgp-cipher"})
	}
	if mac != nil {
		r.actions.Add(&action.Item{Kind: action.KindMAC, Algorithm: "pgp-mac"})
	}
	if r.mdc {
		r.actions.Add(&action.Item{Kind: action.KindHash, Algorithm: "pgp-mdc-sha1"})
	}
	return r
}

// Actions returns the action list driving this reader, populated at
// construction time from whichever of cipher/mac/mdc were configured.
func (r *PGPReader) Actions() *action.List { return r.actions }

// Content returns the content list this reader populates as it
// resolves information objects out of the wire stream: currently one
// group per MDC integrity check, with AttrResult set to the boolean
// outcome once the final chunk has been verified.
func (r *PGPReader) Content() *content.List { return r.contents }

// Push feeds wire bytes into the decoder and returns whatever
// plaintext has become available.
func (r *PGPReader) Push(wireBytes []byte) ([]byte, error) {
	if r.done {
		return nil, errors.Wrap(errors.ErrWrongState, "envelope: push after done")
	}
	// Reclaim room already consumed by the previous Push before
	// writing more in: Write only checks capacity minus the write
	// cursor, so without this a long-lived stream eventually overflows
	// even though every byte behind the read cursor is already spent.
	r.wire.Compact()
	if len(wireBytes) > 0 {
		if err := r.wire.Write(wireBytes); err != nil {
			return nil, err
		}
	}

	var out []byte
	for {
		if !r.gotTag {
			if r.wire.Len() < 1 {
				return out, nil
			}
			b, _ := r.wire.Read(1)
			if !segment.IsNewFormat(b[0]) {
				return out, errors.Wrap(errors.ErrBadData, "envelope: expected new-format PGP packet tag")
			}
			if segment.PGPTag(b[0]).PacketType() != literalDataPacketType {
				return out, errors.Wrap(errors.ErrBadData, "envelope: expected literal-data packet tag")
			}
			r.gotTag = true
		}

		if !r.inChunk {
			lenBytes, err := r.peekLengthBytes()
			if err != nil {
				return out, nil // underflow: need more bytes for the length field
			}
			plen, consumed, err := segment.DecodeLength(lenBytes)
			if err != nil {
				return out, err
			}
			r.wire.Skip(consumed)
			r.chunkLen = plen.Length
			r.chunkFinal = !plen.Partial
			r.inChunk = true
		}

		if r.wire.Len() < r.chunkLen {
			return out, nil // underflow: chunk body not fully buffered yet
		}
		chunk, _ := r.wire.Read(r.chunkLen)
		r.inChunk = false
		final := r.chunkFinal

		plain, err := r.consumeChunk(chunk, final)
		if err != nil {
			return out, err
		}
		out = append(out, plain...)

		if final {
			r.done = true
			return out, nil
		}
	}
}

// peekLengthBytes returns up to 5 buffered-but-unconsumed bytes for
// DecodeLength to inspect, erroring if none are available yet.
func (r *PGPReader) peekLengthBytes() ([]byte, error) {
	n := r.wire.Len()
	if n > 5 {
		n = 5
	}
	if n == 0 {
		return nil, errors.Wrap(errors.ErrUnderflow, "envelope: no length bytes buffered")
	}
	return r.wire.Peek(n)
}

// consumeChunk decrypts one chunk. In MDC mode the whole decrypted
// body is accumulated and only released, as a single block, once the
// trailing MDC packet has verified on the final chunk; otherwise it
// strips padding on the final chunk and streams plaintext out block by
// block as before. Across all chunks it strips the literal-data inner
// header from the front of the first decrypted bytes.
func (r *PGPReader) consumeChunk(chunk []byte, final bool) ([]byte, error) {
	if r.cipher != nil {
		if err := r.cipher.DecryptInPlace(chunk); err != nil {
			return nil, err
		}
	}

	if r.mdc {
		return r.consumeMDCChunk(chunk, final)
	}

	combined := append(r.held, chunk...)

	var release []byte
	if r.cipher == nil || !final {
		if r.cipher == nil {
			release = combined
			r.held = nil
		} else {
			releaseLen := (len(combined) - 1) / r.blockSize * r.blockSize
			release = combined[:releaseLen]
			r.held = append([]byte(nil), combined[releaseLen:]...)
		}
	} else {
		var err error
		release, err = Unpad(combined, r.blockSize)
		if err != nil {
			return nil, err
		}
		r.held = nil
	}

	if !r.strippedHeader {
		if len(release) < literalHeaderSize {
			r.held = append(release, r.held...)
			return nil, nil
		}
		release = release[literalHeaderSize:]
		r.strippedHeader = true
	}

	if r.mac != nil {
		r.mac.Write(release)
	}
	return release, nil
}

// consumeMDCChunk accumulates decrypted bytes until the final chunk,
// then unpads, verifies the trailing MDC packet against a SHA-1 hash
// of everything that precedes it, and only then strips the literal-
// data header and releases plaintext. Any ciphertext tamper flips bits
// in the recovered plaintext and, overwhelmingly likely, the MDC
// digest comparison, so it is reported as the same bad-data failure a
// genuinely missing/malformed MDC packet gets rather than surfacing as
// an unrelated unpad or header-parse error.
func (r *PGPReader) consumeMDCChunk(chunk []byte, final bool) ([]byte, error) {
	r.mdcBuf = append(r.mdcBuf, chunk...)
	if !final {
		return nil, nil
	}

	body, err := Unpad(r.mdcBuf, r.blockSize)
	if err != nil {
		return nil, err
	}
	r.mdcBuf = nil

	if len(body) < mdcTrailerSize {
		return nil, errors.Wrap(errors.ErrBadData, "envelope: message too short for MDC packet")
	}
	plain := body[:len(body)-mdcTrailerSize]
	trailer := body[len(body)-mdcTrailerSize:]
	if trailer[0] != mdcHeaderByte0 || trailer[1] != mdcHeaderByte1 {
		return nil, errors.Wrap(errors.ErrBadData, "envelope: missing MDC packet header")
	}

	h := sha1.New()
	h.Write(plain)
	h.Write(trailer[:2])
	want := h.Sum(nil)
	got := trailer[2:]

	group := r.contents.Append()
	ok := hmac.Equal(got, want)
	group.Set(content.AttrResult, ok)
	if !ok {
		return nil, errors.Wrap(errors.ErrBadData, "envelope: MDC integrity check failed")
	}

	if len(plain) < literalHeaderSize {
		return nil, errors.Wrap(errors.ErrBadData, "envelope: literal data shorter than header")
	}
	release := plain[literalHeaderSize:]
	if r.mac != nil {
		r.mac.Write(release)
	}
	return release, nil
}
