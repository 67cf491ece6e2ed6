// Package envelope implements the push/pop CMS and PGP enveloping
// engines: state machines that accept plaintext and emit wire-format
// segments (encode), or accept wire-format bytes and emit plaintext
// (decode), encrypting/decrypting and padding in place as they go.
package envelope

import (
	"cryptkit/internal/action"
	"cryptkit/internal/asn1stream"
	"cryptkit/internal/buffer"
	"cryptkit/internal/content"
	"cryptkit/internal/crypto"
	"cryptkit/internal/errors"
	"cryptkit/internal/segment"
)

// cmsState is the encode/decode sub-state, simplified down to the
// phases that drive this package's push/pop loop. Algorithm-identifier
// and key-exchange attribute emission live in the action list and
// content list packages, which the caller consults before driving the
// engine; this engine owns only the data sub-state machine.
type cmsState int

const (
	cmsPreData cmsState = iota
	cmsData
	cmsPostData
	cmsFinished
)

// CMSWriter drives the CMS encode state machine: pre-data (emit the
// indefinite-length OCTET STRING header) → data (segment + encrypt) →
// post-data (flush padding, emit end-of-contents) → finished.
type CMSWriter struct {
	state     cmsState
	cipher    crypto.BlockCipher
	mac       crypto.HashContext
	blockSize int
	pending   []byte // bytes buffered since the last full-block segment
	seg       *segment.CMSWriter

	actions *action.List
}

// NewCMSWriter constructs a CMS encoder. cipher and mac may be nil (an
// envelope with no confidentiality or integrity action, respectively).
func NewCMSWriter(cipher crypto.BlockCipher, mac crypto.HashContext) *CMSWriter {
	blockSize := 1
	if cipher != nil {
		blockSize = cipher.BlockSize()
	}
	w := &CMSWriter{
		cipher:    cipher,
		mac:       mac,
		blockSize: blockSize,
		seg:       segment.NewCMSWriter(),
		actions:   action.New(),
	}
	if cipher != nil {
		w.actions.Add(&action.Item{Kind: action.KindEncrypt, Algorithm: "cms-cipher"})
	}
	if mac != nil {
		w.actions.Add(&action.Item{Kind: action.KindMAC, Algorithm: "cms-mac"})
	}
	return w
}

// Actions returns the action list driving this writer, populated at
// construction time from whichever of cipher/mac were configured.
func (w *CMSWriter) Actions() *action.List { return w.actions }

// Push feeds plaintext into the encoder, returning whatever wire bytes
// are ready to emit. An empty data slice signals end of payload and
// triggers a flush.
func (w *CMSWriter) Push(data []byte) ([]byte, error) {
	if w.state == cmsFinished {
		return nil, errors.Wrap(errors.ErrWrongState, "envelope: push after finish")
	}

	var out []byte
	if w.state == cmsPreData {
		out = append(out, w.seg.Open()...)
		w.state = cmsData
	}

	if len(data) == 0 {
		return append(out, w.flush()...), nil
	}

	w.pending = append(w.pending, data...)
	if w.mac != nil {
		w.mac.Write(data)
	}

	// Emit whole-block segments, holding back any partial tail in
	// pending until more data or flush supplies the rest. Segments
	// shorter than the anti-quantization floor are held rather than
	// emitted one tiny write at a time: a non-final segment must carry
	// at least the minimum payload the segment writer enforces.
	whole := (len(w.pending) / w.blockSize) * w.blockSize
	if whole < w.seg.MinSegmentSize() {
		whole = 0
	}
	if whole > 0 {
		chunk := append([]byte(nil), w.pending[:whole]...)
		if w.cipher != nil {
			if err := w.cipher.EncryptInPlace(chunk); err != nil {
				return nil, err
			}
		}
		out = append(out, w.seg.WriteSegment(chunk, false)...)
		w.pending = w.pending[whole:]
	}

	return out, nil
}

// flush pads any held-back partial block, encrypts and emits the final
// segment, then closes the indefinite-length encoding.
func (w *CMSWriter) flush() []byte {
	var out []byte

	final := w.pending
	if w.cipher != nil {
		final = Pad(w.pending, w.blockSize)
		w.cipher.EncryptInPlace(final)
	}
	if len(final) > 0 {
		out = append(out, w.seg.WriteSegment(final, true)...)
	}
	out = append(out, w.seg.Close()...)

	w.state = cmsPostData
	if w.mac != nil {
		tag := w.mac.Sum(nil)
		out = append(out, tag...)
	}
	w.state = cmsFinished
	return out
}

// CMSReader drives the CMS decode state machine over a resumable byte
// stream: it buffers wire bytes, decodes segment headers as enough
// bytes accumulate, and decrypts each completed segment in place. The
// last ciphertext block is held back until end-of-contents is seen,
// since it may be padding that must be stripped before being handed
// to the caller.
type CMSReader struct {
	state     cmsState
	cipher    crypto.BlockCipher
	mac       crypto.HashContext
	blockSize int

	wire   *buffer.Buffer // raw undecoded wire bytes fed by Push
	seg    *segment.CMSReader
	segLen int  // length of the segment header currently being decoded
	inSeg  bool // true once a segment header has been fully decoded

	sawOpen bool // whether the indefinite-length open header has been consumed

	held []byte // last ciphertext block, not yet known to be padding or payload
	done bool

	actions  *action.List
	contents *content.List
}

// NewCMSReader constructs a CMS decoder.
func NewCMSReader(cipher crypto.BlockCipher, mac crypto.HashContext, wireCapacity int) *CMSReader {
	blockSize := 1
	if cipher != nil {
		blockSize = cipher.BlockSize()
	}
	r := &CMSReader{
		cipher:    cipher,
		mac:       mac,
		blockSize: blockSize,
		wire:      buffer.New(wireCapacity),
		seg:       segment.NewCMSReader(),
		actions:   action.New(),
		contents:  content.New(),
	}
	if cipher != nil {
		r.actions.Add(&action.Item{Kind: action.KindEncrypt, Algorithm: "cms-cipher"})
	}
	if mac != nil {
		r.actions.Add(&action.Item{Kind: action.KindMAC, Algorithm: "cms-mac"})
	}
	return r
}

// Actions returns the action list driving this reader, populated at
// construction time from whichever of cipher/mac were configured.
func (r *CMSReader) Actions() *action.List { return r.actions }

// Content returns the content list this reader populates as it
// resolves information objects out of the wire stream: one group
// recording the MAC tag once decoding finishes, when a MAC action is
// configured.
func (r *CMSReader) Content() *content.List { return r.contents }

// Push feeds wire bytes into the decoder and returns whatever plaintext
// has become available. Call with a nil/empty slice to force draining
// of already-buffered bytes without supplying more.
func (r *CMSReader) Push(wireBytes []byte) ([]byte, error) {
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

	if !r.sawOpen {
		if r.wire.Len() < 2 {
			return out, nil
		}
		open, _ := r.wire.Read(2)
		if open[0] != (asn1stream.TagOctetString|0x20) || open[1] != 0x80 {
			return out, errors.Wrap(errors.ErrBadData, "envelope: missing indefinite-length CMS header")
		}
		r.sawOpen = true
	}

	for {
		if !r.inSeg {
			hdr, consumed, ok, err := r.tryDecodeHeader()
			if err != nil {
				return out, err
			}
			if !ok {
				return out, nil // underflow: need more bytes for the header
			}
			r.wire.Skip(consumed)

			if hdr.EndOfContents {
				plain, err := r.finish()
				if err != nil {
					return out, err
				}
				out = append(out, plain...)
				return out, nil
			}

			r.segLen = hdr.Length
			r.inSeg = true
		}

		if r.wire.Len() < r.segLen {
			return out, nil // underflow: segment body not fully buffered yet
		}
		body, _ := r.wire.Read(r.segLen)
		r.inSeg = false

		plain, err := r.consumeSegment(body)
		if err != nil {
			return out, err
		}
		out = append(out, plain...)
	}
}

// tryDecodeHeader feeds buffered-but-unconsumed wire bytes through the
// segment header FSM without committing the read cursor, so a partial
// header can be retried once more bytes arrive.
func (r *CMSReader) tryDecodeHeader() (hdr segment.SegmentHeader, consumed int, ok bool, err error) {
	mark := r.wire.Save()
	r.seg.Reset()
	for consumed = 0; consumed < r.wire.Len(); consumed++ {
		b, _ := r.wire.Peek(consumed + 1)
		done, h, ferr := r.seg.Feed(b[consumed])
		if ferr != nil {
			r.wire.Restore(mark)
			return segment.SegmentHeader{}, 0, false, ferr
		}
		if done {
			return h, consumed + 1, true, nil
		}
	}
	r.wire.Restore(mark)
	return segment.SegmentHeader{}, 0, false, nil
}

// consumeSegment decrypts one completed segment body and releases
// plaintext. When a block cipher is in use it holds back the most
// recent whole block so that, once end-of-contents is seen, the true
// final block can be unpadded; with no cipher (MAC-only or plaintext
// envelopes) everything is released immediately.
func (r *CMSReader) consumeSegment(body []byte) ([]byte, error) {
	if r.cipher == nil {
		if r.mac != nil {
			r.mac.Write(body)
		}
		return body, nil
	}

	if err := r.cipher.DecryptInPlace(body); err != nil {
		return nil, err
	}

	combined := append(r.held, body...)
	releaseLen := (len(combined) - 1) / r.blockSize * r.blockSize
	release := combined[:releaseLen]
	r.held = append([]byte(nil), combined[releaseLen:]...)

	if r.mac != nil {
		r.mac.Write(release)
	}
	return release, nil
}

// finish strips and validates padding from the held-back final block
// and returns it as the last plaintext chunk.
func (r *CMSReader) finish() ([]byte, error) {
	r.done = true
	var plain []byte
	if len(r.held) > 0 {
		plain = r.held
		if r.cipher != nil {
			var err error
			plain, err = Unpad(r.held, r.blockSize)
			if err != nil {
				return nil, err
			}
		}
	}
	if r.mac != nil {
		r.mac.Write(plain)
		group := r.contents.Append()
		group.Set(content.AttrResult, r.mac.Sum(nil))
	}
	return plain, nil
}

// MACTag returns the running MAC digest. Valid at any point for
// mac_update-style incremental use, and final once the decoder has
// finished.
func (r *CMSReader) MACTag() []byte {
	if r.mac == nil {
		return nil
	}
	return r.mac.Sum(nil)
}
