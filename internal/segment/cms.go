// Package segment implements the two wire framings the envelope engine
// pushes and pops payload through: CMS indefinite/definite-length OCTET
// STRING segmentation (BER) and PGP new-format packet tag/length
// framing.
package segment

import (
	"cryptkit/internal/asn1stream"
	"cryptkit/internal/errors"
)

// minShortSegment is the smallest payload a non-terminating CMS segment
// should emit, to avoid pathological one-byte-at-a-time output
// quantization.
const minShortSegment = 10

// CMSWriter frames an indefinite-length CMS OCTET STRING payload as a
// sequence of [04][len][data] segments terminated by two
// end-of-contents bytes.
type CMSWriter struct {
	opened bool
	closed bool
}

// NewCMSWriter returns a writer for one indefinite-length CMS payload.
func NewCMSWriter() *CMSWriter {
	return &CMSWriter{}
}

// Open returns the constructed-OCTET-STRING header that opens the
// indefinite-length encoding. Call once, before the first segment.
func (w *CMSWriter) Open() []byte {
	w.opened = true
	return asn1stream.EncodeIndefiniteHeader()
}

// WriteSegment frames data as one definite-length OCTET STRING segment.
// If data is shorter than minShortSegment and final is false, the
// caller should buffer more data rather than call WriteSegment: this
// function does not itself enforce that policy, since the envelope
// engine is the one deciding when enough data has accumulated.
func (w *CMSWriter) WriteSegment(data []byte, final bool) []byte {
	header := append([]byte{asn1stream.TagOctetString}, asn1stream.EncodeLength(len(data))...)
	return append(header, data...)
}

// Close returns the two-byte end-of-contents marker. Call once after
// the last segment.
func (w *CMSWriter) Close() []byte {
	w.closed = true
	return asn1stream.EndOfContents()
}

// MinSegmentSize reports the minimum payload size a non-final segment
// should carry.
func (w *CMSWriter) MinSegmentSize() int { return minShortSegment }

// DefiniteHeader returns the header for a single definite-length CMS
// payload of exactly size bytes, used when the caller has advised the
// envelope of the total payload size in advance.
func DefiniteHeader(size int) []byte {
	return append([]byte{asn1stream.TagOctetString}, asn1stream.EncodeLength(size)...)
}

// cmsDecoderState mirrors asn1stream's {none, len-of-len, len,
// end-of-contents, done} FSM but adds the outer states needed to
// recognize the segment tag and the end-of-contents tag byte.
type cmsDecoderState int

const (
	cmsStateTag cmsDecoderState = iota
	cmsStateLength
	cmsStateDone
)

// CMSReader decodes indefinite-length CMS segments from a byte stream,
// resumable on any byte boundary: Feed takes one byte at a time through
// its FSM, so the whole header is never required up front.
type CMSReader struct {
	state  cmsDecoderState
	lenDec *asn1stream.LengthDecoder
}

// NewCMSReader returns a fresh CMS segment decoder.
func NewCMSReader() *CMSReader {
	return &CMSReader{lenDec: asn1stream.NewLengthDecoder()}
}

// SegmentHeader is the result of a completed header decode: either a
// data segment of Length bytes, or EndOfContents.
type SegmentHeader struct {
	EndOfContents bool
	Length        int
}

// Feed decodes one byte of a segment header (tag or length). It
// returns done=true once a full header (tag+length, or the two-byte
// EOC marker) has been parsed.
func (r *CMSReader) Feed(b byte) (done bool, hdr SegmentHeader, err error) {
	switch r.state {
	case cmsStateTag:
		switch b {
		case asn1stream.TagOctetString:
			r.state = cmsStateLength
			r.lenDec.Reset()
			return false, SegmentHeader{}, nil
		case asn1stream.TagEndOfContents:
			r.state = cmsStateDone
			return false, SegmentHeader{}, nil
		default:
			return false, SegmentHeader{}, errors.Wrap(errors.ErrBadData, "segment: unexpected CMS tag byte")
		}

	case cmsStateLength:
		done, lerr := r.lenDec.Feed(b)
		if lerr != nil {
			return false, SegmentHeader{}, lerr
		}
		if !done {
			return false, SegmentHeader{}, nil
		}
		if r.lenDec.Indefinite() {
			return false, SegmentHeader{}, errors.Wrap(errors.ErrBadData, "segment: nested indefinite length not supported")
		}
		n := r.lenDec.Value()
		r.state = cmsStateTag
		return true, SegmentHeader{Length: n}, nil

	case cmsStateDone:
		if b != asn1stream.TagEndOfContents {
			return false, SegmentHeader{}, errors.Wrap(errors.ErrBadData, "segment: malformed end-of-contents")
		}
		r.state = cmsStateTag
		return true, SegmentHeader{EndOfContents: true}, nil

	default:
		return false, SegmentHeader{}, errors.Wrap(errors.ErrWrongState, "segment: Feed in unknown state")
	}
}

// Reset returns the reader to its initial state for the next header.
func (r *CMSReader) Reset() {
	r.state = cmsStateTag
	r.lenDec.Reset()
}
