package envelope

import (
	"cryptkit/internal/errors"
)

// Pad appends PKCS #5/#7-style padding to data so its length becomes a
// multiple of blockSize: pad length = blockSize - (len(data) % blockSize),
// and every padding byte equals that pad length. If data is already
// block-aligned, a full block of padding is added (pad length ==
// blockSize) so Unpad is always unambiguous.
func Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - (len(data) % blockSize)
	out := make([]byte, len(data)+padLen)
	copy(out, data)
	for i := len(data); i < len(out); i++ {
		out[i] = byte(padLen)
	}
	return out
}

// Unpad validates and strips PKCS #5/#7-style padding: the pad length
// must be 1..blockSize and every pad byte must equal the pad length.
// Any violation is bad-data, not underflow: once a block cipher has
// decrypted, its last block always exists and is always checked.
func Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errors.Wrap(errors.ErrBadPadding, "envelope: padded data is not block-aligned")
	}
	padLen := int(data[len(data)-1])
	if padLen < 1 || padLen > blockSize || padLen > len(data) {
		return nil, errors.Wrap(errors.ErrBadPadding, "envelope: invalid padding length")
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, errors.Wrap(errors.ErrBadPadding, "envelope: inconsistent padding bytes")
		}
	}
	return data[:len(data)-padLen], nil
}
