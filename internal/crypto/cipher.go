package crypto

import (
	"crypto/aes"
	stdcipher "crypto/cipher"
	"fmt"

	"github.com/Picocrypt/serpent"
	"golang.org/x/crypto/cast5"
)

// Algorithm names a concrete block-cipher backend. The crypto-binding
// layer is the only place that names these.
type Algorithm string

const (
	AlgAES     Algorithm = "aes"
	AlgSerpent Algorithm = "serpent"
	// AlgCAST5 is PGP's historical default symmetric cipher (RFC 4880
	// §9.2, algorithm ID 3): an 8-byte-block cipher, used here only in
	// CFB mode for the PGP envelope path, never for CMS/TLS.
	AlgCAST5 Algorithm = "cast5"
)

// Mode selects how a BlockCipher chains blocks. CMS/PGP segment
// encryption and TLS bulk encryption both go through CBC; envelope
// actions that want a stream cipher shape (e.g. PGP CFB) use CFB.
type Mode string

const (
	ModeCBC Mode = "cbc"
	ModeCFB Mode = "cfb"
	ModeCTR Mode = "ctr"
)

// blockCipher is the concrete BlockCipher implementation shared by all
// (algorithm, mode) combinations: construct the stdlib/serpent block,
// then wrap it in the matching cipher.BlockMode or cipher.Stream.
type blockCipher struct {
	block     stdcipher.Block
	blockSize int
	encStream stdcipher.Stream
	decStream stdcipher.Stream
	encMode   stdcipher.BlockMode
	decMode   stdcipher.BlockMode
	mode      Mode
	key       []byte
}

// NewBlockCipher constructs a BlockCipher for the given algorithm, mode,
// key and IV. It is the crypto-binding layer's in-place encrypt/decrypt
// backend, shared by the envelope and record-layer engines.
func NewBlockCipher(alg Algorithm, mode Mode, key, iv []byte) (BlockCipher, error) {
	var block stdcipher.Block
	var err error

	switch alg {
	case AlgAES:
		block, err = aes.NewCipher(key)
	case AlgSerpent:
		block, err = serpent.NewCipher(key)
	case AlgCAST5:
		block, err = cast5.NewCipher(key)
	default:
		return nil, fmt.Errorf("crypto: unknown block cipher algorithm %q", alg)
	}
	if err != nil {
		return nil, NewCryptoError("cipher", err)
	}

	bc := &blockCipher{block: block, blockSize: block.BlockSize(), mode: mode, key: append([]byte(nil), key...)}

	switch mode {
	case ModeCBC:
		bc.encMode = stdcipher.NewCBCEncrypter(block, iv)
		bc.decMode = stdcipher.NewCBCDecrypter(block, iv)
	case ModeCFB:
		bc.encStream = stdcipher.NewCFBEncrypter(block, iv)
		bc.decStream = stdcipher.NewCFBDecrypter(block, iv)
	case ModeCTR:
		// CTR is symmetric: encrypt and decrypt streams are identical
		// keystream generators, but each must track its own position,
		// so keep separate instances rather than alias one.
		bc.encStream = stdcipher.NewCTR(block, iv)
		bc.decStream = stdcipher.NewCTR(block, iv)
	default:
		return nil, fmt.Errorf("crypto: unknown cipher mode %q", mode)
	}

	return bc, nil
}

func (bc *blockCipher) EncryptInPlace(buf []byte) error {
	switch bc.mode {
	case ModeCBC:
		if len(buf)%bc.blockSize != 0 {
			return NewCryptoError("cipher", fmt.Errorf("CBC input length %d is not a multiple of block size %d", len(buf), bc.blockSize))
		}
		bc.encMode.CryptBlocks(buf, buf)
	default:
		bc.encStream.XORKeyStream(buf, buf)
	}
	return nil
}

func (bc *blockCipher) DecryptInPlace(buf []byte) error {
	switch bc.mode {
	case ModeCBC:
		if len(buf)%bc.blockSize != 0 {
			return NewCryptoError("cipher", fmt.Errorf("CBC input length %d is not a multiple of block size %d", len(buf), bc.blockSize))
		}
		bc.decMode.CryptBlocks(buf, buf)
	default:
		bc.decStream.XORKeyStream(buf, buf)
	}
	return nil
}

func (bc *blockCipher) BlockSize() int {
	return bc.blockSize
}

// Close securely zeros the retained key copy.
func (bc *blockCipher) Close() {
	SecureZero(bc.key)
	bc.key = nil
}
