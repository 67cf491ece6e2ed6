package crypto

import (
	"crypto/rand"
	"math/big"
)

// DHParams are the finite-field Diffie-Hellman domain parameters a TLS
// server key-exchange message carries: a safe prime p and a generator
// g, present only when the negotiated cipher suite uses ephemeral DH.
//
// No Diffie-Hellman implementation appears anywhere in the retrieved
// example pack, so this is built directly on math/big: the arithmetic
// is plain modular exponentiation, choosing p/g and deriving a shared
// secret from them, not a primitive whose side-channel hardening
// belongs in an external crypto service.
type DHParams struct {
	P *big.Int
	G *big.Int
}

// DHKeyex implements KeyExchanger for ephemeral Diffie-Hellman. Unlike
// RSAKeyex, wrapping here means "compute our public value and the
// shared secret against the peer's public value" rather than
// encrypt/decrypt, so WrapKey/UnwrapKey take on DH-shaped semantics:
// WrapKey ignores its argument and returns our public value Y;
// UnwrapKey takes the peer's public value and returns the shared
// premaster secret.
type DHKeyex struct {
	Params  DHParams
	private *big.Int
	Public  *big.Int
}

// GenerateKeyPair picks a private exponent and computes the
// corresponding public value g^x mod p.
func (d *DHKeyex) GenerateKeyPair() error {
	if d.Params.P == nil || d.Params.G == nil {
		return NewCryptoError("dh", ErrNoPublicKey)
	}
	// Private exponent in [2, p-2]; reject degenerate small values.
	max := new(big.Int).Sub(d.Params.P, big.NewInt(3))
	x, err := rand.Int(rand.Reader, max)
	if err != nil {
		return NewCryptoError("dh", err)
	}
	x.Add(x, big.NewInt(2))
	d.private = x
	d.Public = new(big.Int).Exp(d.Params.G, x, d.Params.P)
	return nil
}

// WrapKey returns our DH public value, ignoring sessionKey: the
// "wrap" for ephemeral DH is publishing Y, not encrypting a key.
func (d *DHKeyex) WrapKey(sessionKey []byte) ([]byte, error) {
	if d.Public == nil {
		if err := d.GenerateKeyPair(); err != nil {
			return nil, err
		}
	}
	return d.Public.Bytes(), nil
}

// UnwrapKey computes the shared premaster secret peerY^x mod p, given
// the peer's public DH value.
func (d *DHKeyex) UnwrapKey(peerPublic []byte) ([]byte, error) {
	if d.private == nil {
		return nil, NewCryptoError("dh", ErrNoPrivateKey)
	}
	y := new(big.Int).SetBytes(peerPublic)
	if y.Sign() <= 0 || y.Cmp(d.Params.P) >= 0 {
		return nil, NewCryptoError("dh", ErrBadPeerPublicValue)
	}
	shared := new(big.Int).Exp(y, d.private, d.Params.P)
	// Pad to the byte length of p so the premaster length is fixed
	// regardless of leading zero bytes in the shared secret.
	out := make([]byte, (d.Params.P.BitLen()+7)/8)
	shared.FillBytes(out)
	return out, nil
}
