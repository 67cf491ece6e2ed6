package crypto

import "errors"

// Sentinel errors for crypto-binding misuse: asking a Context to
// perform an operation it wasn't configured for.
var (
	ErrNoPublicKey        = errors.New("crypto: no public key configured")
	ErrNoPrivateKey       = errors.New("crypto: no private key configured")
	ErrBadPeerPublicValue = errors.New("crypto: peer DH public value out of range")
)
