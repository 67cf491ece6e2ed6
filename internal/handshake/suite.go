// Package handshake implements the SSL 3.0 / TLS 1.0 / TLS 1.1
// handshake state machine: cipher-suite negotiation, the hello /
// certificate / key-exchange / Finished message flow, the TLS PRF and
// SSL 3.0 master-secret derivation, and storage of completed sessions
// in sessioncache. The state machines run the RSA key-exchange messages
// for every suite: DHE and PSK suites in Table can be negotiated but
// have no key-exchange messages of their own, a session ID offered in a
// ClientHello is not looked up for resumption, and CertificateVerify is
// neither built nor consumed.
package handshake

import "cryptkit/internal/crypto"

// KeyexKind identifies how a suite exchanges the premaster secret.
type KeyexKind int

const (
	KeyexRSA KeyexKind = iota
	KeyexDHE
	KeyexPSK
)

// CipherSuite describes one negotiable (keyex, cipher, mac) combination.
type CipherSuite struct {
	ID        uint16
	Name      string
	Keyex     KeyexKind
	Algorithm crypto.Algorithm
	Mode      crypto.Mode
	KeySize   int
	// MACIsSSL3 selects the two-pass proto-HMAC construction instead of
	// ordinary HMAC-SHA1; every suite below uses HMAC-SHA1 and the
	// caller substitutes the SSL 3.0 MAC when negotiating that version.
	MACIsSSL3 bool
}

// Table lists every cipher suite this implementation negotiates,
// spanning the standard RSA/DHE suites TLS 1.0/1.1 mandate and the
// Serpent-keyed suite this repo adds as a second bulk-cipher backend
// behind the same crypto-binding interface. There is no 3DES backend
// in the crypto package, so the legacy 0x000A suite ID is bound to the
// AES backend under a non-standard name rather than left unimplemented.
var Table = []CipherSuite{
	{ID: 0x000A, Name: "TLS_RSA_WITH_AES_192_CBC_SHA_LEGACY", Keyex: KeyexRSA, Algorithm: crypto.AlgAES, Mode: crypto.ModeCBC, KeySize: 24},
	{ID: 0x002F, Name: "TLS_RSA_WITH_AES_128_CBC_SHA", Keyex: KeyexRSA, Algorithm: crypto.AlgAES, Mode: crypto.ModeCBC, KeySize: 16},
	{ID: 0x0035, Name: "TLS_RSA_WITH_AES_256_CBC_SHA", Keyex: KeyexRSA, Algorithm: crypto.AlgAES, Mode: crypto.ModeCBC, KeySize: 32},
	{ID: 0x0033, Name: "TLS_DHE_RSA_WITH_AES_128_CBC_SHA", Keyex: KeyexDHE, Algorithm: crypto.AlgAES, Mode: crypto.ModeCBC, KeySize: 16},
	{ID: 0x0039, Name: "TLS_DHE_RSA_WITH_AES_256_CBC_SHA", Keyex: KeyexDHE, Algorithm: crypto.AlgAES, Mode: crypto.ModeCBC, KeySize: 32},
	{ID: 0x008C, Name: "TLS_PSK_WITH_AES_128_CBC_SHA", Keyex: KeyexPSK, Algorithm: crypto.AlgAES, Mode: crypto.ModeCBC, KeySize: 16},
	// Internal (non-IANA) suite ids for the Serpent-keyed backend,
	// reachable only when both peers opt into it out of band.
	{ID: 0xFF01, Name: "TLS_RSA_WITH_SERPENT_128_CBC_SHA", Keyex: KeyexRSA, Algorithm: crypto.AlgSerpent, Mode: crypto.ModeCBC, KeySize: 16},
	{ID: 0xFF02, Name: "TLS_RSA_WITH_SERPENT_256_CBC_SHA", Keyex: KeyexRSA, Algorithm: crypto.AlgSerpent, Mode: crypto.ModeCBC, KeySize: 32},
}

// Lookup finds a suite by ID.
func Lookup(id uint16) (CipherSuite, bool) {
	for _, s := range Table {
		if s.ID == id {
			return s, true
		}
	}
	return CipherSuite{}, false
}

// Negotiate picks the first suite in serverPreference that also
// appears in offered, TLS's standard server-preference negotiation
// rule. It returns ok=false if no suite is shared.
func Negotiate(offered []uint16, serverPreference []CipherSuite) (CipherSuite, bool) {
	offeredSet := make(map[uint16]bool, len(offered))
	for _, id := range offered {
		offeredSet[id] = true
	}
	for _, s := range serverPreference {
		if offeredSet[s.ID] {
			return s, true
		}
	}
	return CipherSuite{}, false
}
