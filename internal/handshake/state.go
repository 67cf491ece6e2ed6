package handshake

import (
	"crypto/rand"
	"time"

	"cryptkit/internal/crypto"
	"cryptkit/internal/errors"
	"cryptkit/internal/sessioncache"
)

// Policy gates behaviors that differ from a strict reading of the TLS
// RFCs, mirroring a known cryptlib deviation: some deployed peers omit
// CertificateVerify even when a client certificate was requested, and
// a strict implementation refusing to interoperate with them is a
// worse default than accepting the omission behind an explicit flag.
// Neither ClientMachine nor ServerMachine builds or consumes a
// CertificateVerify message, and no code reads RequireCertificateVerify.
type Policy struct {
	RequireCertificateVerify bool
}

// Transcript accumulates the raw handshake message bytes (header
// included, record layer excluded) that feed both the Finished
// message's verify_data and, for a resumed session, nothing further
// (resumption skips the full message flow entirely).
type Transcript struct {
	messages []byte
}

// Append records one handshake message (with its 4-byte header) in
// the transcript, in send/receive order.
func (t *Transcript) Append(msgType MessageType, body []byte) []byte {
	wire := handshakeHeader(msgType, body)
	t.messages = append(t.messages, wire...)
	return wire
}

// Bytes returns the accumulated transcript for hashing.
func (t *Transcript) Bytes() []byte { return t.messages }

// ClientMachine drives the client side of one handshake, exposing one
// method per message the client builds or consumes, in order.
type ClientMachine struct {
	Version    [2]byte
	Suite      CipherSuite
	Transcript Transcript

	clientRandom Random
	serverRandom Random
	sessionID    []byte

	preMasterSecret []byte
	MasterSecret    []byte

	serverPublicKey *crypto.RSAKeyex
}

// NewClientMachine starts a client handshake; the offered suites are
// passed to BuildClientHello.
func NewClientMachine(version [2]byte) *ClientMachine {
	return &ClientMachine{Version: version}
}

// BuildClientHello produces the ClientHello message bytes (with
// handshake header) and records it in the transcript. sessionID may be
// non-empty to attempt resumption.
func (c *ClientMachine) BuildClientHello(offeredSuites []uint16, sessionID []byte) ([]byte, error) {
	if _, err := rand.Read(c.clientRandom[:]); err != nil {
		return nil, errors.Wrap(errors.ErrRandFailure, "handshake: client random generation")
	}
	binary4 := uint32(time.Now().Unix())
	c.clientRandom[0] = byte(binary4 >> 24)
	c.clientRandom[1] = byte(binary4 >> 16)
	c.clientRandom[2] = byte(binary4 >> 8)
	c.clientRandom[3] = byte(binary4)

	hello := ClientHello{
		Version:        c.Version,
		Random:         c.clientRandom,
		SessionID:      sessionID,
		CipherSuites:   offeredSuites,
		CompressionIDs: []byte{0},
	}
	body := hello.Encode()
	return c.Transcript.Append(MsgClientHello, body), nil
}

// ClientRandom returns the client hello random this machine generated.
func (c *ClientMachine) ClientRandom() Random { return c.clientRandom }

// ServerRandom returns the server hello random the peer supplied.
func (c *ClientMachine) ServerRandom() Random { return c.serverRandom }

// ConsumeServerHello parses the ServerHello body, selecting the
// negotiated suite and server random. If the server echoed a
// non-empty session ID matching one the client offered, the caller is
// expected to treat this as a resumption and skip straight to Finished
// verification; this method only records state, it doesn't decide
// that policy.
func (c *ClientMachine) ConsumeServerHello(body []byte) error {
	c.Transcript.Append(MsgServerHello, body)
	hello, err := DecodeServerHello(body)
	if err != nil {
		return err
	}
	suite, ok := Lookup(hello.CipherSuite)
	if !ok {
		return errors.Wrap(errors.ErrBadData, "handshake: server selected an unknown cipher suite")
	}
	c.Suite = suite
	c.serverRandom = hello.Random
	c.sessionID = hello.SessionID
	return nil
}

// ConsumeCertificate records the server Certificate message and binds
// keyex as the server's RSA public key. The message body is not parsed
// here; the caller extracts the leaf's key (x509 parsing lives outside
// this package).
func (c *ClientMachine) ConsumeCertificate(body []byte, keyex *crypto.RSAKeyex) {
	c.Transcript.Append(MsgCertificate, body)
	c.serverPublicKey = keyex
}

// ConsumeServerHelloDone records the (empty) ServerHelloDone message.
func (c *ClientMachine) ConsumeServerHelloDone(body []byte) {
	c.Transcript.Append(MsgServerHelloDone, body)
}

// BuildClientKeyExchangeRSA wraps a freshly generated 48-byte
// premaster secret (version || 46 random bytes) under the server's
// RSA public key and derives the master secret.
func (c *ClientMachine) BuildClientKeyExchangeRSA() ([]byte, error) {
	if c.serverPublicKey == nil {
		return nil, errors.Wrap(errors.ErrResourceRequired, "handshake: no server public key bound")
	}
	pms := make([]byte, 48)
	pms[0], pms[1] = c.Version[0], c.Version[1]
	if _, err := rand.Read(pms[2:]); err != nil {
		return nil, errors.Wrap(errors.ErrRandFailure, "handshake: premaster secret generation")
	}
	c.preMasterSecret = pms

	wrapped, err := c.serverPublicKey.WrapKey(pms)
	if err != nil {
		return nil, err
	}
	c.deriveMasterSecret()

	lenPrefixed := append([]byte{byte(len(wrapped) >> 8), byte(len(wrapped))}, wrapped...)
	return c.Transcript.Append(MsgClientKeyExchange, lenPrefixed), nil
}

func (c *ClientMachine) deriveMasterSecret() {
	if c.Version == [2]byte{3, 0} {
		c.MasterSecret = SSL3MasterSecret(c.preMasterSecret, c.clientRandom[:], c.serverRandom[:])
	} else {
		c.MasterSecret = MasterSecret(c.preMasterSecret, c.clientRandom[:], c.serverRandom[:])
	}
}

// BuildFinished computes and records the client Finished message.
func (c *ClientMachine) BuildFinished() []byte {
	var verifyData []byte
	if c.Version == [2]byte{3, 0} {
		verifyData = SSL3VerifyData(c.MasterSecret, SenderClient, c.Transcript.Bytes())
	} else {
		verifyData = VerifyData(c.MasterSecret, SenderClient, c.Transcript.Bytes())
	}
	return c.Transcript.Append(MsgFinished, verifyData)
}

// VerifyServerFinished checks the server's Finished message against
// the transcript as it stood immediately before this message (the
// server's verify_data covers everything up to but not including its
// own Finished message).
func (c *ClientMachine) VerifyServerFinished(body []byte) error {
	transcriptBeforeThis := c.Transcript.Bytes()
	var want []byte
	if c.Version == [2]byte{3, 0} {
		want = SSL3VerifyData(c.MasterSecret, SenderServer, transcriptBeforeThis)
	} else {
		want = VerifyData(c.MasterSecret, SenderServer, transcriptBeforeThis)
	}
	c.Transcript.Append(MsgFinished, body)
	if !constantTimeEqual(want, body) {
		return errors.Wrap(errors.ErrAuthFailed, "handshake: server Finished verification failed")
	}
	return nil
}

func constantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	var diff byte
	for i := range a {
		diff |= a[i] ^ b[i]
	}
	return diff == 0
}

// ServerMachine drives the server side of one handshake.
type ServerMachine struct {
	Version    [2]byte
	Suite      CipherSuite
	Transcript Transcript
	Policy     Policy

	clientRandom Random
	serverRandom Random

	preMasterSecret []byte
	MasterSecret    []byte

	keyex *crypto.RSAKeyex
	cache *sessioncache.Cache
}

// NewServerMachine starts a server handshake. ConsumeClientHello
// negotiates in Table's order; cache, when non-nil, receives sessions
// stored by CacheSession.
func NewServerMachine(version [2]byte, keyex *crypto.RSAKeyex, cache *sessioncache.Cache) *ServerMachine {
	return &ServerMachine{Version: version, keyex: keyex, cache: cache}
}

// ClientRandom returns the client hello random the peer supplied.
func (s *ServerMachine) ClientRandom() Random { return s.clientRandom }

// ServerRandom returns the server hello random this machine generated.
func (s *ServerMachine) ServerRandom() Random { return s.serverRandom }

// ConsumeClientHello parses the ClientHello and negotiates a suite.
func (s *ServerMachine) ConsumeClientHello(body []byte) error {
	s.Transcript.Append(MsgClientHello, body)
	hello, err := DecodeClientHello(body)
	if err != nil {
		return err
	}
	s.clientRandom = hello.Random
	suite, ok := Negotiate(hello.CipherSuites, Table)
	if !ok {
		return errors.Wrap(errors.ErrBadData, "handshake: no shared cipher suite")
	}
	s.Suite = suite
	return nil
}

// BuildServerHello picks a fresh session ID and produces the
// ServerHello message.
func (s *ServerMachine) BuildServerHello(sessionID []byte) ([]byte, error) {
	if _, err := rand.Read(s.serverRandom[:]); err != nil {
		return nil, errors.Wrap(errors.ErrRandFailure, "handshake: server random generation")
	}
	hello := ServerHello{
		Version:     s.Version,
		Random:      s.serverRandom,
		SessionID:   sessionID,
		CipherSuite: s.Suite.ID,
		Compression: 0,
	}
	return s.Transcript.Append(MsgServerHello, hello.Encode()), nil
}

// BuildServerHelloDone produces the (empty) ServerHelloDone message.
func (s *ServerMachine) BuildServerHelloDone() []byte {
	return s.Transcript.Append(MsgServerHelloDone, nil)
}

// ConsumeClientKeyExchangeRSA unwraps the client's RSA-encrypted
// premaster secret using the constant-time fallback path, so an
// encrypted premaster that fails RSA decryption or unpadding never
// produces an observable error (the Bleichenbacher countermeasure).
// A body too short for its own length prefix is rejected with
// ErrBadData.
func (s *ServerMachine) ConsumeClientKeyExchangeRSA(body []byte) error {
	s.Transcript.Append(MsgClientKeyExchange, body)
	if len(body) < 2 {
		return errors.Wrap(errors.ErrBadData, "handshake: short ClientKeyExchange")
	}
	wrappedLen := int(body[0])<<8 | int(body[1])
	if 2+wrappedLen > len(body) {
		return errors.Wrap(errors.ErrBadData, "handshake: ClientKeyExchange length overrun")
	}
	wrapped := body[2 : 2+wrappedLen]
	s.preMasterSecret = s.keyex.UnwrapKeyConstantTime(wrapped, 48)
	s.deriveMasterSecret()
	return nil
}

func (s *ServerMachine) deriveMasterSecret() {
	if s.Version == [2]byte{3, 0} {
		s.MasterSecret = SSL3MasterSecret(s.preMasterSecret, s.clientRandom[:], s.serverRandom[:])
	} else {
		s.MasterSecret = MasterSecret(s.preMasterSecret, s.clientRandom[:], s.serverRandom[:])
	}
}

// VerifyClientFinished checks the client's Finished message.
func (s *ServerMachine) VerifyClientFinished(body []byte) error {
	transcriptBeforeThis := s.Transcript.Bytes()
	var want []byte
	if s.Version == [2]byte{3, 0} {
		want = SSL3VerifyData(s.MasterSecret, SenderClient, transcriptBeforeThis)
	} else {
		want = VerifyData(s.MasterSecret, SenderClient, transcriptBeforeThis)
	}
	s.Transcript.Append(MsgFinished, body)
	if !constantTimeEqual(want, body) {
		return errors.Wrap(errors.ErrAuthFailed, "handshake: client Finished verification failed")
	}
	return nil
}

// BuildFinished computes and records the server Finished message.
func (s *ServerMachine) BuildFinished() []byte {
	var verifyData []byte
	if s.Version == [2]byte{3, 0} {
		verifyData = SSL3VerifyData(s.MasterSecret, SenderServer, s.Transcript.Bytes())
	} else {
		verifyData = VerifyData(s.MasterSecret, SenderServer, s.Transcript.Bytes())
	}
	return s.Transcript.Append(MsgFinished, verifyData)
}

// CacheSession stores this handshake's negotiated session for later
// resumption, if a session cache was configured.
func (s *ServerMachine) CacheSession(sessionID []byte) {
	if s.cache == nil {
		return
	}
	s.cache.Put(sessionID, s.MasterSecret, s.Suite.ID, s.Version)
}
