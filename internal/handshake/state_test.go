package handshake

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"testing"

	"cryptkit/internal/crypto"
	"cryptkit/internal/sessioncache"
)

func newTestRSAKeyPair(t *testing.T) (*crypto.RSAKeyex, *crypto.RSAKeyex) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("rsa.GenerateKey: %v", err)
	}
	serverSide := &crypto.RSAKeyex{Public: &priv.PublicKey, Private: priv}
	clientSide := &crypto.RSAKeyex{Public: &priv.PublicKey}
	return clientSide, serverSide
}

func TestFullHandshakeRSATLS11(t *testing.T) {
	clientKeyex, serverKeyex := newTestRSAKeyPair(t)
	version := [2]byte{3, 2} // TLS 1.1
	cache := sessioncache.New()

	client := NewClientMachine(version)
	server := NewServerMachine(version, serverKeyex, cache)

	clientHello, err := client.BuildClientHello([]uint16{0x0033, 0x002F, 0x0035}, nil)
	if err != nil {
		t.Fatalf("BuildClientHello: %v", err)
	}

	if err := server.ConsumeClientHello(stripHeader(t, clientHello)); err != nil {
		t.Fatalf("server ConsumeClientHello: %v", err)
	}
	sessionID := cache.NewSessionID([]byte("entropy"))
	serverHello, err := server.BuildServerHello(sessionID)
	if err != nil {
		t.Fatalf("BuildServerHello: %v", err)
	}

	if err := client.ConsumeServerHello(stripHeader(t, serverHello)); err != nil {
		t.Fatalf("client ConsumeServerHello: %v", err)
	}
	if client.Suite.ID != server.Suite.ID {
		t.Fatalf("suite mismatch: client=%x server=%x", client.Suite.ID, server.Suite.ID)
	}

	client.ConsumeCertificate([]byte{0x00, 0x00, 0x01, 0xAA}, clientKeyex)
	serverHelloDone := server.BuildServerHelloDone()
	client.ConsumeServerHelloDone(stripHeader(t, serverHelloDone))

	cke, err := client.BuildClientKeyExchangeRSA()
	if err != nil {
		t.Fatalf("BuildClientKeyExchangeRSA: %v", err)
	}
	if err := server.ConsumeClientKeyExchangeRSA(stripHeader(t, cke)); err != nil {
		t.Fatalf("server ConsumeClientKeyExchangeRSA: %v", err)
	}

	if !bytes.Equal(client.MasterSecret, server.MasterSecret) {
		t.Fatal("master secret mismatch between client and server")
	}

	clientFinished := client.BuildFinished()
	if err := server.VerifyClientFinished(stripHeader(t, clientFinished)); err != nil {
		t.Fatalf("server VerifyClientFinished: %v", err)
	}

	serverFinished := server.BuildFinished()
	if err := client.VerifyServerFinished(stripHeader(t, serverFinished)); err != nil {
		t.Fatalf("client VerifyServerFinished: %v", err)
	}

	server.CacheSession(sessionID)
	if _, err := cache.Get(sessionID); err != nil {
		t.Fatalf("expected session to be cached: %v", err)
	}
}

func TestFullHandshakeRSASSL30(t *testing.T) {
	clientKeyex, serverKeyex := newTestRSAKeyPair(t)
	version := [2]byte{3, 0} // SSL 3.0
	server := NewServerMachine(version, serverKeyex, nil)
	client := NewClientMachine(version)

	clientHello, err := client.BuildClientHello([]uint16{0x000A}, nil)
	if err != nil {
		t.Fatalf("BuildClientHello: %v", err)
	}
	if err := server.ConsumeClientHello(stripHeader(t, clientHello)); err != nil {
		t.Fatalf("server ConsumeClientHello: %v", err)
	}
	serverHello, err := server.BuildServerHello(nil)
	if err != nil {
		t.Fatalf("BuildServerHello: %v", err)
	}
	if err := client.ConsumeServerHello(stripHeader(t, serverHello)); err != nil {
		t.Fatalf("client ConsumeServerHello: %v", err)
	}
	client.ConsumeCertificate(nil, clientKeyex)
	client.ConsumeServerHelloDone(stripHeader(t, server.BuildServerHelloDone()))

	cke, err := client.BuildClientKeyExchangeRSA()
	if err != nil {
		t.Fatalf("BuildClientKeyExchangeRSA: %v", err)
	}
	if err := server.ConsumeClientKeyExchangeRSA(stripHeader(t, cke)); err != nil {
		t.Fatalf("server ConsumeClientKeyExchangeRSA: %v", err)
	}
	if !bytes.Equal(client.MasterSecret, server.MasterSecret) {
		t.Fatal("SSL 3.0 master secret mismatch")
	}

	if err := server.VerifyClientFinished(stripHeader(t, client.BuildFinished())); err != nil {
		t.Fatalf("server VerifyClientFinished (SSL 3.0): %v", err)
	}
	if err := client.VerifyServerFinished(stripHeader(t, server.BuildFinished())); err != nil {
		t.Fatalf("client VerifyServerFinished (SSL 3.0): %v", err)
	}
}

func TestClientKeyExchangeFailsWithoutCertificate(t *testing.T) {
	client := NewClientMachine([2]byte{3, 2})
	if _, err := client.BuildClientKeyExchangeRSA(); err == nil {
		t.Fatal("expected error when no server public key bound")
	}
}

func TestServerRejectsUnknownOfferedSuites(t *testing.T) {
	_, serverKeyex := newTestRSAKeyPair(t)
	server := NewServerMachine([2]byte{3, 2}, serverKeyex, nil)
	client := NewClientMachine([2]byte{3, 2})

	hello, err := client.BuildClientHello([]uint16{0xBEEF}, nil)
	if err != nil {
		t.Fatalf("BuildClientHello: %v", err)
	}
	if err := server.ConsumeClientHello(stripHeader(t, hello)); err == nil {
		t.Fatal("expected negotiation failure for unknown suite")
	}
}

// stripHeader removes the 4-byte handshake header a Build*/transcript
// append adds, since Consume*/Decode* operate on the bare message body.
func stripHeader(t *testing.T, wire []byte) []byte {
	t.Helper()
	if len(wire) < 4 {
		t.Fatalf("wire too short to contain a handshake header: %d bytes", len(wire))
	}
	return wire[4:]
}
