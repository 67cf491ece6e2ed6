package handshake

import "testing"

func TestLookupKnownSuite(t *testing.T) {
	s, ok := Lookup(0x002F)
	if !ok {
		t.Fatal("expected suite 0x002F to be found")
	}
	if s.Name != "TLS_RSA_WITH_AES_128_CBC_SHA" {
		t.Fatalf("name = %q", s.Name)
	}
}

func TestLookupUnknownSuite(t *testing.T) {
	if _, ok := Lookup(0xDEAD); ok {
		t.Fatal("expected unknown suite to miss")
	}
}

func TestNegotiatePicksServerPreference(t *testing.T) {
	offered := []uint16{0x0035, 0x002F, 0x0033}
	suite, ok := Negotiate(offered, Table)
	if !ok {
		t.Fatal("expected a negotiated suite")
	}
	// Table lists 0x000A before 0x002F before 0x0035; 0x000A isn't
	// offered, so the first match in server-preference order is 0x002F.
	if suite.ID != 0x002F {
		t.Fatalf("negotiated suite = %x, want 0x002F", suite.ID)
	}
}

func TestNegotiateNoOverlap(t *testing.T) {
	if _, ok := Negotiate([]uint16{0xBEEF}, Table); ok {
		t.Fatal("expected no suite to negotiate")
	}
}
