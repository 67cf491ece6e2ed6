package handshake

import (
	"bytes"
	"testing"
)

func TestVerifyDataLength(t *testing.T) {
	vd := VerifyData(make([]byte, 48), SenderClient, []byte("transcript bytes"))
	if len(vd) != 12 {
		t.Fatalf("length = %d, want 12", len(vd))
	}
}

func TestVerifyDataDiffersByTranscript(t *testing.T) {
	ms := make([]byte, 48)
	a := VerifyData(ms, SenderClient, []byte("hello"))
	b := VerifyData(ms, SenderClient, []byte("world"))
	if bytes.Equal(a, b) {
		t.Fatal("expected different transcripts to produce different verify_data")
	}
}

func TestVerifyDataDiffersBySender(t *testing.T) {
	ms := make([]byte, 48)
	transcript := []byte("handshake messages")
	client := VerifyData(ms, SenderClient, transcript)
	server := VerifyData(ms, SenderServer, transcript)
	if bytes.Equal(client, server) {
		t.Fatal("expected client/server verify_data to differ")
	}
}

func TestSSL3VerifyDataLength(t *testing.T) {
	vd := SSL3VerifyData(make([]byte, 48), SenderClient, []byte("transcript bytes"))
	if len(vd) != 36 {
		t.Fatalf("length = %d, want 36 (16 MD5 + 20 SHA1)", len(vd))
	}
}

func TestSSL3VerifyDataDiffersBySender(t *testing.T) {
	ms := make([]byte, 48)
	transcript := []byte("handshake messages")
	client := SSL3VerifyData(ms, SenderClient, transcript)
	server := SSL3VerifyData(ms, SenderServer, transcript)
	if bytes.Equal(client, server) {
		t.Fatal("expected client/server verify_data to differ")
	}
}

func TestSSL3VerifyDataDeterministic(t *testing.T) {
	ms := make([]byte, 48)
	transcript := []byte("handshake messages")
	a := SSL3VerifyData(ms, SenderClient, transcript)
	b := SSL3VerifyData(ms, SenderClient, transcript)
	if !bytes.Equal(a, b) {
		t.Fatal("expected deterministic output")
	}
}
