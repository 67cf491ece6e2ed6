package envelope

import (
	"bytes"
	"testing"

	"cryptkit/internal/crypto"
)

func newTestAESCipherPair(t *testing.T) (crypto.BlockCipher, crypto.BlockCipher) {
	t.Helper()
	key := bytes.Repeat([]byte{0x11}, 16)
	iv := bytes.Repeat([]byte{0x22}, 16)
	enc, err := crypto.NewBlockCipher(crypto.AlgAES, crypto.ModeCBC, key, iv)
	if err != nil {
		t.Fatalf("NewBlockCipher enc: %v", err)
	}
	dec, err := crypto.NewBlockCipher(crypto.AlgAES, crypto.ModeCBC, key, iv)
	if err != nil {
		t.Fatalf("NewBlockCipher dec: %v", err)
	}
	return enc, dec
}

func TestCMSRoundTripEncrypted(t *testing.T) {
	enc, dec := newTestAESCipherPair(t)

	w := NewCMSWriter(enc, nil)
	var wire []byte
	chunk1, err := w.Push([]byte("the quick brown fox jumps over"))
	if err != nil {
		t.Fatalf("Push 1: %v", err)
	}
	wire = append(wire, chunk1...)
	chunk2, err := w.Push([]byte(" the lazy dog, many times over"))
	if err != nil {
		t.Fatalf("Push 2: %v", err)
	}
	wire = append(wire, chunk2...)
	final, err := w.Push(nil)
	if err != nil {
		t.Fatalf("Push (flush): %v", err)
	}
	wire = append(wire, final...)

	r := NewCMSReader(dec, nil, 4096)
	plain, err := r.Push(wire)
	if err != nil {
		t.Fatalf("decode Push: %v", err)
	}

	want := "the quick brown fox jumps over the lazy dog, many times over"
	if string(plain) != want {
		t.Fatalf("decoded = %q, want %q", plain, want)
	}
}

func TestCMSRoundTripFedByteAtATime(t *testing.T) {
	enc, dec := newTestAESCipherPair(t)

	w := NewCMSWriter(enc, nil)
	var wire []byte
	c1, _ := w.Push([]byte("short message"))
	wire = append(wire, c1...)
	c2, _ := w.Push(nil)
	wire = append(wire, c2...)

	r := NewCMSReader(dec, nil, 4096)
	var plain []byte
	for i := 0; i < len(wire); i++ {
		out, err := r.Push(wire[i : i+1])
		if err != nil {
			t.Fatalf("Push(byte %d): %v", i, err)
		}
		plain = append(plain, out...)
	}

	if string(plain) != "short message" {
		t.Fatalf("decoded = %q", plain)
	}
}

func TestCMSRoundTripNoCipher(t *testing.T) {
	w := NewCMSWriter(nil, nil)
	var wire []byte
	c1, _ := w.Push([]byte("plaintext envelope"))
	wire = append(wire, c1...)
	c2, _ := w.Push(nil)
	wire = append(wire, c2...)

	r := NewCMSReader(nil, nil, 4096)
	plain, err := r.Push(wire)
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if string(plain) != "plaintext envelope" {
		t.Fatalf("decoded = %q", plain)
	}
}

func TestCMSWriterRejectsPushAfterFinish(t *testing.T) {
	w := NewCMSWriter(nil, nil)
	w.Push([]byte("data"))
	w.Push(nil)
	if _, err := w.Push([]byte("more")); err == nil {
		t.Fatal("expected error pushing after finish")
	}
}

func TestPadUnpadRoundTrip(t *testing.T) {
	for _, n := range []int{0, 1, 15, 16, 17, 31, 32} {
		data := bytes.Repeat([]byte{0xAB}, n)
		padded := Pad(data, 16)
		if len(padded)%16 != 0 {
			t.Fatalf("Pad(%d) length %d not block aligned", n, len(padded))
		}
		unpadded, err := Unpad(padded, 16)
		if err != nil {
			t.Fatalf("Unpad(n=%d): %v", n, err)
		}
		if !bytes.Equal(unpadded, data) {
			t.Fatalf("Unpad(Pad(data)) mismatch for n=%d", n)
		}
	}
}

func TestUnpadRejectsInconsistentPadding(t *testing.T) {
	data := make([]byte, 16)
	data[15] = 3
	data[14] = 9 // should be 3 to match pad length
	if _, err := Unpad(data, 16); err == nil {
		t.Fatal("expected error for inconsistent padding bytes")
	}
}

func TestUnpadRejectsOutOfRangePadLength(t *testing.T) {
	data := make([]byte, 16)
	data[15] = 0
	if _, err := Unpad(data, 16); err == nil {
		t.Fatal("expected error for zero pad length")
	}
	data[15] = 17
	if _, err := Unpad(data, 16); err == nil {
		t.Fatal("expected error for pad length exceeding block size")
	}
}
