package asn1stream

import (
	"bytes"
	"testing"
)

func TestEncodeLengthShortForm(t *testing.T) {
	got := EncodeLength(100)
	if !bytes.Equal(got, []byte{100}) {
		t.Fatalf("EncodeLength(100) = %x", got)
	}
}

func TestEncodeLengthLongForm(t *testing.T) {
	got := EncodeLength(300)
	// 300 = 0x012C, long form: 0x82 0x01 0x2C
	want := []byte{0x82, 0x01, 0x2C}
	if !bytes.Equal(got, want) {
		t.Fatalf("EncodeLength(300) = %x, want %x", got, want)
	}
}

func TestLengthDecoderShortForm(t *testing.T) {
	d := NewLengthDecoder()
	done, err := d.Feed(100)
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if !done {
		t.Fatal("short-form length should complete in one byte")
	}
	if d.Value() != 100 {
		t.Fatalf("Value() = %d, want 100", d.Value())
	}
}

func TestLengthDecoderLongForm(t *testing.T) {
	d := NewLengthDecoder()
	for i, b := range EncodeLength(300) {
		done, err := d.Feed(b)
		if err != nil {
			t.Fatalf("Feed(byte %d): %v", i, err)
		}
		if i < 2 && done {
			t.Fatalf("decoder completed early at byte %d", i)
		}
	}
	if d.Value() != 300 {
		t.Fatalf("Value() = %d, want 300", d.Value())
	}
}

func TestLengthDecoderIndefinite(t *testing.T) {
	d := NewLengthDecoder()
	done, err := d.Feed(0x80)
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if !done || !d.Indefinite() {
		t.Fatal("expected indefinite length to complete immediately")
	}
}

func TestLengthDecoderResumable(t *testing.T) {
	encoded := EncodeLength(70000) // forces a 3-byte long form
	d := NewLengthDecoder()
	var done bool
	for _, b := range encoded[:len(encoded)-1] {
		var err error
		done, err = d.Feed(b)
		if err != nil {
			t.Fatalf("Feed: %v", err)
		}
		if done {
			t.Fatal("decoder should not be done before last byte")
		}
	}
	done, err := d.Feed(encoded[len(encoded)-1])
	if err != nil {
		t.Fatalf("Feed final byte: %v", err)
	}
	if !done {
		t.Fatal("decoder should be done after final byte")
	}
	if d.Value() != 70000 {
		t.Fatalf("Value() = %d, want 70000", d.Value())
	}
}

func TestEncodeIndefiniteHeaderAndEndOfContents(t *testing.T) {
	h := EncodeIndefiniteHeader()
	if !bytes.Equal(h, []byte{0x24, 0x80}) {
		t.Fatalf("EncodeIndefiniteHeader() = %x", h)
	}
	eoc := EndOfContents()
	if !bytes.Equal(eoc, []byte{0x00, 0x00}) {
		t.Fatalf("EndOfContents() = %x", eoc)
	}
}
