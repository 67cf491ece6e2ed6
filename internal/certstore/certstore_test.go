package certstore

import (
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHandlerServesKnownCert(t *testing.T) {
	s := New()
	keyID := []byte{0xAA, 0xBB, 0xCC}
	der := []byte("fake DER certificate bytes")
	s.Put(keyID, der)

	req := httptest.NewRequest(http.MethodGet, "/certs?keyid="+hex.EncodeToString(keyID), nil)
	rec := httptest.NewRecorder()
	s.Handler()(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != string(der) {
		t.Fatalf("body = %q, want %q", rec.Body.String(), der)
	}
}

func TestHandlerRejectsUnknownKeyID(t *testing.T) {
	s := New()
	req := httptest.NewRequest(http.MethodGet, "/certs?keyid=deadbeef", nil)
	rec := httptest.NewRecorder()
	s.Handler()(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHandlerRejectsNonGET(t *testing.T) {
	s := New()
	req := httptest.NewRequest(http.MethodPost, "/certs?keyid=aa", nil)
	rec := httptest.NewRecorder()
	s.Handler()(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestHandlerRejectsMissingKeyID(t *testing.T) {
	s := New()
	req := httptest.NewRequest(http.MethodGet, "/certs", nil)
	rec := httptest.NewRecorder()
	s.Handler()(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandlerRejectsBadHex(t *testing.T) {
	s := New()
	req := httptest.NewRequest(http.MethodGet, "/certs?keyid=zzzz", nil)
	rec := httptest.NewRecorder()
	s.Handler()(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestLenTracksPuts(t *testing.T) {
	s := New()
	if s.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", s.Len())
	}
	s.Put([]byte{1}, []byte("a"))
	s.Put([]byte{2}, []byte("b"))
	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}
}

func TestKeyIDForDeterministic(t *testing.T) {
	der := []byte("a fake certificate")
	a := KeyIDFor(der)
	b := KeyIDFor(der)
	if hex.EncodeToString(a) != hex.EncodeToString(b) {
		t.Fatal("KeyIDFor is not deterministic")
	}
	if len(a) != 20 {
		t.Fatalf("len = %d, want 20 (SHA-1)", len(a))
	}
}
