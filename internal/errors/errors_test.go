package errors

import (
	"errors"
	"testing"
)

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrOverflow", ErrOverflow},
		{"ErrUnderflow", ErrUnderflow},
		{"ErrBadData", ErrBadData},
		{"ErrBadVersion", ErrBadVersion},
		{"ErrBadPadding", ErrBadPadding},
		{"ErrBadMAC", ErrBadMAC},
		{"ErrBadLength", ErrBadLength},
		{"ErrCorruptHeader", ErrCorruptHeader},
		{"ErrAuthFailed", ErrAuthFailed},
		{"ErrSignatureFailed", ErrSignatureFailed},
		{"ErrResourceRequired", ErrResourceRequired},
		{"ErrNotInitialised", ErrNotInitialised},
		{"ErrWrongState", ErrWrongState},
		{"ErrAlreadySet", ErrAlreadySet},
		{"ErrDuplicateAction", ErrDuplicateAction},
		{"ErrCancelled", ErrCancelled},
		{"ErrRandFailure", ErrRandFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err == nil {
				t.Error("sentinel error should not be nil")
			}
			if tt.err.Error() == "" {
				t.Error("sentinel error should have a message")
			}
		})
	}
}

func TestClassifyKind(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{ErrOverflow, KindRecoverable},
		{ErrUnderflow, KindRecoverable},
		{ErrResourceRequired, KindResourceRequired},
		{ErrBadData, KindPermanent},
		{ErrAuthFailed, KindPermanent},
	}
	for _, tt := range tests {
		if got := ClassifyKind(tt.err); got != tt.want {
			t.Errorf("ClassifyKind(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestCryptoError(t *testing.T) {
	baseErr := errors.New("underlying error")
	cryptoErr := NewCryptoError("rand", baseErr)

	if cryptoErr.Error() != "crypto rand: underlying error" {
		t.Errorf("unexpected error message: %s", cryptoErr.Error())
	}

	if cryptoErr.Unwrap() != baseErr {
		t.Error("Unwrap should return underlying error")
	}

	cryptoErrNil := NewCryptoError("hkdf", nil)
	if cryptoErrNil.Error() != "crypto hkdf failed" {
		t.Errorf("unexpected error message for nil: %s", cryptoErrNil.Error())
	}
}

func TestEnvelopeError(t *testing.T) {
	baseErr := errors.New("decode failed")
	envErr := NewEnvelopeError("contentType", baseErr)

	if envErr.Error() != "envelope contentType: decode failed" {
		t.Errorf("unexpected error message: %s", envErr.Error())
	}
	if envErr.Unwrap() != baseErr {
		t.Error("Unwrap should return underlying error")
	}
}

func TestRecordError(t *testing.T) {
	baseErr := errors.New("mac mismatch")
	recErr := NewRecordError("bad_record_mac", baseErr)

	if recErr.Error() != "tls record (bad_record_mac): mac mismatch" {
		t.Errorf("unexpected error message: %s", recErr.Error())
	}
	if recErr.Unwrap() != baseErr {
		t.Error("Unwrap should return underlying error")
	}
}

func TestHandshakeError(t *testing.T) {
	baseErr := errors.New("bad signature")
	hsErr := NewHandshakeError("server_key_exchange", baseErr)

	if hsErr.Error() != "tls handshake server_key_exchange: bad signature" {
		t.Errorf("unexpected error message: %s", hsErr.Error())
	}
	if hsErr.Unwrap() != baseErr {
		t.Error("Unwrap should return underlying error")
	}
}

func TestValidationError(t *testing.T) {
	validErr := NewValidationError("password", "must be at least 8 characters")

	expected := "validation: password: must be at least 8 characters"
	if validErr.Error() != expected {
		t.Errorf("unexpected error message: %s", validErr.Error())
	}
}

func TestIs(t *testing.T) {
	if !Is(ErrCancelled, ErrCancelled) {
		t.Error("Is should return true for same error")
	}

	if Is(ErrCancelled, ErrAuthFailed) {
		t.Error("Is should return false for different errors")
	}
}

func TestAs(t *testing.T) {
	cryptoErr := NewCryptoError("test", errors.New("test"))

	var target *CryptoError
	if !As(cryptoErr, &target) {
		t.Error("As should find CryptoError")
	}

	if target.Op != "test" {
		t.Errorf("unexpected Op: %s", target.Op)
	}
}

func TestWrap(t *testing.T) {
	baseErr := errors.New("base")
	wrapped := Wrap(baseErr, "context")

	if wrapped.Error() != "context: base" {
		t.Errorf("unexpected wrapped message: %s", wrapped.Error())
	}

	if Wrap(nil, "context") != nil {
		t.Error("Wrap(nil) should return nil")
	}
}

func TestConvenienceFunctions(t *testing.T) {
	if !IsRecoverable(ErrOverflow) {
		t.Error("IsRecoverable should return true for ErrOverflow")
	}
	if IsRecoverable(ErrBadData) {
		t.Error("IsRecoverable should return false for ErrBadData")
	}
	if !IsResourceRequired(ErrResourceRequired) {
		t.Error("IsResourceRequired should return true for ErrResourceRequired")
	}
}
