package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

func randomKey(t *testing.T) string {
	t.Helper()
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return base64.StdEncoding.EncodeToString(key)
}

func TestNewSealer(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		errorMsg string
	}{
		{"empty key", "", "encryption key is empty"},
		{"invalid base64", "not-valid-base64!@#$", "base64 decode failed"},
		{"key too short", base64.StdEncoding.EncodeToString(make([]byte, 16)), "must be 32 bytes"},
		{"key too long", base64.StdEncoding.EncodeToString(make([]byte, 64)), "must be 32 bytes"},
		{"valid 32-byte key", base64.StdEncoding.EncodeToString(make([]byte, 32)), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSealer(tt.key)
			if tt.errorMsg == "" {
				if err != nil || s == nil {
					t.Fatalf("NewSealer() = %v, %v", s, err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errorMsg) {
				t.Errorf("NewSealer() error = %v, want containing %q", err, tt.errorMsg)
			}
		})
	}
}

func TestSealOpenRoundTrip(t *testing.T) {
	s, err := NewSealer(randomKey(t))
	if err != nil {
		t.Fatal(err)
	}
	for _, plain := range []string{
		"hello",
		`{"access_token":"ya29.a0AfH6SMBx","refresh_token":"1//0g"}`,
		strings.Repeat("a", 4096),
	} {
		sealed, err := s.Seal([]byte(plain))
		if err != nil {
			t.Fatalf("Seal() error = %v", err)
		}
		if !IsSealed(sealed) {
			t.Errorf("Seal() output %q lacks prefix", sealed)
		}
		if strings.Contains(sealed, plain) {
			t.Error("sealed output contains plaintext")
		}
		got, err := s.Open(sealed)
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		if string(got) != plain {
			t.Errorf("Open() = %q, want %q", got, plain)
		}
	}
}

func TestSealUsesFreshNonce(t *testing.T) {
	s, _ := NewSealer(randomKey(t))
	a, _ := s.Seal([]byte("same"))
	b, _ := s.Seal([]byte("same"))
	if a == b {
		t.Error("two seals of the same plaintext should differ")
	}
}

func TestSealEmpty(t *testing.T) {
	s, _ := NewSealer(randomKey(t))
	if _, err := s.Seal(nil); err == nil {
		t.Error("Seal(nil) should fail")
	}
}

func TestOpenRejects(t *testing.T) {
	s, _ := NewSealer(randomKey(t))
	other, _ := NewSealer(randomKey(t))
	sealed, _ := s.Seal([]byte("secret"))

	raw, _ := base64.StdEncoding.DecodeString(strings.TrimPrefix(sealed, SealedPrefix))
	raw[len(raw)-1] ^= 0xff
	tampered := SealedPrefix + base64.StdEncoding.EncodeToString(raw)

	tests := []struct {
		name  string
		value string
		by    *Sealer
		isErr error
	}{
		{"plaintext", `{"access_token":"x"}`, s, nil},
		{"bad base64", SealedPrefix + "***", s, nil},
		{"too short", SealedPrefix + base64.StdEncoding.EncodeToString([]byte("abc")), s, nil},
		{"tampered", tampered, s, ErrOpen},
		{"wrong key", sealed, other, ErrOpen},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.by.Open(tt.value)
			if err == nil {
				t.Fatal("Open() should fail")
			}
			if tt.isErr != nil && !errors.Is(err, tt.isErr) {
				t.Errorf("Open() error = %v, want %v", err, tt.isErr)
			}
		})
	}
}
