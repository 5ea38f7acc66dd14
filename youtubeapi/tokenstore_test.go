package youtubeapi

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/onnwee/chatwarden/crypto"
)

func testSealer(t *testing.T) *crypto.Sealer {
	t.Helper()
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		t.Fatal(err)
	}
	s, err := crypto.NewSealer(base64.StdEncoding.EncodeToString(key))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func sampleToken() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  "ya29.access",
		RefreshToken: "1//refresh",
		TokenType:    "Bearer",
		Expiry:       time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestFileTokenStoreMissing(t *testing.T) {
	s := &FileTokenStore{Path: filepath.Join(t.TempDir(), "token.json")}
	if _, err := s.LoadToken(context.Background()); !errors.Is(err, ErrNoToken) {
		t.Errorf("err = %v, want ErrNoToken", err)
	}
}

func TestFileTokenStorePlainRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	s := &FileTokenStore{Path: path}
	if err := s.SaveToken(context.Background(), sampleToken()); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "ya29.access") {
		t.Errorf("plain store should write JSON, got %s", data)
	}
	info, _ := os.Stat(path)
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}
	tok, err := s.LoadToken(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if tok.AccessToken != "ya29.access" || tok.RefreshToken != "1//refresh" || !tok.Expiry.Equal(sampleToken().Expiry) {
		t.Errorf("loaded token = %+v", tok)
	}
}

func TestFileTokenStoreSealed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	sealer := testSealer(t)
	s := &FileTokenStore{Path: path, Sealer: sealer}
	if err := s.SaveToken(context.Background(), sampleToken()); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if !crypto.IsSealed(string(data)) || strings.Contains(string(data), "ya29") {
		t.Errorf("sealed store leaked plaintext: %s", data)
	}
	tok, err := s.LoadToken(context.Background())
	if err != nil || tok.AccessToken != "ya29.access" {
		t.Errorf("LoadToken = %+v, %v", tok, err)
	}

	if _, err := (&FileTokenStore{Path: path}).LoadToken(context.Background()); err == nil {
		t.Error("sealed file without key should fail")
	}
	if _, err := (&FileTokenStore{Path: path, Sealer: testSealer(t)}).LoadToken(context.Background()); err == nil {
		t.Error("sealed file with wrong key should fail")
	}
}

func TestFileTokenStoreReadsPlainWithKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	if err := (&FileTokenStore{Path: path}).SaveToken(context.Background(), sampleToken()); err != nil {
		t.Fatal(err)
	}
	tok, err := (&FileTokenStore{Path: path, Sealer: testSealer(t)}).LoadToken(context.Background())
	if err != nil || tok.AccessToken != "ya29.access" {
		t.Errorf("LoadToken = %+v, %v", tok, err)
	}
}

func TestFileTokenStoreRejectsEmpty(t *testing.T) {
	s := &FileTokenStore{Path: filepath.Join(t.TempDir(), "token.json")}
	if err := s.SaveToken(context.Background(), &oauth2.Token{}); err == nil {
		t.Error("empty token should not be stored")
	}
}
