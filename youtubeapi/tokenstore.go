package youtubeapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/oauth2"

	"github.com/onnwee/chatwarden/crypto"
)

// ErrNoToken is returned by LoadToken when nothing has been stored yet.
var ErrNoToken = errors.New("no youtube token stored; run the authorize command first")

type TokenStore interface {
	SaveToken(ctx context.Context, tok *oauth2.Token) error
	LoadToken(ctx context.Context) (*oauth2.Token, error)
}

// FileTokenStore keeps the token as JSON in a single file. With a Sealer the file holds
// a sealed value instead; plaintext files are still readable so a key can be added
// later.
type FileTokenStore struct {
	Path   string
	Sealer *crypto.Sealer
}

func (s *FileTokenStore) SaveToken(_ context.Context, tok *oauth2.Token) error {
	if tok == nil || tok.AccessToken == "" {
		return fmt.Errorf("refusing to store empty token")
	}
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("marshal token: %w", err)
	}
	if s.Sealer != nil {
		sealed, err := s.Sealer.Seal(data)
		if err != nil {
			return fmt.Errorf("seal token: %w", err)
		}
		data = []byte(sealed)
	}
	dir := filepath.Dir(s.Path)
	tmp, err := os.CreateTemp(dir, ".token-*")
	if err != nil {
		return fmt.Errorf("create temp token file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod token file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close token file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		return fmt.Errorf("replace token file: %w", err)
	}
	return nil
}

func (s *FileTokenStore) LoadToken(_ context.Context) (*oauth2.Token, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, fmt.Errorf("read token file: %w", err)
	}
	if v := strings.TrimSpace(string(data)); crypto.IsSealed(v) {
		if s.Sealer == nil {
			return nil, fmt.Errorf("token file %s is sealed but ENCRYPTION_KEY is not set", s.Path)
		}
		if data, err = s.Sealer.Open(v); err != nil {
			return nil, fmt.Errorf("open token file: %w", err)
		}
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("decode token file: %w", err)
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, ErrNoToken
	}
	return &tok, nil
}
