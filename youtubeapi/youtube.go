// Package youtubeapi wraps Google OAuth2 client config and the YouTube Data API for
// reading and posting live chat messages. Tokens are persisted via the TokenStore
// interface so refreshed credentials survive restarts.
package youtubeapi

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"github.com/onnwee/chatwarden/config"
)

const defaultScope = yt.YoutubeForceSslScope

// OAuthConfig builds the OAuth client config. YT_CLIENT_ID/YT_CLIENT_SECRET win when
// set; otherwise the Google client secrets file is read.
func OAuthConfig(cfg *config.Config) (*oauth2.Config, error) {
	scopes := parseScopes(cfg.YTScopes)
	if cfg.YTClientID != "" {
		return &oauth2.Config{
			ClientID:     cfg.YTClientID,
			ClientSecret: cfg.YTClientSecret,
			Endpoint:     google.Endpoint,
			RedirectURL:  cfg.YTRedirectURI,
			Scopes:       scopes,
		}, nil
	}
	data, err := os.ReadFile(cfg.YTClientSecretFile)
	if err != nil {
		return nil, fmt.Errorf("read client secrets %s: %w (download it from the Google Cloud Console or set YT_CLIENT_ID)", cfg.YTClientSecretFile, err)
	}
	oc, err := google.ConfigFromJSON(data, scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse client secrets: %w", err)
	}
	if cfg.YTRedirectURI != "" {
		oc.RedirectURL = cfg.YTRedirectURI
	}
	return oc, nil
}

// parseScopes accepts comma or space separated scopes.
func parseScopes(s string) []string {
	fields := strings.Fields(strings.ReplaceAll(s, ",", " "))
	if len(fields) == 0 {
		return []string{defaultScope}
	}
	return fields
}

type Service struct {
	oauth *oauth2.Config
	store TokenStore
}

func New(oc *oauth2.Config, store TokenStore) *Service {
	return &Service{oauth: oc, store: store}
}

func (s *Service) AuthCodeURL(state string) string {
	return s.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for a token and persists it.
func (s *Service) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	if err := s.store.SaveToken(ctx, tok); err != nil {
		return nil, fmt.Errorf("save token: %w", err)
	}
	return tok, nil
}

// TokenSource returns a source seeded from the store that refreshes near expiry and
// writes every refreshed token back.
func (s *Service) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	tok, err := s.store.LoadToken(ctx)
	if err != nil {
		return nil, err
	}
	return &persistingSource{
		base:  s.oauth.TokenSource(ctx, tok),
		store: s.store,
		last:  tok.AccessToken,
	}, nil
}

// Client builds an authenticated YouTube service. Extra options are appended, which
// lets tests point the client at a mock endpoint.
func (s *Service) Client(ctx context.Context, opts ...option.ClientOption) (*yt.Service, error) {
	ts, err := s.TokenSource(ctx)
	if err != nil {
		return nil, err
	}
	opts = append([]option.ClientOption{option.WithHTTPClient(oauth2.NewClient(ctx, ts))}, opts...)
	svc, err := yt.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	return svc, nil
}

type persistingSource struct {
	mu    sync.Mutex
	base  oauth2.TokenSource
	store TokenStore
	last  string
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := p.base.Token()
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if tok.AccessToken != p.last {
		if err := p.store.SaveToken(context.Background(), tok); err != nil {
			slog.Warn("failed to persist refreshed youtube token", slog.Any("err", err))
		} else {
			slog.Info("youtube token refreshed", slog.Time("expiry", tok.Expiry))
		}
		p.last = tok.AccessToken
	}
	return tok, nil
}
