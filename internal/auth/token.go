package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrAuthUnavailable means the demo-token endpoint was unreachable or
	// returned no token.
	ErrAuthUnavailable = errors.New("demo credential unavailable")
	// ErrRefreshInFlight is the soft failure reported to callers that find a
	// credential fetch already in progress. The guard is advisory: a caller
	// seeing it simply retries on its next action rather than blocking.
	ErrRefreshInFlight = errors.New("credential refresh already in flight")
	// ErrInvalidCredential means the stored token could not be decoded.
	ErrInvalidCredential = errors.New("invalid credential")
)

const settingKey = "credential"

// Persister is the slice of the local store the token store needs.
type Persister interface {
	SaveSetting(ctx context.Context, key, value string) error
	LoadSetting(ctx context.Context, key string) (string, error)
	DeleteSetting(ctx context.Context, key string) error
}

// Claims are the UI-facing fields decoded from the credential. They gate
// which panels render admin controls; they are never an authorization input
// for the server.
type Claims struct {
	Role    string
	Subject string
}

// TokenStore owns the bearer credential. It is the single writer; everyone
// else reads through Get or Ensure.
type TokenStore struct {
	persist Persister
	client  *http.Client
	demoURL string
	infoLog func(msg string, fields map[string]any)
	warnLog func(msg string, fields map[string]any)

	mu         sync.Mutex
	token      string
	refreshing bool
}

type Options struct {
	Persist Persister
	BaseURL string
	Timeout time.Duration
	InfoLog func(msg string, fields map[string]any)
	WarnLog func(msg string, fields map[string]any)
}

func NewTokenStore(ctx context.Context, opts Options) (*TokenStore, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	s := &TokenStore{
		persist: opts.Persist,
		client:  &http.Client{Timeout: timeout},
		demoURL: strings.TrimSuffix(opts.BaseURL, "/") + "/auth/demo-token",
		infoLog: opts.InfoLog,
		warnLog: opts.WarnLog,
	}
	if s.infoLog == nil {
		s.infoLog = func(string, map[string]any) {}
	}
	if s.warnLog == nil {
		s.warnLog = func(string, map[string]any) {}
	}
	if s.persist != nil {
		tok, err := s.persist.LoadSetting(ctx, settingKey)
		if err != nil {
			return nil, fmt.Errorf("load credential: %w", err)
		}
		s.token = tok
	}
	return s, nil
}

// Get returns the current credential, or "" if none is stored.
func (s *TokenStore) Get() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Set replaces the stored credential and persists it.
func (s *TokenStore) Set(ctx context.Context, token string) error {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	if s.persist == nil {
		return nil
	}
	return s.persist.SaveSetting(ctx, settingKey, token)
}

// Clear drops the stored credential.
func (s *TokenStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
	if s.persist == nil {
		return nil
	}
	return s.persist.DeleteSetting(ctx, settingKey)
}

// Ensure returns a usable credential, fetching a demo one when none is
// stored. Concurrent callers during a fetch observe ErrRefreshInFlight
// instead of issuing duplicate requests.
func (s *TokenStore) Ensure(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.token != "" {
		tok := s.token
		s.mu.Unlock()
		return tok, nil
	}
	s.mu.Unlock()
	return s.Refresh(ctx)
}

// Refresh discards the cached credential and fetches a fresh demo one. Used
// by the gateway after a 401.
func (s *TokenStore) Refresh(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.refreshing {
		s.mu.Unlock()
		return "", ErrRefreshInFlight
	}
	s.refreshing = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.refreshing = false
		s.mu.Unlock()
	}()

	tok, err := s.fetchDemoToken(ctx)
	if err != nil {
		s.warnLog("auth.demo_token_failed", map[string]any{"error": err.Error()})
		return "", err
	}
	if err := s.Set(ctx, tok); err != nil {
		return "", fmt.Errorf("persist credential: %w", err)
	}
	s.infoLog("auth.demo_token_loaded", nil)
	return tok, nil
}

func (s *TokenStore) fetchDemoToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.demoURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuthUnavailable, err)
	}
	res, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuthUnavailable, err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return "", fmt.Errorf("%w: status %d", ErrAuthUnavailable, res.StatusCode)
	}
	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuthUnavailable, err)
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access_token", ErrAuthUnavailable)
	}
	return body.AccessToken, nil
}

// Claims decodes the credential's payload segment without verifying the
// signature. Verification is the server's job; the client only reads role
// and subject for display gating.
func (s *TokenStore) Claims() (Claims, error) {
	return DecodeClaims(s.Get())
}

func DecodeClaims(token string) (Claims, error) {
	if strings.TrimSpace(token) == "" {
		return Claims{}, ErrInvalidCredential
	}
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	mc, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidCredential
	}
	out := Claims{}
	if role, ok := mc["role"].(string); ok {
		out.Role = role
	}
	if sub, err := mc.GetSubject(); err == nil {
		out.Subject = sub
	}
	return out, nil
}
