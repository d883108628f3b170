package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

type memPersist struct {
	mu       sync.Mutex
	settings map[string]string
	saves    int
}

func newMemPersist() *memPersist {
	return &memPersist{settings: map[string]string{}}
}

func (m *memPersist) SaveSetting(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[key] = value
	m.saves++
	return nil
}

func (m *memPersist) LoadSetting(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings[key], nil
}

func (m *memPersist) DeleteSetting(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.settings, key)
	return nil
}

// demoJWT builds an unsigned token whose payload the store can decode.
func demoJWT(payload string) string {
	enc := base64.RawURLEncoding.EncodeToString
	header := enc([]byte(`{"alg":"none","typ":"JWT"}`))
	return header + "." + enc([]byte(payload)) + "."
}

func demoServer(t *testing.T, token string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/demo-token" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"access_token":"` + token + `"}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestEnsureFetchesAndPersistsDemoToken(t *testing.T) {
	want := demoJWT(`{"sub":"demo-user","role":"user"}`)
	srv := demoServer(t, want)
	persist := newMemPersist()

	s, err := NewTokenStore(context.Background(), Options{Persist: persist, BaseURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	got, err := s.Ensure(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Fatalf("unexpected token %q", got)
	}
	if stored, _ := persist.LoadSetting(context.Background(), "credential"); stored != want {
		t.Fatalf("token not persisted, stored %q", stored)
	}

	// A second Ensure serves the cached credential.
	persist.mu.Lock()
	saves := persist.saves
	persist.mu.Unlock()
	if _, err := s.Ensure(context.Background()); err != nil {
		t.Fatal(err)
	}
	persist.mu.Lock()
	defer persist.mu.Unlock()
	if persist.saves != saves {
		t.Fatalf("cached Ensure should not refetch")
	}
}

func TestNewTokenStoreLoadsPersistedCredential(t *testing.T) {
	persist := newMemPersist()
	persist.settings["credential"] = "stored-token"

	s, err := NewTokenStore(context.Background(), Options{Persist: persist, BaseURL: "http://unused"})
	if err != nil {
		t.Fatal(err)
	}
	if got := s.Get(); got != "stored-token" {
		t.Fatalf("expected persisted credential, got %q", got)
	}
}

func TestRefreshGuardIsAdvisory(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Only the first request signals and blocks; the post-completion
		// refresh below hits the handler again.
		once.Do(func() {
			close(started)
			<-release
		})
		w.Write([]byte(`{"access_token":"tok"}`))
	}))
	defer srv.Close()

	s, err := NewTokenStore(context.Background(), Options{BaseURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := s.Refresh(context.Background())
		done <- err
	}()
	<-started

	if _, err := s.Refresh(context.Background()); !errors.Is(err, ErrRefreshInFlight) {
		t.Fatalf("expected ErrRefreshInFlight while a fetch is running, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatal(err)
	}

	// Guard releases once the fetch completes.
	if _, err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh after completion: %v", err)
	}
}

func TestRefreshAuthUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s, err := NewTokenStore(context.Background(), Options{BaseURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Refresh(context.Background()); !errors.Is(err, ErrAuthUnavailable) {
		t.Fatalf("expected ErrAuthUnavailable, got %v", err)
	}
}

func TestDecodeClaimsReadsRoleAndSubject(t *testing.T) {
	claims, err := DecodeClaims(demoJWT(`{"sub":"curator-7","role":"admin"}`))
	if err != nil {
		t.Fatal(err)
	}
	if claims.Role != "admin" || claims.Subject != "curator-7" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestDecodeClaimsRejectsMalformedToken(t *testing.T) {
	for _, tok := range []string{"", "   ", "not-a-jwt", "a.b"} {
		if _, err := DecodeClaims(tok); !errors.Is(err, ErrInvalidCredential) {
			t.Fatalf("token %q: expected ErrInvalidCredential, got %v", tok, err)
		}
	}
}
