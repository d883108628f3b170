package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"maqamlab/internal/auth"
)

type fakeTokens struct {
	token      string
	refreshed  int
	refreshErr error
}

func (f *fakeTokens) Ensure(ctx context.Context) (string, error) { return f.token, nil }

func (f *fakeTokens) Refresh(ctx context.Context) (string, error) {
	f.refreshed++
	if f.refreshErr != nil {
		return "", f.refreshErr
	}
	f.token = "refreshed-token"
	return f.token, nil
}

func TestCallAttachesBearerHeader(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, Tokens: &fakeTokens{token: "abc"}})
	if err := c.Call(context.Background(), http.MethodGet, "/api/status", nil, nil); err != nil {
		t.Fatal(err)
	}
	if got != "Bearer abc" {
		t.Fatalf("expected bearer header, got %q", got)
	}
}

func TestClientBootstrapsDemoToken(t *testing.T) {
	var fetches int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/demo-token":
			fetches++
			w.Write([]byte(`{"access_token":"demo-abc"}`))
		case "/status":
			if r.Header.Get("Authorization") != "Bearer demo-abc" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Write([]byte(`{"maqamet_count":12}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	tokens, err := auth.NewTokenStore(context.Background(), auth.Options{BaseURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	c := NewClient(Options{BaseURL: srv.URL, Tokens: tokens})

	// A fresh client with no stored credential fetches one on first use.
	status, err := c.Status(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if status.MaqametCount != 12 {
		t.Fatalf("unexpected status %+v", status)
	}
	if fetches != 1 {
		t.Fatalf("expected one demo-token fetch, got %d", fetches)
	}

	// The credential is cached for the next call.
	if _, err := c.Status(context.Background()); err != nil {
		t.Fatal(err)
	}
	if fetches != 1 {
		t.Fatalf("cached credential should be reused, got %d fetches", fetches)
	}
}

func TestCallRetriesOnceAfterRefresh(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.Header.Get("Authorization") != "Bearer refreshed-token" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"Token expired"}`))
			return
		}
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	tokens := &fakeTokens{token: "stale"}
	c := NewClient(Options{BaseURL: srv.URL, Tokens: tokens})
	var out struct {
		Status string `json:"status"`
	}
	if err := c.Call(context.Background(), http.MethodGet, "/api/status", nil, &out); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Fatalf("expected original call plus one retry, got %d calls", calls)
	}
	if tokens.refreshed != 1 {
		t.Fatalf("expected one refresh, got %d", tokens.refreshed)
	}
	if out.Status != "ok" {
		t.Fatalf("retried response not decoded: %+v", out)
	}
}

func TestCallNeverRetriesTwice(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"Invalid token"}`))
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, Tokens: &fakeTokens{token: "stale"}})
	err := c.Call(context.Background(), http.MethodGet, "/api/status", nil, nil)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected exactly 2 calls, got %d", calls)
	}
}

func TestCallNoRetryWhenRefreshFails(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	tokens := &fakeTokens{token: "stale", refreshErr: errors.New("network down")}
	c := NewClient(Options{BaseURL: srv.URL, Tokens: tokens})
	err := c.Call(context.Background(), http.MethodGet, "/api/status", nil, nil)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected no retry when refresh fails, got %d calls", calls)
	}
}

func TestCallSurfacesServerErrorMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"Maqam not found"}`))
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL})
	err := c.Call(context.Background(), http.MethodGet, "/api/maqamat/999", nil, nil)
	var se *ServerError
	if !errors.As(err, &se) {
		t.Fatalf("expected *ServerError, got %v", err)
	}
	if se.Status != http.StatusNotFound || se.Message != "Maqam not found" {
		t.Fatalf("unexpected server error %+v", se)
	}
}

func TestCallEncodesJSONBody(t *testing.T) {
	var ct, body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ct = r.Header.Get("Content-Type")
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL})
	payload := map[string]string{"name_en": "Rast"}
	if err := c.Call(context.Background(), http.MethodPut, "/api/maqamat/1", payload, nil); err != nil {
		t.Fatal(err)
	}
	if ct != "application/json" {
		t.Fatalf("expected JSON content type, got %q", ct)
	}
	if !strings.Contains(body, `"name_en":"Rast"`) {
		t.Fatalf("body not encoded: %s", body)
	}
}

func TestCallEncodesMultipartBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if got := r.FormValue("title"); got != "Dawn recording" {
			t.Errorf("field title = %q", got)
		}
		f, hdr, err := r.FormFile("audio")
		if err != nil {
			t.Errorf("form file: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer f.Close()
		if hdr.Filename != "take1.mp3" {
			t.Errorf("filename = %q", hdr.Filename)
		}
		raw, _ := io.ReadAll(f)
		if string(raw) != "RIFFdata" {
			t.Errorf("file bytes = %q", raw)
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL})
	body := &Multipart{
		Fields:   map[string]string{"title": "Dawn recording"},
		FileName: "take1.mp3",
		File:     []byte("RIFFdata"),
	}
	if err := c.Call(context.Background(), http.MethodPost, "/api/contributions", body, nil); err != nil {
		t.Fatal(err)
	}
}
