package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// ErrUnauthorized is returned when a call still fails with 401 after the
// single transparent re-authentication attempt.
var ErrUnauthorized = errors.New("unauthorized")

// ServerError carries the server's message field for any non-2xx response.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("Error %d", e.Status)
}

// TokenSource resolves and refreshes the bearer credential. Satisfied by
// *auth.TokenStore.
type TokenSource interface {
	Ensure(ctx context.Context) (string, error)
	Refresh(ctx context.Context) (string, error)
}

// Multipart is a file-bearing request body: plain fields plus one file part.
type Multipart struct {
	Fields   map[string]string
	FileName string
	FilePart string
	File     []byte
}

// Client is the single chokepoint for all API calls. It attaches the
// credential, encodes bodies, and retries exactly once on a 401 after
// refreshing the demo credential.
type Client struct {
	base    string
	http    *http.Client
	tokens  TokenSource
	warnLog func(msg string, fields map[string]any)
}

type Options struct {
	BaseURL string
	Tokens  TokenSource
	Timeout time.Duration
	WarnLog func(msg string, fields map[string]any)
}

func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	warn := opts.WarnLog
	if warn == nil {
		warn = func(string, map[string]any) {}
	}
	return &Client{
		base:    strings.TrimSuffix(opts.BaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		tokens:  opts.Tokens,
		warnLog: warn,
	}
}

// Call issues one request. body may be nil, a *Multipart, or any
// JSON-marshalable value. out, when non-nil, receives the decoded 2xx body.
func (c *Client) Call(ctx context.Context, method, path string, body, out any) error {
	return c.call(ctx, method, path, body, out, false)
}

func (c *Client) call(ctx context.Context, method, path string, body, out any, skipRetry bool) error {
	req, err := c.buildRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if c.tokens != nil {
		if tok, err := c.tokens.Ensure(ctx); err == nil && tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		} else if err != nil {
			// A missing credential is not fatal here: the server decides
			// whether the route needs one.
			c.warnLog("api.credential_unavailable", map[string]any{"error": err.Error()})
		}
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	raw, _ := io.ReadAll(res.Body)

	if res.StatusCode == http.StatusUnauthorized && !skipRetry && c.tokens != nil {
		if _, err := c.tokens.Refresh(ctx); err == nil {
			return c.call(ctx, method, path, body, out, true)
		}
	}
	if res.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: %s", ErrUnauthorized, serverMessage(raw, res.StatusCode))
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return &ServerError{Status: res.StatusCode, Message: serverMessage(raw, 0)}
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s %s: decoding response: %w", method, path, err)
	}
	return nil
}

func (c *Client) buildRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	url := c.base + path
	switch b := body.(type) {
	case nil:
		return http.NewRequestWithContext(ctx, method, url, nil)
	case *Multipart:
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		for k, v := range b.Fields {
			if err := w.WriteField(k, v); err != nil {
				return nil, err
			}
		}
		part := b.FilePart
		if part == "" {
			part = "audio"
		}
		fw, err := w.CreateFormFile(part, b.FileName)
		if err != nil {
			return nil, err
		}
		if _, err := fw.Write(b.File); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, method, url, &buf)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", w.FormDataContentType())
		return req, nil
	default:
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}
}

func serverMessage(raw []byte, fallbackStatus int) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Error != "" {
			return body.Error
		}
		if body.Message != "" {
			return body.Message
		}
	}
	if fallbackStatus > 0 {
		return fmt.Sprintf("Error %d", fallbackStatus)
	}
	return ""
}
