// Package api is the HTTP client for the TaskDeck server. It speaks both
// credential modes: an opaque bearer token, or a cookie session with the
// anti-forgery handshake.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

const csrfHeaderName = "X-XSRF-TOKEN"

// APIError is a non-2xx response decoded from the server's error envelope.
type APIError struct {
	Status  int
	Message string
	Fields  map[string][]string
}

func (e *APIError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("%s (%d): %v", e.Message, e.Status, e.Fields)
	}
	return fmt.Sprintf("%s (%d)", e.Message, e.Status)
}

type Client struct {
	baseURL string
	http    *http.Client
	token   string

	// csrfToken mirrors the XSRF-TOKEN cookie for session-mode requests
	csrfToken string
}

// New builds a client for the given server. A non-empty token selects
// bearer mode; otherwise the client runs in cookie-session mode.
func New(baseURL, token string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Jar: jar, Timeout: 15 * time.Second},
		token:   token,
	}, nil
}

// Token returns the bearer token the client authenticates with.
func (c *Client) Token() string {
	return c.token
}

// SetToken switches the client to bearer mode with the given token.
func (c *Client) SetToken(token string) {
	c.token = token
}

// PrimeCSRF runs the anti-forgery handshake and caches the token the
// server handed out.
func (c *Client) PrimeCSRF(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/csrf-cookie", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("handshake failed with status %d", resp.StatusCode)
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return err
	}
	for _, ck := range c.http.Jar.Cookies(u) {
		if ck.Name == "XSRF-TOKEN" {
			c.csrfToken = ck.Value
			return nil
		}
	}
	return fmt.Errorf("handshake response carried no anti-forgery cookie")
}

// do sends one JSON request and decodes the response into out (when non-nil).
// In session mode a state-changing request rejected with 419 triggers one
// handshake and one retry; a second 419 is returned to the caller.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	retried := false
	for {
		resp, err := c.send(ctx, method, path, in)
		if err != nil {
			return err
		}

		if resp.StatusCode == statusForgeryCheckFailed && c.token == "" && !retried {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			if err := c.PrimeCSRF(ctx); err != nil {
				return err
			}
			retried = true
			continue
		}

		return decodeResponse(resp, out)
	}
}

const statusForgeryCheckFailed = 419

func (c *Client) send(ctx context.Context, method, path string, in any) (*http.Response, error) {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	} else if method != http.MethodGet && c.csrfToken != "" {
		req.Header.Set(csrfHeaderName, c.csrfToken)
	}

	return c.http.Do(req)
}

func decodeResponse(resp *http.Response, out any) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode, Message: "request failed"}
		var envelope struct {
			Message string              `json:"message"`
			Errors  map[string][]string `json:"errors"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil && envelope.Message != "" {
			apiErr.Message = envelope.Message
			apiErr.Fields = envelope.Errors
		}
		return apiErr
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
