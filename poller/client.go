// SPDX-FileCopyrightText: 2026 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package poller

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

var (
	// ErrAuth is returned when the controller rejects the credentials.
	ErrAuth = errors.New("authentication failed")
	// ErrAPI is returned when the controller answers with an error.
	ErrAPI = errors.New("controller error")
)

// client talks to the UniFi OS REST API. The session cookie is kept in
// a cookie jar and the CSRF token is sent back with each request.
type client struct {
	config  Configuration
	baseURL string
	http    *http.Client

	mu            sync.Mutex
	csrf          string
	authenticated bool
}

func newClient(config Configuration) (*client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	baseURL := url.URL{Scheme: "https", Host: config.Host}
	if config.Port != 443 {
		baseURL.Host = fmt.Sprintf("%s:%d", config.Host, config.Port)
	}
	return &client{
		config:  config,
		baseURL: baseURL.String(),
		http: &http.Client{
			Jar:     jar,
			Timeout: config.Timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: config.InsecureSkipVerify,
				},
			},
		},
	}, nil
}

// envelope is the wrapper around every controller answer.
type envelope struct {
	Meta struct {
		RC  string `json:"rc"`
		Msg string `json:"msg"`
	} `json:"meta"`
	Data []interface{} `json:"data"`
}

func (c *client) updateCSRF(resp *http.Response) {
	token := resp.Header.Get("X-Updated-CSRF-Token")
	if token == "" {
		token = resp.Header.Get("X-CSRF-Token")
	}
	if token != "" {
		c.mu.Lock()
		c.csrf = token
		c.mu.Unlock()
	}
}

// login opens a new session.
func (c *client) login(ctx context.Context) error {
	body, err := json.Marshal(map[string]string{
		"username": c.config.Username,
		"password": c.config.Password,
	})
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.authenticated = false
	c.csrf = ""
	c.mu.Unlock()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/auth/login", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("unable to build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("unable to login: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return backoff.Permanent(fmt.Errorf("%w: status %d", ErrAuth, resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: status %d", ErrAuth, resp.StatusCode)
	}
	c.updateCSRF(resp)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.csrf == "" {
		return backoff.Permanent(fmt.Errorf("%w: no CSRF token in login answer", ErrAuth))
	}
	c.authenticated = true
	return nil
}

// loginWithRetry logs in, retrying with an exponential backoff on
// transient failures.
func (c *client) loginWithRetry(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = min(time.Second, c.config.Interval/10)
	b.MaxInterval = c.config.Interval
	b.MaxElapsedTime = c.config.LoginRetry
	return backoff.Retry(func() error {
		return c.login(ctx)
	}, backoff.WithContext(b, ctx))
}

// ensureAuth logs in if there is no valid session.
func (c *client) ensureAuth(ctx context.Context) error {
	c.mu.Lock()
	authenticated := c.authenticated
	c.mu.Unlock()
	if authenticated {
		return nil
	}
	return c.loginWithRetry(ctx)
}

// get fetches a site endpoint and returns the data part of the answer.
// On 401, it logs in again and retries once.
func (c *client) get(ctx context.Context, endpoint string) ([]interface{}, error) {
	path := fmt.Sprintf("/proxy/network/api/s/%s/stat/%s", url.PathEscape(c.config.Site), endpoint)
	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return nil, fmt.Errorf("unable to build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		c.mu.Lock()
		if c.csrf != "" {
			req.Header.Set("X-CSRF-Token", c.csrf)
		}
		c.mu.Unlock()

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("unable to fetch %s: %w", endpoint, err)
		}
		c.updateCSRF(resp)
		if resp.StatusCode == http.StatusUnauthorized && attempt == 0 {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			if err := c.login(ctx); err != nil {
				return nil, err
			}
			continue
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
			excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 300))
			return nil, fmt.Errorf("%w: GET %s: status %d: %s",
				ErrAPI, path, resp.StatusCode, bytes.TrimSpace(excerpt))
		}
		var answer envelope
		if err := json.NewDecoder(resp.Body).Decode(&answer); err != nil {
			return nil, fmt.Errorf("cannot decode JSON answer for %s: %w", endpoint, err)
		}
		if answer.Meta.RC != "ok" {
			msg := answer.Meta.Msg
			if msg == "" {
				msg = "unknown"
			}
			return nil, fmt.Errorf("%w: %s: %s", ErrAPI, endpoint, strconv.Quote(msg))
		}
		if answer.Data == nil {
			return []interface{}{}, nil
		}
		return answer.Data, nil
	}
}

// close drops the current session.
func (c *client) close() {
	c.mu.Lock()
	c.authenticated = false
	c.mu.Unlock()
	c.http.CloseIdleConnections()
}
