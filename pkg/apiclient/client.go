// Package apiclient provides a Go client for the auth API. It keeps the
// refresh token in a cookie jar (web flow) and transparently refreshes the
// access token when a request comes back 401.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

const (
	headerAuthFlow = "x-auth-flow"
	flowWeb        = "web"

	defaultTimeout = 30 * time.Second
)

// Client wraps an http.Client with bearer-token injection and a one-shot
// refresh-and-retry interceptor.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu             sync.RWMutex
	accessToken    string
	onTokenRefresh func(accessToken string)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client. A cookie jar is added
// when the given client has none, since the refresh flow depends on it.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithAccessToken seeds the client with an existing access token.
func WithAccessToken(token string) Option {
	return func(c *Client) {
		c.accessToken = token
	}
}

// WithTokenRefreshCallback registers a hook invoked with every new access
// token the interceptor obtains, so callers can persist it.
func WithTokenRefreshCallback(fn func(accessToken string)) Option {
	return func(c *Client) {
		c.onTokenRefresh = fn
	}
}

// New creates a client for the API at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}

	for _, opt := range opts {
		opt(client)
	}

	if client.httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, errors.Wrap(err, "create cookie jar")
		}
		client.httpClient.Jar = jar
	}

	return client, nil
}

// AccessToken returns the access token currently attached to requests.
func (c *Client) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.accessToken
}

// SetAccessToken replaces the access token attached to requests.
func (c *Client) SetAccessToken(token string) {
	c.mu.Lock()
	c.accessToken = token
	c.mu.Unlock()
}

// sessionEnvelope is the subset of the API response envelope the client needs.
type sessionEnvelope struct {
	Success bool `json:"success"`
	Data    struct {
		Tokens *struct {
			AccessToken string `json:"accessToken"`
		} `json:"tokens"`
	} `json:"data"`
}

// Login performs a web-flow credential login. The refresh token lands in the
// cookie jar and the access token is stored for subsequent requests.
func (c *Client) Login(ctx context.Context, email, password string) error {
	payload, err := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return errors.Wrap(err, "marshal login payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/auth/login", bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "build login request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerAuthFlow, flowWeb)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "login request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("login failed with status %d", resp.StatusCode)
	}

	token, err := accessTokenFromResponse(resp.Body)
	if err != nil {
		return err
	}

	c.SetAccessToken(token)
	if c.onTokenRefresh != nil {
		c.onTokenRefresh(token)
	}

	return nil
}

// Do sends the request with the current access token. When the response is
// 401 it performs one web-flow refresh and retries the original request
// exactly once. A failed refresh response is returned to the caller unchanged.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if err := bufferBody(req); err != nil {
		return nil, err
	}

	resp, err := c.doWithToken(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	refreshResp, err := c.refresh(req.Context())
	if err != nil {
		resp.Body.Close()

		return nil, err
	}

	if refreshResp.StatusCode != http.StatusOK {
		resp.Body.Close()

		return refreshResp, nil
	}

	token, err := accessTokenFromResponse(refreshResp.Body)
	refreshResp.Body.Close()
	if err != nil {
		resp.Body.Close()

		return nil, err
	}

	c.SetAccessToken(token)
	if c.onTokenRefresh != nil {
		c.onTokenRefresh(token)
	}

	resp.Body.Close()

	retry, err := cloneRequest(req)
	if err != nil {
		return nil, err
	}

	return c.doWithToken(retry)
}

func (c *Client) doWithToken(req *http.Request) (*http.Response, error) {
	if token := c.AccessToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)

	return resp, errors.Wrap(err, "send request")
}

// refresh rotates the session using the refresh cookie held in the jar.
func (c *Client) refresh(ctx context.Context) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/auth/refresh", strings.NewReader("{}"))
	if err != nil {
		return nil, errors.Wrap(err, "build refresh request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerAuthFlow, flowWeb)

	resp, err := c.httpClient.Do(req)

	return resp, errors.Wrap(err, "refresh request")
}

// bufferBody makes the request body replayable so a retried request carries
// the same payload.
func bufferBody(req *http.Request) error {
	if req.Body == nil || req.GetBody != nil {
		return nil
	}

	payload, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return errors.Wrap(err, "buffer request body")
	}

	req.Body = io.NopCloser(bytes.NewReader(payload))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(payload)), nil
	}

	return nil
}

func cloneRequest(req *http.Request) (*http.Request, error) {
	retry := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, errors.Wrap(err, "replay request body")
		}
		retry.Body = body
	}

	return retry, nil
}

func accessTokenFromResponse(body io.Reader) (string, error) {
	var env sessionEnvelope
	if err := json.NewDecoder(body).Decode(&env); err != nil {
		return "", errors.Wrap(err, "decode session envelope")
	}

	if env.Data.Tokens == nil || env.Data.Tokens.AccessToken == "" {
		return "", errors.New("session envelope carries no access token")
	}

	return env.Data.Tokens.AccessToken, nil
}
