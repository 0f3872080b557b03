// Package client invokes the gifbox RPC endpoint. It encodes and decodes
// envelopes with the same rpc package the server uses.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dom/gifbox/internal/rpc"
)

// ErrTransport reports that no response envelope could be obtained.
var ErrTransport = errors.New("gifbox server unreachable")

const maxResponseBytes = 4 << 20

type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

type Option func(*Client)

// WithHTTPClient replaces the default client, which times out after 30s.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken starts the client with a previously issued session token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New creates a client for the server at baseURL, e.g. http://localhost:8080.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/") + "/api/v1/rpc",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Call sends one request. A typed failure is returned as *rpc.Error; a
// failure to reach the server or read its reply wraps ErrTransport.
func (c *Client) Call(ctx context.Context, req rpc.Request) (rpc.Result, error) {
	body, err := rpc.Encode(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if token := c.Token(); token != "" && !req.Method().Public() {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrTransport, err)
	}

	decoded, err := rpc.DecodeResponse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: status %d: %v", ErrTransport, resp.StatusCode, err)
	}
	if decoded.Error != nil {
		return nil, decoded.Error
	}
	if decoded.Method != req.Method() {
		return nil, fmt.Errorf("%w: asked for %s, got %s", ErrTransport, req.Method(), decoded.Method)
	}
	return decoded.Result, nil
}

// Register creates an account and keeps the issued token for later calls.
func (c *Client) Register(ctx context.Context, handle, secret string) (*rpc.Session, error) {
	return c.session(ctx, rpc.Register{Handle: handle, Secret: secret})
}

// Login keeps the issued token for later calls. An empty scope asks for
// every scope.
func (c *Client) Login(ctx context.Context, handle, secret string, scope ...rpc.Scope) (*rpc.Session, error) {
	return c.session(ctx, rpc.Login{Handle: handle, Secret: secret, Scope: scope})
}

func (c *Client) SearchGifs(ctx context.Context, query string, page int) (*rpc.SearchResults, error) {
	result, err := c.Call(ctx, rpc.SearchGifs{Query: query, Page: page})
	if err != nil {
		return nil, err
	}
	return result.(*rpc.SearchResults), nil
}

func (c *Client) SaveGif(ctx context.Context, gif rpc.GifResult) (*rpc.SavedGif, error) {
	result, err := c.Call(ctx, rpc.SaveGif{
		ProviderItemID: gif.ProviderItemID,
		Title:          gif.Title,
		URL:            gif.URL,
	})
	if err != nil {
		return nil, err
	}
	return &result.(*rpc.SavedGifResult).Gif, nil
}

func (c *Client) ListSaved(ctx context.Context) ([]rpc.SavedGif, error) {
	result, err := c.Call(ctx, rpc.ListSaved{})
	if err != nil {
		return nil, err
	}
	return result.(*rpc.SavedList).Gifs, nil
}

func (c *Client) SetCategory(ctx context.Context, providerItemID, category string) (*rpc.SavedGif, error) {
	result, err := c.Call(ctx, rpc.SetCategory{ProviderItemID: providerItemID, Category: category})
	if err != nil {
		return nil, err
	}
	return &result.(*rpc.SavedGifResult).Gif, nil
}

func (c *Client) session(ctx context.Context, req rpc.Request) (*rpc.Session, error) {
	result, err := c.Call(ctx, req)
	if err != nil {
		return nil, err
	}
	session := result.(*rpc.Session)
	c.SetToken(session.Token)
	return session, nil
}
