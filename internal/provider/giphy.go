// Package provider talks to the third-party GIF search API and normalizes
// its payloads into rpc.GifResult values.
package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dom/gifbox/internal/metrics"
	"github.com/dom/gifbox/internal/rpc"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

var (
	ErrProviderUnavailable       = errors.New("gif provider unavailable")
	ErrProviderRateLimited       = errors.New("gif provider rate limited")
	ErrProviderMalformedResponse = errors.New("gif provider response could not be normalized")
)

const maxResponseBytes = 4 << 20

// Searcher is the gateway contract the dispatcher depends on.
type Searcher interface {
	Search(ctx context.Context, query string, page int) ([]rpc.GifResult, error)
}

type GiphyConfig struct {
	BaseURL  string
	APIKey   string
	Rating   string
	PageSize int
	Timeout  time.Duration
}

type Giphy struct {
	cfg        GiphyConfig
	httpClient *http.Client
	log        *zap.Logger
}

func NewGiphy(cfg GiphyConfig, log *zap.Logger) *Giphy {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 25
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Giphy{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		log: log.Named("giphy"),
	}
}

func (g *Giphy) Search(ctx context.Context, query string, page int) ([]rpc.GifResult, error) {
	start := time.Now()
	results, err := g.search(ctx, query, page)
	metrics.RecordProvider(outcome(err), time.Since(start))
	if err != nil {
		g.log.Warn("search failed", zap.String("query", query), zap.Int("page", page), zap.Error(err))
	}
	return results, err
}

func (g *Giphy) search(ctx context.Context, query string, page int) ([]rpc.GifResult, error) {
	// Giphy answers offsets past its window with a 400; there are no results there.
	if page < 0 || page > rpc.MaxSearchOffset/g.cfg.PageSize {
		return []rpc.GifResult{}, nil
	}

	endpoint, err := url.JoinPath(g.cfg.BaseURL, "v1", "gifs", "search")
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base url: %v", ErrProviderUnavailable, err)
	}

	params := url.Values{}
	params.Set("api_key", g.cfg.APIKey)
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(g.cfg.PageSize))
	params.Set("offset", strconv.Itoa(page*g.cfg.PageSize))
	if g.cfg.Rating != "" {
		params.Set("rating", g.cfg.Rating)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, redact(err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: status %d", ErrProviderRateLimited, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: status %d", ErrProviderUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrProviderUnavailable, redact(err))
	}

	return Normalize(body)
}

// Normalize converts a search payload into results. The item list lives
// under "data"; each item needs an id and at least one usable media url.
func Normalize(body []byte) ([]rpc.GifResult, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: body is not json", ErrProviderMalformedResponse)
	}

	data := gjson.GetBytes(body, "data")
	if !data.IsArray() {
		return nil, fmt.Errorf("%w: missing data array", ErrProviderMalformedResponse)
	}

	items := data.Array()
	results := make([]rpc.GifResult, 0, len(items))
	for i, item := range items {
		id := firstString(item, "id")
		mediaURL := firstString(item,
			"images.original.url",
			"images.downsized.url",
			"images.fixed_height.url",
			"url",
		)
		if id == "" || mediaURL == "" {
			return nil, fmt.Errorf("%w: item %d has no id or media url", ErrProviderMalformedResponse, i)
		}
		results = append(results, rpc.GifResult{
			ProviderItemID: id,
			Title:          firstString(item, "title", "slug"),
			URL:            mediaURL,
		})
	}
	return results, nil
}

func firstString(item gjson.Result, paths ...string) string {
	for _, p := range paths {
		v := item.Get(p)
		if v.Exists() && (v.Type == gjson.String || v.Type == gjson.Number) && v.String() != "" {
			return v.String()
		}
	}
	return ""
}

// redact strips the request URL, which carries the api key, from transport
// errors.
func redact(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrProviderRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrProviderMalformedResponse):
		return "malformed"
	default:
		return "unavailable"
	}
}
