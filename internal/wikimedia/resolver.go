// Package wikimedia resolves Wikimedia Commons file names to image URLs.
package wikimedia

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

const (
	DefaultEndpoint = "https://commons.wikimedia.org/w/api.php"
	userAgent       = "scholar/1.0 (Scripture Scholar study assistant)"
	cacheTTL        = 24 * time.Hour
)

// ErrNotFound is returned when Commons has no image for the file name.
var ErrNotFound = errors.New("file not found on Wikimedia Commons")

// Resolver looks up image URLs through the Commons imageinfo API. Successful
// lookups are cached and requests are paced to stay polite to the API.
type Resolver struct {
	endpoint   string
	httpClient *http.Client
	cache      *ristretto.Cache[string, string]
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// Option customizes a Resolver.
type Option func(*Resolver)

// WithEndpoint points the resolver at a different api.php URL.
func WithEndpoint(endpoint string) Option {
	return func(r *Resolver) { r.endpoint = endpoint }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Resolver) { r.httpClient = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a Resolver.
func New(opts ...Option) (*Resolver, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[string, string]{
		NumCounters: 10_000,
		MaxCost:     1 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create image cache: %w", err)
	}
	r := &Resolver{
		endpoint:   DefaultEndpoint,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		cache:      cache,
		limiter:    rate.NewLimiter(rate.Limit(5), 5),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Close releases the cache.
func (r *Resolver) Close() {
	r.cache.Close()
}

// Resolve returns the URL of the image for a file name such as "File:Salt_Lake_Temple.jpg".
func (r *Resolver) Resolve(ctx context.Context, filename string) (string, error) {
	if u, ok := r.cache.Get(filename); ok {
		return u, nil
	}
	if err := r.limiter.Wait(ctx); err != nil {
		return "", err
	}

	u, err := r.lookup(ctx, filename)
	if err != nil {
		r.logger.Info("image lookup failed", "file", filename, "error", err)
		return "", err
	}
	r.cache.SetWithTTL(filename, u, int64(len(u)), cacheTTL)
	r.logger.Debug("image resolved", "file", filename, "url", u)
	return u, nil
}

func (r *Resolver) lookup(ctx context.Context, filename string) (string, error) {
	q := url.Values{}
	q.Set("action", "query")
	q.Set("titles", filename)
	q.Set("prop", "imageinfo")
	q.Set("iiprop", "url")
	q.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("Wikimedia API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("Wikimedia API request failed with status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read Wikimedia response: %w", err)
	}

	// Only the first page matters; a title lookup returns exactly one.
	var pageID string
	var page gjson.Result
	gjson.GetBytes(body, "query.pages").ForEach(func(k, v gjson.Result) bool {
		pageID, page = k.String(), v
		return false
	})
	if pageID == "" || pageID == "-1" {
		return "", fmt.Errorf("%w: %s", ErrNotFound, filename)
	}
	u := page.Get("imageinfo.0.url").String()
	if u == "" {
		return "", fmt.Errorf("%w: no image URL for %s", ErrNotFound, filename)
	}
	return u, nil
}
