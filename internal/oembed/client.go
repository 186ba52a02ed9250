// Package oembed fetches embeddable TikTok markup through the platform's
// oEmbed API.
package oembed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"

	"tokwall/internal/httputil"
	"tokwall/internal/tiktok"
)

// maxBodyBytes caps oEmbed response reads; real payloads are a few KB.
const maxBodyBytes = 1 << 20

// Doer is the subset of *http.Client the fetcher needs.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Embed is the subset of TikTok's oEmbed response the wall consumes.
type Embed struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	ThumbnailURL string `json:"thumbnail_url"`
	HTML         string `json:"html"`
}

// Client fetches oEmbed fragments for TikTok video URLs.
type Client struct {
	http     Doer
	endpoint string
	limiter  *rate.Limiter
	log      *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithDoer replaces the underlying HTTP client.
func WithDoer(d Doer) Option {
	return func(c *Client) {
		if d != nil {
			c.http = d
		}
	}
}

// WithEndpoint points the client at a different oEmbed endpoint.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		if endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

// WithRateLimit throttles fetches to rps requests per second across all
// goroutines sharing the client. Zero or negative disables throttling.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithLogger routes the client's diagnostics through l.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// New creates a Client backed by the hardened default HTTP client.
func New(opts ...Option) *Client {
	c := &Client{
		http:     httputil.NewClient(),
		endpoint: tiktok.OEmbedEndpoint,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch retrieves oEmbed metadata for one video URL. It fails on transport
// errors, non-2xx statuses, and bodies without a usable html field.
func (c *Client) Fetch(ctx context.Context, videoURL string) (*Embed, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	reqURL := c.endpoint + "?url=" + url.QueryEscape(videoURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", httputil.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting oembed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("oembed returned status %d for %s", resp.StatusCode, videoURL)
	}

	var embed Embed
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&embed); err != nil {
		return nil, fmt.Errorf("decoding oembed response: %w", err)
	}
	if strings.TrimSpace(embed.HTML) == "" {
		return nil, fmt.Errorf("oembed response for %s has no html field", videoURL)
	}

	c.log.Debug("oembed: fetched", "url", videoURL, "title", embed.Title)
	return &embed, nil
}

// FetchHTML returns the embeddable fragment for one video URL with inline
// script tags stripped. TikTok ships a copy of its embed script inside
// every fragment; the wall injects that script once per page instead.
func (c *Client) FetchHTML(ctx context.Context, videoURL string) (string, error) {
	embed, err := c.Fetch(ctx, videoURL)
	if err != nil {
		return "", err
	}
	return stripScripts(embed.HTML), nil
}
