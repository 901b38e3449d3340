// Package profilecard fetches the compact influencer profiles shown in
// hover cards. Responses are cached in memory with an httpcache
// transport so repeated hovers over the same influencer don't hit the
// API again.
package profilecard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/gregjones/httpcache"
)

type Client struct {
	http    *http.Client
	baseURL *url.URL
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New builds a client for the given server origin. By default requests
// go through an in-memory caching transport honoring the server's
// cache headers.
func New(origin string, opts ...Option) (*Client, error) {
	if origin == "" {
		return nil, errors.New("origin required")
	}
	u, err := url.Parse(origin)
	if err != nil {
		return nil, fmt.Errorf("parse origin: %w", err)
	}
	c := &Client{
		http:    httpcache.NewMemoryCacheTransport().Client(),
		baseURL: u,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Profile is the hover-card payload.
type Profile struct {
	ID          int64   `json:"id"`
	Username    string  `json:"username"`
	DisplayName string  `json:"display_name"`
	Platform    string  `json:"platform"`
	Accuracy    float64 `json:"accuracy"`
	TotalCalls  int     `json:"total_calls"`
	Confidence  int     `json:"confidence_score"`
	Category    string  `json:"category"`
}

// Get fetches the mini-profile for one influencer.
func (c *Client) Get(ctx context.Context, influencerID int64) (Profile, error) {
	u := *c.baseURL
	u.Path = fmt.Sprintf("/api/influencer/%d/mini-profile", influencerID)

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return Profile{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Profile{}, err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		var envelope struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &envelope) == nil && envelope.Error != "" {
			return Profile{}, fmt.Errorf("mini-profile %d: %s", influencerID, envelope.Error)
		}
		return Profile{}, fmt.Errorf("mini-profile %d: status %d", influencerID, resp.StatusCode)
	}

	var p Profile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return Profile{}, fmt.Errorf("decode mini-profile: %w", err)
	}
	return p, nil
}
