// Package search adapts the web-search API used by the research_venue tool.
// Failures here are never fatal: callers translate them into a "continue
// without research" directive.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "music-brief-scheduler/pkg/errors"
)

const maxSnippets = 5

// Client queries the configured search endpoint.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

func NewClient(apiKey, baseURL string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Configured reports whether a search key is present.
func (c *Client) Configured() bool { return c.apiKey != "" }

type searchResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			Description string `json:"description"`
		} `json:"results"`
	} `json:"web"`
}

// Snippets runs one query and returns up to five "title: description" lines.
func (c *Client) Snippets(ctx context.Context, query string) ([]string, error) {
	if !c.Configured() {
		return nil, apperrors.NewExternal("search.Snippets", "search", "no API key configured", nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"?q="+url.QueryEscape(query), nil)
	if err != nil {
		return nil, apperrors.NewExternal("search.Snippets", "search", "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.NewExternal("search.Snippets", "search", "request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewExternal("search.Snippets", "search",
			fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, apperrors.NewExternal("search.Snippets", "search", "decode response", err)
	}

	var out []string
	for _, r := range body.Web.Results {
		if len(out) == maxSnippets {
			break
		}
		title := strings.TrimSpace(r.Title)
		desc := strings.TrimSpace(r.Description)
		if title == "" && desc == "" {
			continue
		}
		out = append(out, title+": "+desc)
	}
	return out, nil
}
