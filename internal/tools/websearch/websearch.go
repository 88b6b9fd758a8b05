// Package websearch implements a single-backend web search tool. It
// generalizes the teacher's multi-backend websearch tool (SearXNG,
// DuckDuckGo, Brave) down to one configurable HTTP backend, since this
// system's spec names "web_search" only as a tool for the Planner's
// heuristics to recognize, not as a multi-provider search product.
package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/atlasrun/agentcore/internal/toolspec"
)

const schemaJSON = `{
  "type": "object",
  "properties": {
    "query": {"type": "string", "description": "the search query text"}
  },
  "required": ["query"]
}`

// Args is the web search tool's argument shape.
type Args struct {
	Query string `json:"query"`
}

// Result is one search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Backend fetches search results for a query against one concrete HTTP
// search provider. Config wires this to a SearXNG instance URL.
type Backend interface {
	Search(ctx context.Context, query string) ([]Result, error)
}

// Config configures the web search tool.
type Config struct {
	// SearXNGURL is the base URL of a SearXNG instance (e.g.
	// "https://searx.example.org"); "/search" is appended to it. Required.
	SearXNGURL string
	ResultCount int
	HTTPClient  *http.Client
}

// Tool performs web searches against a single configured backend.
type Tool struct {
	toolspec.Base
	backend Backend
}

// New constructs the web search tool against a SearXNG backend.
func New(cfg Config) (*Tool, error) {
	schema, err := toolspec.NewSchema(json.RawMessage(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("websearch: compile schema: %w", err)
	}
	if cfg.ResultCount <= 0 {
		cfg.ResultCount = 5
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}

	return &Tool{
		Base: toolspec.Base{
			ToolName:        "web_search",
			ToolDescription: "Search the web and return a short list of relevant results with titles, URLs, and snippets.",
			ToolSchema:      schema,
			ToolCategories:  []string{"search"},
			ToolPriority:    60,
		},
		backend: &searxngBackend{baseURL: cfg.SearXNGURL, resultCount: cfg.ResultCount, client: cfg.HTTPClient},
	}, nil
}

// Run executes the search and returns its results.
func (t *Tool) Run(ctx context.Context, raw json.RawMessage) (any, error) {
	var args Args
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("websearch: decode args: %w", err)
	}
	return t.backend.Search(ctx, args.Query)
}

type searxngBackend struct {
	baseURL     string
	resultCount int
	client      *http.Client
}

type searxngResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

func (b *searxngBackend) Search(ctx context.Context, query string) ([]Result, error) {
	u, err := url.Parse(b.baseURL + "/search")
	if err != nil {
		return nil, fmt.Errorf("websearch: invalid searxng url: %w", err)
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("format", "json")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("websearch: build request: %w", err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("websearch: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("websearch: searxng returned status %d", resp.StatusCode)
	}

	var parsed searxngResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("websearch: decode response: %w", err)
	}

	n := b.resultCount
	if n > len(parsed.Results) {
		n = len(parsed.Results)
	}
	out := make([]Result, n)
	for i := 0; i < n; i++ {
		out[i] = Result{
			Title:   parsed.Results[i].Title,
			URL:     parsed.Results[i].URL,
			Snippet: parsed.Results[i].Content,
		}
	}
	return out, nil
}
