package hackernews

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/custodia-labs/conduit-cli/internal/connectors"
	"github.com/custodia-labs/conduit-cli/internal/core/domain"
	"github.com/custodia-labs/conduit-cli/internal/core/services"
)

const (
	defaultCount = 10
	maxPages     = 5
	hitsPerPage  = 20
)

func f64(v float64) *float64 { return &v }

func searchInputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"query": {
				Type:        "string",
				Description: "Full-text search query",
			},
			"count": {
				Type:        "number",
				Minimum:     f64(1),
				Description: "Maximum number of results to return (default 10)",
			},
			"cursor": {
				Type:        "string",
				Description: "Opaque cursor from a previous call to continue paging",
			},
			"response_format": {
				Type:        "string",
				Enum:        []any{"concise", "detailed"},
				Description: "concise (default) returns id, title, url and points; detailed returns the full hit",
			},
		},
		Required: []string{"query"},
	}
}

func (c *Connector) ListTools(ctx context.Context) ([]domain.Tool, error) {
	return []domain.Tool{
		{
			Name:        "search",
			Description: "Search Hacker News by relevance",
			InputSchema: searchInputSchema(),
		},
		{
			Name:        "search_by_date",
			Description: "Search Hacker News, newest first",
			InputSchema: searchInputSchema(),
		},
		{
			Name:        "get_item",
			Description: "Fetch one Hacker News item (story or comment) by id",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"id": {
						Type:        "string",
						Description: "Hacker News item id",
					},
				},
				Required: []string{"id"},
			},
		},
	}, nil
}

func (c *Connector) CallTool(ctx context.Context, name string, args map[string]any) (*domain.CallToolResult, error) {
	switch name {
	case "search":
		return c.search(ctx, "search", args)
	case "search_by_date":
		return c.search(ctx, "search_by_date", args)
	case "get_item":
		return c.getItem(ctx, args)
	default:
		return nil, domain.ErrToolNotFound
	}
}

// hit is one Algolia search result.
type hit struct {
	ObjectID    string `json:"objectID"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Author      string `json:"author"`
	Points      int    `json:"points"`
	NumComments int    `json:"num_comments"`
	CreatedAt   string `json:"created_at"`
	StoryText   string `json:"story_text,omitempty"`
}

type searchPage struct {
	Hits    []hit `json:"hits"`
	Page    int   `json:"page"`
	NbPages int   `json:"nbPages"`
}

func (c *Connector) search(ctx context.Context, endpoint string, args map[string]any) (*domain.CallToolResult, error) {
	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, domain.InvalidParamsf("query is required")
	}
	count := intArg(args, "count", defaultCount)
	if count < 1 {
		return nil, domain.InvalidParamsf("count must be positive")
	}
	cursor, _ := args["cursor"].(string)
	format, err := responseFormat(args)
	if err != nil {
		return nil, err
	}

	result, err := services.Paginate(ctx, count, maxPages, cursor,
		func(ctx context.Context, cursor string, remaining int) (services.Page[hit], error) {
			return c.fetchPage(ctx, endpoint, query, cursor)
		},
		func(h hit) string { return h.ObjectID },
	)
	if err != nil {
		return nil, err
	}

	items := make([]any, 0, len(result.Items))
	for _, h := range result.Items {
		items = append(items, shapeHit(h, format))
	}
	payload := map[string]any{"items": items}
	if result.NextCursor != "" {
		payload["next_cursor"] = result.NextCursor
	}
	if len(items) == 0 {
		payload["message"] = "No results found"
	}
	return domain.NewStructuredResult(payload), nil
}

// fetchPage requests one Algolia page. The cursor is the decimal page index;
// empty means page zero.
func (c *Connector) fetchPage(ctx context.Context, endpoint, query, cursor string) (services.Page[hit], error) {
	page := 0
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil || n < 0 {
			return services.Page[hit]{}, domain.InvalidInputf("malformed cursor: %q", cursor)
		}
		page = n
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return services.Page[hit]{}, err
	}

	params := url.Values{
		"query":       {query},
		"page":        {strconv.Itoa(page)},
		"hitsPerPage": {strconv.Itoa(hitsPerPage)},
	}
	target := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, params.Encode())

	resp, err := connectors.DoRequest(ctx, c.client, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	})
	if err != nil {
		return services.Page[hit]{}, err
	}
	if err := connectors.CheckStatus(resp); err != nil {
		return services.Page[hit]{}, err
	}

	var parsed searchPage
	if err := connectors.DecodeJSON(resp, func(r io.Reader) error {
		return json.NewDecoder(r).Decode(&parsed)
	}); err != nil {
		return services.Page[hit]{}, err
	}

	next := ""
	if parsed.Page+1 < parsed.NbPages {
		next = strconv.Itoa(parsed.Page + 1)
	}
	return services.Page[hit]{Items: parsed.Hits, NextCursor: next}, nil
}

func (c *Connector) getItem(ctx context.Context, args map[string]any) (*domain.CallToolResult, error) {
	id, ok := args["id"].(string)
	if !ok || id == "" {
		return nil, domain.InvalidParamsf("id is required")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	target := fmt.Sprintf("%s/items/%s", c.baseURL, url.PathEscape(id))
	resp, err := connectors.DoRequest(ctx, c.client, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	})
	if err != nil {
		return nil, err
	}
	if err := connectors.CheckStatus(resp); err != nil {
		return nil, err
	}

	var item map[string]any
	if err := connectors.DecodeJSON(resp, func(r io.Reader) error {
		return json.NewDecoder(r).Decode(&item)
	}); err != nil {
		return nil, err
	}
	return domain.NewStructuredResult(item), nil
}

func shapeHit(h hit, format string) any {
	if format == "detailed" {
		return h
	}
	out := map[string]any{
		"id":    h.ObjectID,
		"title": h.Title,
	}
	if h.URL != "" {
		out["url"] = h.URL
	}
	out["points"] = h.Points
	out["num_comments"] = h.NumComments
	return out
}

func responseFormat(args map[string]any) (string, error) {
	raw, ok := args["response_format"]
	if !ok {
		return "concise", nil
	}
	format, ok := raw.(string)
	if !ok || (format != "concise" && format != "detailed") {
		return "", domain.InvalidParamsf("response_format must be \"concise\" or \"detailed\"")
	}
	return format, nil
}

// intArg reads a numeric argument. JSON numbers decode as float64.
func intArg(args map[string]any, key string, fallback int) int {
	raw, ok := args[key]
	if !ok {
		return fallback
	}
	switch v := raw.(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
