package github

import (
	"context"
	"strings"

	gh "github.com/google/go-github/v80/github"
	"github.com/google/jsonschema-go/jsonschema"

	"github.com/custodia-labs/conduit-cli/internal/core/domain"
)

const defaultSearchCount = 10

func f64(v float64) *float64 { return &v }

func (c *Connector) ListTools(ctx context.Context) ([]domain.Tool, error) {
	return []domain.Tool{
		{
			Name:        "search_repos",
			Description: "Search GitHub repositories",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"query": {
						Type:        "string",
						Description: "GitHub search syntax, e.g. \"language:go stars:>100 cli\"",
					},
					"count": {
						Type:        "number",
						Minimum:     f64(1),
						Maximum:     f64(100),
						Description: "Maximum number of repositories to return (default 10, max 100)",
					},
					"response_format": {
						Type:        "string",
						Enum:        []any{"concise", "detailed"},
						Description: "concise (default) returns name, description, stars and URL",
					},
				},
				Required: []string{"query"},
			},
		},
		{
			Name:        "get_repo",
			Description: "Fetch one repository by owner/name",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"repo": {
						Type:        "string",
						Description: "Repository as \"owner/name\"",
					},
				},
				Required: []string{"repo"},
			},
		},
	}, nil
}

func (c *Connector) CallTool(ctx context.Context, name string, args map[string]any) (*domain.CallToolResult, error) {
	if c.client == nil {
		return nil, domain.Authenticationf("github is not configured; run setup first")
	}
	switch name {
	case "search_repos":
		return c.searchRepos(ctx, args)
	case "get_repo":
		return c.getRepo(ctx, args)
	default:
		return nil, domain.ErrToolNotFound
	}
}

func (c *Connector) searchRepos(ctx context.Context, args map[string]any) (*domain.CallToolResult, error) {
	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, domain.InvalidParamsf("query is required")
	}
	count := defaultSearchCount
	if raw, ok := args["count"].(float64); ok {
		count = int(raw)
	}
	if count < 1 || count > 100 {
		return nil, domain.InvalidParamsf("count must be between 1 and 100")
	}
	format, _ := args["response_format"].(string)

	result, _, err := c.client.Search.Repositories(ctx, query, &gh.SearchOptions{
		ListOptions: gh.ListOptions{PerPage: count},
	})
	if err != nil {
		return nil, mapError(err)
	}

	items := make([]any, 0, len(result.Repositories))
	for _, repo := range result.Repositories {
		if format == "detailed" {
			items = append(items, repo)
			continue
		}
		items = append(items, map[string]any{
			"full_name":   repo.GetFullName(),
			"description": repo.GetDescription(),
			"stars":       repo.GetStargazersCount(),
			"url":         repo.GetHTMLURL(),
		})
	}
	payload := map[string]any{
		"items": items,
		"total": result.GetTotal(),
	}
	if len(items) == 0 {
		payload["message"] = "No results found"
	}
	return domain.NewStructuredResult(payload), nil
}

func (c *Connector) getRepo(ctx context.Context, args map[string]any) (*domain.CallToolResult, error) {
	full, ok := args["repo"].(string)
	if !ok || full == "" {
		return nil, domain.InvalidParamsf("repo is required")
	}
	owner, name, ok := strings.Cut(full, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return nil, domain.InvalidParamsf("repo must be \"owner/name\": %q", full)
	}

	repo, _, err := c.client.Repositories.Get(ctx, owner, name)
	if err != nil {
		return nil, mapError(err)
	}
	return domain.NewStructuredResult(repo), nil
}
