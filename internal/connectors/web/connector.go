// Package web exposes a single fetch tool that downloads a page and
// extracts its title, metadata, text and links. Parsing runs on the CPU
// pool so large documents never stall request goroutines.
package web

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"unicode/utf8"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/custodia-labs/conduit-cli/internal/connectors"
	"github.com/custodia-labs/conduit-cli/internal/core/domain"
	"github.com/custodia-labs/conduit-cli/internal/core/ports/driven"
	"github.com/custodia-labs/conduit-cli/internal/cpupool"
)

// maxBodyBytes caps how much of a page is downloaded before parsing.
const maxBodyBytes = 4 << 20

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// Connector fetches and scrapes arbitrary web pages.
type Connector struct {
	client *http.Client
	pool   *cpupool.Pool
}

// New creates a web connector using the shared default CPU pool.
func New() *Connector {
	return &Connector{client: connectors.NewHTTPClient(), pool: cpupool.Default()}
}

// NewWithDeps creates a connector with explicit transport and pool. Used by tests.
func NewWithDeps(client *http.Client, pool *cpupool.Pool) *Connector {
	return &Connector{client: client, pool: pool}
}

func (c *Connector) Name() string        { return "web" }
func (c *Connector) Description() string { return "Fetch and extract content from web pages" }

func (c *Connector) CredentialKey() string { return c.Name() }

func (c *Connector) AuthType() domain.AuthType { return domain.AuthNone }

func (c *Connector) Capabilities() domain.ServerCapabilities {
	return domain.ServerCapabilities{Tools: &domain.ToolsCapability{}}
}

func (c *Connector) Initialize(ctx context.Context) error { return nil }

func (c *Connector) ConfigSchema() domain.ConfigSchema { return domain.ConfigSchema{} }

func (c *Connector) AuthDetails() (domain.AuthDetails, error) {
	return domain.AuthDetails{}, nil
}

func (c *Connector) SetAuthDetails(details domain.AuthDetails) error {
	if len(details) > 0 {
		return domain.InvalidInputf("web takes no credentials")
	}
	return nil
}

func (c *Connector) TestAuth(ctx context.Context) error { return nil }

func (c *Connector) ListTools(ctx context.Context) ([]domain.Tool, error) {
	return []domain.Tool{
		{
			Name:        "fetch",
			Description: "Download a web page and extract title, description, text and links",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"url": {
						Type:        "string",
						Description: "Absolute http(s) URL to fetch",
					},
					"response_format": {
						Type:        "string",
						Enum:        []any{"concise", "detailed"},
						Description: "concise (default) omits the link list and truncates text",
					},
				},
				Required: []string{"url"},
			},
		},
	}, nil
}

func (c *Connector) CallTool(ctx context.Context, name string, args map[string]any) (*domain.CallToolResult, error) {
	if name != "fetch" {
		return nil, domain.ErrToolNotFound
	}
	return c.fetch(ctx, args)
}

func (c *Connector) fetch(ctx context.Context, args map[string]any) (*domain.CallToolResult, error) {
	rawURL, ok := args["url"].(string)
	if !ok || rawURL == "" {
		return nil, domain.InvalidParamsf("url is required")
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, domain.InvalidParamsf("url must be absolute http(s): %q", rawURL)
	}
	format, ok := args["response_format"].(string)
	if !ok {
		format = "concise"
	}
	if format != "concise" && format != "detailed" {
		return nil, domain.InvalidParamsf("response_format must be \"concise\" or \"detailed\"")
	}

	resp, err := connectors.DoRequest(ctx, c.client, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "text/html,application/xhtml+xml")
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	if err := connectors.CheckStatus(resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	resp.Body.Close()
	if err != nil {
		return nil, domain.HTTPRequestErr(err)
	}

	page, err := cpupool.Run(ctx, c.pool, func() (*pageExtract, error) {
		return extractPage(body, parsed)
	})
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"url":   rawURL,
		"title": page.Title,
	}
	if page.Description != "" {
		payload["description"] = page.Description
	}
	if page.Canonical != "" {
		payload["canonical"] = page.Canonical
	}
	if format == "detailed" {
		payload["text"] = page.Text
		payload["links"] = page.Links
	} else {
		payload["text"] = truncate(page.Text, 2000)
	}
	return domain.NewStructuredResult(payload), nil
}

// truncate cuts s to at most limit bytes, backing off to a rune boundary so
// the result stays valid UTF-8.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}

func (c *Connector) ListResources(ctx context.Context, cursor string) (*domain.ListResourcesResult, error) {
	return &domain.ListResourcesResult{Resources: []domain.Resource{}}, nil
}

func (c *Connector) ReadResource(ctx context.Context, uri string) ([]domain.ResourceContents, error) {
	return nil, domain.ErrResourceNotFound
}

func (c *Connector) ListPrompts(ctx context.Context) ([]domain.Prompt, error) {
	return []domain.Prompt{}, nil
}

func (c *Connector) GetPrompt(ctx context.Context, name string, args map[string]string) (*domain.GetPromptResult, error) {
	return nil, domain.InvalidParamsf("unknown prompt: %s", name)
}
