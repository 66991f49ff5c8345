// Package hackernews exposes the Hacker News search API (Algolia) as a
// connector. It needs no credentials.
package hackernews

import (
	"context"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/conduit-cli/internal/connectors"
	"github.com/custodia-labs/conduit-cli/internal/core/domain"
	"github.com/custodia-labs/conduit-cli/internal/core/ports/driven"
)

// defaultBaseURL is the Algolia HN search API root.
const defaultBaseURL = "https://hn.algolia.com/api/v1"

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// Connector talks to the Algolia Hacker News API.
type Connector struct {
	client  *http.Client
	baseURL string
	// Algolia allows generous anonymous quotas; stay well under them.
	limiter *rate.Limiter
}

// New creates a Hacker News connector with default transport settings.
func New() *Connector {
	return &Connector{
		client:  connectors.NewHTTPClient(),
		baseURL: defaultBaseURL,
		limiter: rate.NewLimiter(rate.Limit(5), 10),
	}
}

// NewWithBaseURL creates a connector against a custom API root. Used by tests.
func NewWithBaseURL(client *http.Client, baseURL string) *Connector {
	return &Connector{
		client:  client,
		baseURL: baseURL,
		limiter: rate.NewLimiter(rate.Limit(100), 100),
	}
}

func (c *Connector) Name() string        { return "hackernews" }
func (c *Connector) Description() string { return "Search Hacker News stories and comments" }

// CredentialKey returns the connector name; there is no shared vendor key.
func (c *Connector) CredentialKey() string { return c.Name() }

func (c *Connector) AuthType() domain.AuthType { return domain.AuthNone }

func (c *Connector) Capabilities() domain.ServerCapabilities {
	return domain.ServerCapabilities{
		Tools:   &domain.ToolsCapability{},
		Prompts: &domain.PromptsCapability{},
	}
}

func (c *Connector) Initialize(ctx context.Context) error { return nil }

// ConfigSchema is empty; the connector is anonymous.
func (c *Connector) ConfigSchema() domain.ConfigSchema {
	return domain.ConfigSchema{}
}

func (c *Connector) AuthDetails() (domain.AuthDetails, error) {
	return domain.AuthDetails{}, nil
}

func (c *Connector) SetAuthDetails(details domain.AuthDetails) error {
	if len(details) > 0 {
		return domain.InvalidInputf("hackernews takes no credentials")
	}
	return nil
}

// TestAuth always succeeds; there is nothing to authenticate.
func (c *Connector) TestAuth(ctx context.Context) error { return nil }

func (c *Connector) ListResources(ctx context.Context, cursor string) (*domain.ListResourcesResult, error) {
	return &domain.ListResourcesResult{Resources: []domain.Resource{}}, nil
}

func (c *Connector) ReadResource(ctx context.Context, uri string) ([]domain.ResourceContents, error) {
	return nil, domain.ErrResourceNotFound
}
