// Package github exposes the GitHub REST API as a connector authenticated
// by a personal access token.
package github

import (
	"context"
	"errors"
	"net/http"

	gh "github.com/google/go-github/v80/github"

	"github.com/custodia-labs/conduit-cli/internal/connectors"
	"github.com/custodia-labs/conduit-cli/internal/core/domain"
	"github.com/custodia-labs/conduit-cli/internal/core/ports/driven"
)

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// Connector talks to GitHub through go-github.
type Connector struct {
	details domain.AuthDetails
	client  *gh.Client
	// newClient builds the API client from a token; tests override it to
	// point at an httptest server.
	newClient func(token string) *gh.Client
}

// New creates a GitHub connector.
func New() *Connector {
	return &Connector{
		details: domain.AuthDetails{},
		newClient: func(token string) *gh.Client {
			return gh.NewClient(connectors.NewRetryHTTPClient()).WithAuthToken(token)
		},
	}
}

// NewWithClientFactory creates a connector whose API client is built by
// factory. Used by tests.
func NewWithClientFactory(factory func(token string) *gh.Client) *Connector {
	return &Connector{details: domain.AuthDetails{}, newClient: factory}
}

func (c *Connector) Name() string        { return "github" }
func (c *Connector) Description() string { return "Search and inspect GitHub repositories" }

func (c *Connector) CredentialKey() string { return c.Name() }

func (c *Connector) AuthType() domain.AuthType { return domain.AuthAPIKey }

func (c *Connector) Capabilities() domain.ServerCapabilities {
	return domain.ServerCapabilities{Tools: &domain.ToolsCapability{}}
}

func (c *Connector) Initialize(ctx context.Context) error {
	if token := c.details["token"]; token != "" {
		c.client = c.newClient(token)
	}
	return nil
}

func (c *Connector) ConfigSchema() domain.ConfigSchema {
	return domain.ConfigSchema{
		Fields: []domain.Field{
			{
				Name:        "token",
				Label:       "Personal access token",
				Type:        domain.FieldSecret,
				Required:    true,
				Description: "GitHub PAT with repo read scope",
			},
		},
	}
}

func (c *Connector) AuthDetails() (domain.AuthDetails, error) {
	return c.details.Clone(), nil
}

func (c *Connector) SetAuthDetails(details domain.AuthDetails) error {
	if details["token"] == "" {
		return domain.InvalidInputf("token is required")
	}
	c.details = details.Clone()
	c.client = c.newClient(details["token"])
	return nil
}

// TestAuth looks up the authenticated user, the cheapest call that proves
// the token works.
func (c *Connector) TestAuth(ctx context.Context) error {
	if c.client == nil {
		return domain.Authenticationf("github is not configured; run setup first")
	}
	_, _, err := c.client.Users.Get(ctx, "")
	if err != nil {
		return mapError(err)
	}
	return nil
}

// mapError translates go-github failures onto the taxonomy. Errors that
// already carry a kind, like the retry transport's rate-limit exhaustion,
// pass through unchanged.
func mapError(err error) error {
	var taxonomy *domain.Error
	if errors.As(err, &taxonomy) {
		return taxonomy
	}
	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		switch ghErr.Response.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return domain.Authenticationf("github rejected credentials (HTTP %d)", ghErr.Response.StatusCode)
		case http.StatusNotFound:
			return domain.ErrResourceNotFound
		}
		if ghErr.Response.StatusCode >= 400 && ghErr.Response.StatusCode < 500 {
			return domain.InvalidInputf("github rejected request (HTTP %d): %s", ghErr.Response.StatusCode, ghErr.Message)
		}
	}
	var rateErr *gh.RateLimitError
	if errors.As(err, &rateErr) {
		return domain.HTTPRequestErr(err)
	}
	return domain.HTTPRequestErr(err)
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
