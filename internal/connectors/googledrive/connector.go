// Package googledrive exposes Google Drive as an OAuth connector. Tokens
// are obtained through the device flow and shared with other Google
// connectors under the "google" vendor key.
package googledrive

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/custodia-labs/conduit-cli/internal/adapters/driven/oauth"
	"github.com/custodia-labs/conduit-cli/internal/connectors"
	"github.com/custodia-labs/conduit-cli/internal/core/domain"
	"github.com/custodia-labs/conduit-cli/internal/core/ports/driven"
)

// Scopes requested during device authorization. Read-only keeps consent
// screens friendly.
var driveScopes = []string{"https://www.googleapis.com/auth/drive.readonly"}

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// Connector talks to the Drive v3 API.
type Connector struct {
	details domain.AuthDetails
	store   driven.AuthStore
	oauth   *oauth.Client
	profile oauth.Profile

	// pending holds the device code between auth_start and auth_poll.
	pending *oauth.DeviceStart

	// newService builds the Drive client; tests override it.
	newService func(ctx context.Context) (*drive.Service, error)
}

// New creates a Drive connector backed by the given auth store.
func New(store driven.AuthStore) *Connector {
	c := &Connector{
		details: domain.AuthDetails{},
		store:   store,
		oauth:   oauth.NewClient(),
		profile: oauth.GoogleProfile(),
	}
	c.newService = c.defaultService
	return c
}

// NewWithDeps creates a connector with explicit OAuth client and Drive
// service factory. Used by tests.
func NewWithDeps(store driven.AuthStore, oc *oauth.Client, profile oauth.Profile, newService func(ctx context.Context) (*drive.Service, error)) *Connector {
	c := &Connector{
		details: domain.AuthDetails{},
		store:   store,
		oauth:   oc,
		profile: profile,
	}
	if newService == nil {
		newService = c.defaultService
	}
	c.newService = newService
	return c
}

// defaultService builds the Drive client. Auth layers over the shared retry
// transport so Drive calls get the same transient-failure policy as the
// hand-rolled connectors.
func (c *Connector) defaultService(ctx context.Context) (*drive.Service, error) {
	httpClient := &http.Client{
		Timeout: 20 * time.Second,
		Transport: &oauth2.Transport{
			Source: newTokenSource(ctx, c),
			Base:   connectors.NewRetryTransport(nil),
		},
	}
	return drive.NewService(ctx, option.WithHTTPClient(httpClient))
}

func (c *Connector) Name() string        { return "googledrive" }
func (c *Connector) Description() string { return "Search and read files in Google Drive" }

// CredentialKey returns the shared Google vendor key so Drive, Gmail and
// Calendar connectors reuse one token.
func (c *Connector) CredentialKey() string { return c.profile.VendorKey }

func (c *Connector) AuthType() domain.AuthType { return domain.AuthOAuth }

func (c *Connector) Capabilities() domain.ServerCapabilities {
	return domain.ServerCapabilities{
		Tools:     &domain.ToolsCapability{},
		Resources: &domain.ResourcesCapability{},
	}
}

// Initialize loads stored credentials, preferring the connector's own key
// and falling back to the shared vendor key.
func (c *Connector) Initialize(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	for _, key := range []string{c.Name(), c.profile.VendorKey} {
		details, ok, err := c.store.Load(key)
		if err != nil {
			return err
		}
		if ok {
			c.details = details
			return nil
		}
	}
	return nil
}

func (c *Connector) ConfigSchema() domain.ConfigSchema {
	return domain.ConfigSchema{
		Fields: []domain.Field{
			{
				Name:        domain.FieldClientID,
				Label:       "OAuth client ID",
				Type:        domain.FieldText,
				Required:    true,
				Description: "Google Cloud OAuth client ID with the device flow enabled",
			},
			{
				Name:        domain.FieldClientSecret,
				Label:       "OAuth client secret",
				Type:        domain.FieldSecret,
				Required:    true,
				Description: "Secret paired with the client ID",
			},
		},
	}
}

func (c *Connector) AuthDetails() (domain.AuthDetails, error) {
	return c.details.Clone(), nil
}

func (c *Connector) SetAuthDetails(details domain.AuthDetails) error {
	if details[domain.FieldClientID] == "" {
		return domain.InvalidInputf("client_id is required")
	}
	c.details = details.Clone()
	return nil
}

// TestAuth verifies the stored token by asking Drive who we are.
func (c *Connector) TestAuth(ctx context.Context) error {
	if c.details[domain.FieldAccessToken] == "" {
		return domain.Authenticationf("googledrive has no access token; run the device flow")
	}
	svc, err := c.newService(ctx)
	if err != nil {
		return domain.Otherf("building drive client: %v", err)
	}
	if _, err := svc.About.Get().Fields("user").Context(ctx).Do(); err != nil {
		return mapError(err)
	}
	return nil
}

// freshToken returns a usable access token, refreshing and re-persisting
// under both store keys when close to expiry.
func (c *Connector) freshToken(ctx context.Context) (string, error) {
	return c.oauth.EnsureFresh(ctx, c.profile, c.details, c.store, c.Name(), c.profile.VendorKey)
}

// persistTokens writes the current details under the connector's own key
// and the vendor group key.
func (c *Connector) persistTokens() error {
	if c.store == nil {
		return nil
	}
	for _, key := range []string{c.Name(), c.profile.VendorKey} {
		if err := c.store.Save(key, c.details); err != nil {
			return err
		}
	}
	return nil
}
