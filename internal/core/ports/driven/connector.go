package driven

import (
	"context"

	"github.com/custodia-labs/conduit-cli/internal/core/domain"
)

// Connector is the contract every data source implements. The aggregator
// only ever talks to this interface; transport, pagination and auth details
// stay inside the implementation.
//
// Implementations are not required to be safe for concurrent use. The
// registry serializes calls to a single connector behind its handle lock.
type Connector interface {
	// Name returns the registry key, e.g. "hackernews". Lowercase, no slashes.
	Name() string

	// Description is a one-line summary surfaced in tool listings.
	Description() string

	// CredentialKey names the auth store slot the connector reads. Most
	// connectors return their own name; Google-family connectors share "google".
	CredentialKey() string

	// AuthType reports how the connector authenticates.
	AuthType() domain.AuthType

	// Capabilities advertises which MCP surfaces the connector supports.
	Capabilities() domain.ServerCapabilities

	// Initialize prepares the connector for use. Called once at registration
	// and again after credentials change.
	Initialize(ctx context.Context) error

	// ListTools returns the connector's tools with unprefixed names.
	ListTools(ctx context.Context) ([]domain.Tool, error)

	// CallTool invokes one tool by its unprefixed name.
	CallTool(ctx context.Context, name string, args map[string]any) (*domain.CallToolResult, error)

	// ListResources returns one page of resources. The cursor is opaque to
	// callers; an empty cursor requests the first page.
	ListResources(ctx context.Context, cursor string) (*domain.ListResourcesResult, error)

	// ReadResource reads the resource at uri. Connectors that do not own the
	// URI scheme return a ResourceNotFound error.
	ReadResource(ctx context.Context, uri string) ([]domain.ResourceContents, error)

	// ListPrompts returns the connector's prompts with unprefixed names.
	ListPrompts(ctx context.Context) ([]domain.Prompt, error)

	// GetPrompt expands one prompt by its unprefixed name.
	GetPrompt(ctx context.Context, name string, args map[string]string) (*domain.GetPromptResult, error)

	// ConfigSchema declares the credential fields the connector wants.
	ConfigSchema() domain.ConfigSchema

	// AuthDetails returns the connector's current credentials.
	AuthDetails() (domain.AuthDetails, error)

	// SetAuthDetails replaces the connector's credentials in memory. The
	// caller is responsible for persisting them.
	SetAuthDetails(details domain.AuthDetails) error

	// TestAuth verifies the current credentials against the upstream,
	// returning an Authentication error when they are unusable.
	TestAuth(ctx context.Context) error
}
