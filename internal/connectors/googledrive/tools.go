package googledrive

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/custodia-labs/conduit-cli/internal/adapters/driven/oauth"
	"github.com/custodia-labs/conduit-cli/internal/core/domain"
)

const defaultSearchCount = 10

func f64(v float64) *float64 { return &v }

func (c *Connector) ListTools(ctx context.Context) ([]domain.Tool, error) {
	return []domain.Tool{
		{
			Name:        "search",
			Description: "Search Google Drive files by content and name",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"query": {
						Type:        "string",
						Description: "Search terms",
					},
					"count": {
						Type:        "number",
						Minimum:     f64(1),
						Maximum:     f64(100),
						Description: "Maximum number of files to return (default 10, max 100)",
					},
				},
				Required: []string{"query"},
			},
		},
		{
			Name:        "get_file",
			Description: "Fetch one Drive file's metadata by id",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"id": {
						Type:        "string",
						Description: "Drive file id",
					},
				},
				Required: []string{"id"},
			},
		},
	}, nil
}

func (c *Connector) CallTool(ctx context.Context, name string, args map[string]any) (*domain.CallToolResult, error) {
	switch name {
	case domain.AuthStartTool:
		return c.authStart(ctx)
	case domain.AuthPollTool:
		return c.authPoll(ctx)
	case "search":
		return c.search(ctx, args)
	case "get_file":
		return c.getFile(ctx, args)
	default:
		return nil, domain.ErrToolNotFound
	}
}

// authStart begins the device flow and remembers the device code for the
// following authPoll calls.
func (c *Connector) authStart(ctx context.Context) (*domain.CallToolResult, error) {
	clientID := c.details[domain.FieldClientID]
	if clientID == "" {
		return nil, domain.Authenticationf("googledrive has no client_id; set credentials first")
	}
	start, err := c.oauth.DeviceAuthorize(ctx, c.profile, clientID, driveScopes)
	if err != nil {
		return nil, err
	}
	c.pending = start
	return domain.NewStructuredResult(map[string]any{
		"user_code":          start.UserCode,
		"verification_uri":   start.VerificationURI,
		"interval_seconds":   int(start.Interval / time.Second),
		"expires_in_seconds": int(start.ExpiresIn / time.Second),
	}), nil
}

// authPoll performs one token exchange. On success the tokens are written
// into the connector and persisted under both store keys atomically with
// respect to the connector's mutex (held by the caller).
func (c *Connector) authPoll(ctx context.Context) (*domain.CallToolResult, error) {
	if c.pending == nil {
		return nil, domain.InvalidInputf("no device flow in progress; call auth_start first")
	}
	result, err := c.oauth.DevicePoll(ctx, c.profile,
		c.details[domain.FieldClientID],
		c.details[domain.FieldClientSecret],
		c.pending.DeviceCode,
	)
	if err != nil {
		return nil, err
	}
	if result.Status != oauth.PollAuthorized {
		if result.Status == oauth.PollExpired || result.Status == oauth.PollDenied {
			c.pending = nil
		}
		return domain.NewStructuredResult(map[string]any{"status": string(result.Status)}), nil
	}

	result.Tokens.Apply(c.details)
	if err := c.persistTokens(); err != nil {
		return nil, err
	}
	c.pending = nil
	return domain.NewStructuredResult(map[string]any{"status": string(oauth.PollAuthorized)}), nil
}

func (c *Connector) search(ctx context.Context, args map[string]any) (*domain.CallToolResult, error) {
	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, domain.InvalidParamsf("query is required")
	}
	count := int64(defaultSearchCount)
	if raw, ok := args["count"].(float64); ok {
		count = int64(raw)
	}
	if count < 1 || count > 100 {
		return nil, domain.InvalidParamsf("count must be between 1 and 100")
	}

	svc, err := c.newService(ctx)
	if err != nil {
		return nil, domain.Otherf("building drive client: %v", err)
	}
	escaped := strings.ReplaceAll(query, `'`, `\'`)
	list, err := svc.Files.List().
		Q(fmt.Sprintf("fullText contains '%s' and trashed = false", escaped)).
		PageSize(count).
		Fields("files(id, name, mimeType, modifiedTime, webViewLink)").
		Context(ctx).Do()
	if err != nil {
		return nil, mapError(err)
	}

	items := make([]any, 0, len(list.Files))
	for _, f := range list.Files {
		items = append(items, map[string]any{
			"id":            f.Id,
			"name":          f.Name,
			"mime_type":     f.MimeType,
			"modified_time": f.ModifiedTime,
			"url":           f.WebViewLink,
		})
	}
	payload := map[string]any{"items": items}
	if len(items) == 0 {
		payload["message"] = "No results found"
	}
	return domain.NewStructuredResult(payload), nil
}

func (c *Connector) getFile(ctx context.Context, args map[string]any) (*domain.CallToolResult, error) {
	id, ok := args["id"].(string)
	if !ok || id == "" {
		return nil, domain.InvalidParamsf("id is required")
	}
	svc, err := c.newService(ctx)
	if err != nil {
		return nil, domain.Otherf("building drive client: %v", err)
	}
	f, err := svc.Files.Get(id).
		Fields("id, name, mimeType, size, modifiedTime, owners, webViewLink").
		Context(ctx).Do()
	if err != nil {
		return nil, mapError(err)
	}
	return domain.NewStructuredResult(f), nil
}
