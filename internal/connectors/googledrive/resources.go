package googledrive

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"

	"github.com/custodia-labs/conduit-cli/internal/core/domain"
)

// uriScheme prefixes every Drive resource URI.
const uriScheme = "gdrive://"

// listPageSize is how many files one resources/list page carries. Drive's
// own pageToken is the cursor, passed through untouched.
const listPageSize = 25

func (c *Connector) ListResources(ctx context.Context, cursor string) (*domain.ListResourcesResult, error) {
	if c.details[domain.FieldAccessToken] == "" {
		return &domain.ListResourcesResult{Resources: []domain.Resource{}}, nil
	}
	svc, err := c.newService(ctx)
	if err != nil {
		return nil, domain.Otherf("building drive client: %v", err)
	}
	call := svc.Files.List().
		Q("trashed = false").
		OrderBy("modifiedTime desc").
		PageSize(listPageSize).
		Fields("nextPageToken, files(id, name, mimeType)")
	if cursor != "" {
		call = call.PageToken(cursor)
	}
	list, err := call.Context(ctx).Do()
	if err != nil {
		return nil, mapError(err)
	}

	resources := make([]domain.Resource, 0, len(list.Files))
	for _, f := range list.Files {
		resources = append(resources, domain.Resource{
			URI:      uriScheme + f.Id,
			Name:     f.Name,
			MimeType: f.MimeType,
		})
	}
	return &domain.ListResourcesResult{
		Resources:  resources,
		NextCursor: list.NextPageToken,
	}, nil
}

// ReadResource downloads a Drive file addressed as gdrive://<id>. Google
// Docs formats are exported as plain text; everything else is downloaded
// directly.
func (c *Connector) ReadResource(ctx context.Context, uri string) ([]domain.ResourceContents, error) {
	id, ok := strings.CutPrefix(uri, uriScheme)
	if !ok || id == "" {
		return nil, domain.ErrResourceNotFound
	}
	svc, err := c.newService(ctx)
	if err != nil {
		return nil, domain.Otherf("building drive client: %v", err)
	}

	meta, err := svc.Files.Get(id).Fields("id, name, mimeType").Context(ctx).Do()
	if err != nil {
		return nil, mapError(err)
	}

	var resp *http.Response
	mimeType := meta.MimeType
	if strings.HasPrefix(meta.MimeType, "application/vnd.google-apps.") {
		resp, err = svc.Files.Export(id, "text/plain").Context(ctx).Download()
		mimeType = "text/plain"
	} else {
		resp, err = svc.Files.Get(id).Context(ctx).Download()
	}
	if err != nil {
		return nil, mapError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, domain.HTTPRequestErr(err)
	}
	return []domain.ResourceContents{
		{URI: uri, MimeType: mimeType, Text: string(body)},
	}, nil
}

func (c *Connector) ListPrompts(ctx context.Context) ([]domain.Prompt, error) {
	return []domain.Prompt{}, nil
}

func (c *Connector) GetPrompt(ctx context.Context, name string, args map[string]string) (*domain.GetPromptResult, error) {
	return nil, domain.InvalidParamsf("unknown prompt: %s", name)
}

// mapError translates googleapi failures onto the taxonomy.
func mapError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return domain.Authenticationf("google rejected credentials (HTTP %d)", apiErr.Code)
		case http.StatusNotFound:
			return domain.ErrResourceNotFound
		}
		if apiErr.Code >= 400 && apiErr.Code < 500 {
			return domain.InvalidInputf("google rejected request (HTTP %d): %s", apiErr.Code, apiErr.Message)
		}
		return domain.HTTPRequestErr(err)
	}
	var taxonomy *domain.Error
	if errors.As(err, &taxonomy) {
		return taxonomy
	}
	return domain.HTTPRequestErr(err)
}
