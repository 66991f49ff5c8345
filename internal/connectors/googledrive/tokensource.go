package googledrive

import (
	"context"

	"golang.org/x/oauth2"
)

// tokenSource adapts the connector's refresh-aware token handling to
// oauth2.TokenSource so Google API clients can use it directly.
type tokenSource struct {
	ctx context.Context
	c   *Connector
}

// newTokenSource creates an oauth2.TokenSource backed by the connector's
// stored credentials. The returned source refreshes through the device-flow
// helper when the token nears expiry.
func newTokenSource(ctx context.Context, c *Connector) oauth2.TokenSource {
	return &tokenSource{ctx: ctx, c: c}
}

// Token implements oauth2.TokenSource. Called by Google API clients when
// they need an access token.
func (t *tokenSource) Token() (*oauth2.Token, error) {
	access, err := t.c.freshToken(t.ctx)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{
		AccessToken: access,
		TokenType:   "Bearer",
	}, nil
}
