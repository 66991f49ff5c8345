package domain

import (
	"strconv"
	"time"
)

// AuthDetails is a flat string-to-string credential bundle for one connector.
// Structured values are serialized to strings before entering it, which lets
// one field schema (text, secret, number, boolean, select) cover every
// connector.
type AuthDetails map[string]string

// Well-known AuthDetails field names. The OAuth helper reads and writes
// these; connectors should not invent competing spellings.
const (
	FieldAccessToken  = "access_token"
	FieldRefreshToken = "refresh_token"
	FieldExpiresAt    = "expires_at" // unix seconds, decimal string
	FieldClientID     = "client_id"
	FieldClientSecret = "client_secret"
	FieldTenantID     = "tenant_id"
)

// Internal tool names every OAuth connector exposes to power the synthetic
// auth/<provider>/start_device and poll_device pair.
const (
	AuthStartTool = "auth_start"
	AuthPollTool  = "auth_poll"
)

// Clone returns a deep copy of the details.
func (d AuthDetails) Clone() AuthDetails {
	if d == nil {
		return nil
	}
	out := make(AuthDetails, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// ExpiresAt parses the expires_at field. Returns the zero time when the
// field is absent or unparseable.
func (d AuthDetails) ExpiresAt() time.Time {
	raw, ok := d[FieldExpiresAt]
	if !ok {
		return time.Time{}
	}
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(secs, 0)
}

// SetExpiresAt stores an absolute expiry as unix seconds.
func (d AuthDetails) SetExpiresAt(t time.Time) {
	d[FieldExpiresAt] = strconv.FormatInt(t.Unix(), 10)
}

// AuthType describes how a connector authenticates.
type AuthType string

const (
	// AuthNone means the connector needs no credentials and is always usable.
	AuthNone AuthType = "none"
	// AuthAPIKey means a static API key or personal access token.
	AuthAPIKey AuthType = "api_key"
	// AuthBasic means username/password style credentials.
	AuthBasic AuthType = "basic"
	// AuthOAuth means OAuth tokens obtained via the device flow.
	AuthOAuth AuthType = "oauth"
)

// AuthState is the server-side record of whether a provider is currently
// usable. It is updated by the secrets/set path after test_auth succeeds.
type AuthState struct {
	Authorized   bool       `json:"authorized"`
	AuthorizedAt *time.Time `json:"authorized_at,omitempty"`
}
