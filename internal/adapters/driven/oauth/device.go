// Package oauth implements the OAuth 2.0 device authorization flow and
// token refresh for the built-in vendor profiles.
package oauth

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/custodia-labs/conduit-cli/internal/core/domain"
	"github.com/custodia-labs/conduit-cli/internal/core/ports/driven"
	"github.com/custodia-labs/conduit-cli/internal/logger"
)

const (
	deviceGrantType = "urn:ietf:params:oauth:grant-type:device_code"

	// refreshSafetyMargin is how close to expiry a token may get before
	// EnsureFresh refreshes it anyway.
	refreshSafetyMargin = 60 * time.Second
)

// DeviceStart is the outcome of a device_authorize call: everything the
// caller needs to show the user and to poll for the token.
type DeviceStart struct {
	UserCode        string        `json:"user_code"`
	VerificationURI string        `json:"verification_uri"`
	DeviceCode      string        `json:"device_code"`
	Interval        time.Duration `json:"-"`
	ExpiresIn       time.Duration `json:"-"`
}

// Tokens is a successful token response.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
}

// PollStatus classifies a single-shot device poll.
type PollStatus string

const (
	// PollAuthorized means tokens were issued.
	PollAuthorized PollStatus = "authorized"
	// PollPending means the user has not finished yet; keep polling.
	PollPending PollStatus = "pending"
	// PollSlowDown means keep polling but at a longer interval.
	PollSlowDown PollStatus = "slow_down"
	// PollDenied means the user rejected the request; stop polling.
	PollDenied PollStatus = "denied"
	// PollExpired means the device code lapsed; start over.
	PollExpired PollStatus = "expired"
)

// PollResult is the outcome of one DevicePoll call. Tokens is set only when
// Status is PollAuthorized.
type PollResult struct {
	Status PollStatus
	Tokens *Tokens
}

// Client drives the device flow against one vendor profile.
type Client struct {
	httpClient *http.Client
}

// NewClient returns a client with the standard HTTP timeouts.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
			},
		},
	}
}

// NewClientWithHTTP returns a client using the given HTTP client. Useful for
// testing against httptest servers.
func NewClientWithHTTP(hc *http.Client) *Client {
	return &Client{httpClient: hc}
}

// tokenResponse covers both success and error bodies from the token and
// device endpoints.
type tokenResponse struct {
	AccessToken     string `json:"access_token"`
	RefreshToken    string `json:"refresh_token"`
	ExpiresIn       int64  `json:"expires_in"`
	DeviceCode      string `json:"device_code"`
	UserCode        string `json:"user_code"`
	VerificationURI string `json:"verification_uri"`
	VerificationURL string `json:"verification_url"` // Google spells it this way
	Interval        int64  `json:"interval"`
	Error           string `json:"error"`
	ErrorDesc       string `json:"error_description"`
}

// DeviceAuthorize starts the device flow: it returns the code the user types
// at the verification URL and the device code the poller exchanges later.
func (c *Client) DeviceAuthorize(ctx context.Context, profile Profile, clientID string, scopes []string) (*DeviceStart, error) {
	if clientID == "" {
		return nil, domain.InvalidInputf("client_id is required")
	}
	form := url.Values{
		"client_id": {clientID},
		"scope":     {strings.Join(scopes, " ")},
	}
	resp, err := c.postForm(ctx, profile.DeviceAuthURL, form)
	if err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, domain.Otherf("device authorization failed: %s: %s", resp.Error, resp.ErrorDesc)
	}
	if resp.DeviceCode == "" || resp.UserCode == "" {
		return nil, domain.ParseErrorf("device authorization response missing codes")
	}
	verification := resp.VerificationURI
	if verification == "" {
		verification = resp.VerificationURL
	}
	interval := resp.Interval
	if interval <= 0 {
		interval = 5
	}
	logger.Debug("oauth: device flow started for %s, user code %s", profile.Name, resp.UserCode)
	return &DeviceStart{
		UserCode:        resp.UserCode,
		VerificationURI: verification,
		DeviceCode:      resp.DeviceCode,
		Interval:        time.Duration(interval) * time.Second,
		ExpiresIn:       time.Duration(resp.ExpiresIn) * time.Second,
	}, nil
}

// DevicePoll performs one token exchange for a pending device code. It never
// loops; callers decide how to back off from the returned status.
func (c *Client) DevicePoll(ctx context.Context, profile Profile, clientID, clientSecret, deviceCode string) (*PollResult, error) {
	form := url.Values{
		"client_id":   {clientID},
		"device_code": {deviceCode},
		"grant_type":  {deviceGrantType},
	}
	if clientSecret != "" {
		form.Set("client_secret", clientSecret)
	}
	resp, err := c.postForm(ctx, profile.TokenURL, form)
	if err != nil {
		return nil, err
	}
	switch resp.Error {
	case "":
	case "authorization_pending":
		return &PollResult{Status: PollPending}, nil
	case "slow_down":
		return &PollResult{Status: PollSlowDown}, nil
	case "access_denied":
		return &PollResult{Status: PollDenied}, nil
	case "expired_token":
		return &PollResult{Status: PollExpired}, nil
	default:
		return nil, domain.Otherf("token exchange failed: %s: %s", resp.Error, resp.ErrorDesc)
	}
	if resp.AccessToken == "" {
		return nil, domain.ParseErrorf("token response missing access_token")
	}
	return &PollResult{
		Status: PollAuthorized,
		Tokens: &Tokens{
			AccessToken:  resp.AccessToken,
			RefreshToken: resp.RefreshToken,
			ExpiresIn:    time.Duration(resp.ExpiresIn) * time.Second,
		},
	}, nil
}

// Refresh exchanges a refresh token for a fresh access token. An
// invalid_grant answer means the refresh token itself is dead and the user
// must re-authorize, so it surfaces as an Authentication error.
func (c *Client) Refresh(ctx context.Context, profile Profile, clientID, clientSecret, refreshToken string) (*Tokens, error) {
	if refreshToken == "" {
		return nil, domain.Authenticationf("no refresh token stored; re-authorization required")
	}
	form := url.Values{
		"client_id":     {clientID},
		"refresh_token": {refreshToken},
		"grant_type":    {"refresh_token"},
	}
	if clientSecret != "" {
		form.Set("client_secret", clientSecret)
	}
	resp, err := c.postForm(ctx, profile.TokenURL, form)
	if err != nil {
		return nil, err
	}
	if resp.Error != "" {
		if resp.Error == "invalid_grant" {
			return nil, domain.Authenticationf("refresh token rejected; re-authorization required")
		}
		return nil, domain.Otherf("token refresh failed: %s: %s", resp.Error, resp.ErrorDesc)
	}
	if resp.AccessToken == "" {
		return nil, domain.ParseErrorf("refresh response missing access_token")
	}
	return &Tokens{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    time.Duration(resp.ExpiresIn) * time.Second,
	}, nil
}

// Apply writes the tokens into the details. The refresh token is kept when
// the vendor omits it from a refresh response.
func (t *Tokens) Apply(details domain.AuthDetails) {
	details[domain.FieldAccessToken] = t.AccessToken
	if t.RefreshToken != "" {
		details[domain.FieldRefreshToken] = t.RefreshToken
	}
	details.SetExpiresAt(time.Now().Add(t.ExpiresIn))
}

// EnsureFresh returns a usable access token, refreshing first when the
// stored one expires within the safety margin. After a refresh the updated
// details are re-persisted under every given store key, typically the
// connector's own name plus the vendor group key. Callers must serialize
// EnsureFresh per details instance; connectors do so with their own lock.
func (c *Client) EnsureFresh(ctx context.Context, profile Profile, details domain.AuthDetails, store driven.AuthStore, keys ...string) (string, error) {
	token := details[domain.FieldAccessToken]
	if token != "" && time.Until(details.ExpiresAt()) > refreshSafetyMargin {
		return token, nil
	}

	logger.Debug("oauth: refreshing %s access token", profile.Name)
	tokens, err := c.Refresh(ctx, profile,
		details[domain.FieldClientID],
		details[domain.FieldClientSecret],
		details[domain.FieldRefreshToken],
	)
	if err != nil {
		return "", err
	}
	tokens.Apply(details)

	if store != nil {
		for _, key := range keys {
			if err := store.Save(key, details); err != nil {
				return "", err
			}
		}
	}
	return tokens.AccessToken, nil
}

func (c *Client) postForm(ctx context.Context, endpoint string, form url.Values) (*tokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, domain.Otherf("building request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.HTTPRequestErr(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, domain.HTTPRequestErr(err)
	}
	var parsed tokenResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, domain.ParseErrorf("decoding %s response: %v", endpoint, err)
	}
	return &parsed, nil
}
