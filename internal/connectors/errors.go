package connectors

import (
	"fmt"
	"io"
	"net/http"

	"github.com/custodia-labs/conduit-cli/internal/core/domain"
)

// CheckStatus maps a non-2xx upstream response onto the error taxonomy and
// consumes the body. 2xx responses return nil with the body left open.
//
// 401 and 403 become Authentication, 404 becomes ResourceNotFound, the
// remaining 4xx become InvalidInput since the caller shaped the request,
// and 429/5xx become HttpRequest (they survived the retry budget).
func CheckStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	defer drain(resp)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return domain.Authenticationf("upstream rejected credentials (HTTP %d)", resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return domain.ErrResourceNotFound
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return domain.HTTPRequestErr(fmt.Errorf("upstream returned HTTP %d", resp.StatusCode))
	default:
		return domain.InvalidInputf("upstream rejected request (HTTP %d)", resp.StatusCode)
	}
}

// DecodeJSON decodes resp's body with decode, wrapping failures as
// ParseError. The body is closed either way.
func DecodeJSON(resp *http.Response, decode func(r io.Reader) error) error {
	defer resp.Body.Close()
	if err := decode(resp.Body); err != nil {
		return domain.ParseErrorf("decoding %s response: %v", resp.Request.URL.Host, err)
	}
	return nil
}
