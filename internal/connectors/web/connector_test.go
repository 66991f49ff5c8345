package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/conduit-cli/internal/core/domain"
	"github.com/custodia-labs/conduit-cli/internal/cpupool"
)

const fixtureHTML = `<!DOCTYPE html>
<html>
<head>
  <title>Example Page</title>
  <meta name="description" content="A page for tests">
  <link rel="canonical" href="https://canonical.example.com/page">
  <script>var hidden = "should not appear";</script>
  <style>.x { color: red }</style>
</head>
<body>
  <h1>Heading</h1>
  <p>Some body text here.</p>
  <a href="/relative">Relative</a>
  <a href="https://other.example.com/abs">Absolute</a>
  <a href="/relative">Duplicate</a>
  <a href="#frag">Fragment only</a>
  <a href="javascript:void(0)">Script link</a>
</body>
</html>`

func newTestConnector(t *testing.T, handler http.HandlerFunc) (*Connector, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	pool := cpupool.New(2)
	t.Cleanup(func() { pool.Close() })
	return NewWithDeps(srv.Client(), pool), srv
}

func fetchPayload(t *testing.T, conn *Connector, args map[string]any) map[string]any {
	t.Helper()
	result, err := conn.CallTool(context.Background(), "fetch", args)
	require.NoError(t, err)
	payload, ok := result.StructuredContent.(map[string]any)
	require.True(t, ok)
	return payload
}

func TestFetchExtractsMetadata(t *testing.T) {
	conn, srv := newTestConnector(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(fixtureHTML))
	})

	payload := fetchPayload(t, conn, map[string]any{"url": srv.URL, "response_format": "detailed"})

	assert.Equal(t, "Example Page", payload["title"])
	assert.Equal(t, "A page for tests", payload["description"])
	assert.Equal(t, "https://canonical.example.com/page", payload["canonical"])

	text := payload["text"].(string)
	assert.Contains(t, text, "Heading")
	assert.Contains(t, text, "Some body text here.")
	assert.NotContains(t, text, "should not appear")
	assert.NotContains(t, text, "color: red")

	links := payload["links"].([]any)
	require.Len(t, links, 2, "fragments, javascript: and duplicates are dropped")
	assert.Equal(t, srv.URL+"/relative", links[0])
	assert.Equal(t, "https://other.example.com/abs", links[1])
}

func TestFetchConciseOmitsLinksAndTruncates(t *testing.T) {
	long := strings.Repeat("word ", 1000)
	conn, srv := newTestConnector(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><head><title>T</title></head><body><p>" + long + "</p></body></html>"))
	})

	payload := fetchPayload(t, conn, map[string]any{"url": srv.URL})

	assert.NotContains(t, payload, "links")
	text := payload["text"].(string)
	assert.LessOrEqual(t, len(text), 2000+len("…"))
	assert.True(t, strings.HasSuffix(text, "…"))
}

func TestFetchRequiresURL(t *testing.T) {
	conn := New()
	_, err := conn.CallTool(context.Background(), "fetch", map[string]any{})
	require.Error(t, err)
	assert.Equal(t, domain.KindInvalidParams, domain.KindOf(err))
}

func TestFetchRejectsNonHTTPSchemes(t *testing.T) {
	conn := New()
	for _, bad := range []string{"ftp://example.com", "file:///etc/passwd", "not a url", "example.com/no-scheme"} {
		_, err := conn.CallTool(context.Background(), "fetch", map[string]any{"url": bad})
		require.Error(t, err, bad)
		assert.Equal(t, domain.KindInvalidParams, domain.KindOf(err), bad)
	}
}

func TestFetchRejectsBadFormat(t *testing.T) {
	conn := New()
	_, err := conn.CallTool(context.Background(), "fetch", map[string]any{
		"url":             "https://example.com",
		"response_format": "xml",
	})
	require.Error(t, err)
	assert.Equal(t, domain.KindInvalidParams, domain.KindOf(err))
}

func TestFetchUpstreamNotFound(t *testing.T) {
	conn, srv := newTestConnector(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := conn.CallTool(context.Background(), "fetch", map[string]any{"url": srv.URL})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrResourceNotFound)
}

func TestTruncateKeepsValidUTF8(t *testing.T) {
	// "é" is two bytes; an odd limit lands mid-rune.
	s := strings.Repeat("é", 100)
	out := truncate(s, 7)

	assert.True(t, utf8.ValidString(out))
	assert.True(t, strings.HasSuffix(out, "…"))
	assert.Equal(t, strings.Repeat("é", 3)+"…", out)

	// Short strings pass through untouched.
	assert.Equal(t, "abc", truncate("abc", 10))
	// ASCII cuts exactly at the limit.
	assert.Equal(t, "abcde…", truncate("abcdef", 5))
}

func TestUnknownTool(t *testing.T) {
	conn := New()
	_, err := conn.CallTool(context.Background(), "nope", nil)
	assert.ErrorIs(t, err, domain.ErrToolNotFound)
}
