package mcp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/conduit-cli/internal/core/domain"
	"github.com/custodia-labs/conduit-cli/internal/core/ports/driven"
	"github.com/custodia-labs/conduit-cli/internal/core/services"
)

// fakeConnector is a scriptable connector for aggregator tests.
type fakeConnector struct {
	name      string
	authType  domain.AuthType
	tools     []string
	resources []domain.Resource
	prompts   []string
	schema    domain.ConfigSchema

	listResourcesErr error
	testAuthErr      error
	readResource     func(uri string) ([]domain.ResourceContents, error)

	details   domain.AuthDetails
	toolCalls []domain.CallToolRequest
}

func newFake(name string, tools ...string) *fakeConnector {
	return &fakeConnector{
		name:     name,
		authType: domain.AuthNone,
		tools:    tools,
		details:  domain.AuthDetails{},
	}
}

func (f *fakeConnector) Name() string          { return f.name }
func (f *fakeConnector) Description() string   { return f.name + " fake" }
func (f *fakeConnector) CredentialKey() string { return f.name }
func (f *fakeConnector) AuthType() domain.AuthType {
	return f.authType
}
func (f *fakeConnector) Capabilities() domain.ServerCapabilities {
	return domain.ServerCapabilities{
		Tools:     &domain.ToolsCapability{},
		Resources: &domain.ResourcesCapability{},
		Prompts:   &domain.PromptsCapability{},
	}
}
func (f *fakeConnector) Initialize(context.Context) error { return nil }

func (f *fakeConnector) ListTools(context.Context) ([]domain.Tool, error) {
	out := make([]domain.Tool, 0, len(f.tools))
	for _, name := range f.tools {
		out = append(out, domain.Tool{
			Name:        name,
			InputSchema: &jsonschema.Schema{Type: "object"},
		})
	}
	return out, nil
}

func (f *fakeConnector) CallTool(_ context.Context, name string, args map[string]any) (*domain.CallToolResult, error) {
	f.toolCalls = append(f.toolCalls, domain.CallToolRequest{Name: name, Arguments: args})
	for _, t := range f.tools {
		if t == name {
			return domain.NewStructuredResult(map[string]any{"tool": name}), nil
		}
	}
	return nil, domain.ErrToolNotFound
}

func (f *fakeConnector) ListResources(context.Context, string) (*domain.ListResourcesResult, error) {
	if f.listResourcesErr != nil {
		return nil, f.listResourcesErr
	}
	return &domain.ListResourcesResult{Resources: f.resources}, nil
}

func (f *fakeConnector) ReadResource(_ context.Context, uri string) ([]domain.ResourceContents, error) {
	if f.readResource != nil {
		return f.readResource(uri)
	}
	return nil, domain.ErrResourceNotFound
}

func (f *fakeConnector) ListPrompts(context.Context) ([]domain.Prompt, error) {
	out := make([]domain.Prompt, 0, len(f.prompts))
	for _, name := range f.prompts {
		out = append(out, domain.Prompt{Name: name})
	}
	return out, nil
}

func (f *fakeConnector) GetPrompt(_ context.Context, name string, _ map[string]string) (*domain.GetPromptResult, error) {
	for _, p := range f.prompts {
		if p == name {
			return &domain.GetPromptResult{}, nil
		}
	}
	return nil, domain.InvalidParamsf("unknown prompt: %s", name)
}

func (f *fakeConnector) ConfigSchema() domain.ConfigSchema { return f.schema }
func (f *fakeConnector) AuthDetails() (domain.AuthDetails, error) {
	return f.details.Clone(), nil
}
func (f *fakeConnector) SetAuthDetails(details domain.AuthDetails) error {
	f.details = details.Clone()
	return nil
}
func (f *fakeConnector) TestAuth(context.Context) error { return f.testAuthErr }

// memoryAuthStore keeps credentials in a map for tests.
type memoryAuthStore struct {
	saved map[string]domain.AuthDetails
}

func newMemoryStore() *memoryAuthStore {
	return &memoryAuthStore{saved: make(map[string]domain.AuthDetails)}
}

func (m *memoryAuthStore) Load(key string) (domain.AuthDetails, bool, error) {
	d, ok := m.saved[key]
	return d, ok, nil
}
func (m *memoryAuthStore) Save(key string, details domain.AuthDetails) error {
	m.saved[key] = details.Clone()
	return nil
}
func (m *memoryAuthStore) Delete(key string) error {
	delete(m.saved, key)
	return nil
}
func (m *memoryAuthStore) Path() string { return "memory" }

func newTestServer(t *testing.T, connectors ...driven.Connector) (*Server, *memoryAuthStore) {
	t.Helper()
	registry := services.NewRegistry()
	for _, c := range connectors {
		require.NoError(t, registry.Register(c))
	}
	store := newMemoryStore()
	return NewServer(registry, store, nil), store
}

func call(t *testing.T, s *Server, method string, params any) *Response {
	t.Helper()
	var raw json.RawMessage
	if params != nil {
		encoded, err := json.Marshal(params)
		require.NoError(t, err)
		raw = encoded
	}
	return s.Handle(context.Background(), &Request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`1`),
		Method:  method,
		Params:  raw,
	})
}

func toolNames(t *testing.T, resp *Response) []string {
	t.Helper()
	require.Nil(t, resp.Error)
	result, ok := resp.Result.(*domain.ListToolsResult)
	require.True(t, ok)
	names := make([]string, 0, len(result.Tools))
	for _, tool := range result.Tools {
		names = append(names, tool.Name)
	}
	return names
}

func TestToolsListPrefixing(t *testing.T) {
	alpha := newFake("alpha", "list", "get")
	beta := newFake("beta", "search")
	server, _ := newTestServer(t, alpha, beta)

	names := toolNames(t, call(t, server, "tools/list", nil))

	assert.Contains(t, names, "alpha/list")
	assert.Contains(t, names, "alpha/get")
	assert.Contains(t, names, "beta/search")
	// Synthetic auth tools ride along.
	assert.Contains(t, names, "auth/alpha/set")
	assert.Contains(t, names, "auth/alpha/test")
	assert.Contains(t, names, "auth/alpha/get_schema")
	assert.Contains(t, names, "auth/beta/set")
}

func TestToolsListDeviceFlowOnlyForOAuth(t *testing.T) {
	plain := newFake("plain", "x")
	oauthConn := newFake("drive", "search")
	oauthConn.authType = domain.AuthOAuth
	server, _ := newTestServer(t, plain, oauthConn)

	names := toolNames(t, call(t, server, "tools/list", nil))

	assert.Contains(t, names, "auth/drive/start_device")
	assert.Contains(t, names, "auth/drive/poll_device")
	assert.NotContains(t, names, "auth/plain/start_device")
	assert.NotContains(t, names, "auth/plain/poll_device")
}

func TestToolsCallRouting(t *testing.T) {
	alpha := newFake("alpha", "list", "get")
	beta := newFake("beta", "search")
	server, _ := newTestServer(t, alpha, beta)

	resp := call(t, server, "tools/call", map[string]any{
		"name":      "alpha/get",
		"arguments": map[string]any{"id": "x"},
	})
	require.Nil(t, resp.Error)

	require.Len(t, alpha.toolCalls, 1)
	assert.Equal(t, "get", alpha.toolCalls[0].Name, "connector sees the unprefixed name")
	assert.Equal(t, map[string]any{"id": "x"}, alpha.toolCalls[0].Arguments)
	assert.Empty(t, beta.toolCalls)
}

func TestToolsCallMalformedNames(t *testing.T) {
	server, _ := newTestServer(t, newFake("alpha", "get"))

	for _, name := range []string{"noslashes", "a/b/c", "alpha/", "/get", "auth//set", "auth/alpha/"} {
		resp := call(t, server, "tools/call", map[string]any{"name": name})
		require.NotNil(t, resp.Error, name)
		assert.Equal(t, codeInvalidParams, resp.Error.Code, name)
	}
}

func TestToolsCallUnknownConnector(t *testing.T) {
	server, _ := newTestServer(t, newFake("alpha", "get"))

	resp := call(t, server, "tools/call", map[string]any{"name": "gamma/get"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeInvalidParams, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "Unknown connector: gamma")
}

func TestResourcesListToleratesFailure(t *testing.T) {
	good := newFake("good")
	good.resources = []domain.Resource{{URI: "good://r", Name: "R"}}
	bad := newFake("bad")
	bad.listResourcesErr = domain.Otherf("boom")
	server, _ := newTestServer(t, good, bad)

	resp := call(t, server, "resources/list", nil)
	require.Nil(t, resp.Error)
	result, ok := resp.Result.(*domain.ListResourcesResult)
	require.True(t, ok)

	require.Len(t, result.Resources, 1)
	assert.Equal(t, "good://r", result.Resources[0].URI)
}

func TestResourcesReadFirstMatchWins(t *testing.T) {
	first := newFake("first")
	second := newFake("second")
	second.readResource = func(uri string) ([]domain.ResourceContents, error) {
		return []domain.ResourceContents{{URI: uri, Text: "hello"}}, nil
	}
	server, _ := newTestServer(t, first, second)

	resp := call(t, server, "resources/read", map[string]any{"uri": "x://1"})
	require.Nil(t, resp.Error)
	result, ok := resp.Result.(*domain.ReadResourceResult)
	require.True(t, ok)
	require.Len(t, result.Contents, 1)
	assert.Equal(t, "hello", result.Contents[0].Text)
}

func TestResourcesReadAllNotFound(t *testing.T) {
	server, _ := newTestServer(t, newFake("a"), newFake("b"))

	resp := call(t, server, "resources/read", map[string]any{"uri": "nowhere://x"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeNotFound, resp.Error.Code)
}

func TestResourcesReadNonNotFoundErrorPropagates(t *testing.T) {
	sick := newFake("sick")
	sick.readResource = func(string) ([]domain.ResourceContents, error) {
		return nil, domain.Authenticationf("token expired")
	}
	server, _ := newTestServer(t, sick)

	resp := call(t, server, "resources/read", map[string]any{"uri": "x://1"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeAuthentication, resp.Error.Code)
	data, ok := resp.Error.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Authentication", data["kind"])
}

func TestPromptsPrefixingAndGet(t *testing.T) {
	hn := newFake("hn")
	hn.prompts = []string{"story_digest"}
	server, _ := newTestServer(t, hn)

	resp := call(t, server, "prompts/list", nil)
	require.Nil(t, resp.Error)
	result, ok := resp.Result.(*domain.ListPromptsResult)
	require.True(t, ok)
	require.Len(t, result.Prompts, 1)
	assert.Equal(t, "hn/story_digest", result.Prompts[0].Name)

	getResp := call(t, server, "prompts/get", map[string]any{"name": "hn/story_digest"})
	assert.Nil(t, getResp.Error)

	badResp := call(t, server, "prompts/get", map[string]any{"name": "bare"})
	require.NotNil(t, badResp.Error)
	assert.Equal(t, codeInvalidParams, badResp.Error.Code)
}

func TestMethodNotFound(t *testing.T) {
	server, _ := newTestServer(t)
	resp := call(t, server, "no/such/method", nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeMethodNotFound, resp.Error.Code)
}

func TestParseErrorResponse(t *testing.T) {
	server, _ := newTestServer(t)
	resp := server.HandleRaw(context.Background(), []byte("{not json"))
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeParseError, resp.Error.Code)
}

func TestNotificationGetsNoResponse(t *testing.T) {
	server, _ := newTestServer(t)
	resp := server.Handle(context.Background(), &Request{
		JSONRPC: "2.0",
		Method:  "notifications/initialized",
	})
	assert.Nil(t, resp)
}

func TestInitializeAggregatesCapabilities(t *testing.T) {
	server, _ := newTestServer(t, newFake("alpha", "x"))

	resp := call(t, server, "initialize", map[string]any{"protocolVersion": domain.ProtocolVersion})
	require.Nil(t, resp.Error)
	result, ok := resp.Result.(*domain.InitializeResult)
	require.True(t, ok)

	assert.Equal(t, domain.ProtocolVersion, result.ProtocolVersion)
	assert.Equal(t, "conduit", result.ServerInfo.Name)
	assert.NotNil(t, result.Capabilities.Tools)
	assert.Contains(t, result.Instructions, "alpha")
}

func TestAuthSetPersistsAndTestUpdatesState(t *testing.T) {
	conn := newFake("gh", "x")
	conn.authType = domain.AuthAPIKey
	conn.schema = domain.ConfigSchema{Fields: []domain.Field{
		{Name: "token", Type: domain.FieldSecret, Required: true},
	}}
	server, store := newTestServer(t, conn)

	resp := call(t, server, "tools/call", map[string]any{
		"name":      "auth/gh/set",
		"arguments": map[string]any{"token": "secret-1"},
	})
	require.Nil(t, resp.Error)

	assert.Equal(t, "secret-1", conn.details["token"])
	persisted, ok, _ := store.Load("gh")
	require.True(t, ok)
	assert.Equal(t, "secret-1", persisted["token"])

	// test flips the provider to authorized.
	resp = call(t, server, "tools/call", map[string]any{"name": "auth/gh/test"})
	require.Nil(t, resp.Error)

	statusResp := call(t, server, "authorization/status", nil)
	require.Nil(t, statusResp.Error)
	payload := statusResp.Result.(map[string]any)
	states := payload["providers"].(map[string]domain.AuthState)
	assert.True(t, states["gh"].Authorized)
}

func TestAuthGetSchemaTranslation(t *testing.T) {
	conn := newFake("svc", "x")
	conn.schema = domain.ConfigSchema{Fields: []domain.Field{
		{Name: "host", Type: domain.FieldText, Required: true},
		{Name: "api_key", Type: domain.FieldSecret, Required: true},
		{Name: "port", Type: domain.FieldNumber},
		{Name: "tls", Type: domain.FieldBoolean},
		{Name: "region", Type: domain.FieldSelect, Options: []string{"us", "eu"}},
	}}
	server, _ := newTestServer(t, conn)

	schema := configToJSONSchema(conn.schema)
	assert.Equal(t, "object", schema.Type)
	assert.Equal(t, "string", schema.Properties["host"].Type)
	assert.Equal(t, "string", schema.Properties["api_key"].Type)
	assert.Equal(t, "password", schema.Properties["api_key"].Format)
	assert.Equal(t, "number", schema.Properties["port"].Type)
	assert.Equal(t, "boolean", schema.Properties["tls"].Type)
	assert.Equal(t, "string", schema.Properties["region"].Type)
	assert.Equal(t, []any{"us", "eu"}, schema.Properties["region"].Enum)
	assert.ElementsMatch(t, []string{"host", "api_key"}, schema.Required)

	resp := call(t, server, "tools/call", map[string]any{"name": "auth/svc/get_schema"})
	assert.Nil(t, resp.Error)
}

func TestAuthorizationDescribe(t *testing.T) {
	alpha := newFake("alpha", "x")
	beta := newFake("beta", "y")
	server, _ := newTestServer(t, alpha, beta)

	resp := call(t, server, "authorization/describe", nil)
	require.Nil(t, resp.Error)
	payload := resp.Result.(map[string]any)
	providers := payload["providers"].([]providerDescription)

	require.Len(t, providers, 2)
	seen := map[string]int{}
	for _, p := range providers {
		seen[p.Provider]++
	}
	assert.Equal(t, 1, seen["alpha"], "exactly one entry per connector")
	assert.Equal(t, 1, seen["beta"])
}

func TestSecretsSetRunsTestAuth(t *testing.T) {
	conn := newFake("svc", "x")
	conn.authType = domain.AuthAPIKey
	server, _ := newTestServer(t, conn)

	resp := call(t, server, "secrets/set", map[string]any{
		"provider": "svc",
		"secrets":  map[string]any{"token": "tk", "retries": 3, "sandbox": true},
	})
	require.Nil(t, resp.Error)

	// Scalars are stringified into the flat details map.
	assert.Equal(t, "tk", conn.details["token"])
	assert.Equal(t, "3", conn.details["retries"])
	assert.Equal(t, "true", conn.details["sandbox"])
}

func TestSecretsSetFailingTestAuthSurfaces(t *testing.T) {
	conn := newFake("svc", "x")
	conn.authType = domain.AuthAPIKey
	conn.testAuthErr = domain.Authenticationf("bad key")
	server, _ := newTestServer(t, conn)

	resp := call(t, server, "secrets/set", map[string]any{
		"provider": "svc",
		"secrets":  map[string]any{"token": "tk"},
	})
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeAuthentication, resp.Error.Code)
}

func TestSecretsDelete(t *testing.T) {
	conn := newFake("svc", "x")
	conn.authType = domain.AuthAPIKey
	server, store := newTestServer(t, conn)

	require.Nil(t, call(t, server, "secrets/set", map[string]any{
		"provider": "svc",
		"secrets":  map[string]any{"token": "tk"},
	}).Error)

	resp := call(t, server, "secrets/delete", map[string]any{"provider": "svc"})
	require.Nil(t, resp.Error)

	_, ok, _ := store.Load("svc")
	assert.False(t, ok)
}

// fakeUsageStore records in memory.
type fakeUsageStore struct {
	records []driven.UsageRecord
}

func (f *fakeUsageStore) Record(_ context.Context, rec driven.UsageRecord) error {
	f.records = append(f.records, rec)
	return nil
}
func (f *fakeUsageStore) Report(context.Context, time.Time) ([]driven.UsageSummary, error) {
	return []driven.UsageSummary{{Connector: "alpha", Tool: "get", Calls: int64(len(f.records))}}, nil
}
func (f *fakeUsageStore) Close() error { return nil }

func TestToolCallsAreMetered(t *testing.T) {
	alpha := newFake("alpha", "get")
	registry := services.NewRegistry()
	require.NoError(t, registry.Register(alpha))
	usage := &fakeUsageStore{}
	server := NewServer(registry, newMemoryStore(), usage)

	resp := call(t, server, "tools/call", map[string]any{"name": "alpha/get"})
	require.Nil(t, resp.Error)

	require.Len(t, usage.records, 1)
	assert.Equal(t, "alpha", usage.records[0].Connector)
	assert.Equal(t, "get", usage.records[0].Tool)
	assert.True(t, usage.records[0].OK)

	report := call(t, server, "usage/report", map[string]any{"since_hours": 1})
	assert.Nil(t, report.Error)
}
