package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/conduit-cli/internal/core/domain"
	"github.com/custodia-labs/conduit-cli/internal/core/ports/driven"
)

// stubConnector is the minimal Connector for registry tests.
type stubConnector struct {
	name string
}

func (s *stubConnector) Name() string                            { return s.name }
func (s *stubConnector) Description() string                     { return "stub" }
func (s *stubConnector) CredentialKey() string                   { return s.name }
func (s *stubConnector) AuthType() domain.AuthType               { return domain.AuthNone }
func (s *stubConnector) Capabilities() domain.ServerCapabilities { return domain.ServerCapabilities{} }
func (s *stubConnector) Initialize(context.Context) error        { return nil }
func (s *stubConnector) ListTools(context.Context) ([]domain.Tool, error) {
	return nil, nil
}
func (s *stubConnector) CallTool(context.Context, string, map[string]any) (*domain.CallToolResult, error) {
	return nil, domain.ErrToolNotFound
}
func (s *stubConnector) ListResources(context.Context, string) (*domain.ListResourcesResult, error) {
	return &domain.ListResourcesResult{}, nil
}
func (s *stubConnector) ReadResource(context.Context, string) ([]domain.ResourceContents, error) {
	return nil, domain.ErrResourceNotFound
}
func (s *stubConnector) ListPrompts(context.Context) ([]domain.Prompt, error) { return nil, nil }
func (s *stubConnector) GetPrompt(context.Context, string, map[string]string) (*domain.GetPromptResult, error) {
	return nil, domain.InvalidParamsf("no prompts")
}
func (s *stubConnector) ConfigSchema() domain.ConfigSchema        { return domain.ConfigSchema{} }
func (s *stubConnector) AuthDetails() (domain.AuthDetails, error) { return nil, nil }
func (s *stubConnector) SetAuthDetails(domain.AuthDetails) error  { return nil }
func (s *stubConnector) TestAuth(context.Context) error           { return nil }

func TestRegistryGetUnknown(t *testing.T) {
	r := NewRegistry()
	_, err := r.Get("nope")
	require.Error(t, err)
	assert.Equal(t, domain.KindInvalidInput, domain.KindOf(err))
	assert.Contains(t, err.Error(), "Unknown connector: nope")
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&stubConnector{name: "alpha"}))
	require.NoError(t, r.Register(&stubConnector{name: "beta"}))

	handle, err := r.Get("alpha")
	require.NoError(t, err)
	err = handle.Do(func(c driven.Connector) error {
		assert.Equal(t, "alpha", c.Name())
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"alpha", "beta"}, r.Names())
	assert.Equal(t, 2, r.Len())
}

func TestRegistryDuplicateName(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&stubConnector{name: "alpha"}))
	err := r.Register(&stubConnector{name: "alpha"})
	assert.Error(t, err)
}

func TestRegistrySortedNames(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&stubConnector{name: "zeta"}))
	require.NoError(t, r.Register(&stubConnector{name: "alpha"}))
	assert.Equal(t, []string{"alpha", "zeta"}, r.SortedNames())
	assert.Equal(t, []string{"zeta", "alpha"}, r.Names(), "Names preserves registration order")
}
