package mcp

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/custodia-labs/conduit-cli/internal/core/domain"
	"github.com/custodia-labs/conduit-cli/internal/core/ports/driven"
	"github.com/custodia-labs/conduit-cli/internal/core/services"
)

// callAuthTool dispatches the synthetic auth/<provider>/<action> tools.
func (s *Server) callAuthTool(ctx context.Context, provider, action string, args map[string]any) (*domain.CallToolResult, error) {
	handle, err := s.registry.Get(provider)
	if err != nil {
		return nil, err
	}

	switch action {
	case "set":
		details, err := detailsFromArgs(args)
		if err != nil {
			return nil, err
		}
		if err := s.applyDetails(handle, provider, details); err != nil {
			return nil, err
		}
		return domain.NewStructuredResult(map[string]any{"ok": true}), nil

	case "test":
		err := handle.Do(func(c driven.Connector) error {
			return c.TestAuth(ctx)
		})
		if err != nil {
			return nil, err
		}
		s.setState(provider, true)
		return domain.NewStructuredResult(map[string]any{"ok": true}), nil

	case "get_schema":
		var schema domain.ConfigSchema
		handle.Do(func(c driven.Connector) error {
			schema = c.ConfigSchema()
			return nil
		})
		return domain.NewStructuredResult(map[string]any{
			"schema": configToJSONSchema(schema),
		}), nil

	case "start_device", "poll_device":
		internal := domain.AuthStartTool
		if action == "poll_device" {
			internal = domain.AuthPollTool
		}
		var result *domain.CallToolResult
		err := handle.Do(func(c driven.Connector) error {
			if c.AuthType() != domain.AuthOAuth {
				return domain.InvalidInputf("%s does not use OAuth", provider)
			}
			var callErr error
			result, callErr = c.CallTool(ctx, internal, args)
			return callErr
		})
		if err != nil {
			return nil, err
		}
		return result, nil

	default:
		return nil, domain.InvalidInputf("unknown auth action: %q", action)
	}
}

// applyDetails writes credentials into the connector and persists them
// under the connector's name, plus the vendor key when the connector shares
// one.
func (s *Server) applyDetails(handle *services.Handle, provider string, details domain.AuthDetails) error {
	var credentialKey string
	err := handle.Do(func(c driven.Connector) error {
		if err := c.SetAuthDetails(details); err != nil {
			return err
		}
		credentialKey = c.CredentialKey()
		return nil
	})
	if err != nil {
		return err
	}

	if s.store != nil {
		if err := s.store.Save(provider, details); err != nil {
			return err
		}
		if credentialKey != provider {
			if err := s.store.Save(credentialKey, details); err != nil {
				return err
			}
		}
	}
	return nil
}

// detailsFromArgs flattens a JSON argument object into AuthDetails.
// Numbers and booleans are stringified; nested values are rejected.
func detailsFromArgs(args map[string]any) (domain.AuthDetails, error) {
	details := make(domain.AuthDetails, len(args))
	for key, raw := range args {
		switch v := raw.(type) {
		case string:
			details[key] = v
		case float64:
			details[key] = strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			details[key] = strconv.FormatBool(v)
		case nil:
			// skip
		default:
			return nil, domain.InvalidParamsf("field %q must be a scalar", key)
		}
	}
	return details, nil
}

// providerDescription is one entry of authorization/describe.
type providerDescription struct {
	Provider    string          `json:"provider"`
	Description string          `json:"description"`
	AuthType    domain.AuthType `json:"auth_type"`
	Fields      []domain.Field  `json:"fields"`
}

// describeAuthorization returns a static description of every provider's
// credential scheme so installers can render setup UIs without runtime
// schema introspection.
func (s *Server) describeAuthorization(ctx context.Context) (any, error) {
	providers := make([]providerDescription, 0, s.registry.Len())
	for _, name := range s.registry.Names() {
		handle, err := s.registry.Get(name)
		if err != nil {
			continue
		}
		var desc providerDescription
		handle.Do(func(c driven.Connector) error {
			schema := c.ConfigSchema()
			fields := schema.Fields
			if fields == nil {
				fields = []domain.Field{}
			}
			desc = providerDescription{
				Provider:    c.Name(),
				Description: c.Description(),
				AuthType:    c.AuthType(),
				Fields:      fields,
			}
			return nil
		})
		providers = append(providers, desc)
	}
	return map[string]any{"providers": providers}, nil
}

// authorizationStatus reports the current AuthState per provider.
// Credential-free connectors are permanently authorized.
func (s *Server) authorizationStatus(ctx context.Context) (any, error) {
	states := make(map[string]domain.AuthState, s.registry.Len())
	for _, name := range s.registry.Names() {
		handle, err := s.registry.Get(name)
		if err != nil {
			continue
		}
		var authType domain.AuthType
		handle.Do(func(c driven.Connector) error {
			authType = c.AuthType()
			return nil
		})
		if authType == domain.AuthNone {
			states[name] = domain.AuthState{Authorized: true}
			continue
		}
		states[name] = s.getState(name)
	}
	return map[string]any{"providers": states}, nil
}

// secretsSet applies credentials, verifies them with test_auth, and
// updates the provider's AuthState. Credentials stay persisted even when
// the test fails, so the user can retry the test after fixing upstream
// configuration.
func (s *Server) secretsSet(ctx context.Context, params json.RawMessage) (any, error) {
	var req struct {
		Provider string         `json:"provider"`
		Secrets  map[string]any `json:"secrets"`
	}
	if err := unmarshalParams(params, &req); err != nil {
		return nil, err
	}
	if req.Provider == "" {
		return nil, domain.InvalidParamsf("provider is required")
	}

	handle, err := s.registry.Get(req.Provider)
	if err != nil {
		return nil, err
	}
	details, err := detailsFromArgs(req.Secrets)
	if err != nil {
		return nil, err
	}
	if err := s.applyDetails(handle, req.Provider, details); err != nil {
		return nil, err
	}

	if err := handle.Do(func(c driven.Connector) error { return c.TestAuth(ctx) }); err != nil {
		s.setStateUnauthorized(req.Provider)
		return nil, err
	}
	s.setState(req.Provider, true)
	return map[string]any{"ok": true}, nil
}

// secretsDelete removes a provider's stored credentials. The shared vendor
// key is left alone: cousin connectors may still be using it.
func (s *Server) secretsDelete(ctx context.Context, params json.RawMessage) (any, error) {
	var req struct {
		Provider string `json:"provider"`
	}
	if err := unmarshalParams(params, &req); err != nil {
		return nil, err
	}
	if req.Provider == "" {
		return nil, domain.InvalidParamsf("provider is required")
	}
	if _, err := s.registry.Get(req.Provider); err != nil {
		return nil, err
	}

	if s.store != nil {
		if err := s.store.Delete(req.Provider); err != nil {
			return nil, err
		}
	}
	s.setStateUnauthorized(req.Provider)
	return map[string]any{"ok": true}, nil
}

func (s *Server) setState(provider string, authorized bool) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	state := domain.AuthState{Authorized: authorized}
	if authorized {
		state.AuthorizedAt = &now
	}
	s.states[provider] = state
}

func (s *Server) setStateUnauthorized(provider string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[provider] = domain.AuthState{}
}

func (s *Server) getState(provider string) domain.AuthState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[provider]
}
