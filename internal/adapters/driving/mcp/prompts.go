package mcp

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/custodia-labs/conduit-cli/internal/core/domain"
	"github.com/custodia-labs/conduit-cli/internal/core/ports/driven"
	"github.com/custodia-labs/conduit-cli/internal/logger"
)

// listPrompts applies the same prefixing discipline as tools/list.
func (s *Server) listPrompts(ctx context.Context) (*domain.ListPromptsResult, error) {
	out := &domain.ListPromptsResult{Prompts: []domain.Prompt{}}

	for _, name := range s.registry.Names() {
		handle, err := s.registry.Get(name)
		if err != nil {
			continue
		}
		var prompts []domain.Prompt
		err = handle.Do(func(c driven.Connector) error {
			var listErr error
			prompts, listErr = c.ListPrompts(ctx)
			return listErr
		})
		if err != nil {
			logger.Warn("prompts/list: skipping %s: %v", name, err)
			continue
		}
		for _, p := range prompts {
			p.Name = name + "/" + p.Name
			out.Prompts = append(out.Prompts, p)
		}
	}
	return out, nil
}

func (s *Server) getPrompt(ctx context.Context, params json.RawMessage) (*domain.GetPromptResult, error) {
	var req domain.GetPromptRequest
	if err := unmarshalParams(params, &req); err != nil {
		return nil, err
	}

	connector, prompt, ok := strings.Cut(req.Name, "/")
	if !ok || connector == "" || prompt == "" || strings.Contains(prompt, "/") {
		return nil, domain.InvalidInputf("malformed prompt name: %q", req.Name)
	}

	handle, err := s.registry.Get(connector)
	if err != nil {
		return nil, err
	}
	var result *domain.GetPromptResult
	err = handle.Do(func(c driven.Connector) error {
		var getErr error
		result, getErr = c.GetPrompt(ctx, prompt, req.Arguments)
		return getErr
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
