package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/conduit-cli/internal/core/domain"
	"github.com/custodia-labs/conduit-cli/internal/core/ports/driven"
	"github.com/custodia-labs/conduit-cli/internal/logger"
)

// listResources fans out to every connector in parallel and concatenates
// the results in registration order. Individual connector failures are
// logged and skipped so one sick connector cannot poison enumeration.
func (s *Server) listResources(ctx context.Context, params json.RawMessage) (*domain.ListResourcesResult, error) {
	var req domain.PaginatedRequest
	if len(params) > 0 {
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, domain.InvalidParamsf("malformed params: %v", err)
		}
	}

	names := s.registry.Names()
	perConnector := make([][]domain.Resource, len(names))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		g.Go(func() error {
			handle, err := s.registry.Get(name)
			if err != nil {
				return nil
			}
			var result *domain.ListResourcesResult
			err = handle.Do(func(c driven.Connector) error {
				var listErr error
				result, listErr = c.ListResources(gctx, req.Cursor)
				return listErr
			})
			if err != nil {
				logger.Warn("resources/list: skipping %s: %v", name, err)
				return nil
			}
			mu.Lock()
			perConnector[i] = result.Resources
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	out := &domain.ListResourcesResult{Resources: []domain.Resource{}}
	for _, resources := range perConnector {
		out.Resources = append(out.Resources, resources...)
	}
	return out, nil
}

// readResource tries each connector in turn until one claims the URI. Only
// ResourceNotFound moves on to the next connector; any other error is that
// connector's answer.
func (s *Server) readResource(ctx context.Context, params json.RawMessage) (*domain.ReadResourceResult, error) {
	var req domain.ReadResourceRequest
	if err := unmarshalParams(params, &req); err != nil {
		return nil, err
	}
	if req.URI == "" {
		return nil, domain.InvalidParamsf("uri is required")
	}

	for _, name := range s.registry.Names() {
		handle, err := s.registry.Get(name)
		if err != nil {
			continue
		}
		var contents []domain.ResourceContents
		err = handle.Do(func(c driven.Connector) error {
			var readErr error
			contents, readErr = c.ReadResource(ctx, req.URI)
			return readErr
		})
		if err != nil {
			if errors.Is(err, domain.ErrResourceNotFound) {
				continue
			}
			return nil, err
		}
		return &domain.ReadResourceResult{Contents: contents}, nil
	}
	return nil, domain.ErrResourceNotFound
}
